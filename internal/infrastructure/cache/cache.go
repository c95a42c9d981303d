package cache

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const tagKeyPrefix = "tag:"

// Invalidation message prefixes understood by the pub/sub listener
const (
	invalidateKeyPrefix     = "key:"
	invalidatePatternPrefix = "pattern:"
	invalidateTagPrefix     = "tag:"
)

// ErrNotFound is returned by Get when the key does not exist
var ErrNotFound = errors.New("cache: key not found")

// Cache is a Redis-backed cache with TTLs, tag sets and cross-instance
// invalidation over pub/sub. Values are stored as JSON, or as
// zlib-compressed msgpack when compression is enabled (large payloads
// like the full catalog).
type Cache struct {
	client     *redis.Client
	logger     *zap.Logger
	compressed bool
	channel    string

	subCancel context.CancelFunc
}

// Option configures a Cache
type Option func(*Cache)

// WithCompression stores values as zlib-compressed msgpack
func WithCompression() Option {
	return func(c *Cache) {
		c.compressed = true
	}
}

// WithInvalidationChannel sets the pub/sub channel for invalidation messages
func WithInvalidationChannel(channel string) Option {
	return func(c *Cache) {
		c.channel = channel
	}
}

// New creates a Cache on top of an existing Redis client
func New(client *redis.Client, logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		client:  client,
		logger:  logger,
		channel: "cache:invalidate",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Client exposes the underlying Redis client for health checks
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Get loads the value stored under key into dest.
// Returns ErrNotFound when the key does not exist.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("cache: get %s: %w", key, err)
	}
	return c.decode(data, dest)
}

// Set stores value under key with the given TTL. Each tag maintains a
// Redis set of member keys so tagged entries can be invalidated together.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error {
	data, err := c.encode(value)
	if err != nil {
		return err
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, data, ttl)
	for _, tag := range tags {
		tagKey := tagKeyPrefix + tag
		pipe.SAdd(ctx, tagKey, key)
		pipe.Expire(ctx, tagKey, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys from the cache
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: delete: %w", err)
	}
	return nil
}

// Exists reports whether the key is present
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("cache: exists %s: %w", key, err)
	}
	return n > 0, nil
}

// TTL returns the remaining time to live of a key
func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("cache: ttl %s: %w", key, err)
	}
	return ttl, nil
}

// RefreshTTL resets the TTL of an existing key. Returns false when the
// key does not exist.
func (c *Cache) RefreshTTL(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache: refresh ttl %s: %w", key, err)
	}
	return ok, nil
}

// GetOrSet returns the cached value for key, calling loader and caching
// its result on a miss. dest receives the value in both cases.
func (c *Cache) GetOrSet(ctx context.Context, key string, ttl time.Duration, dest any, loader func(ctx context.Context) (any, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		// A broken cache should not take the read path down with it
		c.logger.Warn("cache read failed, falling through to loader",
			zap.String("key", key), zap.Error(err))
	}

	value, err := loader(ctx)
	if err != nil {
		return err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}

	// Round-trip through the codec so dest gets the same shape a
	// cache hit would produce.
	data, err := c.encode(value)
	if err != nil {
		return err
	}
	return c.decode(data, dest)
}

// InvalidateByPattern deletes all keys matching a glob-style pattern.
// Returns the number of deleted keys.
func (c *Cache) InvalidateByPattern(ctx context.Context, pattern string) (int, error) {
	var deleted int
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return deleted, fmt.Errorf("cache: invalidate pattern %s: %w", pattern, err)
			}
			deleted += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("cache: scan %s: %w", pattern, err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return deleted, fmt.Errorf("cache: invalidate pattern %s: %w", pattern, err)
		}
		deleted += len(batch)
	}
	return deleted, nil
}

// InvalidateByTag deletes every key registered under the tag, plus the
// tag set itself. Returns the number of deleted cache keys.
func (c *Cache) InvalidateByTag(ctx context.Context, tag string) (int, error) {
	tagKey := tagKeyPrefix + tag
	members, err := c.client.SMembers(ctx, tagKey).Result()
	if err != nil {
		return 0, fmt.Errorf("cache: members of %s: %w", tagKey, err)
	}

	keys := append(members, tagKey)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("cache: invalidate tag %s: %w", tag, err)
	}
	return len(members), nil
}

// InvalidateByTags invalidates multiple tags, returning the total number
// of deleted cache keys.
func (c *Cache) InvalidateByTags(ctx context.Context, tags ...string) (int, error) {
	var total int
	for _, tag := range tags {
		n, err := c.InvalidateByTag(ctx, tag)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// PublishInvalidation broadcasts an invalidation message to all
// instances. msg must be "key:<k>", "pattern:<p>" or "tag:<t>".
func (c *Cache) PublishInvalidation(ctx context.Context, msg string) error {
	if err := c.client.Publish(ctx, c.channel, msg).Err(); err != nil {
		return fmt.Errorf("cache: publish invalidation: %w", err)
	}
	return nil
}

// StartInvalidationListener subscribes to the invalidation channel and
// applies incoming messages until the cache is closed. callback, if not
// nil, runs after each message is applied.
func (c *Cache) StartInvalidationListener(ctx context.Context, callback func(msg string)) {
	ctx, cancel := context.WithCancel(ctx)
	c.subCancel = cancel

	pubsub := c.client.Subscribe(ctx, c.channel)

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				c.applyInvalidation(ctx, m.Payload)
				if callback != nil {
					callback(m.Payload)
				}
			}
		}
	}()
}

// applyInvalidation handles a single pub/sub invalidation message
func (c *Cache) applyInvalidation(ctx context.Context, msg string) {
	switch {
	case strings.HasPrefix(msg, invalidateKeyPrefix):
		key := strings.TrimPrefix(msg, invalidateKeyPrefix)
		if err := c.Delete(ctx, key); err != nil {
			c.logger.Warn("invalidation delete failed", zap.String("key", key), zap.Error(err))
		}
	case strings.HasPrefix(msg, invalidatePatternPrefix):
		pattern := strings.TrimPrefix(msg, invalidatePatternPrefix)
		if _, err := c.InvalidateByPattern(ctx, pattern); err != nil {
			c.logger.Warn("invalidation pattern failed", zap.String("pattern", pattern), zap.Error(err))
		}
	case strings.HasPrefix(msg, invalidateTagPrefix):
		tag := strings.TrimPrefix(msg, invalidateTagPrefix)
		if _, err := c.InvalidateByTag(ctx, tag); err != nil {
			c.logger.Warn("invalidation tag failed", zap.String("tag", tag), zap.Error(err))
		}
	default:
		c.logger.Warn("unknown invalidation message", zap.String("msg", msg))
	}
}

// Close stops the invalidation listener. The Redis client is shared and
// stays open.
func (c *Cache) Close() {
	if c.subCancel != nil {
		c.subCancel()
	}
}

func (c *Cache) encode(value any) ([]byte, error) {
	if !c.compressed {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("cache: marshal: %w", err)
		}
		return data, nil
	}

	packed, err := msgpack.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("cache: msgpack marshal: %w", err)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(packed); err != nil {
		return nil, fmt.Errorf("cache: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("cache: compress: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Cache) decode(data []byte, dest any) error {
	if !c.compressed {
		if err := json.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("cache: unmarshal: %w", err)
		}
		return nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("cache: decompress: %w", err)
	}
	defer zr.Close()

	packed, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("cache: decompress: %w", err)
	}
	if err := msgpack.Unmarshal(packed, dest); err != nil {
		return fmt.Errorf("cache: msgpack unmarshal: %w", err)
	}
	return nil
}
