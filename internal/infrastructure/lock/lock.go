// Package lock provides a Redis-backed distributed lock used to
// coordinate background refresh jobs across service instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lock:"

// ErrNotAcquired is returned by Acquire when the lock could not be taken
// within the configured retries.
var ErrNotAcquired = errors.New("lock: not acquired")

// Token ownership is enforced in Redis: release and extend only succeed
// when the stored token matches the one this instance wrote.
var (
	releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`)

	extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("expire", KEYS[1], ARGV[2])
else
	return 0
end`)
)

// Options configures a DistributedLock
type Options struct {
	TTL        time.Duration // lock expiry, defaults to 30s
	RetryDelay time.Duration // pause between blocking acquire attempts, defaults to 100ms
	RetryTimes int           // max blocking attempts, 0 means retry until ctx is done
	AutoExtend bool          // run a heartbeat extending the lock at TTL/3
}

// DistributedLock is a single-holder lock stored under "lock:<name>".
type DistributedLock struct {
	client *redis.Client
	key    string
	opts   Options

	mu            sync.Mutex
	token         string
	heartbeatStop chan struct{}
	heartbeatDone chan struct{}
}

// New creates a lock for the given name
func New(client *redis.Client, name string, opts Options) *DistributedLock {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 100 * time.Millisecond
	}
	return &DistributedLock{
		client: client,
		key:    keyPrefix + name,
		opts:   opts,
	}
}

// Key returns the full Redis key of the lock
func (l *DistributedLock) Key() string {
	return l.key
}

// TryAcquire attempts to take the lock without waiting. Returns false
// when another holder owns it (skip-if-locked mode).
func (l *DistributedLock) TryAcquire(ctx context.Context) (bool, error) {
	return l.acquire(ctx, false)
}

// Acquire takes the lock, retrying with the configured delay until it
// succeeds, the retry budget runs out, or ctx is cancelled.
func (l *DistributedLock) Acquire(ctx context.Context) error {
	ok, err := l.acquire(ctx, true)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAcquired
	}
	return nil
}

func (l *DistributedLock) acquire(ctx context.Context, blocking bool) (bool, error) {
	token := uuid.NewString()
	attempts := 0

	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.opts.TTL).Result()
		if err != nil {
			return false, fmt.Errorf("lock: acquire %s: %w", l.key, err)
		}
		if ok {
			l.mu.Lock()
			l.token = token
			l.mu.Unlock()
			if l.opts.AutoExtend {
				l.startHeartbeat()
			}
			return true, nil
		}

		if !blocking {
			return false, nil
		}

		attempts++
		if l.opts.RetryTimes > 0 && attempts >= l.opts.RetryTimes {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(l.opts.RetryDelay):
		}
	}
}

// Release frees the lock if this instance still owns it. Returns false
// when the lock expired or was taken over by someone else.
func (l *DistributedLock) Release(ctx context.Context) (bool, error) {
	l.stopHeartbeat()

	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()

	if token == "" {
		return false, nil
	}

	res, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int()
	if err != nil {
		return false, fmt.Errorf("lock: release %s: %w", l.key, err)
	}
	return res == 1, nil
}

// Extend pushes the lock expiry out by ttl (the lock TTL when zero).
// Only succeeds while this instance owns the lock.
func (l *DistributedLock) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	token := l.token
	l.mu.Unlock()

	if token == "" {
		return false, nil
	}
	if ttl <= 0 {
		ttl = l.opts.TTL
	}

	res, err := extendScript.Run(ctx, l.client, []string{l.key}, token, int(ttl.Seconds())).Int()
	if err != nil {
		return false, fmt.Errorf("lock: extend %s: %w", l.key, err)
	}
	return res == 1, nil
}

// IsLocked reports whether any holder currently owns the lock
func (l *DistributedLock) IsLocked(ctx context.Context) (bool, error) {
	n, err := l.client.Exists(ctx, l.key).Result()
	if err != nil {
		return false, fmt.Errorf("lock: exists %s: %w", l.key, err)
	}
	return n > 0, nil
}

// IsOwned reports whether this instance holds the lock
func (l *DistributedLock) IsOwned(ctx context.Context) (bool, error) {
	l.mu.Lock()
	token := l.token
	l.mu.Unlock()

	if token == "" {
		return false, nil
	}

	current, err := l.client.Get(ctx, l.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("lock: get %s: %w", l.key, err)
	}
	return current == token, nil
}

func (l *DistributedLock) startHeartbeat() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.heartbeatStop != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	l.heartbeatStop = stop
	l.heartbeatDone = done

	interval := l.opts.TTL / 3
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ok, err := l.Extend(context.Background(), 0)
				if err != nil || !ok {
					return
				}
			}
		}
	}()
}

func (l *DistributedLock) stopHeartbeat() {
	l.mu.Lock()
	stop := l.heartbeatStop
	done := l.heartbeatDone
	l.heartbeatStop = nil
	l.heartbeatDone = nil
	l.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}
