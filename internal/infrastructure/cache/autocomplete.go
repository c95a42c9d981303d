package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// MinPrefixLen is the shortest prefix indexed for autocomplete
const MinPrefixLen = 2

// Autocomplete result modes
const (
	ModeFull     = "full"      // suggestions are complete names
	ModeNextWord = "next_word" // query ended with a space, suggest the next word
)

// Suggestions is the result of an autocomplete lookup
type Suggestions struct {
	Mode      string   `json:"mode"`
	Prefix    string   `json:"prefix"`
	Names     []string `json:"suggestions"`
	NextWords []string `json:"next_words_only,omitempty"`
}

// AutocompleteIndex is a sorted-set prefix index over product names.
// Each name is stored once per prefix as a "<prefix>*<full name>" member
// with score 0, so ZRANGEBYLEX finds all names for a typed prefix.
type AutocompleteIndex struct {
	client *redis.Client
}

// NewAutocompleteIndex creates an index on top of an existing Redis client
func NewAutocompleteIndex(client *redis.Client) *AutocompleteIndex {
	return &AutocompleteIndex{client: client}
}

// Build rebuilds the index from the given names. The new index is
// written to a temp key and renamed over the old one, so readers never
// see a partial index. Returns the number of indexed members.
func (a *AutocompleteIndex) Build(ctx context.Context, indexKey string, names []string, ttl time.Duration) (int, error) {
	tempKey := fmt.Sprintf("%s:temp:%d", indexKey, time.Now().UnixNano())

	members := make([]redis.Z, 0, len(names)*8)
	seen := make(map[string]struct{})
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		runes := []rune(name)
		for i := MinPrefixLen; i <= len(runes); i++ {
			member := string(runes[:i]) + "*" + name
			if _, ok := seen[member]; ok {
				continue
			}
			seen[member] = struct{}{}
			members = append(members, redis.Z{Score: 0, Member: member})
		}
	}

	if len(members) == 0 {
		// Nothing to index, drop the old index so stale names disappear
		if err := a.client.Del(ctx, indexKey).Err(); err != nil {
			return 0, fmt.Errorf("autocomplete: clear %s: %w", indexKey, err)
		}
		return 0, nil
	}

	if err := a.client.ZAdd(ctx, tempKey, members...).Err(); err != nil {
		a.client.Del(ctx, tempKey)
		return 0, fmt.Errorf("autocomplete: build %s: %w", indexKey, err)
	}

	if err := a.client.Rename(ctx, tempKey, indexKey).Err(); err != nil {
		a.client.Del(ctx, tempKey)
		return 0, fmt.Errorf("autocomplete: swap %s: %w", indexKey, err)
	}

	if ttl > 0 {
		if err := a.client.Expire(ctx, indexKey, ttl).Err(); err != nil {
			return len(members), fmt.Errorf("autocomplete: expire %s: %w", indexKey, err)
		}
	}

	return len(members), nil
}

// Search looks up suggestions for a typed query. Queries shorter than
// MinPrefixLen return no suggestions. A query ending with a space
// switches to next-word mode: suggestions are names continuing the
// typed words, and NextWords holds the distinct candidate words.
func (a *AutocompleteIndex) Search(ctx context.Context, indexKey, query string, limit int) (*Suggestions, error) {
	prefix := strings.ToLower(strings.TrimLeft(query, " "))
	nextWordMode := strings.HasSuffix(prefix, " ") && strings.TrimSpace(prefix) != ""
	if nextWordMode {
		prefix = strings.TrimRight(prefix, " ") + " "
	}

	trimmed := strings.TrimSpace(prefix)
	if len([]rune(trimmed)) < MinPrefixLen {
		return &Suggestions{Mode: ModeFull, Prefix: trimmed, Names: []string{}}, nil
	}

	results, err := a.client.ZRangeByLex(ctx, indexKey, &redis.ZRangeBy{
		Min:    "[" + prefix,
		Max:    "[" + prefix + "\xff",
		Offset: 0,
		Count:  int64(limit * 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("autocomplete: search %s: %w", indexKey, err)
	}

	names := make([]string, 0, limit*2)
	seen := make(map[string]struct{})
	for _, member := range results {
		_, full, ok := strings.Cut(member, "*")
		if !ok {
			continue
		}
		if _, dup := seen[full]; dup {
			continue
		}
		seen[full] = struct{}{}
		names = append(names, full)
		if len(names) >= limit*2 {
			break
		}
	}

	if !nextWordMode {
		if len(names) > limit {
			names = names[:limit]
		}
		return &Suggestions{Mode: ModeFull, Prefix: trimmed, Names: names}, nil
	}

	// Keep matching names and their next words aligned index-for-index
	prefixWords := strings.Fields(trimmed)
	nextWordsSet := make(map[string]struct{})
	matching := make([]string, 0, limit)
	nextWords := make([]string, 0, limit)

	for _, name := range names {
		words := strings.Fields(name)
		if len(words) <= len(prefixWords) {
			continue
		}
		if !equalWords(words[:len(prefixWords)], prefixWords) {
			continue
		}
		next := words[len(prefixWords)]
		if _, dup := nextWordsSet[next]; dup {
			continue
		}
		nextWordsSet[next] = struct{}{}
		matching = append(matching, name)
		nextWords = append(nextWords, next)
		if len(matching) >= limit {
			break
		}
	}

	return &Suggestions{
		Mode:      ModeNextWord,
		Prefix:    trimmed,
		Names:     matching,
		NextWords: nextWords,
	}, nil
}

func equalWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
