// Package search provides cached product search and prefix
// autocomplete over the Redis sorted-set index.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eatcost/storefront/internal/infrastructure/cache"
	"github.com/eatcost/storefront/internal/infrastructure/woocommerce"
)

const (
	// IndexKey is the autocomplete index shared with the refresh job
	IndexKey = "autocomplete:products"

	searchKeyFormat = "search:products:%s"
	searchTagFormat = "search:query:%s"

	defaultSuggestionLimit = 10
)

// StoreSearch is the upstream search surface the service needs
type StoreSearch interface {
	SearchProducts(ctx context.Context, query string, page int) ([]woocommerce.Product, error)
}

// Suggestion is one autocomplete entry. Display carries the next word
// in next-word mode and the full name otherwise.
type Suggestion struct {
	Text    string `json:"text"`
	Display string `json:"display"`
	Type    string `json:"type"`
}

// AutocompleteResult is the suggestion list with its mode
type AutocompleteResult struct {
	Suggestions []Suggestion `json:"suggestions"`
	Query       string       `json:"query"`
	Mode        string       `json:"mode"`
	Prefix      string       `json:"prefix"`
}

// SearchResult is a search answer with its normalized query
type SearchResult struct {
	Query   string                `json:"query"`
	Count   int                   `json:"count"`
	Results []woocommerce.Product `json:"results"`
}

// Service caches search results and serves autocomplete suggestions
type Service struct {
	store  StoreSearch
	cache  *cache.Cache
	index  *cache.AutocompleteIndex
	ttl    time.Duration
	logger *zap.Logger
}

// NewService creates a search service on the compressed cache
func NewService(store StoreSearch, c *cache.Cache, index *cache.AutocompleteIndex, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{store: store, cache: c, index: index, ttl: ttl, logger: logger}
}

// SearchProducts runs a cached product search. Results are tagged per
// query so a single query's cache can be dropped without touching the
// rest.
func (s *Service) SearchProducts(ctx context.Context, query string) (*SearchResult, error) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	key := fmt.Sprintf(searchKeyFormat, normalized)

	var products []woocommerce.Product
	if err := s.cache.Get(ctx, key, &products); err == nil {
		return &SearchResult{Query: normalized, Count: len(products), Results: products}, nil
	}

	products, err := s.store.SearchProducts(ctx, normalized, 1)
	if err != nil {
		return nil, err
	}

	tag := fmt.Sprintf(searchTagFormat, normalized)
	if err := s.cache.Set(ctx, key, products, s.ttl, tag); err != nil {
		s.logger.Warn("search result cache write failed", zap.String("query", normalized), zap.Error(err))
	}
	return &SearchResult{Query: normalized, Count: len(products), Results: products}, nil
}

// InvalidateQuery drops the cached results of one query
func (s *Service) InvalidateQuery(ctx context.Context, query string) error {
	normalized := strings.ToLower(strings.TrimSpace(query))
	_, err := s.cache.InvalidateByTag(ctx, fmt.Sprintf(searchTagFormat, normalized))
	return err
}

// Autocomplete suggests product names for a partial query. Queries
// shorter than the index minimum return no suggestions.
func (s *Service) Autocomplete(ctx context.Context, query string) (*AutocompleteResult, error) {
	result := &AutocompleteResult{
		Suggestions: []Suggestion{},
		Query:       query,
		Mode:        cache.ModeFull,
	}
	if len(strings.TrimSpace(query)) < cache.MinPrefixLen {
		return result, nil
	}

	found, err := s.index.Search(ctx, IndexKey, query, defaultSuggestionLimit)
	if err != nil {
		return nil, err
	}

	result.Mode = found.Mode
	result.Prefix = found.Prefix

	if found.Mode == cache.ModeNextWord {
		for i, name := range found.Names {
			result.Suggestions = append(result.Suggestions, Suggestion{
				Text:    name,
				Display: found.NextWords[i],
				Type:    "next_word",
			})
		}
		return result, nil
	}

	for _, name := range found.Names {
		result.Suggestions = append(result.Suggestions, Suggestion{
			Text:    name,
			Display: name,
			Type:    "full",
		})
	}
	return result, nil
}

// RebuildIndex replaces the autocomplete index with fresh names.
// Returns the number of indexed entries.
func (s *Service) RebuildIndex(ctx context.Context, names []string, ttl time.Duration) (int, error) {
	return s.index.Build(ctx, IndexKey, names, ttl)
}
