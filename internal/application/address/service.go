// Package address serves the delivery address directory: suggestions
// for the checkout form and the delivery options available at an
// address.
package address

import (
	"bufio"
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eatcost/storefront/internal/infrastructure/cache"
)

const (
	addressesKey = "addresses"

	suggestionLimit = 10
)

// Delivery option slugs
const (
	DeliveryFree   = "free_delivery"
	DeliveryPickup = "local_pickup"
)

// DeliveryType is one way an order can reach the customer
type DeliveryType struct {
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Available bool   `json:"available"`
}

// Service answers address autocomplete and delivery checks from a
// flat-file directory, one address per line, cached in Redis.
type Service struct {
	filePath string
	cache    *cache.Cache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewService creates an address service on the compressed cache
func NewService(filePath string, c *cache.Cache, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{filePath: filePath, cache: c, ttl: ttl, logger: logger}
}

// Suggest returns directory addresses containing the query, sorted,
// capped at ten. Matching is case-insensitive and not anchored to the
// start: customers paste street fragments.
func (s *Service) Suggest(ctx context.Context, query string) ([]string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []string{}, nil
	}

	addresses, err := s.addresses(ctx)
	if err != nil {
		return nil, err
	}

	matches := []string{}
	for _, addr := range addresses {
		if strings.Contains(strings.ToLower(addr), query) {
			matches = append(matches, addr)
		}
	}
	sort.Strings(matches)
	if len(matches) > suggestionLimit {
		matches = matches[:suggestionLimit]
	}
	return matches, nil
}

// CheckDelivery reports the delivery options at an address. Free
// delivery requires the exact address to be in the directory; pickup
// is always available.
func (s *Service) CheckDelivery(ctx context.Context, query string) ([]DeliveryType, error) {
	exists, err := s.Exists(ctx, query)
	if err != nil {
		return nil, err
	}
	return []DeliveryType{
		{Title: "Бесплатная доставка", Slug: DeliveryFree, Available: exists},
		{Title: "Самовывоз", Slug: DeliveryPickup, Available: true},
	}, nil
}

// Exists reports whether the exact address is in the directory
func (s *Service) Exists(ctx context.Context, query string) (bool, error) {
	addresses, err := s.addresses(ctx)
	if err != nil {
		return false, err
	}

	query = strings.TrimSpace(query)
	for _, addr := range addresses {
		if addr == query {
			return true, nil
		}
	}
	return false, nil
}

// addresses returns the cached directory, loading the file on a miss
func (s *Service) addresses(ctx context.Context) ([]string, error) {
	var addresses []string
	err := s.cache.GetOrSet(ctx, addressesKey, s.ttl, &addresses, func(ctx context.Context) (any, error) {
		return s.loadFile()
	})
	if err != nil {
		return nil, err
	}
	return addresses, nil
}

// loadFile reads the directory file, one address per line
func (s *Service) loadFile() ([]string, error) {
	file, err := os.Open(s.filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	addresses := []string{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			addresses = append(addresses, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("address directory loaded",
		zap.String("file", s.filePath), zap.Int("addresses", len(addresses)))
	return addresses, nil
}
