// Package catalog serves the product catalog from Redis, falling back
// to the upstream store on cache misses. Reads degrade to empty
// results when the store is unreachable so the storefront stays up.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eatcost/storefront/internal/infrastructure/cache"
	"github.com/eatcost/storefront/internal/infrastructure/woocommerce"
)

const (
	allProductsKey   = "products:by_category_list"
	productNamesKey  = "products:names"
	categoriesKey    = "categories"
	productsByCatKey = "products:by_category:%s"

	// categoryPageBatch is how many catalog pages are fetched per round
	// when draining a category.
	categoryPageBatch = 10
)

// StoreCatalog is the upstream product surface the service needs
type StoreCatalog interface {
	GetProducts(ctx context.Context, categoryID string, page int) ([]woocommerce.CategoryProducts, error)
	GetCategories(ctx context.Context) ([]woocommerce.Category, error)
}

// Service caches and serves the product catalog
type Service struct {
	store  StoreCatalog
	cache  *cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewService creates a catalog service. The cache is expected to be
// the compressed one; catalog payloads are large.
func NewService(store StoreCatalog, c *cache.Cache, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{store: store, cache: c, ttl: ttl, logger: logger}
}

// GetAllProducts returns the whole catalog grouped by category.
// Upstream failures degrade to an empty catalog.
func (s *Service) GetAllProducts(ctx context.Context) ([]woocommerce.CategoryProducts, error) {
	var result []woocommerce.CategoryProducts
	err := s.cache.GetOrSet(ctx, allProductsKey, s.ttl, &result, func(ctx context.Context) (any, error) {
		return s.fetchAllProducts(ctx)
	})
	if err != nil {
		s.logger.Error("catalog fetch failed, serving empty catalog", zap.Error(err))
		return []woocommerce.CategoryProducts{}, nil
	}
	return result, nil
}

// fetchAllProducts loads the first page of every category and keeps
// each category's own product group.
func (s *Service) fetchAllProducts(ctx context.Context) ([]woocommerce.CategoryProducts, error) {
	categories, err := s.store.GetCategories(ctx)
	if err != nil {
		return nil, err
	}

	groups := make([][]woocommerce.CategoryProducts, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		i, category := i, category
		g.Go(func() error {
			pages, err := s.store.GetProducts(gctx, strconv.FormatInt(category.CategoryID, 10), 1)
			if err != nil {
				return err
			}
			groups[i] = pages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	catalog := make([]woocommerce.CategoryProducts, 0, len(categories))
	for _, pages := range groups {
		if len(pages) > 0 {
			catalog = append(catalog, pages[0])
		}
	}
	return catalog, nil
}

// GetProductsByCategory returns every product of one category, paging
// through the upstream until it runs dry.
func (s *Service) GetProductsByCategory(ctx context.Context, categoryID string) ([]woocommerce.CategoryProducts, error) {
	key := fmt.Sprintf(productsByCatKey, categoryID)

	var result []woocommerce.CategoryProducts
	err := s.cache.GetOrSet(ctx, key, s.ttl, &result, func(ctx context.Context) (any, error) {
		return s.fetchCategory(ctx, categoryID)
	})
	if err != nil {
		s.logger.Error("category fetch failed, serving empty list",
			zap.String("category_id", categoryID), zap.Error(err))
		return []woocommerce.CategoryProducts{}, nil
	}
	return result, nil
}

func (s *Service) fetchCategory(ctx context.Context, categoryID string) ([]woocommerce.CategoryProducts, error) {
	collected := make([]woocommerce.CategoryProducts, 0)

	for basePage := 1; ; basePage += categoryPageBatch {
		pages := make([][]woocommerce.CategoryProducts, categoryPageBatch)

		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < categoryPageBatch; i++ {
			i := i
			page := basePage + i
			g.Go(func() error {
				result, err := s.store.GetProducts(gctx, categoryID, page)
				if err != nil {
					return err
				}
				pages[i] = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		exhausted := false
		for _, page := range pages {
			if len(page) == 0 {
				exhausted = true
				continue
			}
			collected = append(collected, page[0])
		}
		if exhausted {
			return collected, nil
		}
	}
}

// GetAllProductNames returns the names of every product, the feed for
// the autocomplete index.
func (s *Service) GetAllProductNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.cache.GetOrSet(ctx, productNamesKey, s.ttl, &names, func(ctx context.Context) (any, error) {
		return s.fetchProductNames(ctx)
	})
	if err != nil {
		s.logger.Error("product names fetch failed", zap.Error(err))
		return []string{}, nil
	}
	return names, nil
}

func (s *Service) fetchProductNames(ctx context.Context) ([]string, error) {
	categories, err := s.store.GetCategories(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0)
	for _, category := range categories {
		groups, err := s.GetProductsByCategory(ctx, strconv.FormatInt(category.CategoryID, 10))
		if err != nil || len(groups) == 0 {
			continue
		}
		for _, item := range groups[0].Items {
			names = append(names, item.Name)
		}
	}
	return names, nil
}

// GetCategories returns the simplified category list
func (s *Service) GetCategories(ctx context.Context) ([]woocommerce.Category, error) {
	var categories []woocommerce.Category
	err := s.cache.GetOrSet(ctx, categoriesKey, s.ttl, &categories, func(ctx context.Context) (any, error) {
		return s.store.GetCategories(ctx)
	})
	if err != nil {
		s.logger.Error("categories fetch failed, serving empty list", zap.Error(err))
		return []woocommerce.Category{}, nil
	}
	return categories, nil
}

// RefreshCatalog rebuilds the whole-catalog cache entry regardless of
// what is currently cached. Used by the background refresh job.
func (s *Service) RefreshCatalog(ctx context.Context) error {
	catalog, err := s.fetchAllProducts(ctx)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, allProductsKey, catalog, s.ttl)
}

// RefreshCategories rebuilds the per-category cache entries
func (s *Service) RefreshCategories(ctx context.Context) error {
	categories, err := s.store.GetCategories(ctx)
	if err != nil {
		return err
	}
	for _, category := range categories {
		id := strconv.FormatInt(category.CategoryID, 10)
		products, err := s.fetchCategory(ctx, id)
		if err != nil {
			return err
		}
		if err := s.cache.Set(ctx, fmt.Sprintf(productsByCatKey, id), products, s.ttl); err != nil {
			return err
		}
	}
	return s.cache.Set(ctx, categoriesKey, categories, s.ttl)
}

// RefreshProductNames rebuilds the product names cache entry
func (s *Service) RefreshProductNames(ctx context.Context) ([]string, error) {
	names, err := s.fetchProductNames(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, productNamesKey, names, s.ttl); err != nil {
		return nil, err
	}
	return names, nil
}
