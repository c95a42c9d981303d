package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eatcost/storefront/internal/application/catalog"
	"github.com/eatcost/storefront/internal/application/search"
	"github.com/eatcost/storefront/internal/infrastructure/woocommerce"
)

// CatalogReader is the catalog surface the product handler needs
type CatalogReader interface {
	GetAllProducts(ctx context.Context) ([]woocommerce.CategoryProducts, error)
	GetProductsByCategory(ctx context.Context, categoryID string) ([]woocommerce.CategoryProducts, error)
	GetCategories(ctx context.Context) ([]woocommerce.Category, error)
}

// ProductSearcher is the search surface the product handler needs
type ProductSearcher interface {
	SearchProducts(ctx context.Context, query string) (*search.SearchResult, error)
	Autocomplete(ctx context.Context, query string) (*search.AutocompleteResult, error)
}

// ProductHandler serves the public product catalog
type ProductHandler struct {
	BaseHandler
	catalog CatalogReader
	search  ProductSearcher
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalogSvc CatalogReader, searchSvc ProductSearcher) *ProductHandler {
	return &ProductHandler{catalog: catalogSvc, search: searchSvc}
}

// ListProducts returns the full catalog grouped by category, or a
// single category when category_id is given.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()

	if categoryID := c.Query("category_id"); categoryID != "" {
		groups, err := h.catalog.GetProductsByCategory(ctx, categoryID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, groups)
		return
	}

	groups, err := h.catalog.GetAllProducts(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, groups)
}

// ListCategories returns the category list, optionally narrowed to the
// children of parent_category_id.
func (h *ProductHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.GetCategories(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if parent := c.Query("parent_category_id"); parent != "" {
		parentID, err := strconv.ParseInt(parent, 10, 64)
		if err != nil {
			h.BadRequest(c, "parent_category_id must be an integer")
			return
		}
		children := make([]woocommerce.Category, 0)
		for _, category := range categories {
			if category.ParentID == parentID {
				children = append(children, category)
			}
		}
		h.Success(c, children)
		return
	}

	h.Success(c, categories)
}

// SearchProducts runs a product search
func (h *ProductHandler) SearchProducts(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		h.BadRequest(c, "query parameter is required")
		return
	}

	result, err := h.search.SearchProducts(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Autocomplete suggests product names for a partial query
func (h *ProductHandler) Autocomplete(c *gin.Context) {
	result, err := h.search.Autocomplete(c.Request.Context(), c.Query("query"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RegisterRoutes registers the product routes
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	products := rg.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/category", h.ListCategories)
		products.GET("/search", h.SearchProducts)
		products.GET("/search-autocomplete", h.Autocomplete)
	}
}

var _ CatalogReader = (*catalog.Service)(nil)
var _ ProductSearcher = (*search.Service)(nil)
