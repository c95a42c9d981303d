package woocommerce

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// uncategorizedName labels products that carry no category
const uncategorizedName = "Без категории"

// categoryPages is how many category pages are fetched concurrently.
// The upstream paginates at 100 per page, so this covers 1000
// categories.
const categoryPages = 10

// GetProducts fetches one page of products, optionally filtered by
// category, and groups them by category. Products without a category
// land in the uncategorized bucket.
func (c *Client) GetProducts(ctx context.Context, categoryID string, page int) ([]CategoryProducts, error) {
	if page < 1 {
		page = 1
	}
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(productsPerPage))
	query.Set("page", strconv.Itoa(page))
	if categoryID != "" {
		query.Set("category", categoryID)
	}

	var raw []rawProduct
	if err := c.getJSON(ctx, storeProductsPath, requestOptions{basicAuth: true, query: query}, &raw); err != nil {
		return nil, err
	}

	grouped := make(map[int64]*CategoryProducts)
	order := make([]int64, 0)

	appendTo := func(id int64, name string, product Product) {
		group, ok := grouped[id]
		if !ok {
			group = &CategoryProducts{CategoryName: name, Items: []Product{}}
			grouped[id] = group
			order = append(order, id)
		}
		group.Items = append(group.Items, product)
	}

	for i := range raw {
		product := raw[i].project()
		if len(product.Categories) == 0 {
			appendTo(-1, uncategorizedName, product)
			continue
		}
		for _, cat := range product.Categories {
			name := cat.Name
			if name == "" {
				name = fmt.Sprintf("category_%d", cat.ID)
			}
			appendTo(cat.ID, name, product)
		}
	}

	result := make([]CategoryProducts, 0, len(order))
	for _, id := range order {
		result = append(result, *grouped[id])
	}
	return result, nil
}

// SearchProducts fetches one page of products matching the query
func (c *Client) SearchProducts(ctx context.Context, searchQuery string, page int) ([]Product, error) {
	if page < 1 {
		page = 1
	}
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(productsPerPage))
	query.Set("page", strconv.Itoa(page))
	query.Set("search", searchQuery)

	var raw []rawProduct
	if err := c.getJSON(ctx, storeProductsPath, requestOptions{basicAuth: true, query: query}, &raw); err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(raw))
	for i := range raw {
		products = append(products, raw[i].project())
	}
	return products, nil
}

// GetCategories fetches all product categories, pulling the paginated
// listing concurrently.
func (c *Client) GetCategories(ctx context.Context) ([]Category, error) {
	pages := make([][]Category, categoryPages)

	g, gctx := errgroup.WithContext(ctx)
	for page := 1; page <= categoryPages; page++ {
		page := page
		g.Go(func() error {
			result, err := c.requestCategories(gctx, page)
			if err != nil {
				return err
			}
			pages[page-1] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	categories := make([]Category, 0)
	for _, page := range pages {
		categories = append(categories, page...)
	}
	return categories, nil
}

// GetCategoryIDs fetches the ids of all product categories
func (c *Client) GetCategoryIDs(ctx context.Context) ([]int64, error) {
	categories, err := c.GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(categories))
	for _, cat := range categories {
		ids = append(ids, cat.CategoryID)
	}
	return ids, nil
}

func (c *Client) requestCategories(ctx context.Context, page int) ([]Category, error) {
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(productsPerPage))
	query.Set("page", strconv.Itoa(page))

	var raw []struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Parent int64  `json:"parent"`
	}
	if err := c.getJSON(ctx, categoriesPath, requestOptions{basicAuth: true, query: query}, &raw); err != nil {
		return nil, err
	}

	categories := make([]Category, 0, len(raw))
	for _, cat := range raw {
		categories = append(categories, Category{
			CategoryID:   cat.ID,
			CategoryName: decodeURL(cat.Name),
			ParentID:     cat.Parent,
		})
	}
	return categories, nil
}
