package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eatcost/storefront/internal/application/search"
	"github.com/eatcost/storefront/internal/infrastructure/woocommerce"
)

type MockCatalogReader struct {
	mock.Mock
}

func (m *MockCatalogReader) GetAllProducts(ctx context.Context) ([]woocommerce.CategoryProducts, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]woocommerce.CategoryProducts), args.Error(1)
}

func (m *MockCatalogReader) GetProductsByCategory(ctx context.Context, categoryID string) ([]woocommerce.CategoryProducts, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]woocommerce.CategoryProducts), args.Error(1)
}

func (m *MockCatalogReader) GetCategories(ctx context.Context) ([]woocommerce.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]woocommerce.Category), args.Error(1)
}

type MockProductSearcher struct {
	mock.Mock
}

func (m *MockProductSearcher) SearchProducts(ctx context.Context, query string) (*search.SearchResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.SearchResult), args.Error(1)
}

func (m *MockProductSearcher) Autocomplete(ctx context.Context, query string) (*search.AutocompleteResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.AutocompleteResult), args.Error(1)
}

func TestProductHandler_ListProducts(t *testing.T) {
	catalogSvc := new(MockCatalogReader)
	searchSvc := new(MockProductSearcher)
	router := newTestRouter(NewProductHandler(catalogSvc, searchSvc), false)

	groups := []woocommerce.CategoryProducts{
		{CategoryName: "Супы", Items: []woocommerce.Product{{ID: 1, Name: "Борщ"}}},
	}
	catalogSvc.On("GetAllProducts", mock.Anything).Return(groups, nil)

	recorder := performRequest(t, router, http.MethodGet, "/api/v1/products", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	resp := decodeResponse(t, recorder)
	assert.True(t, resp.Success)

	var got []woocommerce.CategoryProducts
	dataAs(t, resp, &got)
	assert.Equal(t, groups, got)
	catalogSvc.AssertExpectations(t)
}

func TestProductHandler_ListProductsByCategory(t *testing.T) {
	catalogSvc := new(MockCatalogReader)
	searchSvc := new(MockProductSearcher)
	router := newTestRouter(NewProductHandler(catalogSvc, searchSvc), false)

	groups := []woocommerce.CategoryProducts{{CategoryName: "Десерты"}}
	catalogSvc.On("GetProductsByCategory", mock.Anything, "15").Return(groups, nil)

	recorder := performRequest(t, router, http.MethodGet, "/api/v1/products?category_id=15", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	catalogSvc.AssertNotCalled(t, "GetAllProducts", mock.Anything)
	catalogSvc.AssertExpectations(t)
}

func TestProductHandler_ListProducts_UpstreamDown(t *testing.T) {
	catalogSvc := new(MockCatalogReader)
	searchSvc := new(MockProductSearcher)
	router := newTestRouter(NewProductHandler(catalogSvc, searchSvc), false)

	catalogSvc.On("GetAllProducts", mock.Anything).Return(nil, errors.New("connection refused"))

	recorder := performRequest(t, router, http.MethodGet, "/api/v1/products", nil)

	require.Equal(t, http.StatusBadGateway, recorder.Code)
	assert.Equal(t, "ERR_UPSTREAM", errorCode(t, recorder))
}

func TestProductHandler_ListCategories(t *testing.T) {
	catalogSvc := new(MockCatalogReader)
	searchSvc := new(MockProductSearcher)
	router := newTestRouter(NewProductHandler(catalogSvc, searchSvc), false)

	categories := []woocommerce.Category{
		{CategoryID: 10, CategoryName: "Меню", ParentID: 0},
		{CategoryID: 11, CategoryName: "Супы", ParentID: 10},
		{CategoryID: 12, CategoryName: "Десерты", ParentID: 10},
		{CategoryID: 20, CategoryName: "Напитки", ParentID: 0},
	}
	catalogSvc.On("GetCategories", mock.Anything).Return(categories, nil)

	recorder := performRequest(t, router, http.MethodGet, "/api/v1/products/category", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var got []woocommerce.Category
	dataAs(t, decodeResponse(t, recorder), &got)
	assert.Len(t, got, 4)
}

func TestProductHandler_ListCategories_FilterByParent(t *testing.T) {
	catalogSvc := new(MockCatalogReader)
	searchSvc := new(MockProductSearcher)
	router := newTestRouter(NewProductHandler(catalogSvc, searchSvc), false)

	categories := []woocommerce.Category{
		{CategoryID: 11, CategoryName: "Супы", ParentID: 10},
		{CategoryID: 12, CategoryName: "Десерты", ParentID: 10},
		{CategoryID: 20, CategoryName: "Напитки", ParentID: 0},
	}
	catalogSvc.On("GetCategories", mock.Anything).Return(categories, nil)

	recorder := performRequest(t, router, http.MethodGet, "/api/v1/products/category?parent_category_id=10", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var got []woocommerce.Category
	dataAs(t, decodeResponse(t, recorder), &got)
	require.Len(t, got, 2)
	assert.Equal(t, int64(11), got[0].CategoryID)
	assert.Equal(t, int64(12), got[1].CategoryID)
}

func TestProductHandler_ListCategories_BadParent(t *testing.T) {
	catalogSvc := new(MockCatalogReader)
	searchSvc := new(MockProductSearcher)
	router := newTestRouter(NewProductHandler(catalogSvc, searchSvc), false)

	catalogSvc.On("GetCategories", mock.Anything).Return([]woocommerce.Category{}, nil)

	recorder := performRequest(t, router, http.MethodGet, "/api/v1/products/category?parent_category_id=soup", nil)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "ERR_BAD_REQUEST", errorCode(t, recorder))
}

func TestProductHandler_SearchProducts(t *testing.T) {
	catalogSvc := new(MockCatalogReader)
	searchSvc := new(MockProductSearcher)
	router := newTestRouter(NewProductHandler(catalogSvc, searchSvc), false)

	result := &search.SearchResult{
		Query:   "борщ",
		Count:   1,
		Results: []woocommerce.Product{{ID: 1, Name: "Борщ"}},
	}
	searchSvc.On("SearchProducts", mock.Anything, "борщ").Return(result, nil)

	recorder := performRequest(t, router, http.MethodGet, "/api/v1/products/search?query=борщ", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var got search.SearchResult
	dataAs(t, decodeResponse(t, recorder), &got)
	assert.Equal(t, 1, got.Count)
	searchSvc.AssertExpectations(t)
}

func TestProductHandler_SearchProducts_MissingQuery(t *testing.T) {
	catalogSvc := new(MockCatalogReader)
	searchSvc := new(MockProductSearcher)
	router := newTestRouter(NewProductHandler(catalogSvc, searchSvc), false)

	recorder := performRequest(t, router, http.MethodGet, "/api/v1/products/search", nil)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	searchSvc.AssertNotCalled(t, "SearchProducts", mock.Anything, mock.Anything)
}

func TestProductHandler_Autocomplete(t *testing.T) {
	catalogSvc := new(MockCatalogReader)
	searchSvc := new(MockProductSearcher)
	router := newTestRouter(NewProductHandler(catalogSvc, searchSvc), false)

	result := &search.AutocompleteResult{
		Suggestions: []search.Suggestion{{Text: "борщ украинский"}},
		Query:       "бор",
		Mode:        "full",
		Prefix:      "бор",
	}
	searchSvc.On("Autocomplete", mock.Anything, "бор").Return(result, nil)

	recorder := performRequest(t, router, http.MethodGet, "/api/v1/products/search-autocomplete?query=бор", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var got search.AutocompleteResult
	dataAs(t, decodeResponse(t, recorder), &got)
	assert.Equal(t, "full", got.Mode)
	require.Len(t, got.Suggestions, 1)
}
