package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eatcost/storefront/internal/domain/shared"
	"github.com/eatcost/storefront/internal/infrastructure/woocommerce"
)

type MockCartManager struct {
	mock.Mock
	updated chan struct{}
}

func (m *MockCartManager) GetCart(ctx context.Context, userID int64, jwtToken string) (*woocommerce.Cart, error) {
	args := m.Called(ctx, userID, jwtToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*woocommerce.Cart), args.Error(1)
}

func (m *MockCartManager) AddItem(ctx context.Context, userID int64, jwtToken string, productID int64, quantity int) (*woocommerce.CartMutationResult, error) {
	args := m.Called(ctx, userID, jwtToken, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*woocommerce.CartMutationResult), args.Error(1)
}

func (m *MockCartManager) UpdateItem(ctx context.Context, userID int64, jwtToken, itemKey string, quantity int) (*woocommerce.CartMutationResult, error) {
	args := m.Called(ctx, userID, jwtToken, itemKey, quantity)
	if m.updated != nil {
		close(m.updated)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*woocommerce.CartMutationResult), args.Error(1)
}

func (m *MockCartManager) RemoveItem(ctx context.Context, userID int64, jwtToken, itemKey string) (*woocommerce.CartMutationResult, error) {
	args := m.Called(ctx, userID, jwtToken, itemKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*woocommerce.CartMutationResult), args.Error(1)
}

func TestCartHandler_GetCart(t *testing.T) {
	carts := new(MockCartManager)
	router := newTestRouter(NewCartHandler(carts, zap.NewNop()), true)

	userCart := &woocommerce.Cart{Items: []woocommerce.CartItem{{Key: "abc", Quantity: 2}}}
	carts.On("GetCart", mock.Anything, testUserID, testToken).Return(userCart, nil)

	recorder := performRequest(t, router, http.MethodGet, "/api/v1/cart", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	var got woocommerce.Cart
	dataAs(t, decodeResponse(t, recorder), &got)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "abc", got.Items[0].Key)
	carts.AssertExpectations(t)
}

func TestCartHandler_GetCart_Unauthenticated(t *testing.T) {
	carts := new(MockCartManager)
	router := newTestRouter(NewCartHandler(carts, zap.NewNop()), false)

	recorder := performRequest(t, router, http.MethodGet, "/api/v1/cart", nil)

	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "ERR_UNAUTHORIZED", errorCode(t, recorder))
	carts.AssertNotCalled(t, "GetCart", mock.Anything, mock.Anything, mock.Anything)
}

func TestCartHandler_AddItem(t *testing.T) {
	carts := new(MockCartManager)
	router := newTestRouter(NewCartHandler(carts, zap.NewNop()), true)

	result := &woocommerce.CartMutationResult{Status: 201}
	carts.On("AddItem", mock.Anything, testUserID, testToken, int64(101), 2).Return(result, nil)

	recorder := performRequest(t, router, http.MethodPost, "/api/v1/cart/add-item",
		AddItemRequest{ProductID: 101, Quantity: 2})

	require.Equal(t, http.StatusOK, recorder.Code)
	carts.AssertExpectations(t)
}

func TestCartHandler_AddItem_Validation(t *testing.T) {
	carts := new(MockCartManager)
	router := newTestRouter(NewCartHandler(carts, zap.NewNop()), true)

	recorder := performRequest(t, router, http.MethodPost, "/api/v1/cart/add-item",
		map[string]any{"id": 0, "quantity": 0})

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "ERR_VALIDATION", errorCode(t, recorder))
	carts.AssertNotCalled(t, "AddItem",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCartHandler_AddItem_SessionLost(t *testing.T) {
	carts := new(MockCartManager)
	router := newTestRouter(NewCartHandler(carts, zap.NewNop()), true)

	carts.On("AddItem", mock.Anything, testUserID, testToken, int64(101), 1).
		Return(nil, shared.ErrCartTokenMissing)

	recorder := performRequest(t, router, http.MethodPost, "/api/v1/cart/add-item",
		AddItemRequest{ProductID: 101, Quantity: 1})

	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Equal(t, "ERR_CART_SESSION", errorCode(t, recorder))
}

func TestCartHandler_EditItem_Detached(t *testing.T) {
	carts := &MockCartManager{updated: make(chan struct{})}
	router := newTestRouter(NewCartHandler(carts, zap.NewNop()), true)

	result := &woocommerce.CartMutationResult{Status: 200}
	carts.On("UpdateItem", mock.Anything, testUserID, testToken, "abc", 3).Return(result, nil)

	recorder := performRequest(t, router, http.MethodPost, "/api/v1/cart/edit-item",
		EditItemRequest{Key: "abc", Quantity: 3})

	require.Equal(t, http.StatusAccepted, recorder.Code)

	select {
	case <-carts.updated:
	case <-time.After(time.Second):
		t.Fatal("detached update never ran")
	}
	carts.AssertExpectations(t)
}

func TestCartHandler_RemoveItem(t *testing.T) {
	carts := new(MockCartManager)
	router := newTestRouter(NewCartHandler(carts, zap.NewNop()), true)

	result := &woocommerce.CartMutationResult{Status: 200}
	carts.On("RemoveItem", mock.Anything, testUserID, testToken, "abc").Return(result, nil)

	recorder := performRequest(t, router, http.MethodPost, "/api/v1/cart/remove-item",
		RemoveItemRequest{Key: "abc"})

	require.Equal(t, http.StatusOK, recorder.Code)
	carts.AssertExpectations(t)
}
