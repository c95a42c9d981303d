package order

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eatcost/storefront/internal/infrastructure/woocommerce"
)

// MockStoreOrders is a mock implementation of StoreOrders
type MockStoreOrders struct {
	mock.Mock
}

func (m *MockStoreOrders) GetUserOrders(ctx context.Context, userID int64, status string, page, perPage int) ([]woocommerce.Order, error) {
	args := m.Called(ctx, userID, status, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]woocommerce.Order), args.Error(1)
}

func TestService_GetUserOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("applies defaults for status and paging", func(t *testing.T) {
		store := new(MockStoreOrders)
		svc := NewService(store, zap.NewNop())

		store.On("GetUserOrders", mock.Anything, int64(42), "any", 1, 20).
			Return([]woocommerce.Order{{ID: 1, Status: "completed"}}, nil).Once()

		list, err := svc.GetUserOrders(ctx, 42, "", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, list.Count)
		assert.Equal(t, "completed", list.Orders[0].Status)
		store.AssertExpectations(t)
	})

	t.Run("passes an explicit status filter through", func(t *testing.T) {
		store := new(MockStoreOrders)
		svc := NewService(store, zap.NewNop())

		store.On("GetUserOrders", mock.Anything, int64(42), "refunded", 2, 5).
			Return([]woocommerce.Order{}, nil).Once()

		list, err := svc.GetUserOrders(ctx, 42, "refunded", 2, 5)
		require.NoError(t, err)
		assert.Zero(t, list.Count)
		assert.NotNil(t, list.Orders)
	})

	t.Run("propagates upstream failures", func(t *testing.T) {
		store := new(MockStoreOrders)
		svc := NewService(store, zap.NewNop())

		store.On("GetUserOrders", mock.Anything, int64(42), "any", 1, 20).
			Return(nil, errors.New("store down"))

		_, err := svc.GetUserOrders(ctx, 42, "", 1, 20)
		assert.Error(t, err)
	})
}
