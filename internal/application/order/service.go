// Package order lists customer orders from the upstream store.
package order

import (
	"context"

	"go.uber.org/zap"

	"github.com/eatcost/storefront/internal/infrastructure/woocommerce"
)

const (
	// statusAny asks the upstream for every order regardless of state
	statusAny = "any"

	defaultPage    = 1
	defaultPerPage = 20
)

// StoreOrders is the upstream order surface the service needs
type StoreOrders interface {
	GetUserOrders(ctx context.Context, userID int64, status string, page, perPage int) ([]woocommerce.Order, error)
}

// OrderList is a page of orders with its count
type OrderList struct {
	Orders []woocommerce.Order `json:"orders"`
	Count  int                 `json:"count"`
}

// Service reads customer order history
type Service struct {
	store  StoreOrders
	logger *zap.Logger
}

// NewService creates an order service
func NewService(store StoreOrders, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// GetUserOrders returns one page of the customer's orders. Empty
// status, page and perPage fall back to their defaults.
func (s *Service) GetUserOrders(ctx context.Context, userID int64, status string, page, perPage int) (*OrderList, error) {
	if status == "" {
		status = statusAny
	}
	if page <= 0 {
		page = defaultPage
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	orders, err := s.store.GetUserOrders(ctx, userID, status, page, perPage)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []woocommerce.Order{}
	}
	return &OrderList{Orders: orders, Count: len(orders)}, nil
}
