// Package cart manages the user's shopping cart through the upstream
// Store API, with short-lived Redis caching of cart contents and the
// upstream cart session token.
package cart

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eatcost/storefront/internal/domain/shared"
	"github.com/eatcost/storefront/internal/infrastructure/cache"
	"github.com/eatcost/storefront/internal/infrastructure/woocommerce"
)

const (
	cartKeyFormat      = "cart:%d"
	cartTokenKeyFormat = "cart_token:%d"

	// mutationAttempts covers transient upstream hiccups; a 409 answer
	// means the cart already holds the requested state and stops the
	// retries.
	mutationAttempts = 3
)

// StoreCart is the upstream cart surface the service needs
type StoreCart interface {
	GetUserCart(ctx context.Context, jwtToken string) (*woocommerce.Cart, string, error)
	AddItemToCart(ctx context.Context, cartToken string, productID int64, quantity int) (*woocommerce.CartMutationResult, error)
	UpdateItemInCart(ctx context.Context, cartToken, itemKey string, quantity int) (*woocommerce.CartMutationResult, error)
	RemoveItemFromCart(ctx context.Context, cartToken, itemKey string) (*woocommerce.CartMutationResult, error)
}

// Service caches and mutates user carts
type Service struct {
	store    StoreCart
	cache    *cache.Cache
	cartTTL  time.Duration
	tokenTTL time.Duration
	logger   *zap.Logger

	retryPause time.Duration
}

// NewService creates a cart service on the compressed cache
func NewService(store StoreCart, c *cache.Cache, cartTTL, tokenTTL time.Duration, logger *zap.Logger) *Service {
	if cartTTL <= 0 {
		cartTTL = 5 * time.Minute
	}
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &Service{
		store:      store,
		cache:      c,
		cartTTL:    cartTTL,
		tokenTTL:   tokenTTL,
		logger:     logger,
		retryPause: time.Second,
	}
}

// GetCart returns the user's cart, refreshing the cached copy and the
// cart session token from the upstream when needed.
func (s *Service) GetCart(ctx context.Context, userID int64, jwtToken string) (*woocommerce.Cart, error) {
	cartKey := fmt.Sprintf(cartKeyFormat, userID)

	var cached woocommerce.Cart
	if err := s.cache.Get(ctx, cartKey, &cached); err == nil {
		return &cached, nil
	}

	userCart, cartToken, err := s.store.GetUserCart(ctx, jwtToken)
	if err != nil {
		return nil, err
	}

	if len(userCart.Items) > 0 {
		if err := s.cache.Set(ctx, cartKey, userCart, s.cartTTL); err != nil {
			s.logger.Warn("cart cache write failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	if cartToken != "" {
		tokenKey := fmt.Sprintf(cartTokenKeyFormat, userID)
		if err := s.cache.Set(ctx, tokenKey, cartToken, s.tokenTTL); err != nil {
			s.logger.Warn("cart token cache write failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return userCart, nil
}

// AddItem puts a product into the user's cart
func (s *Service) AddItem(ctx context.Context, userID int64, jwtToken string, productID int64, quantity int) (*woocommerce.CartMutationResult, error) {
	return s.mutate(ctx, userID, jwtToken, func(ctx context.Context, cartToken string) (*woocommerce.CartMutationResult, error) {
		return s.store.AddItemToCart(ctx, cartToken, productID, quantity)
	})
}

// UpdateItem changes the quantity of a cart line
func (s *Service) UpdateItem(ctx context.Context, userID int64, jwtToken, itemKey string, quantity int) (*woocommerce.CartMutationResult, error) {
	return s.mutate(ctx, userID, jwtToken, func(ctx context.Context, cartToken string) (*woocommerce.CartMutationResult, error) {
		return s.store.UpdateItemInCart(ctx, cartToken, itemKey, quantity)
	})
}

// RemoveItem deletes a cart line
func (s *Service) RemoveItem(ctx context.Context, userID int64, jwtToken, itemKey string) (*woocommerce.CartMutationResult, error) {
	return s.mutate(ctx, userID, jwtToken, func(ctx context.Context, cartToken string) (*woocommerce.CartMutationResult, error) {
		return s.store.RemoveItemFromCart(ctx, cartToken, itemKey)
	})
}

// mutate resolves the cart session token, applies the mutation with
// retries and drops the cached cart so the next read is fresh.
func (s *Service) mutate(ctx context.Context, userID int64, jwtToken string, op func(ctx context.Context, cartToken string) (*woocommerce.CartMutationResult, error)) (*woocommerce.CartMutationResult, error) {
	cartToken, err := s.cartToken(ctx, userID, jwtToken)
	if err != nil {
		return nil, err
	}

	var result *woocommerce.CartMutationResult
	for attempt := 0; attempt < mutationAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.retryPause):
			}
		}

		result, err = op(ctx, cartToken)
		if err != nil {
			return nil, err
		}
		if result.Applied() {
			if delErr := s.cache.Delete(ctx, fmt.Sprintf(cartKeyFormat, userID)); delErr != nil {
				s.logger.Warn("cart cache invalidation failed", zap.Int64("user_id", userID), zap.Error(delErr))
			}
			return result, nil
		}
	}
	return result, nil
}

// cartToken returns the cached upstream session token, pulling the
// cart a few times to obtain one when the cache is cold.
func (s *Service) cartToken(ctx context.Context, userID int64, jwtToken string) (string, error) {
	tokenKey := fmt.Sprintf(cartTokenKeyFormat, userID)

	var token string
	if err := s.cache.Get(ctx, tokenKey, &token); err == nil && token != "" {
		return token, nil
	}

	for attempt := 0; attempt < mutationAttempts; attempt++ {
		if _, err := s.GetCart(ctx, userID, jwtToken); err != nil {
			s.logger.Warn("cart refresh for token failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		if err := s.cache.Get(ctx, tokenKey, &token); err == nil && token != "" {
			return token, nil
		}
	}
	return "", shared.ErrCartTokenMissing
}
