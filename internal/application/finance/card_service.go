// Package finance drives checkout, card binding and payment
// confirmation against the acquiring gateway.
package finance

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/eatcost/storefront/internal/infrastructure/payment"
)

// CardGateway is the card-binding surface of the acquiring gateway
type CardGateway interface {
	AddCard(ctx context.Context, customerKey string) (string, error)
	RemoveCard(ctx context.Context, customerKey, cardID string) (*payment.CardRemoval, error)
	GetCardList(ctx context.Context, customerKey string) ([]payment.Card, error)
	AddCustomer(ctx context.Context, customerKey string) (string, error)
}

// CardService manages the customer's bound cards
type CardService struct {
	gateway CardGateway
	logger  *zap.Logger
}

// NewCardService creates a card service
func NewCardService(gateway CardGateway, logger *zap.Logger) *CardService {
	return &CardService{gateway: gateway, logger: logger}
}

// GetCards lists the customer's active cards
func (s *CardService) GetCards(ctx context.Context, userID int64) ([]payment.Card, error) {
	return s.gateway.GetCardList(ctx, customerKey(userID))
}

// AddCard starts a card-binding session and returns its payment page URL
func (s *CardService) AddCard(ctx context.Context, userID int64) (string, error) {
	return s.gateway.AddCard(ctx, customerKey(userID))
}

// RemoveCard unbinds one of the customer's cards
func (s *CardService) RemoveCard(ctx context.Context, userID int64, cardID string) (*payment.CardRemoval, error) {
	return s.gateway.RemoveCard(ctx, customerKey(userID), cardID)
}

// EnrollCustomer registers the customer with the gateway
func (s *CardService) EnrollCustomer(ctx context.Context, userID int64) error {
	_, err := s.gateway.AddCustomer(ctx, customerKey(userID))
	return err
}

// customerKey is the gateway identity of a store user
func customerKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
