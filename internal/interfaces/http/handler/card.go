package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/eatcost/storefront/internal/application/finance"
	"github.com/eatcost/storefront/internal/infrastructure/payment"
)

// CardManager is the card surface the handler needs
type CardManager interface {
	GetCards(ctx context.Context, userID int64) ([]payment.Card, error)
	AddCard(ctx context.Context, userID int64) (string, error)
	RemoveCard(ctx context.Context, userID int64, cardID string) (*payment.CardRemoval, error)
}

// CardHandler serves the user's bound payment cards
type CardHandler struct {
	BaseHandler
	cards CardManager
}

// NewCardHandler creates a new CardHandler
func NewCardHandler(cards CardManager) *CardHandler {
	return &CardHandler{cards: cards}
}

// ListCards lists the user's active cards
func (h *CardHandler) ListCards(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	cards, err := h.cards.GetCards(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cards)
}

// AddCard starts a card-binding session
func (h *CardHandler) AddCard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	bindURL, err := h.cards.AddCard(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, gin.H{"payment_url": bindURL})
}

// RemoveCard unbinds a card
func (h *CardHandler) RemoveCard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	cardID := c.Param("id")
	if cardID == "" {
		h.BadRequest(c, "card id is required")
		return
	}

	removal, err := h.cards.RemoveCard(c.Request.Context(), userID, cardID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, removal)
}

// RegisterRoutes registers the card routes
func (h *CardHandler) RegisterRoutes(rg *gin.RouterGroup) {
	cards := rg.Group("/cards")
	{
		cards.GET("", h.ListCards)
		cards.POST("", h.AddCard)
		cards.DELETE("/:id", h.RemoveCard)
	}
}

var _ CardManager = (*finance.CardService)(nil)
