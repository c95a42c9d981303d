package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/eatcost/storefront/internal/application/finance"
	"github.com/eatcost/storefront/internal/interfaces/http/middleware"
)

// CheckoutService is the payment surface the handler needs
type CheckoutService interface {
	CreateCheckout(ctx context.Context, userID int64, jwtToken, deliveryType string) (*finance.Checkout, error)
	BuyMembership(ctx context.Context, userID int64) (*finance.Checkout, error)
}

// CheckoutRequest selects how the order reaches the customer
type CheckoutRequest struct {
	DeliveryType string `json:"delivery_type" binding:"required,oneof=delivery pickup"`
}

// PaymentHandler serves checkout and membership payments
type PaymentHandler struct {
	BaseHandler
	payments CheckoutService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments CheckoutService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// CreateCheckout prices the user's cart and opens a payment session
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	checkout, err := h.payments.CreateCheckout(c.Request.Context(), userID, middleware.GetJWTToken(c), req.DeliveryType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, checkout)
}

// BuyMembership opens a recurring membership payment session
func (h *PaymentHandler) BuyMembership(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	checkout, err := h.payments.BuyMembership(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, checkout)
}

// RegisterRoutes registers the payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("/checkout", h.CreateCheckout)
		payments.POST("/membership", h.BuyMembership)
	}
}

var _ CheckoutService = (*finance.PaymentService)(nil)
