package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eatcost/storefront/internal/application/cart"
	"github.com/eatcost/storefront/internal/infrastructure/woocommerce"
	"github.com/eatcost/storefront/internal/interfaces/http/middleware"
)

// editTimeout bounds the detached edit-item call
const editTimeout = 30 * time.Second

// CartManager is the cart surface the handler needs
type CartManager interface {
	GetCart(ctx context.Context, userID int64, jwtToken string) (*woocommerce.Cart, error)
	AddItem(ctx context.Context, userID int64, jwtToken string, productID int64, quantity int) (*woocommerce.CartMutationResult, error)
	UpdateItem(ctx context.Context, userID int64, jwtToken, itemKey string, quantity int) (*woocommerce.CartMutationResult, error)
	RemoveItem(ctx context.Context, userID int64, jwtToken, itemKey string) (*woocommerce.CartMutationResult, error)
}

// CartHandler serves the authenticated user's cart
type CartHandler struct {
	BaseHandler
	carts  CartManager
	logger *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts CartManager, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

// AddItemRequest adds a product to the cart
type AddItemRequest struct {
	ProductID int64 `json:"id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gte=1"`
}

// EditItemRequest changes the quantity of a cart line
type EditItemRequest struct {
	Key      string `json:"key" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gte=1"`
}

// RemoveItemRequest deletes a cart line
type RemoveItemRequest struct {
	Key string `json:"key" binding:"required"`
}

// GetCart returns the user's cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	userCart, err := h.carts.GetCart(c.Request.Context(), userID, middleware.GetJWTToken(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, userCart)
}

// AddItem puts a product into the cart
func (h *CartHandler) AddItem(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.carts.AddItem(c.Request.Context(), userID, middleware.GetJWTToken(c), req.ProductID, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// EditItem changes a cart line quantity. The upstream write runs
// detached; the response does not wait for it.
func (h *CartHandler) EditItem(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req EditItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	jwtToken := middleware.GetJWTToken(c)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), editTimeout)
		defer cancel()
		if _, err := h.carts.UpdateItem(ctx, userID, jwtToken, req.Key, req.Quantity); err != nil {
			h.logger.Warn("detached cart edit failed",
				zap.Int64("user_id", userID), zap.String("key", req.Key), zap.Error(err))
		}
	}()

	h.Accepted(c, gin.H{"message": "Item update scheduled"})
}

// RemoveItem deletes a cart line
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req RemoveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.carts.RemoveItem(c.Request.Context(), userID, middleware.GetJWTToken(c), req.Key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RegisterRoutes registers the cart routes
func (h *CartHandler) RegisterRoutes(rg *gin.RouterGroup) {
	carts := rg.Group("/cart")
	{
		carts.GET("", h.GetCart)
		carts.POST("/add-item", h.AddItem)
		carts.POST("/edit-item", h.EditItem)
		carts.POST("/remove-item", h.RemoveItem)
	}
}

var _ CartManager = (*cart.Service)(nil)
