package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eatcost/storefront/internal/application/order"
)

// OrderService is the order surface the handler needs
type OrderService interface {
	GetUserOrders(ctx context.Context, userID int64, status string, page, perPage int) (*order.OrderList, error)
}

// OrderHandler serves the authenticated user's order history
type OrderHandler struct {
	BaseHandler
	orders OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// ListOrders returns one page of the user's orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	list, err := h.orders.GetUserOrders(c.Request.Context(), userID, c.Query("status"), page, perPage)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, list.Orders, list.Count, page, perPage)
}

// RegisterRoutes registers the order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/orders", h.ListOrders)
}

var _ OrderService = (*order.Service)(nil)
