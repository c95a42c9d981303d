package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/eatcost/storefront/internal/application/address"
)

// AddressDirectory is the address surface the handler needs
type AddressDirectory interface {
	Suggest(ctx context.Context, query string) ([]string, error)
	CheckDelivery(ctx context.Context, query string) ([]address.DeliveryType, error)
}

// AddressHandler serves delivery address lookups
type AddressHandler struct {
	BaseHandler
	addresses AddressDirectory
}

// NewAddressHandler creates a new AddressHandler
func NewAddressHandler(addresses AddressDirectory) *AddressHandler {
	return &AddressHandler{addresses: addresses}
}

// Autocomplete suggests delivery addresses for a partial query
func (h *AddressHandler) Autocomplete(c *gin.Context) {
	suggestions, err := h.addresses.Suggest(c.Request.Context(), c.Query("query"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, suggestions)
}

// CheckDelivery reports the delivery options at an address
func (h *AddressHandler) CheckDelivery(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		h.BadRequest(c, "query parameter is required")
		return
	}

	options, err := h.addresses.CheckDelivery(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, options)
}

// RegisterRoutes registers the address routes
func (h *AddressHandler) RegisterRoutes(rg *gin.RouterGroup) {
	addresses := rg.Group("/address")
	{
		addresses.GET("/address-autocomplete", h.Autocomplete)
		addresses.GET("/address-check", h.CheckDelivery)
	}
}

var _ AddressDirectory = (*address.Service)(nil)
