package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/eatcost/storefront/internal/application/identity"
	"github.com/eatcost/storefront/internal/infrastructure/woocommerce"
	"github.com/eatcost/storefront/internal/interfaces/http/middleware"
)

// ProfileService is the profile surface the handler needs
type ProfileService interface {
	GetProfile(ctx context.Context, userID int64) (*identity.Profile, error)
	GetMembership(ctx context.Context, userID int64) (*woocommerce.Membership, error)
	GetMembershipQR(ctx context.Context, jwtToken string) (*woocommerce.MembershipQR, error)
}

// UserHandler serves the authenticated user's profile
type UserHandler struct {
	BaseHandler
	users ProfileService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users ProfileService) *UserHandler {
	return &UserHandler{users: users}
}

// GetProfile returns the customer record with their membership
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	profile, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profile)
}

// GetMembership returns the customer's membership
func (h *UserHandler) GetMembership(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	membership, err := h.users.GetMembership(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, membership)
}

// GetMembershipQR returns a short-lived membership QR pass
func (h *UserHandler) GetMembershipQR(c *gin.Context) {
	qr, err := h.users.GetMembershipQR(c.Request.Context(), middleware.GetJWTToken(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, qr)
}

// RegisterRoutes registers the user routes
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	{
		users.GET("/profile", h.GetProfile)
		users.GET("/membership", h.GetMembership)
		users.GET("/membership_qr", h.GetMembershipQR)
	}
}

var _ ProfileService = (*identity.UserService)(nil)
