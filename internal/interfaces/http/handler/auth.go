package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eatcost/storefront/internal/application/identity"
	"github.com/eatcost/storefront/internal/interfaces/http/middleware"
)

// AccountService is the account surface the handler needs
type AccountService interface {
	Register(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	Refresh(ctx context.Context, jwtToken string) (string, error)
	ResetPassword(ctx context.Context, jwtToken, newPassword string) error
}

// AuthHandler serves account registration and token lifecycle
type AuthHandler struct {
	BaseHandler
	accounts AccountService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(accounts AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// CredentialsRequest carries an email/password pair
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// ResetPasswordRequest changes the authenticated user's password
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// TokenResponse carries an issued store token
type TokenResponse struct {
	Token string `json:"token"`
}

// Register creates a store account
func (h *AuthHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	token, err := h.accounts.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, TokenResponse{Token: token})
}

// Login authenticates a store account
func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	token, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, TokenResponse{Token: token})
}

// bearerToken returns the request's store token. Auth routes bypass
// the JWT middleware, so the header is read directly.
func bearerToken(c *gin.Context) string {
	if token := middleware.GetJWTToken(c); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if token, found := strings.CutPrefix(header, "Bearer "); found {
		return token
	}
	return header
}

// Refresh exchanges a valid token for a fresh one
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		h.Unauthorized(c, "Authorization token required")
		return
	}

	fresh, err := h.accounts.Refresh(c.Request.Context(), token)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, TokenResponse{Token: fresh})
}

// ResetPassword changes the authenticated user's password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		h.Unauthorized(c, "Authorization token required")
		return
	}

	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	if err := h.accounts.ResetPassword(c.Request.Context(), token, req.NewPassword); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"message": "Password has been changed"})
}

// RegisterRoutes registers the auth routes
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.PUT("/reset-password", h.ResetPassword)
	}
}

var _ AccountService = (*identity.AuthService)(nil)
