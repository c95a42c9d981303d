package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eatcost/storefront/internal/infrastructure/auth"
	"github.com/eatcost/storefront/internal/interfaces/http/dto"
)

// Context keys set by the JWT middleware
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextJWTToken  = "jwt_token"
)

// JWTConfig holds JWT middleware configuration
type JWTConfig struct {
	Decoder   *auth.TokenDecoder
	SkipPaths []string // request paths that bypass authentication
}

// JWTAuth validates the store-issued token on the Authorization header
// and puts the user identity into the request context. The raw token
// is kept as well: upstream store calls replay it.
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.FullPath()]; ok {
			c.Next()
			return
		}

		token := extractToken(c)
		if token == "" {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Authorization token required")
			return
		}

		claims, err := cfg.Decoder.Decode(token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				abortUnauthorized(c, dto.ErrCodeTokenExpired, "Token has expired")
				return
			}
			abortUnauthorized(c, dto.ErrCodeTokenInvalid, "Invalid token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextJWTToken, token)
		c.Next()
	}
}

// GetUserID returns the authenticated user's id from the context
func GetUserID(c *gin.Context) (int64, bool) {
	value, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false
	}
	userID, ok := value.(int64)
	return userID, ok
}

// GetUserEmail returns the authenticated user's email from the context
func GetUserEmail(c *gin.Context) string {
	return c.GetString(ContextUserEmail)
}

// GetJWTToken returns the raw bearer token from the context
func GetJWTToken(c *gin.Context) string {
	return c.GetString(ContextJWTToken)
}

// extractToken reads the bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	if token, found := strings.CutPrefix(header, "Bearer "); found {
		return token
	}
	return header
}

func abortUnauthorized(c *gin.Context, code, message string) {
	requestID := c.GetString("request_id")
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, message, requestID))
}
