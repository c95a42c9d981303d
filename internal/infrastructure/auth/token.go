// Package auth validates tokens issued by the store's JWT login plugin.
// The service never mints tokens itself; it only verifies the shared
// HS256 signature and extracts the WordPress user identity.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Token validation errors
var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrExpiredToken = errors.New("auth: token has expired")
	ErrMissingUser  = errors.New("auth: token has no user id")
)

// StoreClaims is the payload of a token issued by the store.
// The plugin puts the WordPress user id in the "id" claim.
type StoreClaims struct {
	UserID int64  `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenDecoder validates store-issued HS256 tokens
type TokenDecoder struct {
	secret []byte
}

// NewTokenDecoder creates a decoder with the shared store secret
func NewTokenDecoder(secret string) *TokenDecoder {
	return &TokenDecoder{secret: []byte(secret)}
}

// Decode verifies the token signature and expiry and returns its claims
func (d *TokenDecoder) Decode(tokenString string) (*StoreClaims, error) {
	claims := &StoreClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return d.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 {
		return nil, ErrMissingUser
	}

	return claims, nil
}
