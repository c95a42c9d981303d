// Package identity covers store account management: registration,
// login, token refresh, password reset and customer profiles.
package identity

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/eatcost/storefront/internal/domain/shared"
	"github.com/eatcost/storefront/internal/infrastructure/auth"
)

// enrollTimeout bounds the background payment-customer enrollment
const enrollTimeout = 15 * time.Second

// StoreAccounts is the upstream account surface the service needs
type StoreAccounts interface {
	RegisterUser(ctx context.Context, email, password string) (string, error)
	LoginUser(ctx context.Context, email, password string) (string, error)
	RefreshToken(ctx context.Context, jwtToken string) (string, error)
	ResetPassword(ctx context.Context, jwtToken, email, newPassword string) (bool, error)
}

// CustomerEnroller registers a customer with the payment gateway
type CustomerEnroller interface {
	AddCustomer(ctx context.Context, customerKey string) (string, error)
}

// AuthService handles account registration and token lifecycle
type AuthService struct {
	store    StoreAccounts
	enroller CustomerEnroller
	decoder  *auth.TokenDecoder
	logger   *zap.Logger
}

// NewAuthService creates an auth service
func NewAuthService(store StoreAccounts, enroller CustomerEnroller, decoder *auth.TokenDecoder, logger *zap.Logger) *AuthService {
	return &AuthService{store: store, enroller: enroller, decoder: decoder, logger: logger}
}

// Register creates a store account and enrolls the new customer with
// the payment gateway in the background. Enrollment failures are
// logged, never surfaced: the account already exists.
func (s *AuthService) Register(ctx context.Context, email, password string) (string, error) {
	token, err := s.store.RegisterUser(ctx, email, password)
	if err != nil {
		return "", err
	}

	claims, err := s.decoder.Decode(token)
	if err != nil {
		s.logger.Warn("issued registration token did not decode", zap.String("email", email), zap.Error(err))
		return token, nil
	}

	go func(userID int64) {
		enrollCtx, cancel := context.WithTimeout(context.Background(), enrollTimeout)
		defer cancel()
		if _, err := s.enroller.AddCustomer(enrollCtx, strconv.FormatInt(userID, 10)); err != nil {
			s.logger.Warn("payment customer enrollment failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}(claims.UserID)

	return token, nil
}

// Login authenticates a store account and returns its JWT
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	return s.store.LoginUser(ctx, email, password)
}

// Refresh exchanges a valid JWT for a fresh one
func (s *AuthService) Refresh(ctx context.Context, jwtToken string) (string, error) {
	return s.store.RefreshToken(ctx, jwtToken)
}

// ResetPassword changes the account password for the token's owner
func (s *AuthService) ResetPassword(ctx context.Context, jwtToken, newPassword string) error {
	claims, err := s.decoder.Decode(jwtToken)
	if err != nil {
		return err
	}

	changed, err := s.store.ResetPassword(ctx, jwtToken, claims.Email, newPassword)
	if err != nil {
		return err
	}
	if !changed {
		return shared.NewDomainError("PASSWORD_RESET_FAILED", "password was not changed")
	}
	return nil
}
