package identity

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eatcost/storefront/internal/infrastructure/woocommerce"
)

// StoreProfiles is the upstream profile surface the service needs
type StoreProfiles interface {
	GetUserData(ctx context.Context, userID int64) (*woocommerce.UserProfile, error)
	GetUserMembership(ctx context.Context, userID int64) (*woocommerce.Membership, error)
	GetUserMembershipQR(ctx context.Context, jwtToken string) (*woocommerce.MembershipQR, error)
}

// Profile combines the customer record with their membership
type Profile struct {
	Email      string                  `json:"email"`
	FirstName  string                  `json:"first_name"`
	LastName   string                  `json:"last_name"`
	Address    string                  `json:"address"`
	Membership *woocommerce.Membership `json:"membership"`
}

// UserService reads customer profiles and memberships
type UserService struct {
	store  StoreProfiles
	logger *zap.Logger
}

// NewUserService creates a user service
func NewUserService(store StoreProfiles, logger *zap.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

// GetProfile fetches the customer record and membership concurrently
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	var (
		data       *woocommerce.UserProfile
		membership *woocommerce.Membership
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = s.store.GetUserData(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		membership, err = s.store.GetUserMembership(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Profile{
		Email:      data.Email,
		FirstName:  data.FirstName,
		LastName:   data.LastName,
		Address:    data.Address,
		Membership: membership,
	}, nil
}

// GetMembership fetches the customer's membership
func (s *UserService) GetMembership(ctx context.Context, userID int64) (*woocommerce.Membership, error) {
	return s.store.GetUserMembership(ctx, userID)
}

// GetMembershipQR fetches a short-lived membership QR pass
func (s *UserService) GetMembershipQR(ctx context.Context, jwtToken string) (*woocommerce.MembershipQR, error) {
	return s.store.GetUserMembershipQR(ctx, jwtToken)
}
