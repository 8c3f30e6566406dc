// Package token mints, rotates and revokes the session token pair. Access
// tokens are stateless; refresh tokens carry a unique ID that the blacklist
// consumes on rotation or logout, bounding a stolen token's replay window to
// a single use.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/farmhub/auth-api/internal/domain"
	jwtinfra "github.com/farmhub/auth-api/internal/infrastructure/jwt"
)

// Blacklist is the revoked-ID set. Entries live only until the underlying
// token's natural expiry.
type Blacklist interface {
	Add(ctx context.Context, tokenID string, ttl time.Duration) error
	Contains(ctx context.Context, tokenID string) (bool, error)
}

type identityStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type signer interface {
	SignAccess(userID, role string) (string, error)
	SignRefresh(userID string) (string, error)
	VerifyRefresh(raw string) (*jwtinfra.Claims, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

type Service interface {
	// Issue mints a fresh pair bound to the user.
	Issue(user *domain.User) (*domain.TokenPair, error)
	// Refresh redeems a refresh token for a new pair. The consumed token's
	// unique ID is blacklisted (rotate-on-use) and the identity's verified
	// flag is re-checked at redemption time, not issuance time.
	Refresh(ctx context.Context, rawRefresh string) (*domain.TokenPair, *domain.User, error)
	// Revoke blacklists the token's unique ID. Malformed or absent input
	// yields domain.ErrTokenInvalid; callers treat logout as completed
	// regardless and only log the failure.
	Revoke(ctx context.Context, rawRefresh string) error
}

type service struct {
	users     identityStore
	blacklist Blacklist
	signer    signer
	rotate    bool
	log       *slog.Logger
}

type ServiceDeps struct {
	Users     identityStore
	Blacklist Blacklist
	Signer    signer
	Rotate    bool
	Log       *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:     deps.Users,
		blacklist: deps.Blacklist,
		signer:    deps.Signer,
		rotate:    deps.Rotate,
		log:       deps.Log,
	}
}

func (s *service) Issue(user *domain.User) (*domain.TokenPair, error) {
	access, err := s.signer.SignAccess(user.UserID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.signer.SignRefresh(user.UserID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    int(s.signer.AccessTTL().Seconds()),
		RefreshTTL:   int(s.signer.RefreshTTL().Seconds()),
	}, nil
}

func (s *service) Refresh(ctx context.Context, rawRefresh string) (*domain.TokenPair, *domain.User, error) {
	claims, err := s.signer.VerifyRefresh(rawRefresh)
	if err != nil {
		return nil, nil, fmt.Errorf("refresh token rejected: %w", domain.ErrTokenInvalid)
	}

	revoked, err := s.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("blacklist lookup: %w", err)
	}
	if revoked {
		return nil, nil, fmt.Errorf("refresh token already consumed: %w", domain.ErrTokenInvalid)
	}

	// Verification state can change between issuance and redemption; what
	// matters is the state now.
	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		// Only a confirmed miss invalidates the token; a store failure is
		// the store's problem, not the caller's.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("refresh for unknown identity: %w", domain.ErrTokenInvalid)
		}
		return nil, nil, fmt.Errorf("refresh identity lookup: %w", err)
	}
	if !user.Verified {
		return nil, nil, fmt.Errorf("refresh for unverified identity: %w", domain.ErrNotVerified)
	}

	if !s.rotate {
		access, err := s.signer.SignAccess(user.UserID, user.Role)
		if err != nil {
			return nil, nil, fmt.Errorf("sign access token: %w", err)
		}
		return &domain.TokenPair{
			AccessToken:  access,
			RefreshToken: rawRefresh,
			AccessTTL:    int(s.signer.AccessTTL().Seconds()),
			RefreshTTL:   int(time.Until(claims.ExpiresAt.Time).Seconds()),
		}, user, nil
	}

	if err := s.blacklist.Add(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return nil, nil, fmt.Errorf("blacklist consumed token: %w", err)
	}

	pair, err := s.Issue(user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

func (s *service) Revoke(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return fmt.Errorf("no refresh token presented: %w", domain.ErrTokenInvalid)
	}
	claims, err := s.signer.VerifyRefresh(rawRefresh)
	if err != nil {
		return fmt.Errorf("revoke of malformed token: %w", domain.ErrTokenInvalid)
	}
	if err := s.blacklist.Add(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return fmt.Errorf("blacklist revoked token: %w", err)
	}
	return nil
}
