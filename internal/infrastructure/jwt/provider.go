package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/farmhub/auth-api/internal/config"
	"github.com/farmhub/auth-api/internal/pkg/id"
	"github.com/golang-jwt/jwt/v5"
)

// Token use discriminators. A refresh token presented where an access token
// is expected (or vice versa) fails verification.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// Claims holds the JWT payload fields shared by both token kinds. Refresh
// tokens additionally carry a unique ID in the registered jti claim; rotation
// and revocation blacklist that ID.
type Claims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role,omitempty"`
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 access and refresh tokens.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Provider{
		privateKey: privKey,
		publicKey:  pubKey,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

// NewProviderFromKeys builds a provider from in-memory keys. Used by tests.
func NewProviderFromKeys(priv *rsa.PrivateKey, accessTTL, refreshTTL time.Duration) *Provider {
	return &Provider{
		privateKey: priv,
		publicKey:  &priv.PublicKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (p *Provider) AccessTTL() time.Duration  { return p.accessTTL }
func (p *Provider) RefreshTTL() time.Duration { return p.refreshTTL }

// SignAccess mints a short-lived access token bound to the user.
func (p *Provider) SignAccess(userID, role string) (string, error) {
	return p.sign(Claims{
		UserID:   userID,
		Role:     role,
		TokenUse: UseAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(p.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

// SignRefresh mints a refresh token carrying a fresh unique ID (jti).
func (p *Provider) SignRefresh(userID string) (string, error) {
	return p.sign(Claims{
		UserID:   userID,
		TokenUse: UseRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.New(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(p.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

func (p *Provider) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

// VerifyAccess parses and validates an access token.
func (p *Provider) VerifyAccess(tokenStr string) (*Claims, error) {
	return p.verify(tokenStr, UseAccess)
}

// VerifyRefresh parses and validates a refresh token. The caller still has to
// consult the blacklist before honoring the jti.
func (p *Provider) VerifyRefresh(tokenStr string) (*Claims, error) {
	return p.verify(tokenStr, UseRefresh)
}

func (p *Provider) verify(tokenStr, use string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.TokenUse != use {
		return nil, fmt.Errorf("token is not a %s token", use)
	}
	return claims, nil
}
