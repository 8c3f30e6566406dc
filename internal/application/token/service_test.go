package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmhub/auth-api/internal/domain"
	jwtinfra "github.com/farmhub/auth-api/internal/infrastructure/jwt"
)

type fakeBlacklist struct {
	entries map[string]time.Duration
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{entries: map[string]time.Duration{}}
}

func (f *fakeBlacklist) Add(_ context.Context, tokenID string, ttl time.Duration) error {
	f.entries[tokenID] = ttl
	return nil
}

func (f *fakeBlacklist) Contains(_ context.Context, tokenID string) (bool, error) {
	_, ok := f.entries[tokenID]
	return ok, nil
}

type fakeIdentityStore struct {
	users map[string]*domain.User
	err   error
}

func (f *fakeIdentityStore) Get(_ context.Context, userID string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func newTestSigner(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return jwtinfra.NewProviderFromKeys(key, 5*time.Minute, 5*24*time.Hour)
}

func newTestService(t *testing.T, users *fakeIdentityStore, bl *fakeBlacklist, rotate bool) (Service, *jwtinfra.Provider) {
	t.Helper()
	signer := newTestSigner(t)
	svc := NewService(ServiceDeps{
		Users:     users,
		Blacklist: bl,
		Signer:    signer,
		Rotate:    rotate,
		Log:       slog.Default(),
	})
	return svc, signer
}

func verifiedUser() *domain.User {
	return &domain.User{UserID: "usr-1", Email: "ana@example.com", Role: domain.RoleCustomer, Verified: true}
}

func TestIssue_ReturnsPairWithTTLs(t *testing.T) {
	svc, signer := newTestService(t, &fakeIdentityStore{}, newFakeBlacklist(), true)

	pair, err := svc.Issue(verifiedUser())
	require.NoError(t, err)

	assert.Equal(t, 300, pair.AccessTTL)
	assert.Equal(t, 5*24*3600, pair.RefreshTTL)

	access, err := signer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", access.UserID)
	assert.Equal(t, domain.RoleCustomer, access.Role)

	refresh, err := signer.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", refresh.UserID)
	assert.NotEmpty(t, refresh.ID)
}

func TestRefresh_RotatesAndBlacklistsConsumedToken(t *testing.T) {
	user := verifiedUser()
	users := &fakeIdentityStore{users: map[string]*domain.User{user.UserID: user}}
	bl := newFakeBlacklist()
	svc, signer := newTestService(t, users, bl, true)

	pair, err := svc.Issue(user)
	require.NoError(t, err)

	next, got, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.UserID, got.UserID)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	claims, err := signer.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	revoked, err := bl.Contains(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	// Replaying the consumed token must fail.
	_, _, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefresh_WithoutRotationKeepsRefreshToken(t *testing.T) {
	user := verifiedUser()
	users := &fakeIdentityStore{users: map[string]*domain.User{user.UserID: user}}
	bl := newFakeBlacklist()
	svc, _ := newTestService(t, users, bl, false)

	pair, err := svc.Issue(user)
	require.NoError(t, err)

	next, _, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, next.RefreshToken)
	assert.Empty(t, bl.entries)

	// The same token keeps working until its natural expiry.
	_, _, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_RejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t, &fakeIdentityStore{}, newFakeBlacklist(), true)

	_, _, err := svc.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefresh_RejectsAccessTokenInRefreshSlot(t *testing.T) {
	user := verifiedUser()
	users := &fakeIdentityStore{users: map[string]*domain.User{user.UserID: user}}
	svc, _ := newTestService(t, users, newFakeBlacklist(), true)

	pair, err := svc.Issue(user)
	require.NoError(t, err)

	_, _, err = svc.Refresh(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefresh_UnknownUser(t *testing.T) {
	user := verifiedUser()
	svc, _ := newTestService(t, &fakeIdentityStore{users: map[string]*domain.User{}}, newFakeBlacklist(), true)

	pair, err := svc.Issue(user)
	require.NoError(t, err)

	_, _, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

// A failing identity store must not masquerade as a bad token; the caller
// needs to tell "re-authenticate" apart from "try again later".
func TestRefresh_IdentityStoreFailure_NotTokenInvalid(t *testing.T) {
	user := verifiedUser()
	users := &fakeIdentityStore{users: map[string]*domain.User{user.UserID: user}}
	svc, _ := newTestService(t, users, newFakeBlacklist(), true)

	pair, err := svc.Issue(user)
	require.NoError(t, err)

	users.err = errors.New("dynamodb: connection reset")
	_, _, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrTokenInvalid)
	assert.NotErrorIs(t, err, domain.ErrNotVerified)
}

func TestRefresh_UnverifiedUser(t *testing.T) {
	user := verifiedUser()
	user.Verified = false
	users := &fakeIdentityStore{users: map[string]*domain.User{user.UserID: user}}
	svc, _ := newTestService(t, users, newFakeBlacklist(), true)

	pair, err := svc.Issue(user)
	require.NoError(t, err)

	_, _, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrNotVerified)
}

func TestRevoke_BlacklistsToken(t *testing.T) {
	user := verifiedUser()
	users := &fakeIdentityStore{users: map[string]*domain.User{user.UserID: user}}
	bl := newFakeBlacklist()
	svc, signer := newTestService(t, users, bl, true)

	pair, err := svc.Issue(user)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), pair.RefreshToken))

	claims, err := signer.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	revoked, err := bl.Contains(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, _, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRevoke_MalformedToken(t *testing.T) {
	svc, _ := newTestService(t, &fakeIdentityStore{}, newFakeBlacklist(), true)

	assert.ErrorIs(t, svc.Revoke(context.Background(), ""), domain.ErrTokenInvalid)
	assert.ErrorIs(t, svc.Revoke(context.Background(), "junk"), domain.ErrTokenInvalid)
}
