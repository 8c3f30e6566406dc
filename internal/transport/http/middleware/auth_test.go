package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtinfra "github.com/farmhub/auth-api/internal/infrastructure/jwt"
	"github.com/farmhub/auth-api/internal/transport/http/tokens"
)

func testProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return jwtinfra.NewProviderFromKeys(key, 5*time.Minute, 5*24*time.Hour)
}

func claimsEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-User-Id", claims.UserID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_AcceptsBearerHeader(t *testing.T) {
	provider := testProvider(t)
	access, err := provider.SignAccess("usr-1", "customer")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()

	Auth(provider)(claimsEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "usr-1", rec.Header().Get("X-User-Id"))
}

func TestAuth_AcceptsAccessCookie(t *testing.T) {
	provider := testProvider(t)
	access, err := provider.SignAccess("usr-2", "customer")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: access})
	rec := httptest.NewRecorder()

	Auth(provider)(claimsEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "usr-2", rec.Header().Get("X-User-Id"))
}

func TestAuth_RejectsMissingToken(t *testing.T) {
	provider := testProvider(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	rec := httptest.NewRecorder()

	Auth(provider)(claimsEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_RejectsRefreshTokenAsAccess(t *testing.T) {
	provider := testProvider(t)
	refresh, err := provider.SignRefresh("usr-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec := httptest.NewRecorder()

	Auth(provider)(claimsEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_RejectsForeignSignature(t *testing.T) {
	provider := testProvider(t)
	other := testProvider(t)
	access, err := other.SignAccess("usr-1", "customer")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()

	Auth(provider)(claimsEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
