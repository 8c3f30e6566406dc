package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmhub/auth-api/internal/audit"
	"github.com/farmhub/auth-api/internal/config"
	"github.com/farmhub/auth-api/internal/infrastructure/memory"
	"github.com/farmhub/auth-api/internal/ratelimit"
)

func resendLimiter(limit int) *ratelimit.Limiter {
	return ratelimit.New(memory.NewWindowCounter(), config.RateLimits{
		ResendOTP: config.RateLimit{Limit: limit, Window: time.Minute},
	})
}

func resendRequest(email string) *http.Request {
	body, _ := json.Marshal(map[string]string{"email": email})
	return httptest.NewRequest(http.MethodPost, "/v1/resend-otp", bytes.NewReader(body))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestThrottle_EnforcesBudgetPerEmail(t *testing.T) {
	mw := Throttle(resendLimiter(3), ratelimit.ScopeResendOTP)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, resendRequest("ana@example.com"))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, resendRequest("ana@example.com"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different mailbox still has its own budget.
	rec = httptest.NewRecorder()
	mw.ServeHTTP(rec, resendRequest("bea@example.com"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestThrottle_NormalizesEmailKey(t *testing.T) {
	mw := Throttle(resendLimiter(1), ratelimit.ScopeResendOTP)(okHandler())

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, resendRequest("ana@example.com"))
	require.Equal(t, http.StatusOK, rec.Code)

	// Case and whitespace variants hit the same bucket.
	rec = httptest.NewRecorder()
	mw.ServeHTTP(rec, resendRequest("  Ana@Example.COM "))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestThrottle_PassesBodyThrough(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seen = string(raw)
		w.WriteHeader(http.StatusOK)
	})

	mw := Throttle(resendLimiter(5), ratelimit.ScopeResendOTP)(next)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, resendRequest("ana@example.com"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"email":"ana@example.com"}`, seen)
}

func TestThrottle_MissingEmailPassesThrough(t *testing.T) {
	mw := Throttle(resendLimiter(1), ratelimit.ScopeResendOTP)(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/resend-otp", bytes.NewBufferString("not json"))
		mw.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestSourceIP_InjectsClientAddress(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = audit.IPFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/login", nil)
	req.RemoteAddr = "10.0.0.7:41234"
	rec := httptest.NewRecorder()

	SourceIP(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10.0.0.7", got)
}
