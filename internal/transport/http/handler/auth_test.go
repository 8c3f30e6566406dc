package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/farmhub/auth-api/internal/config"
	"github.com/farmhub/auth-api/internal/domain"
	"github.com/farmhub/auth-api/internal/transport/http/tokens"
)

// --- mock ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) Login(ctx context.Context, req *domain.LoginRequest) (*domain.TokenPair, *domain.User, error) {
	args := m.Called(ctx, req)
	pair, _ := args.Get(0).(*domain.TokenPair)
	user, _ := args.Get(1).(*domain.User)
	return pair, user, args.Error(2)
}

func (m *mockAuthSvc) VerifyEmail(ctx context.Context, req *domain.VerifyEmailRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockAuthSvc) ResendOTP(ctx context.Context, req *domain.ResendOTPRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockAuthSvc) Refresh(ctx context.Context, raw string) (*domain.TokenPair, *domain.User, error) {
	args := m.Called(ctx, raw)
	pair, _ := args.Get(0).(*domain.TokenPair)
	user, _ := args.Get(1).(*domain.User)
	return pair, user, args.Error(2)
}

func (m *mockAuthSvc) Logout(ctx context.Context, raw string) {
	m.Called(ctx, raw)
}

func (m *mockAuthSvc) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func postJSON(t *testing.T, h http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func samplePair() *domain.TokenPair {
	return &domain.TokenPair{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-xyz",
		AccessTTL:    300,
		RefreshTTL:   432000,
	}
}

func sampleUser() *domain.User {
	return &domain.User{UserID: "usr-1", Email: "ana@example.com", Username: "ana", Role: domain.RoleCustomer, Verified: true}
}

// --- register ---

func TestRegister_Created(t *testing.T) {
	svc := new(mockAuthSvc)
	h := NewAuthHandler(svc, tokens.NewBearerAdapter())

	user := sampleUser()
	svc.On("Register", mock.Anything, mock.AnythingOfType("*domain.RegisterRequest")).Return(user, nil)

	rec := postJSON(t, h.Register, "/v1/register", map[string]string{
		"email":            "ana@example.com",
		"username":         "ana",
		"password":         "s3cret-password",
		"password_confirm": "s3cret-password",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	out := decodeEnvelope(t, rec)
	assert.Equal(t, "Registration successful. Please verify your email.", out["message"])
	svc.AssertExpectations(t)
}

func TestRegister_ValidationFailure(t *testing.T) {
	svc := new(mockAuthSvc)
	h := NewAuthHandler(svc, tokens.NewBearerAdapter())

	rec := postJSON(t, h.Register, "/v1/register", map[string]string{
		"email":            "not-an-email",
		"password":         "s3cret-password",
		"password_confirm": "mismatch-password",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Register")
}

func TestRegister_Conflict(t *testing.T) {
	svc := new(mockAuthSvc)
	h := NewAuthHandler(svc, tokens.NewBearerAdapter())

	svc.On("Register", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("email already registered: %w", domain.ErrConflict))

	rec := postJSON(t, h.Register, "/v1/register", map[string]string{
		"email":            "ana@example.com",
		"password":         "s3cret-password",
		"password_confirm": "s3cret-password",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

// --- login ---

func TestLogin_BearerTransport(t *testing.T) {
	svc := new(mockAuthSvc)
	h := NewAuthHandler(svc, tokens.NewBearerAdapter())

	svc.On("Login", mock.Anything, mock.Anything).Return(samplePair(), sampleUser(), nil)

	rec := postJSON(t, h.Login, "/v1/login", map[string]string{
		"email":    "ana@example.com",
		"password": "s3cret-password",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeEnvelope(t, rec)
	assert.Equal(t, "Login successful", out["message"])
	assert.Equal(t, "access-abc", out["access_token"])
	assert.Equal(t, "refresh-xyz", out["refresh_token"])
	assert.EqualValues(t, 300, out["expires_in"])
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogin_CookieTransport(t *testing.T) {
	svc := new(mockAuthSvc)
	h := NewAuthHandler(svc, tokens.NewCookieAdapter(config.CookieConfig{SameSite: "lax", Path: "/"}))

	svc.On("Login", mock.Anything, mock.Anything).Return(samplePair(), sampleUser(), nil)

	rec := postJSON(t, h.Login, "/v1/login", map[string]string{
		"email":    "ana@example.com",
		"password": "s3cret-password",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeEnvelope(t, rec)
	assert.Equal(t, "Login successful", out["message"])
	assert.NotContains(t, out, "access_token")
	assert.NotContains(t, out, "refresh_token")
	assert.Len(t, rec.Result().Cookies(), 2)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := new(mockAuthSvc)
	h := NewAuthHandler(svc, tokens.NewBearerAdapter())

	svc.On("Login", mock.Anything, mock.Anything).
		Return(nil, nil, fmt.Errorf("login: %w", domain.ErrInvalidCredentials))

	rec := postJSON(t, h.Login, "/v1/login", map[string]string{
		"email":    "ana@example.com",
		"password": "wrong-password",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeEnvelope(t, rec)["error"])
}

func TestLogin_NotVerified(t *testing.T) {
	svc := new(mockAuthSvc)
	h := NewAuthHandler(svc, tokens.NewBearerAdapter())

	svc.On("Login", mock.Anything, mock.Anything).
		Return(nil, nil, fmt.Errorf("login: %w", domain.ErrNotVerified))

	rec := postJSON(t, h.Login, "/v1/login", map[string]string{
		"email":    "ana@example.com",
		"password": "s3cret-password",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Email not verified", decodeEnvelope(t, rec)["error"])
}

func TestLogin_MissingIdentifier(t *testing.T) {
	svc := new(mockAuthSvc)
	h := NewAuthHandler(svc, tokens.NewBearerAdapter())

	rec := postJSON(t, h.Login, "/v1/login", map[string]string{"password": "s3cret-password"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Login")
}

// --- verify-email ---

func TestVerifyEmail_MessageMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		message string
	}{
		{"expired", domain.ErrOtpExpired, "OTP expired. Please request a new OTP."},
		{"lockout", domain.ErrOtpLockout, "OTP invalidated. Please request a new OTP."},
		{"invalid", domain.ErrOtpInvalid, "Invalid OTP."},
		{"already verified", domain.ErrAlreadyVerified, "Email already verified."},
		{"unknown user", domain.ErrNotFound, "Invalid email or user not found."},
		{"no record", domain.ErrRecordNotFound, "Verification record not found."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mockAuthSvc)
			h := NewAuthHandler(svc, tokens.NewBearerAdapter())
			svc.On("VerifyEmail", mock.Anything, mock.Anything).
				Return(fmt.Errorf("verify email: %w", tc.err))

			rec := postJSON(t, h.VerifyEmail, "/v1/verify-email", map[string]string{
				"email": "ana@example.com",
				"otp":   "123456",
			})

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.message, decodeEnvelope(t, rec)["error"])
		})
	}
}

func TestVerifyEmail_Success(t *testing.T) {
	svc := new(mockAuthSvc)
	h := NewAuthHandler(svc, tokens.NewBearerAdapter())
	svc.On("VerifyEmail", mock.Anything, mock.Anything).Return(nil)

	rec := postJSON(t, h.VerifyEmail, "/v1/verify-email", map[string]string{
		"email": "ana@example.com",
		"otp":   "123456",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email verified successfully", decodeEnvelope(t, rec)["message"])
}

func TestVerifyEmail_RejectsMalformedOTP(t *testing.T) {
	svc := new(mockAuthSvc)
	h := NewAuthHandler(svc, tokens.NewBearerAdapter())

	rec := postJSON(t, h.VerifyEmail, "/v1/verify-email", map[string]string{
		"email": "ana@example.com",
		"otp":   "12ab56",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "VerifyEmail")
}

// --- resend-otp ---

func TestResendOTP_Success(t *testing.T) {
	svc := new(mockAuthSvc)
	h := NewAuthHandler(svc, tokens.NewBearerAdapter())
	svc.On("ResendOTP", mock.Anything, mock.Anything).Return(nil)

	rec := postJSON(t, h.ResendOTP, "/v1/resend-otp", map[string]string{"email": "ana@example.com"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OTP resent successfully", decodeEnvelope(t, rec)["message"])
}

func TestResendOTP_UnknownEmail(t *testing.T) {
	svc := new(mockAuthSvc)
	h := NewAuthHandler(svc, tokens.NewBearerAdapter())
	svc.On("ResendOTP", mock.Anything, mock.Anything).
		Return(fmt.Errorf("resend: %w", domain.ErrNotFound))

	rec := postJSON(t, h.ResendOTP, "/v1/resend-otp", map[string]string{"email": "ghost@example.com"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid email.", decodeEnvelope(t, rec)["error"])
}

func TestResendOTP_AlreadyVerified(t *testing.T) {
	svc := new(mockAuthSvc)
	h := NewAuthHandler(svc, tokens.NewBearerAdapter())
	svc.On("ResendOTP", mock.Anything, mock.Anything).
		Return(fmt.Errorf("resend: %w", domain.ErrAlreadyVerified))

	rec := postJSON(t, h.ResendOTP, "/v1/resend-otp", map[string]string{"email": "ana@example.com"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already verified.", decodeEnvelope(t, rec)["error"])
}
