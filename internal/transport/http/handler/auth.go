package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/farmhub/auth-api/internal/application/auth"
	"github.com/farmhub/auth-api/internal/domain"
	"github.com/farmhub/auth-api/internal/pkg/validate"
	"github.com/farmhub/auth-api/internal/transport/http/tokens"
)

// AuthHandler handles registration and the email verification flow.
type AuthHandler struct {
	svc     auth.Service
	adapter tokens.Adapter
}

func NewAuthHandler(svc auth.Service, adapter tokens.Adapter) *AuthHandler {
	return &AuthHandler{svc: svc, adapter: adapter}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.svc.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			writeError(w, http.StatusConflict, "A user with that email or username already exists.")
			return
		}
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, AuthEnvelope{
		Message: "Registration successful. Please verify your email.",
		User:    user,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" && req.Username == "" {
		writeError(w, http.StatusBadRequest, "email or username required")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pair, user, err := h.svc.Login(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotVerified):
			writeError(w, http.StatusForbidden, "Email not verified")
		case errors.Is(err, domain.ErrForbidden):
			writeError(w, http.StatusForbidden, "Account disabled")
		default:
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
		}
		return
	}

	resp := AuthEnvelope{Message: "Login successful", User: user}
	if body := h.adapter.Attach(w, pair); body != nil {
		resp.AccessToken = body.AccessToken
		resp.RefreshToken = body.RefreshToken
		resp.ExpiresIn = body.AccessTTL
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.VerifyEmail(r.Context(), &req); err != nil {
		writeError(w, http.StatusBadRequest, verifyErrorMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Email verified successfully"})
}

func verifyErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		return "Verification record not found."
	case errors.Is(err, domain.ErrNotFound):
		return "Invalid email or user not found."
	case errors.Is(err, domain.ErrAlreadyVerified):
		return "Email already verified."
	case errors.Is(err, domain.ErrOtpExpired):
		return "OTP expired. Please request a new OTP."
	case errors.Is(err, domain.ErrOtpLockout):
		return "OTP invalidated. Please request a new OTP."
	case errors.Is(err, domain.ErrOtpInvalid):
		return "Invalid OTP."
	default:
		return "verification failed"
	}
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.ResendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.ResendOTP(r.Context(), &req); err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			writeError(w, http.StatusBadRequest, "Verification record not found.")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusBadRequest, "Invalid email.")
		case errors.Is(err, domain.ErrAlreadyVerified):
			writeError(w, http.StatusBadRequest, "Email already verified.")
		default:
			writeError(w, http.StatusInternalServerError, "could not resend OTP")
		}
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "OTP resent successfully"})
}
