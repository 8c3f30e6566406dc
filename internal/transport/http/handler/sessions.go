package handler

import (
	"errors"
	"net/http"

	"github.com/farmhub/auth-api/internal/application/auth"
	"github.com/farmhub/auth-api/internal/domain"
	"github.com/farmhub/auth-api/internal/transport/http/middleware"
	"github.com/farmhub/auth-api/internal/transport/http/tokens"
)

// SessionHandler handles the token lifecycle endpoints.
type SessionHandler struct {
	svc     auth.Service
	adapter tokens.Adapter
}

func NewSessionHandler(svc auth.Service, adapter tokens.Adapter) *SessionHandler {
	return &SessionHandler{svc: svc, adapter: adapter}
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := h.adapter.ExtractRefresh(r)
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "Refresh token missing")
		return
	}

	pair, _, err := h.svc.Refresh(r.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotVerified):
			writeError(w, http.StatusForbidden, "Email not verified")
		case errors.Is(err, domain.ErrTokenInvalid):
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		default:
			// Backend failure, not a bad token.
			writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		}
		return
	}

	resp := AuthEnvelope{Message: "Token refreshed"}
	if body := h.adapter.Attach(w, pair); body != nil {
		resp.AccessToken = body.AccessToken
		resp.RefreshToken = body.RefreshToken
		resp.ExpiresIn = body.AccessTTL
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout revokes the presented refresh token and clears transport state.
// Cookies are cleared even when no revocable token was presented, so a
// client with a half-broken session can always log out.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.svc.Logout(r.Context(), h.adapter.ExtractRefresh(r))
	h.adapter.Clear(w)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Logged out successfully"})
}

func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.svc.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not load user")
		return
	}
	// Tokens are only minted for verified users, but the flag can be
	// flipped administratively after issuance.
	if !user.Verified {
		writeError(w, http.StatusForbidden, "Email not verified")
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{User: user})
}
