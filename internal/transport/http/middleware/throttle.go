package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/farmhub/auth-api/internal/pkg/validate"
	"github.com/farmhub/auth-api/internal/ratelimit"
)

// Throttle enforces the per-identity quota for one scope. The key is the
// normalized email from the JSON request body; requests without one pass
// through so the limiter never masks a validation error.
func Throttle(limiter *ratelimit.Limiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := emailKey(r)
			decision, err := limiter.Allow(r.Context(), scope, key)
			if err != nil {
				// Counter backend trouble must not take auth down with it.
				next.ServeHTTP(w, r)
				return
			}
			if !decision.Allowed {
				seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				writeJSONError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// emailKey reads the email field out of the body and puts the body back for
// the handler.
func emailKey(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return validate.NormalizeEmail(body.Email)
}
