package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/farmhub/auth-api/internal/audit"
)

// SourceIP stores the client address in the request context so audit events
// downstream carry it.
func SourceIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.ContextWithIP(r.Context(), realIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// realIP resolves the client address, preferring proxy headers over the
// socket peer: X-Forwarded-For (first hop), then X-Real-Ip, then RemoteAddr.
func realIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if rip := r.Header.Get("X-Real-Ip"); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
