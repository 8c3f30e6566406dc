// Package audit emits the auth event trail. Every gateway action records an
// (action, result, user_id, source_ip) event; the default recorder writes
// structured log lines, which downstream log shipping turns into the audit
// feed. Recording is observability, not a correctness dependency.
package audit

import (
	"context"
	"log/slog"
)

// Results attached to audit events.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultBlocked = "blocked"
)

// Actions recorded by the auth gateway.
const (
	ActionRegister     = "register"
	ActionOTPSend      = "otp_send"
	ActionOTPVerify    = "otp_verify"
	ActionOTPLockout   = "otp_lockout"
	ActionOTPResend    = "otp_resend"
	ActionLogin        = "login"
	ActionTokenRefresh = "token_refresh"
	ActionLogout       = "logout"
)

// Event is one audit record. UserID may be empty when the actor could not be
// resolved (unknown email, malformed token).
type Event struct {
	Action   string
	Result   string
	UserID   string
	SourceIP string
	Reason   string
}

// Recorder receives audit events. Implementations must be safe for
// concurrent use and must not block request handling.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// SlogRecorder writes audit events through a structured logger.
type SlogRecorder struct {
	log *slog.Logger
}

func NewSlogRecorder(log *slog.Logger) *SlogRecorder {
	return &SlogRecorder{log: log}
}

func (r *SlogRecorder) Record(_ context.Context, e Event) {
	attrs := []any{
		"action", e.Action,
		"result", e.Result,
	}
	if e.UserID != "" {
		attrs = append(attrs, "user_id", e.UserID)
	}
	if e.SourceIP != "" {
		attrs = append(attrs, "source_ip", e.SourceIP)
	}
	if e.Reason != "" {
		attrs = append(attrs, "reason", e.Reason)
	}
	r.log.Info("auth_event", attrs...)
}

// Nop discards events. Used in tests.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}

type ctxKey struct{}

// ContextWithIP stores the request's remote IP for audit events recorded
// deeper in the call chain.
func ContextWithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKey{}, ip)
}

// IPFromContext returns the remote IP recorded by the HTTP layer, or "".
func IPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(ctxKey{}).(string)
	return ip
}
