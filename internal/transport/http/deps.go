package http

import (
	"log/slog"

	"github.com/farmhub/auth-api/internal/application/token"
	"github.com/farmhub/auth-api/internal/audit"
	"github.com/farmhub/auth-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/farmhub/auth-api/internal/infrastructure/jwt"
	"github.com/farmhub/auth-api/internal/notify"
	"github.com/farmhub/auth-api/internal/ratelimit"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	VerificationRepo *dynamo.VerificationRepo
	// Blacklist and RateStore are Redis in multi-instance deployments and
	// in-process fallbacks otherwise; the router does not care which.
	Blacklist   token.Blacklist
	RateStore   ratelimit.Store
	JWTProvider *jwtinfra.Provider
	Notifier    *notify.Dispatcher
	Audit       audit.Recorder
	Log         *slog.Logger
}
