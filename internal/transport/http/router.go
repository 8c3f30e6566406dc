package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/farmhub/auth-api/internal/application/auth"
	"github.com/farmhub/auth-api/internal/application/token"
	"github.com/farmhub/auth-api/internal/application/verification"
	"github.com/farmhub/auth-api/internal/config"
	"github.com/farmhub/auth-api/internal/ratelimit"
	"github.com/farmhub/auth-api/internal/transport/http/handler"
	appmiddleware "github.com/farmhub/auth-api/internal/transport/http/middleware"
	"github.com/farmhub/auth-api/internal/transport/http/tokens"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.SourceIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		// Cookie transport needs credentialed CORS.
		AllowCredentials: cfg.TokenTransport == config.TransportCookie,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, a blunt per-IP guard in front of the
	// per-email quotas.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	limiter := ratelimit.New(deps.RateStore, cfg.RateLimits)

	var adapter tokens.Adapter
	if cfg.TokenTransport == config.TransportCookie {
		adapter = tokens.NewCookieAdapter(cfg.Cookie)
	} else {
		adapter = tokens.NewBearerAdapter()
	}

	verifySvc := verification.NewService(verification.ServiceDeps{
		Records:     deps.VerificationRepo,
		Users:       deps.UserRepo,
		OTPTTL:      cfg.OTPTTL,
		MaxAttempts: cfg.OTPMaxAttempts,
		Log:         deps.Log,
	})
	tokenSvc := token.NewService(token.ServiceDeps{
		Users:     deps.UserRepo,
		Blacklist: deps.Blacklist,
		Signer:    deps.JWTProvider,
		Rotate:    cfg.RotateRefresh,
		Log:       deps.Log,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		Users:    deps.UserRepo,
		Records:  deps.VerificationRepo,
		Verifier: verifySvc,
		Tokens:   tokenSvc,
		Notify:   deps.Notifier,
		Audit:    deps.Audit,
		Log:      deps.Log,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc, adapter)
	sessionH := handler.NewSessionHandler(authSvc, adapter)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/register", authH.Register)
		r.With(sensitiveRL.Limit, appmiddleware.Throttle(limiter, ratelimit.ScopeLogin)).
			Post("/login", authH.Login)
		r.With(appmiddleware.Throttle(limiter, ratelimit.ScopeVerifyOTP)).
			Post("/verify-email", authH.VerifyEmail)
		r.With(appmiddleware.Throttle(limiter, ratelimit.ScopeResendOTP)).
			Post("/resend-otp", authH.ResendOTP)
		r.Post("/refresh", sessionH.Refresh)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.JWTProvider))

			r.Get("/me", sessionH.Me)
			r.Post("/logout", sessionH.Logout)
		})
	})

	return r
}
