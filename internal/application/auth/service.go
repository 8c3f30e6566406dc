// Package auth is the gateway the HTTP layer talks to. It orchestrates
// registration, login, the email verification flow and session lifecycle,
// and emits an audit event for every attempt.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/farmhub/auth-api/internal/application/token"
	"github.com/farmhub/auth-api/internal/application/verification"
	"github.com/farmhub/auth-api/internal/audit"
	"github.com/farmhub/auth-api/internal/domain"
	"github.com/farmhub/auth-api/internal/pkg/id"
	"github.com/farmhub/auth-api/internal/pkg/validate"
)

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type recordStore interface {
	Create(ctx context.Context, v *domain.VerificationRecord) error
	Get(ctx context.Context, userID string) (*domain.VerificationRecord, error)
}

type notifier interface {
	SendOTP(user *domain.User, code string)
}

type Service interface {
	// Register creates the identity and its verification record, then issues
	// and delivers the first OTP. Delivery failures do not fail registration.
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error)
	// Login authenticates by email or username. Lookup misses and password
	// mismatches are indistinguishable to the caller.
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.TokenPair, *domain.User, error)
	VerifyEmail(ctx context.Context, req *domain.VerifyEmailRequest) error
	ResendOTP(ctx context.Context, req *domain.ResendOTPRequest) error
	Refresh(ctx context.Context, rawRefresh string) (*domain.TokenPair, *domain.User, error)
	// Logout revokes the presented refresh token. Best effort: a malformed or
	// missing token is logged and audited but never blocks the logout.
	Logout(ctx context.Context, rawRefresh string)
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
}

type service struct {
	users    userStore
	records  recordStore
	verifier verification.Service
	tokens   token.Service
	notify   notifier
	audit    audit.Recorder
	log      *slog.Logger
}

type ServiceDeps struct {
	Users    userStore
	Records  recordStore
	Verifier verification.Service
	Tokens   token.Service
	Notify   notifier
	Audit    audit.Recorder
	Log      *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:    deps.Users,
		records:  deps.Records,
		verifier: deps.Verifier,
		tokens:   deps.Tokens,
		notify:   deps.Notify,
		audit:    deps.Audit,
		log:      deps.Log,
	}
}

func (s *service) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	email := validate.NormalizeEmail(req.Email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		s.record(ctx, audit.ActionRegister, audit.ResultFailure, "", "email taken")
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if req.Username != "" {
		if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
			s.record(ctx, audit.ActionRegister, audit.ResultFailure, "", "username taken")
			return nil, fmt.Errorf("username already registered: %w", domain.ErrConflict)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = domain.DefaultRole
	}
	now := time.Now()
	user := &domain.User{
		UserID:       id.New(),
		Email:        email,
		Username:     req.Username,
		FullName:     req.FullName,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         role,
		Verified:     false,
		Enable:       1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	rec, err := s.ensureRecord(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	code, err := s.verifier.IssueOTP(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.notify.SendOTP(user, code)

	s.record(ctx, audit.ActionRegister, audit.ResultSuccess, user.UserID, "")
	s.record(ctx, audit.ActionOTPSend, audit.ResultSuccess, user.UserID, "")
	return user, nil
}

// ensureRecord creates the verification record alongside the identity. A
// pre-existing record for the same ID is reused after its verified flag is
// reset, so a leftover row can never grant a new registration a free pass.
func (s *service) ensureRecord(ctx context.Context, userID string) (*domain.VerificationRecord, error) {
	now := time.Now()
	rec := &domain.VerificationRecord{
		UserID:      userID,
		GeneratedAt: now,
		UpdatedAt:   now,
	}
	err := s.records.Create(ctx, rec)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, err
	}
	existing, err := s.records.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing.Verified = false
	return existing, nil
}

func (s *service) Login(ctx context.Context, req *domain.LoginRequest) (*domain.TokenPair, *domain.User, error) {
	user, err := s.lookup(ctx, req)
	if err != nil {
		s.record(ctx, audit.ActionLogin, audit.ResultFailure, "", "unknown identity")
		return nil, nil, fmt.Errorf("login: %w", domain.ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.record(ctx, audit.ActionLogin, audit.ResultFailure, user.UserID, "bad password")
		return nil, nil, fmt.Errorf("login: %w", domain.ErrInvalidCredentials)
	}
	if user.Enable == 0 {
		s.record(ctx, audit.ActionLogin, audit.ResultBlocked, user.UserID, "account disabled")
		return nil, nil, fmt.Errorf("login: account disabled: %w", domain.ErrForbidden)
	}
	if !user.Verified {
		s.record(ctx, audit.ActionLogin, audit.ResultBlocked, user.UserID, "email not verified")
		return nil, nil, fmt.Errorf("login: %w", domain.ErrNotVerified)
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, nil, err
	}
	s.record(ctx, audit.ActionLogin, audit.ResultSuccess, user.UserID, "")
	return pair, user, nil
}

func (s *service) lookup(ctx context.Context, req *domain.LoginRequest) (*domain.User, error) {
	if req.Email != "" {
		return s.users.GetByEmail(ctx, validate.NormalizeEmail(req.Email))
	}
	return s.users.GetByUsername(ctx, req.Username)
}

func (s *service) VerifyEmail(ctx context.Context, req *domain.VerifyEmailRequest) error {
	email := validate.NormalizeEmail(req.Email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.record(ctx, audit.ActionOTPVerify, audit.ResultFailure, "", "unknown email")
		return err
	}
	rec, err := s.records.Get(ctx, user.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.record(ctx, audit.ActionOTPVerify, audit.ResultFailure, user.UserID, "no record")
			return fmt.Errorf("verify email: %w", domain.ErrRecordNotFound)
		}
		return err
	}

	if err := s.verifier.Verify(ctx, user, rec, req.OTP); err != nil {
		switch {
		case errors.Is(err, domain.ErrOtpLockout):
			s.record(ctx, audit.ActionOTPLockout, audit.ResultBlocked, user.UserID, "attempt budget exhausted")
		case errors.Is(err, domain.ErrAlreadyVerified):
			s.record(ctx, audit.ActionOTPVerify, audit.ResultFailure, user.UserID, "already verified")
		default:
			s.record(ctx, audit.ActionOTPVerify, audit.ResultFailure, user.UserID, "")
		}
		return err
	}

	s.record(ctx, audit.ActionOTPVerify, audit.ResultSuccess, user.UserID, "")
	return nil
}

func (s *service) ResendOTP(ctx context.Context, req *domain.ResendOTPRequest) error {
	email := validate.NormalizeEmail(req.Email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.record(ctx, audit.ActionOTPResend, audit.ResultFailure, "", "unknown email")
		return err
	}
	rec, err := s.records.Get(ctx, user.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.record(ctx, audit.ActionOTPResend, audit.ResultFailure, user.UserID, "no record")
			return fmt.Errorf("resend otp: %w", domain.ErrRecordNotFound)
		}
		return err
	}

	code, err := s.verifier.IssueOTP(ctx, rec)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyVerified) {
			s.record(ctx, audit.ActionOTPResend, audit.ResultFailure, user.UserID, "already verified")
		}
		return err
	}
	s.notify.SendOTP(user, code)

	s.record(ctx, audit.ActionOTPResend, audit.ResultSuccess, user.UserID, "")
	return nil
}

func (s *service) Refresh(ctx context.Context, rawRefresh string) (*domain.TokenPair, *domain.User, error) {
	pair, user, err := s.tokens.Refresh(ctx, rawRefresh)
	if err != nil {
		s.record(ctx, audit.ActionTokenRefresh, audit.ResultFailure, "", "")
		return nil, nil, err
	}
	s.record(ctx, audit.ActionTokenRefresh, audit.ResultSuccess, user.UserID, "")
	return pair, user, nil
}

func (s *service) Logout(ctx context.Context, rawRefresh string) {
	if err := s.tokens.Revoke(ctx, rawRefresh); err != nil {
		s.log.Debug("logout revoke skipped", "err", err)
		s.record(ctx, audit.ActionLogout, audit.ResultFailure, "", "no revocable token")
		return
	}
	s.record(ctx, audit.ActionLogout, audit.ResultSuccess, "", "")
}

func (s *service) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.Get(ctx, userID)
}

func (s *service) record(ctx context.Context, action, result, userID, reason string) {
	s.audit.Record(ctx, audit.Event{
		Action:   action,
		Result:   result,
		UserID:   userID,
		SourceIP: audit.IPFromContext(ctx),
		Reason:   reason,
	})
}
