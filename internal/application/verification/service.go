// Package verification owns the OTP lifecycle for one identity: issue,
// verify, invalidate. The record moves between three observable states:
// no pending code, code pending, verified, with lockout reported as its own
// failure even though storage cannot distinguish it from "no pending code".
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/farmhub/auth-api/internal/domain"
	"github.com/farmhub/auth-api/internal/pkg/otp"
)

// casRetries bounds how often a mutation is replayed after losing an
// optimistic-concurrency race before the conflict is surfaced.
const casRetries = 3

type recordStore interface {
	Get(ctx context.Context, userID string) (*domain.VerificationRecord, error)
	Save(ctx context.Context, v *domain.VerificationRecord) error
}

type identityStore interface {
	MarkVerified(ctx context.Context, userID string) error
}

type Service interface {
	// IssueOTP generates and stores a fresh code, superseding any pending
	// one, and returns it for delivery. Fails with domain.ErrAlreadyVerified
	// on a verified record.
	IssueOTP(ctx context.Context, rec *domain.VerificationRecord) (string, error)
	// Verify checks a submitted code against the pending OTP, enforcing
	// expiry and the attempt budget. On success the record and the identity
	// both carry verified=true.
	Verify(ctx context.Context, user *domain.User, rec *domain.VerificationRecord, submitted string) error
	// Invalidate clears any pending code and attempt count. Idempotent; the
	// verified flag is untouched.
	Invalidate(ctx context.Context, rec *domain.VerificationRecord) error
}

type service struct {
	records     recordStore
	users       identityStore
	otpTTL      time.Duration
	maxAttempts int
	log         *slog.Logger
}

type ServiceDeps struct {
	Records     recordStore
	Users       identityStore
	OTPTTL      time.Duration
	MaxAttempts int
	Log         *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	return &service{
		records:     deps.Records,
		users:       deps.Users,
		otpTTL:      deps.OTPTTL,
		maxAttempts: deps.MaxAttempts,
		log:         deps.Log,
	}
}

func (s *service) IssueOTP(ctx context.Context, rec *domain.VerificationRecord) (string, error) {
	var code string
	err := s.mutate(ctx, rec, func(r *domain.VerificationRecord) error {
		if r.Verified {
			return fmt.Errorf("issue otp: %w", domain.ErrAlreadyVerified)
		}
		c, err := otp.NewCode()
		if err != nil {
			return err
		}
		now := time.Now()
		r.OTP = c
		r.OTPExpiresAt = now.Add(s.otpTTL).Unix()
		r.AttemptCount = 0
		r.LastSentAt = now.Unix()
		code = c
		return nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

func (s *service) Verify(ctx context.Context, user *domain.User, rec *domain.VerificationRecord, submitted string) error {
	return s.mutate(ctx, rec, func(r *domain.VerificationRecord) error {
		switch {
		case r.Verified || user.Verified:
			return fmt.Errorf("verify: %w", domain.ErrAlreadyVerified)

		case !r.HasOTP() || r.OTPExpired(time.Now()):
			r.ClearOTP()
			return afterSave(fmt.Errorf("verify: %w", domain.ErrOtpExpired))

		case r.AttemptCount >= s.maxAttempts:
			r.ClearOTP()
			return afterSave(fmt.Errorf("verify: %w", domain.ErrOtpLockout))

		case submitted != r.OTP:
			r.AttemptCount++
			if r.AttemptCount >= s.maxAttempts {
				r.ClearOTP()
				return afterSave(fmt.Errorf("verify: %w", domain.ErrOtpLockout))
			}
			return afterSave(fmt.Errorf("verify: %w", domain.ErrOtpInvalid))

		default:
			r.Verified = true
			r.ClearOTP()
			return nil
		}
	}, func() error {
		// Propagate onto the identity only after the record write won its race.
		return s.users.MarkVerified(ctx, user.UserID)
	})
}

func (s *service) Invalidate(ctx context.Context, rec *domain.VerificationRecord) error {
	return s.mutate(ctx, rec, func(r *domain.VerificationRecord) error {
		r.ClearOTP()
		return nil
	})
}

// saveAndFail wraps domain failures that still require the mutated record to
// be written (expiry and lockout clear the OTP as a side effect).
type saveAndFail struct{ err error }

func (e saveAndFail) Error() string { return e.err.Error() }
func (e saveAndFail) Unwrap() error { return e.err }

func afterSave(err error) error { return saveAndFail{err: err} }

// mutate applies fn to the record and writes it back under optimistic
// concurrency. When the write loses a race the record is re-read and fn is
// replayed against fresh state, so concurrent verify/resend calls never lose
// an attempt increment. onSuccess hooks run once, after a clean save.
func (s *service) mutate(ctx context.Context, rec *domain.VerificationRecord, fn func(*domain.VerificationRecord) error, onSuccess ...func() error) error {
	for attempt := 0; ; attempt++ {
		var deferred error
		err := fn(rec)
		if err != nil {
			var sf saveAndFail
			if !errors.As(err, &sf) {
				return err
			}
			deferred = sf.err
		}

		saveErr := s.records.Save(ctx, rec)
		if saveErr == nil {
			if deferred != nil {
				return deferred
			}
			for _, hook := range onSuccess {
				if err := hook(); err != nil {
					return err
				}
			}
			return nil
		}
		if !errors.Is(saveErr, domain.ErrVersionConflict) {
			return saveErr
		}
		if attempt+1 >= casRetries {
			return saveErr
		}

		fresh, getErr := s.records.Get(ctx, rec.UserID)
		if getErr != nil {
			return getErr
		}
		*rec = *fresh
		s.log.Debug("verification record raced, retrying", "user_id", rec.UserID, "attempt", attempt+1)
	}
}
