package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Auth-core error kinds. Handlers match these with errors.Is and translate
// them to the stable client-facing messages.
var (
	// ErrAlreadyVerified: the identity's email is already confirmed.
	ErrAlreadyVerified = errors.New("email already verified")
	// ErrOtpExpired: the pending OTP passed its deadline and was invalidated.
	ErrOtpExpired = errors.New("otp expired")
	// ErrOtpInvalid: submitted code did not match; the attempt was recorded.
	ErrOtpInvalid = errors.New("invalid otp")
	// ErrOtpLockout: too many wrong codes; the OTP was cleared and a resend
	// is required.
	ErrOtpLockout = errors.New("otp locked out")
	// ErrRecordNotFound: an identity exists without its verification record.
	// This is a data-integrity failure, never "not yet registered".
	ErrRecordNotFound = errors.New("verification record not found")
	// ErrInvalidCredentials covers both unknown identity and wrong password
	// so login responses do not leak which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotVerified: credentials were correct but the email is unconfirmed.
	ErrNotVerified = errors.New("email not verified")
	// ErrTokenInvalid: malformed, expired, replayed or revoked token.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrRateLimited: the per-identity request budget for a scope is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrVersionConflict: an optimistic write lost the race; callers re-read
	// and retry the mutation.
	ErrVersionConflict = errors.New("version conflict")
)
