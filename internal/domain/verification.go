package domain

import "time"

// VerificationRecord tracks the email-ownership proof lifecycle for one
// identity. Exactly one record exists per user, created in the same
// registration step that creates the user.
//
// PK: user_id. Version is bumped on every mutation and used as the condition
// for optimistic concurrency; concurrent verify/resend calls therefore never
// lose an attempt increment.
type VerificationRecord struct {
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	OTP          string    `json:"-" dynamodbav:"otp"`                       // empty = no pending code
	OTPExpiresAt int64     `json:"otp_expires_at" dynamodbav:"otp_expires_at"` // Unix seconds, 0 = none
	AttemptCount int       `json:"attempt_count" dynamodbav:"attempt_count"`
	LastSentAt   int64     `json:"last_sent_at" dynamodbav:"last_sent_at"`
	Verified     bool      `json:"is_verified" dynamodbav:"verified"`
	Version      int64     `json:"-" dynamodbav:"version"`
	GeneratedAt  time.Time `json:"generated_at" dynamodbav:"generated_at"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// HasOTP reports whether a code is pending.
func (v *VerificationRecord) HasOTP() bool { return v.OTP != "" }

// OTPExpired reports whether the pending code is past its deadline. A record
// without an expiry is treated as expired.
func (v *VerificationRecord) OTPExpired(now time.Time) bool {
	return v.OTPExpiresAt == 0 || now.Unix() > v.OTPExpiresAt
}

// ClearOTP resets the code, deadline and attempt counter. It does not touch
// the verified flag.
func (v *VerificationRecord) ClearOTP() {
	v.OTP = ""
	v.OTPExpiresAt = 0
	v.AttemptCount = 0
}
