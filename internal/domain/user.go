package domain

import "time"

// User is the identity owned by the Identity Store. The auth core reads it
// and writes only the verified flag.
type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	// Username backs the username-index GSI hash key; it must be omitted
	// when empty or DynamoDB rejects the item.
	Username     string    `json:"username,omitempty" dynamodbav:"username,omitempty"`
	FullName     string    `json:"full_name,omitempty" dynamodbav:"full_name"`
	Phone        *string   `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	Role         string    `json:"role" dynamodbav:"role"`
	Verified     bool      `json:"is_verified" dynamodbav:"verified"`
	Enable       int       `json:"enable" dynamodbav:"enable"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Username        string `json:"username" validate:"omitempty,min=3,max=150"`
	FullName        string `json:"full_name" validate:"omitempty,max=255"`
	Phone           *string `json:"phone" validate:"omitempty,e164"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"omitempty,oneof=customer farmer vendor logistics"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Username string `json:"username"`
	Password string `json:"password" validate:"required"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}
