package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Digits is the length of every generated code.
const Digits = 6

// NewCode generates a cryptographically random 6-digit numeric code,
// zero-padded on the left.
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
