package models

import "time"

// TokenPurpose distinguishes the out-of-band flows a token may prove.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// OutOfBandToken is the stored form of a single-use secret delivered by
// email. Only the SHA-256 hex digest of the secret is persisted; the raw
// secret is handed to the caller exactly once at issue time.
type OutOfBandToken struct {
	ID        string
	AccountID string
	TokenHash string
	Purpose   TokenPurpose
	ExpiresAt time.Time
	CreatedAt time.Time
}
