// Package models defines the persistent entities of the identity service.
package models

import "time"

// Account is a registered identity. Email is stored normalized (trimmed,
// lowercased) and is unique. PasswordHash is a bcrypt digest; the plaintext
// password never leaves the service layer.
type Account struct {
	ID              string
	FirstName       string
	LastName        string
	Email           string
	PasswordHash    string
	IsEmailVerified bool
	IsAdmin         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
