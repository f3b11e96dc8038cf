// Package oobtokens declares the repository contract for single-use
// out-of-band tokens (email verification, password reset).
package oobtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository defines operations for issuing and consuming out-of-band tokens.
// Only SHA-256 hex digests of token secrets ever reach this layer.
type Repository interface {
	// Create stores a new token digest for accountID with an expiry of
	// now+validity.
	Create(ctx context.Context, accountID string, tokenHash string, purpose models.TokenPurpose, validity time.Duration) error

	// Consume atomically deletes the unexpired token matching accountID,
	// tokenHash and purpose. It returns common.ErrorNotFound when no live
	// match exists, which makes consumption exactly-once under concurrent
	// attempts: only one caller observes the row.
	Consume(ctx context.Context, accountID string, tokenHash string, purpose models.TokenPurpose) error

	// DeleteByAccountAndPurpose removes every token for the account and
	// purpose, consumed during re-issue so at most one live token exists.
	DeleteByAccountAndPurpose(ctx context.Context, accountID string, purpose models.TokenPurpose) error

	// DeleteByAccount removes every outstanding token for the account,
	// regardless of purpose.
	DeleteByAccount(ctx context.Context, accountID string) error

	// DeleteExpired removes tokens whose expiry has passed and reports how
	// many were purged. Expired tokens are never matched by Consume, so this
	// is hygiene, not correctness.
	DeleteExpired(ctx context.Context) (int64, error)
}
