// Package accounts declares the repository contract for account records.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository defines persistence operations for accounts.
type Repository interface {
	// Create inserts a new account and returns it with the generated id and
	// timestamps populated. A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// GetByID returns the account with the given id, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Account, error)

	// GetByEmail returns the account with the given normalized email, or
	// common.ErrorNotFound.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// MarkEmailVerified flips the is_email_verified flag for the account.
	MarkEmailVerified(ctx context.Context, id string) error

	// UpdatePasswordHash replaces the stored bcrypt digest for the account.
	UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error

	// List returns all accounts ordered by creation time.
	List(ctx context.Context) ([]*models.Account, error)
}
