package oobtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new token digest for accountID with an expiry time of now+validity.
func (r *PostgresRepository) Create(ctx context.Context, accountID string, tokenHash string, purpose models.TokenPurpose, validity time.Duration) error {
	query := `
		INSERT INTO oob_tokens (account_id, token_hash, purpose, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, accountID, tokenHash, string(purpose), time.Now().Add(validity)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Consume performs the find-and-delete as one conditional statement so a
// token can never be used twice, even by racing callers.
func (r *PostgresRepository) Consume(ctx context.Context, accountID string, tokenHash string, purpose models.TokenPurpose) error {
	query := `
		DELETE FROM oob_tokens
		WHERE account_id = $1 AND token_hash = $2 AND purpose = $3 AND expires_at > now()
		RETURNING id
	`
	var id string
	if err := r.db.QueryRowContext(ctx, query, accountID, tokenHash, string(purpose)).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteByAccountAndPurpose removes all tokens for the account and purpose.
func (r *PostgresRepository) DeleteByAccountAndPurpose(ctx context.Context, accountID string, purpose models.TokenPurpose) error {
	query := `
		DELETE FROM oob_tokens
		WHERE account_id = $1 AND purpose = $2
	`
	if _, err := r.db.ExecContext(ctx, query, accountID, string(purpose)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteByAccount removes all tokens for the account.
func (r *PostgresRepository) DeleteByAccount(ctx context.Context, accountID string) error {
	query := `
		DELETE FROM oob_tokens
		WHERE account_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, accountID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteExpired purges tokens past their expiry.
func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM oob_tokens
		WHERE expires_at <= now()
	`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
