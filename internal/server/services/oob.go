package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// tokenSecretBytes is the entropy of an out-of-band secret: 32 bytes from
// crypto/rand, 256 bits.
const tokenSecretBytes = 32

// TokenService issues and consumes single-use out-of-band tokens. The raw
// secret is returned to the caller exactly once; storage only ever sees its
// SHA-256 hex digest.
type TokenService struct {
	db                                *sql.DB
	repomanager                       repomanager.RepositoryManager
	verificationTokenValidityDuration time.Duration
	resetTokenValidityDuration        time.Duration
}

// NewTokenService constructs a TokenService using repositories and server config.
func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *TokenService {
	return &TokenService{
		db:                                db,
		repomanager:                       m,
		verificationTokenValidityDuration: cfg.VerificationTokenValidityDuration,
		resetTokenValidityDuration:        cfg.ResetTokenValidityDuration,
	}
}

// HashTokenSecret returns the SHA-256 hex digest persisted in place of a raw
// out-of-band secret.
func HashTokenSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Issue generates a fresh secret for accountID and purpose, replaces any
// prior token for the same account+purpose, and returns the raw secret.
//
// Delete-old and insert-new run inside one transaction, so at most one live
// token per account+purpose exists. Two concurrent Issue calls for the same
// account still race as last-writer-wins; the loser's secret simply never
// consumes.
func (s *TokenService) Issue(ctx context.Context, accountID string, purpose models.TokenPurpose) (string, error) {
	raw, err := common.MakeRandHexString(tokenSecretBytes)
	if err != nil {
		return "", fmt.Errorf("generating token secret: %w", err)
	}

	digest := HashTokenSecret(raw)
	validity := s.validityFor(purpose)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.OutOfBandTokens(tx)
		if err := repo.DeleteByAccountAndPurpose(ctx, accountID, purpose); err != nil {
			return err
		}
		return repo.Create(ctx, accountID, digest, purpose, validity)
	})
	if err != nil {
		return "", err
	}

	return raw, nil
}

// Consume redeems a raw secret for accountID and purpose. The lookup-and-
// delete is a single conditional statement in the repository, so a secret can
// be redeemed at most once: of two racing consumers, exactly one succeeds and
// the other observes common.ErrInvalidToken. Expired tokens are never
// matched (expiry is checked at consume time, not issue time).
func (s *TokenService) Consume(ctx context.Context, accountID string, raw string, purpose models.TokenPurpose) error {
	return s.ConsumeIn(ctx, s.db, accountID, raw, purpose)
}

// ConsumeIn is Consume against a caller-supplied handle, so that redeeming a
// token can join one transaction with the state change it authorizes: if the
// change fails, the token is not burned.
func (s *TokenService) ConsumeIn(ctx context.Context, db dbx.DBTX, accountID string, raw string, purpose models.TokenPurpose) error {
	repo := s.repomanager.OutOfBandTokens(db)
	err := repo.Consume(ctx, accountID, HashTokenSecret(raw), purpose)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidToken
		}
		return err
	}
	return nil
}

// RevokeAll deletes every outstanding out-of-band token for the account,
// regardless of purpose.
func (s *TokenService) RevokeAll(ctx context.Context, accountID string) error {
	return s.repomanager.OutOfBandTokens(s.db).DeleteByAccount(ctx, accountID)
}

// PurgeExpired removes expired token rows. Optional hygiene; correctness
// never depends on it because Consume checks expiry inline.
func (s *TokenService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repomanager.OutOfBandTokens(s.db).DeleteExpired(ctx)
}

// ValidityFor reports the configured lifetime of tokens with the given
// purpose, used when rendering expiry hints into outbound mail.
func (s *TokenService) ValidityFor(purpose models.TokenPurpose) time.Duration {
	return s.validityFor(purpose)
}

func (s *TokenService) validityFor(purpose models.TokenPurpose) time.Duration {
	if purpose == models.PurposePasswordReset {
		return s.resetTokenValidityDuration
	}
	return s.verificationTokenValidityDuration
}
