// Package services contains server-side business logic: the session token
// issuer, the out-of-band token manager, and the account lifecycle
// orchestrator that composes them.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService mints and validates signed access/refresh token pairs.
// Tokens are self-contained assertions of {accountId, expiry}; nothing is
// persisted, so "revocation" before natural expiry is out of scope. The two
// families use distinct secrets and lifetimes so that compromise of one does
// not compromise the other.
type SessionService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	accessSecret                 []byte
	refreshSecret                []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewSessionService constructs a SessionService using repositories and server config.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *SessionService {
	return &SessionService{
		db:                           db,
		repomanager:                  m,
		accessSecret:                 []byte(cfg.AccessTokenSecret),
		refreshSecret:                []byte(cfg.RefreshTokenSecret),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// IssuePair mints a fresh access+refresh pair for accountID.
func (s *SessionService) IssuePair(accountID string) (*TokenPair, error) {
	access, err := auth.GenerateToken(accountID, s.accessSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := auth.GenerateToken(accountID, s.refreshSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess validates an access token and returns the asserted account id
// and expiry. Errors follow the auth.ParseToken contract.
func (s *SessionService) VerifyAccess(token string) (string, time.Time, error) {
	return auth.ParseToken(token, s.accessSecret)
}

// VerifyRefresh validates a refresh token and returns the asserted account id
// and expiry.
func (s *SessionService) VerifyRefresh(token string) (string, time.Time, error) {
	return auth.ParseToken(token, s.refreshSecret)
}

// Rotate exchanges a valid refresh token for a brand-new access+refresh pair.
// The account is re-checked: it must still exist and still be email-verified.
//
// Rotation is stateless: the old refresh token is not invalidated server-side
// and remains usable until its own expiry. Rotation limits the blast radius
// of a leaked access token only.
func (s *SessionService) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	accountID, _, err := s.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, common.ErrorInternal
	}
	// the refresh contract knows only valid or invalid; an unverified
	// account's token is simply no longer honored
	if !account.IsEmailVerified {
		return nil, common.ErrInvalidToken
	}

	return s.IssuePair(account.ID)
}
