package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	netmail "net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/mail"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// SignUpResult reports the outcome of a signup. MailDispatched is false when
// the verification mail could not be sent; the account itself is committed
// either way (account creation commits independently of notification
// delivery).
type SignUpResult struct {
	Account        *models.Account
	MailDispatched bool
}

// AccountService orchestrates the account lifecycle:
// signup, email verification, login, forgot/reset password, refresh.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *password.Hasher
	tokens      *TokenService
	sessions    *SessionService
	mailer      mail.Mailer
	logger      logging.Logger

	baseURL      string
	appName      string
	supportEmail string
	mailTimeout  time.Duration
}

// NewAccountService constructs the orchestrator from its collaborators.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, hasher *password.Hasher,
	tokens *TokenService, sessions *SessionService, mailer mail.Mailer,
	logger logging.Logger, cfg *config.Config) *AccountService {
	return &AccountService{
		db:           db,
		repomanager:  m,
		hasher:       hasher,
		tokens:       tokens,
		sessions:     sessions,
		mailer:       mailer,
		logger:       logger.With("module", "accounts"),
		baseURL:      cfg.BaseURL,
		appName:      cfg.AppName,
		supportEmail: cfg.SupportEmail,
		mailTimeout:  cfg.MailTimeout,
	}
}

// SignUp registers a new, unverified account and dispatches the verification
// mail. The account write commits before the mail is attempted; a mail
// failure is logged and reflected in the result, never rolled back.
func (s *AccountService) SignUp(ctx context.Context, firstName, lastName, email, plaintext string) (*SignUpResult, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	if err := validateName(firstName, "first name"); err != nil {
		return nil, err
	}
	if err := validateName(lastName, "last name"); err != nil {
		return nil, err
	}
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(plaintext); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		// a broken hasher must never silently accept a password
		return nil, err
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.Create(ctx, &models.Account{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        normalized,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	result := &SignUpResult{Account: account}

	raw, err := s.tokens.Issue(ctx, account.ID, models.PurposeEmailVerification)
	if err != nil {
		s.logger.Error(ctx, "issuing verification token failed", "account_id", account.ID, "error", err.Error())
		return result, nil
	}

	result.MailDispatched = s.dispatchVerificationMail(ctx, account, raw)

	return result, nil
}

// ResendVerification issues a fresh verification token (superseding any prior
// one) and dispatches it.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, normalized)
	if err != nil {
		return err
	}
	if account.IsEmailVerified {
		return fmt.Errorf("%w: email is already verified", common.ErrorValidation)
	}

	raw, err := s.tokens.Issue(ctx, account.ID, models.PurposeEmailVerification)
	if err != nil {
		return err
	}

	if !s.dispatchVerificationMail(ctx, account, raw) {
		return fmt.Errorf("%w: verification mail", common.ErrorDependency)
	}
	return nil
}

// VerifyEmail consumes a verification token and flips the account's verified
// flag. Consume and flag update commit together: a failure after the consume
// rolls the token back instead of burning it.
func (s *AccountService) VerifyEmail(ctx context.Context, accountID, rawToken string) error {
	if accountID == "" || rawToken == "" {
		return fmt.Errorf("%w: token and userId are required", common.ErrorValidation)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.tokens.ConsumeIn(ctx, tx, accountID, rawToken, models.PurposeEmailVerification); err != nil {
			return err
		}
		if err := s.repomanager.Accounts(tx).MarkEmailVerified(ctx, accountID); err != nil {
			return common.ErrorInternal
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "email verified", "account_id", accountID)
	return nil
}

// Login verifies credentials and, on success, issues an access+refresh pair.
// The account must be email-verified before it may log in.
func (s *AccountService) Login(ctx context.Context, email, plaintext string) (*TokenPair, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	if !account.IsEmailVerified {
		return nil, common.ErrorNotVerified
	}

	if !s.hasher.Verify(plaintext, account.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	return s.sessions.IssuePair(account.ID)
}

// ForgotPassword issues a reset token for the account registered under email
// and dispatches the reset mail. The token write commits before the mail is
// attempted; a dispatch failure is surfaced as a dependency error without
// rolling the token back.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, normalized)
	if err != nil {
		return err
	}

	raw, err := s.tokens.Issue(ctx, account.ID, models.PurposePasswordReset)
	if err != nil {
		return common.ErrorInternal
	}

	data := s.linkData(account, "/api/v1/auth/reset-password", raw, models.PurposePasswordReset)
	msg, err := mail.PasswordResetMessage(account.Email, data)
	if err != nil {
		return common.ErrorInternal
	}

	if _, err := s.send(ctx, msg); err != nil {
		s.logger.Error(ctx, "reset mail dispatch failed", "account_id", account.ID, "error", err.Error())
		return fmt.Errorf("%w: reset mail", common.ErrorDependency)
	}

	return nil
}

// ResetPassword consumes a reset token, replaces the account's password hash,
// and revokes every other outstanding out-of-band token for the account.
// Consume and hash update commit together, so a failed update cannot burn
// the token.
func (s *AccountService) ResetPassword(ctx context.Context, accountID, rawToken, newPassword string) error {
	if accountID == "" || rawToken == "" {
		return fmt.Errorf("%w: token and userId are required", common.ErrorValidation)
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.tokens.ConsumeIn(ctx, tx, accountID, rawToken, models.PurposePasswordReset); err != nil {
			return err
		}
		if err := s.repomanager.Accounts(tx).UpdatePasswordHash(ctx, accountID, hash); err != nil {
			return common.ErrorInternal
		}
		return nil
	})
	if err != nil {
		return err
	}

	// defense in depth: no stale verification/reset links survive a reset
	if err := s.tokens.RevokeAll(ctx, accountID); err != nil {
		s.logger.Warn(ctx, "revoking outstanding tokens failed", "account_id", accountID, "error", err.Error())
	}

	s.logger.Info(ctx, "password reset", "account_id", accountID)
	return nil
}

// Refresh exchanges a refresh token for a new pair via the session issuer.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return s.sessions.Rotate(ctx, refreshToken)
}

// GetAccount resolves an account id to a live record.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return s.repomanager.Accounts(s.db).GetByID(ctx, id)
}

// ListAccounts returns all accounts, for the admin surface.
func (s *AccountService) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	return s.repomanager.Accounts(s.db).List(ctx)
}

// --- helpers below ---

func (s *AccountService) dispatchVerificationMail(ctx context.Context, account *models.Account, raw string) bool {
	data := s.linkData(account, "/api/v1/auth/verify-email", raw, models.PurposeEmailVerification)
	msg, err := mail.VerificationMessage(account.Email, data)
	if err != nil {
		s.logger.Error(ctx, "rendering verification mail failed", "account_id", account.ID, "error", err.Error())
		return false
	}

	messageID, err := s.send(ctx, msg)
	if err != nil {
		s.logger.Error(ctx, "verification mail dispatch failed", "account_id", account.ID, "error", err.Error())
		return false
	}

	s.logger.Info(ctx, "verification mail dispatched", "account_id", account.ID, "message_id", messageID)
	return true
}

// send bounds each dispatch with the configured mail timeout so a slow mail
// host cannot stall the request.
func (s *AccountService) send(ctx context.Context, msg mail.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	defer cancel()
	return s.mailer.Send(ctx, msg)
}

func (s *AccountService) linkData(account *models.Account, path, raw string, purpose models.TokenPurpose) mail.LinkData {
	link := s.baseURL + path + "?" + url.Values{
		"token":  {raw},
		"userId": {account.ID},
	}.Encode()

	return mail.LinkData{
		AppName:       s.appName,
		Name:          account.FirstName,
		Link:          link,
		ExpiryMinutes: int(s.tokens.ValidityFor(purpose).Minutes()),
		SupportEmail:  s.supportEmail,
	}
}

func validateName(name, field string) error {
	n := utf8.RuneCountInString(name)
	if n < 2 || n > 50 {
		return fmt.Errorf("%w: %s must be between 2 and 50 characters", common.ErrorValidation, field)
	}
	return nil
}

func validatePassword(plaintext string) error {
	if len(plaintext) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", common.ErrorValidation)
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", common.ErrorValidation)
	}
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", common.ErrorValidation)
	}
	return email, nil
}
