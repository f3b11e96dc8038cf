package services

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/mail"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	accountsrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/accounts"
	oobtokensrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/oobtokens"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.AccessTokenSecret = "access-secret"
	cfg.RefreshTokenSecret = "refresh-secret"
	cfg.BcryptCost = 4 // keep hashing fast in tests
	cfg.BaseURL = "http://localhost:8080"
	cfg.MailTimeout = time.Second
	return cfg
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.DiscardHandler))
}

// --- accounts repository fake ---

type fakeAccountsRepo struct {
	createOut *models.Account
	createErr error

	byID    *models.Account
	byIDErr error

	byEmail    *models.Account
	byEmailErr error

	markVerifiedErr error
	updateHashErr   error

	listOut []*models.Account
	listErr error

	markedVerified []string
	updatedHashes  map[string]string
}

func (f *fakeAccountsRepo) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	out := *a
	out.ID = "acc-1"
	return &out, nil
}

func (f *fakeAccountsRepo) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byID, nil
}

func (f *fakeAccountsRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	return f.byEmail, nil
}

func (f *fakeAccountsRepo) MarkEmailVerified(ctx context.Context, id string) error {
	if f.markVerifiedErr != nil {
		return f.markVerifiedErr
	}
	f.markedVerified = append(f.markedVerified, id)
	return nil
}

func (f *fakeAccountsRepo) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	if f.updateHashErr != nil {
		return f.updateHashErr
	}
	if f.updatedHashes == nil {
		f.updatedHashes = map[string]string{}
	}
	f.updatedHashes[id] = hash
	return nil
}

func (f *fakeAccountsRepo) List(ctx context.Context) ([]*models.Account, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

// --- out-of-band token repository fake ---

type createdToken struct {
	accountID string
	tokenHash string
	purpose   models.TokenPurpose
	validity  time.Duration
}

type fakeOOBRepo struct {
	createErr  error
	consumeErr error
	deleteErr  error

	created  []createdToken
	consumed []createdToken
	revoked  []string
	purged   int64
}

func (f *fakeOOBRepo) Create(ctx context.Context, accountID, tokenHash string, purpose models.TokenPurpose, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, createdToken{accountID, tokenHash, purpose, validity})
	return nil
}

func (f *fakeOOBRepo) Consume(ctx context.Context, accountID, tokenHash string, purpose models.TokenPurpose) error {
	if f.consumeErr != nil {
		return f.consumeErr
	}
	f.consumed = append(f.consumed, createdToken{accountID: accountID, tokenHash: tokenHash, purpose: purpose})
	return nil
}

func (f *fakeOOBRepo) DeleteByAccountAndPurpose(ctx context.Context, accountID string, purpose models.TokenPurpose) error {
	return f.deleteErr
}

func (f *fakeOOBRepo) DeleteByAccount(ctx context.Context, accountID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.revoked = append(f.revoked, accountID)
	return nil
}

func (f *fakeOOBRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return f.purged, f.deleteErr
}

// --- repository manager fake ---

type fakeRepoManager struct {
	a *fakeAccountsRepo
	o *fakeOOBRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(db dbx.DBTX) accountsrepo.Repository {
	return m.a
}
func (m *fakeRepoManager) OutOfBandTokens(db dbx.DBTX) oobtokensrepo.Repository {
	return m.o
}

// --- mailer fake ---

type fakeMailer struct {
	sendErr error
	sent    []mail.Message
}

func (f *fakeMailer) Send(ctx context.Context, msg mail.Message) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, msg)
	return "msg-id", nil
}
