package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
)

func newAccountService(t *testing.T, db *sql.DB, rm *fakeRepoManager, mailer *fakeMailer) *AccountService {
	t.Helper()
	cfg := testConfig()
	hasher := password.NewHasher(cfg.BcryptCost)
	tokens := NewTokenService(db, rm, cfg)
	sessions := NewSessionService(db, rm, cfg)
	return NewAccountService(db, rm, hasher, tokens, sessions, mailer, discardLogger(), cfg)
}

func verifiedAccount(hash string) *models.Account {
	return &models.Account{
		ID:              "acc-1",
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		PasswordHash:    hash,
		IsEmailVerified: true,
	}
}

func TestSignUp_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin() // verification token issue
	mock.ExpectCommit()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{}, o: &fakeOOBRepo{}}
	mailer := &fakeMailer{}
	s := newAccountService(t, db, rm, mailer)

	res, err := s.SignUp(context.Background(), " Ada ", "Lovelace", "Ada@Example.COM", "hunter42")
	if err != nil {
		t.Fatalf("SignUp error: %v", err)
	}
	if !res.MailDispatched {
		t.Fatalf("mail not dispatched: %+v", res)
	}
	if res.Account.Email != "ada@example.com" {
		t.Fatalf("email not normalized: %q", res.Account.Email)
	}
	if res.Account.FirstName != "Ada" {
		t.Fatalf("name not trimmed: %q", res.Account.FirstName)
	}
	if res.Account.PasswordHash == "hunter42" || res.Account.PasswordHash == "" {
		t.Fatalf("password stored without hashing")
	}
	if res.Account.IsEmailVerified {
		t.Fatalf("new account must start unverified")
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("want 1 mail, got %d", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if msg.To != "ada@example.com" {
		t.Fatalf("mail recipient: %q", msg.To)
	}
	if !strings.Contains(msg.Text, "/api/v1/auth/verify-email?") ||
		!strings.Contains(msg.Text, "userId=acc-1") {
		t.Fatalf("verification link missing from mail body:\n%s", msg.Text)
	}

	// the raw secret in the link must hash to the stored digest
	if len(rm.o.created) != 1 {
		t.Fatalf("want 1 issued token, got %d", len(rm.o.created))
	}
	raw := extractQueryParam(t, msg.Text, "token")
	if HashTokenSecret(raw) != rm.o.created[0].tokenHash {
		t.Fatalf("mailed secret does not match stored digest")
	}
}

func extractQueryParam(t *testing.T, body, key string) string {
	t.Helper()
	idx := strings.Index(body, key+"=")
	if idx < 0 {
		t.Fatalf("param %q not found in body:\n%s", key, body)
	}
	rest := body[idx+len(key)+1:]
	if end := strings.IndexAny(rest, "&\n \t"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

func TestSignUp_Validation(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newAccountService(t, db, &fakeRepoManager{a: &fakeAccountsRepo{}, o: &fakeOOBRepo{}}, &fakeMailer{})

	cases := []struct {
		name                             string
		firstName, lastName, email, pass string
	}{
		{"short first name", "A", "Lovelace", "ada@example.com", "hunter42"},
		{"long first name", strings.Repeat("x", 51), "Lovelace", "ada@example.com", "hunter42"},
		{"short last name", "Ada", "L", "ada@example.com", "hunter42"},
		{"empty email", "Ada", "Lovelace", "", "hunter42"},
		{"bad email", "Ada", "Lovelace", "not-an-email", "hunter42"},
		{"short password", "Ada", "Lovelace", "ada@example.com", "12345"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.SignUp(context.Background(), tc.firstName, tc.lastName, tc.email, tc.pass)
			if !errors.Is(err, common.ErrorValidation) {
				t.Fatalf("want ErrorValidation, got %v", err)
			}
		})
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{createErr: common.ErrorAlreadyExists}, o: &fakeOOBRepo{}}
	s := newAccountService(t, db, rm, &fakeMailer{})

	_, err := s.SignUp(context.Background(), "Ada", "Lovelace", "ada@example.com", "hunter42")
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}
}

func TestSignUp_MailFailure_AccountSurvives(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{}, o: &fakeOOBRepo{}}
	s := newAccountService(t, db, rm, &fakeMailer{sendErr: errBoom{}})

	res, err := s.SignUp(context.Background(), "Ada", "Lovelace", "ada@example.com", "hunter42")
	if err != nil {
		t.Fatalf("SignUp must not fail on mail error, got %v", err)
	}
	if res.MailDispatched {
		t.Fatalf("MailDispatched should be false")
	}
	if res.Account == nil || res.Account.ID == "" {
		t.Fatalf("account missing from result: %+v", res)
	}
}

func TestVerifyEmail_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{}, o: &fakeOOBRepo{}}
	s := newAccountService(t, db, rm, &fakeMailer{})

	if err := s.VerifyEmail(context.Background(), "acc-1", "rawsecret"); err != nil {
		t.Fatalf("VerifyEmail error: %v", err)
	}
	if len(rm.a.markedVerified) != 1 || rm.a.markedVerified[0] != "acc-1" {
		t.Fatalf("account not marked verified: %v", rm.a.markedVerified)
	}
	if rm.o.consumed[0].purpose != models.PurposeEmailVerification {
		t.Fatalf("consumed wrong purpose: %v", rm.o.consumed[0].purpose)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestVerifyEmail_InvalidToken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{}, o: &fakeOOBRepo{consumeErr: common.ErrorNotFound}}
	s := newAccountService(t, db, rm, &fakeMailer{})

	err := s.VerifyEmail(context.Background(), "acc-1", "stale")
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
	if len(rm.a.markedVerified) != 0 {
		t.Fatalf("account must stay unverified on bad token")
	}
}

func TestVerifyEmail_MarkFailure_RollsBackConsume(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{markVerifiedErr: errBoom{}}, o: &fakeOOBRepo{}}
	s := newAccountService(t, db, rm, &fakeMailer{})

	err := s.VerifyEmail(context.Background(), "acc-1", "rawsecret")
	if !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("want ErrorInternal, got %v", err)
	}
	// the transaction rolled back, so the consumed token row is restored
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestVerifyEmail_MissingArgs(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newAccountService(t, db, &fakeRepoManager{a: &fakeAccountsRepo{}, o: &fakeOOBRepo{}}, &fakeMailer{})

	if err := s.VerifyEmail(context.Background(), "", "tok"); !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
	if err := s.VerifyEmail(context.Background(), "acc-1", ""); !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
}

func TestLogin_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	hasher := password.NewHasher(4)
	hash, err := hasher.Hash("hunter42")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	// unknown email passes not-found through
	rmNF := &fakeRepoManager{a: &fakeAccountsRepo{byEmailErr: common.ErrorNotFound}, o: &fakeOOBRepo{}}
	if _, err := newAccountService(t, db, rmNF, &fakeMailer{}).Login(context.Background(), "ghost@example.com", "x"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("unknown email: want ErrorNotFound, got %v", err)
	}

	// repo failure is internal
	rmIE := &fakeRepoManager{a: &fakeAccountsRepo{byEmailErr: errBoom{}}, o: &fakeOOBRepo{}}
	if _, err := newAccountService(t, db, rmIE, &fakeMailer{}).Login(context.Background(), "ada@example.com", "x"); !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("repo error: want ErrorInternal, got %v", err)
	}

	// unverified account may not log in, even with the right password
	unverified := verifiedAccount(hash)
	unverified.IsEmailVerified = false
	rmUV := &fakeRepoManager{a: &fakeAccountsRepo{byEmail: unverified}, o: &fakeOOBRepo{}}
	if _, err := newAccountService(t, db, rmUV, &fakeMailer{}).Login(context.Background(), "ada@example.com", "hunter42"); !errors.Is(err, common.ErrorNotVerified) {
		t.Fatalf("unverified: want ErrorNotVerified, got %v", err)
	}

	// wrong password
	rmWP := &fakeRepoManager{a: &fakeAccountsRepo{byEmail: verifiedAccount(hash)}, o: &fakeOOBRepo{}}
	if _, err := newAccountService(t, db, rmWP, &fakeMailer{}).Login(context.Background(), "ada@example.com", "wrong"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("wrong password: want ErrorUnauthorized, got %v", err)
	}

	// success
	rmOK := &fakeRepoManager{a: &fakeAccountsRepo{byEmail: verifiedAccount(hash)}, o: &fakeOOBRepo{}}
	pair, err := newAccountService(t, db, rmOK, &fakeMailer{}).Login(context.Background(), "Ada@Example.com", "hunter42")
	if err != nil || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("login success: pair=%+v err=%v", pair, err)
	}
}

func TestForgotPassword_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{byEmail: verifiedAccount("h")}, o: &fakeOOBRepo{}}
	mailer := &fakeMailer{}
	s := newAccountService(t, db, rm, mailer)

	if err := s.ForgotPassword(context.Background(), "ada@example.com"); err != nil {
		t.Fatalf("ForgotPassword error: %v", err)
	}
	if len(mailer.sent) != 1 || !strings.Contains(mailer.sent[0].Text, "/api/v1/auth/reset-password?") {
		t.Fatalf("reset mail: %+v", mailer.sent)
	}
	if rm.o.created[0].purpose != models.PurposePasswordReset {
		t.Fatalf("issued wrong purpose: %v", rm.o.created[0].purpose)
	}
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{byEmailErr: common.ErrorNotFound}, o: &fakeOOBRepo{}}
	s := newAccountService(t, db, rm, &fakeMailer{})

	if err := s.ForgotPassword(context.Background(), "ghost@example.com"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestForgotPassword_MailFailure(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{byEmail: verifiedAccount("h")}, o: &fakeOOBRepo{}}
	s := newAccountService(t, db, rm, &fakeMailer{sendErr: errBoom{}})

	err := s.ForgotPassword(context.Background(), "ada@example.com")
	if !errors.Is(err, common.ErrorDependency) {
		t.Fatalf("want ErrorDependency, got %v", err)
	}
}

func TestResetPassword_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{}, o: &fakeOOBRepo{}}
	s := newAccountService(t, db, rm, &fakeMailer{})

	if err := s.ResetPassword(context.Background(), "acc-1", "rawsecret", "newpass99"); err != nil {
		t.Fatalf("ResetPassword error: %v", err)
	}

	stored, ok := rm.a.updatedHashes["acc-1"]
	if !ok {
		t.Fatalf("password hash not updated")
	}
	if stored == "newpass99" {
		t.Fatalf("password stored without hashing")
	}
	if len(rm.o.revoked) != 1 || rm.o.revoked[0] != "acc-1" {
		t.Fatalf("outstanding tokens not revoked: %v", rm.o.revoked)
	}
}

func TestResetPassword_InvalidToken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{}, o: &fakeOOBRepo{consumeErr: common.ErrorNotFound}}
	s := newAccountService(t, db, rm, &fakeMailer{})

	err := s.ResetPassword(context.Background(), "acc-1", "stale", "newpass99")
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
	if len(rm.a.updatedHashes) != 0 {
		t.Fatalf("hash must not change on bad token")
	}
}

func TestResetPassword_UpdateFailure_RollsBackConsume(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{updateHashErr: errBoom{}}, o: &fakeOOBRepo{}}
	s := newAccountService(t, db, rm, &fakeMailer{})

	err := s.ResetPassword(context.Background(), "acc-1", "rawsecret", "newpass99")
	if !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("want ErrorInternal, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestResetPassword_WeakPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{}, o: &fakeOOBRepo{}}
	s := newAccountService(t, db, rm, &fakeMailer{})

	err := s.ResetPassword(context.Background(), "acc-1", "rawsecret", "123")
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
	if len(rm.o.consumed) != 0 {
		t.Fatalf("token must not be consumed on validation failure")
	}
}

func TestResendVerification(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	unverified := verifiedAccount("h")
	unverified.IsEmailVerified = false
	rm := &fakeRepoManager{a: &fakeAccountsRepo{byEmail: unverified}, o: &fakeOOBRepo{}}
	mailer := &fakeMailer{}
	s := newAccountService(t, db, rm, mailer)

	if err := s.ResendVerification(context.Background(), "ada@example.com"); err != nil {
		t.Fatalf("ResendVerification error: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("want 1 mail, got %d", len(mailer.sent))
	}
}

func TestResendVerification_AlreadyVerified(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{byEmail: verifiedAccount("h")}, o: &fakeOOBRepo{}}
	s := newAccountService(t, db, rm, &fakeMailer{})

	err := s.ResendVerification(context.Background(), "ada@example.com")
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
}
