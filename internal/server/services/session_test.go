package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

func TestIssuePair_Verifiable(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := NewSessionService(db, &fakeRepoManager{}, testConfig())

	pair, err := s.IssuePair("acc-1")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", pair)
	}

	id, exp, err := s.VerifyAccess(pair.AccessToken)
	if err != nil || id != "acc-1" {
		t.Fatalf("VerifyAccess: id=%q err=%v", id, err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("access token already expired: %v", exp)
	}

	if id, _, err := s.VerifyRefresh(pair.RefreshToken); err != nil || id != "acc-1" {
		t.Fatalf("VerifyRefresh: id=%q err=%v", id, err)
	}
}

func TestVerify_SecretsNotInterchangeable(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := NewSessionService(db, &fakeRepoManager{}, testConfig())
	pair, err := s.IssuePair("acc-1")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	if _, _, err := s.VerifyAccess(pair.RefreshToken); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access token: %v", err)
	}
	if _, _, err := s.VerifyRefresh(pair.AccessToken); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh token: %v", err)
	}
}

func TestRotate_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		a: &fakeAccountsRepo{byID: &models.Account{ID: "acc-1", IsEmailVerified: true}},
	}
	s := NewSessionService(db, rm, testConfig())

	old, err := s.IssuePair("acc-1")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	pair, err := s.Rotate(context.Background(), old.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate error: %v", err)
	}
	if id, _, err := s.VerifyAccess(pair.AccessToken); err != nil || id != "acc-1" {
		t.Fatalf("rotated access token: id=%q err=%v", id, err)
	}

	// rotation must mint genuinely new tokens, even within the same second
	if pair.AccessToken == old.AccessToken {
		t.Fatalf("rotated access token is identical to the previous one")
	}
	if pair.RefreshToken == old.RefreshToken {
		t.Fatalf("rotated refresh token is identical to the previous one")
	}
}

func TestRotate_ExpiredToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	cfg := testConfig()
	s := NewSessionService(db, &fakeRepoManager{}, cfg)

	expired, err := auth.GenerateToken("acc-1", []byte(cfg.RefreshTokenSecret), -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = s.Rotate(context.Background(), expired)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
}

func TestRotate_GarbageToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := NewSessionService(db, &fakeRepoManager{}, testConfig())

	_, err := s.Rotate(context.Background(), "not-a-jwt")
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestRotate_AccountGone(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{byIDErr: common.ErrorNotFound}}
	s := NewSessionService(db, rm, testConfig())

	old, _ := s.IssuePair("acc-gone")
	_, err := s.Rotate(context.Background(), old.RefreshToken)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken for deleted account, got %v", err)
	}
}

func TestRotate_AccountLookupErr(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{a: &fakeAccountsRepo{byIDErr: errBoom{}}}
	s := NewSessionService(db, rm, testConfig())

	old, _ := s.IssuePair("acc-1")
	_, err := s.Rotate(context.Background(), old.RefreshToken)
	if !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("want ErrorInternal, got %v", err)
	}
}

func TestRotate_Unverified(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		a: &fakeAccountsRepo{byID: &models.Account{ID: "acc-1", IsEmailVerified: false}},
	}
	s := NewSessionService(db, rm, testConfig())

	old, _ := s.IssuePair("acc-1")
	_, err := s.Rotate(context.Background(), old.RefreshToken)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}
