package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// accountView is the outward representation of an account. The password hash
// never leaves the service.
type accountView struct {
	ID              string    `json:"id"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Email           string    `json:"email"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	IsAdmin         bool      `json:"isAdmin"`
	CreatedAt       time.Time `json:"createdAt"`
}

func viewOf(a *models.Account) accountView {
	return accountView{
		ID:              a.ID,
		FirstName:       a.FirstName,
		LastName:        a.LastName,
		Email:           a.Email,
		IsEmailVerified: a.IsEmailVerified,
		IsAdmin:         a.IsAdmin,
		CreatedAt:       a.CreatedAt,
	}
}

type tokenPairView struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	res, err := s.accounts.SignUp(r.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	message := "account created, check your inbox for the verification link"
	if !res.MailDispatched {
		message = "account created, but the verification email could not be sent"
	}
	s.ok(w, http.StatusCreated, message, map[string]any{"user": viewOf(res.Account)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	pair, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.ok(w, http.StatusOK, "logged in", tokenPairView{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.accounts.ResendVerification(r.Context(), req.Email); err != nil {
		s.respondError(w, r, err)
		return
	}

	s.ok(w, http.StatusOK, "verification email dispatched", nil)
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	err := s.accounts.VerifyEmail(r.Context(), q.Get("userId"), q.Get("token"))
	if err != nil {
		// a bad link is a client error here, not an auth failure
		if errors.Is(err, common.ErrInvalidToken) || errors.Is(err, common.ErrTokenExpired) {
			s.fail(w, http.StatusBadRequest, "invalid or expired verification token")
			return
		}
		s.respondError(w, r, err)
		return
	}

	s.ok(w, http.StatusOK, "email verified", nil)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.accounts.ForgotPassword(r.Context(), req.Email); err != nil {
		s.respondError(w, r, err)
		return
	}

	s.ok(w, http.StatusOK, "password reset email dispatched", nil)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	q := r.URL.Query()
	err := s.accounts.ResetPassword(r.Context(), q.Get("userId"), q.Get("token"), req.NewPassword)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) || errors.Is(err, common.ErrTokenExpired) {
			s.fail(w, http.StatusBadRequest, "invalid or expired reset token")
			return
		}
		s.respondError(w, r, err)
		return
	}

	s.ok(w, http.StatusOK, "password updated", nil)
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	pair, err := s.accounts.Refresh(r.Context(), req.Token)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.ok(w, http.StatusOK, "tokens rotated", tokenPairView{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())
	if account == nil {
		s.fail(w, http.StatusUnauthorized, "access token required")
		return
	}
	s.ok(w, http.StatusOK, "", map[string]any{"user": viewOf(account)})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.ListAccounts(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, viewOf(a))
	}
	s.ok(w, http.StatusOK, "", map[string]any{"users": views})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.fail(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	s.ok(w, http.StatusOK, "ok", nil)
}
