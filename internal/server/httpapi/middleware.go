package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type ctxKey string

const accountKey ctxKey = "account"

// AccountFromContext returns the authenticated account placed on the request
// context by requireAuth, or nil.
func AccountFromContext(ctx context.Context) *models.Account {
	account, _ := ctx.Value(accountKey).(*models.Account)
	return account
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// requireAuth authenticates the request with a bearer access token and loads
// the account onto the context. The three failure modes get distinct
// messages: missing credential, invalid token, expired token.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.fail(w, http.StatusUnauthorized, "access token required")
			return
		}

		accountID, expiresAt, err := s.sessions.VerifyAccess(token)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				s.writeJSON(w, http.StatusUnauthorized, envelope{
					Success: false,
					Message: "access token expired",
					Data:    map[string]any{"expiredAt": expiresAt},
				})
				return
			}
			s.fail(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		account, err := s.accounts.GetAccount(r.Context(), accountID)
		if err != nil {
			s.fail(w, http.StatusUnauthorized, "invalid token - user not found")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), accountKey, account)))
	}
}

// requireAdmin authenticates and additionally demands the admin flag.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		account := AccountFromContext(r.Context())
		if account == nil || !account.IsAdmin {
			s.fail(w, http.StatusForbidden, "admins only")
			return
		}
		next(w, r)
	})
}
