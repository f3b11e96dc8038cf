// Package httpapi exposes the account lifecycle over HTTP: JSON handlers,
// bearer-token middleware, and sentinel-to-status error mapping.
package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

type Server struct {
	address  string
	accounts *services.AccountService
	sessions *services.SessionService
	db       *sql.DB
	logger   logging.Logger
	devMode  bool
}

func NewServer(cfg *config.Config, l logging.Logger, accounts *services.AccountService,
	sessions *services.SessionService, db *sql.DB) *Server {
	return &Server{
		address:  cfg.EndpointAddrHTTP,
		accounts: accounts,
		sessions: sessions,
		db:       db,
		logger:   l.With("module", "http_server"),
		devMode:  cfg.Environment == config.EnvDevelopment,
	}
}

// Handler assembles the route table wrapped in the shared middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/v1/auth/verify-email", s.handleVerifyEmail)
	mux.HandleFunc("POST /api/v1/auth/resend-verification", s.handleResendVerification)
	mux.HandleFunc("POST /api/v1/auth/forgot-password", s.handleForgotPassword)
	mux.HandleFunc("POST /api/v1/auth/reset-password", s.handleResetPassword)
	mux.HandleFunc("POST /api/v1/auth/refresh-token", s.handleRefreshToken)

	mux.HandleFunc("GET /api/v1/auth/me", s.requireAuth(s.handleMe))
	mux.HandleFunc("GET /api/v1/auth/admin/accounts", s.requireAdmin(s.handleListAccounts))

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return s.recoverPanics(s.logRequests(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
