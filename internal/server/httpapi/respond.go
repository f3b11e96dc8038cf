package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// envelope is the uniform JSON response shape.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, e envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(e); err != nil {
		s.logger.Error(context.Background(), "writing response failed", "error", err.Error())
	}
}

func (s *Server) ok(w http.ResponseWriter, status int, message string, data any) {
	s.writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func (s *Server) fail(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, envelope{Success: false, Message: message})
}

// respondError maps sentinel errors to HTTP statuses. Unknown errors become
// a generic 500; their detail is surfaced only in development mode.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		s.fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		s.fail(w, http.StatusUnauthorized, "email is already registered")
	case errors.Is(err, common.ErrorNotFound):
		s.fail(w, http.StatusNotFound, "user not found")
	case errors.Is(err, common.ErrorNotVerified):
		s.fail(w, http.StatusForbidden, "email is not verified")
	case errors.Is(err, common.ErrorUnauthorized):
		s.fail(w, http.StatusUnauthorized, "incorrect password")
	case errors.Is(err, common.ErrTokenExpired):
		s.fail(w, http.StatusUnauthorized, "token expired")
	case errors.Is(err, common.ErrInvalidToken):
		s.fail(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, common.ErrorDependency):
		s.fail(w, http.StatusServiceUnavailable, "a downstream service is unavailable")
	default:
		s.logger.Error(r.Context(), "unhandled error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		s.fail(w, http.StatusInternalServerError, s.internalMessage(err))
	}
}

func (s *Server) internalMessage(err error) string {
	if s.devMode {
		return err.Error()
	}
	return "internal server error"
}

// decodeBody reads a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return common.ErrorValidation
	}
	return nil
}

// statusRecorder captures the response status for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// logRequests records method, path, status and duration for every request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}

// recoverPanics converts handler panics into a generic 500.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error(r.Context(), "panic in handler", "method", r.Method, "path", r.URL.Path, "panic", p)
				s.fail(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
