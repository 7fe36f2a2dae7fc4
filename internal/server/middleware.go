package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/vigil/internal/handlers"
)

// withConditionalMiddleware wraps the router with the standard chain but
// skips logging and recovery for WebSocket upgrades, which hijack the
// connection and cannot go through a wrapped ResponseWriter.
func (s *Server) withConditionalMiddleware(handler http.Handler) http.Handler {
	wrapped := s.recoveryMiddleware(handler)
	wrapped = s.corsMiddleware(wrapped)
	wrapped = s.loggingMiddleware(wrapped)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			allowCrossOrigin(w)
			handler.ServeHTTP(w, r)
			return
		}
		wrapped.ServeHTTP(w, r)
	})
}

// requireAPIKey enforces Bearer-token auth on scanning and session routes.
// With no key configured the check is skipped, which keeps local development
// friction-free.
func (s *Server) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := s.app.Config.Server.APIKey
		if apiKey == "" {
			next(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			handlers.WriteError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token != apiKey {
			handlers.WriteError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next(w, r)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		event := s.app.Logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", rec.status).
			Str("duration", time.Since(start).String())
		if r.URL.RawQuery != "" {
			event = event.Str("query", r.URL.RawQuery)
		}
		event.Msg("HTTP request")
	})
}

// corsMiddleware answers preflight requests and opens the API to browser
// clients. The scan UI and the service run on different ports locally.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowCrossOrigin(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.app.Logger.Error().
					Str("error", fmt.Sprintf("%v", rec)).
					Str("path", r.URL.Path).
					Msg("Panic recovered in handler")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func allowCrossOrigin(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

// statusRecorder captures the status code written by a handler so the
// request log can include it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}
