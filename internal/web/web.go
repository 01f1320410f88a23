// Package web exposes the HTTP API: crawler fetch triggers, extraction
// runs, and iCalendar feed downloads.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"infracal/internal/config"
	"infracal/internal/pipeline"
	"infracal/internal/store"

	appLog "infracal/internal/log"
)

// Server provides the HTTP API over the page/event stores and the
// extraction pipeline.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	pipe   *pipeline.Pipeline
	router *mux.Router
}

// NewServer constructs a Server and registers its routes.
func NewServer(cfg *config.Config, st *store.Store, pipe *pipeline.Pipeline) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		pipe:   pipe,
		router: mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/crawlers/fetch", s.handleCrawlerFetch).Methods(http.MethodPost)
	s.router.HandleFunc("/crawlers/page", s.handleDirectFetch).Methods(http.MethodPost)
	s.router.HandleFunc("/crawlers/pages", s.handleRemovePages).Methods(http.MethodDelete)
	s.router.HandleFunc("/extractors/extract", s.handleExtract).Methods(http.MethodPost)
	s.router.HandleFunc("/calendars/ical/{configID}", s.handleICal).Methods(http.MethodGet)
}

// Handler returns the fully wrapped http.Handler: CORS always, basic
// auth when configured, request IDs on every response.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return cors.Default().Handler(requestIDMiddleware(h))
}

// requestIDMiddleware tags every response with an X-Request-Id header,
// honoring one the caller already sent so IDs survive a proxy hop.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic
// Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="infracal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run starts the HTTP server and shuts it down gracefully when ctx is
// canceled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("response encode failed", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
