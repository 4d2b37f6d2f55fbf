// Package server exposes the studio over a JSON HTTP API and serves
// generated audio.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/castdeck/internal/auth"
	"github.com/llehouerou/castdeck/internal/blob"
	"github.com/llehouerou/castdeck/internal/studio"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	defaultAuthInterval    = time.Second
	defaultPurgeInterval   = time.Hour
	maxBodyBytes           = 1 << 20
)

// Config wires a Server.
type Config struct {
	Addr   string
	Auth   *auth.Manager
	Studio *studio.Service
	Blobs  blob.Store
	Logger logrus.FieldLogger
	// SecureCookies marks the session cookie Secure; enable behind TLS.
	SecureCookies bool
	// AuthInterval is the minimum spacing between login or signup attempts
	// from one remote address.
	AuthInterval    time.Duration
	ShutdownTimeout time.Duration
	// PurgeInterval spaces expired-session cleanups while serving.
	PurgeInterval time.Duration
}

// Server is the HTTP front end.
type Server struct {
	auth          *auth.Manager
	studio        *studio.Service
	blobs         blob.Store
	log           logrus.FieldLogger
	secureCookies bool
	limiter       *RateLimiter
	shutdown      time.Duration
	purgeEvery    time.Duration
	http          *http.Server
}

// New creates a server; call ListenAndServe to start it.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.AuthInterval <= 0 {
		cfg.AuthInterval = defaultAuthInterval
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = defaultPurgeInterval
	}
	s := &Server{
		auth:          cfg.Auth,
		studio:        cfg.Studio,
		blobs:         cfg.Blobs,
		log:           cfg.Logger.WithField("component", "server"),
		secureCookies: cfg.SecureCookies,
		limiter:       NewRateLimiter(cfg.AuthInterval),
		shutdown:      cfg.ShutdownTimeout,
		purgeEvery:    cfg.PurgeInterval,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler with logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/audio/{key}", s.handleAudio)

	mux.Handle("POST /api/signup", s.rateLimited(http.HandlerFunc(s.handleSignUp)))
	mux.Handle("POST /api/login", s.rateLimited(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /api/logout", s.handleLogout)

	mux.Handle("GET /api/me", s.requireSession(s.handleMe))
	mux.Handle("GET /api/profile", s.requireSession(s.handleGetProfile))
	mux.Handle("PUT /api/profile", s.requireSession(s.handlePutProfile))

	mux.Handle("GET /api/episodes", s.requireSession(s.handleListEpisodes))
	mux.Handle("POST /api/episodes", s.requireSession(s.handleCreateEpisode))
	mux.Handle("GET /api/episodes/{id}", s.requireSession(s.handleGetEpisode))
	mux.Handle("PUT /api/episodes/{id}", s.requireSession(s.handleUpdateEpisode))
	mux.Handle("DELETE /api/episodes/{id}", s.requireSession(s.handleDeleteEpisode))
	mux.Handle("POST /api/episodes/{id}/generate", s.requireSession(s.handleGenerate))

	return s.logMiddleware(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.http.Addr).Info("listening")
		errCh <- s.http.ListenAndServe()
	}()

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go s.purgeLoop(purgeCtx)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	s.log.Info("shutting down")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// purgeLoop deletes expired sessions until ctx is cancelled.
func (s *Server) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.purgeEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.auth.PurgeExpired(ctx)
			if err != nil {
				s.log.WithError(err).Warn("purge expired sessions")
				continue
			}
			if n > 0 {
				s.log.WithField("count", n).Info("purged expired sessions")
			}
		}
	}
}
