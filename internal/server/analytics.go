// Package server provides a lightweight HTTP status server that exposes
// per-target session health, recent event counts, and a simple dashboard.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Guliveer/twitch-eventsub-go/internal/constants"
	"github.com/Guliveer/twitch-eventsub-go/internal/logger"
)

// SessionState is the coarse running state of one watch target's EventSub
// client.
type SessionState string

// Recognized session states.
const (
	StateConnecting  SessionState = "connecting"
	StateConnected   SessionState = "connected"
	StateReconnecting SessionState = "reconnecting"
	StateDead        SessionState = "dead"
)

// TargetStatus is a snapshot of one watch target's session health.
type TargetStatus struct {
	Name             string       `json:"name"`
	State            SessionState `json:"state"`
	SessionID        string       `json:"session_id,omitempty"`
	ConnectedAt      time.Time    `json:"connected_at,omitempty"`
	LastMessageAt    time.Time    `json:"last_message_at,omitempty"`
	NotificationCount int64       `json:"notification_count"`
	ChangeoverCount  int64        `json:"changeover_count"`
	LastError        string       `json:"last_error,omitempty"`
}

// StatusFunc returns the current status of every watch target. Used to
// dynamically populate the dashboard and JSON API without the server
// holding a direct reference to the eventsub clients themselves.
type StatusFunc func() []TargetStatus

// StatusServer serves the status dashboard and JSON API endpoints.
type StatusServer struct {
	addr string
	log  *logger.Logger
	srv  *http.Server

	mu         sync.RWMutex
	statusFunc StatusFunc
}

// NewStatusServer creates a new StatusServer bound to the given address.
func NewStatusServer(addr string, log *logger.Logger) *StatusServer {
	s := &StatusServer{
		addr: addr,
		log:  log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleDashboard)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/targets", s.handleTargets)
	mux.HandleFunc("GET /api/target/{name}", s.handleTarget)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           withLogging(log, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return context.Background()
		},
	}

	return s
}

// SetStatusFunc sets the function used to fetch current target statuses.
// Thread-safe.
func (s *StatusServer) SetStatusFunc(fn StatusFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusFunc = fn
}

// getStatuses returns the current target statuses. Thread-safe.
func (s *StatusServer) getStatuses() []TargetStatus {
	s.mu.RLock()
	fn := s.statusFunc
	s.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn()
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs graceful shutdown when the context is done.
func (s *StatusServer) Run(ctx context.Context) error {
	s.log.Info("status server starting", "addr", s.addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("status server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.log.Info("status server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultGracefulShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("status server shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func withLogging(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", time.Since(start).String(),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing it.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
