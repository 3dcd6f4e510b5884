// Package api provides the HTTP server for TalentScout.
//
// It exposes the interview session records, the live intake conversations, a health
// check and the Prometheus metrics over a chi router.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/flow"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/metrics"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/persist"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/store"
)

// DefaultAddr is used when no listen address is configured.
const DefaultAddr = ":8080"

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// SessionIDResolver maps a conversation to the session record created for it.
type SessionIDResolver interface {
	SessionID(h persist.Handle) (int64, bool)
}

// Server serves the REST API.
type Server struct {
	store    store.SessionStore
	registry *flow.Registry
	sessions SessionIDResolver
	metrics  *metrics.Metrics
	webhook  http.Handler
	addr     string
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithSessionIDs lets conversation responses carry the id of their session record.
func WithSessionIDs(r SessionIDResolver) Option {
	return func(s *Server) {
		s.sessions = r
	}
}

// WithMetrics mounts /metrics and reports the live conversation count.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTwilioWebhook mounts h at POST /twilio/webhook.
func WithTwilioWebhook(h http.Handler) Option {
	return func(s *Server) {
		s.webhook = h
	}
}

// NewServer creates a server over the given store and conversation registry.
func NewServer(st store.SessionStore, reg *flow.Registry, opts ...Option) *Server {
	s := &Server{
		store:    st,
		registry: reg,
		addr:     DefaultAddr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chiMiddleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, http.StatusNotFound, errorResponse("Not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, http.StatusMethodNotAllowed, errorResponse("Method not allowed"))
	})

	r.Get("/health", s.healthHandler)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/sessions", s.sessionRoutes)
	r.Route("/api/interview-sessions", s.sessionRoutes)

	r.Route("/conversations", func(r chi.Router) {
		r.Post("/", s.startConversationHandler)
		r.Get("/{id}", s.getConversationHandler)
		r.Post("/{id}/messages", s.postMessageHandler)
	})

	if s.webhook != nil {
		r.Method(http.MethodPost, "/twilio/webhook", s.webhook)
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("Server.request: handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"requestID", chiMiddleware.GetReqID(r.Context()))
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]interface{}{
		"status":               "healthy",
		"timestamp":            time.Now().UTC().Format(time.RFC3339),
		"active_conversations": s.registry.Len(),
	}
	writeJSONResponse(w, http.StatusOK, healthData)
}
