// Package server exposes the asset pipeline over HTTP: published files
// under the public URL, a JSON API for the registry and resolution, health
// and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	prom "github.com/prometheus/client_golang/prometheus"

	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/locator"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server serves one Manager.
type Server struct {
	manager      *locator.Manager
	gatherer     prom.Gatherer
	logger       *slog.Logger
	errorAdapter *foundationerrors.HTTPErrorAdapter
	startTime    time.Time
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithGatherer exposes g at /metrics. Without it the route is not mounted.
func WithGatherer(g prom.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New constructs a Server for m.
func New(m *locator.Manager, opts ...Option) *Server {
	s := &Server{
		manager:   m,
		logger:    slog.Default(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.errorAdapter = foundationerrors.NewHTTPErrorAdapter(s.logger)
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, loggingMiddleware(s.logger), recoveryMiddleware(s.logger, s.errorAdapter))

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)

	// API routes hang off the root router: a method mismatch inside a
	// subrouter surfaces as 404 instead of 405.
	r.HandleFunc("/api/assets", s.handleListAssets).Methods(http.MethodGet)
	r.HandleFunc("/api/assets/{name}", s.handleGetAsset).Methods(http.MethodGet)
	r.HandleFunc("/api/assets/{name}/html", s.handleRenderAsset).Methods(http.MethodGet)
	r.HandleFunc("/api/assets/{name}/invalidate", s.handleInvalidate).Methods(http.MethodPost)
	r.HandleFunc("/api/resolve", s.handleResolve).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	if s.gatherer != nil {
		r.Handle("/metrics", metrics.HTTPHandler(s.gatherer)).Methods(http.MethodGet)
	}

	prefix := publicPrefix(s.manager.Settings().PublicURL)
	if prefix != "" {
		r.PathPrefix(prefix).Handler(http.StripPrefix(strings.TrimSuffix(prefix, "/"), newStaticHandler(s.publicRoot())))
	}
	return r
}

func (s *Server) publicRoot() string {
	settings := s.manager.Settings()
	if settings.PublicDir != "" {
		return settings.PublicDir
	}
	return settings.BuildDir
}

// publicPrefix returns the path component of a public URL with a trailing
// slash, or "" when the URL points at another host.
func publicPrefix(publicURL string) string {
	if publicURL == "" {
		return "/"
	}
	if !strings.HasPrefix(publicURL, "/") || strings.HasPrefix(publicURL, "//") {
		return ""
	}
	return strings.TrimSuffix(publicURL, "/") + "/"
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryRuntime, "failed to bind HTTP listener").
			WithContext("addr", addr).
			Build()
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP server shutdown incomplete", logfields.Error(err))
			return err
		}
		s.logger.Info("HTTP server stopped")
		return nil
	}
}
