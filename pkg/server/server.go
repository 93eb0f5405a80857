package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/ingest"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/schemasource"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/telemetry/health"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/telemetry/metrics"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/telemetry/tracing"
)

// Dependencies are the components the HTTP surface serves. Store, Metrics,
// Health and Tracer are optional; their routes or middleware are left out
// when nil.
type Dependencies struct {
	Ingest  *ingest.Service
	Schemas *schemasource.Registry
	Store   records.Storage
	Health  *health.Checker
	Metrics *metrics.Collector
	Tracer  trace.Tracer
}

// Server is the statblock HTTP API server.
type Server struct {
	config       *config.Config
	deps         Dependencies
	httpServer   *http.Server
	logger       *slog.Logger
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server. The configuration supplies listen settings,
// record query limits and telemetry paths.
func New(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Ingest == nil || deps.Schemas == nil {
		return nil, fmt.Errorf("ingest service and schema registry are required")
	}
	return &Server{
		config: cfg,
		deps:   deps,
		logger: slog.Default().With("component", "server"),
	}, nil
}

// Start listens on the configured address and serves until ctx is
// cancelled or the listener fails, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		ln.Close()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true

	srvCfg := s.config.Server
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    srvCfg.ReadTimeout,
		WriteTimeout:   srvCfg.WriteTimeout,
		IdleTimeout:    srvCfg.IdleTimeout,
		MaxHeaderBytes: srvCfg.MaxHeaderBytes,
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting statblock server", "address", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown drains in-flight requests within the configured shutdown
// timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running, httpServer := s.isRunning, s.httpServer
		s.mu.RUnlock()
		if !running || httpServer == nil {
			return
		}

		timeout := s.config.Server.ShutdownTimeout
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("statblock server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler builds the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	api := &apiHandler{
		ingest:  s.deps.Ingest,
		schemas: s.deps.Schemas,
		store:   s.deps.Store,
		config:  s.config,
		logger:  s.logger,
	}

	srvCfg := s.config.Server
	v1 := http.NewServeMux()
	v1.Handle("POST /v1/parse",
		ConcurrencyMiddleware(srvCfg.RateLimit.MaxConcurrent, s.logger)(http.HandlerFunc(api.handleParse)))
	v1.HandleFunc("GET /v1/schema", api.handleSchema)
	if s.deps.Store != nil {
		v1.HandleFunc("GET /v1/records", api.handleListRecords)
		v1.HandleFunc("GET /v1/records/{id}", api.handleGetRecord)
	}

	// Access control covers the API only; probes and metrics stay open.
	var protected http.Handler = v1
	protected = RateLimitMiddleware(srvCfg.RateLimit, s.logger)(protected)
	if srvCfg.Auth.Enabled {
		protected = AuthMiddleware(srvCfg.Auth, s.logger)(protected)
	}
	mux.Handle("/v1/", protected)

	telemetry := s.config.Telemetry
	if s.deps.Health != nil && telemetry.Health.Enabled {
		s.deps.Health.Register(mux, telemetry.Health.LivenessPath, telemetry.Health.ReadinessPath)
	}
	if s.deps.Metrics != nil && telemetry.Metrics.Enabled {
		mux.Handle("GET "+telemetry.Metrics.Path, s.deps.Metrics.Handler())
	}

	var handler http.Handler = mux

	if s.deps.Tracer != nil {
		handler = tracing.HTTPMiddleware(s.deps.Tracer)(handler)
	}
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware(handler)

	// Recovery is outermost so it also covers the other middleware.
	handler = RecoveryMiddleware(s.logger)(handler)

	return handler
}
