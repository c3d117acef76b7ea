package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/estebmaister/supportbot/internal/observability"
	"github.com/estebmaister/supportbot/pkg/agent"
	"github.com/estebmaister/supportbot/pkg/prompt"
	"github.com/rs/zerolog"
)

// ChatDispatcher routes an inbound chat turn into the orchestration loop.
type ChatDispatcher func(ctx context.Context, req agent.Request) (agent.Result, error)

// ToolHealth probes the tool backend for the health endpoint.
type ToolHealth interface {
	HealthCheck(ctx context.Context) bool
}

// ModelStatus reports whether the model backend holds credentials.
type ModelStatus interface {
	Configured() bool
}

// Server is the HTTP front end
type Server struct {
	host           string
	port           int
	staticDir      string
	server         *http.Server
	dispatcher     ChatDispatcher
	tools          ToolHealth
	model          ModelStatus
	prompts        *prompt.Loader
	logger         zerolog.Logger
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// Config holds server configuration
type Config struct {
	Host       string
	Port       int
	StaticDir  string
	Dispatcher ChatDispatcher
	Tools      ToolHealth
	Model      ModelStatus
	Prompts    *prompt.Loader
	Logger     zerolog.Logger
}

// NewServer creates a new gateway server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("chat dispatcher is required")
	}
	if cfg.Tools == nil {
		return nil, fmt.Errorf("tool gateway is required")
	}
	if cfg.Model == nil {
		return nil, fmt.Errorf("model provider is required")
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompt.NewLoader("")
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "static"
	}

	return &Server{
		host:       cfg.Host,
		port:       cfg.Port,
		staticDir:  cfg.StaticDir,
		dispatcher: cfg.Dispatcher,
		tools:      cfg.Tools,
		model:      cfg.Model,
		prompts:    cfg.Prompts,
		logger:     cfg.Logger,
	}, nil
}

// Handler builds the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat", s.handleChat)
	mux.HandleFunc("/v1/welcome", s.handleWelcome)
	mux.HandleFunc("/ping", s.handlePing)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/", s.handleIndex)

	return s.withRequestContext(mux)
}

// Start starts the gateway server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: s.Handler(),
	}

	s.logger.Info().Str("host", s.host).Int("port", s.port).Msg("Starting gateway server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Gateway server error")
		}
	}()

	return nil
}

// Stop gracefully stops the gateway server
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down gateway server")

	// Wait for in-flight requests with timeout
	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("Gateway server stopped")
	return nil
}

func (s *Server) shuttingDown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.isShuttingDown
}
