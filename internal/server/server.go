package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jackzampolin/novelparser/internal/api"
	"github.com/jackzampolin/novelparser/internal/config"
	"github.com/jackzampolin/novelparser/internal/server/endpoints"
	"github.com/jackzampolin/novelparser/internal/svcctx"
)

// ProgressPath is the websocket route streaming progress events and model output.
const ProgressPath = "/ws/progress"

// Server is the novelparser HTTP server.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	services   *svcctx.Services
	logger     *slog.Logger

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// Services are attached to every request context. Store, Runner,
	// Scheduler and Reducer are required; Hub enables /ws/progress.
	Services *svcctx.Services
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	svc := cfg.Services
	if svc == nil || svc.Store == nil || svc.Runner == nil || svc.Scheduler == nil || svc.Reducer == nil {
		return nil, errors.New("store, runner, scheduler and reducer services are required")
	}
	if svc.Logger == nil {
		svc.Logger = cfg.Logger
	}

	// Model settings follow config file edits
	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			llm := c.LLMConfig()
			svc.Runner.SetLLMConfig(llm)
			svc.Reducer.SetLLMConfig(llm)
			cfg.Logger.Info("model config reloaded", "model", llm.Model)
		})
	}

	s := &Server{
		services: svc,
		logger:   cfg.Logger,
	}

	s.endpointRegistry = api.NewRegistry()
	s.endpointRegistry.Register(endpoints.All()...)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.withServices(), s.requestLog())
	s.endpointRegistry.RegisterRoutes(engine)
	if svc.Hub != nil {
		engine.GET(ProgressPath, gin.WrapH(svc.Hub))
	}
	s.engine = engine

	s.httpServer = &http.Server{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:     engine,
		ReadTimeout: 30 * time.Second,
		// Single-chapter analysis answers once the model has finished.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves HTTP until the context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown stops accepting requests, cancels any running batch and closes
// progress connections.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	// In-flight chapters finish; nothing new is dispatched.
	s.services.Scheduler.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}
	if s.services.Hub != nil {
		s.services.Hub.Close()
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the endpoint registry.
func (s *Server) Registry() *api.Registry {
	return s.endpointRegistry
}

// withServices enriches the request context with services.
func (s *Server) withServices() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(svcctx.WithServices(c.Request.Context(), s.services))
		c.Next()
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}
