// Package server exposes the splitter and averager over HTTP, with a
// websocket stream of run progress.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/regex-splitter/internal/cache"
	"github.com/raaihank/regex-splitter/internal/config"
	"github.com/raaihank/regex-splitter/internal/logger"
	"github.com/raaihank/regex-splitter/internal/matcher"
	"github.com/raaihank/regex-splitter/internal/splitter"
	"github.com/raaihank/regex-splitter/internal/websocket"
)

// Version is reported by /info
var Version = "dev"

// CacheStatter reports result cache statistics for /info
type CacheStatter interface {
	Stats(ctx context.Context) (*cache.CacheStats, error)
}

// Option configures optional server collaborators
type Option func(*Server)

// WithCacheStats exposes c's statistics on /info
func WithCacheStats(c CacheStatter) Option {
	return func(s *Server) { s.cache = c }
}

// Server represents the HTTP API server
type Server struct {
	mu           sync.RWMutex
	config       *config.Config
	logger       *logger.Logger
	splitter     *splitter.Splitter
	cache        CacheStatter
	limiter      *RateLimiter
	maxBodyBytes atomic.Int64
	trustProxy   atomic.Bool
	router       *mux.Router
	server       *http.Server
	wsHub        *websocket.Hub

	// ctx lives from New until Stop and bounds the hub and limiter cleanup
	ctx  context.Context
	stop context.CancelFunc
}

// New creates a new server instance around sp
func New(cfg *config.Config, log *logger.Logger, sp *splitter.Splitter, opts ...Option) *Server {
	s := &Server{
		config:   cfg,
		logger:   log.WithComponent("server"),
		splitter: sp,
		limiter: NewRateLimiter(cfg.Server.RateLimit.Enabled,
			cfg.Server.RateLimit.RequestsPerMin, cfg.Server.RateLimit.Burst),
		router: mux.NewRouter(),
		wsHub:  websocket.NewHub(hubConfig(cfg), log.Logger),
	}
	s.ctx, s.stop = context.WithCancel(context.Background())
	s.maxBodyBytes.Store(cfg.Server.MaxBodyBytes)
	s.trustProxy.Store(cfg.Server.TrustProxyHeaders)
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)

	if s.config.WebSocket.Enabled {
		path := s.config.WebSocket.Path
		if path == "" {
			path = "/ws"
		}
		s.router.HandleFunc(path, s.wsHub.HandleWebSocket).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.Use(s.bodyLimitMiddleware)
	api.HandleFunc("/classify", s.handleClassify).Methods(http.MethodPost)
	api.HandleFunc("/split", s.handleSplit).Methods(http.MethodPost)
	api.HandleFunc("/average", s.handleAverage).Methods(http.MethodPost)
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the websocket hub and serves until Stop is called
func (s *Server) Start() error {
	cfg := s.currentConfig()
	s.logger.Info("Starting regex-splitter server",
		zap.Int("port", cfg.Server.Port),
		zap.String("dialect", string(s.splitter.Config().Dialect)),
		zap.Bool("websocket_enabled", cfg.WebSocket.Enabled))

	go s.wsHub.Run(s.ctx)
	s.limiter.StartCleanupRoutine(10*time.Minute, s.ctx.Done())

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server and the hub
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping regex-splitter server")
	err := s.server.Shutdown(ctx)
	s.stop()
	return err
}

// ApplyConfig applies a reloaded configuration to live traffic. The port,
// timeouts and route layout need a restart.
func (s *Server) ApplyConfig(cfg *config.Config) {
	dialect, err := matcher.ParseDialect(cfg.Splitter.Dialect)
	if err != nil {
		s.logger.Warn("Ignoring reloaded config", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()

	s.limiter.SetLimits(cfg.Server.RateLimit.Enabled,
		cfg.Server.RateLimit.RequestsPerMin, cfg.Server.RateLimit.Burst)
	s.maxBodyBytes.Store(cfg.Server.MaxBodyBytes)
	s.trustProxy.Store(cfg.Server.TrustProxyHeaders)
	s.splitter.Reconfigure(dialect, cfg.Splitter.MatchTimeout)
	s.wsHub.UpdateConfig(hubConfig(cfg))

	s.logger.Info("Configuration reloaded",
		zap.Int("requests_per_min", cfg.Server.RateLimit.RequestsPerMin),
		zap.Int64("max_body_bytes", cfg.Server.MaxBodyBytes))
}

func (s *Server) currentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func hubConfig(cfg *config.Config) *websocket.HubConfig {
	ws := cfg.WebSocket
	return &websocket.HubConfig{
		BroadcastRuns:        ws.Events.BroadcastRuns,
		BroadcastEntries:     ws.Events.BroadcastEntries,
		BroadcastSkips:       ws.Events.BroadcastSkips,
		BroadcastConnections: ws.Events.BroadcastConnections,
		Username:             ws.Username,
		Password:             ws.Password,
		TrustProxyHeaders:    cfg.Server.TrustProxyHeaders,
	}
}
