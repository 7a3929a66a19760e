// Package server assembles the federation service: providers, registry,
// token accounting, and the HTTP surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/orchestr8/federation/internal/api/http"
	"github.com/orchestr8/federation/internal/api/middleware"
	"github.com/orchestr8/federation/internal/api/ws"
	"github.com/orchestr8/federation/internal/infrastructure/config"
	"github.com/orchestr8/federation/internal/infrastructure/logging"
	"github.com/orchestr8/federation/internal/infrastructure/monitoring"
	"github.com/orchestr8/federation/internal/loader"
	"github.com/orchestr8/federation/internal/provider/aitmpl"
	"github.com/orchestr8/federation/internal/provider/github"
	"github.com/orchestr8/federation/internal/provider/local"
	"github.com/orchestr8/federation/internal/provider/registry"
	"github.com/orchestr8/federation/internal/token"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *registry.Registry
	tokens   *token.System
	httpSrv  *http.Server
}

// New builds the full service from configuration.
func New(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	metrics := monitoring.NewMetrics()

	reg := registry.New(registry.Config{
		HealthCheckInterval:    cfg.Registry.HealthCheckInterval,
		MaxConsecutiveFailures: cfg.Registry.MaxConsecutiveFailures,
		AutoDisableUnhealthy:   cfg.Registry.AutoDisableUnhealthy,
		ProviderTimeout:        cfg.Registry.ProviderTimeout,
	}, logger.Logger)

	if err := registerProviders(reg, cfg, logger.Logger); err != nil {
		return nil, err
	}
	prometheus.MustRegister(monitoring.NewRegistryCollector(func() []monitoring.ProviderSnapshot {
		infos := reg.List()
		snaps := make([]monitoring.ProviderSnapshot, 0, len(infos))
		for _, info := range infos {
			snaps = append(snaps, monitoring.ProviderSnapshot{
				Name:      info.Name,
				Enabled:   info.Enabled,
				CacheHits: info.Stats.CacheHits,
			})
		}
		return snaps
	}))

	var tokens *token.System
	if cfg.Tracker.Enabled {
		tokens = token.NewSystem(token.SystemConfig{
			Tracker: token.TrackerConfig{
				Enabled:                  true,
				Deduplicate:              cfg.Tracker.Deduplication,
				Strategy:                 token.BaselineStrategy(cfg.Tracker.BaselineStrategy),
				AssumedTokensPerResource: cfg.Tracker.AssumedTokensPerResource,
				CacheMultiplier:          cfg.Tracker.CacheMultiplier,
				Rates: token.CostRates{
					InputPerMillion:         cfg.Tracker.InputRate,
					OutputPerMillion:        cfg.Tracker.OutputRate,
					CacheCreationPerMillion: cfg.Tracker.CacheCreationRate,
					CacheReadPerMillion:     cfg.Tracker.CacheReadRate,
				},
			},
			Store: token.StoreConfig{
				MaxRecords: cfg.Store.MaxRecords,
				Retention:  cfg.Store.Retention,
			},
		}, logger.Logger)
	}

	ld := loader.New(reg, tokens, metrics, logger.Logger)

	router := buildRouter(cfg, reg, tokens, ld, metrics, logger.Logger)

	return &Server{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		tokens:   tokens,
		httpSrv: &http.Server{
			Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
			Handler: router,
		},
	}, nil
}

// registerProviders constructs and registers every enabled provider.
func registerProviders(reg *registry.Registry, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Local.Enabled {
		p := local.New(local.Config{
			Root:       cfg.Local.Root,
			ContentTTL: cfg.Local.ContentTTL,
			IndexTTL:   cfg.Local.IndexTTL,
		}, logger)
		if err := reg.Register(p); err != nil {
			return err
		}
	}

	if cfg.GitHub.Enabled {
		repos, err := cfg.GitHub.RepoConfigs()
		if err != nil {
			return fmt.Errorf("failed to resolve github repos: %w", err)
		}
		p := github.New(github.Config{
			Repos:         repos,
			Token:         cfg.GitHub.Token,
			BaseURL:       cfg.GitHub.APIURL,
			Timeout:       cfg.GitHub.Timeout,
			RetryAttempts: cfg.GitHub.RetryAttempts,
			ContentTTL:    cfg.GitHub.CacheTTL,
		}, logger)
		if err := reg.Register(p); err != nil {
			return err
		}
	}

	if cfg.AITMPL.Enabled {
		p := aitmpl.New(aitmpl.Config{
			BaseURL:           cfg.AITMPL.APIURL,
			Token:             cfg.AITMPL.Token,
			Timeout:           cfg.AITMPL.Timeout,
			RequestsPerMinute: cfg.AITMPL.RequestsPerMinute,
			RequestsPerHour:   cfg.AITMPL.RequestsPerHour,
			ContentTTL:        cfg.AITMPL.CacheTTL,
		}, logger)
		if err := reg.Register(p); err != nil {
			return err
		}
	}

	return nil
}

// buildRouter wires middleware and routes.
func buildRouter(cfg *config.Config, reg *registry.Registry, tokens *token.System, ld *loader.Loader, metrics *monitoring.Metrics, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(reg, tokens, ld, logger)
	wsHandler := ws.NewHandler(reg, logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Token accounting
	api := router.Group("/api")
	api.GET("/tokens/efficiency", handlers.GetEfficiency)
	api.GET("/tokens/summary", handlers.GetSummary)
	api.GET("/tokens/by-category", handlers.GetByCategory)
	api.GET("/tokens/cost-savings", handlers.GetCostSavings)
	api.GET("/tokens/trends", handlers.GetTrends)
	api.GET("/tokens/top", handlers.GetTopResources)
	api.GET("/tokens/sessions/:id", handlers.GetSession)

	// Federation
	api.GET("/resources/:category/:id", handlers.GetResource)
	api.GET("/search", handlers.SearchResources)
	api.GET("/providers", handlers.ListProviders)
	api.GET("/providers/:name/health", handlers.GetProviderHealth)
	api.GET("/providers/:name/stats", handlers.GetProviderStats)

	// WebSocket
	router.GET("/stream", wsHandler.HandleConnection)

	return router
}

// Run initializes providers, starts the health loop, and serves HTTP. It
// blocks until the listener fails or Close is called.
func (s *Server) Run(ctx context.Context) error {
	if err := s.registry.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize providers: %w", err)
	}
	s.registry.Start(ctx)

	s.logger.Info("server listening",
		zap.String("addr", s.httpSrv.Addr),
		zap.Int("providers", len(s.registry.List())),
		zap.Bool("tracking", s.tokens != nil),
	)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close drains in-flight requests, stops the health loop, and shuts down
// providers and token state.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var firstErr error
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		firstErr = err
	}

	s.registry.Stop()
	if err := s.registry.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	if s.tokens != nil {
		s.tokens.Close()
	}
	s.logger.Sync()
	return firstErr
}
