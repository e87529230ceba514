// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/txguard/internal/aml"
	"github.com/mbd888/txguard/internal/config"
	"github.com/mbd888/txguard/internal/fraud"
	"github.com/mbd888/txguard/internal/georisk"
	"github.com/mbd888/txguard/internal/health"
	"github.com/mbd888/txguard/internal/idgen"
	"github.com/mbd888/txguard/internal/logging"
	"github.com/mbd888/txguard/internal/metrics"
	"github.com/mbd888/txguard/internal/network"
	"github.com/mbd888/txguard/internal/ratelimit"
	"github.com/mbd888/txguard/internal/sanctions"
	"github.com/mbd888/txguard/internal/screening"
	"github.com/mbd888/txguard/internal/security"
	"github.com/mbd888/txguard/internal/transaction"
	"github.com/mbd888/txguard/internal/validator"
)

// runtimeSampleInterval is how often goroutine and heap gauges refresh.
const runtimeSampleInterval = 15 * time.Second

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg     *config.Config
	version string

	validatorService *validator.Service
	evictionTimer    *validator.Timer
	networkService   *network.Service
	screeningService *screening.Service
	healthRegistry   *health.Registry
	rateLimiter      *ratelimit.Limiter

	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version reported by /health and the build_info gauge.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		version: "dev",
		logger:  logging.New(cfg.LogLevel, cfg.LogFormat),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Validation pipeline
	vopts := []validator.Option{validator.WithScorer(fraud.NewScorer(cfg.FraudThresholds()))}
	if cfg.AMLEnforce {
		vopts = append(vopts, validator.WithComplianceHook(amlHook(aml.NewChecker())))
		s.logger.Info("AML checker enforced as compliance hook")
	}
	s.validatorService = validator.NewService(validator.New(cfg.ValidatorConfig(), vopts...))
	s.evictionTimer = validator.NewTimer(s.validatorService, cfg.EvictionInterval, cfg.HistoryRetention, s.logger)

	// Network analysis
	analyzer := network.NewAnalyzer()
	analyzer.Graph().SetReportingThreshold(cfg.ReportingThresholdAmount())
	s.networkService = network.NewService(analyzer, cfg.NetworkMaxHops)

	// Sanctions, KYC and geographic risk
	s.screeningService = screening.NewService(sanctions.NewScreener(), georisk.NewScorer())

	s.healthRegistry = health.NewRegistry()
	s.registerHealthChecks()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	metrics.SetBuildInfo(s.version)
	s.healthy.Store(true)

	return s, nil
}

// amlHook adapts the AML checker to the validator's boolean compliance hook.
func amlHook(c *aml.Checker) validator.ComplianceHook {
	return validator.ComplianceFunc(func(tx *transaction.Transaction) bool {
		return c.CheckCompliance(tx).Compliant
	})
}

func (s *Server) registerHealthChecks() {
	s.healthRegistry.Register("validator", func(context.Context) health.Status {
		st := s.validatorService.Stats()
		return health.Status{
			Healthy: true,
			Detail:  fmt.Sprintf("%d transactions in history", st.TotalTransactionsInHistory),
		}
	})
	s.healthRegistry.Register("eviction", func(context.Context) health.Status {
		if !s.evictionTimer.Running() {
			return health.Status{Healthy: false, Detail: "timer not running"}
		}
		return health.Status{Healthy: true}
	})
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	s.router.Use(security.HeadersMiddleware())
	s.router.Use(security.CORSMiddleware(s.cfg.AllowedOrigins()))
	s.router.Use(security.BodyLimitMiddleware(s.cfg.MaxBodyBytes))

	rl := ratelimit.DefaultConfig()
	rl.RequestsPerMinute = s.cfg.RateLimitRPM
	rl.BurstSize = s.cfg.RateLimitBurst
	s.rateLimiter = ratelimit.New(rl)
	s.router.Use(s.rateLimiter.Middleware())

	s.router.Use(metrics.Middleware())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Honor an upstream request ID (load balancer, caller)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = idgen.New()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Debug("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthRegistry.Handler(s.version))
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	v1 := s.router.Group("/v1")
	validator.NewHandler(s.validatorService).RegisterRoutes(v1)
	network.NewHandler(s.networkService).RegisterRoutes(v1)
	screening.NewHandler(s.screeningService).RegisterRoutes(v1)
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"env", s.cfg.Env,
			"version", s.version,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go s.evictionTimer.Start(runCtx)
	go metrics.StartRuntimeCollector(runCtx, runtimeSampleInterval)

	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		cancel()
		s.rateLimiter.Stop()
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.evictionTimer.Stop()
	s.rateLimiter.Stop()

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}
