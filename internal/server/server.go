package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/adapters"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/analysis"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/config"
	_ "github.com/ZanzyTHEbar/ai-video-detector/internal/docs"
	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/frontend"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/middleware"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/monitoring"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/ratelimit"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/security"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/upload"
)

// multipartSlack is the allowance for multipart framing on top of the file size limit
const multipartSlack = 1 << 20

// maxURLBody caps the JSON body of /api/analyze-url
const maxURLBody = 64 << 10

// Server is the HTTP front end for the detector
type Server struct {
	cfg      config.Config
	engine   *gin.Engine
	analyzer *analysis.Analyzer
	fetcher  adapters.MetadataFetcher
	store    *upload.Store
	limiter  *ratelimit.RateLimiter
	redis    *ratelimit.RedisClient
	metrics  *monitoring.Metrics
	registry *prometheus.Registry
	logger   *monitoring.Logger
}

// Option customises a Server, mostly for tests
type Option func(*Server)

// WithFetcher replaces the configured metadata backend
func WithFetcher(f adapters.MetadataFetcher) Option {
	return func(s *Server) { s.fetcher = f }
}

// WithAnalyzer replaces the default analyzer, e.g. to pin its clock
func WithAnalyzer(a *analysis.Analyzer) Option {
	return func(s *Server) { s.analyzer = a }
}

// WithLogger replaces the stdout JSON logger
func WithLogger(l *monitoring.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRegistry exports metrics from reg instead of a fresh registry
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// New wires the server's dependencies from cfg
func New(cfg config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = monitoring.NewLoggerWithLevel(os.Stdout, monitoring.ParseLevel(cfg.Log.Level))
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	s.metrics = monitoring.NewMetrics(s.registry)

	if s.analyzer == nil {
		s.analyzer = analysis.NewAnalyzer(analysis.WithLogger(s.logger.Logger))
	}

	if s.fetcher == nil {
		fetcher, err := adapters.NewMetadataFetcherFromConfig(cfg.Fetch, cfg.Cache, s.metrics, s.logger)
		if err != nil {
			return nil, apperrors.NewConfigurationError("Failed to build metadata fetcher", err)
		}
		s.fetcher = fetcher
	}

	s.store = upload.NewStore(cfg.Upload.Dir, cfg.Upload.AllowedExtensions, cfg.Upload.MaxBytes)

	if cfg.RateLimit.Enabled {
		redisClient, err := ratelimit.NewRedisClient(context.Background(), ratelimit.RedisOptions{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		if err != nil {
			s.logger.Warn("Redis unavailable, rate limiting in memory", "error", err)
		}
		s.redis = redisClient
		s.limiter = ratelimit.NewRateLimiter(redisClient, ratelimit.Config{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		}, s.metrics)
		if err := s.registry.Register(ratelimit.NewStatsCollector(s.limiter)); err != nil {
			s.Close()
			return nil, apperrors.NewConfigurationError("Failed to register rate limit metrics", err)
		}
	}

	engine, err := s.routes()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.engine = engine

	return s, nil
}

// Handler exposes the router for httptest
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() (*gin.Engine, error) {
	r := gin.New()

	if err := r.SetTrustedProxies(s.cfg.Server.TrustedProxies); err != nil {
		return nil, apperrors.NewConfigurationError("Invalid trusted proxies", err)
	}

	indexTemplate, err := frontend.LoadEmbeddedIndex()
	if err != nil {
		return nil, apperrors.NewConfigurationError("Failed to load web UI", err)
	}

	r.Use(apperrors.RecoveryHandler())
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(apperrors.ErrorHandler())
	r.Use(security.SecurityHeadersMiddleware(s.cfg.Server.EnableHSTS))
	if corsMiddleware := newCORS(s.cfg.Server.AllowedOrigins); corsMiddleware != nil {
		r.Use(corsMiddleware)
	}
	r.Use(middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()).Handler())

	r.GET("/", security.CSPMiddleware(), frontend.NewIndexHandler(indexTemplate))
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	if s.limiter != nil {
		api.Use(s.limiter.IPRateLimitMiddleware())
	}
	api.POST("/analyze", security.MaxBodySize(s.store.MaxBytes()+multipartSlack), s.handleAnalyzeUpload)
	api.POST("/analyze-url", security.MaxBodySize(maxURLBody), security.RequireContentType("application/json"), s.handleAnalyzeURL)

	return r, nil
}

func newCORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return nil
	}

	corsConfig := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			corsConfig.AllowAllOrigins = true
			return cors.New(corsConfig)
		}
	}
	corsConfig.AllowOrigins = origins
	return cors.New(corsConfig)
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	if s.cfg.Upload.Keep && s.cfg.Upload.Retention > 0 {
		s.store.StartRetention(ctx, s.cfg.Upload.Retention, retentionInterval(s.cfg.Upload.Retention))
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.SystemLogger("server_start", fmt.Sprintf("listening on %s", s.cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.Close()
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.SystemLogger("server_shutdown", "draining in-flight requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.SystemLogger("server_stopped", "graceful shutdown complete")
	return nil
}

// Close releases the rate limiter and Redis connection
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.redis != nil && s.redis.IsEnabled() {
		apperrors.SafeClose(s.redis, "redis")
	}
}

func retentionInterval(retention time.Duration) time.Duration {
	if retention < time.Hour {
		return retention
	}
	return time.Hour
}
