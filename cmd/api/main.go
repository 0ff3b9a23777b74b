// Package main is the entry point for the Kindred API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sanghalabs/kindred/internal/api"
	"github.com/sanghalabs/kindred/internal/auth"
	"github.com/sanghalabs/kindred/internal/blocklist"
	"github.com/sanghalabs/kindred/internal/config"
	"github.com/sanghalabs/kindred/internal/db"
	"github.com/sanghalabs/kindred/internal/feedback"
	"github.com/sanghalabs/kindred/internal/health"
	"github.com/sanghalabs/kindred/internal/jobs"
	"github.com/sanghalabs/kindred/internal/match"
	"github.com/sanghalabs/kindred/internal/matchstore"
	"github.com/sanghalabs/kindred/internal/middleware"
	"github.com/sanghalabs/kindred/internal/profile"
	"github.com/sanghalabs/kindred/internal/reputation"
	"github.com/sanghalabs/kindred/internal/tracing"
)

const serviceName = "kindred-api"

func main() {
	configFile := flag.String("config", "", "path to YAML config file (env vars take precedence)")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Kindred API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "summary", cfg.LogSummary())

	// Tracing is opt-in via OTel environment variables.
	tracingProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      os.Getenv("TRACING_ENABLED") == "true",
		Environment:  cfg.Env,
		ExporterType: envOrDefault("OTEL_EXPORTER_TYPE", "otlp-grpc"),
		OTLPEndpoint: envOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		SamplingRate: 1.0,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	profileStore := profile.NewPostgresStore(conn, logger)
	feedbackStore := feedback.NewPostgresStore(conn, logger)
	blocklistStore := blocklist.NewPostgresStore(conn, logger)
	matchStore := matchstore.NewPostgresStore(conn, logger)

	// Optional Redis for distributed rate limiting.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid redis URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	jobMetrics := jobs.NewMetrics()
	reputationMetrics := reputation.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}
	if err := jobMetrics.Register(registry); err != nil {
		logger.Error("failed to register job metrics", "error", err)
		os.Exit(1)
	}
	if err := reputationMetrics.Register(registry); err != nil {
		logger.Error("failed to register reputation metrics", "error", err)
		os.Exit(1)
	}

	// Base weights, optionally calibrated from file.
	baseWeights, err := match.LoadCalibration(cfg.CalibrationFilePath)
	if err != nil {
		logger.Error("failed to load weight calibration", "error", err, "path", cfg.CalibrationFilePath)
		os.Exit(1)
	}

	matchService := match.NewService(match.ServiceConfig{
		PoolLimit:     cfg.MatchPoolLimit,
		ResultLimit:   cfg.MatchResultLimit,
		HistoryWindow: cfg.FeedbackWindow,
		BaseWeights:   baseWeights,
		Logger:        logger,
		JobMetrics:    jobMetrics,
	}, profileStore, feedbackStore, blocklistStore, matchStore)

	// Background reputation recompute.
	dirtyTracker := reputation.NewDirtyTracker()
	recomputeJob := reputation.NewRecomputeJob(reputation.RecomputeJobConfig{
		Interval:   time.Duration(cfg.RecomputeIntervalSeconds) * time.Second,
		Logger:     logger,
		Metrics:    reputationMetrics,
		JobMetrics: jobMetrics,
	}, dirtyTracker, feedbackStore, profileStore)
	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()
	if err := recomputeJob.Start(jobCtx); err != nil {
		logger.Error("failed to start recompute job", "error", err)
		os.Exit(1)
	}
	defer recomputeJob.Stop()

	jwtService := auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTSecretPrevious)

	matchHandlers := api.NewMatchHandlers(matchService, matchStore, cfg.MatchResultLimit)
	healthConfig := api.HealthHandlersConfig{
		DBChecker:      health.NewDBChecker(conn),
		MetricsEnabled: true,
	}
	if redisClient != nil {
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
	}
	healthHandlers := api.NewHealthHandlers(healthConfig)

	// Rate limiting on the run-trigger endpoint. Redis-backed when
	// available so limits hold across replicas.
	var rateLimitStore middleware.RateLimitStore = middleware.NewInMemoryRateLimitStore()
	if redisClient != nil {
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient).WithMetrics(httpMetrics)
	}

	handler := newHandler(handlerDeps{
		logger:         logger,
		jwtService:     jwtService,
		matchHandlers:  matchHandlers,
		healthHandlers: healthHandlers,
		rateLimitStore: rateLimitStore,
		httpMetrics:    httpMetrics,
		registry:       registry,
		corsOrigins:    os.Getenv("CORS_ALLOWED_ORIGINS"),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	jobCancel()
	recomputeJob.Stop()

	if err := tracingProvider.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown tracing", "error", err)
	}

	logger.Info("server stopped")
}

// handlerDeps collects everything needed to assemble the HTTP surface.
type handlerDeps struct {
	logger         *slog.Logger
	jwtService     *auth.JWTService
	matchHandlers  *api.MatchHandlers
	healthHandlers *api.HealthHandlers
	rateLimitStore middleware.RateLimitStore
	httpMetrics    *middleware.Metrics
	registry       *prometheus.Registry
	corsOrigins    string
}

// newHandler builds the route table and wraps it in the middleware
// chain: RequestID -> Logging -> HTTPMetrics -> Tracing -> CORS.
func newHandler(deps handlerDeps) http.Handler {
	runRateLimiter := middleware.RateLimiter(
		deps.rateLimitStore,
		middleware.DefaultMatchRunLimit(),
		middleware.MemberKeyFunc(),
		deps.httpMetrics,
	)

	mux := http.NewServeMux()
	mux.Handle("/v1/matches/run", runRateLimiter(api.RequireAuth(deps.jwtService, deps.matchHandlers.RunMatches)))
	mux.Handle("/v1/matches", api.RequireAuth(deps.jwtService, deps.matchHandlers.ListMatches))
	mux.HandleFunc("/health", deps.healthHandlers.Health)
	mux.HandleFunc("/health/db", deps.healthHandlers.HealthDB)
	mux.HandleFunc("/health/redis", deps.healthHandlers.HealthRedis)
	mux.HandleFunc("/ready", deps.healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Only handle exact root path, everything else returns 404
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"kindred-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	var handler http.Handler = mux
	if deps.corsOrigins != "" {
		handler = middleware.CORS(middleware.CORSConfig{
			AllowedOrigins:   strings.Split(deps.corsOrigins, ","),
			AllowCredentials: true,
		})(handler)
	}
	handler = middleware.Tracing(serviceName)(handler)
	handler = middleware.HTTPMetrics(deps.httpMetrics)(handler)
	handler = middleware.Logging(deps.logger)(handler)
	handler = middleware.RequestID(handler)
	return handler
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
