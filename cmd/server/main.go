package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/benvon/moodhome/internal/config"
	"github.com/benvon/moodhome/internal/database"
	"github.com/benvon/moodhome/internal/feed"
	"github.com/benvon/moodhome/internal/handlers"
	"github.com/benvon/moodhome/internal/logger"
	"github.com/benvon/moodhome/internal/middleware"
	"github.com/benvon/moodhome/internal/queue"
	"github.com/benvon/moodhome/internal/services/oidc"
	"github.com/benvon/moodhome/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	reloadInterval   = 1 * time.Minute
	dlqGCInterval    = 1 * time.Hour
	dlqRetention     = 24 * time.Hour
	defaultRateLimit = "10-S"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(cfg.LogFormat, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		// Sync fails on stderr in some environments; nothing to do about it.
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.Bool("sqlite", cfg.UsesSQLite()),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	tracing := false
	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(context.Background(), serviceName, cfg.OTELEndpoint)
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			tracing = true
			zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database", zap.String("driver", db.Driver))

	redisClient, notifier := connectNotifier(cfg, zapLogger)
	defer func() {
		if err := notifier.Close(); err != nil {
			zapLogger.Warn("failed_to_close_notifier", zap.Error(err))
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}
	}()

	jobQueue := connectQueue(cfg, zapLogger)
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	// Repositories
	userRepo := database.NewUserRepository(db)
	checkInRepo := database.NewCheckInRepository(db)
	suggestionRepo := database.NewSuggestionRepository(db)
	contactRepo := database.NewContactRepository(db)
	executionRepo := database.NewExecutionRepository(db)
	oidcConfigRepo := database.NewOIDCConfigRepository(db)
	corsConfigRepo := database.NewCorsConfigRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)

	onChange := database.ChangeHandler(feed.ChangeHandler(notifier, logger.ForComponent(zapLogger, "feed")))
	checkInRepo.SetChangeHandler(onChange)
	suggestionRepo.SetChangeHandler(onChange)
	contactRepo.SetChangeHandler(onChange)

	oidcProvider := oidc.NewProvider(oidcConfigRepo)
	jwksManager := oidc.NewJWKSManager()

	healthChecker := handlers.NewHealthChecker(db)
	healthChecker.AddCheck("queue", jobQueue.HealthCheck)
	if redisClient != nil {
		healthChecker.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.FrontendURL, zapLogger, reloadInterval)
	rateLimitReloader, err := middleware.NewRateLimitReloader(redisClient, ratelimitConfigRepo, defaultRateLimit, zapLogger, reloadInterval)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_reloader", zap.Error(err))
	}

	router := newRouter(routes{
		logger:      zapLogger,
		tracing:     tracing,
		enableHSTS:  cfg.EnableHSTS,
		cors:        corsReloader,
		rateLimit:   rateLimitReloader,
		auth:        middleware.NewAuthenticator(userRepo, oidcProvider, jwksManager, cfg.OIDCProvider, logger.ForComponent(zapLogger, "auth")),
		health:      healthChecker,
		openAPI:     handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml")),
		authH:       handlers.NewAuthHandler(oidcProvider, cfg.OIDCProvider, zapLogger),
		checkIns:    handlers.NewCheckInHandler(checkInRepo, suggestionRepo, jobQueue, zapLogger),
		suggestions: handlers.NewSuggestionHandler(suggestionRepo, cfg.SuggestionTopN, zapLogger),
		contacts:    handlers.NewContactHandler(contactRepo, zapLogger),
		executions:  handlers.NewExecutionHandler(executionRepo, zapLogger),
		analytics:   handlers.NewAnalyticsHandler(checkInRepo, cfg.MoodWindow, zapLogger),
		streams: handlers.NewStreamHandler(notifier, handlers.StreamRepositories{
			CheckIns:    checkInRepo,
			Suggestions: suggestionRepo,
			Contacts:    contactRepo,
			Executions:  executionRepo,
		}, cfg.MoodWindow, cfg.SuggestionTopN, logger.ForComponent(zapLogger, "stream")),
	})

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: event streams are long-lived. Other routes carry
		// middleware.Timeout.
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
		// Request contexts derive from bgCtx so shutdown ends open streams.
		BaseContext: func(net.Listener) context.Context { return bgCtx },
	}

	go corsReloader.Start(bgCtx)
	go rateLimitReloader.Start(bgCtx)

	dlqGC := queue.NewGarbageCollector(jobQueue, dlqGCInterval, dlqRetention, logger.ForComponent(zapLogger, "dlq_gc"))
	go func() {
		if err := dlqGC.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()
	zapLogger.Info("started_dlq_garbage_collector",
		zap.Duration("interval", dlqGCInterval),
		zap.Duration("retention", dlqRetention),
	)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectNotifier returns the change feed. Redis carries it across processes;
// with the embedded store a single process may run on an in-memory feed.
func connectNotifier(cfg *config.Config, zapLogger *zap.Logger) (*redis.Client, feed.Notifier) {
	client, err := feed.DialRedis(cfg.RedisURL)
	if err == nil {
		zapLogger.Info("connected_to_redis")
		return client, feed.NewRedisNotifier(client)
	}
	if !cfg.UsesSQLite() {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	zapLogger.Warn("redis_unavailable_using_in_memory_feed", zap.Error(err))
	return nil, feed.NewMemoryNotifier()
}

// connectQueue dials RabbitMQ with exponential backoff to ride out broker startup.
func connectQueue(cfg *config.Config, zapLogger *zap.Logger) *queue.RabbitMQQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, logger.ForComponent(zapLogger, "queue"))
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return q
		}
		lastErr = err

		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}
