package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/moodhome/internal/analytics"
	"github.com/benvon/moodhome/internal/config"
	"github.com/benvon/moodhome/internal/database"
	"github.com/benvon/moodhome/internal/feed"
	"github.com/benvon/moodhome/internal/logger"
	"github.com/benvon/moodhome/internal/queue"
	"github.com/benvon/moodhome/internal/services/ai"
	"github.com/benvon/moodhome/internal/telemetry"
	"github.com/benvon/moodhome/internal/workers"
	"go.uber.org/zap"
)

const (
	dlqGCInterval = 1 * time.Hour
	dlqRetention  = 24 * time.Hour
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.New(cfg.LogFormat, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.Duration("reconcile_interval", cfg.ReconcileInterval),
	)

	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(context.Background(), "moodhome-worker", cfg.OTELEndpoint)
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
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

	checkInRepo := database.NewCheckInRepository(db)
	suggestionRepo := database.NewSuggestionRepository(db)
	contactRepo := database.NewContactRepository(db)

	// Publishing through Redis lets servers push freshly generated
	// suggestions to open streams. Without it clients see them on their
	// next read.
	if redisClient, err := feed.DialRedis(cfg.RedisURL); err != nil {
		zapLogger.Warn("redis_unavailable_suggestion_streams_not_notified", zap.Error(err))
	} else {
		notifier := feed.NewRedisNotifier(redisClient)
		defer func() {
			_ = notifier.Close()
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		suggestionRepo.SetChangeHandler(database.ChangeHandler(feed.ChangeHandler(notifier, logger.ForComponent(zapLogger, "feed"))))
		zapLogger.Info("connected_to_redis")
	}

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, logger.ForComponent(zapLogger, "queue"))
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	registry := ai.NewProviderRegistry()
	registry.Register("openai", ai.NewOpenAIFactory(logger.ForComponent(zapLogger, "ai"), debugMode))
	generator, err := registry.GetProvider(cfg.AIProvider, map[string]string{
		"api_key":  cfg.OpenAIKey,
		"base_url": cfg.AIBaseURL,
		"model":    cfg.AIModel,
	})
	if err != nil {
		zapLogger.Fatal("failed_to_create_ai_provider", zap.String("provider", cfg.AIProvider), zap.Error(err))
	}
	zapLogger.Info("initialized_ai_provider",
		zap.String("provider", cfg.AIProvider),
		zap.String("model", cfg.AIModel),
	)

	suggestionWorker := workers.NewSuggestionGenerator(
		generator,
		checkInRepo,
		suggestionRepo,
		contactRepo,
		analytics.NewEngine(cfg.MoodWindow),
		jobQueue,
		logger.ForComponent(zapLogger, "suggestion_generator"),
	)
	reconciler := workers.NewReconciler(checkInRepo, jobQueue, cfg.ReconcileInterval, logger.ForComponent(zapLogger, "reconciler"))
	dlqGC := queue.NewGarbageCollector(jobQueue, dlqGCInterval, dlqRetention, logger.ForComponent(zapLogger, "dlq_gc"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}
	zapLogger.Info("worker_started")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}
				if err := suggestionWorker.ProcessJob(ctx, msg); err != nil {
					job := msg.GetJob()
					zapLogger.Error("job_processing_failed",
						zap.Error(err),
						zap.String("job_id", job.ID.String()),
						zap.String("job_type", string(job.Type)),
					)
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	go func() {
		if err := reconciler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("reconciler_stopped_with_error", zap.Error(err))
		}
	}()
	go func() {
		if err := dlqGC.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()

	select {
	case <-sigChan:
		zapLogger.Info("shutdown_signal_received")
	case <-done:
		zapLogger.Warn("consumer_stopped")
	}

	cancel()
	<-done
	zapLogger.Info("worker_stopped", zap.Int64("dlq_purged", dlqGC.Purged()))
}
