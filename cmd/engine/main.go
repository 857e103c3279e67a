package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/LYTE-studios/werkr-engine/internal/common/aws"
	"github.com/LYTE-studios/werkr-engine/internal/common/config"
	"github.com/LYTE-studios/werkr-engine/internal/common/database"
	"github.com/LYTE-studios/werkr-engine/internal/common/logger"
	"github.com/LYTE-studios/werkr-engine/internal/declaration"
	"github.com/LYTE-studios/werkr-engine/internal/notify"
	"github.com/LYTE-studios/werkr-engine/internal/repository"
)

// The lifecycle engine itself is a library consumed by the application
// service. This binary runs the part that must stay resident: the background
// declaration poller, plus the metrics endpoint.

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting declaration reconciler...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init AWS Clients ---
	sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("ses client init failed", zap.Error(err))
	}
	snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("sns client init failed", zap.Error(err))
	}

	// --- Assemble the reconciler ---
	store := repository.NewStore(pg.DB, cfg.Engine.MaxTxRetries, log)

	dispatcher := notify.NewDispatcher(sesClient, snsClient, redis.Client, store, cfg.Notifications, log)

	declClient := declaration.NewClient(cfg.Declaration)
	poller := declaration.NewPoller(
		declClient, store, redis.Client, dispatcher,
		time.Duration(cfg.Declaration.PollInterval)*time.Second,
		cfg.Declaration.PollAttempts,
		log,
	)

	// Pick up declarations that were still unresolved when the previous
	// process stopped.
	if err := poller.ResumeUnresolved(ctx); err != nil {
		zapLog.Error("resuming unresolved declarations failed", zap.Error(err))
	}

	zapLog.Info("Declaration poller running")

	// --- Metrics endpoint ---
	if cfg.Metrics.Enabled {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			zapLog.Info("Metrics server listening", zap.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
				zapLog.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping poller...")
	poller.Shutdown()
	zapLog.Info("Shutdown complete")
}
