package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/config"
	"github.com/property-shares/backend/internal/db"
	"github.com/property-shares/backend/internal/events"
	"github.com/property-shares/backend/internal/logger"
	"github.com/property-shares/backend/internal/repositories"
)

// Relay tails the ledger journal in postgres and publishes every event to
// redis pubsub for the websocket hub and other subscribers.
func main() {
	cfg := config.Load()

	lg, err := logger.New(logger.Config{
		Debug:       cfg.Debug,
		SentryDSN:   cfg.SentryDSN,
		Environment: cfg.Environment,
		Service:     "relay",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Close(2 * time.Second)
	log := lg.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, "relay", 4, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, "relay", log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	relay := events.NewRelay(
		repositories.NewJournalRepo(pool),
		events.NewRedisPublisher(rdb, log),
		events.NewRedisCursor(rdb, events.DefaultCursorKey),
		cfg.RelayInterval,
		cfg.RelayBatchSize,
		log,
	)

	log.Info("relay started",
		zap.Duration("interval", cfg.RelayInterval),
		zap.Int("batch_size", cfg.RelayBatchSize),
	)

	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down relay")
	cancel()
	<-done
}
