package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/auth"
	"github.com/property-shares/backend/internal/config"
	"github.com/property-shares/backend/internal/logger"
	"github.com/property-shares/backend/internal/services"
)

// The settlement worker holds no ledger state. It polls the API for passed
// time gates and triggers conclude / finalize with a service token; the
// service holder needs the operator role.
func main() {
	cfg := config.Load()

	lg, err := logger.New(logger.Config{
		Debug:       cfg.Debug,
		SentryDSN:   cfg.SentryDSN,
		Environment: cfg.Environment,
		Service:     "worker",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Close(2 * time.Second)
	log := lg.Logger

	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tokens := func() (string, error) {
		return auth.GenerateJWT(cfg.JWTSecret, cfg.ServiceHolderID, true, 5*time.Minute)
	}
	client := services.NewLedgerClient(cfg.LedgerAPIURL, tokens, log)
	sweeper := services.NewSettlementSweeper(client, cfg.SweepConcurrency, log)

	log.Info("worker started",
		zap.String("api", cfg.LedgerAPIURL),
		zap.String("service_holder", cfg.ServiceHolderID),
		zap.Duration("interval", cfg.SweepInterval),
	)

	sweep := func() {
		if _, err := sweeper.Sweep(ctx); err != nil && ctx.Err() == nil {
			log.Error("sweep failed", zap.Error(err))
		}
	}
	sweep()

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			sweep()
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
