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
	"github.com/property-shares/backend/internal/logger"
	"github.com/property-shares/backend/internal/repositories"
	"github.com/property-shares/backend/internal/services"
	"github.com/property-shares/backend/migrations"
)

func main() {
	cfg := config.Load()

	lg, err := logger.New(logger.Config{
		Debug:       cfg.Debug,
		SentryDSN:   cfg.SentryDSN,
		Environment: cfg.Environment,
		Service:     "audit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Close(2 * time.Second)
	log := lg.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, "audit", 4, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// audit_runs may not exist yet when the audit starts before the api
	if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	auditor := services.NewAuditor(
		repositories.NewJournalRepo(pool),
		repositories.NewAuditRepo(pool),
		cfg.ReplayPageSize,
		log,
	)

	log.Info("audit started", zap.Duration("interval", cfg.AuditInterval))

	runAudit := func() {
		if _, err := auditor.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("audit run failed", zap.Error(err))
		}
	}
	runAudit()

	ticker := time.NewTicker(cfg.AuditInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			runAudit()
		case <-sigCh:
			log.Info("shutting down audit")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
