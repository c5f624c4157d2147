package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/config"
	"github.com/property-shares/backend/internal/db"
	"github.com/property-shares/backend/internal/events"
	apphttp "github.com/property-shares/backend/internal/http"
	"github.com/property-shares/backend/internal/http/dto"
	"github.com/property-shares/backend/internal/http/handlers"
	"github.com/property-shares/backend/internal/identity"
	"github.com/property-shares/backend/internal/ledger"
	"github.com/property-shares/backend/internal/logger"
	"github.com/property-shares/backend/internal/metadata"
	"github.com/property-shares/backend/internal/models"
	"github.com/property-shares/backend/internal/payments"
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
		Service:     "api",
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

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, "api", 20, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, "api", log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	journalRepo := repositories.NewJournalRepo(pool)

	// Collaborators
	registry := identity.NewRegistry(rdb, identity.DefaultVerifiedKey, log)
	var checker ledger.IdentityChecker = registry
	if !cfg.KYCRequired {
		checker = ledger.AllowAll{}
	}
	fallback := map[string]models.Rate{}
	if rate, ok := cfg.NativeRate(); ok {
		fallback[models.CurrencyNative] = rate
	}
	rates := payments.NewRedisRates(rdb, fallback, log)
	units := payments.NewUnits(cfg.StableDecimals, cfg.NativeDecimals)

	// Ledger
	engine := ledger.New(journalRepo, ledger.SystemClock{}, checker, rates, ledger.Options{
		MinSaleWindow:       cfg.MinSaleWindow,
		MaxSaleWindow:       cfg.MaxSaleWindow,
		MinProposalDuration: cfg.MinProposalDuration,
		MaxProposalDuration: cfg.MaxProposalDuration,
		WeightPolicy:        cfg.VoteWeightPolicy,
		ReplayPageSize:      cfg.ReplayPageSize,
	}, log)

	started := time.Now()
	n, err := engine.Replay(ctx)
	if err != nil {
		log.Fatal("failed to replay journal", zap.Error(err))
	}
	log.Info("journal replayed",
		zap.Int("events", n),
		zap.Int64("last_seq", engine.LastSeq()),
		zap.Duration("took", time.Since(started)),
	)
	if err := engine.CheckInvariants(); err != nil {
		log.Error("ledger invariants violated after replay", zap.Error(err))
	}
	if cfg.LedgerOwner != "" {
		if err := engine.Bootstrap(ctx, cfg.LedgerOwner, cfg.AdminHolderIDs); err != nil {
			log.Fatal("failed to bootstrap ledger", zap.Error(err))
		}
	}

	// Events
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	fetcher := metadata.NewFetcher(cfg.MetadataFetchTimeoutMS, cfg.MetadataFetchMaxRetries, log)
	previews := services.NewPreviewService(fetcher, rdb, time.Hour, log)

	// Handlers
	wsHub := handlers.NewWSHub(cfg, subscriber, log)
	h := apphttp.Handlers{
		Meta:       handlers.NewMetaHandler(units, rates),
		Property:   handlers.NewPropertyHandler(engine, previews, units, log),
		Sale:       handlers.NewSaleHandler(engine, units, log),
		Market:     handlers.NewMarketHandler(engine, units, log),
		Rent:       handlers.NewRentHandler(engine, units, log),
		Governance: handlers.NewGovernanceHandler(engine, units, log),
		Admin:      handlers.NewAdminHandler(engine, registry, units, log),
		Holder:     handlers.NewHolderHandler(engine, journalRepo, log),
		Ops:        handlers.NewOpsHandler(engine),
		WS:         wsHub,
	}

	// Start WS hub
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to subscribe ws hub", zap.Error(err))
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, engine, h)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
