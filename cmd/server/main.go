package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sfdfinance/finance-core/internal/api"
	"github.com/sfdfinance/finance-core/internal/core/service"
	"github.com/sfdfinance/finance-core/internal/infrastructure/config"
	"github.com/sfdfinance/finance-core/internal/infrastructure/db/mongo"
	"github.com/sfdfinance/finance-core/internal/infrastructure/db/redis"
	"github.com/sfdfinance/finance-core/internal/infrastructure/notification"
	"github.com/sfdfinance/finance-core/internal/infrastructure/queue"
	"github.com/sfdfinance/finance-core/pkg/logger"
)

func main() {
	cfg := config.Load(slog.Default())

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Service: "finance-core",
		Pretty:  cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---
	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongodb disconnect failed")
		}
	}()

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("redis close failed")
		}
	}()

	// --- Repositories ---
	accountRepo := mongo.NewAccountRepository(db)
	transferRepo := mongo.NewTransferRepository(db)
	loanRepo := mongo.NewLoanRepository(db)
	poolRepo := mongo.NewSubsidyPoolRepository(db)
	auditRepo := mongo.NewAuditRepository(db)
	authRepo := mongo.NewAuthRepository(db)

	for name, ensure := range map[string]func(context.Context) error{
		"accounts":      accountRepo.EnsureIndexes,
		"transfers":     transferRepo.EnsureIndexes,
		"loan_requests": loanRepo.EnsureIndexes,
		"subsidy_pools": poolRepo.EnsureIndexes,
		"audit_log":     auditRepo.EnsureIndexes,
		"users":         authRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Fatal().Err(err).Str("collection", name).Msg("index creation failed")
		}
	}

	// --- Broadcast fan-out ---
	publisher := redis.NewPublisher(rdb)
	dispatcher := queue.NewDispatcher(cfg.Broadcast.Workers, publisher, log)
	dispatcher.Start(ctx)

	// --- Services ---
	txRunner := mongo.NewTxRunner(mongoClient)
	alertMarker := redis.NewAlertMarker(rdb)
	sink := notification.NewLogSink(log)

	ledgerService := service.NewLedgerService(accountRepo, transferRepo, auditRepo, txRunner, dispatcher, cfg.Ledger.MaxRetries, log)
	subsidyService := service.NewSubsidyService(poolRepo, auditRepo, txRunner, dispatcher, sink, alertMarker, cfg.Ledger.MaxRetries, log)
	loanService := service.NewLoanService(loanRepo, accountRepo, ledgerService, subsidyService, auditRepo, txRunner, dispatcher, cfg.Ledger.MaxRetries, log)
	authService := service.NewAuthService(authRepo, cfg.JWTSecret, 24*time.Hour)

	// --- HTTP server ---
	e := api.NewRouter(api.Deps{
		Ledger:    ledgerService,
		Loans:     loanService,
		Subsidies: subsidyService,
		Auth:      authService,
		Audit:     auditRepo,
		Mongo:     db,
		Redis:     rdb,
		JWTSecret: cfg.JWTSecret,
		Logger:    log,
	})

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
