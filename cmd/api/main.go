package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"referral-rewards-backend/config"
	"referral-rewards-backend/internal/adapter/gateway"
	httpHandler "referral-rewards-backend/internal/adapter/http/handler"
	pgStorage "referral-rewards-backend/internal/adapter/storage/postgres"
	redisStorage "referral-rewards-backend/internal/adapter/storage/redis"
	"referral-rewards-backend/internal/core/ports"
	"referral-rewards-backend/internal/service"
	"referral-rewards-backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Referral Rewards Backend")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	memberRepo := pgStorage.NewMemberRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	merchantRepo := pgStorage.NewMerchantRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	charity := redisStorage.NewCharityCounter(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	notifier := service.NewSinkNotifier(cfg.Notify.SinkURL, &http.Client{Timeout: cfg.Notify.Timeout}, log)

	// Initialize payment gateway client
	gw := gateway.NewClient(cfg.Gateway, log)

	// Initialize business services
	ledgerSvc := service.NewLedgerService(walletRepo, txRepo, transactor, log)
	commissionSvc := service.NewCommissionService(memberRepo, walletRepo, ledgerSvc, notifier, log)
	spendSvc := service.NewSpendService(
		memberRepo,
		walletRepo,
		merchantRepo,
		ledgerSvc,
		commissionSvc,
		charity,
		notifier,
		cfg.Rewards.MerchantCacheTTL,
		log,
	)
	billingSvc := service.NewBillingService(
		memberRepo,
		walletRepo,
		txRepo,
		transactor,
		gw,
		cfg.Rewards.VIPPackagePrice,
		log,
	)
	authSvc := service.NewAuthService(memberRepo, walletRepo, hashSvc, tokenSvc)
	reconcileSvc := service.NewReconcileService(
		txRepo,
		memberRepo,
		walletRepo,
		transactor,
		gw,
		commissionSvc,
		notifier,
		cfg.Scheduler.PollInterval,
		cfg.Scheduler.BillExpiry,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Start the reconciliation loop
	reconcileCtx, stopReconcile := context.WithCancel(ctx)
	go reconcileSvc.Run(reconcileCtx)
	log.Info().
		Dur("poll_interval", cfg.Scheduler.PollInterval).
		Dur("bill_expiry", cfg.Scheduler.BillExpiry).
		Msg("Reconciliation loop started")

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		SpendSvc:       spendSvc,
		BillingSvc:     billingSvc,
		LedgerSvc:      ledgerSvc,
		WalletRepo:     walletRepo,
		TxRepo:         txRepo,
		Charity:        charity,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopReconcile()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
