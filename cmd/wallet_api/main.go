package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/virtualnum-wallet-ledger/internal/config"
	"github.com/virtualnum-wallet-ledger/internal/data/mongo"
	"github.com/virtualnum-wallet-ledger/internal/data/postgres"
	"github.com/virtualnum-wallet-ledger/internal/logger"
	"github.com/virtualnum-wallet-ledger/internal/payment_worker/provider"
	"github.com/virtualnum-wallet-ledger/internal/platform/persistence"
	"github.com/virtualnum-wallet-ledger/internal/wallet/lock"
	"github.com/virtualnum-wallet-ledger/internal/wallet/mutator"
	"github.com/virtualnum-wallet-ledger/internal/wallet/pipeline"
	"github.com/virtualnum-wallet-ledger/internal/wallet/reconcile"
	"github.com/virtualnum-wallet-ledger/internal/wallet_api"
	"github.com/virtualnum-wallet-ledger/internal/wallet_api/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("wallet_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	customerRepo := postgres.NewCustomerRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	paymentRepo := postgres.NewPaymentEventRepository(log, postgresDB)
	rechargeRepo := postgres.NewRechargeRepository(log, postgresDB)
	outboxRepo := postgres.NewNotificationOutboxRepository(log, postgresDB)
	archive := mongo.NewAuditArchive(log, mongoDB.Database())

	// Initialize wallet core
	lockManager := lock.NewManager(log, cfg.Lock.HoldWarnThreshold)
	balanceMutator := mutator.NewBalanceMutator(customerRepo, ledgerRepo, outboxRepo, log)
	confirmationPipeline := pipeline.NewConfirmationPipeline(
		postgresDB,
		lockManager,
		balanceMutator,
		paymentRepo,
		rechargeRepo,
		outboxRepo,
		log,
	)
	reconcileEngine := reconcile.NewEngine(postgresDB, customerRepo, ledgerRepo, archive, cfg.Reconciliation, log)

	// Initialize provider client and services
	pixClient := provider.NewPixClient(log, &cfg.Provider)

	services := wallet_api.Services{
		Wallet:   service.NewWalletService(postgresDB, lockManager, balanceMutator, customerRepo, ledgerRepo, log),
		Recharge: service.NewRechargeService(customerRepo, paymentRepo, rechargeRepo, pixClient, cfg.Provider.ChargeExpiry, log),
		Webhook:  service.NewWebhookService(confirmationPipeline, paymentRepo, log),
		Audit:    service.NewAuditService(reconcileEngine, archive),
		Archive:  archive,
	}

	// Initialize REST server
	server := wallet_api.NewServer(log, cfg, services)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so in-flight operations finish against live pools
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
