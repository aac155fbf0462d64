package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/virtualnum-wallet-ledger/internal/config"
	"github.com/virtualnum-wallet-ledger/internal/data/postgres"
	"github.com/virtualnum-wallet-ledger/internal/logger"
	"github.com/virtualnum-wallet-ledger/internal/payment_worker/dispatch"
	"github.com/virtualnum-wallet-ledger/internal/payment_worker/poller"
	"github.com/virtualnum-wallet-ledger/internal/payment_worker/provider"
	"github.com/virtualnum-wallet-ledger/internal/platform/messaging/producers"
	"github.com/virtualnum-wallet-ledger/internal/platform/persistence"
	"github.com/virtualnum-wallet-ledger/internal/wallet/lock"
	"github.com/virtualnum-wallet-ledger/internal/wallet/mutator"
	"github.com/virtualnum-wallet-ledger/internal/wallet/pipeline"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("payment_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Payment Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize database with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	customerRepo := postgres.NewCustomerRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	paymentRepo := postgres.NewPaymentEventRepository(log, postgresDB)
	rechargeRepo := postgres.NewRechargeRepository(log, postgresDB)
	outboxRepo := postgres.NewNotificationOutboxRepository(log, postgresDB)

	// Initialize Kafka producers
	notificationProducer, err := producers.NewNotificationProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize notification Kafka producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Dispatcher is nil-safe.

	// Initialize confirmation pipeline
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

	// Initialize polling fallback
	pixClient := provider.NewPixClient(log, &cfg.Provider)
	paymentPoller, err := poller.NewPoller(&cfg.Poller, paymentRepo, pixClient, confirmationPipeline, log)
	if err != nil {
		log.Error("Failed to initialize payment poller", "error", err)
		os.Exit(1)
	}

	// Initialize notification outbox dispatcher. A typed-nil DLQ producer must
	// not reach the dispatcher's interface field.
	var dlqPublisher producers.DeadLetterPublisher
	if dlqProducer != nil {
		dlqPublisher = dlqProducer
	}
	dispatcher := dispatch.NewDispatcher(&cfg.Notification, outboxRepo, notificationProducer, dlqPublisher, log)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start payment poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		paymentPoller.Start(appCtx)
	}()

	// Start notification dispatcher in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal
	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Release the poller's worker pool
	paymentPoller.Shutdown()

	// Close Kafka producers
	if err = notificationProducer.Close(); err != nil {
		log.Error("Error closing notification Kafka producer", "error", err)
	}
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if err != nil {
		log.Error("Payment Worker shutdown completed with errors")
	} else {
		log.Info("Payment Worker shutdown completed successfully")
	}
}
