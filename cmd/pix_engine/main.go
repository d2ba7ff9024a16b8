package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/meridianbank/pix-engine/internal/config"
	"github.com/meridianbank/pix-engine/internal/data/mongo"
	"github.com/meridianbank/pix-engine/internal/data/postgres"
	"github.com/meridianbank/pix-engine/internal/ledgersvc"
	"github.com/meridianbank/pix-engine/internal/logger"
	"github.com/meridianbank/pix-engine/internal/pix_engine/consumer"
	"github.com/meridianbank/pix-engine/internal/pix_engine/dispatch"
	"github.com/meridianbank/pix-engine/internal/pix_engine/intake"
	"github.com/meridianbank/pix-engine/internal/pix_engine/service"
	"github.com/meridianbank/pix-engine/internal/pix_engine/sweep"
	"github.com/meridianbank/pix-engine/internal/platform/health"
	"github.com/meridianbank/pix-engine/internal/platform/messaging/consumers"
	"github.com/meridianbank/pix-engine/internal/platform/messaging/producers"
	"github.com/meridianbank/pix-engine/internal/platform/persistence"
	"github.com/meridianbank/pix-engine/internal/psp"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("pix_engine")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Pix Engine",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Run database migrations
	if err := persistence.RunMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
		log.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

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
	depositRepo := postgres.NewDepositRepository(log, postgresDB)
	paymentRepo := postgres.NewPaymentRepository(log, postgresDB)
	devolutionRepo := postgres.NewDevolutionRepository(log, postgresDB)
	devolutionReceivedRepo := postgres.NewDevolutionReceivedRepository(log, postgresDB)
	refundRepo := postgres.NewRefundRepository(log, postgresDB)
	refundDevolutionRepo := postgres.NewRefundDevolutionRepository(log, postgresDB)
	infractionRepo := postgres.NewInfractionRepository(log, postgresDB)
	fraudDetectionRepo := postgres.NewFraudDetectionRepository(log, postgresDB)
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	bankRepo := postgres.NewBankRepository(log, postgresDB)
	journalRepo := mongo.NewJournalRepository(log, mongoDB.Database())

	// Initialize external clients
	pspClient := psp.NewClient(log, cfg.PSP.BaseURL, cfg.PSP.APIKey, cfg.PSP.Timeout)
	ledgerClient := ledgersvc.NewClient(log, cfg.Ledger.BaseURL, cfg.Ledger.Timeout)

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka producers
	eventProducer, err := producers.NewEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize event Kafka producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler should be nil-safe.

	// Initialize use cases
	useCases := service.UseCases{
		DepositIntake: intake.NewDepositIntake(
			depositRepo, walletRepo, bankRepo, ledgerClient,
			eventProducer, journalRepo, log,
			cfg.Bank.ISPB, cfg.Bank.ReviewDocuments,
		),
		DevolutionRecvIntake: intake.NewDevolutionReceivedIntake(
			devolutionReceivedRepo, paymentRepo, walletRepo, ledgerClient,
			eventProducer, journalRepo, log,
		),
		PaymentIntake: intake.NewPaymentIntake(
			paymentRepo, walletRepo, bankRepo, eventProducer, journalRepo, log,
		),
		PaymentDispatch: dispatch.NewPaymentDispatch(
			paymentRepo, pspClient, ledgerClient, eventProducer, journalRepo, log,
		),
		DevolutionIntake: intake.NewDevolutionIntake(
			devolutionRepo, depositRepo, eventProducer, journalRepo, log,
		),
		DevolutionDispatch: dispatch.NewDevolutionDispatch(
			devolutionRepo, depositRepo, walletRepo, pspClient, ledgerClient,
			eventProducer, journalRepo, log,
		),
		RefundIntake: intake.NewRefundIntake(
			refundRepo, depositRepo, devolutionReceivedRepo,
			eventProducer, journalRepo, log,
		),
		RefundDispatch: dispatch.NewRefundDispatch(
			refundRepo, pspClient, eventProducer, journalRepo, log,
		),
		RefundDevIntake: intake.NewRefundDevolutionIntake(
			refundDevolutionRepo, refundRepo, eventProducer, journalRepo, log,
		),
		RefundDevDispatch: dispatch.NewRefundDevolutionDispatch(
			refundDevolutionRepo, depositRepo, devolutionReceivedRepo, walletRepo,
			pspClient, ledgerClient, eventProducer, journalRepo, log,
		),
		InfractionIntake: intake.NewInfractionIntake(
			infractionRepo, depositRepo, devolutionReceivedRepo,
			eventProducer, journalRepo, log,
		),
		InfractionDispatch: dispatch.NewInfractionDispatch(
			infractionRepo, pspClient, eventProducer, journalRepo, log,
		),
		FraudDetectionIntake: intake.NewFraudDetectionIntake(
			fraudDetectionRepo, eventProducer, journalRepo, log,
		),
		FraudDetectionDispatch: dispatch.NewFraudDetectionDispatch(
			fraudDetectionRepo, pspClient, eventProducer, journalRepo, log,
		),
	}

	// Initialize processing service with a worker pool on top of the router
	routingService := service.NewRoutingService(useCases, log)
	processingService, err := service.NewWorkerPoolProcessingService(routingService, service.WorkerPoolConfig(cfg.WorkerPool), log)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize message handler
	pixEventHandler := consumer.NewPixEventHandler(
		log,
		processingService,
		dlqProducer, // Pass the DLQ producer
	)

	// Initialize reconciliation sweeps
	paymentSweep := sweep.NewPaymentSweep(
		paymentRepo, pspClient, eventProducer, journalRepo, log,
		cfg.Sweep.PaymentNormalThreshold, cfg.Sweep.PaymentUrgentThreshold,
		cfg.Sweep.BatchSize,
	)
	devolutionSweep := sweep.NewDevolutionSweep(
		devolutionRepo, pspClient, eventProducer, journalRepo, log,
		cfg.Sweep.DevolutionThreshold, cfg.Sweep.BatchSize,
	)
	refundDevolutionSweep := sweep.NewRefundDevolutionSweep(
		refundDevolutionRepo, pspClient, eventProducer, journalRepo, log,
		cfg.Sweep.RefundDevolutionThreshold, cfg.Sweep.BatchSize,
	)

	scheduler := cron.New()
	schedule := cron.Every(cfg.Sweep.Interval)
	scheduler.Schedule(schedule, sweepJob(appCtx, log, "payment", paymentSweep.Run))
	scheduler.Schedule(schedule, sweepJob(appCtx, log, "devolution", devolutionSweep.Run))
	scheduler.Schedule(schedule, sweepJob(appCtx, log, "refund_devolution", refundDevolutionSweep.Run))

	// Initialize health and metrics server
	healthServer := health.NewServer(log, cfg, postgresDB, mongoDB)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.PixTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.PixTopic, cfg.Kafka.ConsumerGroup, pixEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start HTTP health/metrics server in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting health server", "port", cfg.Server.Port)
		if err := healthServer.Start(); err != nil {
			errChan <- fmt.Errorf("health server error: %w", err)
		}
	}()

	// Start the sweep scheduler
	log.Info("Starting reconciliation sweeps",
		"interval", cfg.Sweep.Interval.String(),
		"batch_size", cfg.Sweep.BatchSize,
	)
	scheduler.Start()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Stop scheduling new sweep runs and wait for in-flight ones
	sweepCtx := scheduler.Stop()
	<-sweepCtx.Done()

	// Shutdown the worker pool
	log.Info("Shutting down worker pool", "running_workers", processingService.Running())
	processingService.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	if err := healthServer.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping health server", "error", err)
	}

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

	// Close Kafka producers
	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing event Kafka producer", "error", err)
	}
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Pix Engine shutdown with errors", "error", serviceErr)
	} else {
		log.Info("Pix Engine shutdown completed successfully")
	}
}

// sweepJob adapts a sweep to a cron job. Failures are logged, never fatal;
// the next tick retries.
func sweepJob(ctx context.Context, log *slog.Logger, name string, run func(context.Context) error) cron.Job {
	return cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		if err := run(ctx); err != nil {
			log.Error("Reconciliation sweep failed", "sweep", name, "error", err)
		}
	})
}
