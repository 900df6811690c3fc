package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gearshare-backend/internal/config"
	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/jobs"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/processor"
	"gearshare-backend/internal/repository/postgres"
	"gearshare-backend/internal/scheduler"
	"gearshare-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Optional dotenv file loaded before the configuration")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'expire-pending-requests', 'all')")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting GearShare Cronjob Runner...", "log_level", cfg.Log.Level)

	if cfg.Database.Driver != "postgres" {
		log.Fatalf("The cronjob runner needs the postgres driver; the server runs jobs itself for %q", cfg.Database.Driver)
	}
	if cfg.Payments.Provider != "stripe" {
		log.Fatalf("The cronjob runner needs the stripe payments provider, got %q", cfg.Payments.Provider)
	}

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Services
	proc := processor.NewStripeProcessor(cfg.Payments.SecretKey)
	emailSvc := service.NewEmailService(cfg.Notifications.SendGridAPIKey, cfg.Notifications.FromEmail, cfg.Notifications.FromName)
	pushSvc, err := service.NewPushService(context.Background(), cfg.Notifications.FirebaseCredentialsFile)
	if err != nil {
		log.Fatalf("Failed to initialize push service: %v", err)
	}
	deliveryQueue := service.NewDeliveryQueue(cfg.Notifications.DeliveryWorkers, cfg.Notifications.DeliveryQueueSize,
		cfg.Notifications.DeliveryMaxRetries, time.Duration(cfg.Notifications.DeliveryTimeoutSecs)*time.Second)
	deliveryQueue.Start()
	defer deliveryQueue.Stop()
	noteSvc := service.NewNotificationService(store.NotificationRepository, store.UserRepository, emailSvc, pushSvc, deliveryQueue)
	feePolicy := domain.FeePolicy{RenterBps: cfg.Payments.RenterFeeBps, OwnerBps: cfg.Payments.OwnerFeeBps}
	bookingSvc := service.NewBookingService(store.BookingRepository, store.GearRepository, proc, noteSvc, feePolicy, cfg.Payments.Currency)
	paymentSvc := service.NewPaymentService(store.BookingRepository, store.UserRepository, bookingSvc, proc)

	jobServices := &jobs.Services{
		Bookings:  bookingSvc,
		Payments:  paymentSvc,
		Processor: proc,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store.BookingRepository, jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to register jobs: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "expire-pending-requests":
		jobRunner.ExpirePendingRequests()
	case "cancel-abandoned-holds":
		jobRunner.CancelAbandonedHolds()
	case "retry-pending-payouts":
		jobRunner.RetryPendingPayouts()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - expire-pending-requests\n")
		fmt.Printf("  - cancel-abandoned-holds\n")
		fmt.Printf("  - retry-pending-payouts\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
