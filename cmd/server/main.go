package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcapi "gearshare-backend/internal/api/grpc"
	httpapi "gearshare-backend/internal/api/http"
	"gearshare-backend/internal/config"
	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/jobs"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/processor"
	"gearshare-backend/internal/repository"
	"gearshare-backend/internal/repository/memory"
	"gearshare-backend/internal/repository/postgres"
	"gearshare-backend/internal/scheduler"
	"gearshare-backend/internal/security"
	"gearshare-backend/internal/service"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// repositories is the subset of a store the server wires into services
type repositories struct {
	bookings      repository.BookingRepository
	messages      repository.MessageRepository
	reviews       repository.ReviewRepository
	users         repository.UserRepository
	gear          repository.GearRepository
	notifications repository.NotificationRepository
	deliveries    repository.WebhookDeliveryRepository
	pinger        grpcapi.Pinger
}

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Optional dotenv file loaded before the configuration")
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
	logger.Info("Starting GearShare booking backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http", cfg.GetServerAddress(), "grpc", cfg.GetGRPCAddress())
	logger.Info("Payments configuration", "provider", cfg.Payments.Provider, "currency", cfg.Payments.Currency,
		"renter_fee_bps", cfg.Payments.RenterFeeBps, "owner_fee_bps", cfg.Payments.OwnerFeeBps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeDB := openRepositories(cfg)
	defer closeDB()

	// Payment processor
	var proc processor.Processor
	switch cfg.Payments.Provider {
	case "stripe":
		proc = processor.NewStripeProcessor(cfg.Payments.SecretKey)
	default:
		logger.Info("Using mock payment processor", "auto_succeed", cfg.Payments.MockAutoSucceed)
		proc = processor.NewMockProcessor(cfg.Payments.WebhookSecret, cfg.Payments.MockAutoSucceed)
	}
	verifier := processor.NewStripeVerifier(cfg.Payments.WebhookSecret, time.Duration(cfg.Payments.WebhookTolerance)*time.Second)

	// Notification delivery
	emailSvc := service.NewEmailService(cfg.Notifications.SendGridAPIKey, cfg.Notifications.FromEmail, cfg.Notifications.FromName)
	pushSvc, err := service.NewPushService(ctx, cfg.Notifications.FirebaseCredentialsFile)
	if err != nil {
		logger.Error("Failed to initialize push service", "error", err)
		log.Fatalf("Failed to initialize push service: %v", err)
	}

	// Initialize Services
	feePolicy := domain.FeePolicy{RenterBps: cfg.Payments.RenterFeeBps, OwnerBps: cfg.Payments.OwnerFeeBps}
	deliveryQueue := service.NewDeliveryQueue(cfg.Notifications.DeliveryWorkers, cfg.Notifications.DeliveryQueueSize,
		cfg.Notifications.DeliveryMaxRetries, time.Duration(cfg.Notifications.DeliveryTimeoutSecs)*time.Second)
	deliveryQueue.Start()
	defer deliveryQueue.Stop()
	noteSvc := service.NewNotificationService(repos.notifications, repos.users, emailSvc, pushSvc, deliveryQueue)
	bookingSvc := service.NewBookingService(repos.bookings, repos.gear, proc, noteSvc, feePolicy, cfg.Payments.Currency)
	paymentSvc := service.NewPaymentService(repos.bookings, repos.users, bookingSvc, proc)
	webhookSvc := service.NewWebhookService(verifier, repos.bookings, repos.deliveries, bookingSvc, paymentSvc)
	reviewSvc := service.NewReviewService(repos.bookings, repos.reviews)
	messageSvc := service.NewMessageService(repos.bookings, repos.messages, noteSvc)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret)

	// HTTP API
	handler := httpapi.NewHandler(bookingSvc, paymentSvc, webhookSvc, reviewSvc, messageSvc, noteSvc)
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           httpapi.NewRouter(handler, httpapi.NewAuthMiddleware(tokenManager)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC health server
	reporter := grpcapi.NewHealthReporter(repos.pinger, 15*time.Second)
	go reporter.Run(ctx)
	grpcServer := grpcapi.NewServer(reporter, tokenManager)
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	// The memory store lives in this process, so its jobs must run here too
	if cfg.Database.Driver == "memory" {
		runner := jobs.NewJobRunner(repos.bookings, &jobs.Services{Bookings: bookingSvc, Payments: paymentSvc, Processor: proc}, cfg)
		cronScheduler, err := scheduler.NewScheduler(runner)
		if err != nil {
			log.Fatalf("Failed to register jobs: %v", err)
		}
		cronScheduler.Start()
		defer cronScheduler.Stop()
	}

	go func() {
		logger.Info("gRPC health server listening", "address", cfg.GetGRPCAddress())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()
	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Server stopped. Goodbye!")
}

// openRepositories connects the configured store. The returned func releases it.
func openRepositories(cfg *config.Config) (*repositories, func()) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		store := memory.NewStore()
		seedDemoData(store)
		return &repositories{
			bookings:      store.BookingRepository,
			messages:      store.MessageRepository,
			reviews:       store.ReviewRepository,
			users:         store.UserRepository,
			gear:          store.GearRepository,
			notifications: store.NotificationRepository,
			deliveries:    store.WebhookDeliveryRepository,
			pinger:        store,
		}, func() {}
	}

	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)
	return &repositories{
		bookings:      store.BookingRepository,
		messages:      store.MessageRepository,
		reviews:       store.ReviewRepository,
		users:         store.UserRepository,
		gear:          store.GearRepository,
		notifications: store.NotificationRepository,
		deliveries:    store.WebhookDeliveryRepository,
		pinger:        store,
	}, func() { db.Close() }
}

// seedDemoData gives the memory store a renter, an owner and one listing.
func seedDemoData(store *memory.Store) {
	store.PutUser(domain.User{ID: "demo-renter", Email: "renter@gearshare.local", DisplayName: "Demo Renter", ProcessorAccountID: "acct_demo_renter"})
	store.PutUser(domain.User{ID: "demo-owner", Email: "owner@gearshare.local", DisplayName: "Demo Owner", ProcessorAccountID: "acct_demo_owner"})
	store.PutGear(domain.Gear{ID: "demo-kayak", OwnerID: "demo-owner", Title: "Touring kayak", DailyRateCents: 4500, Currency: "usd"})
	logger.Info("Seeded demo data", "users", 2, "gear", 1)
}
