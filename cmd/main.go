package main

import (
	"context"
	"errors"
	"fmt"
	"library-engine/internal/api"
	"library-engine/internal/batch"
	"library-engine/internal/config"
	"library-engine/internal/domain/borrower"
	"library-engine/internal/domain/catalog"
	"library-engine/internal/domain/circulation"
	"library-engine/internal/domain/review"
	"library-engine/internal/event"
	"library-engine/internal/infrastructure/database/postgres"
	"library-engine/internal/infrastructure/logging"
	"library-engine/internal/notification"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// @title Library Engine API
// @version 1.0
// @description Catalog, loans, reservations and fines for a lending library.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool := initializeDatabase(ctx, cfg, logger)
	defer closeDatabase(dbPool, logger)

	rabbitConn := connectRabbitMQ(cfg.RabbitMQ, logger)
	defer closeRabbitMQ(rabbitConn, logger)

	app := initializeServices(dbPool, rabbitConn, cfg, logger)

	consumer := startNotificationConsumer(ctx, rabbitConn, cfg, app, logger)

	cronScheduler := startBatchJobs(cfg, app, logger)
	router := api.SetupRouter(ctx, app.services, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)

	if consumer != nil {
		consumer.Stop()
	}
	cancel()
}

// application groups the wired services and the stores the background
// workers read from directly.
type application struct {
	services     api.Services
	loans        *postgres.LoanRepository
	borrowers    *postgres.BorrowerRepository
	reservations *postgres.ReservationRepository
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	if cfg.Server.Auth.Enabled && cfg.Server.Auth.JWTSecret == "" {
		logger.Error("Authentication is enabled but server.auth.jwtSecret is empty")
		os.Exit(1)
	}

	return cfg, logger
}

func initializeDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.ApplySchema(ctx, dbPool, logger); err != nil {
			logger.Error("Failed to apply database schema", "error", err)
			dbPool.Close()
			os.Exit(1)
		}
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

// connectRabbitMQ returns nil when messaging is disabled; events are then
// only logged.
func connectRabbitMQ(cfg config.RabbitMQConfig, logger *slog.Logger) *amqp.Connection {
	if !cfg.Enabled {
		logger.Info("RabbitMQ disabled, circulation events will not be published")
		return nil
	}
	logger.Info("Connecting to RabbitMQ", "host", cfg.Host, "port", cfg.Port)
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Connected to RabbitMQ")
	return conn
}

func closeRabbitMQ(conn *amqp.Connection, logger *slog.Logger) {
	if conn == nil {
		return
	}
	logger.Info("Closing RabbitMQ connection...")
	if err := conn.Close(); err != nil {
		logger.Error("Error closing RabbitMQ connection", slog.Any("error", err))
	}
}

func newPublisher(conn *amqp.Connection, cfg config.RabbitMQConfig, logger *slog.Logger) event.Publisher {
	if conn == nil {
		return event.NewNopPublisher(logger)
	}
	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.ExchangeName, logger)
	if err != nil {
		logger.Error("Failed to create RabbitMQ publisher", slog.Any("error", err))
		os.Exit(1)
	}
	return publisher
}

func initializeServices(dbPool *pgxpool.Pool, rabbitConn *amqp.Connection, cfg *config.Config, logger *slog.Logger) *application {
	logger.Info("Initializing application components...")

	policy, err := circulation.PolicyFromConfig(cfg.Library)
	if err != nil {
		logger.Error("Invalid library configuration", "error", err)
		os.Exit(1)
	}

	bookRepo := postgres.NewBookRepository(dbPool, logger)
	borrowerRepo := postgres.NewBorrowerRepository(dbPool, logger)
	loanRepo := postgres.NewLoanRepository(dbPool, logger)
	reservationRepo := postgres.NewReservationRepository(dbPool, logger)
	fineRepo := postgres.NewFineRepository(dbPool, logger)
	reviewRepo := postgres.NewReviewRepository(dbPool, logger)
	publisher := newPublisher(rabbitConn, cfg.RabbitMQ, logger)

	circulationService := circulation.NewService(circulation.Stores{
		Tx:           postgres.NewTransactor(dbPool, logger),
		Books:        bookRepo,
		Borrowers:    borrowerRepo,
		Loans:        loanRepo,
		Reservations: reservationRepo,
		Fines:        fineRepo,
	}, policy, publisher, logger)

	return &application{
		services: api.Services{
			Borrowers:   borrower.NewService(borrowerRepo, publisher, logger),
			Catalog:     catalog.NewService(bookRepo, cfg.Library.SearchPageSize, logger),
			Circulation: circulationService,
			Reviews:     review.NewService(reviewRepo, loanRepo, logger),
		},
		loans:        loanRepo,
		borrowers:    borrowerRepo,
		reservations: reservationRepo,
	}
}

// startNotificationConsumer subscribes the notifier to circulation events.
// It returns nil when RabbitMQ is disabled.
func startNotificationConsumer(ctx context.Context, conn *amqp.Connection, cfg *config.Config, app *application, logger *slog.Logger) *event.Consumer {
	if conn == nil {
		return nil
	}
	handler := notification.NewHandler(app.reservations, app.borrowers, logger)
	consumer, err := event.NewConsumer(
		conn,
		cfg.RabbitMQ.ExchangeName,
		cfg.RabbitMQ.QueueName,
		cfg.RabbitMQ.ConsumerTag,
		notification.RoutingKeys,
		handler.HandleDelivery,
		logger,
	)
	if err != nil {
		logger.Error("Failed to create RabbitMQ consumer", slog.Any("error", err))
		os.Exit(1)
	}
	if err := consumer.Start(ctx); err != nil {
		logger.Error("Failed to start RabbitMQ consumer", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Notification consumer started")
	return consumer
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		triggerReason = "server exited"
		logger.Info("Server goroutine finished before signal.", "error", err)
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}

	logger.Info("Application shutdown process complete.")
}

func startBatchJobs(cfg *config.Config, app *application, logger *slog.Logger) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	overdueSpec := cfg.Batch.OverdueSweepSchedule
	if overdueSpec == "" {
		overdueSpec = "0 2 * * *"
		logger.Warn("Overdue sweep schedule not configured, using default", "schedule", overdueSpec)
	}
	expirySpec := cfg.Batch.ReservationExpirySchedule
	if expirySpec == "" {
		expirySpec = "*/15 * * * *"
		logger.Warn("Reservation expiry schedule not configured, using default", "schedule", expirySpec)
	}

	overdueJob := batch.NewOverdueSweepJob(app.loans, app.services.Circulation, logger)
	expiryJob := batch.NewReservationExpiryJob(app.services.Circulation, logger)

	// Schedule logs its own failures; a bad schedule leaves the server running
	// without that sweep.
	_, _ = batch.Schedule(c, overdueSpec, cfg.Batch.JobTimeout, overdueJob, logger)
	_, _ = batch.Schedule(c, expirySpec, cfg.Batch.JobTimeout, expiryJob, logger)

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func setupLogger(cfg config.LoggerConfig) *slog.Logger {
	return logging.NewLogger(cfg)
}
