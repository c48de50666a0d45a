package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adverge/ppc-decision-engine/internal/api"
	"github.com/adverge/ppc-decision-engine/internal/config"
	"github.com/adverge/ppc-decision-engine/internal/database"
	"github.com/adverge/ppc-decision-engine/internal/impact"
	"github.com/adverge/ppc-decision-engine/internal/kafka"
	"github.com/adverge/ppc-decision-engine/internal/optimizer"
	"github.com/adverge/ppc-decision-engine/internal/redis"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Connect to database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := runMigrations(cfg.Database.ConnectionString()); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	defer db.Close()
	log.Println("Connected to PostgreSQL database")

	// Connect to Redis
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v (continuing without cache)", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Println("Connected to Redis cache")
	}

	// Create Kafka producer for decision batch events
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.DecisionsTopic)
	defer producer.Close()
	log.Printf("Kafka producer initialized (brokers: %v)", cfg.Kafka.Brokers)

	// Wire the decision pipeline
	opt := optimizer.New(&cfg.Optimizer, db, producer)
	evaluator := impact.NewEvaluator(&cfg.Impact, db)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create and start Kafka consumer for report-ingested events
	consumer := kafka.NewReportsConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.ReportsTopic,
		cfg.Kafka.ConsumerGroup,
		&runnerAdapter{opt},
	)
	go func() {
		log.Printf("Starting Kafka reports consumer for topic: %s (group: %s-reports)",
			cfg.Kafka.ReportsTopic, cfg.Kafka.ConsumerGroup)
		if err := consumer.Start(ctx); err != nil {
			log.Printf("Kafka reports consumer error: %v", err)
		}
	}()

	// Set up HTTP handler and routes
	handler := api.NewHandler(db, opt, evaluator, redisClient, cfg)
	router := api.SetupRoutes(handler)

	// Create HTTP server
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Cancel context to stop Kafka consumer
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Close Kafka consumer
	if err := consumer.Close(); err != nil {
		log.Printf("Error closing Kafka reports consumer: %v", err)
	}

	log.Println("Server stopped")
}

// runnerAdapter narrows the optimizer to the consumer's trigger interface.
type runnerAdapter struct {
	opt *optimizer.Optimizer
}

func (r *runnerAdapter) Run(ctx context.Context, accountID string) error {
	_, err := r.opt.Run(ctx, accountID)
	return err
}

func runMigrations(databaseUrl string) error {
	// The "file://" prefix tells the migrate library to use the file driver
	m, err := migrate.New(
		"file://./db/migrations",
		databaseUrl)
	if err != nil {
		return err
	}

	// Apply all available migrations up to the latest version
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}
