package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/generic-repository/internal/config"
	"github.com/SAP-F-2025/generic-repository/internal/events"
	"github.com/SAP-F-2025/generic-repository/internal/handlers"
	"github.com/SAP-F-2025/generic-repository/internal/persistence"
	"github.com/SAP-F-2025/generic-repository/internal/registry"
	"github.com/SAP-F-2025/generic-repository/internal/services"
	"github.com/SAP-F-2025/generic-repository/internal/validator"
	"github.com/SAP-F-2025/generic-repository/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	provider := persistence.NewProvider(persistence.ProviderConfig{
		DB:     db,
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher, err := newEventPublisher(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(registry.New(), provider, publisher, logger, validator.New(), services.ServiceManagerConfig{
		ProviderToken:        cfg.Repositories.ProviderToken,
		ItemsCommitOnRelease: cfg.Repositories.ItemsCommitOnRelease,
	})
	if err := serviceManager.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlers.NewHandlerManager(serviceManager, logger).SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	// closes the publisher and the connection pool
	if err := serviceManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	logger.Info("Server exited")
}

// newEventPublisher publishes to Kafka when brokers are configured. Otherwise
// events stay in process and are only logged.
func newEventPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (events.EventPublisher, error) {
	if len(cfg.Events.KafkaBrokers) > 0 {
		logger.Info("Publishing repository events to Kafka", "brokers", cfg.Events.KafkaBrokers, "topic", cfg.Events.Topic)
		return events.NewKafkaEventPublisher(cfg.Events.KafkaBrokers, cfg.Events.Topic, logger)
	}

	publisher, pubSub := events.NewInMemoryEventPublisher(cfg.Events.Topic, logger)
	messages, err := pubSub.Subscribe(ctx, cfg.Events.Topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", cfg.Events.Topic, err)
	}
	go logEvents(messages, logger)
	return publisher, nil
}

func logEvents(messages <-chan *message.Message, logger *slog.Logger) {
	for msg := range messages {
		logger.Info("Repository event",
			"event_id", msg.UUID,
			"event_type", msg.Metadata.Get("event_type"),
			"payload", string(msg.Payload))
		msg.Ack()
	}
}
