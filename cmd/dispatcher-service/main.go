package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cuongbtq/tool-sidecar/internal/config"
	"github.com/cuongbtq/tool-sidecar/internal/dispatcher"
	"github.com/cuongbtq/tool-sidecar/internal/dispatcher/events"
	"github.com/cuongbtq/tool-sidecar/internal/dispatcher/queue"
	"github.com/cuongbtq/tool-sidecar/internal/toolclient"
	"github.com/cuongbtq/tool-sidecar/shared/logger"
	"github.com/cuongbtq/tool-sidecar/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("DISPATCHER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/dispatcher-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateDispatcherConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging, cfg.App.Name)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting dispatcher service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("queue_url", cfg.Dispatcher.QueueURL),
		slog.String("executor_url", cfg.Dispatcher.ExecutorURL),
	)

	for _, w := range cfg.Warnings() {
		appLogger.Warn("Configuration warning", slog.String("warning", w))
	}

	// Initialize outcome events
	var rabbitClient *rabbitmq.Client
	var publisher dispatcher.OutcomePublisher = events.NewNopPublisher()
	if cfg.Events.Enabled {
		rabbitClient, err = initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		publisher = events.NewBrokerPublisher(rabbitClient)

		appLogger.Info("RabbitMQ connection established")
	}

	httpClient := &http.Client{}
	d := dispatcher.NewDispatcher(&dispatcher.Config{
		Logger:       appLogger.Logger,
		Queue:        queue.NewClient(cfg.Dispatcher.QueueURL, httpClient, cfg.Dispatcher.ControlTimeout, appLogger.Logger),
		Executor:     toolclient.NewClient(cfg.Dispatcher.ExecutorURL, httpClient, cfg.Dispatcher.ExecuteTimeout, cfg.Dispatcher.HealthTimeout),
		Publisher:    publisher,
		BatchSize:    cfg.Dispatcher.BatchSize,
		PollInterval: cfg.Dispatcher.PollInterval,
		MinBackoff:   cfg.Dispatcher.MinBackoff,
		MaxBackoff:   cfg.Dispatcher.MaxBackoff,
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start dispatcher in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Run(ctx)
	}()

	appLogger.Info("Dispatcher service started successfully",
		slog.String("dispatcher_id", d.ID()),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		if err == nil {
			err = errors.New("dispatcher stopped unexpectedly")
		}
		appLogger.Error("Dispatcher error",
			slog.Any("error", err),
		)
		return err
	}

	// Cancel context to stop polling; the job in flight keeps running
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Dispatcher.ShutdownTimeout)
	defer shutdownCancel()

	select {
	case <-errChan:
		appLogger.Info("Dispatcher stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Dispatcher shutdown timeout exceeded, forcing exit")
	}

	if rabbitClient != nil {
		rabbitClient.Close()
	}

	appLogger.Info("Dispatcher service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig, service string) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
		Service:      service,
	}

	return logger.New(loggerCfg)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
