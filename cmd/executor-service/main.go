package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/cuongbtq/tool-sidecar/internal/config"
	"github.com/cuongbtq/tool-sidecar/internal/executor/analysis"
	"github.com/cuongbtq/tool-sidecar/internal/executor/handler"
	"github.com/cuongbtq/tool-sidecar/internal/executor/router"
	"github.com/cuongbtq/tool-sidecar/internal/executor/storage"
	"github.com/cuongbtq/tool-sidecar/internal/executor/tool"
	"github.com/cuongbtq/tool-sidecar/shared/logger"
	"github.com/cuongbtq/tool-sidecar/shared/postgresql"
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
	defaultConfigPath := os.Getenv("EXECUTOR_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/executor-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateExecutorConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging, cfg.App.Name)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting executor service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("tool_mode", cfg.Tool.Mode),
	)

	for _, w := range cfg.Warnings() {
		appLogger.Warn("Configuration warning", slog.String("warning", w))
	}

	// Initialize tool
	tl, err := initTool(cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tool: %w", err)
	}

	// Initialize execution history
	var dbClient *postgresql.Client
	var recorder storage.ExecutionRecorder = storage.NopRecorder{}
	var historyCheck handler.HealthChecker
	if cfg.History.Enabled {
		dbClient, err = initPostgreSQL(&cfg.Database, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		store := storage.NewStorage(dbClient.GetDB())
		schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = store.EnsureSchema(schemaCtx)
		schemaCancel()
		if err != nil {
			dbClient.Close()
			return fmt.Errorf("failed to prepare history schema: %w", err)
		}

		recorder = store
		historyCheck = dbClient
		appLogger.Info("Execution history enabled")
	}

	// Initialize router
	r := initRouter(cfg, appLogger.Logger, tl, recorder, historyCheck)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Executor service is running",
		slog.String("address", addr),
		slog.String("tool", tl.Name()),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	cleanup := func() {
		cancel()
		if dbClient != nil {
			dbClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
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

// initTool builds the tool selected by tool.mode
func initTool(cfg *config.Config, logger *slog.Logger) (tool.Tool, error) {
	a := cfg.Analysis
	httpClient := &http.Client{}

	return tool.New(cfg.Tool.Mode, analysis.Config{
		Logger:           logger,
		Video:            analysis.NewTranscriptSource(a.TranscriptURL, a.TranscriptLanguage, httpClient, a.TranscriptTimeout),
		Generic:          analysis.NewPageSource(httpClient, a.FetchTimeout, a.MaxContentBytes, a.UserAgent),
		Runner:           analysis.NewCommandRunner(a.PatternCommand, a.PatternArgs, logger),
		Patterns:         a.Patterns,
		PatternTimeouts:  a.PatternTimeouts,
		MinContentLength: a.MinContentLength,
	})
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(context.Background(), dbConfig, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, tl tool.Tool, recorder storage.ExecutionRecorder, historyCheck handler.HealthChecker) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	handlerDeps := &handler.Dependencies{
		Logger:      logger,
		Tool:        tl,
		Recorder:    recorder,
		History:     historyCheck,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	}

	return router.SetupRouter(handlerDeps)
}
