package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/tool-sidecar/internal/config"
	"github.com/cuongbtq/tool-sidecar/internal/toolclient"
	"github.com/cuongbtq/tool-sidecar/shared/logger"
)

var (
	cfgPath     string
	executorURL string
	debug       bool
)

var rootCmd = &cobra.Command{
	Use:          "sidecarctl",
	Short:        "Operate the tool sidecar",
	Long:         "sidecarctl checks the executor, runs one-off executions and drives single dispatcher cycles.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: DISPATCHER_SERVICE_CONFIG_PATH env var, otherwise defaults and environment only)")
	rootCmd.PersistentFlags().StringVar(&executorURL, "executor-url", "", "executor base URL (overrides dispatcher.executor_url)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: --config > DISPATCHER_SERVICE_CONFIG_PATH > defaults plus environment
func loadConfig() (*config.Config, error) {
	path := cfgPath
	if path == "" {
		path = os.Getenv("DISPATCHER_SERVICE_CONFIG_PATH")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if executorURL != "" {
		cfg.Dispatcher.ExecutorURL = executorURL
	}
	return cfg, nil
}

func setupLogger() *slog.Logger {
	level := "info"
	if debug {
		level = "debug"
	}

	l, err := logger.New(&logger.Config{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.TimeOnly,
	})
	if err != nil {
		return logger.NewDefault().Logger
	}
	return l.Logger
}

func newExecutorClient(cfg *config.Config) *toolclient.Client {
	return toolclient.NewClient(
		cfg.Dispatcher.ExecutorURL,
		&http.Client{},
		cfg.Dispatcher.ExecuteTimeout,
		cfg.Dispatcher.HealthTimeout,
	)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
