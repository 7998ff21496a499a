package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/tool-sidecar/internal/dispatcher"
	"github.com/cuongbtq/tool-sidecar/internal/dispatcher/events"
	"github.com/cuongbtq/tool-sidecar/internal/dispatcher/queue"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one dispatcher poll cycle and exit",
	Long:  "Polls the queue once, processes up to batch_size jobs against the executor, prints the cycle summary and exits. Outcome events are not published.",
	RunE:  runCycle,
}

func init() {
	rootCmd.AddCommand(cycleCmd)
}

func runCycle(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateDispatcherConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	d := dispatcher.NewDispatcher(&dispatcher.Config{
		Logger:    logger,
		Queue:     queue.NewClient(cfg.Dispatcher.QueueURL, &http.Client{}, cfg.Dispatcher.ControlTimeout, logger),
		Executor:  newExecutorClient(cfg),
		Publisher: events.NewNopPublisher(),
		BatchSize: cfg.Dispatcher.BatchSize,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d.CheckExecutor(ctx)

	stats, err := d.RunCycle(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "polled=%d processed=%d skipped=%d failed=%d\n",
		stats.Polled, stats.Processed, stats.Skipped, stats.Failed)
	return nil
}
