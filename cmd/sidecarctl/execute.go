package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/tool-sidecar/internal/config"
)

var executeMode string

var executeCmd = &cobra.Command{
	Use:   "execute <url>",
	Short: "Run one execution against the executor",
	Long:  "Sends {\"url\": <url>, \"mode\": <mode>} to the executor's /execute endpoint and prints the result.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecute,
}

func init() {
	executeCmd.Flags().StringVarP(&executeMode, "mode", "m", config.AnalysisStandard, "analysis mode: quick, standard or deep")
	rootCmd.AddCommand(executeCmd)
}

func runExecute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res := newExecutorClient(cfg).Execute(ctx, map[string]any{
		"url":  args[0],
		"mode": executeMode,
	})
	if !res.Success {
		return errors.New(res.Error)
	}

	if m, ok := res.Result.(map[string]any); ok {
		if content, ok := m["content"].(string); ok {
			fmt.Fprintln(cmd.OutOrStdout(), content)
			return nil
		}
	}
	return printJSON(cmd.OutOrStdout(), res.Result)
}
