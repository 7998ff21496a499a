package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/tool-sidecar/internal/toolclient"
)

var historyQuery toolclient.HistoryQuery

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded executor runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyQuery.Tool, "tool", "", "filter by tool name")
	historyCmd.Flags().StringVar(&historyQuery.Status, "status", "", "filter by status: success or failed")
	historyCmd.Flags().IntVar(&historyQuery.PageSize, "page-size", 20, "number of executions per page")
	historyCmd.Flags().StringVar(&historyQuery.Cursor, "cursor", "", "cursor from a previous page")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	page, err := newExecutorClient(cfg).ListExecutions(context.Background(), historyQuery)
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), page)
}
