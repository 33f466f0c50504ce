package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"massaudit/internal/config"
	"massaudit/internal/storage"
	"massaudit/internal/types"
)

var statusProject string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize recorded outcomes from the results database",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		store, err := storage.Open(cfg.ResultsDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open results database: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		counts, err := store.CountByStatus(context.Background(), statusProject)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		scope := "all projects"
		if statusProject != "" {
			scope = statusProject
		}
		fmt.Printf("\n%s\n\n", cyan("=== Audit Outcomes ("+scope+") ==="))

		total := 0
		for _, status := range []types.OutcomeStatus{
			types.StatusVerified,
			types.StatusAnalyzed,
			types.StatusSkipped,
			types.StatusAborted,
			types.StatusError,
		} {
			fmt.Printf("  %-10s %d\n", status, counts[status])
			total += counts[status]
		}
		fmt.Printf("  %-10s %d\n\n", "total", total)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusProject, "project", "", "limit the summary to one project")
	rootCmd.AddCommand(statusCmd)
}
