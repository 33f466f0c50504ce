package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"massaudit/internal/ai"
	"massaudit/internal/audit"
	"massaudit/internal/codeql"
	"massaudit/internal/config"
	"massaudit/internal/contextres"
	"massaudit/internal/governor"
	"massaudit/internal/report"
	"massaudit/internal/runner"
	"massaudit/internal/storage"
	"massaudit/internal/verify"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run the full scan/triage/verify pipeline over the projects root",
	Long: `Audit every project under the configured projects root, sequentially.

Each project is scanned with CodeQL, each finding is triaged by the
reasoning engine, and testable high-tier findings are verified with
generated PoC programs. One outcome per finding is written to the results
database and to the markdown report.

Example:
  export ANTHROPIC_API_KEY=sk-...
  massaudit audit --config massaudit.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		sys, store, err := buildSystem(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		if err := sys.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: audit run failed: %v\n", err)
			os.Exit(1)
		}
	},
}

// buildSystem wires the pipeline from configuration. The caller owns the
// returned store's lifetime.
func buildSystem(cfg *config.Config) (*audit.System, *storage.Store, error) {
	gov := governor.New(governor.Config{
		TripThreshold:      cfg.TripThreshold,
		MaxCallsPerProject: cfg.MaxCallsPerProject,
	})
	resolver := &contextres.Resolver{MaxFileBytes: cfg.FileSizeLimitBytes()}

	engine, err := ai.New(&ai.Config{
		APIKey:           cfg.APIKey,
		Model:            cfg.Model,
		Governor:         gov,
		Resolver:         resolver,
		MaxContextRounds: cfg.MaxContextRounds,
	})
	if err != nil {
		return nil, nil, err
	}

	run := runner.ExecRunner{}

	machine, err := verify.New(verify.Config{
		ScratchDir:     cfg.ScratchDir,
		MaxFixAttempts: cfg.MaxFixAttempts,
		ExecTimeout:    cfg.ExecTimeout,
	}, run, engine, engine)
	if err != nil {
		return nil, nil, err
	}

	manager, err := codeql.New(run, cfg.DBStorage, cfg.ProjectsRoot)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.Open(cfg.ResultsDB)
	if err != nil {
		return nil, nil, err
	}

	sys, err := audit.New(cfg, gov, engine, manager, machine, store, report.New())
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return sys, store, nil
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
