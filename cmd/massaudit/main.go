// massaudit scans a fleet of projects with CodeQL, triages every finding
// through an AI reasoning session, and verifies the testable ones by
// compiling and running generated proof-of-concept programs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "massaudit",
	Short: "Scan, triage, and verify static-analysis findings at scale",
	Long: `massaudit drives a full audit pipeline over a directory of projects:

  1. CodeQL database creation and analysis per project
  2. AI triage of every finding, with interactive source-context lookups
  3. PoC verification for testable high-tier findings, with AI repair loops
  4. Persistent per-finding outcomes and a final markdown report

All AI calls run behind a per-project quota and a latching circuit breaker,
so a degraded endpoint stops the run instead of burning the budget.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "massaudit.yaml", "path to the YAML configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
