package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"massaudit/internal/contextres"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <project-dir> <symbol>",
	Short: "Look up a symbol definition the way the triage session would",
	Long: `Resolve a symbol name against a project tree using the same heuristic
line scanner the triage session uses for its context requests. Useful for
checking why the reasoning engine did or did not receive a definition.

Example:
  massaudit resolve ./myproject parseToken
  massaudit resolve ./myproject "g.writeHeader(w)"`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		resolver := &contextres.Resolver{}

		resolved, err := resolver.Resolve(args[0], args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if resolved == nil {
			color.Yellow("no definition of %q found under %s", args[1], args[0])
			os.Exit(1)
		}

		color.Green("%s (%s) defined in %s:", resolved.Symbol, resolved.Language, resolved.FilePath)
		fmt.Println()
		fmt.Println(resolved.Code)
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
