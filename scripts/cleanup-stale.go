// scripts/cleanup-stale.go - Manual stale scan artifact cleanup tool
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"massaudit/internal/config"
)

func main() {
	cfg, err := config.Load(os.Getenv("MASSAUDIT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	cleaned := 0

	// Remove scan leftovers stranded inside project trees by killed runs.
	entries, err := os.ReadDir(cfg.ProjectsRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing projects root %s: %v\n", cfg.ProjectsRoot, err)
		os.Exit(1)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(cfg.ProjectsRoot, e.Name())
		for _, stale := range []string{".scan.lock", "temp_scan_data"} {
			path := filepath.Join(dir, stale)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := os.RemoveAll(path); err != nil {
				fmt.Fprintf(os.Stderr, "Error removing %s: %v\n", path, err)
				continue
			}
			fmt.Printf("removed %s\n", path)
			cleaned++
		}
	}

	// Remove leftover CodeQL databases and SARIF files from aborted runs.
	if entries, err := os.ReadDir(cfg.DBStorage); err == nil {
		for _, e := range entries {
			if !strings.HasSuffix(e.Name(), "-db") && !strings.HasSuffix(e.Name(), ".sarif") {
				continue
			}
			path := filepath.Join(cfg.DBStorage, e.Name())
			if err := os.RemoveAll(path); err != nil {
				fmt.Fprintf(os.Stderr, "Error removing %s: %v\n", path, err)
				continue
			}
			fmt.Printf("removed %s\n", path)
			cleaned++
		}
	}

	if cleaned > 0 {
		fmt.Printf("✓ Cleaned up %d stale artifact(s)\n", cleaned)
	} else {
		fmt.Println("✓ No stale artifacts found")
	}
}
