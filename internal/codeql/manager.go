// Package codeql drives the CodeQL CLI: language detection, database
// creation, analysis, and cleanup. All invocations go through the shared
// process runner as explicit argument vectors.
package codeql

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"massaudit/internal/runner"
)

// Manager owns the CodeQL database lifecycle for audited projects.
type Manager struct {
	run          runner.Runner
	dbStorage    string
	projectsRoot string
}

// New creates a manager; dbStorage is created if missing.
func New(run runner.Runner, dbStorage, projectsRoot string) (*Manager, error) {
	if run == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if err := os.MkdirAll(dbStorage, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database storage dir: %w", err)
	}
	return &Manager{run: run, dbStorage: dbStorage, projectsRoot: projectsRoot}, nil
}

// languageExtensions maps CodeQL language identifiers to the file
// extensions counted during detection.
var languageExtensions = map[string][]string{
	"python":     {".py"},
	"go":         {".go"},
	"java":       {".java", ".gradle"},
	"javascript": {".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"},
	"csharp":     {".cs"},
	"cpp":        {".c", ".cpp", ".h", ".hpp"},
}

// queryPacks maps detected languages to their standard query packs.
var queryPacks = map[string]string{
	"python":     "codeql/python-queries",
	"go":         "codeql/go-queries",
	"java":       "codeql/java-queries",
	"javascript": "codeql/javascript-queries",
	"csharp":     "codeql/csharp-queries",
	"cpp":        "codeql/cpp-queries",
}

// DetectLanguage walks the project and returns the language with the most
// source files, or "" when nothing is recognized.
func (m *Manager) DetectLanguage(project string) string {
	root := filepath.Join(m.projectsRoot, project)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "warning: project path is not a directory: %s\n", root)
		return ""
	}

	counts := make(map[string]int)
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		for lang, exts := range languageExtensions {
			for _, e := range exts {
				if ext == e {
					counts[lang]++
				}
			}
		}
		return nil
	})

	dominant, best := "", 0
	for lang, n := range counts {
		if n > best {
			dominant, best = lang, n
		}
	}
	if dominant != "" {
		fmt.Printf("detected dominant language for %s: %s (%d files)\n", project, dominant, best)
	}
	return dominant
}

// QueryPack returns the standard query pack for a detected language.
func QueryPack(language string) (string, bool) {
	pack, ok := queryPacks[strings.ToLower(language)]
	return pack, ok
}

// CreateDatabase builds a fresh CodeQL database for the project, replacing
// any stale one from a previous run.
func (m *Manager) CreateDatabase(ctx context.Context, project, language string) (string, error) {
	source := filepath.Join(m.projectsRoot, project)
	dbPath := filepath.Join(m.dbStorage, project+"-db")

	if _, err := os.Stat(dbPath); err == nil {
		fmt.Fprintf(os.Stderr, "warning: replacing existing CodeQL database at %s\n", dbPath)
		if err := os.RemoveAll(dbPath); err != nil {
			return "", fmt.Errorf("failed to remove stale database: %w", err)
		}
	}

	res, err := m.run.Run(ctx, runner.Command{
		Argv: []string{
			"codeql", "database", "create", dbPath,
			"--language", language,
			"--source-root", source,
		},
	})
	if err != nil {
		return "", fmt.Errorf("codeql database create failed: %w", err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("codeql database create exited %d: %s", res.ExitCode, tail(res.Output, 2000))
	}
	return dbPath, nil
}

// Analyze runs the query pack against the database and writes SARIF to
// outputPath.
func (m *Manager) Analyze(ctx context.Context, dbPath, queryPack, outputPath string) error {
	res, err := m.run.Run(ctx, runner.Command{
		Argv: []string{
			"codeql", "database", "analyze", dbPath,
			queryPack,
			"--format=sarif-latest",
			"--output=" + outputPath,
		},
	})
	if err != nil {
		return fmt.Errorf("codeql database analyze failed: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("codeql database analyze exited %d: %s", res.ExitCode, tail(res.Output, 2000))
	}
	return nil
}

// CleanupDatabase removes the database directory after a project is done.
func (m *Manager) CleanupDatabase(dbPath string) {
	if dbPath == "" {
		return
	}
	if err := os.RemoveAll(dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to clean up CodeQL database %s: %v\n", dbPath, err)
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
