// Package storage persists per-finding outcomes to SQLite so an audit's
// results survive the process and can be queried after the report is
// rendered.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"massaudit/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project TEXT NOT NULL,
    rule_id TEXT NOT NULL,
    file_path TEXT NOT NULL,
    line INTEGER NOT NULL,
    status TEXT NOT NULL,
    severity TEXT,
    verdict_reason TEXT,
    testable INTEGER NOT NULL DEFAULT 0,
    verify_state TEXT,
    classification TEXT,
    classification_reason TEXT,
    fix_attempts INTEGER NOT NULL DEFAULT 0,
    artifact_path TEXT,
    skip_reason TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_outcomes_project ON outcomes(project);
CREATE INDEX IF NOT EXISTS idx_outcomes_status ON outcomes(status);
`

// Store is the SQLite-backed outcome store.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create results directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping results database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveOutcome records one per-finding outcome.
func (s *Store) SaveOutcome(ctx context.Context, o *types.Outcome) error {
	var severity, verdictReason string
	var testable bool
	var verifyState, class, classWhy string
	var fixAttempts int
	var artifactPath string
	if o.Verdict != nil {
		severity = string(o.Verdict.Severity)
		verdictReason = o.Verdict.Reason
		testable = o.Verdict.Testable
	}
	if o.Verification != nil {
		verifyState = string(o.Verification.State)
		class = string(o.Verification.Classification)
		classWhy = o.Verification.Reason
		fixAttempts = o.Verification.FixAttempts
		artifactPath = o.Verification.ArtifactPath
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes (
			project, rule_id, file_path, line, status,
			severity, verdict_reason, testable,
			verify_state, classification, classification_reason,
			fix_attempts, artifact_path, skip_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Project, o.Finding.RuleID, o.Finding.FilePath, o.Finding.Line, string(o.Status),
		severity, verdictReason, testable,
		verifyState, class, classWhy,
		fixAttempts, artifactPath, o.SkipReason,
	)
	if err != nil {
		return fmt.Errorf("failed to save outcome for %s: %w", o.Finding, err)
	}
	return nil
}

// CountByStatus returns how many outcomes each status has for a project.
// An empty project counts across the whole database.
func (s *Store) CountByStatus(ctx context.Context, project string) (map[types.OutcomeStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM outcomes GROUP BY status`
	args := []any{}
	if project != "" {
		query = `SELECT status, COUNT(*) FROM outcomes WHERE project = ? GROUP BY status`
		args = append(args, project)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.OutcomeStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[types.OutcomeStatus(status)] = n
	}
	return counts, rows.Err()
}
