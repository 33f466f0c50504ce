// Package verify turns a generated proof-of-concept into a terminal
// exploitability classification. It compiles/runs the PoC against the
// target tree, distinguishes environment failures from real executions,
// requests AI repairs within a bounded attempt budget, and hands genuine
// runs to the execution judge.
//
// State machine: DRAFTED -> RUNNING -> {COMPILE_ERROR, CLASSIFIED,
// TIMEOUT}; COMPILE_ERROR loops back to DRAFTED through a repair until the
// budget is exhausted (COMPILATION_FAILED). CLASSIFIED and TIMEOUT are
// terminal.
package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"massaudit/internal/runner"
	"massaudit/internal/types"
)

// Repairer is the reasoning engine's PoC repair endpoint. Calls are routed
// through the call governor by the implementation.
type Repairer interface {
	FixPoCCode(ctx context.Context, project, code, errorOutput string) (string, error)
}

// Judge classifies the console output of a PoC that genuinely executed.
type Judge interface {
	JudgeExecution(ctx context.Context, project, output string) (types.Classification, string, error)
}

// Config holds verification tuning.
type Config struct {
	ScratchDir     string        // canonical PoC artifacts live here, per project
	MaxFixAttempts int           // repair rounds before COMPILATION_FAILED (default: 8)
	ExecTimeout    time.Duration // wall clock per attempt (default: 15s)
	MinPoCLength   int           // PoC texts at or below this are considered trivial (default: 20)
}

// DefaultConfig returns the default verification configuration.
func DefaultConfig() Config {
	return Config{
		ScratchDir:     "poc_artifacts",
		MaxFixAttempts: 8,
		ExecTimeout:    15 * time.Second,
		MinPoCLength:   20,
	}
}

// Machine drives verification sessions. One session owns the target tree
// at a time; the sequential audit loop enforces that.
type Machine struct {
	cfg    Config
	run    runner.Runner
	repair Repairer
	judge  Judge
}

// New creates a verification machine. Zero config fields get defaults.
func New(cfg Config, run runner.Runner, repair Repairer, judge Judge) (*Machine, error) {
	if run == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if repair == nil || judge == nil {
		return nil, fmt.Errorf("repairer and judge are required")
	}

	def := DefaultConfig()
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = def.ScratchDir
	}
	if cfg.MaxFixAttempts <= 0 {
		cfg.MaxFixAttempts = def.MaxFixAttempts
	}
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = def.ExecTimeout
	}
	if cfg.MinPoCLength <= 0 {
		cfg.MinPoCLength = def.MinPoCLength
	}

	return &Machine{cfg: cfg, run: run, repair: repair, judge: judge}, nil
}

// SkipReason explains why a finding was not verified. Empty means verify.
func (m *Machine) SkipReason(language string, verdict *types.Verdict) string {
	switch {
	case verdict == nil:
		return "no verdict"
	case !verdict.Severity.Verifiable():
		return fmt.Sprintf("severity %q below verification tier", verdict.Severity)
	case !verdict.Testable:
		return "reasoning session marked finding not testable"
	case len(strings.TrimSpace(verdict.PoC)) <= m.cfg.MinPoCLength:
		return "PoC text trivial or empty"
	case executeCommand(language, "") == nil:
		return fmt.Sprintf("no PoC execution support for language %q", language)
	}
	return ""
}

// Verify runs one verification session. projectDir is the target source
// tree; language selects the build/execute command. The returned result is
// always terminal. An error is returned only for infrastructure failures
// (governed call refused, artifact IO); the session is then abandoned.
func (m *Machine) Verify(ctx context.Context, project, projectDir, language string, verdict *types.Verdict) (*types.VerificationResult, error) {
	if executeCommand(language, "") == nil {
		return nil, fmt.Errorf("no PoC execution support for language %q", language)
	}
	code := verdict.PoC

	artifact, err := m.materialize(project, language, code)
	if err != nil {
		return nil, err
	}

	// The working copy sits beside the target sources so the PoC can
	// reference package-local symbols. It is removed whatever happens; the
	// canonical artifact under the scratch dir is retained for audit.
	workCopy := filepath.Join(projectDir, filepath.Base(artifact))
	defer func() {
		if err := os.Remove(workCopy); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "warning: failed to remove PoC working copy %s: %v\n", workCopy, err)
		}
	}()

	fixes := 0
	// MaxFixAttempts repairs plus one final attempt with the last repair.
	for attempt := 0; attempt <= m.cfg.MaxFixAttempts; attempt++ {
		if err := os.WriteFile(workCopy, []byte(code), 0644); err != nil {
			return nil, fmt.Errorf("failed to place PoC working copy: %w", err)
		}
		// Keep the canonical artifact in sync with the attempt actually run.
		if err := os.WriteFile(artifact, []byte(code), 0644); err != nil {
			return nil, fmt.Errorf("failed to update PoC artifact: %w", err)
		}

		res, runErr := m.run.Run(ctx, runner.Command{
			Argv:    executeCommand(language, filepath.Base(workCopy)),
			Dir:     projectDir,
			Timeout: m.cfg.ExecTimeout,
		})

		if res != nil && res.TimedOut {
			// A hung PoC is terminal; repairing it would burn the budget on
			// something the repair endpoint cannot see.
			return &types.VerificationResult{
				State:        types.VerifyTimeout,
				Reason:       fmt.Sprintf("execution exceeded %v", m.cfg.ExecTimeout),
				Output:       res.Output,
				FixAttempts:  fixes,
				ArtifactPath: artifact,
			}, nil
		}

		output := ""
		if res != nil {
			output = res.Output
		}
		if runErr != nil {
			// Could not start at all (missing toolchain); same repair branch
			// as a compile failure.
			output = strings.TrimSpace(output + "\n" + runErr.Error())
		}

		marker := matchEnvironmentFailure(output)
		if marker == "" && runErr == nil {
			// The PoC executed as a program against the target.
			class, reason, err := m.judge.JudgeExecution(ctx, project, output)
			if err != nil {
				return nil, fmt.Errorf("judge call failed: %w", err)
			}
			return &types.VerificationResult{
				State:          types.VerifyClassified,
				Classification: class,
				Reason:         reason,
				Output:         output,
				FixAttempts:    fixes,
				ArtifactPath:   artifact,
			}, nil
		}

		if attempt == m.cfg.MaxFixAttempts {
			return &types.VerificationResult{
				State:        types.VerifyCompilationFailed,
				Reason:       fmt.Sprintf("unrepairable after %d fixes (last failure: %s)", fixes, markerLabel(marker, runErr)),
				Output:       output,
				FixAttempts:  fixes,
				ArtifactPath: artifact,
			}, nil
		}

		fmt.Printf("PoC attempt %d for %s hit %s, requesting repair\n", attempt+1, project, markerLabel(marker, runErr))
		repaired, err := m.repair.FixPoCCode(ctx, project, code, output)
		if err != nil {
			return nil, fmt.Errorf("repair call failed: %w", err)
		}
		code = repaired
		fixes++
	}

	// Unreachable: the loop always returns from its final iteration.
	return nil, fmt.Errorf("verification loop exited without a terminal state")
}

// materialize writes the canonical PoC artifact under the per-project
// scratch directory with a collision-resistant name.
func (m *Machine) materialize(project, language, code string) (string, error) {
	dir := filepath.Join(m.cfg.ScratchDir, project)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s%s",
		project,
		time.Now().UTC().Format("20060102T150405"),
		uuid.NewString()[:8],
		sourceExtension(language),
	)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		return "", fmt.Errorf("failed to write PoC artifact: %w", err)
	}
	return path, nil
}
