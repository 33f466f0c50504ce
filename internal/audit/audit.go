// Package audit is the sequential driver: it walks the projects root,
// scans each project with CodeQL, triages every finding through the
// reasoning engine, verifies the testable ones, and records one outcome
// per finding.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"massaudit/internal/codeql"
	"massaudit/internal/config"
	"massaudit/internal/report"
	"massaudit/internal/sarifparse"
	"massaudit/internal/types"
)

// Analyzer is the reasoning engine's triage endpoint.
type Analyzer interface {
	AnalyzeFinding(ctx context.Context, project, projectPath string, finding types.Finding) (*types.Verdict, error)
}

// Verifier decides whether a verdict warrants verification and runs it.
type Verifier interface {
	SkipReason(language string, verdict *types.Verdict) string
	Verify(ctx context.Context, project, projectDir, language string, verdict *types.Verdict) (*types.VerificationResult, error)
}

// Scanner owns the CodeQL database lifecycle.
type Scanner interface {
	DetectLanguage(project string) string
	CreateDatabase(ctx context.Context, project, language string) (string, error)
	Analyze(ctx context.Context, dbPath, queryPack, outputPath string) error
	CleanupDatabase(dbPath string)
}

// Breaker exposes the governor state the driver consults between findings.
type Breaker interface {
	Tripped() bool
	CheckQuota(project string) bool
}

// OutcomeStore persists per-finding outcomes.
type OutcomeStore interface {
	SaveOutcome(ctx context.Context, o *types.Outcome) error
}

// System wires the audit pipeline together.
type System struct {
	cfg      *config.Config
	breaker  Breaker
	analyzer Analyzer
	scanner  Scanner
	verifier Verifier
	store    OutcomeStore
	reporter *report.Reporter

	// loadFindings is swappable for tests.
	loadFindings func(sarifPath, projectRoot string) ([]types.Finding, error)
}

// New assembles the driver. All collaborators are required.
func New(cfg *config.Config, breaker Breaker, analyzer Analyzer, scanner Scanner, verifier Verifier, store OutcomeStore, reporter *report.Reporter) (*System, error) {
	if cfg == nil || breaker == nil || analyzer == nil || scanner == nil || verifier == nil || store == nil || reporter == nil {
		return nil, fmt.Errorf("all audit collaborators are required")
	}
	return &System{
		cfg:          cfg,
		breaker:      breaker,
		analyzer:     analyzer,
		scanner:      scanner,
		verifier:     verifier,
		store:        store,
		reporter:     reporter,
		loadFindings: sarifparse.LoadFindings,
	}, nil
}

// Run audits every project under the configured root, sequentially, and
// writes the markdown report at the end. A tripped circuit breaker stops
// the run after the in-flight project's findings are accounted for.
func (s *System) Run(ctx context.Context) error {
	projects, err := s.listProjects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		s.reporter.Warnf("no projects found under %s", s.cfg.ProjectsRoot)
	}

	var outcomes []*types.Outcome
	for _, project := range projects {
		projectOutcomes, aborted := s.auditProject(ctx, project)
		outcomes = append(outcomes, projectOutcomes...)
		if aborted {
			s.reporter.Errorf("circuit breaker tripped, aborting the remaining projects")
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	if err := s.reporter.WriteMarkdown(s.cfg.ReportPath, outcomes); err != nil {
		return err
	}
	s.reporter.Infof("audit finished: %d findings processed across %d projects", len(outcomes), len(projects))
	return ctx.Err()
}

// auditProject scans and triages one project. It returns the per-finding
// outcomes and whether the circuit breaker tripped during the project.
func (s *System) auditProject(ctx context.Context, project string) ([]*types.Outcome, bool) {
	projectDir := filepath.Join(s.cfg.ProjectsRoot, project)
	s.reporter.Infof("auditing project %s", project)
	cleanupStaleArtifacts(projectDir)

	language := s.scanner.DetectLanguage(project)
	if language == "" {
		s.reporter.Warnf("no recognized source language in %s, skipping", project)
		return nil, false
	}
	pack, ok := codeql.QueryPack(language)
	if !ok {
		s.reporter.Warnf("no query pack for language %q, skipping %s", language, project)
		return nil, false
	}

	dbPath, err := s.scanner.CreateDatabase(ctx, project, language)
	if err != nil {
		s.reporter.Errorf("database creation for %s failed: %v", project, err)
		return nil, false
	}
	defer s.scanner.CleanupDatabase(dbPath)

	sarifPath := filepath.Join(s.cfg.DBStorage, project+".sarif")
	defer os.Remove(sarifPath)
	if err := s.scanner.Analyze(ctx, dbPath, pack, sarifPath); err != nil {
		s.reporter.Errorf("analysis of %s failed: %v", project, err)
		return nil, false
	}

	findings, err := s.loadFindings(sarifPath, projectDir)
	if err != nil {
		s.reporter.Errorf("could not parse results for %s: %v", project, err)
		return nil, false
	}
	s.reporter.Infof("%s: %d findings to triage", project, len(findings))

	var outcomes []*types.Outcome
	for i, finding := range findings {
		if s.breaker.Tripped() {
			// Everything not yet triaged in this project is accounted for,
			// then the run stops.
			for _, rest := range findings[i:] {
				outcomes = append(outcomes, s.record(ctx, &types.Outcome{
					Project:    project,
					Finding:    rest,
					Status:     types.StatusAborted,
					SkipReason: "api circuit breaker tripped",
				}))
			}
			return outcomes, true
		}
		if !s.breaker.CheckQuota(project) {
			s.reporter.Warnf("%s: call quota exhausted, skipping %d remaining findings", project, len(findings)-i)
			for _, rest := range findings[i:] {
				outcomes = append(outcomes, s.record(ctx, &types.Outcome{
					Project:    project,
					Finding:    rest,
					Status:     types.StatusSkipped,
					SkipReason: "project call quota exceeded",
				}))
			}
			return outcomes, false
		}

		outcomes = append(outcomes, s.processFinding(ctx, project, projectDir, language, finding))
	}
	return outcomes, false
}

// processFinding triages one finding and verifies it when warranted. The
// returned outcome is already persisted.
func (s *System) processFinding(ctx context.Context, project, projectDir, language string, finding types.Finding) *types.Outcome {
	outcome := &types.Outcome{Project: project, Finding: finding}

	verdict, err := s.analyzer.AnalyzeFinding(ctx, project, projectDir, finding)
	if err != nil {
		s.reporter.Errorf("triage of %s failed: %v", finding, err)
		outcome.Status = types.StatusError
		outcome.SkipReason = err.Error()
		return s.record(ctx, outcome)
	}
	outcome.Verdict = verdict
	s.reporter.Infof("%s: verdict %s (testable=%v)", finding, verdict.Severity, verdict.Testable)

	if reason := s.verifier.SkipReason(language, verdict); reason != "" {
		outcome.Status = types.StatusAnalyzed
		outcome.SkipReason = reason
		return s.record(ctx, outcome)
	}

	result, err := s.verifier.Verify(ctx, project, projectDir, language, verdict)
	if err != nil {
		s.reporter.Errorf("verification of %s failed: %v", finding, err)
		outcome.Status = types.StatusError
		outcome.SkipReason = err.Error()
		return s.record(ctx, outcome)
	}
	outcome.Status = types.StatusVerified
	outcome.Verification = result
	s.reporter.Infof("%s: verification %s %s", finding, result.State, result.Classification)
	return s.record(ctx, outcome)
}

// record persists the outcome; persistence failures are logged, never fatal.
func (s *System) record(ctx context.Context, o *types.Outcome) *types.Outcome {
	if err := s.store.SaveOutcome(ctx, o); err != nil {
		s.reporter.Errorf("could not persist outcome for %s: %v", o.Finding, err)
	}
	return o
}

// listProjects returns the immediate subdirectories of the projects root,
// sorted for a deterministic audit order.
func (s *System) listProjects() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.ProjectsRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects root %s: %w", s.cfg.ProjectsRoot, err)
	}

	var projects []string
	for _, e := range entries {
		if e.IsDir() {
			projects = append(projects, e.Name())
		}
	}
	sort.Strings(projects)
	return projects, nil
}
