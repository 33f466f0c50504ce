// Package types defines the shared data model for the audit pipeline.
// Types consumed by more than one package live here to avoid import cycles
// between the driver, the AI engine, and the verification machine.
package types

import "fmt"

// Finding is one static-analysis result to be triaged. Produced by the SARIF
// parser, immutable once created, consumed once per audit pass.
type Finding struct {
	RuleID   string `json:"rule_id"`
	FilePath string `json:"file_path"` // relative to the project root
	Line     int    `json:"line"`
	Message  string `json:"message"`
	Snippet  string `json:"snippet"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s at %s:%d", f.RuleID, f.FilePath, f.Line)
}

// Severity is the reasoning engine's verdict tier for a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Verifiable reports whether the tier is high enough to warrant PoC
// verification. Only the top two tiers qualify.
func (s Severity) Verifiable() bool {
	return s == SeverityCritical || s == SeverityHigh
}

// Valid reports whether s is one of the closed set of verdict tiers.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// ContextRound records one context-negotiation round inside a triage
// session: the symbol the model asked for and what the resolver returned.
type ContextRound struct {
	Round     int    `json:"round"`
	Requested string `json:"requested"`
	Found     bool   `json:"found"`
	FilePath  string `json:"file_path,omitempty"`
	Language  string `json:"language,omitempty"`
	Code      string `json:"code,omitempty"`
}

// Verdict is the reasoning engine's final judgment for a finding, including
// the transcript of any context-negotiation rounds that led to it.
type Verdict struct {
	Severity Severity       `json:"severity"`
	Reason   string         `json:"reason"`
	Testable bool           `json:"testable"`
	PoC      string         `json:"poc"`
	Rounds   []ContextRound `json:"rounds,omitempty"`
}

// Classification is the terminal outcome assigned by the execution judge.
type Classification string

const (
	// ClassCrashConfirmed: process terminated on an unrecovered fault.
	ClassCrashConfirmed Classification = "crash_confirmed"
	// ClassCrashRecovered: a fault occurred but was caught or handled.
	// Flags a robustness/DoS concern rather than a hard compromise.
	ClassCrashRecovered Classification = "crash_recovered"
	// ClassDefended: ran to completion with no fault, target resisted the PoC.
	ClassDefended Classification = "defended"
	// ClassTestFailed: ran to completion but an assertion did not hold.
	ClassTestFailed Classification = "test_failed"
	// ClassUnknown: the judge's answer could not be parsed; raw output is
	// retained instead of retrying indefinitely.
	ClassUnknown Classification = "unknown"
)

// Valid reports whether c is a recognized terminal classification.
func (c Classification) Valid() bool {
	switch c {
	case ClassCrashConfirmed, ClassCrashRecovered, ClassDefended, ClassTestFailed, ClassUnknown:
		return true
	}
	return false
}

// VerifyState is a state of the verification machine. Only the terminal
// states appear in results; DRAFTED and RUNNING are transient.
type VerifyState string

const (
	VerifyDrafted           VerifyState = "DRAFTED"
	VerifyRunning           VerifyState = "RUNNING"
	VerifyCompileError      VerifyState = "COMPILE_ERROR"
	VerifyClassified        VerifyState = "CLASSIFIED"
	VerifyTimeout           VerifyState = "TIMEOUT"
	VerifyCompilationFailed VerifyState = "COMPILATION_FAILED"
)

// VerificationResult is produced exactly once per finding that enters
// verification and attached to the finding's outcome record.
type VerificationResult struct {
	State          VerifyState    `json:"state"`
	Classification Classification `json:"classification,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Output         string         `json:"output,omitempty"`
	FixAttempts    int            `json:"fix_attempts"`
	ArtifactPath   string         `json:"artifact_path,omitempty"`
}

// OutcomeStatus says how far a finding made it through the pipeline.
type OutcomeStatus string

const (
	// StatusAnalyzed: verdict obtained, verification not warranted.
	StatusAnalyzed OutcomeStatus = "analyzed"
	// StatusVerified: verdict obtained and verification ran to a terminal state.
	StatusVerified OutcomeStatus = "verified"
	// StatusSkipped: never analyzed (quota exhausted, precondition failed).
	StatusSkipped OutcomeStatus = "skipped"
	// StatusAborted: audit stopped mid-finding (circuit breaker tripped).
	StatusAborted OutcomeStatus = "aborted"
	// StatusError: analysis failed for this finding only.
	StatusError OutcomeStatus = "error"
)

// Outcome is the per-finding record handed to reporting and persistence.
// Every finding that enters the pipeline receives exactly one.
type Outcome struct {
	Project      string              `json:"project"`
	Finding      Finding             `json:"finding"`
	Status       OutcomeStatus       `json:"status"`
	Verdict      *Verdict            `json:"verdict,omitempty"`
	Verification *VerificationResult `json:"verification,omitempty"`
	SkipReason   string              `json:"skip_reason,omitempty"`
}
