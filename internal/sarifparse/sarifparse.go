// Package sarifparse flattens CodeQL SARIF output into Findings, attaching
// a snippet of surrounding source to each. Findings located in test or
// vendored code are filtered out before triage ever sees them.
package sarifparse

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"massaudit/internal/types"
)

// snippetRadius is how many lines around the reported line are included in
// the finding's snippet: enough for a first verdict, small enough to keep
// prompts cheap.
const snippetRadius = 20

// LoadFindings parses the SARIF file and returns one Finding per result
// location, in report order. projectRoot is used to read snippets and to
// recognize excluded paths.
func LoadFindings(sarifPath, projectRoot string) ([]types.Finding, error) {
	report, err := sarif.Open(sarifPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SARIF %s: %w", sarifPath, err)
	}

	var findings []types.Finding
	for _, run := range report.Runs {
		if run == nil {
			continue
		}
		for _, result := range run.Results {
			if result == nil {
				continue
			}

			finding, ok := toFinding(result, projectRoot)
			if !ok {
				continue
			}
			if isExcludedPath(finding.FilePath) {
				continue
			}
			findings = append(findings, finding)
		}
	}
	return findings, nil
}

func toFinding(result *sarif.Result, projectRoot string) (types.Finding, bool) {
	finding := types.Finding{RuleID: "unknown", Message: "no description"}

	if result.RuleID != nil {
		finding.RuleID = *result.RuleID
	}
	if result.Message.Text != nil {
		finding.Message = *result.Message.Text
	}

	if len(result.Locations) == 0 {
		return finding, false
	}
	loc := result.Locations[0]
	if loc == nil || loc.PhysicalLocation == nil ||
		loc.PhysicalLocation.ArtifactLocation == nil ||
		loc.PhysicalLocation.ArtifactLocation.URI == nil {
		return finding, false
	}

	finding.FilePath = *loc.PhysicalLocation.ArtifactLocation.URI
	if region := loc.PhysicalLocation.Region; region != nil && region.StartLine != nil {
		finding.Line = *region.StartLine
	}

	finding.Snippet = readSnippet(filepath.Join(projectRoot, finding.FilePath), finding.Line)
	if finding.Snippet == "" {
		finding.Snippet = fmt.Sprintf("[could not read source at %s:%d]\n%s", finding.FilePath, finding.Line, finding.Message)
	}
	return finding, true
}

// isExcludedPath recognizes test and vendored code, which are pre-filtered
// before triage.
func isExcludedPath(path string) bool {
	lower := strings.ToLower(filepath.ToSlash(path))
	base := filepath.Base(lower)

	for _, dir := range []string{"vendor/", "node_modules/", "third_party/"} {
		if strings.HasPrefix(lower, dir) || strings.Contains(lower, "/"+dir) {
			return true
		}
	}
	return strings.Contains(base, "_test.") ||
		strings.HasPrefix(base, "test_") ||
		strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.")
}

// readSnippet returns up to snippetRadius lines either side of line.
// Failures yield "" and the caller substitutes a placeholder; a missing
// snippet must not block triage.
func readSnippet(path string, line int) string {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not read snippet from %s:%d: %v\n", path, line, err)
		return ""
	}

	lines := strings.Split(string(data), "\n")
	start := line - 1 - snippetRadius
	if start < 0 {
		start = 0
	}
	end := line + snippetRadius
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}
