package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"massaudit/internal/types"
)

func TestWriteMarkdown(t *testing.T) {
	outcomes := []*types.Outcome{
		{
			Project: "webapp",
			Finding: types.Finding{RuleID: "go/sql-injection", FilePath: "db/query.go", Line: 42},
			Status:  types.StatusVerified,
			Verdict: &types.Verdict{
				Severity: types.SeverityHigh,
				Reason:   "user input reaches the query string",
				Testable: true,
				Rounds: []types.ContextRound{
					{Round: 0, Requested: "buildQuery", Found: true, FilePath: "db/query.go", Language: "go", Code: "func buildQuery() {}"},
					{Round: 1, Requested: "sanitize", Found: false},
				},
			},
			Verification: &types.VerificationResult{
				State:          types.VerifyClassified,
				Classification: types.ClassCrashConfirmed,
				Reason:         "unrecovered panic in query builder",
				FixAttempts:    2,
				ArtifactPath:   "poc_artifacts/webapp/webapp_x.go",
			},
		},
		{
			Project:    "webapp",
			Finding:    types.Finding{RuleID: "go/xss", FilePath: "web/render.go", Line: 9},
			Status:     types.StatusSkipped,
			SkipReason: "project call quota exceeded",
		},
	}

	path := filepath.Join(t.TempDir(), "report.md")
	r := NewWithWriter(&bytes.Buffer{})
	require.NoError(t, r.WriteMarkdown(path, outcomes))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	md := string(data)

	assert.Contains(t, md, "# MassAudit Report")
	assert.Contains(t, md, "**Findings processed**: 2")
	assert.Contains(t, md, "## 1. go/sql-injection")
	assert.Contains(t, md, "`db/query.go:42`")
	assert.Contains(t, md, "**Verdict**: **HIGH**")
	assert.Contains(t, md, "CLASSIFIED")
	assert.Contains(t, md, "**crash_confirmed**")
	assert.Contains(t, md, "**Repair attempts**: 2")
	assert.Contains(t, md, "### Context negotiation")
	assert.Contains(t, md, "#### Round 1")
	assert.Contains(t, md, "func buildQuery() {}")
	assert.Contains(t, md, "- **Found**: no")
	assert.Contains(t, md, "**Skip reason**: project call quota exceeded")
}

func TestWriteMarkdownEmptyRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	r := NewWithWriter(&bytes.Buffer{})
	require.NoError(t, r.WriteMarkdown(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "**Findings processed**: 0")
}

func TestConsoleLevels(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithWriter(&buf)

	r.Infof("analyzing %s", "webapp")
	r.Warnf("quota low")
	r.Errorf("breaker tripped")

	out := buf.String()
	assert.Contains(t, out, "analyzing webapp")
	assert.Contains(t, out, "quota low")
	assert.Contains(t, out, "breaker tripped")
}
