package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"massaudit/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndCountOutcomes(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveOutcome(ctx, &types.Outcome{
		Project: "app",
		Finding: types.Finding{RuleID: "go/sql-injection", FilePath: "db.go", Line: 10},
		Status:  types.StatusVerified,
		Verdict: &types.Verdict{Severity: types.SeverityHigh, Reason: "tainted query", Testable: true},
		Verification: &types.VerificationResult{
			State:          types.VerifyClassified,
			Classification: types.ClassCrashConfirmed,
			Reason:         "unrecovered panic",
			FixAttempts:    2,
			ArtifactPath:   "poc_artifacts/app/app_x.go",
		},
	}))
	require.NoError(t, store.SaveOutcome(ctx, &types.Outcome{
		Project:    "app",
		Finding:    types.Finding{RuleID: "go/xss", FilePath: "web.go", Line: 4},
		Status:     types.StatusSkipped,
		SkipReason: "project call quota exceeded",
	}))
	require.NoError(t, store.SaveOutcome(ctx, &types.Outcome{
		Project: "other",
		Finding: types.Finding{RuleID: "py/eval", FilePath: "run.py", Line: 7},
		Status:  types.StatusAnalyzed,
		Verdict: &types.Verdict{Severity: types.SeverityLow, Reason: "constant input"},
	}))

	counts, err := store.CountByStatus(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[types.StatusVerified])
	assert.Equal(t, 1, counts[types.StatusSkipped])
	assert.Zero(t, counts[types.StatusAnalyzed])

	all, err := store.CountByStatus(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, all[types.StatusAnalyzed])
}

func TestSaveOutcomeWithoutVerdict(t *testing.T) {
	store := openTestStore(t)

	err := store.SaveOutcome(context.Background(), &types.Outcome{
		Project: "app",
		Finding: types.Finding{RuleID: "r", FilePath: "f.go", Line: 1},
		Status:  types.StatusAborted,
	})
	assert.NoError(t, err)
}
