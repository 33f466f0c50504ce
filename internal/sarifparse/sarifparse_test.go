package sarifparse

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sarifTemplate = `{
  "version": "2.1.0",
  "$schema": "https://json.schemastore.org/sarif-2.1.0.json",
  "runs": [
    {
      "tool": {"driver": {"name": "CodeQL", "rules": []}},
      "results": [%s]
    }
  ]
}`

func resultJSON(ruleID, uri string, line int, message string) string {
	return fmt.Sprintf(`{
      "ruleId": %q,
      "message": {"text": %q},
      "locations": [
        {
          "physicalLocation": {
            "artifactLocation": {"uri": %q},
            "region": {"startLine": %d}
          }
        }
      ]
    }`, ruleID, message, uri, line)
}

func writeSarif(t *testing.T, results ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.sarif")
	content := fmt.Sprintf(sarifTemplate, strings.Join(results, ","))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFindings(t *testing.T) {
	projectRoot := t.TempDir()
	var src []string
	for i := 1; i <= 60; i++ {
		src = append(src, fmt.Sprintf("line %d", i))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(projectRoot, "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(projectRoot, "pkg/handler.go"), []byte(strings.Join(src, "\n")), 0644))

	path := writeSarif(t, resultJSON("go/sql-injection", "pkg/handler.go", 30, "query built from user input"))

	findings, err := LoadFindings(path, projectRoot)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "go/sql-injection", f.RuleID)
	assert.Equal(t, "pkg/handler.go", f.FilePath)
	assert.Equal(t, 30, f.Line)
	assert.Equal(t, "query built from user input", f.Message)
	assert.Contains(t, f.Snippet, "line 10")
	assert.Contains(t, f.Snippet, "line 50")
	assert.NotContains(t, f.Snippet, "line 9\n")
}

func TestLoadFindingsFiltersTestAndVendorPaths(t *testing.T) {
	path := writeSarif(t,
		resultJSON("rule", "pkg/handler_test.go", 3, "in a test"),
		resultJSON("rule", "vendor/dep/x.go", 3, "vendored"),
		resultJSON("rule", "sub/node_modules/x.js", 3, "dependency"),
		resultJSON("rule", "pkg/real.go", 3, "real"),
	)

	findings, err := LoadFindings(path, t.TempDir())
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "pkg/real.go", findings[0].FilePath)
}

func TestLoadFindingsUnreadableSnippetGetsPlaceholder(t *testing.T) {
	path := writeSarif(t, resultJSON("rule", "gone/missing.go", 12, "dangling"))

	findings, err := LoadFindings(path, t.TempDir())
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Snippet, "could not read source")
}

func TestLoadFindingsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.sarif")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadFindings(path, t.TempDir())
	assert.Error(t, err)
}

func TestIsExcludedPath(t *testing.T) {
	assert.True(t, isExcludedPath("vendor/github.com/x/y.go"))
	assert.True(t, isExcludedPath("a/b/node_modules/c.js"))
	assert.True(t, isExcludedPath("pkg/foo_test.go"))
	assert.True(t, isExcludedPath("src/test_util.py"))
	assert.False(t, isExcludedPath("pkg/server.go"))
	assert.False(t, isExcludedPath("attestation/sign.go"))
}
