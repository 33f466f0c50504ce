package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test uses POSIX shell utilities")
	}
}

func TestRunCapturesCombinedOutput(t *testing.T) {
	skipOnWindows(t)

	var r ExecRunner
	res, err := r.Run(context.Background(), Command{
		Argv: []string{"sh", "-c", "echo out; echo err 1>&2"},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Output, "out")
	assert.Contains(t, res.Output, "err")
	assert.False(t, res.TimedOut)
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	skipOnWindows(t)

	var r ExecRunner
	res, err := r.Run(context.Background(), Command{
		Argv: []string{"sh", "-c", "echo boom; exit 3"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Output, "boom")
}

func TestRunTimeout(t *testing.T) {
	skipOnWindows(t)

	var r ExecRunner
	start := time.Now()
	res, err := r.Run(context.Background(), Command{
		Argv:    []string{"sh", "-c", "sleep 5"},
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)

	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRunMissingBinary(t *testing.T) {
	var r ExecRunner
	res, err := r.Run(context.Background(), Command{
		Argv: []string{"definitely-not-a-real-binary-xyz"},
	})
	require.Error(t, err)
	assert.False(t, res.TimedOut)
	assert.Equal(t, -1, res.ExitCode)
}

func TestRunEmptyCommand(t *testing.T) {
	var r ExecRunner
	_, err := r.Run(context.Background(), Command{})
	assert.Error(t, err)
}

func TestRunWorkingDirectory(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0644))

	var r ExecRunner
	res, err := r.Run(context.Background(), Command{
		Argv: []string{"ls"},
		Dir:  dir,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Output, "marker.txt")
}
