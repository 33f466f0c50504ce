package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.MaxCallsPerProject)
	assert.Equal(t, 5, cfg.TripThreshold)
	assert.Equal(t, 8, cfg.MaxFixAttempts)
	assert.Equal(t, 15*time.Second, cfg.ExecTimeout)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "massaudit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_calls_per_project: 7\nprojects_root: /srv/code\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.MaxCallsPerProject)
	assert.Equal(t, "/srv/code", cfg.ProjectsRoot)
	// Untouched keys keep their defaults.
	assert.Equal(t, 5, cfg.TripThreshold)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MASSAUDIT_MODEL", "claude-test-model")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "claude-test-model", cfg.Model)
	assert.Equal(t, "sk-test", cfg.APIKey)
}

func TestValidateRejectsDegenerateValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero quota", func(c *Config) { c.MaxCallsPerProject = 0 }},
		{"zero trip threshold", func(c *Config) { c.TripThreshold = 0 }},
		{"negative fix attempts", func(c *Config) { c.MaxFixAttempts = -1 }},
		{"zero exec timeout", func(c *Config) { c.ExecTimeout = 0 }},
		{"zero file size limit", func(c *Config) { c.FileSizeLimitMB = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFileSizeLimitBytes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FileSizeLimitMB = 2
	assert.Equal(t, int64(2*1024*1024), cfg.FileSizeLimitBytes())
}
