// Package config loads audit configuration from an optional YAML file with
// environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable the audit pipeline reads. Zero values are
// filled in from DefaultConfig by Load.
type Config struct {
	// Model is the reasoning engine model identifier.
	Model string `yaml:"model"`

	// APIKey is the reasoning engine API key. Never read from the config
	// file; set via the ANTHROPIC_API_KEY environment variable.
	APIKey string `yaml:"-"`

	// ProjectsRoot is the directory whose immediate subdirectories are the
	// projects to audit.
	ProjectsRoot string `yaml:"projects_root"`

	// DBStorage is where CodeQL databases are materialized.
	DBStorage string `yaml:"db_storage"`

	// ScratchDir is where PoC artifacts are kept for audit.
	ScratchDir string `yaml:"scratch_dir"`

	// ResultsDB is the SQLite file recording per-finding outcomes.
	ResultsDB string `yaml:"results_db"`

	// ReportPath is where the final markdown report is written.
	ReportPath string `yaml:"report_path"`

	// MaxContextRounds bounds how many times the reasoning session may ask
	// for more source context per finding.
	MaxContextRounds int `yaml:"max_context_rounds"`

	// MaxCallsPerProject is the per-project governed-call quota.
	MaxCallsPerProject int `yaml:"max_calls_per_project"`

	// TripThreshold is the consecutive-error count that latches the circuit
	// breaker open for the rest of the process.
	TripThreshold int `yaml:"trip_threshold"`

	// FileSizeLimitMB caps how much of any single source file the context
	// resolver will read.
	FileSizeLimitMB int `yaml:"file_size_limit_mb"`

	// MaxFixAttempts bounds AI repair rounds per verification session.
	MaxFixAttempts int `yaml:"max_fix_attempts"`

	// ExecTimeout is the wall-clock bound on one PoC build/execute attempt.
	ExecTimeout time.Duration `yaml:"exec_timeout"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Model:              "claude-sonnet-4-5-20250929",
		ProjectsRoot:       "/opt/source_code",
		DBStorage:          "/opt/codeql-home/workspace/project_dbs",
		ScratchDir:         "poc_artifacts",
		ResultsDB:          "massaudit.db",
		ReportPath:         "audit_report.md",
		MaxContextRounds:   3,
		MaxCallsPerProject: 100,
		TripThreshold:      5,
		FileSizeLimitMB:    1,
		MaxFixAttempts:     8,
		ExecTimeout:        15 * time.Second,
	}
}

// Load reads the YAML file at path, overlays it on the defaults, then
// applies environment overrides. A missing file is not an error; the
// defaults are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("MASSAUDIT_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("MASSAUDIT_PROJECTS_ROOT"); v != "" {
		cfg.ProjectsRoot = v
	}
}

// Validate rejects configurations that would make the governor or the
// verification loop degenerate.
func (c *Config) Validate() error {
	if c.MaxCallsPerProject <= 0 {
		return fmt.Errorf("max_calls_per_project must be positive, got %d", c.MaxCallsPerProject)
	}
	if c.TripThreshold <= 0 {
		return fmt.Errorf("trip_threshold must be positive, got %d", c.TripThreshold)
	}
	if c.MaxFixAttempts < 0 {
		return fmt.Errorf("max_fix_attempts must not be negative, got %d", c.MaxFixAttempts)
	}
	if c.ExecTimeout <= 0 {
		return fmt.Errorf("exec_timeout must be positive, got %v", c.ExecTimeout)
	}
	if c.FileSizeLimitMB <= 0 {
		return fmt.Errorf("file_size_limit_mb must be positive, got %d", c.FileSizeLimitMB)
	}
	return nil
}

// FileSizeLimitBytes converts the configured ceiling to bytes.
func (c *Config) FileSizeLimitBytes() int64 {
	return int64(c.FileSizeLimitMB) * 1024 * 1024
}
