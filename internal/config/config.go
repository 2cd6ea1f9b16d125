package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"fileflows/internal/flow"
	"fileflows/internal/library"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
	// QueueMessages logs every queue addition and drainer decision at info
	// level instead of debug.
	QueueMessages bool `toml:"queue_messages"`
}

// Workflow contains configuration for daemon timing and concurrency. All
// intervals are in seconds.
type Workflow struct {
	PollInterval       int `toml:"poll_interval"`
	Runners            int `toml:"runners"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	ScanTick           int `toml:"scan_tick"`
	DrainFallback      int `toml:"drain_fallback"`
	SettleDelay        int `toml:"settle_delay"`
}

// Flow describes one [[flows]] entry.
type Flow struct {
	Name    string   `toml:"name"`
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Timeout int      `toml:"timeout"`
}

// Library describes one [[libraries]] entry.
type Library struct {
	Name                      string `toml:"name"`
	Path                      string `toml:"path"`
	Flow                      string `toml:"flow"`
	Enabled                   *bool  `toml:"enabled"`
	Folders                   bool   `toml:"folders"`
	Scan                      bool   `toml:"scan"`
	ScanInterval              int    `toml:"scan_interval"`
	Schedule                  string `toml:"schedule"`
	Filter                    string `toml:"filter"`
	ExclusionFilter           string `toml:"exclusion_filter"`
	ExcludeHidden             bool   `toml:"exclude_hidden"`
	UseFingerprinting         bool   `toml:"use_fingerprinting"`
	WaitTimeSeconds           int    `toml:"wait_time_seconds"`
	HoldMinutes               int    `toml:"hold_minutes"`
	ReprocessRecreatedFiles   bool   `toml:"reprocess_recreated_files"`
	SkipFileAccessTests       bool   `toml:"skip_file_access_tests"`
	FileSizeDetectionInterval int    `toml:"file_size_detection_interval"`
	Priority                  int    `toml:"priority"`
}

// Config encapsulates all configuration values for FileFlows.
//
// Configuration sections:
//   - Paths: state (database, socket, lock) and log directories
//   - Logging: log format, level, and retention
//   - Workflow: scheduler runners and daemon timing
//   - Flows: processing definitions referenced by libraries
//   - Libraries: watched roots and their ingestion rules
type Config struct {
	Paths     Paths     `toml:"paths"`
	Logging   Logging   `toml:"logging"`
	Workflow  Workflow  `toml:"workflow"`
	Flows     []Flow    `toml:"flows"`
	Libraries []Library `toml:"libraries"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("fileflows.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.FileLogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite record store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "fileflows.db")
}

// SocketPath returns the control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "fileflows.sock")
}

// LockPath returns the daemon single-instance lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "fileflows.lock")
}

// DaemonLogPath returns the daemon log file location.
func (c *Config) DaemonLogPath() string {
	return filepath.Join(c.Paths.LogDir, "fileflows.log")
}

// FileLogDir returns the directory holding per-file processing logs.
func (c *Config) FileLogDir() string {
	return filepath.Join(c.Paths.LogDir, "files")
}

// PollInterval returns the scheduler poll interval.
func (c *Config) PollInterval() time.Duration {
	return seconds(c.Workflow.PollInterval)
}

// ErrorRetryInterval returns the delay before a runner retries after a store error.
func (c *Config) ErrorRetryInterval() time.Duration {
	return seconds(c.Workflow.ErrorRetryInterval)
}

// ScanTick returns the per-library scan loop period.
func (c *Config) ScanTick() time.Duration {
	return seconds(c.Workflow.ScanTick)
}

// DrainFallback returns the drainer's fallback wake period.
func (c *Config) DrainFallback() time.Duration {
	return seconds(c.Workflow.DrainFallback)
}

// SettleDelay returns how long a watched file must stay unchanged before it is queued.
func (c *Config) SettleDelay() time.Duration {
	return seconds(c.Workflow.SettleDelay)
}

// LibraryDefinitions converts [[libraries]] into library models.
func (c *Config) LibraryDefinitions() []library.Library {
	out := make([]library.Library, 0, len(c.Libraries))
	for _, lib := range c.Libraries {
		out = append(out, lib.Definition())
	}
	return out
}

// Definition converts a library entry into its runtime model.
func (l Library) Definition() library.Library {
	enabled := true
	if l.Enabled != nil {
		enabled = *l.Enabled
	}
	return library.Library{
		Name:                      l.Name,
		Path:                      l.Path,
		Flow:                      l.Flow,
		Enabled:                   enabled,
		Folders:                   l.Folders,
		Scan:                      l.Scan,
		ScanInterval:              seconds(l.ScanInterval),
		Schedule:                  library.Schedule(l.Schedule),
		Filter:                    l.Filter,
		ExclusionFilter:           l.ExclusionFilter,
		ExcludeHidden:             l.ExcludeHidden,
		UseFingerprinting:         l.UseFingerprinting,
		WaitTime:                  seconds(l.WaitTimeSeconds),
		HoldMinutes:               l.HoldMinutes,
		ReprocessRecreatedFiles:   l.ReprocessRecreatedFiles,
		SkipFileAccessTests:       l.SkipFileAccessTests,
		FileSizeDetectionInterval: seconds(l.FileSizeDetectionInterval),
		Priority:                  l.Priority,
	}
}

// FlowDefinitions converts [[flows]] into flow definitions.
func (c *Config) FlowDefinitions() []flow.Definition {
	out := make([]flow.Definition, 0, len(c.Flows))
	for _, f := range c.Flows {
		out = append(out, flow.Definition{
			Name:    f.Name,
			Command: f.Command,
			Args:    append([]string(nil), f.Args...),
			Timeout: seconds(f.Timeout),
		})
	}
	return out
}

func seconds(v int) time.Duration {
	return time.Duration(v) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
