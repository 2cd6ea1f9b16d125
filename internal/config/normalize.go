package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeWorkflow()
	c.normalizeFlows()
	return c.normalizeLibraries()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollInterval < minWorkflowPollInterval {
		c.Workflow.PollInterval = minWorkflowPollInterval
	}
	if c.Workflow.Runners <= 0 {
		c.Workflow.Runners = defaultWorkflowRunners
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultWorkflowErrorRetry
	}
	if c.Workflow.ScanTick <= 0 {
		c.Workflow.ScanTick = defaultWorkflowScanTick
	}
	if c.Workflow.DrainFallback <= 0 {
		c.Workflow.DrainFallback = defaultWorkflowDrainFallback
	}
	if c.Workflow.SettleDelay < 0 {
		c.Workflow.SettleDelay = 0
	}
}

func (c *Config) normalizeFlows() {
	for i := range c.Flows {
		c.Flows[i].Name = strings.TrimSpace(c.Flows[i].Name)
		c.Flows[i].Command = strings.TrimSpace(c.Flows[i].Command)
		if c.Flows[i].Timeout < 0 {
			c.Flows[i].Timeout = 0
		}
	}
}

func (c *Config) normalizeLibraries() error {
	for i := range c.Libraries {
		lib := &c.Libraries[i]
		lib.Name = strings.TrimSpace(lib.Name)
		lib.Flow = strings.TrimSpace(lib.Flow)
		lib.Schedule = strings.TrimSpace(lib.Schedule)
		if strings.TrimSpace(lib.Path) != "" {
			expanded, err := expandPath(strings.TrimSpace(lib.Path))
			if err != nil {
				return fmt.Errorf("libraries[%d].path: %w", i, err)
			}
			lib.Path = expanded
		}
		if lib.ScanInterval <= 0 {
			lib.ScanInterval = defaultLibraryScanInterval
		}
		if lib.FileSizeDetectionInterval <= 0 {
			lib.FileSizeDetectionInterval = defaultFileSizeDetectionInterval
		}
		if lib.FileSizeDetectionInterval > maxFileSizeDetectionInterval {
			lib.FileSizeDetectionInterval = maxFileSizeDetectionInterval
		}
		if lib.WaitTimeSeconds < 0 {
			lib.WaitTimeSeconds = 0
		}
		if lib.HoldMinutes < 0 {
			lib.HoldMinutes = 0
		}
	}
	return nil
}
