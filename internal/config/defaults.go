package config

const (
	defaultConfigPath                = "~/.config/fileflows/config.toml"
	defaultStateDir                  = "~/.local/share/fileflows"
	defaultLogDir                    = "~/.local/share/fileflows/logs"
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultLogRetentionDays          = 30
	defaultWorkflowPollInterval      = 60
	defaultWorkflowRunners           = 1
	defaultWorkflowErrorRetry        = 10
	defaultWorkflowScanTick          = 10
	defaultWorkflowDrainFallback     = 5
	defaultWorkflowSettleDelay       = 20
	defaultLibraryScanInterval       = 60
	defaultFileSizeDetectionInterval = 5
	minWorkflowPollInterval          = 60
	maxFileSizeDetectionInterval     = 300
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Workflow: Workflow{
			PollInterval:       defaultWorkflowPollInterval,
			Runners:            defaultWorkflowRunners,
			ErrorRetryInterval: defaultWorkflowErrorRetry,
			ScanTick:           defaultWorkflowScanTick,
			DrainFallback:      defaultWorkflowDrainFallback,
			SettleDelay:        defaultWorkflowSettleDelay,
		},
	}
}
