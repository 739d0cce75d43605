package engine

import "time"

const (
	defaultOutputLimitBytes int64 = 4 * 1024 * 1024
	defaultWaitDelay              = 2 * time.Second
	defaultHelperName             = "sandbox-init"
)

// Config controls command runner behavior.
type Config struct {
	// HelperPath is the rlimit helper started in front of every command.
	// Empty means look up sandbox-init on PATH; "-" disables the helper.
	HelperPath string `yaml:"helperPath"`
	// OutputLimitBytes caps captured stdout and stderr separately.
	OutputLimitBytes int64 `yaml:"outputLimitBytes"`
	// WaitDelay bounds how long pipes may outlive a killed process.
	WaitDelay time.Duration `yaml:"waitDelay"`
}

func (c Config) withDefaults() Config {
	if c.OutputLimitBytes <= 0 {
		c.OutputLimitBytes = defaultOutputLimitBytes
	}
	if c.WaitDelay <= 0 {
		c.WaitDelay = defaultWaitDelay
	}
	return c
}
