package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/railsim.yaml
var defaultYAML []byte

// Default returns the hardcoded configuration, used when even the embedded
// defaults cannot be parsed.
func Default() Config {
	return Config{
		Grid: GridConfig{
			Size: 25,
			Min:  10,
			Max:  50,
		},
		Scheduler: SchedulerConfig{
			Mode:             "loose",
			ControllerPeriod: 500 * time.Millisecond,
			MovementPeriod:   500 * time.Millisecond,
			MovementWarmup:   100 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Storage: StorageConfig{
			Enabled: true,
			DBPath:  "~/.railsim/runs.db",
		},
	}
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return defaultYAML
}
