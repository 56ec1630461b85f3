// Package config provides YAML-based runtime configuration for railsim.
package config

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Config is the complete runtime configuration.
type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
}

// GridConfig sets the grid size a scenario is built at and the range it
// may be rescaled within.
type GridConfig struct {
	Size int `yaml:"size"`
	Min  int `yaml:"min"`
	Max  int `yaml:"max"`
}

// SchedulerConfig controls task timing.
type SchedulerConfig struct {
	Mode             string        `yaml:"mode"` // "loose" or "lockstep"
	ControllerPeriod time.Duration `yaml:"controller_period"`
	MovementPeriod   time.Duration `yaml:"movement_period"`
	MovementWarmup   time.Duration `yaml:"movement_warmup"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, logfmt, auto
}

// StorageConfig controls the run journal.
type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

var (
	validModes   = []string{"loose", "lockstep"}
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json", "logfmt", "auto"}
)

// Validate fills in missing values, repairs the grid bounds and rejects
// unknown enumerations.
func (c *Config) Validate() error {
	def := Default()

	if c.Grid.Min <= 0 {
		c.Grid.Min = def.Grid.Min
	}
	if c.Grid.Max <= 0 {
		c.Grid.Max = def.Grid.Max
	}
	if c.Grid.Max < c.Grid.Min {
		c.Grid.Min, c.Grid.Max = c.Grid.Max, c.Grid.Min
	}
	if c.Grid.Size <= 0 {
		c.Grid.Size = def.Grid.Size
	}
	c.Grid.Size = min(max(c.Grid.Size, c.Grid.Min), c.Grid.Max)

	if c.Scheduler.Mode == "" {
		c.Scheduler.Mode = def.Scheduler.Mode
	}
	if !lo.Contains(validModes, c.Scheduler.Mode) {
		return fmt.Errorf("config: unknown scheduler mode %q", c.Scheduler.Mode)
	}
	if c.Scheduler.ControllerPeriod <= 0 {
		c.Scheduler.ControllerPeriod = def.Scheduler.ControllerPeriod
	}
	if c.Scheduler.MovementPeriod <= 0 {
		c.Scheduler.MovementPeriod = def.Scheduler.MovementPeriod
	}
	if c.Scheduler.MovementWarmup < 0 {
		c.Scheduler.MovementWarmup = 0
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if !lo.Contains(validLevels, c.Log.Level) {
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if !lo.Contains(validFormats, c.Log.Format) {
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}

	if c.Storage.DBPath == "" {
		c.Storage.DBPath = def.Storage.DBPath
	}
	return nil
}
