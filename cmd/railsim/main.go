// railsim runs train movement simulations on a track grid, halting trains
// whose short-term paths would meet and releasing them once the way is clear.
//
// Usage:
//
//	railsim list                  - List built-in and local scenarios
//	railsim run <scenario>        - Run a scenario (ID or YAML file)
//	railsim inspect <scenario>    - Show segments and connectivity
//	railsim history [run-id]      - Show recorded runs
//
// Global flags:
//
//	--config <path>     - Config file (default: search ~/.railsim, ./configs)
//	--db <path>         - Run journal path (default: ~/.railsim/runs.db)
//	--log-level <lvl>   - debug, info, warn, error
//	--scenarios <dir>   - Extra directory of scenario files
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/railsim/internal/config"
	"github.com/vovakirdan/railsim/internal/logging"
	"github.com/vovakirdan/railsim/internal/registry"
	"github.com/vovakirdan/railsim/internal/scenario"

	// Import built-in scenarios to register them
	_ "github.com/vovakirdan/railsim/internal/scenarios/builtin"
)

var (
	// Global flags
	flagConfig       string
	flagDBPath       string
	flagLogLevel     string
	flagScenariosDir string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "railsim",
	Short: "Railsim - Train movement and collision avoidance simulator",
	Long: `Railsim moves trains along straight track segments laid out on a grid.
A controller forecasts where every train will be over the next ticks and
halts trains whose paths would meet, releasing them once the way is clear.

Available commands:
  list     - Show all available scenarios
  run      - Run a scenario
  inspect  - Show a scenario's track layout and connectivity
  history  - View recorded runs

Examples:
  railsim list
  railsim run twin-mainline
  railsim run ./my-layout.yaml --mode lockstep --ticks 200
  railsim inspect siding
  railsim history`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config YAML")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to run journal database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagScenariosDir, "scenarios", "", "Directory of additional scenario files")

	// Add subcommands
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig loads the configuration and applies the global flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagDBPath != "" {
		cfg.Storage.DBPath = flagDBPath
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) (*log.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Prefix: "railsim",
	})
}

// gridSize picks the flag, scenario or config grid size, in that order, and
// clamps it to the configured bounds.
func gridSize(cfg config.Config, sc scenario.Scenario, flag int) int {
	grid := cfg.Grid.Size
	if sc.GridSize > 0 {
		grid = sc.GridSize
	}
	if flag > 0 {
		grid = flag
	}
	return max(cfg.Grid.Min, min(grid, cfg.Grid.Max))
}

// resolveScenario finds a scenario by built-in ID, file path or ID within
// the --scenarios directory, in that order.
func resolveScenario(arg string) (scenario.Scenario, error) {
	if registry.Exists(arg) {
		return registry.Create(arg)
	}
	if scenario.IsScenarioFile(arg) {
		if _, err := os.Stat(arg); err == nil {
			return scenario.LoadFile(arg)
		}
	}
	if flagScenariosDir != "" {
		if s, err := scenario.NewLoader(flagScenariosDir).LoadByID(arg); err == nil {
			return s, nil
		}
	}
	return scenario.Scenario{}, fmt.Errorf("unknown scenario %q (run 'railsim list' to see available scenarios)", arg)
}
