package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/railsim/internal/config"
	"github.com/vovakirdan/railsim/internal/engine"
	"github.com/vovakirdan/railsim/internal/scheduler"
	"github.com/vovakirdan/railsim/internal/storage"
	"github.com/vovakirdan/railsim/internal/train"
)

// defaultInstantTicks bounds an --instant run when --ticks is not given.
const defaultInstantTicks = 100

var (
	flagMode     string
	flagTicks    uint64
	flagGrid     int
	flagInstant  bool
	flagNoRecord bool
)

var runCmd = &cobra.Command{
	Use:   "run <scenario>",
	Short: "Run a scenario",
	Long: `Run a built-in scenario or a scenario YAML file.

The controller and movement tasks run on their own timers until --ticks
movement ticks have executed or the run is interrupted (Ctrl+C).

Modes:
  loose     - Independent timers; movement waits for a fresh controller tick
  lockstep  - Every controller tick is followed by exactly one movement tick

With --instant the ticks run back to back without timers.

Examples:
  railsim run twin-mainline
  railsim run head-on --mode lockstep --ticks 50
  railsim run ./layout.yaml --grid 40 --instant --ticks 500`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&flagMode, "mode", "", "Scheduling mode: loose, lockstep (overrides config)")
	runCmd.Flags().Uint64Var(&flagTicks, "ticks", 0, "Stop after this many movement ticks (0 = until interrupted)")
	runCmd.Flags().IntVar(&flagGrid, "grid", 0, "Grid size in pixels per cell (overrides scenario and config)")
	runCmd.Flags().BoolVar(&flagInstant, "instant", false, "Run ticks back to back without timers")
	runCmd.Flags().BoolVar(&flagNoRecord, "no-record", false, "Do not record the run in the journal")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	sc, err := resolveScenario(args[0])
	if err != nil {
		return err
	}

	modeName := cfg.Scheduler.Mode
	if flagMode != "" {
		modeName = flagMode
	}
	mode, err := scheduler.ParseMode(modeName)
	if err != nil {
		return err
	}

	grid := gridSize(cfg, sc, flagGrid)

	graph, trains, err := sc.Build(float64(grid))
	if err != nil {
		return err
	}
	sim := engine.New(graph, trains)
	if err := sim.SetGridBounds(cfg.Grid.Min, cfg.Grid.Max); err != nil {
		return err
	}

	logger.Info("starting run",
		"scenario", sc.ID, "mode", mode, "grid", grid,
		"tracks", graph.Len(), "trains", len(trains))

	// Open run journal
	var rec *storage.Recorder
	if cfg.Storage.Enabled && !flagNoRecord {
		store, err := storage.Open(cfg.Storage.DBPath)
		if err != nil {
			logger.Warn("could not open run journal, continuing without it", "err", err)
		} else {
			defer store.Close()
			runID, err := store.BeginRun(sc.ID, string(mode), grid)
			if err != nil {
				logger.Warn("could not record run", "err", err)
			} else {
				rec = storage.NewRecorder(store, runID)
				logger.Info("recording run", "run", runID)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var snap engine.Snapshot
	status := storage.StatusCompleted
	if flagInstant {
		snap, err = runInstant(ctx, sim, rec, logger)
	} else {
		snap, err = runScheduled(ctx, sim, mode, cfg.Scheduler, rec, logger)
	}
	if errors.Is(err, context.Canceled) {
		status = storage.StatusStopped
		err = nil
	}
	if err != nil {
		status = storage.StatusFailed
	}

	if rec != nil {
		if ferr := rec.Finish(status, snap); ferr != nil {
			logger.Warn("could not finish run record", "err", ferr)
		}
		if rerr := rec.Err(); rerr != nil {
			logger.Warn("run journal incomplete", "err", rerr)
		}
	}
	if err != nil {
		return err
	}

	printSummary(sc.Title(), status, snap, rec)
	return nil
}

func runScheduled(ctx context.Context, sim *engine.Simulation, mode scheduler.Mode, timing config.SchedulerConfig, rec *storage.Recorder, logger *log.Logger) (engine.Snapshot, error) {
	var observers []scheduler.Observer
	if rec != nil {
		observers = append(observers, rec)
	}

	sched := scheduler.New(sim, scheduler.Options{
		Mode:             mode,
		ControllerPeriod: timing.ControllerPeriod,
		MovementPeriod:   timing.MovementPeriod,
		MovementWarmup:   timing.MovementWarmup,
		MaxMovementTicks: flagTicks,
		Logger:           logger,
	}, observers...)

	err := sched.Start(ctx)
	return sched.Snapshot(), err
}

// runInstant runs controller and movement ticks back to back, honouring the
// same halt and resume logging as the scheduler.
func runInstant(ctx context.Context, sim *engine.Simulation, rec *storage.Recorder, logger *log.Logger) (engine.Snapshot, error) {
	ticks := flagTicks
	if ticks == 0 {
		ticks = defaultInstantTicks
	}

	for i := uint64(0); i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			return sim.Snapshot(), err
		}
		c, m := sim.Tick()
		for _, ev := range c.Events {
			logger.Info("train "+string(ev.Kind), "tick", c.Tick, "train", ev.Train, "blocked_by", ev.BlockedBy)
		}
		if rec != nil {
			rec.ControllerTicked(c)
			rec.MovementTicked(m)
		}
	}
	return sim.Snapshot(), nil
}

func printSummary(title, status string, snap engine.Snapshot, rec *storage.Recorder) {
	fmt.Println()
	fmt.Printf("Run summary - %s (%s)\n", title, status)
	fmt.Println()
	fmt.Printf("  Grid size:         %d\n", snap.GridSize)
	fmt.Printf("  Controller ticks:  %d\n", snap.ControllerTicks)
	fmt.Printf("  Movement ticks:    %d\n", snap.MovementTicks)
	fmt.Printf("  Skipped ticks:     %d\n", snap.SkippedTicks)
	if rec != nil {
		fmt.Printf("  Run ID:            %s\n", rec.RunID())
	}
	fmt.Println()

	if len(snap.Trains) == 0 {
		fmt.Println("No trains.")
		return
	}

	fmt.Printf("  %-10s  %-14s  %-7s  %-8s  %-9s  %-6s  %s\n", "Train", "Name", "Track", "Position", "Direction", "Speed", "State")
	fmt.Printf("  %-10s  %-14s  %-7s  %-8s  %-9s  %-6s  %s\n", "-----", "----", "-----", "--------", "---------", "-----", "-----")
	for _, t := range snap.Trains {
		fmt.Printf("  %-10s  %-14s  %-7s  %-8.4f  %-9s  %-6.2f  %s\n",
			t.ID, t.Name, t.TrackID, t.Position, t.Direction, t.Speed, trainState(t))
	}
}

func trainState(t train.Train) string {
	switch {
	case t.Halted && t.Halt != nil:
		return "halted by " + t.Halt.BlockedBy
	case t.Halted:
		return "halted"
	case t.Moving():
		return "moving"
	default:
		return "stopped"
	}
}
