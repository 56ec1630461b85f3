package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/railsim/internal/storage"
)

var (
	flagHistoryScenario string
	flagHistoryLimit    int
	flagHistoryEvents   int
	flagHistoryStats    bool
	flagHistoryDelete   bool
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded runs",
	Long: `Without arguments, list the most recent runs from the journal.
With a run ID (or a unique prefix of one), show that run's final train
states and its events.

Examples:
  railsim history
  railsim history --scenario head-on --limit 5
  railsim history --stats
  railsim history 3f2a9c1e
  railsim history 3f2a9c1e --delete`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&flagHistoryScenario, "scenario", "", "Only list runs of this scenario")
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 10, "Number of runs to list")
	historyCmd.Flags().IntVar(&flagHistoryEvents, "events", 50, "Number of events to show for a run (0 = all)")
	historyCmd.Flags().BoolVar(&flagHistoryStats, "stats", false, "Show per-scenario totals")
	historyCmd.Flags().BoolVar(&flagHistoryDelete, "delete", false, "Delete the given run")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Open run journal
	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening run journal: %w", err)
	}
	defer store.Close()

	switch {
	case flagHistoryStats:
		return showStats(store)
	case len(args) == 1:
		return showRun(store, args[0])
	default:
		return listRuns(store)
	}
}

func listRuns(store *storage.Store) error {
	runs, err := store.RecentRuns(flagHistoryScenario, flagHistoryLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		fmt.Println()
		fmt.Println("Run 'railsim run <id>' to record the first one.")
		return nil
	}

	fmt.Println("Recent runs:")
	fmt.Println()
	fmt.Printf("  %-8s  %-16s  %-8s  %-9s  %-6s  %-5s  %-7s  %s\n", "ID", "Scenario", "Mode", "Status", "Ticks", "Halts", "Resumes", "Started")
	fmt.Printf("  %-8s  %-16s  %-8s  %-9s  %-6s  %-5s  %-7s  %s\n", "--", "--------", "----", "------", "-----", "-----", "-------", "-------")
	for _, r := range runs {
		fmt.Printf("  %-8s  %-16s  %-8s  %-9s  %-6d  %-5d  %-7d  %s\n",
			shortID(r.ID), r.Scenario, r.Mode, r.Status, r.MovementTicks, r.Halts, r.Resumes, formatTime(r.StartedAt))
	}
	return nil
}

func showRun(store *storage.Store, id string) error {
	run, err := store.RunByID(id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no run matching %q", id)
	}

	if flagHistoryDelete {
		if err := store.DeleteRun(run.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted run %s.\n", run.ID)
		return nil
	}

	fmt.Printf("Run %s\n", run.ID)
	fmt.Println()
	fmt.Printf("  Scenario:          %s\n", run.Scenario)
	fmt.Printf("  Mode:              %s\n", run.Mode)
	fmt.Printf("  Grid size:         %d\n", run.GridSize)
	fmt.Printf("  Status:            %s\n", run.Status)
	fmt.Printf("  Started:           %s\n", formatTime(run.StartedAt))
	fmt.Printf("  Finished:          %s\n", formatTime(run.FinishedAt))
	fmt.Printf("  Controller ticks:  %d\n", run.ControllerTicks)
	fmt.Printf("  Movement ticks:    %d\n", run.MovementTicks)
	fmt.Printf("  Skipped ticks:     %d\n", run.SkippedTicks)
	fmt.Printf("  Halts / resumes:   %d / %d\n", run.Halts, run.Resumes)
	fmt.Println()

	trains, err := store.RunTrains(run.ID)
	if err != nil {
		return err
	}
	if len(trains) > 0 {
		fmt.Println("Final trains:")
		fmt.Printf("  %-10s  %-14s  %-7s  %-8s  %-9s  %-6s  %s\n", "Train", "Name", "Track", "Position", "Direction", "Speed", "State")
		fmt.Printf("  %-10s  %-14s  %-7s  %-8s  %-9s  %-6s  %s\n", "-----", "----", "-----", "--------", "---------", "-----", "-----")
		for _, t := range trains {
			state := "running"
			if t.Halted {
				state = "halted by " + t.BlockedBy
			}
			fmt.Printf("  %-10s  %-14s  %-7s  %-8.4f  %-9d  %-6.2f  %s\n",
				t.TrainID, t.Name, t.TrackID, t.Position, t.Direction, t.Speed, state)
		}
		fmt.Println()
	}

	events, err := store.RunEvents(run.ID, flagHistoryEvents)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}
	fmt.Println("Events:")
	fmt.Printf("  %-6s  %-12s  %-10s  %s\n", "Tick", "Event", "Train", "Detail")
	fmt.Printf("  %-6s  %-12s  %-10s  %s\n", "----", "-----", "-----", "------")
	for _, ev := range events {
		detail := fmt.Sprintf("%s @%.4f", ev.Track, ev.Position)
		if ev.BlockedBy != "" {
			detail = "blocked by " + ev.BlockedBy
		}
		fmt.Printf("  %-6d  %-12s  %-10s  %s\n", ev.Tick, ev.Kind, ev.Train, detail)
	}
	return nil
}

func showStats(store *storage.Store) error {
	if flagHistoryScenario != "" {
		s, err := store.GetScenarioStats(flagHistoryScenario)
		if err != nil {
			return err
		}
		printStats(map[string]*storage.ScenarioStats{s.Scenario: s})
		return nil
	}

	all, err := store.GetAllScenarioStats()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}
	printStats(all)
	return nil
}

func printStats(stats map[string]*storage.ScenarioStats) {
	fmt.Printf("  %-16s  %-5s  %-14s  %-6s  %s\n", "Scenario", "Runs", "Movement ticks", "Halts", "Last run")
	fmt.Printf("  %-16s  %-5s  %-14s  %-6s  %s\n", "--------", "----", "--------------", "-----", "--------")
	names := lo.Keys(stats)
	slices.Sort(names)
	for _, name := range names {
		s := stats[name]
		fmt.Printf("  %-16s  %-5d  %-14d  %-6d  %s\n", s.Scenario, s.Runs, s.MovementTicks, s.Halts, formatTime(s.LastRun))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
