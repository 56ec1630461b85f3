package main

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/railsim/internal/scenario"
	"github.com/vovakirdan/railsim/internal/track"
)

var (
	flagInspectYAML bool
	flagInspectGrid int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <scenario>",
	Short: "Show a scenario's track layout and connectivity",
	Long: `Build a scenario and print every segment in grid cells together with
the segments reachable from each of its endpoints, followed by the trains.

With --yaml the scenario is printed in its file form instead.

Examples:
  railsim inspect twin-mainline
  railsim inspect siding --grid 10
  railsim inspect head-on --yaml > head-on.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&flagInspectYAML, "yaml", false, "Print the scenario as YAML")
	inspectCmd.Flags().IntVar(&flagInspectGrid, "grid", 0, "Grid size to build at (default: scenario or config)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	sc, err := resolveScenario(args[0])
	if err != nil {
		return err
	}

	if flagInspectYAML {
		data, err := scenario.Marshal(sc)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	grid := gridSize(cfg, sc, flagInspectGrid)

	graph, trains, err := sc.Build(float64(grid))
	if err != nil {
		return err
	}

	fmt.Printf("%s (grid %d)\n", sc.Title(), grid)
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}
	fmt.Println()

	fmt.Printf("  %-7s  %-8s  %-6s  %-8s  %-8s  %-6s  %-12s  %s\n",
		"Track", "Kind", "Active", "Start", "End", "Cells", "At start", "At end")
	fmt.Printf("  %-7s  %-8s  %-6s  %-8s  %-8s  %-6s  %-12s  %s\n",
		"-----", "----", "------", "-----", "---", "-----", "--------", "------")
	for _, seg := range graph.Segments() {
		start, end := seg.ToGrid(graph.GridSize())
		fmt.Printf("  %-7s  %-8s  %-6v  %-8s  %-8s  %-6.1f  %-12s  %s\n",
			seg.ID, seg.Kind, seg.Active, start.Key(), end.Key(),
			seg.Length()/graph.GridSize(),
			connections(graph, seg, false), connections(graph, seg, true))
	}

	fmt.Println()
	if len(trains) == 0 {
		fmt.Println("No trains.")
		return nil
	}
	fmt.Printf("  %-10s  %-14s  %-7s  %-8s  %-9s  %-6s  %s\n", "Train", "Name", "Track", "Position", "Direction", "Speed", "Destination")
	fmt.Printf("  %-10s  %-14s  %-7s  %-8s  %-9s  %-6s  %s\n", "-----", "----", "-----", "--------", "---------", "-----", "-----------")
	for _, t := range trains {
		fmt.Printf("  %-10s  %-14s  %-7s  %-8.4f  %-9s  %-6.2f  %s\n",
			t.ID, t.Name, t.TrackID, t.Position, t.Direction, t.Speed, lo.Ternary(t.Destination == "", "-", t.Destination))
	}
	return nil
}

// connections lists the segments reachable from one endpoint of seg.
func connections(g *track.Graph, seg track.Segment, atEnd bool) string {
	found := g.FindConnections(seg.ID, seg.Endpoint(atEnd))
	if len(found) == 0 {
		return "-"
	}
	return strings.Join(lo.Map(found, func(s track.Segment, _ int) string { return s.ID }), ",")
}
