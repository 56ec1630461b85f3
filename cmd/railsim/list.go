package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/railsim/internal/registry"
	"github.com/vovakirdan/railsim/internal/scenario"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available scenarios",
	Long: `Shows the built-in scenarios and, with --scenarios, the scenario files
found in that directory.`,
	RunE: runList,
}

type listRow struct {
	id, title, source string
}

func runList(cmd *cobra.Command, args []string) error {
	var rows []listRow
	for _, info := range registry.List() {
		rows = append(rows, listRow{id: info.ID, title: info.Title, source: "built-in"})
	}

	if flagScenariosDir != "" {
		local, err := scenario.NewLoader(flagScenariosDir).LoadAll()
		if err != nil {
			return err
		}
		for _, s := range local {
			rows = append(rows, listRow{id: s.ID, title: s.Title(), source: s.FilePath})
		}
	}

	if len(rows) == 0 {
		fmt.Println("No scenarios available.")
		return nil
	}

	fmt.Println("Available scenarios:")
	fmt.Println()

	// Calculate column widths
	maxIDLen, maxTitleLen := 2, 5 // "ID", "Title" headers
	for _, r := range rows {
		maxIDLen = max(maxIDLen, len(r.id))
		maxTitleLen = max(maxTitleLen, len(r.title))
	}

	// Print header
	fmt.Printf("  %-*s  %-*s  %s\n", maxIDLen, "ID", maxTitleLen, "Title", "Source")
	fmt.Printf("  %-*s  %-*s  %s\n", maxIDLen, "--", maxTitleLen, "-----", "------")

	for _, r := range rows {
		fmt.Printf("  %-*s  %-*s  %s\n", maxIDLen, r.id, maxTitleLen, r.title, r.source)
	}

	fmt.Println()
	fmt.Println("Run 'railsim run <id>' to run a scenario.")
	return nil
}
