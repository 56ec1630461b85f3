// Package builtin registers the scenarios shipped with railsim.
package builtin

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/vovakirdan/railsim/internal/registry"
	"github.com/vovakirdan/railsim/internal/scenario"
)

//go:embed *.yaml
var files embed.FS

func init() {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		panic(fmt.Sprintf("builtin: reading embedded scenarios: %v", err))
	}
	for _, e := range entries {
		data, err := files.ReadFile(e.Name())
		if err != nil {
			panic(fmt.Sprintf("builtin: reading %s: %v", e.Name(), err))
		}
		s, err := scenario.Parse(data)
		if err != nil {
			panic(fmt.Sprintf("builtin: %s: %v", e.Name(), err))
		}
		name := e.Name()
		registry.Register(s.ID, func() scenario.Scenario {
			// Re-parse so callers never share slices.
			fresh, err := scenario.Parse(data)
			if err != nil {
				panic(fmt.Sprintf("builtin: %s: %v", name, err))
			}
			return fresh
		})
	}
}
