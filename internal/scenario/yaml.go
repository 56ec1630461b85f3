package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Extensions returns the supported scenario file extensions.
func Extensions() []string {
	return []string{".yaml", ".yml"}
}

// Parse decodes a YAML scenario. Unknown keys are rejected so typos in the
// authoring shorthand do not silently fall back to defaults.
func Parse(data []byte) (Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return Scenario{}, errors.New("scenario: empty document")
		}
		return Scenario{}, fmt.Errorf("scenario: yaml unmarshal: %w", err)
	}
	return s, nil
}

// Marshal encodes a scenario as YAML.
func Marshal(s Scenario) ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("scenario: yaml marshal: %w", err)
	}
	return data, nil
}
