package factors

import (
	"encoding/json"
	"fmt"
	"os"
)

// MajorChanges is the year-on-year change analysis published alongside a
// factor dataset. Entries are passed through as published.
type MajorChanges struct {
	Metadata map[string]any   `json:"metadata"`
	Changes  []map[string]any `json:"major_changes"`
}

// NoMajorChanges is served when no analysis file is configured.
func NoMajorChanges() *MajorChanges {
	return &MajorChanges{
		Metadata: map[string]any{"title": "No major changes data available"},
		Changes:  []map[string]any{},
	}
}

func LoadMajorChanges(path string) (*MajorChanges, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open major changes: %w", err)
	}
	var mc MajorChanges
	if err := json.Unmarshal(raw, &mc); err != nil {
		return nil, fmt.Errorf("decode major changes %s: %w", path, err)
	}
	if mc.Metadata == nil {
		mc.Metadata = map[string]any{}
	}
	if mc.Changes == nil {
		mc.Changes = []map[string]any{}
	}
	return &mc, nil
}
