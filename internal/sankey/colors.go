package sankey

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Fallback colors. Carriers without a configured color render neutral;
// industry nodes (the non-carrier side of U and Y links) always get the
// fixed industry color.
const (
	DefaultCarrierColor = "wheat"
	IndustryColor       = "midnightblue"
	NeutralLinkColor    = "rgba(160, 160, 160, 0.35)"
)

// ColorTable maps commodity-name fragments to display colors. A node name
// matches the first entry whose fragment appears in the lowercased name,
// so "Crude oil [from Fields]" picks up the "oil" color. Entries are kept
// in sorted order so matching is deterministic.
type ColorTable struct {
	entries []colorEntry
}

type colorEntry struct {
	fragment string
	color    string
}

// NewColorTable builds a table from a fragment->color map.
func NewColorTable(m map[string]string) ColorTable {
	entries := make([]colorEntry, 0, len(m))
	for fragment, color := range m {
		entries = append(entries, colorEntry{
			fragment: strings.ToLower(fragment),
			color:    color,
		})
	}
	// Longer fragments first so "natural gas" wins over "gas".
	sort.Slice(entries, func(a, b int) bool {
		if len(entries[a].fragment) != len(entries[b].fragment) {
			return len(entries[a].fragment) > len(entries[b].fragment)
		}
		return entries[a].fragment < entries[b].fragment
	})
	return ColorTable{entries: entries}
}

// LoadColors reads the fragment->color JSON resource once at startup.
func LoadColors(path string) (ColorTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ColorTable{}, fmt.Errorf("failed to read sankey colors: %w", err)
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return ColorTable{}, fmt.Errorf("failed to parse sankey colors: %w", err)
	}

	return NewColorTable(m), nil
}

// Lookup returns the configured color for a node name, or false when no
// fragment matches.
func (ct ColorTable) Lookup(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, e := range ct.entries {
		if strings.Contains(lower, e.fragment) {
			return e.color, true
		}
	}
	return "", false
}
