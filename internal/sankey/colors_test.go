package sankey

import "testing"

func TestColorTableLookup(t *testing.T) {
	ct := NewColorTable(map[string]string{
		"gas":         "orange",
		"natural gas": "darkorange",
		"oil":         "black",
	})

	tests := []struct {
		name      string
		wantColor string
		wantOK    bool
	}{
		{"Natural gas [from Wells]", "darkorange", true},
		{"Gas works gas", "orange", true},
		{"Crude oil", "black", true},
		{"OIL REFINERIES", "black", true}, // matching is case-insensitive
		{"Electricity", "", false},
	}

	for _, tt := range tests {
		got, ok := ct.Lookup(tt.name)
		if ok != tt.wantOK || got != tt.wantColor {
			t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.name, got, ok, tt.wantColor, tt.wantOK)
		}
	}
}

func TestColorTableLongestFragmentWins(t *testing.T) {
	// Build twice with differing insertion order; the longer fragment must
	// win both times.
	a := NewColorTable(map[string]string{"gas": "orange", "natural gas": "darkorange"})
	b := NewColorTable(map[string]string{"natural gas": "darkorange", "gas": "orange"})

	for _, ct := range []ColorTable{a, b} {
		got, ok := ct.Lookup("Natural gas")
		if !ok || got != "darkorange" {
			t.Errorf("Lookup(Natural gas) = (%q, %v), want the specific fragment's color", got, ok)
		}
	}
}

func TestEmptyColorTable(t *testing.T) {
	var ct ColorTable
	if _, ok := ct.Lookup("Coal"); ok {
		t.Error("empty table must match nothing")
	}
}
