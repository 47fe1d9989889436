// Package history keeps a user's recent plot queries as a bounded
// most-recent-first list. Persistence is the caller's concern: the web
// layer round-trips the encoded blob through a client-side cookie, so the
// capacity stays small to respect cookie size limits.
package history

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// DefaultMaxEntries bounds the list in the reference behavior.
const DefaultMaxEntries = 5

// Entry is one remembered submission: the plot type plus the normalized
// user-facing query fields.
type Entry map[string]string

// NewEntry builds the history form of a submission.
func NewEntry(plotType string, fields map[string]string) Entry {
	e := make(Entry, len(fields)+1)
	for k, v := range fields {
		e[k] = v
	}
	e["plot_type"] = plotType
	return e
}

func (e Entry) equal(other Entry) bool {
	if len(e) != len(other) {
		return false
	}
	for k, v := range e {
		if other[k] != v {
			return false
		}
	}
	return true
}

// Record inserts an entry at the front of the list. An equal existing
// entry is removed first, so re-running a plot promotes it instead of
// duplicating it; the oldest entry drops once the list exceeds max.
func Record(list []Entry, plotType string, fields map[string]string, max int) []Entry {
	if max <= 0 {
		max = DefaultMaxEntries
	}

	entry := NewEntry(plotType, fields)

	kept := make([]Entry, 0, len(list)+1)
	kept = append(kept, entry)
	for _, existing := range list {
		if existing.equal(entry) {
			continue
		}
		kept = append(kept, existing)
	}

	if len(kept) > max {
		kept = kept[:max]
	}
	return kept
}

// Delete removes the entry at index, failing when index is outside
// [0, len).
func Delete(list []Entry, index int) ([]Entry, error) {
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("history index %d out of range [0, %d)", index, len(list))
	}
	return append(list[:index:index], list[index+1:]...), nil
}

// Encode serializes the list for cookie storage.
func Encode(list []Entry) (string, error) {
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode history: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode reverses Encode. An empty blob is an empty history, and a
// corrupt blob also decodes to empty rather than failing the request: the
// history is a convenience, never worth a 4xx.
func Decode(blob string) []Entry {
	if blob == "" {
		return nil
	}

	data, err := base64.URLEncoding.DecodeString(blob)
	if err != nil {
		return nil
	}

	var list []Entry
	if err := json.Unmarshal(data, &list); err != nil {
		return nil
	}
	return list
}
