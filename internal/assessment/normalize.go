package assessment

import (
	"encoding/json"
	"strings"

	"triage-assistant/pkg"
)

// NormalizeList materializes a loosely-typed model field as an ordered
// sequence of strings. Models return these fields as a native JSON array, a
// JSON-encoded string containing an array, or a plain paragraph; the parse
// is attempted in that order and a plain string becomes a single-element
// sequence. Absent or null input yields an empty, non-nil slice. The result
// is stable: normalizing an already-normalized value changes nothing.
func NormalizeList(raw json.RawMessage) []string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []string{}
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		return compactStrings(items)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		inner := strings.TrimSpace(s)
		if inner == "" {
			return []string{}
		}
		if err := json.Unmarshal([]byte(inner), &items); err == nil {
			return compactStrings(items)
		}
		return []string{inner}
	}

	// Neither an array nor a string: keep the literal text as one entry
	// rather than dropping model output on the floor.
	return []string{trimmed}
}

func compactStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it != "" {
			out = append(out, it)
		}
	}
	return out
}

// DedupeReferences drops repeated literature ids, keeping first-seen order.
func DedupeReferences(items []pkg.ReferenceItem) []pkg.ReferenceItem {
	out := make([]pkg.ReferenceItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}

// DedupeTrials drops repeated registry ids, keeping first-seen order.
func DedupeTrials(items []pkg.TrialItem) []pkg.TrialItem {
	out := make([]pkg.TrialItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}
