// Package metrics derives size statistics from the to-do list for telemetry.
package metrics

import "unicode/utf8"

// ListStats summarises a to-do list without exposing its text.
type ListStats struct {
	Items        int
	Runes        int
	LongestRunes int
}

// CountList computes ListStats for items.
func CountList(items []string) ListStats {
	st := ListStats{Items: len(items)}
	for _, it := range items {
		n := utf8.RuneCountInString(it)
		st.Runes += n
		if n > st.LongestRunes {
			st.LongestRunes = n
		}
	}
	return st
}

// Fields renders s as telemetry fields.
func (s ListStats) Fields() map[string]any {
	return map[string]any{
		"items":         s.Items,
		"runes":         s.Runes,
		"longest_runes": s.LongestRunes,
	}
}
