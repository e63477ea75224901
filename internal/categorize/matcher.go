// Package categorize picks a category for a transaction from the keyword
// lists attached to categories.
package categorize

import (
	"strings"

	"dompet/internal/core"
)

// Match returns the first candidate of the given kind whose keyword list has
// an entry contained, case-insensitively, in input. Candidates are scanned in
// the order given, so callers pass them in their stored order.
func Match(input string, kind core.Kind, candidates []core.Category) (core.Category, bool) {
	text := strings.ToLower(strings.TrimSpace(input))
	if text == "" {
		return core.Category{}, false
	}

	for _, c := range candidates {
		if c.Kind != kind {
			continue
		}
		for _, kw := range Keywords(c.Keywords) {
			if strings.Contains(text, kw) {
				return c, true
			}
		}
	}
	return core.Category{}, false
}

// Keywords splits a comma-separated keyword field into trimmed, lowercased
// entries. Blank entries are dropped.
func Keywords(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	parts := strings.Split(field, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if kw := strings.ToLower(strings.TrimSpace(p)); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
