// Package strings holds list helpers shared by config parsing.
package strings

import (
	"strings"
)

// SplitList splits a comma separated value, trimming each entry and dropping
// blanks and repeats. Order is preserved.
func SplitList(raw string) []string {
	return dedupe(strings.Split(raw, ","), strings.TrimSpace)
}

// SplitListLower is SplitList with entries lowercased before comparison.
func SplitListLower(raw string) []string {
	return dedupe(strings.Split(raw, ","), func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

func dedupe(values []string, norm func(string) string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = norm(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
