// Package strings provides list helpers for configuration values and
// identifier sets.
package strings

import (
	"strings"
)

// SplitList splits a comma-separated setting into lowercase, trimmed,
// de-duplicated entries. Order is preserved.
//
//	SplitList(" License, liability_insurance,license,")
//	// Returns: []string{"license", "liability_insurance"}
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return dedupe(strings.Split(raw, ","), func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

// DedupeAndTrim removes duplicates and empty strings, trimming whitespace
// from each element. Order is preserved. Case is kept: exclusion list entry
// identifiers are case-sensitive.
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

func dedupe(values []string, norm func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = norm(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
