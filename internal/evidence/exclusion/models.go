package exclusion

import (
	"slices"
	"time"
)

// Outcome is the screening verdict.
type Outcome string

const (
	// OutcomeClear: every source answered and none matched.
	OutcomeClear Outcome = "clear"
	// OutcomeMatch: at least one source listed the provider by name or NPI.
	OutcomeMatch Outcome = "match"
	// OutcomeIndeterminate: no match found but at least one source could not
	// answer. Blocks progress without rejecting.
	OutcomeIndeterminate Outcome = "indeterminate"
)

// Query is what a source is asked about.
type Query struct {
	Name string
	NPI  string
}

// Entry is one listing returned by a source.
type Entry struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	NPI     string   `json:"npi,omitempty"`
}

// names returns the normalized primary name and aliases.
func (e Entry) names() []string {
	out := make([]string, 0, 1+len(e.Aliases))
	for _, n := range append([]string{e.Name}, e.Aliases...) {
		if n = NormalizeName(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// MatchedEntry identifies a listing that matched the provider.
type MatchedEntry struct {
	Source  string `json:"source"`
	EntryID string `json:"entry_id"`
	On      string `json:"on"` // "name" or "npi"
}

// CheckResult is an immutable screening result.
type CheckResult struct {
	Outcome        Outcome        `json:"outcome"`
	CheckedAt      time.Time      `json:"checked_at"`
	Name           string         `json:"name"`
	NPI            string         `json:"npi,omitempty"`
	MatchedEntries []MatchedEntry `json:"matched_entries,omitempty"`
	FailedSources  []string       `json:"failed_sources,omitempty"`
}

// Matched reports whether any source listed the provider.
func (r *CheckResult) Matched() bool {
	return r != nil && r.Outcome == OutcomeMatch
}

// Definite reports whether the result is a clear or a match.
func (r *CheckResult) Definite() bool {
	return r != nil && r.Outcome != OutcomeIndeterminate
}

// FreshAt reports whether the result is still inside the freshness window at asOf.
func (r *CheckResult) FreshAt(asOf time.Time, window time.Duration) bool {
	if r == nil {
		return false
	}
	return asOf.Before(r.CheckedAt.Add(window))
}

// EntryIDs lists matched entry identifiers, sorted.
func (r *CheckResult) EntryIDs() []string {
	ids := make([]string, 0, len(r.MatchedEntries))
	for _, m := range r.MatchedEntries {
		ids = append(ids, m.Source+":"+m.EntryID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
