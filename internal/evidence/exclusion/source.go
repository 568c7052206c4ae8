package exclusion

import "context"

// Source queries one sanction or exclusion list. Implementations return
// candidate entries; the Checker decides what counts as a match.
type Source interface {
	Name() string
	Query(ctx context.Context, q Query) ([]Entry, error)
}
