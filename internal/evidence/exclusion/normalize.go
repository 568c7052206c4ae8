package exclusion

import (
	"strings"
	"unicode"
)

// NormalizeName folds case, drops punctuation and collapses whitespace so
// "O'Brien,  Mary-Ann" and "obrien mary ann" compare equal. Separators
// (hyphen, comma, slash) become spaces; other punctuation is removed.
// Comparison after normalization is exact: there is no similarity scoring.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '-' || r == ',' || r == '/' || unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
