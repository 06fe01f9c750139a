package analysis

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

// DefaultMissingTokens are the sentinels treated as absent values.
var DefaultMissingTokens = []string{"", "na", "n/a", "nan", "null", "none", "unknown", "error"}

// TokenSet is a case-folded set of missing-value sentinels.
type TokenSet map[string]struct{}

// NewTokenSet folds and trims the given tokens.
func NewTokenSet(tokens ...string) TokenSet {
	fold := cases.Fold()
	set := make(TokenSet, len(tokens))
	for _, t := range tokens {
		set[fold.String(strings.TrimSpace(t))] = struct{}{}
	}
	return set
}

// Match reports whether v, trimmed and case-folded, is a sentinel.
func (s TokenSet) Match(v string) bool {
	_, ok := s[cases.Fold().String(strings.TrimSpace(v))]
	return ok
}

// NormalizeMissing rewrites sentinel values in text columns to the absent
// marker and returns the number of cells changed. Running it again on its
// own output changes nothing.
func NormalizeMissing(ds *table.Dataset, tokens TokenSet) int {
	if tokens == nil {
		tokens = NewTokenSet(DefaultMissingTokens...)
	}
	fold := cases.Fold()
	changed := 0
	for _, c := range ds.Columns {
		if c.Kind != table.Text {
			continue
		}
		for i, v := range c.Strings {
			if c.Nulls[i] {
				continue
			}
			if _, ok := tokens[fold.String(strings.TrimSpace(v))]; ok {
				c.SetNull(i)
				changed++
			}
		}
	}
	return changed
}
