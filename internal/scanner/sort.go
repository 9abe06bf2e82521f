package scanner

import (
	"math"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mohamedkhairy/flip-finder/internal/columns"
)

// sortCandidates orders candidates by a column value, or by the raw item
// field of the same name when no column has that ID. Missing values sort
// last in both directions; strings compare by collation order and numbers
// numerically. Values of different kinds are grouped numbers first, then
// strings, then anything else, in either direction. The sort is stable.
func sortCandidates(candidates []candidate, key string, isColumn, desc bool) {
	coll := collate.New(language.English)

	keys := make([]any, len(candidates))
	for i, c := range candidates {
		keys[i] = sortValue(c, key, isColumn)
	}

	idx := make([]int, len(candidates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return compareValues(coll, keys[idx[a]], keys[idx[b]], desc) < 0
	})

	sorted := make([]candidate, len(candidates))
	for i, j := range idx {
		sorted[i] = candidates[j]
	}
	copy(candidates, sorted)
}

func sortValue(c candidate, key string, isColumn bool) any {
	if isColumn {
		v := c.values[key]
		// infinities are real extremes; only NaN and undefined count as missing
		if f, ok := v.(float64); ok && math.IsInf(f, 0) {
			return f
		}
		return columns.Normalize(v)
	}
	v, ok := c.item.Field(key)
	if !ok {
		return nil
	}
	return v
}

// Kind ranks fix the order between values of different kinds
const (
	rankNumber = iota
	rankString
	rankOther
	rankMissing
)

func kindRank(v any) int {
	switch v.(type) {
	case nil:
		return rankMissing
	case float64:
		return rankNumber
	case string:
		return rankString
	default:
		return rankOther
	}
}

// compareValues returns a negative number when a sorts before b. Only values
// of the same kind are affected by desc.
func compareValues(coll *collate.Collator, a, b any, desc bool) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		return ra - rb
	}

	result := 0
	switch av := a.(type) {
	case string:
		result = coll.CompareString(av, b.(string))
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			result = -1
		case av > bv:
			result = 1
		}
	default:
		return 0
	}

	if desc {
		return -result
	}
	return result
}
