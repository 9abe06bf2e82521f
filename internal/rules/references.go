package rules

import (
	"sort"
	"strings"

	"github.com/mohamedkhairy/flip-finder/internal/models"
)

// ExtractColumnReferences returns the sorted column IDs a rule reads
// through {"var": "columns.<id>..."}
func ExtractColumnReferences(rule models.RuleNode) []string {
	seen := make(map[string]bool)
	collectReferences(rule, seen)

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ExtractRequiredColumns returns the column IDs referenced by the enabled
// filters
func ExtractRequiredColumns(filters []models.SavedFilter) map[string]bool {
	required := make(map[string]bool)
	for _, f := range filters {
		if !f.Enabled {
			continue
		}
		collectReferences(f.Rule, required)
	}
	return required
}

func collectReferences(node any, seen map[string]bool) {
	switch n := node.(type) {
	case map[string]any:
		for op, args := range n {
			if op == "var" {
				if list := argList(args); len(list) > 0 {
					if path, ok := list[0].(string); ok {
						if id, ok := columnID(path); ok {
							seen[id] = true
						}
					}
				}
				continue
			}
			collectReferences(args, seen)
		}
	case []any:
		for _, elem := range n {
			collectReferences(elem, seen)
		}
	}
}

func columnID(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "columns.")
	if !ok || rest == "" {
		return "", false
	}
	id, _, _ := strings.Cut(rest, ".")
	return id, true
}
