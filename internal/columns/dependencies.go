package columns

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/pkg/expr"
)

var referencePattern = regexp.MustCompile(`columns\.([A-Za-z_$][A-Za-z0-9_$]*)`)

// DependencyConflictError rejects deleting a column that enabled columns
// still reference
type DependencyConflictError struct {
	ColumnID     string
	ReferencedBy []string
}

func (e *DependencyConflictError) Error() string {
	return fmt.Sprintf("cannot delete column %q: referenced by %s", e.ColumnID, strings.Join(e.ReferencedBy, ", "))
}

// Unwrap lets callers match models.ErrDependencyConflict
func (e *DependencyConflictError) Unwrap() error {
	return models.ErrDependencyConflict
}

// References returns the sorted IDs an expression reads as columns.<id>.
// Text that does not compile is scanned with a pattern instead, so a broken
// column still counts as a dependent.
func References(expression string) []string {
	if compiled, err := expr.Parse(expression); err == nil {
		return compiled.Members("columns")
	}

	seen := make(map[string]struct{})
	for _, m := range referencePattern.FindAllStringSubmatch(expression, -1) {
		seen[m[1]] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dependents returns the IDs of enabled columns, other than id itself, whose
// expression references id
func Dependents(id string, all []models.ColumnDefinition) []string {
	var out []string
	for _, col := range all {
		if col.ID == id || !col.Enabled {
			continue
		}
		for _, ref := range References(col.Expression) {
			if ref == id {
				out = append(out, col.ID)
				break
			}
		}
	}
	return out
}

// CheckDelete returns a *DependencyConflictError if deleting id would leave
// an enabled column with a dangling reference
func CheckDelete(id string, all []models.ColumnDefinition) error {
	if deps := Dependents(id, all); len(deps) > 0 {
		return &DependencyConflictError{ColumnID: id, ReferencedBy: deps}
	}
	return nil
}
