package columns

import (
	"fmt"

	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/pkg/expr"
)

// ValidateExpression reports whether text compiles
func ValidateExpression(text string) bool {
	return expr.Validate(text) == nil
}

// ValidateColumn checks a column's fields and compiles its expression. A
// compile failure is returned wrapped around the *expr.Error.
func ValidateColumn(col *models.ColumnDefinition) error {
	if err := col.Validate(); err != nil {
		return err
	}
	if err := expr.Validate(col.Expression); err != nil {
		return fmt.Errorf("column %q: %w", col.ID, err)
	}
	return nil
}

// ValidateSet validates every column and rejects duplicate IDs
func ValidateSet(all []models.ColumnDefinition) error {
	seen := make(map[string]struct{}, len(all))
	for i := range all {
		if err := ValidateColumn(&all[i]); err != nil {
			return err
		}
		if _, dup := seen[all[i].ID]; dup {
			return fmt.Errorf("column %q: %w", all[i].ID, models.ErrDuplicateID)
		}
		seen[all[i].ID] = struct{}{}
	}
	return nil
}
