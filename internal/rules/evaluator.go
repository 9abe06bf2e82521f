package rules

import (
	"github.com/mohamedkhairy/flip-finder/internal/columns"
	"github.com/mohamedkhairy/flip-finder/internal/models"
)

// Evaluator applies filter rules to items. Column values a rule reads
// through columns.<id> are computed by the column evaluator.
type Evaluator struct {
	columns  *columns.Evaluator
	compiler *Compiler
}

// NewEvaluator creates a rule evaluator. A nil column evaluator selects one
// with default settings.
func NewEvaluator(cols *columns.Evaluator) *Evaluator {
	if cols == nil {
		cols = columns.NewEvaluator(0, nil)
	}
	return &Evaluator{columns: cols, compiler: NewCompiler()}
}

// Columns returns the column evaluator used for materializing bindings
func (e *Evaluator) Columns() *columns.Evaluator {
	return e.columns
}

// EvaluateRule reports whether item satisfies rule. Every column in all is
// materialized first. Malformed rules and runtime failures yield false.
func (e *Evaluator) EvaluateRule(item *models.Item, rule models.RuleNode, all []models.ColumnDefinition) bool {
	values := e.columns.EvaluateAll(models.EvaluationContext{Item: item}, all)
	return e.EvaluateRuleWithColumns(item, rule, values)
}

// EvaluateRuleWithColumns is EvaluateRule over already materialized column
// values
func (e *Evaluator) EvaluateRuleWithColumns(item *models.Item, rule models.RuleNode, values map[string]any) bool {
	inline := models.SavedFilter{ID: "inline", Name: "inline", Rule: rule, Enabled: true}
	return e.compiler.CompileSet([]models.SavedFilter{inline}).Match(Data{Item: item, Columns: values})
}

// EvaluateFilters reports whether item passes every enabled filter. With
// no enabled filters it returns true without computing any column.
func (e *Evaluator) EvaluateFilters(item *models.Item, filters []models.SavedFilter, all []models.ColumnDefinition) bool {
	set := e.compiler.CompileSet(filters)
	if set.Len() == 0 {
		return true
	}
	values := e.columns.EvaluateAll(models.EvaluationContext{Item: item}, all)
	return set.Match(Data{Item: item, Columns: values})
}

// FilterItems returns the items that pass every enabled filter, in input
// order. Filters are compiled once for the whole batch.
func (e *Evaluator) FilterItems(items []*models.Item, filters []models.SavedFilter, all []models.ColumnDefinition) []*models.Item {
	set := e.compiler.CompileSet(filters)
	if set.Len() == 0 {
		return items
	}

	out := make([]*models.Item, 0, len(items))
	for _, item := range items {
		values := e.columns.EvaluateAll(models.EvaluationContext{Item: item}, all)
		if set.Match(Data{Item: item, Columns: values}) {
			out = append(out, item)
		}
	}
	return out
}
