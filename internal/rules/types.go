package rules

import (
	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/pkg/expr"
)

// Data is what rule variables resolve against: item.<field> reads the raw
// item and columns.<id> reads the materialized column values
type Data struct {
	Item    *models.Item
	Columns map[string]any
}

// CompiledFilter is a linted filter rule ready to be applied to items.
// Returns true if the item passes the filter.
type CompiledFilter func(data Data) (bool, error)

// FilterResult is the outcome of one filter against one item
type FilterResult struct {
	FilterID string `json:"filterId"`
	Matched  bool   `json:"matched"`
	Error    string `json:"error,omitempty"`
}

// root exposes Data as the top of a var path
func (d Data) root() expr.Accessor {
	return expr.AccessorFunc(func(name string) (any, bool) {
		switch name {
		case "item":
			if d.Item == nil {
				return nil, false
			}
			return d.Item, true
		case "columns":
			if d.Columns == nil {
				return nil, false
			}
			return d.Columns, true
		}
		return nil, false
	})
}
