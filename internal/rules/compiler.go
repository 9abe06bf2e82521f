package rules

import (
	"fmt"

	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/pkg/logger"
)

// Compiler compiles saved filters into executable functions
type Compiler struct{}

// NewCompiler creates a new filter compiler
func NewCompiler() *Compiler {
	return &Compiler{}
}

// CompileFilter lints a filter and returns a CompiledFilter for it
func (c *Compiler) CompileFilter(f *models.SavedFilter) (CompiledFilter, error) {
	if f == nil {
		return nil, fmt.Errorf("filter cannot be nil")
	}
	if err := ValidateFilter(f); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	if err := Lint(f.Rule); err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", f.ID, err)
	}

	rule := f.Rule
	return func(data Data) (bool, error) {
		v, err := Apply(rule, data)
		if err != nil {
			return false, err
		}
		return Truthy(v), nil
	}, nil
}

// CompileFilters compiles multiple filters, keyed by filter ID
func (c *Compiler) CompileFilters(filters []models.SavedFilter) (map[string]CompiledFilter, error) {
	compiled := make(map[string]CompiledFilter, len(filters))

	for i := range filters {
		fn, err := c.CompileFilter(&filters[i])
		if err != nil {
			return nil, fmt.Errorf("failed to compile filter %s: %w", filters[i].ID, err)
		}
		compiled[filters[i].ID] = fn
	}

	return compiled, nil
}

// FilterSet is the enabled filters of a definition set, compiled once and
// applied to many items. A filter that fails to compile stays in the set
// and rejects every item.
type FilterSet struct {
	entries []filterEntry
}

type filterEntry struct {
	id string
	fn CompiledFilter
}

// CompileSet compiles the enabled filters. It never fails: broken filters
// are logged here and fail closed when applied.
func (c *Compiler) CompileSet(filters []models.SavedFilter) *FilterSet {
	set := &FilterSet{}
	for i := range filters {
		f := &filters[i]
		if !f.Enabled {
			continue
		}

		fn, err := c.CompileFilter(f)
		if err != nil {
			logger.Warn("filter will reject all items",
				logger.String("filter_id", f.ID),
				logger.ErrorField(err),
			)
			compileErr := err
			fn = func(Data) (bool, error) { return false, compileErr }
		}
		set.entries = append(set.entries, filterEntry{id: f.ID, fn: fn})
	}
	return set
}

// Len returns the number of enabled filters in the set
func (s *FilterSet) Len() int {
	return len(s.entries)
}

// Match reports whether data passes every filter. It stops at the first
// filter that rejects.
func (s *FilterSet) Match(data Data) bool {
	for _, e := range s.entries {
		ok, err := e.fn(data)
		if err != nil {
			reportFilterFailure(e.id, data, err)
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

// Explain applies every filter and reports each outcome
func (s *FilterSet) Explain(data Data) []FilterResult {
	results := make([]FilterResult, 0, len(s.entries))
	for _, e := range s.entries {
		ok, err := e.fn(data)
		r := FilterResult{FilterID: e.id, Matched: ok && err == nil}
		if err != nil {
			r.Error = err.Error()
		}
		results = append(results, r)
	}
	return results
}

func reportFilterFailure(filterID string, data Data, err error) {
	logger.FilterFailures.Inc()

	itemID := -1
	if data.Item != nil {
		itemID = data.Item.ID
	}
	logger.Warn("filter evaluation failed",
		logger.String("filter_id", filterID),
		logger.Int("item_id", itemID),
		logger.ErrorField(err),
	)
}
