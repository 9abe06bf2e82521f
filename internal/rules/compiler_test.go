package rules

import (
	"testing"

	"github.com/mohamedkhairy/flip-finder/internal/models"
)

func TestCompiler_CompileFilter(t *testing.T) {
	compiler := NewCompiler()

	filter := &models.SavedFilter{
		ID:      "high_profit",
		Name:    "High Profit",
		Rule:    mustRule(t, `{">=": [{"var": "columns.profit"}, 10000]}`),
		Enabled: true,
	}

	compiled, err := compiler.CompileFilter(filter)
	if err != nil {
		t.Fatalf("CompileFilter() error = %v", err)
	}

	matched, err := compiled(Data{Columns: map[string]any{"profit": 15000.0}})
	if err != nil {
		t.Fatalf("compiled filter evaluation error = %v", err)
	}
	if !matched {
		t.Error("Expected filter to match, but it didn't")
	}

	matched, err = compiled(Data{Columns: map[string]any{"profit": 500.0}})
	if err != nil {
		t.Fatalf("compiled filter evaluation error = %v", err)
	}
	if matched {
		t.Error("Expected filter not to match, but it did")
	}
}

func TestCompiler_CompileFilter_Invalid(t *testing.T) {
	compiler := NewCompiler()

	tests := []struct {
		name   string
		filter *models.SavedFilter
	}{
		{"nil filter", nil},
		{"missing id", &models.SavedFilter{Name: "x", Rule: map[string]any{"==": []any{1.0, 1.0}}}},
		{"nil rule", &models.SavedFilter{ID: "x", Name: "x"}},
		{"scalar rule", &models.SavedFilter{ID: "x", Name: "x", Rule: "yes"}},
		{"unknown operator", &models.SavedFilter{ID: "x", Name: "x", Rule: map[string]any{"like": []any{1.0, 1.0}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := compiler.CompileFilter(tt.filter); err == nil {
				t.Error("Expected CompileFilter() to fail")
			}
		})
	}
}

func TestCompiler_CompileFilters(t *testing.T) {
	compiler := NewCompiler()

	compiled, err := compiler.CompileFilters(Presets())
	if err != nil {
		t.Fatalf("CompileFilters() error = %v", err)
	}
	if len(compiled) != len(Presets()) {
		t.Errorf("Expected %d compiled filters, got %d", len(Presets()), len(compiled))
	}

	broken := append(Presets(), models.SavedFilter{ID: "bad", Name: "Bad", Rule: map[string]any{"?": 1.0}})
	if _, err := compiler.CompileFilters(broken); err == nil {
		t.Error("Expected CompileFilters() to fail on a broken filter")
	}
}

func TestFilterSet(t *testing.T) {
	compiler := NewCompiler()
	filters := []models.SavedFilter{
		{ID: "a", Name: "A", Enabled: true, Rule: mustRule(t, `{">": [{"var": "columns.roi"}, 2]}`)},
		{ID: "b", Name: "B", Enabled: false, Rule: mustRule(t, `{"==": [1, 2]}`)},
		{ID: "c", Name: "C", Enabled: true, Rule: mustRule(t, `{"bogus": []}`)},
	}

	set := compiler.CompileSet(filters)
	if set.Len() != 2 {
		t.Fatalf("Expected 2 enabled filters, got %d", set.Len())
	}

	data := Data{Columns: map[string]any{"roi": 5.0}}
	if set.Match(data) {
		t.Error("Expected broken filter to fail the set")
	}

	results := set.Explain(data)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if !results[0].Matched || results[0].FilterID != "a" {
		t.Errorf("Expected filter a to match, got %+v", results[0])
	}
	if results[1].Matched || results[1].Error == "" {
		t.Errorf("Expected filter c to fail with an error, got %+v", results[1])
	}
}
