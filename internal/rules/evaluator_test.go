package rules

import (
	"testing"

	"github.com/mohamedkhairy/flip-finder/internal/columns"
	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/pkg/expr"
)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(columns.NewEvaluator(0, expr.NewCache(0)))
}

func TestEvaluateRuleWithColumns_ProfitThreshold(t *testing.T) {
	e := newTestEvaluator()
	rule := mustRule(t, `{">": [{"var": "columns.profit"}, 10000]}`)
	item := &models.Item{ID: 1, Name: "Item"}

	if !e.EvaluateRuleWithColumns(item, rule, map[string]any{"profit": 12000.0}) {
		t.Error("Expected profit 12000 to pass")
	}
	if e.EvaluateRuleWithColumns(item, rule, map[string]any{"profit": 8000.0}) {
		t.Error("Expected profit 8000 to fail")
	}
}

func TestEvaluateRule_MaterializesColumns(t *testing.T) {
	e := newTestEvaluator()
	rule := mustRule(t, `{">=": [{"var": "columns.profit"}, 10000]}`)
	all := columns.Presets()

	rich := &models.Item{ID: 1, Name: "Twisted bow", Low: 100, High: 20000}
	poor := &models.Item{ID: 2, Name: "Bronze dagger", Low: 10, High: 20}

	if !e.EvaluateRule(rich, rule, all) {
		t.Error("Expected profit 19500 to pass")
	}
	if e.EvaluateRule(poor, rule, all) {
		t.Error("Expected small profit to fail")
	}
}

func TestEvaluateRule_MalformedFailsClosed(t *testing.T) {
	e := newTestEvaluator()
	item := &models.Item{ID: 1, Name: "Item", Low: 1, High: 2}

	for _, raw := range []string{
		`{"regex": [{"var": "item.name"}, "x"]}`,
		`{"or": [true, {"bogus": []}]}`,
		`{">": [1, 0], "<": [0, 1]}`,
		`"not a rule"`,
		`null`,
	} {
		if e.EvaluateRule(item, mustRule(t, raw), nil) {
			t.Errorf("Expected malformed rule %s to evaluate to false", raw)
		}
	}
}

func TestEvaluateFilters_EmptyAndDisabled(t *testing.T) {
	e := newTestEvaluator()
	items := []*models.Item{
		{ID: 1, Name: "A", Low: 1, High: 1},
		{ID: 2, Name: "B", Members: true},
		nil,
	}

	disabled := Presets()
	for i := range disabled {
		disabled[i].Enabled = false
	}

	for _, item := range items {
		if !e.EvaluateFilters(item, nil, columns.Presets()) {
			t.Errorf("Expected empty filter set to pass item %v", item)
		}
		if !e.EvaluateFilters(item, disabled, columns.Presets()) {
			t.Errorf("Expected all-disabled filter set to pass item %v", item)
		}
	}
}

func TestEvaluateFilters_Conjunction(t *testing.T) {
	e := newTestEvaluator()
	all := columns.Presets()

	filters := Presets()
	for i := range filters {
		switch filters[i].ID {
		case "f2p_only", "high_volume":
			filters[i].Enabled = true
		}
	}

	tests := []struct {
		name string
		item *models.Item
		want bool
	}{
		{"f2p high volume", &models.Item{ID: 1, Name: "Lobster", Volume: 50000}, true},
		{"members high volume", &models.Item{ID: 2, Name: "Shark", Members: true, Volume: 50000}, false},
		{"f2p low volume", &models.Item{ID: 3, Name: "Tuna", Volume: 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.EvaluateFilters(tt.item, filters, all); got != tt.want {
				t.Errorf("EvaluateFilters() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateFilters_UnknownOperatorRejectsEveryItem(t *testing.T) {
	e := newTestEvaluator()
	filters := []models.SavedFilter{
		{ID: "broken", Name: "Broken", Enabled: true, Rule: mustRule(t, `{"matches": [{"var": "item.name"}, "x"]}`)},
	}

	for _, item := range []*models.Item{{ID: 1, Name: "x"}, {ID: 2, Name: "y"}} {
		if e.EvaluateFilters(item, filters, nil) {
			t.Errorf("Expected broken filter to reject item %d", item.ID)
		}
	}

	filters[0].Enabled = false
	if !e.EvaluateFilters(&models.Item{ID: 3}, filters, nil) {
		t.Error("Expected disabled broken filter to be ignored")
	}
}

func TestFilterItems(t *testing.T) {
	e := newTestEvaluator()
	filters := []models.SavedFilter{
		{ID: "cheap", Name: "Cheap", Enabled: true, Rule: mustRule(t, `{"<": [{"var": "columns.low"}, 100]}`)},
	}
	items := []*models.Item{
		{ID: 1, Name: "a", Low: 50},
		{ID: 2, Name: "b", Low: 500},
		{ID: 3, Name: "c", Low: 99},
	}

	got := e.FilterItems(items, filters, columns.Presets())
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("Expected items [1 3] in order, got %v", got)
	}

	if all := e.FilterItems(items, nil, nil); len(all) != len(items) {
		t.Errorf("Expected all items without filters, got %d", len(all))
	}
}
