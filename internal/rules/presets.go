package rules

import (
	"github.com/mohamedkhairy/flip-finder/internal/models"
)

func varRef(path string) map[string]any {
	return map[string]any{"var": path}
}

func cmp(op string, left, right any) map[string]any {
	return map[string]any{op: []any{left, right}}
}

// Presets returns a fresh copy of the built-in filters. All ship disabled.
func Presets() []models.SavedFilter {
	return []models.SavedFilter{
		{
			ID:          "f2p_only",
			Name:        "F2P Only",
			Rule:        cmp("==", varRef("item.members"), false),
			Category:    "Restrictions",
			Description: "Show only Free-to-Play items",
			IsPreset:    true,
		},
		{
			ID:          "buy_under_5m",
			Name:        "Buy < 5m Avg",
			Rule:        cmp("<", varRef("columns.low"), varRef("columns.avg5m")),
			Category:    "Price",
			Description: "Current buy price is lower than 5 minute average",
			IsPreset:    true,
		},
		{
			ID:          "high_volume",
			Name:        "High Volume (>10k)",
			Rule:        cmp(">=", varRef("columns.volume"), 10000.0),
			Category:    "Volume",
			Description: "Daily volume greater than 10,000",
			IsPreset:    true,
		},
		{
			ID:          "high_roi",
			Name:        "High ROI (>5%)",
			Rule:        cmp(">=", varRef("columns.roi"), 5.0),
			Category:    "Profit",
			Description: "Return on Investment greater than 5%",
			IsPreset:    true,
		},
		{
			ID:          "high_profit",
			Name:        "High Profit (>10k)",
			Rule:        cmp(">=", varRef("columns.profit"), 10000.0),
			Category:    "Profit",
			Description: "Profit per item greater than 10,000 GP",
			IsPreset:    true,
		},
		{
			ID:   "potential_flip",
			Name: "Potential Flip",
			Rule: map[string]any{"and": []any{
				cmp(">", varRef("columns.roi"), 2.0),
				cmp(">", varRef("columns.volume"), 1000.0),
				cmp(">", varRef("columns.profit"), 1000.0),
			}},
			Category:    "Strategy",
			Description: "ROI > 2%, Vol > 1000, Profit > 1000",
			IsPreset:    true,
		},
	}
}
