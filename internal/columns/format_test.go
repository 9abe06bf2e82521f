package columns

import (
	"math"
	"testing"

	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/pkg/expr"
)

func TestFormat(t *testing.T) {
	currency := &models.ColumnDefinition{Type: models.ColumnTypeNumber, Format: models.FormatCurrency}
	percentage := &models.ColumnDefinition{Type: models.ColumnTypeNumber, Format: models.FormatPercentage}
	decimal := &models.ColumnDefinition{Type: models.ColumnTypeNumber, Format: models.FormatDecimal}
	unformatted := &models.ColumnDefinition{Type: models.ColumnTypeNumber}
	text := &models.ColumnDefinition{Type: models.ColumnTypeString}

	tests := []struct {
		name  string
		value any
		col   *models.ColumnDefinition
		want  string
	}{
		{"nil", nil, currency, "-"},
		{"undefined", expr.Undefined, text, "-"},
		{"NaN", math.NaN(), currency, "-"},
		{"infinity percentage", math.Inf(1), percentage, "Infinity%"},
		{"negative infinity decimal", math.Inf(-1), decimal, "-Infinity"},
		{"infinity currency", math.Inf(1), currency, "∞"},
		{"negative infinity unformatted", math.Inf(-1), unformatted, "-∞"},
		{"non-numeric string in number column", "abc", decimal, "-"},
		{"currency groups thousands", 1234567.0, currency, "1,234,567"},
		{"currency negative", -2500.0, currency, "-2,500"},
		{"currency small", 96.0, currency, "96"},
		{"default format is currency", 1500.0, unformatted, "1,500"},
		{"percentage", 12.3456, percentage, "12.35%"},
		{"percentage from numeric string", "5", percentage, "5.00%"},
		{"decimal", 0.1, decimal, "0.10"},
		{"bool in number column", true, decimal, "1.00"},
		{"string column", "Abyssal whip", text, "Abyssal whip"},
		{"number in string column", 42.0, text, "42"},
		{"bool in string column", false, text, "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.value, tt.col); got != tt.want {
				t.Errorf("Format(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestDisplay_Boolean(t *testing.T) {
	col := &models.ColumnDefinition{Type: models.ColumnTypeBoolean}

	if got := Display(true, col); got != "✓" {
		t.Errorf("Expected check mark, got %q", got)
	}
	if got := Display(false, col); got != "" {
		t.Errorf("Expected empty string, got %q", got)
	}
	if got := Display(nil, col); got != "" {
		t.Errorf("Expected empty string for nil, got %q", got)
	}
}
