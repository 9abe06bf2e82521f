package columns

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/pkg/expr"
)

// Placeholder is shown for values that could not be computed
const Placeholder = "-"

var printer = message.NewPrinter(language.English)

// Format renders a column value for display. Number columns are coerced
// and formatted according to col.Format; every other type is stringified.
func Format(value any, col *models.ColumnDefinition) string {
	if expr.IsNullish(value) {
		return Placeholder
	}

	if col.Type != models.ColumnTypeNumber {
		return expr.ToString(value)
	}

	n := expr.ToNumber(value)
	if math.IsNaN(n) {
		return Placeholder
	}
	if math.IsInf(n, 0) {
		return formatInf(n, col.Format)
	}

	switch col.Format {
	case models.FormatPercentage:
		return fmt.Sprintf("%.2f%%", n)
	case models.FormatDecimal:
		return fmt.Sprintf("%.2f", n)
	default:
		return FormatCurrency(n)
	}
}

// formatInf spells infinity out for fixed-point formats and uses the symbol
// for grouped ones
func formatInf(n float64, format models.ColumnFormat) string {
	sign := ""
	if n < 0 {
		sign = "-"
	}
	switch format {
	case models.FormatPercentage:
		return sign + "Infinity%"
	case models.FormatDecimal:
		return sign + "Infinity"
	default:
		return sign + "∞"
	}
}

// FormatCurrency groups thousands and keeps at most three fraction digits
func FormatCurrency(n float64) string {
	return printer.Sprint(number.Decimal(n, number.MaxFractionDigits(3)))
}

// FormatBoolean renders boolean columns as a check mark or nothing
func FormatBoolean(value any) string {
	if b, ok := value.(bool); ok && b {
		return "✓"
	}
	return ""
}

// Display renders a value the way the table shows it, dispatching boolean
// columns to FormatBoolean
func Display(value any, col *models.ColumnDefinition) string {
	if col.Type == models.ColumnTypeBoolean {
		return FormatBoolean(value)
	}
	return Format(value, col)
}
