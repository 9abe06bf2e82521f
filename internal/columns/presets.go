package columns

import (
	"github.com/mohamedkhairy/flip-finder/internal/models"
)

func preset(id, name, expression string, typ models.ColumnType, format models.ColumnFormat, enabled bool, group, description string) models.ColumnDefinition {
	return models.ColumnDefinition{
		ID:          id,
		Name:        name,
		Expression:  expression,
		Type:        typ,
		Format:      format,
		Enabled:     enabled,
		IsPreset:    true,
		Group:       group,
		Description: description,
	}
}

const (
	num  = models.ColumnTypeNumber
	cur  = models.FormatCurrency
	pct  = models.FormatPercentage
	dec  = models.FormatDecimal
	none = models.ColumnFormat("")
)

const (
	vol5m = "(item.highVol5m + item.lowVol5m)"
	vol1h = "(item.highVol1h + item.lowVol1h)"
)

// Presets returns a fresh copy of the built-in column set
func Presets() []models.ColumnDefinition {
	return []models.ColumnDefinition{
		// Core
		preset("name", "Item", "item.name", models.ColumnTypeString, none, true, "Core",
			"The name of the item"),
		preset("low", "Buy (Low)", "item.low", num, cur, true, "Core",
			"Current lowest price someone is selling for (instant buy)"),
		preset("high", "Sell (High)", "item.high", num, cur, true, "Core",
			"Current highest price someone is buying for (instant sell)"),
		preset("limit", "Limit", "item.limit", num, cur, true, "Core",
			"Grand Exchange buy limit every 4 hours"),
		preset("profit", "Profit (GP)", "round((item.high * 0.98) - item.low)", num, cur, true, "Core",
			"Potential profit per item after 2% GE tax"),
		preset("roi", "ROI %", "(((item.high * 0.98) - item.low) / item.low) * 100", num, pct, true, "Core",
			"Return on Investment percentage after tax"),

		// Volume
		preset("volume", "Vol (24h)", "item.volume", num, cur, true, "Volume",
			"Total number of items traded in the last 24 hours"),
		preset("total5mVol", "5m Vol", "item.highVol5m + item.lowVol5m", num, cur, false, "Volume",
			"Total volume traded in the last 5 minutes"),
		preset("total1hVol", "1h Vol", "item.highVol1h + item.lowVol1h", num, cur, false, "Volume",
			"Total volume traded in the last hour"),
		preset("volRatio", "Vol Ratio", "("+vol1h+" > 0) ? ("+vol5m+" / "+vol1h+") : 0", num, dec, false, "Volume",
			"Ratio of 5-minute to 1-hour volume"),

		// Averages
		preset("avg5m", "5m Avg", "item.avg5m", num, cur, false, "Averages",
			"Average price over the last 5 minutes"),
		preset("avg1h", "1h Avg", "item.avg1h", num, cur, false, "Averages",
			"Average price over the last hour"),

		// Pressure
		preset("buyPressure5m", "Buy Pressure (5m)", "("+vol5m+" > 0) ? (item.highVol5m / "+vol5m+") * 100 : 0", num, pct, false, "Pressure",
			"Percentage of 5m volume that was buy orders"),
		preset("sellPressure5m", "Sell Pressure (5m)", "("+vol5m+" > 0) ? (item.lowVol5m / "+vol5m+") * 100 : 0", num, pct, false, "Pressure",
			"Percentage of 5m volume that was sell orders"),
		preset("buyPressure1h", "Buy Pressure (1h)", "("+vol1h+" > 0) ? (item.highVol1h / "+vol1h+") * 100 : 0", num, pct, false, "Pressure",
			"Percentage of 1h volume that was buy orders"),
		preset("sellPressure1h", "Sell Pressure (1h)", "("+vol1h+" > 0) ? (item.lowVol1h / "+vol1h+") * 100 : 0", num, pct, false, "Pressure",
			"Percentage of 1h volume that was sell orders"),

		// Alchemy
		preset("alchValue", "High Alch", "item.highalch", num, cur, false, "Alchemy",
			"High alchemy value of the item"),
		preset("alchMargin", "Alch Margin", "item.highalch !== null ? round(item.highalch - item.low) : null", num, cur, false, "Alchemy",
			"Profit from high alching after buying at current price"),

		// Technical
		preset("sma7", "SMA(7)", "sma(rawData.timeseries, 7)", num, cur, false, "Technical",
			"7-period Simple Moving Average"),
	}
}

// Groups returns the preset group names in display order
func Groups() []string {
	return []string{"Core", "Volume", "Averages", "Pressure", "Alchemy", "Technical"}
}
