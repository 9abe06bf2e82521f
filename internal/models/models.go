package models

import (
	"strings"
)

// Item is one market snapshot for a tradeable entity. Items are replaced
// wholesale on every price refresh and never mutated in between.
type Item struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Members   bool     `json:"members"`
	Limit     int      `json:"limit"`
	Low       float64  `json:"low"`
	High      float64  `json:"high"`
	Volume    float64  `json:"volume"`
	HighVol5m float64  `json:"highVol5m"`
	LowVol5m  float64  `json:"lowVol5m"`
	HighVol1h float64  `json:"highVol1h"`
	LowVol1h  float64  `json:"lowVol1h"`
	HighAlch  *float64 `json:"highalch"`
	Avg5m     *float64 `json:"avg5m"`
	Avg1h     *float64 `json:"avg1h"`
}

// Field returns the value of the named item field as seen by expressions
// and rule variables. Numeric fields are returned as float64 and optional
// fields that are absent are returned as nil.
func (i *Item) Field(name string) (any, bool) {
	if i == nil {
		return nil, false
	}

	switch name {
	case "id":
		return float64(i.ID), true
	case "name":
		return i.Name, true
	case "members":
		return i.Members, true
	case "limit":
		return float64(i.Limit), true
	case "low":
		return i.Low, true
	case "high":
		return i.High, true
	case "volume":
		return i.Volume, true
	case "highVol5m":
		return i.HighVol5m, true
	case "lowVol5m":
		return i.LowVol5m, true
	case "highVol1h":
		return i.HighVol1h, true
	case "lowVol1h":
		return i.LowVol1h, true
	case "highalch":
		return optional(i.HighAlch), true
	case "avg5m":
		return optional(i.Avg5m), true
	case "avg1h":
		return optional(i.Avg1h), true
	default:
		return nil, false
	}
}

// ItemFields lists every field name Field understands
var ItemFields = []string{
	"id", "name", "members", "limit", "low", "high", "volume",
	"highVol5m", "lowVol5m", "highVol1h", "lowVol1h",
	"highalch", "avg5m", "avg1h",
}

func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// Float64Ptr is a small helper for building items with optional prices
func Float64Ptr(v float64) *float64 {
	return &v
}

// ColumnType is the declared output type of a column
type ColumnType string

const (
	ColumnTypeNumber  ColumnType = "number"
	ColumnTypeString  ColumnType = "string"
	ColumnTypeBoolean ColumnType = "boolean"
)

// ColumnFormat controls how numeric columns are rendered
type ColumnFormat string

const (
	FormatCurrency   ColumnFormat = "currency"
	FormatPercentage ColumnFormat = "percentage"
	FormatDecimal    ColumnFormat = "decimal"
)

// ColumnDefinition is a user- or preset-defined computed value over one item.
// ID is the key other columns and filter rules use to reference it.
type ColumnDefinition struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Expression  string       `json:"expression" yaml:"expression"`
	Type        ColumnType   `json:"type" yaml:"type"`
	Format      ColumnFormat `json:"format,omitempty" yaml:"format,omitempty"`
	Enabled     bool         `json:"enabled" yaml:"enabled"`
	IsPreset    bool         `json:"isPreset,omitempty" yaml:"isPreset,omitempty"`
	Group       string       `json:"group,omitempty" yaml:"group,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate validates a ColumnDefinition's static fields. The expression is
// checked separately by the column package since it needs the parser.
func (c *ColumnDefinition) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrInvalidColumnID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidColumnName
	}
	if strings.TrimSpace(c.Expression) == "" {
		return ErrEmptyExpression
	}
	switch c.Type {
	case ColumnTypeNumber, ColumnTypeString, ColumnTypeBoolean:
	default:
		return ErrInvalidColumnType
	}
	switch c.Format {
	case "", FormatCurrency, FormatPercentage, FormatDecimal:
	default:
		return ErrInvalidColumnFormat
	}
	return nil
}

// RuleNode is a JSON-shaped boolean rule tree: a {"var": path} reference, a
// literal, or an {op: [operands...]} node. It is kept as the generic value
// produced by JSON decoding.
type RuleNode = any

// SavedFilter is a named boolean predicate applied to every item
type SavedFilter struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Rule        RuleNode `json:"rule" yaml:"rule"`
	Enabled     bool     `json:"enabled" yaml:"enabled"`
	IsPreset    bool     `json:"isPreset,omitempty" yaml:"isPreset,omitempty"`
	Category    string   `json:"category" yaml:"category"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate validates a SavedFilter's static fields
func (f *SavedFilter) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return ErrInvalidFilterID
	}
	if strings.TrimSpace(f.Name) == "" {
		return ErrInvalidFilterName
	}
	if f.Rule == nil {
		return ErrNilRule
	}
	return nil
}

// EvaluationContext is what a single column evaluation sees. It is built
// fresh per (item, evaluation) pair.
type EvaluationContext struct {
	Item    *Item
	RawData map[string]any
}
