// Package definitions persists the user's column and filter sets on top of a
// storage.KVStore. Every mutation returns the full resulting set.
package definitions

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/xeipuuv/gojsonschema"
)

// DocumentVersion is written into every stored document
const DocumentVersion = 1

const (
	columnsKey = "columns"
	filtersKey = "filters"
)

// ErrInvalidDocument is returned when a stored or imported document does not
// match its schema
var ErrInvalidDocument = errors.New("invalid definitions document")

type columnDocument struct {
	Version int                       `json:"version"`
	Columns []models.ColumnDefinition `json:"columns"`
}

type filterDocument struct {
	Version int                  `json:"version"`
	Filters []models.SavedFilter `json:"filters"`
}

const columnItemSchema = `{
	"type": "object",
	"required": ["id", "name", "expression", "type"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 1},
		"expression": {"type": "string", "minLength": 1},
		"type": {"enum": ["number", "string", "boolean"]},
		"format": {"enum": ["", "currency", "percentage", "decimal"]},
		"enabled": {"type": "boolean"},
		"isPreset": {"type": "boolean"},
		"group": {"type": "string"},
		"description": {"type": "string"}
	}
}`

const filterItemSchema = `{
	"type": "object",
	"required": ["id", "name", "rule"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 1},
		"rule": {"type": ["object", "array"]},
		"enabled": {"type": "boolean"},
		"isPreset": {"type": "boolean"},
		"category": {"type": "string"},
		"description": {"type": "string"}
	}
}`

var (
	columnsSchema = mustSchema(`{
		"type": "object",
		"required": ["version", "columns"],
		"properties": {
			"version": {"type": "integer", "minimum": 1},
			"columns": {"type": "array", "items": ` + columnItemSchema + `}
		}
	}`)

	filtersSchema = mustSchema(`{
		"type": "object",
		"required": ["version", "filters"],
		"properties": {
			"version": {"type": "integer", "minimum": 1},
			"filters": {"type": "array", "items": ` + filterItemSchema + `}
		}
	}`)

	seedSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"columns": {"type": "array", "items": ` + columnItemSchema + `},
			"filters": {"type": "array", "items": ` + filterItemSchema + `}
		},
		"additionalProperties": false
	}`)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("definitions: bad schema: %v", err))
	}
	return schema
}

// validateDocument checks raw JSON against schema and reports every
// violation in one error
func validateDocument(schema *gojsonschema.Schema, raw []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if !result.Valid() {
		var sb strings.Builder
		for _, e := range result.Errors() {
			sb.WriteString("\n- ")
			sb.WriteString(e.String())
		}
		return fmt.Errorf("%w:%s", ErrInvalidDocument, sb.String())
	}
	return nil
}

// decodeDocument validates raw against schema and unmarshals it into dest
func decodeDocument(schema *gojsonschema.Schema, raw []byte, dest any) error {
	if err := validateDocument(schema, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}
