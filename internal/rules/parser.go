package rules

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mohamedkhairy/flip-finder/internal/models"
)

// ParseFilter parses a JSON filter definition into a SavedFilter
func ParseFilter(data []byte) (*models.SavedFilter, error) {
	var f models.SavedFilter

	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal filter: %w", err)
	}

	if err := ValidateFilter(&f); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}

	return &f, nil
}

// ParseFilterFromReader parses a filter from an io.Reader
func ParseFilterFromReader(reader io.Reader) (*models.SavedFilter, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter data: %w", err)
	}

	return ParseFilter(data)
}

// ParseFilters parses multiple filters from a JSON array
func ParseFilters(data []byte) ([]models.SavedFilter, error) {
	var filters []models.SavedFilter

	if err := json.Unmarshal(data, &filters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal filters: %w", err)
	}

	for i := range filters {
		if err := ValidateFilter(&filters[i]); err != nil {
			return nil, fmt.Errorf("invalid filter at index %d: %w", i, err)
		}
	}

	return filters, nil
}

// ParseRule decodes a bare JSON rule tree
func ParseRule(data []byte) (models.RuleNode, error) {
	var rule any
	if err := json.Unmarshal(data, &rule); err != nil {
		return nil, fmt.Errorf("invalid JSON syntax: %w", err)
	}
	if !ValidateRule(rule) {
		return nil, models.ErrInvalidRule
	}
	return rule, nil
}
