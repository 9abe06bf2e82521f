package definitions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/pkg/logger"
	"gopkg.in/yaml.v3"
)

type seedDocument struct {
	Columns []models.ColumnDefinition `json:"columns"`
	Filters []models.SavedFilter      `json:"filters"`
}

// SeedResult reports what an import merged
type SeedResult struct {
	Columns int
	Filters int
}

// ImportSeedFile merges the columns and filters listed in a YAML file into
// the stored sets, replacing definitions with the same ID
func ImportSeedFile(ctx context.Context, path string, cols *ColumnRepository, filters *FilterRepository) (SeedResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedResult{}, fmt.Errorf("read seed file: %w", err)
	}

	result, err := ImportSeed(ctx, data, cols, filters)
	if err != nil {
		return result, fmt.Errorf("seed file %s: %w", path, err)
	}

	logger.Info("Imported definition seed file",
		logger.String("path", path),
		logger.Int("columns", result.Columns),
		logger.Int("filters", result.Filters),
	)
	return result, nil
}

// ImportSeed is ImportSeedFile over YAML bytes. Either repository may be nil
// to skip that kind.
func ImportSeed(ctx context.Context, data []byte, cols *ColumnRepository, filters *FilterRepository) (SeedResult, error) {
	seed, err := parseSeed(data)
	if err != nil {
		return SeedResult{}, err
	}

	var result SeedResult
	if cols != nil && len(seed.Columns) > 0 {
		if _, err := cols.merge(ctx, seed.Columns); err != nil {
			return result, fmt.Errorf("import columns: %w", err)
		}
		result.Columns = len(seed.Columns)
	}
	if filters != nil && len(seed.Filters) > 0 {
		if _, err := filters.merge(ctx, seed.Filters); err != nil {
			return result, fmt.Errorf("import filters: %w", err)
		}
		result.Filters = len(seed.Filters)
	}
	return result, nil
}

// parseSeed converts YAML to JSON so the document is validated and decoded
// exactly like stored documents, with numbers as float64
func parseSeed(data []byte) (*seedDocument, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if doc == nil {
		return &seedDocument{}, nil
	}

	jsonCompatible, err := toJSONCompatible(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml->json compatible: %w", err)
	}
	raw, err := json.Marshal(jsonCompatible)
	if err != nil {
		return nil, fmt.Errorf("marshal to json: %w", err)
	}

	var seed seedDocument
	if err := decodeDocument(seedSchema, raw, &seed); err != nil {
		return nil, err
	}
	return &seed, nil
}

func toJSONCompatible(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, vv := range val {
			conv, err := toJSONCompatible(vv)
			if err != nil {
				return nil, err
			}
			m[k] = conv
		}
		return m, nil
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, vv := range val {
			conv, err := toJSONCompatible(vv)
			if err != nil {
				return nil, err
			}
			m[fmt.Sprintf("%v", k)] = conv
		}
		return m, nil
	case []interface{}:
		arr := make([]interface{}, len(val))
		for i, vv := range val {
			conv, err := toJSONCompatible(vv)
			if err != nil {
				return nil, err
			}
			arr[i] = conv
		}
		return arr, nil
	default:
		return val, nil
	}
}
