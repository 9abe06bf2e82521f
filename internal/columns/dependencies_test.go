package columns

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/flip-finder/internal/models"
)

func TestReferences(t *testing.T) {
	assert.Equal(t, []string{"profit", "roi"}, References("columns.roi > 5 ? columns.profit : columns.roi"))
	assert.Empty(t, References("item.high - item.low"))

	// broken text still reports its references
	assert.Equal(t, []string{"profit"}, References("columns.profit +"))
}

func TestCheckDelete(t *testing.T) {
	all := []models.ColumnDefinition{
		numberColumn("profit", "item.high - item.low"),
		numberColumn("profitable", "columns.profit > 0"),
		numberColumn("profitability", "columns.profitable"),
		numberColumn("other", "item.volume"),
	}

	err := CheckDelete("profit", all)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDependencyConflict))

	var conflict *DependencyConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "profit", conflict.ColumnID)
	assert.Equal(t, []string{"profitable"}, conflict.ReferencedBy)

	// a reference to a longer ID sharing the prefix is not a dependency
	assert.NoError(t, CheckDelete("profitability", all))
	assert.NoError(t, CheckDelete("other", all))

	// disabling the dependent unblocks the delete
	all[1].Enabled = false
	assert.NoError(t, CheckDelete("profit", all))
}

func TestCheckDelete_IgnoresSelfReference(t *testing.T) {
	all := []models.ColumnDefinition{numberColumn("self", "columns.self + 1")}
	assert.NoError(t, CheckDelete("self", all))
}

func TestValidateColumn(t *testing.T) {
	valid := numberColumn("profit", "item.high - item.low")
	assert.NoError(t, ValidateColumn(&valid))

	broken := numberColumn("broken", "item.high -")
	assert.Error(t, ValidateColumn(&broken))
	assert.False(t, ValidateExpression(broken.Expression))

	noName := numberColumn("x", "1")
	noName.Name = ""
	assert.ErrorIs(t, ValidateColumn(&noName), models.ErrInvalidColumnName)
}

func TestValidateSet(t *testing.T) {
	assert.NoError(t, ValidateSet(Presets()))

	dup := []models.ColumnDefinition{numberColumn("a", "1"), numberColumn("a", "2")}
	assert.ErrorIs(t, ValidateSet(dup), models.ErrDuplicateID)
}

func TestPresets(t *testing.T) {
	presets := Presets()
	require.Len(t, presets, 19)

	groups := make(map[string]bool)
	for _, g := range Groups() {
		groups[g] = true
	}
	for _, p := range presets {
		assert.True(t, p.IsPreset, p.ID)
		assert.True(t, groups[p.Group], "unknown group %q for %s", p.Group, p.ID)
	}

	// callers get their own copy
	presets[0].Name = "changed"
	assert.Equal(t, "Item", Presets()[0].Name)
}
