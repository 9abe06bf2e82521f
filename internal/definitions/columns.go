package definitions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mohamedkhairy/flip-finder/internal/columns"
	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/internal/storage"
	"github.com/mohamedkhairy/flip-finder/pkg/logger"
)

// ColumnRepository stores the column set. A store that has never been
// written to yields the preset columns.
type ColumnRepository struct {
	store    storage.KVStore
	notifier Notifier

	// serializes read-modify-write cycles
	mu sync.Mutex
}

// NewColumnRepository creates a repository. notifier may be nil.
func NewColumnRepository(store storage.KVStore, notifier Notifier) *ColumnRepository {
	return &ColumnRepository{store: store, notifier: notifier}
}

// Load returns the stored column set, or the presets when nothing is stored
func (r *ColumnRepository) Load(ctx context.Context) ([]models.ColumnDefinition, error) {
	var raw json.RawMessage
	found, err := r.store.Get(ctx, columnsKey, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load columns: %w", err)
	}
	if !found {
		return columns.Presets(), nil
	}

	var doc columnDocument
	if err := decodeDocument(columnsSchema, raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to load columns: %w", err)
	}
	if doc.Columns == nil {
		doc.Columns = []models.ColumnDefinition{}
	}
	return doc.Columns, nil
}

// Save validates and replaces the whole column set
func (r *ColumnRepository) Save(ctx context.Context, all []models.ColumnDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, all, Change{Kind: columnsKey, Action: "save"})
}

func (r *ColumnRepository) save(ctx context.Context, all []models.ColumnDefinition, change Change) error {
	if err := columns.ValidateSet(all); err != nil {
		return err
	}
	if all == nil {
		all = []models.ColumnDefinition{}
	}
	if err := r.store.Set(ctx, columnsKey, columnDocument{Version: DocumentVersion, Columns: all}); err != nil {
		return fmt.Errorf("failed to save columns: %w", err)
	}

	logger.Debug("Saved column set",
		logger.String("action", change.Action),
		logger.String("column_id", change.ID),
		logger.Int("count", len(all)),
	)
	notify(ctx, r.notifier, change)
	return nil
}

// Add appends a new column. An empty ID is replaced with a generated one.
func (r *ColumnRepository) Add(ctx context.Context, col models.ColumnDefinition) ([]models.ColumnDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if col.ID == "" {
		col.ID = "custom_" + uuid.NewString()
	}
	col.IsPreset = false
	if err := columns.ValidateColumn(&col); err != nil {
		return nil, err
	}

	all, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	if indexOfColumn(all, col.ID) >= 0 {
		return nil, fmt.Errorf("column %q: %w", col.ID, models.ErrDuplicateID)
	}

	all = append(all, col)
	if err := r.save(ctx, all, Change{Kind: columnsKey, Action: "add", ID: col.ID}); err != nil {
		return nil, err
	}
	return all, nil
}

// Update replaces the column with the given ID. The ID and preset flag of
// the stored column are kept.
func (r *ColumnRepository) Update(ctx context.Context, id string, col models.ColumnDefinition) ([]models.ColumnDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOfColumn(all, id)
	if i < 0 {
		return nil, fmt.Errorf("column %q: %w", id, models.ErrColumnNotFound)
	}

	col.ID = id
	col.IsPreset = all[i].IsPreset
	if err := columns.ValidateColumn(&col); err != nil {
		return nil, err
	}

	all[i] = col
	if err := r.save(ctx, all, Change{Kind: columnsKey, Action: "update", ID: id}); err != nil {
		return nil, err
	}
	return all, nil
}

// Delete removes a column. It fails with a *columns.DependencyConflictError
// while any other enabled column references it.
func (r *ColumnRepository) Delete(ctx context.Context, id string) ([]models.ColumnDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOfColumn(all, id)
	if i < 0 {
		return nil, fmt.Errorf("column %q: %w", id, models.ErrColumnNotFound)
	}
	if err := columns.CheckDelete(id, all); err != nil {
		return nil, err
	}

	all = append(all[:i:i], all[i+1:]...)
	if err := r.save(ctx, all, Change{Kind: columnsKey, Action: "delete", ID: id}); err != nil {
		return nil, err
	}
	return all, nil
}

// Toggle flips a column's enabled flag
func (r *ColumnRepository) Toggle(ctx context.Context, id string) ([]models.ColumnDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOfColumn(all, id)
	if i < 0 {
		return nil, fmt.Errorf("column %q: %w", id, models.ErrColumnNotFound)
	}

	all[i].Enabled = !all[i].Enabled
	if err := r.save(ctx, all, Change{Kind: columnsKey, Action: "toggle", ID: id}); err != nil {
		return nil, err
	}
	return all, nil
}

// Reset drops the stored set so the next Load returns the presets
func (r *ColumnRepository) Reset(ctx context.Context) ([]models.ColumnDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(ctx, columnsKey); err != nil {
		return nil, fmt.Errorf("failed to reset columns: %w", err)
	}
	notify(ctx, r.notifier, Change{Kind: columnsKey, Action: "reset"})
	return columns.Presets(), nil
}

// merge adds or replaces columns by ID, keeping the order of existing ones
func (r *ColumnRepository) merge(ctx context.Context, incoming []models.ColumnDefinition) ([]models.ColumnDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, col := range incoming {
		if i := indexOfColumn(all, col.ID); i >= 0 {
			col.IsPreset = all[i].IsPreset
			all[i] = col
			continue
		}
		all = append(all, col)
	}
	if err := r.save(ctx, all, Change{Kind: columnsKey, Action: "import"}); err != nil {
		return nil, err
	}
	return all, nil
}

func indexOfColumn(all []models.ColumnDefinition, id string) int {
	for i := range all {
		if all[i].ID == id {
			return i
		}
	}
	return -1
}
