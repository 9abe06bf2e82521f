package definitions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/internal/rules"
	"github.com/mohamedkhairy/flip-finder/internal/storage"
	"github.com/mohamedkhairy/flip-finder/pkg/logger"
)

// FilterRepository stores the saved filter set. A store that has never been
// written to yields the preset filters.
type FilterRepository struct {
	store    storage.KVStore
	notifier Notifier
	mu       sync.Mutex
}

// NewFilterRepository creates a repository. notifier may be nil.
func NewFilterRepository(store storage.KVStore, notifier Notifier) *FilterRepository {
	return &FilterRepository{store: store, notifier: notifier}
}

// Load returns the stored filter set, or the presets when nothing is stored
func (r *FilterRepository) Load(ctx context.Context) ([]models.SavedFilter, error) {
	var raw json.RawMessage
	found, err := r.store.Get(ctx, filtersKey, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load filters: %w", err)
	}
	if !found {
		return rules.Presets(), nil
	}

	var doc filterDocument
	if err := decodeDocument(filtersSchema, raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to load filters: %w", err)
	}
	if doc.Filters == nil {
		doc.Filters = []models.SavedFilter{}
	}
	return doc.Filters, nil
}

// Save validates and replaces the whole filter set
func (r *FilterRepository) Save(ctx context.Context, all []models.SavedFilter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, all, Change{Kind: filtersKey, Action: "save"})
}

func (r *FilterRepository) save(ctx context.Context, all []models.SavedFilter, change Change) error {
	seen := make(map[string]struct{}, len(all))
	for i := range all {
		if err := rules.ValidateFilter(&all[i]); err != nil {
			return err
		}
		if _, dup := seen[all[i].ID]; dup {
			return fmt.Errorf("filter %q: %w", all[i].ID, models.ErrDuplicateID)
		}
		seen[all[i].ID] = struct{}{}
	}
	if all == nil {
		all = []models.SavedFilter{}
	}

	if err := r.store.Set(ctx, filtersKey, filterDocument{Version: DocumentVersion, Filters: all}); err != nil {
		return fmt.Errorf("failed to save filters: %w", err)
	}

	logger.Debug("Saved filter set",
		logger.String("action", change.Action),
		logger.String("filter_id", change.ID),
		logger.Int("count", len(all)),
	)
	notify(ctx, r.notifier, change)
	return nil
}

// Add appends a new filter. An empty ID is replaced with a generated one.
func (r *FilterRepository) Add(ctx context.Context, f models.SavedFilter) ([]models.SavedFilter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f.ID == "" {
		f.ID = "filter_" + uuid.NewString()
	}
	f.IsPreset = false
	if err := rules.ValidateFilter(&f); err != nil {
		return nil, err
	}

	all, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	if indexOfFilter(all, f.ID) >= 0 {
		return nil, fmt.Errorf("filter %q: %w", f.ID, models.ErrDuplicateID)
	}

	all = append(all, f)
	if err := r.save(ctx, all, Change{Kind: filtersKey, Action: "add", ID: f.ID}); err != nil {
		return nil, err
	}
	return all, nil
}

// Update replaces the filter with the given ID
func (r *FilterRepository) Update(ctx context.Context, id string, f models.SavedFilter) ([]models.SavedFilter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOfFilter(all, id)
	if i < 0 {
		return nil, fmt.Errorf("filter %q: %w", id, models.ErrFilterNotFound)
	}

	f.ID = id
	f.IsPreset = all[i].IsPreset
	if err := rules.ValidateFilter(&f); err != nil {
		return nil, err
	}

	all[i] = f
	if err := r.save(ctx, all, Change{Kind: filtersKey, Action: "update", ID: id}); err != nil {
		return nil, err
	}
	return all, nil
}

// Delete removes a filter. Nothing references filters, so there is no guard.
func (r *FilterRepository) Delete(ctx context.Context, id string) ([]models.SavedFilter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOfFilter(all, id)
	if i < 0 {
		return nil, fmt.Errorf("filter %q: %w", id, models.ErrFilterNotFound)
	}

	all = append(all[:i:i], all[i+1:]...)
	if err := r.save(ctx, all, Change{Kind: filtersKey, Action: "delete", ID: id}); err != nil {
		return nil, err
	}
	return all, nil
}

// Toggle flips a filter's enabled flag
func (r *FilterRepository) Toggle(ctx context.Context, id string) ([]models.SavedFilter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOfFilter(all, id)
	if i < 0 {
		return nil, fmt.Errorf("filter %q: %w", id, models.ErrFilterNotFound)
	}

	all[i].Enabled = !all[i].Enabled
	if err := r.save(ctx, all, Change{Kind: filtersKey, Action: "toggle", ID: id}); err != nil {
		return nil, err
	}
	return all, nil
}

// Reset drops the stored set so the next Load returns the presets
func (r *FilterRepository) Reset(ctx context.Context) ([]models.SavedFilter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(ctx, filtersKey); err != nil {
		return nil, fmt.Errorf("failed to reset filters: %w", err)
	}
	notify(ctx, r.notifier, Change{Kind: filtersKey, Action: "reset"})
	return rules.Presets(), nil
}

func (r *FilterRepository) merge(ctx context.Context, incoming []models.SavedFilter) ([]models.SavedFilter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range incoming {
		if i := indexOfFilter(all, f.ID); i >= 0 {
			f.IsPreset = all[i].IsPreset
			all[i] = f
			continue
		}
		all = append(all, f)
	}
	if err := r.save(ctx, all, Change{Kind: filtersKey, Action: "import"}); err != nil {
		return nil, err
	}
	return all, nil
}

func indexOfFilter(all []models.SavedFilter, id string) int {
	for i := range all {
		if all[i].ID == id {
			return i
		}
	}
	return -1
}
