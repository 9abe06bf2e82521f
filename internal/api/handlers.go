package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mohamedkhairy/flip-finder/internal/columns"
	"github.com/mohamedkhairy/flip-finder/internal/definitions"
	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/internal/rules"
	"github.com/mohamedkhairy/flip-finder/pkg/logger"
)

// ChangeFunc is called after every successful definition write
type ChangeFunc func()

func (f ChangeFunc) fire() {
	if f != nil {
		f()
	}
}

// ColumnHandler handles column definition endpoints
type ColumnHandler struct {
	repo     *definitions.ColumnRepository
	onChange ChangeFunc
}

// NewColumnHandler creates a new column handler
func NewColumnHandler(repo *definitions.ColumnRepository, onChange ChangeFunc) *ColumnHandler {
	return &ColumnHandler{repo: repo, onChange: onChange}
}

// ListColumns handles GET /api/v1/columns
func (h *ColumnHandler) ListColumns(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.Load(r.Context())
	if err != nil {
		respondWithDefinitionError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"columns": all,
		"count":   len(all),
		"groups":  columns.Groups(),
	})
}

// CreateColumn handles POST /api/v1/columns
func (h *ColumnHandler) CreateColumn(w http.ResponseWriter, r *http.Request) {
	var col models.ColumnDefinition
	if err := json.NewDecoder(r.Body).Decode(&col); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	all, err := h.repo.Add(r.Context(), col)
	if err != nil {
		respondWithDefinitionError(w, r, err)
		return
	}
	h.onChange.fire()

	created := all[len(all)-1]
	logger.WithContext(r.Context()).Info("Column created",
		logger.String("column_id", created.ID),
		logger.String("column_name", created.Name),
	)

	respondWithJSON(w, http.StatusCreated, created)
}

// UpdateColumn handles PUT /api/v1/columns/{id}
func (h *ColumnHandler) UpdateColumn(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var col models.ColumnDefinition
	if err := json.NewDecoder(r.Body).Decode(&col); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	all, err := h.repo.Update(r.Context(), id, col)
	if err != nil {
		respondWithDefinitionError(w, r, err)
		return
	}
	h.onChange.fire()

	logger.WithContext(r.Context()).Info("Column updated", logger.String("column_id", id))
	respondWithJSON(w, http.StatusOK, findColumn(all, id))
}

// DeleteColumn handles DELETE /api/v1/columns/{id}. Deleting a column that
// an enabled column still references is rejected with 409.
func (h *ColumnHandler) DeleteColumn(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.repo.Delete(r.Context(), id); err != nil {
		respondWithDefinitionError(w, r, err)
		return
	}
	h.onChange.fire()

	logger.WithContext(r.Context()).Info("Column deleted", logger.String("column_id", id))
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Column deleted"})
}

// ToggleColumn handles POST /api/v1/columns/{id}/toggle
func (h *ColumnHandler) ToggleColumn(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	all, err := h.repo.Toggle(r.Context(), id)
	if err != nil {
		respondWithDefinitionError(w, r, err)
		return
	}
	h.onChange.fire()

	respondWithJSON(w, http.StatusOK, findColumn(all, id))
}

// ResetColumns handles POST /api/v1/columns/reset
func (h *ColumnHandler) ResetColumns(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.Reset(r.Context())
	if err != nil {
		respondWithDefinitionError(w, r, err)
		return
	}
	h.onChange.fire()

	logger.WithContext(r.Context()).Info("Columns reset to presets")
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"columns": all,
		"count":   len(all),
	})
}

func findColumn(all []models.ColumnDefinition, id string) *models.ColumnDefinition {
	for i := range all {
		if all[i].ID == id {
			return &all[i]
		}
	}
	return nil
}

// FilterHandler handles saved filter endpoints
type FilterHandler struct {
	repo     *definitions.FilterRepository
	onChange ChangeFunc
}

// NewFilterHandler creates a new filter handler
func NewFilterHandler(repo *definitions.FilterRepository, onChange ChangeFunc) *FilterHandler {
	return &FilterHandler{repo: repo, onChange: onChange}
}

// ListFilters handles GET /api/v1/filters
func (h *FilterHandler) ListFilters(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.Load(r.Context())
	if err != nil {
		respondWithDefinitionError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"filters": all,
		"count":   len(all),
	})
}

// CreateFilter handles POST /api/v1/filters
func (h *FilterHandler) CreateFilter(w http.ResponseWriter, r *http.Request) {
	f, ok := decodeFilter(w, r)
	if !ok {
		return
	}

	all, err := h.repo.Add(r.Context(), f)
	if err != nil {
		respondWithDefinitionError(w, r, err)
		return
	}
	h.onChange.fire()

	created := all[len(all)-1]
	logger.WithContext(r.Context()).Info("Filter created",
		logger.String("filter_id", created.ID),
		logger.String("filter_name", created.Name),
	)

	respondWithJSON(w, http.StatusCreated, created)
}

// UpdateFilter handles PUT /api/v1/filters/{id}
func (h *FilterHandler) UpdateFilter(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	f, ok := decodeFilter(w, r)
	if !ok {
		return
	}

	all, err := h.repo.Update(r.Context(), id, f)
	if err != nil {
		respondWithDefinitionError(w, r, err)
		return
	}
	h.onChange.fire()

	logger.WithContext(r.Context()).Info("Filter updated", logger.String("filter_id", id))
	respondWithJSON(w, http.StatusOK, findFilter(all, id))
}

// DeleteFilter handles DELETE /api/v1/filters/{id}
func (h *FilterHandler) DeleteFilter(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.repo.Delete(r.Context(), id); err != nil {
		respondWithDefinitionError(w, r, err)
		return
	}
	h.onChange.fire()

	logger.WithContext(r.Context()).Info("Filter deleted", logger.String("filter_id", id))
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Filter deleted"})
}

// ToggleFilter handles POST /api/v1/filters/{id}/toggle
func (h *FilterHandler) ToggleFilter(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	all, err := h.repo.Toggle(r.Context(), id)
	if err != nil {
		respondWithDefinitionError(w, r, err)
		return
	}
	h.onChange.fire()

	respondWithJSON(w, http.StatusOK, findFilter(all, id))
}

// ResetFilters handles POST /api/v1/filters/reset
func (h *FilterHandler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.Reset(r.Context())
	if err != nil {
		respondWithDefinitionError(w, r, err)
		return
	}
	h.onChange.fire()

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"filters": all,
		"count":   len(all),
	})
}

// decodeFilter reads a filter body and lints its rule so a malformed tree
// is rejected before it is stored
func decodeFilter(w http.ResponseWriter, r *http.Request) (models.SavedFilter, bool) {
	var f models.SavedFilter
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return models.SavedFilter{}, false
	}
	if f.Rule != nil {
		if err := rules.Lint(f.Rule); err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid rule: %v", err))
			return models.SavedFilter{}, false
		}
	}
	return f, true
}

func findFilter(all []models.SavedFilter, id string) *models.SavedFilter {
	for i := range all {
		if all[i].ID == id {
			return &all[i]
		}
	}
	return nil
}
