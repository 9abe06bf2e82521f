package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mohamedkhairy/flip-finder/internal/definitions"
	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/internal/scanner"
)

// SnapshotSource exposes the latest item snapshot
type SnapshotSource interface {
	Snapshot() scanner.Snapshot
}

// TableHandler serves evaluated tables over the latest snapshot
type TableHandler struct {
	engine    *scanner.Engine
	snapshots SnapshotSource
	columns   *definitions.ColumnRepository
	filters   *definitions.FilterRepository
}

// NewTableHandler creates a new table handler
func NewTableHandler(
	engine *scanner.Engine,
	snapshots SnapshotSource,
	columns *definitions.ColumnRepository,
	filters *definitions.FilterRepository,
) *TableHandler {
	return &TableHandler{
		engine:    engine,
		snapshots: snapshots,
		columns:   columns,
		filters:   filters,
	}
}

// GetTable handles GET /api/v1/table?search=&sort=&dir=&page=&pageSize=
func (h *TableHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Snapshot()
	if !snap.Ready() {
		respondWithError(w, http.StatusServiceUnavailable, "Prices not loaded yet")
		return
	}

	cols, filters, ok := h.loadDefinitions(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	sortBy := q.Get("sort")
	if sortBy == "" {
		sortBy = scanner.DefaultSortKey
	}

	table, err := h.engine.Evaluate(r.Context(), scanner.Request{
		Items:    snap.Items,
		Columns:  cols,
		Filters:  filters,
		Search:   q.Get("search"),
		SortBy:   sortBy,
		Desc:     q.Get("dir") != "asc",
		Page:     queryInt(q.Get("page"), 1),
		PageSize: queryInt(q.Get("pageSize"), scanner.DefaultPageSize),
	})
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Evaluation canceled")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"table":     table,
		"fetchedAt": snap.FetchedAt.UTC().Format(time.RFC3339),
		"source":    snap.Source,
	})
}

// ExplainItem handles GET /api/v1/items/{id}/explain. It reports every
// enabled filter's outcome for one item.
func (h *TableHandler) ExplainItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	item := findItem(h.snapshots.Snapshot().Items, id)
	if item == nil {
		respondWithError(w, http.StatusNotFound, "Item not found")
		return
	}

	cols, filters, ok := h.loadDefinitions(w, r)
	if !ok {
		return
	}

	results := h.engine.Explain(item, cols, filters)
	passed := true
	for _, res := range results {
		passed = passed && res.Matched
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"item":    item,
		"results": results,
		"passed":  passed,
	})
}

// Health handles GET /health
func (h *TableHandler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Snapshot()
	body := map[string]interface{}{
		"status": "healthy",
		"items":  len(snap.Items),
		"ready":  snap.Ready(),
	}
	if snap.Ready() {
		body["fetchedAt"] = snap.FetchedAt.UTC().Format(time.RFC3339)
	}
	respondWithJSON(w, http.StatusOK, body)
}

// Ready handles GET /ready. It fails until the first snapshot is loaded.
func (h *TableHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.snapshots.Snapshot().Ready() {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *TableHandler) loadDefinitions(w http.ResponseWriter, r *http.Request) ([]models.ColumnDefinition, []models.SavedFilter, bool) {
	cols, err := h.columns.Load(r.Context())
	if err != nil {
		respondWithDefinitionError(w, r, err)
		return nil, nil, false
	}
	filters, err := h.filters.Load(r.Context())
	if err != nil {
		respondWithDefinitionError(w, r, err)
		return nil, nil, false
	}
	return cols, filters, true
}

func findItem(items []models.Item, id int) *models.Item {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}

func queryInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
