package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/flip-finder/internal/columns"
	"github.com/mohamedkhairy/flip-finder/internal/definitions"
	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/internal/rules"
	"github.com/mohamedkhairy/flip-finder/internal/scanner"
	"github.com/mohamedkhairy/flip-finder/internal/storage"
	"github.com/mohamedkhairy/flip-finder/pkg/expr"
)

type fixedSnapshot struct {
	snap scanner.Snapshot
}

func (f *fixedSnapshot) Snapshot() scanner.Snapshot {
	return f.snap
}

type testServer struct {
	handler  http.Handler
	snapshot *fixedSnapshot
	changes  int
}

func testItems() []models.Item {
	return []models.Item{
		{ID: 1, Name: "Abyssal whip", Members: true, Low: 1000, High: 2000, Volume: 50000},
		{ID: 2, Name: "Cannonball", Members: false, Low: 100, High: 110, Volume: 5000000},
		{ID: 3, Name: "Dragon bones", Members: false, Low: 500, High: 700, Volume: 800},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		snapshot: &fixedSnapshot{snap: scanner.Snapshot{
			Items:     testItems(),
			FetchedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Source:    "mock",
		}},
	}
	onChange := ChangeFunc(func() { ts.changes++ })

	cols := definitions.NewColumnRepository(storage.NewMemoryKVStore("test"), nil)
	filters := definitions.NewFilterRepository(storage.NewMemoryKVStore("test"), nil)
	engine := scanner.NewEngine(columns.NewEvaluator(0, expr.NewCache(0)), nil, 2)

	ts.handler = NewRouter(
		NewColumnHandler(cols, onChange),
		NewFilterHandler(filters, onChange),
		NewValidationHandler(),
		NewTableHandler(engine, ts.snapshot, cols, filters),
	)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

func TestColumnHandler_List(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, "GET", "/api/v1/columns", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Columns []models.ColumnDefinition `json:"columns"`
		Count   int                       `json:"count"`
		Groups  []string                  `json:"groups"`
	}
	decode(t, w, &resp)
	assert.Equal(t, len(columns.Presets()), resp.Count)
	assert.Equal(t, columns.Groups(), resp.Groups)
}

func TestColumnHandler_Create(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, "POST", "/api/v1/columns", map[string]interface{}{
		"name":       "Margin x2",
		"expression": "columns.profit * 2",
		"type":       "number",
		"format":     "currency",
		"enabled":    true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.ColumnDefinition
	decode(t, w, &created)
	assert.True(t, strings.HasPrefix(created.ID, "custom_"))
	assert.False(t, created.IsPreset)
	assert.Equal(t, 1, ts.changes)
}

func TestColumnHandler_CreateErrors(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"malformed JSON", "{", http.StatusBadRequest},
		{"syntax error", map[string]interface{}{"name": "Bad", "expression": "item.low +", "type": "number"}, http.StatusBadRequest},
		{"missing name", map[string]interface{}{"expression": "item.low", "type": "number"}, http.StatusBadRequest},
		{"bad type", map[string]interface{}{"name": "X", "expression": "item.low", "type": "date"}, http.StatusBadRequest},
		{"duplicate id", map[string]interface{}{"id": "profit", "name": "X", "expression": "item.low", "type": "number"}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			w := ts.do(t, "POST", "/api/v1/columns", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Zero(t, ts.changes)
		})
	}
}

func TestColumnHandler_UpdateToggleDelete(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, "PUT", "/api/v1/columns/roi", map[string]interface{}{
		"name":       "ROI",
		"expression": "(item.high - item.low) / item.low * 100",
		"type":       "number",
		"format":     "percentage",
		"enabled":    true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.ColumnDefinition
	decode(t, w, &updated)
	assert.Equal(t, "roi", updated.ID)
	assert.True(t, updated.IsPreset, "presets stay presets after an edit")

	w = ts.do(t, "POST", "/api/v1/columns/roi/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var toggled models.ColumnDefinition
	decode(t, w, &toggled)
	assert.False(t, toggled.Enabled)

	w = ts.do(t, "DELETE", "/api/v1/columns/roi", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, ts.changes)

	assert.Equal(t, http.StatusNotFound, ts.do(t, "DELETE", "/api/v1/columns/roi", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, "POST", "/api/v1/columns/nope/toggle", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, "PUT", "/api/v1/columns/nope", map[string]interface{}{
		"name": "X", "expression": "1", "type": "number",
	}).Code)
}

func TestColumnHandler_DeleteReferencedColumn(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, "POST", "/api/v1/columns", map[string]interface{}{
		"id":         "margin2",
		"name":       "Margin x2",
		"expression": "columns.profit * 2",
		"type":       "number",
		"enabled":    true,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, "DELETE", "/api/v1/columns/profit", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		ReferencedBy []string `json:"referencedBy"`
	}
	decode(t, w, &resp)
	assert.Equal(t, []string{"margin2"}, resp.ReferencedBy)

	// disabling the dependent lifts the guard
	require.Equal(t, http.StatusOK, ts.do(t, "POST", "/api/v1/columns/margin2/toggle", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, "DELETE", "/api/v1/columns/profit", nil).Code)
}

func TestColumnHandler_Reset(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.do(t, "DELETE", "/api/v1/columns/limit", nil).Code)

	w := ts.do(t, "POST", "/api/v1/columns/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Columns []models.ColumnDefinition `json:"columns"`
	}
	decode(t, w, &resp)
	assert.Equal(t, columns.Presets(), resp.Columns)
}

func TestFilterHandler_Lifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, "GET", "/api/v1/filters", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, w, &list)
	assert.Equal(t, len(rules.Presets()), list.Count)

	w = ts.do(t, "POST", "/api/v1/filters", `{
		"name": "F2P",
		"category": "Restrictions",
		"enabled": true,
		"rule": {"==": [{"var": "item.members"}, false]}
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.SavedFilter
	decode(t, w, &created)
	assert.True(t, strings.HasPrefix(created.ID, "filter_"))

	w = ts.do(t, "PUT", "/api/v1/filters/"+created.ID, `{
		"name": "Members",
		"enabled": true,
		"rule": {"==": [{"var": "item.members"}, true]}
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, "POST", "/api/v1/filters/"+created.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var toggled models.SavedFilter
	decode(t, w, &toggled)
	assert.False(t, toggled.Enabled)

	assert.Equal(t, http.StatusOK, ts.do(t, "DELETE", "/api/v1/filters/"+created.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, "DELETE", "/api/v1/filters/"+created.ID, nil).Code)
	assert.Equal(t, 4, ts.changes)

	assert.Equal(t, http.StatusOK, ts.do(t, "POST", "/api/v1/filters/reset", nil).Code)
}

func TestFilterHandler_RejectsMalformedRules(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown operator", `{"name": "X", "enabled": true, "rule": {"~=": [1, 2]}}`},
		{"nested unknown operator", `{"name": "X", "enabled": true, "rule": {"and": [{"==": [1, 1]}, {"nope": []}]}}`},
		{"scalar rule", `{"name": "X", "enabled": true, "rule": 5}`},
		{"missing rule", `{"name": "X", "enabled": true}`},
		{"missing name", `{"enabled": true, "rule": {"==": [1, 1]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			w := ts.do(t, "POST", "/api/v1/filters", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestValidationHandler_Expression(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, "POST", "/api/v1/validate/expression", map[string]string{
		"expression": "columns.profit / columns.low * 100",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var ok struct {
		Valid      bool     `json:"valid"`
		References []string `json:"references"`
	}
	decode(t, w, &ok)
	assert.True(t, ok.Valid)
	assert.Equal(t, []string{"low", "profit"}, ok.References)

	w = ts.do(t, "POST", "/api/v1/validate/expression", map[string]string{"expression": "item.low +"})
	require.Equal(t, http.StatusOK, w.Code)
	var bad struct {
		Valid    bool   `json:"valid"`
		Error    string `json:"error"`
		Position *int   `json:"position"`
	}
	decode(t, w, &bad)
	assert.False(t, bad.Valid)
	assert.Contains(t, bad.Error, "syntax")
	assert.NotNil(t, bad.Position)
}

func TestValidationHandler_Rule(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, "POST", "/api/v1/validate/rule", `{"rule": {"and": [{">": [{"var": "columns.roi"}, 5]}, {"==": [{"var": "item.members"}, false]}]}}`)
	require.Equal(t, http.StatusOK, w.Code)
	var ok struct {
		Valid   bool     `json:"valid"`
		Columns []string `json:"columns"`
	}
	decode(t, w, &ok)
	assert.True(t, ok.Valid)
	assert.Equal(t, []string{"roi"}, ok.Columns)

	for _, body := range []string{`{"rule": {"=~": [1, 2]}}`, `{"rule": "x"}`, `{}`} {
		w = ts.do(t, "POST", "/api/v1/validate/rule", body)
		require.Equal(t, http.StatusOK, w.Code)
		var bad struct {
			Valid bool `json:"valid"`
		}
		decode(t, w, &bad)
		assert.False(t, bad.Valid, body)
	}

	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", "/api/v1/validate/rule", "{").Code)
}

type tableResponse struct {
	Table     scanner.Table `json:"table"`
	FetchedAt string        `json:"fetchedAt"`
	Source    string        `json:"source"`
}

func tableIDs(table scanner.Table) []int {
	ids := make([]int, len(table.Rows))
	for i, row := range table.Rows {
		ids[i] = row.Item.ID
	}
	return ids
}

func TestTableHandler_GetTable(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, "GET", "/api/v1/table", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp tableResponse
	decode(t, w, &resp)
	assert.Equal(t, "mock", resp.Source)
	assert.Equal(t, "2026-01-02T03:04:05Z", resp.FetchedAt)
	assert.Equal(t, scanner.DefaultSortKey, resp.Table.SortBy)
	assert.True(t, resp.Table.Desc)
	assert.Equal(t, []int{1, 3, 2}, tableIDs(resp.Table), "profit descending by default")
	assert.Equal(t, "960", resp.Table.Rows[0].Display["profit"])

	w = ts.do(t, "GET", "/api/v1/table?sort=volume&dir=asc&pageSize=2&page=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = tableResponse{}
	decode(t, w, &resp)
	assert.Equal(t, []int{3, 1}, tableIDs(resp.Table))
	assert.Equal(t, 2, resp.Table.Pages)

	w = ts.do(t, "GET", "/api/v1/table?search=CANNON", nil)
	resp = tableResponse{}
	decode(t, w, &resp)
	assert.Equal(t, []int{2}, tableIDs(resp.Table))
}

func TestTableHandler_AppliesEnabledFilters(t *testing.T) {
	ts := newTestServer(t)

	// enable the f2p_only preset
	require.Equal(t, http.StatusOK, ts.do(t, "POST", "/api/v1/filters/f2p_only/toggle", nil).Code)

	w := ts.do(t, "GET", "/api/v1/table", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp tableResponse
	decode(t, w, &resp)
	assert.Equal(t, 3, resp.Table.Total)
	assert.Equal(t, 2, resp.Table.Matched)
	assert.Equal(t, 1, resp.Table.Filters)
	assert.Equal(t, []int{3, 2}, tableIDs(resp.Table))
}

func TestTableHandler_NotReady(t *testing.T) {
	ts := newTestServer(t)
	ts.snapshot.snap = scanner.Snapshot{}

	assert.Equal(t, http.StatusServiceUnavailable, ts.do(t, "GET", "/api/v1/table", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(t, "GET", "/ready", nil).Code)

	w := ts.do(t, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]interface{}
	decode(t, w, &health)
	assert.Equal(t, false, health["ready"])
}

func TestTableHandler_ExplainItem(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.do(t, "POST", "/api/v1/filters/f2p_only/toggle", nil).Code)

	w := ts.do(t, "GET", "/api/v1/items/2/explain", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Passed  bool                 `json:"passed"`
		Results []rules.FilterResult `json:"results"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Passed)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "f2p_only", resp.Results[0].FilterID)

	w = ts.do(t, "GET", "/api/v1/items/1/explain", nil)
	resp.Passed = true
	decode(t, w, &resp)
	assert.False(t, resp.Passed)

	assert.Equal(t, http.StatusNotFound, ts.do(t, "GET", "/api/v1/items/999/explain", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, "GET", "/api/v1/items/abc/explain", nil).Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusOK, ts.do(t, "GET", "/ready", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, "GET", "/health", nil).Code)

	w := ts.do(t, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "flip_finder_http_requests_total")

	assert.Equal(t, http.StatusMethodNotAllowed, ts.do(t, "PATCH", "/api/v1/columns", nil).Code)
}
