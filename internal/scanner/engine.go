// Package scanner turns an item snapshot and the current definition set into
// the filtered, sorted and paginated table the API serves.
package scanner

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/mohamedkhairy/flip-finder/internal/columns"
	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/internal/rules"
	"github.com/mohamedkhairy/flip-finder/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPageSize is the number of rows per page when none is requested
	DefaultPageSize = 50
	// MaxPageSize bounds how many rows a single request may render
	MaxPageSize = 500
	// DefaultSortKey is the column the table is ordered by when none is given
	DefaultSortKey = "profit"

	rawDataBinding  = "rawData"
	timeseriesField = "timeseries"
)

// SeriesSource supplies newest-first price histories for the rows on a page
type SeriesSource interface {
	Series(ctx context.Context, ids []int) map[int][]float64
}

// Request describes one table evaluation
type Request struct {
	Items    []models.Item
	Columns  []models.ColumnDefinition
	Filters  []models.SavedFilter
	Search   string
	SortBy   string
	Desc     bool
	Page     int
	PageSize int
}

// ColumnHeader describes one rendered column
type ColumnHeader struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Type   models.ColumnType   `json:"type"`
	Format models.ColumnFormat `json:"format,omitempty"`
	Group  string              `json:"group,omitempty"`
}

// Row is one item with its enabled column values. Values holds JSON-safe
// raw values and Display the formatted text shown in the table.
type Row struct {
	Item    *models.Item      `json:"item"`
	Values  map[string]any    `json:"values"`
	Display map[string]string `json:"display"`
}

// Table is the result of one evaluation
type Table struct {
	Columns  []ColumnHeader `json:"columns"`
	Rows     []Row          `json:"rows"`
	Total    int            `json:"total"`
	Matched  int            `json:"matched"`
	Filters  int            `json:"filters"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
	Pages    int            `json:"pages"`
	SortBy   string         `json:"sortBy,omitempty"`
	Desc     bool           `json:"desc"`
}

// candidate is one item moving through the pipeline with its memoized
// column values
type candidate struct {
	item   *models.Item
	values map[string]any
}

// Engine evaluates tables. It is stateless between calls and safe for
// concurrent use.
type Engine struct {
	columns  *columns.Evaluator
	compiler *rules.Compiler
	series   SeriesSource
	workers  int
}

// NewEngine creates an engine. series may be nil, in which case rawData is
// always empty. workers bounds per-item parallelism.
func NewEngine(cols *columns.Evaluator, series SeriesSource, workers int) *Engine {
	if cols == nil {
		cols = columns.NewEvaluator(0, nil)
	}
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		columns:  cols,
		compiler: rules.NewCompiler(),
		series:   series,
		workers:  workers,
	}
}

// Evaluate filters, searches, sorts and paginates req.Items, then renders the
// enabled columns for the requested page. Filters and sorting see an empty
// rawData; only the rendered page gets price histories. The only error is
// cancellation of ctx.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*Table, error) {
	start := time.Now()
	defer func() {
		logger.ScanDuration.Observe(time.Since(start).Seconds())
	}()

	set := e.compiler.CompileSet(req.Filters)
	sortColumn := findColumn(req.Columns, req.SortBy)
	needValues := set.Len() > 0 || sortColumn != nil
	search := strings.ToLower(strings.TrimSpace(req.Search))

	candidates, err := e.filter(ctx, req, set, needValues, search)
	if err != nil {
		return nil, err
	}

	if req.SortBy != "" {
		sortCandidates(candidates, req.SortBy, sortColumn != nil, req.Desc)
	}

	table := &Table{
		Columns: headers(req.Columns),
		Total:   len(req.Items),
		Matched: len(candidates),
		Filters: set.Len(),
		SortBy:  req.SortBy,
		Desc:    req.Desc,
	}
	page := paginate(table, candidates, req.Page, req.PageSize)

	rows, err := e.render(ctx, page, req.Columns)
	if err != nil {
		return nil, err
	}
	table.Rows = rows

	logger.ScanItems.WithLabelValues("total").Set(float64(table.Total))
	logger.ScanItems.WithLabelValues("matched").Set(float64(table.Matched))
	return table, nil
}

// filter keeps the items that match the search text and pass every enabled
// filter, in input order
func (e *Engine) filter(ctx context.Context, req Request, set *rules.FilterSet, needValues bool, search string) ([]candidate, error) {
	kept := make([]*candidate, len(req.Items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range req.Items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item := &req.Items[i]
			if search != "" && !strings.Contains(strings.ToLower(item.Name), search) {
				return nil
			}

			c := &candidate{item: item}
			if needValues {
				evalCtx := models.EvaluationContext{Item: item, RawData: map[string]any{}}
				c.values = e.columns.EvaluateAll(evalCtx, req.Columns)
			}
			if set.Len() > 0 && !set.Match(rules.Data{Item: item, Columns: c.values}) {
				return nil
			}
			kept[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]candidate, 0, len(kept))
	for _, c := range kept {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

// paginate clamps the requested page into range, fills the paging fields of
// table and returns the candidates on that page
func paginate(table *Table, candidates []candidate, page, size int) []candidate {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	pages := int(math.Ceil(float64(len(candidates)) / float64(size)))
	if page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}

	table.Page = page
	table.PageSize = size
	table.Pages = pages

	from := (page - 1) * size
	if from >= len(candidates) {
		return nil
	}
	to := from + size
	if to > len(candidates) {
		to = len(candidates)
	}
	return candidates[from:to]
}

// render evaluates the columns of the page rows. Histories are fetched only
// when an enabled column reads rawData, directly or through the columns it
// references.
func (e *Engine) render(ctx context.Context, page []candidate, all []models.ColumnDefinition) ([]Row, error) {
	enabled := enabledColumns(all)
	rows := make([]Row, len(page))
	if len(page) == 0 {
		return rows, nil
	}

	var series map[int][]float64
	usesRawData := e.series != nil && readsRawData(enabled, all)
	if usesRawData {
		ids := make([]int, len(page))
		for i, c := range page {
			ids[i] = c.item.ID
		}
		series = e.series.Series(ctx, ids)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range page {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c := page[i]
			values := c.values
			if values == nil || usesRawData {
				raw := map[string]any{}
				if s, ok := series[c.item.ID]; ok {
					raw[timeseriesField] = s
				}
				values = e.columns.EvaluateAll(models.EvaluationContext{Item: c.item, RawData: raw}, all)
			}
			rows[i] = newRow(c.item, values, enabled)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// Explain reports the outcome of every enabled filter for one item
func (e *Engine) Explain(item *models.Item, all []models.ColumnDefinition, filters []models.SavedFilter) []rules.FilterResult {
	set := e.compiler.CompileSet(filters)
	values := e.columns.EvaluateAll(models.EvaluationContext{Item: item, RawData: map[string]any{}}, all)
	return set.Explain(rules.Data{Item: item, Columns: values})
}

func newRow(item *models.Item, values map[string]any, enabled []*models.ColumnDefinition) Row {
	row := Row{
		Item:    item,
		Values:  make(map[string]any, len(enabled)),
		Display: make(map[string]string, len(enabled)),
	}
	for _, col := range enabled {
		v := values[col.ID]
		row.Values[col.ID] = columns.Normalize(v)
		row.Display[col.ID] = columns.Display(v, col)
	}
	return row
}

func enabledColumns(all []models.ColumnDefinition) []*models.ColumnDefinition {
	out := make([]*models.ColumnDefinition, 0, len(all))
	for i := range all {
		if all[i].Enabled {
			out = append(out, &all[i])
		}
	}
	return out
}

func headers(all []models.ColumnDefinition) []ColumnHeader {
	out := make([]ColumnHeader, 0, len(all))
	for _, col := range enabledColumns(all) {
		out = append(out, ColumnHeader{
			ID:     col.ID,
			Name:   col.Name,
			Type:   col.Type,
			Format: col.Format,
			Group:  col.Group,
		})
	}
	return out
}

func readsRawData(enabled []*models.ColumnDefinition, all []models.ColumnDefinition) bool {
	byID := make(map[string]*models.ColumnDefinition, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
	}

	seen := make(map[string]bool, len(all))
	queue := append([]*models.ColumnDefinition(nil), enabled...)
	for len(queue) > 0 {
		col := queue[0]
		queue = queue[1:]
		if seen[col.ID] {
			continue
		}
		seen[col.ID] = true

		if strings.Contains(col.Expression, rawDataBinding) {
			return true
		}
		for _, ref := range columns.References(col.Expression) {
			if dep, ok := byID[ref]; ok && !seen[ref] {
				queue = append(queue, dep)
			}
		}
	}
	return false
}

func findColumn(all []models.ColumnDefinition, id string) *models.ColumnDefinition {
	if id == "" {
		return nil
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i]
		}
	}
	return nil
}
