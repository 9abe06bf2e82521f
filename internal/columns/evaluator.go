package columns

import (
	"errors"
	"math"

	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/pkg/expr"
	"github.com/mohamedkhairy/flip-finder/pkg/logger"
)

// DefaultMaxDepth is how many columns.<id> hops are followed before a
// reference chain is treated as a cycle
const DefaultMaxDepth = 10

// Evaluator computes column values for one item at a time. It holds no
// per-item state and is safe for concurrent use.
type Evaluator struct {
	maxDepth int
	cache    *expr.Cache
}

// NewEvaluator creates an evaluator. maxDepth <= 0 selects DefaultMaxDepth and
// a nil cache selects the process-wide expression cache.
func NewEvaluator(maxDepth int, cache *expr.Cache) *Evaluator {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if cache == nil {
		cache = expr.DefaultCache()
	}
	return &Evaluator{maxDepth: maxDepth, cache: cache}
}

// MaxDepth returns the configured reference depth bound
func (e *Evaluator) MaxDepth() int {
	return e.maxDepth
}

// EvaluateColumn returns the value of col for ctx, or nil when the column
// cannot be computed. Failures are logged and counted, never returned.
func (e *Evaluator) EvaluateColumn(col *models.ColumnDefinition, ctx models.EvaluationContext, all []models.ColumnDefinition) any {
	return e.EvaluateColumnDepth(col, ctx, all, 0)
}

// EvaluateColumnDepth is EvaluateColumn starting from an explicit depth
func (e *Evaluator) EvaluateColumnDepth(col *models.ColumnDefinition, ctx models.EvaluationContext, all []models.ColumnDefinition, depth int) any {
	p := newPass(e, ctx, all)
	v, err := p.top(col, depth)
	if err != nil {
		reportFailure(col, err)
		return nil
	}
	return v
}

// Evaluate is EvaluateColumn that returns the failure instead of logging it.
// The error is an *expr.Error; cycles match expr.ErrCycleDetected.
func (e *Evaluator) Evaluate(col *models.ColumnDefinition, ctx models.EvaluationContext, all []models.ColumnDefinition) (any, error) {
	return newPass(e, ctx, all).top(col, 0)
}

// EvaluateAll computes every column in all for ctx, keyed by column ID.
// Failed columns map to nil.
func (e *Evaluator) EvaluateAll(ctx models.EvaluationContext, all []models.ColumnDefinition) map[string]any {
	p := newPass(e, ctx, all)
	values := make(map[string]any, len(all))
	for i := range all {
		col := &all[i]
		if _, done := values[col.ID]; done {
			continue
		}
		v, err := p.top(col, 0)
		if err != nil {
			reportFailure(col, err)
			v = nil
		}
		values[col.ID] = v
	}
	return values
}

// pass is the state of evaluating columns for a single item
type pass struct {
	ev    *Evaluator
	ctx   models.EvaluationContext
	byID  map[string]*models.ColumnDefinition
	cycle bool
}

func newPass(e *Evaluator, ctx models.EvaluationContext, all []models.ColumnDefinition) *pass {
	byID := make(map[string]*models.ColumnDefinition, len(all))
	for i := range all {
		// first definition wins on duplicate IDs
		if _, ok := byID[all[i].ID]; !ok {
			byID[all[i].ID] = &all[i]
		}
	}
	return &pass{ev: e, ctx: ctx, byID: byID}
}

// top evaluates a column requested by a caller rather than by another
// column. If any reference below it hit the depth bound the whole value is
// discarded.
func (p *pass) top(col *models.ColumnDefinition, depth int) (any, error) {
	p.cycle = false
	v, err := p.evaluate(col, depth)
	if err != nil {
		return nil, err
	}
	if p.cycle {
		return nil, expr.ErrCycleDetected
	}
	return v, nil
}

func (p *pass) evaluate(col *models.ColumnDefinition, depth int) (any, error) {
	if depth > p.ev.maxDepth {
		p.cycle = true
		return nil, expr.ErrCycleDetected
	}

	compiled, hit, err := p.ev.cache.Lookup(col.Expression)
	if hit {
		logger.ExpressionCacheLookups.WithLabelValues("hit").Inc()
	} else {
		logger.ExpressionCacheLookups.WithLabelValues("miss").Inc()
	}
	if err != nil {
		return nil, err
	}

	return compiled.Evaluate(p.bindings(depth))
}

func (p *pass) bindings(depth int) expr.Bindings {
	var item any
	if p.ctx.Item != nil {
		item = p.ctx.Item
	}

	var rawData any = expr.Undefined
	if p.ctx.RawData != nil {
		rawData = p.ctx.RawData
	}

	return expr.Bindings{
		"item":    item,
		"rawData": rawData,
		"columns": expr.AccessorFunc(func(id string) (any, bool) {
			dep, ok := p.byID[id]
			if !ok {
				logger.Debug("unresolved column reference",
					logger.String("column_id", id),
					logger.Int("depth", depth+1),
				)
				return nil, false
			}
			v, err := p.evaluate(dep, depth+1)
			if err != nil {
				// a failed dependency reads as null to its dependents
				if !errors.Is(err, expr.ErrCycleDetected) {
					reportFailure(dep, err)
				}
				return nil, true
			}
			return v, true
		}),
	}
}

func reportFailure(col *models.ColumnDefinition, err error) {
	kind := "runtime"
	switch {
	case errors.Is(err, expr.ErrCycleDetected):
		kind = "cycle"
	case expr.IsSyntaxError(err):
		kind = "syntax"
	}
	logger.ColumnEvaluationErrors.WithLabelValues(kind).Inc()

	logger.Warn("column evaluation failed",
		logger.String("column_id", col.ID),
		logger.String("column", col.Name),
		logger.String("expression", col.Expression),
		logger.String("kind", kind),
		logger.ErrorField(err),
	)
}

// Normalize maps evaluation results onto JSON-safe values: Undefined, NaN
// and infinities become nil.
func Normalize(v any) any {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
	default:
		if expr.IsUndefined(v) {
			return nil
		}
	}
	return v
}
