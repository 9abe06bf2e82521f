package rules

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mohamedkhairy/flip-finder/pkg/expr"
)

type operator func(args []any, data Data) (any, error)

var operators map[string]operator

func init() {
	operators = map[string]operator{
		"var": opVar,
		"==":  binary(func(a, b any) any { return expr.LooseEqual(a, b) }),
		"!=":  binary(func(a, b any) any { return !expr.LooseEqual(a, b) }),
		"===": binary(func(a, b any) any { return expr.StrictEqual(a, b) }),
		"!==": binary(func(a, b any) any { return !expr.StrictEqual(a, b) }),
		">":   binary(func(a, b any) any { return expr.Compare(">", a, b) }),
		">=":  binary(func(a, b any) any { return expr.Compare(">=", a, b) }),
		"<":   between("<"),
		"<=":  between("<="),
		"and": opAnd,
		"or":  opOr,
		"not": opNot,
		"!":   opNot,
		"!!":  opDoubleNot,
		"in":  opIn,
		"if":  opIf,
		"?:":  opIf,
		"+":   opAdd,
		"-":   opSubtract,
		"*":   opMultiply,
		"/":   binary(func(a, b any) any { return expr.ToNumber(a) / expr.ToNumber(b) }),
		"%":   binary(func(a, b any) any { return math.Mod(expr.ToNumber(a), expr.ToNumber(b)) }),
		"min": extremum(math.Min),
		"max": extremum(math.Max),
	}
}

// SupportedOperators returns every operator the interpreter understands
func SupportedOperators() []string {
	ops := make([]string, 0, len(operators))
	for op := range operators {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Apply interprets a rule tree against data. Operator nodes are objects
// with exactly one key; arrays evaluate element-wise; anything else is a
// literal.
func Apply(rule any, data Data) (any, error) {
	switch node := rule.(type) {
	case map[string]any:
		op, rawArgs, err := splitNode(node)
		if err != nil {
			return nil, err
		}
		fn, ok := operators[op]
		if !ok {
			return nil, fmt.Errorf("unsupported operator: %s", op)
		}
		return fn(argList(rawArgs), data)

	case []any:
		out := make([]any, len(node))
		for i, elem := range node {
			v, err := Apply(elem, data)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	default:
		return rule, nil
	}
}

// Truthy is boolean coercion for rule results. Empty arrays are false.
func Truthy(v any) bool {
	if arr, ok := v.([]any); ok {
		return len(arr) > 0
	}
	return expr.Truthy(v)
}

func splitNode(node map[string]any) (string, any, error) {
	if len(node) != 1 {
		return "", nil, fmt.Errorf("malformed rule node: expected exactly one operator, got %d keys", len(node))
	}
	for op, args := range node {
		return op, args, nil
	}
	return "", nil, nil
}

// argList applies the single-argument shorthand: {"!": x} means {"!": [x]}
func argList(raw any) []any {
	if arr, ok := raw.([]any); ok {
		return arr
	}
	return []any{raw}
}

func evalArgs(args []any, data Data) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		v, err := Apply(a, data)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func binary(fn func(a, b any) any) operator {
	return func(args []any, data Data) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("operator expects 2 operands, got %d", len(args))
		}
		vals, err := evalArgs(args, data)
		if err != nil {
			return nil, err
		}
		return fn(vals[0], vals[1]), nil
	}
}

// between supports the three-operand form {"<": [low, x, high]}
func between(op string) operator {
	return func(args []any, data Data) (any, error) {
		if len(args) != 2 && len(args) != 3 {
			return nil, fmt.Errorf("operator %s expects 2 or 3 operands, got %d", op, len(args))
		}
		vals, err := evalArgs(args, data)
		if err != nil {
			return nil, err
		}
		if !expr.Compare(op, vals[0], vals[1]) {
			return false, nil
		}
		if len(vals) == 3 {
			return expr.Compare(op, vals[1], vals[2]), nil
		}
		return true, nil
	}
}

func opVar(args []any, data Data) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("var expects a path")
	}
	vals, err := evalArgs(args, data)
	if err != nil {
		return nil, err
	}

	var fallback any
	if len(vals) > 1 {
		fallback = vals[1]
	}

	var path string
	switch p := vals[0].(type) {
	case nil:
		path = ""
	case string:
		path = p
	case float64:
		path = strconv.FormatFloat(p, 'f', -1, 64)
	case int:
		path = strconv.Itoa(p)
	default:
		return nil, fmt.Errorf("var path must be a string, got %T", vals[0])
	}

	v, ok := resolve(data, path)
	if !ok || expr.IsUndefined(v) {
		return fallback, nil
	}
	return v, nil
}

// resolve walks a dotted path such as item.low or columns.roi
func resolve(data Data, path string) (any, bool) {
	var cur any = data.root()
	if path == "" {
		return map[string]any{"item": data.Item, "columns": data.Columns}, true
	}

	for _, seg := range strings.Split(path, ".") {
		switch c := cur.(type) {
		case expr.Accessor:
			v, ok := c.Field(seg)
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]any:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(c) {
				return nil, false
			}
			cur = c[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func opAnd(args []any, data Data) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("and expects at least one operand")
	}
	var last any
	for _, a := range args {
		v, err := Apply(a, data)
		if err != nil {
			return nil, err
		}
		if !Truthy(v) {
			return v, nil
		}
		last = v
	}
	return last, nil
}

func opOr(args []any, data Data) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("or expects at least one operand")
	}
	var last any
	for _, a := range args {
		v, err := Apply(a, data)
		if err != nil {
			return nil, err
		}
		if Truthy(v) {
			return v, nil
		}
		last = v
	}
	return last, nil
}

func opNot(args []any, data Data) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("not expects 1 operand, got %d", len(args))
	}
	v, err := Apply(args[0], data)
	if err != nil {
		return nil, err
	}
	return !Truthy(v), nil
}

func opDoubleNot(args []any, data Data) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("!! expects 1 operand, got %d", len(args))
	}
	v, err := Apply(args[0], data)
	if err != nil {
		return nil, err
	}
	return Truthy(v), nil
}

func opIn(args []any, data Data) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("in expects 2 operands, got %d", len(args))
	}
	vals, err := evalArgs(args, data)
	if err != nil {
		return nil, err
	}
	switch haystack := vals[1].(type) {
	case string:
		return strings.Contains(haystack, expr.ToString(vals[0])), nil
	case []any:
		for _, v := range haystack {
			if expr.StrictEqual(v, vals[0]) {
				return true, nil
			}
		}
	}
	return false, nil
}

// opIf takes [cond, then, cond, then, ..., else]
func opIf(args []any, data Data) (any, error) {
	i := 0
	for ; i+1 < len(args); i += 2 {
		cond, err := Apply(args[i], data)
		if err != nil {
			return nil, err
		}
		if Truthy(cond) {
			return Apply(args[i+1], data)
		}
	}
	if i < len(args) {
		return Apply(args[i], data)
	}
	return nil, nil
}

func opAdd(args []any, data Data) (any, error) {
	vals, err := evalArgs(args, data)
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, v := range vals {
		sum += expr.ToNumber(v)
	}
	return sum, nil
}

func opMultiply(args []any, data Data) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("* expects at least one operand")
	}
	vals, err := evalArgs(args, data)
	if err != nil {
		return nil, err
	}
	product := 1.0
	for _, v := range vals {
		product *= expr.ToNumber(v)
	}
	return product, nil
}

func opSubtract(args []any, data Data) (any, error) {
	vals, err := evalArgs(args, data)
	if err != nil {
		return nil, err
	}
	switch len(vals) {
	case 1:
		return -expr.ToNumber(vals[0]), nil
	case 2:
		return expr.ToNumber(vals[0]) - expr.ToNumber(vals[1]), nil
	}
	return nil, fmt.Errorf("- expects 1 or 2 operands, got %d", len(vals))
}

func extremum(pick func(a, b float64) float64) operator {
	return func(args []any, data Data) (any, error) {
		vals, err := evalArgs(args, data)
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			return nil, nil
		}
		result := expr.ToNumber(vals[0])
		for _, v := range vals[1:] {
			result = pick(result, expr.ToNumber(v))
		}
		return result, nil
	}
}
