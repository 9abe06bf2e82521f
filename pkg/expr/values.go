package expr

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

type undefinedType struct{}

// Undefined is the value of a member lookup that found nothing. It is
// distinct from nil, which is an explicit null.
var Undefined = undefinedType{}

func (undefinedType) String() string { return "undefined" }

// MarshalJSON renders Undefined as null
func (undefinedType) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// IsUndefined reports whether v is Undefined
func IsUndefined(v any) bool {
	_, ok := v.(undefinedType)
	return ok
}

// IsNullish reports whether v is nil or Undefined
func IsNullish(v any) bool {
	return v == nil || IsUndefined(v)
}

// Accessor exposes named fields to member access (obj.name)
type Accessor interface {
	Field(name string) (any, bool)
}

// AccessorFunc adapts a function to Accessor. It is used for bindings whose
// members are computed on demand.
type AccessorFunc func(name string) (any, bool)

// Field calls f(name)
func (f AccessorFunc) Field(name string) (any, bool) { return f(name) }

// Bindings maps top-level identifiers to values for one evaluation
type Bindings map[string]any

// isNumeric reports whether v is a Go numeric type
func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	}
	return false
}

// ToNumber converts a value to float64. Values with no numeric reading,
// including nil and Undefined, become NaN.
func ToNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// ToString converts a value to its string form
func ToString(v any) string {
	switch s := v.(type) {
	case nil:
		return "null"
	case undefinedType:
		return "undefined"
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return formatNumber(s)
	case float32:
		return formatNumber(float64(s))
	case json.Number:
		return s.String()
	}
	if isNumeric(v) {
		return formatNumber(ToNumber(v))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Truthy reports whether v counts as true in a boolean context
func Truthy(v any) bool {
	switch b := v.(type) {
	case nil, undefinedType:
		return false
	case bool:
		return b
	case string:
		return b != ""
	}
	if isNumeric(v) {
		f := ToNumber(v)
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

func add(left, right any) any {
	_, ls := left.(string)
	_, rs := right.(string)
	if ls || rs {
		return ToString(left) + ToString(right)
	}
	return ToNumber(left) + ToNumber(right)
}

func arithmetic(op string, left, right any) float64 {
	a, b := ToNumber(left), ToNumber(right)
	switch op {
	case "-":
		return a - b
	case "*":
		return a * b
	case "/":
		return a / b
	case "%":
		return math.Mod(a, b)
	case "^":
		return math.Pow(a, b)
	}
	return math.NaN()
}

// LooseEqual compares with type coercion: nil equals Undefined, and
// strings compare numerically against numbers and booleans.
func LooseEqual(left, right any) bool {
	ln, rn := IsNullish(left), IsNullish(right)
	if ln || rn {
		return ln && rn
	}

	ls, lIsStr := left.(string)
	rs, rIsStr := right.(string)
	if lIsStr && rIsStr {
		return ls == rs
	}

	if scalar(left) && scalar(right) {
		return ToNumber(left) == ToNumber(right)
	}

	return reflect.DeepEqual(left, right)
}

// StrictEqual compares without coercion
func StrictEqual(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	if IsUndefined(left) || IsUndefined(right) {
		return IsUndefined(left) && IsUndefined(right)
	}
	if isNumeric(left) && isNumeric(right) {
		return ToNumber(left) == ToNumber(right)
	}
	if reflect.TypeOf(left) != reflect.TypeOf(right) {
		return false
	}
	return reflect.DeepEqual(left, right)
}

// Compare applies a relational operator. Strings compare lexically when
// both sides are strings; anything else compares numerically and any NaN
// operand makes the comparison false.
func Compare(op string, left, right any) bool {
	ls, lIsStr := left.(string)
	rs, rIsStr := right.(string)
	if lIsStr && rIsStr {
		switch op {
		case "<":
			return ls < rs
		case "<=":
			return ls <= rs
		case ">":
			return ls > rs
		case ">=":
			return ls >= rs
		}
		return false
	}

	if IsNullish(left) || IsNullish(right) {
		return false
	}

	a, b := ToNumber(left), ToNumber(right)
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func scalar(v any) bool {
	switch v.(type) {
	case string, bool:
		return true
	}
	return isNumeric(v)
}
