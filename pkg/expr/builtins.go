package expr

import (
	"math"
	"reflect"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

// Function is a builtin callable from expressions. Arguments are evaluated
// eagerly before the call.
type Function func(args []any) (any, error)

var builtins = map[string]Function{
	"round": builtinRound,
	"floor": unaryMath("floor", math.Floor),
	"ceil":  unaryMath("ceil", math.Ceil),
	"abs":   unaryMath("abs", math.Abs),
	"sqrt":  unaryMath("sqrt", math.Sqrt),
	"min":   extremum("min", math.Min),
	"max":   extremum("max", math.Max),
	"len":   builtinLen,
	"if":    builtinIf,
	"sma":   builtinSMA,
	"ema":   builtinEMA,
}

// Functions returns the names of all builtin functions, sorted
func Functions() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func arity(name string, args []any, min, max int) error {
	if len(args) < min || len(args) > max {
		if min == max {
			return runtimeError("%s expects %d argument(s), got %d", name, min, len(args))
		}
		return runtimeError("%s expects %d to %d arguments, got %d", name, min, max, len(args))
	}
	return nil
}

// jsRound rounds half up, so round(-2.5) is -2
func jsRound(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return math.Floor(x + 0.5)
}

func builtinRound(args []any) (any, error) {
	if err := arity("round", args, 1, 2); err != nil {
		return nil, err
	}
	x := ToNumber(args[0])
	if len(args) == 1 {
		return jsRound(x), nil
	}
	scale := math.Pow(10, math.Trunc(ToNumber(args[1])))
	return jsRound(x*scale) / scale, nil
}

func unaryMath(name string, fn func(float64) float64) Function {
	return func(args []any) (any, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		return fn(ToNumber(args[0])), nil
	}
}

func extremum(name string, pick func(a, b float64) float64) Function {
	return func(args []any) (any, error) {
		values := args
		if len(args) == 1 {
			if seq, ok := sequence(args[0]); ok {
				values = seq
			}
		}
		if len(values) == 0 {
			return nil, runtimeError("%s expects at least one argument", name)
		}
		result := ToNumber(values[0])
		for _, v := range values[1:] {
			result = pick(result, ToNumber(v))
		}
		return result, nil
	}
}

func builtinLen(args []any) (any, error) {
	if err := arity("len", args, 1, 1); err != nil {
		return nil, err
	}
	if s, ok := args[0].(string); ok {
		return float64(utf8.RuneCountInString(s)), nil
	}
	if seq, ok := sequence(args[0]); ok {
		return float64(len(seq)), nil
	}
	return 0.0, nil
}

func builtinIf(args []any) (any, error) {
	if err := arity("if", args, 3, 3); err != nil {
		return nil, err
	}
	if Truthy(args[0]) {
		return args[1], nil
	}
	return args[2], nil
}

// sequence unpacks any slice or array into []any
func sequence(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// windowArgs validates the (series, period) pair shared by sma and ema. ok is
// false when the first argument is not a sequence or is shorter than period;
// both functions then yield 0.
func windowArgs(name string, args []any) (values []float64, period int, ok bool, err error) {
	if err := arity(name, args, 2, 2); err != nil {
		return nil, 0, false, err
	}
	p := ToNumber(args[1])
	if math.IsNaN(p) || p < 1 || p != math.Trunc(p) {
		return nil, 0, false, runtimeError("%s period must be a positive integer", name)
	}
	period = int(p)

	seq, isSeq := sequence(args[0])
	if !isSeq || len(seq) < period {
		return nil, period, false, nil
	}

	values = make([]float64, len(seq))
	for i, v := range seq {
		if !isNumeric(v) {
			return nil, period, false, runtimeError("%s series contains a non-numeric value", name)
		}
		values[i] = ToNumber(v)
	}
	return values, period, true, nil
}

// closeSeries loads newest-first samples into a techan series, oldest first.
// Candles are spaced two periods apart so AddCandle never rejects an overlap.
func closeSeries(newestFirst []float64) *techan.TimeSeries {
	series := techan.NewTimeSeries()
	start := time.Unix(0, 0).UTC()
	for i := len(newestFirst) - 1; i >= 0; i-- {
		step := time.Duration(len(newestFirst)-1-i) * 2 * time.Minute
		candle := techan.NewCandle(techan.NewTimePeriod(start.Add(step), time.Minute))
		candle.ClosePrice = big.NewDecimal(newestFirst[i])
		series.AddCandle(candle)
	}
	return series
}

// builtinSMA averages the first period values of a newest-first series
func builtinSMA(args []any) (any, error) {
	values, period, ok, err := windowArgs("sma", args)
	if err != nil || !ok {
		return 0.0, err
	}

	series := closeSeries(values[:period])
	sma := techan.NewSimpleMovingAverage(techan.NewClosePriceIndicator(series), period)
	return sma.Calculate(series.LastIndex()).Float(), nil
}

// builtinEMA is the exponential moving average over the whole newest-first
// series, seeded with the simple average of its oldest period values
func builtinEMA(args []any) (any, error) {
	values, period, ok, err := windowArgs("ema", args)
	if err != nil || !ok {
		return 0.0, err
	}

	series := closeSeries(values)
	ema := techan.NewEMAIndicator(techan.NewClosePriceIndicator(series), period)
	return ema.Calculate(series.LastIndex()).Float(), nil
}
