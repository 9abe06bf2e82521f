package rules

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mohamedkhairy/flip-finder/internal/models"
)

// ValidateRule reports whether a rule is a non-nil structured value. It is
// a shape check only; inner nodes are checked by Lint or at evaluation time.
func ValidateRule(rule any) bool {
	if rule == nil {
		return false
	}
	v := reflect.ValueOf(rule)
	switch v.Kind() {
	case reflect.Map, reflect.Slice:
		return !v.IsNil()
	}
	return false
}

// ValidateFilter validates a filter's fields and the shape of its rule
func ValidateFilter(f *models.SavedFilter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if !ValidateRule(f.Rule) {
		return fmt.Errorf("filter %q: %w", f.ID, models.ErrInvalidRule)
	}
	return nil
}

// ValidateOperator validates that an operator is supported
func ValidateOperator(op string) error {
	if _, ok := operators[op]; !ok {
		return fmt.Errorf("unsupported operator: %s (supported: %s)", op, strings.Join(SupportedOperators(), ", "))
	}
	return nil
}

// Lint walks the whole rule tree and returns the first malformed node or
// unknown operator
func Lint(rule any) error {
	return lint(rule, "$")
}

func lint(node any, path string) error {
	switch n := node.(type) {
	case map[string]any:
		op, args, err := splitNode(n)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := ValidateOperator(op); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if op == "var" {
			return lintVar(argList(args), path)
		}
		for i, arg := range argList(args) {
			if err := lint(arg, fmt.Sprintf("%s.%s[%d]", path, op, i)); err != nil {
				return err
			}
		}
	case []any:
		for i, elem := range n {
			if err := lint(elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func lintVar(args []any, path string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s: var expects a path", path)
	}
	switch p := args[0].(type) {
	case string, float64, int, nil:
		return nil
	case map[string]any:
		return lint(p, path+".var[0]")
	default:
		return fmt.Errorf("%s: var path must be a string, got %T", path, args[0])
	}
}
