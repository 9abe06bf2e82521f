// Package expr compiles and evaluates the small arithmetic expression
// language used by column definitions.
//
// An expression is parsed once into a tree and can then be evaluated any
// number of times, concurrently, against different bindings.
package expr

import (
	"sort"
)

// Expression is a compiled, immutable expression
type Expression struct {
	source string
	root   node
}

// Parse compiles text without touching any cache
func Parse(text string) (*Expression, error) {
	root, err := parse(text)
	if err != nil {
		return nil, err
	}
	return &Expression{source: text, root: root}, nil
}

// Validate reports whether text compiles
func Validate(text string) error {
	_, err := parse(text)
	return err
}

// Source returns the text the expression was compiled from
func (e *Expression) Source() string {
	return e.source
}

// Evaluate runs the expression against bindings. Runtime failures are
// returned as *Error with KindRuntime.
func (e *Expression) Evaluate(bindings Bindings) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = runtimeError("%v", r)
		}
	}()
	return e.root.eval(bindings)
}

// Members returns the distinct property names read directly off the
// identifier root, e.g. Members("columns") on "columns.a + columns.b"
// returns [a b]. Names are sorted.
func (e *Expression) Members(root string) []string {
	seen := make(map[string]struct{})
	walk(e.root, func(n node) {
		m, ok := n.(*memberNode)
		if !ok {
			return
		}
		if id, ok := m.object.(*identifierNode); ok && id.name == root {
			seen[m.property] = struct{}{}
		}
	})

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
