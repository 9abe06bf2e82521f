package expr

import (
	"math"
	"reflect"
	"unicode/utf8"
)

// node is a compiled expression tree node
type node interface {
	eval(b Bindings) (any, error)
}

type literalNode struct {
	value any
}

type identifierNode struct {
	name string
	pos  int
}

type memberNode struct {
	object   node
	property string
}

type indexNode struct {
	object node
	key    node
}

type callNode struct {
	name string
	args []node
	pos  int
}

type unaryNode struct {
	op      string
	operand node
}

type binaryNode struct {
	op          string
	left, right node
}

type logicalNode struct {
	op          string // "and" or "or"
	left, right node
}

type conditionalNode struct {
	test, consequent, alternate node
}

func (n *literalNode) eval(Bindings) (any, error) {
	return n.value, nil
}

func (n *identifierNode) eval(b Bindings) (any, error) {
	v, ok := b[n.name]
	if !ok {
		return nil, runtimeError("undefined variable: %s", n.name)
	}
	return v, nil
}

func (n *memberNode) eval(b Bindings) (any, error) {
	obj, err := n.object.eval(b)
	if err != nil {
		return nil, err
	}
	return property(obj, n.property)
}

func (n *indexNode) eval(b Bindings) (any, error) {
	obj, err := n.object.eval(b)
	if err != nil {
		return nil, err
	}
	key, err := n.key.eval(b)
	if err != nil {
		return nil, err
	}

	switch o := obj.(type) {
	case nil:
		return nil, runtimeError("cannot index null")
	case undefinedType:
		return nil, runtimeError("cannot index undefined")
	case string:
		i, ok := toIndex(key)
		if !ok || i >= utf8.RuneCountInString(o) {
			return Undefined, nil
		}
		return string([]rune(o)[i]), nil
	case Accessor, map[string]any, Bindings:
		return property(obj, ToString(key))
	}

	rv := reflect.ValueOf(obj)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		i, ok := toIndex(key)
		if !ok || i >= rv.Len() {
			return Undefined, nil
		}
		return rv.Index(i).Interface(), nil
	}
	return Undefined, nil
}

func (n *callNode) eval(b Bindings) (any, error) {
	fn, ok := builtins[n.name]
	if !ok {
		return nil, runtimeError("unknown function: %s", n.name)
	}
	args := make([]any, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(b)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return fn(args)
}

func (n *unaryNode) eval(b Bindings) (any, error) {
	v, err := n.operand.eval(b)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "-":
		return -ToNumber(v), nil
	case "+":
		return ToNumber(v), nil
	default: // "!" and "not"
		return !Truthy(v), nil
	}
}

func (n *binaryNode) eval(b Bindings) (any, error) {
	left, err := n.left.eval(b)
	if err != nil {
		return nil, err
	}
	right, err := n.right.eval(b)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "+":
		return add(left, right), nil
	case "-", "*", "/", "%", "^":
		return arithmetic(n.op, left, right), nil
	case "==":
		return LooseEqual(left, right), nil
	case "!=":
		return !LooseEqual(left, right), nil
	case "===":
		return StrictEqual(left, right), nil
	case "!==":
		return !StrictEqual(left, right), nil
	case "<", "<=", ">", ">=":
		return Compare(n.op, left, right), nil
	}
	return nil, runtimeError("unsupported operator: %s", n.op)
}

func (n *logicalNode) eval(b Bindings) (any, error) {
	left, err := n.left.eval(b)
	if err != nil {
		return nil, err
	}
	l := Truthy(left)
	if (n.op == "and" && !l) || (n.op == "or" && l) {
		return l, nil
	}
	right, err := n.right.eval(b)
	if err != nil {
		return nil, err
	}
	return Truthy(right), nil
}

func (n *conditionalNode) eval(b Bindings) (any, error) {
	test, err := n.test.eval(b)
	if err != nil {
		return nil, err
	}
	if Truthy(test) {
		return n.consequent.eval(b)
	}
	return n.alternate.eval(b)
}

func property(obj any, name string) (any, error) {
	switch o := obj.(type) {
	case nil:
		return nil, runtimeError("cannot read property %q of null", name)
	case undefinedType:
		return nil, runtimeError("cannot read property %q of undefined", name)
	case Accessor:
		if v, ok := o.Field(name); ok {
			return v, nil
		}
	case map[string]any:
		if v, ok := o[name]; ok {
			return v, nil
		}
	case Bindings:
		if v, ok := o[name]; ok {
			return v, nil
		}
	}
	return Undefined, nil
}

func toIndex(key any) (int, bool) {
	if !isNumeric(key) {
		return 0, false
	}
	f := ToNumber(key)
	if math.IsNaN(f) || f < 0 || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// walk visits n and every node below it in evaluation order
func walk(n node, fn func(node)) {
	if n == nil {
		return
	}
	fn(n)
	switch t := n.(type) {
	case *memberNode:
		walk(t.object, fn)
	case *indexNode:
		walk(t.object, fn)
		walk(t.key, fn)
	case *callNode:
		for _, a := range t.args {
			walk(a, fn)
		}
	case *unaryNode:
		walk(t.operand, fn)
	case *binaryNode:
		walk(t.left, fn)
		walk(t.right, fn)
	case *logicalNode:
		walk(t.left, fn)
		walk(t.right, fn)
	case *conditionalNode:
		walk(t.test, fn)
		walk(t.consequent, fn)
		walk(t.alternate, fn)
	}
}
