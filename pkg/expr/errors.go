package expr

import (
	"errors"
	"fmt"
)

// ErrorKind classifies expression errors
type ErrorKind string

const (
	// KindSyntax marks malformed expression text, reported at compile time
	KindSyntax ErrorKind = "syntax"
	// KindRuntime marks a failure while evaluating a compiled expression
	KindRuntime ErrorKind = "runtime"
)

// ErrCycleDetected is returned when nested column references go deeper than
// the evaluator allows, which in practice means a reference cycle
var ErrCycleDetected = &Error{Kind: KindRuntime, Message: "column reference depth exceeded", Pos: -1}

// Error represents an expression error
type Error struct {
	Kind    ErrorKind
	Message string
	Pos     int // byte offset into the source, -1 when not applicable
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s error at position %d: %s", e.Kind, e.Pos, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func syntaxError(pos int, format string, args ...any) error {
	return &Error{Kind: KindSyntax, Message: fmt.Sprintf(format, args...), Pos: pos}
}

func runtimeError(format string, args ...any) error {
	return &Error{Kind: KindRuntime, Message: fmt.Sprintf(format, args...), Pos: -1}
}

// IsSyntaxError reports whether err is a compile-time expression error
func IsSyntaxError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindSyntax
}

// IsRuntimeError reports whether err is an evaluation-time expression error
func IsRuntimeError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindRuntime
}
