// Package errors implements the VM's error taxonomy (spec §7): a closed
// set of kinds, a source span, and an optional call stack, plus Go-level
// stack wrapping for internal-invariant (compiler/VM bug) errors.
package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// ErrorKind is one of the taxonomy entries of spec §7.
type ErrorKind string

const (
	SyntaxError            ErrorKind = "SyntaxError"
	UnsupportedFeature     ErrorKind = "UnsupportedFeatureError"
	TypeError              ErrorKind = "TypeError"
	MethodError            ErrorKind = "MethodError"
	UndefinedVariableError ErrorKind = "UndefinedVariableError"
	IndexOutOfBounds       ErrorKind = "IndexOutOfBoundsError"
	DivisionByZero         ErrorKind = "DivisionByZeroError"
	InexactConversion      ErrorKind = "InexactConversionError"
	Cancellation           ErrorKind = "CancellationError"
	InternalInvariant      ErrorKind = "InternalInvariantError"

	// UserRaised is an arbitrary value raised via `raise`/`throw` rather
	// than one of the VM's own built-in failure modes; still catchable.
	UserRaised ErrorKind = "Exception"
)

// Catchable reports whether `try` may intercept this kind. Cancellation
// and internal-invariant errors are never catchable (spec §7).
func (k ErrorKind) Catchable() bool {
	return k != Cancellation && k != InternalInvariant
}

// Span pins an error to a source location, when the originating
// instruction had one recorded (spec §7 "User-visible behavior").
type Span struct {
	File   string
	Line   int
	Column int
}

func (s Span) String() string {
	if s.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// StackFrame is one call-stack entry captured at raise time, generalized
// from the teacher's errors.StackFrame.
type StackFrame struct {
	Function string
	Span     Span
}

// VMError is the concrete error value threaded through compile and
// execution, generalized from the teacher's SentraError.
type VMError struct {
	Kind      ErrorKind
	Message   string
	Span      Span
	CallStack []StackFrame
	// goCause carries the pkg/errors-wrapped Go-level stack trace for
	// InternalInvariant errors; nil for ordinary user-facing errors.
	goCause error
}

func New(kind ErrorKind, format string, args ...interface{}) *VMError {
	return &VMError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewInternal wraps an internal-invariant error with a Go stack trace via
// pkg/errors, distinct from the source-level call stack above: this is a
// compiler/VM bug, never caused by user code (spec §7).
func NewInternal(format string, args ...interface{}) *VMError {
	msg := fmt.Sprintf(format, args...)
	return &VMError{
		Kind:    InternalInvariant,
		Message: msg,
		goCause: pkgerrors.New(msg),
	}
}

func (e *VMError) WithSpan(s Span) *VMError {
	e.Span = s
	return e
}

func (e *VMError) PushFrame(f StackFrame) *VMError {
	e.CallStack = append(e.CallStack, f)
	return e
}

func (e *VMError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", e.Kind, e.Message)
	if span := e.Span.String(); span != "" {
		fmt.Fprintf(&sb, " (at %s)", span)
	}
	for _, f := range e.CallStack {
		fmt.Fprintf(&sb, "\n  at %s (%s)", f.Function, f.Span)
	}
	return sb.String()
}

// GoStack returns the pkg/errors-captured Go stack trace for internal
// errors, or the empty string when none was captured.
func (e *VMError) GoStack() string {
	if e.goCause == nil {
		return ""
	}
	return fmt.Sprintf("%+v", e.goCause)
}

// Unwrap lets callers use errors.As/errors.Is against goCause.
func (e *VMError) Unwrap() error { return e.goCause }
