package errors

import (
	"strings"
	"testing"
)

func TestCatchableExcludesCancellationAndInternal(t *testing.T) {
	if Cancellation.Catchable() {
		t.Fatalf("Cancellation must never be catchable")
	}
	if InternalInvariant.Catchable() {
		t.Fatalf("InternalInvariant must never be catchable")
	}
	if !TypeError.Catchable() || !DivisionByZero.Catchable() || !UserRaised.Catchable() {
		t.Fatalf("ordinary error kinds should be catchable")
	}
}

func TestErrorStringIncludesKindMessageAndSpan(t *testing.T) {
	err := New(TypeError, "%s is not defined for %s and %s", "+", "Int", "String")
	err.WithSpan(Span{File: "main.jl", Line: 3, Column: 5})
	got := err.Error()
	want := "TypeError: + is not defined for Int and String (at main.jl:3:5)"
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestErrorStringIncludesCallStackFrames(t *testing.T) {
	err := New(UserRaised, "boom")
	err.PushFrame(StackFrame{Function: "f", Span: Span{File: "a.jl", Line: 1, Column: 1}})
	err.PushFrame(StackFrame{Function: "g", Span: Span{File: "a.jl", Line: 2, Column: 1}})
	got := err.Error()
	if got == "" {
		t.Fatalf("expected a non-empty error string")
	}
	for _, want := range []string{"at f (a.jl:1:1)", "at g (a.jl:2:1)"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Error() = %q, want it to contain %q", got, want)
		}
	}
}

func TestNewInternalCapturesGoStack(t *testing.T) {
	err := NewInternal("instruction pointer ran off the end of %s", "f")
	if err.Kind != InternalInvariant {
		t.Fatalf("NewInternal should produce an InternalInvariant error, got %s", err.Kind)
	}
	if err.GoStack() == "" {
		t.Fatalf("expected NewInternal to capture a non-empty Go stack trace")
	}
}

func TestNewDoesNotCaptureGoStack(t *testing.T) {
	err := New(TypeError, "boom")
	if err.GoStack() != "" {
		t.Fatalf("expected New (not NewInternal) to capture no Go stack trace")
	}
}

func TestSpanStringIsEmptyWithoutFile(t *testing.T) {
	var s Span
	if s.String() != "" {
		t.Fatalf("Span{}.String() = %q, want empty", s.String())
	}
}

