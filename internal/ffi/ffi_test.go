package ffi

import (
	"math"
	"strings"
	"testing"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/compiler"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/effects"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/methods"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/persist"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/types"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

// incrementEnvelopeJSON builds and persists a one-function module
// `f(x) = x + 1`, returning its serialized envelope (spec §6.2).
func incrementEnvelopeJSON(t *testing.T) []byte {
	t.Helper()
	c := compiler.NewCompiler(methods.NewTable(), value.NewStructHeap(), effects.NewRegistry(), nil)
	fn := &ir.FuncDecl{
		Name:   "f",
		Params: []ir.Param{{Name: "x"}},
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: "+", Left: &ir.Ident{Name: "x"}, Right: &ir.Literal{Value: value.F64(1)}}},
		},
	}
	c.CompileFunction(fn, []types.Type{types.NewNumeric(value.TagF64)})

	mod, err := persist.FromProgram(c.Program)
	if err != nil {
		t.Fatalf("FromProgram: %v", err)
	}
	env := persist.New("", "f-module", "", mod)
	data, err := persist.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return data
}

func TestRunIRJSONHappyPath(t *testing.T) {
	data := incrementEnvelopeJSON(t)
	got := RunIRJSON(data, 41, 0)
	if got != 42 {
		t.Fatalf("RunIRJSON(f, 41) = %v, want 42", got)
	}
}

func TestRunIRJSONMalformedInputReturnsSentinel(t *testing.T) {
	got := RunIRJSON([]byte("not json"), 0, 0)
	if got != ErrMalformedJSON {
		t.Fatalf("RunIRJSON(malformed) = %v, want %v", got, ErrMalformedJSON)
	}
}

func TestRunIRJSONEmptyModuleReturnsCompileFailedSentinel(t *testing.T) {
	mod := persist.Module{}
	env := persist.New("", "empty", "", mod)
	data, _ := persist.Marshal(env)

	got := RunIRJSON(data, 0, 0)
	if got != ErrCompileFailed {
		t.Fatalf("RunIRJSON(empty module) = %v, want %v", got, ErrCompileFailed)
	}
}

func TestCompileToIRValidatesAndCanonicalizes(t *testing.T) {
	data := incrementEnvelopeJSON(t)
	canon, err := CompileToIR(data)
	if err != nil {
		t.Fatalf("CompileToIR: %v", err)
	}
	if len(canon) == 0 {
		t.Fatalf("CompileToIR returned empty output")
	}

	// The canonicalized form must itself be runnable.
	got := RunIRJSON(canon, 10, 0)
	if got != 11 {
		t.Fatalf("RunIRJSON(canonicalized, 10) = %v, want 11", got)
	}
}

func TestCompileToIRRejectsMalformedJSON(t *testing.T) {
	if _, err := CompileToIR([]byte("{not json")); err == nil {
		t.Fatalf("expected an error for malformed JSON")
	}
}

func TestCompileAndRunHappyPath(t *testing.T) {
	data := incrementEnvelopeJSON(t)
	got := CompileAndRun(data, 0)
	if got != 1 {
		t.Fatalf("CompileAndRun(f) = %v, want 1 (runs with arg 0, f(0)=1)", got)
	}
}

func TestCompileAndRunWithOutputReportsResult(t *testing.T) {
	data := incrementEnvelopeJSON(t)
	out := CompileAndRunWithOutput(data, 0)
	if !strings.Contains(out, "=> 1") {
		t.Fatalf("CompileAndRunWithOutput = %q, want it to contain \"=> 1\"", out)
	}
}

func TestCompileAndRunWithOutputReportsMalformedInput(t *testing.T) {
	out := CompileAndRunWithOutput([]byte("garbage"), 0)
	if !strings.Contains(out, "=> error:") {
		t.Fatalf("CompileAndRunWithOutput(garbage) = %q, want an error marker", out)
	}
}

func TestResultToFloatHandlesEveryReturnedTagShape(t *testing.T) {
	cases := []struct {
		name string
		v    value.Value
		want float64
	}{
		{"float", value.F64(3.5), 3.5},
		{"int", value.I64(7), 7},
		{"true", value.Bool(true), 1},
		{"false", value.Bool(false), 0},
	}
	for _, c := range cases {
		if got := resultToFloat(c.v); got != c.want {
			t.Errorf("resultToFloat(%s) = %v, want %v", c.name, got, c.want)
		}
	}
	if got := resultToFloat(value.String("nope")); !math.IsNaN(got) {
		t.Errorf("resultToFloat(string) = %v, want NaN", got)
	}
}

func TestVMHandleLifecycleCancelAndReset(t *testing.T) {
	data := incrementEnvelopeJSON(t)
	prog, err := buildProgram(data, "", "", "")
	if err != nil {
		t.Fatalf("buildProgram: %v", err)
	}

	id, machine := NewVM(prog)
	defer ReleaseVM(id)

	RequestCancel(id)
	if !machine.CancelRequested() {
		t.Fatalf("expected RequestCancel to set the cancellation flag")
	}
	ResetCancel(id)
	if machine.CancelRequested() {
		t.Fatalf("expected ResetCancel to clear the cancellation flag")
	}
}

func TestRequestCancelOnUnknownHandleIsANoOp(t *testing.T) {
	RequestCancel("nonexistent-handle")
	ResetCancel("nonexistent-handle")
}
