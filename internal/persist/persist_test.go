package persist

import (
	"testing"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/compiler"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/effects"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/methods"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/types"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/vm"
)

func compileDoubler(t *testing.T) *compiler.Program {
	t.Helper()
	c := compiler.NewCompiler(methods.NewTable(), value.NewStructHeap(), effects.NewRegistry(), nil)
	fn := &ir.FuncDecl{
		Name:   "double",
		Params: []ir.Param{{Name: "x"}},
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: "*", Left: &ir.Ident{Name: "x"}, Right: &ir.Literal{Value: value.I64(2)}}},
		},
	}
	c.CompileFunction(fn, []types.Type{types.NewNumeric(value.TagI64)})
	return c.Program
}

func TestEnvelopeRoundTripsThroughJSON(t *testing.T) {
	prog := compileDoubler(t)
	mod, err := FromProgram(prog)
	if err != nil {
		t.Fatalf("FromProgram: %v", err)
	}
	env := New("x86_64-linux", "doubler", "deadbeef", mod)

	data, err := Marshal(env)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := Unmarshal(data, "x86_64-linux", "doubler", "deadbeef")
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	restored, err := ToProgram(got.IR)
	if err != nil {
		t.Fatalf("ToProgram: %v", err)
	}
	restored.Methods = methods.NewTable()
	restored.Structs = value.NewStructHeap()
	restored.Effects = effects.NewRegistry()

	machine := vm.New(restored)
	result, err := machine.Run(0, []value.Value{value.I64(21)})
	if err != nil {
		t.Fatalf("running restored program: %v", err)
	}
	if result.AsInt() != 42 {
		t.Fatalf("double(21) = %d, want 42", result.AsInt())
	}
}

func TestUnmarshalRejectsTargetMismatch(t *testing.T) {
	prog := compileDoubler(t)
	mod, _ := FromProgram(prog)
	env := New("x86_64-linux", "doubler", "deadbeef", mod)
	data, _ := Marshal(env)

	if _, err := Unmarshal(data, "arm64-darwin", "doubler", "deadbeef"); err == nil {
		t.Fatalf("expected a target-mismatch error")
	}
}

func TestUnmarshalRejectsModuleNameMismatch(t *testing.T) {
	prog := compileDoubler(t)
	mod, _ := FromProgram(prog)
	env := New("x86_64-linux", "doubler", "deadbeef", mod)
	data, _ := Marshal(env)

	if _, err := Unmarshal(data, "x86_64-linux", "tripler", "deadbeef"); err == nil {
		t.Fatalf("expected a module-name-mismatch error")
	}
}

func TestUnmarshalRejectsSourceHashMismatch(t *testing.T) {
	prog := compileDoubler(t)
	mod, _ := FromProgram(prog)
	env := New("x86_64-linux", "doubler", "deadbeef", mod)
	data, _ := Marshal(env)

	if _, err := Unmarshal(data, "x86_64-linux", "doubler", "cafef00d"); err == nil {
		t.Fatalf("expected a source-hash-mismatch error")
	}
}

func TestUnmarshalRejectsFormatVersionMismatch(t *testing.T) {
	prog := compileDoubler(t)
	mod, _ := FromProgram(prog)
	env := New("x86_64-linux", "doubler", "deadbeef", mod)
	env.FormatVersion = FormatVersion + 1
	data, _ := Marshal(env)

	if _, err := Unmarshal(data, "", "", ""); err == nil {
		t.Fatalf("expected a format-version-mismatch error")
	}
}

func TestUnmarshalRejectsMalformedJSON(t *testing.T) {
	if _, err := Unmarshal([]byte("not json"), "", "", ""); err == nil {
		t.Fatalf("expected a malformed-JSON error")
	}
}
