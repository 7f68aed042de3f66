package vm

import (
	"testing"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/compiler"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/effects"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/errors"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/methods"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/optimizer"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/types"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

func newTestCompiler() *compiler.Compiler {
	return compiler.NewCompiler(methods.NewTable(), value.NewStructHeap(), effects.NewRegistry(), nil)
}

// fact(n) = n <= 1 ? 1 : n * fact(n-1)   (spec §8 scenario 1)
func TestRunFactorialRecursion(t *testing.T) {
	c := newTestCompiler()
	factDecl := &ir.FuncDecl{
		Name:   "fact",
		Params: []ir.Param{{Name: "n"}},
		Body: []ir.Stmt{
			&ir.If{
				Cond: &ir.Binary{Op: "<=", Left: &ir.Ident{Name: "n"}, Right: &ir.Literal{Value: value.I64(1)}},
				Then: []ir.Stmt{&ir.Return{Value: &ir.Literal{Value: value.I64(1)}}},
				Else: []ir.Stmt{&ir.Return{Value: &ir.Binary{
					Op:   "*",
					Left: &ir.Ident{Name: "n"},
					Right: &ir.Call{
						Callee: &ir.Ident{Name: "fact"},
						Args:   []ir.Expr{&ir.Binary{Op: "-", Left: &ir.Ident{Name: "n"}, Right: &ir.Literal{Value: value.I64(1)}}},
					},
				}}},
			},
		},
	}
	idx := c.CompileFunction(factDecl, []types.Type{types.NewNumeric(value.TagI64)})

	machine := New(c.Program)
	result, err := machine.Run(idx, []value.Value{value.I64(10)})
	if err != nil {
		t.Fatalf("fact(10): unexpected error: %v", err)
	}
	if result.AsInt() != 3628800 {
		t.Fatalf("fact(10) = %d, want 3628800", result.AsInt())
	}
}

// f(x::Int) = x + 1 ; f(x::Float64) = x + 1.0 ; f(3) + f(3.0) (spec §8
// scenario 2): two applicable methods, devirtualized to two distinct
// compiled call sites rather than one dynamic dispatch.
func TestTypeSpecializedDispatchTwoCallSites(t *testing.T) {
	mt := methods.NewTable()
	c := compiler.NewCompiler(mt, value.NewStructHeap(), effects.NewRegistry(), nil)

	intDecl := &ir.FuncDecl{
		Name:   "f",
		Params: []ir.Param{{Name: "x", TypeAnnot: "Int"}},
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: "+", Left: &ir.Ident{Name: "x"}, Right: &ir.Literal{Value: value.I64(1)}}},
		},
	}
	c.CompileFunction(intDecl, []types.Type{types.NewNumeric(value.TagI64)})

	floatDecl := &ir.FuncDecl{
		Name:   "f",
		Params: []ir.Param{{Name: "x", TypeAnnot: "Float64"}},
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: "+", Left: &ir.Ident{Name: "x"}, Right: &ir.Literal{Value: value.F64(1.0)}}},
		},
	}
	c.CompileFunction(floatDecl, []types.Type{types.NewNumeric(value.TagF64)})

	callerDecl := &ir.FuncDecl{
		Name:   "caller",
		Params: nil,
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{
				Op:   "+",
				Left: &ir.Call{Callee: &ir.Ident{Name: "f"}, Args: []ir.Expr{&ir.Literal{Value: value.I64(3)}}},
				Right: &ir.Call{Callee: &ir.Ident{Name: "f"}, Args: []ir.Expr{&ir.Literal{Value: value.F64(3.0)}}},
			}},
		},
	}
	callerIdx := c.CompileFunction(callerDecl, nil)

	machine := New(c.Program)
	result, err := machine.Run(callerIdx, nil)
	if err != nil {
		t.Fatalf("f(3)+f(3.0): unexpected error: %v", err)
	}
	if !result.Tag.IsFloat() {
		t.Fatalf("f(3)+f(3.0) should widen to a float result, got tag %s", result.Tag)
	}
	if result.AsFloat() != 8.0 {
		t.Fatalf("f(3)+f(3.0) = %v, want 8.0 (3+1 -> 4, 3.0+1.0 -> 4.0, 4+4.0 widened to 8.0)", result.AsFloat())
	}
}

// g(x) = x isa Int ? x + 1 : 0.0 ; g(5) = 6, g("s") = 0.0 (spec §8
// scenario 3, union splitting).
func TestUnionSplitDispatchAtRuntime(t *testing.T) {
	gBody := func() []ir.Stmt {
		return []ir.Stmt{
			&ir.If{
				Cond: &ir.IsaCheck{Subject: &ir.Ident{Name: "x"}, TypeRef: "Int"},
				Then: []ir.Stmt{&ir.Return{Value: &ir.Binary{Op: "+", Left: &ir.Ident{Name: "x"}, Right: &ir.Literal{Value: value.I64(1)}}}},
				Else: []ir.Stmt{&ir.Return{Value: &ir.Literal{Value: value.F64(0.0)}}},
			},
		}
	}

	argType := types.Union{Members: []types.Concrete{
		types.NewNumeric(value.TagI64), types.StringT,
	}}

	c := newTestCompiler()
	gDecl := &ir.FuncDecl{Name: "g", Params: []ir.Param{{Name: "x"}}, Body: gBody()}
	idx := c.CompileFunction(gDecl, []types.Type{argType})
	machine := New(c.Program)

	r1, err := machine.Run(idx, []value.Value{value.I64(5)})
	if err != nil {
		t.Fatalf("g(5): unexpected error: %v", err)
	}
	if r1.AsInt() != 6 {
		t.Fatalf("g(5) = %d, want 6", r1.AsInt())
	}

	r2, err := machine.Run(idx, []value.Value{value.String("s")})
	if err != nil {
		t.Fatalf("g(\"s\"): unexpected error: %v", err)
	}
	if !r2.Tag.IsFloat() || r2.AsFloat() != 0.0 {
		t.Fatalf("g(\"s\") = %v, want 0.0", r2)
	}
}

// try 1/0 catch e; 42 end (spec §8 scenario 4): the handler catches the
// division-by-zero, 42 is the single value returned, and once Run has
// popped it the operand stack is empty (the unwind leaked nothing).
func TestTryCatchRecoversFromDivisionByZero(t *testing.T) {
	c := newTestCompiler()
	fn := &ir.FuncDecl{
		Name:   "safeDiv",
		Params: nil,
		Body: []ir.Stmt{
			&ir.TryStmt{
				Body: []ir.Stmt{
					&ir.Assign{Name: "result", Rhs: &ir.Binary{Op: "/", Left: &ir.Literal{Value: value.I64(1)}, Right: &ir.Literal{Value: value.I64(0)}}},
				},
				HasCatch: true,
				CatchVar: "e",
				Catch: []ir.Stmt{
					&ir.Assign{Name: "result", Rhs: &ir.Literal{Value: value.I64(42)}},
				},
			},
			&ir.Return{Value: &ir.Ident{Name: "result"}},
		},
	}
	idx := c.CompileFunction(fn, nil)
	machine := New(c.Program)

	result, err := machine.Run(idx, nil)
	if err != nil {
		t.Fatalf("safeDiv(): unexpected error: %v", err)
	}
	if result.AsInt() != 42 {
		t.Fatalf("safeDiv() = %d, want 42", result.AsInt())
	}
	if len(machine.stack) != 0 {
		t.Fatalf("expected the operand stack to be empty after return, got depth %d", len(machine.stack))
	}
}

// [1.0,2.0,3.0] .+ [10.0,20.0,30.0] = [11.0,22.0,33.0] (spec §8 scenario 5).
func TestArrayBroadcastAddition(t *testing.T) {
	c := newTestCompiler()
	fn := &ir.FuncDecl{
		Name:   "bcast",
		Params: nil,
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Broadcast{
				Op: "+",
				Args: []ir.Expr{
					&ir.ArrayLit{Elements: []ir.Expr{
						&ir.Literal{Value: value.F64(1.0)},
						&ir.Literal{Value: value.F64(2.0)},
						&ir.Literal{Value: value.F64(3.0)},
					}},
					&ir.ArrayLit{Elements: []ir.Expr{
						&ir.Literal{Value: value.F64(10.0)},
						&ir.Literal{Value: value.F64(20.0)},
						&ir.Literal{Value: value.F64(30.0)},
					}},
				},
			}},
		},
	}
	idx := c.CompileFunction(fn, nil)
	machine := New(c.Program)

	result, err := machine.Run(idx, nil)
	if err != nil {
		t.Fatalf("broadcast add: unexpected error: %v", err)
	}
	if result.Tag != value.TagArray {
		t.Fatalf("expected an Array result, got tag %s", result.Tag)
	}
	arr := result.Handle().(*value.Array)
	want := []float64{11.0, 22.0, 33.0}
	if arr.NumElements() != len(want) {
		t.Fatalf("expected %d elements, got %d", len(want), arr.NumElements())
	}
	for i, w := range want {
		el, err := arr.Get(i)
		if err != nil {
			t.Fatalf("arr.Get(%d): %v", i, err)
		}
		if el.AsFloat() != w {
			t.Fatalf("element %d = %v, want %v", i, el.AsFloat(), w)
		}
	}
}

// compose(f, g)(5) == f(g(5)): f = x -> x*2, g = x -> x+3, so the
// composed call should answer f(8) = 16.
func TestComposeAppliesOuterToInnerResult(t *testing.T) {
	c := newTestCompiler()

	double := &ir.FuncLit{
		Params: []ir.Param{{Name: "x"}},
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: "*", Left: &ir.Ident{Name: "x"}, Right: &ir.Literal{Value: value.I64(2)}}},
		},
	}
	addThree := &ir.FuncLit{
		Params: []ir.Param{{Name: "x"}},
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: "+", Left: &ir.Ident{Name: "x"}, Right: &ir.Literal{Value: value.I64(3)}}},
		},
	}
	composed := &ir.Call{
		Callee: &ir.Ident{Name: "compose"},
		Args:   []ir.Expr{double, addThree},
	}
	invoke := &ir.Call{
		Callee: composed,
		Args:   []ir.Expr{&ir.Literal{Value: value.I64(5)}},
	}

	fn := &ir.FuncDecl{Name: "run", Body: []ir.Stmt{&ir.Return{Value: invoke}}}
	idx := c.CompileFunction(fn, nil)
	machine := New(c.Program)

	result, err := machine.Run(idx, nil)
	if err != nil {
		t.Fatalf("compose(double, addThree)(5): unexpected error: %v", err)
	}
	if result.AsInt() != 16 {
		t.Fatalf("compose(double, addThree)(5) = %d, want 16", result.AsInt())
	}
}

// y = (a+b)*2; z = (a+b)/3 after CSE reduces to exactly one addition
// (spec §8 scenario 6). Verified at the optimizer-output level: running
// CSEPass over the hand-built body must leave a single `a+b` Binary node
// behind a hoisted temp, referenced by both y and z's right-hand sides.
func TestCSEReducesRepeatedAdditionToOne(t *testing.T) {
	sum := func() *ir.Binary {
		return &ir.Binary{Op: "+", Left: &ir.Ident{Name: "a"}, Right: &ir.Ident{Name: "b"}}
	}
	body := []ir.Stmt{
		&ir.Assign{Name: "y", Rhs: &ir.Binary{Op: "*", Left: sum(), Right: &ir.Literal{Value: value.I64(2)}}},
		&ir.Assign{Name: "z", Rhs: &ir.Binary{Op: "/", Left: sum(), Right: &ir.Literal{Value: value.I64(3)}}},
	}

	out := countAdds(body)
	if out != 2 {
		t.Fatalf("sanity check: expected 2 additions before CSE, got %d", out)
	}

	rewritten := optimizer.CSEPass{Effects: effects.NewRegistry()}.Run(body)
	if got := countAdds(rewritten); got != 1 {
		t.Fatalf("expected exactly one addition after CSE, got %d", got)
	}
}

func countAdds(body []ir.Stmt) int {
	n := 0
	var walkExpr func(ir.Expr)
	walkExpr = func(e ir.Expr) {
		switch x := e.(type) {
		case *ir.Binary:
			if x.Op == "+" {
				n++
			}
			walkExpr(x.Left)
			walkExpr(x.Right)
		case *ir.Unary:
			walkExpr(x.Operand)
		}
	}
	for _, s := range body {
		if a, ok := s.(*ir.Assign); ok {
			walkExpr(a.Rhs)
		}
	}
	return n
}

func TestIntegerDivisionRaisesCatchableError(t *testing.T) {
	c := newTestCompiler()
	fn := &ir.FuncDecl{
		Name: "boom",
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: "/", Left: &ir.Literal{Value: value.I64(1)}, Right: &ir.Literal{Value: value.I64(0)}}},
		},
	}
	idx := c.CompileFunction(fn, nil)
	machine := New(c.Program)

	_, err := machine.Run(idx, nil)
	if err == nil {
		t.Fatalf("boom(): expected a division-by-zero error, got nil")
	}
	if verr, ok := err.(*errors.VMError); !ok || !verr.Kind.Catchable() {
		t.Fatalf("boom(): expected a catchable error, got %v", err)
	}
}

func TestCancellationStopsExecution(t *testing.T) {
	c := newTestCompiler()
	fn := &ir.FuncDecl{
		Name:   "spin",
		Params: []ir.Param{{Name: "x"}},
		Body: []ir.Stmt{
			&ir.While{
				Cond: &ir.Literal{Value: value.Bool(true)},
				Body: []ir.Stmt{
					&ir.Assign{Name: "x", Rhs: &ir.Binary{Op: "+", Left: &ir.Ident{Name: "x"}, Right: &ir.Literal{Value: value.I64(1)}}},
				},
			},
			&ir.Return{Value: &ir.Ident{Name: "x"}},
		},
	}
	idx := c.CompileFunction(fn, []types.Type{types.NewNumeric(value.TagI64)})
	machine := New(c.Program)
	machine.RequestCancel()

	_, err := machine.Run(idx, []value.Value{value.I64(0)})
	if err == nil {
		t.Fatalf("spin(): expected a cancellation error, got nil")
	}
}
