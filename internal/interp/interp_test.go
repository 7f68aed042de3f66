package interp

import (
	"testing"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/methods"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/types"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

// g(x) = x isa Int ? x+1 : 0.0   (spec §8 scenario 3)
func TestUnionSplitGIsaInt(t *testing.T) {
	in := New(methods.NewTable(), nil)

	xIdent := &ir.Ident{Name: "x"}
	isaCheck := &ir.IsaCheck{Subject: xIdent, TypeRef: "Int"}
	thenExpr := &ir.Binary{Op: "+", Left: &ir.Ident{Name: "x"}, Right: &ir.Literal{Value: value.I64(1)}}
	elseExpr := &ir.Literal{Value: value.F64(0.0)}

	fn := &ir.FuncDecl{
		Name:   "g",
		Params: []ir.Param{{Name: "x"}},
		Body: []ir.Stmt{
			&ir.If{
				Cond: isaCheck,
				Then: []ir.Stmt{&ir.Return{Value: thenExpr}},
				Else: []ir.Stmt{&ir.Return{Value: elseExpr}},
			},
		},
	}

	argType := types.Union{Members: []types.Concrete{
		types.NewNumeric(value.TagI64), types.StringT,
	}}
	result := in.AnalyzeFunction(fn, []types.Type{argType})

	joined := types.Widen(result.ReturnType)
	if !types.Subtype(types.NewNumeric(value.TagI64), joined) {
		t.Fatalf("expected Int64 branch type to be part of the joined return, got %s", joined)
	}
	if !types.Subtype(types.NewNumeric(value.TagF64), joined) {
		t.Fatalf("expected Float64 branch type to be part of the joined return, got %s", joined)
	}
}

func TestLoopFixpointTerminates(t *testing.T) {
	in := New(methods.NewTable(), nil)
	// while true; x = x + 1; end  -- env for x must converge, not hang.
	fn := &ir.FuncDecl{
		Name:   "loopy",
		Params: []ir.Param{{Name: "x"}},
		Body: []ir.Stmt{
			&ir.While{
				Cond: &ir.Literal{Value: value.Bool(true)},
				Body: []ir.Stmt{
					&ir.Assign{Name: "x", Rhs: &ir.Binary{
						Op:   "+",
						Left: &ir.Ident{Name: "x"},
						Right: &ir.Literal{Value: value.I64(1)},
					}},
				},
			},
			&ir.Return{Value: &ir.Ident{Name: "x"}},
		},
	}
	result := in.AnalyzeFunction(fn, []types.Type{types.NewNumeric(value.TagI64)})
	if types.IsTop(result.ReturnType) {
		t.Fatalf("loop fixpoint should not degrade to Top for a simple numeric increment")
	}
}

func TestRecursiveCallMemoizesWithoutHanging(t *testing.T) {
	mt := methods.NewTable()
	in := New(mt, nil)

	// fact(n) = n <= 1 ? 1 : n * fact(n-1)
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
	mt.AddMethod("fact", &methods.Method{Name: "fact", Params: []methods.Param{{Type: types.NewNumeric(value.TagI64)}}, IRBody: factDecl})

	result := in.AnalyzeFunction(factDecl, []types.Type{types.NewNumeric(value.TagI64)})
	if types.IsBottom(result.ReturnType) {
		t.Fatalf("expected a converged (non-Bottom) return type for fact, got Bottom")
	}
}
