package optimizer

import (
	"testing"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

func countStmts(body []ir.Stmt) int {
	n := len(body)
	for _, s := range body {
		switch st := s.(type) {
		case *ir.If:
			n += countStmts(st.Then) + countStmts(st.Else)
		case *ir.While:
			n += countStmts(st.Body)
		case *ir.ForIn:
			n += countStmts(st.Body)
		}
	}
	return n
}

// if x isa Int; y = x + 1; end; log(x) — the trailing log(x) reads the
// isa-narrowed subject itself, so it must be duplicated into the branch
// rather than left to run against the pre-branch union type.
func TestUnionSplitDuplicatesTrailingReferencingStatements(t *testing.T) {
	body := []ir.Stmt{
		&ir.If{
			Cond: &ir.IsaCheck{Subject: &ir.Ident{Name: "x"}, TypeRef: "Int"},
			Then: []ir.Stmt{&ir.Assign{Name: "y", Rhs: &ir.Binary{Op: "+", Left: &ir.Ident{Name: "x"}, Right: &ir.Literal{Value: value.I64(1)}}}},
			Else: []ir.Stmt{&ir.Assign{Name: "y", Rhs: &ir.Literal{Value: value.I64(0)}}},
		},
		&ir.ExprStmt{X: &ir.Call{Callee: &ir.Ident{Name: "log"}, Args: []ir.Expr{&ir.Ident{Name: "x"}}}},
	}

	out := UnionSplitPass{}.Run(body)
	if len(out) != 1 {
		t.Fatalf("expected the trailing statement folded into the If, got %d top-level statements", len(out))
	}
	ifs, ok := out[0].(*ir.If)
	if !ok {
		t.Fatalf("expected the sole remaining statement to be the If, got %T", out[0])
	}
	if len(ifs.Then) != 2 || len(ifs.Else) != 2 {
		t.Fatalf("expected both arms to carry the duplicated trailing statement, got Then=%d Else=%d", len(ifs.Then), len(ifs.Else))
	}
}

// A branch whose subject isn't referenced afterward is left untouched.
func TestUnionSplitLeavesUnrelatedTrailingStatementsAlone(t *testing.T) {
	body := []ir.Stmt{
		&ir.If{
			Cond: &ir.IsaCheck{Subject: &ir.Ident{Name: "x"}, TypeRef: "Int"},
			Then: []ir.Stmt{&ir.Assign{Name: "y", Rhs: &ir.Literal{Value: value.I64(1)}}},
			Else: []ir.Stmt{&ir.Assign{Name: "y", Rhs: &ir.Literal{Value: value.I64(0)}}},
		},
		&ir.ExprStmt{X: &ir.Call{Callee: &ir.Ident{Name: "log"}, Args: []ir.Expr{&ir.Literal{Value: value.String("done")}}}},
	}

	out := UnionSplitPass{}.Run(body)
	if len(out) != 2 {
		t.Fatalf("expected the trailing statement to stay top-level, got %d statements", len(out))
	}
}

func TestDCEDropsStatementsAfterReturn(t *testing.T) {
	body := []ir.Stmt{
		&ir.Return{Value: &ir.Literal{Value: value.I64(1)}},
		&ir.ExprStmt{X: &ir.Call{Callee: &ir.Ident{Name: "log"}, Args: nil}},
	}
	out := DCEPass{}.Run(body)
	if len(out) != 1 {
		t.Fatalf("expected unreachable statement after return to be dropped, got %d statements", len(out))
	}
	if _, ok := out[0].(*ir.Return); !ok {
		t.Fatalf("expected the surviving statement to be the Return, got %T", out[0])
	}
}

func TestDCEDropsUnreadPureAssignment(t *testing.T) {
	body := []ir.Stmt{
		&ir.Assign{Name: "unused", Rhs: &ir.Binary{Op: "+", Left: &ir.Literal{Value: value.I64(1)}, Right: &ir.Literal{Value: value.I64(2)}}},
		&ir.Return{Value: &ir.Literal{Value: value.I64(0)}},
	}
	out := DCEPass{}.Run(body)
	if countStmts(out) != 1 {
		t.Fatalf("expected the unread pure assignment to be dropped, got %d statements", countStmts(out))
	}
}

func TestDCEKeepsAssignmentWhoseRhsMayThrow(t *testing.T) {
	body := []ir.Stmt{
		&ir.Assign{Name: "unused", Rhs: &ir.Call{Callee: &ir.Ident{Name: "risky"}, Args: nil}},
		&ir.Return{Value: &ir.Literal{Value: value.I64(0)}},
	}
	out := DCEPass{}.Run(body)
	if countStmts(out) != 2 {
		t.Fatalf("expected the call-valued assignment to survive (may throw/have effects), got %d statements", countStmts(out))
	}
}

func TestDCEKeepsAssignmentReadLaterInScope(t *testing.T) {
	body := []ir.Stmt{
		&ir.Assign{Name: "y", Rhs: &ir.Literal{Value: value.I64(1)}},
		&ir.Return{Value: &ir.Ident{Name: "y"}},
	}
	out := DCEPass{}.Run(body)
	if countStmts(out) != 2 {
		t.Fatalf("expected the assignment read by the Return to survive, got %d statements", countStmts(out))
	}
}
