package optimizer

import "github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"

// UnionSplitPass implements spec §4.8's union splitting at the tree-IR
// level: when an `isa`-check or `nothing`-check branches on a
// union-typed variable, and the statements that follow the branch
// (within the same basic scope) still reference it, those trailing
// statements are duplicated into each arm. Each duplicate then runs
// under its own branch's narrowed type (the abstract interpreter's
// per-branch refinement, internal/interp/transfer.go's splitUnionMinus,
// already narrows Then/Else independently; this pass extends that
// narrowing past the join point instead of losing it back to the
// pre-branch union), letting the compiler (C7) specialize both copies
// instead of falling back to dynamic instructions once the branches
// rejoin.
//
// Grounded on the teacher's internal/optimizer deadcode.go (a
// statement-list-to-statement-list tree rewrite) and
// Hassandahiru-Compiler-in-Go's optimizer.go pass-application idiom,
// generalized from constant folding to this structural duplication.
type UnionSplitPass struct{}

func (UnionSplitPass) Name() string { return "union-split" }

func (p UnionSplitPass) Run(body []ir.Stmt) []ir.Stmt {
	out := make([]ir.Stmt, 0, len(body))
	for i := 0; i < len(body); i++ {
		s := body[i]
		if ifs, ok := s.(*ir.If); ok {
			ifs.Then = p.Run(ifs.Then)
			ifs.Else = p.Run(ifs.Else)
			if subject, ok := refinedSubject(ifs.Cond); ok && len(ifs.Else) > 0 {
				rest := body[i+1:]
				if len(rest) > 0 && referencesIdent(rest, subject) {
					ifs.Then = append(cloneStmts(ifs.Then), cloneStmts(rest)...)
					ifs.Else = append(cloneStmts(ifs.Else), cloneStmts(rest)...)
					// rest is now duplicated into both arms, so the
					// original copy after this If is dropped rather
					// than executed a third time.
					return append(out, ifs)
				}
			}
		}
		out = append(out, s)
	}
	return out
}

// refinedSubject answers the variable name a branch condition narrows,
// for the two forms spec §4.8 names: `x isa T` and a nothing-equality
// check (`x == nothing` / `x != nothing`).
func refinedSubject(cond ir.Expr) (string, bool) {
	switch c := cond.(type) {
	case *ir.IsaCheck:
		if id, ok := c.Subject.(*ir.Ident); ok {
			return id.Name, true
		}
	case *ir.Binary:
		if c.Op != "==" && c.Op != "!=" {
			return "", false
		}
		if id, ok := c.Left.(*ir.Ident); ok && isNothingLiteral(c.Right) {
			return id.Name, true
		}
		if id, ok := c.Right.(*ir.Ident); ok && isNothingLiteral(c.Left) {
			return id.Name, true
		}
	}
	return "", false
}

func isNothingLiteral(e ir.Expr) bool {
	lit, ok := e.(*ir.Literal)
	return ok && lit.Value.Tag.String() == "Nothing"
}

func referencesIdent(stmts []ir.Stmt, name string) bool {
	found := false
	var walkExpr func(ir.Expr)
	walkExpr = func(e ir.Expr) {
		if found || e == nil {
			return
		}
		switch x := e.(type) {
		case *ir.Ident:
			if x.Name == name {
				found = true
			}
		case *ir.Binary:
			walkExpr(x.Left)
			walkExpr(x.Right)
		case *ir.Unary:
			walkExpr(x.Operand)
		case *ir.Call:
			walkExpr(x.Callee)
			for _, a := range x.Args {
				walkExpr(a)
			}
		case *ir.IsaCheck:
			walkExpr(x.Subject)
		case *ir.FieldAccess:
			walkExpr(x.Object)
		case *ir.Index:
			walkExpr(x.Object)
			for _, i := range x.Indices {
				walkExpr(i)
			}
		case *ir.ArrayLit:
			for _, el := range x.Elements {
				walkExpr(el)
			}
		case *ir.Broadcast:
			for _, a := range x.Args {
				walkExpr(a)
			}
		}
	}
	var walkStmt func(ir.Stmt)
	walkStmt = func(s ir.Stmt) {
		if found || s == nil {
			return
		}
		switch st := s.(type) {
		case *ir.ExprStmt:
			walkExpr(st.X)
		case *ir.Assign:
			walkExpr(st.Rhs)
		case *ir.Return:
			walkExpr(st.Value)
		case *ir.RaiseStmt:
			walkExpr(st.Value)
		case *ir.If:
			walkExpr(st.Cond)
			for _, s2 := range st.Then {
				walkStmt(s2)
			}
			for _, s2 := range st.Else {
				walkStmt(s2)
			}
		case *ir.While:
			walkExpr(st.Cond)
			for _, s2 := range st.Body {
				walkStmt(s2)
			}
		case *ir.ForIn:
			walkExpr(st.Iterable)
			for _, s2 := range st.Body {
				walkStmt(s2)
			}
		}
	}
	for _, s := range stmts {
		walkStmt(s)
		if found {
			return true
		}
	}
	return false
}

func cloneStmts(stmts []ir.Stmt) []ir.Stmt {
	out := make([]ir.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = cloneStmt(s)
	}
	return out
}

func cloneStmt(s ir.Stmt) ir.Stmt {
	switch st := s.(type) {
	case *ir.ExprStmt:
		cp := *st
		return &cp
	case *ir.Assign:
		cp := *st
		return &cp
	case *ir.Return:
		cp := *st
		return &cp
	case *ir.RaiseStmt:
		cp := *st
		return &cp
	case *ir.If:
		cp := *st
		cp.Then = cloneStmts(st.Then)
		cp.Else = cloneStmts(st.Else)
		return &cp
	case *ir.While:
		cp := *st
		cp.Body = cloneStmts(st.Body)
		return &cp
	case *ir.ForIn:
		cp := *st
		cp.Body = cloneStmts(st.Body)
		return &cp
	case *ir.TryStmt:
		cp := *st
		cp.Body = cloneStmts(st.Body)
		cp.Catch = cloneStmts(st.Catch)
		cp.Finally = cloneStmts(st.Finally)
		return &cp
	default:
		return s
	}
}
