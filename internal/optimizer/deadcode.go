package optimizer

import "github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"

// DCEPass implements spec §4.8's optional dead-code elimination on the
// tree IR: drops every statement after an unconditional terminator
// (Return/RaiseStmt) within the same basic scope, and drops an Assign
// whose target is never read again before being reassigned or the
// scope ends, when its right-hand side is side-effect-free (so
// removing it cannot change observable behavior).
//
// Grounded on the teacher's internal/optimizer deadcode.go (statement
// reachability pruning) and Hassandahiru-Compiler-in-Go's deadcode
// pass, adapted from their three-address/basic-block IR to this tree
// IR's nested statement lists.
type DCEPass struct{}

func (DCEPass) Name() string { return "dce" }

func (p DCEPass) Run(body []ir.Stmt) []ir.Stmt {
	reachable := pruneUnreachable(body)
	return pruneDeadAssigns(reachable)
}

// pruneUnreachable drops statements following an unconditional
// terminator in the same list, and recurses into nested bodies.
func pruneUnreachable(body []ir.Stmt) []ir.Stmt {
	out := make([]ir.Stmt, 0, len(body))
	for _, s := range body {
		switch st := s.(type) {
		case *ir.If:
			st.Then = pruneUnreachable(st.Then)
			st.Else = pruneUnreachable(st.Else)
		case *ir.While:
			st.Body = pruneUnreachable(st.Body)
		case *ir.ForIn:
			st.Body = pruneUnreachable(st.Body)
		case *ir.TryStmt:
			st.Body = pruneUnreachable(st.Body)
			st.Catch = pruneUnreachable(st.Catch)
			st.Finally = pruneUnreachable(st.Finally)
		}
		out = append(out, s)
		if isTerminator(s) {
			break
		}
	}
	return out
}

func isTerminator(s ir.Stmt) bool {
	switch s.(type) {
	case *ir.Return, *ir.RaiseStmt:
		return true
	default:
		return false
	}
}

// pruneDeadAssigns drops an Assign whose value is never read again in
// this scope and whose Rhs cannot throw or have a visible effect,
// working backwards so "never read again" accounts for later
// statements already decided dead.
func pruneDeadAssigns(body []ir.Stmt) []ir.Stmt {
	out := make([]ir.Stmt, 0, len(body))
	readAfter := map[string]bool{}
	for i := len(body) - 1; i >= 0; i-- {
		s := body[i]
		switch st := s.(type) {
		case *ir.Assign:
			if !readAfter[st.Name] && pureExpr(st.Rhs) {
				continue // dead store, drop it
			}
			delete(readAfter, st.Name)
			markReads(st.Rhs, readAfter)
		case *ir.ExprStmt:
			markReads(st.X, readAfter)
		case *ir.Return:
			markReads(st.Value, readAfter)
		case *ir.RaiseStmt:
			markReads(st.Value, readAfter)
		case *ir.If:
			markReads(st.Cond, readAfter)
			st.Then = pruneDeadAssigns(st.Then)
			st.Else = pruneDeadAssigns(st.Else)
			markBlockReads(st.Then, readAfter)
			markBlockReads(st.Else, readAfter)
		case *ir.While:
			markReads(st.Cond, readAfter)
			st.Body = pruneDeadAssigns(st.Body)
			markBlockReads(st.Body, readAfter)
		case *ir.ForIn:
			markReads(st.Iterable, readAfter)
			st.Body = pruneDeadAssigns(st.Body)
			markBlockReads(st.Body, readAfter)
		case *ir.TryStmt:
			st.Body = pruneDeadAssigns(st.Body)
			st.Catch = pruneDeadAssigns(st.Catch)
			st.Finally = pruneDeadAssigns(st.Finally)
			markBlockReads(st.Body, readAfter)
			markBlockReads(st.Catch, readAfter)
			markBlockReads(st.Finally, readAfter)
		}
		out = append([]ir.Stmt{s}, out...)
	}
	return out
}

// pureExpr reports whether e is safe to drop entirely when its result
// goes unused: no calls (which may throw or have effects), only
// literals/idents/arithmetic.
func pureExpr(e ir.Expr) bool {
	switch x := e.(type) {
	case *ir.Literal, *ir.Ident:
		return true
	case *ir.Binary:
		return pureExpr(x.Left) && pureExpr(x.Right)
	case *ir.Unary:
		return pureExpr(x.Operand)
	default:
		return false
	}
}

func markReads(e ir.Expr, into map[string]bool) {
	if e == nil {
		return
	}
	switch x := e.(type) {
	case *ir.Ident:
		into[x.Name] = true
	case *ir.Binary:
		markReads(x.Left, into)
		markReads(x.Right, into)
	case *ir.Unary:
		markReads(x.Operand, into)
	case *ir.Call:
		markReads(x.Callee, into)
		for _, a := range x.Args {
			markReads(a, into)
		}
	case *ir.IsaCheck:
		markReads(x.Subject, into)
	case *ir.FieldAccess:
		markReads(x.Object, into)
	case *ir.Index:
		markReads(x.Object, into)
		for _, i := range x.Indices {
			markReads(i, into)
		}
	case *ir.ArrayLit:
		for _, el := range x.Elements {
			markReads(el, into)
		}
	case *ir.Broadcast:
		for _, a := range x.Args {
			markReads(a, into)
		}
	}
}

// markBlockReads conservatively marks every name a nested block reads,
// since a branch/loop body may or may not execute: an Assign feeding it
// must be kept regardless of which arm runs.
func markBlockReads(stmts []ir.Stmt, into map[string]bool) {
	for _, s := range stmts {
		switch st := s.(type) {
		case *ir.ExprStmt:
			markReads(st.X, into)
		case *ir.Assign:
			markReads(st.Rhs, into)
		case *ir.Return:
			markReads(st.Value, into)
		case *ir.RaiseStmt:
			markReads(st.Value, into)
		case *ir.If:
			markReads(st.Cond, into)
			markBlockReads(st.Then, into)
			markBlockReads(st.Else, into)
		case *ir.While:
			markReads(st.Cond, into)
			markBlockReads(st.Body, into)
		case *ir.ForIn:
			markReads(st.Iterable, into)
			markBlockReads(st.Body, into)
		case *ir.TryStmt:
			markBlockReads(st.Body, into)
			markBlockReads(st.Catch, into)
			markBlockReads(st.Finally, into)
		}
	}
}
