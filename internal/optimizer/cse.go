package optimizer

import (
	"fmt"
	"strings"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/effects"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
)

// CSEPass implements spec §4.8's common-subexpression elimination: walks
// a flat statement list, canonicalizes each CSE-eligible expression to a
// string key, and on a repeat occurrence within the same basic scope,
// hoists the first occurrence into a synthetic temp and replaces every
// occurrence with a reference to it. Invalidates stored keys that
// depend on a mutated variable; clears the table at every control-flow
// join (branch/loop body boundary).
type CSEPass struct{ Effects *effects.Registry }

func (CSEPass) Name() string { return "cse" }

func (p CSEPass) Run(body []ir.Stmt) []ir.Stmt {
	reg := p.Effects
	if reg == nil {
		reg = effects.NewRegistry()
	}
	c := &cseCtx{reg: reg, available: map[string]cseEntry{}}
	return c.rewriteBlock(body)
}

type cseEntry struct {
	temp string
	deps map[string]bool
}

type cseCtx struct {
	reg       *effects.Registry
	available map[string]cseEntry
	counts    map[string]int
	tempN     int
}

// rewriteBlock processes one basic scope: a pre-scan count of every
// eligible subexpression's canonical key, then a rewrite pass that
// hoists any key seen more than once.
func (c *cseCtx) rewriteBlock(stmts []ir.Stmt) []ir.Stmt {
	saved := c.counts
	c.counts = map[string]int{}
	for _, s := range stmts {
		c.countStmt(s)
	}
	out := make([]ir.Stmt, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, c.rewriteStmt(s)...)
	}
	c.counts = saved
	return out
}

func (c *cseCtx) countStmt(s ir.Stmt) {
	switch st := s.(type) {
	case *ir.ExprStmt:
		c.countExpr(st.X)
	case *ir.Assign:
		c.countExpr(st.Rhs)
	case *ir.Return:
		if st.Value != nil {
			c.countExpr(st.Value)
		}
	case *ir.RaiseStmt:
		if st.Value != nil {
			c.countExpr(st.Value)
		}
	}
	// If/While/ForIn/TryStmt bodies are separate basic scopes (spec
	// §4.8 "clears the table at control-flow joins"); their own
	// rewriteBlock call re-scans them independently, so they are not
	// folded into this scope's pre-scan.
}

func (c *cseCtx) countExpr(e ir.Expr) {
	key, ok := canonicalKey(e, c.reg)
	if ok {
		c.counts[key]++
	}
	switch x := e.(type) {
	case *ir.Binary:
		c.countExpr(x.Left)
		c.countExpr(x.Right)
	case *ir.Unary:
		c.countExpr(x.Operand)
	case *ir.Call:
		for _, a := range x.Args {
			c.countExpr(a)
		}
	}
}

func (c *cseCtx) rewriteStmt(s ir.Stmt) []ir.Stmt {
	var prelude []ir.Stmt
	switch st := s.(type) {
	case *ir.ExprStmt:
		st.X = c.rewriteExpr(st.X, &prelude)
		return append(prelude, st)
	case *ir.Assign:
		st.Rhs = c.rewriteExpr(st.Rhs, &prelude)
		c.invalidate(st.Name)
		return append(prelude, st)
	case *ir.Return:
		if st.Value != nil {
			st.Value = c.rewriteExpr(st.Value, &prelude)
		}
		return append(prelude, st)
	case *ir.RaiseStmt:
		if st.Value != nil {
			st.Value = c.rewriteExpr(st.Value, &prelude)
		}
		return append(prelude, st)
	case *ir.If:
		st.Cond = c.rewriteExpr(st.Cond, &prelude)
		st.Then = c.rewriteBlock(st.Then)
		st.Else = c.rewriteBlock(st.Else)
		c.clearAll()
		return append(prelude, st)
	case *ir.While:
		st.Cond = c.rewriteExpr(st.Cond, &prelude)
		st.Body = c.rewriteBlock(st.Body)
		c.clearAll()
		return append(prelude, st)
	case *ir.ForIn:
		st.Iterable = c.rewriteExpr(st.Iterable, &prelude)
		st.Body = c.rewriteBlock(st.Body)
		c.clearAll()
		return append(prelude, st)
	case *ir.TryStmt:
		st.Body = c.rewriteBlock(st.Body)
		st.Catch = c.rewriteBlock(st.Catch)
		st.Finally = c.rewriteBlock(st.Finally)
		c.clearAll()
		return append(prelude, st)
	default:
		return []ir.Stmt{s}
	}
}

// rewriteExpr hoists e (or one of its subexpressions) into prelude when
// its canonical key recurs more than once in the enclosing scope,
// returning the (possibly replaced) expression to substitute in place.
func (c *cseCtx) rewriteExpr(e ir.Expr, prelude *[]ir.Stmt) ir.Expr {
	switch x := e.(type) {
	case *ir.Binary:
		x.Left = c.rewriteExpr(x.Left, prelude)
		x.Right = c.rewriteExpr(x.Right, prelude)
	case *ir.Unary:
		x.Operand = c.rewriteExpr(x.Operand, prelude)
	case *ir.Call:
		for i, a := range x.Args {
			x.Args[i] = c.rewriteExpr(a, prelude)
		}
	default:
		return e
	}

	key, ok := canonicalKey(e, c.reg)
	if !ok {
		return e
	}
	if entry, seen := c.available[key]; seen {
		return &ir.Ident{Name: entry.temp}
	}
	if c.counts[key] <= 1 {
		return e
	}
	temp := fmt.Sprintf("%%cse%d", c.tempN)
	c.tempN++
	*prelude = append(*prelude, &ir.Assign{Name: temp, Rhs: e})
	c.available[key] = cseEntry{temp: temp, deps: freeVars(e)}
	return &ir.Ident{Name: temp}
}

// invalidate drops every stored entry whose expression referenced name,
// since a subsequent assignment to name may have changed its value
// (spec §4.8 "Invalidates stored expressions on any mutation of a
// referenced variable").
func (c *cseCtx) invalidate(name string) {
	for k, entry := range c.available {
		if entry.deps[name] {
			delete(c.available, k)
		}
	}
}

func (c *cseCtx) clearAll() {
	c.available = map[string]cseEntry{}
}

// canonicalKey produces a structural key for e when e is a pure,
// CSE-eligible expression form (arithmetic/logical binary or unary ops,
// or a call to a registered pure builtin); ok is false for anything
// else (literals/idents alone are never worth hoisting; field/index/
// array/dict forms are left untouched).
func canonicalKey(e ir.Expr, reg *effects.Registry) (string, bool) {
	switch x := e.(type) {
	case *ir.Binary:
		if !reg.LookupOrTop(x.Op).CSEEligible() {
			return "", false
		}
		lk, lok := canonicalKey(x.Left, reg)
		if !lok {
			lk = exprText(x.Left)
		}
		rk, rok := canonicalKey(x.Right, reg)
		if !rok {
			rk = exprText(x.Right)
		}
		return "(" + x.Op + " " + lk + " " + rk + ")", true
	case *ir.Unary:
		if !reg.LookupOrTop(x.Op).CSEEligible() {
			return "", false
		}
		ok1, ok := canonicalKey(x.Operand, reg)
		if !ok {
			ok1 = exprText(x.Operand)
		}
		return "(" + x.Op + " " + ok1 + ")", true
	case *ir.Call:
		name, simple := calleeIdent(x.Callee)
		if !simple || len(x.Keywords) > 0 || !reg.LookupOrTop(name).CSEEligible() {
			return "", false
		}
		parts := make([]string, len(x.Args))
		for i, a := range x.Args {
			if k, ok := canonicalKey(a, reg); ok {
				parts[i] = k
			} else {
				parts[i] = exprText(a)
			}
		}
		return "call:" + name + "(" + strings.Join(parts, ",") + ")", true
	default:
		return "", false
	}
}

func calleeIdent(e ir.Expr) (string, bool) {
	id, ok := e.(*ir.Ident)
	if !ok {
		return "", false
	}
	return id.Name, true
}

// exprText renders a leaf expression (literal/ident) into the canonical
// key for non-eligible operands nested inside an eligible one.
func exprText(e ir.Expr) string {
	switch x := e.(type) {
	case *ir.Ident:
		return "id:" + x.Name
	case *ir.Literal:
		return "lit:" + x.Value.String()
	default:
		return fmt.Sprintf("expr:%p", e)
	}
}

func freeVars(e ir.Expr) map[string]bool {
	out := map[string]bool{}
	var walk func(ir.Expr)
	walk = func(e ir.Expr) {
		switch x := e.(type) {
		case *ir.Ident:
			out[x.Name] = true
		case *ir.Binary:
			walk(x.Left)
			walk(x.Right)
		case *ir.Unary:
			walk(x.Operand)
		case *ir.Call:
			walk(x.Callee)
			for _, a := range x.Args {
				walk(a)
			}
		case *ir.FieldAccess:
			walk(x.Object)
		case *ir.Index:
			walk(x.Object)
			for _, i := range x.Indices {
				walk(i)
			}
		}
	}
	walk(e)
	return out
}
