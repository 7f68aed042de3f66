package interp

import (
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/types"
)

// walkStmts implements spec §4.3 step 2: walk statements in order,
// threading env through assignment/conditional/loop/return handling.
func (fs *funcState) walkStmts(stmts []ir.Stmt, env *types.Env) {
	for _, s := range stmts {
		fs.walkStmt(s, env)
	}
}

func (fs *funcState) walkStmt(s ir.Stmt, env *types.Env) {
	switch st := s.(type) {
	case *ir.ExprStmt:
		fs.eval(st.X, env)

	case *ir.Assign:
		t := fs.eval(st.Rhs, env)
		env.Update(st.Name, t)

	case *ir.If:
		condType := fs.eval(st.Cond, env)
		pre := env.Snapshot()

		thenEnv := env
		elseEnv := pre.Snapshot()
		if cond, ok := condType.(types.Conditional); ok {
			thenEnv.Set(cond.Var, cond.TrueType)
			elseEnv.Set(cond.Var, cond.FalseType)
		}
		fs.walkStmts(st.Then, thenEnv)
		postThen := thenEnv.Snapshot()
		fs.walkStmts(st.Else, elseEnv)
		postElse := elseEnv

		merged := pre.Snapshot()
		merged.Merge(postThen)
		merged.Merge(postElse)
		env.Restore(merged)

	case *ir.While:
		fs.fixpointLoop(env, func(e *types.Env) {
			fs.eval(st.Cond, e)
			fs.walkStmts(st.Body, e)
		})

	case *ir.ForIn:
		iterType := fs.eval(st.Iterable, env)
		elemType := loopElementType(iterType)
		fs.fixpointLoop(env, func(e *types.Env) {
			e.Update(st.Var, elemType)
			fs.walkStmts(st.Body, e)
		})

	case *ir.Return:
		var t types.Type = types.NothingT
		if st.Value != nil {
			t = fs.eval(st.Value, env)
		}
		fs.retType = types.Join(fs.retType, t)

	case *ir.TryStmt:
		fs.walkStmts(st.Body, env)
		if st.HasCatch {
			catchEnv := env.Snapshot()
			catchEnv.Update(st.CatchVar, types.Any)
			fs.walkStmts(st.Catch, catchEnv)
			env.Merge(catchEnv)
		}
		if st.HasFinal {
			fs.walkStmts(st.Finally, env)
		}

	case *ir.RaiseStmt:
		if st.Value != nil {
			fs.eval(st.Value, env)
		}

	case *ir.Block:
		fs.walkStmts(st.Stmts, env)

	case *ir.FuncDecl, *ir.StructDecl:
		// Nested declarations don't participate in this function's own
		// dataflow; the compiler registers them separately.
	}
}

// fixpointLoop implements spec §4.3 step 2 "Loop": snapshot env, walk
// body, merge body-post into pre-env, repeat until no change or the
// bounded iteration count is hit, then widen (Invariant L2).
func (fs *funcState) fixpointLoop(env *types.Env, body func(*types.Env)) {
	pre := env.Snapshot()
	changed := true
	for iter := 0; changed && iter < maxLoopIterations; iter++ {
		work := pre.Snapshot()
		body(work)
		changed = false
		for _, name := range work.Names() {
			t, _ := work.Get(name)
			if pre.Update(name, t) {
				changed = true
			}
		}
	}
	// Widen every variable touched by the loop before continuing past
	// it, guaranteeing the lattice height bound of Invariant L2.
	for _, name := range pre.Names() {
		t, _ := pre.Get(name)
		pre.Set(name, types.Widen(t))
	}
	env.Restore(pre)
}

// loopElementType implements spec §4.3's "Loop-variable typing" rule.
func loopElementType(iterType types.Type) types.Type {
	c, ok := iterType.(types.Concrete)
	if !ok {
		if u, ok := iterType.(types.Union); ok {
			var joined types.Type = types.Bottom
			for _, m := range u.Members {
				joined = types.Join(joined, loopElementType(m))
			}
			return joined
		}
		return types.Top
	}
	switch c.Kind {
	case "Array", "Range", "Generator":
		if c.Elem != nil {
			return c.Elem
		}
		return types.Top
	case "Tuple":
		var joined types.Type = types.Bottom
		for _, p := range c.Params {
			joined = types.Join(joined, p)
		}
		return joined
	case "Dict":
		return types.TupleOf(c.KeyElem, c.ValElem)
	case types.KString:
		return types.CharT
	default:
		return types.Top
	}
}
