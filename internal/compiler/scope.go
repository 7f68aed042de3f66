package compiler

import (
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/interp"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/types"
)

// localScope implements spec §4.6 "Locals": typed-variable frames use
// slot numbers; untyped or mixed variables use name-keyed dictionaries.
// A variable is "typed" here when its final inferred type (from the
// function's converged parameter environment) is a single concrete
// kind; anything that ends up Any/Union/Top uses the name-keyed path.
type localScope struct {
	slotOf    map[string]int
	slotCount int
	dynamic   map[string]bool
}

func newLocalScope(fn *ir.FuncDecl, result *interp.FuncResult) *localScope {
	ls := &localScope{slotOf: make(map[string]int), dynamic: make(map[string]bool)}
	for _, p := range fn.Params {
		ls.classify(p.Name, result)
	}
	for _, name := range assignedNames(fn.Body) {
		ls.classify(name, result)
	}
	return ls
}

func (ls *localScope) classify(name string, result *interp.FuncResult) {
	if _, seen := ls.slotOf[name]; seen {
		return
	}
	if _, seen := ls.dynamic[name]; seen {
		return
	}
	t := types.Top
	if result.ParamEnv != nil {
		if got, ok := result.ParamEnv.Get(name); ok {
			t = got
		}
	}
	if _, ok := types.ToRuntimeTag(types.Widen(t)); ok {
		ls.slotOf[name] = ls.slotCount
		ls.slotCount++
		return
	}
	ls.dynamic[name] = true
}

// assignedNames collects every name ever assigned in the body, so the
// scope can pre-classify them before codegen (a name may be assigned
// before any use, e.g. in a loop).
func assignedNames(stmts []ir.Stmt) []string {
	seen := map[string]bool{}
	var out []string
	var walk func([]ir.Stmt)
	walk = func(ss []ir.Stmt) {
		for _, s := range ss {
			switch st := s.(type) {
			case *ir.Assign:
				if !seen[st.Name] {
					seen[st.Name] = true
					out = append(out, st.Name)
				}
			case *ir.If:
				walk(st.Then)
				walk(st.Else)
			case *ir.While:
				walk(st.Body)
			case *ir.ForIn:
				if !seen[st.Var] {
					seen[st.Var] = true
					out = append(out, st.Var)
				}
				walk(st.Body)
			case *ir.TryStmt:
				walk(st.Body)
				if st.HasCatch {
					if !seen[st.CatchVar] {
						seen[st.CatchVar] = true
						out = append(out, st.CatchVar)
					}
					walk(st.Catch)
				}
				if st.HasFinal {
					walk(st.Finally)
				}
			case *ir.Block:
				walk(st.Stmts)
			}
		}
	}
	walk(stmts)
	return out
}

// Slot returns (slotIndex, true) for a typed local, or (_, false) when
// name uses the name-keyed dynamic path.
func (ls *localScope) Slot(name string) (int, bool) {
	s, ok := ls.slotOf[name]
	return s, ok
}
