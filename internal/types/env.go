package types

import "sort"

// Env is the type environment contract of spec §4.2: a mapping from
// variable name to lattice type, with unmentioned variables implicitly
// Bottom (not yet defined).
type Env struct {
	vars map[string]Type
}

func NewEnv() *Env {
	return &Env{vars: make(map[string]Type)}
}

// Get returns the type bound to name, or Bottom (spec §3.5) and false
// when unmentioned.
func (e *Env) Get(name string) (Type, bool) {
	t, ok := e.vars[name]
	if !ok {
		return Bottom, false
	}
	return t, true
}

// Set replaces the binding for name unconditionally.
func (e *Env) Set(name string, t Type) {
	e.vars[name] = t
}

// Update joins ty with the existing binding (or sets it, if none
// existed) and reports whether the binding actually changed — the
// fixpoint-termination signal the abstract interpreter's loop handling
// depends on (spec §4.2/§4.3).
func (e *Env) Update(name string, ty Type) bool {
	old, existed := e.vars[name]
	if !existed {
		e.vars[name] = ty
		return true
	}
	joined := Join(old, ty)
	if joined.String() == old.String() {
		return false
	}
	e.vars[name] = joined
	return true
}

// Merge folds other into e by Update-ing every variable other defines
// (spec §4.2), the operation used at control-flow join points.
func (e *Env) Merge(other *Env) {
	for name, ty := range other.vars {
		e.Update(name, ty)
	}
}

// Snapshot returns a deep copy for save/restore around branches and
// loops (spec §4.2, §8 "After snapshot(); arbitrary mutations;
// restore(snap): env equals snap").
func (e *Env) Snapshot() *Env {
	cp := make(map[string]Type, len(e.vars))
	for k, v := range e.vars {
		cp[k] = v
	}
	return &Env{vars: cp}
}

// Restore replaces e's contents with snap's (a full reset, not a merge).
func (e *Env) Restore(snap *Env) {
	cp := make(map[string]Type, len(snap.vars))
	for k, v := range snap.vars {
		cp[k] = v
	}
	e.vars = cp
}

// Equal reports structural equality, used by the "restore undoes
// mutation" test property (spec §8).
func (e *Env) Equal(other *Env) bool {
	if len(e.vars) != len(other.vars) {
		return false
	}
	for k, v := range e.vars {
		ov, ok := other.vars[k]
		if !ok || ov.String() != v.String() {
			return false
		}
	}
	return true
}

// Names returns the bound variable names, for deterministic iteration
// in callers that need it (e.g. the compiler emitting slot allocations).
func (e *Env) Names() []string {
	out := make([]string, 0, len(e.vars))
	for k := range e.vars {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clone is an alias for Snapshot kept for call sites that read more
// naturally as "clone this env before mutating a copy".
func (e *Env) Clone() *Env { return e.Snapshot() }
