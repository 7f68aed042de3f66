// Package methods implements the per-name method table and
// specificity-ranked multi-dispatch (spec §3.3, §4.4, C5), consulted
// by both the compiler (devirtualization) and the VM (dynamic dispatch).
//
// Grounded on spec §4.4 directly, generalized from the teacher's
// callCache map[string]*Function call-site caching idea in vm.go.
package methods

import (
	"sort"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/errors"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/types"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

// Param is one parameter slot of a method signature: a lattice type or
// a where-bound type variable.
type Param struct {
	Type       types.Type
	IsVarArgs  bool // tail type, matches any remaining positional args
	IsKeyword  bool
	Name       string
	HasDefault bool
	Default    ir.Expr
}

// Method is one entry of spec §3.3.
type Method struct {
	Name       string
	Params     []Param
	ReturnType types.Type // nil means unannotated

	// IRBody is the declaration the method came from and is kept after
	// compilation; ByteOffset then holds the compiled function's index in
	// the program's function table (the func_index OpCall takes).
	IRBody     *ir.FuncDecl
	ByteOffset int // -1 until the function has actually been compiled

	DeclOrder int // declaration order, the dispatch tie-breaker (M1)

	// specificity is computed lazily and cached on first use.
	specKey []int
}

// Table holds the ordered method lists for every function name.
type Table struct {
	methods map[string][]*Method
	nextDecl int

	// cache maps (name, argTagsKey) -> resolved *Method, invalidated
	// only by AddMethod (spec §4.4 Cache: "methods are monotonically
	// added; never removed after compilation ends").
	cache map[string]map[string]*Method
}

func NewTable() *Table {
	return &Table{
		methods: make(map[string][]*Method),
		cache:   make(map[string]map[string]*Method),
	}
}

// AddMethod registers m under name, in declaration order, and
// invalidates that name's call-site cache (spec §4.4 Cache).
func (t *Table) AddMethod(name string, m *Method) {
	m.DeclOrder = t.nextDecl
	t.nextDecl++
	m.specKey = specificityKey(m)
	t.methods[name] = append(t.methods[name], m)
	delete(t.cache, name)
}

func (t *Table) Methods(name string) []*Method { return t.methods[name] }

// specificityKey derives the ordering key of spec §4.4: more specific
// iff every parameter slot is a subtype of the other's corresponding
// slot, with var-args expanded to match arity for the comparison. We
// don't compute an absolute "key" comparable by <; MoreSpecific below
// does the pairwise comparison the spec actually requires.
func specificityKey(m *Method) []int {
	key := make([]int, len(m.Params))
	for i, p := range m.Params {
		key[i] = specificityRank(p.Type)
	}
	return key
}

// specificityRank gives a coarse total order among non-comparable
// signatures a stable tiebreak hint; MoreSpecific is authoritative.
func specificityRank(t types.Type) int {
	switch v := t.(type) {
	case types.Concrete:
		if v.Kind == types.KAny {
			return 0
		}
		return 2
	case types.Union:
		return 1
	default:
		return 1
	}
}

// MoreSpecific implements spec §4.4's partial order directly: a is more
// specific than b iff every parameter slot of a is a subtype of the
// corresponding slot of b, and at least one strictly so.
func MoreSpecific(a, b *Method) bool {
	expA := expandVarArgs(a, len(b.Params))
	expB := expandVarArgs(b, len(a.Params))
	n := len(expA)
	if len(expB) > n {
		n = len(expB)
	}
	strictlyOnce := false
	for i := 0; i < n; i++ {
		ta := paramTypeAt(expA, i)
		tb := paramTypeAt(expB, i)
		if !types.Subtype(ta, tb) {
			return false
		}
		if ta.String() != tb.String() {
			strictlyOnce = true
		}
	}
	return strictlyOnce
}

func expandVarArgs(m *Method, arity int) []Param {
	if len(m.Params) == 0 || !m.Params[len(m.Params)-1].IsVarArgs {
		return m.Params
	}
	tail := m.Params[len(m.Params)-1]
	out := append([]Param(nil), m.Params[:len(m.Params)-1]...)
	for len(out) < arity {
		out = append(out, Param{Type: tail.Type})
	}
	return out
}

func paramTypeAt(params []Param, i int) types.Type {
	if i < len(params) {
		return params[i].Type
	}
	return types.Any
}

// noMethodErr builds the MethodError reported when no method applies
// (spec §4.4 "Failure semantics").
func noMethodErr(name string) error {
	return errors.New(errors.MethodError, "no method matching %s for the given arguments", name)
}

// ResolveStatic looks up the most specific method whose signature is a
// supertype of argTypes (compiler-side devirtualization input, spec
// §4.4 Lookup contract "argument lattice types (from the compiler)").
// Returns ok=false only when no method applies, in which case the
// compiler falls back to a dynamic call; when several apply and none is
// strictly more specific, mostSpecific picks the earliest-declared one.
func (t *Table) ResolveStatic(name string, argTypes []types.Type) (*Method, bool) {
	candidates := t.applicable(name, argTypes)
	if len(candidates) == 0 {
		return nil, false
	}
	best := mostSpecific(candidates)
	return best, true
}

// ResolveDynamic looks up the most specific method matching the exact
// runtime-tag tuple (spec §4.4 Lookup contract, VM-side), using and
// populating the per-call-site cache keyed on that tuple.
func (t *Table) ResolveDynamic(name string, argTags []value.Tag) (*Method, error) {
	key := tagsKey(argTags)
	if byKey, ok := t.cache[name]; ok {
		if m, ok := byKey[key]; ok {
			return m, nil
		}
	}
	argTypes := make([]types.Type, len(argTags))
	for i, tag := range argTags {
		argTypes[i] = tagToConcrete(tag)
	}
	candidates := t.applicable(name, argTypes)
	if len(candidates) == 0 {
		return nil, noMethodErr(name)
	}
	best := mostSpecific(candidates)
	if t.cache[name] == nil {
		t.cache[name] = make(map[string]*Method)
	}
	t.cache[name][key] = best
	return best, nil
}

func tagsKey(tags []value.Tag) string {
	b := make([]byte, len(tags))
	for i, t := range tags {
		b[i] = byte(t)
	}
	return string(b)
}

func tagToConcrete(tag value.Tag) types.Type {
	if tag.IsNumeric() {
		return types.NewNumeric(tag)
	}
	switch tag {
	case value.TagBool:
		return types.Bool
	case value.TagChar:
		return types.CharT
	case value.TagString:
		return types.StringT
	case value.TagNothing:
		return types.NothingT
	default:
		return types.Any
	}
}

func (t *Table) applicable(name string, argTypes []types.Type) []*Method {
	var out []*Method
	for _, m := range t.methods[name] {
		if applies(m, argTypes) {
			out = append(out, m)
		}
	}
	return out
}

func applies(m *Method, argTypes []types.Type) bool {
	expanded := expandVarArgs(m, len(argTypes))
	if len(argTypes) < len(expanded) && !(len(m.Params) > 0 && m.Params[len(m.Params)-1].IsVarArgs) {
		// allow shorter arg lists only when trailing params have defaults
		min := 0
		for _, p := range m.Params {
			if !p.HasDefault && !p.IsVarArgs {
				min++
			}
		}
		if len(argTypes) < min {
			return false
		}
	}
	for i, at := range argTypes {
		pt := paramTypeAt(expanded, i)
		if !types.Subtype(at, pt) {
			return false
		}
	}
	return true
}

// mostSpecific applies spec §4.4's total order: ties broken by
// declaration order (Invariant M1).
func mostSpecific(candidates []*Method) *Method {
	sort.SliceStable(candidates, func(i, j int) bool {
		if MoreSpecific(candidates[i], candidates[j]) {
			return true
		}
		if MoreSpecific(candidates[j], candidates[i]) {
			return false
		}
		return candidates[i].DeclOrder < candidates[j].DeclOrder
	})
	return candidates[0]
}
