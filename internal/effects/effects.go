// Package effects implements the per-operation purity/throws/terminates
// flag set (spec §4.5, C6) consulted by constant folding and common
// subexpression elimination.
package effects

// Flags are the five per-operation facts of spec §4.5. They combine by
// AND across subexpressions (Combine).
type Flags struct {
	Consistent     bool // same output for same input
	EffectFree     bool // no visible side effects
	NoThrow        bool
	Terminates     bool
	NoUnsafeMemory bool
}

// Pure is the identity element for Combine: arithmetic and other total,
// side-effect-free, always-terminating built-ins start from this.
var Pure = Flags{Consistent: true, EffectFree: true, NoThrow: true, Terminates: true, NoUnsafeMemory: true}

// Combine ANDs two flag sets together (spec §4.5 "Flags combine by AND
// across subexpressions").
func Combine(a, b Flags) Flags {
	return Flags{
		Consistent:     a.Consistent && b.Consistent,
		EffectFree:     a.EffectFree && b.EffectFree,
		NoThrow:        a.NoThrow && b.NoThrow,
		Terminates:     a.Terminates && b.Terminates,
		NoUnsafeMemory: a.NoUnsafeMemory && b.NoUnsafeMemory,
	}
}

func CombineAll(fs ...Flags) Flags {
	out := Pure
	for _, f := range fs {
		out = Combine(out, f)
	}
	return out
}

// ConstantFoldable answers question 1 of spec §4.5: is this call (given
// its combined operand flags and that all arguments are Const) a
// candidate for compile-time constant folding? Requires consistent +
// effect_free + terminates + no_throw; caller supplies the
// all-arguments-const check separately.
func (f Flags) ConstantFoldable() bool {
	return f.Consistent && f.EffectFree && f.Terminates && f.NoThrow
}

// CSEEligible answers question 2: eligible for common-subexpression
// elimination? Requires effect_free + consistent.
func (f Flags) CSEEligible() bool {
	return f.EffectFree && f.Consistent
}

// Registry maps a built-in/operator name to its pre-declared flags
// (spec §4.5: "arithmetic: all pure; I/O: no effect_free; mutation: not
// effect_free; indexing: not no_throw because of bounds errors").
type Registry struct {
	table map[string]Flags
}

func NewRegistry() *Registry {
	r := &Registry{table: make(map[string]Flags)}
	r.registerDefaults()
	return r
}

func (r *Registry) Lookup(name string) (Flags, bool) {
	f, ok := r.table[name]
	return f, ok
}

// LookupOrTop returns the registered flags, or the conservative
// all-false set for an unregistered name (an unknown operation must
// never be assumed pure).
func (r *Registry) LookupOrTop(name string) Flags {
	if f, ok := r.table[name]; ok {
		return f
	}
	return Flags{}
}

func (r *Registry) Register(name string, f Flags) {
	r.table[name] = f
}

func (r *Registry) registerDefaults() {
	arithmetic := Pure
	for _, op := range []string{"+", "-", "*", "==", "!=", "<", ">", "<=", ">=", "!", "&&", "||"} {
		r.table[op] = arithmetic
	}
	// Division and modulo can throw (division by zero).
	for _, op := range []string{"/", "%"} {
		f := arithmetic
		f.NoThrow = false
		r.table[op] = f
	}
	// Indexing is pure but not no_throw (bounds errors, spec §4.5).
	r.table["index"] = Flags{Consistent: true, EffectFree: true, Terminates: true, NoUnsafeMemory: true}
	// Mutation (array/dict/struct field store) is not effect_free.
	mutating := Flags{Consistent: true, Terminates: true, NoThrow: true, NoUnsafeMemory: true}
	for _, op := range []string{"setindex", "setfield", "push", "pop"} {
		r.table[op] = mutating
	}
	// I/O is neither effect_free nor no_throw.
	io := Flags{Consistent: false, Terminates: true, NoUnsafeMemory: true}
	for _, op := range []string{"print", "println", "read", "write", "sleep"} {
		r.table[op] = io
	}
	r.table["typeof"] = arithmetic
	r.table["isa"] = arithmetic
}
