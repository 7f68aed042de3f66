package value

import "math/rand"

// Tuple is an ordered, fixed-length, mixed-type sequence (spec §3.1).
type Tuple struct{ Elems []Value }

// NamedTuple adds field names to a Tuple, positionally aligned.
type NamedTuple struct {
	Names []string
	Elems []Value
}

func (nt *NamedTuple) Get(name string) (Value, bool) {
	for i, n := range nt.Names {
		if n == name {
			return nt.Elems[i], true
		}
	}
	return Value{}, false
}

// Dict preserves insertion order on iteration (spec §3.1), so it keeps
// a parallel key slice alongside the index map rather than relying on
// Go map iteration order.
type Dict struct {
	keys    []Value
	index   map[string]int // keyed by a canonical string form of the key
	vals    []Value
}

func NewDict() *Dict {
	return &Dict{index: make(map[string]int)}
}

func canonKey(k Value) string { return k.Tag.String() + ":" + k.String() }

func (d *Dict) Set(k, v Value) {
	ck := canonKey(k)
	if i, ok := d.index[ck]; ok {
		d.vals[i] = v
		return
	}
	d.index[ck] = len(d.keys)
	d.keys = append(d.keys, k)
	d.vals = append(d.vals, v)
}

func (d *Dict) Get(k Value) (Value, bool) {
	i, ok := d.index[canonKey(k)]
	if !ok {
		return Value{}, false
	}
	return d.vals[i], true
}

func (d *Dict) Delete(k Value) bool {
	ck := canonKey(k)
	i, ok := d.index[ck]
	if !ok {
		return false
	}
	delete(d.index, ck)
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.vals = append(d.vals[:i], d.vals[i+1:]...)
	for key, idx := range d.index {
		if idx > i {
			d.index[key] = idx - 1
		}
	}
	return true
}

func (d *Dict) Keys() []Value   { return d.keys }
func (d *Dict) Values() []Value { return d.vals }
func (d *Dict) Len() int        { return len(d.keys) }

// Set is an unordered collection of unique values (spec §3.1), stored
// as an index map plus an (arbitrary-order) backing slice.
type Set struct {
	index map[string]int
	elems []Value
}

func NewSet() *Set { return &Set{index: make(map[string]int)} }

func (s *Set) Add(v Value) bool {
	ck := canonKey(v)
	if _, ok := s.index[ck]; ok {
		return false
	}
	s.index[ck] = len(s.elems)
	s.elems = append(s.elems, v)
	return true
}

func (s *Set) Contains(v Value) bool {
	_, ok := s.index[canonKey(v)]
	return ok
}

func (s *Set) Elements() []Value { return s.elems }
func (s *Set) Len() int          { return len(s.elems) }

// Range is a start/stop/step triple (spec §3.1).
type Range struct {
	Start, Stop, Step Value
}

// ElementType returns the element tag for iteration purposes (spec
// §4.3's loop-variable typing rule operates over lattice types, but the
// runtime range needs the same notion at the value level).
func (r Range) ElementType() Tag { return r.Start.Tag }

// Function is a compiled, statically named function: an index into the
// bytecode compiler's function table, generalized from the teacher's
// vm.Function (Name/Arity/Chunk).
type Function struct {
	Name       string
	Index      int
	Arity      int
	ParamNames []string
}

// Closure pairs a Function with captured bindings as name->value pairs
// (spec §3.1). The bindings are copies taken when the closure is
// created; no shared cell is used for mutable locals.
type Closure struct {
	Fn      *Function
	Capture map[string]Value
}

// Composed represents `f ∘ g`-style function composition values.
type Composed struct {
	Outer, Inner Value
}

// NewComposed builds the `compose(outer, inner)` builtin's result
// (outer ∘ inner): applying it to x means outer(inner(x)).
func NewComposed(outer, inner Value) Value {
	return Ref(TagComposed, &Composed{Outer: outer, Inner: inner})
}

// RNGKind enumerates the small set of supported algorithm variants
// (spec §3.1).
type RNGKind uint8

const (
	RNGMersenneTwister RNGKind = iota
	RNGXoshiro256
	RNGPCG
)

// RNGHandle wraps a seeded generator; math/rand's source is reused for
// all three kinds at the API level (the spec only requires that a
// "small set of algorithm variants" be selectable, not a particular
// implementation), with the kind retained for introspection/typeof.
type RNGHandle struct {
	Kind RNGKind
	Src  *rand.Rand
}

func NewRNG(kind RNGKind, seed int64) *RNGHandle {
	return &RNGHandle{Kind: kind, Src: rand.New(rand.NewSource(seed))}
}

// Symbol is an interned name.
type Symbol struct{ Name string }

var internTable = map[string]*Symbol{}

func Intern(name string) *Symbol {
	if s, ok := internTable[name]; ok {
		return s
	}
	s := &Symbol{Name: name}
	internTable[name] = s
	return s
}
