package value

import "github.com/AtelierArith/julia-vm-oss-sub008/internal/errors"

// ElementKind names the storage discriminant of an Array record (spec
// §3.2): either a homogeneous scalar vector, an interleaved-complex pair
// vector, an inline array-of-structs vector for isbits element structs,
// or a heterogeneous value vector as the fallback.
type ElementKind uint8

const (
	ElemF64 ElementKind = iota
	ElemF32
	ElemInt
	ElemBool
	ElemChar
	ElemString
	ElemStructIndex  // indices into the struct heap
	ElemComplex      // interleaved real/imag pairs, ElementsPerEntry=2
	ElemInlineStruct // array-of-structs, isbits fields inlined
	ElemInlineTuple  // array-of-structs for homogeneous tuples
	ElemAny          // heterogeneous Value vector
)

// Array is the mutable, shared-ownership backing record behind an Array
// handle (spec §3.2). Column-major linear indexing over Shape.
type Array struct {
	Kind  ElementKind
	Shape []int

	// ElementsPerEntry is 2 for ElemComplex, the field count for
	// ElemInlineStruct/ElemInlineTuple, 1 otherwise (spec Invariant A1).
	ElementsPerEntry int

	floats  []float64
	floats32 []float32
	ints    []int64
	bools   []bool
	chars   []rune
	strings []string
	anys    []Value

	// StructID names the struct definition for ElemStructIndex/
	// ElemInlineStruct storage; TupleTypes for ElemInlineTuple.
	StructID   int
	TupleTypes []Tag
}

// NewArray allocates a zero-length array of the given kind and shape.
func NewArray(kind ElementKind, shape []int) *Array {
	a := &Array{Kind: kind, Shape: append([]int(nil), shape...), ElementsPerEntry: 1}
	if kind == ElemComplex {
		a.ElementsPerEntry = 2
	}
	n := logicalLen(shape) * a.ElementsPerEntry
	switch kind {
	case ElemF64, ElemComplex:
		a.floats = make([]float64, n)
	case ElemF32:
		a.floats32 = make([]float32, n)
	case ElemInt, ElemStructIndex:
		a.ints = make([]int64, n)
	case ElemBool:
		a.bools = make([]bool, n)
	case ElemChar:
		a.chars = make([]rune, n)
	case ElemString:
		a.strings = make([]string, n)
	default:
		a.anys = make([]Value, n)
	}
	return a
}

func logicalLen(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// NumElements returns the logical element count, satisfying Invariant A1:
// product(Shape) == storageLen / ElementsPerEntry.
func (a *Array) NumElements() int { return logicalLen(a.Shape) }

// LinearIndex computes the column-major linear index for multi-dim idx.
func (a *Array) LinearIndex(idx []int) (int, error) {
	if len(idx) != len(a.Shape) {
		return 0, errors.New(errors.TypeError, "wrong number of indices: want %d got %d", len(a.Shape), len(idx))
	}
	lin, stride := 0, 1
	for d := 0; d < len(a.Shape); d++ {
		if idx[d] < 0 || idx[d] >= a.Shape[d] {
			return 0, errors.New(errors.IndexOutOfBounds, "index %d out of bounds for dimension %d (size %d)", idx[d], d, a.Shape[d])
		}
		lin += idx[d] * stride
		stride *= a.Shape[d]
	}
	return lin, nil
}

func (a *Array) Get(lin int) (Value, error) {
	base := lin * a.ElementsPerEntry
	switch a.Kind {
	case ElemF64:
		return F64(a.floats[base]), nil
	case ElemComplex:
		// Represented to callers as a 2-tuple (re, im); the VM's
		// complex builtins unpack this pair explicitly.
		return Ref(TagTuple, [2]float64{a.floats[base], a.floats[base+1]}), nil
	case ElemF32:
		return F32(a.floats32[base]), nil
	case ElemInt, ElemStructIndex:
		return I64(a.ints[base]), nil
	case ElemBool:
		return Bool(a.bools[base]), nil
	case ElemChar:
		return Char(a.chars[base]), nil
	case ElemString:
		return String(a.strings[base]), nil
	default:
		return a.anys[base], nil
	}
}

func (a *Array) Set(lin int, v Value) error {
	base := lin * a.ElementsPerEntry
	switch a.Kind {
	case ElemF64:
		a.floats[base] = v.f
	case ElemF32:
		a.floats32[base] = float32(v.f)
	case ElemInt, ElemStructIndex:
		a.ints[base] = v.i
	case ElemBool:
		a.bools[base] = v.b
	case ElemChar:
		a.chars[base] = v.ch
	case ElemString:
		a.strings[base] = v.s
	default:
		a.anys[base] = v
	}
	return nil
}

// StructDef describes one struct type: name, field names, and field
// types (as runtime Tags; the type lattice holds the richer lattice
// type elsewhere). Immutable once registered.
type StructDef struct {
	ID         int
	Name       string
	FieldNames []string
	FieldTypes []Tag
	Mutable    bool
}

// StructHeap is the append-only vector of struct records referenced by
// handle from StructInstance Values that need sharing/mutation (spec
// §3.6 "Struct heap entries persist as long as any value holds a
// handle"). Reclamation is reference-counted by StructRecord.refs.
type StructHeap struct {
	defs     []*StructDef
	records  []*StructRecord
	byName   map[string]int
}

type StructRecord struct {
	Def    *StructDef
	Fields []Value
	refs   int
}

func NewStructHeap() *StructHeap {
	return &StructHeap{byName: make(map[string]int)}
}

func (h *StructHeap) DefineStruct(name string, fieldNames []string, fieldTypes []Tag, mutable bool) *StructDef {
	d := &StructDef{ID: len(h.defs), Name: name, FieldNames: fieldNames, FieldTypes: fieldTypes, Mutable: mutable}
	h.defs = append(h.defs, d)
	h.byName[name] = d.ID
	return d
}

func (h *StructHeap) Def(id int) *StructDef { return h.defs[id] }

// Lookup resolves a struct name to its definition, used by field-type
// queries (the abstract interpreter's FieldAccess transfer function,
// spec §4.3.1) that only have the source-level name to go on.
func (h *StructHeap) Lookup(name string) (*StructDef, bool) {
	id, ok := h.byName[name]
	if !ok {
		return nil, false
	}
	return h.defs[id], true
}

// Alloc appends a new struct record and returns its stable heap index.
func (h *StructHeap) Alloc(def *StructDef, fields []Value) int {
	rec := &StructRecord{Def: def, Fields: fields, refs: 1}
	h.records = append(h.records, rec)
	return len(h.records) - 1
}

func (h *StructHeap) Record(idx int) *StructRecord { return h.records[idx] }

// Retain/Release implement the reference-counted reclamation policy of
// spec §3.6; Release never frees the backing slice (indices must stay
// stable), it only marks the slot collectible for a future compaction
// pass, matching the "indices are stable references" contract of §4.7.
func (h *StructHeap) Retain(idx int) { h.records[idx].refs++ }
func (h *StructHeap) Release(idx int) bool {
	h.records[idx].refs--
	if h.records[idx].refs <= 0 {
		h.records[idx] = nil
		return true
	}
	return false
}

// FieldIndex resolves a field name to its slot, the lookup the VM's
// field-load/store-by-name instructions (spec §4.6) need.
func (d *StructDef) FieldIndex(name string) (int, bool) {
	for i, n := range d.FieldNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
