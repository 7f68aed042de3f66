package types

import "github.com/AtelierArith/julia-vm-oss-sub008/internal/value"

// StructEnv adapts a *value.StructHeap to the FieldType lookup the
// abstract interpreter (interp.StructFieldLookup) and the compiler
// (structLookup) both need: a struct instance answers type-of through
// the struct-definition table rather than carrying it inline (Invariant
// V1), and this is the one place that bridges the value and types
// packages without either importing the other's higher-level concerns.
type StructEnv struct {
	Heap *value.StructHeap
}

func NewStructEnv(h *value.StructHeap) *StructEnv { return &StructEnv{Heap: h} }

// FieldType resolves a struct name and field name to its lattice type.
func (e *StructEnv) FieldType(structName, field string) (Type, bool) {
	def, ok := e.Heap.Lookup(structName)
	if !ok {
		return nil, false
	}
	idx, ok := def.FieldIndex(field)
	if !ok {
		return nil, false
	}
	return TagToType(def.FieldTypes[idx]), true
}

// TagToType maps a concrete runtime tag to its lattice type, the
// inverse direction of ToRuntimeTag.
func TagToType(tag value.Tag) Type {
	if tag.IsNumeric() {
		return NewNumeric(tag)
	}
	switch tag {
	case value.TagBool:
		return Bool
	case value.TagChar:
		return CharT
	case value.TagString:
		return StringT
	case value.TagNothing:
		return NothingT
	case value.TagMissing:
		return MissingT
	default:
		return Any
	}
}
