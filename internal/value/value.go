// Package value implements the tagged runtime value model (spec §3.1,
// §4.1): a discriminated union covering numeric primitives of many
// widths, booleans, characters/strings, the three "absence" sentinels,
// and handle-tagged references into the array/struct/dict heaps.
//
// Grounded on the teacher's vm.Value (a bare `interface{}` with a single
// *Function payload) widened to a closed tag set so type-of and coercion
// never need a type switch over arbitrary Go types.
package value

import (
	"fmt"
	"math/big"
	"strings"

	humanize "github.com/dustin/go-humanize"
)

// Tag is the runtime discriminant of a Value.
type Tag uint8

const (
	TagNothing Tag = iota
	TagMissing
	TagUndefined
	TagBool
	TagChar
	TagString

	TagI8
	TagI16
	TagI32
	TagI64
	TagI128
	TagU8
	TagU16
	TagU32
	TagU64
	TagU128
	TagF16
	TagF32
	TagF64
	TagBigInt
	TagBigFloat

	TagArray
	TagStruct
	TagTuple
	TagNamedTuple
	TagSet
	TagDict
	TagRange

	TagFunction
	TagClosure
	TagComposed

	TagSymbol
	TagQuoted
	TagLineMarker
	TagRNG
)

var tagNames = map[Tag]string{
	TagNothing: "Nothing", TagMissing: "Missing", TagUndefined: "Undefined",
	TagBool: "Bool", TagChar: "Char", TagString: "String",
	TagI8: "Int8", TagI16: "Int16", TagI32: "Int32", TagI64: "Int64", TagI128: "Int128",
	TagU8: "UInt8", TagU16: "UInt16", TagU32: "UInt32", TagU64: "UInt64", TagU128: "UInt128",
	TagF16: "Float16", TagF32: "Float32", TagF64: "Float64",
	TagBigInt: "BigInt", TagBigFloat: "BigFloat",
	TagArray: "Array", TagStruct: "Struct", TagTuple: "Tuple",
	TagNamedTuple: "NamedTuple", TagSet: "Set", TagDict: "Dict", TagRange: "Range",
	TagFunction: "Function", TagClosure: "Closure", TagComposed: "ComposedFunction",
	TagSymbol: "Symbol", TagQuoted: "Quoted", TagLineMarker: "LineNumberNode", TagRNG: "RNG",
}

func (t Tag) String() string {
	if n, ok := tagNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Tag(%d)", t)
}

// IsNumeric reports whether t is one of the numeric primitive tags.
func (t Tag) IsNumeric() bool {
	return t >= TagI8 && t <= TagBigFloat
}

// IsInteger reports whether t is a fixed-width or arbitrary-precision
// integer tag (signed or unsigned).
func (t Tag) IsInteger() bool {
	return (t >= TagI8 && t <= TagU128) || t == TagBigInt
}

func (t Tag) IsFloat() bool {
	return (t >= TagF16 && t <= TagF64) || t == TagBigFloat
}

func (t Tag) IsSigned() bool {
	return (t >= TagI8 && t <= TagI128) || t == TagBigInt
}

// Value is the tagged runtime value. Scalars live inline; handle-tagged
// variants (Array/Struct/Tuple/.../Dict) carry a pointer into the
// appropriate heap record so aliasing is observable (spec Invariant V1).
type Value struct {
	Tag Tag

	b    bool
	ch   rune
	s    string
	i    int64  // i8..i64 payload, sign-extended
	u    uint64 // u8..u64 payload, zero-extended
	i128 [2]uint64
	f    float64 // f16/f32/f64 payload, widened
	big  *big.Int
	bigf *big.Float

	// ref is the heap handle payload for Array/Struct/Tuple/NamedTuple/
	// Set/Dict/Range/Function/Closure/Composed/Symbol/Quoted/RNG.
	ref interface{}
}

func Nothing() Value   { return Value{Tag: TagNothing} }
func Missing() Value   { return Value{Tag: TagMissing} }
func Undefined() Value { return Value{Tag: TagUndefined} }

func Bool(b bool) Value     { return Value{Tag: TagBool, b: b} }
func Char(r rune) Value     { return Value{Tag: TagChar, ch: r} }
func String(s string) Value { return Value{Tag: TagString, s: s} }

func Int(tag Tag, v int64) Value   { return Value{Tag: tag, i: v} }
func Uint(tag Tag, v uint64) Value { return Value{Tag: tag, u: v} }
func I64(v int64) Value            { return Value{Tag: TagI64, i: v} }
func F64(v float64) Value          { return Value{Tag: TagF64, f: v} }
func F32(v float32) Value          { return Value{Tag: TagF32, f: float64(v)} }
func BigInt(v *big.Int) Value      { return Value{Tag: TagBigInt, big: v} }
func BigFloat(v *big.Float) Value  { return Value{Tag: TagBigFloat, bigf: v} }

// Ref wraps a heap handle (array/struct/tuple/dict/... record pointer)
// under the given reference tag.
func Ref(tag Tag, handle interface{}) Value { return Value{Tag: tag, ref: handle} }

func (v Value) AsBool() bool       { return v.b }
func (v Value) AsChar() rune       { return v.ch }
func (v Value) AsString() string   { return v.s }
func (v Value) AsInt() int64       { return v.i }
func (v Value) AsUint() uint64     { return v.u }
func (v Value) AsFloat() float64   { return v.f }
func (v Value) AsBigInt() *big.Int { return v.big }
func (v Value) AsBigFloat() *big.Float {
	return v.bigf
}
func (v Value) Handle() interface{} { return v.ref }

// TypeOf answers a type-of query directly off the tag, without consulting
// any separate table (Invariant V1) — except struct instances, whose
// field types require the struct-definition table (handled in package
// types, not here).
func (v Value) TypeOf() Tag { return v.Tag }

// Truth implements boolean coercion for control flow (spec §4.1): only
// Bool values (and nothing else) answer truthily or falsely.
func (v Value) Truth() (bool, error) {
	if v.Tag != TagBool {
		return false, fmt.Errorf("type error: expected Bool, got %s", v.Tag)
	}
	return v.b, nil
}

// Equal implements value equality. Handle-tagged values compare by
// identity of the underlying heap record pointer (reference semantics,
// spec §3.6), except where the record type defines content equality
// (left to callers holding the heap, e.g. dict/set/tuple contents).
func Equal(a, b Value) bool {
	if a.Tag != b.Tag {
		if a.Tag.IsNumeric() && b.Tag.IsNumeric() {
			af, aok := toFloat(a)
			bf, bok := toFloat(b)
			return aok && bok && af == bf
		}
		return false
	}
	switch a.Tag {
	case TagNothing, TagMissing, TagUndefined:
		return true
	case TagBool:
		return a.b == b.b
	case TagChar:
		return a.ch == b.ch
	case TagString:
		return a.s == b.s
	case TagBigInt:
		return a.big.Cmp(b.big) == 0
	case TagBigFloat:
		return a.bigf.Cmp(b.bigf) == 0
	default:
		if a.Tag.IsFloat() {
			return a.f == b.f
		}
		if a.Tag.IsInteger() {
			if a.Tag.IsSigned() {
				return a.i == b.i
			}
			return a.u == b.u
		}
		return a.ref == b.ref
	}
}

func toFloat(v Value) (float64, bool) {
	switch {
	case v.Tag.IsFloat():
		return v.f, true
	case v.Tag.IsSigned():
		return float64(v.i), true
	case v.Tag.IsInteger():
		return float64(v.u), true
	case v.Tag == TagBigInt:
		f, _ := new(big.Float).SetInt(v.big).Float64()
		return f, true
	case v.Tag == TagBigFloat:
		f, _ := v.bigf.Float64()
		return f, true
	}
	return 0, false
}

// String renders the value the way OpPrint and error messages need it,
// generalized from the teacher's memory.ToString / vm.PrintValue.
func (v Value) String() string {
	switch v.Tag {
	case TagNothing:
		return "nothing"
	case TagMissing:
		return "missing"
	case TagUndefined:
		return "#undef"
	case TagBool:
		if v.b {
			return "true"
		}
		return "false"
	case TagChar:
		return string(v.ch)
	case TagString:
		return v.s
	case TagBigInt:
		return v.big.String()
	case TagBigFloat:
		return v.bigf.Text('g', -1)
	default:
		if v.Tag.IsFloat() {
			return trimFloat(v.f)
		}
		if v.Tag.IsSigned() {
			return fmt.Sprintf("%d", v.i)
		}
		if v.Tag.IsInteger() {
			return fmt.Sprintf("%d", v.u)
		}
		return fmt.Sprintf("%v", v.ref)
	}
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// DiagnosticSize renders a byte count (heap sizes, stack depth in bytes)
// in human-readable form, using the pack's humanize dependency rather
// than a hand-rolled unit table. No CLI flag or VM error path calls it.
func DiagnosticSize(bytes uint64) string {
	return humanize.Bytes(bytes)
}

// DiagnosticCount renders a large instruction/element count with
// thousands separators for the same diagnostic surface.
func DiagnosticCount(n uint64) string {
	return humanize.Comma(int64(n))
}
