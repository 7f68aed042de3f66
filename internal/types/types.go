// Package types implements the compile-time type lattice (spec §3.4,
// §4.2): a join-semilattice over concrete kinds, unions, constants,
// branch-refinement conditionals, type variables, and Top/Bottom.
//
// Grounded on the teacher pack's IR/lattice-shaped types (see
// other_examples' kanso-lang optimizations.go and the golang/tools SSA
// promote.go traversal idiom) — the teacher repo itself has no type
// lattice, so this package is newly written in the idiom spec.md
// describes, using only the standard library: a closed, spec-defined
// lattice has no natural third-party dependency.
package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

// Type is the sum type of lattice variants (spec §3.4).
type Type interface {
	isType()
	String() string
}

// ConcreteKind names one of the closed set of concrete runtime kinds,
// including the abstract numeric supertypes (Number, Real, Integer, …)
// that participate in subtyping without being a single runtime tag.
type ConcreteKind string

const (
	KAny           ConcreteKind = "Any"
	KNumber        ConcreteKind = "Number"
	KReal          ConcreteKind = "Real"
	KInteger       ConcreteKind = "Integer"
	KSigned        ConcreteKind = "Signed"
	KUnsigned      ConcreteKind = "Unsigned"
	KAbstractFloat ConcreteKind = "AbstractFloat"
	KBool          ConcreteKind = "Bool"
	KChar          ConcreteKind = "Char"
	KString        ConcreteKind = "String"
	KNothing       ConcreteKind = "Nothing"
	KMissing       ConcreteKind = "Missing"
)

// Concrete is a single named kind, parameterized for container-like
// kinds (Array-of-element, Tuple-of-types, etc.) via Params/Elem.
type Concrete struct {
	Kind ConcreteKind
	// Tag is the exact value.Tag for leaf numeric/scalar kinds; zero
	// value (value.TagNothing) for kinds that are not tag-addressable
	// (abstract supertypes, parametric containers).
	Tag value.Tag

	// Elem is the element type for Array/Range/Generator-of-element.
	Elem Type
	// Params is the ordered component-type list for Tuple-of-types.
	Params []Type
	// KeyElem/ValElem are set for Dict-of-key-value.
	KeyElem, ValElem Type
	// StructName/StructID identify a struct-name-with-id concrete kind.
	StructName string
	StructID   int
}

func (Concrete) isType() {}

func (c Concrete) String() string {
	switch c.Kind {
	case "Array":
		return fmt.Sprintf("Array{%s}", c.Elem)
	case "Tuple":
		parts := make([]string, len(c.Params))
		for i, p := range c.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("Tuple{%s}", strings.Join(parts, ","))
	case "Dict":
		return fmt.Sprintf("Dict{%s,%s}", c.KeyElem, c.ValElem)
	case "Range":
		return fmt.Sprintf("Range{%s}", c.Elem)
	case "Generator":
		return fmt.Sprintf("Generator{%s}", c.Elem)
	case "Struct":
		return c.StructName
	default:
		return string(c.Kind)
	}
}

// NewNumeric builds the Concrete for a leaf numeric value.Tag.
func NewNumeric(tag value.Tag) Concrete {
	kind := KNumber
	switch {
	case tag.IsFloat():
		kind = KAbstractFloat
	case tag.IsSigned():
		kind = KSigned
	case tag.IsInteger():
		kind = KUnsigned
	}
	_ = kind
	return Concrete{Kind: ConcreteKind(tag.String()), Tag: tag}
}

func ArrayOf(elem Type) Concrete  { return Concrete{Kind: "Array", Elem: elem} }
func TupleOf(ts ...Type) Concrete { return Concrete{Kind: "Tuple", Params: ts} }
func RangeOf(elem Type) Concrete  { return Concrete{Kind: "Range", Elem: elem} }
func GeneratorOf(elem Type) Concrete {
	return Concrete{Kind: "Generator", Elem: elem}
}
func DictOf(k, v Type) Concrete { return Concrete{Kind: "Dict", KeyElem: k, ValElem: v} }
func SetOf(elem Type) Concrete  { return Concrete{Kind: "Set", Elem: elem} }
func StructRef(name string, id int) Concrete {
	return Concrete{Kind: "Struct", StructName: name, StructID: id}
}

var (
	Any      = Concrete{Kind: KAny}
	Number   = Concrete{Kind: KNumber}
	Bool     = Concrete{Kind: KBool, Tag: value.TagBool}
	CharT    = Concrete{Kind: KChar, Tag: value.TagChar}
	StringT  = Concrete{Kind: KString, Tag: value.TagString}
	NothingT = Concrete{Kind: KNothing, Tag: value.TagNothing}
	MissingT = Concrete{Kind: KMissing, Tag: value.TagMissing}
)

// Union is an unordered, canonicalized set of ≥2 Concrete members.
type Union struct {
	Members []Concrete
}

func (Union) isType() {}

func (u Union) String() string {
	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		parts[i] = m.String()
	}
	sort.Strings(parts)
	return "Union{" + strings.Join(parts, ",") + "}"
}

// Const is a compile-time-known literal value.
type Const struct {
	Literal value.Value
}

func (Const) isType() {}
func (c Const) String() string {
	return fmt.Sprintf("Const(%s)", c.Literal.String())
}

// Conditional attaches a refinement to a boolean-valued expression: on
// the true branch Var narrows to TrueType, on the false branch to
// FalseType (spec §3.4, used by union-splitting).
type Conditional struct {
	Var       string
	TrueType  Type
	FalseType Type
}

func (Conditional) isType() {}
func (c Conditional) String() string {
	return fmt.Sprintf("Conditional{%s, %s, %s}", c.Var, c.TrueType, c.FalseType)
}

// TypeVar is a where-bound type variable for generic methods.
type TypeVar struct {
	Name       string
	UpperBound Type // nil means unbounded (implicitly Any)
}

func (TypeVar) isType() {}
func (t TypeVar) String() string {
	if t.UpperBound == nil {
		return t.Name
	}
	return fmt.Sprintf("%s<:%s", t.Name, t.UpperBound)
}

type topType struct{}

func (topType) isType()        {}
func (topType) String() string { return "Top" }

type bottomType struct{}

func (bottomType) isType()        {}
func (bottomType) String() string { return "Bottom" }

var (
	Top    Type = topType{}
	Bottom Type = bottomType{}
)

func IsTop(t Type) bool    { _, ok := t.(topType); return ok }
func IsBottom(t Type) bool { _, ok := t.(bottomType); return ok }
