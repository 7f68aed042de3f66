package types

import "github.com/AtelierArith/julia-vm-oss-sub008/internal/value"

// Join computes the least upper bound (spec §3.4/§4.2, Invariant L1:
// commutative, associative, idempotent, Bottom-identity, monotone).
func Join(a, b Type) Type {
	if IsBottom(a) {
		return b
	}
	if IsBottom(b) {
		return a
	}
	if IsTop(a) || IsTop(b) {
		return Top
	}
	if ca, ok := a.(Const); ok {
		if cb, ok := b.(Const); ok {
			if value.Equal(ca.Literal, cb.Literal) {
				return ca
			}
		}
		return Join(Widen(a), b)
	}
	if cb, ok := b.(Const); ok {
		return Join(a, Widen(cb))
	}

	members := collectConcretes(a)
	members = append(members, collectConcretes(b)...)
	return canonicalizeUnion(members)
}

func collectConcretes(t Type) []Concrete {
	switch v := t.(type) {
	case Concrete:
		return []Concrete{v}
	case Union:
		return append([]Concrete(nil), v.Members...)
	default:
		return nil
	}
}

func canonicalizeUnion(members []Concrete) Type {
	dedup := make([]Concrete, 0, len(members))
	for _, m := range members {
		found := false
		for _, d := range dedup {
			if sameConcrete(d, m) {
				found = true
				break
			}
		}
		if !found {
			dedup = append(dedup, m)
		}
	}
	if len(dedup) == 0 {
		return Bottom
	}
	if len(dedup) == 1 {
		return dedup[0]
	}
	return Union{Members: dedup}
}

func sameConcrete(a, b Concrete) bool {
	return a.String() == b.String()
}

// Meet computes the greatest lower bound, dual of Join; used by type
// assertions and branch refinement (spec §3.4).
func Meet(a, b Type) Type {
	if IsTop(a) {
		return b
	}
	if IsTop(b) {
		return a
	}
	if IsBottom(a) || IsBottom(b) {
		return Bottom
	}
	if Subtype(a, b) {
		return a
	}
	if Subtype(b, a) {
		return b
	}
	// Disjoint concrete/concrete or union intersections meet at Bottom;
	// union/concrete intersections keep only the overlapping members.
	ua, aIsUnion := a.(Union)
	ca, aIsConcrete := a.(Concrete)
	ub, bIsUnion := b.(Union)
	cb, bIsConcrete := b.(Concrete)

	switch {
	case aIsUnion && bIsConcrete:
		return meetUnionConcrete(ua, cb)
	case bIsUnion && aIsConcrete:
		return meetUnionConcrete(ub, ca)
	case aIsUnion && bIsUnion:
		var out []Concrete
		for _, m := range ua.Members {
			if containsConcrete(ub.Members, m) {
				out = append(out, m)
			}
		}
		return canonicalizeUnion(out)
	default:
		return Bottom
	}
}

func meetUnionConcrete(u Union, c Concrete) Type {
	if containsConcrete(u.Members, c) {
		return c
	}
	return Bottom
}

func containsConcrete(list []Concrete, c Concrete) bool {
	for _, m := range list {
		if sameConcrete(m, c) {
			return true
		}
	}
	return false
}

// Subtype answers whether every value matching a also matches b (spec
// §3.4). Numeric abstract supertypes (Number/Real/Integer/Signed/
// Unsigned/AbstractFloat) subsume the concrete width tags.
func Subtype(a, b Type) bool {
	if IsBottom(a) {
		return true
	}
	if IsTop(b) {
		return true
	}
	if IsTop(a) && !IsTop(b) {
		return false
	}
	if ca, ok := a.(Const); ok {
		return Subtype(Widen(ca), b)
	}
	if cb, ok := b.(Const); ok {
		if ca, ok := a.(Const); ok {
			return value.Equal(ca.Literal, cb.Literal)
		}
		return false
	}
	if ua, ok := a.(Union); ok {
		for _, m := range ua.Members {
			if !Subtype(m, b) {
				return false
			}
		}
		return true
	}
	if ub, ok := b.(Union); ok {
		for _, m := range ub.Members {
			if Subtype(a, m) {
				return true
			}
		}
		return false
	}
	ca, aok := a.(Concrete)
	cb, bok := b.(Concrete)
	if !aok || !bok {
		return a.String() == b.String()
	}
	return concreteSubtype(ca, cb)
}

func concreteSubtype(a, b Concrete) bool {
	if sameConcrete(a, b) {
		return true
	}
	if b.Kind == KAny {
		return true
	}
	if !a.Tag.IsNumeric() {
		return false
	}
	switch b.Kind {
	case KNumber:
		return true
	case KReal:
		return a.Tag != 0 // all numeric tags here are real (no complex scalar tag)
	case KInteger:
		return a.Tag.IsInteger()
	case KSigned:
		return a.Tag.IsInteger() && a.Tag.IsSigned()
	case KUnsigned:
		return a.Tag.IsInteger() && !a.Tag.IsSigned()
	case KAbstractFloat:
		return a.Tag.IsFloat()
	default:
		return false
	}
}

// Widen drops constant-ness (Const -> its concrete type) when
// approaching a fixpoint (spec §3.4, Invariant L2).
func Widen(t Type) Type {
	if c, ok := t.(Const); ok {
		return TypeOfValue(c.Literal)
	}
	return t
}

// TypeOfValue answers the narrowest Concrete type for a runtime value,
// used both by Widen and by the interpreter's literal-typing rule.
func TypeOfValue(v value.Value) Type {
	switch v.Tag {
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
		if v.Tag.IsNumeric() {
			return NewNumeric(v.Tag)
		}
		return Any
	}
}

// ToRuntimeTag returns the narrowest runtime tag usable for typed
// instruction selection (a Const is widened first), or (0, false) when
// t is not a single concrete kind that carries a runtime tag.
func ToRuntimeTag(t Type) (value.Tag, bool) {
	switch v := t.(type) {
	case Const:
		return ToRuntimeTag(Widen(v))
	case Concrete:
		if v.Tag != value.TagNothing || v.Kind == KNothing {
			return v.Tag, true
		}
		return 0, false
	default:
		return 0, false
	}
}
