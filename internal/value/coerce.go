package value

import (
	"math/big"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/errors"
)

// Coerce converts v to the target tag per the matrix of spec §4.1/§4.6.1:
// integer->float widening always succeeds; float->integer truncates and
// range-checks; bool<->integer maps true/false to 1/0; same-signedness
// overflow wraps; everything else that isn't a documented pair fails.
func Coerce(v Value, target Tag) (Value, error) {
	if v.Tag == target {
		return v, nil
	}
	switch {
	case target == TagBigInt:
		return BigInt(toBigInt(v)), nil
	case target == TagBigFloat:
		return BigFloat(toBigFloat(v)), nil
	case v.Tag.IsInteger() && target.IsFloat():
		f, _ := toFloat(v)
		return widenFloat(target, f), nil
	case v.Tag.IsFloat() && target.IsInteger():
		return truncateToInt(v, target)
	case v.Tag == TagBool && target.IsInteger():
		if v.b {
			return intOfWidth(target, 1), nil
		}
		return intOfWidth(target, 0), nil
	case v.Tag.IsInteger() && target == TagBool:
		n, _ := toFloat(v)
		return Bool(n != 0), nil
	case v.Tag.IsInteger() && target.IsInteger():
		return wrapInt(v, target), nil
	case v.Tag.IsFloat() && target.IsFloat():
		f, _ := toFloat(v)
		return widenFloat(target, f), nil
	}
	return Value{}, errors.New(errors.TypeError,
		"no coercion from %s to %s", v.Tag, target)
}

func widenFloat(target Tag, f float64) Value {
	return Value{Tag: target, f: f}
}

// intOfWidth masks/sign-extends n down to target's bit width (Invariant
// V2's same-signedness overflow wrap) before storing it, so e.g. I8(127)
// + I8(1) lands on I8(-128) rather than an out-of-range i=128 payload.
func intOfWidth(target Tag, n int64) Value {
	switch target {
	case TagI8:
		return Value{Tag: target, i: int64(int8(n))}
	case TagI16:
		return Value{Tag: target, i: int64(int16(n))}
	case TagI32:
		return Value{Tag: target, i: int64(int32(n))}
	case TagU8:
		return Value{Tag: target, u: uint64(uint8(n))}
	case TagU16:
		return Value{Tag: target, u: uint64(uint16(n))}
	case TagU32:
		return Value{Tag: target, u: uint64(uint32(n))}
	}
	if target.IsSigned() {
		return Value{Tag: target, i: n}
	}
	return Value{Tag: target, u: uint64(n)}
}

// rawIntBits returns v's stored integer payload as its exact 64-bit
// pattern, without a lossy float64 round-trip (needed to keep I64/U64
// values near their range limits exact through promotion/wrap).
func rawIntBits(v Value) int64 {
	if v.Tag.IsSigned() {
		return v.i
	}
	return int64(v.u)
}

// rawUintBits is rawIntBits reinterpreted as unsigned, for the unsigned
// arithmetic path (plain division differs from unsigned division once
// the top bit is set).
func rawUintBits(v Value) uint64 {
	if v.Tag.IsSigned() {
		return uint64(v.i)
	}
	return v.u
}

func truncateToInt(v Value, target Tag) (Value, error) {
	f := v.f
	truncated := float64(int64(f))
	if truncated != f {
		return Value{}, errors.New(errors.InexactConversion,
			"inexact conversion: %g does not fit exactly in %s", f, target)
	}
	return intOfWidth(target, int64(f)), nil
}

func wrapInt(v Value, target Tag) Value {
	// Same-signedness overflow wraps (spec §4.1); cross-signedness
	// requires the caller to have gone through an explicit conversion
	// builtin rather than this matrix (spec §4.6.1 "Disallowed pairs").
	return intOfWidth(target, rawIntBits(v))
}

func toBigInt(v Value) *big.Int {
	switch {
	case v.Tag == TagBigInt:
		return new(big.Int).Set(v.big)
	case v.Tag.IsSigned():
		return big.NewInt(v.i)
	case v.Tag.IsInteger():
		return new(big.Int).SetUint64(v.u)
	default:
		bi, _ := big.NewFloat(v.f).Int(nil)
		return bi
	}
}

func toBigFloat(v Value) *big.Float {
	if v.Tag == TagBigFloat {
		return new(big.Float).Set(v.bigf)
	}
	if v.Tag == TagBigInt {
		return new(big.Float).SetInt(v.big)
	}
	f, _ := toFloat(v)
	return big.NewFloat(f)
}
