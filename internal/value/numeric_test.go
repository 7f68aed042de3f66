package value

import (
	"math"
	"testing"
)

func TestSameWidthIntegerAdditionWrapsOnOverflow(t *testing.T) {
	got, err := Add(Int(TagI8, 127), Int(TagI8, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Tag != TagI8 || got.AsInt() != -128 {
		t.Fatalf("I8(127)+I8(1) = %s(%d), want I8(-128)", got.Tag, got.AsInt())
	}
}

func TestUnsignedIntegerAdditionWrapsOnOverflow(t *testing.T) {
	got, err := Add(Uint(TagU8, 255), Uint(TagU8, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Tag != TagU8 || got.AsUint() != 0 {
		t.Fatalf("U8(255)+U8(1) = %s(%d), want U8(0)", got.Tag, got.AsUint())
	}
}

func TestI64ArithmeticNearRangeLimitsStaysExact(t *testing.T) {
	got, err := Sub(Int(TagI64, math.MaxInt64), Int(TagI64, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AsInt() != math.MaxInt64-1 {
		t.Fatalf("MaxInt64-1 = %d, want %d", got.AsInt(), math.MaxInt64-1)
	}
}

func TestU64DivisionNearRangeLimitsUsesUnsignedSemantics(t *testing.T) {
	huge := uint64(math.MaxUint64) - 1 // top bit set, would be negative as int64
	got, err := Div(Uint(TagU64, huge), Uint(TagU64, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := huge / 2
	if got.AsUint() != want {
		t.Fatalf("U64 division = %d, want %d (unsigned semantics)", got.AsUint(), want)
	}
}

func TestI16MultiplicationWrapsToTargetWidth(t *testing.T) {
	got, err := Mul(Int(TagI16, 1000), Int(TagI16, 1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := int64(int16(1000 * 1000))
	if got.Tag != TagI16 || got.AsInt() != want {
		t.Fatalf("I16(1000)*I16(1000) = %s(%d), want I16(%d)", got.Tag, got.AsInt(), want)
	}
}

func TestWrapIntCoercionMasksToTargetWidth(t *testing.T) {
	got, err := Coerce(Int(TagI32, 300), TagI8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := int64(int8(300))
	if got.Tag != TagI8 || got.AsInt() != want {
		t.Fatalf("Coerce(I32(300), I8) = %s(%d), want I8(%d)", got.Tag, got.AsInt(), want)
	}
}
