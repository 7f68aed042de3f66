// Numeric operators over the Value model: fixed-width promotion (the
// Julia-style lattice of spec Invariant V2) plus arbitrary-precision
// paths for BigInt/BigFloat.
package value

import (
	"math/big"
	"strings"

	"github.com/remyoudompheng/bigfft"
	"modernc.org/mathutil"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/errors"
)

// bigMulThreshold is the operand bit-length above which FFT-accelerated
// multiplication (bigfft) is worth its overhead over big.Int.Mul's
// schoolbook/Karatsuba path; chosen to match bigfft's own documented
// crossover, not tuned against this repo's workloads.
const bigMulThreshold = 2048

// PromoteNumeric returns the wider/less-restrictive of two numeric tags
// per the Julia-style promotion lattice (Invariant V2): float beats
// integer, wider width beats narrower, BigInt/BigFloat beat everything.
func PromoteNumeric(a, b Tag) Tag {
	if a == TagBigFloat || b == TagBigFloat {
		return TagBigFloat
	}
	if a == TagBigInt || b == TagBigInt {
		if a.IsFloat() || b.IsFloat() {
			return TagBigFloat
		}
		return TagBigInt
	}
	if a.IsFloat() || b.IsFloat() {
		return wider(floatRank(a), floatRank(b), floatTags)
	}
	return wider(intRank(a), intRank(b), intTags)
}

var floatTags = []Tag{TagF16, TagF32, TagF64}
var intTags = []Tag{TagI8, TagU8, TagI16, TagU16, TagI32, TagU32, TagI64, TagU64, TagI128, TagU128}

func floatRank(t Tag) int {
	switch t {
	case TagF16:
		return 0
	case TagF32:
		return 1
	default:
		return 2 // non-float integer operand promotes to the widest float present
	}
}

func intRank(t Tag) int {
	switch t {
	case TagI8, TagU8:
		return 0
	case TagI16, TagU16:
		return 1
	case TagI32, TagU32:
		return 2
	case TagI64, TagU64:
		return 3
	default:
		return 4
	}
}

func wider(ra, rb int, table []Tag) Tag {
	r := ra
	if rb > r {
		r = rb
	}
	if r >= len(table) {
		r = len(table) - 1
	}
	return table[r]
}

// Add, Sub, Mul, Div implement the dynamic arithmetic fallback (the
// DynamicAdd/... instruction family of spec §4.6): promote, then compute
// in the promoted representation.
func Add(a, b Value) (Value, error) { return binop(a, b, "+") }
func Sub(a, b Value) (Value, error) { return binop(a, b, "-") }
func Mul(a, b Value) (Value, error) { return binop(a, b, "*") }
func Div(a, b Value) (Value, error) { return binop(a, b, "/") }

func binop(a, b Value, op string) (Value, error) {
	if !a.Tag.IsNumeric() || !b.Tag.IsNumeric() {
		return Value{}, errors.New(errors.TypeError,
			"%s is not defined for %s and %s", op, a.Tag, b.Tag)
	}
	target := PromoteNumeric(a.Tag, b.Tag)
	switch target {
	case TagBigInt:
		return bigIntBinop(toBigInt(a), toBigInt(b), op)
	case TagBigFloat:
		return bigFloatBinop(toBigFloat(a), toBigFloat(b), op)
	}
	if target.IsFloat() {
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		r, err := floatBinop(af, bf, op)
		if err != nil {
			return Value{}, err
		}
		return widenFloat(target, r), nil
	}
	if target.IsSigned() {
		r, err := intBinopSigned(rawIntBits(a), rawIntBits(b), op)
		if err != nil {
			return Value{}, err
		}
		return intOfWidth(target, r), nil
	}
	r, err := intBinopUnsigned(rawUintBits(a), rawUintBits(b), op)
	if err != nil {
		return Value{}, err
	}
	return intOfWidth(target, int64(r)), nil
}

func floatBinop(a, b float64, op string) (float64, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		return a / b, nil
	}
	return 0, errors.New(errors.InternalInvariant, "unknown float operator %q", op)
}

// intBinopSigned computes the narrow signed-integer path in native int64
// arithmetic (wrapping on overflow, matching two's-complement semantics);
// binop masks the result down to the target width afterward.
func intBinopSigned(a, b int64, op string) (int64, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, errors.New(errors.DivisionByZero, "division by zero")
		}
		return a / b, nil
	}
	return 0, errors.New(errors.InternalInvariant, "unknown integer operator %q", op)
}

// intBinopUnsigned is intBinopSigned's unsigned counterpart: division
// must use unsigned semantics once the top bit is set (e.g. a U64 value
// above math.MaxInt64), where signed division on the same bit pattern
// would give a different answer.
func intBinopUnsigned(a, b uint64, op string) (uint64, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, errors.New(errors.DivisionByZero, "division by zero")
		}
		return a / b, nil
	}
	return 0, errors.New(errors.InternalInvariant, "unknown integer operator %q", op)
}

// bigIntBinop multiplies through bigfft once operands are large enough
// to benefit from FFT multiplication; add/sub/div stay on math/big's own
// (already optimal for those ops) implementation.
func bigIntBinop(a, b *big.Int, op string) (Value, error) {
	switch op {
	case "+":
		return BigInt(new(big.Int).Add(a, b)), nil
	case "-":
		return BigInt(new(big.Int).Sub(a, b)), nil
	case "*":
		if a.BitLen() > bigMulThreshold && b.BitLen() > bigMulThreshold {
			return BigInt(bigfft.Mul(a, b)), nil
		}
		return BigInt(new(big.Int).Mul(a, b)), nil
	case "/":
		if b.Sign() == 0 {
			return Value{}, errors.New(errors.DivisionByZero, "division by zero")
		}
		return BigInt(new(big.Int).Quo(a, b)), nil
	}
	return Value{}, errors.New(errors.InternalInvariant, "unknown bigint operator %q", op)
}

func bigFloatBinop(a, b *big.Float, op string) (Value, error) {
	switch op {
	case "+":
		return BigFloat(applyBigFloatSettings(new(big.Float).Add(a, b))), nil
	case "-":
		return BigFloat(applyBigFloatSettings(new(big.Float).Sub(a, b))), nil
	case "*":
		return BigFloat(applyBigFloatSettings(new(big.Float).Mul(a, b))), nil
	case "/":
		if b.Sign() == 0 {
			return Value{}, errors.New(errors.DivisionByZero, "division by zero")
		}
		return BigFloat(applyBigFloatSettings(new(big.Float).Quo(a, b))), nil
	}
	return Value{}, errors.New(errors.InternalInvariant, "unknown bigfloat operator %q", op)
}

// Compare implements the dynamic ordering fallback behind
// LessDynamic/GreaterDynamic/.../EqualDynamic (spec §4.6 "Comparison"):
// -1/0/1 for numeric, string, and char operands; anything else is a
// type error, matching Julia's own refusal to order unrelated types.
func Compare(a, b Value) (int, error) {
	switch {
	case a.Tag.IsNumeric() && b.Tag.IsNumeric():
		return compareNumeric(a, b)
	case a.Tag == TagString && b.Tag == TagString:
		return strings.Compare(a.s, b.s), nil
	case a.Tag == TagChar && b.Tag == TagChar:
		switch {
		case a.ch < b.ch:
			return -1, nil
		case a.ch > b.ch:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, errors.New(errors.TypeError, "isless is not defined for %s and %s", a.Tag, b.Tag)
}

func compareNumeric(a, b Value) (int, error) {
	target := PromoteNumeric(a.Tag, b.Tag)
	if target == TagBigInt {
		return toBigInt(a).Cmp(toBigInt(b)), nil
	}
	if target == TagBigFloat {
		return toBigFloat(a).Cmp(toBigFloat(b)), nil
	}
	af, _ := toFloat(a)
	bf, _ := toFloat(b)
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}

// ISqrt exposes modernc.org/mathutil's integer square root for the
// BigInt numeric builtins (math/big has no ISqrt of its own).
func ISqrt(v Value) (Value, error) {
	switch v.Tag {
	case TagBigInt:
		return BigInt(mathutil.ISqrt(toBigInt(v))), nil
	default:
		if !v.Tag.IsInteger() {
			return Value{}, errors.New(errors.TypeError, "isqrt requires an integer, got %s", v.Tag)
		}
		return BigInt(mathutil.ISqrt(toBigInt(v))), nil
	}
}

// GCD exposes modernc.org/mathutil's GCD for two BigInt/integer values.
func GCD(a, b Value) (Value, error) {
	if !a.Tag.IsInteger() || !b.Tag.IsInteger() {
		return Value{}, errors.New(errors.TypeError, "gcd requires integers")
	}
	return BigInt(mathutil.GCD(toBigInt(a), toBigInt(b))), nil
}
