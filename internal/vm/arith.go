package vm

import (
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/bytecode"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/errors"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

// execArith handles the typed and dynamic arithmetic/comparison
// instructions (spec §4.6 "Arithmetic"/"Comparison"). Typed variants
// trust the compiler's specialization and operate on the tag's native
// Go field directly; dynamic variants go through value.Add/.../Compare,
// which re-derive the promoted representation at run time.
func (vm *VM) execArith(op bytecode.OpCode) (bool, error) {
	switch op {
	case bytecode.OpAddI64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.I64(a.AsInt() + b.AsInt()))
	case bytecode.OpSubI64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.I64(a.AsInt() - b.AsInt()))
	case bytecode.OpMulI64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.I64(a.AsInt() * b.AsInt()))
	case bytecode.OpDivI64:
		b, a := vm.pop(), vm.pop()
		if b.AsInt() == 0 {
			return true, errors.New(errors.DivisionByZero, "division by zero")
		}
		vm.push(value.I64(a.AsInt() / b.AsInt()))
	case bytecode.OpAddF64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.F64(a.AsFloat() + b.AsFloat()))
	case bytecode.OpSubF64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.F64(a.AsFloat() - b.AsFloat()))
	case bytecode.OpMulF64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.F64(a.AsFloat() * b.AsFloat()))
	case bytecode.OpDivF64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.F64(a.AsFloat() / b.AsFloat()))
	case bytecode.OpNegateI64:
		a := vm.pop()
		vm.push(value.I64(-a.AsInt()))
	case bytecode.OpNegateF64:
		a := vm.pop()
		vm.push(value.F64(-a.AsFloat()))

	case bytecode.OpDynamicAdd:
		return true, vm.dynBinop(value.Add)
	case bytecode.OpDynamicSub:
		return true, vm.dynBinop(value.Sub)
	case bytecode.OpDynamicMul:
		return true, vm.dynBinop(value.Mul)
	case bytecode.OpDynamicDiv:
		return true, vm.dynBinop(value.Div)

	case bytecode.OpEqualI64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(a.AsInt() == b.AsInt()))
	case bytecode.OpEqualDynamic:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(value.Equal(a, b)))
	case bytecode.OpNotEqualDynamic:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(!value.Equal(a, b)))

	case bytecode.OpLessI64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(a.AsInt() < b.AsInt()))
	case bytecode.OpGreaterI64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(a.AsInt() > b.AsInt()))

	case bytecode.OpLessDynamic:
		return true, vm.dynCompare(func(c int) bool { return c < 0 })
	case bytecode.OpGreaterDynamic:
		return true, vm.dynCompare(func(c int) bool { return c > 0 })
	case bytecode.OpLessEqualDynamic:
		return true, vm.dynCompare(func(c int) bool { return c <= 0 })
	case bytecode.OpGreaterEqualDynamic:
		return true, vm.dynCompare(func(c int) bool { return c >= 0 })

	default:
		return false, nil
	}
	return true, nil
}

func (vm *VM) dynBinop(f func(a, b value.Value) (value.Value, error)) error {
	b, a := vm.pop(), vm.pop()
	r, err := f(a, b)
	if err != nil {
		return err
	}
	vm.push(r)
	return nil
}

func (vm *VM) dynCompare(pred func(int) bool) error {
	b, a := vm.pop(), vm.pop()
	c, err := value.Compare(a, b)
	if err != nil {
		return err
	}
	vm.push(value.Bool(pred(c)))
	return nil
}
