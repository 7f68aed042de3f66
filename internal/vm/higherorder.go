package vm

import (
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/bytecode"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/errors"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

// execHigherOrder implements spec §4.6's higher-order helper
// instructions and item 6's broadcast fusion. Each callback invocation
// runs synchronously to completion via callSync, since the element
// loop needs each result before moving to the next.
func (vm *VM) execHigherOrder(f *Frame, op bytecode.OpCode) (bool, error) {
	switch op {
	case bytecode.OpMapWithFunc:
		fn := vm.pop()
		arr := vm.pop()
		out, err := vm.mapArray(arr, func(v value.Value) (value.Value, error) {
			return vm.callSync(fn, []value.Value{v})
		})
		if err != nil {
			return true, err
		}
		vm.push(out)

	case bytecode.OpFilterWithFunc:
		fn := vm.pop()
		arr := vm.pop()
		out, err := vm.filterArray(arr, func(v value.Value) (bool, error) {
			r, err := vm.callSync(fn, []value.Value{v})
			if err != nil {
				return false, err
			}
			return r.Truth()
		})
		if err != nil {
			return true, err
		}
		vm.push(out)

	case bytecode.OpReduceWithFuncs:
		fn := vm.pop()
		init := vm.pop()
		arr := vm.pop()
		out, err := vm.reduceArray(arr, init, func(acc, v value.Value) (value.Value, error) {
			return vm.callSync(fn, []value.Value{acc, v})
		})
		if err != nil {
			return true, err
		}
		vm.push(out)

	case bytecode.OpBroadcast:
		chunk := f.fn.Chunk
		opIdx := chunk.ReadUint16(f.ip)
		argc := int(chunk.Code[f.ip+2])
		f.ip += 3
		opName := chunk.Constants[opIdx].(string)
		operands := vm.popN(argc)
		out, err := vm.broadcastElementwise(opName, operands)
		if err != nil {
			return true, err
		}
		vm.push(out)

	case bytecode.OpMaterialize:
		// Broadcast fusion is eager (operands computed as each
		// OpBroadcast runs), so materialize is a no-op: the value
		// already on the stack is the fully computed array.

	case bytecode.OpMakeComposed:
		inner := vm.pop()
		outer := vm.pop()
		vm.push(value.NewComposed(outer, inner))

	default:
		return false, nil
	}
	return true, nil
}

func (vm *VM) mapArray(arr value.Value, f func(value.Value) (value.Value, error)) (value.Value, error) {
	a, ok := arr.Handle().(*value.Array)
	if !ok {
		return value.Value{}, errors.New(errors.TypeError, "map requires an Array, got %s", arr.Tag)
	}
	n := a.NumElements()
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		el, err := a.Get(i)
		if err != nil {
			return value.Value{}, err
		}
		r, err := f(el)
		if err != nil {
			return value.Value{}, err
		}
		out[i] = r
	}
	return value.Ref(value.TagArray, finalizeArray(out)), nil
}

func (vm *VM) filterArray(arr value.Value, pred func(value.Value) (bool, error)) (value.Value, error) {
	a, ok := arr.Handle().(*value.Array)
	if !ok {
		return value.Value{}, errors.New(errors.TypeError, "filter requires an Array, got %s", arr.Tag)
	}
	var out []value.Value
	for i := 0; i < a.NumElements(); i++ {
		el, err := a.Get(i)
		if err != nil {
			return value.Value{}, err
		}
		keep, err := pred(el)
		if err != nil {
			return value.Value{}, err
		}
		if keep {
			out = append(out, el)
		}
	}
	return value.Ref(value.TagArray, finalizeArray(out)), nil
}

func (vm *VM) reduceArray(arr, init value.Value, f func(acc, v value.Value) (value.Value, error)) (value.Value, error) {
	a, ok := arr.Handle().(*value.Array)
	if !ok {
		return value.Value{}, errors.New(errors.TypeError, "reduce requires an Array, got %s", arr.Tag)
	}
	acc := init
	for i := 0; i < a.NumElements(); i++ {
		el, err := a.Get(i)
		if err != nil {
			return value.Value{}, err
		}
		acc, err = f(acc, el)
		if err != nil {
			return value.Value{}, err
		}
	}
	return acc, nil
}

// broadcastElementwise implements spec §4.6 item 6's fusion lowering:
// applies opName elementwise across operands (arrays broadcast against
// scalars and against each other by shape), eagerly rather than
// building a lazy Broadcasted graph, which the spec's "materialize"
// terminology describes as the outcome but doesn't mandate the
// intermediate representation for.
func (vm *VM) broadcastElementwise(opName string, operands []value.Value) (value.Value, error) {
	n := broadcastLen(operands)
	binop, err := binopFor(opName)
	if err != nil {
		return value.Value{}, err
	}
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		acc, err := elementAt(operands[0], i)
		if err != nil {
			return value.Value{}, err
		}
		for _, operand := range operands[1:] {
			el, err := elementAt(operand, i)
			if err != nil {
				return value.Value{}, err
			}
			acc, err = binop(acc, el)
			if err != nil {
				return value.Value{}, err
			}
		}
		out[i] = acc
	}
	return value.Ref(value.TagArray, finalizeArray(out)), nil
}

func broadcastLen(operands []value.Value) int {
	n := 1
	for _, op := range operands {
		if arr, ok := op.Handle().(*value.Array); ok && op.Tag == value.TagArray {
			if l := arr.NumElements(); l > n {
				n = l
			}
		}
	}
	return n
}

// elementAt answers operand's i-th broadcast element: the array element
// at i for an Array operand (the scalar repeated, for a length-1
// array), or the scalar itself for anything else.
func elementAt(v value.Value, i int) (value.Value, error) {
	if v.Tag == value.TagArray {
		arr := v.Handle().(*value.Array)
		if arr.NumElements() == 1 {
			return arr.Get(0)
		}
		return arr.Get(i)
	}
	return v, nil
}

func binopFor(opName string) (func(a, b value.Value) (value.Value, error), error) {
	switch opName {
	case "+":
		return value.Add, nil
	case "-":
		return value.Sub, nil
	case "*":
		return value.Mul, nil
	case "/":
		return value.Div, nil
	default:
		return nil, errors.New(errors.UnsupportedFeature, "unsupported broadcast operator %q", opName)
	}
}
