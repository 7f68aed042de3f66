package vm

import (
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/bytecode"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/errors"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

// stepExtended dispatches the instruction groups step doesn't handle
// directly: typed/dynamic arithmetic, containers, calls/closures, and
// the broadcast/higher-order helper family.
func (vm *VM) stepExtended(f *Frame, op bytecode.OpCode) (value.Value, bool, error) {
	if handled, err := vm.execArith(op); handled {
		return value.Value{}, false, err
	}
	if handled, err := vm.execContainers(f, op); handled {
		return value.Value{}, false, err
	}
	if handled, err := vm.execHigherOrder(f, op); handled {
		return value.Value{}, false, err
	}

	chunk := f.fn.Chunk
	switch op {
	case bytecode.OpCall:
		funcIdx := int(chunk.ReadUint16(f.ip))
		argc := int(chunk.Code[f.ip+2])
		f.ip += 3
		args := vm.popN(argc)
		vm.pushFrame(funcIdx, args)

	case bytecode.OpCallDynamic:
		nameIdx := int(chunk.ReadUint16(f.ip))
		argc := int(chunk.Code[f.ip+2])
		f.ip += 3
		name := chunk.Constants[nameIdx].(string)
		args := vm.popN(argc)
		if err := vm.dynamicCall(name, args); err != nil {
			return value.Value{}, false, err
		}

	case bytecode.OpCallClosure:
		argc := int(chunk.Code[f.ip])
		f.ip++
		args := vm.popN(argc)
		callee := vm.pop()
		if err := vm.callValue(callee, args); err != nil {
			return value.Value{}, false, err
		}

	case bytecode.OpMakeClosure:
		funcIdx := int(chunk.ReadUint16(f.ip))
		f.ip += 2
		fn := vm.Program.Functions[funcIdx]
		capture := make(map[string]value.Value, len(f.names)+len(f.capture))
		for k, v := range f.capture {
			capture[k] = v
		}
		for k, v := range f.names {
			capture[k] = v
		}
		vm.push(value.Ref(value.TagClosure, &value.Closure{
			Fn:      &value.Function{Name: fn.Name, Index: funcIdx, Arity: fn.Arity, ParamNames: fn.ParamNames},
			Capture: capture,
		}))

	default:
		return value.Value{}, false, errors.NewInternal("unimplemented opcode %s", op)
	}
	return value.Value{}, false, nil
}

func (vm *VM) popN(n int) []value.Value {
	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	return args
}

// dynamicCall implements spec §4.6's CallDynamic: resolve by name and
// the runtime tags of the evaluated arguments, via the method table's
// per-call-site cache (spec §4.4).
func (vm *VM) dynamicCall(name string, args []value.Value) error {
	tags := make([]value.Tag, len(args))
	for i, a := range args {
		tags[i] = a.Tag
	}
	m, err := vm.resolveMethod(name, tags)
	if err != nil {
		return err
	}
	if m.ByteOffset < 0 {
		return errors.NewInternal("method %s resolved to an uncompiled body", name)
	}
	vm.pushFrame(m.ByteOffset, args)
	return nil
}

// callValue implements CallClosure: the callee is a Function or Closure
// value already evaluated onto the stack (spec §4.6 item 3, e.g. a
// higher-order parameter or a closure literal's invocation).
func (vm *VM) callValue(callee value.Value, args []value.Value) error {
	switch callee.Tag {
	case value.TagFunction:
		fn := callee.Handle().(*value.Function)
		vm.pushFrame(fn.Index, args)
		return nil
	case value.TagClosure:
		cl := callee.Handle().(*value.Closure)
		frame := vm.pushFrame(cl.Fn.Index, args)
		frame.capture = cl.Capture
		return nil
	case value.TagComposed:
		// (f ∘ g)(args) = f(g(args...)): run the inner call to
		// completion via callSync (available here since callValue is
		// always reached through it or through a dispatch loop that
		// can itself recurse), then feed its single result to the
		// outer call the same way.
		comp := callee.Handle().(*value.Composed)
		inner, err := vm.callSync(comp.Inner, args)
		if err != nil {
			return err
		}
		outer, err := vm.callSync(comp.Outer, []value.Value{inner})
		if err != nil {
			return err
		}
		vm.push(outer)
		return nil
	default:
		return errors.New(errors.TypeError, "%s is not callable", callee.Tag)
	}
}
