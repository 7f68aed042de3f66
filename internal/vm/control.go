package vm

import (
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/bytecode"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/errors"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/types"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

// step executes one instruction of f, returning (returnValue, isReturn,
// err). isReturn is true only for OpReturn, at which point the caller
// pops f off the frame stack and pushes returnValue for its caller.
//
// Grounded on sentra's EnhancedVM.run dispatch loop (the big per-opcode
// switch shape), generalized to the typed/dynamic instruction split and
// the value.Value tag set spec §4.6/§4.7 describe.
func (vm *VM) step(f *Frame, op bytecode.OpCode) (value.Value, bool, error) {
	chunk := f.fn.Chunk
	switch op {
	case bytecode.OpConstant:
		idx := chunk.ReadUint16(f.ip)
		f.ip += 2
		vm.push(constantToValue(chunk.Constants[idx]))

	case bytecode.OpNil:
		vm.push(value.Nothing())

	case bytecode.OpPop:
		vm.pop()

	case bytecode.OpDup:
		vm.push(vm.peek())

	case bytecode.OpSwap:
		n := len(vm.stack)
		vm.stack[n-1], vm.stack[n-2] = vm.stack[n-2], vm.stack[n-1]

	case bytecode.OpLoadSlot:
		idx := chunk.ReadUint16(f.ip)
		f.ip += 2
		vm.push(f.slots[idx])

	case bytecode.OpStoreSlot:
		idx := chunk.ReadUint16(f.ip)
		f.ip += 2
		f.slots[idx] = vm.pop()

	case bytecode.OpLoadName:
		idx := chunk.ReadUint16(f.ip)
		f.ip += 2
		name := chunk.Constants[idx].(string)
		if v, ok := f.names[name]; ok {
			vm.push(v)
		} else if v, ok := f.capture[name]; ok {
			vm.push(v)
		} else if v, ok := vm.globals[name]; ok {
			vm.push(v)
		} else {
			return value.Value{}, false, errors.New(errors.UndefinedVariableError, "undefined variable %q", name)
		}

	case bytecode.OpStoreName:
		idx := chunk.ReadUint16(f.ip)
		f.ip += 2
		name := chunk.Constants[idx].(string)
		f.names[name] = vm.pop()

	case bytecode.OpDefineGlobal, bytecode.OpSetGlobal:
		idx := chunk.ReadUint16(f.ip)
		f.ip += 2
		name := chunk.Constants[idx].(string)
		vm.globals[name] = vm.pop()

	case bytecode.OpGetGlobal:
		idx := chunk.ReadUint16(f.ip)
		f.ip += 2
		name := chunk.Constants[idx].(string)
		v, ok := vm.globals[name]
		if !ok {
			return value.Value{}, false, errors.New(errors.UndefinedVariableError, "undefined global %q", name)
		}
		vm.push(v)

	case bytecode.OpJump:
		target := chunk.ReadUint16(f.ip)
		f.ip = int(target)

	case bytecode.OpJumpIfZero:
		target := chunk.ReadUint16(f.ip)
		f.ip += 2
		cond := vm.pop()
		truth, err := cond.Truth()
		if err != nil {
			return value.Value{}, false, err
		}
		if !truth {
			f.ip = int(target)
		}

	case bytecode.OpJumpIfEqI64:
		target := chunk.ReadUint16(f.ip)
		f.ip += 2
		b, a := vm.pop(), vm.pop()
		if a.AsInt() == b.AsInt() {
			f.ip = int(target)
		}

	case bytecode.OpJumpIfNeI64:
		target := chunk.ReadUint16(f.ip)
		f.ip += 2
		b, a := vm.pop(), vm.pop()
		if a.AsInt() != b.AsInt() {
			f.ip = int(target)
		}

	case bytecode.OpLoop:
		target := chunk.ReadUint16(f.ip)
		f.ip = int(target)

	case bytecode.OpPushHandler:
		// HandlerSites is keyed by the operand offset PushHandlerSite was
		// called with in compileTry, i.e. the position right after the
		// opcode byte — exactly where f.ip points to right now.
		site := chunk.HandlerSites[f.ip]
		f.ip += 4
		f.handlers = append(f.handlers, handlerEntry{
			CatchIP:    site.CatchIP,
			FinallyIP:  site.FinallyIP,
			StackDepth: len(vm.stack),
		})

	case bytecode.OpPopHandler:
		if len(f.handlers) > 0 {
			f.handlers = f.handlers[:len(f.handlers)-1]
		}

	case bytecode.OpRaise:
		raised := vm.pop()
		vm.pendingRaiseValue = &raised
		return value.Value{}, false, errors.New(errors.UserRaised, "%s", raised.String())

	case bytecode.OpEndFinally:
		if f.pendingReraise != nil {
			verr := f.pendingReraise
			f.pendingReraise = nil
			return value.Value{}, false, verr
		}

	case bytecode.OpTypeOf:
		v := vm.pop()
		vm.push(value.String(types.TypeOfValue(v).String()))

	case bytecode.OpIsType:
		idx := chunk.ReadUint16(f.ip)
		f.ip += 2
		typeName := chunk.Constants[idx].(string)
		subject := vm.pop()
		vm.push(value.Bool(isaMatch(subject, typeName)))

	case bytecode.OpPrint:
		v := vm.pop()
		vm.out.WriteString(v.String())
		vm.out.WriteByte('\n')

	case bytecode.OpReturn:
		return vm.pop(), true, nil

	default:
		return vm.stepExtended(f, op)
	}
	return value.Value{}, false, nil
}

// constantToValue unboxes one constant-pool entry: literal Values pass
// through, bare strings (names/type refs) are wrapped so OpConstant can
// also push them as ordinary String values (spec §4.6 item 5's
// keyword-name-as-dict-key lowering relies on this).
func constantToValue(c interface{}) value.Value {
	switch v := c.(type) {
	case value.Value:
		return v
	case string:
		return value.String(v)
	default:
		return value.Nothing()
	}
}

// isaMatch implements `x isa T` (spec §4.3 "Union splitting"): compares
// the subject's narrowest lattice type against the named type, using
// the same abstract-kind vocabulary the compiler's annotTagOf/struct
// declarations use.
func isaMatch(v value.Value, typeName string) bool {
	target, ok := typeNameToType(typeName)
	if !ok {
		return false
	}
	return types.Subtype(types.TypeOfValue(v), target)
}

func typeNameToType(name string) (types.Type, bool) {
	switch name {
	case "Any":
		return types.Any, true
	case "Number":
		return types.Number, true
	case "Bool":
		return types.Bool, true
	case "Char":
		return types.CharT, true
	case "String":
		return types.StringT, true
	case "Nothing":
		return types.NothingT, true
	case "Missing":
		return types.MissingT, true
	case "Int", "Int64":
		return types.NewNumeric(value.TagI64), true
	case "Int32":
		return types.NewNumeric(value.TagI32), true
	case "Float64":
		return types.NewNumeric(value.TagF64), true
	case "Float32":
		return types.NewNumeric(value.TagF32), true
	case "Integer":
		return types.Concrete{Kind: "Integer"}, true
	case "Real":
		return types.Concrete{Kind: "Real"}, true
	case "AbstractFloat":
		return types.Concrete{Kind: "AbstractFloat"}, true
	default:
		return nil, false
	}
}
