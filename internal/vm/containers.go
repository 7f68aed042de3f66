package vm

import (
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/bytecode"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/errors"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

// arrayBuilder accumulates ArrayLit elements between OpNewArray and
// OpFinalizeArray, when the element kind isn't known until every
// element has been evaluated (spec §3.2's element-kind storage choice
// is made once, at finalize time, from what actually got pushed).
type arrayBuilder struct {
	elems []value.Value
	want  int
}

// execContainers handles the array/tuple/dict/set/struct instructions
// (spec §4.6 "Container instructions"), operating on the shared operand
// stack and the program's struct heap.
//
// Grounded on sentra's memory.Array/memory.Dict builtins (the group-by-
// concern instruction split), adapted to internal/value's tagged,
// column-major Array record instead of a bare []interface{}.
func (vm *VM) execContainers(f *Frame, op bytecode.OpCode) (bool, error) {
	chunk := f.fn.Chunk
	switch op {
	case bytecode.OpNewArray:
		want := int(chunk.ReadUint16(f.ip))
		f.ip += 2
		vm.push(value.Ref(value.TagArray, &arrayBuilder{want: want}))

	case bytecode.OpPushElem:
		el := vm.pop()
		b := vm.peek().Handle().(*arrayBuilder)
		b.elems = append(b.elems, el)

	case bytecode.OpFinalizeArray:
		top := vm.pop()
		b := top.Handle().(*arrayBuilder)
		arr := finalizeArray(b.elems)
		vm.push(value.Ref(value.TagArray, arr))

	case bytecode.OpIndexLoad:
		n := int(chunk.ReadUint16(f.ip))
		f.ip += 2
		idxVals := make([]value.Value, n)
		for i := n - 1; i >= 0; i-- {
			idxVals[i] = vm.pop()
		}
		obj := vm.pop()
		v, err := vm.indexLoad(obj, idxVals)
		if err != nil {
			return true, err
		}
		vm.push(v)

	case bytecode.OpIndexStore:
		n := int(chunk.ReadUint16(f.ip))
		f.ip += 2
		newVal := vm.pop()
		idxVals := make([]value.Value, n)
		for i := n - 1; i >= 0; i-- {
			idxVals[i] = vm.pop()
		}
		obj := vm.pop()
		if err := vm.indexStore(obj, idxVals, newVal); err != nil {
			return true, err
		}

	case bytecode.OpIndexSlice:
		n := int(chunk.ReadUint16(f.ip))
		f.ip += 2
		bounds := make([]value.Value, n)
		for i := n - 1; i >= 0; i-- {
			bounds[i] = vm.pop()
		}
		obj := vm.pop()
		v, err := vm.indexSlice(obj, bounds)
		if err != nil {
			return true, err
		}
		vm.push(v)

	case bytecode.OpTupleNew:
		n := int(chunk.ReadUint16(f.ip))
		f.ip += 2
		elems := make([]value.Value, n)
		for i := n - 1; i >= 0; i-- {
			elems[i] = vm.pop()
		}
		vm.push(value.Ref(value.TagTuple, &value.Tuple{Elems: elems}))

	case bytecode.OpTupleGet:
		idx := int(chunk.ReadUint16(f.ip))
		f.ip += 2
		t := vm.pop().Handle().(*value.Tuple)
		if idx < 0 || idx >= len(t.Elems) {
			return true, errors.New(errors.IndexOutOfBounds, "tuple index %d out of bounds (len %d)", idx, len(t.Elems))
		}
		vm.push(t.Elems[idx])

	case bytecode.OpDictNew:
		vm.push(value.Ref(value.TagDict, value.NewDict()))

	case bytecode.OpDictSet:
		v, k := vm.pop(), vm.pop()
		d := vm.peek().Handle().(*value.Dict)
		d.Set(k, v)

	case bytecode.OpDictGet:
		k := vm.pop()
		d := vm.pop().Handle().(*value.Dict)
		v, ok := d.Get(k)
		if !ok {
			vm.push(value.Missing())
			break
		}
		vm.push(v)

	case bytecode.OpSetNew:
		vm.push(value.Ref(value.TagSet, value.NewSet()))

	case bytecode.OpSetAdd:
		el := vm.pop()
		s := vm.peek().Handle().(*value.Set)
		s.Add(el)

	case bytecode.OpStructNew:
		structID := int(chunk.ReadUint16(f.ip))
		f.ip += 2
		def := vm.Program.Structs.Def(structID)
		fields := make([]value.Value, len(def.FieldNames))
		for i := len(fields) - 1; i >= 0; i-- {
			fields[i] = vm.pop()
		}
		idx := vm.Program.Structs.Alloc(def, fields)
		vm.push(value.Ref(value.TagStruct, idx))

	case bytecode.OpFieldLoad:
		idx := chunk.ReadUint16(f.ip)
		f.ip += 2
		name := chunk.Constants[idx].(string)
		obj := vm.pop()
		rec := vm.Program.Structs.Record(obj.Handle().(int))
		fi, ok := rec.Def.FieldIndex(name)
		if !ok {
			return true, errors.New(errors.MethodError, "type %s has no field %s", rec.Def.Name, name)
		}
		vm.push(rec.Fields[fi])

	case bytecode.OpFieldStore:
		idx := chunk.ReadUint16(f.ip)
		f.ip += 2
		name := chunk.Constants[idx].(string)
		newVal := vm.pop()
		obj := vm.pop()
		rec := vm.Program.Structs.Record(obj.Handle().(int))
		if !rec.Def.Mutable {
			return true, errors.New(errors.TypeError, "type %s is immutable", rec.Def.Name)
		}
		fi, ok := rec.Def.FieldIndex(name)
		if !ok {
			return true, errors.New(errors.MethodError, "type %s has no field %s", rec.Def.Name, name)
		}
		rec.Fields[fi] = newVal

	case bytecode.OpCoerce:
		idx := chunk.ReadUint16(f.ip)
		f.ip += 2
		target := chunk.Constants[idx].(value.Tag)
		v, err := value.Coerce(vm.pop(), target)
		if err != nil {
			return true, err
		}
		vm.push(v)

	default:
		return false, nil
	}
	return true, nil
}

// finalizeArray picks the narrowest homogeneous ElementKind the pushed
// elements support, falling back to ElemAny for a mixed-type literal
// (spec §3.2's storage-kind choice).
func finalizeArray(elems []value.Value) *value.Array {
	kind := value.ElemAny
	if len(elems) > 0 {
		kind = elementKindOf(elems[0].Tag)
		for _, e := range elems[1:] {
			if elementKindOf(e.Tag) != kind {
				kind = value.ElemAny
				break
			}
		}
	}
	arr := value.NewArray(kind, []int{len(elems)})
	for i, e := range elems {
		arr.Set(i, e)
	}
	return arr
}

func elementKindOf(tag value.Tag) value.ElementKind {
	switch {
	case tag == value.TagF64:
		return value.ElemF64
	case tag == value.TagF32:
		return value.ElemF32
	case tag.IsInteger():
		return value.ElemInt
	case tag == value.TagBool:
		return value.ElemBool
	case tag == value.TagChar:
		return value.ElemChar
	case tag == value.TagString:
		return value.ElemString
	default:
		return value.ElemAny
	}
}

func (vm *VM) indexLoad(obj value.Value, idx []value.Value) (value.Value, error) {
	switch obj.Tag {
	case value.TagArray:
		arr := obj.Handle().(*value.Array)
		dims := make([]int, len(idx))
		for i, v := range idx {
			dims[i] = int(v.AsInt())
		}
		lin, err := arr.LinearIndex(dims)
		if err != nil {
			return value.Value{}, err
		}
		return arr.Get(lin)
	case value.TagTuple, value.TagNamedTuple:
		t := obj.Handle().(*value.Tuple)
		i := int(idx[0].AsInt())
		if i < 0 || i >= len(t.Elems) {
			return value.Value{}, errors.New(errors.IndexOutOfBounds, "tuple index %d out of bounds", i)
		}
		return t.Elems[i], nil
	case value.TagRange:
		r := obj.Handle().(*value.Range)
		i := idx[0].AsInt()
		v, err := value.Add(r.Start, mulI64(r.Step, i))
		if err != nil {
			return value.Value{}, err
		}
		return v, nil
	default:
		return value.Value{}, errors.New(errors.TypeError, "%s is not indexable", obj.Tag)
	}
}

func mulI64(a value.Value, n int64) value.Value {
	v, err := value.Mul(a, value.I64(n))
	if err != nil {
		return a
	}
	return v
}

func (vm *VM) indexStore(obj value.Value, idx []value.Value, newVal value.Value) error {
	if obj.Tag != value.TagArray {
		return errors.New(errors.TypeError, "%s does not support indexed assignment", obj.Tag)
	}
	arr := obj.Handle().(*value.Array)
	dims := make([]int, len(idx))
	for i, v := range idx {
		dims[i] = int(v.AsInt())
	}
	lin, err := arr.LinearIndex(dims)
	if err != nil {
		return err
	}
	return arr.Set(lin, newVal)
}

// indexSlice implements `a[lo:hi]` for 1-D arrays: bounds holds exactly
// [lo, hi), both 0-based, matching indexLoad's indexing convention.
func (vm *VM) indexSlice(obj value.Value, bounds []value.Value) (value.Value, error) {
	if obj.Tag != value.TagArray || len(bounds) != 2 {
		return value.Value{}, errors.New(errors.TypeError, "slicing requires a 1-D array and two bounds")
	}
	arr := obj.Handle().(*value.Array)
	lo, hi := int(bounds[0].AsInt()), int(bounds[1].AsInt())
	if lo < 0 || hi > arr.NumElements() || lo > hi {
		return value.Value{}, errors.New(errors.IndexOutOfBounds, "slice [%d:%d] out of bounds for length %d", lo, hi, arr.NumElements())
	}
	elems := make([]value.Value, hi-lo)
	for i := lo; i < hi; i++ {
		v, err := arr.Get(i)
		if err != nil {
			return value.Value{}, err
		}
		elems[i-lo] = v
	}
	return value.Ref(value.TagArray, finalizeArray(elems)), nil
}
