package compiler

import (
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/bytecode"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/types"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

func annotTagOf(name string) value.Tag {
	switch name {
	case "Int", "Int64":
		return value.TagI64
	case "Int32":
		return value.TagI32
	case "Float64":
		return value.TagF64
	case "Float32":
		return value.TagF32
	case "Bool":
		return value.TagBool
	case "Char":
		return value.TagChar
	case "String":
		return value.TagString
	default:
		return value.TagUndefined // "any" sentinel for struct fields
	}
}

// compileExpr implements spec §4.6 emission rule 1: returns (via the
// instructions it emits) the inferred runtime value-type of what was
// pushed; callers needing a different sink type call coerceTo.
func (c *Compiler) compileExpr(e ir.Expr) {
	switch x := e.(type) {
	case *ir.Literal:
		idx := c.chunk.AddConstant(x.Value)
		c.chunk.WriteOp(bytecode.OpConstant)
		c.chunk.WriteUint16(uint16(idx))

	case *ir.Ident:
		c.loadLocal(x.Name)

	case *ir.Binary:
		c.compileBinary(x)

	case *ir.Unary:
		c.compileExpr(x.Operand)
		if x.Op == "-" {
			if tag, ok := types.ToRuntimeTag(c.ann.TypeOf(x.Operand)); ok && tag == value.TagI64 {
				c.chunk.WriteOp(bytecode.OpNegateI64)
			} else if ok && tag == value.TagF64 {
				c.chunk.WriteOp(bytecode.OpNegateF64)
			} else {
				zeroIdx := c.chunk.AddConstant(value.I64(0))
				c.chunk.WriteOp(bytecode.OpConstant)
				c.chunk.WriteUint16(uint16(zeroIdx))
				c.chunk.WriteOp(bytecode.OpSwap)
				c.chunk.WriteOp(bytecode.OpDynamicSub) // 0 - x pattern, dynamic fallback
			}
		}

	case *ir.IsaCheck:
		c.compileExpr(x.Subject)
		idx := c.chunk.AddConstant(x.TypeRef)
		c.chunk.WriteOp(bytecode.OpIsType)
		c.chunk.WriteUint16(uint16(idx))

	case *ir.Call:
		c.compileCall(x)

	case *ir.FieldAccess:
		c.compileExpr(x.Object)
		idx := c.chunk.AddConstant(x.Field)
		c.chunk.WriteOp(bytecode.OpFieldLoad)
		c.chunk.WriteUint16(uint16(idx))

	case *ir.Index:
		c.compileExpr(x.Object)
		for _, idxExpr := range x.Indices {
			c.compileExpr(idxExpr)
		}
		c.chunk.WriteOp(bytecode.OpIndexLoad)
		c.chunk.WriteUint16(uint16(len(x.Indices)))

	case *ir.ArrayLit:
		c.chunk.WriteOp(bytecode.OpNewArray)
		c.chunk.WriteUint16(uint16(len(x.Elements)))
		for _, el := range x.Elements {
			c.compileExpr(el)
			c.chunk.WriteOp(bytecode.OpPushElem)
		}
		c.chunk.WriteOp(bytecode.OpFinalizeArray)

	case *ir.TupleLit:
		for _, el := range x.Elements {
			c.compileExpr(el)
		}
		c.chunk.WriteOp(bytecode.OpTupleNew)
		c.chunk.WriteUint16(uint16(len(x.Elements)))

	case *ir.DictLit:
		c.chunk.WriteOp(bytecode.OpDictNew)
		for i := range x.Keys {
			c.compileExpr(x.Keys[i])
			c.compileExpr(x.Vals[i])
			c.chunk.WriteOp(bytecode.OpDictSet)
		}

	case *ir.Broadcast:
		c.compileBroadcast(x)

	case *ir.FuncLit:
		c.compileClosureLit(x)
	}
}

// compileBinary implements spec §4.6 emission rule 2: specialize when
// both sides are known primitive numeric of the same kind, else emit
// the dynamic variant.
func (c *Compiler) compileBinary(x *ir.Binary) {
	c.compileExpr(x.Left)
	c.compileExpr(x.Right)

	lt, rt := c.ann.TypeOf(x.Left), c.ann.TypeOf(x.Right)
	ltag, lok := types.ToRuntimeTag(types.Widen(lt))
	rtag, rok := types.ToRuntimeTag(types.Widen(rt))
	sameNumeric := lok && rok && ltag == rtag && ltag.IsNumeric()

	switch x.Op {
	case "+":
		c.emitSpecializedOrDynamic(sameNumeric, ltag, bytecode.OpAddI64, bytecode.OpAddF64, bytecode.OpDynamicAdd)
	case "-":
		c.emitSpecializedOrDynamic(sameNumeric, ltag, bytecode.OpSubI64, bytecode.OpSubF64, bytecode.OpDynamicSub)
	case "*":
		c.emitSpecializedOrDynamic(sameNumeric, ltag, bytecode.OpMulI64, bytecode.OpMulF64, bytecode.OpDynamicMul)
	case "/":
		c.emitSpecializedOrDynamic(sameNumeric, ltag, bytecode.OpDivI64, bytecode.OpDivF64, bytecode.OpDynamicDiv)
	case "==":
		c.emitCompare(sameNumeric, ltag, bytecode.OpEqualI64, bytecode.OpEqualDynamic)
	case "!=":
		c.chunk.WriteOp(bytecode.OpNotEqualDynamic)
	case "<":
		c.emitCompare(sameNumeric, ltag, bytecode.OpLessI64, bytecode.OpLessDynamic)
	case ">":
		c.emitCompare(sameNumeric, ltag, bytecode.OpGreaterI64, bytecode.OpGreaterDynamic)
	case "<=":
		c.chunk.WriteOp(bytecode.OpLessEqualDynamic)
	case ">=":
		c.chunk.WriteOp(bytecode.OpGreaterEqualDynamic)
	}
}

func (c *Compiler) emitSpecializedOrDynamic(sameNumeric bool, tag value.Tag, i64op, f64op, dynOp bytecode.OpCode) {
	switch {
	case sameNumeric && tag == value.TagI64:
		c.chunk.WriteOp(i64op)
	case sameNumeric && tag == value.TagF64:
		c.chunk.WriteOp(f64op)
	default:
		c.chunk.WriteOp(dynOp)
	}
}

func (c *Compiler) emitCompare(sameNumeric bool, tag value.Tag, i64op, dynOp bytecode.OpCode) {
	if sameNumeric && tag == value.TagI64 {
		c.chunk.WriteOp(i64op)
		return
	}
	c.chunk.WriteOp(dynOp)
}

// coerceTo implements spec §4.6.1's matrix by emitting an OpCoerce
// instruction carrying the target tag, when the sink context demands a
// type other than what compileExpr already pushed.
func (c *Compiler) coerceTo(pushed types.Type, target value.Tag) {
	if tag, ok := types.ToRuntimeTag(types.Widen(pushed)); ok && tag == target {
		return // identity coercion: no code (spec §4.6.1 "Anything -> Any")
	}
	idx := c.chunk.AddConstant(target)
	c.chunk.WriteOp(bytecode.OpCoerce)
	c.chunk.WriteUint16(uint16(idx))
}

// compileClosureLit compiles a function literal and emits OpMakeClosure.
// At run time the VM captures the creating frame's name-keyed locals
// (plus that frame's own captures) as name->value pairs; locals held in
// typed slots are not captured. Captured values are copies: no one-slot
// Array cell is built, so rebinding a captured name in either frame is
// not seen by the other.
func (c *Compiler) compileClosureLit(x *ir.FuncLit) {
	sub := &Compiler{Program: c.Program, Interp: c.Interp, structs: c.structs}
	fn := &ir.FuncDecl{Params: x.Params, Defaults: x.Defaults, Body: x.Body}
	idx := sub.CompileFunction(fn, nil)
	c.chunk.WriteOp(bytecode.OpMakeClosure)
	c.chunk.WriteUint16(uint16(idx))
}
