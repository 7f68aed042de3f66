package compiler

import (
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/bytecode"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/types"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

// calleeName returns the identifier name of a call's callee when it is
// a bare ir.Ident (the only shape eligible for method-table
// devirtualization); everything else is called as a closure value.
func calleeName(e ir.Expr) (string, bool) {
	if id, ok := e.(*ir.Ident); ok {
		return id.Name, true
	}
	return "", false
}

// compileCall implements spec §4.6 emission rule 3: specialize to
// Call(func_index, argc) when the method-table lookup yields a unique
// method whose parameter types are supertypes of the inferred argument
// types; else emit CallDynamic. Keyword arguments lower to one trailing
// Dict argument (see compileKeywordTuple); a callee that is not a plain name
// (e.g. a closure value held in a local) is invoked via CallClosure.
func (c *Compiler) compileCall(call *ir.Call) {
	name, isIdent := calleeName(call.Callee)

	if isIdent && name == "compose" && len(call.Args) == 2 && len(call.Keywords) == 0 {
		c.compileExpr(call.Args[0]) // outer
		c.compileExpr(call.Args[1]) // inner
		c.chunk.WriteOp(bytecode.OpMakeComposed)
		return
	}

	if !isIdent {
		c.compileExpr(call.Callee)
		for _, a := range call.Args {
			c.compileExpr(a)
		}
		argc := len(call.Args)
		if len(call.Keywords) > 0 {
			c.compileKeywordTuple(call.Keywords)
			argc++
		}
		c.chunk.WriteOp(bytecode.OpCallClosure)
		c.chunk.WriteByte(byte(argc))
		return
	}

	for _, a := range call.Args {
		c.compileExpr(a)
	}
	argc := len(call.Args)
	if len(call.Keywords) > 0 {
		c.compileKeywordTuple(call.Keywords)
		argc++
	}

	argTypes := make([]types.Type, len(call.Args))
	for i, a := range call.Args {
		argTypes[i] = types.Widen(c.ann.TypeOf(a))
	}
	if m, ok := c.Program.Methods.ResolveStatic(name, argTypes); ok && m.ByteOffset >= 0 {
		c.chunk.WriteOp(bytecode.OpCall)
		c.chunk.WriteUint16(uint16(m.ByteOffset))
		c.chunk.WriteByte(byte(argc))
		return
	}

	nameIdx := c.chunk.AddConstant(name)
	c.chunk.WriteOp(bytecode.OpCallDynamic)
	c.chunk.WriteUint16(uint16(nameIdx))
	c.chunk.WriteByte(byte(argc))
}

// compileKeywordTuple emits keyword arguments as one trailing Dict
// argument (OpDictNew/OpDictSet) keyed by each keyword's name as a
// String; no NamedTuple value is built. A keyword with no expression at
// the call site carries the undefined sentinel as its value; no
// callee-side code checks for that sentinel.
func (c *Compiler) compileKeywordTuple(kws []ir.KeywordArg) {
	c.chunk.WriteOp(bytecode.OpDictNew)
	for _, kw := range kws {
		nameIdx := c.chunk.AddConstant(kw.Name)
		c.chunk.WriteOp(bytecode.OpConstant)
		c.chunk.WriteUint16(uint16(nameIdx))
		if kw.HasExpr {
			c.compileExpr(kw.Value)
		} else {
			undefIdx := c.chunk.AddConstant(value.Undefined())
			c.chunk.WriteOp(bytecode.OpConstant)
			c.chunk.WriteUint16(uint16(undefIdx))
		}
		c.chunk.WriteOp(bytecode.OpDictSet)
	}
}
