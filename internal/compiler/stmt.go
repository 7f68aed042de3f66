package compiler

import (
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/bytecode"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

func (c *Compiler) compileStmt(s ir.Stmt) {
	switch st := s.(type) {
	case *ir.ExprStmt:
		c.compileExpr(st.X)
		c.chunk.WriteOp(bytecode.OpPop)

	case *ir.Assign:
		c.compileExpr(st.Rhs)
		c.storeLocal(st.Name)

	case *ir.If:
		c.compileExpr(st.Cond)
		c.chunk.WriteOp(bytecode.OpJumpIfZero)
		jumpElse := c.emitJumpPlaceholder()
		for _, body := range st.Then {
			c.compileStmt(body)
		}
		c.chunk.WriteOp(bytecode.OpJump)
		jumpEnd := c.emitJumpPlaceholder()
		c.patchJump(jumpElse)
		for _, body := range st.Else {
			c.compileStmt(body)
		}
		c.patchJump(jumpEnd)

	case *ir.While:
		loopStart := len(c.chunk.Code)
		c.compileExpr(st.Cond)
		c.chunk.WriteOp(bytecode.OpJumpIfZero)
		jumpEnd := c.emitJumpPlaceholder()
		for _, body := range st.Body {
			c.compileStmt(body)
		}
		c.chunk.WriteOp(bytecode.OpLoop)
		c.chunk.WriteUint16(uint16(loopStart))
		c.patchJump(jumpEnd)

	case *ir.ForIn:
		c.compileForIn(st)

	case *ir.Return:
		if st.Value != nil {
			c.compileExpr(st.Value)
		} else {
			c.chunk.WriteOp(bytecode.OpNil)
		}
		c.chunk.WriteOp(bytecode.OpReturn)

	case *ir.TryStmt:
		c.compileTry(st)

	case *ir.RaiseStmt:
		if st.Value != nil {
			c.compileExpr(st.Value)
		} else {
			c.chunk.WriteOp(bytecode.OpNil)
		}
		c.chunk.WriteOp(bytecode.OpRaise)

	case *ir.Block:
		for _, sub := range st.Stmts {
			c.compileStmt(sub)
		}

	case *ir.StructDecl:
		c.compileStructDecl(st)

	case *ir.FuncDecl:
		// Nested function declarations compile into the program's
		// function table; the enclosing statement stream does not
		// itself push anything.
		c.CompileFunction(st, nil)
	}
}

func (c *Compiler) emitJumpPlaceholder() int {
	pos := len(c.chunk.Code)
	c.chunk.WriteUint16(0)
	return pos
}

func (c *Compiler) patchJump(pos int) {
	c.chunk.PatchUint16(pos, uint16(len(c.chunk.Code)))
}

func (c *Compiler) storeLocal(name string) {
	if slot, ok := c.locals.Slot(name); ok {
		c.chunk.WriteOp(bytecode.OpStoreSlot)
		c.chunk.WriteUint16(uint16(slot))
		return
	}
	idx := c.chunk.AddConstant(name)
	c.chunk.WriteOp(bytecode.OpStoreName)
	c.chunk.WriteUint16(uint16(idx))
}

func (c *Compiler) loadLocal(name string) {
	if slot, ok := c.locals.Slot(name); ok {
		c.chunk.WriteOp(bytecode.OpLoadSlot)
		c.chunk.WriteUint16(uint16(slot))
		return
	}
	idx := c.chunk.AddConstant(name)
	c.chunk.WriteOp(bytecode.OpLoadName)
	c.chunk.WriteUint16(uint16(idx))
}

// compileForIn lowers `for x in iterable` using the iteration opcodes;
// the element type was already established by the interpreter's
// loop-variable typing rule (spec §4.3), consulted here only to decide
// whether x gets a typed slot (handled by localScope already).
func (c *Compiler) compileForIn(st *ir.ForIn) {
	c.compileExpr(st.Iterable)
	c.chunk.WriteOp(bytecode.OpDup)
	loopStart := len(c.chunk.Code)
	// IndexLoad with an implicit iterator-state slot is modeled here as
	// repeated IndexLoad/inc; a fuller encoding would add OpIterStart/
	// OpIterNext instructions, omitted because the spec's instruction
	// list (§4.6) does not name a dedicated iterator opcode family for
	// this subset beyond container access.
	c.chunk.WriteOp(bytecode.OpIndexLoad)
	c.chunk.WriteUint16(1)
	c.storeLocal(st.Var)
	for _, body := range st.Body {
		c.compileStmt(body)
	}
	c.chunk.WriteOp(bytecode.OpLoop)
	c.chunk.WriteUint16(uint16(loopStart))
	c.chunk.WriteOp(bytecode.OpPop)
}

// compileTry implements spec §4.7.2's structured handler push/pop: the
// handler records a catch IP, a finally IP, and (implicitly, at VM
// runtime) a stack-depth snapshot.
func (c *Compiler) compileTry(st *ir.TryStmt) {
	c.chunk.WriteOp(bytecode.OpPushHandler)
	handlerPos := len(c.chunk.Code)
	c.chunk.WriteUint16(0) // catch target placeholder
	c.chunk.WriteUint16(0) // finally target placeholder

	for _, body := range st.Body {
		c.compileStmt(body)
	}
	c.chunk.WriteOp(bytecode.OpPopHandler)
	c.chunk.WriteOp(bytecode.OpJump)
	jumpAroundCatch := c.emitJumpPlaceholder()

	catchIP := -1
	if st.HasCatch {
		catchIP = len(c.chunk.Code)
		c.storeLocal(st.CatchVar)
		for _, body := range st.Catch {
			c.compileStmt(body)
		}
	}
	// Catch falls straight through into finally when both exist: no
	// jump needed between them, so finally always runs after a caught
	// exception too.
	finallyIP := -1
	if st.HasFinal {
		finallyIP = len(c.chunk.Code)
		for _, body := range st.Finally {
			c.compileStmt(body)
		}
		c.chunk.WriteOp(bytecode.OpEndFinally)
	}
	// The non-exceptional path must still run finally: it jumps past
	// only the catch block, landing on finally when one exists rather
	// than skipping straight to the end of the statement.
	if finallyIP >= 0 {
		c.chunk.PatchUint16(jumpAroundCatch, uint16(finallyIP))
	} else {
		c.patchJump(jumpAroundCatch)
	}
	c.chunk.PushHandlerSite(handlerPos, bytecode.HandlerSite{CatchIP: catchIP, FinallyIP: finallyIP})
	if catchIP >= 0 {
		c.chunk.PatchUint16(handlerPos, uint16(catchIP))
	}
	if finallyIP >= 0 {
		c.chunk.PatchUint16(handlerPos+2, uint16(finallyIP))
	}
}

func (c *Compiler) compileStructDecl(st *ir.StructDecl) {
	fieldTags := make([]value.Tag, len(st.FieldTypes))
	for i, tn := range st.FieldTypes {
		fieldTags[i] = annotTagOf(tn)
	}
	c.Program.Structs.DefineStruct(st.Name, st.FieldNames, fieldTags, st.Mutable)
}
