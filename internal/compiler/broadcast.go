package compiler

import (
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/bytecode"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
)

// compileBroadcast implements spec §4.6 item 6: the `.OP` family lowers
// to materialize(Broadcasted(op, args)). Nested broadcasts fuse:
// an argument that is itself a Broadcast is compiled as the lazy
// Broadcasted node without an intervening Materialize, so the VM's
// OpBroadcast instruction sees the whole fused expression tree and
// allocates the result array once.
func (c *Compiler) compileBroadcast(x *ir.Broadcast) {
	for _, a := range x.Args {
		c.compileFusedOperand(a)
	}
	opIdx := c.chunk.AddConstant(x.Op)
	c.chunk.WriteOp(bytecode.OpBroadcast)
	c.chunk.WriteUint16(uint16(opIdx))
	c.chunk.WriteByte(byte(len(x.Args)))
	c.chunk.WriteOp(bytecode.OpMaterialize)
}

// compileFusedOperand compiles a broadcast argument. A nested
// Broadcast fuses directly (its own OpBroadcast, no Materialize in
// between); anything else compiles normally and is treated as an
// already-materialized operand at broadcast time.
func (c *Compiler) compileFusedOperand(e ir.Expr) {
	if nested, ok := e.(*ir.Broadcast); ok {
		for _, a := range nested.Args {
			c.compileFusedOperand(a)
		}
		opIdx := c.chunk.AddConstant(nested.Op)
		c.chunk.WriteOp(bytecode.OpBroadcast)
		c.chunk.WriteUint16(uint16(opIdx))
		c.chunk.WriteByte(byte(len(nested.Args)))
		return
	}
	c.compileExpr(e)
}
