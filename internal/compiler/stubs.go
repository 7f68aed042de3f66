package compiler

import (
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/bytecode"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/types"
)

// emitDefaultArgStubs implements spec §4.6 item 4: for n parameters
// with k trailing defaulted ones, emit k stub methods of arities
// n-1..n-k. Each stub evaluates the missing trailing defaults, in
// lexical (left-to-right) order, using whatever earlier parameters are
// already bound, then tail-calls the primary with the full n args.
func (c *Compiler) emitDefaultArgStubs(fn *ir.FuncDecl, primaryIdx int) {
	n := len(fn.Params)
	k := len(fn.Defaults)
	if k == 0 {
		return
	}
	firstDefault := n - k

	for arity := n - 1; arity >= firstDefault; arity-- {
		idx := c.emitOneDefaultStub(fn, primaryIdx, arity, firstDefault, n)
		if fn.Name != "" {
			c.registerStubMethod(fn, arity, idx)
		}
	}
}

// emitOneDefaultStub compiles a single stub body of the given arity:
// its frame has n slots even though it is called with only arity
// arguments, so the VM's calling convention must zero/leave the
// trailing slots undefined on entry (spec §4.6 "Locals").
func (c *Compiler) emitOneDefaultStub(fn *ir.FuncDecl, primaryIdx, arity, firstDefault, n int) int {
	scope := &localScope{slotOf: make(map[string]int), dynamic: make(map[string]bool)}
	for i, p := range fn.Params {
		scope.slotOf[p.Name] = i
	}
	scope.slotCount = n

	sub := &Compiler{
		Program: c.Program,
		Interp:  c.Interp,
		chunk:   bytecode.NewChunk(),
		ann:     newEmptyAnnotation(),
		locals:  scope,
		structs: c.structs,
	}

	for j := arity; j < n; j++ {
		sub.compileExpr(fn.Defaults[j-firstDefault])
		sub.chunk.WriteOp(bytecode.OpStoreSlot)
		sub.chunk.WriteUint16(uint16(j))
	}
	for i := 0; i < n; i++ {
		sub.chunk.WriteOp(bytecode.OpLoadSlot)
		sub.chunk.WriteUint16(uint16(i))
	}
	sub.chunk.WriteOp(bytecode.OpCall)
	sub.chunk.WriteUint16(uint16(primaryIdx))
	sub.chunk.WriteByte(byte(n))
	sub.chunk.WriteOp(bytecode.OpReturn)
	sub.chunk.NumSlots = n
	sub.chunk.SlotNames = make(map[string]int, n)
	for name, slot := range scope.slotOf {
		sub.chunk.SlotNames[name] = slot
	}

	return c.Program.addFunction(&FunctionEntry{
		Name:       fn.Name,
		Chunk:      sub.chunk,
		Arity:      arity,
		ParamNames: paramNames(fn.Params[:arity]),
	})
}

// registerStubMethod adds the stub as its own method of the reduced
// arity, so both static and dynamic dispatch can find it (spec §4.4
// "every applicable signature is a method"). Stub parameters dispatch
// as Any: the defaulted arguments they omit are the part that varies,
// not the ones a caller supplies, so no specificity is lost by this.
func (c *Compiler) registerStubMethod(fn *ir.FuncDecl, arity, stubIdx int) {
	stubFn := &ir.FuncDecl{Name: fn.Name, Params: fn.Params[:arity]}
	paramTypes := make([]types.Type, arity)
	for i := range paramTypes {
		paramTypes[i] = types.Any
	}
	m := c.RegisterMethod(fn.Name, stubFn, paramTypes, types.Any)
	m.ByteOffset = stubIdx
}

// newEmptyAnnotation gives a stub compile pass a TypeOf that always
// answers Top, since default-argument expressions are compiled without
// running the abstract interpreter over them (spec §4.6 item 4's stubs
// only need to evaluate and forward values, not specialize on types).
func newEmptyAnnotation() *annotationShim { return &annotationShim{} }

// annotationShim satisfies the TypeOf-only surface compileExpr/compileBinary
// need from *interp.Annotation without depending on interp internals.
type annotationShim struct{}

func (a *annotationShim) TypeOf(ir.Expr) types.Type { return types.Top }
