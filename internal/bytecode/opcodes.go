// Package bytecode defines the linear instruction set (spec §4.6) the
// compiler emits and the VM executes: a stack-based ISA with typed
// specializations and dynamic fallbacks.
//
// Grounded on sentra/internal/bytecode/opcodes.go (same OpCode byte
// enum idiom), expanded with the typed/dynamic instruction split, the
// structured-handler push/pop forms, and the higher-order helper
// instructions spec §4.6 names.
package bytecode

type OpCode byte

const (
	OpConstant OpCode = iota
	OpNil
	OpPop
	OpDup
	OpSwap

	// Typed arithmetic, specialized on known operand primitive types.
	OpAddI64
	OpSubI64
	OpMulI64
	OpDivI64
	OpAddF64
	OpSubF64
	OpMulF64
	OpDivF64
	OpNegateI64
	OpNegateF64

	// Dynamic arithmetic: dispatches to the method table or the
	// inline numeric fallback at run time (spec §4.6 "Arithmetic").
	OpDynamicAdd
	OpDynamicSub
	OpDynamicMul
	OpDynamicDiv

	// Typed and dynamic comparison.
	OpEqualI64
	OpEqualDynamic
	OpNotEqualDynamic
	OpLessI64
	OpLessDynamic
	OpGreaterI64
	OpGreaterDynamic
	OpLessEqualDynamic
	OpGreaterEqualDynamic

	// Locals: typed-variable frames use slot numbers; untyped/mixed
	// variables use name-keyed dictionaries (spec §4.6 "Locals").
	OpLoadSlot
	OpStoreSlot
	OpLoadName
	OpStoreName
	OpDefineGlobal
	OpGetGlobal
	OpSetGlobal

	// Control flow.
	OpJump
	OpJumpIfZero
	OpJumpIfEqI64
	OpJumpIfNeI64
	OpLoop

	// Structured exception push/pop (spec §4.7.2): each Handler push
	// instruction carries two optional targets (catch IP, finally IP).
	OpPushHandler
	OpPopHandler
	OpRaise
	// OpEndFinally marks the end of a finally block: if the frame has a
	// pending re-raise (the finally was reached via an uncaught raise
	// rather than normal fallthrough), it re-raises once the finally
	// body has run to completion (spec §4.7.2).
	OpEndFinally

	// Calls.
	OpCall         // Call(func_index, argc): static, devirtualized
	OpCallDynamic  // CallDynamic(name_ref, argc): method-table lookup at run time
	OpCallClosure  // CallClosure(argc): callee is a Closure/Function value already on the stack
	OpReturn
	OpMakeClosure
	// OpMakeComposed builds a ComposedFunction from the outer/inner
	// callables the `compose(f, g)` builtin compiles its two arguments
	// into (spec §3.1's tag set).
	OpMakeComposed

	// Container instructions.
	OpNewArray
	OpPushElem
	OpFinalizeArray
	OpIndexLoad
	OpIndexStore
	OpIndexSlice
	OpTupleNew
	OpTupleGet
	OpDictNew
	OpDictGet
	OpDictSet
	OpSetNew
	OpSetAdd

	// Structs.
	OpStructNew
	OpFieldLoad
	OpFieldStore

	// Type coercions between primitive widths (spec §4.6.1).
	OpCoerce

	// Higher-order helpers (spec §4.6 "Higher-order helpers"): carried
	// as instructions so the method-table specializer can be exploited
	// rather than falling back to a pure-source reimplementation.
	OpMapWithFunc
	OpReduceWithFuncs
	OpFilterWithFunc

	// Broadcast fusion (spec §4.6 item 6).
	OpBroadcast
	OpMaterialize

	OpTypeOf
	OpIsType

	OpPrint
)

var names = map[OpCode]string{
	OpConstant: "Constant", OpNil: "Nil", OpPop: "Pop", OpDup: "Dup", OpSwap: "Swap",
	OpAddI64: "AddI64", OpSubI64: "SubI64", OpMulI64: "MulI64", OpDivI64: "DivI64",
	OpAddF64: "AddF64", OpSubF64: "SubF64", OpMulF64: "MulF64", OpDivF64: "DivF64",
	OpNegateI64: "NegateI64", OpNegateF64: "NegateF64",
	OpDynamicAdd: "DynamicAdd", OpDynamicSub: "DynamicSub", OpDynamicMul: "DynamicMul", OpDynamicDiv: "DynamicDiv",
	OpEqualI64: "EqualI64", OpEqualDynamic: "EqualDynamic", OpNotEqualDynamic: "NotEqualDynamic",
	OpLessI64: "LessI64", OpLessDynamic: "LessDynamic",
	OpGreaterI64: "GreaterI64", OpGreaterDynamic: "GreaterDynamic",
	OpLessEqualDynamic: "LessEqualDynamic", OpGreaterEqualDynamic: "GreaterEqualDynamic",
	OpLoadSlot: "LoadSlot", OpStoreSlot: "StoreSlot", OpLoadName: "LoadName", OpStoreName: "StoreName",
	OpDefineGlobal: "DefineGlobal", OpGetGlobal: "GetGlobal", OpSetGlobal: "SetGlobal",
	OpJump: "Jump", OpJumpIfZero: "JumpIfZero", OpJumpIfEqI64: "JumpIfEqI64", OpJumpIfNeI64: "JumpIfNeI64", OpLoop: "Loop",
	OpPushHandler: "PushHandler", OpPopHandler: "PopHandler", OpRaise: "Raise", OpEndFinally: "EndFinally",
	OpCall: "Call", OpCallDynamic: "CallDynamic", OpCallClosure: "CallClosure", OpReturn: "Return", OpMakeClosure: "MakeClosure",
	OpMakeComposed: "MakeComposed",
	OpNewArray: "NewArray", OpPushElem: "PushElem", OpFinalizeArray: "FinalizeArray",
	OpIndexLoad: "IndexLoad", OpIndexStore: "IndexStore", OpIndexSlice: "IndexSlice",
	OpTupleNew: "TupleNew", OpTupleGet: "TupleGet",
	OpDictNew: "DictNew", OpDictGet: "DictGet", OpDictSet: "DictSet",
	OpSetNew: "SetNew", OpSetAdd: "SetAdd",
	OpStructNew: "StructNew", OpFieldLoad: "FieldLoad", OpFieldStore: "FieldStore",
	OpCoerce: "Coerce",
	OpMapWithFunc: "MapWithFunc", OpReduceWithFuncs: "ReduceWithFuncs", OpFilterWithFunc: "FilterWithFunc",
	OpBroadcast: "Broadcast", OpMaterialize: "Materialize",
	OpTypeOf: "TypeOf", OpIsType: "IsType",
	OpPrint: "Print",
}

func (op OpCode) String() string {
	if n, ok := names[op]; ok {
		return n
	}
	return "Unknown"
}
