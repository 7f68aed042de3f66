package bytecode

import "encoding/binary"

// DebugInfo stores source location for each bytecode instruction,
// generalized from the teacher's bytecode.DebugInfo.
type DebugInfo struct {
	Line     int
	Column   int
	File     string
	Function string
}

// HandlerSite records the two optional targets a structured-handler
// push instruction carries (spec §4.6.2): catch IP and finally IP,
// either of which may be absent (encoded as -1).
type HandlerSite struct {
	CatchIP, FinallyIP int
}

// Chunk is one function's compiled bytecode: the code stream, its
// constant pool, per-instruction debug info, and the handler sites any
// OpPushHandler at a given code offset refers to.
//
// Grounded on sentra/internal/bytecode/chunk.go, with Constants now
// holding value.Value-shaped entries (via the compiler's own constant
// table) instead of bare interface{}, and HandlerSites added for
// try/catch/finally relocation (spec §4.6.2).
type Chunk struct {
	Code      []byte
	Constants []interface{}
	Debug     []DebugInfo

	// HandlerSites maps the offset of an OpPushHandler's operand bytes
	// (the byte right after the opcode, where the VM's ip stands when it
	// executes the instruction) to its catch/finally targets, so
	// relocation (§4.6.2) can rewrite
	// both atomically when splicing cached bytecode.
	HandlerSites map[int]HandlerSite

	NumSlots int // local slot count (typed-variable frame size)

	// SlotNames maps a source-level variable name to its slot index, for
	// the names that got one (spec §4.6 "Locals": typed-variable frames
	// use slot numbers; untyped/mixed variables use name-keyed maps). A
	// name absent here lives in the frame's name-keyed map instead.
	SlotNames map[string]int
}

func NewChunk() *Chunk {
	return &Chunk{
		Code:         []byte{},
		Constants:    []interface{}{},
		Debug:        []DebugInfo{},
		HandlerSites: make(map[int]HandlerSite),
	}
}

func (c *Chunk) WriteOp(op OpCode) int {
	pos := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Debug = append(c.Debug, DebugInfo{})
	return pos
}

func (c *Chunk) WriteOpWithDebug(op OpCode, debug DebugInfo) int {
	pos := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Debug = append(c.Debug, debug)
	return pos
}

func (c *Chunk) WriteByte(b byte) {
	c.Code = append(c.Code, b)
	c.Debug = append(c.Debug, DebugInfo{})
}

// WriteUint16 writes a big-endian two-byte immediate (jump offsets,
// constant indices beyond 256 entries, slot numbers).
func (c *Chunk) WriteUint16(v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	c.WriteByte(buf[0])
	c.WriteByte(buf[1])
}

func (c *Chunk) PatchUint16(pos int, v uint16) {
	binary.BigEndian.PutUint16(c.Code[pos:pos+2], v)
}

func (c *Chunk) ReadUint16(pos int) uint16 {
	return binary.BigEndian.Uint16(c.Code[pos : pos+2])
}

func (c *Chunk) AddConstant(val interface{}) int {
	c.Constants = append(c.Constants, val)
	return len(c.Constants) - 1
}

func (c *Chunk) GetDebugInfo(ip int) DebugInfo {
	if ip >= 0 && ip < len(c.Debug) {
		return c.Debug[ip]
	}
	return DebugInfo{}
}

// PushHandlerSite records catch/finally targets for the OpPushHandler
// whose operand bytes start at offset pos.
func (c *Chunk) PushHandlerSite(pos int, site HandlerSite) {
	c.HandlerSites[pos] = site
}

// Relocate rewrites every jump immediate and handler-site target by
// `new = old - cachedStart + newStart` (spec §4.6.2), for splicing
// cached bytecode from one offset to another.
func Relocate(code []byte, sites map[int]HandlerSite, cachedStart, newStart int) ([]byte, map[int]HandlerSite) {
	delta := newStart - cachedStart
	out := append([]byte(nil), code...)
	i := 0
	for i < len(out) {
		op := OpCode(out[i])
		i++
		switch op {
		case OpJump, OpJumpIfZero, OpJumpIfEqI64, OpJumpIfNeI64, OpLoop:
			old := int(binary.BigEndian.Uint16(out[i : i+2]))
			binary.BigEndian.PutUint16(out[i:i+2], uint16(old+delta))
			i += 2
		case OpCall, OpCallDynamic:
			i += 3 // func_index/name_ref (uint16) + argc (byte)
		case OpBroadcast:
			i += 3 // op_const_idx (uint16) + argc (byte)
		case OpCallClosure:
			i++ // argc (byte) only, callee came off the stack
		case OpNewArray, OpStructNew:
			i += 2
		case OpLoadSlot, OpStoreSlot, OpGetGlobal, OpSetGlobal, OpDefineGlobal,
			OpLoadName, OpStoreName, OpConstant, OpCoerce, OpPushElem, OpTupleGet,
			OpFieldLoad, OpFieldStore, OpIndexSlice, OpIndexLoad, OpTupleNew,
			OpIsType, OpMakeClosure:
			i += 2
		case OpPushHandler:
			i += 4 // two relocated uint16 targets follow, handled via sites below
		}
	}
	newSites := make(map[int]HandlerSite, len(sites))
	for pos, site := range sites {
		newSites[pos-cachedStart+newStart] = HandlerSite{
			CatchIP:   relocateTarget(site.CatchIP, delta),
			FinallyIP: relocateTarget(site.FinallyIP, delta),
		}
	}
	return out, newSites
}

func relocateTarget(ip, delta int) int {
	if ip < 0 {
		return ip
	}
	return ip + delta
}
