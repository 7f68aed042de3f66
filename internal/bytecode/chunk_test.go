package bytecode

import "testing"

func TestWriteAndPatchUint16RoundTrips(t *testing.T) {
	c := NewChunk()
	pos := len(c.Code)
	c.WriteUint16(0x1234)
	if got := c.ReadUint16(pos); got != 0x1234 {
		t.Fatalf("ReadUint16 = %#x, want %#x", got, 0x1234)
	}
	c.PatchUint16(pos, 0xABCD)
	if got := c.ReadUint16(pos); got != 0xABCD {
		t.Fatalf("after PatchUint16, ReadUint16 = %#x, want %#x", got, 0xABCD)
	}
}

func TestAddConstantReturnsIncrementingIndices(t *testing.T) {
	c := NewChunk()
	i0 := c.AddConstant("a")
	i1 := c.AddConstant("b")
	if i0 != 0 || i1 != 1 {
		t.Fatalf("AddConstant indices = %d, %d, want 0, 1", i0, i1)
	}
	if c.Constants[0] != "a" || c.Constants[1] != "b" {
		t.Fatalf("Constants = %v, want [a b]", c.Constants)
	}
}

func TestGetDebugInfoOutOfRangeReturnsZeroValue(t *testing.T) {
	c := NewChunk()
	c.WriteOpWithDebug(OpNil, DebugInfo{Line: 7, File: "a.jl"})
	if got := c.GetDebugInfo(0); got.Line != 7 {
		t.Fatalf("GetDebugInfo(0).Line = %d, want 7", got.Line)
	}
	if got := c.GetDebugInfo(99); got != (DebugInfo{}) {
		t.Fatalf("GetDebugInfo(out of range) = %+v, want zero value", got)
	}
}

// Relocate must shift jump-target immediates by delta while leaving
// fixed-width operands that aren't code offsets (func_index, argc) alone.
func TestRelocateShiftsJumpTargetsButNotCallOperands(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpJump)
	c.WriteUint16(5)
	c.WriteOp(OpCall)
	c.WriteUint16(1) // func_index
	c.WriteByte(2)   // argc

	out, _ := Relocate(c.Code, c.HandlerSites, 0, 10)

	gotJumpTarget := (&Chunk{Code: out}).ReadUint16(1)
	if gotJumpTarget != 15 {
		t.Fatalf("relocated jump target = %d, want 15 (5+10)", gotJumpTarget)
	}
	gotFuncIndex := (&Chunk{Code: out}).ReadUint16(4)
	if gotFuncIndex != 1 {
		t.Fatalf("relocated call func_index = %d, want unchanged 1", gotFuncIndex)
	}
}

func TestRelocateShiftsHandlerSiteTargets(t *testing.T) {
	c := NewChunk()
	pos := c.WriteOp(OpPushHandler)
	c.WriteUint16(0) // catch target placeholder
	c.WriteUint16(0) // finally target placeholder
	c.PushHandlerSite(pos, HandlerSite{CatchIP: 20, FinallyIP: -1})

	_, newSites := Relocate(c.Code, c.HandlerSites, 0, 100)

	site, ok := newSites[pos+100]
	if !ok {
		t.Fatalf("expected a relocated handler site at offset %d", pos+100)
	}
	if site.CatchIP != 120 {
		t.Fatalf("relocated CatchIP = %d, want 120", site.CatchIP)
	}
	if site.FinallyIP != -1 {
		t.Fatalf("a -1 (absent) FinallyIP must stay -1 after relocation, got %d", site.FinallyIP)
	}
}
