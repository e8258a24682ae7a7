/* Copyright (c) 2017 Jeffrey Massung
 *
 * This software is provided 'as-is', without any express or implied
 * warranty.  In no event will the authors be held liable for any damages
 * arising from the use of this software.
 *
 * Permission is granted to anyone to use this software for any purpose,
 * including commercial applications, and to alter it and redistribute it
 * freely, subject to the following restrictions:
 *
 * 1. The origin of this software must not be misrepresented; you must not
 *    claim that you wrote the original software. If you use this software
 *    in a product, an acknowledgment in the product documentation would be
 *    appreciated but is not required.
 *
 * 2. Altered source versions must be plainly marked as such, and must not be
 *    misrepresented as being the original software.
 *
 * 3. This notice may not be removed or altered from any source distribution.
 */

package jit

// Emitter appends 32-bit x86 instructions to the cache's current region.
// Guest state lives at fixed host addresses, so nearly everything is a
// memory op with an absolute moffs/disp32 operand; EAX is the only
// register used and is caller-saved under CDECL.
type Emitter struct {
	c     *Cache
	abi   *ABI
	tramp *Trampoline
}

// NewEmitter creates an emitter bound to a cache and the ABI words its
// interrupt stubs write.
func NewEmitter(c *Cache, abi *ABI, tramp *Trampoline) *Emitter {
	return &Emitter{c: c, abi: abi, tramp: tramp}
}

// interruptResumeBytes is the size of the stub emitted by InterruptResume.
const interruptResumeBytes = 39

// mem8 emits "op byte [addr]" for single-(opcode+ModRM) encodings with the
// disp32 addressing form.
func (e *Emitter) mem8(op, modrm byte, addr uint32) {
	e.c.WriteU8(op)
	e.c.WriteU8(modrm)
	e.c.WriteU32(addr)
}

// MovMem8Imm8 emits MOV byte [addr], v.
func (e *Emitter) MovMem8Imm8(addr uint32, v byte) {
	e.mem8(0xC6, 0x05, addr)
	e.c.WriteU8(v)
}

// MovMem16Imm16 emits MOV word [addr], v.
func (e *Emitter) MovMem16Imm16(addr uint32, v uint16) {
	e.c.WriteU8(0x66)
	e.mem8(0xC7, 0x05, addr)
	e.c.WriteU16(v)
}

// MovMem32Imm32 emits MOV dword [addr], v.
func (e *Emitter) MovMem32Imm32(addr uint32, v uint32) {
	e.mem8(0xC7, 0x05, addr)
	e.c.WriteU32(v)
}

// MovALMem8 emits MOV AL, [addr].
func (e *Emitter) MovALMem8(addr uint32) {
	e.c.WriteU8(0xA0)
	e.c.WriteU32(addr)
}

// MovMem8AL emits MOV [addr], AL.
func (e *Emitter) MovMem8AL(addr uint32) {
	e.c.WriteU8(0xA2)
	e.c.WriteU32(addr)
}

// MovMem16AX emits MOV [addr], AX.
func (e *Emitter) MovMem16AX(addr uint32) {
	e.c.WriteU8(0x66)
	e.c.WriteU8(0xA3)
	e.c.WriteU32(addr)
}

// MovMem32EAX emits MOV [addr], EAX.
func (e *Emitter) MovMem32EAX(addr uint32) {
	e.c.WriteU8(0xA3)
	e.c.WriteU32(addr)
}

// MovzxEAXMem8 emits MOVZX EAX, byte [addr].
func (e *Emitter) MovzxEAXMem8(addr uint32) {
	e.c.WriteU8(0x0F)
	e.mem8(0xB6, 0x05, addr)
}

// MovzxEAXMem16Scaled emits MOVZX EAX, word [EAX*2 + base].
func (e *Emitter) MovzxEAXMem16Scaled(base uint32) {
	e.c.WriteU8(0x0F)
	e.c.WriteU8(0xB7)
	e.c.WriteU8(0x04)
	e.c.WriteU8(0x45)
	e.c.WriteU32(base)
}

// MovMem16ScaledImm16 emits MOV word [EAX*2 + base], v.
func (e *Emitter) MovMem16ScaledImm16(base uint32, v uint16) {
	e.c.WriteU8(0x66)
	e.c.WriteU8(0xC7)
	e.c.WriteU8(0x04)
	e.c.WriteU8(0x45)
	e.c.WriteU32(base)
	e.c.WriteU16(v)
}

// AddEAXImm32 emits ADD EAX, v.
func (e *Emitter) AddEAXImm32(v uint32) {
	e.c.WriteU8(0x05)
	e.c.WriteU32(v)
}

// ImulEAXImm8 emits IMUL EAX, EAX, v.
func (e *Emitter) ImulEAXImm8(v byte) {
	e.c.WriteU8(0x6B)
	e.c.WriteU8(0xC0)
	e.c.WriteU8(v)
}

// AddMem8AL emits ADD [addr], AL.
func (e *Emitter) AddMem8AL(addr uint32) {
	e.mem8(0x00, 0x05, addr)
}

// AddMem8Imm8 emits ADD byte [addr], v.
func (e *Emitter) AddMem8Imm8(addr uint32, v byte) {
	e.mem8(0x80, 0x05, addr)
	e.c.WriteU8(v)
}

// AddMem16AX emits ADD [addr], AX.
func (e *Emitter) AddMem16AX(addr uint32) {
	e.c.WriteU8(0x66)
	e.mem8(0x01, 0x05, addr)
}

// SubMem8AL emits SUB [addr], AL.
func (e *Emitter) SubMem8AL(addr uint32) {
	e.mem8(0x28, 0x05, addr)
}

// SubALMem8 emits SUB AL, [addr].
func (e *Emitter) SubALMem8(addr uint32) {
	e.mem8(0x2A, 0x05, addr)
}

// OrMem8AL emits OR [addr], AL.
func (e *Emitter) OrMem8AL(addr uint32) {
	e.mem8(0x08, 0x05, addr)
}

// AndMem8AL emits AND [addr], AL.
func (e *Emitter) AndMem8AL(addr uint32) {
	e.mem8(0x20, 0x05, addr)
}

// XorMem8AL emits XOR [addr], AL.
func (e *Emitter) XorMem8AL(addr uint32) {
	e.mem8(0x30, 0x05, addr)
}

// CmpMem8Imm8 emits CMP byte [addr], v.
func (e *Emitter) CmpMem8Imm8(addr uint32, v byte) {
	e.mem8(0x80, 0x3D, addr)
	e.c.WriteU8(v)
}

// CmpMem8AL emits CMP [addr], AL.
func (e *Emitter) CmpMem8AL(addr uint32) {
	e.mem8(0x38, 0x05, addr)
}

// CmpMem8IndexedImm8 emits CMP byte [EAX + base], v.
func (e *Emitter) CmpMem8IndexedImm8(base uint32, v byte) {
	e.c.WriteU8(0x80)
	e.c.WriteU8(0x3C)
	e.c.WriteU8(0x05)
	e.c.WriteU32(base)
	e.c.WriteU8(v)
}

// ShrMem8 emits SHR byte [addr], 1.
func (e *Emitter) ShrMem8(addr uint32) {
	e.mem8(0xD0, 0x2D, addr)
}

// ShlMem8 emits SHL byte [addr], 1.
func (e *Emitter) ShlMem8(addr uint32) {
	e.mem8(0xD0, 0x25, addr)
}

// SetcMem8 emits SETC byte [addr].
func (e *Emitter) SetcMem8(addr uint32) {
	e.c.WriteU8(0x0F)
	e.mem8(0x92, 0x05, addr)
}

// SetaeMem8 emits SETAE byte [addr] (carry clear, i.e. no borrow).
func (e *Emitter) SetaeMem8(addr uint32) {
	e.c.WriteU8(0x0F)
	e.mem8(0x93, 0x05, addr)
}

// IncMem8 emits INC byte [addr].
func (e *Emitter) IncMem8(addr uint32) {
	e.mem8(0xFE, 0x05, addr)
}

// DecMem8 emits DEC byte [addr].
func (e *Emitter) DecMem8(addr uint32) {
	e.mem8(0xFE, 0x0D, addr)
}

// JmpIndirect emits JMP [addr]. Used with a jump-table target word so the
// destination can be repatched without touching the jump site.
func (e *Emitter) JmpIndirect(addr uint32) {
	e.mem8(0xFF, 0x25, addr)
}

// CallIndirect emits CALL [addr].
func (e *Emitter) CallIndirect(addr uint32) {
	e.mem8(0xFF, 0x15, addr)
}

// Je32 emits JE rel32 with a zero displacement and returns the host
// address of the rel32 slot for a deferred conditional patch.
func (e *Emitter) Je32() uint32 {
	return e.jcc32(0x84)
}

// Jne32 emits JNE rel32 with a zero displacement and returns the host
// address of the rel32 slot.
func (e *Emitter) Jne32() uint32 {
	return e.jcc32(0x85)
}

func (e *Emitter) jcc32(cc byte) uint32 {
	e.c.WriteU8(0x0F)
	e.c.WriteU8(cc)

	slot := e.c.CurrentEndAddr()
	e.c.WriteU32(0)

	return slot
}

// InterruptExit emits a terminal interrupt stub: store the status and
// Param1, then jump back to the trampoline epilogue. Control does not
// return to this block.
func (e *Emitter) InterruptExit(status byte, param1 uint32) {
	e.MovMem8Imm8(e.abi.StatusAddr(), status)
	e.MovMem32Imm32(e.abi.Param1Addr(), param1)
	e.JmpIndirect(e.tramp.ReturnPtrAddr())
}

// InterruptExitDynamic emits a terminal interrupt stub for a Param1 the
// preceding code already stored at run time.
func (e *Emitter) InterruptExitDynamic(status byte) {
	e.MovMem8Imm8(e.abi.StatusAddr(), status)
	e.JmpIndirect(e.tramp.ReturnPtrAddr())
}

// InterruptResume emits a mid-block interrupt stub. The EIP helper yields
// the current instruction pointer in EAX, which is advanced past the stub
// and stored into Param2 so the dispatcher can resume right after it.
func (e *Emitter) InterruptResume(status byte, param1 uint32) {
	e.CallIndirect(e.tramp.EIPHelperPtrAddr())

	// EAX holds the address of the next instruction; the continuation is
	// the remainder of the stub past it
	e.AddEAXImm32(33)
	e.MovMem32EAX(e.abi.Param2Addr())

	e.MovMem8Imm8(e.abi.StatusAddr(), status)
	e.MovMem32Imm32(e.abi.Param1Addr(), param1)
	e.JmpIndirect(e.tramp.ReturnPtrAddr())
}
