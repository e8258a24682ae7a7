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

import (
	"unsafe"

	"super8/chip8"
)

// maxEmitBytes is a conservative bound on the native code one guest
// instruction can produce.
const maxEmitBytes = 64

// closeThreshold is where the translator closes a region instead of
// starting another instruction. The margin leaves room for the
// instructions a pending conditional patch still requires.
const closeThreshold = EmitCeiling - 4*maxEmitBytes

// Dynarec walks guest instructions and emits their x86 translation into
// the cache's current region.
type Dynarec struct {
	st   *chip8.State
	c    *Cache
	j    *Jumps
	e    *Emitter
	logf Logf
}

// NewDynarec creates a translator over a guest machine and the cache and
// jump tables it fills.
func NewDynarec(st *chip8.State, c *Cache, j *Jumps, e *Emitter, logf Logf) *Dynarec {
	if logf == nil {
		logf = nopLog
	}

	return &Dynarec{st: st, c: c, j: j, e: e, logf: logf}
}

// guest state addresses emitted code reads and writes

func (d *Dynarec) vAddr(x uint16) uint32 {
	return addr32(unsafe.Pointer(&d.st.V[x&0xF]))
}

func (d *Dynarec) flagAddr() uint32 {
	return d.vAddr(0xF)
}

func (d *Dynarec) iAddr() uint32 {
	return addr32(unsafe.Pointer(&d.st.I))
}

func (d *Dynarec) spAddr() uint32 {
	return addr32(unsafe.Pointer(&d.st.SP))
}

func (d *Dynarec) stackAddr() uint32 {
	return addr32(unsafe.Pointer(&d.st.Stack[0]))
}

func (d *Dynarec) dtAddr() uint32 {
	return addr32(unsafe.Pointer(&d.st.DT))
}

func (d *Dynarec) stAddr() uint32 {
	return addr32(unsafe.Pointer(&d.st.ST))
}

func (d *Dynarec) keysAddr() uint32 {
	return addr32(unsafe.Pointer(&d.st.Keys[0]))
}

// Translate recompiles guest code starting at pc until the block ends or
// the region's emission ceiling is near. The guest PC is left one past the
// last translated instruction.
func (d *Dynarec) Translate(pc uint16) error {
	index, err := d.c.WritableByGuestPC(pc)
	if err != nil {
		return err
	}

	d.c.Switch(index)

	// resume at the end of any pre-existing translation
	d.st.PC = d.c.Current().NextPC()

	ended := false

	for {
		r := d.c.Current()

		// close the region once the block ended or the ceiling is near,
		// but never while a conditional patch is still counting down
		if (ended || r.Cursor >= closeThreshold) && d.j.MinCycles() == 0 {
			r.StopWrite = true
			break
		}

		inst := d.st.Fetch(d.st.PC)

		end, err := d.translate(inst, d.st.PC)
		if err != nil {
			return err
		}

		ended = ended || end

		d.c.SetEndPC(d.st.PC)
		d.st.PC += 2

		// countdowns tick once per guest instruction, then expired
		// branches are patched to the current emit cursor
		d.j.Decrement()
		d.j.ResolveConditionals(d.c.CurrentEndAddr())
	}

	return nil
}

// translate emits one guest instruction. It returns true when the
// instruction ends the basic block.
func (d *Dynarec) translate(inst, pc uint16) (bool, error) {
	a := inst & 0xFFF
	b := byte(inst & 0xFF)
	x := inst >> 8 & 0xF
	y := inst >> 4 & 0xF

	switch {
	case inst == 0x00E0:
		// CLS via the interpreter fallback
		d.e.InterruptResume(UseInterpreter, uint32(inst))

	case inst == 0x00EE:
		// RET pops the return PC and asks the dispatcher to land there
		d.e.DecMem8(d.spAddr())
		d.e.MovzxEAXMem8(d.spAddr())
		d.e.MovzxEAXMem16Scaled(d.stackAddr())
		d.e.MovMem32EAX(d.c.abi.Param1Addr())
		d.e.InterruptExitDynamic(PrepareForIndirectJump)
		return true, nil

	case inst&0xF000 == 0x1000:
		// JP addr is memory-indirect through the jump table
		index, err := d.j.GetOrRecord(a)
		if err != nil {
			return false, err
		}

		// a backward edge closes a loop; yield to the dispatcher there
		// so timers and events keep running
		if a <= pc {
			d.e.InterruptResume(TimerTick, 0)
		}

		d.e.JmpIndirect(d.j.TargetAddr(index))
		return true, nil

	case inst&0xF000 == 0x2000:
		// CALL pushes the return PC, then defers to the dispatcher so
		// the target can be translated before entry
		index, err := d.j.GetOrRecord(a)
		if err != nil {
			return false, err
		}

		d.e.MovzxEAXMem8(d.spAddr())
		d.e.MovMem16ScaledImm16(d.stackAddr(), pc+2)
		d.e.IncMem8(d.spAddr())
		d.e.InterruptExit(PrepareForJump, uint32(index))
		return true, nil

	case inst&0xF000 == 0x3000:
		// SE Vx, kk
		d.e.CmpMem8Imm8(d.vAddr(x), b)
		d.skip(pc)

	case inst&0xF000 == 0x4000:
		// SNE Vx, kk
		d.e.CmpMem8Imm8(d.vAddr(x), b)
		d.skipNot(pc)

	case inst&0xF00F == 0x5000:
		// SE Vx, Vy
		d.e.MovALMem8(d.vAddr(y))
		d.e.CmpMem8AL(d.vAddr(x))
		d.skip(pc)

	case inst&0xF00F == 0x9000:
		// SNE Vx, Vy
		d.e.MovALMem8(d.vAddr(y))
		d.e.CmpMem8AL(d.vAddr(x))
		d.skipNot(pc)

	case inst&0xF000 == 0x6000:
		// LD Vx, kk
		d.e.MovMem8Imm8(d.vAddr(x), b)

	case inst&0xF000 == 0x7000:
		// ADD Vx, kk (no carry flag)
		d.e.AddMem8Imm8(d.vAddr(x), b)

	case inst&0xF00F == 0x8000:
		// LD Vx, Vy
		d.e.MovALMem8(d.vAddr(y))
		d.e.MovMem8AL(d.vAddr(x))

	case inst&0xF00F == 0x8001:
		// OR Vx, Vy
		d.e.MovALMem8(d.vAddr(y))
		d.e.OrMem8AL(d.vAddr(x))

	case inst&0xF00F == 0x8002:
		// AND Vx, Vy
		d.e.MovALMem8(d.vAddr(y))
		d.e.AndMem8AL(d.vAddr(x))

	case inst&0xF00F == 0x8003:
		// XOR Vx, Vy
		d.e.MovALMem8(d.vAddr(y))
		d.e.XorMem8AL(d.vAddr(x))

	case inst&0xF00F == 0x8004:
		// ADD Vx, Vy with carry into VF
		d.e.MovALMem8(d.vAddr(y))
		d.e.AddMem8AL(d.vAddr(x))
		d.e.SetcMem8(d.flagAddr())

	case inst&0xF00F == 0x8005:
		// SUB Vx, Vy; VF is NOT borrow
		d.e.MovALMem8(d.vAddr(y))
		d.e.SubMem8AL(d.vAddr(x))
		d.e.SetaeMem8(d.flagAddr())

	case inst&0xF00F == 0x8006:
		// SHR Vx; VF is the shifted-out bit
		d.e.ShrMem8(d.vAddr(x))
		d.e.SetcMem8(d.flagAddr())

	case inst&0xF00F == 0x8007:
		// SUBN Vx, Vy; Vx = Vy - Vx, VF is NOT borrow
		d.e.MovALMem8(d.vAddr(y))
		d.e.SubALMem8(d.vAddr(x))
		d.e.MovMem8AL(d.vAddr(x))
		d.e.SetaeMem8(d.flagAddr())

	case inst&0xF00F == 0x800E:
		// SHL Vx; VF is the shifted-out bit
		d.e.ShlMem8(d.vAddr(x))
		d.e.SetcMem8(d.flagAddr())

	case inst&0xF000 == 0xA000:
		// LD I, addr
		d.e.MovMem16Imm16(d.iAddr(), a)

	case inst&0xF000 == 0xB000:
		// JP V0, addr lands at a PC only known at run time
		d.e.MovzxEAXMem8(d.vAddr(0))
		d.e.AddEAXImm32(uint32(a))
		d.e.MovMem32EAX(d.c.abi.Param1Addr())
		d.e.InterruptExitDynamic(PrepareForIndirectJump)
		return true, nil

	case inst&0xF000 == 0xC000:
		// RND needs host randomness
		d.e.InterruptResume(UseInterpreter, uint32(inst))

	case inst&0xF000 == 0xD000:
		// DRW yields for the sprite draw
		d.e.InterruptResume(DisplayDraw, uint32(inst))

	case inst&0xF0FF == 0xE09E:
		// SKP Vx
		d.e.MovzxEAXMem8(d.vAddr(x))
		d.e.CmpMem8IndexedImm8(d.keysAddr(), 1)
		d.skip(pc)

	case inst&0xF0FF == 0xE0A1:
		// SKNP Vx
		d.e.MovzxEAXMem8(d.vAddr(x))
		d.e.CmpMem8IndexedImm8(d.keysAddr(), 1)
		d.skipNot(pc)

	case inst&0xF0FF == 0xF007:
		// LD Vx, DT
		d.e.MovALMem8(d.dtAddr())
		d.e.MovMem8AL(d.vAddr(x))

	case inst&0xF0FF == 0xF00A:
		// LD Vx, K yields until a key arrives
		d.e.InterruptResume(WaitForKeypress, uint32(x))

	case inst&0xF0FF == 0xF015:
		// LD DT, Vx
		d.e.MovALMem8(d.vAddr(x))
		d.e.MovMem8AL(d.dtAddr())

	case inst&0xF0FF == 0xF018:
		// LD ST, Vx
		d.e.MovALMem8(d.vAddr(x))
		d.e.MovMem8AL(d.stAddr())

	case inst&0xF0FF == 0xF01E:
		// ADD I, Vx
		d.e.MovzxEAXMem8(d.vAddr(x))
		d.e.AddMem16AX(d.iAddr())

	case inst&0xF0FF == 0xF029:
		// LD F, Vx; sprites are 5 bytes each at the font base
		d.e.MovzxEAXMem8(d.vAddr(x))
		d.e.ImulEAXImm8(5)
		d.e.MovMem16AX(d.iAddr())

	case inst&0xF0FF == 0xF033, inst&0xF0FF == 0xF055, inst&0xF0FF == 0xF065:
		// BCD and register block moves via the interpreter fallback
		d.e.InterruptResume(UseInterpreter, uint32(inst))

	default:
		d.logf("illegal opcode %04X at #%04X", inst, pc)
		d.e.InterruptExit(UnknownOpcode, uint32(pc))
		return true, nil
	}

	return false, nil
}

// skip emits the taken half of a skip instruction: jump over the next
// instruction's translation once it exists, two countdown cycles away.
func (d *Dynarec) skip(pc uint16) {
	slot := d.e.Je32()
	d.j.RecordConditional(pc, pc+4, 2, slot)
}

// skipNot is skip with the inverted condition.
func (d *Dynarec) skipNot(pc uint16) {
	slot := d.e.Jne32()
	d.j.RecordConditional(pc, pc+4, 2, slot)
}
