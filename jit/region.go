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

import "unsafe"

const (
	// MaxRegionBytes is the fixed size of every cache region page.
	MaxRegionBytes = 4096

	// tailStubBytes is the size of the fixed stub at the end of every
	// region.
	tailStubBytes = 23

	// EmitCeiling is the safe emission limit; the translator closes a
	// region before crossing it.
	EmitCeiling = MaxRegionBytes - 32

	// UnsetPC marks a region whose entry PC has not been established.
	UnsetPC = 0xFFFF
)

// Region is one contiguous executable page holding the native translation
// of a CHIP-8 basic block.
type Region struct {
	// StartPC is the first guest PC covered by the translation.
	StartPC uint16

	// EndPC is the last guest PC whose translation has been emitted. It
	// only ever advances while the region is open.
	EndPC uint16

	// Alignment is the parity of StartPC on the 2-byte instruction grid.
	// Regions with different alignment never alias.
	Alignment uint8

	// Mem is the executable page owned by this region.
	Mem []byte

	// Cursor is the offset where the next emitted byte goes.
	Cursor int

	// StopWrite closes the region for emission. It stays executable and
	// visible to lookups.
	StopWrite bool
}

// pcAlignment returns the parity of a guest PC on the instruction grid.
func pcAlignment(pc uint16) uint8 {
	return uint8(pc & 1)
}

// Base returns the host address of the first byte of the page.
func (r *Region) Base() uint32 {
	return addr32(unsafe.Pointer(&r.Mem[0]))
}

// EndAddr returns the host address one past the last emitted byte.
func (r *Region) EndAddr() uint32 {
	return r.Base() + uint32(r.Cursor)
}

// CoversPC reports whether pc falls inside the translated guest range with
// matching alignment.
func (r *Region) CoversPC(pc uint16) bool {
	return pc >= r.StartPC && pc <= r.EndPC && r.Alignment == pcAlignment(pc)
}

// NextPC returns the guest PC translation continues at: the start itself
// while nothing has been emitted, one past the end otherwise.
func (r *Region) NextPC() uint16 {
	if r.Cursor == 0 {
		return r.StartPC
	}

	return r.EndPC + 2
}

// ContainsHost reports whether a host address falls inside the emitted
// span of the page, end inclusive.
func (r *Region) ContainsHost(addr uint32) bool {
	return addr >= r.Base() && addr <= r.EndAddr()
}

// ContainsHostPage reports whether a host address falls anywhere inside the
// page, including the NOP fill and tail stub.
func (r *Region) ContainsHostPage(addr uint32) bool {
	return addr >= r.Base() && addr < r.Base()+uint32(len(r.Mem))
}

// writeTailStub writes the fixed stub into the final bytes of the page. It
// sets the interrupt status to OUT_OF_CODE, stores the guest PC to resume
// translation at, and jumps back to the trampoline epilogue.
func (r *Region) writeTailStub(abi *ABI, tramp *Trampoline, resume uint16) {
	stub := tailStub(abi, tramp, resume)
	copy(r.Mem[MaxRegionBytes-tailStubBytes:], stub[:])
}

// patchTailResume updates the guest PC immediate inside the tail stub.
// Called whenever the region's end PC advances.
func (r *Region) patchTailResume(resume uint16) {
	le32(r.Mem[MaxRegionBytes-10:], uint32(resume))
}

// tailStub builds the canonical 23-byte tail stub, patched with the ABI
// word addresses and the guest resume PC.
func tailStub(abi *ABI, tramp *Trampoline, resume uint16) [tailStubBytes]byte {
	var stub [tailStubBytes]byte

	// MOV byte [status], OUT_OF_CODE
	stub[0] = 0xC6
	stub[1] = 0x05
	le32(stub[2:], abi.StatusAddr())
	stub[6] = OutOfCode

	// MOV dword [param1], resume PC
	stub[7] = 0xC7
	stub[8] = 0x05
	le32(stub[9:], abi.Param1Addr())
	le32(stub[13:], uint32(resume))

	// JMP [return label pointer]
	stub[17] = 0xFF
	stub[18] = 0x25
	le32(stub[19:], tramp.ReturnPtrAddr())

	return stub
}
