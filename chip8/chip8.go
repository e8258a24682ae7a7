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

// Package chip8 holds the guest machine: memory, registers, stack, keypad,
// timers, and video. The recompiler addresses these fields directly from
// emitted code, so a State must stay put for the life of the emulator.
package chip8

import (
	"errors"
	"os"
)

// State is the CHIP-8 guest machine.
type State struct {
	// ROM is the pristine 4K image Memory resets back to.
	ROM [0x1000]byte

	// Memory addressable by CHIP-8. The first 512 bytes hold the font
	// sprites and are reserved.
	Memory [0x1000]byte

	// V are the 16 virtual registers. VF doubles as the flag register.
	V [16]byte

	// I is the address register.
	I uint16

	// PC is the program counter. All programs begin at 0x200.
	PC uint16

	// Stack holds return addresses for up to 16 nested calls.
	Stack [16]uint16

	// SP is the stack pointer.
	SP byte

	// DT is the delay timer, decremented at 60 Hz while nonzero.
	DT byte

	// ST is the sound timer. A tone plays while it is nonzero.
	ST byte

	// Keys holds the state of the 16-key pad, 1 for held.
	Keys [16]byte

	// Video is the 64x32 display bitmap, one bit per pixel, MSB first.
	Video [0x100]byte

	// Draw is set when video memory has changed since the last redraw.
	Draw bool

	// Base is the load address of the program: 0x200, or 0x600 for
	// ETI-660 ROMs.
	Base uint16

	// Size is the loaded program size in bytes.
	Size int
}

// FontBase is the guest address of the hex digit sprites.
const FontBase = 0x000

// font is the 16 hex digit sprites, 5 bytes each.
var font = [80]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// LoadROM copies a program image into a new guest machine.
func LoadROM(program []byte, eti bool) (*State, error) {
	base := 0x200

	// ETI-660 roms begin at 0x600
	if eti {
		base = 0x600
	}

	// make sure the program fits within 4k
	if len(program) > 0x1000-base {
		return nil, errors.New("program too large to fit in memory")
	}

	st := &State{
		Base: uint16(base),
		Size: len(program),
	}

	// font sprites live in the reserved area, program after it
	copy(st.ROM[FontBase:], font[:])
	copy(st.ROM[base:], program)

	st.Reset()

	return st, nil
}

// LoadFile reads a ROM file and returns a new guest machine.
func LoadFile(file string, eti bool) (*State, error) {
	program, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	return LoadROM(program, eti)
}

// SaveROM writes the loaded program image to disk.
func (st *State) SaveROM(file string) error {
	return os.WriteFile(file, st.ROM[st.Base:int(st.Base)+st.Size], 0666)
}

// Reset restores memory from the ROM image and clears all registers.
func (st *State) Reset() {
	copy(st.Memory[:], st.ROM[:])

	// wipe the display
	st.Video = [0x100]byte{}

	// release all keys
	st.Keys = [16]byte{}

	// reset registers and stack
	st.V = [16]byte{}
	st.Stack = [16]uint16{}
	st.SP = 0
	st.I = 0

	// reset timers
	st.DT = 0
	st.ST = 0

	// start of program
	st.PC = st.Base
	st.Draw = true
}

// Fetch returns the 16-bit instruction at a guest address.
func (st *State) Fetch(pc uint16) uint16 {
	return uint16(st.Memory[pc&0xFFF])<<8 | uint16(st.Memory[(pc+1)&0xFFF])
}

// PressKey holds down a key on the pad.
func (st *State) PressKey(key uint) {
	if key < 16 {
		st.Keys[key] = 1
	}
}

// ReleaseKey lets go of a key on the pad.
func (st *State) ReleaseKey(key uint) {
	if key < 16 {
		st.Keys[key] = 0
	}
}

// TickTimers decrements the delay and sound timers. Called at 60 Hz.
func (st *State) TickTimers() {
	if st.DT > 0 {
		st.DT--
	}

	if st.ST > 0 {
		st.ST--
	}
}
