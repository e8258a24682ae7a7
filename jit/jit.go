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

// Package jit translates CHIP-8 bytecode into 32-bit x86 machine code on
// demand, caches the translation per basic block, and executes it directly
// on the host CPU. The bookkeeping (cache manager, jump resolver, dispatch
// loop) is portable; the emitted code and the trampoline are x86-32.
package jit

import (
	"encoding/binary"
	"unsafe"
)

// Logf is the logging hook used by every subsystem. The front end points it
// at the on-screen log; it defaults to a no-op.
type Logf func(format string, args ...interface{})

func nopLog(string, ...interface{}) {}

// addr32 returns the host address of p as the 32-bit immediate emitted code
// embeds. Truncation only matters when the code actually runs, which is
// gated to 32-bit hosts by the trampoline.
func addr32(p unsafe.Pointer) uint32 {
	return uint32(uintptr(p))
}

// poke32 stores v at an absolute host address. Used to patch rel32 operands
// of conditional jumps in place.
func poke32(addr uint32, v uint32) {
	binary.LittleEndian.PutUint32(unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), 4), v)
}

// peek32 reads the 32-bit word at an absolute host address.
func peek32(addr uint32) uint32 {
	return binary.LittleEndian.Uint32(unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), 4))
}

func le32(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b, v)
}

func le16(b []byte, v uint16) {
	binary.LittleEndian.PutUint16(b, v)
}
