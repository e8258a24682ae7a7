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

package chip8

import "fmt"

// Disassemble the instruction at a guest address for the debug panel.
func (st *State) Disassemble(i uint16) string {
	if int(i) >= len(st.Memory)-1 {
		return ""
	}

	inst := st.Fetch(i)

	// end of program memory?
	if inst == 0 {
		return fmt.Sprintf("%04X -", i)
	}

	// 12-bit literal address
	a := inst & 0xFFF

	// byte and nibble literals
	b := byte(inst & 0xFF)
	n := byte(inst & 0xF)

	// vx and vy registers
	x := inst >> 8 & 0xF
	y := inst >> 4 & 0xF

	var s string

	switch {
	case inst == 0x00E0:
		s = "CLS"
	case inst == 0x00EE:
		s = "RET"
	case inst&0xF000 == 0x0000:
		s = fmt.Sprintf("SYS    #%04X", a)
	case inst&0xF000 == 0x1000:
		s = fmt.Sprintf("JP     #%04X", a)
	case inst&0xF000 == 0x2000:
		s = fmt.Sprintf("CALL   #%04X", a)
	case inst&0xF000 == 0x3000:
		s = fmt.Sprintf("SE     V%X, #%02X", x, b)
	case inst&0xF000 == 0x4000:
		s = fmt.Sprintf("SNE    V%X, #%02X", x, b)
	case inst&0xF00F == 0x5000:
		s = fmt.Sprintf("SE     V%X, V%X", x, y)
	case inst&0xF000 == 0x6000:
		s = fmt.Sprintf("LD     V%X, #%02X", x, b)
	case inst&0xF000 == 0x7000:
		s = fmt.Sprintf("ADD    V%X, #%02X", x, b)
	case inst&0xF00F == 0x8000:
		s = fmt.Sprintf("LD     V%X, V%X", x, y)
	case inst&0xF00F == 0x8001:
		s = fmt.Sprintf("OR     V%X, V%X", x, y)
	case inst&0xF00F == 0x8002:
		s = fmt.Sprintf("AND    V%X, V%X", x, y)
	case inst&0xF00F == 0x8003:
		s = fmt.Sprintf("XOR    V%X, V%X", x, y)
	case inst&0xF00F == 0x8004:
		s = fmt.Sprintf("ADD    V%X, V%X", x, y)
	case inst&0xF00F == 0x8005:
		s = fmt.Sprintf("SUB    V%X, V%X", x, y)
	case inst&0xF00F == 0x8006:
		s = fmt.Sprintf("SHR    V%X", x)
	case inst&0xF00F == 0x8007:
		s = fmt.Sprintf("SUBN   V%X, V%X", x, y)
	case inst&0xF00F == 0x800E:
		s = fmt.Sprintf("SHL    V%X", x)
	case inst&0xF00F == 0x9000:
		s = fmt.Sprintf("SNE    V%X, V%X", x, y)
	case inst&0xF000 == 0xA000:
		s = fmt.Sprintf("LD     I, #%04X", a)
	case inst&0xF000 == 0xB000:
		s = fmt.Sprintf("JP     V0, #%04X", a)
	case inst&0xF000 == 0xC000:
		s = fmt.Sprintf("RND    V%X, #%02X", x, b)
	case inst&0xF000 == 0xD000:
		s = fmt.Sprintf("DRW    V%X, V%X, %d", x, y, n)
	case inst&0xF0FF == 0xE09E:
		s = fmt.Sprintf("SKP    V%X", x)
	case inst&0xF0FF == 0xE0A1:
		s = fmt.Sprintf("SKNP   V%X", x)
	case inst&0xF0FF == 0xF007:
		s = fmt.Sprintf("LD     V%X, DT", x)
	case inst&0xF0FF == 0xF00A:
		s = fmt.Sprintf("LD     V%X, K", x)
	case inst&0xF0FF == 0xF015:
		s = fmt.Sprintf("LD     DT, V%X", x)
	case inst&0xF0FF == 0xF018:
		s = fmt.Sprintf("LD     ST, V%X", x)
	case inst&0xF0FF == 0xF01E:
		s = fmt.Sprintf("ADD    I, V%X", x)
	case inst&0xF0FF == 0xF029:
		s = fmt.Sprintf("LD     F, V%X", x)
	case inst&0xF0FF == 0xF033:
		s = fmt.Sprintf("LD     B, V%X", x)
	case inst&0xF0FF == 0xF055:
		s = fmt.Sprintf("LD     [I], V%X", x)
	case inst&0xF0FF == 0xF065:
		s = fmt.Sprintf("LD     V%X, [I]", x)
	default:
		s = "??"
	}

	return fmt.Sprintf("%04X - %s", i, s)
}
