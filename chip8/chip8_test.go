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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadROM tests loading a program at the standard base.
func TestLoadROM(t *testing.T) {
	st, err := LoadROM([]byte{0x60, 0x05, 0x12, 0x00}, false)
	require.NoError(t, err)

	assert.Equal(t, uint16(0x200), st.Base)
	assert.Equal(t, uint16(0x200), st.PC)
	assert.Equal(t, 4, st.Size)
	assert.Equal(t, uint16(0x6005), st.Fetch(0x200))
	assert.Equal(t, uint16(0x1200), st.Fetch(0x202))

	// the font sprites live in reserved memory
	assert.Equal(t, byte(0xF0), st.Memory[FontBase], "the '0' sprite should start the font table")
}

// TestLoadROMETI tests the ETI-660 load base.
func TestLoadROMETI(t *testing.T) {
	st, err := LoadROM([]byte{0x60, 0x05}, true)
	require.NoError(t, err)

	assert.Equal(t, uint16(0x600), st.Base)
	assert.Equal(t, uint16(0x600), st.PC)
	assert.Equal(t, uint16(0x6005), st.Fetch(0x600))
}

// TestLoadROMTooLarge tests the 4K bound.
func TestLoadROMTooLarge(t *testing.T) {
	_, err := LoadROM(make([]byte, 0x1000), false)
	assert.Error(t, err, "a program past 4K should not load")
}

// TestReset tests that a reset restores the pristine image.
func TestReset(t *testing.T) {
	st, err := LoadROM([]byte{0x60, 0x05}, false)
	require.NoError(t, err)

	// dirty everything
	st.V[3] = 0xAA
	st.I = 0x123
	st.PC = 0x456
	st.SP = 4
	st.DT = 9
	st.ST = 9
	st.Memory[0x200] = 0xFF
	st.Video[0] = 0xFF
	st.Keys[2] = 1

	st.Reset()

	assert.Equal(t, byte(0), st.V[3])
	assert.Equal(t, uint16(0), st.I)
	assert.Equal(t, uint16(0x200), st.PC)
	assert.Equal(t, byte(0), st.SP)
	assert.Equal(t, byte(0), st.DT)
	assert.Equal(t, byte(0), st.ST)
	assert.Equal(t, byte(0x60), st.Memory[0x200], "memory should restore from the ROM image")
	assert.Equal(t, byte(0), st.Video[0])
	assert.Equal(t, byte(0), st.Keys[2])
	assert.True(t, st.Draw)
}

// TestKeys tests press and release bounds.
func TestKeys(t *testing.T) {
	st, err := LoadROM(nil, false)
	require.NoError(t, err)

	st.PressKey(0xA)
	assert.Equal(t, byte(1), st.Keys[0xA])

	st.ReleaseKey(0xA)
	assert.Equal(t, byte(0), st.Keys[0xA])

	// out of range keys are ignored
	st.PressKey(16)
	st.ReleaseKey(16)
}

// TestTickTimers tests the 60 Hz decrements saturate at zero.
func TestTickTimers(t *testing.T) {
	st, err := LoadROM(nil, false)
	require.NoError(t, err)

	st.DT = 2
	st.ST = 1

	st.TickTimers()
	assert.Equal(t, byte(1), st.DT)
	assert.Equal(t, byte(0), st.ST)

	st.TickTimers()
	st.TickTimers()
	assert.Equal(t, byte(0), st.DT, "timers should not wrap")
	assert.Equal(t, byte(0), st.ST)
}

// TestDisassemble spot-checks the debug panel text.
func TestDisassemble(t *testing.T) {
	st, err := LoadROM([]byte{
		0x00, 0xE0, // CLS
		0x12, 0x34, // JP #234
		0x83, 0x42, // AND V3, V4
		0xD1, 0x25, // DRW V1, V2, 5
		0xF5, 0x33, // LD B, V5
	}, false)
	require.NoError(t, err)

	assert.Equal(t, "0200 - CLS", st.Disassemble(0x200))
	assert.Equal(t, "0202 - JP     #0234", st.Disassemble(0x202))
	assert.Equal(t, "0204 - AND    V3, V4", st.Disassemble(0x204))
	assert.Equal(t, "0206 - DRW    V1, V2, 5", st.Disassemble(0x206))
	assert.Equal(t, "0208 - LD     B, V5", st.Disassemble(0x208))
}
