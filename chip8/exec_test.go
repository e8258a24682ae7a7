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

func newState(t *testing.T) *State {
	t.Helper()

	st, err := LoadROM(nil, false)
	require.NoError(t, err)

	return st
}

// TestExecuteCls tests the display clear.
func TestExecuteCls(t *testing.T) {
	st := newState(t)

	st.Video[10] = 0xFF
	st.Draw = false

	lo, _, err := st.Execute(0x00E0)
	require.NoError(t, err)

	assert.Equal(t, -1, lo, "CLS writes no guest memory")
	assert.Equal(t, byte(0), st.Video[10])
	assert.True(t, st.Draw)
}

// TestExecuteRnd tests that the random byte is masked.
func TestExecuteRnd(t *testing.T) {
	st := newState(t)

	for i := 0; i < 32; i++ {
		_, _, err := st.Execute(0xC10F) // RND V1, #0F
		require.NoError(t, err)

		assert.Zero(t, st.V[1]&0xF0, "the random value should honor the mask")
	}
}

// TestExecuteDraw tests sprite drawing, collision, and wrapping.
func TestExecuteDraw(t *testing.T) {
	st := newState(t)

	// draw the "0" font sprite at the origin
	st.I = FontBase
	st.V[0] = 0
	st.V[1] = 0

	_, _, err := st.Execute(0xD015) // DRW V0, V1, 5
	require.NoError(t, err)

	assert.Equal(t, byte(0xF0), st.Video[0], "the first sprite row should land")
	assert.Equal(t, byte(0), st.V[0xF], "a clean draw should not collide")
	assert.True(t, st.Draw)

	// drawing it again erases it and reports the collision
	_, _, err = st.Execute(0xD015)
	require.NoError(t, err)

	assert.Equal(t, byte(0), st.Video[0], "an XOR redraw should erase")
	assert.Equal(t, byte(1), st.V[0xF], "the collision should set VF")

	// a draw off the right edge wraps around
	st.Memory[0x300] = 0xFF
	st.I = 0x300
	st.V[2] = 60
	st.V[3] = 0

	_, _, err = st.Execute(0xD231) // DRW V2, V3, 1
	require.NoError(t, err)

	assert.Equal(t, byte(0x0F), st.Video[7], "four pixels fit before the edge")
	assert.Equal(t, byte(0xF0), st.Video[0], "the rest should wrap to column zero")
}

// TestExecuteBcd tests the decimal expansion and its write range.
func TestExecuteBcd(t *testing.T) {
	st := newState(t)

	st.V[5] = 234
	st.I = 0x300

	lo, hi, err := st.Execute(0xF533) // LD B, V5
	require.NoError(t, err)

	assert.Equal(t, 0x300, lo)
	assert.Equal(t, 0x302, hi)
	assert.Equal(t, byte(2), st.Memory[0x300])
	assert.Equal(t, byte(3), st.Memory[0x301])
	assert.Equal(t, byte(4), st.Memory[0x302])
}

// TestExecuteSaveRegs tests LD [I], Vx and its write range.
func TestExecuteSaveRegs(t *testing.T) {
	st := newState(t)

	for i := byte(0); i <= 3; i++ {
		st.V[i] = i + 10
	}
	st.I = 0x300

	lo, hi, err := st.Execute(0xF355) // LD [I], V3
	require.NoError(t, err)

	assert.Equal(t, 0x300, lo)
	assert.Equal(t, 0x303, hi)

	for i := 0; i <= 3; i++ {
		assert.Equal(t, byte(i+10), st.Memory[0x300+i])
	}
}

// TestExecuteLoadRegs tests LD Vx, [I].
func TestExecuteLoadRegs(t *testing.T) {
	st := newState(t)

	st.I = 0x300
	for i := 0; i <= 2; i++ {
		st.Memory[0x300+i] = byte(0x40 + i)
	}

	lo, _, err := st.Execute(0xF265) // LD V2, [I]
	require.NoError(t, err)

	assert.Equal(t, -1, lo, "a register restore writes no guest memory")

	for i := 0; i <= 2; i++ {
		assert.Equal(t, byte(0x40+i), st.V[i])
	}
}

// TestExecuteUnknown tests that untranslatable opcodes are refused.
func TestExecuteUnknown(t *testing.T) {
	st := newState(t)

	_, _, err := st.Execute(0x6005)
	assert.Error(t, err, "register loads never reach the interpreter")
}
