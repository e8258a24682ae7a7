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
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTrampolineLayout tests the CDECL prelude byte for byte.
func TestTrampolineLayout(t *testing.T) {
	abi := new(ABI)

	tramp, err := NewTrampoline(abi)
	require.NoError(t, err)
	defer tramp.Free()

	mem := tramp.mem

	// PUSH EBP; MOV EBP, ESP
	assert.Equal(t, []byte{0x55, 0x8B, 0xEC}, mem[0:3])

	// JMP [resume]; the one mutable slot the dispatcher stores through
	assert.Equal(t, []byte{0xFF, 0x25}, mem[3:5])
	assert.Equal(t, abi.ResumeAddr(), binary.LittleEndian.Uint32(mem[5:9]), "the indirect jump should read the resume word")

	// POP EBP; RET epilogue at the return label
	assert.Equal(t, []byte{0x5D, 0xC3}, mem[returnLabelOffset:returnLabelOffset+2])

	// POP EAX; PUSH EAX; RET instruction-pointer helper
	assert.Equal(t, []byte{0x58, 0x50, 0xC3}, mem[eipHelperOffset:eipHelperOffset+3])
}

// TestTrampolinePointers tests the words tail stubs and interrupt stubs
// jump and call through.
func TestTrampolinePointers(t *testing.T) {
	abi := new(ABI)

	tramp, err := NewTrampoline(abi)
	require.NoError(t, err)
	defer tramp.Free()

	assert.Equal(t, tramp.Base()+returnLabelOffset, tramp.returnTo, "the return word should name the epilogue")
	assert.Equal(t, tramp.Base()+eipHelperOffset, tramp.eipHelper, "the helper word should name the helper")

	// the advertised operand addresses read back the same values
	assert.Equal(t, tramp.returnTo, peek32(tramp.ReturnPtrAddr()))
	assert.Equal(t, tramp.eipHelper, peek32(tramp.EIPHelperPtrAddr()))
}
