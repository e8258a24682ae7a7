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
	"testing"

	"github.com/stretchr/testify/require"
)

// newCore builds the shared words, trampoline, cache, and jump tables a
// test needs, and releases every page when the test ends.
func newCore(t *testing.T) (*ABI, *Trampoline, *Cache, *Jumps) {
	t.Helper()

	abi := new(ABI)

	tramp, err := NewTrampoline(abi)
	require.NoError(t, err, "trampoline page must allocate")

	c := NewCache(abi, tramp, nil)
	j := NewJumps(nil)

	t.Cleanup(func() {
		c.Shutdown()
		tramp.Free()
	})

	return abi, tramp, c, j
}

// alloc is a must-succeed region allocation.
func alloc(t *testing.T, c *Cache, pc uint16) int {
	t.Helper()

	index, err := c.Alloc(pc)
	require.NoError(t, err, "region page must allocate")

	return index
}
