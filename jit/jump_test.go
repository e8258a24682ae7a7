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

// TestRecordIdempotent tests that registering a target twice returns the
// same stable index (round-trip law).
func TestRecordIdempotent(t *testing.T) {
	_, _, _, j := newCore(t)

	first, err := j.GetOrRecord(0x300)
	require.NoError(t, err)

	second, err := j.GetOrRecord(0x300)
	require.NoError(t, err)

	assert.Equal(t, first, second, "the same target should map to one entry")
	assert.Equal(t, 1, j.Len(), "the table should not grow on a repeat")
}

// TestResolvePendingAllocates tests that resolving a jump to untranslated
// code allocates a region there (seed scenario 4).
func TestResolvePendingAllocates(t *testing.T) {
	_, _, c, j := newCore(t)

	index, err := j.Record(0x300)
	require.NoError(t, err)
	assert.Equal(t, 1, j.PendingRefills(), "a new entry should queue for refill")

	require.NoError(t, j.ResolvePending(c))

	// a fresh region at 0x300 backs the entry now
	regionIndex := c.FindByGuestStart(0x300)
	require.NotEqual(t, -1, regionIndex, "a region should exist at the target")

	target := j.Entry(index).Target
	assert.Equal(t, c.Region(regionIndex).Base(), target, "the entry should point at the region base")
	assert.Equal(t, 0, j.PendingRefills(), "the refill list should drain")

	// registering the same target again changes nothing
	again, err := j.GetOrRecord(0x300)
	require.NoError(t, err)
	assert.Equal(t, index, again)
	assert.Equal(t, target, j.Entry(index).Target, "the host pointer should be unchanged")
}

// TestResolvedEntriesPointAtLiveRegions tests that with no invalidations
// every resolved entry points at some live region's base.
func TestResolvedEntriesPointAtLiveRegions(t *testing.T) {
	_, _, c, j := newCore(t)

	targets := []uint16{0x200, 0x246, 0x300, 0x3FE}

	for _, pc := range targets {
		_, err := j.GetOrRecord(pc)
		require.NoError(t, err)
	}

	require.NoError(t, j.ResolvePending(c))

	for i := 0; i < j.Len(); i++ {
		target := j.Entry(i).Target
		require.NotZero(t, target, "entry %d should be resolved", i)

		found := false
		for r := 0; r < c.Len(); r++ {
			if c.Region(r).Base() == target {
				found = true
			}
		}

		assert.True(t, found, "entry %d should point at a live region base", i)
	}
}

// TestRefillAfterInvalidation tests that freeing a region leaves no entry
// pointing into its address range.
func TestRefillAfterInvalidation(t *testing.T) {
	abi, _, c, j := newCore(t)

	index, err := j.Record(0x300)
	require.NoError(t, err)
	require.NoError(t, j.ResolvePending(c))

	regionIndex := c.FindByGuestStart(0x300)
	r := c.Region(regionIndex)
	lo, hi := r.Base(), r.Base()+uint32(len(r.Mem))

	// free the region out from under the entry
	abi.Resume = 0
	c.MarkInvalid(regionIndex)
	c.Flush(j)

	target := j.Entry(index).Target
	assert.False(t, target >= lo && target < hi, "no entry may point into freed memory")
	assert.Equal(t, 1, j.PendingRefills(), "the stale entry should queue for refill")

	// refill is idempotent: the next sweep re-resolves it
	require.NoError(t, j.ResolvePending(c))
	assert.NotZero(t, j.Entry(index).Target)
}

// TestBadJumpTarget tests that a target outside guest memory fails the
// sweep.
func TestBadJumpTarget(t *testing.T) {
	_, _, c, j := newCore(t)

	_, err := j.Record(0x1200)
	require.NoError(t, err)

	assert.ErrorIs(t, j.ResolvePending(c), ErrBadJumpTarget)
}

// TestConditionalCountdown tests the conditional-jump cycle contract
// (seed scenario 6).
func TestConditionalCountdown(t *testing.T) {
	_, _, c, j := newCore(t)

	c.Switch(alloc(t, c, 0x500))

	// a branch whose rel32 slot is 2 bytes into the region
	c.WriteU8(0x0F)
	c.WriteU8(0x84)
	slot := c.CurrentEndAddr()
	c.WriteU32(0)

	j.RecordConditional(0x500, 0x506, 3, slot)
	assert.Equal(t, uint8(3), j.MinCycles())

	// translate three more instructions' worth of code
	for i := 0; i < 3; i++ {
		c.WriteU8(0x90)
		j.Decrement()
		j.ResolveConditionals(c.CurrentEndAddr())
	}

	assert.Equal(t, 0, j.PendingConditionals(), "the expired entry should be removed")
	assert.Equal(t, uint8(0), j.MinCycles())

	// the patched displacement lands on the emit cursor at patch time
	r := c.Current()
	rel := binary.LittleEndian.Uint32(r.Mem[2:6])
	assert.Equal(t, c.CurrentEndAddr(), slot+4+rel, "slot + 4 + rel32 should equal the patch-time end address")
}

// TestMinCycles tests that the smallest nonzero countdown is reported.
func TestMinCycles(t *testing.T) {
	_, _, c, j := newCore(t)

	c.Switch(alloc(t, c, 0x200))

	c.WriteU32(0)
	j.RecordConditional(0x200, 0x208, 4, c.Current().Base())
	j.RecordConditional(0x202, 0x206, 2, c.Current().Base()+4)

	assert.Equal(t, uint8(2), j.MinCycles(), "the smallest pending countdown wins")
}

// TestConditionalsDropWithRegion tests that invalidating a region drops
// the conditional entries inside it instead of patching freed memory.
func TestConditionalsDropWithRegion(t *testing.T) {
	abi, _, c, j := newCore(t)

	index := alloc(t, c, 0x200)
	c.Switch(index)

	c.WriteU8(0x0F)
	c.WriteU8(0x84)
	slot := c.CurrentEndAddr()
	c.WriteU32(0)

	j.RecordConditional(0x200, 0x204, 2, slot)

	abi.Resume = 0
	c.MarkInvalid(index)
	c.Flush(j)

	assert.Equal(t, 0, j.PendingConditionals(), "entries inside a freed region should drop")
}

// TestJumpTableFull tests the hard bound on the jump table.
func TestJumpTableFull(t *testing.T) {
	_, _, _, j := newCore(t)

	for i := 0; i < maxJumpEntries; i++ {
		_, err := j.Record(uint16(i))
		require.NoError(t, err)
	}

	_, err := j.Record(0xFFF)
	assert.ErrorIs(t, err, ErrJumpTableFull)
}
