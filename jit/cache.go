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
	"fmt"
	"sort"
)

// Cache owns every region of translated code: allocation, lookup by guest
// PC or host address, the invalidation queue, and the cursor naming the
// region the translator is currently writing into.
type Cache struct {
	abi   *ABI
	tramp *Trampoline

	// regions holds every live region. Invalidated regions stay here until
	// a flush collects them.
	regions []*Region

	// invalid queues region indices flagged for collection. A region
	// appears at most once.
	invalid []int

	// selected is the region the translator is writing into, -1 for none.
	selected int

	logf Logf
}

// NewCache creates an empty cache bound to the ABI words and trampoline
// that every tail stub is patched with.
func NewCache(abi *ABI, tramp *Trampoline, logf Logf) *Cache {
	if logf == nil {
		logf = nopLog
	}

	return &Cache{
		abi:      abi,
		tramp:    tramp,
		regions:  make([]*Region, 0, 64),
		selected: -1,
		logf:     logf,
	}
}

// Len returns the number of live regions, flagged ones included.
func (c *Cache) Len() int {
	return len(c.regions)
}

// Region returns a region record by index.
func (c *Cache) Region(index int) *Region {
	return c.regions[index]
}

// Selected returns the index of the current region, -1 for none.
func (c *Cache) Selected() int {
	return c.selected
}

// Current returns the region the translator is writing into.
func (c *Cache) Current() *Region {
	return c.regions[c.selected]
}

// Switch makes a region the current one.
func (c *Cache) Switch(index int) {
	c.selected = index
}

// PendingInvalidations returns how many regions are queued for collection.
func (c *Cache) PendingInvalidations() int {
	return len(c.invalid)
}

// FindByGuestPC returns the index of the non-invalidated region covering pc
// with matching alignment, or -1.
func (c *Cache) FindByGuestPC(pc uint16) int {
	for i, r := range c.regions {
		if r.CoversPC(pc) && !c.invalidFlag(i) {
			return i
		}
	}

	return -1
}

// FindByGuestStart returns the index of the non-invalidated region whose
// translation begins exactly at pc, or -1. Only true block entries qualify
// as jump targets.
func (c *Cache) FindByGuestStart(pc uint16) int {
	for i, r := range c.regions {
		// alignment is implied by matching the start PC itself
		if r.StartPC == pc && !c.invalidFlag(i) {
			return i
		}
	}

	return -1
}

// FindByHostAddr returns the index of the region whose emitted span covers
// a host address, or -1.
func (c *Cache) FindByHostAddr(addr uint32) int {
	for i, r := range c.regions {
		if r.ContainsHost(addr) {
			return i
		}
	}

	return -1
}

// Alloc requests a fresh RWX page, fills it with NOPs, writes the tail
// stub, and appends the region record. Returns the new region's index.
func (c *Cache) Alloc(startPC uint16) (int, error) {
	mem, err := allocPage(MaxRegionBytes)
	if err != nil {
		return -1, fmt.Errorf("cache page: %w", err)
	}

	// single-byte no-op fill so fall-through reaches the tail
	for i := range mem {
		mem[i] = 0x90
	}

	r := &Region{
		StartPC:   startPC,
		EndPC:     startPC,
		Alignment: pcAlignment(startPC),
		Mem:       mem,
	}

	// nothing translated yet, so the tail resumes at the start PC itself
	r.writeTailStub(c.abi, c.tramp, startPC)

	c.regions = append(c.regions, r)
	index := len(c.regions) - 1

	c.logf("cache[%d] allocated @ %08X, start PC #%04X", index, r.Base(), startPC)

	return index, nil
}

// WritableByGuestPC returns a region open for emission at pc, allocating
// as needed. A region covering pc is reused when open; a region covering
// the previous instruction slot is extended when open; anything else gets
// a fresh region. Invalidated regions never qualify.
func (c *Cache) WritableByGuestPC(pc uint16) (int, error) {
	// a still-open block entered exactly at pc wins over an older, closed
	// region whose range happens to cover it
	if index := c.FindByGuestStart(pc); index != -1 && !c.regions[index].StopWrite {
		return index, nil
	}

	if index := c.FindByGuestPC(pc); index != -1 {
		if !c.regions[index].StopWrite {
			return index, nil
		}

		return c.Alloc(pc)
	}

	// extend-from-left: the region ending at the previous slot
	if index := c.FindByGuestPC(pc - 2); index != -1 {
		if !c.regions[index].StopWrite {
			return index, nil
		}

		return c.Alloc(pc)
	}

	return c.Alloc(pc)
}

// WritableByStartGuestPC returns the region a jump to pc should land in. A
// region starting at pc is reused; a region covering pc mid-range is
// flagged invalid and replaced, since jump targets must coincide with
// region starts.
func (c *Cache) WritableByStartGuestPC(pc uint16) (int, error) {
	if index := c.FindByGuestStart(pc); index != -1 {
		return index, nil
	}

	if index := c.FindByGuestPC(pc); index != -1 {
		c.MarkInvalid(index)
	}

	return c.Alloc(pc)
}

// MarkInvalid queues a region for collection. Queuing twice is a no-op.
func (c *Cache) MarkInvalid(index int) {
	if c.invalidFlag(index) {
		return
	}

	c.invalid = append(c.invalid, index)
}

// MarkInvalidByGuestPC queues the region covering pc, if any.
func (c *Cache) MarkInvalidByGuestPC(pc uint16) {
	if index := c.FindByGuestPC(pc); index != -1 {
		c.MarkInvalid(index)
	}
}

// invalidFlag reports whether a region index is queued for collection.
func (c *Cache) invalidFlag(index int) bool {
	for _, i := range c.invalid {
		if i == index {
			return true
		}
	}

	return false
}

// Flush collects queued regions. A region is skipped while the resume
// address sits inside it; it will be collected on a later sweep once
// control has left it. For every collected region the jump resolver is
// told first, so stale entries land on the refill list before the page is
// released.
func (c *Cache) Flush(jumps *Jumps) {
	if len(c.invalid) == 0 {
		return
	}

	// split the queue into collectable regions and deferred ones
	var collect, keep []int

	for _, index := range c.invalid {
		if c.regions[index].ContainsHost(c.abi.Resume) {
			keep = append(keep, index)
		} else {
			collect = append(collect, index)
		}
	}

	// free from the highest index down so earlier removals don't shift
	// the indices still queued
	sort.Sort(sort.Reverse(sort.IntSlice(collect)))

	for _, index := range collect {
		r := c.regions[index]

		// refill-on-free: stale jump entries queue up before the page goes
		jumps.dropRegion(r)

		c.logf("cache[%d] released, PC #%04X..#%04X", index, r.StartPC, r.EndPC)

		if err := freePage(r.Mem); err != nil {
			c.logf("cache[%d] release failed: %s", index, err)
		}

		c.regions = append(c.regions[:index], c.regions[index+1:]...)

		// adjust the cursor and the deferred queue for the removed slot
		if c.selected > index {
			c.selected--
		} else if c.selected == index {
			c.selected = -1
		}

		for i, k := range keep {
			if k > index {
				keep[i] = k - 1
			}
		}
	}

	c.invalid = keep
}

// SetEndPC advances the current region's translated range. The first call
// on a region with an unset start establishes it. The tail stub resume PC
// tracks one step past the end.
func (c *Cache) SetEndPC(pc uint16) {
	r := c.Current()

	if r.StartPC == UnsetPC {
		r.StartPC = pc
		r.Alignment = pcAlignment(pc)
	}

	r.EndPC = pc
	r.patchTailResume(pc + 2)
}

// CurrentEndAddr returns the host address where the next byte goes in the
// current region.
func (c *Cache) CurrentEndAddr() uint32 {
	return c.Current().EndAddr()
}

// WriteU8 appends a byte to the current region. Writers do not bounds
// check against the tail stub; the translator stays below EmitCeiling.
func (c *Cache) WriteU8(b byte) {
	r := c.Current()
	r.Mem[r.Cursor] = b
	r.Cursor++
}

// WriteU16 appends a little-endian 16-bit value to the current region.
func (c *Cache) WriteU16(v uint16) {
	r := c.Current()
	le16(r.Mem[r.Cursor:], v)
	r.Cursor += 2
}

// WriteU32 appends a little-endian 32-bit value to the current region.
func (c *Cache) WriteU32(v uint32) {
	r := c.Current()
	le32(r.Mem[r.Cursor:], v)
	r.Cursor += 4
}

// Shutdown releases every page and clears all bookkeeping.
func (c *Cache) Shutdown() {
	for i, r := range c.regions {
		c.logf("cache[%d] released, PC #%04X..#%04X", i, r.StartPC, r.EndPC)

		if err := freePage(r.Mem); err != nil {
			c.logf("cache[%d] release failed: %s", i, err)
		}
	}

	c.regions = c.regions[:0]
	c.invalid = c.invalid[:0]
	c.selected = -1
}
