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
	"errors"
	"fmt"
	"unsafe"
)

// maxJumpEntries bounds the jump table. Entries must never move once
// emitted code embeds their addresses, so the backing array is allocated
// up front and append never reallocates.
const maxJumpEntries = 1024

// ErrJumpTableFull is returned when the guest uses more distinct jump
// targets than the table holds.
var ErrJumpTableFull = errors.New("jump table full")

// ErrBadJumpTarget is returned when a refill sweep meets a guest target
// outside addressable memory.
var ErrBadJumpTarget = errors.New("jump target outside guest memory")

// JumpEntry maps one guest jump target to the host address of its
// translation. Emitted jumps are memory-indirect through Target, so
// re-translation updates a single word without rewriting any jump site.
type JumpEntry struct {
	// To is the guest target PC. Entries are unique by To.
	To uint16

	// Target is the host address of the target region's base, 0 until a
	// refill sweep resolves it.
	Target uint32
}

// condEntry is a short-lived record of a forward branch inside the block
// being translated. The rel32 slot is patched once Cycles guest
// instructions have been emitted past it.
type condEntry struct {
	From   uint16
	To     uint16
	Slot   uint32
	Cycles uint8
}

// Jumps is the deferred-patching table for absolute jumps plus the
// cycle-countdown queue for short conditional branches.
type Jumps struct {
	entries []JumpEntry
	refill  []int
	cond    []condEntry
	logf    Logf
}

// NewJumps creates empty jump tables.
func NewJumps(logf Logf) *Jumps {
	if logf == nil {
		logf = nopLog
	}

	return &Jumps{
		entries: make([]JumpEntry, 0, maxJumpEntries),
		logf:    logf,
	}
}

// Len returns the number of jump-table entries.
func (j *Jumps) Len() int {
	return len(j.entries)
}

// PendingRefills returns how many entries await resolution.
func (j *Jumps) PendingRefills() int {
	return len(j.refill)
}

// PendingConditionals returns how many conditional patches are recorded.
func (j *Jumps) PendingConditionals() int {
	return len(j.cond)
}

// Entry returns a jump-table entry by index.
func (j *Jumps) Entry(index int) *JumpEntry {
	return &j.entries[index]
}

// TargetAddr returns the host address of an entry's target word, the
// operand emitted code reads through (JMP [m32]).
func (j *Jumps) TargetAddr(index int) uint32 {
	return addr32(unsafe.Pointer(&j.entries[index].Target))
}

// Find returns the index of the entry for a guest target, or -1.
func (j *Jumps) Find(to uint16) int {
	for i := range j.entries {
		if j.entries[i].To == to {
			return i
		}
	}

	return -1
}

// Record appends a new unresolved entry for a guest target and queues it
// for refill.
func (j *Jumps) Record(to uint16) (int, error) {
	if len(j.entries) == maxJumpEntries {
		return -1, ErrJumpTableFull
	}

	j.entries = append(j.entries, JumpEntry{To: to})
	index := len(j.entries) - 1

	j.logf("jump[%d] recorded, target #%04X", index, to)
	j.refill = append(j.refill, index)

	return index, nil
}

// GetOrRecord returns the stable index for a guest target, recording an
// entry on first use. Idempotent on the table size once an entry exists.
func (j *Jumps) GetOrRecord(to uint16) (int, error) {
	if index := j.Find(to); index != -1 {
		return index, nil
	}

	return j.Record(to)
}

// queueRefill pushes an entry index onto the refill list at most once.
func (j *Jumps) queueRefill(index int) {
	for _, i := range j.refill {
		if i == index {
			return
		}
	}

	j.refill = append(j.refill, index)
}

// RequeueByGuestPC queues every entry targeting a guest PC for refill.
// Nothing in this package calls it; Flush requeues stale entries through
// dropRegion.
func (j *Jumps) RequeueByGuestPC(pc uint16) {
	for i := range j.entries {
		if j.entries[i].To == pc {
			j.queueRefill(i)
		}
	}
}

// dropRegion severs every borrowed pointer into a region about to be
// freed: resolved jump entries inside it are cleared and queued for
// refill, and conditional patches inside it are dropped outright (a fresh
// translation records new ones).
func (j *Jumps) dropRegion(r *Region) {
	lo := r.Base()
	hi := lo + uint32(len(r.Mem))

	for i := range j.entries {
		if t := j.entries[i].Target; t != 0 && t >= lo && t < hi {
			j.entries[i].Target = 0
			j.queueRefill(i)
		}
	}

	kept := j.cond[:0]

	for _, e := range j.cond {
		if e.Slot >= lo && e.Slot < hi {
			continue
		}

		kept = append(kept, e)
	}

	j.cond = kept
}

// ResolvePending drains the refill list. Each pending entry asks the cache
// for the region starting at its guest target, allocating one if need be,
// and stores the region base into the entry's target word. Idempotent: an
// entry invalidated later is simply queued again.
func (j *Jumps) ResolvePending(c *Cache) error {
	for len(j.refill) > 0 {
		index := j.refill[0]
		j.refill = j.refill[1:]

		entry := &j.entries[index]

		if entry.To >= 0x1000 {
			return fmt.Errorf("jump[%d] to #%04X: %w", index, entry.To, ErrBadJumpTarget)
		}

		cacheIndex, err := c.WritableByStartGuestPC(entry.To)
		if err != nil {
			return err
		}

		entry.Target = c.Region(cacheIndex).Base()

		j.logf("jump[%d] resolved, #%04X -> %08X", index, entry.To, entry.Target)
	}

	return nil
}

// RecordConditional notes a forward branch whose rel32 slot must be
// patched after cycles more guest instructions have been translated.
func (j *Jumps) RecordConditional(from, to uint16, cycles uint8, slot uint32) {
	j.cond = append(j.cond, condEntry{From: from, To: to, Slot: slot, Cycles: cycles})
	j.logf("cond jump #%04X -> #%04X recorded, %d cycles", from, to, cycles)
}

// Decrement counts down every pending conditional entry by one. Called
// exactly once per guest instruction translated.
func (j *Jumps) Decrement() {
	for i := range j.cond {
		if j.cond[i].Cycles > 0 {
			j.cond[i].Cycles--
		}
	}
}

// MinCycles returns the smallest nonzero countdown, or 0 when none are
// pending. The translator refuses to close a region while this is nonzero.
func (j *Jumps) MinCycles() uint8 {
	var min uint8

	for i := range j.cond {
		if c := j.cond[i].Cycles; c > 0 && (min == 0 || c < min) {
			min = c
		}
	}

	return min
}

// ResolveConditionals patches every entry whose countdown has expired. The
// rel32 slot receives the displacement from the byte after the operand to
// the current emit cursor; the entry is then removed.
func (j *Jumps) ResolveConditionals(endAddr uint32) {
	kept := j.cond[:0]

	for _, e := range j.cond {
		if e.Cycles > 0 {
			kept = append(kept, e)
			continue
		}

		rel := endAddr - e.Slot - 4
		poke32(e.Slot, rel)

		j.logf("cond jump #%04X -> #%04X patched, rel %d", e.From, e.To, int32(rel))
	}

	j.cond = kept
}

// Reset clears every table. Used at shutdown.
func (j *Jumps) Reset() {
	j.entries = j.entries[:0]
	j.refill = j.refill[:0]
	j.cond = j.cond[:0]
}
