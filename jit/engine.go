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
	"time"

	"super8/chip8"
)

// tickInterval is the delay/sound timer period.
const tickInterval = time.Second / 60

// Engine owns the guest machine and the three recompiler subsystems. The
// host thread alternates between its dispatcher and translated code; no
// other goroutine touches any of it.
type Engine struct {
	st    *chip8.State
	abi   *ABI
	tramp *Trampoline
	cache *Cache
	jumps *Jumps
	dyn   *Dynarec

	// waitReg is the V register awaiting a keypress, -1 when running.
	waitReg int

	// halted is set on an illegal opcode or internal fault; only a reset
	// clears it.
	halted bool

	lastTick time.Time
	logf     Logf
}

// NewEngine wires an engine over a loaded guest machine. The first
// dispatch translates at the guest's entry PC.
func NewEngine(st *chip8.State, logf Logf) (*Engine, error) {
	if logf == nil {
		logf = nopLog
	}

	abi := new(ABI)

	tramp, err := NewTrampoline(abi)
	if err != nil {
		return nil, fmt.Errorf("trampoline: %w", err)
	}

	cache := NewCache(abi, tramp, logf)
	jumps := NewJumps(logf)
	emit := NewEmitter(cache, abi, tramp)

	e := &Engine{
		st:       st,
		abi:      abi,
		tramp:    tramp,
		cache:    cache,
		jumps:    jumps,
		dyn:      NewDynarec(st, cache, jumps, emit, logf),
		waitReg:  -1,
		lastTick: time.Now(),
		logf:     logf,
	}

	e.prime()

	return e, nil
}

// prime arranges for the first dispatch to translate at the guest PC.
func (e *Engine) prime() {
	e.abi.Status = OutOfCode
	e.abi.Param1 = uint32(e.st.PC)
	e.abi.Param2 = 0
	e.abi.Resume = 0
}

// State returns the guest machine.
func (e *Engine) State() *chip8.State {
	return e.st
}

// Cache returns the region cache, for the debug panel.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Jumps returns the jump tables, for the debug panel.
func (e *Engine) Jumps() *Jumps {
	return e.jumps
}

// Halted is true once the guest hit an illegal opcode or the core gave up.
func (e *Engine) Halted() bool {
	return e.halted
}

// WaitingForKey is true while a LD Vx, K instruction blocks the guest.
func (e *Engine) WaitingForKey() bool {
	return e.waitReg >= 0
}

// PressKey holds a pad key down and delivers it to a blocked LD Vx, K.
func (e *Engine) PressKey(key uint) {
	e.st.PressKey(key)

	if e.waitReg >= 0 && key < 16 {
		e.st.V[e.waitReg] = byte(key)
		e.waitReg = -1
	}
}

// ReleaseKey lets a pad key go.
func (e *Engine) ReleaseKey(key uint) {
	e.st.ReleaseKey(key)
}

// Step runs one dispatcher iteration and re-enters translated code.
func (e *Engine) Step() error {
	if err := e.Dispatch(); err != nil {
		return err
	}

	if e.halted || e.waitReg >= 0 {
		return nil
	}

	return e.tramp.Exec()
}

// Dispatch is one iteration of the outer loop: refill sweep, invalidation
// sweep, then interrupt handling. It leaves the resume address pointing at
// the code to enter next.
func (e *Engine) Dispatch() error {
	if e.halted {
		return nil
	}

	// stale jump entries refresh before the regions they pointed at are
	// freed
	if err := e.jumps.ResolvePending(e.cache); err != nil {
		if errors.Is(err, ErrBadJumpTarget) || errors.Is(err, ErrJumpTableFull) {
			e.halt(err)
			return nil
		}

		return err
	}

	e.cache.Flush(e.jumps)

	status := e.abi.Status
	e.abi.Status = NoInterrupt

	if status != NoInterrupt {
		e.logf("interrupt %s, param #%04X", StatusName(status), e.abi.Param1)
	}

	switch status {
	case NoInterrupt:
		// normal re-entry at the current resume address

	case OutOfCode:
		pc := uint16(e.abi.Param1)

		if err := e.dyn.Translate(pc); err != nil {
			return err
		}

		// re-enter at the start of the (possibly extended) region
		e.abi.Resume = e.cache.Current().Base()

	case PrepareForJump:
		index := int(e.abi.Param1)
		target := e.jumps.Entry(index).Target

		if target == 0 {
			// impossible by construction once the refill sweep ran
			e.halt(fmt.Errorf("jump[%d] unresolved after refill", index))
			return nil
		}

		e.abi.Resume = target

	case PrepareForIndirectJump:
		pc := uint16(e.abi.Param1)

		index, err := e.cache.WritableByStartGuestPC(pc)
		if err != nil {
			return err
		}

		e.abi.Resume = e.cache.Region(index).Base()

	case SelfModifyingCode:
		e.cache.MarkInvalidByGuestPC(uint16(e.abi.Param1))
		e.abi.Resume = e.abi.Param2

	case WaitForKeypress:
		e.waitReg = int(e.abi.Param1) & 0xF
		e.abi.Resume = e.abi.Param2

	case DisplayDraw, UseInterpreter:
		inst := uint16(e.abi.Param1)

		lo, hi, err := e.st.Execute(inst)
		if err != nil {
			e.halt(err)
			return nil
		}

		// a guest write into translated code invalidates the covering
		// regions
		if lo >= 0 {
			e.invalidateWrites(lo, hi)
		}

		e.abi.Resume = e.abi.Param2

	case TimerTick:
		e.st.TickTimers()
		e.abi.Resume = e.abi.Param2

	case UnknownOpcode:
		e.halt(fmt.Errorf("illegal opcode at #%04X", e.abi.Param1))
		return nil

	default:
		e.halt(fmt.Errorf("unknown interrupt status %d", status))
		return nil
	}

	e.tickTimers()

	return nil
}

// invalidateWrites flags every region whose translation covers a written
// guest range. A write at address a can also land mid-instruction, so the
// byte before the range counts too.
func (e *Engine) invalidateWrites(lo, hi int) {
	if lo > 0 {
		lo--
	}

	for a := lo; a <= hi; a++ {
		e.cache.MarkInvalidByGuestPC(uint16(a))
	}
}

// tickTimers decrements the guest timers at 60 Hz of wall time.
func (e *Engine) tickTimers() {
	now := time.Now()

	// don't spiral after a long pause
	if now.Sub(e.lastTick) > time.Second {
		e.lastTick = now.Add(-tickInterval)
	}

	for now.Sub(e.lastTick) >= tickInterval {
		e.st.TickTimers()
		e.lastTick = e.lastTick.Add(tickInterval)
	}
}

// halt stops the guest for good and logs why.
func (e *Engine) halt(err error) {
	e.halted = true
	e.logf("guest halted: %s", err)
}

// Reset rebuilds the recompiler state around a freshly reset guest.
func (e *Engine) Reset() {
	e.st.Reset()
	e.cache.Shutdown()
	e.jumps.Reset()
	e.waitReg = -1
	e.halted = false
	e.lastTick = time.Now()
	e.prime()
}

// Shutdown releases every executable page and clears all tables.
func (e *Engine) Shutdown() {
	e.cache.Shutdown()
	e.jumps.Reset()

	if err := e.tramp.Free(); err != nil {
		e.logf("trampoline release failed: %s", err)
	}
}
