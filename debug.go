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

package main

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"
)

// Redraw clears the renderer, redraws everything, and presents.
func Redraw() {
	RefreshScreen()

	// clear the renderer
	Renderer.SetDrawColor(32, 42, 53, 255)
	Renderer.Clear()

	// frame the screen, log, cache, and registers
	frame(8, 8, 386, 194)
	frame(8, 208, 386, 164)
	frame(402, 8, 204, 194)
	frame(402, 208, 204, 164)

	// draw the panels
	DrawScreen()
	DrawLog()
	DrawCache()
	DrawRegisters()

	// show it
	Renderer.Present()
}

// frame draws a highlighted panel around a rectangular area.
func frame(x, y, w, h int32) {
	Renderer.SetDrawColor(0, 0, 0, 255)
	Renderer.DrawLine(x, y, x+w, y)
	Renderer.DrawLine(x, y, x, y+h)

	// highlight
	Renderer.SetDrawColor(95, 112, 120, 255)
	Renderer.DrawLine(x+w, y, x+w, y+h)
	Renderer.DrawLine(x, y+h, x+w, y+h)
}

// DrawLog shows the current log window.
func DrawLog() {
	x, y := 12, 212

	for i, s := range Debug.Window(16) {
		if len(s) >= 54 {
			DrawText(s[:52]+"...", x, y+i*10)
		} else {
			DrawText(s, x, y+i*10)
		}
	}
}

// DrawCache shows the translation cache: one line per region, plus the
// jump table totals. The current region is highlighted.
func DrawCache() {
	x, y := 406, 12

	cache := Engine.Cache()
	jumps := Engine.Jumps()

	DrawText("CACHE  START END   USED", x, y)

	// show the first 15 regions
	for i := 0; i < cache.Len() && i < 15; i++ {
		r := cache.Region(i)

		if i == cache.Selected() {
			Renderer.SetDrawColor(57, 102, 176, 255)

			// highlight the region being written
			Renderer.FillRect(&sdl.Rect{
				X: int32(x - 2),
				Y: int32(y+(i+1)*10) - 1,
				W: 202,
				H: 10,
			})
		}

		flag := " "
		if r.StopWrite {
			flag = "*"
		}

		s := fmt.Sprintf("%3d%s   #%04X #%04X %4d", i, flag, r.StartPC, r.EndPC, r.Cursor)
		DrawText(s, x, y+(i+1)*10)
	}

	// table totals at the bottom of the panel
	s := fmt.Sprintf("JUMPS %d REFILL %d", jumps.Len(), jumps.PendingRefills())
	DrawText(s, x, y+170)
}

// DrawRegisters shows the current value of all virtual registers.
func DrawRegisters() {
	x, y := 406, 212

	for i := 0; i < 16; i++ {
		DrawText(fmt.Sprintf("V%X = #%02X", i, VM.V[i]), x, y+i*10)
	}

	// shift over to next column
	x += 98

	// show the special registers
	DrawText(fmt.Sprintf("DT = #%02X", VM.DT), x, y)
	DrawText(fmt.Sprintf("ST = #%02X", VM.ST), x, y+10)
	DrawText(fmt.Sprintf(" I = #%04X", VM.I), x, y+30)
	DrawText(fmt.Sprintf("PC = #%04X", VM.PC), x, y+50)
	DrawText(fmt.Sprintf("SP = #%02X", VM.SP), x, y+60)

	// emulation state
	switch {
	case Engine.Halted():
		DrawText("HALTED", x, y+80)
	case Engine.WaitingForKey():
		DrawText("WAITKEY", x, y+80)
	case Paused:
		DrawText("PAUSED", x, y+80)
	}

	// what the guest is about to run
	DrawText(VM.Disassemble(VM.PC), x, y+100)
}
