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
	"github.com/veandco/go-sdl2/sdl"
)

var (
	// Screen is the render target for the guest's video memory.
	Screen *sdl.Texture
)

// InitScreen creates the render target for the CHIP-8 video memory.
func InitScreen() {
	var err error

	// create a render target for the display
	Screen, err = Renderer.CreateTexture(sdl.PIXELFORMAT_RGB888, sdl.TEXTUREACCESS_TARGET, 64, 32)
	if err != nil {
		panic(err)
	}
}

// RefreshScreen redraws the render target from the guest video memory.
func RefreshScreen() {
	if err := Renderer.SetRenderTarget(Screen); err != nil {
		panic(err)
	}

	// the background color for the screen
	Renderer.SetDrawColor(143, 145, 133, 255)
	Renderer.Clear()

	// set the pixel color
	Renderer.SetDrawColor(17, 29, 43, 255)

	// draw all the pixels
	for p := 0; p < 64*32; p++ {
		if VM.Video[p>>3]&(0x80>>uint(p&7)) != 0 {
			x := int32(p & 63)
			y := int32(p >> 6)

			// render the pixel to the screen
			Renderer.DrawPoint(x, y)
		}
	}

	// restore the render target
	Renderer.SetRenderTarget(nil)

	// video memory is on the screen now
	VM.Draw = false
}

// DrawScreen stretches the render target into the display panel.
func DrawScreen() {
	src := sdl.Rect{W: 64, H: 32}

	// stretch the render target to fit
	Renderer.Copy(Screen, &src, &sdl.Rect{X: 10, Y: 10, W: 384, H: 192})
}
