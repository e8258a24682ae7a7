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
	"flag"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sqweek/dialog"
	"github.com/veandco/go-sdl2/sdl"

	"super8/chip8"
	"super8/jit"
)

var (
	// VM is the CHIP-8 guest machine.
	VM *chip8.State

	// Engine is the recompiler executing the guest.
	Engine *jit.Engine

	// Window is the global SDL window.
	Window *sdl.Window

	// Renderer is the global SDL renderer.
	Renderer *sdl.Renderer

	// Debug is the output Logger.
	Debug *Logger

	// ETI is true if ROM starts at 0x600 instead of 0x200.
	ETI bool

	// Trace is true when recompiler activity is logged.
	Trace bool

	// Paused is true if emulation is paused.
	Paused bool

	// File is the currently opened ROM.
	File string

	// Boot is the built-in ROM shown before anything is loaded. It draws
	// a sprite and spins.
	Boot = []byte{
		0xA2, 0x0A, // LD I, #20A
		0x6A, 0x1C, // LD VA, #1C
		0x6B, 0x0D, // LD VB, #0D
		0xDA, 0xB5, // DRW VA, VB, 5
		0x12, 0x08, // JP #208
		0xF0, 0x90, 0xF0, 0x90, 0xF0,
	}
)

func init() {
	runtime.LockOSThread()
}

func main() {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		panic(err)
	}

	// create a new debug log
	Debug = NewLog()

	// show what this is
	Debug.Log("SUPER8, a recompiling CHIP-8 emulator")

	// parse the command line
	flag.BoolVar(&ETI, "eti", false, "Start ROM at 0x600 for ETI-660.")
	flag.BoolVar(&Trace, "trace", false, "Log recompiler activity.")
	flag.Parse()

	// if launching in ETI mode, note that
	if ETI {
		Debug.Logln("Running in ETI-660 mode")
	}

	// create the guest machine
	if file := flag.Arg(0); file != "" {
		load(file)
	} else {
		unload()
	}

	// create the main window, renderer, and screen or panic
	createWindow()
	InitScreen()
	InitFont()
	InitAudio()

	// emulation and refresh rates
	clock := time.NewTicker(time.Millisecond)
	video := time.NewTicker(time.Second / 60)

	// notify that the main loop has started
	Debug.Logln("Starting program; press 'H' for help")

	// loop until window closed or user quit
	for ProcessEvents() {
		select {
		case <-video.C:
			PumpAudio()
			Redraw()
		case <-clock.C:
			step()
		}
	}

	Engine.Shutdown()
	sdl.Quit()
}

// step runs one dispatch iteration of the recompiler.
func step() {
	if Paused || Engine.Halted() {
		return
	}

	if err := Engine.Step(); err != nil {
		Debug.Logln(err.Error())

		// nothing can run; stop trying
		Paused = true
	}
}

// createWindow creates the SDL window and renderer or panics.
func createWindow() {
	var err error

	// create the window and renderer
	Window, Renderer, err = sdl.CreateWindowAndRenderer(614, 380, sdl.WINDOW_OPENGL)
	if err != nil {
		panic(err)
	}

	// set the title
	Window.SetTitle("SUPER8")
}

// jitLog returns the recompiler's logging hook.
func jitLog() jit.Logf {
	if !Trace {
		return nil
	}

	return Debug.Logf
}

// load a ROM file and spin up a recompiler for it.
func load(file string) error {
	var err error

	// log what is being loaded
	Debug.Logln("Loading", filepath.Base(file))

	// save the (attempted) loaded file
	File = file

	if VM, err = chip8.LoadFile(file, ETI); err != nil {
		Debug.Log(err.Error())

		// load the boot ROM so something is there
		VM, _ = chip8.LoadROM(Boot, false)
	} else {
		Debug.Log(fmt.Sprint(VM.Size), "bytes")
	}

	return rebuild()
}

// unload creates a new machine with the boot ROM.
func unload() {
	if VM != nil {
		Debug.Logln("Unloading ROM")
	}

	// create a machine with the boot ROM
	VM, _ = chip8.LoadROM(Boot, false)

	// no longer paused
	Paused = false

	// clear the loaded file
	File = ""

	rebuild()
}

// rebuild tears down the old recompiler and builds one over VM.
func rebuild() error {
	if Engine != nil {
		Engine.Shutdown()
	}

	var err error

	if Engine, err = jit.NewEngine(VM, jitLog()); err != nil {
		// a JIT without executable memory has nothing to fall back on
		panic(err)
	}

	return err
}

// reboot the emulator, restarting the loaded ROM.
func reboot() {
	Engine.Reset()

	// resume emulation
	Paused = false
}

// save launches a dialog allowing the user to save the current ROM.
func save() error {
	dlg := dialog.File().Title("Save CHIP-8 ROM")

	dlg.Filter("All Files", "*")
	dlg.Filter("ROM Files", "rom")

	// pick a file to save to
	file, err := dlg.Save()
	if err != nil {
		Debug.Logln(err.Error())
		return err
	}

	if err := VM.SaveROM(file); err != nil {
		Debug.Logln(err.Error())
		return err
	}

	Debug.Logln("ROM saved to", filepath.Base(file))

	return nil
}

// open shows the open file dialog to load a ROM.
func open() error {
	dlg := dialog.File().Title("Load CHIP-8 ROM")

	// types of files to load
	dlg.Filter("All Files", "*")
	dlg.Filter("ROMs", "rom", "ch8")

	// try and load it
	if file, err := dlg.Load(); err == nil {
		return load(file)
	} else {
		return err
	}
}

// help logs all the keyboard commands.
func help() {
	Debug.Logln("Keys        | Description")
	Debug.Log("------------+-------------------------------------")
	Debug.Log("BACK        | Reboot")
	Debug.Log("HOME / END  | Scroll log")
	Debug.Log("PGUP / PGDN | Scroll log")
	Debug.Log("F2          | Reload ROM")
	Debug.Log("F3          | Open ROM")
	Debug.Log("F4          | Save ROM")
	Debug.Log("F5 / SPACE  | Pause/resume")
	Debug.Log("ESC         | Unload ROM")
	Debug.Log("H           | This help")
}
