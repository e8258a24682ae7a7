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
	"encoding/binary"
	"math"

	"github.com/veandco/go-sdl2/sdl"
)

const (
	// toneRate is the audio sample rate.
	toneRate = 48000

	// toneHz is the beep frequency while the sound timer runs.
	toneHz = 440
)

var (
	// Audio is the opened playback device.
	Audio sdl.AudioDeviceID

	// tonePhase tracks the square wave between buffers.
	tonePhase float64

	// Volume ramps down after the sound timer hits zero to avoid a pop.
	Volume float32
)

// InitAudio opens an audio device for the beeper.
func InitAudio() {
	spec := &sdl.AudioSpec{
		Freq:     toneRate,
		Format:   sdl.AUDIO_F32LSB,
		Channels: 1,
		Samples:  1024,
	}

	var err error

	// open the default device and start playing it
	if Audio, err = sdl.OpenAudioDevice("", false, spec, nil, 0); err != nil {
		panic(err)
	}

	sdl.PauseAudioDevice(Audio, false)
}

// PumpAudio queues the next slice of the beep tone. Called once per video
// frame; keeps roughly two frames of audio queued.
func PumpAudio() {
	if sdl.GetQueuedAudioSize(Audio) > toneRate/30*4 {
		return
	}

	// ramp the volume to the desired end
	if VM.ST > 0 {
		Volume = 0.25
	} else if Volume > 0 {
		Volume -= 0.05
		if Volume < 0 {
			Volume = 0
		}
	}

	buf := make([]byte, toneRate/60*4)

	for i := 0; i < len(buf); i += 4 {
		var sample float32

		// square wave at the tone frequency
		if math.Mod(tonePhase, 1) < 0.5 {
			sample = Volume
		} else {
			sample = -Volume
		}

		tonePhase += toneHz / float64(toneRate)

		binary.LittleEndian.PutUint32(buf[i:], math.Float32bits(sample))
	}

	sdl.QueueAudio(Audio, buf)
}
