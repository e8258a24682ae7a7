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

//go:build !386

package jit

import "errors"

// ErrNot386 is returned when trying to execute translated code on a host
// that is not 32-bit x86.
var ErrNot386 = errors.New("translated code requires a 32-bit x86 host")

// Exec reports that translated code cannot run on this host. Translation
// and cache bookkeeping still work; only execution is gated.
func (t *Trampoline) Exec() error {
	return ErrNot386
}
