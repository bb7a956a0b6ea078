package memory

import "github.com/kestrelcore/go-dmg/dmg/bit"

// Key identifies one of the eight physical joypad inputs.
type Key uint8

const (
	KeyRight Key = iota
	KeyLeft
	KeyUp
	KeyDown
	KeyA
	KeyB
	KeySelect
	KeyStart
)

// Joypad models the P1 register (spec.md §4.4): a read-only button/d-pad
// state, multiplexed onto the register's low nibble by the selection bits
// the game writes into bits 4-5. A 1-to-0 transition on any selected line
// requests the joypad interrupt.
type Joypad struct {
	buttons uint8 // bits 0-3: A,B,Select,Start — 1 = released
	dpad    uint8 // bits 0-3: Right,Left,Up,Down — 1 = released
	select_ uint8 // raw P1 bits 4-5 as last written

	InterruptHandler func()
}

// NewJoypad creates a joypad with all lines released.
func NewJoypad() *Joypad {
	return &Joypad{buttons: 0x0F, dpad: 0x0F}
}

// Read returns the current P1 value: bits 6-7 always 1, bits 4-5 echo the
// selection, bits 0-3 reflect whichever group(s) are selected.
func (j *Joypad) Read() uint8 {
	result := uint8(0xC0) | j.select_

	selectDpad := !bit.IsSet(4, j.select_)
	selectButtons := !bit.IsSet(5, j.select_)

	switch {
	case selectButtons && !selectDpad:
		result |= j.buttons & 0x0F
	case selectDpad && !selectButtons:
		result |= j.dpad & 0x0F
	case selectDpad && selectButtons:
		result |= j.buttons & j.dpad & 0x0F
	default:
		result |= 0x0F
	}

	return result
}

// Write updates the selection bits (4-5); bits 0-3 are read-only from
// software's perspective.
func (j *Joypad) Write(value uint8) {
	j.select_ = value & 0x30
}

// Press clears the bit for the given key (0 = pressed) and requests the
// joypad interrupt on a release-to-press transition.
func (j *Joypad) Press(key Key) {
	before := j.Read()
	switch key {
	case KeyRight:
		j.dpad = bit.Reset(0, j.dpad)
	case KeyLeft:
		j.dpad = bit.Reset(1, j.dpad)
	case KeyUp:
		j.dpad = bit.Reset(2, j.dpad)
	case KeyDown:
		j.dpad = bit.Reset(3, j.dpad)
	case KeyA:
		j.buttons = bit.Reset(0, j.buttons)
	case KeyB:
		j.buttons = bit.Reset(1, j.buttons)
	case KeySelect:
		j.buttons = bit.Reset(2, j.buttons)
	case KeyStart:
		j.buttons = bit.Reset(3, j.buttons)
	}
	if after := j.Read(); before&^after&0x0F != 0 && j.InterruptHandler != nil {
		j.InterruptHandler()
	}
}

// Release sets the bit for the given key back to 1 (released).
func (j *Joypad) Release(key Key) {
	switch key {
	case KeyRight:
		j.dpad = bit.Set(0, j.dpad)
	case KeyLeft:
		j.dpad = bit.Set(1, j.dpad)
	case KeyUp:
		j.dpad = bit.Set(2, j.dpad)
	case KeyDown:
		j.dpad = bit.Set(3, j.dpad)
	case KeyA:
		j.buttons = bit.Set(0, j.buttons)
	case KeyB:
		j.buttons = bit.Set(1, j.buttons)
	case KeySelect:
		j.buttons = bit.Set(2, j.buttons)
	case KeyStart:
		j.buttons = bit.Set(3, j.buttons)
	}
}
