package memory

import (
	"github.com/kestrelcore/go-dmg/dmg/addr"
	"github.com/kestrelcore/go-dmg/dmg/bit"
)

// Timer implements DIV/TIMA/TMA/TAC (spec.md §4.3): a free-running 16-bit
// system counter (DIV is its upper byte) and a falling-edge-triggered TIMA
// increment selected by TAC's clock-select bits.
type Timer struct {
	systemCounter uint16
	lastTimerBit  bool
	timaOverflow  int
	timaDelayInt  bool

	div  byte
	tima byte
	tma  byte
	tac  byte

	InterruptHandler func()
}

// SetSeed initializes the internal divider counter, used to give the
// post-boot-ROM DIV value without modeling the boot ROM itself.
func (t *Timer) SetSeed(seed uint16) {
	t.systemCounter = seed
	t.lastTimerBit = false
	t.timaOverflow = 0
	t.timaDelayInt = false
	t.div = byte(t.systemCounter >> 8)
}

// Tick advances the timer by the given number of machine cycles, each worth
// 4 clock ticks of the system counter.
func (t *Timer) Tick(cycles int) {
	for range cycles {
		t.tickOnce()
	}
}

func (t *Timer) tickOnce() {
	if t.timaDelayInt {
		if t.InterruptHandler != nil {
			t.InterruptHandler()
		}
		t.timaDelayInt = false
	}

	if t.timaOverflow > 0 {
		t.timaOverflow--
		if t.timaOverflow == 0 {
			t.tima = t.tma
			t.timaDelayInt = true
		}
	}

	for range 4 {
		t.systemCounter++
		t.div = byte(t.systemCounter >> 8)

		if t.timaOverflow > 0 {
			continue
		}

		if t.tac&0x04 == 0 {
			t.lastTimerBit = false
			continue
		}

		var bitPosition uint8
		switch t.tac & 0x03 {
		case 0x00:
			bitPosition = 9
		case 0x01:
			bitPosition = 3
		case 0x02:
			bitPosition = 5
		case 0x03:
			bitPosition = 7
		}

		currentBit := bit.IsSet16(bitPosition, t.systemCounter)
		if t.lastTimerBit && !currentBit {
			if t.tima == 0xFF {
				t.tima = 0x00
				t.timaOverflow = 4
			} else {
				t.tima++
			}
		}
		t.lastTimerBit = currentBit
	}
}

func (t *Timer) Read(address uint16) byte {
	switch address {
	case addr.DIV:
		return t.div
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return t.tac | 0xF8
	default:
		return 0xFF
	}
}

func (t *Timer) Write(address uint16, value byte) {
	switch address {
	case addr.DIV:
		t.systemCounter = 0
		t.div = 0
	case addr.TIMA:
		t.tima = value
		t.timaOverflow = 0
	case addr.TMA:
		t.tma = value
	case addr.TAC:
		t.tac = value & 0x07
	}
}
