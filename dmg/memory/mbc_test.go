package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// romWithBankMarkers returns a ROM image where each 16KB bank's first two
// bytes encode its own bank number (low byte, then high byte), for
// asserting which bank is switched in without truncation ambiguity past
// bank 255.
func romWithBankMarkers(banks int) []byte {
	rom := make([]byte, banks*0x4000)
	for b := 0; b < banks; b++ {
		rom[b*0x4000] = byte(b)
		rom[b*0x4000+1] = byte(b >> 8)
	}
	return rom
}

func TestMBC1_RAMGating_EnabledByLowNibbleA(t *testing.T) {
	m := NewMBC1(romWithBankMarkers(4), 1, false, nil)

	assert.Equal(t, byte(0xFF), m.Read(0xA000), "RAM disabled by default")

	m.Write(0x0000, 0x0A)
	m.Write(0xA000, 0x55)
	assert.Equal(t, byte(0x55), m.Read(0xA000))

	m.Write(0x0000, 0x00) // any value without low nibble 0x0A disables
	assert.Equal(t, byte(0xFF), m.Read(0xA000))
}

func TestMBC1_ROMBankSwitch_Zero(t *testing.T) {
	m := NewMBC1(romWithBankMarkers(4), 0, false, nil)

	m.Write(0x2000, 0x02)
	assert.Equal(t, byte(2), m.Read(0x4000))

	// Writing bank 0 to the bank-select register aliases to bank 1, a
	// hardware quirk shared by every MBC1-family controller.
	m.Write(0x2000, 0x00)
	assert.Equal(t, byte(1), m.Read(0x4000))
}

func TestMBC3_RTCSelect_ReadsZeroAndBlocksRAMWrites(t *testing.T) {
	m := NewMBC3(romWithBankMarkers(4), 1, false, nil)
	m.Write(0x0000, 0x0A) // enable RAM

	m.Write(0xA000, 0x77) // ordinary RAM bank 0 write
	assert.Equal(t, byte(0x77), m.Read(0xA000))

	m.Write(0x4000, 0x08) // select an RTC register instead of a RAM bank
	assert.Equal(t, byte(0x00), m.Read(0xA000))

	m.Write(0xA000, 0x99) // write while RTC-selected must not touch RAM
	m.Write(0x4000, 0x00) // switch back to RAM bank 0
	assert.Equal(t, byte(0x77), m.Read(0xA000))
}

func TestMBC5_NineBitROMBank(t *testing.T) {
	m := NewMBC5(romWithBankMarkers(257), 0, false, nil)

	m.Write(0x2000, 0x00) // low 8 bits
	m.Write(0x3000, 0x01) // high bit -> bank 256
	assert.Equal(t, byte(0), m.Read(0x4000), "bank 256's low marker byte")
	assert.Equal(t, byte(1), m.Read(0x4001), "bank 256's high marker byte")

	m.Write(0x2000, 0x05)
	m.Write(0x3000, 0x00)
	assert.Equal(t, byte(5), m.Read(0x4000))
	assert.Equal(t, byte(0), m.Read(0x4001))
}

func TestMBC_Save_NilWithoutBattery(t *testing.T) {
	m := NewMBC1(romWithBankMarkers(2), 1, false, nil)
	assert.Nil(t, m.Save())

	m2 := NewMBC1(romWithBankMarkers(2), 1, true, []byte{1, 2, 3})
	assert.NotNil(t, m2.Save())
}

// A battery-backed cartridge must be saveable on its very first run, before
// any `.sav` sidecar exists on disk: hasBattery comes from the cartridge
// header, never from whether save data happened to be found.
func TestMBC_Save_BatteryWithoutPriorSaveData(t *testing.T) {
	m := NewMBC1(romWithBankMarkers(2), 1, true, nil)
	assert.NotNil(t, m.Save())
}
