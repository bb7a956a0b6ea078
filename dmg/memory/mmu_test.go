package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelcore/go-dmg/dmg/addr"
	"github.com/kestrelcore/go-dmg/dmg/cpu"
)

func newTestMMU() *MMU {
	return New(&cpu.Interrupts{})
}

func TestMMU_EchoRAM_MirrorsWRAM(t *testing.T) {
	m := newTestMMU()

	m.Write(addr.WRAM0Start+0x10, 0x42)
	assert.Equal(t, byte(0x42), m.Read(addr.EchoStart+0x10))

	m.Write(addr.EchoStart+0x20, 0x99)
	assert.Equal(t, byte(0x99), m.Read(addr.WRAM0Start+0x20))
}

func TestMMU_Unusable_ReadsFF(t *testing.T) {
	m := newTestMMU()
	assert.Equal(t, byte(0xFF), m.Read(addr.UnusableStart))
}

func TestMMU_IE_IF_RouteThroughInterruptController(t *testing.T) {
	interrupts := &cpu.Interrupts{}
	m := New(interrupts)

	m.Write(addr.IE, 0x1F)
	assert.Equal(t, byte(0x1F), interrupts.IE)
	assert.Equal(t, byte(0x1F), m.Read(addr.IE))

	interrupts.Request(addr.Timer)
	assert.Equal(t, byte(0xE0|1<<addr.Timer.Bit()), m.Read(addr.IF), "IF reads always have the top 3 bits set")
}

func TestMMU_NoCartridge_ROMReadsFF(t *testing.T) {
	m := newTestMMU()
	assert.Equal(t, byte(0xFF), m.Read(0x0100))
}

// advanceToOAM ticks the GPU (LCD enabled) from its post-NewGPU VBlank
// rest state until it lands exactly on the ModeOAM entry of a fresh
// scanline, with zero residual cycles.
func advanceToOAM(m *MMU) {
	m.gpu.WriteRegister(0xFF40, 0x80) // LCD on
	m.gpu.Tick(10 * 114)              // remaining VBlank lines (ly 144 -> 0)
}

func TestMMU_VRAM_BlockedDuringMode3(t *testing.T) {
	m := newTestMMU()

	m.Write(addr.VRAMStart, 0x11)
	assert.Equal(t, byte(0x11), m.Read(addr.VRAMStart))

	advanceToOAM(m)
	m.gpu.Tick(20) // OAM -> VRAM (mode 3)
	assert.Equal(t, byte(0xFF), m.Read(addr.VRAMStart), "VRAM reads return 0xFF during mode 3")
	m.Write(addr.VRAMStart, 0x22)
	assert.Equal(t, byte(0xFF), m.Read(addr.VRAMStart), "VRAM writes are dropped during mode 3")

	m.gpu.Tick(43) // VRAM -> HBlank
	assert.Equal(t, byte(0x11), m.Read(addr.VRAMStart), "VRAM access resumes once mode 3 ends")
}

func TestMMU_OAM_BlockedDuringModes2And3(t *testing.T) {
	m := newTestMMU()

	m.Write(addr.OAMStart, 0x33)
	assert.Equal(t, byte(0x33), m.Read(addr.OAMStart))

	advanceToOAM(m)
	assert.Equal(t, byte(0xFF), m.Read(addr.OAMStart), "OAM blocked during mode 2")
	m.Write(addr.OAMStart, 0x44)
	assert.Equal(t, byte(0xFF), m.Read(addr.OAMStart))

	m.gpu.Tick(20) // OAM -> VRAM
	assert.Equal(t, byte(0xFF), m.Read(addr.OAMStart), "OAM still blocked during mode 3")

	m.gpu.Tick(43) // VRAM -> HBlank
	assert.Equal(t, byte(0x33), m.Read(addr.OAMStart), "OAM access resumes outside modes 2/3")
}

func TestMMU_OAMDMA_CopiesAllBytesOverMultipleCycles(t *testing.T) {
	m := newTestMMU()

	for i := 0; i < 0xA0; i++ {
		m.Write(0xC000+uint16(i), byte(i+1))
	}

	m.Write(addr.DMA, 0xC0)

	// Midway through the 160-cycle transfer, only some units have landed.
	m.Tick(80)
	assert.Equal(t, byte(1), m.Read(0xFE00))
	assert.NotEqual(t, byte(0), m.Read(0xFE00), "first unit should have already landed")

	m.Tick(80)
	assert.Equal(t, byte(0xA0), m.Read(0xFE9F))
}
