// Package memory implements the Game Boy's memory-mapped interconnect: the
// unified address-space router (MMU), work/high RAM, the cartridge/MBC
// boundary, the timer, the joypad and the OAM-DMA engine (spec.md §4.3-§4.5,
// §4.7-§4.8).
package memory

import (
	"github.com/kestrelcore/go-dmg/dmg/addr"
	"github.com/kestrelcore/go-dmg/dmg/cpu"
	"github.com/kestrelcore/go-dmg/dmg/video"
)

type region uint8

const (
	regionROM region = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionUnusable
	regionIO
	regionHRAM
)

// MMU is the interconnect (C9): it uniquely owns every peripheral (the
// cartridge/MBC, the PPU, the timer, the joypad, the OAM-DMA engine) and
// exposes the two operations the CPU needs — Read and Write over the full
// 16-bit address space.
type MMU struct {
	regionMap [256]region

	mbc  MBC
	gpu  *video.GPU
	dma  DMAEngine

	wram [0x2000]byte // 2x4KB banks; this core does not implement CGB WRAM banking
	hram [0x7F]byte

	timer      Timer
	joypad     *Joypad
	interrupts *cpu.Interrupts
}

// New creates an MMU with no cartridge loaded; Read/Write over ROM/external
// RAM return/drop silently until LoadCartridge is called. interrupts is the
// CPU's interrupt controller — the MMU routes the memory-mapped IE/IF
// registers and every peripheral's interrupt request to it directly, since
// the interconnect owns no interrupt state of its own (spec.md §4.2/§4.8).
func New(interrupts *cpu.Interrupts) *MMU {
	m := &MMU{
		gpu:        video.NewGPU(),
		joypad:     NewJoypad(),
		interrupts: interrupts,
	}
	initRegionMap(&m.regionMap)

	m.dma.Read = m.Read
	m.dma.Write = m.rawWrite
	m.timer.InterruptHandler = func() { m.interrupts.Request(addr.Timer) }
	m.joypad.InterruptHandler = func() { m.interrupts.Request(addr.Joypad) }
	m.gpu.RequestInterrupt = func(src video.InterruptSource) {
		switch src {
		case video.InterruptVBlank:
			m.interrupts.Request(addr.VBlank)
		case video.InterruptLCDStat:
			m.interrupts.Request(addr.LCDStat)
		}
	}

	return m
}

func initRegionMap(regionMap *[256]region) {
	for i := 0x00; i <= 0x7F; i++ {
		regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		regionMap[i] = regionEcho
	}
	regionMap[0xFE] = regionOAM // split further by low byte in Read/Write
	regionMap[0xFF] = regionIO  // split further by low byte in Read/Write
}

// LoadCartridge wires a cartridge's MBC into the interconnect. savePath, if
// non-empty, is where battery-backed external RAM is loaded from and
// later saved to (see Save).
func (m *MMU) LoadCartridge(cart *Cartridge, savePath string) error {
	mbc, err := cart.NewMBC(savePath)
	if err != nil {
		return err
	}
	m.mbc = mbc
	return nil
}

// Save returns the current battery-backed external RAM contents, or nil if
// the loaded cartridge has no battery.
func (m *MMU) Save() []byte {
	if m.mbc == nil {
		return nil
	}
	return m.mbc.Save()
}

// GPU exposes the owned PPU, from which the emulator reads the completed
// frame.
func (m *MMU) GPU() *video.GPU { return m.gpu }

// Joypad exposes the owned joypad for input delivery.
func (m *MMU) Joypad() *Joypad { return m.joypad }

// SeedTimer initializes the internal divider counter to the given value,
// used to reproduce the post-boot-ROM DIV state without modeling the boot
// ROM itself.
func (m *MMU) SeedTimer(seed uint16) { m.timer.SetSeed(seed) }

// Tick advances the timer, PPU and any in-progress OAM-DMA transfer by the
// given number of machine cycles.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	m.gpu.Tick(cycles)
	m.dma.Tick(cycles)
}

func (m *MMU) Read(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.mbc == nil {
			return 0xFF
		}
		return m.mbc.Read(address)
	case regionVRAM:
		if m.gpu.Mode() == video.ModeVRAM {
			return 0xFF
		}
		return m.gpu.ReadVRAM(address - addr.VRAMStart)
	case regionWRAM:
		return m.wram[address-addr.WRAM0Start]
	case regionEcho:
		return m.wram[address-addr.EchoStart]
	case regionOAM:
		if address > addr.OAMEnd {
			return 0xFF
		}
		if mode := m.gpu.Mode(); mode == video.ModeOAM || mode == video.ModeVRAM {
			return 0xFF
		}
		return m.gpu.ReadOAM(address - addr.OAMStart)
	case regionIO:
		return m.readIO(address)
	default:
		return 0xFF
	}
}

func (m *MMU) Write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM:
		if m.mbc != nil {
			m.mbc.Write(address, value)
		}
	case regionExtRAM:
		if m.mbc != nil {
			m.mbc.Write(address, value)
		}
	case regionVRAM:
		if m.gpu.Mode() == video.ModeVRAM {
			return
		}
		m.gpu.WriteVRAM(address-addr.VRAMStart, value)
	case regionWRAM:
		m.wram[address-addr.WRAM0Start] = value
	case regionEcho:
		m.wram[address-addr.EchoStart] = value
	case regionOAM:
		if address > addr.OAMEnd {
			return
		}
		if mode := m.gpu.Mode(); mode == video.ModeOAM || mode == video.ModeVRAM {
			return
		}
		m.gpu.WriteOAM(address-addr.OAMStart, value)
	case regionIO:
		m.writeIO(address, value)
	}
}

// rawWrite writes directly to OAM, bypassing region dispatch; used by the
// DMA engine so its writes don't get reinterpreted as ordinary bus writes.
func (m *MMU) rawWrite(address uint16, value byte) {
	if address >= addr.OAMStart && address <= addr.OAMEnd {
		m.gpu.WriteOAM(address-addr.OAMStart, value)
	}
}

func (m *MMU) readIO(address uint16) byte {
	switch {
	case address == addr.P1:
		return m.joypad.Read()
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		return m.timer.Read(address)
	case address == addr.IF:
		return m.interrupts.IF | 0xE0
	case address == addr.IE:
		return m.interrupts.IE
	case address >= addr.LCDC && address <= addr.WX:
		return m.gpu.ReadRegister(address)
	case address >= addr.HRAMStart && address <= addr.HRAMEnd:
		return m.hram[address-addr.HRAMStart]
	default:
		return 0xFF
	}
}

func (m *MMU) writeIO(address uint16, value byte) {
	switch {
	case address == addr.P1:
		m.joypad.Write(value)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		m.timer.Write(address, value)
	case address == addr.IF:
		m.interrupts.IF = value & 0x1F
	case address == addr.IE:
		m.interrupts.IE = value
	case address == addr.DMA:
		m.dma.Start(value)
	case address >= addr.LCDC && address <= addr.WX:
		m.gpu.WriteRegister(address, value)
	case address >= addr.HRAMStart && address <= addr.HRAMEnd:
		m.hram[address-addr.HRAMStart] = value
	}
}
