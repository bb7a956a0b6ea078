// Package video implements the tile-based LCD controller (spec.md §4.6): a
// scanline-accurate mode state machine, VRAM/OAM storage, a decoded-tile
// cache and background/window/sprite compositing into a 160x144 frame.
package video

// Mode is the PPU's current rendering stage, matching STAT bits 1-0.
type Mode uint8

const (
	ModeHBlank Mode = 0
	ModeVBlank Mode = 1
	ModeOAM    Mode = 2
	ModeVRAM   Mode = 3
)

// Per-mode durations in machine cycles. The glossary's "456 machine cycles
// per scanline" figure is stated in T-states; at 4 T-states per machine
// cycle that is 114, the unit this PPU (and the CPU's own cycle-return
// convention) actually counts in.
const (
	oamCycles      = 20
	vramCycles     = 43
	hblankCycles   = 51
	scanlineCycles = oamCycles + vramCycles + hblankCycles // 114 machine cycles
	scanlinesTotal = 154
	visibleLines   = 144

	// FrameCycles is the total machine-cycle budget for one 154-scanline
	// frame, the frame scheduler's pacing unit.
	FrameCycles = scanlineCycles * scanlinesTotal
)

// InterruptRequester lets the PPU raise VBlank/LCDStat without owning the
// rest of the interrupt controller.
type InterruptRequester func(source InterruptSource)

// InterruptSource mirrors addr.Interrupt's two PPU-relevant values without
// importing the cpu-facing addr package, keeping video dependency-free of
// cpu/addr's vector table.
type InterruptSource uint8

const (
	InterruptVBlank InterruptSource = iota
	InterruptLCDStat
)

// GPU owns VRAM, OAM and the LCD control/status/scroll/palette registers,
// and drives the scanline state machine from Tick (spec.md §4.6, design
// note: "coroutine-free pixel pipeline").
type GPU struct {
	vram [0x2000]byte
	oam  [160]byte
	tiles *TileCache

	lcdc, stat, scy, scx, ly, lyc, bgp, obp0, obp1, wy, wx byte

	mode       Mode
	cycles     int
	windowLine int
	bgShade    [Width]Shade
	priority   spritePriority

	frame FrameBuffer

	RequestInterrupt InterruptRequester
}

// NewGPU creates a GPU in the post-boot-ROM VBlank state.
func NewGPU() *GPU {
	return &GPU{
		tiles: NewTileCache(),
		mode:  ModeVBlank,
		ly:    144,
	}
}

func (g *GPU) Frame() *FrameBuffer { return &g.frame }

// --- register/VRAM/OAM access, delegated to by the interconnect ---

func (g *GPU) ReadVRAM(address uint16) byte { return g.vram[address&0x1FFF] }

func (g *GPU) WriteVRAM(address uint16, value byte) {
	offset := address & 0x1FFF
	g.vram[offset] = value
	g.tiles.MarkDirty(offset)
}

func (g *GPU) ReadOAM(address uint16) byte  { return g.oam[address&0xFF] }
func (g *GPU) WriteOAM(address uint16, value byte) { g.oam[address&0xFF] = value }

func (g *GPU) ReadRegister(address uint16) byte {
	switch address & 0xFF {
	case 0x40:
		return g.lcdc
	case 0x41:
		return g.stat | 0x80
	case 0x42:
		return g.scy
	case 0x43:
		return g.scx
	case 0x44:
		return g.ly
	case 0x45:
		return g.lyc
	case 0x47:
		return g.bgp
	case 0x48:
		return g.obp0
	case 0x49:
		return g.obp1
	case 0x4A:
		return g.wy
	case 0x4B:
		return g.wx
	default:
		return 0xFF
	}
}

func (g *GPU) WriteRegister(address uint16, value byte) {
	switch address & 0xFF {
	case 0x40:
		wasEnabled := g.lcdc&0x80 != 0
		g.lcdc = value
		if wasEnabled && g.lcdc&0x80 == 0 {
			g.disableLCD()
		}
	case 0x41:
		g.stat = (g.stat & 0x07) | (value &^ 0x07)
	case 0x42:
		g.scy = value
	case 0x43:
		g.scx = value
	case 0x44:
		g.ly = 0
		g.cycles = 0
	case 0x45:
		g.lyc = value
		g.compareLYC()
	case 0x47:
		g.bgp = value
	case 0x48:
		g.obp0 = value
	case 0x49:
		g.obp1 = value
	case 0x4A:
		g.wy = value
	case 0x4B:
		g.wx = value
	}
}

// Tick advances the PPU state machine by the given number of machine
// cycles, drawing a scanline synchronously on mode-3 entry and raising
// VBlank/LCDStat interrupts at mode/coincidence transitions.
func (g *GPU) Tick(cycles int) {
	if g.lcdc&0x80 == 0 {
		return
	}

	g.cycles += cycles
	for g.cycles >= g.modeDuration() {
		g.cycles -= g.modeDuration()
		g.advanceMode()
	}
}

// disableLCD forces the scanline counter to its disabled-screen rest state:
// LY=0, mode HBlank, cycle counter cleared. A game that blanks the LCD and
// then polls LY before re-enabling it must see 0, not a stale scanline.
func (g *GPU) disableLCD() {
	g.ly = 0
	g.cycles = 0
	g.setMode(ModeHBlank)
	g.compareLYC()
}

// Mode reports the PPU's current rendering stage, for the interconnect to
// gate VRAM/OAM bus access against.
func (g *GPU) Mode() Mode { return g.mode }

func (g *GPU) modeDuration() int {
	switch g.mode {
	case ModeOAM:
		return oamCycles
	case ModeVRAM:
		return vramCycles
	case ModeHBlank:
		return hblankCycles
	default: // ModeVBlank: one scanline's worth per step
		return scanlineCycles
	}
}

func (g *GPU) advanceMode() {
	switch g.mode {
	case ModeOAM:
		g.setMode(ModeVRAM)
		g.renderScanline()
	case ModeVRAM:
		g.setMode(ModeHBlank)
		g.statInterruptOn(3)
	case ModeHBlank:
		g.setLY(int(g.ly) + 1)
		if int(g.ly) == visibleLines {
			g.setMode(ModeVBlank)
			g.windowLine = 0
			if g.RequestInterrupt != nil {
				g.RequestInterrupt(InterruptVBlank)
			}
			g.statInterruptOn(4)
		} else {
			g.setMode(ModeOAM)
			g.statInterruptOn(5)
		}
	case ModeVBlank:
		g.setLY((int(g.ly) + 1) % scanlinesTotal)
		if int(g.ly) == 0 {
			g.setMode(ModeOAM)
			g.statInterruptOn(5)
		}
	}
}

func (g *GPU) setMode(mode Mode) {
	g.mode = mode
	g.stat = g.stat&0xFC | byte(mode)
}

func (g *GPU) setLY(line int) {
	g.ly = byte(line)
	g.compareLYC()
}

// compareLYC implements edge-triggered LYC=LY coincidence (design note:
// spec requires edge-triggered STAT interrupts, not level).
func (g *GPU) compareLYC() {
	wasSet := g.stat&0x04 != 0
	nowSet := g.ly == g.lyc
	if nowSet {
		g.stat |= 0x04
	} else {
		g.stat &^= 0x04
	}
	if nowSet && !wasSet && g.stat&0x40 != 0 && g.RequestInterrupt != nil {
		g.RequestInterrupt(InterruptLCDStat)
	}
}

func (g *GPU) statInterruptOn(statBit uint8) {
	if g.stat&(1<<statBit) != 0 && g.RequestInterrupt != nil {
		g.RequestInterrupt(InterruptLCDStat)
	}
}

// --- scanline rendering ---

func (g *GPU) renderScanline() {
	line := int(g.ly)
	if line >= visibleLines {
		return
	}
	g.drawBackground(line)
	g.drawWindow(line)
	g.drawSprites(line)
}

func (g *GPU) tileDataOffset(tileValue byte, signedAddressing bool) int {
	if signedAddressing {
		return 256 + int(int8(tileValue))
	}
	return int(tileValue)
}

func (g *GPU) drawBackground(line int) {
	if g.lcdc&0x01 == 0 {
		color := ApplyPalette(g.bgp, 0)
		for x := 0; x < Width; x++ {
			g.frame.Set(x, line, color)
			g.bgShade[x] = 0
		}
		return
	}

	signed := g.lcdc&0x10 == 0
	mapBase := uint16(0x1800) // 0x9800 - 0x8000
	if g.lcdc&0x08 != 0 {
		mapBase = 0x1C00 // 0x9C00 - 0x8000
	}

	scrolledY := (line + int(g.scy)) & 0xFF
	mapRow := (scrolledY / 8) * 32
	tileRow := scrolledY % 8

	for x := 0; x < Width; x++ {
		scrolledX := (x + int(g.scx)) & 0xFF
		mapCol := scrolledX / 8
		tileValue := g.vram[mapBase+uint16(mapRow+mapCol)]
		tileIndex := g.tileDataOffset(tileValue, signed)

		shades := g.tiles.Row(g.vram[:0x1800], tileIndex, tileRow)
		shade := shades[scrolledX%8]

		g.frame.Set(x, line, ApplyPalette(g.bgp, shade))
		g.bgShade[x] = shade
	}
}

func (g *GPU) drawWindow(line int) {
	if g.lcdc&0x20 == 0 || g.windowLine > visibleLines-1 {
		return
	}
	wx := int(g.wx) - 7
	if int(g.wy) > line || wx >= Width {
		return
	}

	signed := g.lcdc&0x10 == 0
	mapBase := uint16(0x1800)
	if g.lcdc&0x40 != 0 {
		mapBase = 0x1C00
	}

	mapRow := (g.windowLine / 8) * 32
	tileRow := g.windowLine % 8

	for x := 0; x < Width; x++ {
		if x < wx {
			continue
		}
		col := x - wx
		mapCol := col / 8
		tileValue := g.vram[mapBase+uint16(mapRow+mapCol)]
		tileIndex := g.tileDataOffset(tileValue, signed)

		shades := g.tiles.Row(g.vram[:0x1800], tileIndex, tileRow)
		shade := shades[col%8]

		g.frame.Set(x, line, ApplyPalette(g.bgp, shade))
		g.bgShade[x] = shade
	}
	g.windowLine++
}

func (g *GPU) drawSprites(line int) {
	if g.lcdc&0x02 == 0 {
		return
	}
	height := 8
	if g.lcdc&0x04 != 0 {
		height = 16
	}

	var visible []int
	for i := 0; i < 40; i++ {
		s := readSprite(g.oam[:], i)
		if s.Y > line || s.Y+height <= line {
			continue
		}
		visible = append(visible, i)
		if len(visible) == 10 {
			break
		}
	}

	g.priority.clear()
	for _, i := range visible {
		s := readSprite(g.oam[:], i)
		for dx := 0; dx < 8; dx++ {
			g.priority.tryClaim(s.X+dx, i, s.X)
		}
	}

	for _, i := range visible {
		s := readSprite(g.oam[:], i)

		tile := int(s.Tile)
		if height == 16 {
			tile &^= 1
		}

		row := line - s.Y
		if s.FlipY() {
			row = height - 1 - row
		}
		tileIndex := tile
		if row >= 8 {
			tileIndex++
			row -= 8
		}

		shades := g.tiles.Row(g.vram[:0x1800], tileIndex, row)

		palette := g.obp0
		if s.Palette1() {
			palette = g.obp1
		}

		for dx := 0; dx < 8; dx++ {
			x := s.X + dx
			if g.priority.ownerOf(x) != i {
				continue
			}
			col := dx
			if s.FlipX() {
				col = 7 - dx
			}
			shade := shades[col]
			if shade == 0 {
				continue
			}
			if !s.AboveBG() && g.bgShade[x] != 0 {
				continue
			}
			g.frame.Set(x, line, ApplyPalette(palette, shade))
		}
	}
}
