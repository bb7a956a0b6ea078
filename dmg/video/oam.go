package video

// Sprite is one decoded OAM entry (spec.md §4.6): 4 bytes per entry, 40
// entries total.
type Sprite struct {
	Y, X  int
	Tile  uint8
	Flags uint8
}

func (s Sprite) Palette1() bool { return s.Flags&0x10 != 0 }
func (s Sprite) FlipX() bool    { return s.Flags&0x20 != 0 }
func (s Sprite) FlipY() bool    { return s.Flags&0x40 != 0 }
func (s Sprite) AboveBG() bool  { return s.Flags&0x80 == 0 }

// readSprite decodes OAM entry `index` (0-39) from raw OAM bytes, applying
// the hardware's Y+16/X+8 position offsets.
func readSprite(oam []byte, index int) Sprite {
	base := index * 4
	return Sprite{
		Y:     int(oam[base]) - 16,
		X:     int(oam[base+1]) - 8,
		Tile:  oam[base+2],
		Flags: oam[base+3],
	}
}

// spritePriority resolves per-pixel sprite ownership for one scanline under
// DMG (non-CGB) rules: lowest X wins, ties broken by lowest OAM index
// (gbdev.io/pandocs/OAM.html#drawing-priority).
type spritePriority struct {
	owner  [Width]int
	ownerX [Width]int
}

func (p *spritePriority) clear() {
	for i := range p.owner {
		p.owner[i] = -1
		p.ownerX[i] = 0xFF
	}
}

func (p *spritePriority) tryClaim(x, spriteIndex, spriteX int) {
	if x < 0 || x >= Width {
		return
	}
	current := p.owner[x]
	switch {
	case current == -1:
	case spriteX < p.ownerX[x]:
	case spriteX == p.ownerX[x] && spriteIndex < current:
	default:
		return
	}
	p.owner[x] = spriteIndex
	p.ownerX[x] = spriteX
}

func (p *spritePriority) ownerOf(x int) int {
	if x < 0 || x >= Width {
		return -1
	}
	return p.owner[x]
}
