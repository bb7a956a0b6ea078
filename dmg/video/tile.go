package video

// tileCount is the number of distinct 8x8 tiles addressable across the two
// overlapping tile-data blocks (0x8000-0x8FFF unsigned, 0x8800-0x97FF
// signed) — 384 sixteen-byte tiles span the full 0x8000-0x97FF region.
const tileCount = 384

// TileCache decodes raw 2bpp tile data into 2-bit shade arrays and keeps the
// decoded form until the owning bytes are written again. Real hardware
// re-derives pixel data from VRAM on every fetch; caching it here trades a
// little memory for not re-decoding unchanged tiles every scanline.
type TileCache struct {
	shades [tileCount][8][8]Shade
	dirty  [tileCount]bool
}

// NewTileCache creates a cache with every tile marked dirty, so the first
// access to each one decodes it from VRAM.
func NewTileCache() *TileCache {
	tc := &TileCache{}
	for i := range tc.dirty {
		tc.dirty[i] = true
	}
	return tc
}

// MarkDirty flags the tile owning the given tile-data-relative VRAM offset
// (0x0000-0x17FF) for re-decoding. Writes outside the tile-data region are
// ignored.
func (tc *TileCache) MarkDirty(tileDataOffset uint16) {
	if tileDataOffset >= uint16(tileCount)*16 {
		return
	}
	tc.dirty[tileDataOffset/16] = true
}

// Row returns the 8 decoded shade values for one row of a tile, decoding
// from the given tile-data block (2 bytes per row, 16 bytes per tile) if
// the cached entry is stale.
func (tc *TileCache) Row(tileData []byte, tileIndex int, row int) [8]Shade {
	if tileIndex < 0 || tileIndex >= tileCount {
		return [8]Shade{}
	}
	if tc.dirty[tileIndex] {
		tc.decode(tileData, tileIndex)
		tc.dirty[tileIndex] = false
	}
	return tc.shades[tileIndex][row]
}

func (tc *TileCache) decode(tileData []byte, tileIndex int) {
	base := tileIndex * 16
	for row := 0; row < 8; row++ {
		if base+row*2+1 >= len(tileData) {
			break
		}
		low := tileData[base+row*2]
		high := tileData[base+row*2+1]
		for col := 0; col < 8; col++ {
			bitIndex := uint8(7 - col)
			shade := Shade(0)
			if low&(1<<bitIndex) != 0 {
				shade |= 1
			}
			if high&(1<<bitIndex) != 0 {
				shade |= 2
			}
			tc.shades[tileIndex][row][col] = shade
		}
	}
}
