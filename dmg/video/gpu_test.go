package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGPU_LYC_EdgeTriggeredInterrupt(t *testing.T) {
	g := NewGPU()
	var fired int
	g.RequestInterrupt = func(src InterruptSource) {
		if src == InterruptLCDStat {
			fired++
		}
	}

	g.WriteRegister(0xFF41, 0x40) // enable LYC=LY STAT interrupt
	g.WriteRegister(0xFF45, 0)    // LYC = 0 while LY is still 144 from NewGPU: no coincidence
	g.WriteRegister(0xFF44, 0)    // write to LY resets it to 0 without a coincidence check

	fired = 0
	g.WriteRegister(0xFF45, 5) // LYC=5 != LY(0): no edge
	assert.Equal(t, 0, fired)

	g.setLY(5) // coincidence becomes true: edge fires once
	assert.Equal(t, 1, fired)

	g.setLY(5) // still coincident, no new edge
	assert.Equal(t, 1, fired)

	g.setLY(6) // coincidence clears, no interrupt on the falling edge
	assert.Equal(t, 1, fired)
}

func TestGPU_Tick_NoOpWhenLCDDisabled(t *testing.T) {
	g := NewGPU()
	g.lcdc = 0 // LCD off; Tick must not advance the scanline state machine at all
	g.ly = 77
	g.cycles = 40
	g.Tick(FrameCycles)
	assert.Equal(t, byte(77), g.ly)
	assert.Equal(t, 40, g.cycles)
}

func TestGPU_WriteLCDC_DisableTransitionForcesHBlankAndResetsLY(t *testing.T) {
	g := NewGPU()
	g.WriteRegister(0xFF40, 0x80) // enable, arbitrary other bits clear
	g.setLY(100)
	g.cycles = 30

	g.WriteRegister(0xFF40, 0x00) // disable

	assert.Equal(t, byte(0), g.ly)
	assert.Equal(t, 0, g.cycles)
	assert.Equal(t, ModeHBlank, g.Mode())
}

func TestGPU_WriteLY_ResetsScanlineCounter(t *testing.T) {
	g := NewGPU()
	g.setLY(50)
	g.cycles = 60

	g.WriteRegister(0xFF44, 0)

	assert.Equal(t, byte(0), g.ly)
	assert.Equal(t, 0, g.cycles)
}

func TestGPU_FrameCycles_MatchesScanlineMath(t *testing.T) {
	assert.Equal(t, 114, scanlineCycles)
	assert.Equal(t, 17556, FrameCycles)
}

func TestSpritePriority_LowestXWins_TiesByOAMIndex(t *testing.T) {
	var p spritePriority
	p.clear()

	p.tryClaim(10, 3, 50) // sprite 3 at X=50 claims screen pixel 10
	p.tryClaim(10, 1, 40) // sprite 1 at a lower X should win
	assert.Equal(t, 1, p.ownerOf(10))

	p.tryClaim(10, 0, 40) // same X as current owner, lower OAM index wins
	assert.Equal(t, 0, p.ownerOf(10))

	p.tryClaim(10, 2, 60) // higher X, should not override
	assert.Equal(t, 0, p.ownerOf(10))
}

func TestTileCache_DecodesAndCachesUntilDirty(t *testing.T) {
	tc := NewTileCache()
	data := make([]byte, 16)
	data[0] = 0xFF // low byte of row 0: all bits set
	data[1] = 0x00 // high byte of row 0

	row := tc.Row(data, 0, 0)
	for _, shade := range row {
		assert.Equal(t, Shade(1), shade)
	}

	data[0] = 0x00
	data[1] = 0x00
	// Cache still returns the stale decode until MarkDirty invalidates it.
	row = tc.Row(data, 0, 0)
	assert.Equal(t, Shade(1), row[0])

	tc.MarkDirty(0)
	row = tc.Row(data, 0, 0)
	assert.Equal(t, Shade(0), row[0])
}
