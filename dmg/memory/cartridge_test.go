package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func romWithHeader(title string, cartType, ramSize byte) []byte {
	rom := make([]byte, 0x8000)
	copy(rom[titleAddress:], title)
	rom[cartridgeTypeAddress] = cartType
	rom[ramSizeAddress] = ramSize
	return rom
}

func TestLoadCartridge_ExtractsTitleAndMBCKind(t *testing.T) {
	cart, err := LoadCartridge(romWithHeader("POKEMON RED", 0x13, 0x03))

	assert.NoError(t, err)
	assert.Equal(t, "POKEMON RED", cart.Title)
	assert.Equal(t, mbcMBC3, cart.mbcKind)
	assert.True(t, cart.hasBattery)
	assert.Equal(t, uint8(4), cart.ramBankCount)
}

func TestLoadCartridge_UnsupportedTypeByte(t *testing.T) {
	_, err := LoadCartridge(romWithHeader("X", 0xFE, 0))
	assert.Error(t, err)
}

func TestLoadCartridge_TooSmall(t *testing.T) {
	_, err := LoadCartridge(make([]byte, 0x10))
	assert.Error(t, err)
}

func TestCleanTitle_EmptyFallsBackToPlaceholder(t *testing.T) {
	assert.Equal(t, "(untitled)", cleanTitle(make([]byte, titleLength)))
}

func TestSaveName_SanitizesTitle(t *testing.T) {
	cart := &Cartridge{Title: "Zelda: Link's Awakening!"}
	assert.Equal(t, "Zelda_Links_Awakening.sav", cart.SaveName())
}
