package memory

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"
)

const (
	titleAddress         = 0x134
	titleLength          = 16
	cartridgeTypeAddress = 0x147
	romSizeAddress       = 0x148
	ramSizeAddress       = 0x149
)

// Cartridge holds a loaded ROM image and the header fields needed to pick
// and size an MBC (spec.md §4.5).
type Cartridge struct {
	data  []byte
	Title string

	mbcKind      mbcKind
	hasBattery   bool
	hasRTC       bool
	hasRumble    bool
	ramBankCount uint8
}

type mbcKind uint8

const (
	mbcNone mbcKind = iota
	mbcMBC1
	mbcMBC3
	mbcMBC5
)

// cartridgeTypeInfo is the subset of the 0x147 cartridge-type byte table
// relevant to the MBC kinds this core supports.
var cartridgeTypeInfo = map[byte]struct {
	kind      mbcKind
	battery   bool
	rtc       bool
	rumble    bool
}{
	0x00: {mbcNone, false, false, false}, // ROM ONLY
	0x01: {mbcMBC1, false, false, false}, // MBC1
	0x02: {mbcMBC1, false, false, false}, // MBC1+RAM
	0x03: {mbcMBC1, true, false, false},  // MBC1+RAM+BATTERY
	0x0F: {mbcMBC3, true, true, false},   // MBC3+TIMER+BATTERY
	0x10: {mbcMBC3, true, true, false},   // MBC3+TIMER+RAM+BATTERY
	0x11: {mbcMBC3, false, false, false}, // MBC3
	0x12: {mbcMBC3, false, false, false}, // MBC3+RAM
	0x13: {mbcMBC3, true, false, false},  // MBC3+RAM+BATTERY
	0x19: {mbcMBC5, false, false, false}, // MBC5
	0x1A: {mbcMBC5, false, false, false}, // MBC5+RAM
	0x1B: {mbcMBC5, true, false, false},  // MBC5+RAM+BATTERY
	0x1C: {mbcMBC5, false, false, true},  // MBC5+RUMBLE
	0x1D: {mbcMBC5, false, false, true},  // MBC5+RUMBLE+RAM
	0x1E: {mbcMBC5, true, false, true},   // MBC5+RUMBLE+RAM+BATTERY
}

// ramBankCounts maps the 0x149 RAM-size byte to the number of 8KB banks.
var ramBankCounts = map[byte]uint8{
	0x00: 0,
	0x01: 1, // unofficial 2KB, rounded up to one bank
	0x02: 1,
	0x03: 4,
	0x04: 16,
	0x05: 8,
}

// LoadCartridge parses a raw ROM image into a Cartridge, extracting the
// title and the MBC-selection header fields.
func LoadCartridge(data []byte) (*Cartridge, error) {
	if len(data) < 0x150 {
		return nil, fmt.Errorf("cartridge image too small: %d bytes", len(data))
	}

	end := titleAddress + titleLength
	if end > len(data) {
		end = len(data)
	}

	cart := &Cartridge{
		data:  append([]byte(nil), data...),
		Title: cleanTitle(data[titleAddress:end]),
	}

	info, ok := cartridgeTypeInfo[data[cartridgeTypeAddress]]
	if !ok {
		return nil, fmt.Errorf("unsupported cartridge type byte: 0x%02X", data[cartridgeTypeAddress])
	}
	cart.mbcKind = info.kind
	cart.hasBattery = info.battery
	cart.hasRTC = info.rtc
	cart.hasRumble = info.rumble
	cart.ramBankCount = ramBankCounts[data[ramSizeAddress]]

	return cart, nil
}

// cleanTitle replaces NUL bytes with spaces and non-printable bytes with
// '?', trims the result, and falls back to a placeholder for an empty
// title (e.g. homebrew ROMs with a zeroed header).
func cleanTitle(titleBytes []byte) string {
	runes := make([]rune, 0, len(titleBytes))
	for _, b := range titleBytes {
		r := rune(b)
		switch {
		case r == 0:
			r = ' '
		case !unicode.IsPrint(r):
			r = '?'
		}
		runes = append(runes, r)
	}
	title := strings.TrimSpace(string(runes))
	if title == "" {
		return "(untitled)"
	}
	return title
}

// SaveName derives a filesystem-safe `.sav` sidecar name from the
// cartridge's title, for battery-backed external RAM persistence.
func (c *Cartridge) SaveName() string {
	var b strings.Builder
	for _, r := range c.Title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "cartridge"
	}
	return name + ".sav"
}

// NewMBC constructs the appropriate MBC implementation for this cartridge,
// loading any `.sav` sidecar found at savePath into battery-backed RAM. A
// sidecar that exists but cannot be read is logged and otherwise ignored.
func (c *Cartridge) NewMBC(savePath string) (MBC, error) {
	var saved []byte
	if c.hasBattery && savePath != "" {
		if data, err := os.ReadFile(savePath); err == nil {
			saved = data
		} else if !os.IsNotExist(err) {
			slog.Warn("reading save file", "path", savePath, "error", err)
		}
	}

	switch c.mbcKind {
	case mbcNone:
		return NewNoMBC(c.data), nil
	case mbcMBC1:
		return NewMBC1(c.data, c.ramBankCount, c.hasBattery, saved), nil
	case mbcMBC3:
		return NewMBC3(c.data, c.ramBankCount, c.hasBattery, saved), nil
	case mbcMBC5:
		return NewMBC5(c.data, c.ramBankCount, c.hasBattery, saved), nil
	default:
		return nil, fmt.Errorf("unhandled mbc kind: %d", c.mbcKind)
	}
}
