// Package dmg wires the CPU, interconnect and PPU into a runnable console:
// ROM/save loading, single-instruction stepping and frame pacing (spec.md
// §4.9-§4.10).
package dmg

import (
	"os"
	"path/filepath"

	"github.com/kestrelcore/go-dmg/dmg/cpu"
	"github.com/kestrelcore/go-dmg/dmg/memory"
	"github.com/kestrelcore/go-dmg/dmg/video"
)

// postBootDIV is the divider's internal counter value immediately after
// the boot ROM hands control to the cartridge; this core does not model
// the boot ROM itself, so construction seeds the timer directly instead.
const postBootDIV = 0xABCC

// Emulator is the root object: one cartridge, one CPU, one interconnect.
type Emulator struct {
	cpu *cpu.CPU
	mem *memory.MMU

	savePath string
}

// New creates an emulator with no cartridge loaded.
func New() *Emulator {
	e := &Emulator{}
	e.init()
	return e
}

// NewWithFile loads the ROM at path and wires it into a fresh emulator. If
// the cartridge is battery-backed, a `<rom-dir>/<title>.sav` sidecar is
// loaded if present and written back out by Save.
func NewWithFile(path string) (*Emulator, error) {
	return NewWithFileAndSaveDir(path, "")
}

// NewWithFileAndSaveDir loads the ROM at path like NewWithFile, but places
// the `.sav` sidecar under saveDir instead of the ROM's own directory. An
// empty saveDir keeps the default (the ROM's directory).
func NewWithFileAndSaveDir(path, saveDir string) (*Emulator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cart, err := memory.LoadCartridge(data)
	if err != nil {
		return nil, err
	}

	if saveDir == "" {
		saveDir = filepath.Dir(path)
	}

	e := &Emulator{}
	e.init()
	e.savePath = filepath.Join(saveDir, cart.SaveName())
	if err := e.mem.LoadCartridge(cart, e.savePath); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Emulator) init() {
	e.cpu = cpu.New(nil)
	e.mem = memory.New(&e.cpu.Interrupts)
	e.mem.SeedTimer(postBootDIV)
	e.cpu.SetBus(e.mem)
}

// Step executes exactly one CPU instruction (or interrupt-dispatch step),
// advancing every peripheral by the machine cycles it consumed, and
// returns that cycle count. An error indicates an unimplemented opcode was
// fetched (cpu.FatalError) and emulation cannot continue.
func (e *Emulator) Step() (int, error) {
	cycles, err := e.cpu.Step()
	if err != nil {
		return 0, err
	}
	e.mem.Tick(cycles)
	return cycles, nil
}

// Frame returns the most recently completed video frame.
func (e *Emulator) Frame() *video.FrameBuffer {
	return e.mem.GPU().Frame()
}

// Present hands the most recently completed frame's pixels to sink. Callers
// drive this once per frame tick instead of reading Frame() directly, so the
// video sink's contract (video.VideoSink) is the one real renderers target.
func (e *Emulator) Present(sink video.VideoSink) {
	sink.Present(e.Frame().Pixels())
}

// PressKey and ReleaseKey forward joypad input to the interconnect.
func (e *Emulator) PressKey(key memory.Key)   { e.mem.Joypad().Press(key) }
func (e *Emulator) ReleaseKey(key memory.Key) { e.mem.Joypad().Release(key) }

// Save persists battery-backed external RAM to the `.sav` sidecar derived
// from the cartridge's title, if the cartridge has a battery and a ROM was
// loaded from a file.
func (e *Emulator) Save() error {
	if e.savePath == "" {
		return nil
	}
	data := e.mem.Save()
	if data == nil {
		return nil
	}
	return os.WriteFile(e.savePath, data, 0o644)
}
