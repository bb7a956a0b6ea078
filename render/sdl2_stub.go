//go:build !sdl2

package render

import (
	"fmt"

	"github.com/kestrelcore/go-dmg/dmg"
)

// SDL2Renderer is a stub used when the sdl2 build tag is not set; the real
// implementation requires SDL2 development libraries at build time.
type SDL2Renderer struct{}

// NewSDL2Renderer always fails on a non-sdl2 build.
func NewSDL2Renderer(emu *dmg.Emulator) (*SDL2Renderer, error) {
	return nil, fmt.Errorf("sdl2 renderer not available - build with -tags sdl2 to enable")
}

// Run always fails; present for interface symmetry with the real renderer.
func (s *SDL2Renderer) Run() error {
	return fmt.Errorf("sdl2 renderer not available")
}

// Close is a no-op.
func (s *SDL2Renderer) Close() {}
