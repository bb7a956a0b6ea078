//go:build sdl2

package render

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/kestrelcore/go-dmg/dmg"
	"github.com/kestrelcore/go-dmg/dmg/memory"
	"github.com/kestrelcore/go-dmg/dmg/video"
)

const pixelScale = 4

// keySDL binds SDL2 keycodes to joypad lines.
var keySDL = map[sdl.Keycode]memory.Key{
	sdl.K_RIGHT:  memory.KeyRight,
	sdl.K_LEFT:   memory.KeyLeft,
	sdl.K_UP:     memory.KeyUp,
	sdl.K_DOWN:   memory.KeyDown,
	sdl.K_z:      memory.KeyA,
	sdl.K_x:      memory.KeyB,
	sdl.K_RETURN: memory.KeyStart,
	sdl.K_RSHIFT: memory.KeySelect,
}

// SDL2Renderer presents frames through an accelerated SDL2 window, the
// full-fidelity counterpart to TerminalRenderer.
type SDL2Renderer struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	emulator  *dmg.Emulator
	scheduler *dmg.Scheduler
	running   bool

	pixelBuf   []byte
	presentErr error
}

// NewSDL2Renderer creates an SDL2 window sized to the DMG panel scaled by
// pixelScale, bound to emu.
func NewSDL2Renderer(emu *dmg.Emulator) (*SDL2Renderer, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("sdl2 init: %w", err)
	}

	window, err := sdl.CreateWindow("go-dmg", sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		video.Width*pixelScale, video.Height*pixelScale, sdl.WINDOW_SHOWN)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("sdl2 create window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("sdl2 create renderer: %w", err)
	}

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_RGBA8888, sdl.TEXTUREACCESS_STREAMING,
		video.Width, video.Height)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("sdl2 create texture: %w", err)
	}

	return &SDL2Renderer{
		window:    window,
		renderer:  renderer,
		texture:   texture,
		emulator:  emu,
		scheduler: dmg.NewScheduler(),
		running:   true,
		pixelBuf:  make([]byte, video.Width*video.Height*4),
	}, nil
}

// Run blocks, driving the emulator and presenting one frame per tick until
// the window is closed or Escape is pressed.
func (s *SDL2Renderer) Run() error {
	defer s.Close()

	for s.running {
		s.pollEvents()
		if !s.running {
			break
		}
		if err := s.scheduler.RunFrame(s.emulator.Step); err != nil {
			return err
		}
		s.emulator.Present(s)
		if s.presentErr != nil {
			return s.presentErr
		}
	}
	return nil
}

func (s *SDL2Renderer) pollEvents() {
	for {
		ev := sdl.PollEvent()
		if ev == nil {
			return
		}
		switch e := ev.(type) {
		case *sdl.QuitEvent:
			s.running = false
		case *sdl.KeyboardEvent:
			if e.Keysym.Sym == sdl.K_ESCAPE {
				s.running = false
				continue
			}
			key, ok := keySDL[e.Keysym.Sym]
			if !ok {
				continue
			}
			if e.Type == sdl.KEYDOWN {
				s.emulator.PressKey(key)
			} else if e.Type == sdl.KEYUP {
				s.emulator.ReleaseKey(key)
			}
		}
	}
}

// Present implements video.VideoSink: it blits the completed frame's pixels
// onto the streaming texture and flips the window.
func (s *SDL2Renderer) Present(pixels []uint32) {
	s.presentErr = nil
	for i, rgb := range pixels {
		s.pixelBuf[i*4+0] = byte(rgb >> 16)
		s.pixelBuf[i*4+1] = byte(rgb >> 8)
		s.pixelBuf[i*4+2] = byte(rgb)
		s.pixelBuf[i*4+3] = 0xFF
	}
	if err := s.texture.Update(nil, s.pixelBuf, video.Width*4); err != nil {
		s.presentErr = fmt.Errorf("sdl2 texture update: %w", err)
		return
	}
	s.renderer.Clear()
	s.renderer.Copy(s.texture, nil, nil)
	s.renderer.Present()
}

// Close tears down the SDL2 window and subsystem.
func (s *SDL2Renderer) Close() {
	s.texture.Destroy()
	s.renderer.Destroy()
	s.window.Destroy()
	sdl.Quit()
}
