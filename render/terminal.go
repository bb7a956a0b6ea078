// Package render provides the console's video sinks: a tcell-based
// terminal renderer that needs no native libraries, and an SDL2
// window behind a build tag for a proper pixel-accurate display.
package render

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/kestrelcore/go-dmg/dmg"
	"github.com/kestrelcore/go-dmg/dmg/memory"
	"github.com/kestrelcore/go-dmg/dmg/video"
)

// keyHoldTimeout is how long a joypad line stays pressed after its terminal
// key event, since raw terminal input gives us key-down events (repeated by
// the OS while a key is held) but no reliable key-up.
const keyHoldTimeout = 150 * time.Millisecond

var shadeChars = []rune{'█', '▒', '░', ' '}

// keymap binds terminal keys to joypad lines.
var keymap = map[rune]memory.Key{
	'a': memory.KeyA,
	's': memory.KeyB,
	'q': memory.KeySelect,
	'w': memory.KeyStart,
}

// TerminalRenderer drives an Emulator in a tcell terminal window, rendering
// each completed frame at half vertical resolution (one shade character per
// text cell, taken from the even pixel row; odd rows are not drawn) and
// reading the arrow keys, Enter and the a/s/q/w letter keys as joypad input.
type TerminalRenderer struct {
	screen    tcell.Screen
	emulator  *dmg.Emulator
	scheduler *dmg.Scheduler
	running   bool

	pixels []uint32

	keyMu    sync.Mutex
	keyTimer map[memory.Key]*time.Timer
}

// NewTerminalRenderer initializes a tcell screen bound to emu.
func NewTerminalRenderer(emu *dmg.Emulator) (*TerminalRenderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %v", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %v", err)
	}

	return &TerminalRenderer{
		screen:    screen,
		emulator:  emu,
		scheduler: dmg.NewScheduler(),
		running:   true,
		pixels:    make([]uint32, video.Size),
		keyTimer:  make(map[memory.Key]*time.Timer),
	}, nil
}

// Present implements video.VideoSink: it copies the completed frame's
// pixels out for render to draw from on the next tick.
func (t *TerminalRenderer) Present(pixels []uint32) {
	copy(t.pixels, pixels)
}

// Run blocks, driving the emulator one frame per tick and rendering it,
// until Ctrl-C/Esc or a terminating signal is received.
func (t *TerminalRenderer) Run() error {
	defer t.screen.Fini()

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)

	go t.handleInput()

	ticker := time.NewTicker(dmg.FrameDuration())
	defer ticker.Stop()

	for t.running {
		select {
		case <-ticker.C:
			if err := t.scheduler.RunFrame(t.emulator.Step); err != nil {
				return err
			}
			t.emulator.Present(t)
			t.render()
			t.screen.Show()
		case <-signals:
			return nil
		}
	}
	return nil
}

func (t *TerminalRenderer) handleInput() {
	for t.running {
		ev := t.screen.PollEvent()
		keyEv, ok := ev.(*tcell.EventKey)
		if !ok {
			continue
		}
		switch keyEv.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			t.running = false
			return
		case tcell.KeyEnter:
			t.holdKey(memory.KeyStart)
		case tcell.KeyRight:
			t.holdKey(memory.KeyRight)
		case tcell.KeyLeft:
			t.holdKey(memory.KeyLeft)
		case tcell.KeyUp:
			t.holdKey(memory.KeyUp)
		case tcell.KeyDown:
			t.holdKey(memory.KeyDown)
		case tcell.KeyRune:
			if key, ok := keymap[keyEv.Rune()]; ok {
				t.holdKey(key)
			}
		}
	}
}

// holdKey presses key and arms (or re-arms, on OS key-repeat) a timer that
// releases it shortly after the last event for that key arrives. Raw
// terminal input has no key-up signal of its own, so a held key is
// approximated by a repeated stream of these events outrunning the timeout.
func (t *TerminalRenderer) holdKey(key memory.Key) {
	t.keyMu.Lock()
	defer t.keyMu.Unlock()

	if timer, held := t.keyTimer[key]; held {
		timer.Stop()
	} else {
		t.emulator.PressKey(key)
	}
	t.keyTimer[key] = time.AfterFunc(keyHoldTimeout, func() {
		t.keyMu.Lock()
		delete(t.keyTimer, key)
		t.keyMu.Unlock()
		t.emulator.ReleaseKey(key)
	})
}

func (t *TerminalRenderer) render() {
	termWidth, termHeight := t.screen.Size()
	if termWidth < video.Width || termHeight < video.Height/2+1 {
		t.screen.Clear()
		msg := fmt.Sprintf("terminal too small, need at least %dx%d", video.Width, video.Height/2+1)
		style := tcell.StyleDefault.Foreground(tcell.ColorRed)
		for i, ch := range msg {
			t.screen.SetContent(i, 0, ch, nil, style)
		}
		return
	}

	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	for y := 0; y < video.Height; y += 2 {
		for x := 0; x < video.Width; x++ {
			shade := shadeIndex(t.pixels[y*video.Width+x])
			t.screen.SetContent(x, y/2, shadeChars[shade], nil, style)
		}
	}
}

func shadeIndex(color uint32) int {
	switch color {
	case video.ColorLightest:
		return 3
	case video.ColorLight:
		return 2
	case video.ColorDark:
		return 1
	default:
		return 0
	}
}
