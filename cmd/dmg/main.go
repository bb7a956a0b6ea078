package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/kestrelcore/go-dmg/dmg"
	"github.com/kestrelcore/go-dmg/render"
)

func main() {
	app := cli.NewApp()
	app.Name = "dmg"
	app.Description = "A Game Boy-class emulator core"
	app.Usage = "dmg [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run without a display, for a fixed number of frames",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.Float64Flag{
			Name:  "overclock",
			Usage: "Frame-pacing multiplier; values above 1 skip the wall-clock wait entirely",
			Value: 1,
		},
		cli.BoolFlag{
			Name:  "sdl2",
			Usage: "Use the SDL2 display backend instead of the terminal renderer",
		},
		cli.StringFlag{
			Name:  "save-dir",
			Usage: "Directory for the .sav sidecar (defaults to the ROM's own directory)",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug-level logging",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	emu, err := dmg.NewWithFileAndSaveDir(romPath, c.String("save-dir"))
	if err != nil {
		return fmt.Errorf("loading ROM: %w", err)
	}
	defer func() {
		if err := emu.Save(); err != nil {
			slog.Error("saving cartridge RAM", "error", err)
		}
	}()

	if c.Bool("headless") {
		return runHeadless(emu, c.Int("frames"), c.Float64("overclock"))
	}
	return runInteractive(emu, c.Bool("sdl2"))
}

func runHeadless(emu *dmg.Emulator, frames int, overclock float64) error {
	if frames <= 0 {
		return errors.New("headless mode requires --frames with a positive value")
	}

	scheduler := dmg.NewScheduler()
	scheduler.Overclock = overclock

	for i := 0; i < frames; i++ {
		if err := scheduler.RunFrame(emu.Step); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if (i+1)%60 == 0 {
			slog.Info("frame progress", "completed", i+1, "total", frames)
		}
	}
	slog.Info("headless run completed", "frames", frames)
	return nil
}

func runInteractive(emu *dmg.Emulator, useSDL2 bool) error {
	if useSDL2 {
		renderer, err := render.NewSDL2Renderer(emu)
		if err != nil {
			return err
		}
		return renderer.Run()
	}

	renderer, err := render.NewTerminalRenderer(emu)
	if err != nil {
		return err
	}
	return renderer.Run()
}
