package dmg

import (
	"time"

	"github.com/kestrelcore/go-dmg/dmg/video"
)

// cpuHz is the Sharp LR35902's oscillator frequency; dividing by 4 gives
// the true machine-cycle rate the CPU, timer and PPU all count in.
const cpuHz = 4194304
const machineCyclesPerSecond = cpuHz / 4

// TargetFPS is the exact refresh rate implied by one video.FrameCycles
// machine-cycle frame at machineCyclesPerSecond.
func TargetFPS() float64 {
	return float64(machineCyclesPerSecond) / float64(video.FrameCycles)
}

// FrameDuration is the wall-clock duration of one frame at TargetFPS.
func FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / TargetFPS())
}

// Scheduler drives the CPU/interconnect in machine-cycle-budgeted frames
// and paces them against wall-clock time, so real-time playback runs at
// the console's native rate (spec.md §4.9).
//
// An Overclock factor above 1 skips the wall-clock wait entirely (running
// as fast as the host allows) instead of pacing to TargetFPS; it never
// changes the number of machine cycles simulated per frame.
type Scheduler struct {
	Overclock float64

	lastFrame time.Time
}

// NewScheduler creates a scheduler paced at the native frame rate.
func NewScheduler() *Scheduler {
	return &Scheduler{Overclock: 1}
}

// RunFrame steps fn (typically the Emulator's single-instruction step)
// repeatedly until at least video.FrameCycles machine cycles have elapsed,
// then sleeps out the remainder of the frame's wall-clock budget unless
// Overclock is set above 1. fn returns the machine cycles consumed by one
// step and any fatal error encountered.
func (s *Scheduler) RunFrame(fn func() (int, error)) error {
	total := 0
	for total < video.FrameCycles {
		cycles, err := fn()
		if err != nil {
			return err
		}
		total += cycles
	}

	if s.Overclock > 1 {
		return nil
	}

	if s.lastFrame.IsZero() {
		s.lastFrame = time.Now()
		return nil
	}

	target := s.lastFrame.Add(FrameDuration())
	now := time.Now()
	if now.Before(target) {
		time.Sleep(target.Sub(now))
		s.lastFrame = target
	} else {
		s.lastFrame = now
	}
	return nil
}

// Reset clears the pacing reference point, used after a pause.
func (s *Scheduler) Reset() {
	s.lastFrame = time.Time{}
}
