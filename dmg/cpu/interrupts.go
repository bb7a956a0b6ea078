package cpu

import "github.com/kestrelcore/go-dmg/dmg/addr"

// Bus is the minimal memory surface the interrupt controller and CPU need:
// a single byte read/write over the 16-bit address space. The interconnect
// (memory.MMU) implements this.
type Bus interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
}

// Interrupts models IME/IE/IF and interrupt dispatch (spec.md §4.2).
type Interrupts struct {
	IME bool
	IE  byte
	IF  byte
}

// Request sets the IF bit for the given source unconditionally. IME does not
// gate this: IF accumulates requests even when interrupts are globally
// disabled.
func (i *Interrupts) Request(kind addr.Interrupt) {
	i.IF |= 1 << kind.Bit()
}

// Pending returns the lowest-numbered interrupt that is both enabled (IE)
// and requested (IF), if any.
func (i *Interrupts) Pending() (addr.Interrupt, bool) {
	mask := i.IE & i.IF & 0x1F
	if mask == 0 {
		return 0, false
	}
	for _, source := range addr.All {
		if mask&(1<<source.Bit()) != 0 {
			return source, true
		}
	}
	return 0, false
}

// AnyPending reports whether any enabled interrupt is currently requested,
// regardless of IME. Used to wake the CPU from HALT.
func (i *Interrupts) AnyPending() bool {
	return i.IE&i.IF&0x1F != 0
}

// Service implements the interrupt-dispatch step of CPU.Step (spec.md §4.2,
// §4.10 step 1). It clears `halted` whenever any enabled interrupt is
// pending (regardless of IME), and additionally performs interrupt entry
// when IME is set and a source is pending. Returns the number of machine
// cycles consumed by dispatch (5) and whether dispatch occurred.
func (i *Interrupts) Service(regs *Registers, bus Bus, halted *bool) (cycles int, serviced bool) {
	if *halted && i.AnyPending() {
		*halted = false
	}

	if !i.IME {
		return 0, false
	}

	source, ok := i.Pending()
	if !ok {
		return 0, false
	}

	i.IME = false
	i.IF &^= 1 << source.Bit()

	pc := regs.Get16(RegPC)
	sp := regs.Get16(RegSP) - 1
	bus.Write(sp, byte(pc>>8))
	sp--
	bus.Write(sp, byte(pc))
	regs.Set16(RegSP, sp)
	regs.Set16(RegPC, source.Vector())

	return 5, true
}
