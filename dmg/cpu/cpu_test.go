package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelcore/go-dmg/dmg/addr"
)

// fakeBus is a flat 64KB array standing in for the interconnect; CPU tests
// only care about byte-addressable read/write, not region dispatch.
type fakeBus struct {
	mem [0x10000]byte
}

func (b *fakeBus) Read(address uint16) byte         { return b.mem[address] }
func (b *fakeBus) Write(address uint16, value byte) { b.mem[address] = value }

func newTestCPU() (*CPU, *fakeBus) {
	bus := &fakeBus{}
	c := New(bus)
	c.Regs.PC = 0xC000
	return c, bus
}

func TestStep_ADC_HalfCarry(t *testing.T) {
	c, bus := newTestCPU()
	c.Regs.A = 0x0F
	c.Regs.B = 0x01
	c.Regs.FlagSet(FlagC, false)
	bus.mem[0xC000] = 0x88 // ADC A,B

	cycles, err := c.Step()

	assert.NoError(t, err)
	assert.Equal(t, 1, cycles)
	assert.Equal(t, uint8(0x10), c.Regs.A)
	assert.True(t, c.Regs.FlagGet(FlagH))
	assert.False(t, c.Regs.FlagGet(FlagZ))
}

func TestStep_DAA_AfterSubtraction(t *testing.T) {
	c, bus := newTestCPU()
	// 0x42 - 0x29 in BCD is 0x13, but binary subtraction gives 0x19 with
	// half-borrow; DAA must correct it back to 0x13.
	c.Regs.A = 0x42
	c.Regs.B = 0x29
	bus.mem[0xC000] = 0x90 // SUB B
	bus.mem[0xC001] = 0x27 // DAA

	_, err := c.Step()
	assert.NoError(t, err)
	_, err = c.Step()
	assert.NoError(t, err)

	assert.Equal(t, uint8(0x13), c.Regs.A)
	assert.True(t, c.Regs.FlagGet(FlagN))
}

func TestStep_PopAF_MasksLowNibble(t *testing.T) {
	c, bus := newTestCPU()
	c.Regs.SP = 0xC100
	bus.mem[0xC100] = 0xAF // low byte of AF, including bits F never sets
	bus.mem[0xC101] = 0x12
	bus.mem[0xC000] = 0xF1 // POP AF

	_, err := c.Step()
	assert.NoError(t, err)

	assert.Equal(t, uint8(0x12), c.Regs.A)
	assert.Equal(t, uint8(0xA0), c.Regs.F, "POP AF must mask F's low nibble to zero")
	assert.Equal(t, uint16(0xC102), c.Regs.SP)
}

func TestStep_LD_HL_SP_PlusE_HalfCarry(t *testing.T) {
	c, bus := newTestCPU()
	c.Regs.SP = 0x0FFF
	bus.mem[0xC000] = 0xF8 // LD HL,SP+e
	bus.mem[0xC001] = 0x01

	cycles, err := c.Step()

	assert.NoError(t, err)
	assert.Equal(t, 3, cycles)
	assert.Equal(t, uint16(0x1000), c.Regs.Get16(RegHL))
	assert.True(t, c.Regs.FlagGet(FlagH))
	assert.True(t, c.Regs.FlagGet(FlagC))
	assert.False(t, c.Regs.FlagGet(FlagZ))
	assert.False(t, c.Regs.FlagGet(FlagN))
}

func TestInterruptDispatch_PriorityAndVector(t *testing.T) {
	c, bus := newTestCPU()
	c.Regs.SP = 0xCFFF
	c.Interrupts.IME = true
	c.Interrupts.IE = 0xFF
	// Both VBlank and Timer requested; VBlank (bit 0) must win.
	c.Interrupts.Request(addr.Timer)
	c.Interrupts.Request(addr.VBlank)

	cycles, err := c.Step()

	assert.NoError(t, err)
	assert.Equal(t, 5, cycles)
	assert.Equal(t, addr.VBlank.Vector(), c.Regs.PC)
	assert.False(t, c.Interrupts.IME)
	assert.Equal(t, byte(1<<addr.Timer.Bit()), c.Interrupts.IF, "servicing VBlank must not clear the still-pending Timer request")

	// Pushed return address was the pre-dispatch PC (0xC000).
	assert.Equal(t, byte(0x00), bus.mem[c.Regs.SP])
	assert.Equal(t, byte(0xC0), bus.mem[c.Regs.SP+1])
}

func TestHalt_WakesOnPendingInterruptEvenWithIMEOff(t *testing.T) {
	c, bus := newTestCPU()
	bus.mem[0xC000] = 0x76 // HALT
	_, err := c.Step()
	assert.NoError(t, err)
	assert.True(t, c.Halted())

	c.Interrupts.IME = false
	c.Interrupts.IE = 0xFF
	c.Interrupts.Request(addr.Joypad)

	cycles, err := c.Step()
	assert.NoError(t, err)
	assert.Equal(t, 1, cycles, "IME is off, so this step just wakes from HALT and fetches normally")
	assert.False(t, c.Halted())
}

func TestStep_UnknownOpcode_ReturnsFatalError(t *testing.T) {
	c, bus := newTestCPU()
	bus.mem[0xC000] = 0xD3 // unassigned base opcode

	_, err := c.Step()

	var fatal *FatalError
	assert.ErrorAs(t, err, &fatal)
	assert.Equal(t, uint16(0xD3), fatal.Opcode)
}

func TestCB_BitBlock(t *testing.T) {
	c, bus := newTestCPU()
	c.Regs.B = 0x00
	bus.mem[0xC000] = 0xCB
	bus.mem[0xC001] = 0x40 // BIT 0,B

	cycles, err := c.Step()

	assert.NoError(t, err)
	assert.Equal(t, 2, cycles)
	assert.True(t, c.Regs.FlagGet(FlagZ))
	assert.True(t, c.Regs.FlagGet(FlagH))
	assert.False(t, c.Regs.FlagGet(FlagN))
}
