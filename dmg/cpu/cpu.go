// Package cpu implements the Sharp LR35902-class CPU core: register file,
// interrupt dispatch, HALT handling and the full base + 0xCB-prefixed
// opcode tables (spec.md §4.1, §4.2, §4.10).
package cpu

import (
	"fmt"

	"github.com/kestrelcore/go-dmg/dmg/bit"
)

// FatalError is raised when the CPU fetches an opcode with no handler. It is
// never recovered from; the caller (the frame scheduler / CLI) is expected
// to log it and terminate (spec.md §7).
type FatalError struct {
	Opcode uint16
	PC     uint16
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("unknown opcode 0x%04X at PC=0x%04X", e.Opcode, e.PC)
}

// CPU is the Sharp LR35902-class core: register file, interrupt controller
// and the one bit of extra runtime state (`halted`) the spec calls for.
type CPU struct {
	Regs       Registers
	Interrupts Interrupts
	bus        Bus

	halted        bool
	eiScheduled   bool
	currentOpcode uint16
}

// New creates a CPU wired to the given bus, seeded to the post-boot-ROM
// register state.
func New(bus Bus) *CPU {
	c := &CPU{bus: bus}
	c.Regs.Reset()
	return c
}

// SetBus rebinds the CPU to a different bus. Used when the interconnect
// needs a pointer to the CPU's interrupt controller before it can itself
// be constructed (the CPU otherwise needs a bus to exist at all).
func (c *CPU) SetBus(bus Bus) { c.bus = bus }

// Halted reports whether the CPU is currently in the HALT state.
func (c *CPU) Halted() bool { return c.halted }

// Step performs one CPU.step per spec.md §4.10: interrupt service, HALT
// gate, fetch, EI delay, decode/execute. Returns the number of machine
// cycles (1-6) consumed, or an error if an unknown opcode was fetched.
func (c *CPU) Step() (int, error) {
	if cycles, serviced := c.Interrupts.Service(&c.Regs, c.bus, &c.halted); serviced {
		return cycles, nil
	}

	if c.halted {
		return 1, nil
	}

	opcode := uint16(c.fetch8())

	if c.eiScheduled {
		c.Interrupts.IME = true
		c.eiScheduled = false
	}

	if opcode == 0xCB {
		opcode = 0xCB00 | uint16(c.fetch8())
	}
	c.currentOpcode = opcode

	handler := decode(opcode)
	if handler == nil {
		return 0, &FatalError{Opcode: opcode, PC: c.Regs.PC}
	}
	return handler(c), nil
}

// --- fetch helpers ---

func (c *CPU) fetch8() uint8 {
	v := c.bus.Read(c.Regs.PC)
	c.Regs.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	low := c.fetch8()
	high := c.fetch8()
	return bit.Combine(high, low)
}

// --- stack helpers ---

func (c *CPU) push16(value uint16) {
	sp := c.Regs.SP - 1
	c.bus.Write(sp, bit.High(value))
	sp--
	c.bus.Write(sp, bit.Low(value))
	c.Regs.SP = sp
}

func (c *CPU) pop16() uint16 {
	low := c.bus.Read(c.Regs.SP)
	c.Regs.SP++
	high := c.bus.Read(c.Regs.SP)
	c.Regs.SP++
	return bit.Combine(high, low)
}

// --- register-index decoding for the regular opcode blocks ---
//
// Both `LD r,r'` (0x40-0x7F) and `ALU A,r'` (0x80-0xBF) address an operand
// through the standard 3-bit register index: 0=B 1=C 2=D 3=E 4=H 5=L
// 6=(HL) 7=A. CB-prefixed rotate/shift/BIT/RES/SET opcodes use the same
// table for their low 3 bits.

func (c *CPU) readIndexed(idx uint8) uint8 {
	switch idx {
	case 0:
		return c.Regs.B
	case 1:
		return c.Regs.C
	case 2:
		return c.Regs.D
	case 3:
		return c.Regs.E
	case 4:
		return c.Regs.H
	case 5:
		return c.Regs.L
	case 6:
		return c.bus.Read(c.Regs.Get16(RegHL))
	default:
		return c.Regs.A
	}
}

func (c *CPU) writeIndexed(idx uint8, value uint8) {
	switch idx {
	case 0:
		c.Regs.B = value
	case 1:
		c.Regs.C = value
	case 2:
		c.Regs.D = value
	case 3:
		c.Regs.E = value
	case 4:
		c.Regs.H = value
	case 5:
		c.Regs.L = value
	case 6:
		c.bus.Write(c.Regs.Get16(RegHL), value)
	default:
		c.Regs.A = value
	}
}

// indexedIsHL reports whether the given 3-bit register index addresses
// (HL) rather than an 8-bit register, used to select instruction timing.
func indexedIsHL(idx uint8) bool { return idx == 6 }

// --- flag-producing ALU primitives, shared by opcode handlers ---

func (c *CPU) inc8(value uint8) uint8 {
	result := value + 1
	c.Regs.FlagSet(FlagZ, result == 0)
	c.Regs.FlagSet(FlagN, false)
	c.Regs.FlagSet(FlagH, value&0x0F == 0x0F)
	return result
}

func (c *CPU) dec8(value uint8) uint8 {
	result := value - 1
	c.Regs.FlagSet(FlagZ, result == 0)
	c.Regs.FlagSet(FlagN, true)
	c.Regs.FlagSet(FlagH, value&0x0F == 0x00)
	return result
}

func (c *CPU) add8(value uint8, withCarry bool) {
	a := c.Regs.A
	carryIn := uint8(0)
	if withCarry && c.Regs.FlagGet(FlagC) {
		carryIn = 1
	}
	result := uint16(a) + uint16(value) + uint16(carryIn)
	halfCarry := (a&0x0F)+(value&0x0F)+carryIn > 0x0F

	c.Regs.A = uint8(result)
	c.Regs.FlagSet(FlagZ, c.Regs.A == 0)
	c.Regs.FlagSet(FlagN, false)
	c.Regs.FlagSet(FlagH, halfCarry)
	c.Regs.FlagSet(FlagC, result > 0xFF)
}

func (c *CPU) sub8(value uint8, withCarry bool) {
	a := c.Regs.A
	carryIn := uint8(0)
	if withCarry && c.Regs.FlagGet(FlagC) {
		carryIn = 1
	}
	result := int16(a) - int16(value) - int16(carryIn)
	halfCarry := (int16(a)&0x0F)-(int16(value)&0x0F)-int16(carryIn) < 0

	c.Regs.A = uint8(result)
	c.Regs.FlagSet(FlagZ, c.Regs.A == 0)
	c.Regs.FlagSet(FlagN, true)
	c.Regs.FlagSet(FlagH, halfCarry)
	c.Regs.FlagSet(FlagC, result < 0)
}

func (c *CPU) cp8(value uint8) {
	a := c.Regs.A
	c.sub8(value, false)
	c.Regs.A = a
}

func (c *CPU) and8(value uint8) {
	c.Regs.A &= value
	c.Regs.FlagSet(FlagZ, c.Regs.A == 0)
	c.Regs.FlagSet(FlagN, false)
	c.Regs.FlagSet(FlagH, true)
	c.Regs.FlagSet(FlagC, false)
}

func (c *CPU) or8(value uint8) {
	c.Regs.A |= value
	c.Regs.FlagSet(FlagZ, c.Regs.A == 0)
	c.Regs.FlagSet(FlagN, false)
	c.Regs.FlagSet(FlagH, false)
	c.Regs.FlagSet(FlagC, false)
}

func (c *CPU) xor8(value uint8) {
	c.Regs.A ^= value
	c.Regs.FlagSet(FlagZ, c.Regs.A == 0)
	c.Regs.FlagSet(FlagN, false)
	c.Regs.FlagSet(FlagH, false)
	c.Regs.FlagSet(FlagC, false)
}

func (c *CPU) addHL(value uint16) {
	hl := c.Regs.Get16(RegHL)
	result := uint32(hl) + uint32(value)

	c.Regs.FlagSet(FlagN, false)
	c.Regs.FlagSet(FlagH, (hl&0x0FFF)+(value&0x0FFF) > 0x0FFF)
	c.Regs.FlagSet(FlagC, result > 0xFFFF)
	c.Regs.Set16(RegHL, uint16(result))
}

// addSPSigned implements both `ADD SP,e` and `LD HL,SP+e`: flags are
// computed as an 8-bit carry/half-carry out of SP's low byte, Z and N are
// always cleared (spec.md §4.10).
func (c *CPU) addSPSigned() uint16 {
	sp := c.Regs.SP
	e := int8(c.fetch8())
	result := uint16(int32(sp) + int32(e))

	low := uint8(sp)
	c.Regs.FlagSet(FlagZ, false)
	c.Regs.FlagSet(FlagN, false)
	c.Regs.FlagSet(FlagH, (low&0x0F)+(uint8(e)&0x0F) > 0x0F)
	c.Regs.FlagSet(FlagC, uint16(low)+uint16(uint8(e)) > 0xFF)

	return result
}

func (c *CPU) daa() {
	a := c.Regs.A
	n := c.Regs.FlagGet(FlagN)
	h := c.Regs.FlagGet(FlagH)
	carry := c.Regs.FlagGet(FlagC)

	adjust := uint8(0)
	setCarry := carry

	if n {
		if h {
			adjust |= 0x06
		}
		if carry {
			adjust |= 0x60
		}
		a -= adjust
	} else {
		if h || a&0x0F > 0x09 {
			adjust |= 0x06
		}
		if carry || a > 0x99 {
			adjust |= 0x60
			setCarry = true
		}
		a += adjust
	}

	c.Regs.A = a
	c.Regs.FlagSet(FlagZ, a == 0)
	c.Regs.FlagSet(FlagH, false)
	c.Regs.FlagSet(FlagC, setCarry)
}

func (c *CPU) cpl() {
	c.Regs.A = ^c.Regs.A
	c.Regs.FlagSet(FlagN, true)
	c.Regs.FlagSet(FlagH, true)
}

func (c *CPU) scf() {
	c.Regs.FlagSet(FlagN, false)
	c.Regs.FlagSet(FlagH, false)
	c.Regs.FlagSet(FlagC, true)
}

func (c *CPU) ccf() {
	c.Regs.FlagSet(FlagN, false)
	c.Regs.FlagSet(FlagH, false)
	c.Regs.FlagSet(FlagC, !c.Regs.FlagGet(FlagC))
}

// --- rotate/shift primitives, shared between the A-only non-CB forms and
// the CB-prefixed forms over r/(HL). `zeroFlag` controls whether Z reflects
// the result (CB forms) or is always cleared (RLCA/RRCA/RLA/RRA).

func (c *CPU) rlc(value uint8, zeroFlag bool) uint8 {
	carryOut := value&0x80 != 0
	result := value<<1 | value>>7
	c.setShiftFlags(result, carryOut, zeroFlag)
	return result
}

func (c *CPU) rrc(value uint8, zeroFlag bool) uint8 {
	carryOut := value&0x01 != 0
	result := value>>1 | value<<7
	c.setShiftFlags(result, carryOut, zeroFlag)
	return result
}

func (c *CPU) rl(value uint8, zeroFlag bool) uint8 {
	carryIn := uint8(0)
	if c.Regs.FlagGet(FlagC) {
		carryIn = 1
	}
	carryOut := value&0x80 != 0
	result := value<<1 | carryIn
	c.setShiftFlags(result, carryOut, zeroFlag)
	return result
}

func (c *CPU) rr(value uint8, zeroFlag bool) uint8 {
	carryIn := uint8(0)
	if c.Regs.FlagGet(FlagC) {
		carryIn = 0x80
	}
	carryOut := value&0x01 != 0
	result := value>>1 | carryIn
	c.setShiftFlags(result, carryOut, zeroFlag)
	return result
}

func (c *CPU) sla(value uint8) uint8 {
	carryOut := value&0x80 != 0
	result := value << 1
	c.setShiftFlags(result, carryOut, true)
	return result
}

func (c *CPU) sra(value uint8) uint8 {
	carryOut := value&0x01 != 0
	result := (value >> 1) | (value & 0x80)
	c.setShiftFlags(result, carryOut, true)
	return result
}

func (c *CPU) srl(value uint8) uint8 {
	carryOut := value&0x01 != 0
	result := value >> 1
	c.setShiftFlags(result, carryOut, true)
	return result
}

func (c *CPU) swap(value uint8) uint8 {
	result := value<<4 | value>>4
	c.Regs.FlagSet(FlagZ, result == 0)
	c.Regs.FlagSet(FlagN, false)
	c.Regs.FlagSet(FlagH, false)
	c.Regs.FlagSet(FlagC, false)
	return result
}

func (c *CPU) setShiftFlags(result uint8, carryOut bool, zeroFlag bool) {
	if zeroFlag {
		c.Regs.FlagSet(FlagZ, result == 0)
	} else {
		c.Regs.FlagSet(FlagZ, false)
	}
	c.Regs.FlagSet(FlagN, false)
	c.Regs.FlagSet(FlagH, false)
	c.Regs.FlagSet(FlagC, carryOut)
}

func (c *CPU) bitTest(value uint8, bitIndex uint8) {
	c.Regs.FlagSet(FlagZ, !bit.IsSet(bitIndex, value))
	c.Regs.FlagSet(FlagN, false)
	c.Regs.FlagSet(FlagH, true)
}

// --- condition codes for JR/JP/CALL/RET cc ---

func (c *CPU) condition(cc uint8) bool {
	switch cc {
	case 0:
		return !c.Regs.FlagGet(FlagZ)
	case 1:
		return c.Regs.FlagGet(FlagZ)
	case 2:
		return !c.Regs.FlagGet(FlagC)
	default:
		return c.Regs.FlagGet(FlagC)
	}
}
