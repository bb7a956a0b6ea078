package cpu

// Opcode is a decoded instruction handler; it performs the instruction's
// side effects and returns the number of machine cycles consumed.
type Opcode func(*CPU) int

// opcodeTable holds the base (non-prefixed) instruction set, indexed by
// opcode byte. Entries left nil are opcodes the real hardware never
// defines; fetching one is a fatal-decode condition (spec.md §7).
var opcodeTable [256]Opcode

// opcodeCBTable holds the 0xCB-prefixed instruction set.
var opcodeCBTable [256]Opcode

func decode(opcode uint16) Opcode {
	if opcode&0xFF00 == 0xCB00 {
		return opcodeCBTable[uint8(opcode)]
	}
	return opcodeTable[uint8(opcode)]
}

func init() {
	initRegularBlocks()
	initIrregularOpcodes()
	initCBBlocks()
}

// initRegularBlocks fills the two fully-regular base-opcode ranges:
// 0x40-0x7F (LD r,r', with 0x76 overridden to HALT by initIrregularOpcodes)
// and 0x80-0xBF (ALU A,r').
func initRegularBlocks() {
	for dst := uint8(0); dst < 8; dst++ {
		for src := uint8(0); src < 8; src++ {
			d, s := dst, src
			opcode := 0x40 + dst*8 + src
			opcodeTable[opcode] = func(c *CPU) int {
				value := c.readIndexed(s)
				c.writeIndexed(d, value)
				if indexedIsHL(d) || indexedIsHL(s) {
					return 2
				}
				return 1
			}
		}
	}

	aluOps := []func(*CPU, uint8){
		func(c *CPU, v uint8) { c.add8(v, false) },
		func(c *CPU, v uint8) { c.add8(v, true) },
		func(c *CPU, v uint8) { c.sub8(v, false) },
		func(c *CPU, v uint8) { c.sub8(v, true) },
		func(c *CPU, v uint8) { c.and8(v) },
		func(c *CPU, v uint8) { c.xor8(v) },
		func(c *CPU, v uint8) { c.or8(v) },
		func(c *CPU, v uint8) { c.cp8(v) },
	}
	for op := uint8(0); op < 8; op++ {
		for src := uint8(0); src < 8; src++ {
			fn, s := aluOps[op], src
			opcode := 0x80 + op*8 + src
			opcodeTable[opcode] = func(c *CPU) int {
				fn(c, c.readIndexed(s))
				if indexedIsHL(s) {
					return 2
				}
				return 1
			}
		}
	}
}

func initIrregularOpcodes() {
	t := &opcodeTable

	t[0x00] = func(c *CPU) int { return 1 } // NOP

	// 16-bit immediate loads into BC/DE/HL/SP.
	t[0x01] = func(c *CPU) int { c.Regs.Set16(RegBC, c.fetch16()); return 3 }
	t[0x11] = func(c *CPU) int { c.Regs.Set16(RegDE, c.fetch16()); return 3 }
	t[0x21] = func(c *CPU) int { c.Regs.Set16(RegHL, c.fetch16()); return 3 }
	t[0x31] = func(c *CPU) int { c.Regs.SP = c.fetch16(); return 3 }

	t[0x02] = func(c *CPU) int { c.bus.Write(c.Regs.Get16(RegBC), c.Regs.A); return 2 }
	t[0x12] = func(c *CPU) int { c.bus.Write(c.Regs.Get16(RegDE), c.Regs.A); return 2 }
	t[0x22] = func(c *CPU) int { c.bus.Write(c.Regs.HLI(), c.Regs.A); return 2 }
	t[0x32] = func(c *CPU) int { c.bus.Write(c.Regs.HLD(), c.Regs.A); return 2 }

	t[0x0A] = func(c *CPU) int { c.Regs.A = c.bus.Read(c.Regs.Get16(RegBC)); return 2 }
	t[0x1A] = func(c *CPU) int { c.Regs.A = c.bus.Read(c.Regs.Get16(RegDE)); return 2 }
	t[0x2A] = func(c *CPU) int { c.Regs.A = c.bus.Read(c.Regs.HLI()); return 2 }
	t[0x3A] = func(c *CPU) int { c.Regs.A = c.bus.Read(c.Regs.HLD()); return 2 }

	// INC/DEC rr (no flags).
	t[0x03] = func(c *CPU) int { c.Regs.Set16(RegBC, c.Regs.Get16(RegBC)+1); return 2 }
	t[0x13] = func(c *CPU) int { c.Regs.Set16(RegDE, c.Regs.Get16(RegDE)+1); return 2 }
	t[0x23] = func(c *CPU) int { c.Regs.Set16(RegHL, c.Regs.Get16(RegHL)+1); return 2 }
	t[0x33] = func(c *CPU) int { c.Regs.SP++; return 2 }
	t[0x0B] = func(c *CPU) int { c.Regs.Set16(RegBC, c.Regs.Get16(RegBC)-1); return 2 }
	t[0x1B] = func(c *CPU) int { c.Regs.Set16(RegDE, c.Regs.Get16(RegDE)-1); return 2 }
	t[0x2B] = func(c *CPU) int { c.Regs.Set16(RegHL, c.Regs.Get16(RegHL)-1); return 2 }
	t[0x3B] = func(c *CPU) int { c.Regs.SP--; return 2 }

	// INC/DEC r (8-bit, Z/N/H only).
	regs8 := []Reg8{RegB, RegC, RegD, RegE, RegH, RegL, 0, RegA}
	for _, r := range []uint8{0, 1, 2, 3, 4, 5, 7} {
		reg, base := regs8[r], uint8(0x04)+r*8
		t[base] = func(c *CPU) int { c.Regs.Set8(reg, c.inc8(c.Regs.Get8(reg))); return 1 }
		t[base+1] = func(c *CPU) int { c.Regs.Set8(reg, c.dec8(c.Regs.Get8(reg))); return 1 }
	}
	t[0x34] = func(c *CPU) int {
		addr := c.Regs.Get16(RegHL)
		c.bus.Write(addr, c.inc8(c.bus.Read(addr)))
		return 3
	}
	t[0x35] = func(c *CPU) int {
		addr := c.Regs.Get16(RegHL)
		c.bus.Write(addr, c.dec8(c.bus.Read(addr)))
		return 3
	}

	// LD r,n (8-bit immediate).
	for _, r := range []uint8{0, 1, 2, 3, 4, 5, 7} {
		reg, base := regs8[r], uint8(0x06)+r*8
		t[base] = func(c *CPU) int { c.Regs.Set8(reg, c.fetch8()); return 2 }
	}
	t[0x36] = func(c *CPU) int { c.bus.Write(c.Regs.Get16(RegHL), c.fetch8()); return 3 }

	t[0x07] = func(c *CPU) int { c.Regs.A = c.rlc(c.Regs.A, false); return 1 }
	t[0x0F] = func(c *CPU) int { c.Regs.A = c.rrc(c.Regs.A, false); return 1 }
	t[0x17] = func(c *CPU) int { c.Regs.A = c.rl(c.Regs.A, false); return 1 }
	t[0x1F] = func(c *CPU) int { c.Regs.A = c.rr(c.Regs.A, false); return 1 }

	t[0x08] = func(c *CPU) int {
		address := c.fetch16()
		c.bus.Write(address, uint8(c.Regs.SP))
		c.bus.Write(address+1, uint8(c.Regs.SP>>8))
		return 5
	}

	t[0x09] = func(c *CPU) int { c.addHL(c.Regs.Get16(RegBC)); return 2 }
	t[0x19] = func(c *CPU) int { c.addHL(c.Regs.Get16(RegDE)); return 2 }
	t[0x29] = func(c *CPU) int { c.addHL(c.Regs.Get16(RegHL)); return 2 }
	t[0x39] = func(c *CPU) int { c.addHL(c.Regs.SP); return 2 }

	// STOP: no button-wake modeling in scope; treated as an immediate HALT
	// (see DESIGN.md).
	t[0x10] = func(c *CPU) int { c.fetch8(); c.halted = true; return 1 }

	t[0x18] = func(c *CPU) int {
		offset := int8(c.fetch8())
		c.Regs.PC = uint16(int32(c.Regs.PC) + int32(offset))
		return 3
	}
	jrConditions := []uint8{0, 1, 2, 3}
	for i, cc := range jrConditions {
		base, condIdx := uint8(0x20)+uint8(i)*8, cc
		t[base] = func(c *CPU) int {
			offset := int8(c.fetch8())
			if c.condition(condIdx) {
				c.Regs.PC = uint16(int32(c.Regs.PC) + int32(offset))
				return 3
			}
			return 2
		}
	}

	t[0x27] = func(c *CPU) int { c.daa(); return 1 }
	t[0x2F] = func(c *CPU) int { c.cpl(); return 1 }
	t[0x37] = func(c *CPU) int { c.scf(); return 1 }
	t[0x3F] = func(c *CPU) int { c.ccf(); return 1 }

	t[0x76] = func(c *CPU) int { c.halted = true; return 1 }

	// ALU A,n (immediate forms).
	t[0xC6] = func(c *CPU) int { c.add8(c.fetch8(), false); return 2 }
	t[0xCE] = func(c *CPU) int { c.add8(c.fetch8(), true); return 2 }
	t[0xD6] = func(c *CPU) int { c.sub8(c.fetch8(), false); return 2 }
	t[0xDE] = func(c *CPU) int { c.sub8(c.fetch8(), true); return 2 }
	t[0xE6] = func(c *CPU) int { c.and8(c.fetch8()); return 2 }
	t[0xEE] = func(c *CPU) int { c.xor8(c.fetch8()); return 2 }
	t[0xF6] = func(c *CPU) int { c.or8(c.fetch8()); return 2 }
	t[0xFE] = func(c *CPU) int { c.cp8(c.fetch8()); return 2 }

	// Stack: PUSH/POP.
	t[0xC5] = func(c *CPU) int { c.push16(c.Regs.Get16(RegBC)); return 4 }
	t[0xD5] = func(c *CPU) int { c.push16(c.Regs.Get16(RegDE)); return 4 }
	t[0xE5] = func(c *CPU) int { c.push16(c.Regs.Get16(RegHL)); return 4 }
	t[0xF5] = func(c *CPU) int { c.push16(c.Regs.Get16(RegAF)); return 4 }
	t[0xC1] = func(c *CPU) int { c.Regs.Set16(RegBC, c.pop16()); return 3 }
	t[0xD1] = func(c *CPU) int { c.Regs.Set16(RegDE, c.pop16()); return 3 }
	t[0xE1] = func(c *CPU) int { c.Regs.Set16(RegHL, c.pop16()); return 3 }
	t[0xF1] = func(c *CPU) int { c.Regs.Set16(RegAF, c.pop16()); return 3 } // Set16(RegAF,...) masks F's low nibble

	// Jumps / calls / returns.
	t[0xC3] = func(c *CPU) int { c.Regs.PC = c.fetch16(); return 4 }
	t[0xE9] = func(c *CPU) int { c.Regs.PC = c.Regs.Get16(RegHL); return 1 }
	jpConditions := []uint8{0, 1, 2, 3}
	for i, cc := range jpConditions {
		base, condIdx := uint8(0xC2)+uint8(i)*8, cc
		t[base] = func(c *CPU) int {
			target := c.fetch16()
			if c.condition(condIdx) {
				c.Regs.PC = target
				return 4
			}
			return 3
		}
	}
	t[0xCD] = func(c *CPU) int {
		target := c.fetch16()
		c.push16(c.Regs.PC)
		c.Regs.PC = target
		return 6
	}
	for i, cc := range jpConditions {
		base, condIdx := uint8(0xC4)+uint8(i)*8, cc
		t[base] = func(c *CPU) int {
			target := c.fetch16()
			if c.condition(condIdx) {
				c.push16(c.Regs.PC)
				c.Regs.PC = target
				return 6
			}
			return 3
		}
	}
	t[0xC9] = func(c *CPU) int { c.Regs.PC = c.pop16(); return 4 }
	t[0xD9] = func(c *CPU) int { c.Regs.PC = c.pop16(); c.Interrupts.IME = true; return 4 }
	for i, cc := range jpConditions {
		base, condIdx := uint8(0xC0)+uint8(i)*8, cc
		t[base] = func(c *CPU) int {
			if c.condition(condIdx) {
				c.Regs.PC = c.pop16()
				return 5
			}
			return 2
		}
	}
	rstTargets := []uint16{0x00, 0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38}
	for i, target := range rstTargets {
		base, dst := uint8(0xC7)+uint8(i)*8, target
		t[base] = func(c *CPU) int {
			c.push16(c.Regs.PC)
			c.Regs.PC = dst
			return 4
		}
	}

	// High-page and (C)/(nn) addressing.
	t[0xE0] = func(c *CPU) int { c.bus.Write(0xFF00+uint16(c.fetch8()), c.Regs.A); return 3 }
	t[0xF0] = func(c *CPU) int { c.Regs.A = c.bus.Read(0xFF00 + uint16(c.fetch8())); return 3 }
	t[0xE2] = func(c *CPU) int { c.bus.Write(0xFF00+uint16(c.Regs.C), c.Regs.A); return 2 }
	t[0xF2] = func(c *CPU) int { c.Regs.A = c.bus.Read(0xFF00 + uint16(c.Regs.C)); return 2 }
	t[0xEA] = func(c *CPU) int { c.bus.Write(c.fetch16(), c.Regs.A); return 4 }
	t[0xFA] = func(c *CPU) int { c.Regs.A = c.bus.Read(c.fetch16()); return 4 }

	// Stack-pointer arithmetic / transfers.
	t[0xE8] = func(c *CPU) int { c.Regs.SP = c.addSPSigned(); return 4 }
	t[0xF8] = func(c *CPU) int { c.Regs.Set16(RegHL, c.addSPSigned()); return 3 }
	t[0xF9] = func(c *CPU) int { c.Regs.SP = c.Regs.Get16(RegHL); return 2 }

	t[0xF3] = func(c *CPU) int { c.Interrupts.IME = false; return 1 }
	t[0xFB] = func(c *CPU) int { c.eiScheduled = true; return 1 }
}
