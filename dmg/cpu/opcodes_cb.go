package cpu

// initCBBlocks populates the 0xCB-prefixed table. All 256 CB opcodes are
// fully regular: bits 5-3 select the operation, bits 2-0 select the operand
// via the same register-index table as the base opcode set. Returned cycle
// counts already include the 0xCB prefix byte itself (spec.md §4.10).
func initCBBlocks() {
	rotateShiftOps := []func(*CPU, uint8) uint8{
		func(c *CPU, v uint8) uint8 { return c.rlc(v, true) },
		func(c *CPU, v uint8) uint8 { return c.rrc(v, true) },
		func(c *CPU, v uint8) uint8 { return c.rl(v, true) },
		func(c *CPU, v uint8) uint8 { return c.rr(v, true) },
		func(c *CPU, v uint8) uint8 { return c.sla(v) },
		func(c *CPU, v uint8) uint8 { return c.sra(v) },
		func(c *CPU, v uint8) uint8 { return c.swap(v) },
		func(c *CPU, v uint8) uint8 { return c.srl(v) },
	}
	for op := uint8(0); op < 8; op++ {
		for src := uint8(0); src < 8; src++ {
			fn, s := rotateShiftOps[op], src
			opcode := op*8 + src
			opcodeCBTable[opcode] = func(c *CPU) int {
				c.writeIndexed(s, fn(c, c.readIndexed(s)))
				if indexedIsHL(s) {
					return 4
				}
				return 2
			}
		}
	}

	for bitIdx := uint8(0); bitIdx < 8; bitIdx++ {
		for src := uint8(0); src < 8; src++ {
			idx, s := bitIdx, src
			opcode := 0x40 + bitIdx*8 + src
			opcodeCBTable[opcode] = func(c *CPU) int {
				c.bitTest(c.readIndexed(s), idx)
				if indexedIsHL(s) {
					return 3
				}
				return 2
			}
		}
	}

	for bitIdx := uint8(0); bitIdx < 8; bitIdx++ {
		for src := uint8(0); src < 8; src++ {
			idx, s := bitIdx, src
			opcode := 0x80 + bitIdx*8 + src
			opcodeCBTable[opcode] = func(c *CPU) int {
				value := c.readIndexed(s) &^ (1 << idx)
				c.writeIndexed(s, value)
				if indexedIsHL(s) {
					return 4
				}
				return 2
			}
		}
	}

	for bitIdx := uint8(0); bitIdx < 8; bitIdx++ {
		for src := uint8(0); src < 8; src++ {
			idx, s := bitIdx, src
			opcode := 0xC0 + bitIdx*8 + src
			opcodeCBTable[opcode] = func(c *CPU) int {
				value := c.readIndexed(s) | (1 << idx)
				c.writeIndexed(s, value)
				if indexedIsHL(s) {
					return 4
				}
				return 2
			}
		}
	}
}
