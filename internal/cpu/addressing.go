package cpu

// addressingMode enumerates the 6502's addressing modes.
type addressingMode uint8

const (
	Implied addressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect // JMP only
	IndirectX
	IndirectY
	Relative
)

// instrKind groups opcodes by the shape of their bus-cycle sequence. Modes
// combine with kindRead/kindWrite/kindRMW; the rest are self-contained
// shapes that ignore mode.
type instrKind uint8

const (
	kindRead instrKind = iota
	kindWrite
	kindRMW
	kindImplied
	kindBranch
	kindJMP
	kindJMPIndirect
	kindJSR
	kindRTS
	kindRTI
	kindPush
	kindPull
)

// stepExec advances the micro-op program for the instruction currently in
// c.opcode/c.mode/c.kind by exactly one bus cycle.
func (c *CPU) stepExec() {
	switch c.kind {
	case kindBranch:
		c.execBranch()
	case kindJMP:
		c.execJMP()
	case kindJMPIndirect:
		c.execJMPIndirect()
	case kindJSR:
		c.execJSR()
	case kindRTS:
		c.execRTS()
	case kindRTI:
		c.execRTI()
	case kindPush:
		c.execPush()
	case kindPull:
		c.execPull()
	case kindImplied:
		c.execImplied()
	default:
		c.execModed()
	}
}

func (c *CPU) finishInstruction() {
	c.seq = seqFetch
	c.step = -1 // incremented to 0 by caller's step++ convention below
}

// execModed drives kindRead/kindWrite/kindRMW across every indexed/direct
// addressing mode. c.step counts cycles since the opcode fetch (step 0 is
// the first cycle after the opcode).
func (c *CPU) execModed() {
	if c.addrReady {
		c.runTail()
		return
	}
	switch c.mode {
	case Accumulator:
		c.bus.Read(c.PC) // dummy read of next instruction byte
		c.servicePoll()
		v := execRMWAccum(c, c.opcode, c.A)
		c.A = v
		c.finishInstruction()
	case Immediate:
		c.servicePoll()
		c.operand = c.bus.Read(c.PC)
		c.PC++
		execRead(c, c.opcode, c.operand)
		c.finishInstruction()
	case ZeroPage:
		c.stepZeroPageFamily(1)
	case ZeroPageX:
		c.stepZeroPageFamily(2)
	case ZeroPageY:
		c.stepZeroPageFamily(2)
	case Absolute:
		c.stepAbsoluteFamily(2, false)
	case AbsoluteX:
		c.stepAbsoluteFamily(2, true)
	case AbsoluteY:
		c.stepAbsoluteFamily(2, true)
	case IndirectX:
		c.stepIndirectXFamily()
	case IndirectY:
		c.stepIndirectYFamily()
	}
}

func (c *CPU) indexForMode() uint8 {
	switch c.mode {
	case ZeroPageX, AbsoluteX:
		return c.X
	case ZeroPageY, AbsoluteY:
		return c.Y
	}
	return 0
}

// stepZeroPageFamily handles ZeroPage / ZeroPageX / ZeroPageY.
// addrCycles is 1 for ZeroPage, 2 for the indexed variants.
func (c *CPU) stepZeroPageFamily(addrCycles int) {
	switch c.step {
	case 0:
		base := uint16(c.bus.Read(c.PC))
		c.PC++
		if addrCycles == 1 {
			c.addr = base
			c.advanceAfterAddress()
			return
		}
		c.ptr = base
	case 1:
		c.bus.Read(c.ptr) // dummy read at unindexed zp address
		c.addr = (c.ptr + uint16(c.indexForMode())) & 0xFF
		c.advanceAfterAddress()
		return
	}
	c.step++
}

// stepAbsoluteFamily handles Absolute / AbsoluteX / AbsoluteY. indexed
// selects whether X/Y indexing (and its page-cross accounting) applies.
func (c *CPU) stepAbsoluteFamily(addrCycles int, indexed bool) {
	switch c.step {
	case 0:
		c.ptr = uint16(c.bus.Read(c.PC))
		c.PC++
	case 1:
		hi := uint16(c.bus.Read(c.PC))
		c.PC++
		lo := c.ptr
		if indexed {
			idx := uint16(c.indexForMode())
			sum := lo + idx
			c.pageCross = sum > 0xFF
			c.addr = (hi << 8) | (sum & 0xFF) // uncorrected: wrong page if carry
			c.ptr = (hi<<8 + lo + idx)        // final correct address
		} else {
			c.addr = (hi << 8) | lo
			c.ptr = c.addr
		}
		if !indexed {
			c.advanceAfterAddress()
			return
		}
		if c.kind == kindRead {
			if !c.pageCross {
				c.advanceAfterAddress()
				return
			}
			// page crossed: one more (dummy) cycle needed before
			// the real read at the corrected address.
			c.step++
			return
		}
		// write/RMW always take the extra dummy-read cycle.
		c.step++
		return
	case 2:
		// Only reached for indexed modes: dummy read at the
		// (possibly wrong-page) uncorrected address, then correct
		// c.addr to the carried address for the real access.
		c.bus.Read(c.addr)
		c.addr = c.ptr
		c.advanceAfterAddress()
		return
	}
	c.step++
}

func (c *CPU) stepIndirectXFamily() {
	switch c.step {
	case 0:
		c.ptr = uint16(c.bus.Read(c.PC))
		c.PC++
	case 1:
		c.bus.Read(c.ptr) // dummy read before adding X
	case 2:
		lo := c.bus.Read((c.ptr + uint16(c.X)) & 0xFF)
		c.operand = lo
	case 3:
		hi := c.bus.Read((c.ptr + uint16(c.X) + 1) & 0xFF)
		c.addr = uint16(c.operand) | uint16(hi)<<8
		c.advanceAfterAddress()
		return
	}
	c.step++
}

func (c *CPU) stepIndirectYFamily() {
	switch c.step {
	case 0:
		c.ptr = uint16(c.bus.Read(c.PC))
		c.PC++
	case 1:
		lo := c.bus.Read(c.ptr)
		c.operand = lo
	case 2:
		hi := uint16(c.bus.Read((c.ptr + 1) & 0xFF))
		sum := uint16(c.operand) + uint16(c.Y)
		c.pageCross = sum > 0xFF
		c.addr = (hi << 8) | (sum & 0xFF)
		c.ptr = (hi<<8 + uint16(c.operand) + uint16(c.Y))
		if c.kind == kindRead {
			if !c.pageCross {
				c.advanceAfterAddress()
				return
			}
			c.step++
			return
		}
		c.step++
		return
	case 3:
		c.bus.Read(c.addr) // dummy (always for write/RMW; page-cross case for read)
		c.addr = c.ptr
		c.advanceAfterAddress()
		return
	}
	c.step++
}

// advanceAfterAddress is called exactly once an effective address (c.addr)
// is final, regardless of which addressing mode produced it. It marks the
// address ready and returns without touching the bus again this cycle; the
// read/write/RMW tail below runs starting on the *next* call to Cycle, so
// that the cycle which finalized the address (e.g. the high-byte fetch)
// remains the only bus operation performed during this call.
func (c *CPU) advanceAfterAddress() {
	c.addrReady = true
	c.tailStep = 0
}

func (c *CPU) runTail() {
	switch c.kind {
	case kindRead:
		c.servicePoll()
		c.operand = c.bus.Read(c.addr)
		execRead(c, c.opcode, c.operand)
		c.finishInstruction()
	case kindWrite:
		c.servicePoll()
		v := execWrite(c, c.opcode)
		c.bus.Write(c.addr, v)
		c.finishInstruction()
	case kindRMW:
		switch c.tailStep {
		case 0:
			c.operand = c.bus.Read(c.addr)
			c.tailStep = 1
		case 1:
			c.bus.Write(c.addr, c.operand) // dummy write-back of old value
			c.tailStep = 2
		case 2:
			c.servicePoll()
			nv := execRMW(c, c.opcode, c.operand)
			c.bus.Write(c.addr, nv)
			c.finishInstruction()
		}
	}
}

// tailStep is declared on CPU via this file's needs; see cpu.go for the
// field (kept here conceptually adjacent to its only use).

func (c *CPU) execImplied() {
	c.bus.Read(c.PC) // dummy read of next instruction byte
	c.servicePoll()
	execImpliedOp(c, c.opcode)
	c.finishInstruction()
}

func (c *CPU) execBranch() {
	switch c.step {
	case 0:
		offset := c.bus.Read(c.PC)
		c.PC++
		c.operand = offset
		c.branchTaken = branchCondition(c, c.opcode)
		if !c.branchTaken {
			c.servicePoll()
			c.finishInstruction()
			return
		}
		c.step++
	case 1:
		c.bus.Read(c.PC) // dummy read of next opcode byte
		base := c.PC
		signed := int8(c.operand)
		target := uint16(int32(base) + int32(signed))
		c.ptr = target
		c.pageCross = (base & 0xFF00) != (target & 0xFF00)
		if !c.pageCross {
			c.servicePoll()
			c.PC = target
			c.finishInstruction()
			return
		}
		c.step++
	case 2:
		// dummy read at the not-yet-corrected page
		wrong := (c.PC & 0xFF00) | (c.ptr & 0x00FF)
		c.bus.Read(wrong)
		c.servicePoll()
		c.PC = c.ptr
		c.finishInstruction()
		return
	}
}

func (c *CPU) execJMP() {
	switch c.step {
	case 0:
		c.ptr = uint16(c.bus.Read(c.PC))
		c.PC++
	case 1:
		c.servicePoll()
		hi := uint16(c.bus.Read(c.PC))
		c.PC = c.ptr | hi<<8
		c.finishInstruction()
		return
	}
	c.step++
}

func (c *CPU) execJMPIndirect() {
	switch c.step {
	case 0:
		c.ptr = uint16(c.bus.Read(c.PC))
		c.PC++
	case 1:
		hi := uint16(c.bus.Read(c.PC))
		c.PC++
		c.ptr |= hi << 8
	case 2:
		c.operand = c.bus.Read(c.ptr)
	case 3:
		// hardware bug: high byte is fetched from the same page,
		// wrapping at the page boundary instead of crossing it.
		wrapped := (c.ptr & 0xFF00) | ((c.ptr + 1) & 0x00FF)
		c.servicePoll()
		hi := c.bus.Read(wrapped)
		c.PC = uint16(c.operand) | uint16(hi)<<8
		c.finishInstruction()
		return
	}
	c.step++
}

func (c *CPU) execJSR() {
	switch c.step {
	case 0:
		c.ptr = uint16(c.bus.Read(c.PC))
		c.PC++
	case 1:
		c.bus.Read(stackBase + uint16(c.SP)) // internal stack peek
	case 2:
		c.push(uint8(c.PC >> 8))
	case 3:
		c.push(uint8(c.PC))
	case 4:
		c.servicePoll()
		hi := uint16(c.bus.Read(c.PC))
		c.PC = c.ptr | hi<<8
		c.finishInstruction()
		return
	}
	c.step++
}

func (c *CPU) execRTS() {
	switch c.step {
	case 0:
		c.bus.Read(c.PC) // discard
	case 1:
		c.bus.Read(stackBase + uint16(c.SP)) // internal
	case 2:
		c.operand = c.pull() // PCL
	case 3:
		hi := c.pull() // PCH
		c.ptr = uint16(c.operand) | uint16(hi)<<8
	case 4:
		c.servicePoll()
		c.bus.Read(c.ptr)
		c.PC = c.ptr + 1
		c.finishInstruction()
		return
	}
	c.step++
}

func (c *CPU) execRTI() {
	switch c.step {
	case 0:
		c.bus.Read(c.PC) // discard
	case 1:
		c.bus.Read(stackBase + uint16(c.SP)) // internal
	case 2:
		p := c.pull()
		c.P = (p &^ flagB) | flagU
	case 3:
		c.operand = c.pull() // PCL
	case 4:
		c.servicePoll()
		hi := c.pull() // PCH
		c.PC = uint16(c.operand) | uint16(hi)<<8
		c.finishInstruction()
		return
	}
	c.step++
}

func (c *CPU) execPush() {
	switch c.step {
	case 0:
		c.bus.Read(c.PC) // dummy
	case 1:
		c.servicePoll()
		v := c.A
		if c.opcode == opPHP {
			v = c.P | flagU | flagB
		}
		c.push(v)
		c.finishInstruction()
		return
	}
	c.step++
}

func (c *CPU) execPull() {
	switch c.step {
	case 0:
		c.bus.Read(c.PC) // dummy
	case 1:
		c.bus.Read(stackBase + uint16(c.SP)) // internal pre-increment peek
	case 2:
		c.servicePoll()
		v := c.pull()
		if c.opcode == opPLA {
			c.A = v
			c.setZN(c.A)
		} else {
			c.P = (v &^ flagB) | flagU
		}
		c.finishInstruction()
		return
	}
	c.step++
}
