package cpu

import (
	"github.com/jetsetilly/psx/internal/cpu/cop0"
)

// instruction field decode helpers. Naming follows MIPS convention: op is
// bits 26-31, rs/rt/rd the three register fields, shamt the shift amount,
// funct the SPECIAL function code, imm16 the sign-independent immediate,
// target the 26-bit jump target.
func op(instr uint32) uint32     { return instr >> 26 }
func rs(instr uint32) uint8      { return uint8((instr >> 21) & 0x1F) }
func rt(instr uint32) uint8      { return uint8((instr >> 16) & 0x1F) }
func rd(instr uint32) uint8      { return uint8((instr >> 11) & 0x1F) }
func shamt(instr uint32) uint32  { return (instr >> 6) & 0x1F }
func funct(instr uint32) uint32  { return instr & 0x3F }
func imm16(instr uint32) uint32  { return instr & 0xFFFF }
func simm16(instr uint32) int32  { return int32(int16(instr & 0xFFFF)) }
func target(instr uint32) uint32 { return instr & 0x03FFFFFF }

// execute decodes and runs instr, returning true if it entered an
// exception handler (load/store misalignment, reserved instruction,
// syscall/break, overflow), in which case Step must not commit nextPC.
func (c *CPU) execute(instr uint32, bus Bus) bool {
	switch op(instr) {
	case 0x00:
		return c.executeSpecial(instr, bus)
	case 0x01:
		return c.executeBcondz(instr)
	case 0x02: // j
		c.branch((c.PC & 0xF0000000) | (target(instr) << 2))
		return false
	case 0x03: // jal
		c.Regs.Write(31, c.PC+8)
		c.branch((c.PC & 0xF0000000) | (target(instr) << 2))
		return false
	case 0x04: // beq
		if c.Regs.Read(rs(instr)) == c.Regs.Read(rt(instr)) {
			c.branch(c.branchTarget(instr))
		}
		return false
	case 0x05: // bne
		if c.Regs.Read(rs(instr)) != c.Regs.Read(rt(instr)) {
			c.branch(c.branchTarget(instr))
		}
		return false
	case 0x06: // blez
		if int32(c.Regs.Read(rs(instr))) <= 0 {
			c.branch(c.branchTarget(instr))
		}
		return false
	case 0x07: // bgtz
		if int32(c.Regs.Read(rs(instr))) > 0 {
			c.branch(c.branchTarget(instr))
		}
		return false
	case 0x08: // addi
		v := c.Regs.Read(rs(instr))
		r, ok := addOverflows(int32(v), simm16(instr))
		if !ok {
			return c.exception(cop0.ExcOverflow)
		}
		c.Regs.Write(rt(instr), uint32(r))
		return false
	case 0x09: // addiu
		c.Regs.Write(rt(instr), c.Regs.Read(rs(instr))+uint32(simm16(instr)))
		return false
	case 0x0A: // slti
		if int32(c.Regs.Read(rs(instr))) < simm16(instr) {
			c.Regs.Write(rt(instr), 1)
		} else {
			c.Regs.Write(rt(instr), 0)
		}
		return false
	case 0x0B: // sltiu
		if c.Regs.Read(rs(instr)) < uint32(simm16(instr)) {
			c.Regs.Write(rt(instr), 1)
		} else {
			c.Regs.Write(rt(instr), 0)
		}
		return false
	case 0x0C: // andi
		c.Regs.Write(rt(instr), c.Regs.Read(rs(instr))&imm16(instr))
		return false
	case 0x0D: // ori
		c.Regs.Write(rt(instr), c.Regs.Read(rs(instr))|imm16(instr))
		return false
	case 0x0E: // xori
		c.Regs.Write(rt(instr), c.Regs.Read(rs(instr))^imm16(instr))
		return false
	case 0x0F: // lui
		c.Regs.Write(rt(instr), imm16(instr)<<16)
		return false
	case 0x10: // cop0
		return c.executeCop0(instr)
	case 0x12: // cop2 (gte)
		return c.executeCop2(instr)
	case 0x20: // lb
		return c.load(bus, instr, 1, true)
	case 0x21: // lh
		return c.load(bus, instr, 2, true)
	case 0x22: // lwl
		return c.loadUnalignedLeft(bus, instr)
	case 0x23: // lw
		return c.load(bus, instr, 4, true)
	case 0x24: // lbu
		return c.load(bus, instr, 1, false)
	case 0x25: // lhu
		return c.load(bus, instr, 2, false)
	case 0x26: // lwr
		return c.loadUnalignedRight(bus, instr)
	case 0x28: // sb
		addr := c.Regs.Read(rs(instr)) + uint32(simm16(instr))
		bus.Write8(addr, uint8(c.Regs.Read(rt(instr))))
		return false
	case 0x29: // sh
		addr := c.Regs.Read(rs(instr)) + uint32(simm16(instr))
		if ok := bus.Write16(addr, uint16(c.Regs.Read(rt(instr)))); !ok {
			return c.addrException(cop0.ExcAddrStoreError, addr)
		}
		return false
	case 0x2A: // swl
		return c.storeUnalignedLeft(bus, instr)
	case 0x2B: // sw
		addr := c.Regs.Read(rs(instr)) + uint32(simm16(instr))
		if ok := bus.Write32(addr, c.Regs.Read(rt(instr))); !ok {
			return c.addrException(cop0.ExcAddrStoreError, addr)
		}
		return false
	case 0x2E: // swr
		return c.storeUnalignedRight(bus, instr)
	case 0x30: // lwc0 - no such coprocessor data transfer; reserved
		return c.exception(cop0.ExcReservedInstruction)
	case 0x32: // lwc2 (gte data load)
		addr := c.Regs.Read(rs(instr)) + uint32(simm16(instr))
		v, ok := bus.Read32(addr)
		if !ok {
			return c.addrException(cop0.ExcAddrLoadError, addr)
		}
		if c.COP2 != nil {
			c.COP2.WriteData(uint32(rt(instr)), v)
		}
		return false
	case 0x3A: // swc2 (gte data store)
		addr := c.Regs.Read(rs(instr)) + uint32(simm16(instr))
		var v uint32
		if c.COP2 != nil {
			v = c.COP2.ReadData(uint32(rt(instr)))
		}
		if ok := bus.Write32(addr, v); !ok {
			return c.addrException(cop0.ExcAddrStoreError, addr)
		}
		return false
	default:
		return c.exception(cop0.ExcReservedInstruction)
	}
}

func (c *CPU) branchTarget(instr uint32) uint32 {
	return c.PC + 4 + uint32(simm16(instr)<<2)
}

func (c *CPU) exception(exc cop0.Exception) bool {
	c.takeExceptionFromExecute(exc, 0)
	return true
}

func (c *CPU) addrException(exc cop0.Exception, badVaddr uint32) bool {
	c.takeExceptionFromExecute(exc, badVaddr)
	return true
}

// takeExceptionFromExecute mirrors takeException but is called mid-execute
// (inDelaySlotNow already reflects the current instruction's status).
func (c *CPU) takeExceptionFromExecute(exc cop0.Exception, badVaddr uint32) {
	c.LastException = exc
	c.TookException = true
	c.hasPendingBranch = false
	c.PC = c.COP0.EnterException(exc, c.PC, c.inDelaySlotNow, badVaddr)
}

func addOverflows(a, b int32) (int32, bool) {
	r := a + b
	if (a > 0 && b > 0 && r < 0) || (a < 0 && b < 0 && r > 0) {
		return 0, false
	}
	return r, true
}

func subOverflows(a, b int32) (int32, bool) {
	r := a - b
	if (b < 0 && r < a) || (b > 0 && r > a) {
		return 0, false
	}
	return r, true
}

// executeSpecial handles the funct-encoded SPECIAL opcode (op==0) table:
// shifts, jr/jalr, syscall/break, hi/lo transfers, multiply/divide, and
// the three-register ALU ops.
func (c *CPU) executeSpecial(instr uint32, bus Bus) bool {
	switch funct(instr) {
	case 0x00: // sll
		c.Regs.Write(rd(instr), c.Regs.Read(rt(instr))<<shamt(instr))
	case 0x02: // srl
		c.Regs.Write(rd(instr), c.Regs.Read(rt(instr))>>shamt(instr))
	case 0x03: // sra
		c.Regs.Write(rd(instr), uint32(int32(c.Regs.Read(rt(instr)))>>shamt(instr)))
	case 0x04: // sllv
		c.Regs.Write(rd(instr), c.Regs.Read(rt(instr))<<(c.Regs.Read(rs(instr))&0x1F))
	case 0x06: // srlv
		c.Regs.Write(rd(instr), c.Regs.Read(rt(instr))>>(c.Regs.Read(rs(instr))&0x1F))
	case 0x07: // srav
		c.Regs.Write(rd(instr), uint32(int32(c.Regs.Read(rt(instr)))>>(c.Regs.Read(rs(instr))&0x1F)))
	case 0x08: // jr
		c.branch(c.Regs.Read(rs(instr)))
	case 0x09: // jalr
		ret := c.PC + 8
		c.branch(c.Regs.Read(rs(instr)))
		c.Regs.Write(rd(instr), ret)
	case 0x0C: // syscall
		return c.exception(cop0.ExcSyscall)
	case 0x0D: // break
		return c.exception(cop0.ExcBreak)
	case 0x10: // mfhi
		c.Regs.Write(rd(instr), c.Regs.HI)
	case 0x11: // mthi
		c.Regs.HI = c.Regs.Read(rs(instr))
	case 0x12: // mflo
		c.Regs.Write(rd(instr), c.Regs.LO)
	case 0x13: // mtlo
		c.Regs.LO = c.Regs.Read(rs(instr))
	case 0x18: // mult
		r := int64(int32(c.Regs.Read(rs(instr)))) * int64(int32(c.Regs.Read(rt(instr))))
		c.Regs.HI = uint32(r >> 32)
		c.Regs.LO = uint32(r)
	case 0x19: // multu
		r := uint64(c.Regs.Read(rs(instr))) * uint64(c.Regs.Read(rt(instr)))
		c.Regs.HI = uint32(r >> 32)
		c.Regs.LO = uint32(r)
	case 0x1A: // div
		n := int32(c.Regs.Read(rs(instr)))
		d := int32(c.Regs.Read(rt(instr)))
		switch {
		case d == 0:
			c.Regs.LO = uint32(1)
			if n < 0 {
				c.Regs.LO = 0xFFFFFFFF
			}
			c.Regs.HI = uint32(n)
		case n == -2147483648 && d == -1:
			c.Regs.LO = 0x80000000
			c.Regs.HI = 0
		default:
			c.Regs.LO = uint32(n / d)
			c.Regs.HI = uint32(n % d)
		}
	case 0x1B: // divu
		n := c.Regs.Read(rs(instr))
		d := c.Regs.Read(rt(instr))
		if d == 0 {
			c.Regs.LO = 0xFFFFFFFF
			c.Regs.HI = n
		} else {
			c.Regs.LO = n / d
			c.Regs.HI = n % d
		}
	case 0x20: // add
		r, ok := addOverflows(int32(c.Regs.Read(rs(instr))), int32(c.Regs.Read(rt(instr))))
		if !ok {
			return c.exception(cop0.ExcOverflow)
		}
		c.Regs.Write(rd(instr), uint32(r))
	case 0x21: // addu
		c.Regs.Write(rd(instr), c.Regs.Read(rs(instr))+c.Regs.Read(rt(instr)))
	case 0x22: // sub
		r, ok := subOverflows(int32(c.Regs.Read(rs(instr))), int32(c.Regs.Read(rt(instr))))
		if !ok {
			return c.exception(cop0.ExcOverflow)
		}
		c.Regs.Write(rd(instr), uint32(r))
	case 0x23: // subu
		c.Regs.Write(rd(instr), c.Regs.Read(rs(instr))-c.Regs.Read(rt(instr)))
	case 0x24: // and
		c.Regs.Write(rd(instr), c.Regs.Read(rs(instr))&c.Regs.Read(rt(instr)))
	case 0x25: // or
		c.Regs.Write(rd(instr), c.Regs.Read(rs(instr))|c.Regs.Read(rt(instr)))
	case 0x26: // xor
		c.Regs.Write(rd(instr), c.Regs.Read(rs(instr))^c.Regs.Read(rt(instr)))
	case 0x27: // nor
		c.Regs.Write(rd(instr), ^(c.Regs.Read(rs(instr)) | c.Regs.Read(rt(instr))))
	case 0x2A: // slt
		if int32(c.Regs.Read(rs(instr))) < int32(c.Regs.Read(rt(instr))) {
			c.Regs.Write(rd(instr), 1)
		} else {
			c.Regs.Write(rd(instr), 0)
		}
	case 0x2B: // sltu
		if c.Regs.Read(rs(instr)) < c.Regs.Read(rt(instr)) {
			c.Regs.Write(rd(instr), 1)
		} else {
			c.Regs.Write(rd(instr), 0)
		}
	default:
		return c.exception(cop0.ExcReservedInstruction)
	}
	return false
}

// executeBcondz handles op==1: bltz/bgez and their link (...al) variants,
// distinguished by rt.
func (c *CPU) executeBcondz(instr uint32) bool {
	v := int32(c.Regs.Read(rs(instr)))
	link := rt(instr)&0x1E == 0x10
	taken := false
	switch rt(instr) & 0x01 {
	case 0: // bltz / bltzal
		taken = v < 0
	case 1: // bgez / bgezal
		taken = v >= 0
	}
	if link {
		c.Regs.Write(31, c.PC+8)
	}
	if taken {
		c.branch(c.branchTarget(instr))
	}
	return false
}

func (c *CPU) executeCop0(instr uint32) bool {
	switch rs(instr) {
	case 0x00: // mfc0
		c.Regs.WriteDelayed(rt(instr), c.COP0.ReadReg(uint32(rd(instr))))
	case 0x04: // mtc0
		c.COP0.WriteReg(uint32(rd(instr)), c.Regs.Read(rt(instr)))
	case 0x10: // rfe and other cop0 ops (funct 0x10 = rfe)
		if funct(instr) == 0x10 {
			c.COP0.SR.PopException()
		}
	default:
		return c.exception(cop0.ExcReservedInstruction)
	}
	return false
}

func (c *CPU) executeCop2(instr uint32) bool {
	if c.COP2 == nil {
		return c.exception(cop0.ExcCoprocessorUnusable)
	}
	switch rs(instr) {
	case 0x00: // mfc2
		c.Regs.WriteDelayed(rt(instr), c.COP2.ReadData(uint32(rd(instr))))
	case 0x02: // cfc2
		c.Regs.WriteDelayed(rt(instr), c.COP2.ReadControl(uint32(rd(instr))))
	case 0x04: // mtc2
		c.COP2.WriteData(uint32(rd(instr)), c.Regs.Read(rt(instr)))
	case 0x06: // ctc2
		c.COP2.WriteControl(uint32(rd(instr)), c.Regs.Read(rt(instr)))
	default: // GTE opcode (bit 25 set)
		c.COP2.Execute(instr & 0x01FFFFFF)
	}
	return false
}

func (c *CPU) load(bus Bus, instr uint32, size int, signed bool) bool {
	addr := c.Regs.Read(rs(instr)) + uint32(simm16(instr))
	var v uint32
	switch size {
	case 1:
		raw := bus.Read8(addr)
		if signed {
			v = uint32(int32(int8(raw)))
		} else {
			v = uint32(raw)
		}
	case 2:
		raw, ok := bus.Read16(addr)
		if !ok {
			return c.addrException(cop0.ExcAddrLoadError, addr)
		}
		if signed {
			v = uint32(int32(int16(raw)))
		} else {
			v = uint32(raw)
		}
	case 4:
		var ok bool
		v, ok = bus.Read32(addr)
		if !ok {
			return c.addrException(cop0.ExcAddrLoadError, addr)
		}
	}
	c.Regs.WriteDelayed(rt(instr), v)
	return false
}

// loadUnalignedLeft/Right implement lwl/lwr: a word load that merges with
// the register's current (possibly still-pending) value rather than
// requiring natural alignment, letting compilers emit unaligned word
// accesses as an lwl/lwr pair (§4.3).
func (c *CPU) loadUnalignedLeft(bus Bus, instr uint32) bool {
	addr := c.Regs.Read(rs(instr)) + uint32(simm16(instr))
	aligned := addr &^ 3
	word, _ := bus.Read32(aligned)
	cur := c.Regs.ReadForLoadMerge(rt(instr))

	var v uint32
	switch addr & 3 {
	case 0:
		v = (cur & 0x00FFFFFF) | (word << 24)
	case 1:
		v = (cur & 0x0000FFFF) | (word << 16)
	case 2:
		v = (cur & 0x000000FF) | (word << 8)
	case 3:
		v = word
	}
	c.Regs.WriteDelayed(rt(instr), v)
	return false
}

func (c *CPU) loadUnalignedRight(bus Bus, instr uint32) bool {
	addr := c.Regs.Read(rs(instr)) + uint32(simm16(instr))
	aligned := addr &^ 3
	word, _ := bus.Read32(aligned)
	cur := c.Regs.ReadForLoadMerge(rt(instr))

	var v uint32
	switch addr & 3 {
	case 0:
		v = word
	case 1:
		v = (cur & 0xFF000000) | (word >> 8)
	case 2:
		v = (cur & 0xFFFF0000) | (word >> 16)
	case 3:
		v = (cur & 0xFFFFFF00) | (word >> 24)
	}
	c.Regs.WriteDelayed(rt(instr), v)
	return false
}

func (c *CPU) storeUnalignedLeft(bus Bus, instr uint32) bool {
	addr := c.Regs.Read(rs(instr)) + uint32(simm16(instr))
	aligned := addr &^ 3
	word, _ := bus.Read32(aligned)
	rtv := c.Regs.Read(rt(instr))

	var v uint32
	switch addr & 3 {
	case 0:
		v = (word & 0xFFFFFF00) | (rtv >> 24)
	case 1:
		v = (word & 0xFFFF0000) | (rtv >> 16)
	case 2:
		v = (word & 0xFF000000) | (rtv >> 8)
	case 3:
		v = rtv
	}
	bus.Write32(aligned, v)
	return false
}

func (c *CPU) storeUnalignedRight(bus Bus, instr uint32) bool {
	addr := c.Regs.Read(rs(instr)) + uint32(simm16(instr))
	aligned := addr &^ 3
	word, _ := bus.Read32(aligned)
	rtv := c.Regs.Read(rt(instr))

	var v uint32
	switch addr & 3 {
	case 0:
		v = rtv
	case 1:
		v = (word & 0x000000FF) | (rtv << 8)
	case 2:
		v = (word & 0x0000FFFF) | (rtv << 16)
	case 3:
		v = (word & 0x00FFFFFF) | (rtv << 24)
	}
	bus.Write32(aligned, v)
	return false
}
