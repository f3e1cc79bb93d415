// Package cpu implements the R3000A interpreter: fetch/decode/execute with
// its branch-delay slot, load-delay slot, and exception model (§4.3).
//
// Grounded on original_source/psx/src/cpu/mod.rs for the run_instruction
// step ordering and original_source/psx/src/cpu/cop0.rs for exception
// entry/exit, with struct-shape conventions (constructor taking an
// *instance.Instance, a String() register dump) borrowed from the
// teacher's hardware/cpu/cpu.go.
package cpu

import (
	"fmt"

	"github.com/jetsetilly/psx/internal/cpu/cop0"
	"github.com/jetsetilly/psx/internal/instance"
	"github.com/jetsetilly/psx/logger"
	"github.com/jetsetilly/psx/test"
)

// Bus is everything the CPU needs from the memory-mapped world. Misaligned
// multi-byte accesses are reported back (Aligned=false) rather than raised
// as a bus-level panic (§4.2 — this is the resolved divergence from
// original_source, which panics in the bus instead).
type Bus interface {
	Read8(addr uint32) uint8
	Read16(addr uint32) (value uint16, aligned bool)
	Read32(addr uint32) (value uint32, aligned bool)
	Write8(addr uint32, v uint8)
	Write16(addr uint32, v uint16) (aligned bool)
	Write32(addr uint32, v uint32) (aligned bool)

	// InterruptsPending reports the interrupt controller's Triggered()
	// value, the only signal that crosses from Bus into COP0 each step.
	InterruptsPending() bool
}

// COP2 is the GTE's instruction-level contract (§4.4), kept as an
// interface so that internal/cpu has no import-time dependency on
// internal/gte.
type COP2 interface {
	ReadData(n uint32) uint32
	WriteData(n uint32, v uint32)
	ReadControl(n uint32) uint32
	WriteControl(n uint32, v uint32)
	Execute(opcode uint32)
}

// CPU is the R3000A register file, program counter, and coprocessor 0,
// wired to a Bus and an (optional) COP2 for a single Step.
type CPU struct {
	Regs Registers
	PC   uint32

	COP0 *cop0.Cop0
	COP2 COP2

	hasPendingBranch    bool
	pendingBranchTarget uint32
	inDelaySlotNow      bool

	// TookException is set by Step whenever the instruction just executed
	// entered the exception handler; LastException names why.
	TookException bool
	LastException cop0.Exception

	TTYBuf    *test.CappedWriter
	KernelLog []string

	killed bool
}

const resetPC = 0xBFC00000
const kernelLogCap = 512

// NewCPU returns a CPU reset to the BIOS entry point.
func NewCPU(ins *instance.Instance) *CPU {
	c := &CPU{
		PC:   resetPC,
		COP0: cop0.NewCop0(),
	}
	w, _ := test.NewCappedWriter(64 * 1024)
	c.TTYBuf = w
	return c
}

// Reset restores PC and clears pending delay-slot state.
func (c *CPU) Reset() {
	c.PC = resetPC
	c.Regs = Registers{}
	c.COP0 = cop0.NewCop0()
	c.hasPendingBranch = false
	c.inDelaySlotNow = false
	c.TookException = false
}

// Snapshot returns a shallow copy, matching the teacher's CPU.Snapshot
// convention for debugger rewind/compare tooling.
func (c *CPU) Snapshot() CPU {
	return *c
}

func (c *CPU) String() string {
	return fmt.Sprintf("pc=%#08x hi=%#08x lo=%#08x", c.PC, c.Regs.HI, c.Regs.LO)
}

// Step executes exactly one instruction, following original_source's
// run_instruction ordering exactly (preserved because §5's Ordering
// Guarantees require interrupts to be checked once per instruction,
// between fetch and decode): TTY hook check, PC-alignment check (with
// early return on misalignment), kernel-call trace log if this
// instruction is itself a delay slot, fetch, resolve the delayed branch
// target, interrupt check or decode+execute, commit delayed loads, commit
// PC unless an exception was taken.
func (c *CPU) Step(bus Bus) {
	c.TookException = false
	c.checkTTYPutchar(bus)

	if c.PC%4 != 0 {
		c.takeException(cop0.ExcAddrLoadError, bus, false, c.PC)
		return
	}

	inDelaySlot := c.hasPendingBranch
	if inDelaySlot {
		c.logKernelFunc(bus)
	}

	instr, _ := bus.Read32(c.PC)

	var nextPC uint32
	if inDelaySlot {
		nextPC = c.pendingBranchTarget
		c.hasPendingBranch = false
	} else {
		nextPC = c.PC + 4
	}
	c.inDelaySlotNow = inDelaySlot

	c.COP0.Cause.SetHWInterrupt(bus.InterruptsPending())

	tookException := false
	if c.COP0.InterruptPending() {
		c.takeException(cop0.ExcInterrupt, bus, inDelaySlot, 0)
		tookException = true
	} else {
		tookException = c.execute(instr, bus)
	}

	c.Regs.CommitDelayedLoads()

	if !tookException {
		c.PC = nextPC
	}
}

// branch arms the one-slot delayed-branch buffer; the instruction at
// PC+4 (the delay slot) still executes before the jump takes effect.
func (c *CPU) branch(target uint32) {
	c.hasPendingBranch = true
	c.pendingBranchTarget = target
}

func (c *CPU) takeException(exc cop0.Exception, bus Bus, inDelaySlot bool, badVaddr uint32) {
	c.LastException = exc
	c.TookException = true
	c.hasPendingBranch = false
	c.PC = c.COP0.EnterException(exc, c.PC, inDelaySlot, badVaddr)
}

// checkTTYPutchar implements the BIOS TTY hook (§4.3): a call to A0h/3Ch
// or B0h/3Dh appends the byte in r4 to the TTY sink.
func (c *CPU) checkTTYPutchar(bus Bus) {
	physPC := c.PC &^ 0xE0000000
	r9 := c.Regs.Read(9)
	switch {
	case physPC == 0xA0 && r9 == 0x3C:
		c.TTYBuf.Write([]byte{byte(c.Regs.Read(4))})
	case physPC == 0xB0 && r9 == 0x3D:
		c.TTYBuf.Write([]byte{byte(c.Regs.Read(4))})
	}
}

// logKernelFunc implements the kernel-call trace hook (§3.1): jumps to
// the BIOS function-table vectors 0xA0/0xB0/0xC0 are logged with their
// call number and leading arguments whenever observed during the
// branch-delay cycle (the cycle just before the jump takes effect).
func (c *CPU) logKernelFunc(bus Bus) {
	physPC := c.pendingBranchTarget &^ 0xE0000000
	var table byte
	switch physPC {
	case 0xA0:
		table = 'A'
	case 0xB0:
		table = 'B'
	case 0xC0:
		table = 'C'
	default:
		return
	}

	fn := c.Regs.Read(9)
	name := kernelFuncName(table, fn)
	line := fmt.Sprintf("%c0(%#02x) %s(a0=%#x, a1=%#x, a2=%#x, a3=%#x)",
		table, fn, name, c.Regs.Read(4), c.Regs.Read(5), c.Regs.Read(6), c.Regs.Read(7))

	logger.Log("cpu-kernel", line)
	c.KernelLog = append(c.KernelLog, line)
	if len(c.KernelLog) > kernelLogCap {
		c.KernelLog = c.KernelLog[len(c.KernelLog)-kernelLogCap:]
	}
}

// kernelFuncName names the handful of A0/B0/C0 calls spec.md's Design
// Notes and §4.3 single out by name; everything else is reported by
// number only rather than via a full BIOS function table.
func kernelFuncName(table byte, fn uint32) string {
	switch {
	case table == 'A' && fn == 0x3C:
		return "PutChar"
	case table == 'B' && fn == 0x3D:
		return "PutChar"
	case table == 'B' && fn == 0x17:
		return "ReturnFromException"
	case table == 'A' && fn == 0x2F:
		return "rand"
	case table == 'B' && fn == 0x04:
		return "TestEvent"
	default:
		return "Unknown"
	}
}
