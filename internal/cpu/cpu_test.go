package cpu_test

import (
	"testing"

	"github.com/jetsetilly/psx/internal/config"
	"github.com/jetsetilly/psx/internal/cpu"
	"github.com/jetsetilly/psx/internal/cpu/cop0"
	"github.com/jetsetilly/psx/internal/instance"
	"github.com/jetsetilly/psx/test"
)

// fakeBus is a flat 64KB RAM image addressed from 0, enough to exercise
// the CPU in isolation without internal/bus.
type fakeBus struct {
	mem         [65536]byte
	interrupted bool
}

func (b *fakeBus) Read8(addr uint32) uint8 { return b.mem[addr&0xFFFF] }

func (b *fakeBus) Read16(addr uint32) (uint16, bool) {
	if addr&1 != 0 {
		return 0, false
	}
	a := addr & 0xFFFF
	return uint16(b.mem[a]) | uint16(b.mem[a+1])<<8, true
}

func (b *fakeBus) Read32(addr uint32) (uint32, bool) {
	if addr&3 != 0 {
		return 0, false
	}
	a := addr & 0xFFFF
	return uint32(b.mem[a]) | uint32(b.mem[a+1])<<8 | uint32(b.mem[a+2])<<16 | uint32(b.mem[a+3])<<24, true
}

func (b *fakeBus) Write8(addr uint32, v uint8) { b.mem[addr&0xFFFF] = v }

func (b *fakeBus) Write16(addr uint32, v uint16) bool {
	if addr&1 != 0 {
		return false
	}
	a := addr & 0xFFFF
	b.mem[a] = byte(v)
	b.mem[a+1] = byte(v >> 8)
	return true
}

func (b *fakeBus) Write32(addr uint32, v uint32) bool {
	if addr&3 != 0 {
		return false
	}
	a := addr & 0xFFFF
	b.mem[a] = byte(v)
	b.mem[a+1] = byte(v >> 8)
	b.mem[a+2] = byte(v >> 16)
	b.mem[a+3] = byte(v >> 24)
	return true
}

func (b *fakeBus) InterruptsPending() bool { return b.interrupted }

func newTestCPU() (*cpu.CPU, *fakeBus) {
	c := cpu.NewCPU(instance.NewInstance(config.Default()))
	c.PC = 0
	b := &fakeBus{}
	return c, b
}

func asm(b *fakeBus, addr uint32, words ...uint32) {
	for i, w := range words {
		b.Write32(addr+uint32(i*4), w)
	}
}

// addiu $t0, $zero, imm
func addiu(rt, rs uint8, imm16 uint16) uint32 {
	return 0x09<<26 | uint32(rs)<<21 | uint32(rt)<<16 | uint32(imm16)
}

func TestAddiuAndRegisterWrite(t *testing.T) {
	c, b := newTestCPU()
	asm(b, 0, addiu(8, 0, 42))
	c.Step(b)
	test.ExpectEquality(t, c.Regs.Read(8), uint32(42))
	test.ExpectEquality(t, c.PC, uint32(4))
}

func TestLoadDelaySlot(t *testing.T) {
	c, b := newTestCPU()
	// sw $t0 not needed; write word directly to memory at 0x100
	b.Write32(0x100, 0xDEADBEEF)

	// addiu $t1, $zero, 0x100   ; lw $t0, 0($t1)   ; addu $t2, $t0, $zero (reads stale $t0)
	asm(b, 0,
		addiu(9, 0, 0x100),
		0x23<<26|9<<21|8<<16, // lw $t0, 0($t1)
		0x00<<26|8<<21|0<<16|10<<11|0x21, // addu $t2, $t0, $zero
	)

	c.Step(b) // addiu
	c.Step(b) // lw -- result not yet visible
	test.ExpectEquality(t, c.Regs.Read(8), uint32(0))

	c.Step(b) // addu reads stale (pre-load) $t0 == 0, then load commits
	test.ExpectEquality(t, c.Regs.Read(10), uint32(0))
	test.ExpectEquality(t, c.Regs.Read(8), uint32(0xDEADBEEF))
}

func TestBranchDelaySlotExecutesBeforeJump(t *testing.T) {
	c, b := newTestCPU()
	// beq $zero,$zero,+2 ; addiu $t0,$zero,1 (delay slot, always runs) ; addiu $t1,$zero,2 (skipped)
	asm(b, 0,
		0x04<<26|0<<21|0<<16|2, // beq zero, zero, +2 -> target = pc+4+8 = 12
		addiu(8, 0, 1),
		addiu(9, 0, 2),
	)
	c.Step(b) // beq: arms branch to 12
	c.Step(b) // delay slot: addiu t0,1 runs, then pc jumps to 12
	test.ExpectEquality(t, c.Regs.Read(8), uint32(1))
	test.ExpectEquality(t, c.PC, uint32(12))
}

func TestMisalignedLoadRaisesAddressException(t *testing.T) {
	c, b := newTestCPU()
	// lw $t0, 1($zero) -- misaligned
	asm(b, 0, 0x23<<26|0<<21|8<<16|1)
	c.Step(b)
	test.ExpectSuccess(t, c.TookException)
	test.ExpectEquality(t, c.LastException, cop0.ExcAddrLoadError)
	test.ExpectEquality(t, c.PC, uint32(0xBFC00180))
}

func TestSyscallEntersExceptionHandler(t *testing.T) {
	c, b := newTestCPU()
	asm(b, 0, 0x00<<26|0x0C) // syscall
	c.Step(b)
	test.ExpectSuccess(t, c.TookException)
	test.ExpectEquality(t, c.LastException, cop0.ExcSyscall)
	test.ExpectEquality(t, c.COP0.EPC, uint32(0))
}

func TestDivideByZero(t *testing.T) {
	c, b := newTestCPU()
	asm(b, 0,
		addiu(8, 0, 5),
		0x00<<26|8<<21|0<<16|0x1A, // div $t0, $zero
	)
	c.Step(b)
	c.Step(b)
	test.ExpectEquality(t, c.Regs.LO, uint32(1))
	test.ExpectEquality(t, c.Regs.HI, uint32(5))
}
