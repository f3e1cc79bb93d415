package cop0_test

import (
	"testing"

	"github.com/jetsetilly/psx/internal/cpu/cop0"
	"github.com/jetsetilly/psx/test"
)

func TestStatusRoundTrip(t *testing.T) {
	var sr cop0.StatusRegister
	sr.Write(0x1234ABCD)
	test.ExpectEquality(t, sr.Read(), uint32(0x1234ABCD))
	// writing back the same value should be a stable fixed point
	sr.Write(sr.Read())
	test.ExpectEquality(t, sr.Read(), uint32(0x1234ABCD))
}

func TestExceptionStackPushPop(t *testing.T) {
	c := cop0.NewCop0()
	c.SR.Write(1) // IEc=1, KUc=0

	c.SR.PushException()
	test.ExpectFailure(t, c.SR.InterruptsEnabled())

	c.SR.PopException()
	test.ExpectSuccess(t, c.SR.InterruptsEnabled())
}

func TestEnterExceptionVectorsToBIOSWhenBEVSet(t *testing.T) {
	c := cop0.NewCop0() // BEV set on reset
	pc := c.EnterException(cop0.ExcBreak, 0x80010004, false, 0)
	test.ExpectEquality(t, pc, uint32(0xBFC00180))
	test.ExpectEquality(t, c.EPC, uint32(0x80010004))
}

func TestEnterExceptionInDelaySlotAdjustsEPC(t *testing.T) {
	c := cop0.NewCop0()
	c.EnterException(cop0.ExcBreak, 0x80010008, true, 0)
	test.ExpectEquality(t, c.EPC, uint32(0x80010004))
	test.ExpectSuccess(t, c.Cause.BranchDelay())
}

func TestAddrErrorLatchesBadVaddr(t *testing.T) {
	c := cop0.NewCop0()
	c.EnterException(cop0.ExcAddrLoadError, 0x80010000, false, 3)
	test.ExpectEquality(t, c.BadVaddr, uint32(3))
}

func TestCauseOnlyBits8And9Writable(t *testing.T) {
	var c cop0.CauseRegister
	c.SetException(cop0.ExcSyscall, false)
	before := c.Read()

	c.Write(0xFFFFFFFF)
	// exception code bits (2-6) must be unchanged
	test.ExpectEquality(t, c.Read()&^uint32(0x300), before&^uint32(0x300))
}

func TestReservedRegistersReadAsZero(t *testing.T) {
	c := cop0.NewCop0()
	c.WriteReg(20, 0xFFFFFFFF)
	test.ExpectEquality(t, c.ReadReg(20), uint32(0))
}

func TestPRId(t *testing.T) {
	c := cop0.NewCop0()
	test.ExpectEquality(t, c.ReadReg(15), uint32(cop0.PRId))
}
