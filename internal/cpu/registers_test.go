package cpu

import (
	"testing"

	"github.com/jetsetilly/psx/test"
)

func TestR0NeverMutated(t *testing.T) {
	var r Registers
	r.Write(0, 0xFFFFFFFF)
	test.ExpectEquality(t, r.Read(0), uint32(0))

	r.WriteDelayed(0, 0xFFFFFFFF)
	r.CommitDelayedLoads()
	test.ExpectEquality(t, r.Read(0), uint32(0))
}

func TestDelayedLoadNotVisibleUntilNextCommit(t *testing.T) {
	var r Registers
	r.WriteDelayed(4, 0x1234)
	test.ExpectEquality(t, r.Read(4), uint32(0))

	r.CommitDelayedLoads()
	test.ExpectEquality(t, r.Read(4), uint32(0))

	r.CommitDelayedLoads()
	test.ExpectEquality(t, r.Read(4), uint32(0x1234))
}

func TestImmediateWriteCancelsPendingDelayedLoad(t *testing.T) {
	var r Registers
	r.WriteDelayed(4, 0xAAAA)
	r.CommitDelayedLoads() // slides into "current"
	r.Write(4, 0xBBBB)     // immediate write same cycle cancels it

	r.CommitDelayedLoads()
	test.ExpectEquality(t, r.Read(4), uint32(0xBBBB))
}

func TestNewDelayedLoadToSameRegisterReplaces(t *testing.T) {
	var r Registers
	r.WriteDelayed(4, 0x1111)
	r.WriteDelayed(4, 0x2222)
	r.CommitDelayedLoads()
	r.CommitDelayedLoads()
	test.ExpectEquality(t, r.Read(4), uint32(0x2222))
}
