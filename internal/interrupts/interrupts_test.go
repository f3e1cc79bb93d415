package interrupts_test

import (
	"testing"

	"github.com/jetsetilly/psx/internal/interrupts"
	"github.com/jetsetilly/psx/test"
)

func TestRaiseAndMask(t *testing.T) {
	ir := interrupts.New()

	ir.Raise(interrupts.Vblank)
	test.ExpectFailure(t, ir.Triggered())

	ir.Write32(0x4, uint32(interrupts.Vblank))
	test.ExpectSuccess(t, ir.Triggered())
}

func TestAckClearsBit(t *testing.T) {
	ir := interrupts.New()
	ir.Raise(interrupts.Vblank)
	ir.Raise(interrupts.GPU)

	// ack vblank only: write every bit except vblank's
	ir.Write32(0x0, ^uint32(interrupts.Vblank))
	test.ExpectEquality(t, ir.Status, uint32(interrupts.GPU))
}
