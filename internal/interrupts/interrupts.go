// Package interrupts implements the PSX's interrupt controller: two 10-bit
// registers (pending status, mask) feeding COP0's interrupt-pending check.
//
// Grounded on original_source/psx/src/interrupts.rs verbatim.
package interrupts

import "github.com/jetsetilly/psx/logger"

// Flag identifies one interrupt source's bit position in the status/mask
// registers.
type Flag uint32

const (
	Vblank     Flag = 1 << 0
	GPU        Flag = 1 << 1
	CDROM      Flag = 1 << 2
	DMA        Flag = 1 << 3
	Timer0     Flag = 1 << 4
	Timer1     Flag = 1 << 5
	Timer2     Flag = 1 << 6
	Controller Flag = 1 << 7
	SIO        Flag = 1 << 8
	SPU        Flag = 1 << 9
)

// Interrupts holds the pending-status and mask registers.
type Interrupts struct {
	Status uint32
	Mask   uint32
}

// New returns a cleared interrupt controller.
func New() *Interrupts {
	return &Interrupts{}
}

// Raise sets the given source's pending bit.
func (ir *Interrupts) Raise(flag Flag) {
	ir.Status |= uint32(flag)
	logger.Logf("interrupts", "raised %#x, status now %#x", flag, ir.Status)
}

// Triggered reports whether any unmasked interrupt is pending, the signal
// COP0 consults when deciding whether to take an Interrupt exception.
func (ir *Interrupts) Triggered() bool {
	return ir.Status&ir.Mask != 0
}

// Read32 reads the status or mask register (addresses 0x1F801070/0x1F801074).
func (ir *Interrupts) Read32(addr uint32) uint32 {
	switch addr & 0xF {
	case 0x0:
		return ir.Status
	case 0x4:
		return ir.Mask
	default:
		return 0
	}
}

// Write32 writes the status or mask register. Status is cleared by
// ANDing the write value into it: a caller clears a bit by writing 0 to
// it and preserves a bit by writing 1 (§9 Open Question #1 — this port
// follows original_source's resolved convention, guest-visible-identical
// to the documented "write 1 to acknowledge" framing).
func (ir *Interrupts) Write32(addr uint32, value uint32) {
	switch addr & 0xF {
	case 0x0:
		ir.Status &= value
	case 0x4:
		ir.Mask = value & 0x3FF
	}
}
