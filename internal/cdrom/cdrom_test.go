package cdrom_test

import (
	"testing"

	"github.com/jetsetilly/psx/internal/cdrom"
	"github.com/jetsetilly/psx/internal/interrupts"
	"github.com/jetsetilly/psx/internal/scheduler"
	"github.com/jetsetilly/psx/test"
)

func TestGetIDWithNoDiscReportsShellOpen(t *testing.T) {
	c := cdrom.New()
	sched := scheduler.New()
	ir := interrupts.New()

	c.Write8(0x1F801801, 0x1A, sched) // bank 0, GetID
	e := sched.Pop()
	resp := e.Payload.(*cdrom.Response)
	c.HandleResponse(resp, sched, ir)

	test.ExpectEquality(t, sched.Len(), 1)
	second := sched.Pop()
	secondResp := second.Payload.(*cdrom.Response)
	c.HandleResponse(secondResp, sched, ir)

	test.ExpectEquality(t, secondResp.IntLevel, uint8(5))
}

func TestNopRespondsInt3(t *testing.T) {
	c := cdrom.New()
	sched := scheduler.New()
	ir := interrupts.New()

	c.Write8(0x1F801800, 1, sched)    // select bank 1
	c.Write8(0x1F801802, 0x1F, sched) // unmask every CD-ROM interrupt source
	c.Write8(0x1F801800, 0, sched)    // back to bank 0

	c.Write8(0x1F801801, 0x1, sched)
	e := sched.Pop()
	resp := e.Payload.(*cdrom.Response)
	c.HandleResponse(resp, sched, ir)

	test.ExpectEquality(t, ir.Status, uint32(interrupts.CDROM))
}
