package sio0_test

import (
	"testing"

	"github.com/jetsetilly/psx/internal/interrupts"
	"github.com/jetsetilly/psx/internal/scheduler"
	"github.com/jetsetilly/psx/internal/sio0"
	"github.com/jetsetilly/psx/test"
)

func TestDigitalPadReplySequence(t *testing.T) {
	s := sio0.New()
	sched := scheduler.New()

	s.Write32(0x1F80104A, 1, sched) // tx enable
	s.Write32(0x1F801040, 0x01, sched)
	e := sched.Pop()
	test.ExpectEquality(t, e.Kind, scheduler.Sio0Rx)
	s.RxEvent(sched, e.Sio0Byte, e.Sio0Ack)
	test.ExpectEquality(t, sched.Pop().Kind, scheduler.Sio0Irq) // +100 after the byte

	s.Write32(0x1F801040, 0x42, sched)
	e = sched.Pop()
	s.RxEvent(sched, e.Sio0Byte, e.Sio0Ack)
	test.ExpectEquality(t, e.Sio0Byte, uint8(0x41))
	test.ExpectEquality(t, sched.Pop().Kind, scheduler.Sio0Irq)

	s.Write32(0x1F801040, 0x00, sched)
	e = sched.Pop()
	s.RxEvent(sched, e.Sio0Byte, e.Sio0Ack)
	test.ExpectEquality(t, e.Sio0Byte, uint8(0x5A))
}

func TestIrqEventRaisesController(t *testing.T) {
	s := sio0.New()
	ir := interrupts.New()
	s.IrqEvent(ir)
	test.ExpectEquality(t, ir.Status, uint32(interrupts.Controller))
}
