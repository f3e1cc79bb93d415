// Package sio0 implements the controller/memory-card serial port (§4.8).
// Ported closely from original_source/psx/src/sio0.rs: the TX state
// machine (Disabled/Ready/Transferring{index}), the digital-pad reply
// sequence (0x41, 0x5A, switches-low, switches-high), and the two-stage
// scheduled RX-then-IRQ timing (push_rx at +1500 cycles, irq_event at
// +100 more) all carry over; only the VecDeque RX FIFO became a slice-
// backed queue and the scheduler event enum became scheduler.Kind.
package sio0

import (
	"github.com/jetsetilly/psx/internal/interrupts"
	"github.com/jetsetilly/psx/internal/scheduler"
)

const (
	controllerAddr = 0x1
	memcardAddr    = 0x81
)

type txState int

const (
	txDisabled txState = iota
	txReady
	txTransferring
)

// ControllerState is the 14 digital-pad buttons, written each frame by
// the top-level emulator from host input (§4.8, §5.1).
type ControllerState struct {
	Up, Down, Left, Right     bool
	Cross, Square, Triangle, Circle bool
	L1, L2, R1, R2            bool
	Select, Start             bool
}

func (c *ControllerState) switchesLow() uint8 {
	return ^(b(c.Select) |
		b(c.Start)<<3 |
		b(c.Up)<<4 |
		b(c.Right)<<5 |
		b(c.Down)<<6 |
		b(c.Left)<<7) |
		1<<1 | 1<<2 // analog-only bits, always 1
}

func (c *ControllerState) switchesHigh() uint8 {
	return ^(b(c.L2) |
		b(c.R2)<<1 |
		b(c.L1)<<2 |
		b(c.R1)<<3 |
		b(c.Triangle)<<4 |
		b(c.Circle)<<5 |
		b(c.Cross)<<6 |
		b(c.Square)<<7)
}

func b(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

// Sio0 is the full serial port: controller state plus the TX/RX state
// machine and its interrupt/status registers.
type Sio0 struct {
	Controller ControllerState

	rxFIFO    []uint8
	txState   txState
	txIndex   uint8

	txEnable bool
	cs       bool
	rxEnable bool

	txIE       bool
	rxIE       bool
	rxIntMode  uint8
	ackIE      bool
	portSelect bool

	sioMode uint16

	irq bool
	ack bool
}

func New() *Sio0 {
	return &Sio0{cs: true}
}

func (s *Sio0) Read32(addr uint32) uint32 {
	switch addr {
	case 0x1F801040:
		return s.readRX()
	case 0x1F801044:
		return s.readStat()
	case 0x1F801048:
		return uint32(s.sioMode)
	case 0x1F80104A:
		return uint32(s.readCtrl())
	default:
		return 0
	}
}

func (s *Sio0) Write32(addr uint32, v uint32, sched *scheduler.Scheduler) {
	switch addr {
	case 0x1F801040:
		s.writeTX(uint8(v), sched)
	case 0x1F801048:
		s.sioMode = uint16(v)
	case 0x1F80104A:
		s.writeCtrl(uint16(v), sched)
	}
}

func (s *Sio0) readStat() uint32 {
	var v uint32
	if s.txState != txDisabled {
		v |= 1
	}
	if len(s.rxFIFO) > 0 {
		v |= 1 << 1
	}
	if s.txState == txReady {
		v |= 1 << 2
	}
	if s.ack {
		v |= 1 << 7
	}
	if s.irq {
		v |= 1 << 9
	}
	return v
}

func (s *Sio0) readCtrl() uint16 {
	var v uint16
	if s.txEnable {
		v |= 1
	}
	if s.cs {
		v |= 1 << 1
	}
	if s.rxEnable {
		v |= 1 << 2
	}
	v |= uint16(s.rxIntMode) << 9
	if s.txIE {
		v |= 1 << 10
	}
	if s.rxIE {
		v |= 1 << 11
	}
	if s.ackIE {
		v |= 1 << 12
	}
	if s.portSelect {
		v |= 1 << 13
	}
	return v
}

func (s *Sio0) writeCtrl(v uint16, sched *scheduler.Scheduler) {
	s.txEnable = v&1 != 0
	if s.txEnable && s.txState == txDisabled {
		s.txState = txReady
	} else if !s.txEnable {
		s.txState = txDisabled
	}

	s.cs = (v>>1)&1 != 0
	s.rxEnable = (v>>2)&1 != 0
	s.irq = (v >> 4) == 0

	if (v>>6)&1 != 0 {
		s.sioMode = 0xC
		s.writeCtrl(0, sched)
		s.rxFIFO = nil
		return
	}

	s.rxIntMode = uint8((v >> 9) & 3)
	s.txIE = (v>>10)&1 != 0
	s.rxIE = (v>>11)&1 != 0
	s.ackIE = (v>>12)&1 != 0
	s.portSelect = (v>>13)&1 != 0
}

func (s *Sio0) writeTX(v uint8, sched *scheduler.Scheduler) {
	switch s.txState {
	case txDisabled:
		return
	case txReady:
		switch v {
		case controllerAddr:
			s.pushRX(sched, 0, true)
		case memcardAddr:
			s.pushRX(sched, 0xFF, false)
			s.ack = false
			return
		}
		s.txState = txTransferring
		s.txIndex = 0
	case txTransferring:
		if s.txIndex == 0 && v != 0x42 {
			s.pushRX(sched, 0xFF, false)
			s.txState = txReady
			return
		}
		var reply uint8
		switch s.txIndex {
		case 0:
			reply = 0x41
		case 1:
			reply = 0x5A
		case 2:
			reply = s.Controller.switchesLow()
		case 3:
			reply = s.Controller.switchesHigh()
		}
		s.pushRX(sched, reply, s.txIndex < 3)
		s.txIndex++
	}
}

func (s *Sio0) readRX() uint32 {
	if len(s.rxFIFO) == 0 {
		return 0
	}
	v := s.rxFIFO[0]
	s.rxFIFO = s.rxFIFO[1:]
	return uint32(v)
}

func (s *Sio0) pushRX(sched *scheduler.Scheduler, value uint8, interrupt bool) {
	sched.Schedule(scheduler.Event{Kind: scheduler.Sio0Rx, Sio0Byte: value, Sio0Ack: interrupt}, 1500)
}

// RxEvent is the scheduler callback for a scheduler.Sio0Rx event.
func (s *Sio0) RxEvent(sched *scheduler.Scheduler, value uint8, interrupt bool) {
	s.rxFIFO = append(s.rxFIFO, value)
	if interrupt {
		s.ack = true
		sched.Schedule(scheduler.Event{Kind: scheduler.Sio0Irq}, 100)
	}
}

// IrqEvent is the scheduler callback for a scheduler.Sio0Irq event.
func (s *Sio0) IrqEvent(ir *interrupts.Interrupts) {
	s.ack = false
	s.irq = true
	ir.Raise(interrupts.Controller)
}
