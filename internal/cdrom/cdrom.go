// Package cdrom implements the bank-switched CD-ROM controller registers
// and its command/response state machine (§4.7). Ported closely from
// original_source/psx/src/cdrom/mod.rs and cdrom/commands.rs: the
// int_flags/int_mask/ack semantics, the per-command average/precise
// cycle delays, and the two-stage (first response + scheduled second
// response) reply pattern all carry over. original_source chains a
// "what happens after the second response" step through a
// `fn(&mut Cdrom) -> Option<(CmdResponse, u64)>` function pointer
// (on_complete); per §9's own recommendation this becomes a
// ContinuationKind enum dispatched in HandleResponse, since Go has no
// convenient way to store "a method of this type" as plain data.
package cdrom

import (
	"github.com/jetsetilly/psx/internal/cdrom/disc"
	"github.com/jetsetilly/psx/internal/interrupts"
	"github.com/jetsetilly/psx/internal/scheduler"
)

const (
	avgCycles  = 0xC4E1
	delay1ms   = 0x844D
	driveSpeedSingle = 0
	driveSpeedDouble = 1
)

var readCycles = [2]uint64{0x6E1CD, 0x36CD2}
var pauseCycles = [2]uint64{0x21181C, 0x10BD93}

const (
	errInvalidParams = 0x20
	errCannotRespond = 0x80
)

type sectorSize int

const (
	sectorDataOnly sectorSize = iota
	sectorWhole
)

// ContinuationKind names what happens after a response's second_response
// is delivered, replacing original_source's on_complete function pointer.
type ContinuationKind int

const (
	ContNone ContinuationKind = iota
	ContSeekLComplete
	ContReadNComplete
)

// Response is one scheduled command reply.
type Response struct {
	IntLevel uint8
	Result   []uint8

	HasSecond     bool
	Second        *Response
	SecondDelay   uint64

	Continuation ContinuationKind
}

type cdromInterrupts struct {
	flags uint8
	mask  uint8
}

func (r *cdromInterrupts) raise(int uint8, ir *interrupts.Interrupts) {
	r.flags = int & 0x1F
	if r.flags&r.mask != 0 {
		ir.Raise(interrupts.CDROM)
	}
}

func (r *cdromInterrupts) readFlags() uint8 { return r.flags | 0xE0 }
func (r *cdromInterrupts) readMask() uint8  { return r.mask | 0xE0 }
func (r *cdromInterrupts) writeMask(m uint8) { r.mask = m & 0x1F }

func (r *cdromInterrupts) ack(v uint8, params *[]uint8) {
	r.flags &^= v & 0x1F
	if (v>>6)&1 != 0 {
		*params = nil
	}
}

// Cdrom is the controller's full register and drive state.
type Cdrom struct {
	params []uint8
	result []uint8
	data   []uint8
	bank   uint8

	ir cdromInterrupts

	Disc *disc.Disc

	seekTarget   disc.Index
	currentSeek  disc.Index
	seekComplete bool

	readOffset disc.Index
	readPaused bool
	reading    bool

	driveSpeed int
	secSize    sectorSize
	motorOn    bool
}

func New() *Cdrom {
	return &Cdrom{motorOn: true}
}

func (c *Cdrom) LoadDisc(d *disc.Disc) { c.Disc = d }

func (c *Cdrom) Read8(addr uint32) uint8 {
	switch addr & 0xF {
	case 0:
		return c.readStatus()
	case 1:
		return pop(&c.result)
	case 2:
		return pop(&c.data)
	case 3:
		switch c.bank {
		case 0, 2:
			return c.ir.readMask()
		default:
			return c.ir.readFlags()
		}
	default:
		return 0
	}
}

func pop(q *[]uint8) uint8 {
	if len(*q) == 0 {
		return 0
	}
	v := (*q)[0]
	*q = (*q)[1:]
	return v
}

func (c *Cdrom) Write8(addr uint32, v uint8, sched *scheduler.Scheduler) {
	reg := addr & 0xF
	switch c.bank {
	case 0:
		switch reg {
		case 0:
			c.writeStatus(v)
		case 1:
			c.execCmd(v, sched)
		case 2:
			c.params = append(c.params, v)
		}
	case 1:
		switch reg {
		case 0:
			c.writeStatus(v)
		case 2:
			c.ir.writeMask(v)
		case 3:
			c.ir.ack(v, &c.params)
		}
	case 2, 3:
		if reg == 0 {
			c.writeStatus(v)
		}
	}
}

func (c *Cdrom) readStatus() uint8 {
	v := c.bank
	if len(c.params) == 0 {
		v |= 1 << 3
	}
	if len(c.params) < 16 {
		v |= 1 << 4
	}
	if len(c.result) > 0 {
		v |= 1 << 5
	}
	if len(c.data) > 0 {
		v |= 1 << 6
	}
	return v
}

func (c *Cdrom) writeStatus(v uint8) { c.bank = v & 3 }

func (c *Cdrom) GetStat() uint8 {
	var v uint8
	if c.motorOn {
		v |= 1 << 1
	}
	if c.Disc == nil {
		v |= 1 << 4
	}
	if c.reading {
		v |= 1 << 5
	}
	return v
}

func int3Status(c *Cdrom) *Response {
	return &Response{IntLevel: 3, Result: []uint8{c.GetStat()}}
}

func errorResponse(c *Cdrom, code uint8) *Response {
	return &Response{IntLevel: 5, Result: []uint8{c.GetStat() | 1, code}}
}

func (c *Cdrom) execCmd(cmd uint8, sched *scheduler.Scheduler) {
	var resp *Response
	var delay uint64

	switch cmd {
	case 0x1:
		resp, delay = int3Status(c), avgCycles
	case 0x2:
		resp, delay = c.setLoc()
	case 0x6:
		resp, delay = c.readN()
	case 0x9:
		resp, delay = c.pause()
	case 0xA:
		resp, delay = c.init()
	case 0xC:
		resp, delay = int3Status(c), avgCycles
	case 0xE:
		resp, delay = c.setMode()
	case 0x15:
		resp, delay = c.seekL()
	case 0x19:
		resp, delay = c.test()
	case 0x1A:
		resp, delay = c.getID()
	default:
		resp, delay = errorResponse(c, 0x40), avgCycles
	}

	c.params = nil
	sched.Schedule(scheduler.Event{Kind: scheduler.CdromCmd, Payload: resp}, delay)
}

func (c *Cdrom) test() (*Response, uint64) {
	if len(c.params) == 0 {
		return errorResponse(c, errInvalidParams), avgCycles
	}
	sub := c.params[0]
	c.params = c.params[1:]
	switch sub {
	case 0x20:
		return &Response{IntLevel: 3, Result: []uint8{0x94, 0x09, 0x19, 0xC0}}, avgCycles
	default:
		return errorResponse(c, errInvalidParams), avgCycles
	}
}

func (c *Cdrom) getID() (*Response, uint64) {
	first := int3Status(c)

	flags := uint8(0)
	diskType := uint8(0x20)
	var atip uint8

	second := &Response{IntLevel: 2, Result: []uint8{c.GetStat(), flags, diskType, atip, 'S', 'C', 'E', 'A'}}
	if c.Disc == nil {
		second.IntLevel = 5
		second.Result[1] |= 1 << 6
	}

	first.HasSecond = true
	first.Second = second
	first.SecondDelay = 0x4A00
	return first, avgCycles
}

func (c *Cdrom) setLoc() (*Response, uint64) {
	if len(c.params) < 3 {
		return errorResponse(c, errInvalidParams), avgCycles
	}
	m, s, sec := c.params[0], c.params[1], c.params[2]
	c.params = nil
	c.seekTarget = disc.FromBCD(m, s, sec)
	c.seekComplete = false
	return int3Status(c), avgCycles
}

func (c *Cdrom) seekL() (*Response, uint64) {
	first := int3Status(c)
	second := &Response{IntLevel: 2, Result: []uint8{c.GetStat()}, Continuation: ContSeekLComplete}
	first.HasSecond = true
	first.Second = second
	first.SecondDelay = 0x10000
	return first, avgCycles
}

func (c *Cdrom) seekLComplete() (*Response, uint64, bool) {
	c.currentSeek = c.seekTarget
	c.seekComplete = true
	return nil, 0, false
}

func (c *Cdrom) setMode() (*Response, uint64) {
	if len(c.params) < 1 {
		return errorResponse(c, errInvalidParams), avgCycles
	}
	mode := c.params[0]
	if (mode>>7)&1 != 0 {
		c.driveSpeed = driveSpeedDouble
	} else {
		c.driveSpeed = driveSpeedSingle
	}
	if (mode>>5)&1 != 0 {
		c.secSize = sectorWhole
	} else {
		c.secSize = sectorDataOnly
	}
	return int3Status(c), avgCycles
}

func (c *Cdrom) readN() (*Response, uint64) {
	if c.Disc == nil {
		return errorResponse(c, errCannotRespond), avgCycles
	}

	c.readOffset = disc.Zero
	c.readPaused = false
	c.reading = true
	c.data = nil

	if !c.seekComplete {
		c.currentSeek = c.seekTarget
	}

	first := int3Status(c)
	firstRead := &Response{IntLevel: 1, Result: []uint8{c.GetStat()}, Continuation: ContReadNComplete}
	first.HasSecond = true
	first.Second = firstRead
	first.SecondDelay = readCycles[c.driveSpeed]
	return first, avgCycles
}

func (c *Cdrom) readNComplete() (*Response, uint64, bool) {
	if c.readPaused || !c.reading {
		return nil, 0, false
	}
	if c.Disc == nil {
		return nil, 0, false
	}

	sector := c.Disc.ReadSector(c.currentSeek.Add(c.readOffset))
	var payload []byte
	if c.secSize == sectorWhole {
		payload = sector.WholeSector()
	} else {
		payload = sector.DataOnly()
	}
	c.data = append(c.data, payload...)

	c.readOffset = c.readOffset.Add(disc.NewIndex(0, 0, 1))

	next := &Response{IntLevel: 1, Result: []uint8{c.GetStat()}, Continuation: ContReadNComplete}
	return next, readCycles[c.driveSpeed], true
}

func (c *Cdrom) pause() (*Response, uint64) {
	first := int3Status(c)

	secondDelay := pauseCycles[c.driveSpeed]
	if c.readPaused {
		secondDelay = 0x1DF2
	}

	second := &Response{IntLevel: 2, Result: []uint8{c.GetStat() &^ (1 << 5)}}
	c.readPaused = true
	c.reading = false

	first.HasSecond = true
	first.Second = second
	first.SecondDelay = secondDelay
	return first, avgCycles
}

func (c *Cdrom) init() (*Response, uint64) {
	c.motorOn = true

	first := int3Status(c)
	second := &Response{IntLevel: 2, Result: []uint8{c.GetStat()}}
	first.HasSecond = true
	first.Second = second
	first.SecondDelay = delay1ms
	return first, 0x13CCE
}

// HandleResponse is the scheduler callback for a scheduler.CdromCmd
// event: raise the interrupt, push the result bytes, and schedule
// whatever comes next (a literal second response, and/or a continuation
// step resolved through ContinuationKind).
func (c *Cdrom) HandleResponse(resp *Response, sched *scheduler.Scheduler, ir *interrupts.Interrupts) {
	c.ir.raise(resp.IntLevel, ir)
	c.result = append(c.result, resp.Result...)

	if resp.HasSecond {
		sched.Schedule(scheduler.Event{Kind: scheduler.CdromCmd, Payload: resp.Second}, resp.SecondDelay)
	}

	switch resp.Continuation {
	case ContSeekLComplete:
		if next, delay, ok := c.seekLComplete(); ok {
			sched.Schedule(scheduler.Event{Kind: scheduler.CdromCmd, Payload: next}, delay)
		}
	case ContReadNComplete:
		if next, delay, ok := c.readNComplete(); ok {
			sched.Schedule(scheduler.Event{Kind: scheduler.CdromCmd, Payload: next}, delay)
		}
	}
}
