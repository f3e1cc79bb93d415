// Package timers implements the three 16-bit counters at 0x1F801100-0x1F80112F.
// Register layout is grounded on original_source/psx/src/timers.rs, but
// original_source's Timer never actually advances: write_counter/
// write_mode carry "TODO reschedule events" comments and read_counter
// ignores the scheduler argument entirely. The free-running counter tick
// and target/overflow IRQ firing below are supplemented fresh per §4.9,
// since a timer that never counts cannot drive anything.
package timers

type resetMode uint8

const (
	resetAfterOverflow resetMode = 0
	resetAfterTarget   resetMode = 1
)

// Timer is one of the three counters. clockSrc records the mode
// register's clock-source bits (system clock or, for timers 0/1,
// dot/hblank; for timer 2, a /8 divided system clock), but every timer
// ticks at the system clock by the cycle count its caller supplies: the
// /8, dot-clock and hblank sources are not modelled.
type Timer struct {
	num uint8

	Counter uint16
	Target  uint16

	useSyncMode    bool
	syncMode       uint8
	resetAfter     resetMode
	irqAtTarget    bool
	irqAtOverflow  bool
	irqRepeat      bool
	irqPulse       bool
	clockSrc       uint8
	irq            bool
	reachedTarget  bool
	reachedOverflow bool

	firedOnce bool
}

func newTimer(n uint8) *Timer {
	return &Timer{num: n, irq: true}
}

func (t *Timer) ReadCounter() uint32 { return uint32(t.Counter) }

func (t *Timer) WriteCounter(v uint16) {
	t.Counter = v
	t.firedOnce = false
}

func (t *Timer) ReadTarget() uint32 { return uint32(t.Target) }

func (t *Timer) WriteTarget(v uint16) { t.Target = v }

func (t *Timer) ReadMode() uint32 {
	v := b(t.useSyncMode) | uint32(t.syncMode)<<1 | uint32(t.resetAfter)<<3 |
		b(t.irqAtTarget)<<4 | b(t.irqAtOverflow)<<5 | b(t.irqRepeat)<<6 |
		b(t.irqPulse)<<7 | uint32(t.clockSrc)<<8 | b(t.irq)<<10 |
		b(t.reachedTarget)<<11 | b(t.reachedOverflow)<<12
	t.reachedTarget = false
	t.reachedOverflow = false
	return v
}

func (t *Timer) WriteMode(v uint32) {
	t.useSyncMode = v&1 != 0
	t.syncMode = uint8((v >> 1) & 3)
	if (v>>3)&1 == 0 {
		t.resetAfter = resetAfterOverflow
	} else {
		t.resetAfter = resetAfterTarget
	}
	t.irqAtTarget = (v>>4)&1 != 0
	t.irqAtOverflow = (v>>5)&1 != 0
	t.irqRepeat = (v>>6)&1 != 0
	t.irqPulse = (v>>7)&1 != 0
	t.clockSrc = uint8((v >> 8) & 3)
	t.irq = true
	t.Counter = 0
	t.firedOnce = false
}

func b(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

// Tick advances the counter by cycles and reports whether an interrupt
// condition (target-match with irqAtTarget, or 0xFFFF overflow with
// irqAtOverflow) was hit. One-shot timers (irqRepeat==false) only fire
// once until the mode or counter register is rewritten; the counter keeps
// running after that.
func (t *Timer) Tick(cycles uint32) (irqFired bool) {
	next := uint32(t.Counter) + cycles
	hitTarget := t.Target != 0 && wrapsPast(uint32(t.Counter), next, uint32(t.Target))
	hitOverflow := wrapsPast(uint32(t.Counter), next, 0x10000)

	if t.resetAfter == resetAfterTarget && hitTarget {
		t.Counter = uint16(next % (uint32(t.Target) + 1))
	} else {
		t.Counter = uint16(next % 0x10000)
	}

	if hitTarget {
		t.reachedTarget = true
	}
	if hitOverflow {
		t.reachedOverflow = true
	}

	if (hitTarget && t.irqAtTarget) || (hitOverflow && t.irqAtOverflow) {
		if t.firedOnce && !t.irqRepeat {
			return false
		}
		t.firedOnce = true
		return true
	}
	return false
}

func wrapsPast(from, to, threshold uint32) bool {
	return from < threshold && to >= threshold
}

// Timers is all three counters addressed as a 0x30-byte-stride register
// block.
type Timers struct {
	T [3]*Timer
}

func New() *Timers {
	return &Timers{T: [3]*Timer{newTimer(0), newTimer(1), newTimer(2)}}
}

func (t *Timers) Read32(addr uint32) uint32 {
	idx := (addr >> 4) & 3
	if idx > 2 {
		return 0
	}
	switch addr & 0xF {
	case 0:
		return t.T[idx].ReadCounter()
	case 4:
		return t.T[idx].ReadMode()
	case 8:
		return t.T[idx].ReadTarget()
	default:
		return 0
	}
}

func (t *Timers) Write32(addr uint32, v uint32) {
	idx := (addr >> 4) & 3
	if idx > 2 {
		return
	}
	switch addr & 0xF {
	case 0:
		t.T[idx].WriteCounter(uint16(v))
	case 4:
		t.T[idx].WriteMode(v)
	case 8:
		t.T[idx].WriteTarget(uint16(v))
	}
}

// Tick advances every timer by cycles and returns which ones want to
// raise their interrupt line this step.
func (t *Timers) Tick(cycles uint32) (fired [3]bool) {
	for i, tm := range t.T {
		fired[i] = tm.Tick(cycles)
	}
	return fired
}
