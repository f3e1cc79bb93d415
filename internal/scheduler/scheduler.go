// Package scheduler holds every pending timed event and serves them in
// timestamp order. It is the single shared mutable object that peripherals
// reach to schedule or cancel future work (§4.1, §9 Design Notes);
// peripherals never hold a reference to it beyond the lifetime of the
// handler call that was given one.
//
// Grounded on original_source/psx/src/scheduler.rs (a Rust BinaryHeap with
// reversed Ord for min-heap-by-timestamp behaviour). container/heap is
// already a min-heap, so no reversal is needed here.
package scheduler

import (
	"container/heap"

	"github.com/jetsetilly/psx/logger"
)

// Kind tags what an Event means to its eventual handler. Payloads are
// plain values carried alongside the tag rather than references, per §3's
// data model ("Payloads are plain values (no shared references)").
type Kind int

const (
	Vblank Kind = iota
	SpuTick
	TimerTarget
	TimerOverflow
	Sio0Irq
	Sio0Rx
	CdromCmd
	DmaIrq
)

func (k Kind) String() string {
	switch k {
	case Vblank:
		return "vblank"
	case SpuTick:
		return "spu-tick"
	case TimerTarget:
		return "timer-target"
	case TimerOverflow:
		return "timer-overflow"
	case Sio0Irq:
		return "sio0-irq"
	case Sio0Rx:
		return "sio0-rx"
	case CdromCmd:
		return "cdrom-cmd"
	case DmaIrq:
		return "dma-irq"
	default:
		return "unknown"
	}
}

// Event is a tagged, timestamped unit of future work. Channel/TimerID/
// Sio0Byte/Sio0Ack/Payload are interpreted according to Kind; Payload
// carries kind-specific data (e.g. a *cdrom.Response) as an opaque value so
// that this package has no dependency on any peripheral package — the
// dependency runs the other way, exactly as §9's Design Notes describe.
type Event struct {
	Kind      Kind
	Timestamp uint64

	Channel int // DmaIrq
	TimerID int // TimerTarget, TimerOverflow

	Sio0Byte byte // Sio0Rx
	Sio0Ack  bool // Sio0Rx

	Payload interface{} // CdromCmd: *cdrom.Response

	seq uint64
}

// eventHeap implements container/heap.Interface, ordered by (Timestamp,
// seq) so that equal-timestamp events dispatch in insertion order (§5
// Ordering guarantees).
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Timestamp != h[j].Timestamp {
		return h[i].Timestamp < h[j].Timestamp
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Scheduler is a min-heap of pending Events keyed by Timestamp, plus the
// monotone cycle counter ("now") that Timestamp values are measured
// against.
type Scheduler struct {
	queue eventHeap
	now   uint64
	seq   uint64
}

// New returns an empty Scheduler with the clock at cycle 0.
func New() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.queue)
	return s
}

// Now returns the current cycle counter.
func (s *Scheduler) Now() uint64 { return s.now }

// Advance moves the clock forward by n cycles.
func (s *Scheduler) Advance(n uint64) { s.now += n }

// Schedule inserts event at now+deltaCycles. The event's Timestamp field
// is overwritten; callers need not set it.
func (s *Scheduler) Schedule(event Event, deltaCycles uint64) {
	event.Timestamp = s.now + deltaCycles
	event.seq = s.seq
	s.seq++
	heap.Push(&s.queue, event)
}

// Remove drops every pending event whose Kind matches kind. Nothing in
// this module calls it.
func (s *Scheduler) Remove(kind Kind) {
	kept := s.queue[:0]
	for _, e := range s.queue {
		if e.Kind != kind {
			kept = append(kept, e)
		}
	}
	s.queue = kept
	heap.Init(&s.queue)
}

// RemoveTimer drops every pending TimerTarget/TimerOverflow event for the
// given timer id, leaving other timers' events untouched.
func (s *Scheduler) RemoveTimer(timerID int) {
	kept := s.queue[:0]
	for _, e := range s.queue {
		if (e.Kind == TimerTarget || e.Kind == TimerOverflow) && e.TimerID == timerID {
			continue
		}
		kept = append(kept, e)
	}
	s.queue = kept
	heap.Init(&s.queue)
}

// NextReady reports whether the earliest pending event's timestamp has
// been reached.
func (s *Scheduler) NextReady() bool {
	return len(s.queue) > 0 && s.queue[0].Timestamp <= s.now
}

// Peek returns the earliest pending event without removing it. Calling
// Peek on an empty queue is a programming error, matching §4.1's contract
// for Pop.
func (s *Scheduler) Peek() Event {
	if len(s.queue) == 0 {
		logger.Log("scheduler", "peek on empty queue")
		return Event{}
	}
	return s.queue[0]
}

// Pop removes and returns the earliest pending event.
func (s *Scheduler) Pop() Event {
	if len(s.queue) == 0 {
		logger.Log("scheduler", "pop on empty queue")
		return Event{}
	}
	return heap.Pop(&s.queue).(Event)
}

// EventCyclesAway returns how many cycles remain until the earliest
// pending event fires, or 0 if the queue is empty or already due.
func (s *Scheduler) EventCyclesAway() uint64 {
	if len(s.queue) == 0 || s.queue[0].Timestamp <= s.now {
		return 0
	}
	return s.queue[0].Timestamp - s.now
}

// Len reports the number of pending events.
func (s *Scheduler) Len() int { return len(s.queue) }
