package scheduler_test

import (
	"testing"

	"github.com/jetsetilly/psx/internal/scheduler"
	"github.com/jetsetilly/psx/test"
)

func TestOrdering(t *testing.T) {
	s := scheduler.New()

	s.Schedule(scheduler.Event{Kind: scheduler.Vblank}, 10)
	s.Schedule(scheduler.Event{Kind: scheduler.SpuTick}, 5)

	s.Advance(10)

	test.ExpectSuccess(t, s.NextReady())
	first := s.Pop()
	test.ExpectEquality(t, first.Kind, scheduler.SpuTick)
	test.ExpectEquality(t, first.Timestamp, uint64(5))

	test.ExpectSuccess(t, s.NextReady())
	second := s.Pop()
	test.ExpectEquality(t, second.Kind, scheduler.Vblank)
	test.ExpectEquality(t, second.Timestamp, uint64(10))

	test.ExpectFailure(t, s.NextReady())
}

func TestEqualTimestampInsertionOrder(t *testing.T) {
	s := scheduler.New()

	s.Schedule(scheduler.Event{Kind: scheduler.DmaIrq, Channel: 2}, 0)
	s.Schedule(scheduler.Event{Kind: scheduler.DmaIrq, Channel: 4}, 0)
	s.Schedule(scheduler.Event{Kind: scheduler.DmaIrq, Channel: 6}, 0)

	test.ExpectEquality(t, s.Pop().Channel, 2)
	test.ExpectEquality(t, s.Pop().Channel, 4)
	test.ExpectEquality(t, s.Pop().Channel, 6)
}

func TestRemove(t *testing.T) {
	s := scheduler.New()

	s.Schedule(scheduler.Event{Kind: scheduler.TimerTarget, TimerID: 0}, 100)
	s.Schedule(scheduler.Event{Kind: scheduler.TimerOverflow, TimerID: 0}, 200)
	s.Schedule(scheduler.Event{Kind: scheduler.TimerTarget, TimerID: 1}, 50)

	s.RemoveTimer(0)
	test.ExpectEquality(t, s.Len(), 1)

	remaining := s.Peek()
	test.ExpectEquality(t, remaining.TimerID, 1)
}

func TestEventCyclesAway(t *testing.T) {
	s := scheduler.New()
	test.ExpectEquality(t, s.EventCyclesAway(), uint64(0))

	s.Schedule(scheduler.Event{Kind: scheduler.Vblank}, 571212)
	test.ExpectEquality(t, s.EventCyclesAway(), uint64(571212))

	s.Advance(571212)
	test.ExpectEquality(t, s.EventCyclesAway(), uint64(0))
}
