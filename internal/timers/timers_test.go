package timers_test

import (
	"testing"

	"github.com/jetsetilly/psx/internal/timers"
	"github.com/jetsetilly/psx/test"
)

func TestCounterWrapsAtOverflow(t *testing.T) {
	ts := timers.New()
	ts.Write32(0x14, 1<<5) // timer1 mode: irq at overflow
	ts.Write32(0x10+0x0, 0xFFFE)

	fired := ts.Tick(4)
	test.ExpectSuccess(t, fired[1])
}

func TestTargetMatchResetsCounter(t *testing.T) {
	ts := timers.New()
	ts.Write32(0x4, (1<<3)|(1<<4)) // timer0: reset-after-target, irq at target
	ts.Write32(0x8, 10)            // target = 10

	// the counter runs 0..target inclusive, so it wraps to 0 on the
	// cycle after it reaches 10
	fired := ts.Tick(11)
	test.ExpectSuccess(t, fired[0])
	test.ExpectEquality(t, ts.Read32(0x0), uint32(0))
}

func TestOneShotDoesNotRefire(t *testing.T) {
	ts := timers.New()
	ts.Write32(0x4, 1<<5) // timer0: irq at overflow, no repeat
	ts.Write32(0x0, 0xFFFF)
	test.ExpectSuccess(t, ts.Tick(2)[0])
	test.ExpectFailure(t, ts.Tick(0x10000)[0])
}
