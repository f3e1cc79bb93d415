package main

import "time"

// fpsLimiter paces RunFrame calls to a target refresh rate, adjusting each
// sleep by the previous tick's overshoot so a slow frame doesn't
// accumulate drift. Grounded on gui/sdl's fpsLimiter in the teacher, with
// the channel+goroutine indirection collapsed into a single wait() call
// since cmd/psx's main loop is already the only consumer.
type fpsLimiter struct {
	period time.Duration
	last   time.Time
}

func newFPSLimiter(framesPerSecond int) *fpsLimiter {
	return &fpsLimiter{
		period: time.Second / time.Duration(framesPerSecond),
		last:   time.Now(),
	}
}

func (l *fpsLimiter) wait() {
	elapsed := time.Since(l.last)
	if elapsed < l.period {
		time.Sleep(l.period - elapsed)
	}
	l.last = time.Now()
}
