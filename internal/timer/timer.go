// Package timer holds countdown state advanced by an external tick. It
// starts no goroutines; the owner of the tick decides when time passes.
package timer

import "time"

type Timer struct {
	total   time.Duration
	elapsed time.Duration
	running bool
}

func New(total time.Duration) *Timer {
	return &Timer{total: total}
}

func (t *Timer) Start() {
	if t.Done() {
		return
	}
	t.running = true
}

func (t *Timer) Stop() {
	t.running = false
}

// Toggle flips between running and stopped.
func (t *Timer) Toggle() {
	if t.running {
		t.Stop()
	} else {
		t.Start()
	}
}

func (t *Timer) Reset() {
	t.running = false
	t.elapsed = 0
}

// Restart resets the timer to a new total and leaves it stopped.
func (t *Timer) Restart(total time.Duration) {
	t.total = total
	t.Reset()
}

// Tick advances a running timer by d. It returns true on the tick that
// reaches zero; the timer stops itself at that point. Ticks while stopped
// are no-ops.
func (t *Timer) Tick(d time.Duration) bool {
	if !t.running {
		return false
	}
	t.elapsed += d
	if t.elapsed >= t.total {
		t.elapsed = t.total
		t.running = false
		return true
	}
	return false
}

func (t *Timer) SetElapsed(d time.Duration) {
	t.elapsed = min(max(d, 0), t.total)
}

func (t *Timer) Elapsed() time.Duration {
	return t.elapsed
}

func (t *Timer) Remaining() time.Duration {
	return t.total - t.elapsed
}

func (t *Timer) Total() time.Duration {
	return t.total
}

func (t *Timer) Running() bool {
	return t.running
}

func (t *Timer) Done() bool {
	return t.elapsed >= t.total
}
