package warmup

import (
	"sync"
	"time"
)

// Window keeps the most recent arrival times in a fixed-size ring.
// Add is called from the streaming thread, Stats from anywhere.
type Window struct {
	mu    sync.Mutex
	times []time.Time
	next  int
	full  bool
}

// NewWindow creates a window holding up to size arrivals (minimum 2)
func NewWindow(size int) *Window {
	if size < 2 {
		size = 2
	}
	return &Window{times: make([]time.Time, size)}
}

// Add records an arrival
func (w *Window) Add(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.times[w.next] = t
	w.next = (w.next + 1) % len(w.times)
	if w.next == 0 {
		w.full = true
	}
}

// Len returns the number of arrivals held
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.full {
		return len(w.times)
	}
	return w.next
}

// Snapshot returns the held arrivals, oldest first
func (w *Window) Snapshot() []time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.full {
		return append([]time.Time(nil), w.times[:w.next]...)
	}
	out := make([]time.Time, 0, len(w.times))
	out = append(out, w.times[w.next:]...)
	return append(out, w.times[:w.next]...)
}

// Stats computes FPS statistics over the window.
//
// The duration is stretched by one mean interval so n arrivals spanning
// n-1 intervals give the exact rate.
func (w *Window) Stats() *FPSStats {
	times := w.Snapshot()
	n := len(times)
	if n < 2 {
		return &FPSStats{Frames: n}
	}

	span := times[n-1].Sub(times[0])
	if span <= 0 {
		return &FPSStats{Frames: n}
	}
	duration := time.Duration(float64(span) * float64(n) / float64(n-1))
	return CalculateFPSStats(times, duration)
}
