// Package rolling provides a fixed-capacity FIFO window of float64
// observations with rolling mean and population standard deviation.
// It backs every indicator in the bank; each (symbol, indicator) pair
// owns its window exclusively.
package rolling

import "math"

// Window is a fixed-capacity circular buffer. Once full, each push evicts
// the oldest observation — the length never exceeds the capacity.
// Designed for single-goroutine usage — no locks needed.
type Window struct {
	buf   []float64
	idx   int // next write position
	count int // total values received
	sum   float64
}

// NewWindow creates a window holding at most capacity observations.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest observation if the window is full.
func (w *Window) Push(v float64) {
	if w.count >= len(w.buf) {
		w.sum -= w.buf[w.idx]
	}
	w.buf[w.idx] = v
	w.sum += v
	w.idx = (w.idx + 1) % len(w.buf)
	w.count++
}

// Len returns the number of observations currently held.
func (w *Window) Len() int {
	if w.count > len(w.buf) {
		return len(w.buf)
	}
	return w.count
}

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Full reports whether the window holds exactly its capacity of observations.
func (w *Window) Full() bool { return w.count >= len(w.buf) }

// Mean returns the arithmetic mean of the held observations.
// Returns 0 when the window is empty.
func (w *Window) Mean() float64 {
	n := w.Len()
	if n == 0 {
		return 0
	}
	return w.sum / float64(n)
}

// StdDev returns the population standard deviation of the held observations.
// Returns 0 when the window is empty.
func (w *Window) StdDev() float64 {
	n := w.Len()
	if n == 0 {
		return 0
	}
	mean := w.sum / float64(n)
	var ss float64
	for i := 0; i < n; i++ {
		d := w.buf[i] - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n))
}

// Last returns the most recently pushed observation.
// Returns 0 when the window is empty.
func (w *Window) Last() float64 {
	if w.count == 0 {
		return 0
	}
	i := w.idx - 1
	if i < 0 {
		i = len(w.buf) - 1
	}
	return w.buf[i]
}

// Values returns the held observations oldest-first. Allocates a new slice.
func (w *Window) Values() []float64 {
	n := w.Len()
	out := make([]float64, 0, n)
	start := 0
	if w.count > len(w.buf) {
		start = w.idx
	}
	for i := 0; i < n; i++ {
		out = append(out, w.buf[(start+i)%len(w.buf)])
	}
	return out
}

// Restore replaces the window contents with values (oldest-first), used when
// rebuilding indicator state from a snapshot.
func (w *Window) Restore(values []float64) {
	w.idx = 0
	w.count = 0
	w.sum = 0
	for i := range w.buf {
		w.buf[i] = 0
	}
	for _, v := range values {
		w.Push(v)
	}
}
