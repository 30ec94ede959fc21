// Package ringbuf is a lock-free single-producer single-consumer queue of
// bars sitting between the websocket feed goroutine and the strategy loop.
// The producer never blocks: when the consumer falls behind, pushes fail and
// the caller decides whether to drop or count the bar.
package ringbuf

import (
	"math/bits"
	"sync/atomic"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"
)

// Ring holds bars in a power-of-two slice indexed by free-running counters,
// so position = counter & mask and the counters never wrap in practice.
// Exactly one goroutine may call Push and one may call Pop/Drain.
type Ring struct {
	slots []model.Bar
	mask  uint64

	// writeIdx and readIdx live on their own cache lines; the producer only
	// stores writeIdx and the consumer only stores readIdx.
	_        [64]byte
	writeIdx atomic.Uint64
	_        [64]byte
	readIdx  atomic.Uint64
	_        [64]byte

	dropped atomic.Uint64
}

// New creates a ring with at least the requested capacity, rounded up to a
// power of two (minimum 2).
func New(capacity int) *Ring {
	if capacity < 2 {
		capacity = 2
	}
	size := 1 << bits.Len(uint(capacity-1))
	return &Ring{
		slots: make([]model.Bar, size),
		mask:  uint64(size - 1),
	}
}

// Push enqueues a bar. Returns false, without writing, when the ring is full.
func (r *Ring) Push(bar model.Bar) bool {
	w := r.writeIdx.Load()
	if w-r.readIdx.Load() == uint64(len(r.slots)) {
		r.dropped.Add(1)
		return false
	}
	r.slots[w&r.mask] = bar
	r.writeIdx.Store(w + 1)
	return true
}

// Pop dequeues the oldest bar. Returns false when the ring is empty.
func (r *Ring) Pop() (model.Bar, bool) {
	read := r.readIdx.Load()
	if read == r.writeIdx.Load() {
		return model.Bar{}, false
	}
	bar := r.slots[read&r.mask]
	r.readIdx.Store(read + 1)
	return bar, true
}

// Drain dequeues up to len(dst) bars into dst and returns how many were
// copied. Lets the consumer process a burst per wakeup instead of spinning
// one Pop at a time.
func (r *Ring) Drain(dst []model.Bar) int {
	read := r.readIdx.Load()
	avail := r.writeIdx.Load() - read
	n := uint64(len(dst))
	if avail < n {
		n = avail
	}
	for i := uint64(0); i < n; i++ {
		dst[i] = r.slots[(read+i)&r.mask]
	}
	r.readIdx.Store(read + n)
	return int(n)
}

// Len reports how many bars are currently queued.
func (r *Ring) Len() int {
	return int(r.writeIdx.Load() - r.readIdx.Load())
}

// Cap reports the ring capacity.
func (r *Ring) Cap() int { return len(r.slots) }

// Dropped reports how many pushes failed because the ring was full.
func (r *Ring) Dropped() uint64 { return r.dropped.Load() }
