package redis

import (
	"context"
	"log"
	"sync"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"
)

// BufferedPublisher wraps a Redis Writer with a circuit breaker.
// While the circuit is open, intents are buffered locally and flushed in
// order when the circuit closes again, so a Redis outage never drops a
// trading decision.
type BufferedPublisher struct {
	writer *Writer
	cb     *CircuitBreaker
	ctx    context.Context

	mu     sync.Mutex
	buffer []model.Intent
	maxBuf int // max buffered intents before dropping oldest (default: 10000)

	// Callbacks
	OnBuffer func()          // called when an intent is buffered (for metrics)
	OnFlush  func(count int) // called after flushing buffered intents
}

// NewBufferedPublisher creates a BufferedPublisher wrapping the given Writer.
func NewBufferedPublisher(ctx context.Context, w *Writer, cb *CircuitBreaker, maxBufferSize int) *BufferedPublisher {
	if maxBufferSize <= 0 {
		maxBufferSize = 10000
	}
	bp := &BufferedPublisher{
		writer: w,
		cb:     cb,
		ctx:    ctx,
		buffer: make([]model.Intent, 0, 64),
		maxBuf: maxBufferSize,
	}

	// Register flush on circuit close
	prevCallback := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prevCallback != nil {
			prevCallback(from, to)
		}
		if to == StateClosed {
			go bp.flush()
		}
	}

	return bp
}

// Publish sends an intent through the circuit breaker. If the circuit is
// open, or the publish itself fails, the intent is buffered locally.
func (bp *BufferedPublisher) Publish(intent model.Intent) error {
	err := bp.cb.Execute(func() error {
		return bp.writer.PublishIntent(bp.ctx, intent)
	})
	if err != nil {
		bp.bufferIntent(intent)
		if err == ErrCircuitOpen {
			return nil // buffered, not lost
		}
		return err
	}
	return nil
}

// Run consumes intents from intentCh until ctx is cancelled or the channel
// is closed.
func (bp *BufferedPublisher) Run(ctx context.Context, intentCh <-chan model.Intent) {
	for {
		select {
		case <-ctx.Done():
			return
		case intent, ok := <-intentCh:
			if !ok {
				return
			}
			if err := bp.Publish(intent); err != nil {
				log.Printf("[buffered-publisher] publish error for %s: %v", intent.Symbol, err)
			}
		}
	}
}

func (bp *BufferedPublisher) bufferIntent(intent model.Intent) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if len(bp.buffer) >= bp.maxBuf {
		// Buffer full — drop oldest
		log.Printf("[buffered-publisher] buffer full, dropping oldest intent %s %s",
			bp.buffer[0].Action, bp.buffer[0].Symbol)
		bp.buffer = bp.buffer[1:]
	}
	bp.buffer = append(bp.buffer, intent)

	if bp.OnBuffer != nil {
		bp.OnBuffer()
	}
}

// flush replays all buffered intents through the underlying writer.
func (bp *BufferedPublisher) flush() {
	bp.mu.Lock()
	if len(bp.buffer) == 0 {
		bp.mu.Unlock()
		return
	}
	// Take ownership of the buffer
	toFlush := bp.buffer
	bp.buffer = make([]model.Intent, 0, 64)
	bp.mu.Unlock()

	if err := bp.writer.PublishBatch(bp.ctx, toFlush); err != nil {
		log.Printf("[buffered-publisher] flush error, re-buffering %d intents: %v", len(toFlush), err)
		bp.mu.Lock()
		bp.buffer = append(toFlush, bp.buffer...)
		bp.mu.Unlock()
		return
	}

	log.Printf("[buffered-publisher] flushed %d buffered intents", len(toFlush))
	if bp.OnFlush != nil {
		bp.OnFlush(len(toFlush))
	}
}

// PendingCount returns the number of buffered intents waiting to be flushed.
func (bp *BufferedPublisher) PendingCount() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.buffer)
}

// Underlying returns the wrapped Redis writer for direct access.
func (bp *BufferedPublisher) Underlying() *Writer {
	return bp.writer
}
