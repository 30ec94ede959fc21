// Package replay reads historical bars from SQLite and emits them as
// bar-time batches at configurable speed for backtesting.
package replay

import (
	"context"
	"log"
	"time"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"
	sqlitestore "github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/store/sqlite"
)

// Replayer reads stored bars and replays them at a configurable speed
// multiplier.
type Replayer struct {
	reader *sqlitestore.Reader
}

// New creates a Replayer backed by a SQLite reader.
func New(reader *sqlitestore.Reader) *Replayer {
	return &Replayer{reader: reader}
}

// Run replays all stored bars, grouped into simultaneous-bar batches, into
// batchCh. speed controls the playback rate: 1.0 = real-time, 10.0 = 10x,
// 0 = as fast as possible. fromTS filters bars to those after this Unix
// timestamp (0 = all).
func (r *Replayer) Run(ctx context.Context, fromTS int64, speed float64, batchCh chan<- []model.Bar) error {
	bars, err := r.reader.ReadAllBars(fromTS)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		log.Println("[replay] no bars found in SQLite")
		return nil
	}

	batches := BatchByTime(bars)
	log.Printf("[replay] loaded %d bars in %d batches, speed=%.1fx", len(bars), len(batches), speed)

	var prevTS time.Time
	emitted := 0

	for _, batch := range batches {
		select {
		case <-ctx.Done():
			log.Printf("[replay] cancelled after %d batches", emitted)
			return ctx.Err()
		default:
		}

		// Simulate time gaps between bar-times
		if speed > 0 && !prevTS.IsZero() {
			gap := batch[0].TS.Sub(prevTS)
			if gap > 0 {
				scaledGap := time.Duration(float64(gap) / speed)
				// Cap max sleep to avoid very long waits
				if scaledGap > 5*time.Second {
					scaledGap = 5 * time.Second
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(scaledGap):
				}
			}
		}
		prevTS = batch[0].TS

		select {
		case batchCh <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
		emitted++
	}

	log.Printf("[replay] completed: %d batches replayed", emitted)
	return nil
}

// BatchByTime groups bars sharing a timestamp into one batch. Input must be
// ordered by timestamp ascending, which is how the reader returns it.
func BatchByTime(bars []model.Bar) [][]model.Bar {
	var batches [][]model.Bar
	start := 0
	for i := 1; i <= len(bars); i++ {
		if i == len(bars) || !bars[i].TS.Equal(bars[start].TS) {
			batches = append(batches, bars[start:i])
			start = i
		}
	}
	return batches
}
