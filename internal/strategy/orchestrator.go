package strategy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/indicator"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/position"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/signal"
)

// Entry reasons recorded on intents.
const (
	reasonLongFade  = "price_below_lower_band_rsi_oversold_uptrend"
	reasonShortFade = "price_above_upper_band_rsi_overbought_downtrend"
)

// ProcessBatch runs one bar batch (all simultaneous bars of one bar-time)
// through the strategy: pass 1 feeds every bar into the indicator bank and
// checks exit conditions, pass 2 evaluates entries. Exits complete across
// all instruments before any entry is attempted, so exposure released in
// this batch can fund entries in the same batch.
//
// Malformed bars (non-positive price, out-of-order timestamp) are dropped
// with all prior state retained. A returned error is an invariant violation
// and the run must abort.
func (c *Context) ProcessBatch(bars []model.Bar) ([]model.Intent, error) {
	var intents []model.Intent

	// readings holds pass-1 results for the entry pass, keyed by slice index.
	readings := make([]*indicator.Reading, len(bars))

	// Pass 1: indicator updates + exits for all instruments.
	for i := range bars {
		bar := bars[i]
		if !c.admitBar(bar) {
			continue
		}

		reading, err := c.bank.Update(bar)
		switch {
		case err == nil:
			readings[i] = &reading
		case errors.Is(err, indicator.ErrWarmingUp):
			if c.hooks.OnWarmingUp != nil {
				c.hooks.OnWarmingUp(bar.Symbol)
			}
		default:
			return intents, fmt.Errorf("indicator update %s: %w", bar.Symbol, err)
		}

		exitIntent, err := c.checkExit(bar)
		if err != nil {
			return intents, err
		}
		if exitIntent != nil {
			intents = c.emit(intents, *exitIntent)
		}
	}

	if c.inWarmup() {
		return intents, nil
	}

	// Pass 2: entries for all instruments still flat after the exit sweep.
	for i := range bars {
		if readings[i] == nil {
			continue // malformed or warming up — abstain, never a trading decision
		}
		entryIntent, err := c.tryEnter(bars[i], *readings[i])
		if err != nil {
			return intents, err
		}
		if entryIntent != nil {
			intents = c.emit(intents, *entryIntent)
		}
	}

	return intents, nil
}

// ProcessBar is a convenience wrapper for feeds that deliver one bar at a
// time rather than simultaneous batches.
func (c *Context) ProcessBar(bar model.Bar) ([]model.Intent, error) {
	return c.ProcessBatch([]model.Bar{bar})
}

// HandleUniverseEvent applies a universe membership change. A removal
// force-closes any open position for the symbol — an emergency exit that
// bypasses normal stop/target checks — and drops its indicator state.
func (c *Context) HandleUniverseEvent(ev model.UniverseEvent) (*model.Intent, error) {
	switch ev.Action {
	case model.UniverseAdd:
		// Indicator state is created lazily on the first bar; nothing to do.
		return nil, nil

	case model.UniverseRemove:
		c.bank.Remove(ev.Symbol)
		delete(c.lastTS, ev.Symbol)

		if !c.tracker.Entered(ev.Symbol) {
			return nil, nil
		}
		pos, err := c.tracker.Close(ev.Symbol)
		if err != nil {
			return nil, err
		}
		if err := c.ledger.Release(pos.AllocatedFraction); err != nil {
			return nil, err
		}
		intent := model.Intent{
			Symbol:         ev.Symbol,
			Action:         model.ActionExit,
			TargetFraction: 0,
			Price:          0, // emergency exit, no bar price attached
			Reason:         string(position.ExitUniverseRemoved),
			TS:             time.Now().UTC(),
		}
		log.Printf("[strategy] forced exit %s: removed from universe (released %.2f%%)",
			ev.Symbol, pos.AllocatedFraction*100)
		if c.hooks.OnIntent != nil {
			c.hooks.OnIntent(intent)
		}
		return &intent, nil

	default:
		return nil, fmt.Errorf("unknown universe action %q", ev.Action)
	}
}

// Run consumes bar batches and universe events, emitting intents until ctx
// is cancelled or both channels are closed. Invariant violations abort the
// loop with an error.
func (c *Context) Run(ctx context.Context, batchCh <-chan []model.Bar, eventCh <-chan model.UniverseEvent, intentCh chan<- model.Intent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-eventCh:
			if !ok {
				eventCh = nil
				continue
			}
			intent, err := c.HandleUniverseEvent(ev)
			if err != nil {
				return fmt.Errorf("universe event %s %s: %w", ev.Action, ev.Symbol, err)
			}
			if intent != nil {
				intentCh <- *intent
			}

		case batch, ok := <-batchCh:
			if !ok {
				return nil
			}
			intents, err := c.ProcessBatch(batch)
			// Emit whatever was decided before a violation aborts the run.
			for _, intent := range intents {
				intentCh <- intent
			}
			if err != nil {
				return fmt.Errorf("bar batch: %w", err)
			}
		}
	}
}

// admitBar validates a bar and advances the per-symbol clock. Malformed bars
// are dropped without touching indicator or position state.
func (c *Context) admitBar(bar model.Bar) bool {
	if !bar.Valid() {
		log.Printf("[strategy] dropping malformed bar %s: non-positive price %.4f", bar.Symbol, bar.Price)
		if c.hooks.OnMalformedBar != nil {
			c.hooks.OnMalformedBar(bar, "non_positive_price")
		}
		return false
	}
	if last, seen := c.lastTS[bar.Symbol]; seen && !bar.TS.After(last) {
		log.Printf("[strategy] dropping malformed bar %s: timestamp %s not after %s",
			bar.Symbol, bar.TS.Format(time.RFC3339), last.Format(time.RFC3339))
		if c.hooks.OnMalformedBar != nil {
			c.hooks.OnMalformedBar(bar, "out_of_order_timestamp")
		}
		return false
	}
	c.lastTS[bar.Symbol] = bar.TS
	if bar.TS.After(c.clock) {
		c.clock = bar.TS
	}

	if c.warmupUntil.IsZero() && c.params.WarmupDays > 0 {
		c.warmupUntil = bar.TS.Add(time.Duration(c.params.WarmupDays) * 24 * time.Hour)
	}
	return true
}

func (c *Context) inWarmup() bool {
	if c.params.WarmupDays <= 0 {
		return false
	}
	// warmupUntil is zero only before the first admitted bar.
	return c.warmupUntil.IsZero() || c.clock.Before(c.warmupUntil)
}

// checkExit evaluates stop-loss and mean-reversion target for an open
// position. The stop uses the bar price alone, so it fires even while the
// bands are warming (e.g. after a snapshot-less restart).
func (c *Context) checkExit(bar model.Bar) (*model.Intent, error) {
	if !c.tracker.Entered(bar.Symbol) {
		return nil, nil
	}

	middle, hasBand := c.bank.MiddleBand(bar.Symbol)
	reason, exit := c.tracker.CheckExit(bar.Symbol, bar.Price, middle, hasBand)
	if !exit {
		return nil, nil
	}

	pos, err := c.tracker.Close(bar.Symbol)
	if err != nil {
		return nil, err
	}
	if err := c.ledger.Release(pos.AllocatedFraction); err != nil {
		return nil, err
	}

	log.Printf("[strategy] exit %s %s at %.4f (entry %.4f, reason %s, released %.2f%%)",
		pos.Direction, bar.Symbol, bar.Price, pos.EntryPrice, reason, pos.AllocatedFraction*100)

	return &model.Intent{
		Symbol:         bar.Symbol,
		Action:         model.ActionExit,
		TargetFraction: 0,
		Price:          bar.Price,
		Reason:         string(reason),
		TS:             bar.TS,
	}, nil
}

// tryEnter evaluates the entry signal for a flat instrument and attempts to
// reserve exposure. A rejected reservation drops the signal for this bar —
// it is not queued or retried.
func (c *Context) tryEnter(bar model.Bar, reading indicator.Reading) (*model.Intent, error) {
	if c.tracker.Entered(bar.Symbol) {
		return nil, nil // no pyramiding
	}

	sig := c.eval.Evaluate(reading)
	if sig == signal.Flat {
		return nil, nil
	}

	dir := position.Long
	fraction := c.params.LongFraction
	stopPct := c.params.LongStopLoss
	action := model.ActionEnterLong
	reason := reasonLongFade
	if sig == signal.Short {
		dir = position.Short
		fraction = c.params.ShortFraction
		stopPct = c.params.ShortStopLoss
		action = model.ActionEnterShort
		reason = reasonShortFade
	}

	if !c.ledger.TryReserve(fraction) {
		log.Printf("[strategy] exposure rejected %s %s: %.2f%% + %.2f%% exceeds %.2f%%",
			dir, bar.Symbol, c.ledger.Exposure()*100, fraction*100, c.ledger.Max()*100)
		if c.hooks.OnExposureRejected != nil {
			c.hooks.OnExposureRejected(bar.Symbol, fraction)
		}
		return nil, nil
	}

	pos, err := c.tracker.Open(bar.Symbol, dir, bar.Price, fraction, stopPct, bar.TS)
	if err != nil {
		// Roll the reservation back before surfacing the violation.
		if relErr := c.ledger.Release(fraction); relErr != nil {
			return nil, relErr
		}
		return nil, err
	}

	log.Printf("[strategy] enter %s %s at %.4f (stop %.4f, fraction %.2f%%, exposure %.2f%%)",
		dir, bar.Symbol, bar.Price, pos.StopLossPrice, fraction*100, c.ledger.Exposure()*100)

	return &model.Intent{
		Symbol:         bar.Symbol,
		Action:         action,
		TargetFraction: fraction,
		Price:          bar.Price,
		Reason:         reason,
		TS:             bar.TS,
	}, nil
}

func (c *Context) emit(intents []model.Intent, intent model.Intent) []model.Intent {
	if c.hooks.OnIntent != nil {
		c.hooks.OnIntent(intent)
	}
	return append(intents, intent)
}
