package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/position"
)

// IntentAlert builds an alert for an emitted trade intent. Stop-loss and
// forced exits are warnings; everything else is informational.
func IntentAlert(intent model.Intent) Alert {
	level := AlertInfo
	if intent.Action == model.ActionExit {
		switch intent.Reason {
		case string(position.ExitStopLoss), string(position.ExitUniverseRemoved):
			level = AlertWarning
		}
	}

	title := fmt.Sprintf("%s %s", intent.Action, intent.Symbol)
	msg := fmt.Sprintf("price=%.4f fraction=%.2f%% reason=%s",
		intent.Price, intent.TargetFraction*100, intent.Reason)
	return Alert{Level: level, Title: title, Message: msg}
}

// ViolationAlert builds a critical alert for an invariant violation that
// aborted the strategy run.
func ViolationAlert(err error) Alert {
	return Alert{
		Level:   AlertCritical,
		Title:   "strategy run aborted",
		Message: err.Error(),
	}
}

// Dispatcher fans one alert out to multiple backends. Delivery failures are
// logged, never propagated; alerting must not take down the engine.
type Dispatcher struct {
	notifiers []Notifier
}

// NewDispatcher creates a dispatcher over the given backends.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers}
}

// Dispatch sends the alert to every backend.
func (d *Dispatcher) Dispatch(ctx context.Context, alert Alert) {
	for _, n := range d.notifiers {
		if err := n.Send(ctx, alert); err != nil {
			log.Printf("[notify] send failed: %v", err)
		}
	}
}

// RunIntentAlerts consumes intents and dispatches alerts for exits. Entry
// intents are routine and stay out of the alert channel.
func (d *Dispatcher) RunIntentAlerts(ctx context.Context, intentCh <-chan model.Intent) {
	for {
		select {
		case <-ctx.Done():
			return
		case intent, ok := <-intentCh:
			if !ok {
				return
			}
			if intent.Action != model.ActionExit {
				continue
			}
			d.Dispatch(ctx, IntentAlert(intent))
		}
	}
}
