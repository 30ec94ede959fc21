package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"
)

type captureNotifier struct {
	alerts []Alert
	err    error
}

func (c *captureNotifier) Send(ctx context.Context, alert Alert) error {
	c.alerts = append(c.alerts, alert)
	return c.err
}

func TestIntentAlert_Levels(t *testing.T) {
	cases := []struct {
		name   string
		intent model.Intent
		want   AlertLevel
	}{
		{
			name:   "entry is info",
			intent: model.Intent{Symbol: "AAPL", Action: model.ActionEnterLong, Reason: "x"},
			want:   AlertInfo,
		},
		{
			name:   "stop loss exit is warning",
			intent: model.Intent{Symbol: "AAPL", Action: model.ActionExit, Reason: "STOP_LOSS"},
			want:   AlertWarning,
		},
		{
			name:   "forced exit is warning",
			intent: model.Intent{Symbol: "SOLUSD", Action: model.ActionExit, Reason: "UNIVERSE_REMOVED"},
			want:   AlertWarning,
		},
		{
			name:   "target exit is info",
			intent: model.Intent{Symbol: "AAPL", Action: model.ActionExit, Reason: "MEAN_REVERSION_TARGET"},
			want:   AlertInfo,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alert := IntentAlert(tc.intent)
			if alert.Level != tc.want {
				t.Errorf("level = %s, want %s", alert.Level, tc.want)
			}
			if alert.Title == "" || alert.Message == "" {
				t.Error("alert title and message must be populated")
			}
		})
	}
}

func TestViolationAlert_IsCritical(t *testing.T) {
	alert := ViolationAlert(errors.New("exposure ledger went negative"))
	if alert.Level != AlertCritical {
		t.Errorf("level = %s, want CRITICAL", alert.Level)
	}
}

func TestDispatcher_SendsToAllBackends(t *testing.T) {
	a := &captureNotifier{}
	b := &captureNotifier{err: errors.New("down")} // failure must not stop others
	c := &captureNotifier{}
	d := NewDispatcher(a, b, c)

	d.Dispatch(context.Background(), Alert{Level: AlertInfo, Title: "t", Message: "m"})

	for i, n := range []*captureNotifier{a, b, c} {
		if len(n.alerts) != 1 {
			t.Errorf("backend %d received %d alerts, want 1", i, len(n.alerts))
		}
	}
}
