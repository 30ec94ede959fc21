package model

import (
	"encoding/json"
	"time"
)

// Action is the order instruction the engine hands to the external platform.
type Action string

const (
	ActionEnterLong  Action = "ENTER_LONG"
	ActionEnterShort Action = "ENTER_SHORT"
	ActionExit       Action = "EXIT"
)

// Intent is an order instruction emitted by the strategy orchestrator.
// The engine never computes fill price, fees, or slippage — intents are
// fire-and-forget from the engine's perspective.
type Intent struct {
	Symbol         string    `json:"symbol"`
	Action         Action    `json:"action"`
	TargetFraction float64   `json:"target_fraction"` // fraction of portfolio value
	Price          float64   `json:"price"`           // bar price the decision was made on
	Reason         string    `json:"reason"`
	TS             time.Time `json:"ts"`
}

// JSON returns the JSON-encoded intent (ignoring errors for hot-path usage).
func (i *Intent) JSON() []byte {
	data, _ := json.Marshal(i)
	return data
}

// StreamKey returns the Redis stream key intents are appended to.
func (i *Intent) StreamKey() string {
	return "intent:stream"
}

// PubSubChannel returns the Redis pub/sub channel for this intent's symbol.
func (i *Intent) PubSubChannel() string {
	return "pub:intent:" + i.Symbol
}
