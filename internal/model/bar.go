package model

import (
	"encoding/json"
	"time"
)

// Bar represents one daily price bar for a single instrument.
// Prices are float64: downstream indicator math (log-returns, standard
// deviation) needs real arithmetic, so there is no fixed-point representation.
type Bar struct {
	Symbol     string     `json:"symbol"`
	AssetClass AssetClass `json:"asset_class"`
	TS         time.Time  `json:"ts"`     // bar end time (UTC)
	Price      float64    `json:"price"`  // closing price
	Volume     float64    `json:"volume"` // traded volume for the bar
}

// Valid reports whether the bar can be fed into indicator state.
// Non-positive prices are malformed and must be dropped at the boundary.
func (b *Bar) Valid() bool {
	return b.Price > 0
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *Bar) JSON() []byte {
	data, _ := json.Marshal(b)
	return data
}
