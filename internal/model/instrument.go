package model

// AssetClass distinguishes the two tradable asset classes in the universe.
type AssetClass string

const (
	AssetEquity AssetClass = "EQUITY"
	AssetCrypto AssetClass = "CRYPTO"
)

// Instrument represents a tradable instrument as of its latest bar.
// It is immutable per bar; a new value replaces it when the next bar arrives.
type Instrument struct {
	Symbol     string     `json:"symbol"`
	AssetClass AssetClass `json:"asset_class"`
	Price      float64    `json:"price"`
	BarTS      int64      `json:"bar_ts"` // unix seconds of the latest bar
}
