package model

// UniverseAction marks an instrument entering or leaving the traded universe.
type UniverseAction string

const (
	UniverseAdd    UniverseAction = "ADD"
	UniverseRemove UniverseAction = "REMOVE"
)

// UniverseEvent is delivered by the external platform when universe
// membership changes. A REMOVE must force-close any open position for the
// symbol, bypassing normal stop/target checks.
type UniverseEvent struct {
	Action     UniverseAction `json:"action"`
	Symbol     string         `json:"symbol"`
	AssetClass AssetClass     `json:"asset_class"`
}
