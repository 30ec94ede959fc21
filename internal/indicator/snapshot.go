package indicator

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot serializes one indicator's rolling state for checkpoint
// persistence. Window-backed indicators carry their values oldest-first;
// the RSI carries its Wilder running averages instead.
type Snapshot struct {
	Type       string    `json:"type"`
	Period     int       `json:"period"`
	Deviations float64   `json:"deviations,omitempty"`
	Values     []float64 `json:"values,omitempty"`
	Count      int       `json:"count,omitempty"`
	PrevClose  float64   `json:"prev_close,omitempty"`
	AvgGain    float64   `json:"avg_gain,omitempty"`
	AvgLoss    float64   `json:"avg_loss,omitempty"`
	Current    float64   `json:"current,omitempty"`
	Annualize  bool      `json:"annualize,omitempty"`
}

// SymbolSnapshot holds the four indicator snapshots for one symbol.
type SymbolSnapshot struct {
	Bands Snapshot `json:"bands"`
	RSI   Snapshot `json:"rsi"`
	Vol   Snapshot `json:"vol"`
	Trend Snapshot `json:"trend"`
}

// BankSnapshot captures the full bank state so a restarted engine can skip
// the warmup window.
type BankSnapshot struct {
	CreatedAt time.Time                 `json:"created_at"`
	Config    Config                    `json:"config"`
	Symbols   map[string]SymbolSnapshot `json:"symbols"`
}

// Snapshot captures the current state of every symbol in the bank.
func (b *Bank) Snapshot() BankSnapshot {
	snap := BankSnapshot{
		CreatedAt: time.Now().UTC(),
		Config:    b.cfg,
		Symbols:   make(map[string]SymbolSnapshot, len(b.state)),
	}
	for symbol, si := range b.state {
		snap.Symbols[symbol] = SymbolSnapshot{
			Bands: si.bands.Snapshot(),
			RSI:   si.rsi.Snapshot(),
			Vol:   si.vol.Snapshot(),
			Trend: si.trend.Snapshot(),
		}
	}
	return snap
}

// RestoreBank rebuilds a bank from a snapshot. The snapshot's config must
// match the requested config — warm state under different periods would be
// silently wrong.
func RestoreBank(cfg Config, snap *BankSnapshot) (*Bank, error) {
	bank := NewBank(cfg)
	if snap == nil {
		return bank, nil // cold start
	}
	if snap.Config != cfg {
		return nil, fmt.Errorf("snapshot config mismatch: snapshot %+v, requested %+v", snap.Config, cfg)
	}

	for symbol, ss := range snap.Symbols {
		si := bank.newSymbolIndicators()
		si.bands.RestoreFromSnapshot(ss.Bands)
		si.rsi.RestoreFromSnapshot(ss.RSI)
		si.vol.RestoreFromSnapshot(ss.Vol)
		si.trend.RestoreFromSnapshot(ss.Trend)
		bank.state[symbol] = si
	}
	return bank, nil
}

// Marshal encodes the snapshot as JSON for storage.
func (s *BankSnapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalBankSnapshot decodes a stored snapshot.
func UnmarshalBankSnapshot(data []byte) (*BankSnapshot, error) {
	var snap BankSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal bank snapshot: %w", err)
	}
	return &snap, nil
}
