// Package universe maintains the traded instrument universe: a coarse
// liquidity filter over equity candidates plus a pinned set of crypto
// symbols that are always tradable.
package universe

import (
	"log"
	"sort"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"
)

// Candidate is one instrument considered for universe membership.
type Candidate struct {
	Symbol       string
	AssetClass   model.AssetClass
	Price        float64
	DollarVolume float64
}

// Selector filters candidates by price and dollar volume, keeps the TopN
// most liquid, and always includes the pinned crypto symbols. It tracks the
// current membership so each rebalance yields explicit add/remove events.
type Selector struct {
	MinPrice        float64
	MinDollarVolume float64
	TopN            int
	Pinned          []string

	current map[string]model.AssetClass
}

// NewSelector creates a selector with the given thresholds.
// Defaults from the strategy: price > 20, dollar volume > 1e7, top 100.
func NewSelector(minPrice, minDollarVolume float64, topN int, pinned []string) *Selector {
	return &Selector{
		MinPrice:        minPrice,
		MinDollarVolume: minDollarVolume,
		TopN:            topN,
		Pinned:          pinned,
		current:         make(map[string]model.AssetClass, topN+len(pinned)),
	}
}

// Select returns the target membership for a candidate snapshot: liquid
// equities sorted by dollar volume descending, truncated to TopN, plus the
// pinned cryptos.
func (s *Selector) Select(candidates []Candidate) map[string]model.AssetClass {
	filtered := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Price > s.MinPrice && c.DollarVolume > s.MinDollarVolume {
			filtered = append(filtered, c)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].DollarVolume > filtered[j].DollarVolume
	})
	if s.TopN > 0 && len(filtered) > s.TopN {
		filtered = filtered[:s.TopN]
	}

	target := make(map[string]model.AssetClass, len(filtered)+len(s.Pinned))
	for _, c := range filtered {
		target[c.Symbol] = c.AssetClass
	}
	for _, symbol := range s.Pinned {
		target[symbol] = model.AssetCrypto
	}
	return target
}

// Rebalance diffs a candidate snapshot against the current membership and
// returns the add/remove events, updating the membership in place. Removals
// are ordered before additions so the orchestrator releases exposure before
// admitting new instruments.
func (s *Selector) Rebalance(candidates []Candidate) []model.UniverseEvent {
	target := s.Select(candidates)

	var events []model.UniverseEvent
	for symbol, class := range s.current {
		if _, keep := target[symbol]; !keep {
			events = append(events, model.UniverseEvent{
				Action:     model.UniverseRemove,
				Symbol:     symbol,
				AssetClass: class,
			})
		}
	}
	for symbol, class := range target {
		if _, have := s.current[symbol]; !have {
			events = append(events, model.UniverseEvent{
				Action:     model.UniverseAdd,
				Symbol:     symbol,
				AssetClass: class,
			})
		}
	}

	// Map iteration order is random; keep event order deterministic for
	// logs and replay, removals first.
	sort.Slice(events, func(i, j int) bool {
		if events[i].Action != events[j].Action {
			return events[i].Action == model.UniverseRemove
		}
		return events[i].Symbol < events[j].Symbol
	})

	s.current = target
	if len(events) > 0 {
		log.Printf("[universe] rebalanced: %d members, %d changes", len(target), len(events))
	}
	return events
}

// Members returns the current membership size.
func (s *Selector) Members() int { return len(s.current) }

// Contains reports whether a symbol is currently in the universe.
func (s *Selector) Contains(symbol string) bool {
	_, ok := s.current[symbol]
	return ok
}
