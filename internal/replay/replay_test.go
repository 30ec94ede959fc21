package replay

import (
	"testing"
	"time"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"
)

func TestBatchByTime(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
	}
	bars := []model.Bar{
		{Symbol: "AAPL", TS: day(0)},
		{Symbol: "MSFT", TS: day(0)},
		{Symbol: "AAPL", TS: day(1)},
		{Symbol: "BTCUSD", TS: day(1)},
		{Symbol: "MSFT", TS: day(1)},
		{Symbol: "AAPL", TS: day(2)},
	}

	batches := BatchByTime(bars)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}

	wantSizes := []int{2, 3, 1}
	for i, batch := range batches {
		if len(batch) != wantSizes[i] {
			t.Errorf("batch %d size = %d, want %d", i, len(batch), wantSizes[i])
		}
		for _, bar := range batch {
			if !bar.TS.Equal(batch[0].TS) {
				t.Errorf("batch %d mixes timestamps", i)
			}
		}
	}
}

func TestBatchByTime_Empty(t *testing.T) {
	if batches := BatchByTime(nil); len(batches) != 0 {
		t.Errorf("expected no batches, got %d", len(batches))
	}
}

func TestBatchByTime_SingleTimestamp(t *testing.T) {
	ts := time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC)
	bars := []model.Bar{
		{Symbol: "A", TS: ts},
		{Symbol: "B", TS: ts},
		{Symbol: "C", TS: ts},
	}
	batches := BatchByTime(bars)
	if len(batches) != 1 || len(batches[0]) != 3 {
		t.Fatalf("expected one batch of 3, got %d batches", len(batches))
	}
}
