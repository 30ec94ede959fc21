package exposure

import (
	"errors"
	"math"
	"testing"
)

func TestLedger_ReserveWithinCeiling(t *testing.T) {
	l := NewLedger(0.80)

	for i := 0; i < 16; i++ {
		if !l.TryReserve(0.05) {
			t.Fatalf("reserve %d: expected grant, exposure=%.4f", i, l.Exposure())
		}
	}
	// 16 × 0.05 = 0.80 exactly — the ceiling itself is reachable.
	if math.Abs(l.Exposure()-0.80) > 1e-9 {
		t.Fatalf("expected exposure=0.80, got %.6f", l.Exposure())
	}

	if l.TryReserve(0.05) {
		t.Fatal("reserve above ceiling should be rejected")
	}
	if math.Abs(l.Exposure()-0.80) > 1e-9 {
		t.Errorf("rejected reserve must not change the ledger, got %.6f", l.Exposure())
	}
}

func TestLedger_RejectedReserveLeavesLedgerUntouched(t *testing.T) {
	l := NewLedger(0.80)
	if !l.TryReserve(0.78) {
		t.Fatal("initial reserve failed")
	}
	if l.TryReserve(0.05) {
		t.Fatal("0.78+0.05 exceeds 0.80, expected rejection")
	}
	if math.Abs(l.Exposure()-0.78) > 1e-9 {
		t.Errorf("expected exposure to remain 0.78, got %.6f", l.Exposure())
	}
}

func TestLedger_ReleaseReturnsCapacity(t *testing.T) {
	l := NewLedger(0.80)
	l.TryReserve(0.78)
	if err := l.Release(0.03); err != nil {
		t.Fatalf("release: %v", err)
	}
	if !l.TryReserve(0.05) {
		t.Error("expected reserve to succeed after release freed capacity")
	}
}

func TestLedger_NegativeReleaseIsInvariantViolation(t *testing.T) {
	l := NewLedger(0.80)
	l.TryReserve(0.05)
	if err := l.Release(0.05); err != nil {
		t.Fatalf("first release: %v", err)
	}
	err := l.Release(0.05)
	if !errors.Is(err, ErrNegativeLedger) {
		t.Fatalf("expected ErrNegativeLedger, got %v", err)
	}
}

func TestLedger_ZeroOrNegativeFractionRejected(t *testing.T) {
	l := NewLedger(0.80)
	if l.TryReserve(0) {
		t.Error("zero fraction should be rejected")
	}
	if l.TryReserve(-0.05) {
		t.Error("negative fraction should be rejected")
	}
}

func TestLedger_FloatAccumulation(t *testing.T) {
	l := NewLedger(0.80)
	// Repeated reserve/release cycles must not accumulate drift that blocks
	// a legitimate reserve at the ceiling.
	for i := 0; i < 1000; i++ {
		if !l.TryReserve(0.03) {
			t.Fatalf("cycle %d: reserve rejected, exposure=%.12f", i, l.Exposure())
		}
		if err := l.Release(0.03); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}
	if !l.TryReserve(0.80) {
		t.Errorf("full-ceiling reserve rejected after cycles, exposure=%.12f", l.Exposure())
	}
}
