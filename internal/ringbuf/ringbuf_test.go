package ringbuf

import (
	"sync"
	"testing"
	"time"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"
)

func TestPushPopFIFO(t *testing.T) {
	r := New(4)

	r.Push(model.Bar{Symbol: "AAPL", Price: 100})
	r.Push(model.Bar{Symbol: "MSFT", Price: 200})
	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}

	for _, want := range []string{"AAPL", "MSFT"} {
		bar, ok := r.Pop()
		if !ok || bar.Symbol != want {
			t.Fatalf("Pop = %q ok=%v, want %q", bar.Symbol, ok, want)
		}
	}
	if _, ok := r.Pop(); ok {
		t.Fatal("Pop on empty ring should report false")
	}
}

func TestFullRingRejectsPush(t *testing.T) {
	r := New(2)
	r.Push(model.Bar{Symbol: "A"})
	r.Push(model.Bar{Symbol: "B"})

	if r.Push(model.Bar{Symbol: "C"}) {
		t.Fatal("push into a full ring should fail")
	}
	if r.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", r.Dropped())
	}

	// The rejected bar must not clobber queued data.
	bar, _ := r.Pop()
	if bar.Symbol != "A" {
		t.Fatalf("head = %q after rejected push, want A", bar.Symbol)
	}
}

func TestDrain(t *testing.T) {
	r := New(8)
	for i := 0; i < 5; i++ {
		r.Push(model.Bar{Price: float64(i)})
	}

	dst := make([]model.Bar, 3)
	if n := r.Drain(dst); n != 3 {
		t.Fatalf("Drain = %d, want 3", n)
	}
	for i := 0; i < 3; i++ {
		if dst[i].Price != float64(i) {
			t.Errorf("dst[%d].Price = %g, want %d", i, dst[i].Price, i)
		}
	}

	// Second drain takes the remainder and reports the short count.
	if n := r.Drain(dst); n != 2 {
		t.Fatalf("second Drain = %d, want 2", n)
	}
	if dst[0].Price != 3 || dst[1].Price != 4 {
		t.Errorf("remainder = %g,%g, want 3,4", dst[0].Price, dst[1].Price)
	}
	if n := r.Drain(dst); n != 0 {
		t.Fatalf("Drain on empty ring = %d, want 0", n)
	}
}

func TestIndexWraparound(t *testing.T) {
	r := New(4)
	for round := 0; round < 6; round++ {
		for i := 0; i < 4; i++ {
			if !r.Push(model.Bar{Price: float64(round*10 + i)}) {
				t.Fatalf("round %d push %d rejected", round, i)
			}
		}
		for i := 0; i < 4; i++ {
			bar, ok := r.Pop()
			if !ok || bar.Price != float64(round*10+i) {
				t.Fatalf("round %d pop %d = %g ok=%v", round, i, bar.Price, ok)
			}
		}
	}
}

func TestCapacityRounding(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 2}, {1, 2}, {2, 2}, {3, 4}, {5, 8}, {8, 8}, {9, 16}, {1000, 1024},
	}
	for _, tc := range cases {
		if got := New(tc.in).Cap(); got != tc.want {
			t.Errorf("New(%d).Cap() = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	const count = 100_000
	r := New(1024)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < count; i++ {
			for !r.Push(model.Bar{Price: float64(i)}) {
			}
		}
	}()

	received := make([]float64, 0, count)
	go func() {
		defer wg.Done()
		buf := make([]model.Bar, 64)
		for len(received) < count {
			n := r.Drain(buf)
			for i := 0; i < n; i++ {
				received = append(received, buf[i].Price)
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("producer/consumer test timed out")
	}

	for i, v := range received {
		if v != float64(i) {
			t.Fatalf("received[%d] = %g, want %d", i, v, i)
		}
	}
}
