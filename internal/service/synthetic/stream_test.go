package synthetic

import (
	"context"
	"testing"

	"ConeCast/internal/domain/models"

	"github.com/rs/zerolog"
)

func collect(t *testing.T, cfg Config) []models.Event {
	t.Helper()
	s := New(cfg, zerolog.Nop())
	var out []models.Event
	for ev := range s.Events(context.Background()) {
		out = append(out, ev)
	}
	return out
}

func TestStreamIsFinite(t *testing.T) {
	cfg := Config{Symbol: "BTC", Steps: 200, Seed: 7}
	events := collect(t, cfg)

	var trades, books, funding, oi, basis int
	for _, ev := range events {
		switch ev.Kind() {
		case models.KindTradePrint:
			trades++
		case models.KindBookDelta:
			books++
		case models.KindFundingTick:
			funding++
		case models.KindOITick:
			oi++
		case models.KindBasisTick:
			basis++
		default:
			t.Fatalf("unexpected kind %s", ev.Kind())
		}
	}
	if trades != 200 {
		t.Fatalf("trades = %d, want 200", trades)
	}
	// book every 20 prints, derivatives every 100
	if books != 10 {
		t.Fatalf("books = %d, want 10", books)
	}
	if funding != 2 || oi != 2 || basis != 2 {
		t.Fatalf("funding/oi/basis = %d/%d/%d, want 2 each", funding, oi, basis)
	}
}

func TestSameSeedSamePrices(t *testing.T) {
	cfg := Config{Symbol: "BTC", Steps: 500, Seed: 42, StartPrice: 50_000}

	prices := func(events []models.Event) []float64 {
		var out []float64
		for _, ev := range events {
			if tr, ok := ev.(models.TradePrint); ok {
				out = append(out, tr.Price)
			}
		}
		return out
	}

	a := prices(collect(t, cfg))
	b := prices(collect(t, cfg))
	if len(a) != len(b) || len(a) != 500 {
		t.Fatalf("price counts = %d/%d, want 500", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("price %d diverged: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestCancelStopsStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(Config{Symbol: "BTC", Steps: 100_000, Seed: 1, QueueSize: 8}, zerolog.Nop())
	n := 0
	for range s.Events(ctx) {
		n++
	}
	if n >= 100_000 {
		t.Fatalf("cancelled stream produced all %d events", n)
	}
}

func TestBookShape(t *testing.T) {
	events := collect(t, Config{Symbol: "BTC", Steps: 25, Seed: 3})

	for _, ev := range events {
		bd, ok := ev.(models.BookDelta)
		if !ok {
			continue
		}
		if len(bd.Bids) != 20 || len(bd.Asks) != 20 {
			t.Fatalf("book depth = %d/%d, want 20", len(bd.Bids), len(bd.Asks))
		}
		if bd.Bids[0].Price >= bd.Asks[0].Price {
			t.Fatalf("crossed book: bid %v >= ask %v", bd.Bids[0].Price, bd.Asks[0].Price)
		}
		for i := 1; i < 20; i++ {
			if bd.Bids[i].Price >= bd.Bids[i-1].Price {
				t.Fatalf("bids not descending at %d", i)
			}
			if bd.Asks[i].Price <= bd.Asks[i-1].Price {
				t.Fatalf("asks not ascending at %d", i)
			}
		}
		return
	}
	t.Fatalf("no book delta emitted")
}
