package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ConeCast/internal/domain/models"
	drepo "ConeCast/internal/domain/repository"
	"ConeCast/internal/features"
	"ConeCast/internal/regimes"

	"github.com/rs/zerolog"
)

type fakeMetrics struct {
	events    int
	snapshots int
	errors    int
}

func (m *fakeMetrics) RecordEvent(venue, kind string)  { m.events++ }
func (m *fakeMetrics) RecordSnapshot(symbol string)    { m.snapshots++ }
func (m *fakeMetrics) RecordError(kind string)         { m.errors++ }
func (m *fakeMetrics) RecordLastPrice(string, float64) {}
func (m *fakeMetrics) RecordLatency(string, float64)   {}
func (m *fakeMetrics) RecordQueueDepth(int)            {}

type captureSink struct {
	records []*models.SnapshotRecord
	err     error
}

func (s *captureSink) Emit(_ context.Context, rec *models.SnapshotRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *captureSink) Close() error { return nil }

type failingRecorder struct{ err error }

func (r *failingRecorder) Write(models.Event) error { return r.err }
func (r *failingRecorder) Close() error             { return nil }

func trade(sym string, i int, price float64) models.TradePrint {
	return models.TradePrint{
		EventBase: models.EventBase{
			TS:     time.Unix(1_700_000_000, 0).UTC().Add(time.Duration(i) * time.Second),
			Symbol: sym,
			Venue:  models.VenueSynthetic,
			Etype:  models.KindTradePrint,
		},
		Price: price,
		Size:  1.0,
		Side:  models.SideBuy,
	}
}

func feedOf(events ...models.Event) <-chan models.Event {
	ch := make(chan models.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func testBuilder(engine *features.Engine) *SnapshotBuilder {
	return NewSnapshotBuilder(engine, regimes.NewClassifier(regimes.Thresholds{}), BuilderParams{
		GridPoints: 51,
		ConeSteps:  20,
		NPaths:     50,
		Seed:       1,
	})
}

func TestPipelineSnapshotsEveryNthTradePerInstrument(t *testing.T) {
	engine := features.NewEngine(nil)
	metrics := &fakeMetrics{}
	sink := &captureSink{}
	p := NewPipeline(engine, testBuilder(engine), nil, []drepo.SnapshotSink{sink}, metrics, 2, zerolog.Nop())

	var events []models.Event
	for i := 0; i < 4; i++ {
		events = append(events, trade("BTC", i, 100+float64(i)))
		events = append(events, trade("ETH", i, 10+float64(i)))
	}

	if err := p.Run(context.Background(), feedOf(events...)); err != nil {
		t.Fatalf("run: %v", err)
	}
	// 4 trades per instrument, snapshot every 2nd
	if len(sink.records) != 4 {
		t.Fatalf("records = %d, want 4", len(sink.records))
	}
	if metrics.snapshots != 4 {
		t.Fatalf("snapshot metric = %d, want 4", metrics.snapshots)
	}

	bySymbol := map[string]int{}
	for _, rec := range sink.records {
		bySymbol[rec.Symbol]++
		if len(rec.Snapshots) == 0 {
			t.Fatalf("record for %s has no scale snapshots", rec.Symbol)
		}
	}
	if bySymbol["BTC"] != 2 || bySymbol["ETH"] != 2 {
		t.Fatalf("records per symbol = %v, want 2 each", bySymbol)
	}
}

func TestPipelineRecorderErrorHalts(t *testing.T) {
	engine := features.NewEngine(nil)
	rec := &failingRecorder{err: errors.New("disk full")}
	p := NewPipeline(engine, testBuilder(engine), rec, nil, &fakeMetrics{}, 2, zerolog.Nop())

	err := p.Run(context.Background(), feedOf(trade("BTC", 0, 100)))
	if err == nil {
		t.Fatalf("expected recorder error to halt the pipeline")
	}
}

func TestPipelineSinkErrorIsSwallowed(t *testing.T) {
	engine := features.NewEngine(nil)
	metrics := &fakeMetrics{}
	bad := &captureSink{err: errors.New("broker down")}
	good := &captureSink{}
	p := NewPipeline(engine, testBuilder(engine), nil, []drepo.SnapshotSink{bad, good}, metrics, 1, zerolog.Nop())

	if err := p.Run(context.Background(), feedOf(trade("BTC", 0, 100))); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(good.records) != 1 {
		t.Fatalf("good sink records = %d, want 1", len(good.records))
	}
	if metrics.errors == 0 {
		t.Fatalf("expected an emit error to be counted")
	}
}

func TestPipelineCancelled(t *testing.T) {
	engine := features.NewEngine(nil)
	p := NewPipeline(engine, testBuilder(engine), nil, nil, &fakeMetrics{}, 2, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan models.Event)
	if err := p.Run(ctx, ch); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
