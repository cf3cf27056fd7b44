package usecase

import (
	"context"
	"fmt"
	"time"

	"ConeCast/internal/bus"
	"ConeCast/internal/domain/models"
	drepo "ConeCast/internal/domain/repository"
	"ConeCast/internal/features"

	"github.com/rs/zerolog"
)

// engineKinds are the event kinds the feature engine consumes; the
// pass-through kinds only reach the recorder.
var engineKinds = []models.EventKind{
	models.KindTradePrint,
	models.KindBookDelta,
	models.KindFundingTick,
	models.KindOITick,
	models.KindBasisTick,
}

// recordedKinds is every kind the event log keeps.
var recordedKinds = []models.EventKind{
	models.KindTradePrint,
	models.KindBookDelta,
	models.KindFundingTick,
	models.KindOITick,
	models.KindBasisTick,
	models.KindLiquidationSnapshot,
	models.KindOnchainSnapshot,
	models.KindMacroSnapshot,
}

// Pipeline is the single consumer over the merged feed: it publishes
// each event to the bus (feature update plus recording) and every Nth
// trade per instrument computes a snapshot inline. Running the forecast
// on the consumer goroutine is the backpressure point: a slow forecast
// delays the next pop, and the bounded feed channel eventually blocks
// the producers.
type Pipeline struct {
	bus           *bus.Bus
	engine        *features.Engine
	builder       *SnapshotBuilder
	recorder      drepo.EventRecorder
	sinks         []drepo.SnapshotSink
	metrics       drepo.Metrics
	snapshotEvery int64
	log           zerolog.Logger
}

// NewPipeline wires the bus subscriptions. recorder may be nil (replay
// and synthetic runs); sinks receive every snapshot record.
func NewPipeline(
	engine *features.Engine,
	builder *SnapshotBuilder,
	recorder drepo.EventRecorder,
	sinks []drepo.SnapshotSink,
	metrics drepo.Metrics,
	snapshotEvery int64,
	log zerolog.Logger,
) *Pipeline {
	if snapshotEvery <= 0 {
		snapshotEvery = 200
	}

	p := &Pipeline{
		bus:           bus.New(),
		engine:        engine,
		builder:       builder,
		recorder:      recorder,
		sinks:         sinks,
		metrics:       metrics,
		snapshotEvery: snapshotEvery,
		log:           log.With().Str("component", "pipeline").Logger(),
	}

	for _, kind := range engineKinds {
		p.bus.Subscribe(kind, func(ev models.Event) error {
			p.engine.Update(ev)
			return nil
		})
	}
	if recorder != nil {
		for _, kind := range recordedKinds {
			p.bus.Subscribe(kind, recorder.Write)
		}
	}

	return p
}

// Run consumes events until the feed channel closes or ctx is
// cancelled. Recorder failures propagate: a broken event log is a
// data-loss condition the caller must see. Sink failures are logged and
// swallowed.
func (p *Pipeline) Run(ctx context.Context, events <-chan models.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				p.log.Info().Msg("feed drained")
				return nil
			}
			p.metrics.RecordQueueDepth(len(events))
			if err := p.handle(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func (p *Pipeline) handle(ctx context.Context, ev models.Event) error {
	base := ev.Base()
	p.metrics.RecordEvent(string(base.Venue), string(ev.Kind()))

	if err := p.bus.Publish(ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Kind(), err)
	}

	trade, ok := ev.(models.TradePrint)
	if !ok {
		return nil
	}
	p.metrics.RecordLastPrice(trade.Symbol, trade.Price)

	if p.engine.TradeCount(trade.Symbol)%p.snapshotEvery != 0 {
		return nil
	}

	start := time.Now()
	rec, err := p.builder.Build(trade.TS, trade.Symbol)
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}
	p.metrics.RecordLatency("snapshot_build", time.Since(start).Seconds())
	p.metrics.RecordSnapshot(trade.Symbol)

	for _, sink := range p.sinks {
		if err := sink.Emit(ctx, rec); err != nil {
			p.metrics.RecordError("snapshot_emit")
			p.log.Error().Err(err).Str("symbol", trade.Symbol).Msg("snapshot emit failed")
		}
	}
	return nil
}
