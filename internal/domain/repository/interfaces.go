package repository

import (
	"context"

	"ConeCast/internal/domain/models"
)

// MarketFeed is a venue adapter. Events starts the venue's producer
// goroutines and returns the merged bounded stream; after ctx is
// cancelled the channel closes only once every producer has terminated.
type MarketFeed interface {
	Venue() models.Venue
	Events(ctx context.Context) <-chan models.Event
}

// SnapshotSink receives the periodic snapshot records the pipeline emits.
type SnapshotSink interface {
	Emit(ctx context.Context, rec *models.SnapshotRecord) error
	Close() error
}

// EventRecorder appends normalized events to the durable event log.
// Write errors propagate: a broken log is a data-loss condition.
type EventRecorder interface {
	Write(ev models.Event) error
	Close() error
}

// Metrics abstracts the pipeline's operational counters.
type Metrics interface {
	RecordEvent(venue, kind string)
	RecordSnapshot(symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordQueueDepth(n int)
}
