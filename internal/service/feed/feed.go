// Package feed holds helpers shared by the venue adapters.
package feed

import (
	"context"
	"sort"
	"time"

	"ConeCast/internal/domain/models"
)

// Send blocks until the event is enqueued or ctx is cancelled. The
// bounded channel is the backpressure point: a slow consumer eventually
// stalls every producer here.
func Send(ctx context.Context, out chan<- models.Event, ev models.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Sleep waits d or until ctx is cancelled, reporting whether the full
// wait elapsed.
func Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// NextBackoff doubles cur up to max.
func NextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

// TruncateBids keeps the top n levels sorted strictly descending by price.
func TruncateBids(levels []models.BookLevel, n int) []models.BookLevel {
	if len(levels) > n {
		levels = levels[:n]
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Price > levels[j].Price })
	return levels
}

// TruncateAsks keeps the top n levels sorted strictly ascending by price.
func TruncateAsks(levels []models.BookLevel, n int) []models.BookLevel {
	if len(levels) > n {
		levels = levels[:n]
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Price < levels[j].Price })
	return levels
}
