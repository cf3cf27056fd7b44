// Package bus implements synchronous publish/subscribe dispatch by event
// kind. The single pipeline consumer owns the bus; no locking needed.
package bus

import "ConeCast/internal/domain/models"

// Handler processes one event. An error aborts the publish call; callers
// wanting isolation must wrap per event.
type Handler func(ev models.Event) error

// Bus dispatches events to handlers registered for their kind.
type Bus struct {
	subs map[models.EventKind][]Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[models.EventKind][]Handler)}
}

// Subscribe registers handler for kind. Handlers run in registration
// order.
func (b *Bus) Subscribe(kind models.EventKind, handler Handler) {
	b.subs[kind] = append(b.subs[kind], handler)
}

// Publish invokes every handler registered for ev's kind, in order,
// stopping at the first error.
func (b *Bus) Publish(ev models.Event) error {
	for _, h := range b.subs[ev.Kind()] {
		if err := h(ev); err != nil {
			return err
		}
	}
	return nil
}
