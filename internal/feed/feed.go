// Package feed is the event feed adapter: it delivers full snapshots of the
// upstream event collection to whoever subscribes. The reconciler depends
// only on the Handler contract, never on the HTTP client.
package feed

import (
	"context"
	"time"

	"event-reminders/pkg/models"
)

// Handler receives a full event snapshot, or an error when the feed could
// not be read. Deliveries are snapshots, never diffs.
type Handler func(events []models.Event, err error)

// Source supplies the authoritative event set.
type Source interface {
	// Snapshot fetches the current full event set.
	Snapshot(ctx context.Context) ([]models.Event, error)
	// Subscribe delivers a snapshot to h on every upstream change until the
	// returned stop function is called or ctx is cancelled. The first
	// delivery happens immediately.
	Subscribe(ctx context.Context, every time.Duration, h Handler) (stop func())
}
