// Package temporal computes an event's time-relative state. All functions
// take the current instant from the caller and never read the system clock.
package temporal

import (
	"sync"
	"time"

	"event-reminders/internal/logger"
	"event-reminders/pkg/models"
)

// ClosingWindowMinutes is how close to start an event counts as "closing".
const ClosingWindowMinutes = 10

// warnedEvents tracks event IDs already reported for malformed date/time,
// so a bad record in the feed does not warn on every poll.
var warnedEvents sync.Map

// MinutesUntil returns the signed whole-minute difference between the
// event's start instant and now. Positive means the event is in the future.
// A malformed date or time yields the zero sentinel instead of an error;
// the bad record is logged once as a data-quality warning.
func MinutesUntil(ev models.Event, now time.Time) int {
	m, _ := minutesUntil(ev, now)
	return m
}

// IsPast reports whether the event has already started. Events with
// malformed date/time are treated as not past.
func IsPast(ev models.Event, now time.Time) bool {
	m, ok := minutesUntil(ev, now)
	return ok && m <= 0
}

// IsClosing reports whether the event starts within the closing window
// (strictly future, at most ClosingWindowMinutes away). Used to suppress
// new reminder enables, never to cancel existing ones.
func IsClosing(ev models.Event, now time.Time) bool {
	m, ok := minutesUntil(ev, now)
	return ok && m > 0 && m <= ClosingWindowMinutes
}

func minutesUntil(ev models.Event, now time.Time) (int, bool) {
	start, err := ev.StartsAt(now.Location())
	if err != nil {
		if _, dup := warnedEvents.LoadOrStore(ev.ID, struct{}{}); !dup {
			logger.Warnf("unparseable event start: %v", err)
		}
		return 0, false
	}
	return int(start.Sub(now) / time.Minute), true
}
