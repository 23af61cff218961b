// Package policy decides whether a reminder may be enabled for an event.
// The same check backs both the UI (greying out controls) and the store
// (re-checked at mutation time), so a stale UI can never push the registry
// past capacity.
package policy

import (
	"time"

	"event-reminders/internal/temporal"
	"event-reminders/pkg/models"
)

// Reason explains why an enable was refused.
type Reason string

const (
	ReasonEventNotActive    Reason = "event-not-active"
	ReasonTooCloseToStart   Reason = "too-close-to-start"
	ReasonCapacityReached   Reason = "capacity-reached"
	ReasonNothingToSchedule Reason = "nothing-to-schedule"
)

// Message returns the user-facing text for the reason.
func (r Reason) Message() string {
	switch r {
	case ReasonEventNotActive:
		return "event is not active"
	case ReasonTooCloseToStart:
		return "event is too close to its start time"
	case ReasonCapacityReached:
		return "reminder limit reached; disable another event's reminder first"
	case ReasonNothingToSchedule:
		return "all reminder times for this event have already passed"
	}
	return string(r)
}

// Decision is the outcome of an eligibility check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision        { return Decision{Allowed: true} }
func deny(r Reason) Decision { return Decision{Reason: r} }

// Policy holds the externally supplied eligibility constants.
type Policy struct {
	// MinHoursToEnable is the minimum time to event start for a new enable.
	MinHoursToEnable int
	// MaxNotifyingEvents caps the number of events with active reminders.
	MaxNotifyingEvents int
}

// CanEnable checks, in order: event status, the lead-time floor, and the
// registry capacity. The capacity ceiling does not apply when the event
// already has an active schedule, so toggling off is never blocked.
// The first failing rule wins.
func (p Policy) CanEnable(ev models.Event, now time.Time, registrySize int, alreadyScheduled bool) Decision {
	if !ev.IsActive() {
		return deny(ReasonEventNotActive)
	}
	if temporal.MinutesUntil(ev, now) <= p.MinHoursToEnable*60 {
		return deny(ReasonTooCloseToStart)
	}
	if !alreadyScheduled && registrySize >= p.MaxNotifyingEvents {
		return deny(ReasonCapacityReached)
	}
	return allow()
}

// CanDisable is unconditional: disabling an existing schedule is always
// permitted.
func (p Policy) CanDisable() Decision { return allow() }
