// Package reconcile keeps the schedule store consistent with the live event
// feed. Every pass works from a full feed snapshot: schedules whose event is
// gone, past, or no longer active are removed, and schedules whose start
// instant drifted from the feed are rebuilt. A pass over an unchanged feed
// makes no mutations and no facility calls.
package reconcile

import (
	"time"

	"event-reminders/internal/logger"
	"event-reminders/internal/schedule"
	"event-reminders/internal/temporal"
	"event-reminders/pkg/models"
)

type action int

const (
	actionKeep action = iota
	actionReplace
	actionRemove
)

// Report summarizes one reconciliation pass.
type Report struct {
	Unchanged int
	Replaced  int
	Removed   int
	Errors    []error
}

// Clean reports whether the pass made no mutations and hit no errors.
func (r Report) Clean() bool {
	return r.Replaced == 0 && r.Removed == 0 && len(r.Errors) == 0
}

// Reconciler drives the schedule store from feed snapshots.
type Reconciler struct {
	store *schedule.Store
	clock func() time.Time
}

// New returns a Reconciler over the store. clock may be nil, defaulting to
// time.Now; tests inject a fixed clock.
func New(store *schedule.Store, clock func() time.Time) *Reconciler {
	if clock == nil {
		clock = time.Now
	}
	return &Reconciler{store: store, clock: clock}
}

// classify decides what to do with one tracked schedule given the event's
// current feed state.
func classify(sched *schedule.Schedule, ev models.Event, inFeed bool, now time.Time) action {
	switch {
	case !inFeed:
		return actionRemove
	case !ev.IsActive():
		return actionRemove
	case temporal.IsPast(ev, now):
		return actionRemove
	}
	start, err := ev.StartsAt(now.Location())
	if err != nil || !start.Equal(sched.StartsAt) {
		return actionReplace
	}
	return actionKeep
}

// Run executes one reconciliation pass against a full feed snapshot.
// Per-event failures are collected in the report; they never abort the rest
// of the pass.
func (r *Reconciler) Run(events []models.Event, now time.Time) Report {
	defer logger.Timer("reconcile")()

	byID := make(map[string]models.Event, len(events))
	for _, ev := range events {
		byID[ev.ID] = ev
	}

	var report Report
	for _, sched := range r.store.List() {
		ev, inFeed := byID[sched.EventID]
		switch classify(sched, ev, inFeed, now) {
		case actionRemove:
			logger.Debugf("reconcile: removing %q", sched.Title)
			if err := r.store.Disable(sched.EventID); err != nil {
				report.Errors = append(report.Errors, err)
				continue
			}
			report.Removed++
		case actionReplace:
			logger.Debugf("reconcile: rescheduling %q", sched.Title)
			newSched, err := r.store.Replace(ev, now)
			if err != nil {
				report.Errors = append(report.Errors, err)
				continue
			}
			if newSched == nil {
				// Nothing left to fire; the store dropped the record.
				report.Removed++
				continue
			}
			report.Replaced++
		default:
			report.Unchanged++
		}
	}

	if !report.Clean() {
		logger.Infof("Reconciled: %d unchanged, %d rescheduled, %d removed, %d error(s)",
			report.Unchanged, report.Replaced, report.Removed, len(report.Errors))
	}
	return report
}

// Handle is the feed subscription callback. A feed error leaves the store
// untouched (stale but consistent) and is retried on the next delivery.
func (r *Reconciler) Handle(events []models.Event, err error) {
	if err != nil {
		logger.Warnf("feed error, keeping current schedules: %v", err)
		return
	}
	r.Run(events, r.clock())
}
