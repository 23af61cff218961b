package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-reminders/internal/reconcile"
	"event-reminders/internal/schedule"
	"event-reminders/pkg/models"
)

// refresh fetches the current feed snapshot and reconciles the store
// against it before a command acts, so no command ever operates on stale
// reminder state.
func refresh(ctx context.Context) ([]models.Event, error) {
	events, err := feedClient.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	reconciler.Run(events, time.Now())
	return events, nil
}

// findEvent resolves an event by exact ID first, then by unique ID prefix.
func findEvent(events []models.Event, id string) (models.Event, error) {
	for _, ev := range events {
		if ev.ID == id {
			return ev, nil
		}
	}
	var match models.Event
	found := 0
	for _, ev := range events {
		if len(ev.ID) >= len(id) && ev.ID[:len(id)] == id {
			match = ev
			found++
		}
	}
	switch found {
	case 1:
		return match, nil
	case 0:
		return models.Event{}, fmt.Errorf("event %q not found in feed", id)
	}
	return models.Event{}, fmt.Errorf("event ID %q is ambiguous (%d matches)", id, found)
}

// describeScheduleErr turns store errors into user-facing messages.
func describeScheduleErr(err error) string {
	var elig *schedule.EligibilityError
	if errors.As(err, &elig) {
		return elig.Reason.Message()
	}
	return err.Error()
}

// untilText renders the time to an event start, e.g. "in 2d 3h" or "in 45m".
func untilText(minutes int) string {
	if minutes <= 0 {
		return "past"
	}
	d := minutes / (24 * 60)
	h := minutes % (24 * 60) / 60
	m := minutes % 60
	switch {
	case d > 0:
		return fmt.Sprintf("in %dd %dh", d, h)
	case h > 0:
		return fmt.Sprintf("in %dh %dm", h, m)
	}
	return fmt.Sprintf("in %dm", m)
}

// printReport prints a reconciliation report summary.
func printReport(r reconcile.Report) {
	fmt.Printf("✅ Reconciled: %d unchanged, %d rescheduled, %d removed\n",
		r.Unchanged, r.Replaced, r.Removed)
	for _, err := range r.Errors {
		fmt.Printf("   ⚠️  %v\n", err)
	}
}
