package schedule

import (
	"errors"
	"fmt"

	"event-reminders/internal/policy"
	"event-reminders/pkg/models"
)

// ErrNotFound is returned when an event has no active schedule.
var ErrNotFound = errors.New("no reminder schedule for this event")

// EligibilityError is a refused enable: the event failed a policy rule, or
// every configured reminder time had already elapsed.
type EligibilityError struct {
	Reason policy.Reason
}

func (e *EligibilityError) Error() string { return e.Reason.Message() }

// PersistenceError is a failed read or write of the durable store. The
// in-memory state is never mutated when one is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persist %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// PlatformError is a failed notification-facility call that left the
// operation without effect (no new handles live, record unchanged).
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string { return fmt.Sprintf("notification facility %s: %v", e.Op, e.Err) }
func (e *PlatformError) Unwrap() error { return e.Err }

// FailedLead records one lead-time category that could not be scheduled.
type FailedLead struct {
	Lead models.LeadTime
	Err  error
}

// PartialScheduleError reports an enable or replace in which some lead-time
// categories were scheduled and others failed. The returned Schedule lists
// exactly what succeeded; the caller decides whether to keep it.
type PartialScheduleError struct {
	Failed []FailedLead
}

func (e *PartialScheduleError) Error() string {
	return fmt.Sprintf("%d reminder time(s) could not be scheduled", len(e.Failed))
}
