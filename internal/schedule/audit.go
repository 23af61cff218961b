package schedule

import (
	"event-reminders/internal/logger"
)

// AuditReport summarizes what the startup audit corrected.
type AuditReport struct {
	// DroppedReminders is the count of cached reminders whose handle was no
	// longer pending at the facility (already fired, or shed by an OS limit).
	DroppedReminders int
	// RemovedSchedules is the count of schedules removed because none of
	// their reminders were still pending.
	RemovedSchedules int
	// CancelledOrphans is the count of pending handles no schedule claimed.
	CancelledOrphans int
}

// Audit cross-checks cached handles against what the facility actually has
// pending and re-derives the store's bookkeeping to match: reminders whose
// handle is gone are dropped, schedules left empty are removed, and pending
// handles no schedule claims are cancelled. Run at startup, before the
// first reconciliation pass.
func (s *Store) Audit() (AuditReport, error) {
	var report AuditReport

	pending, err := s.facility.ListPending()
	if err != nil {
		return report, &PlatformError{Op: "list pending", Err: err}
	}
	unclaimed := make(map[string]bool, len(pending))
	for _, h := range pending {
		unclaimed[h] = true
	}

	s.mu.Lock()
	staged := s.data.clone()
	changed := false
	for id, sched := range staged.Schedules {
		kept := make([]Reminder, 0, len(sched.Reminders))
		for _, r := range sched.Reminders {
			if unclaimed[r.Handle] {
				delete(unclaimed, r.Handle)
				kept = append(kept, r)
				continue
			}
			report.DroppedReminders++
		}
		if len(kept) == len(sched.Reminders) {
			continue
		}
		changed = true
		if len(kept) == 0 {
			delete(staged.Schedules, id)
			report.RemovedSchedules++
			continue
		}
		clone := *sched
		clone.Reminders = kept
		staged.Schedules[id] = &clone
	}
	if changed {
		if err := s.save(staged); err != nil {
			s.mu.Unlock()
			return report, &PersistenceError{Op: "audit", Err: err}
		}
		s.data = staged
	}
	s.mu.Unlock()

	for handle := range unclaimed {
		if err := s.facility.Cancel(handle); err != nil {
			logger.Warnf("audit: cancel orphan handle %s: %v", handle, err)
			continue
		}
		report.CancelledOrphans++
	}

	if report.DroppedReminders+report.RemovedSchedules+report.CancelledOrphans > 0 {
		logger.Infof("Startup audit: dropped %d reminder(s), removed %d schedule(s), cancelled %d orphan(s)",
			report.DroppedReminders, report.RemovedSchedules, report.CancelledOrphans)
	}
	return report, nil
}
