package schedule

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-reminders/internal/notify"
	"event-reminders/internal/policy"
	"event-reminders/pkg/models"
)

// fakeFacility is an in-memory notification facility recording every call.
type fakeFacility struct {
	nextID        int
	pending       map[string]time.Time
	scheduleCalls int
	cancelCalls   int

	// failWhen, when set, makes Schedule fail for matching fire instants.
	failWhen func(fireAt time.Time) error
}

func newFakeFacility() *fakeFacility {
	return &fakeFacility{pending: make(map[string]time.Time)}
}

func (f *fakeFacility) Schedule(fireAt time.Time, p notify.Payload) (string, error) {
	f.scheduleCalls++
	if f.failWhen != nil {
		if err := f.failWhen(fireAt); err != nil {
			return "", err
		}
	}
	f.nextID++
	handle := fmt.Sprintf("h%d", f.nextID)
	f.pending[handle] = fireAt
	return handle, nil
}

func (f *fakeFacility) Cancel(handle string) error {
	f.cancelCalls++
	delete(f.pending, handle)
	return nil
}

func (f *fakeFacility) ListPending() ([]string, error) {
	handles := make([]string, 0, len(f.pending))
	for h := range f.pending {
		handles = append(handles, h)
	}
	return handles, nil
}

var testRules = policy.Policy{MinHoursToEnable: 3, MaxNotifyingEvents: 10}

func testLeads() []models.LeadTime {
	return []models.LeadTime{
		models.DaysBefore(1, "08:00"),
		models.HoursBefore(2),
	}
}

func newTestStore(t *testing.T, fac notify.Facility, rules policy.Policy, leads []models.LeadTime) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "schedules.json"), fac, rules, leads)
	require.NoError(t, err)
	return s
}

// testNow is day 0 at 12:00 UTC.
var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func eventIn5Days() models.Event {
	return models.Event{
		ID:     "ev-1",
		Title:  "Youth retreat",
		Date:   "2026-05-06",
		Time:   "10:00",
		Status: models.StatusActive,
	}
}

func TestEnableComputesReminderInstants(t *testing.T) {
	fac := newFakeFacility()
	s := newTestStore(t, fac, testRules, testLeads())

	sched, err := s.Enable(eventIn5Days(), testNow)
	require.NoError(t, err)
	require.Len(t, sched.Reminders, 2)

	dayBefore := time.Date(2026, 5, 5, 8, 0, 0, 0, time.UTC)
	finalHours := time.Date(2026, 5, 6, 8, 0, 0, 0, time.UTC)
	assert.True(t, sched.Reminders[0].FireAt.Equal(dayBefore))
	assert.True(t, sched.Reminders[1].FireAt.Equal(finalHours))
	for _, r := range sched.Reminders {
		assert.True(t, r.FireAt.After(testNow), "fire instant must be strictly after now")
		assert.NotEmpty(t, r.Handle)
	}
	assert.Equal(t, 1, s.Size())
}

func TestEnableIsIdempotent(t *testing.T) {
	fac := newFakeFacility()
	s := newTestStore(t, fac, testRules, testLeads())

	first, err := s.Enable(eventIn5Days(), testNow)
	require.NoError(t, err)
	callsAfterFirst := fac.scheduleCalls

	second, err := s.Enable(eventIn5Days(), testNow)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, fac.scheduleCalls, "second enable must not touch the facility")
	assert.Equal(t, 1, s.Size())
	assert.Len(t, fac.pending, 2, "exactly one live handle set")
}

func TestEnableTooCloseToStart(t *testing.T) {
	fac := newFakeFacility()
	s := newTestStore(t, fac, testRules, testLeads())

	// One hour before start, floor is three hours.
	now := time.Date(2026, 5, 6, 9, 0, 0, 0, time.UTC)
	_, err := s.Enable(eventIn5Days(), now)

	var elig *EligibilityError
	require.ErrorAs(t, err, &elig)
	assert.Equal(t, policy.ReasonTooCloseToStart, elig.Reason)
	assert.Zero(t, fac.scheduleCalls)
	assert.Zero(t, s.Size())
}

func TestEnableInactiveEvent(t *testing.T) {
	fac := newFakeFacility()
	s := newTestStore(t, fac, testRules, testLeads())

	ev := eventIn5Days()
	ev.Status = models.StatusCancelled
	_, err := s.Enable(ev, testNow)

	var elig *EligibilityError
	require.ErrorAs(t, err, &elig)
	assert.Equal(t, policy.ReasonEventNotActive, elig.Reason)
}

func TestCapacityBound(t *testing.T) {
	fac := newFakeFacility()
	rules := policy.Policy{MinHoursToEnable: 3, MaxNotifyingEvents: 2}
	s := newTestStore(t, fac, rules, testLeads())

	for i := 0; i < 2; i++ {
		ev := eventIn5Days()
		ev.ID = fmt.Sprintf("ev-%d", i)
		_, err := s.Enable(ev, testNow)
		require.NoError(t, err)
	}

	extra := eventIn5Days()
	extra.ID = "ev-extra"
	_, err := s.Enable(extra, testNow)
	var elig *EligibilityError
	require.ErrorAs(t, err, &elig)
	assert.Equal(t, policy.ReasonCapacityReached, elig.Reason)
	assert.Equal(t, 2, s.Size())

	// Disabling is never blocked by capacity, and frees a slot.
	require.NoError(t, s.Disable("ev-0"))
	_, err = s.Enable(extra, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Size())
}

func TestEnableNothingToSchedule(t *testing.T) {
	fac := newFakeFacility()
	// Only a days-before lead: for an event later today its fire instant
	// has already elapsed even though the event itself is still eligible.
	leads := []models.LeadTime{models.DaysBefore(1, "08:00")}
	s := newTestStore(t, fac, testRules, leads)

	ev := models.Event{ID: "ev-today", Title: "Evening prayer", Date: "2026-05-01", Time: "17:00", Status: models.StatusActive}
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.Enable(ev, now)
	var elig *EligibilityError
	require.ErrorAs(t, err, &elig)
	assert.Equal(t, policy.ReasonNothingToSchedule, elig.Reason)
	assert.Zero(t, s.Size())
	assert.Zero(t, fac.scheduleCalls)
}

func TestDisableRemovesScheduleAndHandles(t *testing.T) {
	fac := newFakeFacility()
	s := newTestStore(t, fac, testRules, testLeads())

	ev := eventIn5Days()
	_, err := s.Enable(ev, testNow)
	require.NoError(t, err)

	require.NoError(t, s.Disable(ev.ID))
	assert.Nil(t, s.Get(ev.ID))
	assert.Empty(t, fac.pending, "no live handle may remain after disable")

	assert.ErrorIs(t, s.Disable(ev.ID), ErrNotFound)
}

func TestPartialScheduleRecordsOnlySuccesses(t *testing.T) {
	fac := newFakeFacility()
	finalHours := time.Date(2026, 5, 6, 8, 0, 0, 0, time.UTC)
	fac.failWhen = func(fireAt time.Time) error {
		if fireAt.Equal(finalHours) {
			return errors.New("quota exceeded")
		}
		return nil
	}
	s := newTestStore(t, fac, testRules, testLeads())

	sched, err := s.Enable(eventIn5Days(), testNow)
	var partial *PartialScheduleError
	require.ErrorAs(t, err, &partial)
	require.NotNil(t, sched)
	assert.Len(t, sched.Reminders, 1)
	assert.Len(t, partial.Failed, 1)
	assert.Equal(t, models.HoursBefore(2), partial.Failed[0].Lead)

	// The persisted record matches what actually succeeded.
	assert.Len(t, s.Get("ev-1").Reminders, 1)
}

func TestAllPlatformCallsFailing(t *testing.T) {
	fac := newFakeFacility()
	fac.failWhen = func(time.Time) error { return errors.New("permission revoked") }
	s := newTestStore(t, fac, testRules, testLeads())

	_, err := s.Enable(eventIn5Days(), testNow)
	var platform *PlatformError
	require.ErrorAs(t, err, &platform)
	assert.Zero(t, s.Size())
}

func TestReplaceCancelsOldHandlesFirst(t *testing.T) {
	fac := newFakeFacility()
	s := newTestStore(t, fac, testRules, testLeads())

	ev := eventIn5Days()
	old, err := s.Enable(ev, testNow)
	require.NoError(t, err)
	oldHandles := map[string]bool{}
	for _, r := range old.Reminders {
		oldHandles[r.Handle] = true
	}

	moved := ev
	moved.Date = "2026-05-11"
	sched, err := s.Replace(moved, testNow)
	require.NoError(t, err)
	require.Len(t, sched.Reminders, 2)

	newStart := time.Date(2026, 5, 11, 10, 0, 0, 0, time.UTC)
	assert.True(t, sched.StartsAt.Equal(newStart))
	assert.True(t, sched.Reminders[0].FireAt.Equal(time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)))
	assert.True(t, sched.Reminders[1].FireAt.Equal(newStart.Add(-2*time.Hour)))

	for h := range fac.pending {
		assert.False(t, oldHandles[h], "old handle %s must not remain live", h)
	}
	assert.Len(t, fac.pending, 2)
}

func TestReplaceWithNoRemainingInstantsDropsRecord(t *testing.T) {
	fac := newFakeFacility()
	s := newTestStore(t, fac, testRules, testLeads())

	ev := eventIn5Days()
	_, err := s.Enable(ev, testNow)
	require.NoError(t, err)

	// Move the event to within the hour: every lead window has elapsed.
	moved := ev
	moved.Date = "2026-05-01"
	moved.Time = "12:30"
	sched, err := s.Replace(moved, testNow)
	require.NoError(t, err)
	assert.Nil(t, sched)
	assert.Nil(t, s.Get(ev.ID))
	assert.Empty(t, fac.pending)
}

func TestToggleFlipsState(t *testing.T) {
	fac := newFakeFacility()
	s := newTestStore(t, fac, testRules, testLeads())
	ev := eventIn5Days()

	enabled, sched, err := s.Toggle(ev, testNow)
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.NotNil(t, sched)
	assert.True(t, s.IsNotifying(ev.ID))

	enabled, _, err = s.Toggle(ev, testNow)
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.False(t, s.IsNotifying(ev.ID))
}

func TestStoreSurvivesRestart(t *testing.T) {
	fac := newFakeFacility()
	path := filepath.Join(t.TempDir(), "schedules.json")
	s, err := Open(path, fac, testRules, testLeads())
	require.NoError(t, err)

	_, err = s.Enable(eventIn5Days(), testNow)
	require.NoError(t, err)

	reopened, err := Open(path, fac, testRules, testLeads())
	require.NoError(t, err)
	require.NotNil(t, reopened.Get("ev-1"))
	assert.Len(t, reopened.Get("ev-1").Reminders, 2)

	// Handles still pending: the audit changes nothing.
	report, err := reopened.Audit()
	require.NoError(t, err)
	assert.Zero(t, report.DroppedReminders)
	assert.Zero(t, report.RemovedSchedules)
	assert.Zero(t, report.CancelledOrphans)
}

func TestAuditDropsFiredRemindersAndOrphans(t *testing.T) {
	fac := newFakeFacility()
	s := newTestStore(t, fac, testRules, testLeads())

	sched, err := s.Enable(eventIn5Days(), testNow)
	require.NoError(t, err)

	// Simulate the first reminder having fired while we were not running,
	// and an orphan handle the store knows nothing about.
	delete(fac.pending, sched.Reminders[0].Handle)
	fac.pending["orphan"] = testNow.Add(time.Hour)

	report, err := s.Audit()
	require.NoError(t, err)
	assert.Equal(t, 1, report.DroppedReminders)
	assert.Equal(t, 1, report.CancelledOrphans)
	assert.Zero(t, report.RemovedSchedules)

	require.NotNil(t, s.Get("ev-1"))
	assert.Len(t, s.Get("ev-1").Reminders, 1)
	assert.NotContains(t, fac.pending, "orphan")

	// Lose the remaining handle too: the whole schedule goes.
	delete(fac.pending, sched.Reminders[1].Handle)
	report, err = s.Audit()
	require.NoError(t, err)
	assert.Equal(t, 1, report.RemovedSchedules)
	assert.Nil(t, s.Get("ev-1"))
}
