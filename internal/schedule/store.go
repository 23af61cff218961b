// Package schedule owns the durable record of which events have active
// reminders. The store is the source of truth: the notification facility is
// driven to match it, and cached handles are never trusted without the
// startup audit.
package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"event-reminders/internal/logger"
	"event-reminders/internal/notify"
	"event-reminders/internal/policy"
	"event-reminders/pkg/models"
)

// Reminder is one scheduled reminder instant for an event.
type Reminder struct {
	Lead   models.LeadTime `json:"lead"`
	FireAt time.Time       `json:"fire_at"`
	Handle string          `json:"handle"`
}

// Schedule is the reminder record for a single event. The title and start
// instant are snapshots of the event at (re)schedule time; reconciliation
// compares them against the live feed.
type Schedule struct {
	EventID   string     `json:"event_id"`
	Title     string     `json:"title"`
	StartsAt  time.Time  `json:"starts_at"`
	Reminders []Reminder `json:"reminders"`
	CreatedAt time.Time  `json:"created_at"`
}

// NextFire returns the earliest reminder instant, or the zero time when the
// schedule has no reminders.
func (s *Schedule) NextFire() time.Time {
	var next time.Time
	for _, r := range s.Reminders {
		if next.IsZero() || r.FireAt.Before(next) {
			next = r.FireAt
		}
	}
	return next
}

// Summary is the per-event view for the reminder management screen.
type Summary struct {
	EventID   string    `json:"event_id"`
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	NextFire  time.Time `json:"next_fire"`
	Reminders int       `json:"reminders"`
}

type storeFile struct {
	Schedules map[string]*Schedule `json:"schedules"`
	UpdatedAt string               `json:"updated_at,omitempty"`
}

func (f *storeFile) clone() *storeFile {
	c := &storeFile{Schedules: make(map[string]*Schedule, len(f.Schedules))}
	for id, s := range f.Schedules {
		c.Schedules[id] = s
	}
	return c
}

// Store is the local schedule store. All state lives in a single JSON file;
// every mutation is written to disk before the in-memory copy changes, so
// memory and disk cannot diverge on a failed write.
type Store struct {
	path     string
	facility notify.Facility
	rules    policy.Policy
	leads    []models.LeadTime

	mu    sync.Mutex // guards data and locks
	data  *storeFile
	locks map[string]*sync.Mutex // per-event serialization
}

// Open loads the store at path, creating an empty one if the file does not
// exist yet. Schedules are reloaded before any reconciliation runs, so a
// restart never drops active reminders.
func Open(path string, facility notify.Facility, rules policy.Policy, leads []models.LeadTime) (*Store, error) {
	s := &Store{
		path:     path,
		facility: facility,
		rules:    rules,
		leads:    leads,
		data:     &storeFile{Schedules: make(map[string]*Schedule)},
		locks:    make(map[string]*sync.Mutex),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	var f storeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	if f.Schedules == nil {
		f.Schedules = make(map[string]*Schedule)
	}
	s.data = &f
	logger.Debugf("store: loaded %d schedule(s) from %s", len(f.Schedules), path)
	return s, nil
}

// eventLock returns the mutex serializing operations for one event ID, so
// an enable and a disable for the same event can never interleave.
func (s *Store) eventLock(eventID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[eventID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[eventID] = l
	}
	return l
}

func (s *Store) save(f *storeFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	f.UpdatedAt = time.Now().Format(time.RFC3339)
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Size returns the number of events with an active schedule.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.Schedules)
}

// Get returns the schedule for an event, or nil if none exists.
func (s *Store) Get(eventID string) *Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Schedules[eventID]
}

// IsNotifying reports whether the event has an active schedule.
func (s *Store) IsNotifying(eventID string) bool {
	return s.Get(eventID) != nil
}

// List returns all schedules ordered by event start instant.
func (s *Store) List() []*Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Schedule, 0, len(s.data.Schedules))
	for _, sched := range s.data.Schedules {
		out = append(out, sched)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out
}

// Summaries returns the reminder-management view, ordered by start instant.
func (s *Store) Summaries() []Summary {
	scheds := s.List()
	out := make([]Summary, 0, len(scheds))
	for _, sched := range scheds {
		out = append(out, Summary{
			EventID:   sched.EventID,
			Title:     sched.Title,
			StartsAt:  sched.StartsAt,
			NextFire:  sched.NextFire(),
			Reminders: len(sched.Reminders),
		})
	}
	return out
}

// Rules exposes the eligibility policy backing this store, for UI checks.
func (s *Store) Rules() policy.Policy { return s.rules }

func payload(ev models.Event, start time.Time, lead models.LeadTime) notify.Payload {
	return notify.Payload{
		EventID: ev.ID,
		Title:   ev.Title,
		Body:    fmt.Sprintf("%s starts %s (%s)", ev.Title, start.Format("Mon Jan 2 15:04"), lead.Label()),
	}
}

// candidate is a computed fire instant not yet registered with the facility.
type candidate struct {
	lead   models.LeadTime
	fireAt time.Time
}

// computeCandidates derives the fire instants for an event starting at
// start, dropping any instant that is not strictly after now.
func (s *Store) computeCandidates(start, now time.Time) (cands []candidate, failed []FailedLead) {
	for _, lead := range s.leads {
		fireAt, err := lead.FireAt(start)
		if err != nil {
			failed = append(failed, FailedLead{Lead: lead, Err: err})
			continue
		}
		if !fireAt.After(now) {
			logger.Debugf("store: dropping elapsed %s reminder (%s)", lead.Label(), fireAt.Format(time.RFC3339))
			continue
		}
		cands = append(cands, candidate{lead: lead, fireAt: fireAt})
	}
	return cands, failed
}

// registerCandidates drives the facility for each candidate and returns the
// reminders that actually got a handle. Failures are recorded, never
// guessed at: the store only ever persists what succeeded.
func (s *Store) registerCandidates(ev models.Event, start time.Time, cands []candidate) (rems []Reminder, failed []FailedLead) {
	for _, c := range cands {
		handle, err := s.facility.Schedule(c.fireAt, payload(ev, start, c.lead))
		if err != nil {
			failed = append(failed, FailedLead{Lead: c.lead, Err: err})
			continue
		}
		rems = append(rems, Reminder{Lead: c.lead, FireAt: c.fireAt, Handle: handle})
	}
	return rems, failed
}

// cancelReminders cancels every handle, continuing past individual
// failures, and returns the first error seen.
func (s *Store) cancelReminders(rems []Reminder) error {
	var first error
	for _, r := range rems {
		if err := s.facility.Cancel(r.Handle); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Enable creates the reminder schedule for an event. It re-checks the
// eligibility policy against the live registry size, computes the fire
// instants, registers them with the facility, and persists the record.
// Calling Enable twice without a Disable in between is a no-op returning
// the existing schedule.
func (s *Store) Enable(ev models.Event, now time.Time) (*Schedule, error) {
	lock := s.eventLock(ev.ID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	if existing := s.data.Schedules[ev.ID]; existing != nil {
		s.mu.Unlock()
		logger.Debugf("store: enable %s: already scheduled", ev.ID)
		return existing, nil
	}
	size := len(s.data.Schedules)
	s.mu.Unlock()

	if dec := s.rules.CanEnable(ev, now, size, false); !dec.Allowed {
		return nil, &EligibilityError{Reason: dec.Reason}
	}

	start, err := ev.StartsAt(now.Location())
	if err != nil {
		return nil, &EligibilityError{Reason: policy.ReasonNothingToSchedule}
	}

	cands, failed := s.computeCandidates(start, now)
	if len(cands) == 0 {
		return nil, &EligibilityError{Reason: policy.ReasonNothingToSchedule}
	}

	rems, regFailed := s.registerCandidates(ev, start, cands)
	failed = append(failed, regFailed...)
	if len(rems) == 0 {
		return nil, &PlatformError{Op: "schedule", Err: regFailed[0].Err}
	}

	sched := &Schedule{
		EventID:   ev.ID,
		Title:     ev.Title,
		StartsAt:  start,
		Reminders: rems,
		CreatedAt: now,
	}

	s.mu.Lock()
	// Capacity is rechecked here so no interleaving can push the registry
	// past its bound between the policy check and the commit.
	if len(s.data.Schedules) >= s.rules.MaxNotifyingEvents {
		s.mu.Unlock()
		s.cancelReminders(rems)
		return nil, &EligibilityError{Reason: policy.ReasonCapacityReached}
	}
	staged := s.data.clone()
	staged.Schedules[ev.ID] = sched
	if err := s.save(staged); err != nil {
		s.mu.Unlock()
		s.cancelReminders(rems)
		return nil, &PersistenceError{Op: "enable", Err: err}
	}
	s.data = staged
	s.mu.Unlock()

	logger.Infof("Enabled reminders for %q (%d reminder(s))", ev.Title, len(rems))
	if len(failed) > 0 {
		return sched, &PartialScheduleError{Failed: failed}
	}
	return sched, nil
}

// Disable cancels all platform handles for the event and removes its
// schedule. Disabling is unconditional whenever a schedule exists.
func (s *Store) Disable(eventID string) error {
	lock := s.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	sched := s.data.Schedules[eventID]
	s.mu.Unlock()
	if sched == nil {
		return ErrNotFound
	}

	if err := s.cancelReminders(sched.Reminders); err != nil {
		// A handle may still be live; keep the record so the caller can retry.
		return &PlatformError{Op: "cancel", Err: err}
	}

	s.mu.Lock()
	staged := s.data.clone()
	delete(staged.Schedules, eventID)
	if err := s.save(staged); err != nil {
		s.mu.Unlock()
		return &PersistenceError{Op: "disable", Err: err}
	}
	s.data = staged
	s.mu.Unlock()

	logger.Infof("Disabled reminders for %q", sched.Title)
	return nil
}

// Replace regenerates an existing schedule after the event's data changed
// upstream. All old handles are cancelled before any new reminder is
// registered, so the two sets are never live at once; the record is
// replaced wholesale, never patched. When every recomputed fire instant has
// already elapsed the schedule is removed and (nil, nil) is returned.
func (s *Store) Replace(ev models.Event, now time.Time) (*Schedule, error) {
	lock := s.eventLock(ev.ID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	old := s.data.Schedules[ev.ID]
	s.mu.Unlock()
	if old == nil {
		return nil, ErrNotFound
	}

	if err := s.cancelReminders(old.Reminders); err != nil {
		return nil, &PlatformError{Op: "cancel", Err: err}
	}

	start, startErr := ev.StartsAt(now.Location())
	var cands []candidate
	var failed []FailedLead
	if startErr == nil {
		cands, failed = s.computeCandidates(start, now)
	}

	if len(cands) == 0 {
		// Nothing left to fire for the new start instant: drop the record.
		s.mu.Lock()
		staged := s.data.clone()
		delete(staged.Schedules, ev.ID)
		if err := s.save(staged); err != nil {
			s.mu.Unlock()
			return nil, &PersistenceError{Op: "replace", Err: err}
		}
		s.data = staged
		s.mu.Unlock()
		logger.Infof("Dropped reminders for %q: no future reminder times remain", ev.Title)
		return nil, nil
	}

	rems, regFailed := s.registerCandidates(ev, start, cands)
	failed = append(failed, regFailed...)
	if len(rems) == 0 {
		return nil, &PlatformError{Op: "schedule", Err: regFailed[0].Err}
	}

	sched := &Schedule{
		EventID:   ev.ID,
		Title:     ev.Title,
		StartsAt:  start,
		Reminders: rems,
		CreatedAt: old.CreatedAt,
	}

	s.mu.Lock()
	staged := s.data.clone()
	staged.Schedules[ev.ID] = sched
	if err := s.save(staged); err != nil {
		s.mu.Unlock()
		s.cancelReminders(rems)
		return nil, &PersistenceError{Op: "replace", Err: err}
	}
	s.data = staged
	s.mu.Unlock()

	logger.Infof("Rescheduled reminders for %q (%d reminder(s))", ev.Title, len(rems))
	if len(failed) > 0 {
		return sched, &PartialScheduleError{Failed: failed}
	}
	return sched, nil
}

// Toggle is the single enable-or-disable entry point backing the UI.
// It reports whether reminders are enabled after the call.
func (s *Store) Toggle(ev models.Event, now time.Time) (bool, *Schedule, error) {
	if s.IsNotifying(ev.ID) {
		return false, nil, s.Disable(ev.ID)
	}
	sched, err := s.Enable(ev, now)
	if err != nil {
		if _, ok := err.(*PartialScheduleError); ok {
			return true, sched, err
		}
		return false, nil, err
	}
	return true, sched, nil
}
