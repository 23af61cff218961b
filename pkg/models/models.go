// Package models contains data types shared across event-reminders.
package models

import (
	"fmt"
	"time"
)

// EventStatus is the lifecycle status of an event in the feed.
type EventStatus string

const (
	StatusActive    EventStatus = "active"
	StatusFinished  EventStatus = "finished"
	StatusCancelled EventStatus = "cancelled"
)

// Event is a single event from the feed. Events are owned upstream and
// read-only here; Date and Time are kept as the raw feed strings so that
// malformed values surface to the caller instead of failing at decode time.
type Event struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Date   string      `json:"date"` // calendar date, "2006-01-02"
	Time   string      `json:"time"` // local time of day, "15:04"
	Status EventStatus `json:"status"`
}

// DateLayout and TimeLayout are the feed's wire formats for Event.Date
// and Event.Time.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// StartsAt combines Date and Time into the event's start instant in loc.
func (e Event) StartsAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	start, err := time.ParseInLocation(DateLayout+" "+TimeLayout, e.Date+" "+e.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("event %s: bad start %q %q: %w", e.ID, e.Date, e.Time, err)
	}
	return start, nil
}

// IsActive reports whether the event may still receive reminders.
func (e Event) IsActive() bool {
	return e.Status == StatusActive
}

// LeadKind distinguishes the two lead-time categories.
type LeadKind string

const (
	LeadDaysBefore  LeadKind = "days-before"
	LeadHoursBefore LeadKind = "hours-before"
)

// LeadTime is one configured lead-time category: either "N days before the
// event at a fixed time of day" or "N hours before the event start". The
// closed kind set keeps fire-instant computation exhaustive.
type LeadTime struct {
	Kind  LeadKind `json:"kind" yaml:"kind"`
	Days  int      `json:"days,omitempty" yaml:"days,omitempty"`
	At    string   `json:"at,omitempty" yaml:"at,omitempty"` // "15:04", days-before only
	Hours int      `json:"hours,omitempty" yaml:"hours,omitempty"`
}

// DaysBefore builds a days-before lead firing at the given time of day.
func DaysBefore(days int, at string) LeadTime {
	return LeadTime{Kind: LeadDaysBefore, Days: days, At: at}
}

// HoursBefore builds an hours-before lead.
func HoursBefore(hours int) LeadTime {
	return LeadTime{Kind: LeadHoursBefore, Hours: hours}
}

// FireAt computes the absolute instant this lead fires for an event starting
// at start. Days-before leads land on the local calendar day N days before
// the event, at the configured time of day.
func (l LeadTime) FireAt(start time.Time) (time.Time, error) {
	switch l.Kind {
	case LeadDaysBefore:
		at, err := time.Parse(TimeLayout, l.At)
		if err != nil {
			return time.Time{}, fmt.Errorf("lead %q: bad time of day %q: %w", l.Kind, l.At, err)
		}
		day := start.AddDate(0, 0, -l.Days)
		return time.Date(day.Year(), day.Month(), day.Day(), at.Hour(), at.Minute(), 0, 0, start.Location()), nil
	case LeadHoursBefore:
		return start.Add(-time.Duration(l.Hours) * time.Hour), nil
	}
	return time.Time{}, fmt.Errorf("unknown lead kind %q", l.Kind)
}

// Label returns a human-readable description of the lead, used in
// notification payloads and CLI output.
func (l LeadTime) Label() string {
	switch l.Kind {
	case LeadDaysBefore:
		if l.Days == 1 {
			return "1 day before"
		}
		return fmt.Sprintf("%d days before", l.Days)
	case LeadHoursBefore:
		if l.Hours == 1 {
			return "1 hour before"
		}
		return fmt.Sprintf("%d hours before", l.Hours)
	}
	return string(l.Kind)
}

// Key identifies the lead within a single event's reminder set, so a
// schedule never carries two reminders of the same category and magnitude.
func (l LeadTime) Key() string {
	switch l.Kind {
	case LeadDaysBefore:
		return fmt.Sprintf("d%d@%s", l.Days, l.At)
	case LeadHoursBefore:
		return fmt.Sprintf("h%d", l.Hours)
	}
	return string(l.Kind)
}
