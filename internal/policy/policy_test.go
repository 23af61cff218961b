package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"event-reminders/pkg/models"
)

var (
	rules = Policy{MinHoursToEnable: 3, MaxNotifyingEvents: 10}
	now   = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
)

func activeEvent() models.Event {
	return models.Event{ID: "ev", Title: "Test", Date: "2026-05-06", Time: "10:00", Status: models.StatusActive}
}

func TestCanEnableRuleOrder(t *testing.T) {
	tests := []struct {
		name             string
		mutate           func(*models.Event)
		now              time.Time
		registrySize     int
		alreadyScheduled bool
		wantAllowed      bool
		wantReason       Reason
	}{
		{
			name:        "eligible",
			now:         now,
			wantAllowed: true,
		},
		{
			name:       "finished event",
			mutate:     func(ev *models.Event) { ev.Status = models.StatusFinished },
			now:        now,
			wantReason: ReasonEventNotActive,
		},
		{
			name: "cancelled event wins over capacity",
			mutate: func(ev *models.Event) {
				ev.Status = models.StatusCancelled
			},
			now:          now,
			registrySize: 10,
			wantReason:   ReasonEventNotActive,
		},
		{
			name:       "one hour to start",
			now:        time.Date(2026, 5, 6, 9, 0, 0, 0, time.UTC),
			wantReason: ReasonTooCloseToStart,
		},
		{
			name:       "exactly at the floor",
			now:        time.Date(2026, 5, 6, 7, 0, 0, 0, time.UTC),
			wantReason: ReasonTooCloseToStart,
		},
		{
			name:        "one minute past the floor",
			now:         time.Date(2026, 5, 6, 6, 59, 0, 0, time.UTC),
			wantAllowed: true,
		},
		{
			name:         "registry full",
			now:          now,
			registrySize: 10,
			wantReason:   ReasonCapacityReached,
		},
		{
			name:             "registry full but already scheduled",
			now:              now,
			registrySize:     10,
			alreadyScheduled: true,
			wantAllowed:      true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := activeEvent()
			if tt.mutate != nil {
				tt.mutate(&ev)
			}
			dec := rules.CanEnable(ev, tt.now, tt.registrySize, tt.alreadyScheduled)
			assert.Equal(t, tt.wantAllowed, dec.Allowed)
			if !tt.wantAllowed {
				assert.Equal(t, tt.wantReason, dec.Reason)
			}
		})
	}
}

func TestCanDisableIsUnconditional(t *testing.T) {
	assert.True(t, rules.CanDisable().Allowed)
}

func TestReasonMessages(t *testing.T) {
	for _, r := range []Reason{ReasonEventNotActive, ReasonTooCloseToStart, ReasonCapacityReached, ReasonNothingToSchedule} {
		assert.NotEmpty(t, r.Message())
		assert.NotEqual(t, string(r), r.Message())
	}
}
