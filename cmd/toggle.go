package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"event-reminders/internal/schedule"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle <event-id>",
	Short: "Enable or disable reminders for an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := refresh(cmd.Context())
		if err != nil {
			return err
		}
		ev, err := findEvent(events, args[0])
		if err != nil {
			return err
		}

		enabled, sched, err := store.Toggle(ev, time.Now())
		var partial *schedule.PartialScheduleError
		if errors.As(err, &partial) {
			fmt.Printf("⚠️  Reminders partially enabled for %q:\n", ev.Title)
			for _, r := range sched.Reminders {
				fmt.Printf("   ✅ %s → %s\n", r.Lead.Label(), r.FireAt.Format("Mon Jan 2 15:04"))
			}
			for _, f := range partial.Failed {
				fmt.Printf("   ❌ %s: %v\n", f.Lead.Label(), f.Err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s", describeScheduleErr(err))
		}

		if !enabled {
			fmt.Printf("🔕 Reminders disabled for %q\n", ev.Title)
			return nil
		}
		fmt.Printf("🔔 Reminders enabled for %q:\n", ev.Title)
		for _, r := range sched.Reminders {
			fmt.Printf("   • %s → %s\n", r.Lead.Label(), r.FireAt.Format("Mon Jan 2 15:04"))
		}
		return nil
	},
}
