package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "List events with active reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := refresh(cmd.Context()); err != nil {
			return err
		}

		summaries := store.Summaries()
		fmt.Printf("\n🔔 Active reminders: %d/%d\n", len(summaries), cfg.MaxNotifyingEvents)
		for _, s := range summaries {
			fmt.Printf("  • %s  starts %s, next reminder %s (%d pending)  (%s)\n",
				s.Title,
				s.StartsAt.Format("Mon Jan 2 15:04"),
				s.NextFire.Format("Mon Jan 2 15:04"),
				s.Reminders,
				s.EventID)
		}
		return nil
	},
}
