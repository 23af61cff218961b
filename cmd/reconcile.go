package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation pass against the feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := feedClient.Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		printReport(reconciler.Run(events, time.Now()))
		return nil
	},
}
