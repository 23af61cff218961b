// Package cmd provides the CLI commands for event-reminders.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"event-reminders/internal/config"
	"event-reminders/internal/feed"
	"event-reminders/internal/logger"
	"event-reminders/internal/notify"
	"event-reminders/internal/policy"
	"event-reminders/internal/reconcile"
	"event-reminders/internal/schedule"
)

// verbosity is incremented once per -v flag: -v=1 (info), -vv=2 (debug).
var verbosity int

// cfgPath overrides the default config file location.
var cfgPath string

// shared per-invocation state (set in PersistentPreRunE)
var (
	cfg        *config.Config
	queue      *notify.Queue
	store      *schedule.Store
	feedClient *feed.Client
	reconciler *reconcile.Reconciler
)

// RootCmd is the root cobra command.
var RootCmd = &cobra.Command{
	Use:   "event-reminders",
	Short: "Local reminder scheduler for the church event feed",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetLevel(verbosity)

		if cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		queue = notify.NewQueue(cfg.PendingFile())
		rules := policy.Policy{
			MinHoursToEnable:   cfg.MinHoursToEnable,
			MaxNotifyingEvents: cfg.MaxNotifyingEvents,
		}
		store, err = schedule.Open(cfg.SchedulesFile(), queue, rules, cfg.LeadTimes())
		if err != nil {
			return fmt.Errorf("open schedule store: %w", err)
		}
		// Before anything reconciles, square the cached handles with what
		// is actually still pending.
		if _, err := store.Audit(); err != nil {
			logger.Warnf("startup audit failed: %v", err)
		}

		feedClient = feed.NewClient(cfg.FeedURL, cfg.Token)
		reconciler = reconcile.New(store, nil)
		return nil
	},
}

func init() {
	// CountP increments verbosity each time -v is passed: -v=1, -vv=2
	RootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Verbosity: -v info, -vv debug")
	RootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default ~/.config/event-reminders/config.yaml)")

	RootCmd.AddCommand(
		authCmd,
		eventsCmd,
		toggleCmd,
		remindersCmd,
		reconcileCmd,
		watchCmd,
	)
}
