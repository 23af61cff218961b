package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"event-reminders/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the reminder daemon: follow the feed and fire due reminders",
	Long: `Run in the foreground until interrupted:

  - polls the event feed and reconciles schedules on every change
  - runs a periodic full reconciliation pass (reconcile_cron in the config)
  - delivers due reminders via notify_command every minute`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		every := time.Duration(cfg.PollSeconds) * time.Second
		unsubscribe := feedClient.Subscribe(ctx, every, reconciler.Handle)
		defer unsubscribe()

		c := cron.New()
		if _, err := c.AddFunc(cfg.ReconcileCron, func() {
			events, err := feedClient.Snapshot(ctx)
			reconciler.Handle(events, err)
		}); err != nil {
			return fmt.Errorf("bad reconcile_cron %q: %w", cfg.ReconcileCron, err)
		}
		c.Start()
		defer c.Stop()

		go dispatchLoop(ctx)

		fmt.Printf("👀 Watching %s (poll every %s, reconcile %q)\n", cfg.FeedURL, every, cfg.ReconcileCron)
		<-ctx.Done()
		fmt.Println("bye")
		return nil
	},
}

// dispatchLoop delivers due notifications once a minute.
func dispatchLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dispatchDue(now)
		}
	}
}

func dispatchDue(now time.Time) {
	due, err := queue.Due(now)
	if err != nil {
		logger.Warnf("pending queue: %v", err)
		return
	}
	for _, e := range due {
		logger.Infof("Firing reminder for %q", e.Payload.Title)
		cmd := exec.Command(cfg.NotifyCommand, e.Payload.Title, e.Payload.Body)
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			logger.Warnf("%s failed for %q: %v", cfg.NotifyCommand, e.Payload.Title, err)
		}
	}
}
