package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"event-reminders/internal/temporal"
	"event-reminders/pkg/models"
)

var eventsAll bool

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List events from the feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := refresh(cmd.Context())
		if err != nil {
			return err
		}

		now := time.Now()
		shown := make([]models.Event, 0, len(events))
		for _, ev := range events {
			if !eventsAll && (!ev.IsActive() || temporal.IsPast(ev, now)) {
				continue
			}
			shown = append(shown, ev)
		}
		sort.Slice(shown, func(i, j int) bool {
			return temporal.MinutesUntil(shown[i], now) < temporal.MinutesUntil(shown[j], now)
		})

		fmt.Printf("\n📅 Events: %d\n", len(shown))
		for _, ev := range shown {
			marker := "  "
			if store.IsNotifying(ev.ID) {
				marker = "🔔"
			}
			extra := ""
			if temporal.IsClosing(ev, now) {
				extra = "  (closing soon)"
			} else if !ev.IsActive() {
				extra = fmt.Sprintf("  [%s]", ev.Status)
			} else if marker == "  " {
				// Advisory check so the listing mirrors what toggle would say.
				if dec := store.Rules().CanEnable(ev, now, store.Size(), false); !dec.Allowed {
					extra = fmt.Sprintf("  (reminders unavailable: %s)", dec.Reason)
				}
			}
			fmt.Printf("  %s %s  %s %s  %s%s  (%s)\n",
				marker, ev.Title, ev.Date, ev.Time,
				untilText(temporal.MinutesUntil(ev, now)), extra, ev.ID)
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().BoolVarP(&eventsAll, "all", "a", false, "Include past, finished and cancelled events")
}
