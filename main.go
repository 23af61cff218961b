// event-reminders keeps local reminders in step with the church event feed.
package main

import (
	"fmt"
	"os"

	"event-reminders/cmd"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
