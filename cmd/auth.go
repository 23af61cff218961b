package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"event-reminders/internal/config"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Store the feed API token",
	Long: `Store the API token used to read the event feed.

The token is resolved in this order:
  1. EVENT_REMINDERS_TOKEN environment variable
  2. Interactive prompt (hidden input when stdin is a terminal)

On success it is saved to:
  ~/.config/event-reminders/credentials

in export KEY=value format, and every command reads it from there.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := os.Getenv(config.TokenEnv)
		if token == "" {
			var err error
			token, err = promptToken()
			if err != nil {
				return err
			}
		}
		if token == "" {
			return fmt.Errorf("no token provided")
		}

		// Validate against the feed before saving.
		feedClient.SetToken(token)
		events, err := feedClient.Snapshot(cmd.Context())
		if err != nil {
			return fmt.Errorf("token rejected by %s: %w", cfg.FeedURL, err)
		}

		if err := saveCredentials(token); err != nil {
			return err
		}
		fmt.Printf("✅ Authenticated against %s (%d events visible)\n", cfg.FeedURL, len(events))
		fmt.Printf("   Token saved to %s\n", config.CredentialsFile)
		return nil
	},
}

func promptToken() (string, error) {
	fmt.Fprint(os.Stderr, "Feed API token: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func saveCredentials(token string) error {
	if err := os.MkdirAll(filepath.Dir(config.CredentialsFile), 0700); err != nil {
		return err
	}
	content := fmt.Sprintf("export %s=%s\n", config.TokenEnv, token)
	return os.WriteFile(config.CredentialsFile, []byte(content), 0600)
}
