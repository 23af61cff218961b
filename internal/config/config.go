// Package config loads the event-reminders configuration file and the
// feed API credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"event-reminders/pkg/models"
)

// ConfigDir is the default config/data directory.
var ConfigDir = filepath.Join(os.Getenv("HOME"), ".config", "event-reminders")

// ConfigFile is the path to the YAML configuration file.
var ConfigFile = filepath.Join(ConfigDir, "config.yaml")

// CredentialsFile holds the feed API token in export KEY=value format.
var CredentialsFile = filepath.Join(ConfigDir, "credentials")

// TokenEnv is the environment variable consulted before CredentialsFile.
const TokenEnv = "EVENT_REMINDERS_TOKEN"

// DayLead configures one days-before lead-time category.
type DayLead struct {
	// Days is the whole number of calendar days before the event.
	Days int `yaml:"days"`
	// At is the time of day the reminder fires, "15:04".
	At string `yaml:"at"`
}

// Config is the top-level application configuration.
type Config struct {
	// FeedURL is the base URL of the event feed API.
	FeedURL string `yaml:"feed_url"`

	// PollSeconds is the feed polling interval for the watch daemon.
	PollSeconds int `yaml:"poll_seconds"`

	// ReconcileCron is a cron-style schedule (e.g. "*/5 * * * *") for the
	// watch daemon's periodic full reconciliation pass, on top of the
	// pass triggered by every feed change.
	ReconcileCron string `yaml:"reconcile_cron"`

	// DataDir holds schedules.json and pending.json. Defaults to ConfigDir.
	DataDir string `yaml:"data_dir"`

	// NotifyCommand delivers a due notification: invoked as
	// `<cmd> <title> <body>`.
	NotifyCommand string `yaml:"notify_command"`

	// MaxNotifyingEvents caps how many events may have active reminders.
	MaxNotifyingEvents int `yaml:"max_notifying_events"`

	// MinHoursToEnable is the eligibility floor: reminders cannot be
	// enabled for an event starting sooner than this.
	MinHoursToEnable int `yaml:"min_hours_to_enable"`

	// DaysBefore lists the days-before lead-time categories.
	DaysBefore []DayLead `yaml:"days_before"`

	// HoursBeforeFinal is the hours-before lead for the final reminder.
	HoursBeforeFinal int `yaml:"hours_before_final"`

	// Token is the feed API token, resolved from the environment or the
	// credentials file. Never written to config.yaml.
	Token string `yaml:"-"`
}

// Default returns the in-memory default configuration.
func Default() *Config {
	return &Config{
		FeedURL:            "http://localhost:8080",
		PollSeconds:        30,
		ReconcileCron:      "*/5 * * * *",
		DataDir:            ConfigDir,
		NotifyCommand:      "notify-send",
		MaxNotifyingEvents: 10,
		MinHoursToEnable:   3,
		DaysBefore:         []DayLead{{Days: 1, At: "08:00"}},
		HoursBeforeFinal:   2,
	}
}

// Load reads the config file at path (ConfigFile if empty). On first run the
// default config is written to disk with 0600 permissions and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigFile
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.save(path); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
		cfg.resolveToken()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.resolveToken()
	return cfg, nil
}

func (c *Config) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) validate() error {
	if c.MaxNotifyingEvents <= 0 {
		return fmt.Errorf("max_notifying_events must be positive, got %d", c.MaxNotifyingEvents)
	}
	if c.MinHoursToEnable < 0 {
		return fmt.Errorf("min_hours_to_enable must not be negative, got %d", c.MinHoursToEnable)
	}
	if c.HoursBeforeFinal <= 0 {
		return fmt.Errorf("hours_before_final must be positive, got %d", c.HoursBeforeFinal)
	}
	for _, d := range c.DaysBefore {
		if d.Days <= 0 {
			return fmt.Errorf("days_before entry must have positive days, got %d", d.Days)
		}
	}
	if c.PollSeconds <= 0 {
		c.PollSeconds = 30
	}
	if c.DataDir == "" {
		c.DataDir = ConfigDir
	}
	return nil
}

// resolveToken fills Token from the environment, falling back to the
// credentials file (export KEY=value format, as written by `auth`).
func (c *Config) resolveToken() {
	if tok := os.Getenv(TokenEnv); tok != "" {
		c.Token = tok
		return
	}
	vars, err := godotenv.Read(CredentialsFile)
	if err != nil {
		return
	}
	c.Token = vars[TokenEnv]
}

// LeadTimes returns the configured lead-time categories, days-before
// entries first, final hours-before lead last.
func (c *Config) LeadTimes() []models.LeadTime {
	leads := make([]models.LeadTime, 0, len(c.DaysBefore)+1)
	for _, d := range c.DaysBefore {
		leads = append(leads, models.DaysBefore(d.Days, d.At))
	}
	leads = append(leads, models.HoursBefore(c.HoursBeforeFinal))
	return leads
}

// SchedulesFile is the path of the durable schedule store.
func (c *Config) SchedulesFile() string {
	return filepath.Join(c.DataDir, "schedules.json")
}

// PendingFile is the path of the pending-notification queue.
func (c *Config) PendingFile() string {
	return filepath.Join(c.DataDir, "pending.json")
}
