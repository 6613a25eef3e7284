// Package config loads service settings from a YAML file, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"carolinalumpers.com/clockin/clockin"
	"carolinalumpers.com/clockin/utils"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	LockScopeWorker = "worker"
	LockScopeGlobal = "global"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Clockin  ClockinConfig  `yaml:"clockin"`
	AppSheet AppSheetConfig `yaml:"appsheet"`
	Slack    SlackConfig    `yaml:"slack"`
	NATS     NATSConfig     `yaml:"nats"`
	Import   ImportConfig   `yaml:"import"`

	// SigningSecret is the base64 HMAC key for device tokens.
	SigningSecret string `yaml:"signingSecret"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	// Driver is mysql, postgres or sqlite.
	Driver string `yaml:"driver"`
	// DSN wins over Name. With only Name set the DSN is looked up in SSM.
	DSN            string `yaml:"dsn"`
	Name           string `yaml:"name"`
	LogLevel       string `yaml:"logLevel"`
	MaxConnections int    `yaml:"maxConnections"`
}

type ClockinConfig struct {
	Timezone             string `yaml:"timezone"`
	WorkStartHour        int    `yaml:"workStartHour"`
	WorkEndHour          int    `yaml:"workEndHour"`
	CooldownMinutes      int    `yaml:"cooldownMinutes"`
	SubmissionTTLSeconds int    `yaml:"submissionTtlSeconds"`
	LockTimeoutSeconds   int    `yaml:"lockTimeoutSeconds"`
	LockScope            string `yaml:"lockScope"`
	HistoryDays          int    `yaml:"historyDays"`
}

type AppSheetConfig struct {
	URL    string `yaml:"url"`
	AppID  string `yaml:"appId"`
	APIKey string `yaml:"apiKey"`
	Table  string `yaml:"table"`
}

func (c AppSheetConfig) Enabled() bool {
	return c.AppID != "" && c.APIKey != ""
}

type SlackConfig struct {
	BotToken       string `yaml:"botToken"`
	InfoChannelID  string `yaml:"infoChannel"`
	ErrorChannelID string `yaml:"errorChannel"`
}

func (c SlackConfig) Enabled() bool {
	return c.BotToken != ""
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type ImportConfig struct {
	Bucket string `yaml:"bucket"`
}

func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{Addr: ":8080"},
		Database: DatabaseConfig{
			Driver:         "mysql",
			LogLevel:       "warn",
			MaxConnections: 10,
		},
		Clockin: ClockinConfig{
			Timezone:             "America/New_York",
			WorkStartHour:        7,
			WorkEndHour:          24,
			CooldownMinutes:      20,
			SubmissionTTLSeconds: 120,
			LockTimeoutSeconds:   20,
			LockScope:            LockScopeWorker,
			HistoryDays:          clockin.DefaultHistoryDays,
		},
		AppSheet: AppSheetConfig{Table: "ClockIn"},
		NATS:     NATSConfig{Subject: "clockin.accepted"},
	}
}

// Load reads .env (if present), then the YAML file at path (if non-empty),
// then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv("CLOCKIN_CONFIG")
	}

	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}

	str("HTTP_ADDR", &c.HTTP.Addr)
	str("DB_DRIVER", &c.Database.Driver)
	str("DSN", &c.Database.DSN)
	str("DB_NAME", &c.Database.Name)
	str("DB_LOG_LEVEL", &c.Database.LogLevel)
	num("DB_MAX_CONNECTIONS", &c.Database.MaxConnections)
	str("CLOCKIN_SIGNING_SECRET", &c.SigningSecret)
	str("TIMEZONE", &c.Clockin.Timezone)
	num("WORK_START_HOUR", &c.Clockin.WorkStartHour)
	num("WORK_END_HOUR", &c.Clockin.WorkEndHour)
	num("COOLDOWN_MINUTES", &c.Clockin.CooldownMinutes)
	num("SUBMISSION_TTL_SECONDS", &c.Clockin.SubmissionTTLSeconds)
	num("LOCK_TIMEOUT_SECONDS", &c.Clockin.LockTimeoutSeconds)
	str("LOCK_SCOPE", &c.Clockin.LockScope)
	num("HISTORY_DAYS", &c.Clockin.HistoryDays)
	str("APPSHEET_URL", &c.AppSheet.URL)
	str("APPSHEET_APP_ID", &c.AppSheet.AppID)
	str("APPSHEET_API_KEY", &c.AppSheet.APIKey)
	str("APPSHEET_TABLE", &c.AppSheet.Table)
	str("SLACK_BOT_TOKEN", &c.Slack.BotToken)
	str("SLACK_INFO_CHANNEL", &c.Slack.InfoChannelID)
	str("SLACK_ERROR_CHANNEL", &c.Slack.ErrorChannelID)
	str("NATS_URL", &c.NATS.URL)
	str("NATS_SUBJECT", &c.NATS.Subject)
	str("IMPORT_BUCKET", &c.Import.Bucket)

	return errors.Join(errs...)
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database.maxConnections must be at least 1")
	}

	ci := c.Clockin
	if ci.WorkStartHour < 0 || ci.WorkEndHour > 24 || ci.WorkStartHour >= ci.WorkEndHour {
		return fmt.Errorf("work hours %d-%d are invalid", ci.WorkStartHour, ci.WorkEndHour)
	}
	if ci.CooldownMinutes < 0 {
		return fmt.Errorf("clockin.cooldownMinutes must not be negative")
	}
	if ci.SubmissionTTLSeconds <= 0 || ci.LockTimeoutSeconds <= 0 {
		return fmt.Errorf("submission ttl and lock timeout must be positive")
	}
	if ci.HistoryDays <= 0 {
		return fmt.Errorf("clockin.historyDays must be positive")
	}
	if ci.LockScope != LockScopeWorker && ci.LockScope != LockScopeGlobal {
		return fmt.Errorf("clockin.lockScope must be %q or %q", LockScopeWorker, LockScopeGlobal)
	}
	if _, err := utils.LoadLocation(ci.Timezone); err != nil {
		return err
	}
	return nil
}

func (c *Config) Location() *time.Location {
	loc, err := utils.LoadLocation(c.Clockin.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ControllerOptions translates the clock-in settings for clockin.NewController.
func (c *Config) ControllerOptions() clockin.Options {
	ci := c.Clockin
	opts := clockin.DefaultOptions()
	opts.WorkHours = clockin.WorkHours{Start: ci.WorkStartHour, End: ci.WorkEndHour}
	opts.Cooldown = time.Duration(ci.CooldownMinutes) * time.Minute
	opts.SubmissionTTL = time.Duration(ci.SubmissionTTLSeconds) * time.Second
	opts.LockTimeout = time.Duration(ci.LockTimeoutSeconds) * time.Second
	opts.GlobalLock = ci.LockScope == LockScopeGlobal
	opts.HistoryDays = ci.HistoryDays
	opts.Location = c.Location()
	return opts
}
