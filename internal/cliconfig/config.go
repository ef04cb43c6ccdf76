package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "SNAPMERGE_"

// Default values.
const (
	DefaultConcurrency       = 6
	DefaultDetailConcurrency = 10
	DefaultHTTPTimeout       = 30 * time.Second
	DefaultRetryMax          = 3
	DefaultLogLevel          = "info"
	DefaultPrefecture        = "00"
	DefaultSchedule          = 24 * time.Hour
)

// Config holds CLI configuration for snapmerge.
type Config struct {
	DataDir string

	SourceURL string
	APIKey    string

	Concurrency       int
	DetailConcurrency int
	EnrichWorkers     int
	HTTPTimeout       time.Duration
	RetryMax          int
	RefreshDetails    bool
	ForceEnrich       bool

	Prefecture string
	Schedule   time.Duration

	MySQLDSN    string
	MetricsFile string
	MetricsAddr string
	InboxDir    string
	LogLevel    string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		DataDir:           defaultDataDir(),
		Concurrency:       DefaultConcurrency,
		DetailConcurrency: DefaultDetailConcurrency,
		HTTPTimeout:       DefaultHTTPTimeout,
		RetryMax:          DefaultRetryMax,
		Prefecture:        DefaultPrefecture,
		Schedule:          DefaultSchedule,
		LogLevel:          DefaultLogLevel,
		APIKey:            os.Getenv(EnvPrefix + "API_KEY"),
	}
}

func defaultDataDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".snapmerge", "data")
	}
	return "data"
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data-dir is required")
	}
	if c.InboxDir == "" {
		c.InboxDir = filepath.Join(c.DataDir, "inbox")
	}
	if c.EnrichWorkers <= 0 {
		c.EnrichWorkers = runtime.NumCPU()
	}

	// Ensure no trailing slash
	c.SourceURL = strings.TrimRight(c.SourceURL, "/")

	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.DetailConcurrency <= 0 {
		return fmt.Errorf("detail concurrency must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("retry max must not be negative")
	}
	if c.Schedule <= 0 {
		return fmt.Errorf("schedule must be positive")
	}
	return nil
}

// RequireSource reports an error when no source URL is configured.
func (c *Config) RequireSource() error {
	if c.SourceURL == "" {
		return fmt.Errorf("source-url is required")
	}
	return nil
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "***"
	}
	if c.MySQLDSN != "" {
		c.MySQLDSN = redactDSN(c.MySQLDSN)
	}
	return c
}

// redactDSN hides the password of a user:password@... DSN.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	colon := strings.Index(dsn[:at], ":")
	if colon < 0 {
		return dsn
	}
	return dsn[:colon+1] + "***" + dsn[at:]
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
