package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	DataDir           string `toml:"data_dir"`
	SourceURL         string `toml:"source_url"`
	APIKey            string `toml:"api_key"`
	Concurrency       int    `toml:"concurrency"`
	DetailConcurrency int    `toml:"detail_concurrency"`
	EnrichWorkers     int    `toml:"enrich_workers"`
	HTTPTimeout       string `toml:"http_timeout"`
	RetryMax          int    `toml:"retry_max"`
	RefreshDetails    *bool  `toml:"refresh_details"`
	ForceEnrich       *bool  `toml:"force_enrich"`
	Prefecture        string `toml:"prefecture"`
	Schedule          string `toml:"schedule"`
	MySQLDSN          string `toml:"mysql_dsn"`
	MetricsFile       string `toml:"metrics_file"`
	MetricsAddr       string `toml:"metrics_addr"`
	InboxDir          string `toml:"inbox_dir"`
	LogLevel          string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.snapmerge/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".snapmerge", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("source-url", fc.SourceURL, &cfg.SourceURL)
	s.setString("api-key", fc.APIKey, &cfg.APIKey)
	s.setString("prefecture", fc.Prefecture, &cfg.Prefecture)
	s.setString("mysql-dsn", fc.MySQLDSN, &cfg.MySQLDSN)
	s.setString("metrics-file", fc.MetricsFile, &cfg.MetricsFile)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("inbox-dir", fc.InboxDir, &cfg.InboxDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("every", fc.Schedule, &cfg.Schedule); err != nil {
		return err
	}

	s.setInt("concurrency", fc.Concurrency, &cfg.Concurrency)
	s.setInt("detail-concurrency", fc.DetailConcurrency, &cfg.DetailConcurrency)
	s.setInt("enrich-workers", fc.EnrichWorkers, &cfg.EnrichWorkers)
	s.setInt("retry-max", fc.RetryMax, &cfg.RetryMax)

	s.setBool("refresh-details", fc.RefreshDetails, &cfg.RefreshDetails)
	s.setBool("force", fc.ForceEnrich, &cfg.ForceEnrich)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
