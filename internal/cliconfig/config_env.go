package cliconfig

import "os"

// ApplyEnvConfig applies SNAPMERGE_* environment variables to cfg.
// It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("data-dir", env("DATA_DIR"), &cfg.DataDir)
	s.setString("source-url", env("SOURCE_URL"), &cfg.SourceURL)
	s.setString("api-key", env("API_KEY"), &cfg.APIKey)
	s.setString("prefecture", env("PREFECTURE"), &cfg.Prefecture)
	s.setString("mysql-dsn", env("MYSQL_DSN"), &cfg.MySQLDSN)
	s.setString("metrics-file", env("METRICS_FILE"), &cfg.MetricsFile)
	s.setString("metrics-addr", env("METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("inbox-dir", env("INBOX_DIR"), &cfg.InboxDir)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("timeout", env("HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("every", env("SCHEDULE"), &cfg.Schedule); err != nil {
		return err
	}

	if err := s.setIntFromString("concurrency", env("CONCURRENCY"), &cfg.Concurrency); err != nil {
		return err
	}
	if err := s.setIntFromString("detail-concurrency", env("DETAIL_CONCURRENCY"), &cfg.DetailConcurrency); err != nil {
		return err
	}
	if err := s.setIntFromString("enrich-workers", env("ENRICH_WORKERS"), &cfg.EnrichWorkers); err != nil {
		return err
	}
	if err := s.setIntFromString("retry-max", env("RETRY_MAX"), &cfg.RetryMax); err != nil {
		return err
	}

	s.setBoolFromString("refresh-details", env("REFRESH_DETAILS"), &cfg.RefreshDetails)
	s.setBoolFromString("force", env("FORCE_ENRICH"), &cfg.ForceEnrich)

	return nil
}
