package cliconfig

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Concurrency != 6 {
		t.Errorf("Concurrency = %v, want 6", cfg.Concurrency)
	}
	if cfg.DetailConcurrency != 10 {
		t.Errorf("DetailConcurrency = %v, want 10", cfg.DetailConcurrency)
	}
	if cfg.HTTPTimeout != DefaultHTTPTimeout {
		t.Errorf("HTTPTimeout = %v, want %v", cfg.HTTPTimeout, DefaultHTTPTimeout)
	}
	if !strings.HasSuffix(cfg.DataDir, "data") {
		t.Errorf("DataDir = %v, want a data directory", cfg.DataDir)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			DataDir:           "/data",
			Concurrency:       1,
			DetailConcurrency: 1,
			HTTPTimeout:       time.Second,
			Schedule:          time.Hour,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid minimal config", mutate: func(*Config) {}},
		{name: "missing data dir", mutate: func(c *Config) { c.DataDir = "" }, wantErr: true},
		{name: "zero concurrency", mutate: func(c *Config) { c.Concurrency = 0 }, wantErr: true},
		{name: "zero detail concurrency", mutate: func(c *Config) { c.DetailConcurrency = 0 }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.HTTPTimeout = 0 }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.RetryMax = -1 }, wantErr: true},
		{name: "zero schedule", mutate: func(c *Config) { c.Schedule = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateDerivesDefaults(t *testing.T) {
	cfg := Config{
		DataDir:           "/data",
		SourceURL:         "http://source/",
		Concurrency:       1,
		DetailConcurrency: 1,
		HTTPTimeout:       time.Second,
		Schedule:          time.Hour,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.InboxDir != "/data/inbox" {
		t.Errorf("InboxDir = %v, want /data/inbox", cfg.InboxDir)
	}
	if cfg.EnrichWorkers <= 0 {
		t.Errorf("EnrichWorkers = %v, want positive", cfg.EnrichWorkers)
	}
	if cfg.SourceURL != "http://source" {
		t.Errorf("SourceURL = %v, want trailing slash removed", cfg.SourceURL)
	}
	if err := cfg.RequireSource(); err != nil {
		t.Errorf("RequireSource() error = %v", err)
	}
	cfg.SourceURL = ""
	if err := cfg.RequireSource(); err == nil {
		t.Error("RequireSource() with empty url should fail")
	}
}

func TestConfig_Redacted(t *testing.T) {
	cfg := Config{APIKey: "secret", MySQLDSN: "user:pw@tcp(db:3306)/keiba"}
	r := cfg.Redacted()
	if r.APIKey != "***" {
		t.Errorf("APIKey = %v", r.APIKey)
	}
	if r.MySQLDSN != "user:***@tcp(db:3306)/keiba" {
		t.Errorf("MySQLDSN = %v", r.MySQLDSN)
	}
	if cfg.APIKey != "secret" {
		t.Error("Redacted() modified the receiver")
	}
}
