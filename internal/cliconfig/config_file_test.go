package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				DataDir:           "/data",
				SourceURL:         "http://source",
				APIKey:            "secret",
				Concurrency:       3,
				DetailConcurrency: 5,
				EnrichWorkers:     2,
				HTTPTimeout:       "5s",
				RetryMax:          4,
				RefreshDetails:    &trueVal,
				Prefecture:        "13",
				Schedule:          "12h",
				MySQLDSN:          "u:p@/db",
				MetricsFile:       "/m.prom",
				MetricsAddr:       ":9100",
				InboxDir:          "/inbox",
				LogLevel:          "debug",
			},
			changed: map[string]bool{},
			expected: Config{
				DataDir:           "/data",
				SourceURL:         "http://source",
				APIKey:            "secret",
				Concurrency:       3,
				DetailConcurrency: 5,
				EnrichWorkers:     2,
				HTTPTimeout:       5 * time.Second,
				RetryMax:          4,
				RefreshDetails:    true,
				Prefecture:        "13",
				Schedule:          12 * time.Hour,
				MySQLDSN:          "u:p@/db",
				MetricsFile:       "/m.prom",
				MetricsAddr:       ":9100",
				InboxDir:          "/inbox",
				LogLevel:          "debug",
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				DataDir:    "/config/data",
				Prefecture: "27",
			},
			changed: map[string]bool{"data-dir": true},
			initial: Config{DataDir: "/flag/data", Prefecture: "13"},
			expected: Config{
				DataDir:    "/flag/data", // unchanged because flag was set
				Prefecture: "27",
			},
		},
		{
			name:       "zero ints keep current values",
			fileConfig: FileConfig{Concurrency: 0},
			changed:    map[string]bool{},
			initial:    Config{Concurrency: 6},
			expected:   Config{Concurrency: 6},
		},
		{
			name:       "invalid duration",
			fileConfig: FileConfig{Schedule: "weekly"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		`data_dir = "/srv/snapmerge"`,
		`source_url = "https://source.example"`,
		`concurrency = 8`,
		`http_timeout = "45s"`,
		`refresh_details = true`,
		`mysql_dsn = "user:pw@tcp(db:3306)/keiba"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}
	if fc.DataDir != "/srv/snapmerge" || fc.Concurrency != 8 || fc.HTTPTimeout != "45s" {
		t.Errorf("LoadFileConfig() = %+v", fc)
	}
	if fc.RefreshDetails == nil || !*fc.RefreshDetails {
		t.Errorf("refresh_details not parsed")
	}

	if _, err := LoadFileConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("LoadFileConfig() on missing file should fail")
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("concurrency = ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFileConfig(bad); err == nil {
		t.Error("LoadFileConfig() on malformed file should fail")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x")
	if FileExists(p) {
		t.Error("FileExists() = true before create")
	}
	if err := os.WriteFile(p, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if !FileExists(p) {
		t.Error("FileExists() = false after create")
	}
}
