package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf))

	l.With(Component("pool")).Info("task done",
		String("key", "202508010101"),
		Int("records", 3),
		Duration("took", 2*time.Second),
		Err(errors.New("boom")),
	)

	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if got["message"] != "task done" {
		t.Errorf("message = %v, want task done", got["message"])
	}
	if got["component"] != "pool" {
		t.Errorf("component = %v, want pool", got["component"])
	}
	if got["key"] != "202508010101" {
		t.Errorf("key = %v", got["key"])
	}
	if got["records"] != float64(3) {
		t.Errorf("records = %v, want 3", got["records"])
	}
	if got["error"] != "boom" {
		t.Errorf("error = %v, want boom", got["error"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
