package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "paybridge", &Options{Format: FormatJSON})

	log.Info(context.Background(), "quote solved", "provider", "lifi", "iterations", 2)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}

	if rec["msg"] != "quote solved" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["service"] != "paybridge" {
		t.Errorf("service = %v", rec["service"])
	}
	if rec["provider"] != "lifi" {
		t.Errorf("provider = %v", rec["provider"])
	}
	src, ok := rec["source"].(map[string]any)
	if !ok {
		t.Fatalf("missing source attribute")
	}
	if file, _ := src["file"].(string); !strings.HasSuffix(file, "logger_test.go") {
		t.Errorf("source file = %v, want caller file", src["file"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "paybridge", &Options{Format: FormatJSON})

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}

	log.Warn(context.Background(), "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn record, got %q", buf.String())
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug, "paybridge", &Options{Format: FormatJSON}).With("stage", "source")

	log.Debug(context.Background(), "polling")
	if !strings.Contains(buf.String(), `"stage":"source"`) {
		t.Errorf("expected stage attribute, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
