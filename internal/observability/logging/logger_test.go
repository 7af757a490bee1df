package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewTextLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLogger(&buf, "nebras", "warn")

	logger.Info("ingestion_completed")
	logger.Warn("retrieval_no_match", "threshold", 0.6)

	out := buf.String()
	if strings.Contains(out, "ingestion_completed") {
		t.Fatalf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "retrieval_no_match") || !strings.Contains(out, "service=nebras") {
		t.Fatalf("unexpected output %q", out)
	}
}
