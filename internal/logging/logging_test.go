package logging

import (
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf strings.Builder
	log := New(Config{Level: LevelWarn, Output: &buf})

	log.Debugf("hidden")
	log.Infof("hidden")
	log.Warnf("shown")
	log.Errorf("also shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below the level must be dropped: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "also shown") {
		t.Errorf("messages at or above the level must be written: %s", out)
	}
}

func TestWithField(t *testing.T) {
	var buf strings.Builder
	log := New(Config{Level: LevelInfo, Output: &buf})

	log.WithField("frames", 12).Infof("normalised")
	if !strings.Contains(buf.String(), "frames=12") {
		t.Errorf("expected field in output: %s", buf.String())
	}

	buf.Reset()
	log.Infof("plain")
	if strings.Contains(buf.String(), "frames=") {
		t.Errorf("fields must not leak to the parent logger: %s", buf.String())
	}
}
