package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestCoerceLevel(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Level
	}{
		{"level value", LevelDebug, LevelDebug},
		{"int", 2, LevelWarn},
		{"int64", int64(4), LevelDebug},
		{"float64 whole", float64(1), LevelError},
		{"float64 fraction", 2.5, LevelInfo},
		{"out of range int", 42, LevelInfo},
		{"negative", -1, LevelInfo},
		{"string name", "debug", LevelDebug},
		{"unknown string", "invalid", LevelInfo},
		{"nil", nil, LevelInfo},
		{"bool", true, LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoerceLevel(tt.in); got != tt.want {
				t.Errorf("CoerceLevel(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("ERROR") != LevelError {
		t.Error("ParseLevel(ERROR) != LevelError")
	}
	if ParseLevel("warning") != LevelWarn {
		t.Error("ParseLevel(warning) != LevelWarn")
	}
	if ParseLevel("bogus") != LevelInfo {
		t.Error("unrecognized name must fall back to INFO")
	}
}

func TestLogger_ShouldLog(t *testing.T) {
	tests := []struct {
		current   Level
		requested Level
		want      bool
	}{
		{LevelDebug, LevelDebug, true},
		{LevelDebug, LevelError, true},
		{LevelInfo, LevelDebug, false},
		{LevelInfo, LevelInfo, true},
		{LevelError, LevelWarn, false},
		{LevelOff, LevelError, false},
		{LevelOff, LevelOff, false},
	}

	for _, tt := range tests {
		l := NewLogger(Config{Level: tt.current, Output: &bytes.Buffer{}})
		if got := l.ShouldLog(tt.requested); got != tt.want {
			t.Errorf("level %v: ShouldLog(%v) = %v, want %v", tt.current, tt.requested, got, tt.want)
		}
	}
}

func TestLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: LevelWarn, Output: &buf, Prefix: "test"})

	l.Debug("debug line")
	l.Info("info line")
	l.Warn("warn line")
	l.Error("error line")

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("suppressed levels leaked: %q", out)
	}
	if !strings.Contains(out, "warn line") || !strings.Contains(out, "error line") {
		t.Errorf("enabled levels missing: %q", out)
	}
}

func TestLogger_OffSilencesErrors(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: LevelOff, Output: &buf})

	l.Error("should not appear")
	if buf.Len() != 0 {
		t.Errorf("OFF level wrote output: %q", buf.String())
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: LevelInfo, Output: &buf})

	l.Debug("before")
	l.SetLevel(LevelDebug)
	l.Debug("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Error("debug logged before the level allowed it")
	}
	if !strings.Contains(out, "after") {
		t.Error("debug not logged after raising the level")
	}
	if l.CurrentLevel() != LevelDebug {
		t.Errorf("CurrentLevel = %v, want DEBUG", l.CurrentLevel())
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: LevelInfo, Output: &buf})

	l.WithFields(map[string]any{"component": "settings"}).Info("hello")

	if !strings.Contains(buf.String(), "component=settings") {
		t.Errorf("fields missing from output: %q", buf.String())
	}
}
