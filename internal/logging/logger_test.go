package logging

import (
	"log/slog"
	"testing"
)

func TestGetLoggerReturnsSameInstance(t *testing.T) {
	l1 := GetLogger("isapi")
	l2 := GetLogger("isapi")
	if l1 != l2 {
		t.Error("expected same logger instance for same module")
	}
}

func TestInitializeAppliesModuleLevels(t *testing.T) {
	// Create the logger first so Initialize has to retrofit its level
	GetLogger("monitor")

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"monitor": "debug",
		},
	})

	mutex.RLock()
	levelVar := moduleLevelVars["monitor"]
	mutex.RUnlock()

	if levelVar == nil {
		t.Fatal("expected level var for monitor module")
	}
	if levelVar.Level() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", levelVar.Level())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"bogus", 0, false},
	}

	for _, tt := range tests {
		got := parseLevel(tt.in)
		if tt.ok && (got == nil || *got != tt.want) {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if !tt.ok && got != nil {
			t.Errorf("parseLevel(%q) = %v, want nil", tt.in, got)
		}
	}
}
