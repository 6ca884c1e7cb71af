package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelInfo, Output: &buf})

	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line should be filtered at info level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("info line missing")
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	logger.Info("led", "led", "A", "state", "on")

	out := buf.String()
	if !strings.Contains(out, `"led":"A"`) || !strings.Contains(out, `"state":"on"`) {
		t.Errorf("fields missing from output: %s", out)
	}
	if !strings.Contains(out, `"message":"led"`) {
		t.Errorf("message missing from output: %s", out)
	}
}

func TestNilConfigDefaults(t *testing.T) {
	logger := NewLogger(nil)
	if logger == nil {
		t.Fatal("NewLogger(nil) returned nil")
	}
}

func TestSetDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	old := Default()
	SetDefault(logger)
	defer SetDefault(old)

	Info("through default")
	if !strings.Contains(buf.String(), "through default") {
		t.Error("default logger did not receive the line")
	}
}
