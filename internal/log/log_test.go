package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	logger := New(Config{})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
}

func TestNewWithWriterText(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{Level: slog.LevelDebug})
	logger.Info("sync finished", "upserted", 100)

	output := buf.String()
	if !strings.Contains(output, "sync finished") {
		t.Errorf("expected output to contain the message, got: %s", output)
	}
	if !strings.Contains(output, "upserted=100") {
		t.Errorf("expected output to contain 'upserted=100', got: %s", output)
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{Level: slog.LevelInfo, JSON: true})
	logger.Info("sync finished", "batches", 3)

	output := buf.String()
	if !strings.Contains(output, `"msg":"sync finished"`) {
		t.Errorf("expected JSON output with msg field, got: %s", output)
	}
	if !strings.Contains(output, `"batches":3`) {
		t.Errorf("expected JSON output with batches field, got: %s", output)
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	if logger == nil {
		t.Fatal("NewNop() returned nil")
	}

	// Should not panic
	logger.Info("this should be discarded")
	logger.Error("this too")
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{Level: slog.LevelInfo})

	logger.With("component", "pipeline").Info("batch upserted")

	output := buf.String()
	if !strings.Contains(output, "component=pipeline") {
		t.Errorf("expected output to contain 'component=pipeline', got: %s", output)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	// Only INFO and above
	logger := NewWithWriter(&buf, Config{Level: slog.LevelInfo})

	logger.Debug("debug should not appear")
	logger.Info("info should appear")

	output := buf.String()
	if strings.Contains(output, "debug should not appear") {
		t.Error("DEBUG message should be filtered out")
	}
	if !strings.Contains(output, "info should appear") {
		t.Error("INFO message should appear")
	}
}
