package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := New(Options{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger == nil {
		t.Fatalf("expected logger instance")
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level not enabled")
	}
	_ = logger.Sync()
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestParseLevel_Default(t *testing.T) {
	level, err := parseLevel("")
	if err != nil {
		t.Fatal(err)
	}
	if level != zapcore.InfoLevel {
		t.Errorf("level = %v, want info", level)
	}
}

func TestUseConsole(t *testing.T) {
	if !useConsole("console") {
		t.Error("console format should use console encoding")
	}
	if useConsole("json") {
		t.Error("json format should not use console encoding")
	}
}
