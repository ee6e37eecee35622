package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarning},
		{"warning", LevelWarning},
		{"error", LevelError},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %d, expected %d", tt.input, got, tt.want)
		}
	}
}

func TestConsole_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsole(&buf, "warning")

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warning("warning %d", 3)
	l.Error("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("Messages below warning should be dropped: %q", out)
	}
	if !strings.Contains(out, "warning 3") || !strings.Contains(out, "error 4") {
		t.Errorf("Expected warning and error messages: %q", out)
	}
}

func TestNamed(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsole(&buf, "debug").Named("gate")

	l.Info("started")

	if !strings.Contains(buf.String(), "[gate] started") {
		t.Errorf("Expected camera tag, got %q", buf.String())
	}
}

func TestFileLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := NewLogger(dir, "info")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()

	l.Error("database unreachable")

	data, err := os.ReadFile(filepath.Join(dir, "error.log"))
	if err != nil {
		t.Fatalf("Failed to read error.log: %v", err)
	}
	if !strings.Contains(string(data), "database unreachable") {
		t.Errorf("Expected message in error.log, got %q", data)
	}

	if err := l.CleanLogs("error.log"); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "error.log"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("Expected empty file after CleanLogs, got %d bytes", info.Size())
	}
}

func TestCleanLogs_Console(t *testing.T) {
	l := NewConsole(&bytes.Buffer{}, "info")
	if err := l.CleanLogs("info.log"); err == nil {
		t.Error("Expected error for console logger")
	}
}

func TestSplitLine_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsole(&buf, "debug").Named("gate")

	l.Debug("frame %d", 1)
	l.Info("DB updated - interval %d", 2)
	l.Warning("Skipped class '%s'", "cap")
	l.Error("Failed to store interval: %s", "locked")

	want := []struct {
		level Level
		msg   string
	}{
		{LevelDebug, "[gate] frame 1"},
		{LevelInfo, "[gate] DB updated - interval 2"},
		{LevelWarning, "[gate] Skipped class 'cap'"},
		{LevelError, "[gate] Failed to store interval: locked"},
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %d: %q", len(want), len(lines), lines)
	}
	for i, line := range lines {
		level, msg, ok := SplitLine(line)
		if !ok || level != want[i].level || msg != want[i].msg {
			t.Errorf("SplitLine(%q) = %d, %q, %v; expected %d, %q", line, level, msg, ok, want[i].level, want[i].msg)
		}
	}
}

func TestSplitLine_Unmarked(t *testing.T) {
	level, msg, ok := SplitLine("panic: runtime error")
	if ok || level != LevelInfo || msg != "panic: runtime error" {
		t.Errorf("Unexpected result for unmarked line: %d, %q, %v", level, msg, ok)
	}
}

func TestLog_RoutesToLevelFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir, "info")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	l.Log(LevelError, "relayed %s", "failure")
	l.Log(LevelWarning, "relayed %s", "warning")
	l.Close()

	errs, err := os.ReadFile(filepath.Join(dir, "error.log"))
	if err != nil {
		t.Fatalf("Failed to read error.log: %v", err)
	}
	if !strings.Contains(string(errs), "relayed failure") {
		t.Errorf("Expected error entry in error.log, got %q", errs)
	}
	warns, err := os.ReadFile(filepath.Join(dir, "warning.log"))
	if err != nil {
		t.Fatalf("Failed to read warning.log: %v", err)
	}
	if !strings.Contains(string(warns), "relayed warning") {
		t.Errorf("Expected warning entry in warning.log, got %q", warns)
	}
	info, _ := os.ReadFile(filepath.Join(dir, "info.log"))
	if strings.Contains(string(info), "relayed failure") {
		t.Errorf("Error entry must not land in info.log")
	}
}
