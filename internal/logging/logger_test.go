package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, data string) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestNewLogger(t *testing.T) {
	t.Run("creates log file and parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "vents.log")

		logger, err := NewLogger(path, LevelDebug)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("log file was not created at %s", path)
		}
	})

	t.Run("writes to stderr when path is empty", func(t *testing.T) {
		logger, err := NewLogger("", LevelInfo)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		if logger.out.file != nil {
			t.Error("expected file to be nil when path is empty")
		}
	})
}

func TestLogLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vents.log")

	logger, err := NewLogger(path, LevelWarn)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message", "key", "value")
	logger.Error("error message", "key", "value")
	logger.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	entries := decodeLines(t, string(content))
	if len(entries) != 2 {
		t.Fatalf("expected 2 log lines at WARN, got %d", len(entries))
	}
	if entries[0]["msg"] != "warn message" {
		t.Errorf("first msg = %v, want warn message", entries[0]["msg"])
	}
	if entries[1]["level"] != "ERROR" {
		t.Errorf("second level = %v, want ERROR", entries[1]["level"])
	}
}

func TestPersistentAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LevelDebug).
		WithComponent("delayed").
		WithEvent("Event[int]").
		With("id", "abc", 42, "ignored-non-string-key")

	logger.Info("delivered", "value", 10)

	entries := decodeLines(t, buf.String())
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e["component"] != "delayed" {
		t.Errorf("component = %v", e["component"])
	}
	if e["event"] != "Event[int]" {
		t.Errorf("event = %v", e["event"])
	}
	if e["id"] != "abc" {
		t.Errorf("id = %v", e["id"])
	}
	if e["value"] != float64(10) {
		t.Errorf("value = %v", e["value"])
	}
}

func TestCloseSharedWithChildren(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vents.log")

	parent, err := NewLogger(path, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	child := parent.WithComponent("watch").With("id", "x")
	child.Info("from child")

	done := make(chan error, 2)
	go func() { done <- child.Close() }()
	go func() { done <- parent.Close() }()
	for range 2 {
		if err := <-done; err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}

	if parent.out != child.out || parent.out.file != nil {
		t.Error("parent and child should share one closed sink")
	}
	// Writing after close is dropped, not a panic.
	parent.Info("after close")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	entries := decodeLines(t, string(content))
	if len(entries) != 1 || entries[0]["component"] != "watch" {
		t.Errorf("entries = %v", entries)
	}
}

func TestWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWriterLogger(&buf, LevelDebug)
	_ = parent.With("child", true)

	parent.Info("parent")

	entries := decodeLines(t, buf.String())
	if _, ok := entries[0]["child"]; ok {
		t.Error("child attribute leaked into parent logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"Warn", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if ValidLevel("verbose") {
		t.Error("verbose should not be a valid level")
	}
	if !ValidLevel("debug") {
		t.Error("debug should be a valid level")
	}
	if len(ValidLevels()) != 4 {
		t.Errorf("ValidLevels() = %v", ValidLevels())
	}
}

func TestDefaultLogger(t *testing.T) {
	orig := Default()
	t.Cleanup(func() { SetDefault(orig) })

	if orig == nil {
		t.Fatal("Default() should never be nil")
	}

	SetDefault(nil)
	if Default() != orig {
		t.Error("SetDefault(nil) should be ignored")
	}

	nop := NopLogger()
	SetDefault(nop)
	if Default() != nop {
		t.Error("SetDefault did not replace the default logger")
	}
	if OrDefault(nil) != nop {
		t.Error("OrDefault(nil) should return the default logger")
	}

	other := NopLogger()
	if OrDefault(other) != other {
		t.Error("OrDefault should return a non-nil argument unchanged")
	}
}
