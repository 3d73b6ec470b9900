// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo},
	}

	for _, tt := range tests {
		got := tt.level.toSlogLevel()
		if got != tt.want {
			t.Errorf("Level(%d).toSlogLevel() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  dir,
		Service: "test",
		Quiet:   true,
	})

	logger.Info("file log entry", "key", "value")

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	filename := "test_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "file log entry") {
		t.Errorf("log file missing entry, got: %s", data)
	}
	if !strings.Contains(string(data), `"service":"test"`) {
		t.Errorf("log file missing service attribute, got: %s", data)
	}
}

func TestLogger_With(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  dir,
		Service: "test",
		Quiet:   true,
	})
	defer logger.Close()

	child := logger.With("pass_id", "abc123")
	child.Info("child entry")

	filename := "test_" + time.Now().Format("2006-01-02") + ".log"
	logger.file.Sync()
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "abc123") {
		t.Errorf("child logger attribute missing, got: %s", data)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  dir,
		Service: "test",
		Quiet:   true,
	})

	logger.Debug("debug entry")
	logger.Info("info entry")
	logger.Warn("warn entry")
	logger.Close()

	filename := "test_" + time.Now().Format("2006-01-02") + ".log"
	data, _ := os.ReadFile(filepath.Join(dir, filename))
	content := string(data)

	if strings.Contains(content, "debug entry") {
		t.Error("debug entry should be filtered at Warn level")
	}
	if strings.Contains(content, "info entry") {
		t.Error("info entry should be filtered at Warn level")
	}
	if !strings.Contains(content, "warn entry") {
		t.Error("warn entry should be present")
	}
}

// =============================================================================
// Exporter Tests
// =============================================================================

func TestBufferedExporter_CollectsEntries(t *testing.T) {
	exporter := NewBufferedExporter()

	logger := New(Config{
		Level:    LevelInfo,
		Service:  "test",
		Quiet:    true,
		Exporter: exporter,
	})
	defer logger.Close()

	logger.Info("exported message", "count", 3)

	// Export happens asynchronously; poll briefly
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(exporter.Entries()) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	entries := exporter.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 exported entry, got %d", len(entries))
	}
	if entries[0].Message != "exported message" {
		t.Errorf("unexpected message: %s", entries[0].Message)
	}
	if entries[0].Level != LevelInfo {
		t.Errorf("unexpected level: %s", entries[0].Level)
	}
	if entries[0].Attrs["count"] != 3 {
		t.Errorf("unexpected attrs: %v", entries[0].Attrs)
	}
}

func TestBufferedExporter_FilteredLevelsNotExported(t *testing.T) {
	exporter := NewBufferedExporter()

	logger := New(Config{
		Level:    LevelError,
		Service:  "test",
		Quiet:    true,
		Exporter: exporter,
	})
	defer logger.Close()

	logger.Info("below threshold")
	time.Sleep(50 * time.Millisecond)

	if len(exporter.Entries()) != 0 {
		t.Errorf("expected no exported entries, got %d", len(exporter.Entries()))
	}
}

func TestNopExporter(t *testing.T) {
	e := &NopExporter{}
	ctx := context.Background()

	if err := e.Export(ctx, LogEntry{Message: "x"}); err != nil {
		t.Errorf("Export returned error: %v", err)
	}
	if err := e.Flush(ctx); err != nil {
		t.Errorf("Flush returned error: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~/logs", filepath.Join(home, "logs")},
		{"/var/log", "/var/log"},
		{"relative/path", "relative/path"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestArgsToMap(t *testing.T) {
	m := argsToMap([]any{"key1", "value1", "key2", 123})
	if m["key1"] != "value1" {
		t.Errorf("key1 = %v, want value1", m["key1"])
	}
	if m["key2"] != 123 {
		t.Errorf("key2 = %v, want 123", m["key2"])
	}

	// Odd-length args drop the trailing key
	m = argsToMap([]any{"key1", "value1", "dangling"})
	if len(m) != 1 {
		t.Errorf("expected 1 entry, got %d", len(m))
	}

	// Non-string keys are skipped
	m = argsToMap([]any{42, "value"})
	if len(m) != 0 {
		t.Errorf("expected 0 entries, got %d", len(m))
	}
}
