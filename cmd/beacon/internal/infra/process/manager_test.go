// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package process

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// DefaultManager Tests
// =============================================================================

func TestDefaultManager_RunInDir_Success(t *testing.T) {
	pm := NewDefaultManager()

	stdout, stderr, code, err := pm.RunInDir(context.Background(), "", nil, "echo", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
	if strings.TrimSpace(stdout) != "hello" {
		t.Errorf("expected stdout 'hello', got %q", stdout)
	}
	if stderr != "" {
		t.Errorf("expected empty stderr, got %q", stderr)
	}
}

func TestDefaultManager_RunInDir_WorkingDirectory(t *testing.T) {
	pm := NewDefaultManager()
	dir := t.TempDir()

	stdout, _, _, err := pm.RunInDir(context.Background(), dir, nil, "pwd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// pwd may resolve symlinks (macOS /var vs /private/var), so match the suffix
	if !strings.Contains(strings.TrimSpace(stdout), lastPathSegment(dir)) {
		t.Errorf("expected pwd output to contain %q, got %q", dir, stdout)
	}
}

func TestDefaultManager_RunInDir_ExtraEnv(t *testing.T) {
	pm := NewDefaultManager()

	stdout, _, _, err := pm.RunInDir(context.Background(), "", []string{"BEACON_TEST_VAR=orca"},
		"sh", "-c", "echo $BEACON_TEST_VAR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(stdout) != "orca" {
		t.Errorf("expected injected env value, got %q", stdout)
	}
}

func TestDefaultManager_RunInDir_NonZeroExit(t *testing.T) {
	pm := NewDefaultManager()

	_, _, code, err := pm.RunInDir(context.Background(), "", nil, "sh", "-c", "echo boom >&2; exit 3")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if code != 3 {
		t.Errorf("expected exit code 3, got %d", code)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}

func TestDefaultManager_RunInDir_CommandNotFound(t *testing.T) {
	pm := NewDefaultManager()

	_, _, code, err := pm.RunInDir(context.Background(), "", nil, "beacon-nonexistent-binary-xyz")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if code != -1 {
		t.Errorf("expected exit code -1 when process never ran, got %d", code)
	}
}

func TestDefaultManager_RunStreaming_WritesOutput(t *testing.T) {
	pm := NewDefaultManager()

	var buf bytes.Buffer
	err := pm.RunStreaming(context.Background(), "", &buf, "echo", "streamed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "streamed") {
		t.Errorf("expected streamed output, got %q", buf.String())
	}
}

func TestDefaultManager_RunStreaming_ContextCancel(t *testing.T) {
	pm := NewDefaultManager()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := pm.RunStreaming(ctx, "", io.Discard, "sleep", "10")
	if err == nil {
		t.Fatal("expected error after context timeout")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestDefaultManager_IsRunning_NotFound(t *testing.T) {
	pm := NewDefaultManager()

	running, pid, err := pm.IsRunning(context.Background(), "beacon-no-such-process-xyz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if running {
		t.Error("expected not running")
	}
	if pid != 0 {
		t.Errorf("expected pid 0, got %d", pid)
	}
}

// =============================================================================
// MockManager Tests
// =============================================================================

func TestMockManager_RecordsCalls(t *testing.T) {
	mock := &MockManager{
		RunInDirFunc: func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
			return "ok", "", 0, nil
		},
	}

	_, _, _, err := mock.RunInDir(context.Background(), "/stack", nil, "docker", "compose", "ps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := mock.GetCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Method != "RunInDir" || calls[0].Name != "docker" || calls[0].Dir != "/stack" {
		t.Errorf("unexpected call record: %+v", calls[0])
	}
}

func TestMockManager_Reset(t *testing.T) {
	mock := &MockManager{
		IsRunningFunc: func(ctx context.Context, pattern string) (bool, int, error) {
			return true, 42, nil
		},
	}

	_, _, _ = mock.IsRunning(context.Background(), "prometheus")
	mock.Reset()

	if len(mock.GetCalls()) != 0 {
		t.Error("expected no calls after Reset")
	}
}

func TestMockManager_PanicsWhenFuncNotSet(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic when RunInDirFunc not set")
		}
	}()

	mock := &MockManager{}
	_, _, _, _ = mock.RunInDir(context.Background(), "", nil, "docker")
}

func lastPathSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}
