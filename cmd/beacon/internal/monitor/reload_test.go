// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchConfig_FiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "beacon.yaml")
	if err := os.WriteFile(configPath, []byte("services: []\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchConfig(ctx, configPath, func() {
			fired <- struct{}{}
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(configPath, []byte("services:\n  - name: loki\n"), 0644); err != nil {
		t.Fatalf("rewriting config: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("onChange never fired")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("WatchConfig returned %v, want context.Canceled", err)
	}
}

func TestWatchConfig_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "beacon.yaml")
	if err := os.WriteFile(configPath, []byte("services: []\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 4)
	go func() {
		_ = WatchConfig(ctx, configPath, func() {
			fired <- struct{}{}
		})
	}()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("writing sibling file: %v", err)
	}

	select {
	case <-fired:
		t.Fatal("onChange fired for an unrelated file")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatchConfig_MissingDirErrors(t *testing.T) {
	err := WatchConfig(context.Background(), "/nonexistent-4721/beacon.yaml", func() {})
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
