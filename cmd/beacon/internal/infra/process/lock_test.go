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
	"os"
	"strings"
	"testing"
)

func TestProcessLock_AcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	lock := NewProcessLock(ProcessLockConfig{LockDir: dir, LockName: "beacon-test"})

	if err := lock.Acquire(); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}
	if !lock.IsHeld() {
		t.Error("expected lock to be held after Acquire")
	}

	// PID file should contain our PID
	if lock.HolderPID() != os.Getpid() {
		t.Errorf("expected holder PID %d, got %d", os.Getpid(), lock.HolderPID())
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("failed to release lock: %v", err)
	}
	if lock.IsHeld() {
		t.Error("expected lock to not be held after Release")
	}
}

func TestProcessLock_AcquireTwiceIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	lock := NewProcessLock(ProcessLockConfig{LockDir: dir, LockName: "beacon-test"})

	if err := lock.Acquire(); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer lock.Release()

	if err := lock.Acquire(); err != nil {
		t.Errorf("second acquire on same instance should succeed: %v", err)
	}
}

func TestProcessLock_SecondInstanceBlocked(t *testing.T) {
	dir := t.TempDir()
	first := NewProcessLock(ProcessLockConfig{LockDir: dir, LockName: "beacon-test"})
	second := NewProcessLock(ProcessLockConfig{LockDir: dir, LockName: "beacon-test"})

	if err := first.Acquire(); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer first.Release()

	err := second.Acquire()
	if err == nil {
		second.Release()
		t.Fatal("expected second instance to be blocked")
	}
	if !strings.Contains(err.Error(), "another beacon instance") {
		t.Errorf("expected instance-running error, got %v", err)
	}
}

func TestProcessLock_ReleaseWithoutAcquire(t *testing.T) {
	lock := NewProcessLock(ProcessLockConfig{LockDir: t.TempDir(), LockName: "beacon-test"})
	if err := lock.Release(); err != nil {
		t.Errorf("release without acquire should be a no-op: %v", err)
	}
}

func TestProcessLock_ReacquireAfterRelease(t *testing.T) {
	dir := t.TempDir()
	lock := NewProcessLock(ProcessLockConfig{LockDir: dir, LockName: "beacon-test"})

	if err := lock.Acquire(); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	other := NewProcessLock(ProcessLockConfig{LockDir: dir, LockName: "beacon-test"})
	if err := other.Acquire(); err != nil {
		t.Fatalf("reacquire after release failed: %v", err)
	}
	other.Release()
}

func TestNewProcessLock_Defaults(t *testing.T) {
	lock := NewProcessLock(ProcessLockConfig{})
	if !strings.Contains(lock.LockPath(), "beacon.lock") {
		t.Errorf("expected default lock name, got %s", lock.LockPath())
	}
	if !strings.Contains(lock.PIDPath(), "beacon.pid") {
		t.Errorf("expected default pid name, got %s", lock.PIDPath())
	}
}

func TestErrLockHeld_Error(t *testing.T) {
	withPID := &ErrLockHeld{HolderPID: 123}
	if !strings.Contains(withPID.Error(), "PID 123") {
		t.Errorf("expected PID in message, got %q", withPID.Error())
	}

	withoutPID := &ErrLockHeld{LockPath: "/tmp/beacon.lock"}
	if !strings.Contains(withoutPID.Error(), "/tmp/beacon.lock") {
		t.Errorf("expected lock path in message, got %q", withoutPID.Error())
	}
}
