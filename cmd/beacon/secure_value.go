// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/awnumar/memguard"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// EnvInsecureMemory opts out of mlocked secret storage. Set to "true" in
// containers or CI where RLIMIT_MEMLOCK is too low to raise.
const EnvInsecureMemory = "BEACON_INSECURE_MEMORY"

// MinMlockLimitKB is the minimum RLIMIT_MEMLOCK (in KB) required for
// secure secret storage.
const MinMlockLimitKB = 512

var memguardInit sync.Once

// initMemguard installs the memguard interrupt handler exactly once.
// CatchInterrupt wipes all secure buffers if the process receives SIGINT.
func initMemguard() {
	memguardInit.Do(func() {
		memguard.CatchInterrupt()
	})
}

// SecretHolder holds a secret value in memory, keeping it out of logs,
// core dumps, and swap where the platform allows.
//
// # Description
//
// Used for values that stay resident between retrieval and use, such as
// the Grafana admin password during a reset flow. Callers must Destroy
// the holder as soon as the value is no longer needed.
//
// # Security
//
//   - The value is never logged; only the holder ID appears in logs
//   - The secure implementation stores the value in mlocked memory
//   - Destroy wipes the backing memory
//
// # Thread Safety
//
// Implementations are safe for concurrent use.
type SecretHolder interface {
	// ID returns an opaque identifier for audit logging.
	ID() string

	// Len returns the length of the held value in bytes.
	Len() int

	// Reveal invokes fn with the secret bytes. The slice is only valid
	// for the duration of the call and must not be retained.
	Reveal(fn func(value []byte) error) error

	// Destroy wipes and releases the backing memory. The holder is
	// unusable afterwards.
	Destroy()
}

// NewSecretHolder creates a SecretHolder for the given value.
//
// # Description
//
// Prefers mlocked storage via memguard. Falls back to plain memory when
// BEACON_INSECURE_MEMORY=true or when RLIMIT_MEMLOCK is below
// MinMlockLimitKB; the fallback is logged at WARN so operators know
// secrets may reach swap.
//
// # Inputs
//
//   - value: The secret bytes. The caller's copy is wiped before return.
//
// # Outputs
//
//   - SecretHolder: Ready-to-use holder
//   - error: If value is empty
//
// # Examples
//
//	holder, err := NewSecretHolder([]byte(password))
//	if err != nil {
//	    return err
//	}
//	defer holder.Destroy()
//	err = holder.Reveal(func(v []byte) error {
//	    return grafana.ResetAdminPassword(ctx, v)
//	})
//
// # Limitations
//
//   - The insecure fallback offers no protection beyond process isolation
func NewSecretHolder(value []byte) (SecretHolder, error) {
	if len(value) == 0 {
		return nil, fmt.Errorf("secret value cannot be empty")
	}

	id := uuid.New().String()

	if os.Getenv(EnvInsecureMemory) == "true" {
		slog.Warn("using insecure memory for secret storage",
			"holder_id", id,
			"reason", "BEACON_INSECURE_MEMORY=true")
		return newInsecureSecretHolder(id, value), nil
	}

	if ok, limitKB := hasSufficientMlockLimit(); !ok {
		slog.Warn("using insecure memory for secret storage",
			"holder_id", id,
			"reason", "mlock limit too low",
			"limit_kb", limitKB,
			"required_kb", MinMlockLimitKB)
		return newInsecureSecretHolder(id, value), nil
	}

	initMemguard()
	return newSecureSecretHolder(id, value), nil
}

// hasSufficientMlockLimit checks RLIMIT_MEMLOCK against MinMlockLimitKB.
// Returns the current limit in KB, or -1 for unlimited.
func hasSufficientMlockLimit() (bool, int64) {
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &limit); err != nil {
		return false, 0
	}
	if limit.Cur == unix.RLIM_INFINITY {
		return true, -1
	}
	limitKB := int64(limit.Cur) / 1024
	return limitKB >= MinMlockLimitKB, limitKB
}

// PurgeSecretMemory wipes all secure buffers and session keys.
// Call once during process shutdown.
func PurgeSecretMemory() {
	memguard.Purge()
}

// -----------------------------------------------------------------------------
// Secure Implementation
// -----------------------------------------------------------------------------

// secureSecretHolder stores the value in an mlocked memguard buffer.
type secureSecretHolder struct {
	id     string
	buf    *memguard.LockedBuffer
	mu     sync.Mutex
	killed bool
}

func newSecureSecretHolder(id string, value []byte) *secureSecretHolder {
	buf := memguard.NewBuffer(len(value))
	buf.Melt()
	copy(buf.Bytes(), value)
	memguard.WipeBytes(value)
	return &secureSecretHolder{id: id, buf: buf}
}

func (h *secureSecretHolder) ID() string {
	return h.id
}

func (h *secureSecretHolder) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.killed {
		return 0
	}
	return h.buf.Size()
}

func (h *secureSecretHolder) Reveal(fn func(value []byte) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.killed {
		return fmt.Errorf("secret holder %s already destroyed", h.id)
	}
	return fn(h.buf.Bytes())
}

func (h *secureSecretHolder) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.killed {
		return
	}
	h.buf.Destroy()
	h.killed = true
}

// -----------------------------------------------------------------------------
// Insecure Fallback Implementation
// -----------------------------------------------------------------------------

// insecureSecretHolder stores the value in ordinary heap memory.
// Used only when mlocked storage is unavailable or explicitly disabled.
type insecureSecretHolder struct {
	id     string
	value  []byte
	mu     sync.Mutex
	killed bool
}

func newInsecureSecretHolder(id string, value []byte) *insecureSecretHolder {
	copied := make([]byte, len(value))
	copy(copied, value)
	memguard.WipeBytes(value)
	return &insecureSecretHolder{id: id, value: copied}
}

func (h *insecureSecretHolder) ID() string {
	return h.id
}

func (h *insecureSecretHolder) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.killed {
		return 0
	}
	return len(h.value)
}

func (h *insecureSecretHolder) Reveal(fn func(value []byte) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.killed {
		return fmt.Errorf("secret holder %s already destroyed", h.id)
	}
	return fn(h.value)
}

func (h *insecureSecretHolder) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.killed {
		return
	}
	memguard.WipeBytes(h.value)
	h.value = nil
	h.killed = true
}

// -----------------------------------------------------------------------------
// Compile-time Interface Checks
// -----------------------------------------------------------------------------

var _ SecretHolder = (*secureSecretHolder)(nil)
var _ SecretHolder = (*insecureSecretHolder)(nil)
