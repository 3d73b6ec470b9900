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
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// Manager handles external process operations.
//
// This interface abstracts all interaction with the operating system's process
// management, enabling testable code that doesn't require real process
// execution. All exec.Command calls in the stack management and health check
// code go through this interface.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use from multiple goroutines.
//
// # Context Handling
//
// All methods accept a context.Context for cancellation and timeout support.
// Long-running processes should respect context cancellation.
type Manager interface {
	// RunInDir executes a command in a working directory with extra environment.
	//
	// # Description
	//
	// Executes the specified command with arguments, optionally in the given
	// working directory and with extra environment entries appended to the
	// inherited environment. Waits for completion and returns stdout, stderr,
	// and the process exit code separately.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - dir: Working directory ("" means inherit the current directory)
	//   - env: Extra environment entries in KEY=VALUE form (nil for none)
	//   - name: The executable name or path
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - string: Captured stdout
	//   - string: Captured stderr
	//   - int: Process exit code (0 on success, -1 if the process never ran)
	//   - error: Non-nil if the command fails to start, exits non-zero, or
	//     the context is cancelled
	//
	// # Examples
	//
	//   stdout, stderr, code, err := pm.RunInDir(ctx, stackDir, nil,
	//       "docker", "compose", "ps", "--format", "json")
	//   if err != nil {
	//       return fmt.Errorf("compose ps failed (exit %d): %s", code, stderr)
	//   }
	//
	// # Limitations
	//
	//   - Output is fully buffered in memory
	RunInDir(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error)

	// RunStreaming executes a command and streams combined output to a writer.
	//
	// # Description
	//
	// Executes the specified command with stdout and stderr connected to the
	// provided writer. Blocks until the command exits or the context is
	// cancelled. Used for log following where output must not be buffered.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation (controls stream lifetime)
	//   - dir: Working directory ("" means inherit)
	//   - w: Writer to receive stdout and stderr
	//   - name: The executable name or path
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - error: Non-nil if the command fails to start or exits non-zero
	//
	// # Examples
	//
	//   err := pm.RunStreaming(ctx, stackDir, os.Stdout,
	//       "docker", "compose", "logs", "--follow", "prometheus")
	//
	// # Limitations
	//
	//   - Context cancellation kills the process (expected for follow mode)
	RunStreaming(ctx context.Context, dir string, w io.Writer, name string, args ...string) error

	// IsRunning checks if a process matching the pattern exists.
	//
	// # Description
	//
	// Searches for running processes whose command line matches the given
	// pattern. Uses pgrep on Unix systems for process detection.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - pattern: String pattern to match against process command lines
	//
	// # Outputs
	//
	//   - bool: True if at least one matching process is running
	//   - int: PID of first matching process (0 if not found)
	//   - error: Non-nil if process detection fails (not for "not found")
	//
	// # Examples
	//
	//   running, pid, err := pm.IsRunning(ctx, "node_exporter")
	//   if err != nil {
	//       return fmt.Errorf("failed to check process: %w", err)
	//   }
	//
	// # Limitations
	//
	//   - Pattern matching behavior depends on the platform's pgrep
	//   - Only returns first matching PID, not all matches
	//
	// # Assumptions
	//
	//   - pgrep is available on the system (standard on macOS/Linux)
	IsRunning(ctx context.Context, pattern string) (bool, int, error)
}

// -----------------------------------------------------------------------------
// Implementation
// -----------------------------------------------------------------------------

// DefaultManager implements Manager using os/exec.
//
// This is the production implementation that executes real processes on the
// system. Use MockManager in tests instead.
type DefaultManager struct{}

// NewDefaultManager creates a Manager that executes real processes.
//
// # Outputs
//
//   - *DefaultManager: Ready-to-use process manager
//
// # Examples
//
//	pm := process.NewDefaultManager()
//	stdout, _, _, err := pm.RunInDir(ctx, "", nil, "docker", "version")
func NewDefaultManager() *DefaultManager {
	return &DefaultManager{}
}

// RunInDir executes a command in a working directory with extra environment.
func (pm *DefaultManager) RunInDir(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		exitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		// Include stderr in error for debugging
		if stderr.Len() > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
	}

	return stdout.String(), stderr.String(), exitCode, err
}

// RunStreaming executes a command with output connected to the writer.
func (pm *DefaultManager) RunStreaming(ctx context.Context, dir string, w io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Run(); err != nil {
		// Cancellation kills the child, which surfaces as a non-zero exit.
		// Report the context error instead so callers can distinguish it.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// IsRunning checks if a process matching the pattern exists.
func (pm *DefaultManager) IsRunning(ctx context.Context, pattern string) (bool, int, error) {
	cmd := exec.CommandContext(ctx, "pgrep", "-f", pattern)
	output, err := cmd.Output()

	if err != nil {
		// pgrep returns exit code 1 when no processes found - this is not an error
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("pgrep failed: %w", err)
	}

	// Parse the first PID from output
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) > 0 && lines[0] != "" {
		pid, err := strconv.Atoi(lines[0])
		if err != nil {
			return true, 0, nil // Process found but PID parse failed
		}
		return true, pid, nil
	}

	return false, 0, nil
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockManager is a test double for Manager.
//
// Configure the mock by setting function fields before use. If a function
// field is nil and the corresponding method is called, it will panic.
//
// # Examples
//
//	mock := &MockManager{
//	    RunInDirFunc: func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
//	        if name == "docker" && args[0] == "compose" {
//	            return "prometheus running", "", 0, nil
//	        }
//	        return "", "", 1, fmt.Errorf("unexpected command: %s", name)
//	    },
//	}
type MockManager struct {
	// RunInDirFunc is called when RunInDir is invoked
	RunInDirFunc func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error)

	// RunStreamingFunc is called when RunStreaming is invoked
	RunStreamingFunc func(ctx context.Context, dir string, w io.Writer, name string, args ...string) error

	// IsRunningFunc is called when IsRunning is invoked
	IsRunningFunc func(ctx context.Context, pattern string) (bool, int, error)

	// Calls records all method invocations for verification
	Calls []ManagerCall

	// mu protects Calls for concurrent access
	mu sync.Mutex
}

// ManagerCall records a single method invocation.
type ManagerCall struct {
	Method string
	Dir    string
	Name   string
	Args   []string
	Env    []string
}

// RunInDir delegates to RunInDirFunc and records the call.
func (m *MockManager) RunInDir(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, ManagerCall{
		Method: "RunInDir",
		Dir:    dir,
		Name:   name,
		Args:   args,
		Env:    env,
	})
	m.mu.Unlock()
	if m.RunInDirFunc == nil {
		panic("MockManager.RunInDirFunc not set")
	}
	return m.RunInDirFunc(ctx, dir, env, name, args...)
}

// RunStreaming delegates to RunStreamingFunc and records the call.
func (m *MockManager) RunStreaming(ctx context.Context, dir string, w io.Writer, name string, args ...string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, ManagerCall{
		Method: "RunStreaming",
		Dir:    dir,
		Name:   name,
		Args:   args,
	})
	m.mu.Unlock()
	if m.RunStreamingFunc == nil {
		panic("MockManager.RunStreamingFunc not set")
	}
	return m.RunStreamingFunc(ctx, dir, w, name, args...)
}

// IsRunning delegates to IsRunningFunc and records the call.
func (m *MockManager) IsRunning(ctx context.Context, pattern string) (bool, int, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, ManagerCall{
		Method: "IsRunning",
		Name:   pattern,
	})
	m.mu.Unlock()
	if m.IsRunningFunc == nil {
		panic("MockManager.IsRunningFunc not set")
	}
	return m.IsRunningFunc(ctx, pattern)
}

// Reset clears all recorded calls.
func (m *MockManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// GetCalls returns a copy of all recorded calls.
func (m *MockManager) GetCalls() []ManagerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ManagerCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Compile-time interface compliance check.
var (
	_ Manager = (*DefaultManager)(nil)
	_ Manager = (*MockManager)(nil)
)
