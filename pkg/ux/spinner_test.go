// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"errors"
	"strings"
	"testing"
)

func TestSpinner_MachineMode_PrintsOnce(t *testing.T) {
	SetPersonalityLevel(PersonalityMachine)
	defer SetPersonalityLevel(PersonalityFull)

	out := captureStdout(func() {
		s := NewSpinner("waiting for prometheus")
		s.Start()
		s.Stop()
	})
	if !strings.Contains(out, "PROGRESS: waiting for prometheus") {
		t.Errorf("expected PROGRESS line, got %q", out)
	}
}

func TestSpinner_DoubleStartIsNoop(t *testing.T) {
	SetPersonalityLevel(PersonalityMachine)
	defer SetPersonalityLevel(PersonalityFull)

	out := captureStdout(func() {
		s := NewSpinner("probing")
		s.Start()
		s.Start()
		s.Stop()
	})
	if strings.Count(out, "PROGRESS:") != 1 {
		t.Errorf("expected exactly one PROGRESS line, got %q", out)
	}
}

func TestSpinner_StopWithoutStart(t *testing.T) {
	s := NewSpinner("idle")
	// Must not panic or block
	s.Stop()
}

func TestSpinner_WithType(t *testing.T) {
	s := NewSpinner("probing").WithType(SpinnerCompass)
	if s.spinType != SpinnerCompass {
		t.Errorf("expected compass spinner type, got %d", s.spinType)
	}
}

func TestWithSpinner_Success(t *testing.T) {
	SetPersonalityLevel(PersonalityMachine)
	defer SetPersonalityLevel(PersonalityFull)

	out := captureStdout(func() {
		err := WithSpinner("checking loki", func() error { return nil })
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, "OK: checking loki") {
		t.Errorf("expected OK line, got %q", out)
	}
}

func TestWithSpinner_Error(t *testing.T) {
	SetPersonalityLevel(PersonalityMachine)
	defer SetPersonalityLevel(PersonalityFull)

	wantErr := errors.New("connection refused")
	errOut := captureStderr(func() {
		err := WithSpinner("checking tempo", func() error { return wantErr })
		if !errors.Is(err, wantErr) {
			t.Errorf("expected original error back, got %v", err)
		}
	})
	if !strings.Contains(errOut, "connection refused") {
		t.Errorf("expected error detail on stderr, got %q", errOut)
	}
}

func TestProgressSpinner_Increment(t *testing.T) {
	SetPersonalityLevel(PersonalityMachine)
	defer SetPersonalityLevel(PersonalityFull)

	p := NewProgressSpinner("running smoke checks", 3)
	p.Increment()
	p.Increment()
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()
	if current != 2 {
		t.Errorf("expected current=2, got %d", current)
	}
}
