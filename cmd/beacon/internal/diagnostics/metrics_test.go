// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diagnostics

import (
	"sync"
	"testing"
)

func TestNoOpDiagnosticsMetrics_Counters(t *testing.T) {
	m := NewNoOpDiagnosticsMetrics()

	m.RecordCollection("info", "manual_request", 1200, 4096)
	m.RecordCollection("error", "smoke_failure", 800, 2048)
	m.RecordError("storage_failure")
	m.RecordPruned(3)
	m.RecordStoredCount(7)

	if got := m.GetCollectionsTotal(); got != 2 {
		t.Errorf("Expected 2 collections, got %d", got)
	}
	if got := m.GetErrorsTotal(); got != 1 {
		t.Errorf("Expected 1 error, got %d", got)
	}
	if got := m.GetPrunedTotal(); got != 3 {
		t.Errorf("Expected 3 pruned, got %d", got)
	}
	if got := m.GetStoredCount(); got != 7 {
		t.Errorf("Expected stored count 7, got %d", got)
	}
}

func TestNoOpDiagnosticsMetrics_Register(t *testing.T) {
	m := NewNoOpDiagnosticsMetrics()
	if err := m.Register(); err != nil {
		t.Errorf("NoOp Register should never fail: %v", err)
	}
}

func TestNoOpDiagnosticsMetrics_ConcurrentAccess(t *testing.T) {
	m := NewNoOpDiagnosticsMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordCollection("info", "manual_request", 10, 100)
				m.RecordError("test")
			}
		}()
	}
	wg.Wait()

	if got := m.GetCollectionsTotal(); got != 1000 {
		t.Errorf("Expected 1000 collections, got %d", got)
	}
	if got := m.GetErrorsTotal(); got != 1000 {
		t.Errorf("Expected 1000 errors, got %d", got)
	}
}

func TestPrometheusDiagnosticsMetrics_RegisterIdempotent(t *testing.T) {
	m := NewPrometheusDiagnosticsMetrics()

	if err := m.Register(); err != nil {
		t.Fatalf("First Register failed: %v", err)
	}
	if err := m.Register(); err != nil {
		t.Errorf("Second Register should be a no-op: %v", err)
	}
}
