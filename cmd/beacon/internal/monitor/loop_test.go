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
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/beacon/cmd/beacon/config"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/history"
)

// fakeProber reports health per service name and counts probes.
type fakeProber struct {
	mu        sync.Mutex
	unhealthy map[string]bool
	probes    int
}

func (f *fakeProber) Probe(ctx context.Context, svc config.ServiceConfig) history.ServiceSample {
	f.mu.Lock()
	f.probes++
	down := f.unhealthy[svc.Name]
	f.mu.Unlock()
	return history.ServiceSample{
		Name:      svc.Name,
		Healthy:   !down,
		Critical:  svc.Critical,
		LatencyMs: 5,
	}
}

func (f *fakeProber) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

func testServices() []config.ServiceConfig {
	return []config.ServiceConfig{
		{Name: "prometheus", URL: "http://localhost:9090", Critical: true},
		{Name: "grafana", URL: "http://localhost:3000", Critical: true},
		{Name: "tempo", URL: "http://localhost:3200", Critical: false},
	}
}

func newTestHistory(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.OpenInMemory(7)
	if err != nil {
		t.Fatalf("OpenInMemory failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoopRunOnce_AllHealthy(t *testing.T) {
	prober := &fakeProber{}
	store := newTestHistory(t)
	loop := NewLoop(prober, store, testServices(), time.Minute, 0, 0)

	snapshot := loop.RunOnce(context.Background())

	if snapshot == nil {
		t.Fatal("expected snapshot")
	}
	if !snapshot.Healthy {
		t.Error("expected healthy snapshot")
	}
	if len(snapshot.Services) != 3 {
		t.Errorf("got %d services, want 3", len(snapshot.Services))
	}
	if snapshot.RunID == "" {
		t.Error("RunID not assigned")
	}
	if prober.probeCount() != 3 {
		t.Errorf("probes = %d, want 3", prober.probeCount())
	}

	// The run was persisted.
	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("stored records = %d, want 1", count)
	}
}

func TestLoopRunOnce_CriticalFailure(t *testing.T) {
	prober := &fakeProber{unhealthy: map[string]bool{"prometheus": true}}
	loop := NewLoop(prober, nil, testServices(), time.Minute, 0, 0)

	snapshot := loop.RunOnce(context.Background())

	if snapshot.Healthy {
		t.Error("critical failure must make the snapshot unhealthy")
	}
}

func TestLoopRunOnce_NonCriticalFailureStaysHealthy(t *testing.T) {
	prober := &fakeProber{unhealthy: map[string]bool{"tempo": true}}
	loop := NewLoop(prober, nil, testServices(), time.Minute, 0, 0)

	snapshot := loop.RunOnce(context.Background())

	if !snapshot.Healthy {
		t.Error("non-critical failure must not make the snapshot unhealthy")
	}
}

func TestLoopLast(t *testing.T) {
	prober := &fakeProber{}
	loop := NewLoop(prober, nil, testServices(), time.Minute, 0, 0)

	if loop.Last() != nil {
		t.Error("Last should be nil before the first cycle")
	}

	snapshot := loop.RunOnce(context.Background())
	if loop.Last() != snapshot {
		t.Error("Last should return the most recent snapshot")
	}
}

func TestLoopUpdateServices(t *testing.T) {
	prober := &fakeProber{}
	loop := NewLoop(prober, nil, testServices(), time.Minute, 0, 0)

	loop.UpdateServices([]config.ServiceConfig{
		{Name: "loki", URL: "http://localhost:3100", Critical: true},
	})

	snapshot := loop.RunOnce(context.Background())
	if len(snapshot.Services) != 1 {
		t.Fatalf("got %d services, want 1", len(snapshot.Services))
	}
	if snapshot.Services[0].Name != "loki" {
		t.Errorf("service = %s, want loki", snapshot.Services[0].Name)
	}
}

func TestLoopRun_CancelStops(t *testing.T) {
	prober := &fakeProber{}
	loop := NewLoop(prober, nil, testServices(), 10*time.Millisecond, 0, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := loop.Run(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("Run returned %v, want context.DeadlineExceeded", err)
	}
	// Immediate first cycle plus at least one tick.
	if prober.probeCount() < 6 {
		t.Errorf("probes = %d, want at least 6", prober.probeCount())
	}
}

func TestLoopRateLimiter_Bounds(t *testing.T) {
	// 3 services at 10/s with burst 1 needs roughly 200ms for the
	// second and third probes.
	prober := &fakeProber{}
	loop := NewLoop(prober, nil, testServices(), time.Minute, 10, 1)

	start := time.Now()
	loop.RunOnce(context.Background())
	elapsed := time.Since(start)

	if elapsed < 150*time.Millisecond {
		t.Errorf("rate limiter not applied: cycle took %v", elapsed)
	}
}
