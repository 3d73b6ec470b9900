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
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/beacon/cmd/beacon/config"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/history"
)

// Prober checks one service and reports its outcome.
//
// # Description
//
// Decouples the loop from the probing transport. The command layer
// adapts its health checker onto this; tests inject fakes.
type Prober interface {
	// Probe checks one configured service. It must not panic on an
	// unreachable service; unreachable is an unhealthy sample.
	Probe(ctx context.Context, svc config.ServiceConfig) history.ServiceSample
}

// Snapshot is the most recent completed check run.
type Snapshot struct {
	RunID     string                  `json:"run_id"`
	Timestamp time.Time               `json:"timestamp"`
	Healthy   bool                    `json:"healthy"`
	Services  []history.ServiceSample `json:"services"`

	// DurationMs is how long the run took across all services.
	DurationMs int64 `json:"duration_ms"`
}

// Loop periodically probes every configured service, persists the
// results, and keeps the latest snapshot for the status API.
type Loop struct {
	prober   Prober
	store    *history.Store
	interval time.Duration

	// limiter bounds outbound probe requests across all services. Nil
	// means unlimited.
	limiter *rate.Limiter

	mu       sync.RWMutex
	services []config.ServiceConfig
	last     *Snapshot
}

// NewLoop creates a check loop.
//
// # Inputs
//
//   - prober: The per-service probe implementation.
//   - store: Where run results are persisted. May be nil for dry runs.
//   - services: The services to check each cycle.
//   - interval: Time between cycles.
//   - ratePerSecond, burst: Outbound probe rate limit. Zero disables
//     limiting.
func NewLoop(prober Prober, store *history.Store, services []config.ServiceConfig, interval time.Duration, ratePerSecond float64, burst int) *Loop {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
	return &Loop{
		prober:   prober,
		store:    store,
		services: services,
		interval: interval,
		limiter:  limiter,
	}
}

// Run drives check cycles until ctx is cancelled. The first cycle runs
// immediately so the status API has data as soon as the server is up.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.runOnce(ctx)
		}
	}
}

// RunOnce executes a single check cycle and returns its snapshot.
// Exposed for the serve command's --once flag.
func (l *Loop) RunOnce(ctx context.Context) *Snapshot {
	return l.runOnce(ctx)
}

func (l *Loop) runOnce(ctx context.Context) *Snapshot {
	runID := uuid.New().String()
	start := time.Now()

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "check_cycle",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("beacon.run_id", runID)))
	defer span.End()

	services := l.Services()
	samples := make([]history.ServiceSample, len(services))

	g, gctx := errgroup.WithContext(ctx)
	for i, svc := range services {
		g.Go(func() error {
			if l.limiter != nil {
				if err := l.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			samples[i] = l.prober.Probe(gctx, svc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("Check cycle interrupted", "run_id", runID, "error", err)
		return nil
	}

	healthy := true
	for _, sample := range samples {
		if sample.Critical && !sample.Healthy {
			healthy = false
		}
	}

	snapshot := &Snapshot{
		RunID:      runID,
		Timestamp:  start.UTC(),
		Healthy:    healthy,
		Services:   samples,
		DurationMs: time.Since(start).Milliseconds(),
	}
	span.SetAttributes(
		attribute.Bool("beacon.healthy", healthy),
		attribute.Int("beacon.services", len(samples)),
	)

	if l.store != nil {
		record := history.CheckRecord{
			RunID:     runID,
			Timestamp: snapshot.Timestamp,
			Healthy:   healthy,
			Services:  samples,
		}
		if err := l.store.Append(record); err != nil {
			slog.Error("Failed to persist check record", "run_id", runID, "error", err)
		}
	}

	l.mu.Lock()
	l.last = snapshot
	l.mu.Unlock()

	if !healthy {
		slog.Warn("Check cycle found critical failures", "run_id", runID)
	}
	return snapshot
}

// Last returns the most recent snapshot, nil before the first cycle
// completes.
func (l *Loop) Last() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}

// Services returns the current service set.
func (l *Loop) Services() []config.ServiceConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]config.ServiceConfig, len(l.services))
	copy(out, l.services)
	return out
}

// UpdateServices swaps the service set. Called on config reload; takes
// effect on the next cycle.
func (l *Loop) UpdateServices(services []config.ServiceConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = make([]config.ServiceConfig, len(services))
	copy(l.services, services)
	slog.Info("Service set updated", "count", len(services))
}
