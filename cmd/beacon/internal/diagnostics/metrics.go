// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package diagnostics provides Prometheus metrics for diagnostic collection.

This file implements the DiagnosticsMetrics interface. Since beacon watches a
Prometheus stack, its own metrics land in the same Prometheus, which means the
stack can alert on beacon failing to collect diagnostics.

# Metrics Exported

Collection metrics (diagnostics subsystem):

  - beacon_diagnostics_collections_total: Counter by severity and reason
  - beacon_diagnostics_collection_duration_seconds: Histogram of durations
  - beacon_diagnostics_size_bytes: Histogram of output sizes
  - beacon_diagnostics_errors_total: Counter by error type

Container metrics (container subsystem):

  - beacon_container_health: Gauge by container, service type, status

Retention metrics (diagnostics subsystem):

  - beacon_diagnostics_pruned_total: Counter of pruned diagnostics
  - beacon_diagnostics_stored_count: Gauge of current stored count
*/
package diagnostics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// metricsNamespace is the namespace for all diagnostic metrics.
	metricsNamespace = "beacon"

	// metricsSubsystemDiag is the subsystem for diagnostic collection metrics.
	metricsSubsystemDiag = "diagnostics"

	// metricsSubsystemContainer is the subsystem for container metrics.
	metricsSubsystemContainer = "container"
)

// -----------------------------------------------------------------------------
// NoOpDiagnosticsMetrics Implementation
// -----------------------------------------------------------------------------

// NoOpDiagnosticsMetrics records metrics in memory without export.
//
// # Description
//
// Tracks counts and totals with atomics for local inspection. Used when
// the status server (and its Prometheus registry) is not running, such
// as one-shot CLI invocations and tests.
//
// # Thread Safety
//
// NoOpDiagnosticsMetrics is safe for concurrent use.
type NoOpDiagnosticsMetrics struct {
	collectionsTotal atomic.Int64
	errorsTotal      atomic.Int64
	prunedTotal      atomic.Int64
	storedCount      atomic.Int64
	lastDurationMs   atomic.Int64
	lastSizeBytes    atomic.Int64
}

// NewNoOpDiagnosticsMetrics creates an in-memory metrics recorder.
//
// # Examples
//
//	metrics := NewNoOpDiagnosticsMetrics()
//	metrics.RecordCollection(SeverityError, "startup_failure", 1500, 102400)
//	fmt.Printf("Total collections: %d\n", metrics.GetCollectionsTotal())
func NewNoOpDiagnosticsMetrics() *NoOpDiagnosticsMetrics {
	return &NoOpDiagnosticsMetrics{}
}

// RecordCollection records a successful diagnostic collection.
// Labels (severity, reason) are ignored in no-op mode.
func (m *NoOpDiagnosticsMetrics) RecordCollection(severity DiagnosticsSeverity, reason string, durationMs int64, sizeBytes int64) {
	m.collectionsTotal.Add(1)
	m.lastDurationMs.Store(durationMs)
	m.lastSizeBytes.Store(sizeBytes)
}

// RecordError increments the error counter.
func (m *NoOpDiagnosticsMetrics) RecordError(errorType string) {
	m.errorsTotal.Add(1)
}

// RecordContainerHealth is not tracked in no-op mode.
func (m *NoOpDiagnosticsMetrics) RecordContainerHealth(containerName, serviceType, status string) {
	// No-op: container health not tracked in memory
}

// RecordPruned adds to the pruned counter.
func (m *NoOpDiagnosticsMetrics) RecordPruned(count int) {
	m.prunedTotal.Add(int64(count))
}

// RecordStoredCount sets the current stored count.
func (m *NoOpDiagnosticsMetrics) RecordStoredCount(count int) {
	m.storedCount.Store(int64(count))
}

// Register is a no-op; there are no Prometheus collectors to register.
func (m *NoOpDiagnosticsMetrics) Register() error {
	return nil
}

// GetCollectionsTotal returns the total collection count for testing.
func (m *NoOpDiagnosticsMetrics) GetCollectionsTotal() int64 {
	return m.collectionsTotal.Load()
}

// GetErrorsTotal returns the total error count for testing.
func (m *NoOpDiagnosticsMetrics) GetErrorsTotal() int64 {
	return m.errorsTotal.Load()
}

// GetPrunedTotal returns the total pruned count for testing.
func (m *NoOpDiagnosticsMetrics) GetPrunedTotal() int64 {
	return m.prunedTotal.Load()
}

// GetStoredCount returns the current stored count for testing.
func (m *NoOpDiagnosticsMetrics) GetStoredCount() int64 {
	return m.storedCount.Load()
}

// -----------------------------------------------------------------------------
// PrometheusDiagnosticsMetrics Implementation
// -----------------------------------------------------------------------------

// PrometheusDiagnosticsMetrics exports diagnostics metrics to Prometheus.
//
// # Description
//
// Used by the long-running status server so the monitored Prometheus can
// scrape beacon's own behavior. Call Register() once during startup.
//
// # Thread Safety
//
// PrometheusDiagnosticsMetrics is safe for concurrent use.
type PrometheusDiagnosticsMetrics struct {
	collectionsTotal   *prometheus.CounterVec
	collectionDuration *prometheus.HistogramVec
	collectionSize     *prometheus.HistogramVec
	errorsTotal        *prometheus.CounterVec
	containerHealth    *prometheus.GaugeVec
	prunedTotal        prometheus.Counter
	storedCount        prometheus.Gauge

	// registered tracks if metrics are registered.
	registered bool
	mu         sync.Mutex
}

// NewPrometheusDiagnosticsMetrics creates a Prometheus-backed recorder.
//
// # Description
//
// Creates the metric collectors. Call Register() before recording, or
// observations will be silently dropped by caller code paths that check
// registration.
//
// # Examples
//
//	metrics := NewPrometheusDiagnosticsMetrics()
//	if err := metrics.Register(); err != nil {
//	    log.Fatal(err)
//	}
//	metrics.RecordCollection(SeverityError, "startup_failure", 1500, 102400)
func NewPrometheusDiagnosticsMetrics() *PrometheusDiagnosticsMetrics {
	return &PrometheusDiagnosticsMetrics{
		collectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystemDiag,
				Name:      "collections_total",
				Help:      "Total number of diagnostic collections by severity and reason",
			},
			[]string{"severity", "reason"},
		),

		collectionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystemDiag,
				Name:      "collection_duration_seconds",
				Help:      "Duration of diagnostic collection in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"severity"},
		),

		collectionSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystemDiag,
				Name:      "size_bytes",
				Help:      "Size of diagnostic output in bytes",
				Buckets:   []float64{1024, 10240, 102400, 1048576, 10485760},
			},
			[]string{"severity"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystemDiag,
				Name:      "errors_total",
				Help:      "Total number of diagnostic collection errors by type",
			},
			[]string{"error_type"},
		),

		containerHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystemContainer,
				Name:      "health",
				Help:      "Container health status (1=healthy, 0=unhealthy, -1=unknown)",
			},
			[]string{"container", "service_type", "status"},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystemDiag,
				Name:      "pruned_total",
				Help:      "Total number of diagnostics pruned by retention policy",
			},
		),

		storedCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystemDiag,
				Name:      "stored_count",
				Help:      "Current number of stored diagnostics",
			},
		),
	}
}

// RecordCollection updates the collection counter and histograms.
func (m *PrometheusDiagnosticsMetrics) RecordCollection(severity DiagnosticsSeverity, reason string, durationMs int64, sizeBytes int64) {
	severityStr := string(severity)

	m.collectionsTotal.WithLabelValues(severityStr, reason).Inc()
	m.collectionDuration.WithLabelValues(severityStr).Observe(float64(durationMs) / 1000.0)
	m.collectionSize.WithLabelValues(severityStr).Observe(float64(sizeBytes))
}

// RecordError increments the error counter with the error type label.
// High-cardinality error types cause metric explosion; keep them coarse.
func (m *PrometheusDiagnosticsMetrics) RecordError(errorType string) {
	m.errorsTotal.WithLabelValues(errorType).Inc()
}

// RecordContainerHealth updates the container health gauge.
func (m *PrometheusDiagnosticsMetrics) RecordContainerHealth(containerName, serviceType, status string) {
	var value float64
	switch status {
	case "healthy", "running":
		value = 1
	case "unhealthy", "exited":
		value = 0
	default:
		value = -1
	}
	m.containerHealth.WithLabelValues(containerName, serviceType, status).Set(value)
}

// RecordPruned adds to the pruned counter.
func (m *PrometheusDiagnosticsMetrics) RecordPruned(count int) {
	m.prunedTotal.Add(float64(count))
}

// RecordStoredCount sets the stored count gauge.
func (m *PrometheusDiagnosticsMetrics) RecordStoredCount(count int) {
	m.storedCount.Set(float64(count))
}

// Register registers all metrics with the Prometheus default registry.
//
// # Description
//
// Should be called once during application startup. Calling twice is
// safe; the second call returns nil without re-registering.
//
// # Examples
//
//	if err := metrics.Register(); err != nil {
//	    log.Fatalf("Failed to register metrics: %v", err)
//	}
func (m *PrometheusDiagnosticsMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.collectionsTotal,
		m.collectionDuration,
		m.collectionSize,
		m.errorsTotal,
		m.containerHealth,
		m.prunedTotal,
		m.storedCount,
	}

	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			return err
		}
	}

	m.registered = true
	return nil
}

// -----------------------------------------------------------------------------
// Factory Function
// -----------------------------------------------------------------------------

// NewDefaultDiagnosticsMetrics returns the recorder appropriate for the mode.
//
// # Description
//
// One-shot CLI runs pass false and get the in-memory recorder; the serve
// loop passes true and gets Prometheus export. Prometheus mode still
// needs a Register() call.
//
// # Examples
//
//	metrics := NewDefaultDiagnosticsMetrics(true)
//	if err := metrics.Register(); err != nil {
//	    log.Fatal(err)
//	}
func NewDefaultDiagnosticsMetrics(enablePrometheus bool) DiagnosticsMetrics {
	if enablePrometheus {
		return NewPrometheusDiagnosticsMetrics()
	}
	return NewNoOpDiagnosticsMetrics()
}

// Compile-time interface compliance checks.
var _ DiagnosticsMetrics = (*NoOpDiagnosticsMetrics)(nil)
var _ DiagnosticsMetrics = (*PrometheusDiagnosticsMetrics)(nil)
