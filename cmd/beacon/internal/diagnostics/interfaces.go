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
	"context"
)

// DiagnosticsCollector gathers troubleshooting data about the stack.
//
// # Description
//
// A collector assembles system, Docker, and log information into a single
// diagnostic snapshot, formats it, and hands it to a storage backend.
// The returned result carries the storage location and a trace ID that
// users can quote in support tickets.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
//
// # Examples
//
//	result, err := collector.Collect(ctx, CollectOptions{
//	    Reason:   "startup_failure",
//	    Severity: SeverityError,
//	})
//	fmt.Printf("Saved to %s (trace %s)\n", result.Location, result.TraceID)
type DiagnosticsCollector interface {
	// Collect gathers diagnostics and stores them, returning the outcome.
	Collect(ctx context.Context, opts CollectOptions) (*DiagnosticsResult, error)

	// GetLastResult returns the most recent collection result, or nil.
	GetLastResult() *DiagnosticsResult
}

// DiagnosticsFormatter converts collected data to an output format.
//
// # Description
//
// Formatters turn a DiagnosticsData structure into bytes suitable for
// storage or display. JSON is used for machine ingestion (Loki), text
// for humans reading a terminal.
type DiagnosticsFormatter interface {
	// Format serializes the data.
	Format(data *DiagnosticsData) ([]byte, error)

	// ContentType returns the MIME type of the formatted output.
	ContentType() string

	// FileExtension returns the extension including the dot, e.g. ".json".
	FileExtension() string
}

// DiagnosticsStorage persists formatted diagnostic output.
//
// # Description
//
// Storage backends decide where diagnostics live: the local filesystem
// for single-machine debugging, or GCS for sharing with an operations
// team. Store returns a location string that Load accepts back.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type DiagnosticsStorage interface {
	// Store persists data and returns its location.
	Store(ctx context.Context, data []byte, metadata StorageMetadata) (string, error)

	// Load retrieves previously stored data by location.
	Load(ctx context.Context, location string) ([]byte, error)

	// List returns locations of stored diagnostics, newest first.
	// A limit of zero or less returns everything.
	List(ctx context.Context, limit int) ([]string, error)

	// Prune removes diagnostics older than the retention period and
	// returns how many were deleted.
	Prune(ctx context.Context) (int, error)

	// Type identifies the backend, e.g. "file" or "gcs".
	Type() string
}

// DiagnosticsMetrics records collection metrics for monitoring.
//
// # Description
//
// The metrics recorder feeds the stack's own Prometheus so that beacon
// can be observed by the tools it watches. The no-op implementation
// tracks values in memory for environments without Prometheus.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type DiagnosticsMetrics interface {
	// RecordCollection records a successful diagnostic collection.
	RecordCollection(severity DiagnosticsSeverity, reason string, durationMs int64, sizeBytes int64)

	// RecordError records a collection error by category.
	RecordError(errorType string)

	// RecordContainerHealth records a container health observation.
	RecordContainerHealth(containerName, serviceType, status string)

	// RecordPruned records diagnostics removed by retention policy.
	RecordPruned(count int)

	// RecordStoredCount updates the current stored diagnostics count.
	RecordStoredCount(count int)

	// Register registers collectors with Prometheus. No-op backends
	// return nil.
	Register() error
}
