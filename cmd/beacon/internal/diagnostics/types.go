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
Package diagnostics gathers troubleshooting snapshots of the monitoring stack.

A collection captures the host environment, Docker state, container logs, and
recent health results into a single artifact that can be attached to a support
ticket or uploaded to GCS. Types in this file are designed for:

  - JSON serialization for Loki ingestion
  - OpenTelemetry trace correlation
  - Prometheus metric labeling
*/
package diagnostics

import (
	"time"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

// DefaultRetentionDays is the default retention period for stored diagnostics.
const DefaultRetentionDays = 30

// DefaultContainerLogLines is the default number of log lines per container.
const DefaultContainerLogLines = 50

// DiagnosticsVersion is the current schema version for diagnostic output.
const DiagnosticsVersion = "1.0.0"

// -----------------------------------------------------------------------------
// Severity Types
// -----------------------------------------------------------------------------

// DiagnosticsSeverity indicates the urgency level of a diagnostic collection.
//
// Severity affects:
//   - Prometheus metric labels for alerting
//   - Display priority when listing stored diagnostics
type DiagnosticsSeverity string

const (
	// SeverityInfo indicates routine diagnostic collection.
	// Example: Manual `beacon diag` while everything is green.
	SeverityInfo DiagnosticsSeverity = "info"

	// SeverityWarning indicates a recoverable issue was detected.
	// Example: An optional service (tempo) failed its readiness probe.
	SeverityWarning DiagnosticsSeverity = "warning"

	// SeverityError indicates an operation failed.
	// Example: Stack startup timed out waiting for Prometheus.
	SeverityError DiagnosticsSeverity = "error"

	// SeverityCritical indicates a crash or data loss scenario.
	// Example: Loki ingester reporting a full WAL.
	SeverityCritical DiagnosticsSeverity = "critical"
)

// IsValid returns true if the severity is a known value.
//
// # Examples
//
//	if !severity.IsValid() {
//	    severity = SeverityInfo
//	}
func (s DiagnosticsSeverity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity.
func (s DiagnosticsSeverity) String() string {
	return string(s)
}

// -----------------------------------------------------------------------------
// Collection Options
// -----------------------------------------------------------------------------

// CollectOptions configures a diagnostic collection operation.
//
// All fields have sensible defaults; only Reason is required for meaningful
// diagnostics.
type CollectOptions struct {
	// Reason describes why diagnostics are being collected.
	// Used for Prometheus labels and filtering.
	// Examples: "startup_failure", "manual_request", "smoke_failure"
	Reason string

	// Details provides additional context about the situation.
	// Included in diagnostic output but not used for labeling.
	Details string

	// Severity indicates urgency level.
	// Default: SeverityInfo
	Severity DiagnosticsSeverity

	// IncludeContainerLogs enables container log collection.
	// Default: false (logs can be large)
	IncludeContainerLogs bool

	// ContainerLogLines limits log lines per container.
	// Default: 50
	ContainerLogLines int

	// Tags for categorization and filtering.
	// Added to storage metadata and JSON output.
	// Example: {"component": "stack", "environment": "staging"}
	Tags map[string]string
}

// WithDefaults returns a copy of options with defaults applied.
//
// # Examples
//
//	opts := CollectOptions{Reason: "test"}.WithDefaults()
//	// opts.Severity == SeverityInfo
//	// opts.ContainerLogLines == 50
func (o CollectOptions) WithDefaults() CollectOptions {
	if !o.Severity.IsValid() {
		o.Severity = SeverityInfo
	}
	if o.ContainerLogLines <= 0 {
		o.ContainerLogLines = DefaultContainerLogLines
	}
	if o.Tags == nil {
		o.Tags = make(map[string]string)
	}
	return o
}

// -----------------------------------------------------------------------------
// Collection Result
// -----------------------------------------------------------------------------

// DiagnosticsResult contains the outcome of a collection operation.
//
// This is returned by DiagnosticsCollector.Collect and contains everything
// needed for support tickets and debugging.
type DiagnosticsResult struct {
	// Location is the storage path or URI where diagnostics were saved.
	// Format depends on storage backend:
	//   - File: "/path/to/diag-20240105-100000.json"
	//   - GCS: "gs://bucket/diagnostics/diag-xxx.json"
	Location string

	// TraceID is the trace ID for correlating this collection with other
	// telemetry. Users provide this ID instead of pasting raw logs.
	TraceID string

	// SpanID identifies this specific collection.
	SpanID string

	// TimestampMs is when collection started (Unix milliseconds).
	TimestampMs int64

	// DurationMs is how long collection took (milliseconds).
	DurationMs int64

	// Format is the output format used ("json" or "text").
	Format string

	// SizeBytes is the size of the formatted output.
	SizeBytes int64

	// Error contains error message if collection partially failed.
	// Empty string if fully successful.
	Error string
}

// Timestamp returns the collection start time as time.Time.
func (r *DiagnosticsResult) Timestamp() time.Time {
	return time.UnixMilli(r.TimestampMs)
}

// Duration returns the collection duration as time.Duration.
func (r *DiagnosticsResult) Duration() time.Duration {
	return time.Duration(r.DurationMs) * time.Millisecond
}

// IsSuccess returns true if collection completed without critical errors.
func (r *DiagnosticsResult) IsSuccess() bool {
	return r.Error == ""
}

// -----------------------------------------------------------------------------
// Diagnostic Data Structures
// -----------------------------------------------------------------------------

// DiagnosticsData contains all collected diagnostic information.
//
// This is the primary data structure passed to DiagnosticsFormatter.
// Designed for JSON serialization with Loki compatibility.
type DiagnosticsData struct {
	// Header contains metadata about the collection.
	Header DiagnosticsHeader `json:"header"`

	// System contains OS and architecture information.
	System SystemInfo `json:"system"`

	// Docker contains Docker daemon and container state.
	Docker DockerInfo `json:"docker"`

	// ContainerLogs contains logs from each container.
	// Only populated if CollectOptions.IncludeContainerLogs is true.
	ContainerLogs []ContainerLog `json:"container_logs,omitempty"`

	// Tags are custom key-value pairs for categorization.
	Tags map[string]string `json:"tags,omitempty"`
}

// DiagnosticsHeader contains metadata about the collection.
//
// Fields are designed for indexing and filtering in Loki.
type DiagnosticsHeader struct {
	// Version is the diagnostic schema version.
	Version string `json:"version"`

	// TimestampMs is when collection started (Unix milliseconds).
	TimestampMs int64 `json:"timestamp_ms"`

	// TraceID is the trace ID for correlation.
	TraceID string `json:"trace_id"`

	// SpanID identifies this collection.
	SpanID string `json:"span_id"`

	// Reason describes why diagnostics were collected.
	Reason string `json:"reason"`

	// Details provides additional context.
	Details string `json:"details"`

	// Severity indicates the urgency level.
	Severity DiagnosticsSeverity `json:"severity"`

	// DurationMs is how long collection took.
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// Timestamp returns the header timestamp as time.Time.
func (h *DiagnosticsHeader) Timestamp() time.Time {
	return time.UnixMilli(h.TimestampMs)
}

// SystemInfo contains OS and runtime information.
type SystemInfo struct {
	// OS is the operating system (e.g., "darwin", "linux").
	OS string `json:"os"`

	// Arch is the CPU architecture (e.g., "amd64", "arm64").
	Arch string `json:"arch"`

	// Hostname is the machine hostname.
	Hostname string `json:"hostname"`

	// GoVersion is the Go runtime version.
	GoVersion string `json:"go_version"`

	// BeaconVersion is the Beacon CLI version.
	BeaconVersion string `json:"beacon_version,omitempty"`
}

// DockerInfo contains Docker daemon state information.
type DockerInfo struct {
	// Version is the Docker client version string.
	Version string `json:"version"`

	// Available indicates if Docker is installed and accessible.
	Available bool `json:"available"`

	// Containers contains running/stopped Beacon stack containers.
	Containers []ContainerInfo `json:"containers,omitempty"`

	// Error contains error message if Docker commands failed.
	Error string `json:"error,omitempty"`
}

// ContainerInfo contains information about a single container.
type ContainerInfo struct {
	// ID is the container ID (short form).
	ID string `json:"id"`

	// Name is the container name.
	Name string `json:"name"`

	// State is the container state ("running", "exited", etc.).
	State string `json:"state"`

	// Image is the container image name.
	Image string `json:"image"`

	// ServiceType categorizes the service (for Prometheus labels).
	// Examples: "metrics", "logs", "traces", "dashboards", "alerting"
	ServiceType string `json:"service_type,omitempty"`

	// CreatedAt is when the container was created (Unix milliseconds).
	CreatedAt int64 `json:"created_at,omitempty"`
}

// ContainerLog contains logs from a single container.
type ContainerLog struct {
	// Name is the container name.
	Name string `json:"name"`

	// Logs is the captured log content.
	Logs string `json:"logs"`

	// LineCount is the number of lines captured.
	LineCount int `json:"line_count"`

	// Truncated indicates if logs were cut off.
	Truncated bool `json:"truncated,omitempty"`

	// Error contains error message if log collection failed.
	Error string `json:"error,omitempty"`
}

// -----------------------------------------------------------------------------
// Storage Types
// -----------------------------------------------------------------------------

// StorageMetadata provides hints for storage operations.
type StorageMetadata struct {
	// FilenameHint is the suggested filename (without path).
	// Storage backend may modify this (e.g., add timestamp).
	FilenameHint string

	// ContentType is the MIME type of the data.
	// Examples: "application/json", "application/gzip"
	ContentType string

	// Tags are key-value pairs for organization/filtering.
	// May be stored as object metadata (GCS).
	Tags map[string]string
}
