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
Package diagnostics provides DefaultDiagnosticsCollector for gathering snapshots.

The DefaultDiagnosticsCollector collects:

  - System information (OS, architecture, hostname, versions)
  - Docker state (version, containers in the beacon stack)
  - Container logs (optional)

Collected data is formatted and handed to a pluggable storage backend.
The returned trace ID correlates the snapshot with traces exported by the
serve loop.
*/
package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/beacon/cmd/beacon/internal/infra/process"
)

// DefaultDiagnosticsCollector gathers system and container diagnostics.
//
// # Description
//
// The collector shells out to docker through a process.Manager, so tests
// inject a MockManager and never touch a real daemon. Formatter and
// storage backends are pluggable.
//
// # Thread Safety
//
// DefaultDiagnosticsCollector is safe for concurrent use.
// Multiple goroutines can call Collect() concurrently.
type DefaultDiagnosticsCollector struct {
	// proc executes external commands (docker).
	proc process.Manager

	// formatter converts collected data to output format.
	formatter DiagnosticsFormatter

	// storage persists formatted output.
	storage DiagnosticsStorage

	// lastResult caches the most recent collection result.
	lastResult *DiagnosticsResult

	// mu protects lastResult and other mutable state.
	mu sync.RWMutex

	// beaconVersion is the CLI version string.
	beaconVersion string

	// metricsRecorder records collection metrics (nil if no metrics).
	metricsRecorder DiagnosticsMetrics

	// containerFilter selects stack containers by name prefix.
	containerFilter string
}

// NewDefaultDiagnosticsCollector creates a collector with default settings.
//
// # Description
//
// Uses DefaultManager for docker commands, JSON formatting, and file
// storage under ~/.beacon/diagnostics.
//
// # Inputs
//
//   - version: Beacon CLI version string (e.g., "0.3.0")
//
// # Outputs
//
//   - *DefaultDiagnosticsCollector: Ready-to-use collector
//   - error: Non-nil if storage initialization fails
//
// # Examples
//
//	collector, err := NewDefaultDiagnosticsCollector("0.3.0")
//	if err != nil {
//	    return err
//	}
//	result, err := collector.Collect(ctx, CollectOptions{Reason: "startup_failure"})
//
// # Limitations
//
//   - Requires docker to be installed for container info (degrades gracefully)
//
// # Assumptions
//
//   - Filesystem is writable for storage
func NewDefaultDiagnosticsCollector(version string) (*DefaultDiagnosticsCollector, error) {
	storage, err := NewFileDiagnosticsStorage("")
	if err != nil {
		return nil, fmt.Errorf("failed to create diagnostics storage: %w", err)
	}

	return &DefaultDiagnosticsCollector{
		proc:            process.NewDefaultManager(),
		formatter:       NewJSONDiagnosticsFormatter(),
		storage:         storage,
		beaconVersion:   version,
		containerFilter: "beacon",
	}, nil
}

// NewDiagnosticsCollectorWithDeps creates a collector with injected dependencies.
//
// # Description
//
// Full dependency injection for unit testing or alternative backends.
//
// # Inputs
//
//   - pm: process.Manager for external commands (use MockManager in tests)
//   - formatter: DiagnosticsFormatter for output format
//   - storage: DiagnosticsStorage for persistence
//   - version: Beacon CLI version string
//
// # Examples
//
//	mock := &process.MockManager{...}
//	collector := NewDiagnosticsCollectorWithDeps(
//	    mock, NewJSONDiagnosticsFormatter(), mockStorage, "test")
func NewDiagnosticsCollectorWithDeps(
	pm process.Manager,
	formatter DiagnosticsFormatter,
	storage DiagnosticsStorage,
	version string,
) *DefaultDiagnosticsCollector {
	return &DefaultDiagnosticsCollector{
		proc:            pm,
		formatter:       formatter,
		storage:         storage,
		beaconVersion:   version,
		containerFilter: "beacon",
	}
}

// Collect gathers system diagnostics and stores them.
//
// # Description
//
// Collects system information, Docker state, and optional container logs.
// The collected data is formatted and stored, returning a result with the
// storage location and a trace ID for support tickets.
//
// # Inputs
//
//   - ctx: Context for cancellation and timeout
//   - opts: Collection options (reason, severity, what to include)
//
// # Outputs
//
//   - *DiagnosticsResult: Collection outcome with location and trace ID
//   - error: Non-nil if formatting or storage fails
//
// # Examples
//
//	result, err := collector.Collect(ctx, CollectOptions{
//	    Reason:               "smoke_failure",
//	    Severity:             SeverityError,
//	    IncludeContainerLogs: true,
//	})
//	fmt.Printf("Diagnostics saved to: %s\n", result.Location)
//
// # Limitations
//
//   - Container logs may be truncated for noisy containers
//
// # Assumptions
//
//   - Docker is installed and accessible (degrades gracefully if not)
//   - Storage backend is writable
func (c *DefaultDiagnosticsCollector) Collect(ctx context.Context, opts CollectOptions) (*DiagnosticsResult, error) {
	startTime := time.Now()
	opts = opts.WithDefaults()

	traceID := c.generateTraceID()
	spanID := c.generateSpanID()

	data := c.buildDiagnosticsData(ctx, opts, traceID, spanID, startTime)

	durationMs := time.Since(startTime).Milliseconds()
	data.Header.DurationMs = durationMs

	result, err := c.formatAndStore(ctx, data, opts)
	if err != nil {
		c.recordError("storage_failure")
		return nil, err
	}

	result.TraceID = traceID
	result.SpanID = spanID
	result.TimestampMs = startTime.UnixMilli()
	result.DurationMs = durationMs

	c.cacheResult(result)
	c.recordMetrics(opts, durationMs, result.SizeBytes)
	c.recordContainerHealth(data.Docker.Containers)

	return result, nil
}

// GetLastResult returns the most recent collection result.
//
// # Outputs
//
//   - *DiagnosticsResult: Last result, or nil if never collected
func (c *DefaultDiagnosticsCollector) GetLastResult() *DiagnosticsResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastResult
}

// SetStorage replaces the storage backend.
//
// # Description
//
// Allows swapping backends after construction, e.g. switching to GCS
// when the config names a bucket.
func (c *DefaultDiagnosticsCollector) SetStorage(storage DiagnosticsStorage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storage = storage
}

// SetFormatter replaces the output formatter.
func (c *DefaultDiagnosticsCollector) SetFormatter(formatter DiagnosticsFormatter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.formatter = formatter
}

// SetMetrics sets the metrics recorder for Prometheus integration.
// Pass nil to disable metrics.
func (c *DefaultDiagnosticsCollector) SetMetrics(recorder DiagnosticsMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metricsRecorder = recorder
}

// -----------------------------------------------------------------------------
// Private Methods - Data Building
// -----------------------------------------------------------------------------

// buildDiagnosticsData assembles all diagnostic components based on options.
func (c *DefaultDiagnosticsCollector) buildDiagnosticsData(
	ctx context.Context,
	opts CollectOptions,
	traceID, spanID string,
	startTime time.Time,
) *DiagnosticsData {
	data := &DiagnosticsData{
		Header: DiagnosticsHeader{
			Version:     DiagnosticsVersion,
			TimestampMs: startTime.UnixMilli(),
			TraceID:     traceID,
			SpanID:      spanID,
			Reason:      opts.Reason,
			Details:     opts.Details,
			Severity:    opts.Severity,
		},
		Tags: opts.Tags,
	}

	data.System = c.collectSystemInfo()
	data.Docker = c.collectDockerInfo(ctx)

	if opts.IncludeContainerLogs && data.Docker.Available {
		data.ContainerLogs = c.collectContainerLogs(ctx, data.Docker.Containers, opts.ContainerLogLines)
	}

	return data
}

// formatAndStore formats data and persists it, returning a partial result.
func (c *DefaultDiagnosticsCollector) formatAndStore(
	ctx context.Context,
	data *DiagnosticsData,
	opts CollectOptions,
) (*DiagnosticsResult, error) {
	c.mu.RLock()
	formatter := c.formatter
	storage := c.storage
	c.mu.RUnlock()

	output, err := formatter.Format(data)
	if err != nil {
		return nil, fmt.Errorf("failed to format diagnostics: %w", err)
	}

	location, err := storage.Store(ctx, output, StorageMetadata{
		FilenameHint: opts.Reason,
		ContentType:  formatter.ContentType(),
		Tags:         opts.Tags,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store diagnostics: %w", err)
	}

	return &DiagnosticsResult{
		Location:  location,
		Format:    formatter.FileExtension(),
		SizeBytes: int64(len(output)),
	}, nil
}

// cacheResult stores the result for GetLastResult().
func (c *DefaultDiagnosticsCollector) cacheResult(result *DiagnosticsResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastResult = result
}

// recordMetrics records collection metrics if a recorder is set.
func (c *DefaultDiagnosticsCollector) recordMetrics(opts CollectOptions, durationMs, sizeBytes int64) {
	c.mu.RLock()
	recorder := c.metricsRecorder
	c.mu.RUnlock()

	if recorder != nil {
		recorder.RecordCollection(opts.Severity, opts.Reason, durationMs, sizeBytes)
	}
}

// recordError records a collection error if a recorder is set.
func (c *DefaultDiagnosticsCollector) recordError(errorType string) {
	c.mu.RLock()
	recorder := c.metricsRecorder
	c.mu.RUnlock()

	if recorder != nil {
		recorder.RecordError(errorType)
	}
}

// recordContainerHealth feeds container states to the recorder.
func (c *DefaultDiagnosticsCollector) recordContainerHealth(containers []ContainerInfo) {
	c.mu.RLock()
	recorder := c.metricsRecorder
	c.mu.RUnlock()

	if recorder == nil {
		return
	}
	for _, ct := range containers {
		recorder.RecordContainerHealth(ct.Name, ct.ServiceType, ct.State)
	}
}

// -----------------------------------------------------------------------------
// Private Methods - System Collection
// -----------------------------------------------------------------------------

// collectSystemInfo gathers OS and runtime information.
func (c *DefaultDiagnosticsCollector) collectSystemInfo() SystemInfo {
	hostname, _ := os.Hostname()

	return SystemInfo{
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		Hostname:      hostname,
		GoVersion:     runtime.Version(),
		BeaconVersion: c.beaconVersion,
	}
}

// collectDockerInfo checks Docker availability and enumerates stack
// containers. Degrades gracefully if Docker is not installed.
func (c *DefaultDiagnosticsCollector) collectDockerInfo(ctx context.Context) DockerInfo {
	info := DockerInfo{
		Available: false,
	}

	version, err := c.getDockerVersion(ctx)
	if err != nil {
		info.Error = fmt.Sprintf("docker not available: %v", err)
		return info
	}

	info.Available = true
	info.Version = version
	info.Containers = c.collectContainerInfo(ctx)

	return info
}

// getDockerVersion retrieves the Docker client version string.
func (c *DefaultDiagnosticsCollector) getDockerVersion(ctx context.Context) (string, error) {
	stdout, _, _, err := c.proc.RunInDir(ctx, "", nil, "docker",
		"version", "--format", "{{.Client.Version}}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}

// collectContainerInfo lists stack containers via `docker ps`.
func (c *DefaultDiagnosticsCollector) collectContainerInfo(ctx context.Context) []ContainerInfo {
	stdout, _, _, err := c.proc.RunInDir(ctx, "", nil, "docker",
		"ps", "-a",
		"--filter", "name="+c.containerFilter,
		"--format", "{{json .}}")
	if err != nil {
		return nil
	}

	return c.parseContainerList(stdout)
}

// parseContainerList parses `docker ps --format '{{json .}}'` output,
// which emits one JSON object per line.
func (c *DefaultDiagnosticsCollector) parseContainerList(output string) []ContainerInfo {
	var result []ContainerInfo

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var row struct {
			ID        string `json:"ID"`
			Names     string `json:"Names"`
			State     string `json:"State"`
			Image     string `json:"Image"`
			CreatedAt string `json:"CreatedAt"`
		}
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			continue
		}

		result = append(result, ContainerInfo{
			ID:          shortenContainerID(row.ID),
			Name:        row.Names,
			State:       row.State,
			Image:       row.Image,
			ServiceType: inferServiceType(row.Names),
			CreatedAt:   parseDockerTimestamp(row.CreatedAt),
		})
	}

	return result
}

// collectContainerLogs gathers logs from each container, respecting
// per-container line limits.
func (c *DefaultDiagnosticsCollector) collectContainerLogs(
	ctx context.Context,
	containers []ContainerInfo,
	maxLines int,
) []ContainerLog {
	if len(containers) == 0 {
		return nil
	}

	logs := make([]ContainerLog, 0, len(containers))
	for _, container := range containers {
		logs = append(logs, c.getContainerLog(ctx, container, maxLines))
	}

	return logs
}

// getContainerLog retrieves logs for a single running container.
func (c *DefaultDiagnosticsCollector) getContainerLog(
	ctx context.Context,
	container ContainerInfo,
	maxLines int,
) ContainerLog {
	log := ContainerLog{
		Name: container.Name,
	}

	if container.State != "running" {
		log.Logs = "(container not running)"
		return log
	}

	// docker logs writes to stderr for most images; capture both.
	stdout, stderr, _, err := c.proc.RunInDir(ctx, "", nil, "docker",
		"logs", "--tail", fmt.Sprintf("%d", maxLines), container.Name)
	if err != nil {
		log.Error = fmt.Sprintf("failed to get logs: %v", err)
		return log
	}

	combined := stdout
	if stderr != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += stderr
	}

	log.Logs = combined
	log.LineCount = countLines(combined)
	log.Truncated = log.LineCount >= maxLines

	return log
}

// -----------------------------------------------------------------------------
// Private Methods - ID Generation
// -----------------------------------------------------------------------------

// generateTraceID creates a trace ID for correlation.
func (c *DefaultDiagnosticsCollector) generateTraceID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())
}

// generateSpanID creates a span ID for this collection.
func (c *DefaultDiagnosticsCollector) generateSpanID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// -----------------------------------------------------------------------------
// Package-Level Helper Functions
// -----------------------------------------------------------------------------

// shortenContainerID returns the first 12 characters of a container ID,
// matching docker's own short-ID convention.
func shortenContainerID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// inferServiceType maps container name patterns to service type labels.
//
// # Examples
//
//	inferServiceType("beacon-prometheus") // "metrics"
//	inferServiceType("beacon-loki")       // "logs"
//	inferServiceType("unknown-container") // ""
func inferServiceType(name string) string {
	switch {
	case strings.Contains(name, "prometheus"):
		return "metrics"
	case strings.Contains(name, "loki") || strings.Contains(name, "promtail"):
		return "logs"
	case strings.Contains(name, "tempo"):
		return "traces"
	case strings.Contains(name, "grafana"):
		return "dashboards"
	case strings.Contains(name, "alertmanager"):
		return "alerting"
	case strings.Contains(name, "exporter"):
		return "exporter"
	default:
		return ""
	}
}

// countLines returns the number of lines in a string (0 for empty).
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// parseDockerTimestamp parses docker's CreatedAt format to Unix milliseconds.
// Returns 0 if the format is unrecognized.
func parseDockerTimestamp(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	// docker ps emits "2024-01-05 10:00:00 +0000 UTC"
	t, err := time.Parse("2006-01-02 15:04:05 -0700 MST", s)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

// Compile-time interface compliance check.
var _ DiagnosticsCollector = (*DefaultDiagnosticsCollector)(nil)
