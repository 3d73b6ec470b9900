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
Package diagnostics contains tests for DefaultDiagnosticsCollector.

# Testing Strategy

These tests verify:
  - Successful collection with mocked docker
  - Graceful degradation when docker is unavailable
  - Container log collection with line limits
  - Storage and formatter integration
  - Helper function behavior
*/
package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/AleutianAI/beacon/cmd/beacon/internal/infra/process"
)

// dockerPSLine builds one line of `docker ps --format '{{json .}}'` output.
func dockerPSLine(id, name, state, image string) string {
	return fmt.Sprintf(`{"ID":%q,"Names":%q,"State":%q,"Image":%q,"CreatedAt":"2024-01-05 10:00:00 +0000 UTC"}`,
		id, name, state, image)
}

// newDockerMock returns a MockManager that answers docker version, ps,
// and logs with canned output.
func newDockerMock(psOutput string) *process.MockManager {
	return &process.MockManager{
		RunInDirFunc: func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
			if name != "docker" {
				return "", "", 1, fmt.Errorf("unexpected command: %s", name)
			}
			switch args[0] {
			case "version":
				return "27.3.1\n", "", 0, nil
			case "ps":
				return psOutput, "", 0, nil
			case "logs":
				return "line one\nline two", "", 0, nil
			}
			return "", "", 1, fmt.Errorf("unexpected docker subcommand: %s", args[0])
		},
	}
}

func newTestCollector(pm process.Manager, storage DiagnosticsStorage) *DefaultDiagnosticsCollector {
	return NewDiagnosticsCollectorWithDeps(pm, NewJSONDiagnosticsFormatter(), storage, "test")
}

// -----------------------------------------------------------------------------
// Collect Tests
// -----------------------------------------------------------------------------

func TestCollect_Success(t *testing.T) {
	ps := dockerPSLine("abcdef0123456789", "beacon-prometheus", "running", "prom/prometheus:v2.53.0") + "\n" +
		dockerPSLine("0123456789abcdef", "beacon-loki", "exited", "grafana/loki:3.1.0")
	mock := newDockerMock(ps)
	storage := NewMockDiagnosticsStorage()
	collector := newTestCollector(mock, storage)

	result, err := collector.Collect(context.Background(), CollectOptions{
		Reason:   "manual_request",
		Severity: SeverityInfo,
	})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if result.Location != "/mock/diag.json" {
		t.Errorf("Expected mock location, got %s", result.Location)
	}
	if result.TraceID == "" {
		t.Error("Result should have a trace ID")
	}
	if result.SizeBytes == 0 {
		t.Error("Result should report a non-zero size")
	}
	if !result.IsSuccess() {
		t.Error("Result should be successful")
	}

	var data DiagnosticsData
	if err := json.Unmarshal(storage.StoreCalls[0].Data, &data); err != nil {
		t.Fatalf("Stored data is not valid JSON: %v", err)
	}
	if !data.Docker.Available {
		t.Error("Docker should be reported available")
	}
	if data.Docker.Version != "27.3.1" {
		t.Errorf("Expected docker version 27.3.1, got %s", data.Docker.Version)
	}
	if len(data.Docker.Containers) != 2 {
		t.Fatalf("Expected 2 containers, got %d", len(data.Docker.Containers))
	}
	if data.Docker.Containers[0].Name != "beacon-prometheus" {
		t.Errorf("Expected beacon-prometheus first, got %s", data.Docker.Containers[0].Name)
	}
	if data.Docker.Containers[0].ServiceType != "metrics" {
		t.Errorf("Expected service type metrics, got %s", data.Docker.Containers[0].ServiceType)
	}
	if data.Docker.Containers[0].ID != "abcdef012345" {
		t.Errorf("Container ID should be shortened to 12 chars, got %s", data.Docker.Containers[0].ID)
	}
}

func TestCollect_DockerUnavailable(t *testing.T) {
	mock := &process.MockManager{
		RunInDirFunc: func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
			return "", "docker: command not found", 127, fmt.Errorf("exec: docker: not found")
		},
	}
	storage := NewMockDiagnosticsStorage()
	collector := newTestCollector(mock, storage)

	result, err := collector.Collect(context.Background(), CollectOptions{
		Reason: "startup_failure",
	})
	if err != nil {
		t.Fatalf("Collect should degrade gracefully, got: %v", err)
	}
	if result == nil {
		t.Fatal("Result should not be nil")
	}

	var data DiagnosticsData
	if err := json.Unmarshal(storage.StoreCalls[0].Data, &data); err != nil {
		t.Fatalf("Stored data is not valid JSON: %v", err)
	}
	if data.Docker.Available {
		t.Error("Docker should be reported unavailable")
	}
	if !strings.Contains(data.Docker.Error, "docker not available") {
		t.Errorf("Docker error should explain unavailability, got %s", data.Docker.Error)
	}
}

func TestCollect_IncludesContainerLogs(t *testing.T) {
	ps := dockerPSLine("abc", "beacon-grafana", "running", "grafana/grafana:11.1.0")
	mock := newDockerMock(ps)
	storage := NewMockDiagnosticsStorage()
	collector := newTestCollector(mock, storage)

	_, err := collector.Collect(context.Background(), CollectOptions{
		Reason:               "smoke_failure",
		IncludeContainerLogs: true,
		ContainerLogLines:    100,
	})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	var data DiagnosticsData
	if err := json.Unmarshal(storage.StoreCalls[0].Data, &data); err != nil {
		t.Fatalf("Stored data is not valid JSON: %v", err)
	}
	if len(data.ContainerLogs) != 1 {
		t.Fatalf("Expected 1 container log, got %d", len(data.ContainerLogs))
	}
	if data.ContainerLogs[0].Name != "beacon-grafana" {
		t.Errorf("Expected beacon-grafana log, got %s", data.ContainerLogs[0].Name)
	}
	if !strings.Contains(data.ContainerLogs[0].Logs, "line one") {
		t.Errorf("Logs should contain mocked output, got %q", data.ContainerLogs[0].Logs)
	}
	if data.ContainerLogs[0].LineCount != 2 {
		t.Errorf("Expected 2 log lines, got %d", data.ContainerLogs[0].LineCount)
	}
}

func TestCollect_SkipsLogsForStoppedContainers(t *testing.T) {
	ps := dockerPSLine("abc", "beacon-tempo", "exited", "grafana/tempo:2.5.0")
	mock := newDockerMock(ps)
	storage := NewMockDiagnosticsStorage()
	collector := newTestCollector(mock, storage)

	_, err := collector.Collect(context.Background(), CollectOptions{
		Reason:               "manual_request",
		IncludeContainerLogs: true,
	})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	var data DiagnosticsData
	if err := json.Unmarshal(storage.StoreCalls[0].Data, &data); err != nil {
		t.Fatalf("Stored data is not valid JSON: %v", err)
	}
	if len(data.ContainerLogs) != 1 {
		t.Fatalf("Expected 1 container log entry, got %d", len(data.ContainerLogs))
	}
	if data.ContainerLogs[0].Logs != "(container not running)" {
		t.Errorf("Stopped container should get placeholder, got %q", data.ContainerLogs[0].Logs)
	}
}

func TestCollect_StorageFailure(t *testing.T) {
	mock := newDockerMock("")
	storage := NewMockDiagnosticsStorage()
	storage.StoreFunc = func(ctx context.Context, data []byte, meta StorageMetadata) (string, error) {
		return "", fmt.Errorf("disk full")
	}
	metrics := NewNoOpDiagnosticsMetrics()
	collector := newTestCollector(mock, storage)
	collector.SetMetrics(metrics)

	_, err := collector.Collect(context.Background(), CollectOptions{Reason: "manual_request"})
	if err == nil {
		t.Fatal("Collect should propagate storage failure")
	}
	if !strings.Contains(err.Error(), "failed to store diagnostics") {
		t.Errorf("Error should mention storage, got: %v", err)
	}
	if metrics.GetErrorsTotal() != 1 {
		t.Errorf("Storage failure should record an error metric, got %d", metrics.GetErrorsTotal())
	}
}

func TestCollect_RecordsMetrics(t *testing.T) {
	ps := dockerPSLine("abc", "beacon-alertmanager", "running", "prom/alertmanager:v0.27.0")
	mock := newDockerMock(ps)
	metrics := NewNoOpDiagnosticsMetrics()
	collector := newTestCollector(mock, NewMockDiagnosticsStorage())
	collector.SetMetrics(metrics)

	_, err := collector.Collect(context.Background(), CollectOptions{Reason: "manual_request"})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if metrics.GetCollectionsTotal() != 1 {
		t.Errorf("Expected 1 collection recorded, got %d", metrics.GetCollectionsTotal())
	}
}

func TestCollect_CachesLastResult(t *testing.T) {
	mock := newDockerMock("")
	collector := newTestCollector(mock, NewMockDiagnosticsStorage())

	if collector.GetLastResult() != nil {
		t.Error("Last result should be nil before first collection")
	}

	result, err := collector.Collect(context.Background(), CollectOptions{Reason: "manual_request"})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	last := collector.GetLastResult()
	if last == nil {
		t.Fatal("Last result should be cached")
	}
	if last.TraceID != result.TraceID {
		t.Error("Cached result should match returned result")
	}
}

// -----------------------------------------------------------------------------
// Helper Function Tests
// -----------------------------------------------------------------------------

func TestShortenContainerID(t *testing.T) {
	if got := shortenContainerID("abcdef0123456789abcdef"); got != "abcdef012345" {
		t.Errorf("Expected 12-char ID, got %s", got)
	}
	if got := shortenContainerID("short"); got != "short" {
		t.Errorf("Short IDs should pass through, got %s", got)
	}
}

func TestInferServiceType(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"beacon-prometheus", "metrics"},
		{"beacon-loki", "logs"},
		{"beacon-promtail", "logs"},
		{"beacon-tempo", "traces"},
		{"beacon-grafana", "dashboards"},
		{"beacon-alertmanager", "alerting"},
		{"beacon-node-exporter", "exporter"},
		{"something-else", ""},
	}

	for _, tt := range tests {
		if got := inferServiceType(tt.name); got != tt.expected {
			t.Errorf("inferServiceType(%q) = %q, want %q", tt.name, got, tt.expected)
		}
	}
}

func TestCountLines(t *testing.T) {
	if got := countLines(""); got != 0 {
		t.Errorf("Empty string should have 0 lines, got %d", got)
	}
	if got := countLines("one"); got != 1 {
		t.Errorf("Single line should count 1, got %d", got)
	}
	if got := countLines("one\ntwo\n"); got != 3 {
		t.Errorf("Expected 3 (trailing newline counts), got %d", got)
	}
}

func TestParseDockerTimestamp(t *testing.T) {
	if got := parseDockerTimestamp("2024-01-05 10:00:00 +0000 UTC"); got == 0 {
		t.Error("Valid docker timestamp should parse")
	}
	if got := parseDockerTimestamp("garbage"); got != 0 {
		t.Errorf("Invalid timestamp should return 0, got %d", got)
	}
	if got := parseDockerTimestamp(""); got != 0 {
		t.Errorf("Empty timestamp should return 0, got %d", got)
	}
}

func TestParseContainerList_SkipsMalformedLines(t *testing.T) {
	collector := newTestCollector(newDockerMock(""), NewMockDiagnosticsStorage())

	output := dockerPSLine("abc", "beacon-loki", "running", "grafana/loki:3.1.0") + "\n" +
		"not json at all\n" +
		dockerPSLine("def", "beacon-tempo", "running", "grafana/tempo:2.5.0")

	containers := collector.parseContainerList(output)
	if len(containers) != 2 {
		t.Fatalf("Expected 2 parsed containers (malformed skipped), got %d", len(containers))
	}
}
