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
	"encoding/json"
	"strings"
	"testing"
)

func sampleDiagnosticsData() *DiagnosticsData {
	return &DiagnosticsData{
		Header: DiagnosticsHeader{
			Version:     DiagnosticsVersion,
			TimestampMs: 1704448800000,
			Reason:      "manual_request",
			Severity:    SeverityInfo,
			TraceID:     "12345-678",
		},
		System: SystemInfo{
			OS:            "linux",
			Arch:          "amd64",
			Hostname:      "ops-box",
			GoVersion:     "go1.24.0",
			BeaconVersion: "test",
		},
		Docker: DockerInfo{
			Version:   "27.3.1",
			Available: true,
			Containers: []ContainerInfo{
				{ID: "abcdef012345", Name: "beacon-prometheus", State: "running", Image: "prom/prometheus:v2.53.0", ServiceType: "metrics"},
			},
		},
		ContainerLogs: []ContainerLog{
			{Name: "beacon-prometheus", Logs: "ts=... msg=ready", LineCount: 1},
		},
		Tags: map[string]string{"env": "local"},
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	f := NewJSONDiagnosticsFormatter()

	out, err := f.Format(sampleDiagnosticsData())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var parsed DiagnosticsData
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("Output should be valid JSON: %v", err)
	}
	if parsed.Header.Reason != "manual_request" {
		t.Errorf("Expected reason manual_request, got %s", parsed.Header.Reason)
	}
	if len(parsed.Docker.Containers) != 1 {
		t.Errorf("Expected 1 container, got %d", len(parsed.Docker.Containers))
	}
}

func TestJSONFormatter_NilData(t *testing.T) {
	f := NewJSONDiagnosticsFormatter()
	if _, err := f.Format(nil); err == nil {
		t.Error("Formatting nil data should fail")
	}
}

func TestJSONFormatter_Metadata(t *testing.T) {
	f := NewJSONDiagnosticsFormatter()
	if got := f.ContentType(); got != "application/json" {
		t.Errorf("Expected application/json, got %s", got)
	}
	if got := f.FileExtension(); got != ".json" {
		t.Errorf("Expected .json, got %s", got)
	}
}

func TestTextFormatter_Format(t *testing.T) {
	f := NewTextDiagnosticsFormatter()

	out, err := f.Format(sampleDiagnosticsData())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	text := string(out)

	for _, want := range []string{
		"=== Beacon Diagnostics ===",
		"=== System Info ===",
		"=== Docker Info ===",
		"beacon-prometheus",
		"=== Container Logs ===",
		"=== Tags ===",
		"env",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Text output should contain %q", want)
		}
	}
}

func TestTextFormatter_DockerUnavailable(t *testing.T) {
	f := NewTextDiagnosticsFormatter()
	data := sampleDiagnosticsData()
	data.Docker = DockerInfo{Available: false, Error: "docker not available: exec: docker: not found"}
	data.ContainerLogs = nil

	out, err := f.Format(data)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(string(out), "NOT AVAILABLE") {
		t.Error("Text output should flag docker as not available")
	}
}

func TestTextFormatter_NilData(t *testing.T) {
	f := NewTextDiagnosticsFormatter()

	out, err := f.Format(nil)
	if err != nil {
		t.Fatalf("Nil data should not error for text output: %v", err)
	}
	if !strings.Contains(string(out), "no diagnostic data") {
		t.Errorf("Expected placeholder output, got %q", string(out))
	}
}

func TestTextFormatter_Metadata(t *testing.T) {
	f := NewTextDiagnosticsFormatter()
	if got := f.ContentType(); got != "text/plain; charset=utf-8" {
		t.Errorf("Expected text/plain, got %s", got)
	}
	if got := f.FileExtension(); got != ".txt" {
		t.Errorf("Expected .txt, got %s", got)
	}
}
