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
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// JSONDiagnosticsFormatter Implementation
// -----------------------------------------------------------------------------

// JSONDiagnosticsFormatter serializes diagnostic data as indented JSON.
//
// JSON is the primary format: it round-trips through storage, ingests
// cleanly into Loki, and is greppable when all else fails.
//
// # Thread Safety
//
// JSONDiagnosticsFormatter is stateless and safe for concurrent use.
type JSONDiagnosticsFormatter struct{}

// NewJSONDiagnosticsFormatter creates a JSON formatter.
//
// # Examples
//
//	formatter := NewJSONDiagnosticsFormatter()
//	output, err := formatter.Format(data)
func NewJSONDiagnosticsFormatter() *JSONDiagnosticsFormatter {
	return &JSONDiagnosticsFormatter{}
}

// Format serializes the data as indented JSON.
func (f *JSONDiagnosticsFormatter) Format(data *DiagnosticsData) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("cannot format nil diagnostic data")
	}

	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal diagnostics: %w", err)
	}

	return output, nil
}

// ContentType returns the MIME type for JSON format.
func (f *JSONDiagnosticsFormatter) ContentType() string {
	return "application/json"
}

// FileExtension returns the file extension for JSON format.
func (f *JSONDiagnosticsFormatter) FileExtension() string {
	return ".json"
}

// -----------------------------------------------------------------------------
// TextDiagnosticsFormatter Implementation
// -----------------------------------------------------------------------------

// TextDiagnosticsFormatter converts diagnostic data to human-readable text.
//
// Structured plain text with section headers, for terminal display and
// pasting into a chat thread when JSON is overkill.
//
// # Thread Safety
//
// TextDiagnosticsFormatter is stateless and safe for concurrent use.
type TextDiagnosticsFormatter struct{}

// NewTextDiagnosticsFormatter creates a text formatter.
//
// # Examples
//
//	formatter := NewTextDiagnosticsFormatter()
//	output, _ := formatter.Format(data)
//	fmt.Println(string(output))
func NewTextDiagnosticsFormatter() *TextDiagnosticsFormatter {
	return &TextDiagnosticsFormatter{}
}

// Format converts diagnostic data to human-readable text.
//
// # Description
//
// Produces structured plain text with clear section headers. Each major
// data category gets its own section.
//
// # Outputs
//
//   - []byte: Plain text diagnostic output
//   - error: Always nil (text formatting cannot fail)
func (f *TextDiagnosticsFormatter) Format(data *DiagnosticsData) ([]byte, error) {
	if data == nil {
		return []byte("(no diagnostic data)\n"), nil
	}

	var buf bytes.Buffer

	f.writeHeader(&buf, &data.Header)
	f.writeSystemInfo(&buf, &data.System)
	f.writeDockerInfo(&buf, &data.Docker)

	if len(data.ContainerLogs) > 0 {
		f.writeContainerLogs(&buf, data.ContainerLogs)
	}

	if len(data.Tags) > 0 {
		f.writeTags(&buf, data.Tags)
	}

	return buf.Bytes(), nil
}

// writeHeader writes the diagnostic header section.
func (f *TextDiagnosticsFormatter) writeHeader(buf *bytes.Buffer, h *DiagnosticsHeader) {
	buf.WriteString("=== Beacon Diagnostics ===\n")
	fmt.Fprintf(buf, "Version: %s\n", h.Version)
	fmt.Fprintf(buf, "Timestamp: %s\n", time.UnixMilli(h.TimestampMs).Format(time.RFC3339))

	if h.TraceID != "" {
		fmt.Fprintf(buf, "Trace ID: %s\n", h.TraceID)
	}

	fmt.Fprintf(buf, "Reason: %s\n", h.Reason)
	if h.Details != "" {
		fmt.Fprintf(buf, "Details: %s\n", h.Details)
	}
	fmt.Fprintf(buf, "Severity: %s\n", h.Severity)

	if h.DurationMs > 0 {
		fmt.Fprintf(buf, "Duration: %dms\n", h.DurationMs)
	}

	buf.WriteString("\n")
}

// writeSystemInfo writes the system information section.
func (f *TextDiagnosticsFormatter) writeSystemInfo(buf *bytes.Buffer, s *SystemInfo) {
	buf.WriteString("=== System Info ===\n")
	fmt.Fprintf(buf, "OS: %s\n", s.OS)
	fmt.Fprintf(buf, "Arch: %s\n", s.Arch)
	fmt.Fprintf(buf, "Hostname: %s\n", s.Hostname)
	fmt.Fprintf(buf, "Go Version: %s\n", s.GoVersion)

	if s.BeaconVersion != "" {
		fmt.Fprintf(buf, "Beacon Version: %s\n", s.BeaconVersion)
	}

	buf.WriteString("\n")
}

// writeDockerInfo writes the Docker information section.
func (f *TextDiagnosticsFormatter) writeDockerInfo(buf *bytes.Buffer, d *DockerInfo) {
	buf.WriteString("=== Docker Info ===\n")

	if !d.Available {
		buf.WriteString("Status: NOT AVAILABLE\n")
		if d.Error != "" {
			fmt.Fprintf(buf, "Error: %s\n", d.Error)
		}
		buf.WriteString("\n")
		return
	}

	fmt.Fprintf(buf, "Version: %s\n", d.Version)

	if len(d.Containers) > 0 {
		buf.WriteString("\nContainers:\n")
		for _, c := range d.Containers {
			fmt.Fprintf(buf, "  - %s (%s)\n", c.Name, c.State)
			if c.ServiceType != "" {
				fmt.Fprintf(buf, "    Service Type: %s\n", c.ServiceType)
			}
		}
	}

	if d.Error != "" {
		fmt.Fprintf(buf, "\nError: %s\n", d.Error)
	}

	buf.WriteString("\n")
}

// writeContainerLogs writes the container logs section.
func (f *TextDiagnosticsFormatter) writeContainerLogs(buf *bytes.Buffer, logs []ContainerLog) {
	buf.WriteString("=== Container Logs ===\n")

	for _, log := range logs {
		fmt.Fprintf(buf, "\n--- %s ---\n", log.Name)

		if log.Error != "" {
			fmt.Fprintf(buf, "Error: %s\n", log.Error)
			continue
		}

		if log.Logs == "" {
			buf.WriteString("(no logs)\n")
			continue
		}

		buf.WriteString(log.Logs)
		if !strings.HasSuffix(log.Logs, "\n") {
			buf.WriteString("\n")
		}

		if log.Truncated {
			buf.WriteString("... (truncated)\n")
		}
	}

	buf.WriteString("\n")
}

// writeTags writes the custom tags section.
func (f *TextDiagnosticsFormatter) writeTags(buf *bytes.Buffer, tags map[string]string) {
	buf.WriteString("=== Tags ===\n")
	for k, v := range tags {
		fmt.Fprintf(buf, "%s: %s\n", k, v)
	}
	buf.WriteString("\n")
}

// ContentType returns the MIME type for text format.
func (f *TextDiagnosticsFormatter) ContentType() string {
	return "text/plain; charset=utf-8"
}

// FileExtension returns the file extension for text format.
func (f *TextDiagnosticsFormatter) FileExtension() string {
	return ".txt"
}

// Compile-time interface compliance checks.
var _ DiagnosticsFormatter = (*JSONDiagnosticsFormatter)(nil)
var _ DiagnosticsFormatter = (*TextDiagnosticsFormatter)(nil)
