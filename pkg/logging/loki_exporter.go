// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// lokiPushPath is the Loki HTTP push endpoint.
const lokiPushPath = "/loki/api/v1/push"

// defaultLokiBatchSize is the number of entries that triggers a flush.
const defaultLokiBatchSize = 64

// defaultLokiBufferCap is the maximum number of buffered entries.
// When the buffer is full the oldest entries are dropped.
const defaultLokiBufferCap = 1024

// LokiExporter pushes Beacon's own log entries into the Loki instance
// of the stack Beacon operates.
//
// # Description
//
// Entries are buffered in memory and pushed in batches using the Loki
// HTTP push API (streams keyed by {app="beacon", service, level}).
// A full buffer drops the oldest entries rather than blocking the
// logging call path.
//
// # Thread Safety
//
// Safe for concurrent use. Buffer state is protected by a mutex;
// HTTP pushes happen outside the lock.
//
// # Limitations
//
//   - Push failures are retried only on the next batch; entries in a
//     failed batch are dropped
//   - No compression; batches are small enough that it doesn't matter
type LokiExporter struct {
	url       string // Full push URL, e.g. http://localhost:3100/loki/api/v1/push
	client    *http.Client
	labels    map[string]string
	batchSize int

	mu     sync.Mutex
	buffer []LogEntry
}

// LokiExporterOption customizes a LokiExporter.
type LokiExporterOption func(*LokiExporter)

// WithLokiHTTPClient overrides the HTTP client (used in tests).
func WithLokiHTTPClient(c *http.Client) LokiExporterOption {
	return func(e *LokiExporter) { e.client = c }
}

// WithLokiLabels adds static labels to every pushed stream.
func WithLokiLabels(labels map[string]string) LokiExporterOption {
	return func(e *LokiExporter) {
		for k, v := range labels {
			e.labels[k] = v
		}
	}
}

// WithLokiBatchSize overrides the flush threshold.
func WithLokiBatchSize(n int) LokiExporterOption {
	return func(e *LokiExporter) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// NewLokiExporter creates an exporter pushing to the given Loki base URL.
//
// # Inputs
//
//   - baseURL: Loki base URL without path, e.g. "http://localhost:3100".
//   - opts: Optional customizations.
//
// # Example
//
//	exporter := logging.NewLokiExporter("http://localhost:3100")
//	logger := logging.New(logging.Config{Service: "beacon", Exporter: exporter})
func NewLokiExporter(baseURL string, opts ...LokiExporterOption) *LokiExporter {
	e := &LokiExporter{
		url:       baseURL + lokiPushPath,
		client:    &http.Client{Timeout: 5 * time.Second},
		labels:    map[string]string{"app": "beacon"},
		batchSize: defaultLokiBatchSize,
		buffer:    make([]LogEntry, 0, defaultLokiBatchSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export buffers the entry and pushes a batch when the threshold is hit.
func (e *LokiExporter) Export(ctx context.Context, entry LogEntry) error {
	e.mu.Lock()
	if len(e.buffer) >= defaultLokiBufferCap {
		// Drop oldest entry; logging must never block on Loki
		e.buffer = e.buffer[1:]
	}
	e.buffer = append(e.buffer, entry)
	shouldFlush := len(e.buffer) >= e.batchSize
	e.mu.Unlock()

	if shouldFlush {
		return e.Flush(ctx)
	}
	return nil
}

// Flush pushes all buffered entries to Loki.
func (e *LokiExporter) Flush(ctx context.Context) error {
	e.mu.Lock()
	if len(e.buffer) == 0 {
		e.mu.Unlock()
		return nil
	}
	batch := e.buffer
	e.buffer = make([]LogEntry, 0, e.batchSize)
	e.mu.Unlock()

	return e.push(ctx, batch)
}

// Close flushes any remaining entries.
func (e *LokiExporter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Flush(ctx)
}

// lokiStream is one stream in a Loki push payload.
type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// lokiPushRequest is the Loki HTTP push payload.
type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

// push sends one batch of entries, grouped into streams by level.
func (e *LokiExporter) push(ctx context.Context, batch []LogEntry) error {
	byLevel := make(map[Level][]LogEntry)
	for _, entry := range batch {
		byLevel[entry.Level] = append(byLevel[entry.Level], entry)
	}

	req := lokiPushRequest{}
	for level, entries := range byLevel {
		labels := make(map[string]string, len(e.labels)+2)
		for k, v := range e.labels {
			labels[k] = v
		}
		labels["level"] = level.String()
		if len(entries) > 0 && entries[0].Service != "" {
			labels["service"] = entries[0].Service
		}

		stream := lokiStream{Stream: labels, Values: make([][2]string, 0, len(entries))}
		for _, entry := range entries {
			line := entry.Message
			if len(entry.Attrs) > 0 {
				if attrs, err := json.Marshal(entry.Attrs); err == nil {
					line = fmt.Sprintf("%s %s", entry.Message, attrs)
				}
			}
			ts := strconv.FormatInt(entry.Timestamp.UnixNano(), 10)
			stream.Values = append(stream.Values, [2]string{ts, line})
		}
		req.Streams = append(req.Streams, stream)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal loki push: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create loki push request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("push to loki: %w", err)
	}
	defer resp.Body.Close()

	// Loki returns 204 on success
	if resp.StatusCode >= 300 {
		return fmt.Errorf("loki push returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Ensure LokiExporter implements LogExporter
var _ LogExporter = (*LokiExporter)(nil)
