// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package smoke

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExposition = `# HELP go_goroutines Number of goroutines that currently exist.
# TYPE go_goroutines gauge
go_goroutines 42
# HELP node_cpu_seconds_total Seconds the CPUs spent in each mode.
# TYPE node_cpu_seconds_total counter
node_cpu_seconds_total{cpu="0",mode="idle"} 12345.6
`

func newFakeExporter(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestScrapeChecker_RequiredFamiliesPresent(t *testing.T) {
	t.Parallel()

	server := newFakeExporter(t, sampleExposition)
	checker := NewScrapeChecker("node-exporter", server.URL+"/metrics",
		[]string{"node_cpu_seconds_total"}, time.Second)

	results := checker.Run(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, StatusPass, results[0].Status, results[0].Detail)
	assert.Equal(t, "node-exporter", results[0].Target)
}

func TestScrapeChecker_MissingFamily(t *testing.T) {
	t.Parallel()

	server := newFakeExporter(t, sampleExposition)
	checker := NewScrapeChecker("node-exporter", server.URL+"/metrics",
		[]string{"node_filesystem_avail_bytes"}, time.Second)

	results := checker.Run(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, StatusFail, results[0].Status)
	assert.Contains(t, results[0].Detail, "node_filesystem_avail_bytes")
}

func TestScrapeChecker_EmptyExposition(t *testing.T) {
	t.Parallel()

	server := newFakeExporter(t, "")
	checker := NewScrapeChecker("node-exporter", server.URL+"/metrics", nil, time.Second)

	results := checker.Run(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, StatusFail, results[0].Status)
	assert.Contains(t, results[0].Detail, "empty")
}

func TestScrapeChecker_Unreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	checker := NewScrapeChecker("node-exporter", url+"/metrics", nil, time.Second)
	results := checker.Run(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, StatusFail, results[0].Status)
}
