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

// promFixture controls what the fake Prometheus API returns.
type promFixture struct {
	upValue      string
	targetHealth string
	rangeEmpty   bool
}

// newFakePrometheus serves the three v1 API endpoints the checker hits.
func newFakePrometheus(t *testing.T, fx promFixture) *httptest.Server {
	t.Helper()

	now := float64(time.Now().Unix())
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/query", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"__name__":"up","instance":"localhost:9090"},"value":[%f,%q]}
		]}}`, now, fx.upValue)
	})
	mux.HandleFunc("/api/v1/query_range", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if fx.rangeEmpty {
			fmt.Fprint(w, `{"status":"success","data":{"resultType":"matrix","result":[]}}`)
			return
		}
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"matrix","result":[
			{"metric":{"__name__":"up"},"values":[[%f,"1"]]}
		]}}`, now)
	})
	mux.HandleFunc("/api/v1/targets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"success","data":{"activeTargets":[
			{"discoveredLabels":{},"labels":{"job":"prometheus"},
			 "scrapePool":"prometheus","scrapeUrl":"http://localhost:9090/metrics",
			 "globalUrl":"http://localhost:9090/metrics","lastError":"",
			 "lastScrape":"2026-08-30T12:00:00Z","lastScrapeDuration":0.004,
			 "health":%q}
		],"droppedTargets":[]}}`, fx.targetHealth)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func resultByName(t *testing.T, results []CheckResult, name string) CheckResult {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no result named %q", name)
	return CheckResult{}
}

func TestPrometheusChecker_AllPass(t *testing.T) {
	t.Parallel()

	server := newFakePrometheus(t, promFixture{upValue: "1", targetHealth: "up"})
	checker, err := NewPrometheusChecker(server.URL)
	require.NoError(t, err)

	results := checker.Run(context.Background())

	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, StatusPass, r.Status, "%s: %s", r.Name, r.Detail)
		assert.Equal(t, "prometheus", r.Target)
	}
}

func TestPrometheusChecker_DownTarget(t *testing.T) {
	t.Parallel()

	server := newFakePrometheus(t, promFixture{upValue: "0", targetHealth: "down"})
	checker, err := NewPrometheusChecker(server.URL)
	require.NoError(t, err)

	results := checker.Run(context.Background())

	instant := resultByName(t, results, "instant query returns samples")
	assert.Equal(t, StatusFail, instant.Status)
	assert.Contains(t, instant.Detail, "up=0")

	targets := resultByName(t, results, "scrape targets healthy")
	assert.Equal(t, StatusFail, targets.Status)
	assert.Contains(t, targets.Detail, "is down")
}

func TestPrometheusChecker_EmptyRange(t *testing.T) {
	t.Parallel()

	server := newFakePrometheus(t, promFixture{upValue: "1", targetHealth: "up", rangeEmpty: true})
	checker, err := NewPrometheusChecker(server.URL)
	require.NoError(t, err)

	results := checker.Run(context.Background())

	ranged := resultByName(t, results, "range query returns series")
	assert.Equal(t, StatusFail, ranged.Status)
	assert.Contains(t, ranged.Detail, "no series")
}

func TestPrometheusChecker_Unreachable(t *testing.T) {
	t.Parallel()

	// A server that is immediately closed guarantees a refused connection.
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	checker, err := NewPrometheusChecker(url)
	require.NoError(t, err)

	results := checker.Run(context.Background())

	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, StatusFail, r.Status)
	}
}
