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

func newFakeAlertmanager(t *testing.T, clusterStatus, configOriginal string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"cluster":{"status":%q},"config":{"original":%q}}`,
			clusterStatus, configOriginal)
	})
	mux.HandleFunc("/api/v2/alerts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"labels":{"alertname":"Watchdog"}}]`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestAlertmanagerChecker_AllPass(t *testing.T) {
	t.Parallel()

	server := newFakeAlertmanager(t, "ready", "route:\n  receiver: default\n")
	checker := NewAlertmanagerChecker(server.URL, time.Second)

	results := checker.Run(context.Background())

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, StatusPass, r.Status, "%s: %s", r.Name, r.Detail)
		assert.Equal(t, "alertmanager", r.Target)
	}
}

func TestAlertmanagerChecker_ClusterNotReady(t *testing.T) {
	t.Parallel()

	server := newFakeAlertmanager(t, "settling", "route: {}")
	checker := NewAlertmanagerChecker(server.URL, time.Second)

	results := checker.Run(context.Background())

	status := resultByName(t, results, "cluster status ready")
	assert.Equal(t, StatusFail, status.Status)
	assert.Contains(t, status.Detail, "settling")
}

func TestAlertmanagerChecker_EmptyConfig(t *testing.T) {
	t.Parallel()

	server := newFakeAlertmanager(t, "ready", "")
	checker := NewAlertmanagerChecker(server.URL, time.Second)

	results := checker.Run(context.Background())

	status := resultByName(t, results, "cluster status ready")
	assert.Equal(t, StatusFail, status.Status)
	assert.Contains(t, status.Detail, "no configuration")
}

func TestAlertmanagerChecker_Unreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	checker := NewAlertmanagerChecker(url, time.Second)
	results := checker.Run(context.Background())

	for _, r := range results {
		assert.Equal(t, StatusFail, r.Status)
	}
}
