// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"strings"
	"testing"
)

func dashboardJSON(uid string) string {
	return fmt.Sprintf(`{
		"title": "Stack Overview",
		"uid": %q,
		"schemaVersion": 39,
		"panels": [
			{
				"id": 1,
				"type": "timeseries",
				"title": "CPU",
				"datasource": {"type": "prometheus", "uid": "prom"},
				"targets": [{"expr": "rate(node_cpu_seconds_total[5m])"}]
			}
		]
	}`, uid)
}

func TestLintDashboardFiles(t *testing.T) {
	t.Run("ValidDashboard", func(t *testing.T) {
		path := writeTempFile(t, "overview.json", dashboardJSON("stack-overview"))

		out, err := lintDashboardFiles([]string{path})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Errors != 0 {
			t.Errorf("Errors = %d, want 0 (findings: %+v)", out.Errors, out.Findings)
		}
	})

	t.Run("DuplicateUIDAcrossFiles", func(t *testing.T) {
		first := writeTempFile(t, "a.json", dashboardJSON("stack-overview"))
		second := writeTempFile(t, "b.json", dashboardJSON("stack-overview"))

		out, err := lintDashboardFiles([]string{first, second})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Errors == 0 {
			t.Fatal("duplicate uid across files should be an error")
		}

		found := false
		for _, f := range out.Findings {
			if f.File == second && strings.Contains(f.Message, "already used by") {
				found = true
			}
		}
		if !found {
			t.Errorf("missing duplicate-uid finding, got %+v", out.Findings)
		}
	})

	t.Run("DistinctUIDsAreFine", func(t *testing.T) {
		first := writeTempFile(t, "a.json", dashboardJSON("overview"))
		second := writeTempFile(t, "b.json", dashboardJSON("alerts"))

		out, err := lintDashboardFiles([]string{first, second})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Errors != 0 {
			t.Errorf("Errors = %d, want 0 (findings: %+v)", out.Errors, out.Findings)
		}
		if out.Files != 2 {
			t.Errorf("Files = %d, want 2", out.Files)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		path := writeTempFile(t, "broken.json", "{not json")

		out, err := lintDashboardFiles([]string{path})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Errors == 0 {
			t.Error("malformed JSON should be an error finding")
		}
	})
}
