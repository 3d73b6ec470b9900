// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dashboards

import (
	"strings"
	"testing"
)

const validDashboard = `{
	"title": "Beacon Overview",
	"uid": "beacon-overview",
	"schemaVersion": 39,
	"templating": {"list": [{"name": "job", "type": "query"}]},
	"panels": [
		{
			"id": 1,
			"type": "timeseries",
			"title": "Up targets",
			"datasource": {"type": "prometheus", "uid": "prom"},
			"targets": [{"expr": "sum(up{job=~\"$job\"})"}]
		},
		{
			"id": 2,
			"type": "text",
			"title": "Notes"
		}
	]
}`

func findingText(result *Result) string {
	var parts []string
	for _, f := range result.Findings {
		parts = append(parts, string(f.Severity)+": "+f.Message)
	}
	return strings.Join(parts, "\n")
}

func hasDashFinding(result *Result, severity Severity, substr string) bool {
	for _, f := range result.Findings {
		if f.Severity == severity && strings.Contains(f.Message, substr) {
			return true
		}
	}
	return false
}

func TestLintDashboard_Valid(t *testing.T) {
	result := LintDashboard([]byte(validDashboard))

	if !result.Clean() {
		t.Errorf("expected clean result, got:\n%s", findingText(result))
	}
	if result.Title != "Beacon Overview" {
		t.Errorf("Title = %q, want Beacon Overview", result.Title)
	}
	if result.UID != "beacon-overview" {
		t.Errorf("UID = %q, want beacon-overview", result.UID)
	}
}

func TestLintDashboard_InvalidJSON(t *testing.T) {
	result := LintDashboard([]byte(`{"title": `))

	if result.Clean() {
		t.Error("expected errors for invalid JSON")
	}
	if !hasDashFinding(result, SeverityError, "invalid JSON") {
		t.Errorf("missing invalid JSON finding:\n%s", findingText(result))
	}
}

func TestLintDashboard_MissingTitle(t *testing.T) {
	result := LintDashboard([]byte(`{"uid": "x", "schemaVersion": 39, "panels": []}`))

	if !hasDashFinding(result, SeverityError, "no title") {
		t.Errorf("missing title finding:\n%s", findingText(result))
	}
}

func TestLintDashboard_BadUID(t *testing.T) {
	result := LintDashboard([]byte(`{"title": "t", "uid": "has spaces!", "schemaVersion": 39}`))

	if !hasDashFinding(result, SeverityError, "invalid uid") {
		t.Errorf("missing uid finding:\n%s", findingText(result))
	}
}

func TestLintDashboard_DuplicatePanelIDs(t *testing.T) {
	input := `{
		"title": "t", "uid": "t", "schemaVersion": 39,
		"panels": [
			{"id": 7, "type": "timeseries", "title": "a",
			 "datasource": {"uid": "p"}, "targets": [{"expr": "up"}]},
			{"id": 7, "type": "timeseries", "title": "b",
			 "datasource": {"uid": "p"}, "targets": [{"expr": "up"}]}
		]
	}`
	result := LintDashboard([]byte(input))

	if !hasDashFinding(result, SeverityError, "duplicate panel id 7") {
		t.Errorf("missing duplicate id finding:\n%s", findingText(result))
	}
}

func TestLintDashboard_UndeclaredVariable(t *testing.T) {
	input := `{
		"title": "t", "uid": "t", "schemaVersion": 39,
		"panels": [
			{"id": 1, "type": "timeseries", "title": "a",
			 "datasource": {"uid": "p"},
			 "targets": [{"expr": "up{job=~\"$job\"}[$__rate_interval]"}]}
		]
	}`
	result := LintDashboard([]byte(input))

	if !hasDashFinding(result, SeverityError, "undeclared variable $job") {
		t.Errorf("missing variable finding:\n%s", findingText(result))
	}
	// Builtins like $__rate_interval must not be flagged.
	if hasDashFinding(result, SeverityError, "__rate_interval") {
		t.Errorf("builtin variable flagged:\n%s", findingText(result))
	}
}

func TestLintDashboard_Warnings(t *testing.T) {
	input := `{
		"title": "t", "schemaVersion": 39,
		"panels": [
			{"id": 1, "type": "timeseries", "title": "quiet"}
		]
	}`
	result := LintDashboard([]byte(input))

	if !result.Clean() {
		t.Errorf("warnings must not make the dashboard dirty:\n%s", findingText(result))
	}
	if !hasDashFinding(result, SeverityWarning, "no uid") {
		t.Errorf("missing uid warning:\n%s", findingText(result))
	}
	if !hasDashFinding(result, SeverityWarning, "no query targets") {
		t.Errorf("missing targets warning:\n%s", findingText(result))
	}
	if !hasDashFinding(result, SeverityWarning, "no datasource") {
		t.Errorf("missing datasource warning:\n%s", findingText(result))
	}
}

func TestLintDashboard_NestedRowPanels(t *testing.T) {
	input := `{
		"title": "t", "uid": "t", "schemaVersion": 39,
		"panels": [
			{"id": 1, "type": "row", "title": "section", "panels": [
				{"id": 1, "type": "timeseries", "title": "dup-in-row",
				 "datasource": {"uid": "p"}, "targets": [{"expr": "up"}]}
			]}
		]
	}`
	result := LintDashboard([]byte(input))

	if !hasDashFinding(result, SeverityError, "duplicate panel id 1") {
		t.Errorf("nested panels must share the id namespace:\n%s", findingText(result))
	}
}

func TestReferencedVariables(t *testing.T) {
	got := referencedVariables(`sum(up{job=~"$job"}) / ${total} + $__range`)
	want := map[string]bool{"job": true, "total": true, "__range": true}

	if len(got) != 3 {
		t.Fatalf("got %d variables: %v", len(got), got)
	}
	for _, name := range got {
		if !want[name] {
			t.Errorf("unexpected variable %q", name)
		}
	}
}
