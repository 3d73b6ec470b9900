// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"strings"
	"testing"
)

const validRuleFile = `
groups:
  - name: beacon.rules
    interval: 30s
    rules:
      - alert: TargetDown
        expr: up == 0
        for: 5m
        labels:
          severity: critical
        annotations:
          summary: "Target {{ $labels.instance }} is down"
      - record: job:up:ratio
        expr: avg by (job) (up)
`

func findingMessages(result *Result) string {
	var parts []string
	for _, f := range result.Findings {
		parts = append(parts, string(f.Severity)+": "+f.Message)
	}
	return strings.Join(parts, "\n")
}

func hasFinding(result *Result, severity Severity, substr string) bool {
	for _, f := range result.Findings {
		if f.Severity == severity && strings.Contains(f.Message, substr) {
			return true
		}
	}
	return false
}

func TestLintPrometheusRules_ValidFile(t *testing.T) {
	result := LintPrometheusRules([]byte(validRuleFile))

	if !result.Clean() {
		t.Errorf("expected clean result, got:\n%s", findingMessages(result))
	}
	if result.Warnings() != 0 {
		t.Errorf("expected no warnings, got:\n%s", findingMessages(result))
	}
}

func TestLintPrometheusRules_InvalidYAML(t *testing.T) {
	result := LintPrometheusRules([]byte("groups:\n  - name: x\n rules: ["))

	if result.Clean() {
		t.Error("expected errors for invalid YAML")
	}
	if !hasFinding(result, SeverityError, "invalid YAML") {
		t.Errorf("missing invalid YAML finding:\n%s", findingMessages(result))
	}
}

func TestLintPrometheusRules_NoGroups(t *testing.T) {
	result := LintPrometheusRules([]byte("groups: []\n"))

	if !hasFinding(result, SeverityError, "no groups") {
		t.Errorf("missing no-groups finding:\n%s", findingMessages(result))
	}
}

func TestLintPrometheusRules_DuplicateGroup(t *testing.T) {
	input := `
groups:
  - name: dup
    rules:
      - alert: A
        expr: up == 0
        labels: {severity: warning}
        annotations: {summary: x}
  - name: dup
    rules:
      - alert: B
        expr: up == 0
        labels: {severity: warning}
        annotations: {summary: x}
`
	result := LintPrometheusRules([]byte(input))

	if !hasFinding(result, SeverityError, `duplicate group name "dup"`) {
		t.Errorf("missing duplicate group finding:\n%s", findingMessages(result))
	}
}

func TestLintPrometheusRules_RuleShapeErrors(t *testing.T) {
	tests := []struct {
		name    string
		rule    string
		message string
	}{
		{
			name:    "both alert and record",
			rule:    "- alert: A\n        record: r\n        expr: up",
			message: "both alert and record",
		},
		{
			name:    "neither alert nor record",
			rule:    "- expr: up",
			message: "neither alert nor record",
		},
		{
			name:    "empty expression",
			rule:    "- alert: A\n        expr: \"\"",
			message: "no expression",
		},
		{
			name:    "unbalanced expression",
			rule:    "- alert: A\n        expr: sum(rate(http_requests_total[5m])",
			message: "malformed",
		},
		{
			name:    "bad for duration",
			rule:    "- alert: A\n        expr: up\n        for: five minutes",
			message: "invalid for duration",
		},
		{
			name:    "bad alert name",
			rule:    "- alert: \"bad name\"\n        expr: up",
			message: "invalid alert name",
		},
		{
			name:    "recording rule with for",
			rule:    "- record: r:x\n        expr: up\n        for: 5m",
			message: "recording rule cannot have a for clause",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := "groups:\n  - name: g\n    rules:\n      " + tc.rule + "\n"
			result := LintPrometheusRules([]byte(input))
			if !hasFinding(result, SeverityError, tc.message) {
				t.Errorf("missing finding %q, got:\n%s", tc.message, findingMessages(result))
			}
		})
	}
}

func TestLintPrometheusRules_Warnings(t *testing.T) {
	input := `
groups:
  - name: empty-group
  - name: g
    rules:
      - alert: NoSeverity
        expr: up == 0
`
	result := LintPrometheusRules([]byte(input))

	if !result.Clean() {
		t.Errorf("warnings must not make the file dirty:\n%s", findingMessages(result))
	}
	if !hasFinding(result, SeverityWarning, "no rules") {
		t.Errorf("missing empty group warning:\n%s", findingMessages(result))
	}
	if !hasFinding(result, SeverityWarning, "no severity label") {
		t.Errorf("missing severity label warning:\n%s", findingMessages(result))
	}
	if !hasFinding(result, SeverityWarning, "no annotations") {
		t.Errorf("missing annotations warning:\n%s", findingMessages(result))
	}
}

func TestLintPrometheusRules_FindingLines(t *testing.T) {
	input := "groups:\n" +
		"  - name: g\n" +
		"    rules:\n" +
		"      - alert: A\n" +
		"        expr: \"\"\n"
	result := LintPrometheusRules([]byte(input))

	if len(result.Findings) == 0 {
		t.Fatal("expected findings")
	}
	for _, f := range result.Findings {
		if f.Severity == SeverityError && f.Line != 4 {
			t.Errorf("Line = %d, want 4", f.Line)
		}
	}
}

func TestCheckBalancedDelimiters(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{`sum(rate(http_requests_total[5m]))`, false},
		{`up{job="prometheus"} == 0`, false},
		{`label_replace(up, "a", "(", "b", ".*")`, false},
		{`sum(rate(x[5m])`, true},
		{`up{job="x" == 0`, true},
		{`up{job="unterminated}`, true},
		{`sum)rate(`, true},
	}

	for _, tc := range tests {
		err := checkBalancedDelimiters(tc.expr)
		if (err != nil) != tc.wantErr {
			t.Errorf("checkBalancedDelimiters(%q) error = %v, wantErr %v", tc.expr, err, tc.wantErr)
		}
	}
}
