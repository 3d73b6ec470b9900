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
	"os"
	"path/filepath"
	"testing"
)

const validRuleFile = `groups:
  - name: beacon-alerts
    rules:
      - alert: PrometheusDown
        expr: up{job="prometheus"} == 0
        for: 5m
        labels:
          severity: critical
        annotations:
          summary: Prometheus is down
`

const brokenRuleFile = `groups:
  - name: beacon-alerts
    rules:
      - alert: PrometheusDown
        for: 5m
`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLintRuleFiles(t *testing.T) {
	t.Run("ValidFile", func(t *testing.T) {
		path := writeTempFile(t, "alerts.yml", validRuleFile)

		out, err := lintRuleFiles([]string{path}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Files != 1 {
			t.Errorf("Files = %d, want 1", out.Files)
		}
		if out.Errors != 0 {
			t.Errorf("Errors = %d, want 0 (findings: %+v)", out.Errors, out.Findings)
		}
	})

	t.Run("RuleWithoutExpression", func(t *testing.T) {
		path := writeTempFile(t, "broken.yml", brokenRuleFile)

		out, err := lintRuleFiles([]string{path}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Errors == 0 {
			t.Error("a rule with no expr should produce an error finding")
		}
		for _, f := range out.Findings {
			if f.File != path {
				t.Errorf("finding attributed to %s, want %s", f.File, path)
			}
		}
	})

	t.Run("MissingFileIsAnInfraError", func(t *testing.T) {
		_, err := lintRuleFiles([]string{filepath.Join(t.TempDir(), "nope.yml")}, nil)
		if err == nil {
			t.Fatal("expected error for unreadable file")
		}
	})

	t.Run("CountsAccumulateAcrossFiles", func(t *testing.T) {
		good := writeTempFile(t, "good.yml", validRuleFile)
		bad := writeTempFile(t, "bad.yml", brokenRuleFile)

		out, err := lintRuleFiles([]string{good, bad}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Files != 2 {
			t.Errorf("Files = %d, want 2", out.Files)
		}
		if out.Errors == 0 {
			t.Error("expected errors from the bad file to survive aggregation")
		}
	})
}

func TestLintRuleFilesAlertmanager(t *testing.T) {
	config := `route:
  receiver: ops
receivers:
  - name: ops
`
	path := writeTempFile(t, "alertmanager.yml", config)

	out, err := lintRuleFiles(nil, []string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Files != 1 {
		t.Errorf("Files = %d, want 1", out.Files)
	}
	if out.Errors != 0 {
		t.Errorf("Errors = %d, want 0 (findings: %+v)", out.Errors, out.Findings)
	}
}
