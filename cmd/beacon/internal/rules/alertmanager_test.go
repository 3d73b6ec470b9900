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

import "testing"

const validAMConfig = `
route:
  receiver: default
  group_wait: 30s
  group_interval: 5m
  repeat_interval: 4h
  routes:
    - receiver: pager
      group_wait: 10s
receivers:
  - name: default
  - name: pager
inhibit_rules:
  - source_matchers: ['severity="critical"']
    target_matchers: ['severity="warning"']
    equal: ['alertname']
`

func TestLintAlertmanagerConfig_Valid(t *testing.T) {
	result := LintAlertmanagerConfig([]byte(validAMConfig))

	if !result.Clean() {
		t.Errorf("expected clean result, got:\n%s", findingMessages(result))
	}
	if result.Warnings() != 0 {
		t.Errorf("expected no warnings, got:\n%s", findingMessages(result))
	}
}

func TestLintAlertmanagerConfig_InvalidYAML(t *testing.T) {
	result := LintAlertmanagerConfig([]byte("route:\n receiver: [x"))

	if !hasFinding(result, SeverityError, "invalid YAML") {
		t.Errorf("missing invalid YAML finding:\n%s", findingMessages(result))
	}
}

func TestLintAlertmanagerConfig_MissingRoute(t *testing.T) {
	result := LintAlertmanagerConfig([]byte("receivers:\n  - name: default\n"))

	if !hasFinding(result, SeverityError, "no root route") {
		t.Errorf("missing root route finding:\n%s", findingMessages(result))
	}
}

func TestLintAlertmanagerConfig_UndeclaredReceiver(t *testing.T) {
	input := `
route:
  receiver: default
  routes:
    - receiver: ghost
receivers:
  - name: default
`
	result := LintAlertmanagerConfig([]byte(input))

	if !hasFinding(result, SeverityError, `undeclared receiver "ghost"`) {
		t.Errorf("missing undeclared receiver finding:\n%s", findingMessages(result))
	}
}

func TestLintAlertmanagerConfig_DuplicateReceiver(t *testing.T) {
	input := `
route:
  receiver: default
receivers:
  - name: default
  - name: default
`
	result := LintAlertmanagerConfig([]byte(input))

	if !hasFinding(result, SeverityError, `duplicate receiver name "default"`) {
		t.Errorf("missing duplicate receiver finding:\n%s", findingMessages(result))
	}
}

func TestLintAlertmanagerConfig_BadDurations(t *testing.T) {
	input := `
route:
  receiver: default
  group_wait: soon
receivers:
  - name: default
`
	result := LintAlertmanagerConfig([]byte(input))

	if !hasFinding(result, SeverityError, `invalid group_wait "soon"`) {
		t.Errorf("missing duration finding:\n%s", findingMessages(result))
	}
}

func TestLintAlertmanagerConfig_RepeatShorterThanGroup(t *testing.T) {
	input := `
route:
  receiver: default
  group_interval: 5m
  repeat_interval: 1m
receivers:
  - name: default
`
	result := LintAlertmanagerConfig([]byte(input))

	if !result.Clean() {
		t.Errorf("interval inversion should be a warning only:\n%s", findingMessages(result))
	}
	if !hasFinding(result, SeverityWarning, "shorter than group_interval") {
		t.Errorf("missing interval warning:\n%s", findingMessages(result))
	}
}

func TestLintAlertmanagerConfig_InhibitMissingMatchers(t *testing.T) {
	input := `
route:
  receiver: default
receivers:
  - name: default
inhibit_rules:
  - equal: ['alertname']
`
	result := LintAlertmanagerConfig([]byte(input))

	if !hasFinding(result, SeverityError, "no source_matchers") {
		t.Errorf("missing source matcher finding:\n%s", findingMessages(result))
	}
	if !hasFinding(result, SeverityError, "no target_matchers") {
		t.Errorf("missing target matcher finding:\n%s", findingMessages(result))
	}
}

func TestLintAlertmanagerConfig_NoReceivers(t *testing.T) {
	result := LintAlertmanagerConfig([]byte("route:\n  receiver: default\n"))

	if !hasFinding(result, SeverityError, "no receivers") {
		t.Errorf("missing receivers finding:\n%s", findingMessages(result))
	}
}
