// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dashboards lints Grafana dashboard JSON and pushes dashboards
// through the Grafana HTTP API.
package dashboards

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// uidRE is Grafana's dashboard UID constraint.
var uidRE = regexp.MustCompile(`^[a-zA-Z0-9\-_]{1,40}$`)

// Severity classifies a lint finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one lint issue in one dashboard.
type Finding struct {
	// Severity is error or warning.
	Severity Severity

	// Panel is the title of the panel the finding concerns, empty for
	// dashboard-level findings.
	Panel string

	// Message describes the issue.
	Message string
}

// Result aggregates findings for one linted dashboard.
type Result struct {
	// Title is the dashboard title, when one could be read.
	Title string

	// UID is the dashboard UID, when one could be read.
	UID string

	Findings []Finding
}

// Errors counts error-severity findings.
func (r *Result) Errors() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Warnings counts warning-severity findings.
func (r *Result) Warnings() int {
	return len(r.Findings) - r.Errors()
}

// Clean reports whether the dashboard passed without errors.
func (r *Result) Clean() bool {
	return r.Errors() == 0
}

func (r *Result) addError(panel, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{
		Severity: SeverityError,
		Panel:    panel,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (r *Result) addWarning(panel, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{
		Severity: SeverityWarning,
		Panel:    panel,
		Message:  fmt.Sprintf(format, args...),
	})
}

// dashboard mirrors the subset of the Grafana dashboard schema the linter
// inspects.
type dashboard struct {
	Title         string  `json:"title"`
	UID           string  `json:"uid"`
	SchemaVersion int     `json:"schemaVersion"`
	Panels        []panel `json:"panels"`
	Templating    struct {
		List []templateVar `json:"list"`
	} `json:"templating"`
}

type panel struct {
	ID         int             `json:"id"`
	Type       string          `json:"type"`
	Title      string          `json:"title"`
	Datasource json.RawMessage `json:"datasource"`
	Targets    []target        `json:"targets"`
	Panels     []panel         `json:"panels"` // nested inside rows
}

type target struct {
	Expr  string `json:"expr"`
	Query string `json:"query"`
}

type templateVar struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// LintDashboard lints one dashboard JSON document.
//
// # Description
//
// Validates that the JSON parses, the dashboard carries a title and a
// well-formed UID, panel IDs are unique, and query panels declare both a
// datasource and at least one target. Template variables referenced in
// queries must be declared in the templating block.
func LintDashboard(data []byte) *Result {
	result := &Result{}

	var dash dashboard
	if err := json.Unmarshal(data, &dash); err != nil {
		result.addError("", "invalid JSON: %v", err)
		return result
	}
	result.Title = dash.Title
	result.UID = dash.UID

	if strings.TrimSpace(dash.Title) == "" {
		result.addError("", "dashboard has no title")
	}
	if dash.UID == "" {
		result.addWarning("", "dashboard has no uid; Grafana will assign a random one on import")
	} else if !uidRE.MatchString(dash.UID) {
		result.addError("", "invalid uid %q", dash.UID)
	}
	if dash.SchemaVersion == 0 {
		result.addWarning("", "dashboard has no schemaVersion")
	}
	if len(dash.Panels) == 0 {
		result.addWarning("", "dashboard has no panels")
	}

	declared := make(map[string]bool, len(dash.Templating.List))
	for _, v := range dash.Templating.List {
		declared[v.Name] = true
	}

	seenIDs := make(map[int]bool)
	lintPanels(result, dash.Panels, seenIDs, declared)
	return result
}

// lintPanels walks panels recursively; rows nest their children.
func lintPanels(result *Result, panels []panel, seenIDs map[int]bool, declared map[string]bool) {
	for _, p := range panels {
		if p.ID != 0 {
			if seenIDs[p.ID] {
				result.addError(p.Title, "duplicate panel id %d", p.ID)
			}
			seenIDs[p.ID] = true
		}
		if p.Type == "" {
			result.addError(p.Title, "panel has no type")
		}
		if len(p.Panels) > 0 {
			lintPanels(result, p.Panels, seenIDs, declared)
			continue
		}
		if p.Type == "row" || p.Type == "text" {
			continue
		}

		if len(p.Targets) == 0 {
			result.addWarning(p.Title, "panel has no query targets")
		}
		if len(p.Datasource) == 0 || string(p.Datasource) == "null" {
			result.addWarning(p.Title, "panel has no datasource")
		}
		for _, tgt := range p.Targets {
			for _, name := range referencedVariables(tgt.Expr + " " + tgt.Query) {
				if !declared[name] && !builtinVariable(name) {
					result.addError(p.Title, "query references undeclared variable $%s", name)
				}
			}
		}
	}
}

var variableRE = regexp.MustCompile(`\$\{?([a-zA-Z_][a-zA-Z0-9_]*)\}?`)

// referencedVariables extracts $var and ${var} references from a query.
func referencedVariables(query string) []string {
	matches := variableRE.FindAllStringSubmatch(query, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// builtinVariable reports whether the variable is provided by Grafana
// itself rather than the templating block.
func builtinVariable(name string) bool {
	switch name {
	case "__interval", "__interval_ms", "__rate_interval", "__range",
		"__range_s", "__range_ms", "__dashboard", "__from", "__to",
		"__name", "__org", "__user", "timeFilter", "__timeFilter":
		return true
	}
	return false
}
