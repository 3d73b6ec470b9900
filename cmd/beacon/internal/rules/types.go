// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules lints Prometheus rule files and Alertmanager
// configurations before they reach a running stack. Catching a broken
// rule file at review time is cheap; catching it when Prometheus refuses
// to reload is not.
package rules

import "fmt"

// Severity classifies a lint finding.
type Severity string

const (
	// SeverityError findings make the file unusable. The stack would
	// reject or silently misbehave on it.
	SeverityError Severity = "error"

	// SeverityWarning findings are legal but suspicious.
	SeverityWarning Severity = "warning"
)

// Finding is one lint issue in one file.
type Finding struct {
	// Severity is error or warning.
	Severity Severity

	// Rule identifies the alert or recording rule the finding concerns.
	// Empty for file-level findings.
	Rule string

	// Message describes the issue.
	Message string

	// Line is the 1-based line number in the source, 0 if unknown.
	Line int
}

// Result aggregates findings for one linted file.
type Result struct {
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
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// Clean reports whether the file passed without errors. Warnings do not
// make a file dirty.
func (r *Result) Clean() bool {
	return r.Errors() == 0
}

func (r *Result) addError(rule string, line int, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{
		Severity: SeverityError,
		Rule:     rule,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
	})
}

func (r *Result) addWarning(rule string, line int, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{
		Severity: SeverityWarning,
		Rule:     rule,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
	})
}
