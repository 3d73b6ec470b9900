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
	"os"
	"time"

	"github.com/AleutianAI/beacon/cmd/beacon/internal/rules"
	"github.com/AleutianAI/beacon/pkg/ux"
	"github.com/spf13/cobra"
)

// runRulesLintCommand lints Prometheus rule files given as positional
// arguments and any Alertmanager configs named with --alertmanager.
// Findings never rewrite files; exit 1 on errors, 0 when only warnings
// remain.
func runRulesLintCommand(cmd *cobra.Command, args []string) {
	start := time.Now()

	if len(args) == 0 && len(rulesAlertmanagerFiles) == 0 {
		os.Exit(OutputResult(outputConfig(), "rules lint", start, nil, false,
			fmt.Errorf("nothing to lint: pass rule file paths or --alertmanager FILE")))
	}

	out, err := lintRuleFiles(args, rulesAlertmanagerFiles)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "rules lint", start, nil, false, err))
	}

	if !quietOutput && !jsonOutput && !compactOutput {
		renderLintReport("Beacon Rules Lint", out)
	}
	os.Exit(OutputResult(outputConfig(), "rules lint", start, out, out.Errors > 0, nil))
}

// lintRuleFiles runs the linters over both file sets and aggregates
// findings. An unreadable file is an infrastructure error, not a
// finding.
func lintRuleFiles(rulePaths, alertmanagerPaths []string) (*LintResultOutput, error) {
	out := &LintResultOutput{}

	for _, path := range rulePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		appendLintFindings(out, path, rules.LintPrometheusRules(data))
	}
	for _, path := range alertmanagerPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		appendLintFindings(out, path, rules.LintAlertmanagerConfig(data))
	}
	return out, nil
}

// appendLintFindings folds one file's result into the aggregate output.
func appendLintFindings(out *LintResultOutput, path string, result *rules.Result) {
	out.Files++
	out.Errors += result.Errors()
	out.Warnings += result.Warnings()
	for _, f := range result.Findings {
		out.Findings = append(out.Findings, LintFinding{
			File:     path,
			Severity: string(f.Severity),
			Rule:     f.Rule,
			Message:  f.Message,
			Line:     f.Line,
		})
	}
}

// renderLintReport prints findings grouped as they were found. Shared
// with the dashboards lint command.
func renderLintReport(title string, out *LintResultOutput) {
	ux.Title(title)

	for _, f := range out.Findings {
		icon := ux.IconWarning
		if f.Severity == string(rules.SeverityError) {
			icon = ux.IconError
		}
		location := f.File
		if f.Line > 0 {
			location = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		if f.Rule != "" {
			ux.ServiceStatus(location, icon, fmt.Sprintf("[%s] %s", f.Rule, f.Message))
		} else {
			ux.ServiceStatus(location, icon, f.Message)
		}
	}

	switch {
	case out.Errors > 0:
		ux.Error(fmt.Sprintf("%d file(s): %d error(s), %d warning(s)", out.Files, out.Errors, out.Warnings))
	case out.Warnings > 0:
		ux.Warning(fmt.Sprintf("%d file(s) clean with %d warning(s)", out.Files, out.Warnings))
	default:
		ux.Success(fmt.Sprintf("%d file(s) clean", out.Files))
	}
}
