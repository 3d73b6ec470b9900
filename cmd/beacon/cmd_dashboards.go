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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/beacon/cmd/beacon/internal/dashboards"
	"github.com/AleutianAI/beacon/pkg/ux"
	"github.com/spf13/cobra"
)

// runDashboardsLintCommand lints each dashboard JSON file and also
// checks UID uniqueness across the whole set, which no single-file
// lint can see.
func runDashboardsLintCommand(cmd *cobra.Command, args []string) {
	start := time.Now()

	out, err := lintDashboardFiles(args)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "dashboards lint", start, nil, false, err))
	}

	if !quietOutput && !jsonOutput && !compactOutput {
		renderLintReport("Beacon Dashboards Lint", out)
	}
	os.Exit(OutputResult(outputConfig(), "dashboards lint", start, out, out.Errors > 0, nil))
}

// lintDashboardFiles lints every file and adds cross-file UID findings.
func lintDashboardFiles(paths []string) (*LintResultOutput, error) {
	out := &LintResultOutput{}
	seenUID := make(map[string]string)

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		result := dashboards.LintDashboard(data)

		out.Files++
		out.Errors += result.Errors()
		out.Warnings += result.Warnings()
		for _, f := range result.Findings {
			out.Findings = append(out.Findings, LintFinding{
				File:     path,
				Severity: string(f.Severity),
				Rule:     f.Panel,
				Message:  f.Message,
			})
		}

		if result.UID != "" {
			if prev, dup := seenUID[result.UID]; dup {
				out.Errors++
				out.Findings = append(out.Findings, LintFinding{
					File:     path,
					Severity: string(dashboards.SeverityError),
					Message:  fmt.Sprintf("uid %q already used by %s", result.UID, prev),
				})
			} else {
				seenUID[result.UID] = path
			}
		}
	}
	return out, nil
}

// runDashboardsPushCommand publishes each dashboard to Grafana via the
// HTTP API. Push requires an API token; there is no fallback to admin
// credentials.
func runDashboardsPushCommand(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	token := grafanaAPIToken(ctx)
	if token == "" {
		os.Exit(OutputResult(outputConfig(), "dashboards push", start, nil, false,
			fmt.Errorf("no Grafana API token available; run `beacon secrets setup %s`", SecretGrafanaAPIToken)))
	}

	client := dashboards.NewClient(serviceBaseURL("grafana", "http://localhost:3000"), token, 15*time.Second)

	type pushReport struct {
		File    string `json:"file"`
		UID     string `json:"uid,omitempty"`
		URL     string `json:"url,omitempty"`
		Version int    `json:"version,omitempty"`
		Error   string `json:"error,omitempty"`
	}
	reports := make([]pushReport, 0, len(args))
	failed := 0

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			os.Exit(OutputResult(outputConfig(), "dashboards push", start, nil, false,
				fmt.Errorf("reading %s: %w", path, err)))
		}

		result, err := client.Push(ctx, data, dashFolderUID, dashOverwrite)
		if err != nil {
			failed++
			reports = append(reports, pushReport{File: path, Error: err.Error()})
			if !quietOutput && !jsonOutput && !compactOutput {
				ux.ServiceStatus(path, ux.IconError, err.Error())
			}
			continue
		}
		reports = append(reports, pushReport{
			File:    path,
			UID:     result.UID,
			URL:     result.URL,
			Version: result.Version,
		})
		if !quietOutput && !jsonOutput && !compactOutput {
			ux.ServiceStatus(path, ux.IconSuccess, fmt.Sprintf("uid %s v%d", result.UID, result.Version))
		}
	}

	if !quietOutput && !jsonOutput && !compactOutput {
		if failed == 0 {
			ux.Success(fmt.Sprintf("Pushed %d dashboard(s)", len(args)))
		} else {
			ux.Error(fmt.Sprintf("%d of %d dashboard(s) failed to push", failed, len(args)))
		}
	}
	os.Exit(OutputResult(outputConfig(), "dashboards push", start, reports, failed > 0, nil))
}
