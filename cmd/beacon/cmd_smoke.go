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
	"sort"
	"syscall"
	"time"

	"github.com/AleutianAI/beacon/cmd/beacon/config"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/diagnostics"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/smoke"
	"github.com/AleutianAI/beacon/pkg/ux"
	"github.com/spf13/cobra"
)

// smokeSuiteNames maps suite argument to the service it exercises.
var smokeSuiteNames = map[string]string{
	"metrics":    "prometheus",
	"alerts":     "alertmanager",
	"logs":       "loki",
	"traces":     "tempo",
	"dashboards": "grafana",
	"scrape":     "scrape",
}

// smokeTargetAliases lets operators name the service instead of the
// suite, so `beacon smoke --target loki` works like `beacon smoke logs`.
var smokeTargetAliases = map[string]string{
	"prometheus":   "metrics",
	"alertmanager": "alerts",
	"loki":         "logs",
	"tempo":        "traces",
	"grafana":      "dashboards",
}

// runSmokeCommand assembles the requested suites and runs them
// concurrently. A failing assertion exits 1; an unusable invocation
// (unknown suite, bad timeout) exits 2.
func runSmokeCommand(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	perTarget, err := time.ParseDuration(smokeTimeout)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "smoke", start, nil, false,
			fmt.Errorf("invalid --timeout %q: %w", smokeTimeout, err)))
	}

	suites, err := selectSmokeSuites(args, smokeTarget)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "smoke", start, nil, false, err))
	}

	suite, err := buildSmokeSuite(ctx, suites, perTarget)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "smoke", start, nil, false, err))
	}
	suite.PerTargetTimeout = perTarget

	summary := suite.Run(ctx)
	out := buildSmokeOutput(summary)

	if !quietOutput && !jsonOutput && !compactOutput {
		renderSmokeReport(out)
	}
	os.Exit(OutputResult(outputConfig(), "smoke", start, out, !out.AllGreen, nil))
}

// selectSmokeSuites resolves positional suite names and the --target
// flag into a sorted, de-duplicated suite list. Empty input means all.
func selectSmokeSuites(args []string, target string) ([]string, error) {
	picked := make(map[string]bool)

	for _, arg := range args {
		if arg == "all" {
			for name := range smokeSuiteNames {
				picked[name] = true
			}
			continue
		}
		if _, ok := smokeSuiteNames[arg]; !ok {
			return nil, fmt.Errorf("unknown smoke suite %q (try: metrics, alerts, logs, traces, dashboards, scrape)", arg)
		}
		picked[arg] = true
	}

	if target != "" {
		suite, ok := smokeTargetAliases[target]
		if !ok {
			return nil, fmt.Errorf("unknown smoke target %q (try: prometheus, alertmanager, loki, tempo, grafana)", target)
		}
		picked[suite] = true
	}

	if len(picked) == 0 {
		for name := range smokeSuiteNames {
			picked[name] = true
		}
	}

	suites := make([]string, 0, len(picked))
	for name := range picked {
		suites = append(suites, name)
	}
	sort.Strings(suites)
	return suites, nil
}

// buildSmokeSuite wires a Checker per selected suite using the
// configured service URLs.
func buildSmokeSuite(ctx context.Context, suites []string, timeout time.Duration) (*smoke.Suite, error) {
	suite := smoke.NewSuite()
	for _, name := range suites {
		switch name {
		case "metrics":
			checker, err := smoke.NewPrometheusChecker(serviceBaseURL("prometheus", "http://localhost:9090"))
			if err != nil {
				return nil, fmt.Errorf("prometheus checker: %w", err)
			}
			suite.Add(checker)
		case "alerts":
			suite.Add(smoke.NewAlertmanagerChecker(serviceBaseURL("alertmanager", "http://localhost:9093"), timeout))
		case "logs":
			lokiURL := serviceBaseURL("loki", "http://localhost:3100")
			suite.Add(smoke.NewLokiChecker(lokiURL, timeout))
			suite.Add(smoke.NewTailChecker(lokiURL, 3*time.Second))
		case "traces":
			suite.Add(smoke.NewTempoChecker(serviceBaseURL("tempo", "http://localhost:3200"), timeout))
		case "dashboards":
			token := grafanaAPIToken(ctx)
			suite.Add(smoke.NewGrafanaChecker(serviceBaseURL("grafana", "http://localhost:3000"), token, timeout))
		case "scrape":
			promURL := serviceBaseURL("prometheus", "http://localhost:9090")
			suite.Add(smoke.NewScrapeChecker("prometheus", promURL+"/metrics",
				[]string{"prometheus_build_info", "prometheus_tsdb_head_series"}, timeout))
			nodeURL := serviceBaseURL("node-exporter", "http://localhost:9100")
			suite.Add(smoke.NewScrapeChecker("node-exporter", nodeURL+"/metrics",
				[]string{"node_cpu_seconds_total", "node_memory_MemTotal_bytes"}, timeout))
		}
	}
	return suite, nil
}

// serviceBaseURL reads the configured base URL for a service, falling
// back to the stack's default port layout.
func serviceBaseURL(name, fallback string) string {
	if svc := config.Global.ServiceByName(name); svc != nil && svc.URL != "" {
		return svc.URL
	}
	return fallback
}

// grafanaAPIToken resolves the Grafana token through the secrets
// manager. An empty token is fine: the Grafana checker downgrades its
// datasource assertions to a skip. The value itself is never printed.
func grafanaAPIToken(ctx context.Context) string {
	manager := NewDefaultSecretsManager(config.Global.Secrets, diagnostics.NewNoOpDiagnosticsMetrics())
	token, err := manager.GetSecretWithDefault(ctx, SecretGrafanaAPIToken, "")
	if err != nil {
		ux.Muted(fmt.Sprintf("grafana token lookup failed: %v", err))
		return ""
	}
	return token
}

// buildSmokeOutput converts the suite summary into the JSON shape.
func buildSmokeOutput(summary smoke.Summary) *SmokeResultOutput {
	out := &SmokeResultOutput{
		Passed:   summary.Passed,
		Failed:   summary.Failed,
		Skipped:  summary.Skipped,
		Checks:   make([]SmokeCheckItem, 0, len(summary.Results)),
		AllGreen: summary.AllGreen(),
	}
	for _, r := range summary.Results {
		out.Checks = append(out.Checks, SmokeCheckItem{
			Target:  r.Target,
			Name:    r.Name,
			Status:  string(r.Status),
			Detail:  r.Detail,
			Elapsed: r.Elapsed.Round(time.Millisecond).String(),
		})
	}
	return out
}

// renderSmokeReport prints the human-readable assertion list.
func renderSmokeReport(out *SmokeResultOutput) {
	ux.Title("Beacon Smoke Suite")

	for _, check := range out.Checks {
		icon := ux.IconSuccess
		detail := check.Elapsed
		switch check.Status {
		case string(smoke.StatusFail):
			icon = ux.IconError
			detail = check.Detail
		case string(smoke.StatusSkip):
			icon = ux.IconPending
			detail = check.Detail
		}
		ux.ServiceStatus(fmt.Sprintf("%s: %s", check.Target, check.Name), icon, detail)
	}
	ux.Summary(out.Passed, out.Skipped, out.Failed)

	if out.AllGreen {
		ux.Success("All smoke assertions passed")
	} else {
		ux.Error(fmt.Sprintf("%d assertion(s) failed", out.Failed))
	}
}
