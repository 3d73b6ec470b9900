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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	jsonOutput       bool   // Structured CommandResult envelope on stdout
	quietOutput      bool   // Exit code only, no output
	compactOutput    bool   // JSON without indentation
	personalityLevel string // UX personality level (full/standard/minimal/machine)

	checkWaitSeconds int  // check: retry budget in seconds (0 = single pass)
	checkFailFast    bool // check/wait: stop on first critical failure

	waitTimeout      string  // wait: overall budget, e.g. "120s"
	waitInterval     string  // wait: poll interval, e.g. "2s"
	waitMultiplier   float64 // wait: interval growth per round (1.0 = fixed)
	waitJitter       float64 // wait: interval randomization [0,1]
	waitSkipOptional bool    // wait: skip non-critical services

	smokeTarget  string // smoke: single service to exercise
	smokeTimeout string // smoke: per-target budget

	logsFollow bool // logs: stream continuously
	logsLines  int  // logs: tail line count per container
	tailQuery  string
	tailFor    string // logs tail: how long to stay attached (0 = forever)

	rulesAlertmanagerFiles []string // rules lint: Alertmanager config paths

	dashFolderUID string
	dashOverwrite bool

	stackPull        bool // stack up: pull newer images first
	stackWaitSeconds int  // stack up/restart: health wait budget
	stackVolumes     bool // stack down: also remove named volumes

	serveListen string // serve: listen address override
	serveOnce   bool   // serve: run one check cycle and exit

	historyService string
	historyWindow  string
	historyLimit   int
	historyKeep    string // history prune: retention window, e.g. "720h"

	diagBundle    bool   // diag: write a tar.gz support bundle
	diagUpload    string // diag: gs://bucket/prefix destination
	diagWithLogs  bool   // diag: include container logs
	diagLogsLines int

	rootCmd = &cobra.Command{
		Use:   "beacon",
		Short: "A cli to operate the Beacon observability stack",
		Long: `Beacon deploys, checks, and maintains a self-hosted observability
stack (Prometheus, Alertmanager, Grafana, Loki, Tempo) on your own
infrastructure.`,
	}

	// --- Health checks ---
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Run one health pass over every configured service",
		Run:   runCheckCommand, // Defined in cmd_check.go
	}
	waitCmd = &cobra.Command{
		Use:   "wait",
		Short: "Poll until all critical services are healthy or the budget runs out",
		Run:   runWaitCommand, // Defined in cmd_check.go
	}

	// --- Smoke suites ---
	smokeCmd = &cobra.Command{
		Use:   "smoke [suite...]",
		Short: "Run API smoke assertions (metrics, alerts, logs, traces, dashboards, scrape)",
		Long: `Runs behavioral assertions against the stack's JSON APIs, one suite
per service. With no arguments every suite runs.

Suites:
  metrics     Prometheus query, range query, and scrape target assertions
  alerts      Alertmanager cluster status and alerts API
  logs        Loki readiness and push/query round trip
  traces      Tempo echo and search API
  dashboards  Grafana health and datasource presence
  scrape      expected metric families on each exporter's /metrics`,
		Run: runSmokeCommand, // Defined in cmd_smoke.go
	}

	// --- Logs ---
	logsCmd = &cobra.Command{
		Use:   "logs [service...]",
		Short: "Show container logs from the stack",
		Run:   runLogsCommand, // Defined in cmd_logs.go
	}
	logsTailCmd = &cobra.Command{
		Use:   "tail",
		Short: "Live-tail log lines from Loki over the tail websocket",
		Run:   runLogsTailCommand, // Defined in cmd_logs.go
	}

	// --- Config lint ---
	rulesCmd = &cobra.Command{
		Use:   "rules",
		Short: "Work with Prometheus rule files and the Alertmanager config",
	}
	rulesLintCmd = &cobra.Command{
		Use:   "lint [paths...]",
		Short: "Lint Prometheus rule files and Alertmanager configs",
		Run:   runRulesLintCommand, // Defined in cmd_rules.go
	}

	// --- Dashboards ---
	dashboardsCmd = &cobra.Command{
		Use:   "dashboards",
		Short: "Lint and publish Grafana dashboard definitions",
	}
	dashboardsLintCmd = &cobra.Command{
		Use:   "lint [paths...]",
		Short: "Lint dashboard JSON files",
		Args:  cobra.MinimumNArgs(1),
		Run:   runDashboardsLintCommand, // Defined in cmd_dashboards.go
	}
	dashboardsPushCmd = &cobra.Command{
		Use:   "push [paths...]",
		Short: "Push dashboard JSON files to Grafana",
		Args:  cobra.MinimumNArgs(1),
		Run:   runDashboardsPushCommand, // Defined in cmd_dashboards.go
	}

	// --- Runbooks ---
	runbookCmd = &cobra.Command{
		Use:   "runbook",
		Short: "Operator runbooks embedded in the binary",
	}
	runbookListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the available runbooks",
		Run:   runRunbookList, // Defined in cmd_runbook.go
	}
	runbookShowCmd = &cobra.Command{
		Use:   "show [slug]",
		Short: "Print a runbook to the terminal",
		Args:  cobra.ExactArgs(1),
		Run:   runRunbookShow, // Defined in cmd_runbook.go
	}

	// --- Stack Management ---
	stackCmd = &cobra.Command{
		Use:   "stack",
		Short: "Manage the local observability stack on your machine",
	}
	stackUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Start all stack services and wait for them to become healthy",
		Run:   runStackUp, // Defined in cmd_stack.go
	}
	stackDownCmd = &cobra.Command{
		Use:   "down",
		Short: "Stop and remove all stack containers",
		Run:   runStackDown, // Defined in cmd_stack.go
	}
	stackRestartCmd = &cobra.Command{
		Use:   "restart",
		Short: "Stop and restart the stack, then wait for health",
		Run:   runStackRestart, // Defined in cmd_stack.go
	}
	stackStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show container state for every stack service",
		Run:   runStackStatus, // Defined in cmd_stack.go
	}
	stackLogsCmd = &cobra.Command{
		Use:   "logs [service...]",
		Short: "Show container logs from the stack",
		Run:   runLogsCommand, // Shared with the top-level logs command
	}

	// --- Continuous monitor ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the continuous monitor with a status API and /metrics",
		Run:   runServeCommand, // Defined in cmd_serve.go
	}

	// --- Check history ---
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Report uptime, latency trend, and flap count per service",
		Run:   runHistoryTrends, // Defined in cmd_history.go
	}
	historyListCmd = &cobra.Command{
		Use:   "list",
		Short: "List recent check runs",
		Run:   runHistoryList, // Defined in cmd_history.go
	}
	historyPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete check runs older than the retention window",
		Run:   runHistoryPrune, // Defined in cmd_history.go
	}

	// --- Diagnostics ---
	diagCmd = &cobra.Command{
		Use:   "diag",
		Short: "Collect a diagnostic snapshot for support",
		Run:   runDiagCommand, // Defined in cmd_diag.go
	}
	diagPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Remove expired diagnostic snapshots from local storage",
		Run:   runDiagPrune, // Defined in cmd_diag.go
	}

	// --- Secrets ---
	secretsCmd = &cobra.Command{
		Use:   "secrets",
		Short: "Inspect and validate the credentials beacon uses",
	}
	secretsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List which known secrets are present (names only, never values)",
		Run:   runSecretsList, // Defined in cmd_secrets.go
	}
	secretsValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Validate the format of every known secret",
		Run:   runSecretsValidate, // Defined in cmd_secrets.go
	}
	secretsSetupCmd = &cobra.Command{
		Use:   "setup [name]",
		Short: "Print setup instructions for a secret",
		Args:  cobra.ExactArgs(1),
		Run:   runSecretsSetup, // Defined in cmd_secrets.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output a structured JSON envelope for scripting")
	rootCmd.PersistentFlags().BoolVarP(&quietOutput, "quiet", "q", false,
		"Suppress output; communicate via exit code only")
	rootCmd.PersistentFlags().BoolVar(&compactOutput, "compact", false,
		"Emit JSON without indentation (implies --json)")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full (default), standard, minimal, or machine (scripting)")

	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().IntVar(&checkWaitSeconds, "wait", 0,
		"Keep retrying for up to N seconds until all critical services pass")
	checkCmd.Flags().BoolVar(&checkFailFast, "fail-fast", false,
		"Stop on the first critical failure")

	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().StringVar(&waitTimeout, "timeout", "60s", "Overall wait budget")
	waitCmd.Flags().StringVar(&waitInterval, "interval", "2s", "Poll interval between rounds")
	waitCmd.Flags().Float64Var(&waitMultiplier, "multiplier", 1.0,
		"Interval growth per failed round (1.0 = fixed interval)")
	waitCmd.Flags().Float64Var(&waitJitter, "jitter", 0,
		"Interval randomization fraction in [0,1]")
	waitCmd.Flags().BoolVar(&checkFailFast, "fail-fast", false,
		"Stop on the first critical failure")
	waitCmd.Flags().BoolVar(&waitSkipOptional, "skip-optional", false,
		"Skip non-critical services entirely")

	rootCmd.AddCommand(smokeCmd)
	smokeCmd.Flags().StringVar(&smokeTarget, "target", "",
		"Run only the suite for one service (prometheus, alertmanager, loki, tempo, grafana)")
	smokeCmd.Flags().StringVar(&smokeTimeout, "timeout", "30s", "Per-target budget")

	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Stream logs continuously")
	logsCmd.Flags().IntVar(&logsLines, "lines", 0, "Limit output to the last N lines per container")
	logsCmd.AddCommand(logsTailCmd)
	logsTailCmd.Flags().StringVar(&tailQuery, "query", `{job=~".+"}`,
		"LogQL label selector to tail")
	logsTailCmd.Flags().StringVar(&tailFor, "for", "0",
		"Stay attached for this long (0 = until interrupted)")

	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesLintCmd)
	rulesLintCmd.Flags().StringArrayVar(&rulesAlertmanagerFiles, "alertmanager", nil,
		"Alertmanager config file to lint (repeatable)")

	rootCmd.AddCommand(dashboardsCmd)
	dashboardsCmd.AddCommand(dashboardsLintCmd)
	dashboardsCmd.AddCommand(dashboardsPushCmd)
	dashboardsPushCmd.Flags().StringVar(&dashFolderUID, "folder", "",
		"Grafana folder UID to push into")
	dashboardsPushCmd.Flags().BoolVar(&dashOverwrite, "overwrite", false,
		"Overwrite existing dashboards regardless of version")

	rootCmd.AddCommand(runbookCmd)
	runbookCmd.AddCommand(runbookListCmd)
	runbookCmd.AddCommand(runbookShowCmd)

	rootCmd.AddCommand(stackCmd)
	stackCmd.AddCommand(stackUpCmd)
	stackCmd.AddCommand(stackDownCmd)
	stackCmd.AddCommand(stackRestartCmd)
	stackCmd.AddCommand(stackStatusCmd)
	stackCmd.AddCommand(stackLogsCmd)
	stackUpCmd.Flags().BoolVar(&stackPull, "pull", false, "Pull newer images before starting")
	stackUpCmd.Flags().IntVar(&stackWaitSeconds, "wait", 120,
		"Health wait budget in seconds after start (0 disables the wait)")
	stackRestartCmd.Flags().IntVar(&stackWaitSeconds, "wait", 120,
		"Health wait budget in seconds after restart (0 disables the wait)")
	stackDownCmd.Flags().BoolVar(&stackVolumes, "volumes", false,
		"DANGER: also remove named volumes (deletes all metric and log data)")
	stackLogsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Stream logs continuously")
	stackLogsCmd.Flags().IntVar(&logsLines, "lines", 0, "Limit output to the last N lines per container")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"Listen address override, e.g. :8080")
	serveCmd.Flags().BoolVar(&serveOnce, "once", false,
		"Run a single check cycle, print the snapshot, and exit")

	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyPruneCmd)
	historyCmd.Flags().StringVar(&historyService, "service", "", "Limit the report to one service")
	historyCmd.Flags().StringVar(&historyWindow, "window", "24h", "Trend window")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to show")
	historyPruneCmd.Flags().StringVar(&historyKeep, "keep", "720h",
		"Keep runs newer than this window")

	rootCmd.AddCommand(diagCmd)
	diagCmd.AddCommand(diagPruneCmd)
	diagCmd.Flags().BoolVar(&diagBundle, "bundle", false,
		"Write a tar.gz support bundle including stack config files")
	diagCmd.Flags().StringVar(&diagUpload, "upload", "",
		"Upload destination, e.g. gs://bucket/prefix")
	diagCmd.Flags().BoolVar(&diagWithLogs, "logs", false, "Include container logs")
	diagCmd.Flags().IntVar(&diagLogsLines, "lines", 200, "Log lines per container with --logs")

	rootCmd.AddCommand(secretsCmd)
	secretsCmd.AddCommand(secretsListCmd)
	secretsCmd.AddCommand(secretsValidateCmd)
	secretsCmd.AddCommand(secretsSetupCmd)
}

// outputConfig folds the global output flags into one struct.
func outputConfig() OutputConfig {
	return OutputConfig{
		JSON:    jsonOutput || compactOutput,
		Compact: compactOutput,
		Quiet:   quietOutput,
	}
}
