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

	"github.com/AleutianAI/beacon/cmd/beacon/config"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/history"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/infra/process"
	"github.com/AleutianAI/beacon/pkg/ux"
	"github.com/spf13/cobra"
)

// runCheckCommand performs one concurrent health pass over every
// configured service. With --wait N it keeps retrying for up to N
// seconds, which is what the runbooks mean by "beacon check --wait 120".
//
// Exit codes: 0 all critical healthy, 1 critical failure, 2 the check
// itself could not run.
func runCheckCommand(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	services := ServicesFromConfig(&config.Global)
	checker := NewDefaultHealthChecker(process.NewDefaultManager(), DefaultHealthCheckerConfig())

	out, err := runHealthPass(ctx, checker, services, checkWaitSeconds)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "check", start, nil, false, err))
	}

	recordCheckRun(services, out)

	if !quietOutput && !jsonOutput && !compactOutput {
		renderCheckReport(out)
	}
	os.Exit(OutputResult(outputConfig(), "check", start, out, !out.Healthy, nil))
}

// runWaitCommand is the startup-check loop: retry at a configurable
// interval until every critical service is healthy or the budget runs
// out. By default the interval is fixed, the way the stack's original
// startup scripts polled; --multiplier enables exponential backoff.
func runWaitCommand(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts, err := buildWaitOptions()
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "wait", start, nil, false, err))
	}

	services := ServicesFromConfig(&config.Global)
	checker := NewDefaultHealthChecker(process.NewDefaultManager(), DefaultHealthCheckerConfig())

	var spinner *ux.Spinner
	if !quietOutput && !jsonOutput && !compactOutput && ux.ShouldShowProgress() {
		spinner = ux.NewSpinner(fmt.Sprintf("Waiting up to %s for the stack", opts.Timeout))
		spinner.Start()
	}

	result, waitErr := checker.WaitForServices(ctx, services, opts)
	if spinner != nil {
		spinner.Stop()
	}
	if result == nil {
		os.Exit(OutputResult(outputConfig(), "wait", start, nil, false, waitErr))
	}

	out := buildCheckOutput(result.Services, services, result.Duration)
	out.Healthy = result.Success
	out.FailedCritical = result.FailedCritical
	recordCheckRun(services, out)

	if !quietOutput && !jsonOutput && !compactOutput {
		renderCheckReport(out)
	}
	os.Exit(OutputResult(outputConfig(), "wait", start, out, !out.Healthy, nil))
}

// runHealthPass runs either a single concurrent pass (waitSeconds == 0)
// or a bounded retry loop, and folds the result into the output shape.
func runHealthPass(ctx context.Context, checker HealthChecker, services []ServiceDefinition, waitSeconds int) (*CheckResultOutput, error) {
	if waitSeconds > 0 {
		opts := DefaultWaitOptions()
		opts.Timeout = time.Duration(waitSeconds) * time.Second
		opts.Multiplier = config.Global.Retry.Multiplier
		opts.FailFast = checkFailFast

		result, err := checker.WaitForServices(ctx, services, opts)
		if result == nil {
			return nil, err
		}
		out := buildCheckOutput(result.Services, services, result.Duration)
		out.Healthy = result.Success
		out.FailedCritical = result.FailedCritical
		return out, nil
	}

	passStart := time.Now()
	statuses, err := checker.CheckAllServices(ctx, services)
	if err != nil {
		return nil, err
	}
	return buildCheckOutput(statuses, services, time.Since(passStart)), nil
}

// buildCheckOutput converts raw statuses into the JSON output shape,
// deriving Healthy and FailedCritical from the criticality flags.
func buildCheckOutput(statuses []HealthStatus, services []ServiceDefinition, duration time.Duration) *CheckResultOutput {
	critical := make(map[string]bool, len(services))
	for _, svc := range services {
		critical[svc.Name] = svc.Critical
	}

	out := &CheckResultOutput{
		Healthy:    true,
		Services:   make([]ServiceReport, 0, len(statuses)),
		DurationMs: duration.Milliseconds(),
	}
	for _, st := range statuses {
		out.Services = append(out.Services, ServiceReport{
			Name:      st.Name,
			State:     string(st.State),
			Critical:  critical[st.Name],
			Message:   st.Message,
			LatencyMs: st.Latency.Milliseconds(),
			HTTPCode:  st.HTTPStatus,
		})
		if st.State != HealthStateHealthy && st.State != HealthStateSkipped && critical[st.Name] {
			out.Healthy = false
			out.FailedCritical = append(out.FailedCritical, st.Name)
		}
	}
	return out
}

// renderCheckReport prints the human-readable table.
func renderCheckReport(out *CheckResultOutput) {
	ux.Title("Beacon Health Check")

	healthy, warn, down := 0, 0, 0
	for _, svc := range out.Services {
		icon := ux.IconSuccess
		detail := fmt.Sprintf("%dms", svc.LatencyMs)
		switch {
		case svc.State == string(HealthStateHealthy):
			healthy++
		case svc.State == string(HealthStateSkipped):
			icon = ux.IconPending
			detail = "skipped"
		case svc.Critical:
			icon = ux.IconError
			detail = svc.Message
			down++
		default:
			icon = ux.IconWarning
			detail = svc.Message
			warn++
		}
		ux.ServiceStatus(svc.Name, icon, detail)
	}
	ux.Summary(healthy, warn, down)

	if out.Healthy {
		ux.Success(fmt.Sprintf("All critical services healthy in %dms", out.DurationMs))
	} else {
		ux.Error(fmt.Sprintf("Critical services failing: %v", out.FailedCritical))
		ux.Muted("See `beacon runbook list` for recovery procedures.")
	}
}

// recordCheckRun persists the pass into the local history store. The
// store is an operator convenience; a failure to open it never fails
// the check itself.
func recordCheckRun(services []ServiceDefinition, out *CheckResultOutput) {
	hcfg := config.Global.History
	if hcfg.Dir == "" {
		return
	}
	store, err := history.Open(hcfg.Dir, hcfg.RetentionDays)
	if err != nil {
		ux.Muted(fmt.Sprintf("history store unavailable: %v", err))
		return
	}
	defer store.Close()

	critical := make(map[string]bool, len(services))
	for _, svc := range services {
		critical[svc.Name] = svc.Critical
	}
	record := history.CheckRecord{
		Healthy:  out.Healthy,
		Services: make([]history.ServiceSample, 0, len(out.Services)),
	}
	for _, svc := range out.Services {
		record.Services = append(record.Services, history.ServiceSample{
			Name:      svc.Name,
			Healthy:   svc.State == string(HealthStateHealthy),
			Critical:  critical[svc.Name],
			LatencyMs: svc.LatencyMs,
			Message:   svc.Message,
		})
	}
	if err := store.Append(record); err != nil {
		ux.Muted(fmt.Sprintf("could not record check run: %v", err))
	}
}

// buildWaitOptions parses the wait command's flags into WaitOptions.
func buildWaitOptions() (WaitOptions, error) {
	opts := DefaultWaitOptions()

	timeout, err := time.ParseDuration(waitTimeout)
	if err != nil {
		return opts, fmt.Errorf("invalid --timeout %q: %w", waitTimeout, err)
	}
	interval, err := time.ParseDuration(waitInterval)
	if err != nil {
		return opts, fmt.Errorf("invalid --interval %q: %w", waitInterval, err)
	}
	if waitMultiplier < 1.0 {
		return opts, fmt.Errorf("invalid --multiplier %v: must be >= 1.0", waitMultiplier)
	}
	if waitJitter < 0 || waitJitter > 1 {
		return opts, fmt.Errorf("invalid --jitter %v: must be in [0,1]", waitJitter)
	}

	opts.Timeout = timeout
	opts.InitialInterval = interval
	opts.Multiplier = waitMultiplier
	opts.Jitter = waitJitter
	opts.FailFast = checkFailFast
	opts.SkipOptional = waitSkipOptional
	return opts, nil
}
