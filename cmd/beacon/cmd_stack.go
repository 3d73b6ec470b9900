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
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AleutianAI/beacon/cmd/beacon/config"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/infra/compose"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/infra/process"
	"github.com/AleutianAI/beacon/pkg/ux"
	"github.com/spf13/cobra"
)

// newComposeExecutor builds the compose executor from the loaded config
// and the resolved stack directory.
func newComposeExecutor(stackDir string) (*compose.DefaultExecutor, error) {
	stack := config.Global.Stack
	return compose.NewDefaultExecutor(compose.Config{
		StackDir:     stackDir,
		ProjectName:  stack.ProjectName,
		BaseFile:     stack.BaseFile,
		OverrideFile: stack.OverrideFile,
	}, process.NewDefaultManager())
}

// acquireStackLock takes the single-instance lock so two terminals
// cannot mutate the stack at the same time (one bringing it up while
// the other tears it down).
func acquireStackLock() *process.ProcessLock {
	lock := process.NewProcessLock(process.DefaultProcessLockConfig())
	if err := lock.Acquire(); err != nil {
		ux.Error(fmt.Sprintf("another beacon instance holds the stack lock: %v", err))
		os.Exit(CLIExitError)
	}
	return lock
}

// runStackUp starts the stack and then runs the health wait loop, so
// "up" only succeeds once every critical service answers.
func runStackUp(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lock := acquireStackLock()
	defer lock.Release()

	stackDir, err := ensureStackDir(rootCmd.Version)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "stack up", start, nil, false,
			fmt.Errorf("preparing stack directory: %w", err)))
	}
	if err := ensureEssentialDirs(stackDir); err != nil {
		os.Exit(OutputResult(outputConfig(), "stack up", start, nil, false, err))
	}

	executor, err := newComposeExecutor(stackDir)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "stack up", start, nil, false, err))
	}

	ux.Info("Starting the observability stack...")
	result, err := executor.Up(ctx, compose.UpOptions{
		Pull:          stackPull,
		RemoveOrphans: true,
	})
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "stack up", start, nil, false, err))
	}
	if !result.Success {
		err := NewCommandError(result.Command, result.ExitCode, result.Stderr, nil)
		os.Exit(OutputResult(outputConfig(), "stack up", start, nil, false, err))
	}

	out, err := waitForStackHealth(ctx, stackWaitSeconds)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "stack up", start, nil, false, err))
	}
	if out != nil {
		if !quietOutput && !jsonOutput && !compactOutput {
			renderCheckReport(out)
		}
		os.Exit(OutputResult(outputConfig(), "stack up", start, out, !out.Healthy, nil))
	}
	ux.Success("Stack started")
	os.Exit(OutputResult(outputConfig(), "stack up", start, nil, false, nil))
}

// runStackDown stops and removes all stack containers. With --volumes
// it also deletes the named volumes, which wipes the Prometheus TSDB
// and Loki chunks, so that path asks for confirmation first.
func runStackDown(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if stackVolumes && !confirmDataDeletion() {
		ux.Info("Aborted. No changes were made.")
		return
	}

	lock := acquireStackLock()
	defer lock.Release()

	stackDir, err := getStackDir()
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "stack down", start, nil, false, err))
	}
	executor, err := newComposeExecutor(stackDir)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "stack down", start, nil, false, err))
	}

	ux.Info("Stopping the observability stack...")
	result, err := executor.Down(ctx, compose.DownOptions{
		RemoveOrphans: true,
		RemoveVolumes: stackVolumes,
	})
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "stack down", start, nil, false, err))
	}
	if !result.Success {
		err := NewCommandError(result.Command, result.ExitCode, result.Stderr, nil)
		os.Exit(OutputResult(outputConfig(), "stack down", start, nil, false, err))
	}

	ux.Success("Stack stopped")
	os.Exit(OutputResult(outputConfig(), "stack down", start, nil, false, nil))
}

// runStackRestart performs a graceful stop, brings everything back up,
// and waits for health. Equivalent to down (keeping volumes) plus up.
func runStackRestart(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lock := acquireStackLock()
	defer lock.Release()

	stackDir, err := getStackDir()
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "stack restart", start, nil, false, err))
	}
	executor, err := newComposeExecutor(stackDir)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "stack restart", start, nil, false, err))
	}

	ux.Info("Stopping services...")
	stopResult, err := executor.Stop(ctx, compose.StopOptions{})
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "stack restart", start, nil, false, err))
	}
	if stopResult.ForceStopped > 0 {
		ux.Warning(fmt.Sprintf("%d container(s) needed a force stop", stopResult.ForceStopped))
	}

	ux.Info("Starting services...")
	upResult, err := executor.Up(ctx, compose.UpOptions{RemoveOrphans: true})
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "stack restart", start, nil, false, err))
	}
	if !upResult.Success {
		err := NewCommandError(upResult.Command, upResult.ExitCode, upResult.Stderr, nil)
		os.Exit(OutputResult(outputConfig(), "stack restart", start, nil, false, err))
	}

	out, err := waitForStackHealth(ctx, stackWaitSeconds)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "stack restart", start, nil, false, err))
	}
	if out != nil {
		if !quietOutput && !jsonOutput && !compactOutput {
			renderCheckReport(out)
		}
		os.Exit(OutputResult(outputConfig(), "stack restart", start, out, !out.Healthy, nil))
	}
	ux.Success("Stack restarted")
	os.Exit(OutputResult(outputConfig(), "stack restart", start, nil, false, nil))
}

// runStackStatus prints one line per container.
func runStackStatus(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stackDir, err := getStackDir()
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "stack status", start, nil, false, err))
	}
	executor, err := newComposeExecutor(stackDir)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "stack status", start, nil, false, err))
	}

	status, err := executor.Status(ctx)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "stack status", start, nil, false, err))
	}

	if !quietOutput && !jsonOutput && !compactOutput {
		renderStackStatus(status)
	}
	hasFindings := status.Stopped > 0 || status.Unhealthy > 0
	os.Exit(OutputResult(outputConfig(), "stack status", start, status, hasFindings, nil))
}

// renderStackStatus prints the container table.
func renderStackStatus(status *compose.Status) {
	ux.Title("Beacon Stack Status")

	if len(status.Services) == 0 {
		ux.Warning("No stack containers found. Run `beacon stack up` to start.")
		return
	}
	for _, svc := range status.Services {
		icon := ux.IconSuccess
		detail := svc.State
		switch {
		case svc.State != "running":
			icon = ux.IconError
		case svc.Healthy != nil && !*svc.Healthy:
			icon = ux.IconWarning
			detail = "running (unhealthy)"
		}
		if len(svc.Ports) > 0 {
			ports := make([]string, 0, len(svc.Ports))
			for _, p := range svc.Ports {
				ports = append(ports, fmt.Sprintf("%d", p.HostPort))
			}
			detail += " :" + strings.Join(ports, ",")
		}
		ux.ServiceStatus(svc.Name, icon, detail)
	}
	ux.Summary(status.Running, status.Unhealthy, status.Stopped)
}

// waitForStackHealth runs the bounded health wait loop after a start.
// Returns nil output when waiting is disabled.
func waitForStackHealth(ctx context.Context, waitSeconds int) (*CheckResultOutput, error) {
	if waitSeconds <= 0 {
		return nil, nil
	}

	services := ServicesFromConfig(&config.Global)
	checker := NewDefaultHealthChecker(process.NewDefaultManager(), DefaultHealthCheckerConfig())

	var spinner *ux.Spinner
	if !quietOutput && !jsonOutput && !compactOutput && ux.ShouldShowProgress() {
		spinner = ux.NewSpinner(fmt.Sprintf("Waiting up to %ds for services", waitSeconds))
		spinner.Start()
	}

	opts := DefaultWaitOptions()
	opts.Timeout = time.Duration(waitSeconds) * time.Second
	opts.Multiplier = config.Global.Retry.Multiplier

	result, err := checker.WaitForServices(ctx, services, opts)
	if spinner != nil {
		spinner.Stop()
	}
	if result == nil {
		return nil, err
	}

	out := buildCheckOutput(result.Services, services, result.Duration)
	out.Healthy = result.Success
	out.FailedCritical = result.FailedCritical
	recordCheckRun(services, out)
	return out, nil
}

// confirmDataDeletion prompts before a destructive volume wipe.
func confirmDataDeletion() bool {
	fmt.Println("WARNING: You are about to permanently delete all stack volumes,")
	fmt.Println("including the Prometheus TSDB, Loki chunks, and Grafana database.")
	fmt.Print("Are you sure you want to continue? (yes/no): ")
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "yes" || input == "y"
}
