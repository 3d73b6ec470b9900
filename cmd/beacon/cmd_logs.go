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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AleutianAI/beacon/cmd/beacon/internal/infra/compose"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/smoke"
	"github.com/AleutianAI/beacon/pkg/ux"
	"github.com/spf13/cobra"
)

// runLogsCommand shows container logs for the named services, or all
// of them. With --follow it streams until interrupted. This is the
// `beacon logs loki --lines 200` the runbooks lean on.
func runLogsCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stackDir, err := getStackDir()
	if err != nil {
		OutputError(jsonOutput, "could not locate the stack directory", err)
		os.Exit(CLIExitError)
	}
	executor, err := newComposeExecutor(stackDir)
	if err != nil {
		OutputError(jsonOutput, "could not build the compose executor", err)
		os.Exit(CLIExitError)
	}

	if len(args) > 0 {
		ux.Muted(fmt.Sprintf("Showing logs for %s", strings.Join(args, ", ")))
	} else {
		ux.Muted("Showing logs for all services")
	}

	err = executor.Logs(ctx, compose.LogsOptions{
		Follow:     logsFollow,
		Services:   args,
		Tail:       logsLines,
		Timestamps: true,
	}, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		OutputError(jsonOutput, "log streaming failed", err)
		os.Exit(CLIExitError)
	}
}

// runLogsTailCommand live-tails Loki over its websocket endpoint with a
// LogQL selector, bypassing the container runtime entirely. Useful when
// the stack runs on another host and only Loki is reachable.
func runLogsTailCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	window, err := time.ParseDuration(tailFor)
	if err != nil {
		OutputError(jsonOutput, fmt.Sprintf("invalid --for %q", tailFor), err)
		os.Exit(CLIExitError)
	}
	if window > 0 {
		var windowCancel context.CancelFunc
		ctx, windowCancel = context.WithTimeout(ctx, window)
		defer windowCancel()
	}

	tailer := smoke.NewLokiTailer(serviceBaseURL("loki", "http://localhost:3100"))
	entries := make(chan smoke.TailEntry, 64)

	errCh := make(chan error, 1)
	go func() {
		errCh <- tailer.Tail(ctx, tailQuery, entries)
	}()

	ux.Muted(fmt.Sprintf("Tailing %s (interrupt to stop)", tailQuery))
	for entry := range entries {
		printTailEntry(entry)
	}

	if err := <-errCh; err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		OutputError(jsonOutput, "tail connection failed", err)
		os.Exit(CLIExitError)
	}
}

// printTailEntry writes one tailed line with its timestamp and the
// service label when present.
func printTailEntry(entry smoke.TailEntry) {
	source := entry.Labels["compose_service"]
	if source == "" {
		source = entry.Labels["job"]
	}
	if source != "" {
		fmt.Printf("%s [%s] %s\n", entry.Timestamp.Format(time.RFC3339), source, entry.Line)
		return
	}
	fmt.Printf("%s %s\n", entry.Timestamp.Format(time.RFC3339), entry.Line)
}
