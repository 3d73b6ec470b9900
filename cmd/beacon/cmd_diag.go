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
	"strings"
	"time"

	"github.com/AleutianAI/beacon/cmd/beacon/config"
	"github.com/AleutianAI/beacon/cmd/beacon/gcs"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/diagnostics"
	"github.com/AleutianAI/beacon/pkg/ux"
	"github.com/spf13/cobra"
)

// diagOutput is the machine-readable result of `beacon diag`.
type diagOutput struct {
	Location   string `json:"location"`
	TraceID    string `json:"trace_id"`
	SizeBytes  int64  `json:"size_bytes"`
	DurationMs int64  `json:"duration_ms"`
	Bundle     string `json:"bundle,omitempty"`
	Error      string `json:"error,omitempty"`
}

// runDiagCommand collects a diagnostic snapshot and, with --bundle,
// packs it together with the stack config into a tar.gz for support.
//
// # Description
//
// The snapshot goes to local disk by default. --upload gs://bucket or
// a configured diagnostics bucket switches storage to GCS so the whole
// team can see the result. Secret values are never collected; env vars
// with sensitive names are redacted before the snapshot is written.
func runDiagCommand(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx := cmd.Context()

	collector, err := diagnostics.NewDefaultDiagnosticsCollector(rootCmd.Version)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "diag", start, nil, false, err))
	}

	storage, storageErr := selectDiagStorage(ctx)
	if storageErr != nil {
		os.Exit(OutputResult(outputConfig(), "diag", start, nil, false, storageErr))
	}
	collector.SetStorage(storage)

	result, err := collector.Collect(ctx, diagnostics.CollectOptions{
		Reason:               "manual_request",
		Severity:             diagnostics.SeverityInfo,
		IncludeContainerLogs: diagWithLogs,
		ContainerLogLines:    diagLogsLines,
		Tags:                 map[string]string{"component": "cli"},
	})
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "diag", start, nil, false, err))
	}

	out := diagOutput{
		Location:   result.Location,
		TraceID:    result.TraceID,
		SizeBytes:  result.SizeBytes,
		DurationMs: result.DurationMs,
		Error:      result.Error,
	}

	if diagBundle {
		bundlePath, err := writeDiagBundle(ctx, storage, result)
		if err != nil {
			os.Exit(OutputResult(outputConfig(), "diag", start, out, false, err))
		}
		out.Bundle = bundlePath
	}

	if !quietOutput && !jsonOutput && !compactOutput {
		ux.Title("Beacon Diagnostics")
		ux.ServiceStatus("snapshot", ux.IconSuccess, out.Location)
		if out.Bundle != "" {
			ux.ServiceStatus("bundle", ux.IconSuccess, out.Bundle)
		}
		if out.Error != "" {
			ux.Warning(fmt.Sprintf("Collection was partial: %s", out.Error))
		}
		ux.Muted(fmt.Sprintf("Share trace ID %s with support instead of pasting logs.", out.TraceID))
	}
	os.Exit(OutputResult(outputConfig(), "diag", start, out, out.Error != "", nil))
}

// selectDiagStorage picks the storage backend. Precedence: --upload
// flag, then the configured diagnostics bucket, then local disk.
func selectDiagStorage(ctx context.Context) (diagnostics.DiagnosticsStorage, error) {
	target := diagUpload
	if target == "" && config.Global.Diagnostics.GCSBucket != "" {
		target = "gs://" + config.Global.Diagnostics.GCSBucket + "/" + config.Global.Diagnostics.GCSPrefix
	}
	if target == "" {
		return diagnostics.NewFileDiagnosticsStorage("")
	}

	bucket, prefix, err := parseGCSTarget(target)
	if err != nil {
		return nil, err
	}
	client, err := gcs.NewClient(ctx, bucket, "")
	if err != nil {
		return nil, fmt.Errorf("connecting to GCS bucket %s: %w", bucket, err)
	}
	return diagnostics.NewGCSDiagnosticsStorage(client, bucket, prefix), nil
}

// parseGCSTarget splits gs://bucket/prefix into its parts.
func parseGCSTarget(target string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(target, "gs://")
	if !ok || rest == "" {
		return "", "", fmt.Errorf("invalid upload target %q: want gs://bucket[/prefix]", target)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid upload target %q: missing bucket name", target)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// writeDiagBundle loads the stored snapshot back, adds the stack and
// config files, and writes a tar.gz next to the working directory.
func writeDiagBundle(ctx context.Context, storage diagnostics.DiagnosticsStorage, result *diagnostics.DiagnosticsResult) (string, error) {
	snapshot, err := storage.Load(ctx, result.Location)
	if err != nil {
		return "", fmt.Errorf("loading snapshot for bundle: %w", err)
	}

	stackDir, _ := getStackDir()
	bundle, err := diagnostics.BuildBundle(snapshot, diagnostics.CollectBundleFiles(config.FilePath(), stackDir))
	if err != nil {
		return "", fmt.Errorf("building bundle: %w", err)
	}

	name := fmt.Sprintf("beacon-diag-%s.tar.gz", time.Now().UTC().Format("20060102-150405"))
	if err := os.WriteFile(name, bundle, 0o600); err != nil {
		return "", fmt.Errorf("writing bundle: %w", err)
	}
	return name, nil
}

// runDiagPrune removes snapshots past the retention window from the
// local diagnostics directory. GCS objects are governed by bucket
// lifecycle rules instead.
func runDiagPrune(cmd *cobra.Command, args []string) {
	start := time.Now()

	storage, err := diagnostics.NewFileDiagnosticsStorage("")
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "diag prune", start, nil, false, err))
	}
	pruned, err := storage.Prune(cmd.Context())
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "diag prune", start, nil, false, err))
	}

	if !quietOutput && !jsonOutput && !compactOutput {
		ux.Success(fmt.Sprintf("Pruned %d diagnostic snapshot(s)", pruned))
	}
	os.Exit(OutputResult(outputConfig(), "diag prune", start,
		map[string]int{"pruned": pruned}, false, nil))
}
