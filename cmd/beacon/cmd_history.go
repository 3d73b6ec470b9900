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

	"github.com/AleutianAI/beacon/cmd/beacon/config"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/history"
	"github.com/AleutianAI/beacon/pkg/ux"
	"github.com/spf13/cobra"
)

// openHistoryStore opens the configured on-disk store or exits.
func openHistoryStore(command string, start time.Time) *history.Store {
	hcfg := config.Global.History
	store, err := history.Open(hcfg.Dir, hcfg.RetentionDays)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), command, start, nil, false,
			fmt.Errorf("opening history store: %w", err)))
	}
	return store
}

// runHistoryTrends is the default history report: uptime ratio, mean
// latency and its direction, and flap count per service over a window.
func runHistoryTrends(cmd *cobra.Command, args []string) {
	start := time.Now()

	window, err := time.ParseDuration(historyWindow)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "history", start, nil, false,
			fmt.Errorf("invalid --window %q: %w", historyWindow, err)))
	}

	store := openHistoryStore("history", start)
	defer store.Close()

	trends, err := store.Trends(window)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "history", start, nil, false, err))
	}
	if historyService != "" {
		filtered := trends[:0]
		for _, t := range trends {
			if t.Service == historyService {
				filtered = append(filtered, t)
			}
		}
		trends = filtered
	}

	if !quietOutput && !jsonOutput && !compactOutput {
		renderHistoryTrends(window, trends)
	}

	degrading := false
	for _, t := range trends {
		if t.Latency == history.LatencyDegrading || t.UptimeRatio < 1.0 {
			degrading = true
		}
	}
	os.Exit(OutputResult(outputConfig(), "history", start, trends, degrading, nil))
}

// renderHistoryTrends prints one line per service.
func renderHistoryTrends(window time.Duration, trends []history.ServiceTrend) {
	ux.Title(fmt.Sprintf("Beacon Check History (last %s)", window))

	if len(trends) == 0 {
		ux.Warning("No check runs recorded in this window. Run `beacon check` first.")
		return
	}
	for _, t := range trends {
		icon := ux.IconSuccess
		if t.UptimeRatio < 1.0 || t.Latency == history.LatencyDegrading {
			icon = ux.IconWarning
		}
		if t.UptimeRatio < 0.9 {
			icon = ux.IconError
		}
		detail := fmt.Sprintf("uptime %.1f%%, latency %s (%.0fms mean), %d flap(s), %d sample(s)",
			t.UptimeRatio*100, t.Latency, t.MeanLatencyMs, t.Flaps, t.Samples)
		ux.ServiceStatus(t.Service, icon, detail)
	}
}

// runHistoryList prints the most recent check runs, newest first.
func runHistoryList(cmd *cobra.Command, args []string) {
	start := time.Now()

	store := openHistoryStore("history list", start)
	defer store.Close()

	records, err := store.List(historyLimit)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "history list", start, nil, false, err))
	}

	if !quietOutput && !jsonOutput && !compactOutput {
		ux.Title("Beacon Check Runs")
		if len(records) == 0 {
			ux.Warning("No check runs recorded yet.")
		}
		for _, rec := range records {
			icon := ux.IconSuccess
			failing := 0
			for _, svc := range rec.Services {
				if !svc.Healthy {
					failing++
				}
			}
			detail := fmt.Sprintf("%d service(s) checked", len(rec.Services))
			if !rec.Healthy {
				icon = ux.IconError
				detail = fmt.Sprintf("%d of %d service(s) failing", failing, len(rec.Services))
			} else if failing > 0 {
				icon = ux.IconWarning
				detail = fmt.Sprintf("%d non-critical failure(s)", failing)
			}
			ux.ServiceStatus(rec.Timestamp.Local().Format("2006-01-02 15:04:05"), icon, detail)
		}
	}
	os.Exit(OutputResult(outputConfig(), "history list", start, records, false, nil))
}

// runHistoryPrune deletes runs older than the --keep window. Badger's
// TTL expires entries on its own; prune exists for operators who shrink
// the retention and want the space back now.
func runHistoryPrune(cmd *cobra.Command, args []string) {
	start := time.Now()

	keep, err := time.ParseDuration(historyKeep)
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "history prune", start, nil, false,
			fmt.Errorf("invalid --keep %q: %w", historyKeep, err)))
	}

	store := openHistoryStore("history prune", start)
	defer store.Close()

	pruned, err := store.Prune(time.Now().Add(-keep))
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "history prune", start, nil, false, err))
	}

	if !quietOutput && !jsonOutput && !compactOutput {
		ux.Success(fmt.Sprintf("Pruned %d check run(s) older than %s", pruned, keep))
	}
	os.Exit(OutputResult(outputConfig(), "history prune", start,
		map[string]int{"pruned": pruned}, false, nil))
}
