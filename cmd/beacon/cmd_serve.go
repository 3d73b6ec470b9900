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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/beacon/cmd/beacon/config"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/history"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/infra/process"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/monitor"
	"github.com/AleutianAI/beacon/pkg/ux"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// healthProber adapts the CLI health checker to the monitor loop.
type healthProber struct {
	checker HealthChecker
}

// Probe runs one health check for one configured service.
func (p *healthProber) Probe(ctx context.Context, svc config.ServiceConfig) history.ServiceSample {
	defs := ServicesFromConfig(&config.BeaconConfig{Services: []config.ServiceConfig{svc}})
	status, err := p.checker.CheckService(ctx, defs[0])
	if err != nil {
		return history.ServiceSample{
			Name:     svc.Name,
			Healthy:  false,
			Critical: svc.Critical,
			Message:  err.Error(),
		}
	}
	return history.ServiceSample{
		Name:      status.Name,
		Healthy:   status.State == HealthStateHealthy,
		Critical:  svc.Critical,
		LatencyMs: status.Latency.Milliseconds(),
		Message:   status.Message,
	}
}

var _ monitor.Prober = (*healthProber)(nil)

// runServeCommand runs the continuous monitor: a background check loop,
// a gin status API with /metrics, a config watcher for live target
// reload, and optional OTLP trace export of each cycle.
func runServeCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.Global.Serve
	listen := cfg.Listen
	if serveListen != "" {
		listen = serveListen
	}
	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	shutdownTracing, err := monitor.InitTracing(ctx, cfg.OTLPEndpoint, rootCmd.Version)
	if err != nil {
		ux.Warning(fmt.Sprintf("trace export disabled: %v", err))
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			ux.Muted(fmt.Sprintf("trace exporter shutdown: %v", err))
		}
	}()

	hcfg := config.Global.History
	store, err := history.Open(hcfg.Dir, hcfg.RetentionDays)
	if err != nil {
		ux.Warning(fmt.Sprintf("history persistence disabled: %v", err))
		store = nil
	} else {
		defer store.Close()
	}

	prober := &healthProber{
		checker: NewDefaultHealthChecker(process.NewDefaultManager(), DefaultHealthCheckerConfig()),
	}
	loop := monitor.NewLoop(prober, store, config.Global.Services, interval, cfg.RatePerSecond, cfg.Burst)

	if serveOnce {
		snapshot := loop.RunOnce(ctx)
		if snapshot == nil {
			os.Exit(OutputResult(outputConfig(), "serve", time.Now(), nil, false,
				fmt.Errorf("check cycle did not complete")))
		}
		if !quietOutput && !jsonOutput && !compactOutput {
			renderSnapshot(snapshot)
		}
		os.Exit(OutputResult(outputConfig(), "serve", snapshot.Timestamp, snapshot, !snapshot.Healthy, nil))
	}

	server := monitor.NewServer(loop, store)

	ux.Info(fmt.Sprintf("Monitor listening on %s, checking every %s", listen, interval))

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return loop.Run(groupCtx)
	})
	group.Go(func() error {
		return server.Run(groupCtx, listen)
	})
	group.Go(func() error {
		return monitor.WatchConfig(groupCtx, config.FilePath(), func() {
			reloadServeTargets(loop)
		})
	})

	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		OutputError(jsonOutput, "monitor stopped", err)
		os.Exit(CLIExitError)
	}
	ux.Info("Monitor stopped")
}

// renderSnapshot prints one check cycle for --once mode.
func renderSnapshot(snapshot *monitor.Snapshot) {
	ux.Title("Beacon Check Cycle")
	for _, s := range snapshot.Services {
		icon := ux.IconSuccess
		detail := fmt.Sprintf("%dms", s.LatencyMs)
		if !s.Healthy {
			icon = ux.IconWarning
			if s.Critical {
				icon = ux.IconError
			}
			detail = s.Message
		}
		ux.ServiceStatus(s.Name, icon, detail)
	}
	if snapshot.Healthy {
		ux.Success("All critical services healthy.")
	} else {
		ux.Error("Critical service failure detected.")
	}
}

// reloadServeTargets re-reads the config file and swaps the loop's
// service list in place. A broken config keeps the previous targets, so
// a half-saved edit never blanks the monitor.
func reloadServeTargets(loop *monitor.Loop) {
	data, err := os.ReadFile(config.FilePath())
	if err != nil {
		ux.Warning(fmt.Sprintf("config reload skipped: %v", err))
		return
	}
	var fresh config.BeaconConfig
	if err := yaml.Unmarshal(data, &fresh); err != nil {
		ux.Warning(fmt.Sprintf("config reload skipped: %v", err))
		return
	}
	if err := fresh.Validate(); err != nil {
		ux.Warning(fmt.Sprintf("config reload skipped: %v", err))
		return
	}
	if len(fresh.Services) == 0 {
		ux.Warning("config reload skipped: no services defined")
		return
	}
	loop.UpdateServices(fresh.Services)
	ux.Info(fmt.Sprintf("Reloaded %d service target(s) from config", len(fresh.Services)))
}
