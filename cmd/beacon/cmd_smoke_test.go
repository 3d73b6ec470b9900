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
	"reflect"
	"testing"
	"time"

	"github.com/AleutianAI/beacon/cmd/beacon/config"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/smoke"
)

func TestSelectSmokeSuites(t *testing.T) {
	allSuites := []string{"alerts", "dashboards", "logs", "metrics", "scrape", "traces"}

	tests := []struct {
		name    string
		args    []string
		target  string
		want    []string
		wantErr bool
	}{
		{"NoSelectionRunsEverything", nil, "", allSuites, false},
		{"ExplicitAll", []string{"all"}, "", allSuites, false},
		{"SingleSuite", []string{"metrics"}, "", []string{"metrics"}, false},
		{"DeduplicatedAndSorted", []string{"traces", "logs", "logs"}, "", []string{"logs", "traces"}, false},
		{"TargetAlias", nil, "loki", []string{"logs"}, false},
		{"TargetCombinesWithArgs", []string{"metrics"}, "grafana", []string{"dashboards", "metrics"}, false},
		{"UnknownSuite", []string{"chaos"}, "", nil, true},
		{"UnknownTarget", nil, "postgres", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectSmokeSuites(tt.args, tt.target)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got suites %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("suites = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServiceBaseURL(t *testing.T) {
	saved := config.Global
	defer func() { config.Global = saved }()

	config.Global = config.BeaconConfig{
		Services: []config.ServiceConfig{
			{Name: "prometheus", URL: "http://prom.internal:9090"},
			{Name: "loki", URL: ""},
		},
	}

	if got := serviceBaseURL("prometheus", "http://localhost:9090"); got != "http://prom.internal:9090" {
		t.Errorf("configured service: got %s", got)
	}
	if got := serviceBaseURL("loki", "http://localhost:3100"); got != "http://localhost:3100" {
		t.Errorf("empty URL should fall back: got %s", got)
	}
	if got := serviceBaseURL("tempo", "http://localhost:3200"); got != "http://localhost:3200" {
		t.Errorf("unknown service should fall back: got %s", got)
	}
}

func TestBuildSmokeOutput(t *testing.T) {
	summary := smoke.Summary{
		Passed:  2,
		Failed:  1,
		Skipped: 1,
		Results: []smoke.CheckResult{
			{Target: "prometheus", Name: "query api", Status: smoke.StatusPass, Elapsed: 1234567 * time.Nanosecond},
			{Target: "loki", Name: "push and query", Status: smoke.StatusFail, Detail: "query returned no streams"},
		},
	}

	out := buildSmokeOutput(summary)

	if out.AllGreen {
		t.Error("a failed check should not report all green")
	}
	if out.Passed != 2 || out.Failed != 1 || out.Skipped != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", out.Passed, out.Failed, out.Skipped)
	}
	if len(out.Checks) != 2 {
		t.Fatalf("got %d checks, want 2", len(out.Checks))
	}
	if out.Checks[0].Elapsed != "1ms" {
		t.Errorf("elapsed should round to milliseconds, got %s", out.Checks[0].Elapsed)
	}
	if out.Checks[1].Status != "fail" {
		t.Errorf("status = %s, want fail", out.Checks[1].Status)
	}
}
