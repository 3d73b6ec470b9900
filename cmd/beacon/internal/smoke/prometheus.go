// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package smoke

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// PrometheusChecker asserts that Prometheus is not just up but working:
// it answers instant queries, serves range data, and is actively scraping
// its targets.
type PrometheusChecker struct {
	target string
	api    promv1.API
}

// NewPrometheusChecker creates a checker against the given base URL,
// e.g. "http://localhost:9090".
func NewPrometheusChecker(baseURL string) (*PrometheusChecker, error) {
	client, err := api.NewClient(api.Config{Address: baseURL})
	if err != nil {
		return nil, err
	}
	return &PrometheusChecker{
		target: "prometheus",
		api:    promv1.NewAPI(client),
	}, nil
}

// NewPrometheusCheckerWithAPI creates a checker with an injected API.
// Used by tests.
func NewPrometheusCheckerWithAPI(v1api promv1.API) *PrometheusChecker {
	return &PrometheusChecker{target: "prometheus", api: v1api}
}

func (c *PrometheusChecker) Target() string { return c.target }

// Run executes the Prometheus assertions.
func (c *PrometheusChecker) Run(ctx context.Context) []CheckResult {
	return []CheckResult{
		c.checkInstantQuery(ctx),
		c.checkRangeQuery(ctx),
		c.checkActiveTargets(ctx),
	}
}

// checkInstantQuery asserts `up` returns a non-empty vector and that
// every sample reports 1.
func (c *PrometheusChecker) checkInstantQuery(ctx context.Context) CheckResult {
	const name = "instant query returns samples"
	start := time.Now()

	val, _, err := c.api.Query(ctx, "up", time.Now())
	if err != nil {
		return fail(c.target, name, time.Since(start), "query failed: %v", err)
	}
	vec, ok := val.(model.Vector)
	if !ok {
		return fail(c.target, name, time.Since(start), "unexpected result type %s", val.Type())
	}
	if len(vec) == 0 {
		return fail(c.target, name, time.Since(start), "query 'up' returned no samples")
	}
	for _, sample := range vec {
		if sample.Value != 1 {
			return fail(c.target, name, time.Since(start),
				"target %s reports up=%v", sample.Metric["instance"], sample.Value)
		}
	}
	return pass(c.target, name, time.Since(start))
}

// checkRangeQuery asserts a 5 minute range query returns matrix data.
func (c *PrometheusChecker) checkRangeQuery(ctx context.Context) CheckResult {
	const name = "range query returns series"
	start := time.Now()

	now := time.Now()
	r := promv1.Range{
		Start: now.Add(-5 * time.Minute),
		End:   now,
		Step:  15 * time.Second,
	}
	val, _, err := c.api.QueryRange(ctx, "up", r)
	if err != nil {
		return fail(c.target, name, time.Since(start), "range query failed: %v", err)
	}
	matrix, ok := val.(model.Matrix)
	if !ok {
		return fail(c.target, name, time.Since(start), "unexpected result type %s", val.Type())
	}
	if len(matrix) == 0 {
		return fail(c.target, name, time.Since(start), "range query returned no series")
	}
	return pass(c.target, name, time.Since(start))
}

// checkActiveTargets asserts at least one scrape target is active and
// none are failing.
func (c *PrometheusChecker) checkActiveTargets(ctx context.Context) CheckResult {
	const name = "scrape targets healthy"
	start := time.Now()

	targets, err := c.api.Targets(ctx)
	if err != nil {
		return fail(c.target, name, time.Since(start), "targets API failed: %v", err)
	}
	if len(targets.Active) == 0 {
		return fail(c.target, name, time.Since(start), "no active scrape targets")
	}
	for _, t := range targets.Active {
		if t.Health == promv1.HealthBad {
			return fail(c.target, name, time.Since(start),
				"target %s is down: %s", t.ScrapeURL, t.LastError)
		}
	}
	return pass(c.target, name, time.Since(start))
}

var _ Checker = (*PrometheusChecker)(nil)
