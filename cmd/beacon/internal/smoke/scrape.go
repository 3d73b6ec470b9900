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
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prom2json"
)

// ScrapeChecker fetches a /metrics endpoint directly and asserts the
// exposition contains the metric families we depend on. This catches
// exporters that answer HTTP 200 with an empty or truncated payload,
// which a health check cannot see.
type ScrapeChecker struct {
	target     string
	metricsURL string
	client     *http.Client

	// required metric family names that must appear in the exposition.
	required []string
}

// NewScrapeChecker creates a checker for one exporter endpoint.
//
// # Inputs
//
//   - target: Service name for result attribution, e.g. "node-exporter".
//   - metricsURL: Full scrape URL, e.g. "http://localhost:9100/metrics".
//   - required: Metric family names that must be present. Empty means
//     any non-empty exposition passes.
func NewScrapeChecker(target, metricsURL string, required []string, timeout time.Duration) *ScrapeChecker {
	return &ScrapeChecker{
		target:     target,
		metricsURL: metricsURL,
		client:     &http.Client{Timeout: timeout},
		required:   required,
	}
}

func (c *ScrapeChecker) Target() string { return c.target }

// Run executes the scrape assertion.
func (c *ScrapeChecker) Run(ctx context.Context) []CheckResult {
	return []CheckResult{c.checkExposition(ctx)}
}

func (c *ScrapeChecker) checkExposition(ctx context.Context) CheckResult {
	const name = "exposition contains required families"
	start := time.Now()

	families, err := c.fetchFamilies(ctx)
	if err != nil {
		return fail(c.target, name, time.Since(start), "scrape failed: %v", err)
	}
	if len(families) == 0 {
		return fail(c.target, name, time.Since(start), "exposition is empty")
	}

	present := make(map[string]bool, len(families))
	for _, family := range families {
		present[family.Name] = true
	}
	for _, want := range c.required {
		if !present[want] {
			return fail(c.target, name, time.Since(start),
				"metric family %q not found in exposition", want)
		}
	}
	return pass(c.target, name, time.Since(start))
}

// fetchFamilies scrapes the endpoint and converts the exposition into
// prom2json families.
func (c *ScrapeChecker) fetchFamilies(ctx context.Context) ([]*prom2json.Family, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.metricsURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	ch := make(chan *dto.MetricFamily, 64)
	parseErr := make(chan error, 1)
	go func() {
		defer resp.Body.Close()
		parseErr <- prom2json.ParseResponse(resp, ch)
	}()

	var families []*prom2json.Family
	for mf := range ch {
		families = append(families, prom2json.NewFamily(mf))
	}
	if err := <-parseErr; err != nil {
		return nil, err
	}
	return families, nil
}

var _ Checker = (*ScrapeChecker)(nil)
