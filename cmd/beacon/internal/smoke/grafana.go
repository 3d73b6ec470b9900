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
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// GrafanaChecker asserts that Grafana's database is healthy and, when an
// API token is available, that its provisioned datasources are reachable.
type GrafanaChecker struct {
	target  string
	baseURL string
	client  *http.Client

	// apiToken is a Grafana service account token. Empty skips the
	// authenticated assertions rather than failing them.
	apiToken string

	// requiredDatasources are datasource types that must be provisioned,
	// e.g. "prometheus", "loki".
	requiredDatasources []string
}

// NewGrafanaChecker creates a checker against the given base URL,
// e.g. "http://localhost:3000". The token comes from the secrets manager
// and may be empty.
func NewGrafanaChecker(baseURL, apiToken string, timeout time.Duration) *GrafanaChecker {
	return &GrafanaChecker{
		target:              "grafana",
		baseURL:             strings.TrimRight(baseURL, "/"),
		client:              &http.Client{Timeout: timeout},
		apiToken:            apiToken,
		requiredDatasources: []string{"prometheus", "loki"},
	}
}

func (c *GrafanaChecker) Target() string { return c.target }

// Run executes the Grafana assertions.
func (c *GrafanaChecker) Run(ctx context.Context) []CheckResult {
	return []CheckResult{
		c.checkHealth(ctx),
		c.checkDatasources(ctx),
	}
}

// grafanaHealthResponse is the subset of /api/health we read.
type grafanaHealthResponse struct {
	Database string `json:"database"`
	Version  string `json:"version"`
}

func (c *GrafanaChecker) checkHealth(ctx context.Context) CheckResult {
	const name = "database healthy"
	start := time.Now()

	var health grafanaHealthResponse
	if err := c.getJSON(ctx, "/api/health", false, &health); err != nil {
		return fail(c.target, name, time.Since(start), "%v", err)
	}
	if health.Database != "ok" {
		return fail(c.target, name, time.Since(start), "database reports %q", health.Database)
	}
	return pass(c.target, name, time.Since(start))
}

// grafanaDatasource is the subset of /api/datasources entries we read.
type grafanaDatasource struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// checkDatasources asserts the required datasource types are provisioned.
// Skipped when no API token is configured since the endpoint requires
// authentication.
func (c *GrafanaChecker) checkDatasources(ctx context.Context) CheckResult {
	const name = "datasources provisioned"
	start := time.Now()

	if c.apiToken == "" {
		return skip(c.target, name, "no API token configured")
	}

	var datasources []grafanaDatasource
	if err := c.getJSON(ctx, "/api/datasources", true, &datasources); err != nil {
		return fail(c.target, name, time.Since(start), "%v", err)
	}

	present := make(map[string]bool, len(datasources))
	for _, ds := range datasources {
		present[ds.Type] = true
	}
	var missing []string
	for _, required := range c.requiredDatasources {
		if !present[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return fail(c.target, name, time.Since(start),
			"missing datasource types: %s", strings.Join(missing, ", "))
	}
	return pass(c.target, name, time.Since(start))
}

func (c *GrafanaChecker) getJSON(ctx context.Context, path string, authenticated bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("authentication rejected for %s (status %d)", path, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d from %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

var _ Checker = (*GrafanaChecker)(nil)
