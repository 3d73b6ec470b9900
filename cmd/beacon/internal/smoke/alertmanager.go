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

// AlertmanagerChecker asserts that Alertmanager has loaded its config and
// serves the alerts API.
type AlertmanagerChecker struct {
	target  string
	baseURL string
	client  *http.Client
}

// NewAlertmanagerChecker creates a checker against the given base URL,
// e.g. "http://localhost:9093".
func NewAlertmanagerChecker(baseURL string, timeout time.Duration) *AlertmanagerChecker {
	return &AlertmanagerChecker{
		target:  "alertmanager",
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *AlertmanagerChecker) Target() string { return c.target }

// Run executes the Alertmanager assertions.
func (c *AlertmanagerChecker) Run(ctx context.Context) []CheckResult {
	return []CheckResult{
		c.checkClusterReady(ctx),
		c.checkAlertsAPI(ctx),
	}
}

// amStatusResponse is the subset of /api/v2/status we read.
type amStatusResponse struct {
	Cluster struct {
		Status string `json:"status"`
	} `json:"cluster"`
	Config struct {
		Original string `json:"original"`
	} `json:"config"`
}

// checkClusterReady asserts the cluster is ready and a config is loaded.
func (c *AlertmanagerChecker) checkClusterReady(ctx context.Context) CheckResult {
	const name = "cluster status ready"
	start := time.Now()

	var status amStatusResponse
	if err := c.getJSON(ctx, "/api/v2/status", &status); err != nil {
		return fail(c.target, name, time.Since(start), "%v", err)
	}
	if status.Cluster.Status != "ready" {
		return fail(c.target, name, time.Since(start),
			"cluster status is %q", status.Cluster.Status)
	}
	if strings.TrimSpace(status.Config.Original) == "" {
		return fail(c.target, name, time.Since(start), "no configuration loaded")
	}
	return pass(c.target, name, time.Since(start))
}

// checkAlertsAPI asserts the alerts endpoint returns a well-formed list.
func (c *AlertmanagerChecker) checkAlertsAPI(ctx context.Context) CheckResult {
	const name = "alerts API responds"
	start := time.Now()

	var alerts []json.RawMessage
	if err := c.getJSON(ctx, "/api/v2/alerts", &alerts); err != nil {
		return fail(c.target, name, time.Since(start), "%v", err)
	}
	return pass(c.target, name, time.Since(start))
}

func (c *AlertmanagerChecker) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d from %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

var _ Checker = (*AlertmanagerChecker)(nil)
