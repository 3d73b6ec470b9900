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
	"io"
	"net/http"
	"strings"
	"time"
)

// TempoChecker asserts that Tempo is ready, echoes, and serves its
// search API.
type TempoChecker struct {
	target  string
	baseURL string
	client  *http.Client
}

// NewTempoChecker creates a checker against the given base URL,
// e.g. "http://localhost:3200".
func NewTempoChecker(baseURL string, timeout time.Duration) *TempoChecker {
	return &TempoChecker{
		target:  "tempo",
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *TempoChecker) Target() string { return c.target }

// Run executes the Tempo assertions.
func (c *TempoChecker) Run(ctx context.Context) []CheckResult {
	return []CheckResult{
		c.checkEcho(ctx),
		c.checkSearchAPI(ctx),
	}
}

// checkEcho asserts /api/echo answers with the literal "echo" body.
func (c *TempoChecker) checkEcho(ctx context.Context) CheckResult {
	const name = "echo endpoint"
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/echo", nil)
	if err != nil {
		return fail(c.target, name, time.Since(start), "building request: %v", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fail(c.target, name, time.Since(start), "request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fail(c.target, name, time.Since(start), "status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return fail(c.target, name, time.Since(start), "reading body: %v", err)
	}
	if !strings.Contains(string(body), "echo") {
		return fail(c.target, name, time.Since(start), "unexpected body %q", string(body))
	}
	return pass(c.target, name, time.Since(start))
}

// tempoSearchResponse is the subset of /api/search we read.
type tempoSearchResponse struct {
	Traces []json.RawMessage `json:"traces"`
}

// checkSearchAPI asserts the search API answers with a well-formed
// response. An empty trace list is fine on a quiet stack; a malformed or
// erroring response is not.
func (c *TempoChecker) checkSearchAPI(ctx context.Context) CheckResult {
	const name = "search API responds"
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/search?limit=1", nil)
	if err != nil {
		return fail(c.target, name, time.Since(start), "building request: %v", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fail(c.target, name, time.Since(start), "request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fail(c.target, name, time.Since(start), "status %d", resp.StatusCode)
	}
	var decoded tempoSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fail(c.target, name, time.Since(start),
			"%s", fmt.Sprintf("decoding search response: %v", err))
	}
	return pass(c.target, name, time.Since(start))
}

var _ Checker = (*TempoChecker)(nil)
