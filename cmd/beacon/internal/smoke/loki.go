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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LokiChecker asserts the full write and read path of Loki: it pushes a
// uniquely tagged log line and polls the query API until the line comes
// back or the context expires.
type LokiChecker struct {
	target  string
	baseURL string
	client  *http.Client

	// pollInterval is how often the read-back query retries. Shortened
	// by tests.
	pollInterval time.Duration
}

// NewLokiChecker creates a checker against the given base URL,
// e.g. "http://localhost:3100".
func NewLokiChecker(baseURL string, timeout time.Duration) *LokiChecker {
	return &LokiChecker{
		target:       "loki",
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       &http.Client{Timeout: timeout},
		pollInterval: 2 * time.Second,
	}
}

func (c *LokiChecker) Target() string { return c.target }

// Run executes the Loki assertions.
func (c *LokiChecker) Run(ctx context.Context) []CheckResult {
	return []CheckResult{
		c.checkReady(ctx),
		c.checkPushQueryRoundTrip(ctx),
	}
}

func (c *LokiChecker) checkReady(ctx context.Context) CheckResult {
	const name = "ready endpoint"
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ready", nil)
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
	return pass(c.target, name, time.Since(start))
}

// checkPushQueryRoundTrip pushes a tagged line and polls query_range
// until it shows up. Ingester flush lag is why this polls rather than
// querying once.
func (c *LokiChecker) checkPushQueryRoundTrip(ctx context.Context) CheckResult {
	const name = "push and query round trip"
	start := time.Now()

	runID := uuid.New().String()
	line := "beacon smoke probe " + runID

	if err := c.push(ctx, runID, line); err != nil {
		return fail(c.target, name, time.Since(start), "push failed: %v", err)
	}

	query := fmt.Sprintf(`{beacon_smoke=%q}`, runID)
	for {
		found, err := c.queryContains(ctx, query, line)
		if err != nil {
			return fail(c.target, name, time.Since(start), "query failed: %v", err)
		}
		if found {
			return pass(c.target, name, time.Since(start))
		}
		select {
		case <-ctx.Done():
			return fail(c.target, name, time.Since(start),
				"pushed line never appeared in query results: %v", ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}
}

// lokiPushRequest is the JSON body of /loki/api/v1/push.
type lokiPushRequest struct {
	Streams []lokiPushStream `json:"streams"`
}

type lokiPushStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

func (c *LokiChecker) push(ctx context.Context, runID, line string) error {
	body := lokiPushRequest{
		Streams: []lokiPushStream{
			{
				Stream: map[string]string{"beacon_smoke": runID},
				Values: [][2]string{
					{strconv.FormatInt(time.Now().UnixNano(), 10), line},
				},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/loki/api/v1/push", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push returned status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}

// lokiQueryResponse is the subset of the query_range response we read.
type lokiQueryResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []struct {
			Values [][2]string `json:"values"`
		} `json:"result"`
	} `json:"data"`
}

func (c *LokiChecker) queryContains(ctx context.Context, query, line string) (bool, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("start", strconv.FormatInt(time.Now().Add(-5*time.Minute).UnixNano(), 10))
	params.Set("end", strconv.FormatInt(time.Now().UnixNano(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/loki/api/v1/query_range?"+params.Encode(), nil)
	if err != nil {
		return false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("query returned status %d", resp.StatusCode)
	}

	var decoded lokiQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return false, fmt.Errorf("decoding query response: %w", err)
	}
	for _, stream := range decoded.Data.Result {
		for _, value := range stream.Values {
			if value[1] == line {
				return true, nil
			}
		}
	}
	return false, nil
}

var _ Checker = (*LokiChecker)(nil)
