// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dashboards

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the Grafana dashboard HTTP API.
//
// # Description
//
// Covers the import surface the dashboards command needs: push a
// dashboard JSON document, list existing dashboards, and fetch one by
// UID. All calls authenticate with a service account token.
//
// # Assumptions
//
//   - The token has the Editor role or better.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a Grafana API client.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// PushResult is Grafana's response to a dashboard import.
type PushResult struct {
	Status  string `json:"status"`
	UID     string `json:"uid"`
	URL     string `json:"url"`
	Version int    `json:"version"`
}

// pushRequest is the body of POST /api/dashboards/db.
type pushRequest struct {
	Dashboard json.RawMessage `json:"dashboard"`
	FolderUID string          `json:"folderUid,omitempty"`
	Overwrite bool            `json:"overwrite"`
	Message   string          `json:"message,omitempty"`
}

// Push imports a dashboard.
//
// # Inputs
//
//   - dashboardJSON: The raw dashboard document, as it would appear in a
//     provisioning file.
//   - folderUID: Target folder, empty for the default folder.
//   - overwrite: Replace an existing dashboard with the same UID. When
//     false, a version conflict returns an error.
func (c *Client) Push(ctx context.Context, dashboardJSON []byte, folderUID string, overwrite bool) (*PushResult, error) {
	if !json.Valid(dashboardJSON) {
		return nil, fmt.Errorf("dashboard is not valid JSON")
	}

	body, err := json.Marshal(pushRequest{
		Dashboard: dashboardJSON,
		FolderUID: folderUID,
		Overwrite: overwrite,
		Message:   "pushed by beacon",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/dashboards/db", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var result PushResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decoding push response: %w", err)
		}
		return &result, nil
	case http.StatusPreconditionFailed:
		return nil, fmt.Errorf("version conflict: dashboard changed upstream (use overwrite to force)")
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("authentication rejected (status %d)", resp.StatusCode)
	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("push returned status %d: %s", resp.StatusCode, string(raw))
	}
}

// DashboardSummary is one entry from the search API.
type DashboardSummary struct {
	UID       string `json:"uid"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	FolderUID string `json:"folderUid"`
}

// List returns all dashboards visible to the token.
func (c *Client) List(ctx context.Context) ([]DashboardSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/search?type=dash-db", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var summaries []DashboardSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return summaries, nil
}

// Get fetches one dashboard document by UID.
func (c *Client) Get(ctx context.Context, uid string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/dashboards/uid/"+uid, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("dashboard %q not found", uid)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Dashboard json.RawMessage `json:"dashboard"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding dashboard response: %w", err)
	}
	return envelope.Dashboard, nil
}
