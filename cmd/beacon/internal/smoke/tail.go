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
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// TailEntry is one log line received from a live tail stream.
type TailEntry struct {
	// Labels are the stream labels of the entry.
	Labels map[string]string

	// Timestamp is the log line's timestamp.
	Timestamp time.Time

	// Line is the raw log line.
	Line string
}

// LokiTailer streams log lines from Loki's websocket tail endpoint.
//
// # Description
//
// Used by the logs command for follow mode and by the smoke suite to
// verify the tail endpoint accepts connections. Tail blocks until the
// context is cancelled or the connection drops.
//
// # Examples
//
//	tailer := smoke.NewLokiTailer("http://localhost:3100")
//	entries := make(chan smoke.TailEntry, 16)
//	err := tailer.Tail(ctx, `{compose_service="grafana"}`, entries)
//
// # Limitations
//
//   - No automatic reconnect. Callers decide whether a dropped
//     connection is an error or a retry.
type LokiTailer struct {
	baseURL string
	dialer  *websocket.Dialer
}

// NewLokiTailer creates a tailer for the given Loki base URL. The http
// or https scheme is converted to ws or wss at dial time.
func NewLokiTailer(baseURL string) *LokiTailer {
	return &LokiTailer{
		baseURL: strings.TrimRight(baseURL, "/"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// tailResponse is the JSON frame Loki sends on the tail socket.
type tailResponse struct {
	Streams []struct {
		Stream map[string]string `json:"stream"`
		Values [][2]string       `json:"values"`
	} `json:"streams"`
}

// Tail connects to the tail endpoint and forwards entries to out until
// ctx is cancelled. The out channel is closed before Tail returns.
func (t *LokiTailer) Tail(ctx context.Context, query string, out chan<- TailEntry) error {
	defer close(out)

	wsURL, err := t.tailURL(query)
	if err != nil {
		return err
	}

	conn, _, err := t.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dialing tail endpoint: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage when the caller gives up.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading tail frame: %w", err)
		}

		var frame tailResponse
		if err := json.Unmarshal(message, &frame); err != nil {
			return fmt.Errorf("decoding tail frame: %w", err)
		}
		for _, stream := range frame.Streams {
			for _, value := range stream.Values {
				entry := TailEntry{
					Labels: stream.Stream,
					Line:   value[1],
				}
				if ns, parseErr := parseUnixNano(value[0]); parseErr == nil {
					entry.Timestamp = ns
				}
				select {
				case out <- entry:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// tailURL builds the websocket URL for the given LogQL query.
func (t *LokiTailer) tailURL(query string) (string, error) {
	parsed, err := url.Parse(t.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
		// Already a websocket scheme.
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/loki/api/v1/tail"
	params := url.Values{}
	params.Set("query", query)
	parsed.RawQuery = params.Encode()
	return parsed.String(), nil
}

// parseUnixNano converts Loki's nanosecond string timestamps.
func parseUnixNano(s string) (time.Time, error) {
	var ns int64
	if _, err := fmt.Sscanf(s, "%d", &ns); err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, ns), nil
}

// TailChecker asserts the tail websocket endpoint accepts connections.
type TailChecker struct {
	target string
	tailer *LokiTailer

	// window is how long the connection is held open waiting for a
	// frame. Receiving nothing in the window still passes; tailing a
	// quiet stack is normal.
	window time.Duration
}

// NewTailChecker creates a tail checker for the given Loki base URL.
func NewTailChecker(baseURL string, window time.Duration) *TailChecker {
	return &TailChecker{
		target: "loki",
		tailer: NewLokiTailer(baseURL),
		window: window,
	}
}

func (c *TailChecker) Target() string { return c.target }

// Run executes the tail assertion.
func (c *TailChecker) Run(ctx context.Context) []CheckResult {
	const name = "live tail accepts connections"
	start := time.Now()

	tailCtx, cancel := context.WithTimeout(ctx, c.window)
	defer cancel()

	entries := make(chan TailEntry, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.tailer.Tail(tailCtx, `{beacon_smoke=~".+"}`, entries)
	}()

	// Drain entries until the tailer exits.
	for range entries {
	}

	err := <-errCh
	if err != nil && err != context.DeadlineExceeded && err != context.Canceled {
		return []CheckResult{
			fail(c.target, name, time.Since(start), "%v", err),
		}
	}
	return []CheckResult{pass(c.target, name, time.Since(start))}
}

var _ Checker = (*TailChecker)(nil)
