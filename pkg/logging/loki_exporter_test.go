// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// capturePushes returns a test server recording Loki push payloads.
func capturePushes(t *testing.T) (*httptest.Server, func() []lokiPushRequest) {
	t.Helper()

	var mu sync.Mutex
	var pushes []lokiPushRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != lokiPushPath {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req lokiPushRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("invalid push payload: %v", err)
		}
		mu.Lock()
		pushes = append(pushes, req)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []lokiPushRequest {
		mu.Lock()
		defer mu.Unlock()
		out := make([]lokiPushRequest, len(pushes))
		copy(out, pushes)
		return out
	}
}

func TestLokiExporter_FlushPushesBufferedEntries(t *testing.T) {
	srv, getPushes := capturePushes(t)

	exporter := NewLokiExporter(srv.URL)
	ctx := context.Background()

	now := time.Now()
	exporter.Export(ctx, LogEntry{Timestamp: now, Level: LevelInfo, Message: "hello", Service: "beacon"})
	exporter.Export(ctx, LogEntry{Timestamp: now, Level: LevelError, Message: "boom", Service: "beacon"})

	if err := exporter.Flush(ctx); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}

	pushes := getPushes()
	if len(pushes) != 1 {
		t.Fatalf("expected 1 push, got %d", len(pushes))
	}
	// Two levels means two streams
	if len(pushes[0].Streams) != 2 {
		t.Fatalf("expected 2 streams, got %d", len(pushes[0].Streams))
	}
	for _, stream := range pushes[0].Streams {
		if stream.Stream["app"] != "beacon" {
			t.Errorf("missing app label: %v", stream.Stream)
		}
		if stream.Stream["service"] != "beacon" {
			t.Errorf("missing service label: %v", stream.Stream)
		}
		if len(stream.Values) != 1 {
			t.Errorf("expected 1 value per stream, got %d", len(stream.Values))
		}
	}
}

func TestLokiExporter_BatchThresholdTriggersPush(t *testing.T) {
	srv, getPushes := capturePushes(t)

	exporter := NewLokiExporter(srv.URL, WithLokiBatchSize(2))
	ctx := context.Background()

	exporter.Export(ctx, LogEntry{Timestamp: time.Now(), Level: LevelInfo, Message: "one"})
	if len(getPushes()) != 0 {
		t.Fatal("push happened before threshold")
	}
	exporter.Export(ctx, LogEntry{Timestamp: time.Now(), Level: LevelInfo, Message: "two"})
	if len(getPushes()) != 1 {
		t.Fatalf("expected threshold push, got %d", len(getPushes()))
	}
}

func TestLokiExporter_FlushEmptyIsNoop(t *testing.T) {
	srv, getPushes := capturePushes(t)

	exporter := NewLokiExporter(srv.URL)
	if err := exporter.Flush(context.Background()); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if len(getPushes()) != 0 {
		t.Error("empty flush should not push")
	}
}

func TestLokiExporter_PushErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ingester unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	exporter := NewLokiExporter(srv.URL)
	exporter.Export(context.Background(), LogEntry{Timestamp: time.Now(), Level: LevelInfo, Message: "x"})

	if err := exporter.Flush(context.Background()); err == nil {
		t.Fatal("expected error from failed push")
	}
}

func TestLokiExporter_AttrsAppendedToLine(t *testing.T) {
	srv, getPushes := capturePushes(t)

	exporter := NewLokiExporter(srv.URL)
	exporter.Export(context.Background(), LogEntry{
		Timestamp: time.Now(),
		Level:     LevelInfo,
		Message:   "check complete",
		Attrs:     map[string]any{"pass": true},
	})
	exporter.Flush(context.Background())

	pushes := getPushes()
	if len(pushes) != 1 || len(pushes[0].Streams) != 1 {
		t.Fatal("expected one stream")
	}
	line := pushes[0].Streams[0].Values[0][1]
	if line != `check complete {"pass":true}` {
		t.Errorf("unexpected line: %s", line)
	}
}
