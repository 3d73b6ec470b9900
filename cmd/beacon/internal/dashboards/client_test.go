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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testToken = "glsa_clienttesttoken123456789012"

func TestClientPush_Success(t *testing.T) {
	var received pushRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/dashboards/db" {
			t.Errorf("path = %s, want /api/dashboards/db", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer "+testToken {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"success","uid":"beacon-overview","url":"/d/beacon-overview","version":3}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, testToken, time.Second)
	result, err := client.Push(context.Background(),
		[]byte(`{"title":"Beacon Overview","uid":"beacon-overview"}`), "ops", true)
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if result.UID != "beacon-overview" {
		t.Errorf("UID = %s, want beacon-overview", result.UID)
	}
	if result.Version != 3 {
		t.Errorf("Version = %d, want 3", result.Version)
	}
	if received.FolderUID != "ops" {
		t.Errorf("FolderUID = %s, want ops", received.FolderUID)
	}
	if !received.Overwrite {
		t.Error("Overwrite not forwarded")
	}
	if !strings.Contains(string(received.Dashboard), "Beacon Overview") {
		t.Errorf("Dashboard payload missing: %s", string(received.Dashboard))
	}
}

func TestClientPush_VersionConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"version mismatch"}`, http.StatusPreconditionFailed)
	}))
	defer server.Close()

	client := NewClient(server.URL, testToken, time.Second)
	_, err := client.Push(context.Background(), []byte(`{"title":"t"}`), "", false)
	if err == nil {
		t.Fatal("expected version conflict error")
	}
	if !strings.Contains(err.Error(), "version conflict") {
		t.Errorf("error = %v, want version conflict", err)
	}
}

func TestClientPush_AuthRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "glsa_wrong", time.Second)
	_, err := client.Push(context.Background(), []byte(`{"title":"t"}`), "", true)
	if err == nil || !strings.Contains(err.Error(), "authentication rejected") {
		t.Errorf("error = %v, want authentication rejected", err)
	}
}

func TestClientPush_RejectsInvalidJSON(t *testing.T) {
	client := NewClient("http://unused", testToken, time.Second)
	_, err := client.Push(context.Background(), []byte(`{"title": `), "", true)
	if err == nil || !strings.Contains(err.Error(), "not valid JSON") {
		t.Errorf("error = %v, want not valid JSON", err)
	}
}

func TestClientList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search" {
			t.Errorf("path = %s, want /api/search", r.URL.Path)
		}
		if got := r.URL.Query().Get("type"); got != "dash-db" {
			t.Errorf("type = %s, want dash-db", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"uid":"a","title":"Alpha","url":"/d/a","folderUid":"ops"}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, testToken, time.Second)
	summaries, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	if summaries[0].Title != "Alpha" {
		t.Errorf("Title = %s, want Alpha", summaries[0].Title)
	}
}

func TestClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/dashboards/uid/beacon-overview" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"dashboard":{"title":"Beacon Overview"},"meta":{"slug":"beacon-overview"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, testToken, time.Second)
	doc, err := client.Get(context.Background(), "beacon-overview")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !strings.Contains(string(doc), "Beacon Overview") {
		t.Errorf("unexpected document: %s", string(doc))
	}

	if _, err := client.Get(context.Background(), "missing"); err == nil {
		t.Error("expected not found error")
	} else if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not found", err)
	}
}
