// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import "testing"

func TestParseGCSTarget(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantBucket string
		wantPrefix string
		wantErr    bool
	}{
		{"BucketOnly", "gs://beacon-diag", "beacon-diag", "", false},
		{"BucketAndPrefix", "gs://beacon-diag/snapshots", "beacon-diag", "snapshots", false},
		{"NestedPrefix", "gs://beacon-diag/team/ops/", "beacon-diag", "team/ops", false},
		{"MissingScheme", "beacon-diag/snapshots", "", "", true},
		{"EmptyBucket", "gs://", "", "", true},
		{"SchemeOnlyPrefix", "gs:///snapshots", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, prefix, err := parseGCSTarget(tt.target)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s / %s", bucket, prefix)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bucket != tt.wantBucket || prefix != tt.wantPrefix {
				t.Errorf("got %s / %s, want %s / %s", bucket, prefix, tt.wantBucket, tt.wantPrefix)
			}
		})
	}
}
