// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diagnostics

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// BucketUploader is the subset of the GCS client the storage backend needs.
// Satisfied by *gcs.Client; tests provide a mock.
type BucketUploader interface {
	UploadBytes(ctx context.Context, objectPath string, data []byte, contentType string) error
	Download(ctx context.Context, objectPath string) ([]byte, error)
	List(ctx context.Context, prefix string, limit int) ([]string, error)
	Delete(ctx context.Context, objectPath string) error
}

// GCSDiagnosticsStorage uploads diagnostics to a Google Cloud Storage bucket.
//
// # Description
//
// Used when the config names a diagnostics bucket, so snapshots are
// visible to the whole operations team instead of one laptop. Locations
// returned by Store use the gs://bucket/path form.
//
// # Thread Safety
//
// GCSDiagnosticsStorage is safe for concurrent use; all state is
// immutable after construction.
type GCSDiagnosticsStorage struct {
	client BucketUploader
	bucket string
	prefix string
}

// NewGCSDiagnosticsStorage creates a GCS-backed storage backend.
//
// # Inputs
//
//   - client: GCS client bound to the target bucket
//   - bucket: Bucket name, used only to build gs:// location strings
//   - prefix: Object name prefix, e.g. "diagnostics". Empty means the
//     bucket root.
//
// # Examples
//
//	gc, err := gcs.NewClient(ctx, cfg.Diagnostics.GCSBucket, "")
//	if err != nil {
//	    return err
//	}
//	storage := NewGCSDiagnosticsStorage(gc, cfg.Diagnostics.GCSBucket, cfg.Diagnostics.GCSPrefix)
//	collector.SetStorage(storage)
func NewGCSDiagnosticsStorage(client BucketUploader, bucket, prefix string) *GCSDiagnosticsStorage {
	prefix = strings.Trim(prefix, "/")
	return &GCSDiagnosticsStorage{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Store uploads data and returns its gs:// location.
func (s *GCSDiagnosticsStorage) Store(ctx context.Context, data []byte, metadata StorageMetadata) (string, error) {
	objectPath := s.generateObjectPath(metadata)

	if err := s.client.UploadBytes(ctx, objectPath, data, metadata.ContentType); err != nil {
		return "", fmt.Errorf("failed to upload diagnostics: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, objectPath), nil
}

// Load downloads previously stored data by location.
// Accepts both gs:// URIs and bare object paths.
func (s *GCSDiagnosticsStorage) Load(ctx context.Context, location string) ([]byte, error) {
	objectPath := s.stripLocation(location)
	if objectPath == "" {
		return nil, fmt.Errorf("invalid GCS location: %s", location)
	}
	return s.client.Download(ctx, objectPath)
}

// List returns gs:// locations of stored diagnostics.
// Object listing order is lexicographic; timestamped names make that
// chronological, oldest first.
func (s *GCSDiagnosticsStorage) List(ctx context.Context, limit int) ([]string, error) {
	names, err := s.client.List(ctx, s.prefix, limit)
	if err != nil {
		return nil, err
	}

	locations := make([]string, len(names))
	for i, name := range names {
		locations[i] = fmt.Sprintf("gs://%s/%s", s.bucket, name)
	}
	return locations, nil
}

// Prune is a no-op for GCS; bucket lifecycle rules handle retention.
func (s *GCSDiagnosticsStorage) Prune(ctx context.Context) (int, error) {
	return 0, nil
}

// Type returns "gcs" to identify this backend.
func (s *GCSDiagnosticsStorage) Type() string {
	return "gcs"
}

// generateObjectPath builds a timestamped object name under the prefix.
func (s *GCSDiagnosticsStorage) generateObjectPath(metadata StorageMetadata) string {
	now := time.Now()
	timestamp := now.Format("20060102-150405")
	nanos := now.Nanosecond()

	name := fmt.Sprintf("diag-%s-%09d", timestamp, nanos)
	if hint := sanitizeFilenameHint(metadata.FilenameHint); hint != "" {
		name = name + "-" + hint
	}
	name += extensionForContentType(metadata.ContentType)

	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// stripLocation converts a gs:// URI back to an object path.
func (s *GCSDiagnosticsStorage) stripLocation(location string) string {
	uriPrefix := fmt.Sprintf("gs://%s/", s.bucket)
	if strings.HasPrefix(location, uriPrefix) {
		return strings.TrimPrefix(location, uriPrefix)
	}
	if strings.HasPrefix(location, "gs://") {
		return ""
	}
	return location
}

// extensionForContentType maps stored content types to file extensions.
func extensionForContentType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		return ".json"
	case strings.HasPrefix(contentType, "application/gzip"):
		return ".tar.gz"
	case strings.HasPrefix(contentType, "text/plain"):
		return ".txt"
	default:
		return ""
	}
}

// Compile-time interface compliance check.
var _ DiagnosticsStorage = (*GCSDiagnosticsStorage)(nil)
