// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package diagnostics provides FileDiagnosticsStorage for local filesystem storage.

Files are stored with timestamped filenames under ~/.beacon/diagnostics for
easy identification and chronological ordering. The directory is created
automatically, and old files are pruned on a retention schedule to keep
disk usage bounded.
*/
package diagnostics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileDiagnosticsStorage stores diagnostics in the local filesystem.
//
// # Capabilities
//
//   - Persistent local storage in a configurable directory
//   - Automatic file naming with timestamps
//   - 30-day retention by default
//   - Thread-safe concurrent access
//
// # Thread Safety
//
// FileDiagnosticsStorage uses a mutex to protect concurrent operations.
// Multiple goroutines can safely Store, Load, List, and Prune concurrently.
type FileDiagnosticsStorage struct {
	// baseDir is the directory where diagnostics are stored.
	baseDir string

	// retentionDays is how long to keep diagnostics before pruning.
	retentionDays int

	// mu protects concurrent access to storage operations.
	mu sync.RWMutex

	// filePrefix is prepended to generated filenames.
	filePrefix string

	// fileExtension is the extension for stored files.
	fileExtension string
}

// NewFileDiagnosticsStorage creates a file-based storage backend.
//
// # Description
//
// Saves diagnostics to the local filesystem. The directory is created if
// it does not exist.
//
// # Inputs
//
//   - baseDir: Directory path for diagnostic files. Use empty string for
//     the default (~/.beacon/diagnostics)
//
// # Outputs
//
//   - *FileDiagnosticsStorage: Ready-to-use storage backend
//   - error: Non-nil if directory creation fails
//
// # Examples
//
//	storage, err := NewFileDiagnosticsStorage("")
//	// Uses ~/.beacon/diagnostics
//
//	storage, err := NewFileDiagnosticsStorage("/var/log/beacon/diagnostics")
//	// Uses custom directory
//
// # Limitations
//
//   - Requires write permissions to the base directory
//   - No encryption at rest (rely on filesystem encryption)
//
// # Assumptions
//
//   - Clock is reasonably synchronized for timestamp generation
func NewFileDiagnosticsStorage(baseDir string) (*FileDiagnosticsStorage, error) {
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".beacon", "diagnostics")
	}

	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create diagnostics directory %s: %w", baseDir, err)
	}

	return &FileDiagnosticsStorage{
		baseDir:       baseDir,
		retentionDays: DefaultRetentionDays,
		filePrefix:    "diag",
		fileExtension: ".json",
	}, nil
}

// Store saves diagnostic data to a timestamped file.
//
// # Description
//
// Uses atomic write (temp file + rename) to prevent partial files on
// crash. Returns the absolute path of the stored file.
//
// # Examples
//
//	location, err := storage.Store(ctx, jsonBytes, StorageMetadata{
//	    FilenameHint: "startup_failure",
//	    ContentType:  "application/json",
//	})
//	// location: "/home/user/.beacon/diagnostics/diag-20240105-100000-...-startup_failure.json"
func (s *FileDiagnosticsStorage) Store(ctx context.Context, data []byte, metadata StorageMetadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filename := s.generateFilename(metadata)
	filePath := filepath.Join(s.baseDir, filename)

	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0640); err != nil {
		return "", fmt.Errorf("failed to write diagnostic file: %w", err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("failed to finalize diagnostic file: %w", err)
	}

	return filePath, nil
}

// Load retrieves diagnostic data from a file.
//
// # Description
//
// Only loads files within the base directory; paths that escape it are
// rejected to prevent traversal attacks.
//
// # Examples
//
//	data, err := storage.Load(ctx, "/home/user/.beacon/diagnostics/diag-xxx.json")
func (s *FileDiagnosticsStorage) Load(ctx context.Context, location string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cleanPath := filepath.Clean(location)
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return nil, fmt.Errorf("path outside storage directory: %s", location)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read diagnostic file: %w", err)
	}

	return data, nil
}

// List returns paths to stored diagnostics, most recent first.
//
// # Inputs
//
//   - ctx: Context for cancellation (currently not used)
//   - limit: Maximum number of paths to return. Use 0 or negative for all.
//
// # Examples
//
//	paths, err := storage.List(ctx, 10)
//	// Returns up to 10 most recent diagnostic paths
func (s *FileDiagnosticsStorage) List(ctx context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnostics directory: %w", err)
	}

	type fileWithTime struct {
		path    string
		modTime time.Time
	}

	var files []fileWithTime
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasPrefix(name, s.filePrefix) || !strings.HasSuffix(name, s.fileExtension) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue // Skip files we can't stat
		}

		files = append(files, fileWithTime{
			path:    filepath.Join(s.baseDir, name),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})

	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}

	return paths, nil
}

// Prune removes diagnostics older than the retention period.
//
// # Description
//
// Deletes diagnostic files whose modification time is older than the
// configured retention period, preventing unbounded disk usage.
//
// # Outputs
//
//   - int: Number of files deleted
//   - error: Non-nil if deletion fails (partial deletion may have occurred)
//
// # Examples
//
//	deleted, err := storage.Prune(ctx)
//	log.Printf("Pruned %d old diagnostic files", deleted)
//
// # Limitations
//
//   - Returns on first error; some files may remain undeleted
//   - Uses file modification time, not creation time
func (s *FileDiagnosticsStorage) Prune(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("failed to list diagnostics directory: %w", err)
	}

	var deleted int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasPrefix(name, s.filePrefix) || !strings.HasSuffix(name, s.fileExtension) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue // Skip files we can't stat
		}

		if info.ModTime().Before(cutoff) {
			filePath := filepath.Join(s.baseDir, name)
			if err := os.Remove(filePath); err != nil {
				return deleted, fmt.Errorf("failed to delete %s: %w", name, err)
			}
			deleted++
		}
	}

	return deleted, nil
}

// SetRetentionDays configures the retention period. Values <= 0 are ignored.
//
// # Examples
//
//	storage.SetRetentionDays(7)  // Keep diagnostics for 1 week
func (s *FileDiagnosticsStorage) SetRetentionDays(days int) {
	if days <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retentionDays = days
}

// GetRetentionDays returns the current retention period.
func (s *FileDiagnosticsStorage) GetRetentionDays() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retentionDays
}

// Type returns "file" to identify this backend.
func (s *FileDiagnosticsStorage) Type() string {
	return "file"
}

// BaseDir returns the storage directory path.
func (s *FileDiagnosticsStorage) BaseDir() string {
	return s.baseDir
}

// Count returns the number of stored diagnostic files.
func (s *FileDiagnosticsStorage) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("failed to list diagnostics directory: %w", err)
	}

	var count int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, s.filePrefix) && strings.HasSuffix(name, s.fileExtension) {
			count++
		}
	}

	return count, nil
}

// generateFilename creates a unique timestamped filename.
//
// The filename includes nanoseconds to ensure uniqueness even when
// multiple diagnostics are stored within the same second.
func (s *FileDiagnosticsStorage) generateFilename(metadata StorageMetadata) string {
	now := time.Now()
	timestamp := now.Format("20060102-150405")
	nanos := now.Nanosecond()

	hint := sanitizeFilenameHint(metadata.FilenameHint)
	if hint != "" {
		return fmt.Sprintf("%s-%s-%09d-%s%s", s.filePrefix, timestamp, nanos, hint, s.fileExtension)
	}

	return fmt.Sprintf("%s-%s-%09d%s", s.filePrefix, timestamp, nanos, s.fileExtension)
}

// sanitizeFilenameHint removes unsafe characters from the filename hint.
func sanitizeFilenameHint(hint string) string {
	if hint == "" {
		return ""
	}

	var result strings.Builder
	for _, r := range hint {
		switch {
		case r >= 'a' && r <= 'z':
			result.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			result.WriteRune(r)
		case r >= '0' && r <= '9':
			result.WriteRune(r)
		case r == '-' || r == '_':
			result.WriteRune(r)
		default:
			result.WriteRune('_')
		}
	}

	s := result.String()
	if len(s) > 50 {
		s = s[:50]
	}

	return s
}

// Compile-time interface compliance check.
var _ DiagnosticsStorage = (*FileDiagnosticsStorage)(nil)
