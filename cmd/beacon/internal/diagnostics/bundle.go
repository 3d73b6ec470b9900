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
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BundleContentType is the MIME type for diagnostic bundles.
const BundleContentType = "application/gzip"

// maxBundleFileSize caps individual files included in a bundle.
// Compose files and configs are tiny; anything larger is likely a
// data directory that does not belong in a support upload.
const maxBundleFileSize = 4 * 1024 * 1024

// BundleFile is a single named entry in a diagnostic bundle.
type BundleFile struct {
	// Name is the path inside the archive, e.g. "stack/docker-compose.yml".
	Name string

	// Data is the file content.
	Data []byte
}

// BuildBundle packs a diagnostic snapshot and supporting files into a
// tar.gz archive.
//
// # Description
//
// The snapshot lands at "diagnostics.json" inside the archive; extra
// files keep their given names. The result is suitable for attaching to
// a ticket or uploading through GCSDiagnosticsStorage with
// BundleContentType.
//
// # Inputs
//
//   - snapshot: Formatted diagnostics JSON (may be nil to skip)
//   - files: Additional files to include
//
// # Outputs
//
//   - []byte: Complete gzip-compressed tar archive
//   - error: Non-nil if archive writing fails
//
// # Examples
//
//	bundle, err := BuildBundle(snapshotJSON, []BundleFile{
//	    {Name: "beacon.yaml", Data: configBytes},
//	})
func BuildBundle(snapshot []byte, files []BundleFile) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	now := time.Now()

	if snapshot != nil {
		if err := writeBundleEntry(tw, "diagnostics.json", snapshot, now); err != nil {
			return nil, err
		}
	}

	for _, f := range files {
		if err := writeBundleEntry(tw, f.Name, f.Data, now); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize bundle archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize bundle compression: %w", err)
	}

	return buf.Bytes(), nil
}

// CollectBundleFiles reads stack configuration files for inclusion in a
// bundle.
//
// # Description
//
// Gathers the beacon config file and any compose or rule files from the
// stack directory. Missing paths are skipped silently; a bundle with
// fewer files is better than no bundle. Oversized files are skipped to
// keep uploads small.
//
// # Inputs
//
//   - configPath: Path to beacon.yaml (empty to skip)
//   - stackDir: Stack directory holding compose and rule files (empty to skip)
//
// # Outputs
//
//   - []BundleFile: Files found, with archive-relative names
func CollectBundleFiles(configPath, stackDir string) []BundleFile {
	var files []BundleFile

	if configPath != "" {
		if data, err := readBundleFile(configPath); err == nil {
			files = append(files, BundleFile{Name: filepath.Base(configPath), Data: data})
		}
	}

	if stackDir == "" {
		return files
	}

	entries, err := os.ReadDir(stackDir)
	if err != nil {
		return files
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !isBundledStackFile(name) {
			continue
		}
		data, err := readBundleFile(filepath.Join(stackDir, name))
		if err != nil {
			continue
		}
		files = append(files, BundleFile{Name: "stack/" + name, Data: data})
	}

	return files
}

// writeBundleEntry writes a single file entry to the tar stream.
func writeBundleEntry(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    0640,
		Size:    int64(len(data)),
		ModTime: modTime,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write bundle header for %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write bundle entry %s: %w", name, err)
	}
	return nil
}

// readBundleFile reads a file, rejecting anything over the size cap.
func readBundleFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxBundleFileSize {
		return nil, fmt.Errorf("file too large for bundle: %s", path)
	}
	return os.ReadFile(path)
}

// isBundledStackFile reports whether a stack directory file belongs in
// the bundle. Only declarative config formats are included; secrets
// live in env files, which are deliberately excluded.
func isBundledStackFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	if strings.HasSuffix(name, ".env") || name == ".env" {
		return false
	}
	switch {
	case strings.HasSuffix(name, ".yml"), strings.HasSuffix(name, ".yaml"):
		return true
	case strings.HasSuffix(name, ".json"):
		return true
	default:
		return false
	}
}
