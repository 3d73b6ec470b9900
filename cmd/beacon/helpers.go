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

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"
)

// Constants for default connection settings
const (
	DefaultMonitorPort = 9180
	DefaultMonitorHost = "localhost"
)

// getMonitorBaseURL returns the address of the beacon monitor server.
func getMonitorBaseURL() string {
	// 1. Priority: Environment Variable (Used by Tests & Docker overrides)
	if url := os.Getenv("BEACON_MONITOR_URL"); url != "" {
		return url
	}
	// 2. Default: Standard Host/Port
	return fmt.Sprintf("http://%s:%d", DefaultMonitorHost, DefaultMonitorPort)
}

// getStackDir locates the directory holding the observability stack files
// (docker-compose.yml, prometheus.yml, provisioning, rules).
func getStackDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get the current working directory %w", err)
	}
	localCompose := filepath.Join(cwd, "docker-compose.yml")
	if _, err = os.Stat(localCompose); err == nil {
		body, err := os.ReadFile(localCompose)
		if err == nil && strings.Contains(string(body), "beacon-grafana") {
			return cwd, nil
		}
	}

	usr, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to get the current user: %w", err)
	}
	return filepath.Join(usr.HomeDir, ".beacon", "stack"), nil
}

// ensureStackDir handles version checking, downloading, and updating the stack.
func ensureStackDir(cliVersion string) (string, error) {
	stackDir, err := getStackDir()
	if err != nil {
		return "", err
	}

	// Outside the hidden .beacon directory we never version-check, delete,
	// or download files. That is dev mode.
	if !strings.Contains(stackDir, ".beacon/stack") {
		fmt.Println("Dev Mode detected: using local stack files.")
		fmt.Printf("    Context: %s\n", stackDir)
		if err := ensureEssentialDirs(stackDir); err != nil {
			return "", err
		}
		return stackDir, nil
	}

	if err := ensureEssentialDirs(stackDir); err != nil {
		return "", err
	}

	composeFilePath := filepath.Join(stackDir, "docker-compose.yml")
	versionFilePath := filepath.Join(stackDir, ".version")

	var storedVersion string
	versionBytes, err := os.ReadFile(versionFilePath)
	if err == nil {
		storedVersion = strings.TrimSpace(string(versionBytes))
	} else if !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Could not read existing stack version file", "path", versionFilePath, "error", err)
	}

	// Dev mode: use current working directory if it has docker-compose.yml
	if cliVersion == "dev" {
		cwd, _ := os.Getwd()
		localCompose := filepath.Join(cwd, "docker-compose.yml")
		if _, err := os.Stat(localCompose); err == nil {
			slog.Info("Dev mode: using local repo", "path", cwd)
			fmt.Printf("Using local stack files from %s\n", cwd)
			return cwd, nil
		}
	}

	composeExists := true
	if _, err := os.Stat(composeFilePath); errors.Is(err, os.ErrNotExist) {
		composeExists = false
	}

	needsUpdate := !composeExists || (storedVersion != cliVersion && cliVersion != "dev")

	if needsUpdate {
		if storedVersion != cliVersion && storedVersion != "" {
			slog.Info("Detected stack version mismatch", "stored", storedVersion, "cli", cliVersion)
			fmt.Printf("Updating stack files in %s to match CLI version %s...\n", stackDir, cliVersion)
		} else {
			slog.Info("Stack files not found", "path", stackDir)
			fmt.Printf("Initializing stack files in %s (v%s)...\n", stackDir, cliVersion)
		}

		dirEntries, _ := os.ReadDir(stackDir)
		for _, entry := range dirEntries {
			name := entry.Name()
			// Data volumes and local overrides survive updates.
			if name == "data" || name == "docker-compose.override.yml" || name == "stack.env" {
				continue
			}
			entryPath := filepath.Join(stackDir, name)
			if err := os.RemoveAll(entryPath); err != nil {
				slog.Warn("Failed to clean up old stack file", "path", entryPath, "error", err)
			}
		}

		if err := downloadAndExtractStackFiles(stackDir, cliVersion); err != nil {
			return "", fmt.Errorf("failed to download stack files: %w", err)
		}

		if err := os.WriteFile(versionFilePath, []byte(cliVersion+"\n"), 0644); err != nil {
			slog.Warn("Failed to write .version file", "error", err)
		}

	} else {
		slog.Info("Using existing stack files", "version", storedVersion)
	}

	return stackDir, nil
}

// ensureEssentialDirs creates the directories the stack containers mount.
func ensureEssentialDirs(stackDir string) error {
	dirsToEnsure := []string{
		"data",
		filepath.Join("data", "prometheus"),
		filepath.Join("data", "loki"),
		filepath.Join("data", "tempo"),
		filepath.Join("data", "grafana"),
	}
	var firstErr error
	for _, dirName := range dirsToEnsure {
		dirPath := filepath.Join(stackDir, dirName)
		if _, err := os.Stat(dirPath); os.IsNotExist(err) {
			slog.Info("Creating essential directory", "path", dirPath)
			if err := os.MkdirAll(dirPath, 0755); err != nil {
				slog.Error("Failed to create directory", "path", dirPath, "error", err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}

func downloadAndExtractStackFiles(targetDir string, versionTag string) error {
	tarballURL := fmt.Sprintf("https://github.com/AleutianAI/beacon/archive/refs/tags/v%s.tar.gz", versionTag)
	slog.Info("Downloading stack archive", "url", tarballURL)
	fmt.Printf("  Downloading %s...\n", tarballURL)

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Get(tarballURL)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", tarballURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			slog.Error("Download failed (could not read error body)", "status", resp.StatusCode, "read_error", err)
			return fmt.Errorf("download failed with status %d", resp.StatusCode)
		}
		slog.Error("Download failed", "status", resp.StatusCode)
		return fmt.Errorf("download failed: %s", string(bodyBytes))
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create target directory %s: %w", targetDir, err)
	}

	fmt.Println("  Extracting stack files...")
	return extractTarGz(resp.Body, targetDir)
}

func extractTarGz(gzipStream io.Reader, targetDir string) error {
	uncompressedStream, err := gzip.NewReader(gzipStream)
	if err != nil {
		return fmt.Errorf("gzip.NewReader failed: %w", err)
	}
	defer func() {
		if err := uncompressedStream.Close(); err != nil {
			slog.Error("failed to close gzip reader", "error", err)
		}
	}()

	tarReader := tar.NewReader(uncompressedStream)
	var rootDirToStrip string = ""

	processHeader := func(header *tar.Header, reader io.Reader) error {
		if rootDirToStrip == "" {
			if strings.Contains(header.Name, "pax_global_header") || strings.HasPrefix(filepath.Base(header.Name), "._") {
				return nil
			}
			parts := strings.SplitN(header.Name, string(filepath.Separator), 2)
			if len(parts) > 0 && parts[0] != "" {
				if strings.Contains(parts[0], "beacon") {
					rootDirToStrip = parts[0] + string(filepath.Separator)
				} else {
					return fmt.Errorf("could not reliably determine base directory from: '%s'", header.Name)
				}
			} else {
				return fmt.Errorf("unable to determine base directory from: '%s'", header.Name)
			}
		}

		if !strings.HasPrefix(header.Name, rootDirToStrip) {
			return nil
		}

		relPath := strings.TrimPrefix(header.Name, rootDirToStrip)
		if relPath == "" {
			return nil
		}
		relPath = strings.TrimPrefix(relPath, string(filepath.Separator))

		targetPath := filepath.Join(targetDir, relPath)
		if !strings.HasPrefix(filepath.Clean(targetPath), filepath.Clean(targetDir)) {
			return fmt.Errorf("invalid file path: '%s'", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return err
			}
			outFile, err := os.Create(targetPath)
			if err != nil {
				return err
			}
			if _, err := io.Copy(outFile, reader); err != nil {
				if closeErr := outFile.Close(); closeErr != nil {
					slog.Error("failed to close file after copy error", "path", targetPath, "error", closeErr)
				}
				return err
			}
			if err := outFile.Close(); err != nil {
				slog.Error("failed to close extracted file", "path", targetPath, "error", err)
			}
			if err := os.Chmod(targetPath, os.FileMode(header.Mode)); err != nil {
				slog.Error("failed to chmod extracted file", "path", targetPath, "error", err)
			}
		}
		return nil
	}

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := processHeader(header, tarReader); err != nil {
			return err
		}
	}
	return nil
}
