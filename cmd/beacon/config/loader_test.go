// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestCreateDefault verifies default config creation.
func TestCreateDefault(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, ".beacon", "beacon.yaml")

	err := createDefault(configPath)
	if err != nil {
		t.Fatalf("createDefault() failed: %v", err)
	}

	// Verify the file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}

	// Read and verify the config
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}

	var cfg BeaconConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	// Verify some defaults
	if cfg.Meta.Version != CurrentConfigVersion {
		t.Errorf("Meta.Version = %q, want %q", cfg.Meta.Version, CurrentConfigVersion)
	}
	if cfg.Stack.ProjectName != "beacon" {
		t.Errorf("Stack.ProjectName = %q, want %q", cfg.Stack.ProjectName, "beacon")
	}
	if len(cfg.Services) != 6 {
		t.Errorf("expected 6 default services, got %d", len(cfg.Services))
	}
	if cfg.Retry.Multiplier != 1.0 {
		t.Errorf("expected fixed-interval polling by default, got multiplier %v", cfg.Retry.Multiplier)
	}
}

// TestCreateDefault_DirectoryCreation verifies directory is created.
func TestCreateDefault_DirectoryCreation(t *testing.T) {
	tempDir := t.TempDir()

	// Use a nested path
	configPath := filepath.Join(tempDir, "deep", "nested", "path", "beacon.yaml")

	err := createDefault(configPath)
	if err != nil {
		t.Fatalf("createDefault() failed with nested path: %v", err)
	}

	dirPath := filepath.Dir(configPath)
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		t.Fatal("nested directories were not created")
	}
}

// TestConfigFilePath_EnvOverride verifies BEACON_CONFIG takes precedence.
func TestConfigFilePath_EnvOverride(t *testing.T) {
	t.Setenv("BEACON_CONFIG", "/tmp/custom-beacon.yaml")
	if got := configFilePath(); got != "/tmp/custom-beacon.yaml" {
		t.Errorf("expected env override to win, got %q", got)
	}
}

// TestDefaultConfig_Validates ensures the shipped defaults pass validation.
func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestValidate_RejectsBadService(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Services = append(cfg.Services, ServiceConfig{Name: "", URL: "not-a-url"})
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation failure for empty name and bad URL")
	}
}

func TestValidate_RejectsBadRetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retry.Attempts = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation failure for zero attempts")
	}
}

func TestServiceByName(t *testing.T) {
	cfg := DefaultConfig()

	svc := cfg.ServiceByName("loki")
	if svc == nil {
		t.Fatal("expected to find loki")
	}
	if svc.URL != "http://localhost:3100" {
		t.Errorf("unexpected loki URL: %q", svc.URL)
	}
	if !svc.Critical {
		t.Error("expected loki to be critical")
	}

	if cfg.ServiceByName("nope") != nil {
		t.Error("expected nil for unknown service")
	}
}

func TestDefaultConfig_Criticality(t *testing.T) {
	cfg := DefaultConfig()

	critical := map[string]bool{}
	for _, svc := range cfg.Services {
		critical[svc.Name] = svc.Critical
	}

	for _, name := range []string{"prometheus", "alertmanager", "grafana", "loki"} {
		if !critical[name] {
			t.Errorf("expected %s to be critical", name)
		}
	}
	for _, name := range []string{"tempo", "node-exporter"} {
		if critical[name] {
			t.Errorf("expected %s to be non-critical", name)
		}
	}
}
