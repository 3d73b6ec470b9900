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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// CurrentConfigVersion is written to new config files and checked on load.
const CurrentConfigVersion = "1"

type BeaconConfig struct {
	// Meta: config file versioning
	Meta MetaConfig `yaml:"meta"`

	// Stack: where the compose files live and how the project is named
	Stack StackConfig `yaml:"stack"`

	// Services: the monitored endpoints and their criticality
	Services []ServiceConfig `yaml:"services" validate:"dive"`

	// Retry: health check polling behavior
	Retry RetryConfig `yaml:"retry"`

	// Serve: settings for the long-running monitor mode
	Serve ServeConfig `yaml:"serve"`

	// History: where check results are persisted
	History HistoryConfig `yaml:"history"`

	// Secrets: pointers to where credentials are stored
	Secrets SecretsConfig `yaml:"secrets"`

	// Diagnostics: bundle upload destination
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
}

type MetaConfig struct {
	Version string `yaml:"version"`
}

type StackConfig struct {
	Dir          string `yaml:"dir"`           // e.g. ~/.beacon/stack
	ProjectName  string `yaml:"project_name"`  // e.g. beacon
	BaseFile     string `yaml:"base_file"`     // e.g. docker-compose.yml
	OverrideFile string `yaml:"override_file"` // optional, layered on top
}

type ServiceConfig struct {
	// Name is the service identifier, e.g. "prometheus".
	Name string `yaml:"name" validate:"required"`

	// URL is the base URL of the service, e.g. "http://localhost:9090".
	URL string `yaml:"url" validate:"required,url"`

	// HealthPath is the readiness endpoint path, e.g. "/-/healthy".
	HealthPath string `yaml:"health_path"`

	// Critical marks services whose failure fails the whole check run.
	// Non-critical services only produce warnings.
	Critical bool `yaml:"critical"`

	// TimeoutSeconds is the per-request timeout. Zero means the default.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"gte=0,lte=300"`
}

type RetryConfig struct {
	// Attempts is the maximum number of health check attempts per service.
	Attempts int `yaml:"attempts" validate:"gte=1,lte=1000"`

	// IntervalSeconds is the sleep between attempts.
	IntervalSeconds int `yaml:"interval_seconds" validate:"gte=1,lte=300"`

	// Multiplier scales the interval after each failed attempt.
	// 1.0 means fixed-interval polling.
	Multiplier float64 `yaml:"multiplier" validate:"gte=1,lte=10"`

	// MaxIntervalSeconds caps the interval when Multiplier > 1.
	MaxIntervalSeconds int `yaml:"max_interval_seconds" validate:"gte=0,lte=600"`
}

type ServeConfig struct {
	// Listen is the address for the status API, e.g. ":8080".
	Listen string `yaml:"listen"`

	// IntervalSeconds is the background check loop period.
	IntervalSeconds int `yaml:"interval_seconds" validate:"gte=5,lte=3600"`

	// RatePerSecond limits outbound probe requests across all services.
	RatePerSecond float64 `yaml:"rate_per_second" validate:"gte=0"`

	// Burst is the probe rate limiter burst size.
	Burst int `yaml:"burst" validate:"gte=0"`

	// OTLPEndpoint is the gRPC endpoint for trace export, e.g. "localhost:4317".
	// Empty disables tracing.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

type HistoryConfig struct {
	// Dir is the on-disk store location. Default: ~/.beacon/history
	Dir string `yaml:"dir"`

	// RetentionDays is how long check results are kept.
	RetentionDays int `yaml:"retention_days" validate:"gte=1,lte=365"`
}

type SecretsConfig struct {
	// UseEnv reads credentials from the environment.
	UseEnv bool `yaml:"use_env"`

	// UseKeychain enables the macOS Keychain backend.
	UseKeychain bool `yaml:"use_keychain"`

	// Use1Password enables the 1Password CLI backend.
	Use1Password bool `yaml:"use_1password"`

	// UseLibsecret enables the Linux libsecret backend.
	UseLibsecret bool `yaml:"use_libsecret"`

	// OnePasswordVault is the 1Password vault name. Empty means "Beacon".
	OnePasswordVault string `yaml:"onepassword_vault"`

	// TimeoutSeconds bounds each backend command. Zero means the default.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"gte=0,lte=60"`

	// GrafanaTokenEnv names the env var holding the Grafana API token.
	GrafanaTokenEnv string `yaml:"grafana_token_env"`
}

// GetTimeout returns the per-backend command timeout.
func (s *SecretsConfig) GetTimeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// GetOnePasswordVault returns the configured vault name or the default.
func (s *SecretsConfig) GetOnePasswordVault() string {
	if s.OnePasswordVault == "" {
		return "Beacon"
	}
	return s.OnePasswordVault
}

type DiagnosticsConfig struct {
	// GCSBucket is the bucket diagnostic bundles are uploaded to.
	// Empty disables upload.
	GCSBucket string `yaml:"gcs_bucket"`

	// GCSPrefix is the object name prefix within the bucket.
	GCSPrefix string `yaml:"gcs_prefix"`
}

// validate is shared; validator instances cache struct metadata.
var validate = validator.New()

// Validate checks structural constraints on the loaded config.
func (c *BeaconConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// beaconHome returns the per-user beacon directory (~/.beacon).
func beaconHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".beacon"
	}
	return filepath.Join(home, ".beacon")
}

func DefaultConfig() BeaconConfig {
	return BeaconConfig{
		Meta: MetaConfig{Version: CurrentConfigVersion},
		Stack: StackConfig{
			Dir:          filepath.Join(beaconHome(), "stack"),
			ProjectName:  "beacon",
			BaseFile:     "docker-compose.yml",
			OverrideFile: "docker-compose.override.yml",
		},
		Services: []ServiceConfig{
			{Name: "prometheus", URL: "http://localhost:9090", HealthPath: "/-/healthy", Critical: true},
			{Name: "alertmanager", URL: "http://localhost:9093", HealthPath: "/-/healthy", Critical: true},
			{Name: "grafana", URL: "http://localhost:3000", HealthPath: "/api/health", Critical: true},
			{Name: "loki", URL: "http://localhost:3100", HealthPath: "/ready", Critical: true},
			{Name: "tempo", URL: "http://localhost:3200", HealthPath: "/ready", Critical: false},
			{Name: "node-exporter", URL: "http://localhost:9100", HealthPath: "/metrics", Critical: false},
		},
		Retry: RetryConfig{
			Attempts:           30,
			IntervalSeconds:    2,
			Multiplier:         1.0,
			MaxIntervalSeconds: 8,
		},
		Serve: ServeConfig{
			Listen:          ":8080",
			IntervalSeconds: 30,
			RatePerSecond:   10,
			Burst:           20,
		},
		History: HistoryConfig{
			Dir:           filepath.Join(beaconHome(), "history"),
			RetentionDays: 30,
		},
		Secrets: SecretsConfig{
			UseEnv:          true,
			UseKeychain:     true,
			UseLibsecret:    true,
			GrafanaTokenEnv: "GRAFANA_API_TOKEN",
		},
		Diagnostics: DiagnosticsConfig{},
	}
}

// ServiceByName returns the config entry for a named service, or nil.
func (c *BeaconConfig) ServiceByName(name string) *ServiceConfig {
	for i := range c.Services {
		if c.Services[i].Name == name {
			return &c.Services[i]
		}
	}
	return nil
}
