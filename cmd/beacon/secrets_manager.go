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
Package main provides SecretsManager for secure secret management.

SecretsManager provides a centralized, secure abstraction for retrieving and
managing secrets (Grafana tokens, admin passwords, webhook URLs). It supports
multiple backends with automatic fallback.

# Security Context

This is a CRITICAL-RISK component because it handles authentication
credentials for the observability stack (Grafana service accounts, the
Grafana admin password, Alertmanager webhook destinations). Improper handling
could lead to credential exposure or unauthorized dashboard and alert access.

# Security Features

  - Zero Value Logging: Secret values are NEVER logged (even at debug level)
  - Audit Trail: All access is recorded (secret name only, not value)
  - Fail-Secure: Missing secrets result in clear errors with setup help
  - Format Validation: Known secrets validated for expected patterns

# Backend Priority

Backends are tried in order until a secret is found:
 1. 1Password CLI (if enabled and available)
 2. macOS Keychain (if enabled, darwin only)
 3. Linux libsecret (if enabled, linux only)
 4. Environment variables (if enabled)
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/beacon/cmd/beacon/config"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/diagnostics"
)

// -----------------------------------------------------------------------------
// Error Sentinel Values
// -----------------------------------------------------------------------------

// ErrSecretNotFound is returned when a requested secret does not exist.
// The secret was not found in any configured backend.
var ErrSecretNotFound = errors.New("secret not found")

// ErrSecretInvalid is returned when a secret fails format validation.
// The secret exists but does not match expected format (e.g., wrong prefix).
var ErrSecretInvalid = errors.New("secret invalid")

// ErrSecretBackendUnavailable is returned when the backend cannot be reached.
// The backend CLI or service is not responding within timeout.
var ErrSecretBackendUnavailable = errors.New("secret backend unavailable")

// -----------------------------------------------------------------------------
// Backend Constants
// -----------------------------------------------------------------------------

const (
	// SecretBackendEnv is the environment variable backend type.
	SecretBackendEnv = "env"

	// SecretBackendKeychain is the macOS Keychain backend type.
	SecretBackendKeychain = "keychain"

	// SecretBackend1Password is the 1Password CLI backend type.
	SecretBackend1Password = "1password"

	// SecretBackendLibsecret is the Linux libsecret/Secret Service backend type.
	SecretBackendLibsecret = "libsecret"

	// SecretBackendMock is the mock backend for testing.
	SecretBackendMock = "mock"
)

// -----------------------------------------------------------------------------
// Well-Known Secret Names
// -----------------------------------------------------------------------------

const (
	// SecretGrafanaAPIToken is the Grafana service account token used for
	// dashboard pushes and API smoke tests.
	// Format: Must start with "glsa_"
	SecretGrafanaAPIToken = "GRAFANA_API_TOKEN"

	// SecretGrafanaAdminPassword is the Grafana admin password, used only
	// by the admin-reset runbook flow.
	// Format: Non-empty string
	SecretGrafanaAdminPassword = "GF_SECURITY_ADMIN_PASSWORD"

	// SecretAlertmanagerWebhookURL is the webhook receiver URL injected
	// into the Alertmanager config.
	// Format: Must be an http(s) URL
	SecretAlertmanagerWebhookURL = "ALERTMANAGER_WEBHOOK_URL"

	// SecretGoogleCredentials is the service account key path for GCS
	// diagnostic uploads.
	// Format: Non-empty string (optional)
	SecretGoogleCredentials = "GOOGLE_APPLICATION_CREDENTIALS"
)

// KnownSecrets lists all secrets recognized by Beacon.
// Used for validation, documentation, and ListSecretNames filtering.
var KnownSecrets = []string{
	SecretGrafanaAPIToken,
	SecretGrafanaAdminPassword,
	SecretAlertmanagerWebhookURL,
	SecretGoogleCredentials,
}

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// SecretsManager provides secure access to secrets (tokens, passwords, URLs).
//
// # Description
//
// This interface abstracts secret retrieval from the underlying storage
// mechanism. Implementations may read from environment variables, system
// keychains, or the 1Password CLI.
//
// # Security
//
//   - Secret values are NEVER logged (even at debug level)
//   - All access is recorded to the audit trail (secret name only, not value)
//   - Missing secrets result in clear errors (fail-secure)
//   - Secret values are validated for basic format requirements
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type SecretsManager interface {
	// GetSecret retrieves a secret by its canonical name.
	//
	// # Description
	//
	// Looks up a secret by name and returns its value. The lookup is
	// performed against configured backends in priority order until found.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation and timeout
	//   - name: Canonical secret name (e.g., "GRAFANA_API_TOKEN")
	//
	// # Outputs
	//
	//   - string: The secret value (never empty on success)
	//   - error: ErrSecretNotFound, context errors, or backend errors
	//
	// # Examples
	//
	//	token, err := secrets.GetSecret(ctx, SecretGrafanaAPIToken)
	//	if errors.Is(err, ErrSecretNotFound) {
	//	    fmt.Println(secrets.GetSetupInstructions(SecretGrafanaAPIToken))
	//	    return err
	//	}
	//
	// # Limitations
	//
	//   - Returns error if secret is empty (empty is not valid)
	//   - Does not cache; each call reads from backend
	//
	// # Assumptions
	//
	//   - Secret names use SCREAMING_SNAKE_CASE convention
	//   - Backend is properly configured before first access
	GetSecret(ctx context.Context, name string) (string, error)

	// GetSecretWithDefault retrieves a secret, returning a default if not
	// found. Still returns errors for backend failures.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation and timeout
	//   - name: Canonical secret name
	//   - defaultValue: Value to return if secret not found
	//
	// # Outputs
	//
	//   - string: The secret value or default
	//   - error: Backend errors only (NOT ErrSecretNotFound)
	GetSecretWithDefault(ctx context.Context, name, defaultValue string) (string, error)

	// HasSecret checks if a secret exists without retrieving it.
	// Useful for conditional behavior based on feature availability.
	//
	// # Outputs
	//
	//   - bool: True if secret exists and is non-empty
	//   - error: Backend errors only
	HasSecret(ctx context.Context, name string) (bool, error)

	// ValidateSecret checks if a secret meets format requirements.
	//
	// # Description
	//
	// Validates that a secret exists and meets basic format requirements
	// for the given secret type. Does not make external API calls to verify.
	//
	// # Outputs
	//
	//   - *SecretValidation: Validation result with details
	//   - error: Backend errors only (validation failures are in result)
	//
	// # Examples
	//
	//	result, err := secrets.ValidateSecret(ctx, SecretGrafanaAPIToken)
	//	if err != nil {
	//	    return err
	//	}
	//	if !result.Valid {
	//	    fmt.Printf("Invalid: %s\n", result.Reason)
	//	}
	ValidateSecret(ctx context.Context, name string) (*SecretValidation, error)

	// ListSecretNames returns all configured secret names (not values).
	// Only KnownSecrets that are present in some backend are returned.
	ListSecretNames(ctx context.Context) ([]string, error)

	// GetSecretWithMetadata retrieves a secret along with its metadata,
	// including which backend served it.
	//
	// # Outputs
	//
	//   - string: The secret value
	//   - *SecretMetadata: Metadata about the secret (never nil on success)
	//   - error: ErrSecretNotFound or backend errors
	GetSecretWithMetadata(ctx context.Context, name string) (string, *SecretMetadata, error)

	// GetBackendType returns the highest-priority enabled backend
	// identifier ("env", "keychain", "1password", "libsecret", "none").
	GetBackendType() string

	// GetSetupInstructions returns platform-specific setup help for a
	// missing secret.
	//
	// # Examples
	//
	//	_, err := secrets.GetSecret(ctx, SecretGrafanaAPIToken)
	//	if errors.Is(err, ErrSecretNotFound) {
	//	    fmt.Println(secrets.GetSetupInstructions(SecretGrafanaAPIToken))
	//	}
	GetSetupInstructions(name string) string

	// IsConfigured returns true if at least one backend is enabled.
	// Does not verify backends actually work.
	IsConfigured() bool

	// DetectAvailableBackends returns the backends available on this
	// system, detected at initialization by checking for CLI tools in
	// PATH and platform capabilities.
	DetectAvailableBackends() []string
}

// -----------------------------------------------------------------------------
// Supporting Types
// -----------------------------------------------------------------------------

// SecretMetadata contains metadata about a secret for audit and lifecycle.
//
// # Description
//
// Provides additional context about a secret beyond its value. Static
// backends (env, keychain) fill only Backend; LastRotated is populated
// when the backend reports it.
//
// # Thread Safety
//
// SecretMetadata is immutable after creation.
type SecretMetadata struct {
	// LastRotated is when the secret was last changed (if known).
	LastRotated time.Time

	// Backend identifies which backend provided this secret.
	Backend string
}

// SecretValidation is the result of validating a secret.
//
// # Description
//
// Contains the outcome of format validation for a secret.
// Includes whether the secret exists, is valid, and any warnings.
type SecretValidation struct {
	// Name is the secret name that was validated.
	Name string

	// Valid is true if the secret passed all validation checks.
	Valid bool

	// Exists is true if the secret was found in the backend.
	Exists bool

	// Reason explains why validation failed (empty if Valid=true).
	Reason string

	// Warnings lists non-fatal issues (e.g., unusual format).
	Warnings []string
}

// -----------------------------------------------------------------------------
// Implementation Struct
// -----------------------------------------------------------------------------

// DefaultSecretsManager implements SecretsManager with multi-backend support.
//
// # Description
//
// This is the production implementation that supports multiple backends
// with automatic fallback. Backends are tried in priority order until
// a secret is found.
//
// # Backend Priority
//
//  1. 1Password CLI (if enabled and available)
//  2. macOS Keychain (if enabled, darwin only)
//  3. Linux libsecret (if enabled, linux only)
//  4. Environment variables (if enabled)
//
// # Security
//
//   - Values are never logged, even at debug level
//   - Access events are recorded to the audit trail (name only)
//   - Invalid or empty secrets result in clear errors
//
// # Thread Safety
//
// DefaultSecretsManager is safe for concurrent use.
type DefaultSecretsManager struct {
	config            config.SecretsConfig
	metrics           diagnostics.DiagnosticsMetrics
	envFunc           func(string) string
	execCommandFunc   func(ctx context.Context, name string, args ...string) *exec.Cmd
	availableBackends []string
	mu                sync.RWMutex
}

// NewDefaultSecretsManager creates a secrets manager with multi-backend support.
//
// # Description
//
// Creates a new SecretsManager that tries multiple backends in priority
// order. Backends are auto-detected at initialization time by checking
// for CLI tools.
//
// # Inputs
//
//   - cfg: Secrets configuration from beacon.yaml
//   - metrics: diagnostics.DiagnosticsMetrics for audit trail (may be nil for no-op)
//
// # Outputs
//
//   - *DefaultSecretsManager: Ready-to-use manager
//
// # Examples
//
//	cfg := config.SecretsConfig{UseEnv: true, UseKeychain: true}
//	secrets := NewDefaultSecretsManager(cfg, nil)
//	token, err := secrets.GetSecret(ctx, SecretGrafanaAPIToken)
//
// # Limitations
//
//   - Backend detection happens at initialization only
//   - New CLIs installed after creation will not be detected
//
// # Assumptions
//
//   - Configuration has been loaded and validated before calling
func NewDefaultSecretsManager(cfg config.SecretsConfig, metrics diagnostics.DiagnosticsMetrics) *DefaultSecretsManager {
	mgr := &DefaultSecretsManager{
		config:          cfg,
		metrics:         metrics,
		envFunc:         os.Getenv,
		execCommandFunc: exec.CommandContext,
	}
	mgr.availableBackends = mgr.detectBackendsInternal()
	return mgr
}

// -----------------------------------------------------------------------------
// Interface Implementation Methods
// -----------------------------------------------------------------------------

// GetSecret retrieves a secret by its canonical name.
// Records access to the audit trail (name only, not value).
func (m *DefaultSecretsManager) GetSecret(ctx context.Context, name string) (string, error) {
	value, _, err := m.GetSecretWithMetadata(ctx, name)
	return value, err
}

// GetSecretWithDefault retrieves a secret, returning a default if not found.
func (m *DefaultSecretsManager) GetSecretWithDefault(ctx context.Context, name, defaultValue string) (string, error) {
	value, err := m.GetSecret(ctx, name)
	if errors.Is(err, ErrSecretNotFound) {
		return defaultValue, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// HasSecret checks if a secret exists without retrieving it.
func (m *DefaultSecretsManager) HasSecret(ctx context.Context, name string) (bool, error) {
	_, err := m.GetSecret(ctx, name)
	if errors.Is(err, ErrSecretNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetSecretWithMetadata retrieves a secret along with its metadata.
// Tries each enabled backend in priority order within the configured timeout.
func (m *DefaultSecretsManager) GetSecretWithMetadata(ctx context.Context, name string) (string, *SecretMetadata, error) {
	if name == "" {
		return "", nil, fmt.Errorf("secret name cannot be empty")
	}

	timeout := m.config.GetTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	value, meta, err := m.tryAllBackends(ctx, name)
	if err != nil {
		m.recordAccess(name, false, "")
		return "", nil, err
	}

	m.recordAccess(name, true, meta.Backend)
	return value, meta, nil
}

// ValidateSecret checks if a secret meets format requirements.
// Only validates format; it does not call Grafana or Alertmanager to
// verify the value works.
func (m *DefaultSecretsManager) ValidateSecret(ctx context.Context, name string) (*SecretValidation, error) {
	result := &SecretValidation{
		Name:     name,
		Warnings: []string{},
	}

	value, err := m.GetSecret(ctx, name)
	if errors.Is(err, ErrSecretNotFound) {
		result.Exists = false
		result.Valid = false
		result.Reason = "secret not found"
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	result.Exists = true
	m.applyValidationRules(result, name, value)
	return result, nil
}

// ListSecretNames returns all configured secret names (not values).
func (m *DefaultSecretsManager) ListSecretNames(ctx context.Context) ([]string, error) {
	var found []string
	for _, name := range KnownSecrets {
		exists, err := m.HasSecret(ctx, name)
		if err != nil {
			return nil, err
		}
		if exists {
			found = append(found, name)
		}
	}
	return found, nil
}

// GetBackendType returns the highest-priority enabled backend identifier.
func (m *DefaultSecretsManager) GetBackendType() string {
	if m.config.Use1Password {
		return SecretBackend1Password
	}
	if m.config.UseKeychain && runtime.GOOS == "darwin" {
		return SecretBackendKeychain
	}
	if m.config.UseLibsecret && runtime.GOOS == "linux" {
		return SecretBackendLibsecret
	}
	if m.config.UseEnv {
		return SecretBackendEnv
	}
	return "none"
}

// GetSetupInstructions returns platform-specific setup help for a missing secret.
func (m *DefaultSecretsManager) GetSetupInstructions(name string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s not found.\n\n", name))
	sb.WriteString("To configure this secret, choose one of these options:\n\n")

	optionNum := 1
	optionNum = m.appendKeychainInstructions(&sb, name, optionNum)
	optionNum = m.append1PasswordInstructions(&sb, name, optionNum)
	optionNum = m.appendLibsecretInstructions(&sb, name, optionNum)
	m.appendEnvInstructions(&sb, name, optionNum)
	m.appendSecretFormatHint(&sb, name)

	return sb.String()
}

// IsConfigured returns true if at least one backend is enabled.
func (m *DefaultSecretsManager) IsConfigured() bool {
	return m.config.UseEnv ||
		m.config.UseKeychain ||
		m.config.Use1Password ||
		m.config.UseLibsecret
}

// DetectAvailableBackends returns the cached list of backends detected at
// initialization.
func (m *DefaultSecretsManager) DetectAvailableBackends() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]string, len(m.availableBackends))
	copy(result, m.availableBackends)
	return result
}

// -----------------------------------------------------------------------------
// Private Helper Methods
// -----------------------------------------------------------------------------

// detectBackendsInternal checks which backends are available on this system.
func (m *DefaultSecretsManager) detectBackendsInternal() []string {
	var available []string

	if m.is1PasswordAvailable() {
		available = append(available, SecretBackend1Password)
	}
	if m.isKeychainAvailable() {
		available = append(available, SecretBackendKeychain)
	}
	if m.isLibsecretAvailable() {
		available = append(available, SecretBackendLibsecret)
	}
	available = append(available, SecretBackendEnv)

	return available
}

// is1PasswordAvailable checks if 1Password CLI is installed.
func (m *DefaultSecretsManager) is1PasswordAvailable() bool {
	_, err := exec.LookPath("op")
	return err == nil
}

// isKeychainAvailable checks if macOS Keychain is available.
func (m *DefaultSecretsManager) isKeychainAvailable() bool {
	return runtime.GOOS == "darwin"
}

// isLibsecretAvailable checks if libsecret (secret-tool) is installed.
func (m *DefaultSecretsManager) isLibsecretAvailable() bool {
	_, err := exec.LookPath("secret-tool")
	return err == nil
}

// isBackendInAvailableList checks if a backend is in the available list.
func (m *DefaultSecretsManager) isBackendInAvailableList(backend string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.availableBackends {
		if b == backend {
			return true
		}
	}
	return false
}

// tryAllBackends attempts to retrieve a secret from all configured backends.
func (m *DefaultSecretsManager) tryAllBackends(ctx context.Context, name string) (string, *SecretMetadata, error) {
	if m.should1PasswordBeTried() {
		value, meta, err := m.try1Password(ctx, name)
		if err == nil {
			return value, meta, nil
		}
	}

	if m.shouldKeychainBeTried() {
		value, meta, err := m.tryKeychain(ctx, name)
		if err == nil {
			return value, meta, nil
		}
	}

	if m.shouldLibsecretBeTried() {
		value, meta, err := m.tryLibsecret(ctx, name)
		if err == nil {
			return value, meta, nil
		}
	}

	if m.config.UseEnv {
		value, meta, err := m.tryEnv(name)
		if err == nil {
			return value, meta, nil
		}
	}

	return "", nil, ErrSecretNotFound
}

// should1PasswordBeTried checks if 1Password should be attempted.
func (m *DefaultSecretsManager) should1PasswordBeTried() bool {
	return m.config.Use1Password || m.isBackendInAvailableList(SecretBackend1Password)
}

// shouldKeychainBeTried checks if Keychain should be attempted.
func (m *DefaultSecretsManager) shouldKeychainBeTried() bool {
	if runtime.GOOS != "darwin" {
		return false
	}
	return m.config.UseKeychain || m.isBackendInAvailableList(SecretBackendKeychain)
}

// shouldLibsecretBeTried checks if libsecret should be attempted.
func (m *DefaultSecretsManager) shouldLibsecretBeTried() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	return m.config.UseLibsecret || m.isBackendInAvailableList(SecretBackendLibsecret)
}

// try1Password attempts to retrieve a secret from 1Password.
func (m *DefaultSecretsManager) try1Password(ctx context.Context, name string) (string, *SecretMetadata, error) {
	vault := m.config.GetOnePasswordVault()
	reference := fmt.Sprintf("op://%s/%s/password", vault, name)

	cmd := m.execCommandFunc(ctx, "op", "read", reference)
	output, err := cmd.Output()
	if err != nil {
		return "", nil, ErrSecretNotFound
	}

	value := strings.TrimSpace(string(output))
	if value == "" {
		return "", nil, ErrSecretNotFound
	}

	meta := &SecretMetadata{Backend: SecretBackend1Password}
	return value, meta, nil
}

// tryKeychain attempts to retrieve a secret from macOS Keychain.
func (m *DefaultSecretsManager) tryKeychain(ctx context.Context, name string) (string, *SecretMetadata, error) {
	cmd := m.execCommandFunc(ctx, "security", "find-generic-password",
		"-a", "beacon",
		"-s", name,
		"-w",
	)
	output, err := cmd.Output()
	if err != nil {
		return "", nil, ErrSecretNotFound
	}

	value := strings.TrimSpace(string(output))
	if value == "" {
		return "", nil, ErrSecretNotFound
	}

	meta := &SecretMetadata{Backend: SecretBackendKeychain}
	return value, meta, nil
}

// tryLibsecret attempts to retrieve a secret from Linux Secret Service.
func (m *DefaultSecretsManager) tryLibsecret(ctx context.Context, name string) (string, *SecretMetadata, error) {
	cmd := m.execCommandFunc(ctx, "secret-tool", "lookup",
		"service", "beacon",
		"key", name,
	)
	output, err := cmd.Output()
	if err != nil {
		return "", nil, ErrSecretNotFound
	}

	value := strings.TrimSpace(string(output))
	if value == "" {
		return "", nil, ErrSecretNotFound
	}

	meta := &SecretMetadata{Backend: SecretBackendLibsecret}
	return value, meta, nil
}

// tryEnv attempts to retrieve a secret from environment variables.
func (m *DefaultSecretsManager) tryEnv(name string) (string, *SecretMetadata, error) {
	value := m.envFunc(name)
	if value == "" {
		return "", nil, ErrSecretNotFound
	}

	meta := &SecretMetadata{Backend: SecretBackendEnv}
	return value, meta, nil
}

// recordAccess records a secret access event to the audit trail.
// Only the name and backend are recorded, never the value.
func (m *DefaultSecretsManager) recordAccess(name string, found bool, backend string) {
	if m.metrics == nil {
		return
	}
	severity := diagnostics.SeverityInfo
	if !found {
		severity = diagnostics.SeverityWarning
	}
	label := fmt.Sprintf("secret_access:%s:%s", name, backend)
	m.metrics.RecordCollection(severity, label, 0, 0)
}

// applyValidationRules applies format validation rules to a secret value.
func (m *DefaultSecretsManager) applyValidationRules(result *SecretValidation, name, value string) {
	trimmed := strings.TrimSpace(value)
	if trimmed != value {
		result.Warnings = append(result.Warnings, "secret has leading or trailing whitespace")
	}

	switch name {
	case SecretGrafanaAPIToken:
		m.validateGrafanaToken(result, value)
	case SecretAlertmanagerWebhookURL:
		m.validateWebhookURL(result, value)
	default:
		m.validateGenericSecret(result, value)
	}
}

// validateGrafanaToken validates Grafana service account token format.
func (m *DefaultSecretsManager) validateGrafanaToken(result *SecretValidation, value string) {
	if !strings.HasPrefix(value, "glsa_") {
		result.Valid = false
		result.Reason = "Grafana service account token must start with 'glsa_'"
		return
	}
	if len(value) < 20 {
		result.Valid = false
		result.Reason = "Grafana service account token appears too short"
		return
	}
	result.Valid = true
}

// validateWebhookURL validates Alertmanager webhook URL format.
func (m *DefaultSecretsManager) validateWebhookURL(result *SecretValidation, value string) {
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		result.Valid = false
		result.Reason = "Alertmanager webhook URL must start with http:// or https://"
		return
	}
	result.Valid = true
}

// validateGenericSecret validates a generic secret (non-empty).
func (m *DefaultSecretsManager) validateGenericSecret(result *SecretValidation, value string) {
	if value == "" {
		result.Valid = false
		result.Reason = "secret is empty"
		return
	}
	result.Valid = true
}

// appendKeychainInstructions adds macOS Keychain instructions to the builder.
func (m *DefaultSecretsManager) appendKeychainInstructions(sb *strings.Builder, name string, optionNum int) int {
	if runtime.GOOS != "darwin" {
		return optionNum
	}
	sb.WriteString(fmt.Sprintf("Option %d: macOS Keychain (Recommended - built-in, secure)\n", optionNum))
	sb.WriteString(fmt.Sprintf("  security add-generic-password -a \"beacon\" -s \"%s\" -w \"your-secret-value\"\n\n", name))
	return optionNum + 1
}

// append1PasswordInstructions adds 1Password CLI instructions to the builder.
func (m *DefaultSecretsManager) append1PasswordInstructions(sb *strings.Builder, name string, optionNum int) int {
	if !m.isBackendInAvailableList(SecretBackend1Password) {
		return optionNum
	}
	vault := m.config.GetOnePasswordVault()
	sb.WriteString(fmt.Sprintf("Option %d: 1Password CLI", optionNum))
	if runtime.GOOS != "darwin" {
		sb.WriteString(" (Recommended)")
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  op item create --category=password --title=\"%s\" --vault=\"%s\" password=\"your-secret-value\"\n\n", name, vault))
	return optionNum + 1
}

// appendLibsecretInstructions adds libsecret instructions to the builder.
func (m *DefaultSecretsManager) appendLibsecretInstructions(sb *strings.Builder, name string, optionNum int) int {
	if runtime.GOOS != "linux" {
		return optionNum
	}
	if !m.isBackendInAvailableList(SecretBackendLibsecret) {
		return optionNum
	}
	sb.WriteString(fmt.Sprintf("Option %d: GNOME Keyring / Secret Service\n", optionNum))
	sb.WriteString(fmt.Sprintf("  secret-tool store --label=\"Beacon %s\" service beacon key %s\n", name, name))
	sb.WriteString("  (Then enter the secret when prompted)\n\n")
	return optionNum + 1
}

// appendEnvInstructions adds environment variable instructions to the builder.
func (m *DefaultSecretsManager) appendEnvInstructions(sb *strings.Builder, name string, optionNum int) {
	sb.WriteString(fmt.Sprintf("Option %d: Environment Variable (for CI/Docker)\n", optionNum))
	sb.WriteString(fmt.Sprintf("  export %s=\"your-secret-value\"\n", name))
}

// appendSecretFormatHint adds format hints for known secrets.
func (m *DefaultSecretsManager) appendSecretFormatHint(sb *strings.Builder, name string) {
	switch name {
	case SecretGrafanaAPIToken:
		sb.WriteString("\nNote: Grafana service account tokens start with 'glsa_'\n")
	case SecretAlertmanagerWebhookURL:
		sb.WriteString("\nNote: Webhook URLs must include the http:// or https:// scheme\n")
	}
}

// -----------------------------------------------------------------------------
// Compile-time Interface Check
// -----------------------------------------------------------------------------

var _ SecretsManager = (*DefaultSecretsManager)(nil)
