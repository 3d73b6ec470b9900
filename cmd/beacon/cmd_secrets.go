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
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/AleutianAI/beacon/cmd/beacon/config"
	"github.com/AleutianAI/beacon/cmd/beacon/internal/diagnostics"
	"github.com/AleutianAI/beacon/pkg/ux"
	"github.com/spf13/cobra"
)

// Secret VALUES never reach stdout, stderr, or logs from any of these
// handlers. Only names, backend types, and validation verdicts do.

func newSecretsManager() *DefaultSecretsManager {
	return NewDefaultSecretsManager(config.Global.Secrets, diagnostics.NewNoOpDiagnosticsMetrics())
}

// secretListOutput is one row of `beacon secrets list`.
type secretListOutput struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
}

// runSecretsList shows which known secrets are resolvable and from
// which backend, without revealing any values.
func runSecretsList(cmd *cobra.Command, args []string) {
	start := time.Now()

	manager := newSecretsManager()
	present, err := manager.ListSecretNames(cmd.Context())
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "secrets list", start, nil, false, err))
	}

	rows := make([]secretListOutput, 0, len(KnownSecrets))
	missing := 0
	for _, name := range KnownSecrets {
		found := slices.Contains(present, name)
		if !found {
			missing++
		}
		rows = append(rows, secretListOutput{Name: name, Present: found})
	}

	if !quietOutput && !jsonOutput && !compactOutput {
		ux.Title("Beacon Secrets")
		ux.Muted(fmt.Sprintf("Backend: %s", manager.GetBackendType()))
		for _, row := range rows {
			if row.Present {
				ux.ServiceStatus(row.Name, ux.IconSuccess, "present")
			} else {
				ux.ServiceStatus(row.Name, ux.IconWarning, "not set")
			}
		}
		if missing > 0 {
			ux.Muted("Run `beacon secrets setup NAME` for configuration steps.")
		}
	}
	os.Exit(OutputResult(outputConfig(), "secrets list", start, rows, missing > 0, nil))
}

// secretValidationOutput mirrors SecretValidation with JSON tags.
type secretValidationOutput struct {
	Name     string   `json:"name"`
	Exists   bool     `json:"exists"`
	Valid    bool     `json:"valid"`
	Reason   string   `json:"reason,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// runSecretsValidate format-checks every known secret, or just the
// ones named as arguments.
func runSecretsValidate(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx := cmd.Context()

	names := KnownSecrets
	if len(args) > 0 {
		for _, name := range args {
			if !slices.Contains(KnownSecrets, name) {
				os.Exit(OutputResult(outputConfig(), "secrets validate", start, nil, false,
					fmt.Errorf("unknown secret %q; known secrets: %s", name, strings.Join(KnownSecrets, ", "))))
			}
		}
		names = args
	}

	manager := newSecretsManager()
	results := make([]secretValidationOutput, 0, len(names))
	failing := 0
	for _, name := range names {
		validation, err := manager.ValidateSecret(ctx, name)
		if err != nil {
			os.Exit(OutputResult(outputConfig(), "secrets validate", start, nil, false,
				fmt.Errorf("validating %s: %w", name, err)))
		}
		if !validation.Valid {
			failing++
		}
		results = append(results, secretValidationOutput{
			Name:     validation.Name,
			Exists:   validation.Exists,
			Valid:    validation.Valid,
			Reason:   validation.Reason,
			Warnings: validation.Warnings,
		})
	}

	if !quietOutput && !jsonOutput && !compactOutput {
		renderSecretValidations(results)
	}
	os.Exit(OutputResult(outputConfig(), "secrets validate", start, results, failing > 0, nil))
}

func renderSecretValidations(results []secretValidationOutput) {
	ux.Title("Beacon Secrets Validation")

	valid := 0
	for _, r := range results {
		switch {
		case r.Valid && len(r.Warnings) == 0:
			valid++
			ux.ServiceStatus(r.Name, ux.IconSuccess, "valid")
		case r.Valid:
			valid++
			ux.ServiceStatus(r.Name, ux.IconWarning, strings.Join(r.Warnings, "; "))
		case !r.Exists:
			ux.ServiceStatus(r.Name, ux.IconError, "not set")
		default:
			ux.ServiceStatus(r.Name, ux.IconError, r.Reason)
		}
	}

	if valid == len(results) {
		ux.Success("All secrets are valid.")
	} else {
		ux.Error(fmt.Sprintf("%d of %d secret(s) need attention.", len(results)-valid, len(results)))
		ux.Muted("Run `beacon secrets setup NAME` for configuration steps.")
	}
}

// runSecretsSetup prints backend-specific setup instructions for one
// secret.
func runSecretsSetup(cmd *cobra.Command, args []string) {
	start := time.Now()
	name := args[0]

	if !slices.Contains(KnownSecrets, name) {
		os.Exit(OutputResult(outputConfig(), "secrets setup", start, nil, false,
			fmt.Errorf("unknown secret %q; known secrets: %s", name, strings.Join(KnownSecrets, ", "))))
	}

	manager := newSecretsManager()
	instructions := manager.GetSetupInstructions(name)

	if jsonOutput || compactOutput {
		out := map[string]string{
			"name":         name,
			"backend":      manager.GetBackendType(),
			"instructions": instructions,
		}
		os.Exit(OutputResult(outputConfig(), "secrets setup", start, out, false, nil))
	}

	ux.Title(fmt.Sprintf("Setting up %s", name))
	fmt.Println(instructions)
	os.Exit(CLIExitSuccess)
}
