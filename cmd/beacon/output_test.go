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
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

// TestCheckResultOutputJSON tests that CheckResultOutput serializes correctly.
func TestCheckResultOutputJSON(t *testing.T) {
	result := CheckResultOutput{
		Healthy: false,
		Services: []ServiceReport{
			{
				Name:      "prometheus",
				State:     "healthy",
				Critical:  true,
				LatencyMs: 12,
				HTTPCode:  200,
			},
			{
				Name:     "tempo",
				State:    "unreachable",
				Critical: false,
				Message:  "connection refused",
			},
		},
		FailedCritical: []string{},
		DurationMs:     340,
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Failed to marshal CheckResultOutput: %v", err)
	}

	var decoded CheckResultOutput
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal CheckResultOutput: %v", err)
	}

	if decoded.Healthy != result.Healthy {
		t.Errorf("Healthy = %v, want %v", decoded.Healthy, result.Healthy)
	}
	if len(decoded.Services) != len(result.Services) {
		t.Errorf("Services len = %d, want %d", len(decoded.Services), len(result.Services))
	}
	if decoded.Services[0].Name != result.Services[0].Name {
		t.Errorf("Services[0].Name = %s, want %s", decoded.Services[0].Name, result.Services[0].Name)
	}
	if decoded.Services[1].Message != result.Services[1].Message {
		t.Errorf("Services[1].Message = %s, want %s", decoded.Services[1].Message, result.Services[1].Message)
	}
}

// TestSmokeResultOutputJSON tests that SmokeResultOutput serializes correctly.
func TestSmokeResultOutputJSON(t *testing.T) {
	result := SmokeResultOutput{
		Passed:  3,
		Failed:  1,
		Skipped: 0,
		Checks: []SmokeCheckItem{
			{
				Target:  "prometheus",
				Name:    "instant query returns samples",
				Status:  "pass",
				Elapsed: "42ms",
			},
			{
				Target: "loki",
				Name:   "push and query round trip",
				Status: "fail",
				Detail: "query returned no streams",
			},
		},
		AllGreen: false,
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Failed to marshal SmokeResultOutput: %v", err)
	}

	var decoded SmokeResultOutput
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal SmokeResultOutput: %v", err)
	}

	if decoded.Passed != result.Passed {
		t.Errorf("Passed = %d, want %d", decoded.Passed, result.Passed)
	}
	if decoded.AllGreen != result.AllGreen {
		t.Errorf("AllGreen = %v, want %v", decoded.AllGreen, result.AllGreen)
	}
	if len(decoded.Checks) != len(result.Checks) {
		t.Errorf("Checks len = %d, want %d", len(decoded.Checks), len(result.Checks))
	}
	if decoded.Checks[1].Detail != result.Checks[1].Detail {
		t.Errorf("Checks[1].Detail = %s, want %s", decoded.Checks[1].Detail, result.Checks[1].Detail)
	}
}

// TestLintResultOutputJSON tests that LintResultOutput serializes correctly.
func TestLintResultOutputJSON(t *testing.T) {
	result := LintResultOutput{
		Files:    2,
		Errors:   1,
		Warnings: 1,
		Findings: []LintFinding{
			{
				File:     "alert-rules.yaml",
				Severity: "error",
				Rule:     "HighErrorRate",
				Message:  "invalid PromQL expression",
				Line:     14,
			},
			{
				File:     "dashboard.json",
				Severity: "warning",
				Message:  "panel has no datasource",
			},
		},
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Failed to marshal LintResultOutput: %v", err)
	}

	var decoded LintResultOutput
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal LintResultOutput: %v", err)
	}

	if decoded.Errors != result.Errors {
		t.Errorf("Errors = %d, want %d", decoded.Errors, result.Errors)
	}
	if len(decoded.Findings) != len(result.Findings) {
		t.Errorf("Findings len = %d, want %d", len(decoded.Findings), len(result.Findings))
	}
	if decoded.Findings[0].Rule != result.Findings[0].Rule {
		t.Errorf("Findings[0].Rule = %s, want %s", decoded.Findings[0].Rule, result.Findings[0].Rule)
	}
	if decoded.Findings[0].Line != result.Findings[0].Line {
		t.Errorf("Findings[0].Line = %d, want %d", decoded.Findings[0].Line, result.Findings[0].Line)
	}
}

// TestCommandResultJSON tests that CommandResult serializes correctly.
func TestCommandResultJSON(t *testing.T) {
	result := CommandResult{
		APIVersion: "1.0",
		Command:    "test",
		Timestamp:  time.Now(),
		DurationMs: 100,
		Success:    true,
		Data:       map[string]string{"key": "value"},
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Failed to marshal CommandResult: %v", err)
	}

	var decoded CommandResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal CommandResult: %v", err)
	}

	if decoded.APIVersion != result.APIVersion {
		t.Errorf("APIVersion = %s, want %s", decoded.APIVersion, result.APIVersion)
	}
	if decoded.Success != result.Success {
		t.Errorf("Success = %v, want %v", decoded.Success, result.Success)
	}
}

// TestOutputResult_Success tests OutputResult with no error and no findings.
func TestOutputResult_Success(t *testing.T) {
	cfg := OutputConfig{JSON: false, Quiet: true}
	start := time.Now()
	data := map[string]string{"test": "value"}

	exitCode := OutputResult(cfg, "test", start, data, false, nil)

	if exitCode != CLIExitSuccess {
		t.Errorf("Exit code = %d, want %d", exitCode, CLIExitSuccess)
	}
}

// TestOutputResult_Findings tests OutputResult with findings.
func TestOutputResult_Findings(t *testing.T) {
	cfg := OutputConfig{JSON: false, Quiet: true}
	start := time.Now()
	data := map[string]string{"test": "value"}

	exitCode := OutputResult(cfg, "test", start, data, true, nil)

	if exitCode != CLIExitFindings {
		t.Errorf("Exit code = %d, want %d", exitCode, CLIExitFindings)
	}
}

// TestOutputResult_Error tests OutputResult with error.
func TestOutputResult_Error(t *testing.T) {
	cfg := OutputConfig{JSON: false, Quiet: true}
	start := time.Now()

	exitCode := OutputResult(cfg, "test", start, nil, false, bytes.ErrTooLarge)

	if exitCode != CLIExitError {
		t.Errorf("Exit code = %d, want %d", exitCode, CLIExitError)
	}
}

// TestExitCodeConstants tests exit code constant values.
func TestExitCodeConstants(t *testing.T) {
	if CLIExitSuccess != 0 {
		t.Errorf("CLIExitSuccess = %d, want 0", CLIExitSuccess)
	}
	if CLIExitFindings != 1 {
		t.Errorf("CLIExitFindings = %d, want 1", CLIExitFindings)
	}
	if CLIExitError != 2 {
		t.Errorf("CLIExitError = %d, want 2", CLIExitError)
	}
}
