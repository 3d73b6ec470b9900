// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package smoke runs functional assertions against the observability stack.
//
// A health check only proves a service answers HTTP. The smoke suite goes
// one level deeper: it queries Prometheus for samples, pushes a log line
// through Loki and reads it back, asks Tempo to echo, and verifies Grafana
// can reach its datasources. Each target contributes a Checker; the Suite
// fans them out and aggregates results.
package smoke

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ----------------------------------------------------------------------------
// Statuses
// ----------------------------------------------------------------------------

// Status is the outcome of a single smoke assertion.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// ----------------------------------------------------------------------------
// Results
// ----------------------------------------------------------------------------

// CheckResult is the outcome of one assertion against one target.
type CheckResult struct {
	// Target is the service the assertion ran against, e.g. "prometheus".
	Target string

	// Name describes the assertion, e.g. "instant query returns samples".
	Name string

	// Status is pass, fail, or skip.
	Status Status

	// Detail carries the failure reason or skip explanation. Empty on pass.
	Detail string

	// Elapsed is how long the assertion took.
	Elapsed time.Duration
}

// pass builds a passing result.
func pass(target, name string, elapsed time.Duration) CheckResult {
	return CheckResult{Target: target, Name: name, Status: StatusPass, Elapsed: elapsed}
}

// fail builds a failing result with a formatted detail message.
func fail(target, name string, elapsed time.Duration, format string, args ...any) CheckResult {
	return CheckResult{
		Target:  target,
		Name:    name,
		Status:  StatusFail,
		Detail:  fmt.Sprintf(format, args...),
		Elapsed: elapsed,
	}
}

// skip builds a skipped result with an explanation.
func skip(target, name, reason string) CheckResult {
	return CheckResult{Target: target, Name: name, Status: StatusSkip, Detail: reason}
}

// Summary aggregates the results of a full suite run.
type Summary struct {
	Results []CheckResult
	Passed  int
	Failed  int
	Skipped int
}

// AllGreen reports whether every assertion passed or was skipped.
func (s *Summary) AllGreen() bool {
	return s.Failed == 0
}

// ----------------------------------------------------------------------------
// Checker interface
// ----------------------------------------------------------------------------

// Checker runs the smoke assertions for one stack target.
//
// # Description
//
// Implementations own their transport and assertion set. Run must respect
// ctx cancellation and must never panic on an unreachable target; an
// unreachable target is a failing result, not an error.
//
// # Assumptions
//
//   - Run may be called concurrently with other Checkers but not with
//     itself.
type Checker interface {
	// Target returns the service name this checker covers.
	Target() string

	// Run executes the assertions and returns one result per assertion.
	Run(ctx context.Context) []CheckResult
}

// ----------------------------------------------------------------------------
// Suite
// ----------------------------------------------------------------------------

// Suite runs a set of Checkers concurrently and aggregates their results.
type Suite struct {
	checkers []Checker

	// PerTargetTimeout bounds each checker's run. Zero means no extra
	// bound beyond the caller's ctx.
	PerTargetTimeout time.Duration
}

// NewSuite creates a suite over the given checkers.
func NewSuite(checkers ...Checker) *Suite {
	return &Suite{checkers: checkers}
}

// Add appends a checker to the suite.
func (s *Suite) Add(c Checker) {
	s.checkers = append(s.checkers, c)
}

// Run executes all checkers concurrently and returns the aggregate.
//
// Results are ordered by checker registration order, then by assertion
// order within each checker, so output is stable across runs.
func (s *Suite) Run(ctx context.Context) Summary {
	perTarget := make([][]CheckResult, len(s.checkers))

	var wg sync.WaitGroup
	for i, c := range s.checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()
			runCtx := ctx
			if s.PerTargetTimeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(ctx, s.PerTargetTimeout)
				defer cancel()
			}
			perTarget[i] = c.Run(runCtx)
		}(i, c)
	}
	wg.Wait()

	var summary Summary
	for _, results := range perTarget {
		for _, r := range results {
			summary.Results = append(summary.Results, r)
			switch r.Status {
			case StatusPass:
				summary.Passed++
			case StatusFail:
				summary.Failed++
			case StatusSkip:
				summary.Skipped++
			}
		}
	}
	return summary
}
