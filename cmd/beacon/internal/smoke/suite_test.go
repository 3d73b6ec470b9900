// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package smoke

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// stubChecker returns canned results for suite tests.
type stubChecker struct {
	target  string
	results []CheckResult
	delay   time.Duration
}

func (s *stubChecker) Target() string { return s.target }

func (s *stubChecker) Run(ctx context.Context) []CheckResult {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
		}
	}
	return s.results
}

func TestSuiteRun_AggregatesCounts(t *testing.T) {
	t.Parallel()

	suite := NewSuite(
		&stubChecker{target: "a", results: []CheckResult{
			pass("a", "one", time.Millisecond),
			fail("a", "two", time.Millisecond, "boom"),
		}},
		&stubChecker{target: "b", results: []CheckResult{
			pass("b", "three", time.Millisecond),
			skip("b", "four", "no token"),
		}},
	)

	summary := suite.Run(context.Background())

	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Len(t, summary.Results, 4)
	assert.False(t, summary.AllGreen())
}

func TestSuiteRun_StableOrdering(t *testing.T) {
	t.Parallel()

	// The slower checker is registered first; its results must still
	// come first.
	suite := NewSuite(
		&stubChecker{target: "slow", delay: 30 * time.Millisecond, results: []CheckResult{
			pass("slow", "one", time.Millisecond),
		}},
		&stubChecker{target: "fast", results: []CheckResult{
			pass("fast", "two", time.Millisecond),
		}},
	)

	summary := suite.Run(context.Background())

	assert.Equal(t, "slow", summary.Results[0].Target)
	assert.Equal(t, "fast", summary.Results[1].Target)
}

func TestSuiteRun_AllGreenWithSkips(t *testing.T) {
	t.Parallel()

	suite := NewSuite(&stubChecker{target: "a", results: []CheckResult{
		pass("a", "one", time.Millisecond),
		skip("a", "two", "not configured"),
	}})

	summary := suite.Run(context.Background())

	assert.True(t, summary.AllGreen())
	assert.Equal(t, 0, summary.Failed)
}

func TestSuiteRun_Empty(t *testing.T) {
	t.Parallel()

	summary := NewSuite().Run(context.Background())

	assert.True(t, summary.AllGreen())
	assert.Empty(t, summary.Results)
}

func TestSuiteAdd(t *testing.T) {
	t.Parallel()

	suite := NewSuite()
	suite.Add(&stubChecker{target: "a", results: []CheckResult{
		pass("a", "one", time.Millisecond),
	}})

	summary := suite.Run(context.Background())
	assert.Equal(t, 1, summary.Passed)
}
