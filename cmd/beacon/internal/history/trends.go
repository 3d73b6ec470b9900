// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"fmt"
	"time"
)

// LatencyDirection summarizes where a service's latency is heading.
type LatencyDirection string

const (
	LatencyImproving LatencyDirection = "improving"
	LatencyStable    LatencyDirection = "stable"
	LatencyDegrading LatencyDirection = "degrading"
)

// latencyTrendThreshold is the relative change between window halves
// below which latency counts as stable.
const latencyTrendThreshold = 0.10

// ServiceTrend is the computed trend for one service over a window.
type ServiceTrend struct {
	// Service is the service name.
	Service string `json:"service"`

	// Samples is how many check runs included this service.
	Samples int `json:"samples"`

	// UptimeRatio is healthy samples over total samples, 0..1.
	UptimeRatio float64 `json:"uptime_ratio"`

	// MeanLatencyMs is the mean probe latency across healthy samples.
	MeanLatencyMs float64 `json:"mean_latency_ms"`

	// Latency compares the first and second half of the window.
	Latency LatencyDirection `json:"latency"`

	// Flaps counts healthy/unhealthy transitions. A service that fails
	// once and stays down flaps once; a service that oscillates racks
	// them up.
	Flaps int `json:"flaps"`
}

// Trends computes per-service trends from the records in the window
// ending now.
//
// # Inputs
//
//   - window: How far back to look.
//
// # Outputs
//
//   - []ServiceTrend: One entry per service seen in the window, ordered
//     by first appearance.
func (s *Store) Trends(window time.Duration) ([]ServiceTrend, error) {
	records, err := s.Since(time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("loading history window: %w", err)
	}
	return computeTrends(records), nil
}

// serviceSeries collects one service's samples in chronological order.
type serviceSeries struct {
	name      string
	healthy   []bool
	latencies []int64
}

// computeTrends derives trends from chronologically ordered records.
func computeTrends(records []CheckRecord) []ServiceTrend {
	var order []string
	series := make(map[string]*serviceSeries)

	for _, record := range records {
		for _, sample := range record.Services {
			ss, ok := series[sample.Name]
			if !ok {
				ss = &serviceSeries{name: sample.Name}
				series[sample.Name] = ss
				order = append(order, sample.Name)
			}
			ss.healthy = append(ss.healthy, sample.Healthy)
			if sample.Healthy {
				ss.latencies = append(ss.latencies, sample.LatencyMs)
			}
		}
	}

	trends := make([]ServiceTrend, 0, len(order))
	for _, name := range order {
		trends = append(trends, series[name].trend())
	}
	return trends
}

func (ss *serviceSeries) trend() ServiceTrend {
	trend := ServiceTrend{
		Service: ss.name,
		Samples: len(ss.healthy),
		Latency: LatencyStable,
	}
	if trend.Samples == 0 {
		return trend
	}

	up := 0
	for _, healthy := range ss.healthy {
		if healthy {
			up++
		}
	}
	trend.UptimeRatio = float64(up) / float64(trend.Samples)

	for i := 1; i < len(ss.healthy); i++ {
		if ss.healthy[i] != ss.healthy[i-1] {
			trend.Flaps++
		}
	}

	if len(ss.latencies) > 0 {
		trend.MeanLatencyMs = mean(ss.latencies)
	}
	if len(ss.latencies) >= 4 {
		half := len(ss.latencies) / 2
		first := mean(ss.latencies[:half])
		second := mean(ss.latencies[half:])
		if first > 0 {
			change := (second - first) / first
			switch {
			case change > latencyTrendThreshold:
				trend.Latency = LatencyDegrading
			case change < -latencyTrendThreshold:
				trend.Latency = LatencyImproving
			}
		}
	}
	return trend
}

func mean(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum int64
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}
