// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"
)

// amConfig mirrors the subset of the Alertmanager configuration schema
// the linter inspects.
type amConfig struct {
	Route     *amRoute     `yaml:"route"`
	Receivers []amReceiver `yaml:"receivers"`
	Inhibit   []amInhibit  `yaml:"inhibit_rules"`
}

type amRoute struct {
	Receiver       string    `yaml:"receiver"`
	GroupWait      string    `yaml:"group_wait"`
	GroupInterval  string    `yaml:"group_interval"`
	RepeatInterval string    `yaml:"repeat_interval"`
	Routes         []amRoute `yaml:"routes"`
	Continue       bool      `yaml:"continue"`
	node           yaml.Node
}

func (r *amRoute) UnmarshalYAML(value *yaml.Node) error {
	type plain amRoute
	if err := value.Decode((*plain)(r)); err != nil {
		return err
	}
	r.node = *value
	return nil
}

type amReceiver struct {
	Name string `yaml:"name"`
	node yaml.Node
}

func (r *amReceiver) UnmarshalYAML(value *yaml.Node) error {
	type plain amReceiver
	if err := value.Decode((*plain)(r)); err != nil {
		return err
	}
	r.node = *value
	return nil
}

type amInhibit struct {
	SourceMatchers []string `yaml:"source_matchers"`
	TargetMatchers []string `yaml:"target_matchers"`
	Equal          []string `yaml:"equal"`
	node           yaml.Node
}

func (i *amInhibit) UnmarshalYAML(value *yaml.Node) error {
	type plain amInhibit
	if err := value.Decode((*plain)(i)); err != nil {
		return err
	}
	i.node = *value
	return nil
}

// LintAlertmanagerConfig lints one Alertmanager configuration.
//
// # Description
//
// Validates that a root route exists, every route references a declared
// receiver, receiver names are unique, timing fields parse as Prometheus
// durations, and inhibit rules name both a source and a target.
func LintAlertmanagerConfig(data []byte) *Result {
	result := &Result{}

	var cfg amConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		result.addError("", yamlErrorLine(err), "invalid YAML: %v", err)
		return result
	}

	receivers := make(map[string]bool, len(cfg.Receivers))
	for _, recv := range cfg.Receivers {
		if recv.Name == "" {
			result.addError("", recv.node.Line, "receiver has no name")
			continue
		}
		if receivers[recv.Name] {
			result.addError("", recv.node.Line, "duplicate receiver name %q", recv.Name)
		}
		receivers[recv.Name] = true
	}
	if len(cfg.Receivers) == 0 {
		result.addError("", 0, "configuration declares no receivers")
	}

	if cfg.Route == nil {
		result.addError("", 0, "configuration has no root route")
	} else {
		if cfg.Route.Receiver == "" {
			result.addError("", cfg.Route.node.Line, "root route has no receiver")
		}
		lintRoute(result, cfg.Route, receivers)
	}

	for _, inhibit := range cfg.Inhibit {
		if len(inhibit.SourceMatchers) == 0 {
			result.addError("", inhibit.node.Line, "inhibit rule has no source_matchers")
		}
		if len(inhibit.TargetMatchers) == 0 {
			result.addError("", inhibit.node.Line, "inhibit rule has no target_matchers")
		}
	}

	return result
}

// lintRoute validates one route and recurses into its children.
func lintRoute(result *Result, route *amRoute, receivers map[string]bool) {
	line := route.node.Line

	if route.Receiver != "" && !receivers[route.Receiver] {
		result.addError("", line, "route references undeclared receiver %q", route.Receiver)
	}

	for _, field := range []struct{ name, value string }{
		{"group_wait", route.GroupWait},
		{"group_interval", route.GroupInterval},
		{"repeat_interval", route.RepeatInterval},
	} {
		if field.value == "" {
			continue
		}
		if _, err := model.ParseDuration(field.value); err != nil {
			result.addError("", line, "invalid %s %q", field.name, field.value)
		}
	}

	if route.RepeatInterval != "" && route.GroupInterval != "" {
		repeat, errR := model.ParseDuration(route.RepeatInterval)
		group, errG := model.ParseDuration(route.GroupInterval)
		if errR == nil && errG == nil && repeat < group {
			result.addWarning("", line,
				"repeat_interval %s is shorter than group_interval %s",
				route.RepeatInterval, route.GroupInterval)
		}
	}

	for i := range route.Routes {
		lintRoute(result, &route.Routes[i], receivers)
	}
}
