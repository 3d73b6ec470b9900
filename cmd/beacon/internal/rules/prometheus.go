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
	"fmt"
	"regexp"
	"strings"

	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"
)

var (
	alertNameRE  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	metricNameRE = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)
)

// ruleFile mirrors the Prometheus rule file schema. yaml.Node fields keep
// source positions for findings.
type ruleFile struct {
	Groups []ruleGroup `yaml:"groups"`
}

type ruleGroup struct {
	Name     string     `yaml:"name"`
	Interval string     `yaml:"interval"`
	Rules    []ruleNode `yaml:"rules"`
	node     yaml.Node
}

func (g *ruleGroup) UnmarshalYAML(value *yaml.Node) error {
	type plain ruleGroup
	if err := value.Decode((*plain)(g)); err != nil {
		return err
	}
	g.node = *value
	return nil
}

type ruleNode struct {
	Record        string            `yaml:"record"`
	Alert         string            `yaml:"alert"`
	Expr          string            `yaml:"expr"`
	For           string            `yaml:"for"`
	KeepFiringFor string            `yaml:"keep_firing_for"`
	Labels        map[string]string `yaml:"labels"`
	Annotations   map[string]string `yaml:"annotations"`
	node          yaml.Node
}

func (r *ruleNode) UnmarshalYAML(value *yaml.Node) error {
	type plain ruleNode
	if err := value.Decode((*plain)(r)); err != nil {
		return err
	}
	r.node = *value
	return nil
}

// name returns whichever of alert or record is set, for finding
// attribution.
func (r *ruleNode) name() string {
	if r.Alert != "" {
		return r.Alert
	}
	return r.Record
}

// LintPrometheusRules lints one rule file.
//
// # Description
//
// Validates the structural schema (groups, unique names, one of
// alert/record per rule), duration fields in Prometheus duration syntax,
// identifier syntax for alert and recording rule names, and balanced
// delimiters in expressions. It does not evaluate PromQL semantics.
//
// # Inputs
//
//   - data: Raw YAML bytes of the rule file.
//
// # Outputs
//
//   - *Result: Findings, including a single error finding when the YAML
//     itself does not parse.
func LintPrometheusRules(data []byte) *Result {
	result := &Result{}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		result.addError("", yamlErrorLine(err), "invalid YAML: %v", err)
		return result
	}
	if len(file.Groups) == 0 {
		result.addError("", 0, "rule file defines no groups")
		return result
	}

	seenGroups := make(map[string]bool)
	for _, group := range file.Groups {
		lintGroup(result, &group, seenGroups)
	}
	return result
}

func lintGroup(result *Result, group *ruleGroup, seenGroups map[string]bool) {
	line := group.node.Line

	if group.Name == "" {
		result.addError("", line, "group has no name")
	} else if seenGroups[group.Name] {
		result.addError("", line, "duplicate group name %q", group.Name)
	}
	seenGroups[group.Name] = true

	if group.Interval != "" {
		if _, err := model.ParseDuration(group.Interval); err != nil {
			result.addError("", line, "group %q has invalid interval %q", group.Name, group.Interval)
		}
	}
	if len(group.Rules) == 0 {
		result.addWarning("", line, "group %q has no rules", group.Name)
	}

	for _, rule := range group.Rules {
		lintRule(result, &rule)
	}
}

func lintRule(result *Result, rule *ruleNode) {
	line := rule.node.Line
	name := rule.name()

	switch {
	case rule.Alert != "" && rule.Record != "":
		result.addError(name, line, "rule sets both alert and record")
		return
	case rule.Alert == "" && rule.Record == "":
		result.addError("", line, "rule sets neither alert nor record")
		return
	}

	if rule.Alert != "" && !alertNameRE.MatchString(rule.Alert) {
		result.addError(name, line, "invalid alert name %q", rule.Alert)
	}
	if rule.Record != "" && !metricNameRE.MatchString(rule.Record) {
		result.addError(name, line, "invalid recorded metric name %q", rule.Record)
	}

	if strings.TrimSpace(rule.Expr) == "" {
		result.addError(name, line, "rule has no expression")
	} else if err := checkBalancedDelimiters(rule.Expr); err != nil {
		result.addError(name, line, "expression is malformed: %v", err)
	}

	for _, field := range []struct{ name, value string }{
		{"for", rule.For},
		{"keep_firing_for", rule.KeepFiringFor},
	} {
		if field.value == "" {
			continue
		}
		if _, err := model.ParseDuration(field.value); err != nil {
			result.addError(name, line, "invalid %s duration %q", field.name, field.value)
		}
	}

	// Recording rules take neither for nor annotations.
	if rule.Record != "" {
		if rule.For != "" {
			result.addError(name, line, "recording rule cannot have a for clause")
		}
		if len(rule.Annotations) > 0 {
			result.addError(name, line, "recording rule cannot have annotations")
		}
	}

	if rule.Alert != "" {
		if _, ok := rule.Labels["severity"]; !ok {
			result.addWarning(name, line, "alert has no severity label")
		}
		if len(rule.Annotations) == 0 {
			result.addWarning(name, line, "alert has no annotations")
		}
	}
}

// checkBalancedDelimiters rejects expressions with unbalanced parens,
// braces, or brackets outside string literals. A full PromQL parse is out
// of scope; this catches the common copy-paste truncations.
func checkBalancedDelimiters(expr string) error {
	var stack []rune
	pairs := map[rune]rune{')': '(', '}': '{', ']': '['}
	var inString rune

	for _, ch := range expr {
		if inString != 0 {
			if ch == inString {
				inString = 0
			}
			continue
		}
		switch ch {
		case '"', '\'', '`':
			inString = ch
		case '(', '{', '[':
			stack = append(stack, ch)
		case ')', '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[ch] {
				return fmt.Errorf("unbalanced %q", string(ch))
			}
			stack = stack[:len(stack)-1]
		}
	}
	if inString != 0 {
		return fmt.Errorf("unterminated string literal")
	}
	if len(stack) > 0 {
		return fmt.Errorf("unclosed %q", string(stack[len(stack)-1]))
	}
	return nil
}

// yamlErrorLine extracts the line number from a yaml error message when
// one is present.
func yamlErrorLine(err error) int {
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		return line
	}
	return 0
}
