// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package authz

import (
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule grants a set of actions to a set of uids and/or gids. A rule
// matches when the caller's uid is listed in uids or the caller's gid
// is listed in gids, and the action matches one of the action
// patterns. An empty targets list matches any target; a non-empty
// list restricts the rule to the named boot environments.
type Rule struct {
	// Actions are glob patterns over the "/"-separated action
	// namespace: "bootenv/list", "bootenv/*", "**".
	Actions []string `yaml:"actions"`

	// UIDs are caller uids the rule applies to.
	UIDs []uint32 `yaml:"uids"`

	// GIDs are caller gids the rule applies to.
	GIDs []uint32 `yaml:"gids"`

	// Targets are glob patterns over boot environment names. Empty
	// means any target.
	Targets []string `yaml:"targets"`
}

// Policy is the on-disk authorization policy: an ordered list of
// allow rules. There are no deny rules; anything no rule allows is
// denied.
type Policy struct {
	Rules []Rule `yaml:"rules"`
}

// LoadPolicy reads and validates a YAML policy file.
func LoadPolicy(filename string) (*Policy, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading policy: %w", err)
	}
	var policy Policy
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&policy); err != nil {
		return nil, fmt.Errorf("parsing policy %s: %w", filename, err)
	}
	for i, rule := range policy.Rules {
		if len(rule.Actions) == 0 {
			return nil, fmt.Errorf("policy %s: rule %d has no actions", filename, i)
		}
		if len(rule.UIDs) == 0 && len(rule.GIDs) == 0 {
			return nil, fmt.Errorf("policy %s: rule %d has no uids or gids", filename, i)
		}
	}
	return &policy, nil
}

// PolicyAuthorizer authorizes against a loaded policy. Root (uid 0)
// is always allowed regardless of rules: the service runs as root
// itself, and a root caller could bypass it entirely by manipulating
// the pool directly.
type PolicyAuthorizer struct {
	policy *Policy
}

// NewPolicyAuthorizer wraps a loaded policy.
func NewPolicyAuthorizer(policy *Policy) *PolicyAuthorizer {
	return &PolicyAuthorizer{policy: policy}
}

// Authorize checks the caller against the policy rules in order and
// allows on the first match.
func (a *PolicyAuthorizer) Authorize(caller Caller, action, target string) Decision {
	if caller.UID == 0 {
		return Allow
	}
	for _, rule := range a.policy.Rules {
		if !ruleAppliesTo(rule, caller) {
			continue
		}
		if !matchAny(rule.Actions, action) {
			continue
		}
		if len(rule.Targets) > 0 && !matchAny(rule.Targets, target) {
			continue
		}
		return Allow
	}
	return Deny
}

func ruleAppliesTo(rule Rule, caller Caller) bool {
	for _, uid := range rule.UIDs {
		if uid == caller.UID {
			return true
		}
	}
	for _, gid := range rule.GIDs {
		if gid == caller.GID {
			return true
		}
	}
	return false
}

// MatchAction checks whether a concrete action matches a glob pattern
// over the "/"-separated action namespace:
//
//	"bootenv/list"   matches "bootenv/list" exactly
//	"bootenv/*"      matches "bootenv/create" but not "bootenv/a/b"
//	"**"             matches any action
//
// Returns false for malformed patterns rather than propagating
// errors — a malformed pattern should never grant access.
func MatchAction(pattern, action string) bool {
	if pattern == "**" {
		return true
	}
	matched, err := path.Match(pattern, action)
	return err == nil && matched
}

// matchAny returns true when any pattern matches. An empty pattern
// list matches nothing (default-deny).
func matchAny(patterns []string, s string) bool {
	for _, pattern := range patterns {
		if MatchAction(pattern, s) {
			return true
		}
	}
	return false
}
