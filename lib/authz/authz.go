// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

// Package authz decides whether a caller may perform a boot
// environment action. Callers are identified by their Unix credentials
// (uid/gid/pid from SO_PEERCRED), actions are hierarchical strings
// like "bootenv/create", and targets name the boot environment the
// action operates on. Policy is default-deny: an action is permitted
// only when a rule explicitly allows it, with root (uid 0) always
// permitted.
package authz

import "fmt"

// Caller identifies the process on the other end of a service
// connection, as reported by the kernel via SO_PEERCRED.
type Caller struct {
	UID uint32
	GID uint32
	PID int32
}

// String returns a compact form for log lines, e.g. "uid=1000 pid=4212".
func (c Caller) String() string {
	return fmt.Sprintf("uid=%d pid=%d", c.UID, c.PID)
}

// Decision is the outcome of an authorization check.
type Decision int

const (
	// Deny means the action is not permitted.
	Deny Decision = iota

	// Allow means the action is permitted.
	Allow
)

// String returns "allow" or "deny".
func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Authorizer decides whether a caller may perform an action. The
// target is the boot environment name the action operates on, or ""
// for actions without a specific target (list, clear-boot-once).
type Authorizer interface {
	Authorize(caller Caller, action, target string) Decision
}

// AllowAll permits every action. Used by the emulator-backed service
// in development and by tests.
type AllowAll struct{}

// Authorize always returns Allow.
func (AllowAll) Authorize(Caller, string, string) Decision {
	return Allow
}

// DenyAll denies every action, including from root. Used in tests.
type DenyAll struct{}

// Authorize always returns Deny.
func (DenyAll) Authorize(Caller, string, string) Decision {
	return Deny
}
