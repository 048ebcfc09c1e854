// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package bootenv

import (
	"errors"
	"fmt"
)

// Kind classifies a boot environment error. Every failure surfaced by
// a Client implementation carries exactly one Kind, and the protocol
// layer maps Kinds to stable wire identifiers so remote callers can
// branch on them.
type Kind int

const (
	// KindUnknown is the zero value; no Client operation returns it.
	KindUnknown Kind = iota

	// KindInvalidName means the name failed validation.
	KindInvalidName

	// KindNotFound means the named boot environment or snapshot does
	// not exist.
	KindNotFound

	// KindAlreadyExists means a live boot environment or snapshot
	// already has the requested name.
	KindAlreadyExists

	// KindActive means the operation refused to destroy the currently
	// active boot environment without force.
	KindActive

	// KindMounted means the boot environment is mounted and the
	// operation required it not to be.
	KindMounted

	// KindNotMounted means the boot environment is not mounted and the
	// operation required it to be.
	KindNotMounted

	// KindAlreadyMounted means the boot environment is already mounted
	// elsewhere.
	KindAlreadyMounted

	// KindBusy means the operation cannot proceed while the boot
	// environment is in use.
	KindBusy

	// KindUnauthorized means the external policy denied the caller.
	// Never conflated with domain errors.
	KindUnauthorized

	// KindNative wraps an error reported by the underlying ZFS
	// library, passed through verbatim and never retried.
	KindNative

	// KindProtocol means a malformed or out-of-contract remote call.
	KindProtocol
)

// wireIDs are the stable identifiers used on the protocol surface.
var wireIDs = map[Kind]string{
	KindInvalidName:    "invalid-name",
	KindNotFound:       "not-found",
	KindAlreadyExists:  "already-exists",
	KindActive:         "active",
	KindMounted:        "mounted",
	KindNotMounted:     "not-mounted",
	KindAlreadyMounted: "already-mounted",
	KindBusy:           "busy",
	KindUnauthorized:   "unauthorized",
	KindNative:         "native",
	KindProtocol:       "protocol",
}

// WireID returns the stable protocol identifier for the kind, or
// "unknown" for kinds with no wire mapping.
func (k Kind) WireID() string {
	if id, ok := wireIDs[k]; ok {
		return id
	}
	return "unknown"
}

// KindFromWireID is the inverse of WireID. Unrecognized identifiers
// map to KindUnknown.
func KindFromWireID(id string) Kind {
	for kind, wireID := range wireIDs {
		if wireID == id {
			return kind
		}
	}
	return KindUnknown
}

// Error is the failure type shared by all Client implementations.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Name is the boot environment, snapshot, or action the failure
	// refers to, when known.
	Name string

	// Reason is a human-readable detail line.
	Reason string

	// Code is the native library's error code. Only meaningful for
	// KindNative; zero when the library reports no code.
	Code int

	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidName:
		return fmt.Sprintf("invalid boot environment name %q: %s", e.Name, e.Reason)
	case KindNotFound:
		return fmt.Sprintf("boot environment %q not found", e.Name)
	case KindAlreadyExists:
		return fmt.Sprintf("boot environment %q already exists", e.Name)
	case KindActive:
		return fmt.Sprintf("cannot destroy active boot environment %q", e.Name)
	case KindMounted:
		return fmt.Sprintf("boot environment %q is mounted at %s", e.Name, e.Reason)
	case KindNotMounted:
		return fmt.Sprintf("boot environment %q is not mounted", e.Name)
	case KindAlreadyMounted:
		return fmt.Sprintf("boot environment %q is already mounted at %s", e.Name, e.Reason)
	case KindBusy:
		return fmt.Sprintf("boot environment %q is busy: %s", e.Name, e.Reason)
	case KindUnauthorized:
		return fmt.Sprintf("not authorized to %s", e.Name)
	case KindNative:
		if e.Code != 0 {
			return fmt.Sprintf("zfs error %d: %s", e.Code, e.Reason)
		}
		return fmt.Sprintf("zfs error: %s", e.Reason)
	case KindProtocol:
		return fmt.Sprintf("protocol error: %s", e.Reason)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// WireKind returns the stable wire identifier for the error's kind.
// The rpc layer uses this, via interface assertion, to populate the
// response's kind field without importing this package.
func (e *Error) WireKind() string { return e.Kind.WireID() }

// KindOf extracts the Kind from any error in err's chain, or
// KindUnknown if no *Error is present.
func KindOf(err error) Kind {
	var beErr *Error
	if errors.As(err, &beErr) {
		return beErr.Kind
	}
	return KindUnknown
}

// InvalidName reports a name that failed validation.
func InvalidName(name, reason string) *Error {
	return &Error{Kind: KindInvalidName, Name: name, Reason: reason}
}

// NotFound reports a missing boot environment or snapshot.
func NotFound(name string) *Error {
	return &Error{Kind: KindNotFound, Name: name}
}

// Conflict reports a name collision with a live boot environment or
// snapshot.
func Conflict(name string) *Error {
	return &Error{Kind: KindAlreadyExists, Name: name}
}

// ActiveDestroy reports a refusal to destroy the running boot
// environment without force.
func ActiveDestroy(name string) *Error {
	return &Error{Kind: KindActive, Name: name}
}

// Mounted reports a boot environment that is mounted when the
// operation required it not to be.
func Mounted(name, mountpoint string) *Error {
	return &Error{Kind: KindMounted, Name: name, Reason: mountpoint}
}

// NotMounted reports a boot environment that is not mounted.
func NotMounted(name string) *Error {
	return &Error{Kind: KindNotMounted, Name: name}
}

// AlreadyMounted reports a boot environment mounted somewhere else
// already.
func AlreadyMounted(name, mountpoint string) *Error {
	return &Error{Kind: KindAlreadyMounted, Name: name, Reason: mountpoint}
}

// Busy reports a boot environment that is in use.
func Busy(name, reason string) *Error {
	return &Error{Kind: KindBusy, Name: name, Reason: reason}
}

// Unauthorized reports a policy denial for the named action.
func Unauthorized(action string) *Error {
	return &Error{Kind: KindUnauthorized, Name: action}
}

// NativeError wraps an error from the underlying ZFS library. The
// message is surfaced verbatim; code is zero when the library reports
// none.
func NativeError(code int, message string, err error) *Error {
	return &Error{Kind: KindNative, Code: code, Reason: message, Err: err}
}

// ProtocolError reports a malformed or out-of-contract remote call.
func ProtocolError(message string) *Error {
	return &Error{Kind: KindProtocol, Reason: message}
}
