// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package cli

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// ExitCode returns the process exit code for e.
func (e *ExitError) ExitCode() int {
	return e.Code
}
