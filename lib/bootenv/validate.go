// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package bootenv

import "fmt"

// MaxDatasetPathLength is the ZFS limit on a full dataset path,
// including the boot environment root prefix and the separating slash.
const MaxDatasetPathLength = 255

// nameChars is the set of characters permitted in a boot environment
// or snapshot name beyond the first character: ASCII letters, digits,
// and the punctuation ZFS allows in dataset components. Spaces are
// legal in ZFS but break bootloaders, so they are excluded.
var nameChars [256]bool

func init() {
	for c := 'a'; c <= 'z'; c++ {
		nameChars[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		nameChars[c] = true
	}
	for c := '0'; c <= '9'; c++ {
		nameChars[c] = true
	}
	nameChars['.'] = true
	nameChars['-'] = true
	nameChars['_'] = true
	nameChars[':'] = true
}

// ValidateName checks that a boot environment name is a legal ZFS
// dataset component under the given boot environment root (e.g.
// "zroot/ROOT"). Pure and side-effect free. Every Client
// implementation calls this before committing a name, so all
// implementations reject exactly the same inputs.
//
// Rules enforced:
//   - Non-empty
//   - First character is an ASCII letter or digit
//   - Only ASCII letters, digits, ., -, _, : throughout
//   - len(root) + "/" + name stays within MaxDatasetPathLength
func ValidateName(name, root string) error {
	if name == "" {
		return InvalidName(name, "name cannot be empty")
	}
	// The limit applies to the full dataset path, root + "/" + name,
	// so the joining slash counts against it.
	if len(root)+1+len(name) > MaxDatasetPathLength {
		return InvalidName(name, "name too long")
	}

	first := name[0]
	if !isASCIIAlphanumeric(first) {
		return InvalidName(name, fmt.Sprintf("name cannot begin with %q", first))
	}
	for i := 0; i < len(name); i++ {
		if !nameChars[name[i]] {
			return InvalidName(name, fmt.Sprintf("invalid character %q in name", name[i]))
		}
	}
	return nil
}

// ValidateSnapshotName checks the snapshot part of a label. Snapshot
// names follow the same component rules as boot environment names but
// are allowed to begin with any permitted character, matching zfs(8).
func ValidateSnapshotName(name string) error {
	if name == "" {
		return InvalidName(name, "snapshot name cannot be empty")
	}
	if len(name) > MaxDatasetPathLength {
		return InvalidName(name, "snapshot name too long")
	}
	for i := 0; i < len(name); i++ {
		if !nameChars[name[i]] {
			return InvalidName(name, fmt.Sprintf("invalid character %q in snapshot name", name[i]))
		}
	}
	return nil
}

func isASCIIAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
