// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package bootenv

import (
	"fmt"
	"strings"
	"time"
)

// BootEnvironment describes one boot environment at a point in time.
// Values returned by Client implementations are snapshots — mutating
// them has no effect on the underlying storage.
type BootEnvironment struct {
	// Name is the display identifier, unique among live boot
	// environments. Changes on rename.
	Name string

	// Path is the backing ZFS dataset (e.g. "zroot/ROOT/default").
	// Derived from Name; changes on rename.
	Path string

	// GUID is the dataset's 64-bit GUID. It is immutable for the life
	// of the dataset and survives renames, which makes it the only
	// stable external identity for a boot environment. A fresh GUID is
	// allocated only when the dataset itself is destroyed and
	// recreated.
	GUID uint64

	// Description is optional free text, settable independently of the
	// name.
	Description string

	// Mountpoint is where the boot environment is mounted. Empty iff
	// the boot environment is not currently mounted.
	Mountpoint string

	// Active reports whether the system is currently booted into this
	// boot environment. It reflects external boot state and is never
	// set by any Client operation.
	Active bool

	// NextBoot reports whether the system will boot into this
	// environment next. At most one boot environment has NextBoot set
	// at any time; Activate is the only operation that changes it.
	NextBoot bool

	// BootOnce reports whether the NextBoot marker reverts after the
	// next boot. BootOnce is never set without NextBoot.
	BootOnce bool

	// Space is the storage used by this boot environment in bytes,
	// recomputed on each listing.
	Space uint64

	// Created is the creation time as a Unix timestamp in seconds.
	Created int64
}

// Snapshot describes a read-only point-in-time capture of a boot
// environment's dataset. A snapshot's lifetime is not tied 1:1 to the
// boot environment that produced it: clones keep their origin snapshot
// alive after the source boot environment is destroyed.
type Snapshot struct {
	// Name is the snapshot name scoped to its parent boot environment
	// (the part after "@").
	Name string

	// Path is the full ZFS snapshot path (e.g. "zroot/ROOT/default@pre-upgrade").
	Path string

	// ParentGUID is the GUID of the boot environment the snapshot was
	// taken from.
	ParentGUID uint64

	// Description is optional free text.
	Description string

	// Space is the storage used by this snapshot in bytes.
	Space uint64

	// Created is the creation time as a Unix timestamp in seconds.
	Created int64
}

// Label identifies either a boot environment or a snapshot of one.
// Operations that accept both (destroy, describe, snapshot sources)
// take a Label.
type Label struct {
	// Name is the boot environment name.
	Name string

	// Snapshot is the snapshot name, or empty when the label refers to
	// the whole boot environment.
	Snapshot string
}

// ParseLabel parses "name" or "name@snapshot" into a Label.
func ParseLabel(s string) (Label, error) {
	name, snapshot, found := strings.Cut(s, "@")
	if name == "" {
		return Label{}, InvalidName(s, "boot environment name cannot be empty")
	}
	if found {
		if snapshot == "" {
			return Label{}, InvalidName(s, "snapshot name cannot be empty")
		}
		if strings.Contains(snapshot, "@") {
			return Label{}, InvalidName(s, "too many '@' characters")
		}
	}
	return Label{Name: name, Snapshot: snapshot}, nil
}

// IsSnapshot reports whether the label refers to a snapshot rather
// than a whole boot environment.
func (l Label) IsSnapshot() bool { return l.Snapshot != "" }

// String formats the label as "name" or "name@snapshot".
func (l Label) String() string {
	if l.Snapshot == "" {
		return l.Name
	}
	return l.Name + "@" + l.Snapshot
}

// DestroyOptions controls Client.Destroy.
type DestroyOptions struct {
	// Force unmounts the boot environment forcibly if it is mounted,
	// even when the filesystem is busy.
	Force bool

	// Unmount unmounts the boot environment first if it is mounted.
	Unmount bool

	// DestroySnapshots also destroys the boot environment's snapshots.
	DestroySnapshots bool
}

// DefaultMountRoot is the runtime directory under which Mount places
// boot environments when no explicit mountpoint is given, one
// subdirectory per boot environment name. A dedicated runtime
// directory rather than a world-writable temporary directory, so a
// hostile local user cannot pre-create or symlink the target.
const DefaultMountRoot = "/run/zbed/mount"

// MountpointFor returns the default mountpoint for a boot environment.
func MountpointFor(beName string) string {
	return DefaultMountRoot + "/" + beName
}

// GenerateSnapshotName returns the default snapshot name for the given
// time: an RFC 3339-style UTC timestamp, matching the behaviour of
// FreeBSD's bectl.
func GenerateSnapshotName(now time.Time) string {
	return now.UTC().Format("2006-01-02T15:04:05Z")
}

// FormatGUID renders a GUID the way the protocol layer addresses
// objects: 16 lowercase hex digits, zero-padded.
func FormatGUID(guid uint64) string {
	return fmt.Sprintf("%016x", guid)
}
