// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package bootenv

import "context"

// Client is the operation set shared by every boot environment
// implementation: the in-memory emulator, the libzfs adapter, and the
// remote proxy. All three implement the same semantic contract, so
// callers select one at configuration time and never branch on which
// they hold.
//
// Listing operations return fresh copies of the data model values,
// never live references into implementation state. Implementations are
// not required to be safe for concurrent use; wrap them in
// serial.Client before sharing across goroutines.
type Client interface {
	// List returns all current boot environments. Order is
	// unspecified; callers sort if they need to. An empty system
	// returns an empty slice, not an error.
	List(ctx context.Context) ([]BootEnvironment, error)

	// Snapshots returns the snapshots of the named boot environment.
	Snapshots(ctx context.Context, beName string) ([]Snapshot, error)

	// CreateEmpty allocates a fresh, empty boot environment with a
	// fresh GUID. Fails with KindInvalidName or KindAlreadyExists.
	CreateEmpty(ctx context.Context, name, description string) (BootEnvironment, error)

	// Create clones an existing boot environment or snapshot into a
	// new boot environment. A nil source clones the currently active
	// boot environment. Fails with KindNotFound when the source does
	// not exist, plus the CreateEmpty failure modes.
	Create(ctx context.Context, name, description string, source *Label) (BootEnvironment, error)

	// Snapshot captures a boot environment. A nil source snapshots
	// the active boot environment; a source without a snapshot part
	// gets a timestamp-derived name. Returns the snapshot name
	// without the boot environment prefix. Fails with
	// KindAlreadyExists when the snapshot name is taken under that
	// boot environment.
	Snapshot(ctx context.Context, source *Label, description string) (string, error)

	// Destroy removes a boot environment or snapshot. The active boot
	// environment is never destroyable; destroying a mounted one
	// requires opts.Unmount or opts.Force. Destroying the boot
	// environment that currently holds the next-boot marker is
	// permitted and leaves the collection with no next-boot target —
	// no replacement is selected.
	Destroy(ctx context.Context, target Label, opts DestroyOptions) error

	// Mount mounts a boot environment and returns the mountpoint.
	// An empty mountpoint selects MountpointFor(beName). Fails with
	// KindAlreadyMounted when mounted elsewhere.
	Mount(ctx context.Context, beName, mountpoint string, readOnly bool) (string, error)

	// Unmount unmounts a boot environment and returns the mountpoint
	// it was mounted at. Force overrides busy-filesystem errors from
	// the underlying library. Fails with KindNotMounted.
	Unmount(ctx context.Context, beName string, force bool) (string, error)

	// Hostid reads the host ID a boot environment would boot with,
	// from the etc/hostid file inside it. The boot environment must
	// be mounted (KindNotMounted otherwise). ok is false when the
	// file is absent or malformed.
	Hostid(ctx context.Context, beName string) (hostid uint32, ok bool, err error)

	// Rename renames a boot environment. The GUID is preserved; the
	// dataset path changes to match the new name.
	Rename(ctx context.Context, beName, newName string) error

	// Describe sets the description of a boot environment or snapshot.
	Describe(ctx context.Context, target Label, description string) error

	// Activate marks a boot environment to be booted next and clears
	// the marker on every other boot environment, atomically across
	// the collection. With bootOnce the marker reverts after the next
	// boot; without it any previous boot-once marker is cleared.
	Activate(ctx context.Context, beName string, bootOnce bool) error

	// ClearBootOnce removes any boot-once activation, restoring the
	// permanent next-boot target.
	ClearBootOnce(ctx context.Context) error

	// Rollback reverts a boot environment's content to one of its
	// snapshots. The GUID does not change.
	Rollback(ctx context.Context, beName, snapshotName string) error

	// Init creates the dataset layout for boot environments on the
	// given pool. Fails with KindNotFound when the pool does not exist
	// and KindAlreadyExists when the layout is already present.
	Init(ctx context.Context, pool string) error
}
