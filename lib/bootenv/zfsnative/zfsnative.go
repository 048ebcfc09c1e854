// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

// Package zfsnative implements bootenv.Client against a real ZFS pool
// through libzfs. Dataset handles are opened per operation and closed
// before returning; nothing is cached between calls. The
// implementation is not safe for concurrent use — wrap it with
// lib/bootenv/serial (the service always does).
//
// Boot environments are filesystems directly under the configured
// root (conventionally <pool>/ROOT), created with mountpoint=/ and
// canmount=noauto. The active boot environment is the one mounted at
// /; the next-boot target is whatever the pool's bootfs property
// points at.
package zfsnative

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	zfs "github.com/kraudcloud/go-libzfs/v2"
	"golang.org/x/sys/unix"

	"github.com/kamacite/zbed/lib/bootenv"
)

// User properties persisted on datasets. The saved-bootfs property
// lives on the root container and records the permanent next-boot
// target while a boot-once activation is pending.
const (
	descriptionProperty = "ca.zbed:description"
	savedBootfsProperty = "ca.zbed:bootfs"
)

// Client manages boot environments on a live system.
type Client struct {
	root string // dataset all boot environments live under
	pool string // pool the root belongs to
}

// New creates a client rooted at root, e.g. "zroot/ROOT". The root
// dataset must already exist (see Init).
func New(root string) (*Client, error) {
	pool, _, found := strings.Cut(root, "/")
	if !found || pool == "" {
		return nil, fmt.Errorf("boot environment root %q must be of the form pool/container", root)
	}
	return &Client{root: root, pool: pool}, nil
}

// Root returns the dataset path boot environments live under.
func (c *Client) Root() string { return c.root }

func (c *Client) datasetPath(name string) string {
	return c.root + "/" + name
}

// nativeError wraps a libzfs failure. The numeric code is preserved
// when the library provides one.
func nativeError(operation string, err error) error {
	code := 0
	if coded, ok := err.(interface{ ErrorCode() int }); ok {
		code = coded.ErrorCode()
	}
	return bootenv.NativeError(code, operation, err)
}

// propertyValue normalizes a libzfs property value: "-" means unset.
func propertyValue(property zfs.Property) string {
	if property.Value == "-" {
		return ""
	}
	return property.Value
}

func datasetUint(dataset *zfs.Dataset, prop zfs.Prop) (uint64, error) {
	property, err := dataset.GetProperty(prop)
	if err != nil {
		return 0, err
	}
	return parsePropertyUint(property.Value)
}

// parsePropertyUint parses a numeric libzfs property value. Unset
// values ("-" or empty) parse as zero.
func parsePropertyUint(value string) (uint64, error) {
	if value == "" || value == "-" {
		return 0, nil
	}
	return strconv.ParseUint(value, 10, 64)
}

// openBE opens the dataset for a named boot environment. Missing
// datasets surface as NotFound rather than a native error. The caller
// must Close the returned dataset.
func (c *Client) openBE(name string) (zfs.Dataset, error) {
	if err := bootenv.ValidateName(name, c.root); err != nil {
		return zfs.Dataset{}, err
	}
	dataset, err := zfs.DatasetOpenSingle(c.datasetPath(name))
	if err != nil {
		return zfs.Dataset{}, bootenv.NotFound(name)
	}
	return dataset, nil
}

// exists reports whether a dataset path exists, without surfacing an
// error for the common missing case.
func exists(path string) bool {
	dataset, err := zfs.DatasetOpenSingle(path)
	if err != nil {
		return false
	}
	dataset.Close()
	return true
}

// bootfs reads the pool's bootfs property. Empty when unset.
func (c *Client) bootfs() (string, error) {
	pool, err := zfs.PoolOpen(c.pool)
	if err != nil {
		return "", nativeError(fmt.Sprintf("opening pool %s", c.pool), err)
	}
	defer pool.Close()
	property, err := pool.GetProperty(zfs.PoolPropBootfs)
	if err != nil {
		return "", nativeError("reading bootfs", err)
	}
	return propertyValue(property), nil
}

// setBootfs writes the pool's bootfs property. An empty value clears
// it.
func (c *Client) setBootfs(path string) error {
	pool, err := zfs.PoolOpen(c.pool)
	if err != nil {
		return nativeError(fmt.Sprintf("opening pool %s", c.pool), err)
	}
	defer pool.Close()
	if err := pool.SetProperty(zfs.PoolPropBootfs, path); err != nil {
		return nativeError("setting bootfs", err)
	}
	return nil
}

// savedBootfs reads the saved permanent next-boot target from the
// root container. Empty when no boot-once activation is pending.
func (c *Client) savedBootfs() (string, error) {
	root, err := zfs.DatasetOpenSingle(c.root)
	if err != nil {
		return "", nativeError(fmt.Sprintf("opening %s", c.root), err)
	}
	defer root.Close()
	property, err := root.GetUserProperty(savedBootfsProperty)
	if err != nil {
		return "", nil // user property never set
	}
	return propertyValue(property), nil
}

func (c *Client) setSavedBootfs(value string) error {
	root, err := zfs.DatasetOpenSingle(c.root)
	if err != nil {
		return nativeError(fmt.Sprintf("opening %s", c.root), err)
	}
	defer root.Close()
	if err := root.SetUserProperty(savedBootfsProperty, value); err != nil {
		return nativeError("saving next-boot target", err)
	}
	return nil
}

// view builds the domain representation of one boot environment
// dataset. bootfs and savedBootfs are passed in so a List over many
// datasets reads the pool property once.
func (c *Client) view(dataset *zfs.Dataset, name, bootfsPath, savedPath string) (bootenv.BootEnvironment, error) {
	path := c.datasetPath(name)

	guid, err := datasetUint(dataset, zfs.DatasetPropGUID)
	if err != nil {
		return bootenv.BootEnvironment{}, nativeError("reading guid", err)
	}
	created, err := datasetUint(dataset, zfs.DatasetPropCreation)
	if err != nil {
		return bootenv.BootEnvironment{}, nativeError("reading creation time", err)
	}
	space, err := datasetUint(dataset, zfs.DatasetPropUsed)
	if err != nil {
		return bootenv.BootEnvironment{}, nativeError("reading used space", err)
	}

	description := ""
	if property, err := dataset.GetUserProperty(descriptionProperty); err == nil {
		description = propertyValue(property)
	}

	mounted, mountpoint := dataset.IsMounted()
	if !mounted {
		mountpoint = ""
	}

	nextBoot := bootfsPath != "" && bootfsPath == path
	return bootenv.BootEnvironment{
		Name:        name,
		Path:        path,
		GUID:        guid,
		Description: description,
		Mountpoint:  mountpoint,
		Active:      mounted && mountpoint == "/",
		NextBoot:    nextBoot,
		BootOnce:    nextBoot && savedPath != "",
		Space:       space,
		Created:     int64(created),
	}, nil
}

// List returns all boot environments under the root.
func (c *Client) List(ctx context.Context) ([]bootenv.BootEnvironment, error) {
	root, err := zfs.DatasetOpen(c.root)
	if err != nil {
		return nil, nativeError(fmt.Sprintf("opening %s", c.root), err)
	}
	defer root.Close()

	bootfsPath, err := c.bootfs()
	if err != nil {
		return nil, err
	}
	savedPath, err := c.savedBootfs()
	if err != nil {
		return nil, err
	}

	var result []bootenv.BootEnvironment
	for i := range root.Children {
		child := &root.Children[i]
		if child.Type != zfs.DatasetTypeFilesystem {
			continue
		}
		path, err := child.Path()
		if err != nil {
			return nil, nativeError("reading dataset path", err)
		}
		name := strings.TrimPrefix(path, c.root+"/")
		be, err := c.view(child, name, bootfsPath, savedPath)
		if err != nil {
			return nil, err
		}
		result = append(result, be)
	}
	return result, nil
}

// Snapshots returns beName's snapshots oldest first.
func (c *Client) Snapshots(ctx context.Context, beName string) ([]bootenv.Snapshot, error) {
	dataset, err := c.openBE(beName)
	if err != nil {
		return nil, err
	}
	defer dataset.Close()

	guid, err := datasetUint(&dataset, zfs.DatasetPropGUID)
	if err != nil {
		return nil, nativeError("reading guid", err)
	}

	snapshots, err := dataset.Snapshots()
	if err != nil {
		return nil, nativeError("listing snapshots", err)
	}
	defer func() {
		for i := range snapshots {
			snapshots[i].Close()
		}
	}()

	result := make([]bootenv.Snapshot, 0, len(snapshots))
	for i := range snapshots {
		snapshot := &snapshots[i]
		path, err := snapshot.Path()
		if err != nil {
			return nil, nativeError("reading snapshot path", err)
		}
		_, name, found := strings.Cut(path, "@")
		if !found {
			continue
		}
		created, err := datasetUint(snapshot, zfs.DatasetPropCreation)
		if err != nil {
			return nil, nativeError("reading creation time", err)
		}
		space, err := datasetUint(snapshot, zfs.DatasetPropUsed)
		if err != nil {
			return nil, nativeError("reading used space", err)
		}
		description := ""
		if property, err := snapshot.GetUserProperty(descriptionProperty); err == nil {
			description = propertyValue(property)
		}
		result = append(result, bootenv.Snapshot{
			Name:        name,
			Path:        path,
			ParentGUID:  guid,
			Description: description,
			Space:       space,
			Created:     int64(created),
		})
	}
	return result, nil
}

// newBEProperties are the creation properties for boot environment
// datasets: mountable at / but never automatically.
func newBEProperties() map[zfs.Prop]zfs.Property {
	return map[zfs.Prop]zfs.Property{
		zfs.DatasetPropMountpoint: {Value: "/"},
		zfs.DatasetPropCanmount:   {Value: "noauto"},
	}
}

func (c *Client) checkNew(name string) error {
	if err := bootenv.ValidateName(name, c.root); err != nil {
		return err
	}
	if exists(c.datasetPath(name)) {
		return bootenv.Conflict(name)
	}
	return nil
}

// CreateEmpty creates a boot environment with no contents.
func (c *Client) CreateEmpty(ctx context.Context, name, description string) (bootenv.BootEnvironment, error) {
	if err := c.checkNew(name); err != nil {
		return bootenv.BootEnvironment{}, err
	}

	dataset, err := zfs.DatasetCreate(c.datasetPath(name), zfs.DatasetTypeFilesystem, newBEProperties())
	if err != nil {
		return bootenv.BootEnvironment{}, nativeError(fmt.Sprintf("creating %s", name), err)
	}
	defer dataset.Close()

	if description != "" {
		if err := dataset.SetUserProperty(descriptionProperty, description); err != nil {
			return bootenv.BootEnvironment{}, nativeError("setting description", err)
		}
	}
	return c.freshView(&dataset, name)
}

// freshView reads back a just-created or just-modified dataset.
func (c *Client) freshView(dataset *zfs.Dataset, name string) (bootenv.BootEnvironment, error) {
	bootfsPath, err := c.bootfs()
	if err != nil {
		return bootenv.BootEnvironment{}, err
	}
	savedPath, err := c.savedBootfs()
	if err != nil {
		return bootenv.BootEnvironment{}, err
	}
	if err := dataset.ReloadProperties(); err != nil {
		return bootenv.BootEnvironment{}, nativeError("reloading properties", err)
	}
	return c.view(dataset, name, bootfsPath, savedPath)
}

// activeName finds the boot environment mounted at /. Empty when the
// running system does not boot from this root.
func (c *Client) activeName(ctx context.Context) (string, error) {
	environments, err := c.List(ctx)
	if err != nil {
		return "", err
	}
	for _, be := range environments {
		if be.Active {
			return be.Name, nil
		}
	}
	return "", nil
}

// Create clones a boot environment from a source. A nil source clones
// the currently active boot environment. Cloning a boot environment
// (rather than one of its snapshots) takes a fresh snapshot first and
// clones from that.
func (c *Client) Create(ctx context.Context, name, description string, source *bootenv.Label) (bootenv.BootEnvironment, error) {
	if err := c.checkNew(name); err != nil {
		return bootenv.BootEnvironment{}, err
	}

	sourceLabel := bootenv.Label{}
	if source != nil {
		sourceLabel = *source
	} else {
		active, err := c.activeName(ctx)
		if err != nil {
			return bootenv.BootEnvironment{}, err
		}
		if active == "" {
			return bootenv.BootEnvironment{}, bootenv.NotFound("")
		}
		sourceLabel.Name = active
	}

	snapshotPath := ""
	if sourceLabel.IsSnapshot() {
		snapshotPath = c.datasetPath(sourceLabel.Name) + "@" + sourceLabel.Snapshot
		if !exists(snapshotPath) {
			return bootenv.BootEnvironment{}, bootenv.NotFound(sourceLabel.String())
		}
	} else {
		// Snapshot the source so the clone has a stable origin.
		snapshotName, err := c.Snapshot(ctx, &sourceLabel, "")
		if err != nil {
			return bootenv.BootEnvironment{}, err
		}
		snapshotPath = c.datasetPath(sourceLabel.Name) + "@" + snapshotName
	}

	origin, err := zfs.DatasetOpenSingle(snapshotPath)
	if err != nil {
		return bootenv.BootEnvironment{}, bootenv.NotFound(sourceLabel.String())
	}
	defer origin.Close()

	clone, err := origin.Clone(c.datasetPath(name), newBEProperties())
	if err != nil {
		return bootenv.BootEnvironment{}, nativeError(fmt.Sprintf("cloning %s", sourceLabel.String()), err)
	}
	defer clone.Close()

	if description != "" {
		if err := clone.SetUserProperty(descriptionProperty, description); err != nil {
			return bootenv.BootEnvironment{}, nativeError("setting description", err)
		}
	}
	return c.freshView(&clone, name)
}

// Snapshot snapshots a boot environment. A nil source snapshots the
// active one. Returns the snapshot name, generated from the current
// time unless the source label carries one.
func (c *Client) Snapshot(ctx context.Context, source *bootenv.Label, description string) (string, error) {
	sourceName := ""
	snapshotName := ""
	if source != nil {
		sourceName = source.Name
		snapshotName = source.Snapshot
	}
	if sourceName == "" {
		active, err := c.activeName(ctx)
		if err != nil {
			return "", err
		}
		if active == "" {
			return "", bootenv.NotFound("")
		}
		sourceName = active
	}

	dataset, err := c.openBE(sourceName)
	if err != nil {
		return "", err
	}
	dataset.Close()

	if snapshotName == "" {
		snapshotName = bootenv.GenerateSnapshotName(time.Now())
	} else if err := bootenv.ValidateSnapshotName(snapshotName); err != nil {
		return "", err
	}

	path := c.datasetPath(sourceName) + "@" + snapshotName
	if exists(path) {
		return "", bootenv.Conflict(sourceName + "@" + snapshotName)
	}

	snapshot, err := zfs.DatasetSnapshot(path, false, nil)
	if err != nil {
		return "", nativeError(fmt.Sprintf("snapshotting %s", sourceName), err)
	}
	defer snapshot.Close()

	if description != "" {
		if err := snapshot.SetUserProperty(descriptionProperty, description); err != nil {
			return "", nativeError("setting description", err)
		}
	}
	return snapshotName, nil
}

// Destroy destroys a boot environment or, when the target label names
// a snapshot, just that snapshot. Destroying the next-boot target
// clears the pool's bootfs.
func (c *Client) Destroy(ctx context.Context, target bootenv.Label, opts bootenv.DestroyOptions) error {
	if target.IsSnapshot() {
		path := c.datasetPath(target.Name) + "@" + target.Snapshot
		snapshot, err := zfs.DatasetOpenSingle(path)
		if err != nil {
			return bootenv.NotFound(target.String())
		}
		defer snapshot.Close()
		if err := snapshot.Destroy(false); err != nil {
			return nativeError(fmt.Sprintf("destroying %s", target.String()), err)
		}
		return nil
	}

	dataset, err := c.openBE(target.Name)
	if err != nil {
		return err
	}
	defer dataset.Close()
	path := c.datasetPath(target.Name)

	mounted, mountpoint := dataset.IsMounted()
	if mounted && mountpoint == "/" {
		return bootenv.ActiveDestroy(target.Name)
	}
	if mounted {
		if !opts.Unmount && !opts.Force {
			return bootenv.Mounted(target.Name, mountpoint)
		}
		if err := dataset.Unmount(0); err != nil {
			return nativeError(fmt.Sprintf("unmounting %s", target.Name), err)
		}
	}

	snapshots, err := dataset.Snapshots()
	if err != nil {
		return nativeError("listing snapshots", err)
	}
	hasSnapshots := len(snapshots) > 0
	for i := range snapshots {
		snapshots[i].Close()
	}
	if hasSnapshots && !opts.DestroySnapshots {
		return bootenv.Busy(target.Name, "has snapshots")
	}

	if hasSnapshots {
		if err := dataset.DestroyRecursive(); err != nil {
			return nativeError(fmt.Sprintf("destroying %s", target.Name), err)
		}
	} else if err := dataset.Destroy(false); err != nil {
		return nativeError(fmt.Sprintf("destroying %s", target.Name), err)
	}

	// If the destroyed boot environment was the next-boot target,
	// leave the pool with no target rather than guessing a new one.
	bootfsPath, err := c.bootfs()
	if err != nil {
		return err
	}
	if bootfsPath == path {
		if err := c.setBootfs(""); err != nil {
			return err
		}
		if err := c.setSavedBootfs(""); err != nil {
			return err
		}
	}
	return nil
}

// Mount mounts a boot environment at the given mountpoint, or a
// conventional location when none is given. Returns the mountpoint.
func (c *Client) Mount(ctx context.Context, beName, mountpoint string, readOnly bool) (string, error) {
	dataset, err := c.openBE(beName)
	if err != nil {
		return "", err
	}
	defer dataset.Close()

	if mounted, where := dataset.IsMounted(); mounted {
		return "", bootenv.AlreadyMounted(beName, where)
	}
	if mountpoint == "" {
		mountpoint = bootenv.MountpointFor(beName)
	}

	// The dataset's persistent mountpoint is /; mount it elsewhere by
	// retargeting the property for the duration of the mount. Unmount
	// restores it.
	if err := dataset.SetProperty(zfs.DatasetPropMountpoint, mountpoint); err != nil {
		return "", nativeError("setting mountpoint", err)
	}
	options := ""
	if readOnly {
		options = "ro"
	}
	if err := dataset.Mount(options, 0); err != nil {
		dataset.SetProperty(zfs.DatasetPropMountpoint, "/")
		return "", nativeError(fmt.Sprintf("mounting %s", beName), err)
	}
	return mountpoint, nil
}

// Unmount unmounts a boot environment and restores its persistent
// mountpoint. The active boot environment cannot be unmounted.
func (c *Client) Unmount(ctx context.Context, beName string, force bool) (string, error) {
	dataset, err := c.openBE(beName)
	if err != nil {
		return "", err
	}
	defer dataset.Close()

	mounted, mountpoint := dataset.IsMounted()
	if !mounted {
		return "", bootenv.NotMounted(beName)
	}
	if mountpoint == "/" {
		return "", bootenv.Busy(beName, "cannot unmount the active boot environment")
	}

	flags := 0
	if force {
		flags = unix.MNT_FORCE
	}
	if err := dataset.Unmount(flags); err != nil {
		return "", nativeError(fmt.Sprintf("unmounting %s", beName), err)
	}
	if err := dataset.SetProperty(zfs.DatasetPropMountpoint, "/"); err != nil {
		return "", nativeError("restoring mountpoint", err)
	}
	return mountpoint, nil
}

// Hostid reads the host ID from the etc/hostid file inside a mounted
// boot environment.
func (c *Client) Hostid(ctx context.Context, beName string) (uint32, bool, error) {
	dataset, err := c.openBE(beName)
	if err != nil {
		return 0, false, err
	}
	defer dataset.Close()

	mounted, mountpoint := dataset.IsMounted()
	if !mounted {
		return 0, false, bootenv.NotMounted(beName)
	}
	hostid, ok := readHostid(filepath.Join(mountpoint, "etc/hostid"))
	return hostid, ok, nil
}

// readHostid reads a 4-byte little-endian host ID file, usually
// etc/hostid. ok is false when the file is missing or not exactly
// four bytes.
func readHostid(path string) (uint32, bool) {
	raw, err := os.ReadFile(path)
	if err != nil || len(raw) != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(raw), true
}

// Rename renames a boot environment. The ZFS guid is untouched, so
// object paths derived from it remain valid. If the renamed dataset
// was the next-boot target, bootfs follows it.
func (c *Client) Rename(ctx context.Context, beName, newName string) error {
	if err := c.checkNew(newName); err != nil {
		return err
	}
	dataset, err := c.openBE(beName)
	if err != nil {
		return err
	}
	defer dataset.Close()

	oldPath := c.datasetPath(beName)
	newPath := c.datasetPath(newName)

	bootfsPath, err := c.bootfs()
	if err != nil {
		return err
	}
	savedPath, err := c.savedBootfs()
	if err != nil {
		return err
	}

	if err := dataset.Rename(newPath, false, false); err != nil {
		return nativeError(fmt.Sprintf("renaming %s", beName), err)
	}

	if bootfsPath == oldPath {
		if err := c.setBootfs(newPath); err != nil {
			return err
		}
	}
	if savedPath == oldPath {
		if err := c.setSavedBootfs(newPath); err != nil {
			return err
		}
	}
	return nil
}

// Describe sets the description of a boot environment or snapshot.
func (c *Client) Describe(ctx context.Context, target bootenv.Label, description string) error {
	path := c.datasetPath(target.Name)
	if target.IsSnapshot() {
		path += "@" + target.Snapshot
	}
	dataset, err := zfs.DatasetOpenSingle(path)
	if err != nil {
		return bootenv.NotFound(target.String())
	}
	defer dataset.Close()

	if err := dataset.SetUserProperty(descriptionProperty, description); err != nil {
		return nativeError("setting description", err)
	}
	return nil
}

// Activate selects a boot environment for the next boot by pointing
// the pool's bootfs at it. With bootOnce, the current permanent
// target is saved on the root container first so ClearBootOnce (or
// the boot loader) can restore it.
func (c *Client) Activate(ctx context.Context, beName string, bootOnce bool) error {
	dataset, err := c.openBE(beName)
	if err != nil {
		return err
	}
	dataset.Close()
	path := c.datasetPath(beName)

	if bootOnce {
		saved, err := c.savedBootfs()
		if err != nil {
			return err
		}
		if saved == "" {
			// First boot-once activation: remember the permanent target.
			current, err := c.bootfs()
			if err != nil {
				return err
			}
			if err := c.setSavedBootfs(current); err != nil {
				return err
			}
		}
		return c.setBootfs(path)
	}

	if err := c.setBootfs(path); err != nil {
		return err
	}
	return c.setSavedBootfs("")
}

// ClearBootOnce reverts a pending boot-once activation, restoring the
// saved permanent target. A no-op when none is pending.
func (c *Client) ClearBootOnce(ctx context.Context) error {
	saved, err := c.savedBootfs()
	if err != nil {
		return err
	}
	if saved == "" {
		return nil
	}
	if err := c.setBootfs(saved); err != nil {
		return err
	}
	return c.setSavedBootfs("")
}

// Rollback reverts a boot environment to a snapshot, discarding the
// snapshots and changes made after it.
func (c *Client) Rollback(ctx context.Context, beName, snapshotName string) error {
	dataset, err := c.openBE(beName)
	if err != nil {
		return err
	}
	defer dataset.Close()

	snapshotPath := c.datasetPath(beName) + "@" + snapshotName
	snapshot, err := zfs.DatasetOpenSingle(snapshotPath)
	if err != nil {
		return bootenv.NotFound(beName + "@" + snapshotName)
	}
	defer snapshot.Close()

	if err := dataset.Rollback(&snapshot, true); err != nil {
		return nativeError(fmt.Sprintf("rolling back %s", beName), err)
	}
	return nil
}

// Init prepares a pool for boot environment management by creating
// the root container dataset (<pool>/<container>, typically ROOT)
// with canmount=off.
func (c *Client) Init(ctx context.Context, poolName string) error {
	pool, err := zfs.PoolOpen(poolName)
	if err != nil {
		return bootenv.NotFound(poolName)
	}
	pool.Close()

	_, container, _ := strings.Cut(c.root, "/")
	path := poolName + "/" + container
	if exists(path) {
		return bootenv.Conflict(path)
	}

	dataset, err := zfs.DatasetCreate(path, zfs.DatasetTypeFilesystem, map[zfs.Prop]zfs.Property{
		zfs.DatasetPropMountpoint: {Value: "none"},
		zfs.DatasetPropCanmount:   {Value: "off"},
	})
	if err != nil {
		return nativeError(fmt.Sprintf("creating %s", path), err)
	}
	dataset.Close()
	return nil
}

var _ bootenv.Client = (*Client)(nil)
