// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

// Package beproto defines the wire types for the zbed service
// protocol: action names, object paths, property maps, and the typed
// request/response bodies exchanged as CBOR over the service socket.
// Both the service (cmd/zbed-service) and the remote client
// (lib/bootenv/remote) import this package so the two sides cannot
// drift apart.
package beproto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kamacite/zbed/lib/bootenv"
)

// DefaultSocketPath is where zbed-service listens unless overridden.
const DefaultSocketPath = "/run/zbed/zbed.sock"

// ManagerPath is the object path of the boot environment manager
// itself. Manager-level actions (create, init, discovery) address it
// implicitly.
const ManagerPath = "/zbed"

// Action names accepted by the service. Actions that operate on a
// specific boot environment accept either a "target" name or an
// "object" path; the object path wins when both are present.
const (
	ActionCreate            = "create"
	ActionCreateEmpty       = "create-empty"
	ActionSnapshot          = "snapshot"
	ActionDestroy           = "destroy"
	ActionDestroySnapshot   = "destroy-snapshot"
	ActionMount             = "mount"
	ActionUnmount           = "unmount"
	ActionRename            = "rename"
	ActionActivate          = "activate"
	ActionClearBootOnce     = "clear-boot-once"
	ActionDescribe          = "describe"
	ActionRollback          = "rollback"
	ActionHostid            = "hostid"
	ActionGetSnapshots      = "get-snapshots"
	ActionGetManagedObjects = "get-managed-objects"
	ActionInit              = "init"
	ActionStatus            = "status"
	ActionSubscribe         = "subscribe"
)

// ObjectPath returns the stable object path for a boot environment.
// The path embeds the GUID, not the name, so it survives renames.
func ObjectPath(guid uint64) string {
	return fmt.Sprintf("%s/be/%s", ManagerPath, bootenv.FormatGUID(guid))
}

// ParseObjectPath extracts the GUID from a boot environment object
// path produced by ObjectPath.
func ParseObjectPath(path string) (uint64, error) {
	rest, found := strings.CutPrefix(path, ManagerPath+"/be/")
	if !found || len(rest) != 16 {
		return 0, fmt.Errorf("malformed object path %q", path)
	}
	guid, err := strconv.ParseUint(rest, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed object path %q: %w", path, err)
	}
	return guid, nil
}

// Properties is the wire form of a boot environment's observable
// state. Field names are stable protocol identifiers.
type Properties struct {
	Name        string `cbor:"name"`
	Path        string `cbor:"path"`
	GUID        uint64 `cbor:"guid"`
	Description string `cbor:"description,omitempty"`
	Mountpoint  string `cbor:"mountpoint,omitempty"`
	Active      bool   `cbor:"active"`
	NextBoot    bool   `cbor:"next_boot"`
	BootOnce    bool   `cbor:"boot_once"`
	Space       uint64 `cbor:"space"`
	Created     int64  `cbor:"created"`
}

// PropertiesOf converts a boot environment to its wire form.
func PropertiesOf(be bootenv.BootEnvironment) Properties {
	return Properties{
		Name:        be.Name,
		Path:        be.Path,
		GUID:        be.GUID,
		Description: be.Description,
		Mountpoint:  be.Mountpoint,
		Active:      be.Active,
		NextBoot:    be.NextBoot,
		BootOnce:    be.BootOnce,
		Space:       be.Space,
		Created:     be.Created,
	}
}

// BootEnvironment converts wire properties back to the domain type.
func (p Properties) BootEnvironment() bootenv.BootEnvironment {
	return bootenv.BootEnvironment{
		Name:        p.Name,
		Path:        p.Path,
		GUID:        p.GUID,
		Description: p.Description,
		Mountpoint:  p.Mountpoint,
		Active:      p.Active,
		NextBoot:    p.NextBoot,
		BootOnce:    p.BootOnce,
		Space:       p.Space,
		Created:     p.Created,
	}
}

// Diff returns the names of wire properties that differ between two
// snapshots of the same object, in declaration order. Used by the
// service to populate changed-notification frames.
func (p Properties) Diff(previous Properties) []string {
	var changed []string
	if p.Name != previous.Name {
		changed = append(changed, "name")
	}
	if p.Path != previous.Path {
		changed = append(changed, "path")
	}
	if p.Description != previous.Description {
		changed = append(changed, "description")
	}
	if p.Mountpoint != previous.Mountpoint {
		changed = append(changed, "mountpoint")
	}
	if p.Active != previous.Active {
		changed = append(changed, "active")
	}
	if p.NextBoot != previous.NextBoot {
		changed = append(changed, "next_boot")
	}
	if p.BootOnce != previous.BootOnce {
		changed = append(changed, "boot_once")
	}
	if p.Space != previous.Space {
		changed = append(changed, "space")
	}
	if p.Created != previous.Created {
		changed = append(changed, "created")
	}
	return changed
}

// SnapshotInfo is the wire form of a boot environment snapshot.
type SnapshotInfo struct {
	Name        string `cbor:"name"`
	Path        string `cbor:"path"`
	ParentGUID  uint64 `cbor:"parent_guid"`
	Description string `cbor:"description,omitempty"`
	Space       uint64 `cbor:"space"`
	Created     int64  `cbor:"created"`
}

// SnapshotInfoOf converts a snapshot to its wire form.
func SnapshotInfoOf(snapshot bootenv.Snapshot) SnapshotInfo {
	return SnapshotInfo{
		Name:        snapshot.Name,
		Path:        snapshot.Path,
		ParentGUID:  snapshot.ParentGUID,
		Description: snapshot.Description,
		Space:       snapshot.Space,
		Created:     snapshot.Created,
	}
}

// Snapshot converts the wire form back to the data model.
func (s SnapshotInfo) Snapshot() bootenv.Snapshot {
	return bootenv.Snapshot{
		Name:        s.Name,
		Path:        s.Path,
		ParentGUID:  s.ParentGUID,
		Description: s.Description,
		Space:       s.Space,
		Created:     s.Created,
	}
}

// --- Request bodies ---
//
// Every request carries the routing "action" field. Actions that
// operate on one boot environment carry Target (a name, or name@snap
// where a snapshot is accepted) and optionally Object (a stable
// object path that overrides Target).

// CreateRequest clones a new boot environment from a source. An empty
// Source clones the currently active boot environment; otherwise
// Source is a label ("name" or "name@snapshot").
type CreateRequest struct {
	Action      string `cbor:"action"`
	Name        string `cbor:"name"`
	Description string `cbor:"description,omitempty"`
	Source      string `cbor:"source,omitempty"`
}

// CreateEmptyRequest creates a new boot environment with no contents.
type CreateEmptyRequest struct {
	Action      string `cbor:"action"`
	Name        string `cbor:"name"`
	Description string `cbor:"description,omitempty"`
}

// CreateResponse reports the new boot environment and its object path.
type CreateResponse struct {
	Object     string     `cbor:"object"`
	Properties Properties `cbor:"properties"`
}

// SnapshotRequest snapshots a boot environment. An empty Target (and
// Object) snapshots the active one. The service generates the
// snapshot name.
type SnapshotRequest struct {
	Action      string `cbor:"action"`
	Object      string `cbor:"object,omitempty"`
	Target      string `cbor:"target,omitempty"`
	Description string `cbor:"description,omitempty"`
}

// SnapshotResponse reports the generated snapshot name.
type SnapshotResponse struct {
	Name string `cbor:"name"`
}

// DestroyRequest destroys a boot environment.
type DestroyRequest struct {
	Action           string `cbor:"action"`
	Object           string `cbor:"object,omitempty"`
	Target           string `cbor:"target,omitempty"`
	Force            bool   `cbor:"force,omitempty"`
	Unmount          bool   `cbor:"unmount,omitempty"`
	DestroySnapshots bool   `cbor:"destroy_snapshots,omitempty"`
}

// DestroySnapshotRequest destroys a single snapshot of a boot
// environment.
type DestroySnapshotRequest struct {
	Action   string `cbor:"action"`
	Object   string `cbor:"object,omitempty"`
	Target   string `cbor:"target,omitempty"`
	Snapshot string `cbor:"snapshot"`
}

// MountRequest mounts a boot environment. An empty Mountpoint lets
// the service pick one under its mount root.
type MountRequest struct {
	Action     string `cbor:"action"`
	Object     string `cbor:"object,omitempty"`
	Target     string `cbor:"target,omitempty"`
	Mountpoint string `cbor:"mountpoint,omitempty"`
	ReadOnly   bool   `cbor:"read_only,omitempty"`
}

// MountResponse reports where the boot environment was mounted.
type MountResponse struct {
	Mountpoint string `cbor:"mountpoint"`
}

// UnmountRequest unmounts a boot environment.
type UnmountRequest struct {
	Action string `cbor:"action"`
	Object string `cbor:"object,omitempty"`
	Target string `cbor:"target,omitempty"`
	Force  bool   `cbor:"force,omitempty"`
}

// UnmountResponse reports the mountpoint that was released.
type UnmountResponse struct {
	Mountpoint string `cbor:"mountpoint"`
}

// RenameRequest renames a boot environment. The object path is
// unchanged by a rename; only the name and dataset path properties
// move.
type RenameRequest struct {
	Action  string `cbor:"action"`
	Object  string `cbor:"object,omitempty"`
	Target  string `cbor:"target,omitempty"`
	NewName string `cbor:"new_name"`
}

// ActivateRequest makes a boot environment the next-boot target.
// BootOnce limits the activation to the next boot only.
type ActivateRequest struct {
	Action   string `cbor:"action"`
	Object   string `cbor:"object,omitempty"`
	Target   string `cbor:"target,omitempty"`
	BootOnce bool   `cbor:"boot_once,omitempty"`
}

// ClearBootOnceRequest reverts a pending boot-once activation.
type ClearBootOnceRequest struct {
	Action string `cbor:"action"`
}

// DescribeRequest sets the description of a boot environment or
// snapshot. Target may be "name" or "name@snapshot".
type DescribeRequest struct {
	Action      string `cbor:"action"`
	Object      string `cbor:"object,omitempty"`
	Target      string `cbor:"target,omitempty"`
	Description string `cbor:"description"`
}

// RollbackRequest rolls a boot environment back to one of its
// snapshots, discarding changes made since.
type RollbackRequest struct {
	Action   string `cbor:"action"`
	Object   string `cbor:"object,omitempty"`
	Target   string `cbor:"target,omitempty"`
	Snapshot string `cbor:"snapshot"`
}

// HostidRequest reads the host ID from inside a mounted boot
// environment.
type HostidRequest struct {
	Action string `cbor:"action"`
	Object string `cbor:"object,omitempty"`
	Target string `cbor:"target,omitempty"`
}

// HostidResponse carries the host ID. Valid is false when the boot
// environment has no readable etc/hostid file.
type HostidResponse struct {
	Hostid uint32 `cbor:"hostid"`
	Valid  bool   `cbor:"valid"`
}

// GetSnapshotsRequest lists the snapshots of a boot environment.
type GetSnapshotsRequest struct {
	Action string `cbor:"action"`
	Object string `cbor:"object,omitempty"`
	Target string `cbor:"target,omitempty"`
}

// GetSnapshotsResponse lists snapshots oldest first.
type GetSnapshotsResponse struct {
	Snapshots []SnapshotInfo `cbor:"snapshots"`
}

// GetManagedObjectsRequest requests discovery: every object the
// service manages with its full property set, in one consistent call.
type GetManagedObjectsRequest struct {
	Action string `cbor:"action"`
}

// GetManagedObjectsResponse maps object path to properties.
type GetManagedObjectsResponse struct {
	Objects map[string]Properties `cbor:"objects"`
}

// InitRequest prepares a pool for boot environment management.
type InitRequest struct {
	Action string `cbor:"action"`
	Pool   string `cbor:"pool"`
}

// StatusRequest is an unauthenticated liveness probe.
type StatusRequest struct {
	Action string `cbor:"action"`
}

// StatusResponse reports basic service state.
type StatusResponse struct {
	Root    string `cbor:"root"`
	Objects int    `cbor:"objects"`
}

// SubscribeRequest opens a notification stream.
type SubscribeRequest struct {
	Action string `cbor:"action"`
}

// --- Notification stream ---

// Frame types written on a subscribe stream.
const (
	// FrameAdded reports a new boot environment. Path and Properties
	// are populated.
	FrameAdded = "added"

	// FrameRemoved reports a destroyed boot environment. Only Path is
	// populated.
	FrameRemoved = "removed"

	// FrameChanged reports property changes on an existing boot
	// environment. Path, Properties (the new values), and Changed
	// (the names of properties that differ) are populated.
	FrameChanged = "changed"

	// FrameCaughtUp marks the end of the initial snapshot; live
	// notifications follow.
	FrameCaughtUp = "caught-up"

	// FrameHeartbeat is a connection liveness probe with no payload.
	FrameHeartbeat = "heartbeat"

	// FrameError is a terminal error; the connection closes after it.
	FrameError = "error"
)

// Frame is a single CBOR value written on a subscribe stream. The
// initial snapshot is a sequence of added frames followed by
// caught-up; after that, frames report live mutations.
type Frame struct {
	Type       string      `cbor:"type"`
	Path       string      `cbor:"path,omitempty"`
	Properties *Properties `cbor:"properties,omitempty"`
	Changed    []string    `cbor:"changed,omitempty"`
	Message    string      `cbor:"message,omitempty"`
}

// heartbeat and caught-up frames carry no payload and are shared.
var (
	HeartbeatFrame = Frame{Type: FrameHeartbeat}
	CaughtUpFrame  = Frame{Type: FrameCaughtUp}
)
