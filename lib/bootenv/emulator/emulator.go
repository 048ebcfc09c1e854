// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

// Package emulator provides an in-memory bootenv.Client that needs no
// ZFS pool and no privileges. It mirrors the semantics of the native
// implementation closely enough to back the service in tests and
// demos: the same names are rejected, the same conflicts are
// reported, and boot-once activation behaves the same way.
package emulator

import (
	"context"
	"hash/fnv"
	"sort"
	"strings"
	"sync"

	"github.com/kamacite/zbed/lib/bootenv"
	"github.com/kamacite/zbed/lib/clock"
)

// DefaultRoot is the dataset all emulated boot environments live
// under. The pool name is deliberately implausible so log output from
// an emulated service is not mistaken for a real one.
const DefaultRoot = "zfake/ROOT"

// emptySpace is the space reported for a boot environment with no
// contents.
const emptySpace = 8192

type environment struct {
	name        string
	guid        uint64
	description string
	space       uint64
	created     int64
	mountpoint  string // "" when not mounted
	snapshots   []*snapshot
}

type snapshot struct {
	name        string
	description string
	space       uint64
	created     int64
}

// Client is an in-memory boot environment manager. Safe for
// concurrent use.
type Client struct {
	clock clock.Clock

	mu           sync.Mutex
	root         string
	environments map[string]*environment
	activeName   string // mounted at /, "" for none
	nextName     string // permanent next-boot target, "" for none
	onceName     string // boot-once target, overrides nextName until cleared
}

// New creates an empty emulator rooted at root (DefaultRoot if
// empty). The clock drives creation timestamps; pass clock.Real() in
// production paths and a fake in tests.
func New(root string, clk clock.Clock) *Client {
	if root == "" {
		root = DefaultRoot
	}
	return &Client{
		clock:        clk,
		root:         root,
		environments: make(map[string]*environment),
	}
}

// Sampled creates an emulator pre-populated with a plausible system:
// a "default" boot environment that is active and set for next boot.
func Sampled(clk clock.Clock) *Client {
	client := New("", clk)
	now := clk.Now().Unix()
	client.environments["default"] = &environment{
		name:       "default",
		guid:       guidFor("default"),
		space:      emptySpace,
		created:    now,
		mountpoint: "/",
	}
	client.activeName = "default"
	client.nextName = "default"
	return client
}

// Root returns the dataset path boot environments live under.
func (c *Client) Root() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.root
}

// guidFor derives a stable GUID from a name. Deterministic so tests
// can predict object paths; assigned once at creation, so the GUID
// survives renames like a real ZFS guid does.
func guidFor(name string) uint64 {
	hash := fnv.New64a()
	hash.Write([]byte(name))
	return hash.Sum64()
}

// newGUID returns guidFor(name), rehashed as needed until it is
// unique among the live boot environments. A renamed boot environment
// keeps the hash of its original name, so creating a new one under
// that name would otherwise collide. Caller holds c.mu.
func (c *Client) newGUID(name string) uint64 {
	hash := fnv.New64a()
	hash.Write([]byte(name))
	guid := hash.Sum64()
	for c.guidInUse(guid) {
		hash.Write([]byte{0})
		guid = hash.Sum64()
	}
	return guid
}

func (c *Client) guidInUse(guid uint64) bool {
	for _, env := range c.environments {
		if env.guid == guid {
			return true
		}
	}
	return false
}

func (c *Client) datasetPath(name string) string {
	return c.root + "/" + name
}

func (c *Client) view(env *environment) bootenv.BootEnvironment {
	return bootenv.BootEnvironment{
		Name:        env.name,
		Path:        c.datasetPath(env.name),
		GUID:        env.guid,
		Description: env.description,
		Mountpoint:  env.mountpoint,
		Active:      env.name == c.activeName,
		NextBoot:    c.nextBootName() == env.name,
		BootOnce:    env.name == c.onceName,
		Space:       env.space,
		Created:     env.created,
	}
}

// nextBootName is the boot environment that will boot next: the
// boot-once target if one is pending, otherwise the permanent target.
func (c *Client) nextBootName() string {
	if c.onceName != "" {
		return c.onceName
	}
	return c.nextName
}

// List returns all boot environments sorted by creation time, then
// name.
func (c *Client) List(ctx context.Context) ([]bootenv.BootEnvironment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]bootenv.BootEnvironment, 0, len(c.environments))
	for _, env := range c.environments {
		result = append(result, c.view(env))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Created != result[j].Created {
			return result[i].Created < result[j].Created
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// Snapshots returns beName's snapshots oldest first.
func (c *Client) Snapshots(ctx context.Context, beName string) ([]bootenv.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	env, err := c.lookup(beName)
	if err != nil {
		return nil, err
	}
	result := make([]bootenv.Snapshot, 0, len(env.snapshots))
	for _, snap := range env.snapshots {
		result = append(result, bootenv.Snapshot{
			Name:        snap.name,
			Path:        c.datasetPath(env.name) + "@" + snap.name,
			ParentGUID:  env.guid,
			Description: snap.description,
			Space:       snap.space,
			Created:     snap.created,
		})
	}
	return result, nil
}

func (c *Client) lookup(name string) (*environment, error) {
	env, exists := c.environments[name]
	if !exists {
		return nil, bootenv.NotFound(name)
	}
	return env, nil
}

// checkNew validates a candidate name and checks it is unused.
func (c *Client) checkNew(name string) error {
	if err := bootenv.ValidateName(name, c.root); err != nil {
		return err
	}
	if _, exists := c.environments[name]; exists {
		return bootenv.Conflict(name)
	}
	return nil
}

// CreateEmpty creates a boot environment with no contents.
func (c *Client) CreateEmpty(ctx context.Context, name, description string) (bootenv.BootEnvironment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkNew(name); err != nil {
		return bootenv.BootEnvironment{}, err
	}
	env := &environment{
		name:        name,
		guid:        c.newGUID(name),
		description: description,
		space:       emptySpace,
		created:     c.clock.Now().Unix(),
	}
	c.environments[name] = env
	return c.view(env), nil
}

// Create clones a boot environment from a source. A nil source clones
// the active boot environment; a source with a snapshot part clones
// from that snapshot.
func (c *Client) Create(ctx context.Context, name, description string, source *bootenv.Label) (bootenv.BootEnvironment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkNew(name); err != nil {
		return bootenv.BootEnvironment{}, err
	}

	sourceName := c.activeName
	sourceSnapshot := ""
	if source != nil {
		sourceName = source.Name
		sourceSnapshot = source.Snapshot
	}
	if sourceName == "" {
		return bootenv.BootEnvironment{}, bootenv.NotFound("")
	}
	sourceEnv, err := c.lookup(sourceName)
	if err != nil {
		return bootenv.BootEnvironment{}, err
	}
	if sourceSnapshot != "" {
		if findSnapshot(sourceEnv, sourceSnapshot) == nil {
			return bootenv.BootEnvironment{}, bootenv.NotFound(sourceName + "@" + sourceSnapshot)
		}
	}

	// A clone shares its source's blocks; report the source's space.
	env := &environment{
		name:        name,
		guid:        c.newGUID(name),
		description: description,
		space:       sourceEnv.space,
		created:     c.clock.Now().Unix(),
	}
	c.environments[name] = env
	return c.view(env), nil
}

func findSnapshot(env *environment, name string) *snapshot {
	for _, snap := range env.snapshots {
		if snap.name == name {
			return snap
		}
	}
	return nil
}

// Snapshot snapshots a boot environment. A nil source snapshots the
// active one. When the source label names a snapshot, that name is
// used; otherwise a timestamp name is generated. Returns the snapshot
// name.
func (c *Client) Snapshot(ctx context.Context, source *bootenv.Label, description string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sourceName := c.activeName
	snapName := ""
	if source != nil {
		sourceName = source.Name
		snapName = source.Snapshot
	}
	env, err := c.lookup(sourceName)
	if err != nil {
		return "", err
	}

	if snapName == "" {
		snapName = bootenv.GenerateSnapshotName(c.clock.Now())
	} else if err := bootenv.ValidateSnapshotName(snapName); err != nil {
		return "", err
	}
	if findSnapshot(env, snapName) != nil {
		return "", bootenv.Conflict(env.name + "@" + snapName)
	}

	env.snapshots = append(env.snapshots, &snapshot{
		name:        snapName,
		description: description,
		space:       emptySpace,
		created:     c.clock.Now().Unix(),
	})
	return snapName, nil
}

// Destroy destroys a boot environment or, when the target label names
// a snapshot, just that snapshot. Destroying the next-boot target is
// permitted and leaves no next-boot target selected.
func (c *Client) Destroy(ctx context.Context, target bootenv.Label, opts bootenv.DestroyOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	env, err := c.lookup(target.Name)
	if err != nil {
		return err
	}

	if target.IsSnapshot() {
		snap := findSnapshot(env, target.Snapshot)
		if snap == nil {
			return bootenv.NotFound(target.String())
		}
		env.snapshots = removeSnapshot(env.snapshots, target.Snapshot)
		return nil
	}

	if env.name == c.activeName {
		return bootenv.ActiveDestroy(env.name)
	}
	if env.mountpoint != "" {
		if !opts.Unmount && !opts.Force {
			return bootenv.Mounted(env.name, env.mountpoint)
		}
		env.mountpoint = ""
	}
	if len(env.snapshots) > 0 && !opts.DestroySnapshots {
		return bootenv.Busy(env.name, "has snapshots")
	}

	delete(c.environments, env.name)
	if c.nextName == env.name {
		c.nextName = ""
	}
	if c.onceName == env.name {
		c.onceName = ""
	}
	return nil
}

func removeSnapshot(snapshots []*snapshot, name string) []*snapshot {
	for i, snap := range snapshots {
		if snap.name == name {
			return append(snapshots[:i], snapshots[i+1:]...)
		}
	}
	return snapshots
}

// Mount mounts a boot environment. An empty mountpoint picks the
// conventional location under the mount root. Returns the mountpoint.
func (c *Client) Mount(ctx context.Context, beName, mountpoint string, readOnly bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	env, err := c.lookup(beName)
	if err != nil {
		return "", err
	}
	if env.mountpoint != "" {
		return "", bootenv.AlreadyMounted(env.name, env.mountpoint)
	}
	if mountpoint == "" {
		mountpoint = bootenv.MountpointFor(beName)
	}
	env.mountpoint = mountpoint
	return mountpoint, nil
}

// Unmount unmounts a boot environment and returns the mountpoint it
// was mounted at. The active boot environment cannot be unmounted.
func (c *Client) Unmount(ctx context.Context, beName string, force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	env, err := c.lookup(beName)
	if err != nil {
		return "", err
	}
	if env.name == c.activeName {
		return "", bootenv.Busy(env.name, "cannot unmount the active boot environment")
	}
	if env.mountpoint == "" {
		return "", bootenv.NotMounted(env.name)
	}
	mountpoint := env.mountpoint
	env.mountpoint = ""
	return mountpoint, nil
}

// Hostid reports a synthetic host ID derived from the boot
// environment's GUID, standing in for the etc/hostid file a real
// system would carry. Requires the boot environment to be mounted.
func (c *Client) Hostid(ctx context.Context, beName string) (uint32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	env, err := c.lookup(beName)
	if err != nil {
		return 0, false, err
	}
	if env.mountpoint == "" {
		return 0, false, bootenv.NotMounted(env.name)
	}
	return uint32(env.guid), true, nil
}

// Rename renames a boot environment. The GUID is unchanged, so
// object paths derived from it remain valid.
func (c *Client) Rename(ctx context.Context, beName, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	env, err := c.lookup(beName)
	if err != nil {
		return err
	}
	if err := c.checkNew(newName); err != nil {
		return err
	}

	delete(c.environments, env.name)
	if c.activeName == env.name {
		c.activeName = newName
	}
	if c.nextName == env.name {
		c.nextName = newName
	}
	if c.onceName == env.name {
		c.onceName = newName
	}
	env.name = newName
	c.environments[newName] = env
	return nil
}

// Describe sets the description of a boot environment or snapshot.
func (c *Client) Describe(ctx context.Context, target bootenv.Label, description string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	env, err := c.lookup(target.Name)
	if err != nil {
		return err
	}
	if target.IsSnapshot() {
		snap := findSnapshot(env, target.Snapshot)
		if snap == nil {
			return bootenv.NotFound(target.String())
		}
		snap.description = description
		return nil
	}
	env.description = description
	return nil
}

// Activate selects a boot environment for the next boot. With
// bootOnce, the selection applies to the next boot only and the
// permanent target is untouched.
func (c *Client) Activate(ctx context.Context, beName string, bootOnce bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	env, err := c.lookup(beName)
	if err != nil {
		return err
	}
	if bootOnce {
		c.onceName = env.name
		return nil
	}
	c.nextName = env.name
	c.onceName = ""
	return nil
}

// ClearBootOnce reverts a pending boot-once activation, restoring the
// permanent next-boot target. A no-op when no boot-once activation is
// pending.
func (c *Client) ClearBootOnce(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onceName = ""
	return nil
}

// Rollback reverts a boot environment to a snapshot, discarding the
// snapshots taken after it.
func (c *Client) Rollback(ctx context.Context, beName, snapshotName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	env, err := c.lookup(beName)
	if err != nil {
		return err
	}
	target := findSnapshot(env, snapshotName)
	if target == nil {
		return bootenv.NotFound(beName + "@" + snapshotName)
	}

	kept := env.snapshots[:0]
	for _, snap := range env.snapshots {
		if snap.created <= target.created || snap == target {
			kept = append(kept, snap)
		}
	}
	env.snapshots = kept
	return nil
}

// Init prepares a pool for boot environment management. The emulator
// simulates a single pool: the one its root lives on.
func (c *Client) Init(ctx context.Context, pool string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rootPool, _, _ := strings.Cut(c.root, "/")
	if pool != rootPool {
		return bootenv.NotFound(pool)
	}
	if len(c.environments) > 0 {
		return bootenv.Conflict(c.root)
	}
	return nil
}
