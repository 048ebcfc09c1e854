// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package beservice

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kamacite/zbed/lib/authz"
	"github.com/kamacite/zbed/lib/beproto"
	"github.com/kamacite/zbed/lib/bootenv/emulator"
	"github.com/kamacite/zbed/lib/clock"
	"github.com/kamacite/zbed/lib/rpc"
	"github.com/kamacite/zbed/lib/testutil"
)

type fixture struct {
	client    *rpc.Client
	emulator  *emulator.Client
	clock     *clock.FakeClock
	runDone   chan error
	cancelRun context.CancelFunc
}

// startService runs a service over a sampled emulator on a temporary
// socket and returns a connected rpc client.
func startService(t *testing.T, configure func(*Config)) *fixture {
	t.Helper()

	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	emulated := emulator.Sampled(fake)
	socketPath := filepath.Join(testutil.SocketDir(t), "zbed.sock")

	config := Config{
		SocketPath: socketPath,
		Client:     emulated,
		Root:       emulated.Root(),
		Authorizer: authz.AllowAll{},
		Clock:      fake,
		Logger:     slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	if configure != nil {
		configure(&config)
	}
	service := New(config)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() {
		runDone <- service.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, runDone, 5*time.Second, "Run never returned"); err != nil {
			t.Errorf("Run: %v", err)
		}
	})

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("socket never appeared")
		}
		time.Sleep(5 * time.Millisecond)
	}

	return &fixture{
		client:    rpc.NewClient(socketPath),
		emulator:  emulated,
		clock:     fake,
		runDone:   runDone,
		cancelRun: cancel,
	}
}

func (f *fixture) call(t *testing.T, action string, request, result any) {
	t.Helper()
	if err := f.client.Call(context.Background(), action, request, result); err != nil {
		t.Fatalf("%s: %v", action, err)
	}
}

func (f *fixture) managedObjects(t *testing.T) map[string]beproto.Properties {
	t.Helper()
	var response beproto.GetManagedObjectsResponse
	f.call(t, beproto.ActionGetManagedObjects, beproto.GetManagedObjectsRequest{
		Action: beproto.ActionGetManagedObjects,
	}, &response)
	return response.Objects
}

func TestLifecycleScenario(t *testing.T) {
	f := startService(t, nil)
	ctx := context.Background()

	// Discovery sees the sampled default environment.
	objects := f.managedObjects(t)
	if len(objects) != 1 {
		t.Fatalf("initial objects = %d, want 1", len(objects))
	}

	// Create an empty boot environment.
	var created beproto.CreateResponse
	f.call(t, beproto.ActionCreateEmpty, beproto.CreateEmptyRequest{
		Action:      beproto.ActionCreateEmpty,
		Name:        "testing",
		Description: "trying a kernel",
	}, &created)
	if created.Properties.Name != "testing" {
		t.Errorf("created name = %q", created.Properties.Name)
	}
	if _, err := beproto.ParseObjectPath(created.Object); err != nil {
		t.Errorf("created object path %q: %v", created.Object, err)
	}

	// Activate it, addressed by object path.
	f.call(t, beproto.ActionActivate, beproto.ActivateRequest{
		Action: beproto.ActionActivate,
		Object: created.Object,
	}, nil)
	objects = f.managedObjects(t)
	if !objects[created.Object].NextBoot {
		t.Error("activated environment should have next_boot")
	}
	if objects[created.Object].Active {
		t.Error("activation must not mark the environment active")
	}

	// Rename it: the object path survives, the name moves.
	f.call(t, beproto.ActionRename, beproto.RenameRequest{
		Action:  beproto.ActionRename,
		Object:  created.Object,
		NewName: "release",
	}, nil)
	objects = f.managedObjects(t)
	properties, exists := objects[created.Object]
	if !exists {
		t.Fatal("object path vanished after rename")
	}
	if properties.Name != "release" || !properties.NextBoot {
		t.Errorf("renamed properties = %+v", properties)
	}

	// Snapshot it by name and list the snapshots.
	var snapped beproto.SnapshotResponse
	f.call(t, beproto.ActionSnapshot, beproto.SnapshotRequest{
		Action: beproto.ActionSnapshot,
		Target: "release@before-upgrade",
	}, &snapped)
	if snapped.Name != "before-upgrade" {
		t.Errorf("snapshot name = %q", snapped.Name)
	}
	var snapshots beproto.GetSnapshotsResponse
	f.call(t, beproto.ActionGetSnapshots, beproto.GetSnapshotsRequest{
		Action: beproto.ActionGetSnapshots,
		Object: created.Object,
	}, &snapshots)
	if len(snapshots.Snapshots) != 1 || snapshots.Snapshots[0].Name != "before-upgrade" {
		t.Errorf("snapshots = %+v", snapshots.Snapshots)
	}

	// Destroy it (with its snapshots): the object disappears and no
	// next-boot target remains.
	f.call(t, beproto.ActionDestroy, beproto.DestroyRequest{
		Action:           beproto.ActionDestroy,
		Object:           created.Object,
		DestroySnapshots: true,
	}, nil)
	objects = f.managedObjects(t)
	if _, exists := objects[created.Object]; exists {
		t.Error("destroyed object still present")
	}
	for path, properties := range objects {
		if properties.NextBoot {
			t.Errorf("%s still marked next_boot after target was destroyed", path)
		}
	}

	// Addressing the destroyed object now fails cleanly.
	err := f.client.Call(ctx, beproto.ActionActivate, beproto.ActivateRequest{
		Action: beproto.ActionActivate,
		Object: created.Object,
	}, nil)
	var serviceErr *rpc.ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Kind != "not-found" {
		t.Errorf("stale object error = %v", err)
	}
}

func TestStatus(t *testing.T) {
	f := startService(t, nil)

	var status beproto.StatusResponse
	f.call(t, beproto.ActionStatus, beproto.StatusRequest{Action: beproto.ActionStatus}, &status)
	if status.Root != emulator.DefaultRoot {
		t.Errorf("root = %q", status.Root)
	}
	if status.Objects != 1 {
		t.Errorf("objects = %d, want 1", status.Objects)
	}
}

func TestAuthorizationDenied(t *testing.T) {
	f := startService(t, func(config *Config) {
		config.Authorizer = authz.DenyAll{}
	})
	ctx := context.Background()

	err := f.client.Call(ctx, beproto.ActionCreateEmpty, beproto.CreateEmptyRequest{
		Action: beproto.ActionCreateEmpty,
		Name:   "forbidden",
	}, nil)
	var serviceErr *rpc.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected *rpc.ServiceError, got %v", err)
	}
	if serviceErr.Kind != "unauthorized" {
		t.Errorf("kind = %q, want unauthorized", serviceErr.Kind)
	}

	// The denied mutation must not have happened.
	if len(f.managedObjects(t)) != 1 {
		t.Error("denied create still created an environment")
	}

	// Read-only actions remain available.
	var status beproto.StatusResponse
	f.call(t, beproto.ActionStatus, beproto.StatusRequest{Action: beproto.ActionStatus}, &status)
}

func TestSubscribeNotifications(t *testing.T) {
	f := startService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	decoder, closer, err := f.client.Stream(ctx, beproto.SubscribeRequest{Action: beproto.ActionSubscribe})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer closer.Close()

	frames := make(chan beproto.Frame, 16)
	go func() {
		for {
			var frame beproto.Frame
			if err := decoder.Decode(&frame); err != nil {
				close(frames)
				return
			}
			frames <- frame
		}
	}()

	next := func() beproto.Frame {
		return testutil.RequireReceive(t, frames, 5*time.Second, "no frame")
	}

	// Snapshot phase: one added frame for the sampled default, then
	// caught-up.
	frame := next()
	if frame.Type != beproto.FrameAdded || frame.Properties == nil || frame.Properties.Name != "default" {
		t.Fatalf("snapshot frame = %+v", frame)
	}
	if frame = next(); frame.Type != beproto.FrameCaughtUp {
		t.Fatalf("expected caught-up, got %+v", frame)
	}

	// A create surfaces as an added frame.
	var created beproto.CreateResponse
	f.call(t, beproto.ActionCreateEmpty, beproto.CreateEmptyRequest{
		Action: beproto.ActionCreateEmpty,
		Name:   "watched",
	}, &created)
	frame = next()
	if frame.Type != beproto.FrameAdded || frame.Path != created.Object {
		t.Fatalf("added frame = %+v", frame)
	}

	// A rename surfaces as a changed frame naming the moved fields,
	// on the same object path.
	f.call(t, beproto.ActionRename, beproto.RenameRequest{
		Action:  beproto.ActionRename,
		Object:  created.Object,
		NewName: "observed",
	}, nil)
	frame = next()
	if frame.Type != beproto.FrameChanged || frame.Path != created.Object {
		t.Fatalf("changed frame = %+v", frame)
	}
	if len(frame.Changed) != 2 || frame.Changed[0] != "name" || frame.Changed[1] != "path" {
		t.Errorf("changed fields = %v, want [name path]", frame.Changed)
	}
	if frame.Properties == nil || frame.Properties.Name != "observed" {
		t.Errorf("changed properties = %+v", frame.Properties)
	}

	// A destroy surfaces as a removed frame.
	f.call(t, beproto.ActionDestroy, beproto.DestroyRequest{
		Action: beproto.ActionDestroy,
		Object: created.Object,
	}, nil)
	frame = next()
	if frame.Type != beproto.FrameRemoved || frame.Path != created.Object {
		t.Fatalf("removed frame = %+v", frame)
	}
}

func TestExternalChangesReachSubscribers(t *testing.T) {
	f := startService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	decoder, closer, err := f.client.Stream(ctx, beproto.SubscribeRequest{Action: beproto.ActionSubscribe})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer closer.Close()

	frames := make(chan beproto.Frame, 16)
	go func() {
		for {
			var frame beproto.Frame
			if err := decoder.Decode(&frame); err != nil {
				close(frames)
				return
			}
			frames <- frame
		}
	}()

	// Drain the snapshot.
	for {
		frame := testutil.RequireReceive(t, frames, 5*time.Second, "no snapshot frame")
		if frame.Type == beproto.FrameCaughtUp {
			break
		}
	}

	// Mutate the backing store directly, as the zfs CLI would. The
	// periodic refresh notices it.
	if _, err := f.emulator.CreateEmpty(ctx, "external", ""); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(refreshInterval)

	frame := testutil.RequireReceive(t, frames, 5*time.Second, "external change never surfaced")
	if frame.Type != beproto.FrameAdded || frame.Properties == nil || frame.Properties.Name != "external" {
		t.Errorf("frame = %+v", frame)
	}
}

func TestIdleShutdown(t *testing.T) {
	f := startService(t, nil)

	// Partway through the idle window, a request arrives and resets
	// it: the service must survive a full window measured from start.
	half := DefaultIdleTimeout / 2
	advanceBy(f, half)
	select {
	case err := <-f.runDone:
		t.Fatalf("service exited before the idle timeout: %v", err)
	default:
	}

	var status beproto.StatusResponse
	f.call(t, beproto.ActionStatus, beproto.StatusRequest{Action: beproto.ActionStatus}, &status)

	advanceBy(f, half)
	select {
	case err := <-f.runDone:
		t.Fatalf("request did not reset the idle window: %v", err)
	default:
	}

	// With no further activity, the service exits on its own.
	advanceBy(f, DefaultIdleTimeout)
	if err := testutil.RequireReceive(t, f.runDone, 5*time.Second, "service never idled out"); err != nil {
		t.Errorf("Run: %v", err)
	}
	// Disarm the cleanup receive.
	f.runDone <- nil
}

// advanceBy moves the fake clock forward in refresh-interval steps,
// yielding between steps so the background loop observes each tick.
func advanceBy(f *fixture, d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += refreshInterval {
		f.clock.Advance(refreshInterval)
		time.Sleep(2 * time.Millisecond)
	}
}
