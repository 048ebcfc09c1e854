// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package remote

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kamacite/zbed/lib/authz"
	"github.com/kamacite/zbed/lib/beproto"
	"github.com/kamacite/zbed/lib/beservice"
	"github.com/kamacite/zbed/lib/bootenv"
	"github.com/kamacite/zbed/lib/bootenv/emulator"
	"github.com/kamacite/zbed/lib/clock"
	"github.com/kamacite/zbed/lib/testutil"
)

// startService runs an emulator-backed service and returns a remote
// client connected to it.
func startService(t *testing.T) *Client {
	t.Helper()

	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	emulated := emulator.Sampled(fake)
	socketPath := filepath.Join(testutil.SocketDir(t), "zbed.sock")

	service := beservice.New(beservice.Config{
		SocketPath: socketPath,
		Client:     emulated,
		Root:       emulated.Root(),
		Authorizer: authz.AllowAll{},
		Clock:      fake,
		Logger:     slog.New(slog.NewTextHandler(os.Stderr, nil)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- service.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, done, 5*time.Second, "service never stopped"); err != nil {
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
	return New(socketPath)
}

// TestConformance runs the same behavioral checks the emulator's own
// tests make, but through the full service round trip: wire errors
// must come back as the same typed kinds a local client returns.
func TestConformance(t *testing.T) {
	client := startService(t)
	ctx := context.Background()

	t.Run("list", func(t *testing.T) {
		environments, err := client.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(environments) != 1 || environments[0].Name != "default" {
			t.Fatalf("environments = %+v", environments)
		}
		if !environments[0].Active || !environments[0].NextBoot {
			t.Errorf("default flags = %+v", environments[0])
		}
	})

	t.Run("invalid name kinds survive the wire", func(t *testing.T) {
		_, err := client.CreateEmpty(ctx, "bad name", "")
		if bootenv.KindOf(err) != bootenv.KindInvalidName {
			t.Errorf("kind = %v, want InvalidName", bootenv.KindOf(err))
		}
		_, err = client.CreateEmpty(ctx, "", "")
		if bootenv.KindOf(err) != bootenv.KindInvalidName {
			t.Errorf("empty name: kind = %v, want InvalidName", bootenv.KindOf(err))
		}
	})

	t.Run("lifecycle", func(t *testing.T) {
		be, err := client.CreateEmpty(ctx, "trial", "wire test")
		if err != nil {
			t.Fatalf("CreateEmpty: %v", err)
		}
		if be.Name != "trial" || be.Description != "wire test" {
			t.Errorf("created = %+v", be)
		}

		_, err = client.CreateEmpty(ctx, "trial", "")
		if bootenv.KindOf(err) != bootenv.KindAlreadyExists {
			t.Errorf("duplicate: kind = %v, want AlreadyExists", bootenv.KindOf(err))
		}

		name, err := client.Snapshot(ctx, &bootenv.Label{Name: "trial", Snapshot: "first"}, "")
		if err != nil || name != "first" {
			t.Fatalf("Snapshot = %q, %v", name, err)
		}
		snapshots, err := client.Snapshots(ctx, "trial")
		if err != nil || len(snapshots) != 1 || snapshots[0].Name != "first" {
			t.Fatalf("Snapshots = %+v, %v", snapshots, err)
		}
		if snapshots[0].ParentGUID != be.GUID {
			t.Errorf("snapshot ParentGUID = %#x, want %#x", snapshots[0].ParentGUID, be.GUID)
		}

		if _, _, err := client.Hostid(ctx, "trial"); bootenv.KindOf(err) != bootenv.KindNotMounted {
			t.Errorf("hostid unmounted: kind = %v, want NotMounted", bootenv.KindOf(err))
		}

		mountpoint, err := client.Mount(ctx, "trial", "", false)
		if err != nil {
			t.Fatalf("Mount: %v", err)
		}
		hostid, ok, err := client.Hostid(ctx, "trial")
		if err != nil || !ok {
			t.Fatalf("Hostid = %v, %v, %v", hostid, ok, err)
		}
		if hostid != uint32(be.GUID) {
			t.Errorf("hostid = %#x, want low 32 bits of guid %#x", hostid, be.GUID)
		}
		if _, err := client.Mount(ctx, "trial", "", false); bootenv.KindOf(err) != bootenv.KindAlreadyMounted {
			t.Errorf("double mount: kind = %v, want AlreadyMounted", bootenv.KindOf(err))
		}
		released, err := client.Unmount(ctx, "trial", false)
		if err != nil || released != mountpoint {
			t.Fatalf("Unmount = %q, %v (mounted at %q)", released, err, mountpoint)
		}

		if err := client.Rename(ctx, "trial", "proven"); err != nil {
			t.Fatalf("Rename: %v", err)
		}
		if err := client.Activate(ctx, "proven", true); err != nil {
			t.Fatalf("Activate boot-once: %v", err)
		}
		if err := client.ClearBootOnce(ctx); err != nil {
			t.Fatalf("ClearBootOnce: %v", err)
		}
		if err := client.Rollback(ctx, "proven", "first"); err != nil {
			t.Fatalf("Rollback: %v", err)
		}
		if err := client.Describe(ctx, bootenv.Label{Name: "proven"}, "done"); err != nil {
			t.Fatalf("Describe: %v", err)
		}

		err = client.Destroy(ctx, bootenv.Label{Name: "proven"}, bootenv.DestroyOptions{DestroySnapshots: true})
		if err != nil {
			t.Fatalf("Destroy: %v", err)
		}
		if _, err := client.Snapshots(ctx, "proven"); bootenv.KindOf(err) != bootenv.KindNotFound {
			t.Errorf("destroyed lookup: kind = %v, want NotFound", bootenv.KindOf(err))
		}
	})

	t.Run("active is protected", func(t *testing.T) {
		err := client.Destroy(ctx, bootenv.Label{Name: "default"}, bootenv.DestroyOptions{})
		if bootenv.KindOf(err) != bootenv.KindActive {
			t.Errorf("kind = %v, want Active", bootenv.KindOf(err))
		}
	})

	t.Run("init", func(t *testing.T) {
		if err := client.Init(ctx, "zfake"); bootenv.KindOf(err) != bootenv.KindAlreadyExists {
			t.Errorf("init populated pool: kind = %v, want AlreadyExists", bootenv.KindOf(err))
		}
		if err := client.Init(ctx, "nosuchpool"); bootenv.KindOf(err) != bootenv.KindNotFound {
			t.Errorf("init unknown pool: kind = %v, want NotFound", bootenv.KindOf(err))
		}
	})
}

func TestStatus(t *testing.T) {
	client := startService(t)

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Root != emulator.DefaultRoot || status.Objects != 1 {
		t.Errorf("status = %+v", status)
	}
}

func TestSubscribe(t *testing.T) {
	client := startService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames, err := client.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// Initial snapshot: added for the sampled default, then caught-up.
	frame := testutil.RequireReceive(t, frames, 5*time.Second, "no snapshot frame")
	if frame.Type != beproto.FrameAdded {
		t.Fatalf("first frame = %+v", frame)
	}
	frame = testutil.RequireReceive(t, frames, 5*time.Second, "no caught-up frame")
	if frame.Type != beproto.FrameCaughtUp {
		t.Fatalf("second frame = %+v", frame)
	}

	// A mutation through the same client surfaces on the stream.
	if _, err := client.CreateEmpty(ctx, "announced", ""); err != nil {
		t.Fatal(err)
	}
	frame = testutil.RequireReceive(t, frames, 5*time.Second, "no added frame")
	if frame.Type != beproto.FrameAdded || frame.Properties == nil || frame.Properties.Name != "announced" {
		t.Errorf("frame = %+v", frame)
	}
}
