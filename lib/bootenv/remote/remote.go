// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

// Package remote implements bootenv.Client against a running
// zbed-service socket. It is stateless between calls: every operation
// is one request-response exchange, and typed errors are rebuilt from
// the wire kind so callers handle failures the same way regardless of
// which client implementation they hold.
package remote

import (
	"context"
	"errors"
	"sort"

	"github.com/kamacite/zbed/lib/beproto"
	"github.com/kamacite/zbed/lib/bootenv"
	"github.com/kamacite/zbed/lib/rpc"
)

// Client talks to a zbed-service socket.
type Client struct {
	rpc *rpc.Client
}

// New creates a client for the service at socketPath
// (beproto.DefaultSocketPath if empty).
func New(socketPath string) *Client {
	if socketPath == "" {
		socketPath = beproto.DefaultSocketPath
	}
	return &Client{rpc: rpc.NewClient(socketPath)}
}

// translate rebuilds a typed bootenv error from a service failure.
// Responses without a recognized kind stay as protocol errors;
// transport failures pass through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var serviceErr *rpc.ServiceError
	if !errors.As(err, &serviceErr) {
		return err
	}
	kind := bootenv.KindFromWireID(serviceErr.Kind)
	if kind == bootenv.KindUnknown {
		return bootenv.ProtocolError(serviceErr.Message)
	}
	return &bootenv.Error{Kind: kind, Reason: serviceErr.Message, Err: serviceErr}
}

// List discovers all boot environments, sorted by creation time then
// name.
func (c *Client) List(ctx context.Context) ([]bootenv.BootEnvironment, error) {
	var response beproto.GetManagedObjectsResponse
	err := c.rpc.Call(ctx, beproto.ActionGetManagedObjects, beproto.GetManagedObjectsRequest{
		Action: beproto.ActionGetManagedObjects,
	}, &response)
	if err != nil {
		return nil, translate(err)
	}

	result := make([]bootenv.BootEnvironment, 0, len(response.Objects))
	for _, properties := range response.Objects {
		result = append(result, properties.BootEnvironment())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Created != result[j].Created {
			return result[i].Created < result[j].Created
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// Snapshots lists beName's snapshots oldest first.
func (c *Client) Snapshots(ctx context.Context, beName string) ([]bootenv.Snapshot, error) {
	var response beproto.GetSnapshotsResponse
	err := c.rpc.Call(ctx, beproto.ActionGetSnapshots, beproto.GetSnapshotsRequest{
		Action: beproto.ActionGetSnapshots,
		Target: beName,
	}, &response)
	if err != nil {
		return nil, translate(err)
	}

	result := make([]bootenv.Snapshot, 0, len(response.Snapshots))
	for _, info := range response.Snapshots {
		result = append(result, info.Snapshot())
	}
	return result, nil
}

func (c *Client) CreateEmpty(ctx context.Context, name, description string) (bootenv.BootEnvironment, error) {
	var response beproto.CreateResponse
	err := c.rpc.Call(ctx, beproto.ActionCreateEmpty, beproto.CreateEmptyRequest{
		Action:      beproto.ActionCreateEmpty,
		Name:        name,
		Description: description,
	}, &response)
	if err != nil {
		return bootenv.BootEnvironment{}, translate(err)
	}
	return response.Properties.BootEnvironment(), nil
}

func (c *Client) Create(ctx context.Context, name, description string, source *bootenv.Label) (bootenv.BootEnvironment, error) {
	request := beproto.CreateRequest{
		Action:      beproto.ActionCreate,
		Name:        name,
		Description: description,
	}
	if source != nil {
		request.Source = source.String()
	}
	var response beproto.CreateResponse
	if err := c.rpc.Call(ctx, beproto.ActionCreate, request, &response); err != nil {
		return bootenv.BootEnvironment{}, translate(err)
	}
	return response.Properties.BootEnvironment(), nil
}

func (c *Client) Snapshot(ctx context.Context, source *bootenv.Label, description string) (string, error) {
	request := beproto.SnapshotRequest{
		Action:      beproto.ActionSnapshot,
		Description: description,
	}
	if source != nil {
		request.Target = source.String()
	}
	var response beproto.SnapshotResponse
	if err := c.rpc.Call(ctx, beproto.ActionSnapshot, request, &response); err != nil {
		return "", translate(err)
	}
	return response.Name, nil
}

func (c *Client) Destroy(ctx context.Context, target bootenv.Label, opts bootenv.DestroyOptions) error {
	if target.IsSnapshot() {
		return translate(c.rpc.Call(ctx, beproto.ActionDestroySnapshot, beproto.DestroySnapshotRequest{
			Action:   beproto.ActionDestroySnapshot,
			Target:   target.Name,
			Snapshot: target.Snapshot,
		}, nil))
	}
	return translate(c.rpc.Call(ctx, beproto.ActionDestroy, beproto.DestroyRequest{
		Action:           beproto.ActionDestroy,
		Target:           target.Name,
		Force:            opts.Force,
		Unmount:          opts.Unmount,
		DestroySnapshots: opts.DestroySnapshots,
	}, nil))
}

func (c *Client) Mount(ctx context.Context, beName, mountpoint string, readOnly bool) (string, error) {
	var response beproto.MountResponse
	err := c.rpc.Call(ctx, beproto.ActionMount, beproto.MountRequest{
		Action:     beproto.ActionMount,
		Target:     beName,
		Mountpoint: mountpoint,
		ReadOnly:   readOnly,
	}, &response)
	if err != nil {
		return "", translate(err)
	}
	return response.Mountpoint, nil
}

func (c *Client) Unmount(ctx context.Context, beName string, force bool) (string, error) {
	var response beproto.UnmountResponse
	err := c.rpc.Call(ctx, beproto.ActionUnmount, beproto.UnmountRequest{
		Action: beproto.ActionUnmount,
		Target: beName,
		Force:  force,
	}, &response)
	if err != nil {
		return "", translate(err)
	}
	return response.Mountpoint, nil
}

func (c *Client) Hostid(ctx context.Context, beName string) (uint32, bool, error) {
	var response beproto.HostidResponse
	err := c.rpc.Call(ctx, beproto.ActionHostid, beproto.HostidRequest{
		Action: beproto.ActionHostid,
		Target: beName,
	}, &response)
	if err != nil {
		return 0, false, translate(err)
	}
	return response.Hostid, response.Valid, nil
}

func (c *Client) Rename(ctx context.Context, beName, newName string) error {
	return translate(c.rpc.Call(ctx, beproto.ActionRename, beproto.RenameRequest{
		Action:  beproto.ActionRename,
		Target:  beName,
		NewName: newName,
	}, nil))
}

func (c *Client) Describe(ctx context.Context, target bootenv.Label, description string) error {
	return translate(c.rpc.Call(ctx, beproto.ActionDescribe, beproto.DescribeRequest{
		Action:      beproto.ActionDescribe,
		Target:      target.String(),
		Description: description,
	}, nil))
}

func (c *Client) Activate(ctx context.Context, beName string, bootOnce bool) error {
	return translate(c.rpc.Call(ctx, beproto.ActionActivate, beproto.ActivateRequest{
		Action:   beproto.ActionActivate,
		Target:   beName,
		BootOnce: bootOnce,
	}, nil))
}

func (c *Client) ClearBootOnce(ctx context.Context) error {
	return translate(c.rpc.Call(ctx, beproto.ActionClearBootOnce, beproto.ClearBootOnceRequest{
		Action: beproto.ActionClearBootOnce,
	}, nil))
}

func (c *Client) Rollback(ctx context.Context, beName, snapshotName string) error {
	return translate(c.rpc.Call(ctx, beproto.ActionRollback, beproto.RollbackRequest{
		Action:   beproto.ActionRollback,
		Target:   beName,
		Snapshot: snapshotName,
	}, nil))
}

func (c *Client) Init(ctx context.Context, pool string) error {
	return translate(c.rpc.Call(ctx, beproto.ActionInit, beproto.InitRequest{
		Action: beproto.ActionInit,
		Pool:   pool,
	}, nil))
}

// Status probes the service without touching any boot environment.
// Not part of bootenv.Client; the CLI uses it for health checks.
func (c *Client) Status(ctx context.Context) (beproto.StatusResponse, error) {
	var response beproto.StatusResponse
	err := c.rpc.Call(ctx, beproto.ActionStatus, beproto.StatusRequest{
		Action: beproto.ActionStatus,
	}, &response)
	if err != nil {
		return beproto.StatusResponse{}, translate(err)
	}
	return response, nil
}

// Subscribe opens a notification stream and delivers frames to the
// returned channel until ctx ends or the stream fails. The channel is
// closed when the stream ends.
func (c *Client) Subscribe(ctx context.Context) (<-chan beproto.Frame, error) {
	decoder, closer, err := c.rpc.Stream(ctx, beproto.SubscribeRequest{
		Action: beproto.ActionSubscribe,
	})
	if err != nil {
		return nil, err
	}

	frames := make(chan beproto.Frame)
	go func() {
		defer close(frames)
		defer closer.Close()
		for {
			var frame beproto.Frame
			if err := decoder.Decode(&frame); err != nil {
				return
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()
	return frames, nil
}

var _ bootenv.Client = (*Client)(nil)
