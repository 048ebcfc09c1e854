// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package beservice

import (
	"context"

	"github.com/kamacite/zbed/lib/authz"
	"github.com/kamacite/zbed/lib/beproto"
	"github.com/kamacite/zbed/lib/bootenv"
	"github.com/kamacite/zbed/lib/codec"
	"github.com/kamacite/zbed/lib/rpc"
)

// Authorization action names, namespaced for policy globs like
// "bootenv/*".
const (
	actionAuthCreate        = "bootenv/create"
	actionAuthSnapshot      = "bootenv/snapshot"
	actionAuthDestroy       = "bootenv/destroy"
	actionAuthMount         = "bootenv/mount"
	actionAuthUnmount       = "bootenv/unmount"
	actionAuthRename        = "bootenv/rename"
	actionAuthActivate      = "bootenv/activate"
	actionAuthClearBootOnce = "bootenv/clear-boot-once"
	actionAuthDescribe      = "bootenv/describe"
	actionAuthRollback      = "bootenv/rollback"
	actionAuthInit          = "bootenv/init"
)

// register wires every protocol action to the socket server. Each
// handler is wrapped to record activity for the idle timer first.
func (s *Service) register(server *rpc.SocketServer) {
	handle := func(action string, handler rpc.ActionFunc) {
		server.Handle(action, func(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
			s.touch()
			return handler(ctx, caller, raw)
		})
	}

	handle(beproto.ActionCreate, s.handleCreate)
	handle(beproto.ActionCreateEmpty, s.handleCreateEmpty)
	handle(beproto.ActionSnapshot, s.handleSnapshot)
	handle(beproto.ActionDestroy, s.handleDestroy)
	handle(beproto.ActionDestroySnapshot, s.handleDestroySnapshot)
	handle(beproto.ActionMount, s.handleMount)
	handle(beproto.ActionUnmount, s.handleUnmount)
	handle(beproto.ActionRename, s.handleRename)
	handle(beproto.ActionActivate, s.handleActivate)
	handle(beproto.ActionClearBootOnce, s.handleClearBootOnce)
	handle(beproto.ActionDescribe, s.handleDescribe)
	handle(beproto.ActionRollback, s.handleRollback)
	handle(beproto.ActionHostid, s.handleHostid)
	handle(beproto.ActionGetSnapshots, s.handleGetSnapshots)
	handle(beproto.ActionGetManagedObjects, s.handleGetManagedObjects)
	handle(beproto.ActionInit, s.handleInit)
	handle(beproto.ActionStatus, s.handleStatus)

	server.HandleStream(beproto.ActionSubscribe, s.handleSubscribe)
}

func decode[T any](raw []byte) (T, error) {
	var request T
	if err := codec.Unmarshal(raw, &request); err != nil {
		return request, bootenv.ProtocolError("invalid request: " + err.Error())
	}
	return request, nil
}

func (s *Service) handleCreate(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	request, err := decode[beproto.CreateRequest](raw)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, actionAuthCreate, request.Name); err != nil {
		return nil, err
	}

	var source *bootenv.Label
	if request.Source != "" {
		label, err := bootenv.ParseLabel(request.Source)
		if err != nil {
			return nil, err
		}
		source = &label
	}

	be, err := s.client.Create(ctx, request.Name, request.Description, source)
	if err != nil {
		return nil, err
	}
	s.refreshAfterMutation(ctx)
	return beproto.CreateResponse{
		Object:     beproto.ObjectPath(be.GUID),
		Properties: beproto.PropertiesOf(be),
	}, nil
}

func (s *Service) handleCreateEmpty(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	request, err := decode[beproto.CreateEmptyRequest](raw)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, actionAuthCreate, request.Name); err != nil {
		return nil, err
	}

	be, err := s.client.CreateEmpty(ctx, request.Name, request.Description)
	if err != nil {
		return nil, err
	}
	s.refreshAfterMutation(ctx)
	return beproto.CreateResponse{
		Object:     beproto.ObjectPath(be.GUID),
		Properties: beproto.PropertiesOf(be),
	}, nil
}

func (s *Service) handleSnapshot(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	request, err := decode[beproto.SnapshotRequest](raw)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(request.Object, request.Target)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, actionAuthSnapshot, targetName(target)); err != nil {
		return nil, err
	}

	var source *bootenv.Label
	if target != "" {
		label, err := bootenv.ParseLabel(target)
		if err != nil {
			return nil, err
		}
		source = &label
	}

	name, err := s.client.Snapshot(ctx, source, request.Description)
	if err != nil {
		return nil, err
	}
	s.refreshAfterMutation(ctx)
	return beproto.SnapshotResponse{Name: name}, nil
}

// targetName strips a snapshot part for authorization purposes: policy
// targets are boot environment names.
func targetName(target string) string {
	label, err := bootenv.ParseLabel(target)
	if err != nil {
		return target
	}
	return label.Name
}

func (s *Service) handleDestroy(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	request, err := decode[beproto.DestroyRequest](raw)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(request.Object, request.Target)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, actionAuthDestroy, targetName(target)); err != nil {
		return nil, err
	}

	label, err := bootenv.ParseLabel(target)
	if err != nil {
		return nil, err
	}
	err = s.client.Destroy(ctx, label, bootenv.DestroyOptions{
		Force:            request.Force,
		Unmount:          request.Unmount,
		DestroySnapshots: request.DestroySnapshots,
	})
	if err != nil {
		return nil, err
	}
	s.refreshAfterMutation(ctx)
	return nil, nil
}

func (s *Service) handleDestroySnapshot(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	request, err := decode[beproto.DestroySnapshotRequest](raw)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(request.Object, request.Target)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, actionAuthDestroy, target); err != nil {
		return nil, err
	}

	err = s.client.Destroy(ctx, bootenv.Label{Name: target, Snapshot: request.Snapshot}, bootenv.DestroyOptions{})
	if err != nil {
		return nil, err
	}
	s.refreshAfterMutation(ctx)
	return nil, nil
}

func (s *Service) handleMount(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	request, err := decode[beproto.MountRequest](raw)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(request.Object, request.Target)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, actionAuthMount, target); err != nil {
		return nil, err
	}

	mountpoint, err := s.client.Mount(ctx, target, request.Mountpoint, request.ReadOnly)
	if err != nil {
		return nil, err
	}
	s.refreshAfterMutation(ctx)
	return beproto.MountResponse{Mountpoint: mountpoint}, nil
}

func (s *Service) handleUnmount(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	request, err := decode[beproto.UnmountRequest](raw)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(request.Object, request.Target)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, actionAuthUnmount, target); err != nil {
		return nil, err
	}

	mountpoint, err := s.client.Unmount(ctx, target, request.Force)
	if err != nil {
		return nil, err
	}
	s.refreshAfterMutation(ctx)
	return beproto.UnmountResponse{Mountpoint: mountpoint}, nil
}

func (s *Service) handleRename(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	request, err := decode[beproto.RenameRequest](raw)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(request.Object, request.Target)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, actionAuthRename, target); err != nil {
		return nil, err
	}

	if err := s.client.Rename(ctx, target, request.NewName); err != nil {
		return nil, err
	}
	s.refreshAfterMutation(ctx)
	return nil, nil
}

func (s *Service) handleActivate(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	request, err := decode[beproto.ActivateRequest](raw)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(request.Object, request.Target)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, actionAuthActivate, target); err != nil {
		return nil, err
	}

	if err := s.client.Activate(ctx, target, request.BootOnce); err != nil {
		return nil, err
	}
	s.refreshAfterMutation(ctx)
	return nil, nil
}

func (s *Service) handleClearBootOnce(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	if _, err := decode[beproto.ClearBootOnceRequest](raw); err != nil {
		return nil, err
	}
	if err := s.authorize(caller, actionAuthClearBootOnce, ""); err != nil {
		return nil, err
	}

	if err := s.client.ClearBootOnce(ctx); err != nil {
		return nil, err
	}
	s.refreshAfterMutation(ctx)
	return nil, nil
}

func (s *Service) handleDescribe(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	request, err := decode[beproto.DescribeRequest](raw)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(request.Object, request.Target)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, actionAuthDescribe, targetName(target)); err != nil {
		return nil, err
	}

	label, err := bootenv.ParseLabel(target)
	if err != nil {
		return nil, err
	}
	if err := s.client.Describe(ctx, label, request.Description); err != nil {
		return nil, err
	}
	s.refreshAfterMutation(ctx)
	return nil, nil
}

func (s *Service) handleRollback(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	request, err := decode[beproto.RollbackRequest](raw)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(request.Object, request.Target)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, actionAuthRollback, target); err != nil {
		return nil, err
	}

	if err := s.client.Rollback(ctx, target, request.Snapshot); err != nil {
		return nil, err
	}
	s.refreshAfterMutation(ctx)
	return nil, nil
}

func (s *Service) handleHostid(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	request, err := decode[beproto.HostidRequest](raw)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(request.Object, request.Target)
	if err != nil {
		return nil, err
	}

	hostid, valid, err := s.client.Hostid(ctx, target)
	if err != nil {
		return nil, err
	}
	return beproto.HostidResponse{Hostid: hostid, Valid: valid}, nil
}

func (s *Service) handleGetSnapshots(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	request, err := decode[beproto.GetSnapshotsRequest](raw)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(request.Object, request.Target)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.client.Snapshots(ctx, target)
	if err != nil {
		return nil, err
	}
	response := beproto.GetSnapshotsResponse{
		Snapshots: make([]beproto.SnapshotInfo, 0, len(snapshots)),
	}
	for _, snapshot := range snapshots {
		response.Snapshots = append(response.Snapshots, beproto.SnapshotInfoOf(snapshot))
	}
	return response, nil
}

func (s *Service) handleGetManagedObjects(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	// Refresh first so discovery reflects changes made outside the
	// service since the last request.
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	response := beproto.GetManagedObjectsResponse{
		Objects: make(map[string]beproto.Properties, len(s.objects)),
	}
	for guid, properties := range s.objects {
		response.Objects[beproto.ObjectPath(guid)] = properties
	}
	return response, nil
}

func (s *Service) handleInit(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	request, err := decode[beproto.InitRequest](raw)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, actionAuthInit, request.Pool); err != nil {
		return nil, err
	}

	if err := s.client.Init(ctx, request.Pool); err != nil {
		return nil, err
	}
	s.refreshAfterMutation(ctx)
	return nil, nil
}

func (s *Service) handleStatus(ctx context.Context, caller authz.Caller, raw []byte) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return beproto.StatusResponse{
		Root:    s.root,
		Objects: len(s.objects),
	}, nil
}
