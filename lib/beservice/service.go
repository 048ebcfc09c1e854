// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

// Package beservice implements the zbed protocol service: the CBOR
// socket front end over a bootenv.Client. It maintains an object
// table keyed by GUID, emits change notifications to subscribers, and
// shuts itself down after a period with no requests.
package beservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kamacite/zbed/lib/authz"
	"github.com/kamacite/zbed/lib/beproto"
	"github.com/kamacite/zbed/lib/bootenv"
	"github.com/kamacite/zbed/lib/bootenv/serial"
	"github.com/kamacite/zbed/lib/clock"
	"github.com/kamacite/zbed/lib/rpc"
)

// DefaultIdleTimeout is how long the service stays up with no
// requests before exiting. Socket activation restarts it on demand,
// so there is no reason to sit resident on a machine nobody is
// managing boot environments on.
const DefaultIdleTimeout = 5 * time.Minute

// refreshInterval is how often the service re-lists boot environments
// while running, so changes made behind its back (zfs(8), another
// tool) show up in the object table and reach subscribers.
const refreshInterval = 10 * time.Second

// Config assembles a Service.
type Config struct {
	// SocketPath is where to listen. Defaults to
	// beproto.DefaultSocketPath.
	SocketPath string

	// Client performs the actual boot environment operations. The
	// service wraps it in a serializing wrapper; it does not need to
	// be safe for concurrent use.
	Client bootenv.Client

	// Root is the dataset boot environments live under, reported by
	// the status action.
	Root string

	// Authorizer decides mutating requests. Defaults to denying
	// everything except root.
	Authorizer authz.Authorizer

	// Clock drives the idle timer, refresh cadence, and heartbeats.
	// Defaults to the real clock.
	Clock clock.Clock

	// Logger receives structured service logs.
	Logger *slog.Logger

	// IdleTimeout overrides DefaultIdleTimeout. Zero means the
	// default; negative disables idle shutdown.
	IdleTimeout time.Duration
}

// Service is the protocol service. Create with New, run with Run.
type Service struct {
	socketPath  string
	client      bootenv.Client
	root        string
	authorizer  authz.Authorizer
	clock       clock.Clock
	logger      *slog.Logger
	idleTimeout time.Duration

	mu           sync.Mutex
	objects      map[uint64]beproto.Properties
	subscribers  []*subscriber
	lastActivity time.Time
}

// New assembles a service from the config. The client is wrapped so
// all operations are serialized regardless of how many connections
// are in flight.
func New(config Config) *Service {
	socketPath := config.SocketPath
	if socketPath == "" {
		socketPath = beproto.DefaultSocketPath
	}
	authorizer := config.Authorizer
	if authorizer == nil {
		authorizer = authz.NewPolicyAuthorizer(&authz.Policy{})
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	idleTimeout := config.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Service{
		socketPath:   socketPath,
		client:       serial.Wrap(config.Client),
		root:         config.Root,
		authorizer:   authorizer,
		clock:        clk,
		logger:       config.Logger,
		idleTimeout:  idleTimeout,
		objects:      make(map[uint64]beproto.Properties),
		lastActivity: clk.Now(),
	}
}

// Run serves the socket until ctx is cancelled or the idle timeout
// expires. The object table is populated before the socket comes up,
// so the first subscriber sees a complete snapshot.
func (s *Service) Run(ctx context.Context) error {
	if err := s.refresh(ctx); err != nil {
		return fmt.Errorf("initial listing: %w", err)
	}

	server := rpc.NewSocketServer(s.socketPath, s.logger)
	s.register(server)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var background sync.WaitGroup
	background.Add(1)
	go func() {
		defer background.Done()
		s.backgroundLoop(ctx, cancel)
	}()

	err := server.Serve(ctx)
	cancel()
	background.Wait()
	return err
}

// backgroundLoop drives the periodic refresh and the idle timer off
// one ticker. Calls shutdown to stop the socket server when the
// service has been idle for the configured timeout.
func (s *Service) backgroundLoop(ctx context.Context, shutdown context.CancelFunc) {
	ticker := s.clock.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := s.refresh(ctx); err != nil {
				s.logger.Error("refresh failed", "error", err)
			}
			if s.idleTimeout < 0 {
				continue
			}
			s.mu.Lock()
			idle := now.Sub(s.lastActivity)
			s.mu.Unlock()
			if idle >= s.idleTimeout {
				s.logger.Info("idle timeout reached, shutting down", "idle", idle)
				shutdown()
				return
			}
		}
	}
}

// touch records request activity for the idle timer.
func (s *Service) touch() {
	s.mu.Lock()
	s.lastActivity = s.clock.Now()
	s.mu.Unlock()
}

// refresh re-lists boot environments, updates the object table, and
// notifies subscribers of the differences. Mutating handlers call it
// after their operation; the background loop calls it periodically to
// pick up changes made outside the service.
func (s *Service) refresh(ctx context.Context) error {
	environments, err := s.client.List(ctx)
	if err != nil {
		return err
	}

	current := make(map[uint64]beproto.Properties, len(environments))
	for _, be := range environments {
		current[be.GUID] = beproto.PropertiesOf(be)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var frames []beproto.Frame
	for guid := range s.objects {
		if _, exists := current[guid]; !exists {
			frames = append(frames, beproto.Frame{
				Type: beproto.FrameRemoved,
				Path: beproto.ObjectPath(guid),
			})
		}
	}
	for guid, properties := range current {
		previous, existed := s.objects[guid]
		if !existed {
			p := properties
			frames = append(frames, beproto.Frame{
				Type:       beproto.FrameAdded,
				Path:       beproto.ObjectPath(guid),
				Properties: &p,
			})
			continue
		}
		if changed := properties.Diff(previous); len(changed) > 0 {
			p := properties
			frames = append(frames, beproto.Frame{
				Type:       beproto.FrameChanged,
				Path:       beproto.ObjectPath(guid),
				Properties: &p,
				Changed:    changed,
			})
		}
	}

	s.objects = current
	for _, frame := range frames {
		s.broadcastLocked(frame)
	}
	return nil
}

// refreshAfterMutation updates the object table after a successful
// mutation so subscribers hear about it immediately. Failures are
// logged rather than returned: the mutation itself succeeded.
func (s *Service) refreshAfterMutation(ctx context.Context) {
	if err := s.refresh(ctx); err != nil {
		s.logger.Error("refresh after mutation failed", "error", err)
	}
}

// resolveTarget turns a request's addressing fields into a boot
// environment name. An object path takes precedence over a target
// name; paths resolve through the object table so they keep working
// across renames.
func (s *Service) resolveTarget(object, target string) (string, error) {
	if object == "" {
		return target, nil
	}
	guid, err := beproto.ParseObjectPath(object)
	if err != nil {
		return "", bootenv.ProtocolError(err.Error())
	}
	s.mu.Lock()
	properties, exists := s.objects[guid]
	s.mu.Unlock()
	if !exists {
		return "", bootenv.NotFound(object)
	}
	return properties.Name, nil
}

// authorize gates a mutating action. Read-only actions (list,
// discovery, status, subscribe) skip it.
func (s *Service) authorize(caller authz.Caller, action, target string) error {
	decision := s.authorizer.Authorize(caller, action, target)
	s.logger.Info("authorization",
		"caller", caller,
		"action", action,
		"target", target,
		"decision", decision,
	)
	if decision != authz.Allow {
		return bootenv.Unauthorized(action)
	}
	return nil
}
