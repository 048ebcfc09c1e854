// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package beservice

import (
	"context"
	"net"
	"sort"
	"sync/atomic"
	"time"

	"github.com/kamacite/zbed/lib/authz"
	"github.com/kamacite/zbed/lib/beproto"
	"github.com/kamacite/zbed/lib/codec"
)

// subscriberChannelSize buffers notification frames per subscriber.
// Boot environment mutations are rare and human-paced; overflow means
// the subscriber stopped reading.
const subscriberChannelSize = 64

// heartbeatInterval is the time between heartbeat frames on a
// subscribe stream. The client should consider the connection dead if
// no frame (of any type) arrives within 2x this interval.
const heartbeatInterval = 30 * time.Second

// subscriber is one connected notification stream. The channel
// receives frames from refresh's diff; the done channel is closed by
// the stream handler when the connection ends so the broadcast path
// can drop the subscriber.
type subscriber struct {
	channel    chan beproto.Frame
	done       chan struct{}
	overflowed atomic.Bool
}

// broadcastLocked dispatches a frame to every live subscriber. Uses
// non-blocking sends: a subscriber that stopped draining its channel
// is marked overflowed and its stream handler terminates it. Must be
// called with s.mu held.
func (s *Service) broadcastLocked(frame beproto.Frame) {
	live := s.subscribers[:0]
	for _, sub := range s.subscribers {
		select {
		case <-sub.done:
			continue
		default:
		}
		live = append(live, sub)

		select {
		case sub.channel <- frame:
		default:
			sub.overflowed.Store(true)
		}
	}
	s.subscribers = live
}

// removeSubscriber drops a subscriber from the registry.
func (s *Service) removeSubscriber(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.subscribers {
		if existing == sub {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			return
		}
	}
}

// handleSubscribe serves one notification stream: an initial snapshot
// of every managed object as added frames, a caught-up marker, then
// live frames as mutations happen. Registration and snapshot
// collection happen under one lock acquisition so no mutation can
// fall between them.
func (s *Service) handleSubscribe(ctx context.Context, caller authz.Caller, raw []byte, conn net.Conn) {
	s.touch()
	encoder := codec.NewEncoder(conn)

	sub := &subscriber{
		channel: make(chan beproto.Frame, subscriberChannelSize),
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	s.subscribers = append(s.subscribers, sub)
	snapshot := make([]beproto.Frame, 0, len(s.objects))
	for guid, properties := range s.objects {
		p := properties
		snapshot = append(snapshot, beproto.Frame{
			Type:       beproto.FrameAdded,
			Path:       beproto.ObjectPath(guid),
			Properties: &p,
		})
	}
	s.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Path < snapshot[j].Path })

	s.logger.Info("subscribe stream started", "caller", caller, "objects", len(snapshot))
	defer func() {
		close(sub.done)
		s.removeSubscriber(sub)
		s.logger.Info("subscribe stream ended", "caller", caller)
	}()

	for _, frame := range snapshot {
		if err := encoder.Encode(frame); err != nil {
			return
		}
	}
	if err := encoder.Encode(beproto.CaughtUpFrame); err != nil {
		return
	}

	heartbeat := s.clock.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case frame := <-sub.channel:
			if sub.overflowed.Load() {
				// Frames were dropped; the stream is no longer a
				// faithful mirror. Tell the client to resubscribe.
				encoder.Encode(beproto.Frame{
					Type:    beproto.FrameError,
					Message: "notification buffer overflowed, resubscribe for a fresh snapshot",
				})
				return
			}
			if err := encoder.Encode(frame); err != nil {
				return
			}

		case <-heartbeat.C:
			// An open stream counts as activity: a watching client
			// should not have the service shut down underneath it.
			s.touch()
			if err := encoder.Encode(beproto.HeartbeatFrame); err != nil {
				return
			}
		}
	}
}
