// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

// Package rpc implements the CBOR request-response protocol zbed
// services speak over Unix sockets. Each connection carries exactly
// one request: the client writes a CBOR value with an "action" field,
// the server routes it to a registered handler and writes a CBOR
// response, then the connection closes. Stream actions keep the
// connection open and write a sequence of CBOR frames instead.
//
// Callers are identified by their Unix credentials via SO_PEERCRED;
// the kernel vouches for the uid/gid/pid, so no application-level
// authentication is needed.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/kamacite/zbed/lib/authz"
	"github.com/kamacite/zbed/lib/codec"
)

// ActionFunc processes a single socket request. The raw parameter is
// the full CBOR request (including the "action" field); the handler
// decodes action-specific fields from it. The caller carries the
// peer's kernel-verified credentials.
//
// Return a value to include in the success response, or an error for
// a failure response. If the returned value is nil, the response
// contains only {ok: true}. If non-nil, the value is marshaled as
// CBOR and placed in the response's "data" field.
type ActionFunc func(ctx context.Context, caller authz.Caller, raw []byte) (any, error)

// StreamFunc processes a stream action. The handler owns the
// connection for its lifetime and writes CBOR frames directly; the
// server closes the connection when the handler returns.
type StreamFunc func(ctx context.Context, caller authz.Caller, raw []byte, conn net.Conn)

// Response is the wire-format envelope for all socket protocol
// responses. Handlers return a result value (or nil) and an error;
// the server wraps these into a Response before encoding. Kind
// carries a machine-readable error category (see lib/bootenv) so
// clients can reconstruct typed errors across the socket.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Kind  string           `cbor:"kind,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// wireKinder is implemented by errors that carry a wire-format kind
// identifier. Handler errors implementing it have their kind included
// in the failure response.
type wireKinder interface {
	WireKind() string
}

// SocketServer serves the zbed socket protocol on a Unix socket.
// Actions are registered with Handle or HandleStream before calling
// Serve. Unknown actions receive an error response.
type SocketServer struct {
	socketPath     string
	handlers       map[string]ActionFunc
	streamHandlers map[string]StreamFunc
	logger         *slog.Logger

	// activeConnections tracks in-flight request handlers for graceful
	// shutdown. Serve waits for all active connections to complete
	// before returning.
	activeConnections sync.WaitGroup
}

// NewSocketServer creates a server that will listen on socketPath.
// Register actions with Handle and HandleStream before calling Serve.
func NewSocketServer(socketPath string, logger *slog.Logger) *SocketServer {
	return &SocketServer{
		socketPath:     socketPath,
		handlers:       make(map[string]ActionFunc),
		streamHandlers: make(map[string]StreamFunc),
		logger:         logger,
	}
}

// Handle registers a request-response handler for the given action
// name. Panics if the action is already registered.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if s.registered(action) {
		panic(fmt.Sprintf("rpc.SocketServer: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// HandleStream registers a streaming handler for the given action
// name. Panics if the action is already registered.
func (s *SocketServer) HandleStream(action string, handler StreamFunc) {
	if s.registered(action) {
		panic(fmt.Sprintf("rpc.SocketServer: duplicate handler for action %q", action))
	}
	s.streamHandlers[action] = handler
}

func (s *SocketServer) registered(action string) bool {
	if _, exists := s.handlers[action]; exists {
		return true
	}
	_, exists := s.streamHandlers[action]
	return exists
}

// Serve starts accepting connections on the Unix socket and dispatches
// requests to registered action handlers. Blocks until ctx is
// cancelled, then stops accepting new connections and waits for active
// handlers to complete.
//
// Any existing socket file at the configured path is removed before
// listening. The socket file is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("socket server listening", "path", s.socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// readTimeout is how long we wait for the client to send its request.
// A well-behaved client sends the request immediately after connecting.
const readTimeout = 30 * time.Second

// writeTimeout is how long we wait for the response to be written.
const writeTimeout = 10 * time.Second

// maxRequestSize is the maximum size of a single CBOR request.
// Boot environment requests are a few hundred bytes at most; 1 MB
// leaves ample headroom.
const maxRequestSize = 1024 * 1024

// handleConnection processes one request on a fresh connection.
func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	caller, err := peerCredentials(conn)
	if err != nil {
		s.logger.Debug("rejecting connection without peer credentials", "error", err)
		return
	}

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	// Decode one CBOR value from the connection. CBOR is self-
	// delimiting so no framing protocol is needed. LimitReader
	// prevents a malicious client from exhausting memory.
	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			// Client connected but sent nothing.
			return
		}
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err), "")
		return
	}

	// Extract the action field for routing.
	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err), "")
		return
	}
	if header.Action == "" {
		s.writeError(conn, "missing required field: action", "")
		return
	}

	if streamHandler, exists := s.streamHandlers[header.Action]; exists {
		// Stream handlers own the connection: clear the read deadline
		// and let the handler write frames until it returns.
		conn.SetReadDeadline(time.Time{})
		streamHandler(ctx, caller, []byte(raw), conn)
		return
	}

	handler, exists := s.handlers[header.Action]
	if !exists {
		s.writeError(conn, fmt.Sprintf("unknown action %q", header.Action), "")
		return
	}

	result, err := handler(ctx, caller, []byte(raw))
	if err != nil {
		s.logger.Debug("action failed",
			"action", header.Action,
			"caller", caller,
			"error", err,
		)
		var kind string
		var kinder wireKinder
		if errors.As(err, &kinder) {
			kind = kinder.WireKind()
		}
		s.writeError(conn, err.Error(), kind)
		return
	}

	s.writeSuccess(conn, result)
}

// writeError sends a failure response: {ok: false, error: "...",
// kind: "..."}. Write failures are logged at debug level; the
// connection is closing regardless.
func (s *SocketServer) writeError(conn net.Conn, message, kind string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(Response{
		OK:    false,
		Error: message,
		Kind:  kind,
	}); err != nil {
		s.logger.Debug("failed to write error response", "error", err)
	}
}

// writeSuccess sends a success response. If result is nil, the
// response is {ok: true}. If non-nil, the value is marshaled as CBOR
// and placed in the "data" field: {ok: true, data: <cbor>}.
func (s *SocketServer) writeSuccess(conn net.Conn, result any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	response := Response{OK: true}

	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeError(conn, fmt.Sprintf("internal: marshaling response: %v", err), "")
			return
		}
		response.Data = data
	}

	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write success response", "error", err)
	}
}
