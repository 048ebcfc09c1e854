// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package rpc

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/kamacite/zbed/lib/codec"
)

// dialTimeout is the maximum time to wait for a connection to the
// service socket. This is separate from the server's read/write
// timeouts — it covers only the connect phase.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for the server to
// send a response after writing the request. Matched to the server's
// readTimeout + writeTimeout to account for handler execution time.
const responseReadTimeout = 45 * time.Second

// maxResponseSize is the maximum size of a single CBOR response.
// Matches the server's maxRequestSize for symmetry.
const maxResponseSize = 1024 * 1024

// ServiceError is returned by Call when the server responds with
// ok=false. It carries the server's error message, the action that
// failed, and the machine-readable kind from the response envelope.
type ServiceError struct {
	Action  string
	Kind    string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error on %q: %s", e.Action, e.Message)
}

// WireKind returns the machine-readable error category from the
// response envelope, or "" if the server did not include one.
func (e *ServiceError) WireKind() string {
	return e.Kind
}

// Client sends CBOR requests to a zbed service socket. Each Call
// opens a new connection (matching the server's one-request-per-
// connection model), sends the request, reads the response, and
// closes the connection. The server identifies the caller from the
// socket's peer credentials; there is nothing to configure here.
type Client struct {
	socketPath string
}

// NewClient creates a client for the service socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Call sends a request for the given action and decodes the response.
//
// The request value is marshaled as the CBOR request body; it must
// carry the "action" field matching the action argument (the typed
// request structs in lib/beproto embed it). On success, if result is
// non-nil and the response contains data, the data is CBOR-decoded
// into result.
//
// On failure (response ok=false), returns a *ServiceError containing
// the server's message and kind. Connection and encoding errors are
// returned as plain errors (not *ServiceError).
func (c *Client) Call(ctx context.Context, action string, request any, result any) error {
	response, err := c.send(ctx, request)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}

	if !response.OK {
		return &ServiceError{
			Action:  action,
			Kind:    response.Kind,
			Message: response.Error,
		}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}

	return nil
}

// Stream sends a request for a streaming action and returns a decoder
// positioned at the start of the frame sequence, plus the connection
// for the caller to close. The caller reads frames with
// decoder.Decode until the stream ends or the caller is done.
func (c *Client) Stream(ctx context.Context, request any) (*codec.Decoder, io.Closer, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", c.socketPath, err)
	}

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("writing request: %w", err)
	}

	// Close the connection when the context ends so frame reads
	// unblock promptly.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	return codec.NewDecoder(conn), conn, nil
}

// send connects to the socket, writes the request, and reads the
// response. Each call creates a new connection.
func (c *Client) send(ctx context.Context, request any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	// Write the request.
	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	// Half-close the write side. CBOR is self-delimiting so this
	// isn't strictly necessary, but it lets the server's read side
	// see EOF cleanly.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	// Read the response.
	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &response, nil
}
