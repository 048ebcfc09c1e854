// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package rpc

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/kamacite/zbed/lib/authz"
)

// peerCredentials reads the connecting process's credentials from the
// socket via SO_PEERCRED. The kernel fills these in at connect time;
// they cannot be forged by the peer.
func peerCredentials(conn net.Conn) (authz.Caller, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return authz.Caller{}, fmt.Errorf("connection is %T, not a Unix socket", conn)
	}

	rawConn, err := unixConn.SyscallConn()
	if err != nil {
		return authz.Caller{}, fmt.Errorf("accessing raw connection: %w", err)
	}

	var ucred *unix.Ucred
	var sockoptErr error
	controlErr := rawConn.Control(func(fd uintptr) {
		ucred, sockoptErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if controlErr != nil {
		return authz.Caller{}, fmt.Errorf("reading peer credentials: %w", controlErr)
	}
	if sockoptErr != nil {
		return authz.Caller{}, fmt.Errorf("reading peer credentials: %w", sockoptErr)
	}

	return authz.Caller{
		UID: ucred.Uid,
		GID: ucred.Gid,
		PID: ucred.Pid,
	}, nil
}
