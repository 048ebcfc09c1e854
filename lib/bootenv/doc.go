// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

// Package bootenv defines the boot environment data model, the name
// validation rules, the error taxonomy, and the Client contract that
// every implementation satisfies.
//
// Three implementations exist:
//
//   - emulator: deterministic in-memory implementation with no
//     external effects, used for tests and demos.
//   - zfsnative: adapter over libzfs, the only place native dataset
//     handles are managed.
//   - remote: proxy that forwards each call to a running zbed-service
//     over its Unix socket protocol.
//
// None of the implementations is safe for concurrent use on its own;
// serial.Client wraps any of them with a total order over operations.
package bootenv
