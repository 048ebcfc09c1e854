// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

// Package serial wraps a bootenv.Client with a mutex so that exactly
// one operation runs at a time. The native implementation holds ZFS
// handles that must not be shared across concurrent operations, and
// the service funnels all requests through one wrapped client so
// concurrent callers are fully serialized.
package serial

import (
	"context"
	"sync"

	"github.com/kamacite/zbed/lib/bootenv"
)

// Client serializes all operations on an inner bootenv.Client.
type Client struct {
	mu    sync.Mutex
	inner bootenv.Client
}

// Wrap returns a Client that serializes access to inner.
func Wrap(inner bootenv.Client) *Client {
	return &Client{inner: inner}
}

func (c *Client) List(ctx context.Context) ([]bootenv.BootEnvironment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.List(ctx)
}

func (c *Client) Snapshots(ctx context.Context, beName string) ([]bootenv.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Snapshots(ctx, beName)
}

func (c *Client) CreateEmpty(ctx context.Context, name, description string) (bootenv.BootEnvironment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.CreateEmpty(ctx, name, description)
}

func (c *Client) Create(ctx context.Context, name, description string, source *bootenv.Label) (bootenv.BootEnvironment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Create(ctx, name, description, source)
}

func (c *Client) Snapshot(ctx context.Context, source *bootenv.Label, description string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Snapshot(ctx, source, description)
}

func (c *Client) Destroy(ctx context.Context, target bootenv.Label, opts bootenv.DestroyOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Destroy(ctx, target, opts)
}

func (c *Client) Mount(ctx context.Context, beName, mountpoint string, readOnly bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Mount(ctx, beName, mountpoint, readOnly)
}

func (c *Client) Unmount(ctx context.Context, beName string, force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Unmount(ctx, beName, force)
}

func (c *Client) Hostid(ctx context.Context, beName string) (uint32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Hostid(ctx, beName)
}

func (c *Client) Rename(ctx context.Context, beName, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Rename(ctx, beName, newName)
}

func (c *Client) Describe(ctx context.Context, target bootenv.Label, description string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Describe(ctx, target, description)
}

func (c *Client) Activate(ctx context.Context, beName string, bootOnce bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Activate(ctx, beName, bootOnce)
}

func (c *Client) ClearBootOnce(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.ClearBootOnce(ctx)
}

func (c *Client) Rollback(ctx context.Context, beName, snapshotName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Rollback(ctx, beName, snapshotName)
}

func (c *Client) Init(ctx context.Context, pool string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Init(ctx, pool)
}

var _ bootenv.Client = (*Client)(nil)
