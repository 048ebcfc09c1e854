// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

// zbed-service serves the boot environment management protocol on a
// Unix socket. It exits on its own after five idle minutes; pair it
// with socket activation so it comes back on demand.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kamacite/zbed/lib/authz"
	"github.com/kamacite/zbed/lib/beproto"
	"github.com/kamacite/zbed/lib/beservice"
	"github.com/kamacite/zbed/lib/bootenv"
	"github.com/kamacite/zbed/lib/bootenv/emulator"
	"github.com/kamacite/zbed/lib/bootenv/zfsnative"
	"github.com/kamacite/zbed/lib/clock"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		socketPath  string
		root        string
		policyPath  string
		emulate     bool
		idleTimeout time.Duration
	)

	flag.StringVar(&socketPath, "socket", beproto.DefaultSocketPath, "Unix socket path to listen on")
	flag.StringVar(&root, "root", "zroot/ROOT", "dataset boot environments live under")
	flag.StringVar(&policyPath, "policy", "", "authorization policy file (default: root-only)")
	flag.BoolVar(&emulate, "emulate", false, "serve an in-memory emulator instead of real ZFS")
	flag.DurationVar(&idleTimeout, "idle-timeout", beservice.DefaultIdleTimeout, "exit after this long with no requests (negative to disable)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()

	var client bootenv.Client
	if emulate {
		emulated := emulator.Sampled(clk)
		root = emulated.Root()
		client = emulated
		logger.Warn("serving the in-memory emulator, not a real pool")
	} else {
		native, err := zfsnative.New(root)
		if err != nil {
			return err
		}
		client = native
	}

	var authorizer authz.Authorizer = authz.NewPolicyAuthorizer(&authz.Policy{})
	if policyPath != "" {
		policy, err := authz.LoadPolicy(policyPath)
		if err != nil {
			return err
		}
		authorizer = authz.NewPolicyAuthorizer(policy)
		logger.Info("loaded authorization policy", "path", policyPath, "rules", len(policy.Rules))
	}

	service := beservice.New(beservice.Config{
		SocketPath:  socketPath,
		Client:      client,
		Root:        root,
		Authorizer:  authorizer,
		Clock:       clk,
		Logger:      logger,
		IdleTimeout: idleTimeout,
	})

	logger.Info("zbed-service starting", "socket", socketPath, "root", root, "emulate", emulate)
	return service.Run(ctx)
}
