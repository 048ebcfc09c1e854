// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kamacite/zbed/cmd/zbe/cli"
)

func mountCommand() *cli.Command {
	var conn connection
	var readOnly bool

	return &cli.Command{
		Name:    "mount",
		Summary: "Mount an inactive boot environment",
		Description: `Mount a boot environment for inspection or repair. Without an explicit
mountpoint a private one under /run/zbed/mount is used.`,
		Usage: "zbe mount [flags] <name> [mountpoint]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("mount", pflag.ContinueOnError)
			flags.BoolVar(&readOnly, "read-only", false, "mount read-only")
			conn.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return fmt.Errorf("mount takes a name and an optional mountpoint")
			}
			mountpoint := ""
			if len(args) == 2 {
				mountpoint = args[1]
			}

			client, err := conn.connect()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			at, err := client.Mount(ctx, args[0], mountpoint, readOnly)
			if err != nil {
				return err
			}
			fmt.Printf("mounted %s at %s\n", args[0], at)
			return nil
		},
	}
}

func unmountCommand() *cli.Command {
	var conn connection
	var force bool

	return &cli.Command{
		Name:    "umount",
		Summary: "Unmount a boot environment",
		Usage:   "zbe umount [flags] <name>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("umount", pflag.ContinueOnError)
			flags.BoolVarP(&force, "force", "f", false, "force unmount even if busy")
			conn.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("umount takes exactly one name")
			}
			client, err := conn.connect()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			at, err := client.Unmount(ctx, args[0], force)
			if err != nil {
				return err
			}
			fmt.Printf("unmounted %s from %s\n", args[0], at)
			return nil
		},
	}
}
