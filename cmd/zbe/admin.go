// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kamacite/zbed/cmd/zbe/cli"
	"github.com/kamacite/zbed/lib/beproto"
)

func initCommand() *cli.Command {
	var conn connection

	return &cli.Command{
		Name:    "init",
		Summary: "Create the boot environment layout on a pool",
		Description: `Create the container dataset that holds boot environments on a pool,
for systems that were not installed with one.`,
		Usage: "zbe init [flags] <pool>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("init", pflag.ContinueOnError)
			conn.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("init takes exactly one pool name")
			}
			client, err := conn.connect()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()
			if err := client.Init(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("initialized boot environment layout on %s\n", args[0])
			return nil
		},
	}
}

func hostidCommand() *cli.Command {
	var conn connection

	return &cli.Command{
		Name:    "hostid",
		Summary: "Read the host ID of a boot environment",
		Description: `Read the host ID a boot environment would boot with, from the
etc/hostid file inside it. The boot environment must be mounted.`,
		Usage: "zbe hostid [flags] <name>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("hostid", pflag.ContinueOnError)
			conn.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("hostid takes exactly one name")
			}
			client, err := conn.connect()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			hostid, ok, err := client.Hostid(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no host ID found for %q", args[0])
			}
			fmt.Printf("0x%08x\n", hostid)
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	var conn connection

	return &cli.Command{
		Name:    "status",
		Summary: "Show zbed-service status",
		Description: `Query a running zbed-service for its managed dataset root and object
count. Always talks to the service socket.`,
		Usage: "zbe status [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("status", pflag.ContinueOnError)
			conn.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("status takes no arguments")
			}
			ctx, cancel := commandContext()
			defer cancel()

			status, err := conn.remoteClient().Status(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("root:    %s\n", status.Root)
			fmt.Printf("objects: %d\n", status.Objects)
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	var conn connection

	return &cli.Command{
		Name:    "watch",
		Summary: "Stream boot environment change notifications",
		Description: `Subscribe to a running zbed-service and print one line per change
notification until interrupted. Always talks to the service socket.`,
		Usage: "zbe watch [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("watch", pflag.ContinueOnError)
			conn.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("watch takes no arguments")
			}
			ctx, cancel := commandContext()
			defer cancel()

			frames, err := conn.remoteClient().Subscribe(ctx)
			if err != nil {
				return err
			}
			for frame := range frames {
				line := formatFrame(frame)
				if line != "" {
					fmt.Println(line)
				}
			}
			return ctx.Err()
		},
	}
}

// formatFrame renders one notification line, or "" for frames that are
// not worth printing.
func formatFrame(frame beproto.Frame) string {
	switch frame.Type {
	case beproto.FrameAdded:
		name := ""
		if frame.Properties != nil {
			name = frame.Properties.Name
		}
		return fmt.Sprintf("added    %s (%s)", frame.Path, name)
	case beproto.FrameRemoved:
		return fmt.Sprintf("removed  %s", frame.Path)
	case beproto.FrameChanged:
		return fmt.Sprintf("changed  %s: %s", frame.Path, strings.Join(frame.Changed, ", "))
	case beproto.FrameCaughtUp:
		return "caught up with current state"
	case beproto.FrameError:
		return fmt.Sprintf("error: %s", frame.Message)
	default:
		return ""
	}
}
