// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kamacite/zbed/cmd/zbe/cli"
	"github.com/kamacite/zbed/lib/bootenv"
)

func createCommand() *cli.Command {
	var conn connection
	var description string
	var source string
	var empty bool

	return &cli.Command{
		Name:    "create",
		Summary: "Create a boot environment",
		Description: `Create a new boot environment.

Without --from, the new environment is a clone of the currently active
one. --from clones a specific environment or snapshot instead, and
--empty creates a blank environment with nothing in it.`,
		Usage: "zbe create [flags] <name>",
		Examples: []cli.Example{
			{Description: "Clone the running system", Command: "zbe create -d 'before 14.2 upgrade' pre-upgrade"},
			{Description: "Clone a snapshot", Command: "zbe create --from default@2026-08-01 restored"},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("create", pflag.ContinueOnError)
			flags.StringVarP(&description, "description", "d", "", "description for the new environment")
			flags.StringVar(&source, "from", "", "source environment or be@snapshot to clone")
			flags.BoolVarP(&empty, "empty", "e", false, "create an empty environment instead of cloning")
			conn.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("create takes exactly one name")
			}
			if empty && source != "" {
				return fmt.Errorf("--empty and --from are mutually exclusive")
			}

			client, err := conn.connect()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			var created bootenv.BootEnvironment
			if empty {
				created, err = client.CreateEmpty(ctx, args[0], description)
			} else {
				var label *bootenv.Label
				if source != "" {
					parsed, err := parseLabel(source)
					if err != nil {
						return err
					}
					label = &parsed
				}
				created, err = client.Create(ctx, args[0], description, label)
			}
			if err != nil {
				return err
			}
			fmt.Printf("created %s\n", created.Name)
			return nil
		},
	}
}

func destroyCommand() *cli.Command {
	var conn connection
	var force bool
	var unmount bool
	var destroySnapshots bool

	return &cli.Command{
		Name:    "destroy",
		Summary: "Destroy a boot environment or snapshot",
		Description: `Destroy a boot environment, or a single snapshot when the target is
given as be@snapshot. The active boot environment cannot be destroyed.`,
		Usage: "zbe destroy [flags] <name|be@snapshot>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("destroy", pflag.ContinueOnError)
			flags.BoolVarP(&force, "force", "F", false, "force unmount if mounted")
			flags.BoolVarP(&unmount, "unmount", "u", false, "unmount if mounted")
			flags.BoolVarP(&destroySnapshots, "snapshots", "s", false, "also destroy the environment's snapshots")
			conn.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("destroy takes exactly one target")
			}
			label, err := parseLabel(args[0])
			if err != nil {
				return err
			}

			client, err := conn.connect()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			opts := bootenv.DestroyOptions{
				Force:            force,
				Unmount:          unmount,
				DestroySnapshots: destroySnapshots,
			}
			if err := client.Destroy(ctx, label, opts); err != nil {
				return err
			}
			fmt.Printf("destroyed %s\n", label)
			return nil
		},
	}
}

func snapshotCommand() *cli.Command {
	var conn connection
	var description string

	return &cli.Command{
		Name:    "snapshot",
		Summary: "Snapshot a boot environment",
		Description: `Snapshot a boot environment. Without a target, the active environment
is snapshotted. A target of be@name fixes the snapshot name; a bare
environment name gets a timestamp-derived one.`,
		Usage: "zbe snapshot [flags] [be[@snapshot]]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("snapshot", pflag.ContinueOnError)
			flags.StringVarP(&description, "description", "d", "", "description for the snapshot")
			conn.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("snapshot takes at most one target")
			}
			var source *bootenv.Label
			if len(args) == 1 {
				parsed, err := parseLabel(args[0])
				if err != nil {
					return err
				}
				source = &parsed
			}

			client, err := conn.connect()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			name, err := client.Snapshot(ctx, source, description)
			if err != nil {
				return err
			}
			fmt.Printf("created snapshot %s\n", name)
			return nil
		},
	}
}

func renameCommand() *cli.Command {
	var conn connection

	return &cli.Command{
		Name:    "rename",
		Summary: "Rename a boot environment",
		Usage:   "zbe rename [flags] <name> <new-name>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("rename", pflag.ContinueOnError)
			conn.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("rename takes a name and a new name")
			}
			client, err := conn.connect()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()
			if err := client.Rename(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("renamed %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func describeCommand() *cli.Command {
	var conn connection

	return &cli.Command{
		Name:    "describe",
		Summary: "Set the description of a boot environment or snapshot",
		Usage:   "zbe describe [flags] <name|be@snapshot> <description>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("describe", pflag.ContinueOnError)
			conn.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("describe takes a target and a description")
			}
			label, err := parseLabel(args[0])
			if err != nil {
				return err
			}
			client, err := conn.connect()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()
			return client.Describe(ctx, label, args[1])
		},
	}
}

func rollbackCommand() *cli.Command {
	var conn connection

	return &cli.Command{
		Name:    "rollback",
		Summary: "Roll a boot environment back to a snapshot",
		Description: `Roll a boot environment back to one of its snapshots. Snapshots taken
after the target snapshot are destroyed.`,
		Usage: "zbe rollback [flags] <be@snapshot>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("rollback", pflag.ContinueOnError)
			conn.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("rollback takes exactly one be@snapshot target")
			}
			label, err := parseLabel(args[0])
			if err != nil {
				return err
			}
			if !label.IsSnapshot() {
				return fmt.Errorf("rollback target must name a snapshot, e.g. default@before-upgrade")
			}
			client, err := conn.connect()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()
			if err := client.Rollback(ctx, label.Name, label.Snapshot); err != nil {
				return err
			}
			fmt.Printf("rolled %s back to @%s\n", label.Name, label.Snapshot)
			return nil
		},
	}
}
