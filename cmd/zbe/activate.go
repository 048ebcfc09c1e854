// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kamacite/zbed/cmd/zbe/cli"
)

func activateCommand() *cli.Command {
	var conn connection
	var temporary bool
	var clear bool

	return &cli.Command{
		Name:    "activate",
		Summary: "Choose the boot environment for the next boot",
		Description: `Mark a boot environment as the next-boot target. With --temporary the
choice holds for exactly one boot and then reverts to the previous
target; use --clear to cancel a pending temporary activation.`,
		Usage: "zbe activate [flags] <name>",
		Examples: []cli.Example{
			{Description: "Boot into the new environment once, keeping the old default", Command: "zbe activate -t upgraded"},
			{Description: "Cancel a pending boot-once activation", Command: "zbe activate --clear"},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("activate", pflag.ContinueOnError)
			flags.BoolVarP(&temporary, "temporary", "t", false, "activate for the next boot only")
			flags.BoolVar(&clear, "clear", false, "clear a boot-once activation")
			conn.register(flags)
			return flags
		},
		Run: func(args []string) error {
			client, err := conn.connect()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			if clear {
				if len(args) != 0 {
					return fmt.Errorf("--clear takes no arguments")
				}
				if err := client.ClearBootOnce(ctx); err != nil {
					return err
				}
				fmt.Println("cleared boot-once activation")
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("activate takes exactly one name")
			}
			if err := client.Activate(ctx, args[0], temporary); err != nil {
				return err
			}
			if temporary {
				fmt.Printf("activated %s for the next boot only\n", args[0])
			} else {
				fmt.Printf("activated %s\n", args[0])
			}
			return nil
		},
	}
}
