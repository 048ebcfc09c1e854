// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/kamacite/zbed/cmd/zbe/cli"
	"github.com/kamacite/zbed/lib/bootenv"
)

func listCommand() *cli.Command {
	var conn connection
	var snapshots bool
	var noHeader bool

	return &cli.Command{
		Name:    "list",
		Summary: "List boot environments",
		Description: `List boot environments, oldest first.

The ACTIVE column shows N for the environment the system is running
from, R for the one that will boot next, and T when that next boot is
temporary (boot-once).`,
		Usage: "zbe list [flags]",
		Examples: []cli.Example{
			{Description: "List boot environments with their snapshots", Command: "zbe list -s"},
			{Description: "Scriptable output without the header row", Command: "zbe list -H"},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flags.BoolVarP(&snapshots, "snapshots", "s", false, "include snapshots")
			flags.BoolVarP(&noHeader, "no-header", "H", false, "omit the header row")
			conn.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("list takes no arguments")
			}

			client, err := conn.connect()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			environments, err := client.List(ctx)
			if err != nil {
				return err
			}
			sort.Slice(environments, func(i, j int) bool {
				if environments[i].Created != environments[j].Created {
					return environments[i].Created < environments[j].Created
				}
				return environments[i].Name < environments[j].Name
			})

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			if !noHeader && term.IsTerminal(int(os.Stdout.Fd())) {
				fmt.Fprintln(tw, "NAME\tACTIVE\tMOUNTPOINT\tSPACE\tCREATED\tDESCRIPTION")
			}
			for _, be := range environments {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					be.Name, activeFlags(be), orDash(be.Mountpoint),
					formatSize(be.Space), formatCreated(be.Created), be.Description)
				if !snapshots {
					continue
				}
				list, err := client.Snapshots(ctx, be.Name)
				if err != nil {
					return err
				}
				for _, snapshot := range list {
					fmt.Fprintf(tw, "  @%s\t-\t-\t%s\t%s\t%s\n",
						snapshot.Name, formatSize(snapshot.Space),
						formatCreated(snapshot.Created), snapshot.Description)
				}
			}
			return tw.Flush()
		},
	}
}

// activeFlags builds the ACTIVE column: N for active now, R for next
// boot, T when the next boot is temporary.
func activeFlags(be bootenv.BootEnvironment) string {
	flags := ""
	if be.Active {
		flags += "N"
	}
	if be.NextBoot {
		if be.BootOnce {
			flags += "T"
		} else {
			flags += "R"
		}
	}
	return orDash(flags)
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
