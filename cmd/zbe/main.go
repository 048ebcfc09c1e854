// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

// Command zbe manages ZFS boot environments from the command line. It
// talks to ZFS directly through libzfs by default, or to a running
// zbed-service over its Unix socket with --remote.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/kamacite/zbed/cmd/zbe/cli"
	"github.com/kamacite/zbed/lib/beproto"
	"github.com/kamacite/zbed/lib/bootenv"
	"github.com/kamacite/zbed/lib/bootenv/emulator"
	"github.com/kamacite/zbed/lib/bootenv/remote"
	"github.com/kamacite/zbed/lib/bootenv/zfsnative"
	"github.com/kamacite/zbed/lib/clock"
)

func main() {
	if err := run(); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cli.Command{
		Name:    "zbe",
		Summary: "Manage ZFS boot environments",
		Description: `Create, activate, and destroy ZFS boot environments.

Boot environments are bootable clones of the root filesystem. Snapshot
the running system before an upgrade, clone it into a new environment,
and roll back by activating the old one if the upgrade goes wrong.`,
		Subcommands: []*cli.Command{
			listCommand(),
			createCommand(),
			destroyCommand(),
			snapshotCommand(),
			mountCommand(),
			unmountCommand(),
			renameCommand(),
			activateCommand(),
			rollbackCommand(),
			describeCommand(),
			hostidCommand(),
			initCommand(),
			statusCommand(),
			watchCommand(),
		},
	}
	return root.Execute(os.Args[1:])
}

// connection selects which boot environment client a command talks to.
// Every subcommand registers the same flags, so "zbe list --remote" and
// "zbe activate --remote other" behave consistently.
type connection struct {
	remote  bool
	socket  string
	emulate bool
	root    string
}

func (c *connection) register(flags *pflag.FlagSet) {
	flags.BoolVarP(&c.remote, "remote", "r", false, "talk to a running zbed-service instead of libzfs")
	flags.StringVar(&c.socket, "socket", beproto.DefaultSocketPath, "service socket path (with --remote)")
	flags.BoolVar(&c.emulate, "emulate", false, "operate on an in-memory emulated system")
	flags.StringVar(&c.root, "be-root", "zroot/ROOT", "dataset containing boot environments")
}

func (c *connection) connect() (bootenv.Client, error) {
	switch {
	case c.remote:
		return remote.New(c.socket), nil
	case c.emulate:
		return emulator.Sampled(clock.Real()), nil
	default:
		return zfsnative.New(c.root)
	}
}

// remoteClient returns the remote proxy for commands that only make
// sense against a running service.
func (c *connection) remoteClient() *remote.Client {
	return remote.New(c.socket)
}

// commandContext returns a context cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// parseLabel parses a command-line boot environment argument, which may
// name a boot environment or a be@snapshot pair.
func parseLabel(arg string) (bootenv.Label, error) {
	label, err := bootenv.ParseLabel(arg)
	if err != nil {
		return bootenv.Label{}, fmt.Errorf("invalid boot environment %q: %w", arg, err)
	}
	return label, nil
}

// formatSize renders a byte count the way zfs list does: at most one
// decimal place, binary units.
func formatSize(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d", bytes)
	}
	value := float64(bytes)
	suffixes := "KMGTPE"
	index := 0
	for value >= unit*unit && index < len(suffixes)-1 {
		value /= unit
		index++
	}
	value /= unit
	if value >= 100 {
		return fmt.Sprintf("%.0f%c", value, suffixes[index])
	}
	return fmt.Sprintf("%.1f%c", value, suffixes[index])
}

// formatCreated renders a creation timestamp for table output.
func formatCreated(created int64) string {
	return time.Unix(created, 0).Format("2006-01-02 15:04")
}
