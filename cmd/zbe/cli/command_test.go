// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestDispatchesToSubcommand(t *testing.T) {
	ran := false
	root := &Command{
		Name: "zbe",
		Subcommands: []*Command{
			{
				Name: "list",
				Run: func(args []string) error {
					ran = true
					return nil
				},
			},
		},
	}
	if err := root.Execute([]string{"list"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !ran {
		t.Fatal("subcommand did not run")
	}
}

func TestFlagParsing(t *testing.T) {
	var description string
	var positional []string
	command := &Command{
		Name: "snapshot",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("snapshot", pflag.ContinueOnError)
			flags.StringVarP(&description, "description", "d", "", "")
			return flags
		},
		Run: func(args []string) error {
			positional = args
			return nil
		},
	}
	if err := command.Execute([]string{"-d", "before upgrade", "default"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if description != "before upgrade" {
		t.Fatalf("description = %q", description)
	}
	if len(positional) != 1 || positional[0] != "default" {
		t.Fatalf("positional args = %v", positional)
	}
}

func TestUnknownCommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "zbe",
		Subcommands: []*Command{
			{Name: "activate"},
			{Name: "destroy"},
		},
	}
	err := root.Execute([]string{"activte"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "activate"`) {
		t.Fatalf("error missing suggestion: %v", err)
	}
}

func TestUnknownCommandNoWildSuggestion(t *testing.T) {
	root := &Command{
		Name:        "zbe",
		Subcommands: []*Command{{Name: "list"}},
	}
	err := root.Execute([]string{"completely-unrelated"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Fatalf("unexpected suggestion: %v", err)
	}
}

func TestHelpListsSubcommands(t *testing.T) {
	root := &Command{
		Name:    "zbe",
		Summary: "Manage boot environments",
		Subcommands: []*Command{
			{Name: "list", Summary: "List boot environments"},
			{Name: "create", Summary: "Create a boot environment"},
		},
	}
	var out strings.Builder
	root.PrintHelp(&out)
	help := out.String()
	for _, want := range []string{"Commands:", "list", "List boot environments", "create"} {
		if !strings.Contains(help, want) {
			t.Fatalf("help output missing %q:\n%s", want, help)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"list", "list", 0},
		{"list", "lst", 1},
		{"mount", "umount", 1},
		{"activate", "deactivate", 2},
		{"abc", "xyz", 3},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
