// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"testing"

	"github.com/kamacite/zbed/lib/beproto"
	"github.com/kamacite/zbed/lib/bootenv"
)

func TestFormatSize(t *testing.T) {
	cases := []struct {
		bytes uint64
		want  string
	}{
		{0, "0"},
		{512, "512"},
		{8192, "8.0K"},
		{1536, "1.5K"},
		{10 * 1024 * 1024, "10.0M"},
		{250 * 1024 * 1024 * 1024, "250G"},
	}
	for _, c := range cases {
		if got := formatSize(c.bytes); got != c.want {
			t.Errorf("formatSize(%d) = %q, want %q", c.bytes, got, c.want)
		}
	}
}

func TestActiveFlags(t *testing.T) {
	cases := []struct {
		name string
		be   bootenv.BootEnvironment
		want string
	}{
		{"inactive", bootenv.BootEnvironment{}, "-"},
		{"running and next", bootenv.BootEnvironment{Active: true, NextBoot: true}, "NR"},
		{"next only", bootenv.BootEnvironment{NextBoot: true}, "R"},
		{"boot once", bootenv.BootEnvironment{NextBoot: true, BootOnce: true}, "T"},
		{"running, other is next", bootenv.BootEnvironment{Active: true}, "N"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := activeFlags(c.be); got != c.want {
				t.Errorf("activeFlags = %q, want %q", got, c.want)
			}
		})
	}
}

func TestFormatFrame(t *testing.T) {
	added := beproto.Frame{
		Type:       beproto.FrameAdded,
		Path:       "/zbed/be/00000000000000aa",
		Properties: &beproto.Properties{Name: "default"},
	}
	if got := formatFrame(added); got != "added    /zbed/be/00000000000000aa (default)" {
		t.Errorf("added frame = %q", got)
	}

	changed := beproto.Frame{
		Type:    beproto.FrameChanged,
		Path:    "/zbed/be/00000000000000aa",
		Changed: []string{"name", "path"},
	}
	if got := formatFrame(changed); got != "changed  /zbed/be/00000000000000aa: name, path" {
		t.Errorf("changed frame = %q", got)
	}

	if got := formatFrame(beproto.Frame{Type: beproto.FrameHeartbeat}); got != "" {
		t.Errorf("heartbeat frame = %q, want suppressed", got)
	}
}
