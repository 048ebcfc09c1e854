// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package zfsnative

// Tests here cover only the pure helpers; exercising the adapter
// itself needs a real pool and root privileges. The shared semantics
// are covered by the emulator and service tests, which run the same
// operations against the in-memory implementation.

import (
	"os"
	"path/filepath"
	"testing"

	zfs "github.com/kraudcloud/go-libzfs/v2"
)

func TestNewValidatesRoot(t *testing.T) {
	client, err := New("zroot/ROOT")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.Root() != "zroot/ROOT" {
		t.Errorf("Root = %q", client.Root())
	}
	if client.pool != "zroot" {
		t.Errorf("pool = %q", client.pool)
	}

	for _, root := range []string{"", "zroot", "/ROOT"} {
		if _, err := New(root); err == nil {
			t.Errorf("New(%q) succeeded, want error", root)
		}
	}
}

func TestParsePropertyUint(t *testing.T) {
	cases := []struct {
		value   string
		want    uint64
		wantErr bool
	}{
		{"0", 0, false},
		{"8192", 8192, false},
		{"18446744073709551615", 1<<64 - 1, false},
		{"-", 0, false},
		{"", 0, false},
		{"12x", 0, true},
		{"-1", 0, true},
	}
	for _, tc := range cases {
		got, err := parsePropertyUint(tc.value)
		if (err != nil) != tc.wantErr {
			t.Errorf("parsePropertyUint(%q) error = %v, wantErr %v", tc.value, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("parsePropertyUint(%q) = %d, want %d", tc.value, got, tc.want)
		}
	}
}

func TestReadHostid(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	// 0x00deadbeef little-endian.
	hostid, ok := readHostid(write("hostid", []byte{0xef, 0xbe, 0xad, 0xde}))
	if !ok || hostid != 0xdeadbeef {
		t.Errorf("readHostid = %#x, %v, want 0xdeadbeef, true", hostid, ok)
	}

	if _, ok := readHostid(write("short", []byte{0x01, 0x02})); ok {
		t.Error("short file accepted")
	}
	if _, ok := readHostid(write("long", []byte{1, 2, 3, 4, 5})); ok {
		t.Error("oversized file accepted")
	}
	if _, ok := readHostid(filepath.Join(dir, "absent")); ok {
		t.Error("missing file accepted")
	}
}

func TestPropertyValueNormalizesUnset(t *testing.T) {
	if got := propertyValue(zfs.Property{Value: "-"}); got != "" {
		t.Errorf("unset property = %q, want empty", got)
	}
	if got := propertyValue(zfs.Property{Value: "zroot/ROOT/default"}); got != "zroot/ROOT/default" {
		t.Errorf("set property = %q", got)
	}
}
