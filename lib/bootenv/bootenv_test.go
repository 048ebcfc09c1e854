// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package bootenv

import (
	"errors"
	"testing"
	"time"
)

func TestParseLabel(t *testing.T) {
	cases := []struct {
		in       string
		name     string
		snapshot string
	}{
		{"default", "default", ""},
		{"default@pre-upgrade", "default", "pre-upgrade"},
	}
	for _, tc := range cases {
		label, err := ParseLabel(tc.in)
		if err != nil {
			t.Fatalf("ParseLabel(%q): %v", tc.in, err)
		}
		if label.Name != tc.name || label.Snapshot != tc.snapshot {
			t.Errorf("ParseLabel(%q) = %+v, want {%s %s}", tc.in, label, tc.name, tc.snapshot)
		}
		if label.String() != tc.in {
			t.Errorf("Label.String() = %q, want %q", label.String(), tc.in)
		}
	}

	for _, bad := range []string{"", "@snap", "be@", "be@snap@extra"} {
		if _, err := ParseLabel(bad); err == nil {
			t.Errorf("ParseLabel(%q) = nil error, want InvalidName", bad)
		}
	}
}

func TestGenerateSnapshotName(t *testing.T) {
	at := time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC)
	if got, want := GenerateSnapshotName(at), "2026-08-30T14:05:09Z"; got != want {
		t.Errorf("GenerateSnapshotName = %q, want %q", got, want)
	}
	// The generated name must itself be a valid snapshot name.
	if err := ValidateSnapshotName(GenerateSnapshotName(at)); err != nil {
		t.Errorf("generated snapshot name failed validation: %v", err)
	}
}

func TestFormatGUID(t *testing.T) {
	if got, want := FormatGUID(0x1234567890abcdef), "1234567890abcdef"; got != want {
		t.Errorf("FormatGUID = %q, want %q", got, want)
	}
	if got, want := FormatGUID(0), "0000000000000000"; got != want {
		t.Errorf("FormatGUID(0) = %q, want %q", got, want)
	}
}

func TestKindWireIDRoundTrip(t *testing.T) {
	kinds := []Kind{
		KindInvalidName, KindNotFound, KindAlreadyExists, KindActive,
		KindMounted, KindNotMounted, KindAlreadyMounted, KindBusy,
		KindUnauthorized, KindNative, KindProtocol,
	}
	seen := make(map[string]Kind)
	for _, kind := range kinds {
		id := kind.WireID()
		if id == "unknown" {
			t.Errorf("kind %d has no wire identifier", kind)
		}
		if prev, dup := seen[id]; dup {
			t.Errorf("wire identifier %q shared by kinds %d and %d", id, prev, kind)
		}
		seen[id] = kind
		if got := KindFromWireID(id); got != kind {
			t.Errorf("KindFromWireID(%q) = %d, want %d", id, got, kind)
		}
	}
	if got := KindFromWireID("no-such-kind"); got != KindUnknown {
		t.Errorf("KindFromWireID(no-such-kind) = %d, want KindUnknown", got)
	}
}

func TestErrorUnwrapAndKindOf(t *testing.T) {
	underlying := errors.New("dataset does not exist")
	err := NativeError(2009, "cannot open 'zroot/ROOT/gone'", underlying)
	if !errors.Is(err, underlying) {
		t.Error("NativeError does not unwrap to the underlying error")
	}
	if KindOf(err) != KindNative {
		t.Errorf("KindOf = %v, want KindNative", KindOf(err))
	}

	wrapped := errors.Join(errors.New("outer"), NotFound("gone"))
	if KindOf(wrapped) != KindNotFound {
		t.Errorf("KindOf(wrapped) = %v, want KindNotFound", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("KindOf(plain) != KindUnknown")
	}
}
