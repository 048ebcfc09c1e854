// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package bootenv

import (
	"errors"
	"strings"
	"testing"
)

const testRoot = "zfake/ROOT"

func TestValidateNameAccepts(t *testing.T) {
	for _, name := range []string{
		"default",
		"valid-name",
		"test_env",
		"env123",
		"123numbers",
		"test:colon",
		"my.env",
		"2026-08-30-upgrade",
	} {
		if err := ValidateName(name, testRoot); err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", name, err)
		}
	}
}

func TestValidateNameRejects(t *testing.T) {
	cases := []struct {
		name   string
		reason string
	}{
		{"", "empty"},
		{"-leading-dash", "first character"},
		{".leading-dot", "first character"},
		{"_leading-underscore", "first character"},
		{":leading-colon", "first character"},
		{"has space", "space"},
		{"has@at", "at sign"},
		{"has/slash", "slash"},
		{"h\tas-tab", "tab"},
		{strings.Repeat("a", MaxDatasetPathLength-len(testRoot)), "too long"},
	}
	for _, tc := range cases {
		err := ValidateName(tc.name, testRoot)
		if err == nil {
			t.Errorf("ValidateName(%q) = nil, want error (%s)", tc.name, tc.reason)
			continue
		}
		var beErr *Error
		if !errors.As(err, &beErr) || beErr.Kind != KindInvalidName {
			t.Errorf("ValidateName(%q) kind = %v, want KindInvalidName", tc.name, KindOf(err))
		}
	}
}

func TestValidateNameLengthIncludesRoot(t *testing.T) {
	// A name that fits under a short root must be rejected under a
	// root long enough to push the full path over the limit.
	name := strings.Repeat("a", 200)
	if err := ValidateName(name, "zroot/ROOT"); err != nil {
		t.Fatalf("ValidateName under short root: %v", err)
	}
	longRoot := strings.Repeat("p", MaxDatasetPathLength-len(name)-1) + "/ROOT"
	if err := ValidateName(name, longRoot); err == nil {
		t.Fatal("ValidateName under long root = nil, want error")
	}
}

func TestValidateNameLengthCountsJoiningSlash(t *testing.T) {
	// The limit is on the full dataset path root + "/" + name. A name
	// that lands exactly on the limit passes; one byte more fails.
	exact := strings.Repeat("a", MaxDatasetPathLength-len(testRoot)-1)
	if err := ValidateName(exact, testRoot); err != nil {
		t.Fatalf("ValidateName at the limit: %v", err)
	}
	if err := ValidateName(exact+"a", testRoot); err == nil {
		t.Fatal("ValidateName one byte over the limit = nil, want error")
	}
}

func TestValidateSnapshotName(t *testing.T) {
	if err := ValidateSnapshotName("pre-upgrade"); err != nil {
		t.Errorf("ValidateSnapshotName(pre-upgrade) = %v", err)
	}
	// Timestamp-derived default names contain colons and dashes.
	if err := ValidateSnapshotName("2026-08-30T10:00:00Z"); err != nil {
		t.Errorf("ValidateSnapshotName(timestamp) = %v", err)
	}
	// Unlike boot environment names, snapshot names may begin with
	// punctuation.
	if err := ValidateSnapshotName("_scratch"); err != nil {
		t.Errorf("ValidateSnapshotName(_scratch) = %v", err)
	}
	if err := ValidateSnapshotName(""); err == nil {
		t.Error("ValidateSnapshotName(empty) = nil, want error")
	}
	if err := ValidateSnapshotName("bad@snap"); err == nil {
		t.Error("ValidateSnapshotName(bad@snap) = nil, want error")
	}
}
