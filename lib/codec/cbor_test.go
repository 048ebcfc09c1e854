// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{
		"zebra":  1,
		"apple":  2,
		"middle": 3,
	}
	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("same value produced different encodings")
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	encoded, err := Marshal(map[string]any{
		"name":       "default",
		"new_field":  "from a future service version",
		"guid":       uint64(42),
		"extra_data": []int{1, 2, 3},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded struct {
		Name string `cbor:"name"`
		GUID uint64 `cbor:"guid"`
	}
	if err := Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Name != "default" || decoded.GUID != 42 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestAnyTargetDecodesToStringKeyedMap(t *testing.T) {
	encoded, err := Marshal(map[string]any{"nested": map[string]any{"k": "v"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	top, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded is %T, want map[string]any", decoded)
	}
	if _, ok := top["nested"].(map[string]any); !ok {
		t.Fatalf("nested is %T, want map[string]any", top["nested"])
	}
}

func TestStreamRoundTrip(t *testing.T) {
	type frame struct {
		Type string `cbor:"type"`
		Path string `cbor:"path"`
	}
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, f := range []frame{{"added", "/zbed/be/01"}, {"removed", "/zbed/be/02"}} {
		if err := encoder.Encode(f); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	var got []frame
	for {
		var f frame
		if err := decoder.Decode(&f); err != nil {
			break
		}
		got = append(got, f)
	}
	if len(got) != 2 || got[0].Type != "added" || got[1].Type != "removed" {
		t.Errorf("decoded frames = %+v", got)
	}
}
