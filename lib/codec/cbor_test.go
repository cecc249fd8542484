// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshalDeterministic(t *testing.T) {
	t.Parallel()

	value := map[string]any{
		"zebra":  1,
		"apple":  "two",
		"middle": []int{3, 4, 5},
	}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal (iteration %d): %v", i, err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding not deterministic: %x vs %x", first, again)
		}
	}
}

func TestRoundTripStruct(t *testing.T) {
	t.Parallel()

	type payload struct {
		Index uint64 `cbor:"index"`
		Hash  string `cbor:"hash"`
	}

	in := payload{Index: 7, Hash: "abcdef"}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out payload
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("round trip: got %+v, want %+v", out, in)
	}
}

func TestUnmarshalAnyUsesStringKeyedMaps(t *testing.T) {
	t.Parallel()

	data, err := Marshal(map[string]any{"key": map[string]any{"nested": 1}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out any
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	top, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("decoded top-level type %T, want map[string]any", out)
	}
	if _, ok := top["key"].(map[string]any); !ok {
		t.Errorf("decoded nested type %T, want map[string]any", top["key"])
	}
}
