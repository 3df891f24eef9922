// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package serialize

import (
	"errors"
	"regexp"
	"testing"
	"time"
)

func TestSerializeDepthLimitSubstitutesPlaceholder(t *testing.T) {
	// Build a chain of nested maps five deep, then request MaxDepth=1.
	inner := map[string]any{"leaf": "v"}
	for i := 0; i < 5; i++ {
		inner = map[string]any{"next": inner}
	}
	out, err := Serialize(map[string]any{"root": inner}, Options{MaxDepth: 1})
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}
	root := out["root"].(map[string]any)
	next := root["next"].(map[string]any)
	if next["next"] != PlaceholderString {
		t.Fatalf("expected placeholder beyond MaxDepth, got %#v", next["next"])
	}
}

func TestSerializeByteBudgetSubstitutesPlaceholder(t *testing.T) {
	big := make(map[string]any, 3)
	big["a"] = "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"
	big["b"] = "yyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyy"
	big["c"] = "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"

	out, err := Serialize(big, Options{MaxBytes: 10})
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}
	sawPlaceholder := false
	for _, v := range out {
		if v == PlaceholderString {
			sawPlaceholder = true
		}
	}
	if !sawPlaceholder {
		t.Fatalf("expected at least one placeholder once the byte budget was exhausted, got %#v", out)
	}
}

func TestSerializeCircularPlaceholderPolicy(t *testing.T) {
	m := map[string]any{}
	m["self"] = m

	out, err := Serialize(map[string]any{"root": m}, Options{CircularPolicy: CircularPlaceholder})
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}
	root := out["root"].(map[string]any)
	if root["self"] != PlaceholderString {
		t.Fatalf("expected circular reference replaced with placeholder, got %#v", root["self"])
	}
}

func TestSerializeCircularOmitPolicy(t *testing.T) {
	m := map[string]any{}
	m["self"] = m

	out, err := Serialize(map[string]any{"root": m}, Options{CircularPolicy: CircularOmit})
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}
	root := out["root"].(map[string]any)
	if root["self"] != nil {
		t.Fatalf("expected circular reference omitted (nil), got %#v", root["self"])
	}
}

func TestSerializeCircularThrowPolicy(t *testing.T) {
	m := map[string]any{}
	m["self"] = m

	_, err := Serialize(map[string]any{"root": m}, Options{CircularPolicy: CircularThrow})
	if err == nil {
		t.Fatalf("expected an error with CircularThrow policy")
	}
	var cerr *ErrCircularReference
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ErrCircularReference, got %T", err)
	}
}

func TestSerializeTagsSpecialTypes(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	re := regexp.MustCompile(`^abc$`)
	out, err := Serialize(map[string]any{
		"when": ts,
		"err":  errors.New("boom"),
		"re":   re,
		"m":    map[int]string{1: "one"},
	}, Options{})
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}

	when := out["when"].(map[string]any)
	if when["__type__"] != "Date" {
		t.Fatalf("time.Time not tagged as Date: %#v", when)
	}

	gotErr := out["err"].(map[string]any)
	if gotErr["__type__"] != "Error" || gotErr["message"] != "boom" {
		t.Fatalf("error not tagged correctly: %#v", gotErr)
	}

	gotRe := out["re"].(map[string]any)
	if gotRe["__type__"] != "RegExp" || gotRe["source"] != "^abc$" {
		t.Fatalf("regexp not tagged correctly: %#v", gotRe)
	}

	gotMap := out["m"].(map[string]any)
	if gotMap["__type__"] != "Map" {
		t.Fatalf("non-string-keyed map not tagged as Map: %#v", gotMap)
	}
}

func TestSerializeIncrementalReusesUnchangedKeys(t *testing.T) {
	prev := map[string]any{"a": 1, "b": 2}
	next := map[string]any{"a": 1, "b": 99}

	out, err := SerializeIncremental(prev, next, map[string]bool{"b": true}, Options{})
	if err != nil {
		t.Fatalf("SerializeIncremental() error: %v", err)
	}
	if out["a"] != 1 {
		t.Fatalf("unchanged key a = %v, want reused value 1", out["a"])
	}
	if out["b"] != 99 {
		t.Fatalf("changed key b = %v, want freshly serialized 99", out["b"])
	}
}

func TestChecksumIsDeterministic(t *testing.T) {
	state := map[string]any{"a": 1, "b": "two"}
	c1, err := Checksum(state)
	if err != nil {
		t.Fatalf("Checksum() error: %v", err)
	}
	c2, err := Checksum(state)
	if err != nil {
		t.Fatalf("Checksum() error: %v", err)
	}
	if c1 != c2 {
		t.Fatalf("Checksum() not deterministic: %q != %q", c1, c2)
	}
	if len(c1) != 8 {
		t.Fatalf("len(Checksum()) = %d, want 8", len(c1))
	}
}

func TestChecksumBytesDiffersOnDifferentInput(t *testing.T) {
	a := ChecksumBytes([]byte("hello"))
	b := ChecksumBytes([]byte("world"))
	if a == b {
		t.Fatalf("ChecksumBytes produced identical output for different inputs")
	}
}
