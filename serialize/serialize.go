// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package serialize implements the lazy, bounded serialiser behind
// Store.SerializeState and the debug bridge's outbound payloads (§4.6(5),
// §6.3). It honours a max depth, an approximate max byte size, and a
// circular-reference policy, and tags a handful of special Go types the
// way the spec's source tags JS Date/RegExp/Map/Set/Error values.
//
// The reflect-driven type walk is grounded on the teacher's
// util.ValidateAtomType (tsunami/util/util.go), which already recurses a
// reflect.Type tree with a `seen` set to avoid infinite recursion on
// self-referential struct types; here the same shape walks values
// instead of types, trading the "seen types" set for a "seen pointers"
// set used for the circular-reference policy.
package serialize

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"time"
)

const DefaultMaxDepth = 10
const DefaultMaxBytes = 512 * 1024
const PlaceholderString = "[...]"

// CircularPolicy selects what happens when a circular reference is found
// (§4.6(5)).
type CircularPolicy int

const (
	CircularPlaceholder CircularPolicy = iota
	CircularOmit
	CircularThrow
)

// ErrCircularReference is returned (wrapped) when CircularPolicy is
// CircularThrow and a cycle is found.
type ErrCircularReference struct{ Path string }

func (e *ErrCircularReference) Error() string {
	return fmt.Sprintf("circular reference at %s", e.Path)
}

// Options configures one Serialize call.
type Options struct {
	MaxDepth       int
	MaxBytes       int
	CircularPolicy CircularPolicy
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	return o
}

type walker struct {
	opts      Options
	seen      map[uintptr]bool
	byteBudget int
}

// Serialize produces a JSON-encodable view of state, replacing any
// position that would exceed MaxDepth or the overall MaxBytes budget with
// PlaceholderString, and handling circular references per
// opts.CircularPolicy (§4.6(5)). It never panics or returns an error
// propagated from the shape of the data itself: only CircularThrow can
// produce an error, and only when a cycle is actually found.
func Serialize(state map[string]any, opts Options) (map[string]any, error) {
	opts = opts.withDefaults()
	w := &walker{opts: opts, seen: map[uintptr]bool{}, byteBudget: opts.MaxBytes}
	out := make(map[string]any, len(state))
	for key, val := range state {
		sv, err := w.walk(val, 0, key)
		if err != nil {
			return nil, err
		}
		out[key] = sv
	}
	return out, nil
}

// SerializeIncremental re-serialises only changedKeys, copying every
// other key from prev verbatim (§4.6(5) "Incremental updates").
func SerializeIncremental(prev map[string]any, next map[string]any, changedKeys map[string]bool, opts Options) (map[string]any, error) {
	opts = opts.withDefaults()
	w := &walker{opts: opts, seen: map[uintptr]bool{}, byteBudget: opts.MaxBytes}
	out := make(map[string]any, len(next))
	for key, val := range next {
		if !changedKeys[key] {
			if prevVal, ok := prev[key]; ok {
				out[key] = prevVal
				continue
			}
		}
		sv, err := w.walk(val, 0, key)
		if err != nil {
			return nil, err
		}
		out[key] = sv
	}
	return out, nil
}

func (w *walker) walk(v any, depth int, path string) (any, error) {
	if depth > w.opts.MaxDepth {
		return PlaceholderString, nil
	}
	if w.byteBudget <= 0 {
		return PlaceholderString, nil
	}

	switch tv := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return map[string]any{"__type__": "Date", "value": tv.UTC().Format(time.RFC3339Nano)}, nil
	case error:
		return map[string]any{"__type__": "Error", "name": fmt.Sprintf("%T", tv), "message": tv.Error()}, nil
	case *regexp.Regexp:
		return map[string]any{"__type__": "RegExp", "source": tv.String()}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		ptr := rv.Pointer()
		if w.seen[ptr] {
			switch w.opts.CircularPolicy {
			case CircularOmit:
				return nil, nil
			case CircularThrow:
				return nil, &ErrCircularReference{Path: path}
			default:
				return PlaceholderString, nil
			}
		}
		w.seen[ptr] = true
		defer delete(w.seen, ptr)
	}

	switch rv.Kind() {
	case reflect.Ptr:
		return w.walk(rv.Elem().Interface(), depth, path)
	case reflect.Slice, reflect.Array:
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			sv, err := w.walk(rv.Index(i).Interface(), depth+1, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, sv)
			w.chargeBytes(sv)
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				sv, err := w.walk(iter.Value().Interface(), depth+1, path+"."+iter.Key().String())
				if err != nil {
					return nil, err
				}
				out[iter.Key().String()] = sv
				w.chargeBytes(sv)
			}
			return out, nil
		}
		// Non-string-keyed map: tagged entries array, the Go analogue of a
		// JS Map (§4.6(5) "Map/Set -> tagged entries arrays").
		entries := make([][2]any, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			kv, err := w.walk(iter.Key().Interface(), depth+1, path+".key")
			if err != nil {
				return nil, err
			}
			vv, err := w.walk(iter.Value().Interface(), depth+1, path+".value")
			if err != nil {
				return nil, err
			}
			entries = append(entries, [2]any{kv, vv})
		}
		return map[string]any{"__type__": "Map", "entries": entries}, nil
	case reflect.Struct:
		out := make(map[string]any, rv.NumField())
		t := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			sv, err := w.walk(rv.Field(i).Interface(), depth+1, path+"."+field.Name)
			if err != nil {
				return nil, err
			}
			out[field.Name] = sv
			w.chargeBytes(sv)
		}
		return out, nil
	default:
		w.chargeBytes(v)
		return v, nil
	}
}

func (w *walker) chargeBytes(v any) {
	// Approximate: a JSON marshal round-trip per leaf would be exact but
	// quadratic; a rough per-value cost keeps the budget check cheap.
	switch tv := v.(type) {
	case string:
		w.byteBudget -= len(tv)
	default:
		w.byteBudget -= 16
	}
}

// Checksum computes an eight-base64-character content checksum over
// state's JSON encoding, using a simple polynomial hash (§4.6(5), §6.3).
func Checksum(state map[string]any) (string, error) {
	b, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return ChecksumBytes(b), nil
}

// ChecksumBytes computes the same polynomial hash directly over raw
// bytes, used to verify an inbound IMPORT_STATE payload against its
// claimed checksum (§4.6(6), §8 "Checksum").
func ChecksumBytes(b []byte) string {
	const prime uint64 = 1000003
	var h uint64 = 0
	for _, c := range b {
		h = h*prime + uint64(c)
	}
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(h >> (uint(i) * 8))
	}
	return base64.RawURLEncoding.EncodeToString(buf[:])[:8]
}
