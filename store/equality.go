// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import "reflect"

// valueEqual decides whether a dependent's recomputed value counts as
// "actually changed" for the purpose of propagating notifications further
// down the dependency graph (§4.2 "if the dependent's value actually
// changed (referential inequality)"). A plain `!=` on two `any` values
// panics at runtime when the dynamic type is a slice, map, or func, so
// comparable kinds are compared directly and everything else falls back
// to identity (pointer/pointer-like) comparison rather than risking a
// panic on an ordinary atom write.
//
// Adapted from the teacher's util.JsonValEqual (tsunami/util/compare.go),
// which solves the same "safely compare two arbitrary interface{} values"
// problem for its vdom diffing; the JSON-oriented numeric upconversion
// that function does (int vs float64 both arriving off the wire) is
// dropped here since an atom's value always keeps its static Go type T
// across a write, so no cross-numeric-type comparison can ever occur.
func valueEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	va := reflect.ValueOf(a)
	vb := reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Slice, reflect.Map, reflect.Func:
		return false
	case reflect.Chan, reflect.Ptr, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	default:
		if !va.Type().Comparable() {
			return false
		}
		return a == b
	}
}
