// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"testing"

	"github.com/nexus-state/nexus-state/atom"
)

func TestRegisterAndGet(t *testing.T) {
	r := New()
	a := atom.Primitive(1, "counter")
	r.Register(a.AnyAtom())

	got, ok := r.Get(a.ID())
	if !ok {
		t.Fatalf("Get() returned ok=false for a registered atom")
	}
	if got.ID() != a.ID() {
		t.Fatalf("Get() returned a different atom")
	}
	if r.GetName(a.AnyAtom()) != "counter" {
		t.Fatalf("GetName() = %q, want %q", r.GetName(a.AnyAtom()), "counter")
	}
}

func TestRegisterFallbackName(t *testing.T) {
	r := New()
	a := atom.Primitive(1)
	r.Register(a.AnyAtom())
	if name := r.GetName(a.AnyAtom()); name == "" {
		t.Fatalf("expected a non-empty fallback name")
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := New()
	a := atom.Primitive(1, "x")
	r.Register(a.AnyAtom())
	meta1, _ := r.GetMetadata(a.AnyAtom())
	r.Register(a.AnyAtom(), "renamed")
	meta2, _ := r.GetMetadata(a.AnyAtom())

	if !meta1.CreatedAt.Equal(meta2.CreatedAt) {
		t.Fatalf("re-registration changed CreatedAt")
	}
	if meta2.Name != "renamed" {
		t.Fatalf("re-registration did not update display name")
	}
	if r.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", r.Size())
	}
}

type fakeStore struct {
	id     string
	values map[string]any
}

func (f *fakeStore) StoreID() string { return f.id }
func (f *fakeStore) Get(a atom.AnyAtom) (any, error) {
	return f.values[a.ID()], nil
}

func TestGlobalModeOwnership(t *testing.T) {
	r := New()
	a := atom.Primitive(1, "g")
	r.Register(a.AnyAtom())

	s := &fakeStore{id: "s1", values: map[string]any{a.ID(): 1}}
	r.AttachStore(s, ModeGlobal)
	r.AssociateAtom(s, a.ID())

	if owner := r.GetStoreForAtom(a.ID()); owner != GlobalOwner {
		t.Fatalf("GetStoreForAtom() = %q, want GlobalOwner in global mode", owner)
	}
}

func TestIsolatedModeOwnership(t *testing.T) {
	r := New()
	a := atom.Primitive(1, "i")
	r.Register(a.AnyAtom())

	s := &fakeStore{id: "s2", values: map[string]any{a.ID(): 1}}
	r.AttachStore(s, ModeIsolated)
	r.AssociateAtom(s, a.ID())

	if owner := r.GetStoreForAtom(a.ID()); owner != "s2" {
		t.Fatalf("GetStoreForAtom() = %q, want s2 in isolated mode", owner)
	}
	ids := r.GetAtomsForStore(s)
	if len(ids) != 1 || ids[0] != a.ID() {
		t.Fatalf("GetAtomsForStore() = %v, want [%s]", ids, a.ID())
	}
}

func TestGetAtomValueUnknown(t *testing.T) {
	r := New()
	if _, err := r.GetAtomValue("does-not-exist"); err == nil {
		t.Fatalf("expected UnknownAtom error")
	}
}

func TestClear(t *testing.T) {
	r := New()
	a := atom.Primitive(1, "x")
	r.Register(a.AnyAtom())
	r.Clear()
	if r.Size() != 0 {
		t.Fatalf("Size() after Clear() = %d, want 0", r.Size())
	}
}
