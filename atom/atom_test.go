// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package atom

import "testing"

func TestPrimitiveInitial(t *testing.T) {
	a := Primitive(42, "count")
	if a.Initial() != 42 {
		t.Fatalf("Initial() = %d, want 42", a.Initial())
	}
	if a.Name() != "count" {
		t.Fatalf("Name() = %q, want %q", a.Name(), "count")
	}
	if a.Variant() != VariantPrimitive {
		t.Fatalf("Variant() = %v, want VariantPrimitive", a.Variant())
	}
}

func TestAtomIdentityIsPerCall(t *testing.T) {
	a := Primitive(1, "a")
	b := Primitive(1, "a")
	if a.ID() == b.ID() {
		t.Fatalf("two factory calls with identical arguments produced the same id")
	}
}

type fakeGetter struct {
	values map[string]any
}

func (g fakeGetter) Get(a AnyAtom) any { return g.values[a.ID()] }

func TestComputedReadReceivesGetter(t *testing.T) {
	dep := Primitive(10, "dep")
	doubled := Computed(func(get Getter) int {
		return get.Get(dep.AnyAtom()).(int) * 2
	}, "doubled")

	g := fakeGetter{values: map[string]any{dep.ID(): 10}}
	got := doubled.AnyAtom().Read(g)
	if got != 20 {
		t.Fatalf("Read() = %v, want 20", got)
	}
}

func TestWritableWriteRejectsOnComputed(t *testing.T) {
	c := Computed(func(get Getter) int { return 1 }, "c")
	err := c.AnyAtom().Write(fakeGetter{}, nil, 5)
	if err == nil {
		t.Fatalf("expected computed atom Write to fail")
	}
}

func TestTypedValuePanicsOnMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on type mismatch")
		}
	}()
	typedValue[int]("not an int", "bad")
}

func TestTypedValueZeroOnNil(t *testing.T) {
	if got := typedValue[int](nil, "x"); got != 0 {
		t.Fatalf("typedValue(nil) = %d, want 0", got)
	}
}
