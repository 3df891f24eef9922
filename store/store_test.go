// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"testing"

	"github.com/nexus-state/nexus-state/atom"
)

func TestGetSetPrimitive(t *testing.T) {
	s := New()
	a := atom.Primitive(1, "count")

	val, err := s.Get(a.AnyAtom())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if val != 1 {
		t.Fatalf("Get() = %v, want 1", val)
	}

	if err := s.Set(a.AnyAtom(), 2); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	val, _ = s.Get(a.AnyAtom())
	if val != 2 {
		t.Fatalf("Get() after Set() = %v, want 2", val)
	}
}

func TestSetWithUpdaterFunction(t *testing.T) {
	s := New()
	a := atom.Primitive(1, "count")
	if err := s.Set(a.AnyAtom(), Updater(func(prev any) any {
		return prev.(int) + 1
	})); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	val, _ := s.Get(a.AnyAtom())
	if val != 2 {
		t.Fatalf("Get() = %v, want 2", val)
	}
}

func TestComputedDerivesFromDependency(t *testing.T) {
	s := New()
	count := atom.Primitive(2, "count")
	double := atom.Computed(func(get atom.Getter) int {
		return get.Get(count.AnyAtom()).(int) * 2
	}, "double")

	val, err := s.Get(double.AnyAtom())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if val != 4 {
		t.Fatalf("Get(double) = %v, want 4", val)
	}

	s.Set(count.AnyAtom(), 5)
	val, _ = s.Get(double.AnyAtom())
	if val != 10 {
		t.Fatalf("Get(double) after dependency write = %v, want 10", val)
	}
}

func TestDiamondDependencyConvergesOnce(t *testing.T) {
	s := New()
	base := atom.Primitive(1, "base")
	left := atom.Computed(func(get atom.Getter) int { return get.Get(base.AnyAtom()).(int) + 1 }, "left")
	right := atom.Computed(func(get atom.Getter) int { return get.Get(base.AnyAtom()).(int) + 2 }, "right")
	sum := atom.Computed(func(get atom.Getter) int {
		return get.Get(left.AnyAtom()).(int) + get.Get(right.AnyAtom()).(int)
	}, "sum")

	calls := 0
	s.Subscribe(sum.AnyAtom(), func(any) { calls++ })

	s.Set(base.AnyAtom(), 10)

	val, _ := s.Get(sum.AnyAtom())
	if val != 23 { // (10+1) + (10+2)
		t.Fatalf("Get(sum) = %v, want 23", val)
	}
	if calls != 1 {
		t.Fatalf("sum subscriber invoked %d times, want exactly 1", calls)
	}
}

func TestWriteToComputedIsRejected(t *testing.T) {
	s := New()
	c := atom.Computed(func(get atom.Getter) int { return 1 }, "c")
	if err := s.Set(c.AnyAtom(), 2); err == nil {
		t.Fatalf("expected error writing to a computed atom")
	}
}

func TestCircularDependencyDetected(t *testing.T) {
	s := New()
	var a, b atom.ComputedAtom[int]
	a = atom.Computed(func(get atom.Getter) int { return get.Get(b.AnyAtom()).(int) }, "a")
	b = atom.Computed(func(get atom.Getter) int { return get.Get(a.AnyAtom()).(int) }, "b")

	if _, err := s.Get(a.AnyAtom()); err == nil {
		t.Fatalf("expected circular dependency error")
	}
}

func TestWritableRedirectsThroughUnderlyingPrimitive(t *testing.T) {
	s := New()
	base := atom.Primitive(1, "base")
	double := atom.Writable(
		func(get atom.Getter) int { return get.Get(base.AnyAtom()).(int) * 2 },
		func(get atom.Getter, set atom.Setter, val int) error {
			return set.Set(base.AnyAtom(), val/2)
		},
		"double",
	)

	var notifications []any
	s.Subscribe(double.AnyAtom(), func(v any) { notifications = append(notifications, v) })

	if err := s.Set(double.AnyAtom(), 10); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	val, _ := s.Get(double.AnyAtom())
	if val != 10 {
		t.Fatalf("Get(double) = %v, want 10", val)
	}
	if len(notifications) != 1 {
		t.Fatalf("writable subscriber invoked %d times, want exactly 1 (no double notification)", len(notifications))
	}
}

func TestSubscribeUnsubscribeIsIdempotent(t *testing.T) {
	s := New()
	a := atom.Primitive(1, "a")
	calls := 0
	unsub, _ := s.Subscribe(a.AnyAtom(), func(any) { calls++ })

	s.Set(a.AnyAtom(), 2)
	unsub()
	unsub() // must not panic or double-remove
	s.Set(a.AnyAtom(), 3)

	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no notification after unsubscribe)", calls)
	}
}

func TestSubscriberPanicIsIsolated(t *testing.T) {
	s := New()
	a := atom.Primitive(1, "a")
	s.Subscribe(a.AnyAtom(), func(any) { panic("boom") })

	var secondCalled bool
	s.Subscribe(a.AnyAtom(), func(any) { secondCalled = true })

	if err := s.Set(a.AnyAtom(), 2); err != nil {
		t.Fatalf("Set() returned error from an isolated subscriber panic: %v", err)
	}
	if !secondCalled {
		t.Fatalf("second subscriber was not invoked after the first panicked")
	}
}

func TestDependentRecomputationToleratesUncomparableValues(t *testing.T) {
	s := New()
	base := atom.Primitive(1, "slice-base")
	derived := atom.Computed(func(get atom.Getter) []int {
		n := get.Get(base.AnyAtom()).(int)
		return []int{n, n}
	}, "slice-derived")

	var notifications int
	s.Subscribe(derived.AnyAtom(), func(any) { notifications++ })

	if err := s.Set(base.AnyAtom(), 2); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	val, _ := s.Get(derived.AnyAtom())
	if got := val.([]int); len(got) != 2 || got[0] != 2 {
		t.Fatalf("Get(slice-derived) = %v, want [2 2]", got)
	}
	if notifications != 1 {
		t.Fatalf("slice-valued dependent notified %d times, want exactly 1 (no panic comparing slices)", notifications)
	}
}

func TestSerializeStateOmitsUnmaterialisedAtoms(t *testing.T) {
	s := New()
	neverRead := atom.Primitive(1, "never-read")
	b := atom.Primitive(2, "read")
	s.Get(b.AnyAtom())

	snap, err := s.SerializeState()
	if err != nil {
		t.Fatalf("SerializeState() error: %v", err)
	}
	if _, ok := snap[neverRead.AnyAtom().ID()]; ok {
		t.Fatalf("SerializeState() forced evaluation of an atom nobody read")
	}
	if snap[b.AnyAtom().ID()] != 2 {
		t.Fatalf("SerializeState()[read] = %v, want 2", snap[b.AnyAtom().ID()])
	}
}
