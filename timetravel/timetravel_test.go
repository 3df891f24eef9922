// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package timetravel

import (
	"testing"

	"github.com/nexus-state/nexus-state/atom"
	"github.com/nexus-state/nexus-state/store"
)

func TestUndoRedoSequence(t *testing.T) {
	s := store.New()
	count := atom.Primitive(0, "count")
	tt := New(s)

	tt.Capture("init")
	for i := 1; i <= 3; i++ {
		s.Set(count.AnyAtom(), i)
		tt.Capture("increment")
	}

	val, _ := s.Get(count.AnyAtom())
	if val != 3 {
		t.Fatalf("Get(count) = %v, want 3", val)
	}

	if !tt.CanUndo() {
		t.Fatalf("CanUndo() = false, want true")
	}
	tt.Undo()
	val, _ = s.Get(count.AnyAtom())
	if val != 2 {
		t.Fatalf("after Undo(), Get(count) = %v, want 2", val)
	}

	tt.Redo()
	val, _ = s.Get(count.AnyAtom())
	if val != 3 {
		t.Fatalf("after Redo(), Get(count) = %v, want 3", val)
	}
}

func TestUndoRedoRoundTripIsNoOp(t *testing.T) {
	s := store.New()
	count := atom.Primitive(0, "rt-count")
	tt := New(s)
	tt.Capture("init")
	s.Set(count.AnyAtom(), 1)
	tt.Capture("one")
	s.Set(count.AnyAtom(), 2)
	tt.Capture("two")

	tt.Undo()
	tt.Redo()
	val, _ := s.Get(count.AnyAtom())
	if val != 2 {
		t.Fatalf("Get(count) after undo;redo = %v, want 2 (unchanged)", val)
	}
}

func TestJumpToRoundTrip(t *testing.T) {
	s := store.New()
	count := atom.Primitive(0, "jump-count")
	tt := New(s)

	tt.Capture("c0")
	for i := 1; i <= 5; i++ {
		s.Set(count.AnyAtom(), i)
		tt.Capture("cN")
	}
	last := tt.Cursor()

	tt.JumpTo(2)
	val, _ := s.Get(count.AnyAtom())
	if val != 2 {
		t.Fatalf("Get(count) after JumpTo(2) = %v, want 2", val)
	}

	tt.JumpTo(last)
	val, _ = s.Get(count.AnyAtom())
	if val != 5 {
		t.Fatalf("Get(count) after jumping back to %d = %v, want 5", last, val)
	}
}

func TestCaptureAfterUndoTruncatesForwardTail(t *testing.T) {
	s := store.New()
	count := atom.Primitive(0, "trunc-count")
	tt := New(s)

	tt.Capture("c0")
	s.Set(count.AnyAtom(), 1)
	tt.Capture("c1")
	s.Set(count.AnyAtom(), 2)
	tt.Capture("c2")

	tt.Undo() // cursor now at c1
	s.Set(count.AnyAtom(), 99)
	tt.Capture("c1-alt")

	if tt.CanRedo() {
		t.Fatalf("CanRedo() = true after a write following Undo, want false (forward tail truncated)")
	}
	if len(tt.GetHistory()) != 3 {
		t.Fatalf("len(GetHistory()) = %d, want 3", len(tt.GetHistory()))
	}
}

func TestHistoryBound(t *testing.T) {
	s := store.New()
	count := atom.Primitive(0, "bound-count")
	tt := New(s, WithMaxHistory(3))

	for i := 0; i < 10; i++ {
		s.Set(count.AnyAtom(), i)
		tt.Capture("step")
	}

	if len(tt.GetHistory()) != 3 {
		t.Fatalf("len(GetHistory()) = %d, want 3", len(tt.GetHistory()))
	}
	val, _ := s.Get(count.AnyAtom())
	if val != 9 {
		t.Fatalf("Get(count) = %v, want 9", val)
	}
}

func TestImportStateResetsHistory(t *testing.T) {
	s := store.New()
	count := atom.Primitive(0, "import-count")
	tt := New(s)
	tt.Capture("c0")
	s.Set(count.AnyAtom(), 1)
	tt.Capture("c1")

	tt.ImportState(map[string]any{count.ID(): 42})

	val, _ := s.Get(count.AnyAtom())
	if val != 42 {
		t.Fatalf("Get(count) after ImportState = %v, want 42", val)
	}
	if len(tt.GetHistory()) != 1 {
		t.Fatalf("len(GetHistory()) after ImportState = %d, want 1", len(tt.GetHistory()))
	}
}

func TestCanUndoCanRedoBounds(t *testing.T) {
	s := store.New()
	tt := New(s)
	if tt.CanUndo() || tt.CanRedo() {
		t.Fatalf("empty history must report CanUndo=false, CanRedo=false")
	}
	tt.Capture("only")
	if tt.CanUndo() {
		t.Fatalf("single snapshot must report CanUndo=false")
	}
	if tt.CanRedo() {
		t.Fatalf("single snapshot must report CanRedo=false")
	}
}
