// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package timetravel implements the bounded history of state snapshots
// described in §4.4: capture/undo/redo/jumpTo/import, restoring through
// the store so derivations correctly recompute instead of being restored
// as cached values (the §4.4/§9 open question, resolved here in favor of
// invalidation).
//
// The bounded-buffer-with-cursor shape is grounded on the teacher's
// utilds.VersionTs (monotonic version stamping for ordering) and the
// wstore package's update-stack-as-a-slice pattern
// (wstore.ContextWithUpdates pushes/pops a stack of maps); here a single
// slice plus integer cursor plays the same role, sized by MaxHistory
// instead of by explicit push/pop calls.
package timetravel

import (
	"time"

	"github.com/google/uuid"

	"github.com/nexus-state/nexus-state/atom"
	"github.com/nexus-state/nexus-state/log"
	"github.com/nexus-state/nexus-state/nexuserr"
	"github.com/nexus-state/nexus-state/registry"
	"github.com/nexus-state/nexus-state/store"
)

const DefaultMaxHistory = 50

// AtomValue is one atom's captured value and variant, keyed by atom id in
// a Snapshot (§3 "Snapshot").
type AtomValue struct {
	Value   any
	Variant atom.Variant
}

// Snapshot is a plain-data view of every captured atom's value at an
// instant (§3 "Snapshot"). It is designed to survive the debug-bridge
// serializer untouched.
type Snapshot struct {
	ID          string
	Values      map[string]AtomValue
	Timestamp   time.Time
	ActionLabel string
	AtomCount   int
}

// Option configures a Controller at construction.
type Option func(*Controller)

// WithMaxHistory overrides the default history bound of 50 (§3 "History
// buffer").
func WithMaxHistory(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxHistory = n
		}
	}
}

// Controller is the time-travel interface of §4.4, bound to one store
// and the registry it is attached to (§9 "Implicit coupling... Codify
// the three-way interface").
type Controller struct {
	store      *store.Store
	reg        *registry.Registry
	maxHistory int
	history    []*Snapshot
	cursor     int // -1 when history is empty
}

// New constructs a time-travel controller for store, reading atom
// metadata from store.Registry().
func New(s *store.Store, opts ...Option) *Controller {
	c := &Controller{
		store:      s,
		reg:        s.Registry(),
		maxHistory: DefaultMaxHistory,
		cursor:     -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) atomsToCapture() []atom.AnyAtom {
	if c.store.Mode() == registry.ModeIsolated {
		var out []atom.AnyAtom
		for _, id := range c.reg.GetAtomsForStore(c.store) {
			if a, ok := c.reg.Get(id); ok {
				out = append(out, a)
			}
		}
		return out
	}
	var out []atom.AnyAtom
	for _, a := range c.reg.GetAll() {
		if c.reg.GetStoreForAtom(a.ID()) == registry.GlobalOwner {
			out = append(out, a)
		}
	}
	return out
}

// Capture walks the registry, reads every atom's current value through
// the bound store, and appends a new snapshot, advancing the cursor
// (§4.4 "capture"). If the cursor was not at the tail (a write happened
// after an undo), the forward tail is truncated first.
func (c *Controller) Capture(action ...string) *Snapshot {
	label := ""
	if len(action) > 0 {
		label = action[0]
	}
	atoms := c.atomsToCapture()
	values := make(map[string]AtomValue, len(atoms))
	for _, a := range atoms {
		val, err := c.store.Get(a)
		if err != nil {
			log.L().Warnw("capture: skipping atom", "atom", a.Name(), "error", err)
			continue
		}
		values[a.ID()] = AtomValue{Value: val, Variant: a.Variant()}
	}
	snap := &Snapshot{
		ID:          uuid.NewString(),
		Values:      values,
		Timestamp:   time.Now(),
		ActionLabel: label,
		AtomCount:   len(values),
	}

	if c.cursor < len(c.history)-1 {
		c.history = c.history[:c.cursor+1]
	}
	c.history = append(c.history, snap)
	c.cursor = len(c.history) - 1

	if len(c.history) > c.maxHistory {
		overflow := len(c.history) - c.maxHistory
		c.history = append([]*Snapshot{}, c.history[overflow:]...)
		c.cursor -= overflow
	}
	return snap
}

// restore writes every non-computed atom value in snap through the
// store. Restoration is best-effort: an atom present in the snapshot but
// absent from the registry is logged and skipped, and a write failure
// for one atom does not abort the others (§4.4 "restore").
func (c *Controller) restore(snap *Snapshot) {
	for id, av := range snap.Values {
		a, ok := c.reg.Get(id)
		if !ok {
			log.L().Warnw("restore: unknown atom, skipping", "id", id, "error", nexuserr.UnknownAtom(id))
			continue
		}
		if a.Variant() == atom.VariantComputed {
			// Computed atoms are never restored directly; they recompute
			// from their (now-restored) dependencies.
			continue
		}
		if err := c.store.Set(a, av.Value); err != nil {
			log.L().Warnw("restore: write failed, skipping", "atom", a.Name(), "error", err)
			continue
		}
	}
}

// CanUndo reports whether the cursor can move backward (§8).
func (c *Controller) CanUndo() bool { return c.cursor > 0 }

// CanRedo reports whether the cursor can move forward (§8).
func (c *Controller) CanRedo() bool { return c.cursor >= 0 && c.cursor < len(c.history)-1 }

// Undo moves the cursor back one snapshot and restores it, returning
// false if already at the earliest snapshot (§4.4 "undo").
func (c *Controller) Undo() bool {
	if !c.CanUndo() {
		return false
	}
	c.cursor--
	c.restore(c.history[c.cursor])
	return true
}

// Redo moves the cursor forward one snapshot and restores it, returning
// false if already at the latest snapshot (§4.4 "redo").
func (c *Controller) Redo() bool {
	if !c.CanRedo() {
		return false
	}
	c.cursor++
	c.restore(c.history[c.cursor])
	return true
}

// JumpTo moves the cursor to index and restores it, returning false if
// index is out of range or already current (§4.4 "jumpTo").
func (c *Controller) JumpTo(index int) bool {
	if index < 0 || index >= len(c.history) {
		return false
	}
	if index == c.cursor {
		return false
	}
	c.cursor = index
	c.restore(c.history[c.cursor])
	return true
}

// ClearHistory discards every snapshot and resets the cursor.
func (c *Controller) ClearHistory() {
	c.history = nil
	c.cursor = -1
}

// GetHistory returns every retained snapshot, oldest first.
func (c *Controller) GetHistory() []*Snapshot {
	out := make([]*Snapshot, len(c.history))
	copy(out, c.history)
	return out
}

// Cursor returns the current history index, or -1 if history is empty.
func (c *Controller) Cursor() int { return c.cursor }

// ImportState clears history, builds a fresh snapshot from raw (atom id
// -> value), inferring each atom's variant from the registry, appends it
// at cursor 0, and restores it (§4.4 "importState").
func (c *Controller) ImportState(raw map[string]any) bool {
	c.ClearHistory()
	values := make(map[string]AtomValue, len(raw))
	for id, val := range raw {
		variant := atom.VariantPrimitive
		if a, ok := c.reg.Get(id); ok {
			variant = a.Variant()
		}
		values[id] = AtomValue{Value: val, Variant: variant}
	}
	snap := &Snapshot{
		ID:        uuid.NewString(),
		Values:    values,
		Timestamp: time.Now(),
		AtomCount: len(values),
	}
	c.history = []*Snapshot{snap}
	c.cursor = 0
	c.restore(snap)
	return true
}
