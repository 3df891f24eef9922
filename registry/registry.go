// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package registry implements the process-wide atom directory (§4.3): a
// mapping from atom id to atom definition and display metadata, plus the
// global/isolated store-attachment bookkeeping described in §3
// "Registry".
//
// This mirrors the teacher's process-wide pub/sub broker
// (tsunami's own RootElem.Atoms is per-store, but the shape of a
// mutex-guarded map keyed by a stable id, with a side map recording which
// owner holds which keys, is the same one `pkg/eventbus`'s package-level
// `wsMap` and `pkg/wps`'s `Broker.ClientMap`/`SubMap` use for a
// process-wide singleton) generalised to two ownership modes instead of
// one.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/nexus-state/nexus-state/atom"
	"github.com/nexus-state/nexus-state/nexuserr"
)

// Mode selects how a store's atoms are tracked (§3 "Registry").
type Mode int

const (
	ModeGlobal Mode = iota
	ModeIsolated
)

// GlobalOwner is the sentinel returned by GetStoreForAtom when an atom is
// owned by the shared global registry rather than a specific isolated
// store.
const GlobalOwner = "__global__"

// StoreHandle is the minimal surface the registry needs from a store to
// resolve an atom's current value during getAtomValue (§4.3). The store
// package implements this; registry never imports store (store imports
// registry) to avoid a dependency cycle.
type StoreHandle interface {
	StoreID() string
	Get(a atom.AnyAtom) (any, error)
}

// Metadata is the per-atom record the registry tracks (§3 "Registry").
type Metadata struct {
	Name      string
	CreatedAt time.Time
	Variant   atom.Variant
}

type entry struct {
	atom atom.AnyAtom
	meta Metadata
}

type attachment struct {
	store      StoreHandle
	mode       Mode
	ownedAtoms map[string]bool
}

// Registry is the process-wide atom directory. Construct one with New (the
// zero value has nil maps and cannot register atoms); Default() returns
// the shared singleton instance that stores in both global and isolated
// mode attach to unless given another one.
type Registry struct {
	mu         sync.Mutex
	entries    map[string]*entry
	attachedBy map[string]*attachment // atom id -> attaching store (isolated mode)
	stores     map[string]*attachment // store id -> attachment
	counter    int
}

func New() *Registry {
	return &Registry{
		entries:    make(map[string]*entry),
		attachedBy: make(map[string]*attachment),
		stores:     make(map[string]*attachment),
	}
}

var defaultRegistry = New()

// Default returns the shared global-mode registry singleton.
func Default() *Registry {
	return defaultRegistry
}

func init() {
	atom.RegisterHook = func(a atom.AnyAtom) {
		Default().Register(a)
	}
}

// Register records a's definition and metadata (§4.3 "register"). It is
// idempotent for the same atom id: a re-registration with a non-empty
// name updates the display name but preserves the original creation
// timestamp.
func (r *Registry) Register(a atom.AnyAtom, name ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	displayName := a.Name()
	if len(name) > 0 && name[0] != "" {
		displayName = name[0]
	}

	if existing, ok := r.entries[a.ID()]; ok {
		if displayName != "" {
			existing.meta.Name = displayName
		}
		return
	}

	if displayName == "" {
		r.counter++
		displayName = fmt.Sprintf("atom-%d", r.counter)
	}

	r.entries[a.ID()] = &entry{
		atom: a,
		meta: Metadata{
			Name:      displayName,
			CreatedAt: time.Now(),
			Variant:   a.Variant(),
		},
	}
}

// Get resolves an atom by id.
func (r *Registry) Get(id string) (atom.AnyAtom, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.atom, true
}

// GetName returns a's registered display name, falling back to its id if
// it was somehow never registered (should not happen in practice, since
// the factory always registers).
func (r *Registry) GetName(a atom.AnyAtom) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[a.ID()]; ok {
		return e.meta.Name
	}
	return a.ID()
}

// GetMetadata returns a's registered metadata.
func (r *Registry) GetMetadata(a atom.AnyAtom) (Metadata, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[a.ID()]
	if !ok {
		return Metadata{}, false
	}
	return e.meta, true
}

// GetAll returns every registered atom, in no particular order.
func (r *Registry) GetAll() []atom.AnyAtom {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]atom.AnyAtom, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.atom)
	}
	return out
}

// Size returns the number of registered atoms.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Clear wipes every registration and attachment. Intended for tests only
// (§4.3).
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*entry)
	r.attachedBy = make(map[string]*attachment)
	r.stores = make(map[string]*attachment)
	r.counter = 0
}

// AttachStore records store as attached in the given mode and initialises
// its owned-atom set (§4.3 "attachStore").
func (r *Registry) AttachStore(store StoreHandle, mode Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	att := &attachment{store: store, mode: mode, ownedAtoms: make(map[string]bool)}
	r.stores[store.StoreID()] = att
}

// AssociateAtom records that atomID is owned by store, per the
// attachment's mode (§3 "Registry ownership rules"). Global-mode stores
// do not claim ownership; isolated-mode stores do.
func (r *Registry) AssociateAtom(store StoreHandle, atomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	att, ok := r.stores[store.StoreID()]
	if !ok {
		return
	}
	if att.mode == ModeIsolated {
		att.ownedAtoms[atomID] = true
		r.attachedBy[atomID] = att
	}
}

// GetStoreForAtom returns the owning isolated store for id, or
// GlobalOwner if the atom is owned by the shared global registry (§4.3
// "getStoreForAtom").
func (r *Registry) GetStoreForAtom(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	att, ok := r.attachedBy[id]
	if !ok {
		return GlobalOwner
	}
	return att.store.StoreID()
}

// GetAtomsForStore returns the atom ids owned by store in isolated mode
// (§4.3 "getAtomsForStore").
func (r *Registry) GetAtomsForStore(store StoreHandle) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	att, ok := r.stores[store.StoreID()]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(att.ownedAtoms))
	for id := range att.ownedAtoms {
		ids = append(ids, id)
	}
	return ids
}

// GetAtomValue resolves id, finds its owning store, and returns
// store.Get(atom). On any failure it returns the atom definition itself
// (or an UnknownAtom error) so the caller can handle a missing value
// without panicking (§4.3 "getAtomValue").
func (r *Registry) GetAtomValue(id string) (any, error) {
	r.mu.Lock()
	a, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return nil, nexuserr.UnknownAtom(id)
	}
	att, hasOwner := r.attachedBy[id]
	r.mu.Unlock()

	if !hasOwner {
		return a.atom, nexuserr.UnknownAtom(id)
	}
	val, err := att.store.Get(a.atom)
	if err != nil {
		return a.atom, err
	}
	return val, nil
}
