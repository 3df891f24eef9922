// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package store implements the per-atom state, dependency graph,
// notification, and plugin surface described in §4.2. It is the engine
// that the teacher's tsunami/engine package plays for components:
// tsunami's RootElem.Atoms map plus atomImpl (GetVal/SetVal) generalise
// here into per-atom cached value + subscriber set + dependency edges,
// and tsunami/engine/globalctx.go's goroutine-local "current render
// context" marker generalises into package evalctx's per-goroutine
// evaluation stack.
package store

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nexus-state/nexus-state/atom"
	"github.com/nexus-state/nexus-state/evalctx"
	"github.com/nexus-state/nexus-state/log"
	"github.com/nexus-state/nexus-state/nexuserr"
	"github.com/nexus-state/nexus-state/registry"
	"github.com/nexus-state/nexus-state/serialize"
)

// subscriber is one listener registered via Subscribe. Carrying a stable
// id makes Unsubscribe idempotent: calling the returned disposer twice is
// a harmless no-op removal-of-nothing.
type subscriber struct {
	id     int64
	fn     func(val any)
	active bool
}

// atomState is the per-atom record described in §3 "Per-atom state":
// cached value, subscriber set, and the forward/reverse dependency edges
// recorded at the last evaluation.
type atomState struct {
	mu           sync.Mutex
	materialized bool
	value        any
	subscribers  []*subscriber
	dependents   map[string]bool // atoms that read this one during their last evaluation
	dependencies map[string]bool // atoms this one read during its last evaluation
}

// MutationEvent is delivered to every registered mutation observer after
// a write is accepted, per the Design Notes' registerMutationObserver
// (§9), which replaces the teacher's monkey-patched `set` with an
// explicit observer list.
type MutationEvent struct {
	Atom     atom.AnyAtom
	Prev     any
	Next     any
	Metadata map[string]any
}

// MutationObserver is notified of every accepted write, in registration
// order, after subscribers have already observed it (§5 "plugins observe
// the complete mutation").
type MutationObserver func(ev MutationEvent)

// Plugin is handed the store once, at attach time, so it can register
// whatever mutation observers or wrapped operations it needs (§4.2
// "applyPlugin").
type Plugin interface {
	Attach(s *Store)
}

// Store owns per-atom state, the dependency graph, and the plugin chain
// for one independent instance of the atom graph (§4.2).
type Store struct {
	id         string
	reg        *registry.Registry
	mode       registry.Mode
	mu         sync.Mutex
	states     map[string]*atomState
	observers  []MutationObserver
	plugins    []Plugin
	subCounter int64
}

// Option configures a store at construction (§6.1 createEnhancedStore
// options).
type Option func(*Store)

// WithRegistry attaches the store to a specific registry instance instead
// of the process-wide default (§4.3). Every atom self-registers into
// registry.Default() at creation time (via atom.RegisterHook), so this is
// only useful when the caller also registers its atoms explicitly into
// the same instance r — e.g. a hermetic test that builds both the atoms
// and the store against one fresh *registry.Registry. It is not how
// isolated-mode ownership is expressed; see WithMode.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Store) { s.reg = r }
}

// WithMode selects global or isolated atom ownership (§3 "Registry
// ownership rules").
func WithMode(m registry.Mode) Option {
	return func(s *Store) { s.mode = m }
}

// New creates a store and attaches it to its registry in the configured
// mode (§6.1 "createStore").
func New(opts ...Option) *Store {
	s := &Store{
		id:     uuid.NewString(),
		reg:    registry.Default(),
		mode:   registry.ModeGlobal,
		states: make(map[string]*atomState),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reg.AttachStore(s, s.mode)
	return s
}

// StoreID implements registry.StoreHandle.
func (s *Store) StoreID() string { return s.id }

// Registry returns the registry this store is attached to, for
// collaborators (time-travel, bridge) constructed with this store.
func (s *Store) Registry() *registry.Registry { return s.reg }

// Mode returns the registry ownership mode this store was created with.
func (s *Store) Mode() registry.Mode { return s.mode }

func (s *Store) stateFor(a atom.AnyAtom) *atomState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[a.ID()]
	if !ok {
		st = &atomState{
			dependents:   make(map[string]bool),
			dependencies: make(map[string]bool),
		}
		s.states[a.ID()] = st
	}
	return st
}

func (s *Store) existingState(id string) (*atomState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	return st, ok
}

func (s *Store) trackOwnership(a atom.AnyAtom) {
	s.reg.AssociateAtom(s, a.ID())
}

// materialize lazily evaluates a's initial value (§3 "Initial evaluation
// is lazy"). It must be called with a's atomState NOT already locked by
// the caller; it acquires the lock itself.
func (s *Store) materialize(a atom.AnyAtom) (any, error) {
	st := s.stateFor(a)
	st.mu.Lock()
	if st.materialized {
		v := st.value
		st.mu.Unlock()
		return v, nil
	}
	st.mu.Unlock()

	s.trackOwnership(a)

	var val any
	var err error
	switch a.Variant() {
	case atom.VariantPrimitive:
		val = a.InitialValue()
	case atom.VariantComputed, atom.VariantWritable:
		val, err = s.evaluate(a)
	default:
		err = nexuserr.InvalidAtomDefinition(fmt.Sprintf("unknown variant for atom %q", a.Name()))
	}
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	if !st.materialized {
		st.value = val
		st.materialized = true
	}
	v := st.value
	st.mu.Unlock()
	return v, nil
}

// storeGetter adapts the store to atom.Getter for one evaluation,
// recording dependency edges as each dependency is read.
type storeGetter struct {
	s          *Store
	evaluating atom.AnyAtom
}

func (g storeGetter) Get(a atom.AnyAtom) any {
	val, err := g.s.getRecording(a, g.evaluating)
	if err != nil {
		panic(err)
	}
	return val
}

type storeSetter struct{ s *Store }

func (w storeSetter) Set(a atom.AnyAtom, val any) error {
	_, err := w.s.set(a, val, nil)
	return err
}

// evaluate runs a computed/writable atom's read function under the
// evaluation stack, recording fresh dependency edges and detecting
// self-recursion (§4.2 "Cycle detection"). An error raised by a nested
// Get (which storeGetter.Get panics with, since Getter has no error
// return) is recovered here and returned to the caller.
func (s *Store) evaluate(a atom.AnyAtom) (val any, err error) {
	if isCycle := evalctx.Push(a.ID()); isCycle {
		return nil, nexuserr.CircularDependency(a.Name())
	}
	defer evalctx.Pop()
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(error)
			if !ok || nexuserr.GetCode(rerr) == "" {
				panic(r)
			}
			val, err = nil, rerr
		}
	}()

	// Edges are derived fresh on each evaluation (§3): clear this atom's
	// recorded dependencies before re-reading it, and drop the reverse
	// edge from each previously-recorded dependency.
	st := s.stateFor(a)
	st.mu.Lock()
	oldDeps := st.dependencies
	st.dependencies = make(map[string]bool)
	st.mu.Unlock()
	for depID := range oldDeps {
		if depSt, ok := s.existingState(depID); ok {
			depSt.mu.Lock()
			delete(depSt.dependents, a.ID())
			depSt.mu.Unlock()
		}
	}

	val = a.Read(storeGetter{s: s, evaluating: a})
	return val, nil
}

// getRecording resolves dep's value and, if evaluating is non-nil,
// records the dependency edge dep -> evaluating.
func (s *Store) getRecording(dep atom.AnyAtom, evaluating atom.AnyAtom) (any, error) {
	val, err := s.materialize(dep)
	if err != nil {
		return nil, err
	}
	if evaluating != nil {
		depSt := s.stateFor(dep)
		depSt.mu.Lock()
		depSt.dependents[evaluating.ID()] = true
		depSt.mu.Unlock()

		evalSt := s.stateFor(evaluating)
		evalSt.mu.Lock()
		evalSt.dependencies[dep.ID()] = true
		evalSt.mu.Unlock()
	}
	return val, nil
}

// Get returns a's cached value, materialising it lazily (§4.2 "get").
// Dependency edges are recorded only through the Getter passed into a
// derivation's read function (see storeGetter.Get), never through a
// direct call to Get from outside an evaluation.
func (s *Store) Get(a atom.AnyAtom) (any, error) {
	return s.materialize(a)
}

// Updater is the function form accepted by Set, applied to the prior
// cached value (§4.2 "set").
type Updater func(prev any) any

// Set writes a new value to a writable/primitive atom, recomputes
// dependents, and notifies subscribers (§4.2 "set"). value may be a
// plain value or an Updater.
func (s *Store) Set(a atom.AnyAtom, value any) error {
	_, err := s.set(a, value, nil)
	return err
}

// SetWithMetadata is identical to Set but attaches metadata to the
// resulting MutationEvent seen by observers (§4.2 "setWithMetadata").
func (s *Store) SetWithMetadata(a atom.AnyAtom, value any, metadata map[string]any) error {
	_, err := s.set(a, value, metadata)
	return err
}

// peekValue returns a's cached value without forcing materialization, and
// whether it was already materialized.
func (s *Store) peekValue(a atom.AnyAtom) (any, bool) {
	st, ok := s.existingState(a.ID())
	if !ok {
		return nil, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.materialized {
		return nil, false
	}
	return st.value, true
}

func (s *Store) set(a atom.AnyAtom, value any, metadata map[string]any) (any, error) {
	if a.Variant() == atom.VariantComputed {
		return nil, nexuserr.WriteToComputed(a.Name())
	}

	if a.Variant() == atom.VariantWritable {
		// A writable atom has no value of its own besides what its read()
		// derives; write() redirects the mutation to underlying primitives
		// via the passed Setter, and that nested Set is what notifies any
		// subscribers of this atom (it is a dependent of whatever
		// primitives it reads). We must not also notify it here, or
		// subscribers would see the same value twice per write.
		prev, _ := s.peekValue(a)
		if err := a.Write(storeGetter{s: s}, storeSetter{s: s}, value); err != nil {
			return nil, err
		}
		next, _ := s.peekValue(a)
		s.observeMutation(a, prev, next, metadata)
		return next, nil
	}

	// Materialize so "prior cached value" is well defined for updaters.
	prev, err := s.materialize(a)
	if err != nil {
		return nil, err
	}

	var next any
	if upd, ok := value.(Updater); ok {
		next = upd(prev)
	} else {
		next = value
	}

	st := s.stateFor(a)
	st.mu.Lock()
	st.value = next
	st.materialized = true
	st.mu.Unlock()

	s.notify(a)
	s.observeMutation(a, prev, next, metadata)
	return next, nil
}

// notify fires subscribers for changed and recomputes every
// transitively-dependent computed/writable atom exactly once, each only
// after every one of its own affected-set dependencies has already
// settled (§4.2 "set", §9 ordering design note: a deterministic order
// instead of hash-set iteration order).
//
// A single DFS with a `visited` guard is not enough here: in a diamond
// (base -> left, right; sum <- left, right), reaching `sum` through
// whichever sibling is visited first would recompute it against one
// fresh and one still-stale dependency, cache that wrong value, and
// then the visited guard would block the second, correct recomputation
// from ever running. Kahn's algorithm restricted to the sub-DAG reachable
// from changed fixes this: a node only becomes ready once every
// affected-set predecessor it reads through has already been
// recomputed, so by the time it is evaluated every dependency it
// observes through storeGetter.Get is already settled.
func (s *Store) notify(changed atom.AnyAtom) {
	s.fireSubscribers(changed)

	affected := make(map[string]bool)
	var order []atom.AnyAtom
	var collect func(a atom.AnyAtom)
	collect = func(a atom.AnyAtom) {
		st := s.stateFor(a)
		st.mu.Lock()
		depIDs := make([]string, 0, len(st.dependents))
		for id := range st.dependents {
			depIDs = append(depIDs, id)
		}
		st.mu.Unlock()

		for _, depID := range depIDs {
			if affected[depID] {
				continue
			}
			depAtom, ok := s.reg.Get(depID)
			if !ok {
				continue
			}
			if depAtom.Variant() != atom.VariantComputed && depAtom.Variant() != atom.VariantWritable {
				continue
			}
			affected[depID] = true
			order = append(order, depAtom)
			collect(depAtom)
		}
	}
	collect(changed)
	if len(order) == 0 {
		return
	}

	byID := make(map[string]atom.AnyAtom, len(order))
	inDegree := make(map[string]int, len(order))
	for _, a := range order {
		byID[a.ID()] = a
		st := s.stateFor(a)
		st.mu.Lock()
		count := 0
		for depID := range st.dependencies {
			if affected[depID] {
				count++
			}
		}
		st.mu.Unlock()
		inDegree[a.ID()] = count
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	processed := make(map[string]bool, len(order))
	for len(ready) > 0 {
		sort.Strings(ready) // deterministic pick among equally-ready nodes
		id := ready[0]
		ready = ready[1:]
		if processed[id] {
			continue
		}
		processed[id] = true
		a := byID[id]
		aSt := s.stateFor(a)

		aSt.mu.Lock()
		oldVal := aSt.value
		aSt.mu.Unlock()

		newVal, err := s.evaluate(a)
		if err != nil {
			log.L().Warnw("dependent recomputation failed", "atom", a.Name(), "error", err)
		} else {
			aSt.mu.Lock()
			aSt.value = newVal
			aSt.materialized = true
			aSt.mu.Unlock()

			if !valueEqual(oldVal, newVal) {
				s.fireSubscribers(a)
			}
		}

		aSt.mu.Lock()
		depIDs := make([]string, 0, len(aSt.dependents))
		for depID := range aSt.dependents {
			depIDs = append(depIDs, depID)
		}
		aSt.mu.Unlock()
		for _, depID := range depIDs {
			if !affected[depID] || processed[depID] {
				continue
			}
			inDegree[depID]--
			if inDegree[depID] <= 0 {
				ready = append(ready, depID)
			}
		}
	}
}

func (s *Store) fireSubscribers(a atom.AnyAtom) {
	st := s.stateFor(a)
	st.mu.Lock()
	val := st.value
	// Snapshot-at-start (§9 open question resolution): a listener added
	// mid-notification is not invoked for this pass.
	subs := make([]*subscriber, len(st.subscribers))
	copy(subs, st.subscribers)
	st.mu.Unlock()

	for _, sub := range subs {
		if !sub.active {
			continue
		}
		s.invokeSubscriber(a, sub, val)
	}
}

func (s *Store) invokeSubscriber(a atom.AnyAtom, sub *subscriber, val any) {
	defer func() {
		if r := recover(); r != nil {
			log.L().Errorw("subscriber panicked", "atom", a.Name(), "error", r)
		}
	}()
	sub.fn(val)
}

func (s *Store) observeMutation(a atom.AnyAtom, prev, next any, metadata map[string]any) {
	s.mu.Lock()
	observers := make([]MutationObserver, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	ev := MutationEvent{Atom: a, Prev: prev, Next: next, Metadata: metadata}
	for _, obs := range observers {
		s.invokeObserver(obs, ev)
	}
}

func (s *Store) invokeObserver(obs MutationObserver, ev MutationEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.L().Errorw("plugin observer panicked", "atom", ev.Atom.Name(), "error", r)
		}
	}()
	obs(ev)
}

// Subscribe materialises a's state if absent, registers listener, and
// returns an idempotent unsubscribe function (§4.2 "subscribe").
func (s *Store) Subscribe(a atom.AnyAtom, listener func(val any)) (func(), error) {
	if _, err := s.materialize(a); err != nil {
		return nil, err
	}
	id := atomic.AddInt64(&s.subCounter, 1)
	sub := &subscriber{id: id, fn: listener, active: true}

	st := s.stateFor(a)
	st.mu.Lock()
	st.subscribers = append(st.subscribers, sub)
	st.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			st.mu.Lock()
			sub.active = false
			for i, existing := range st.subscribers {
				if existing.id == id {
					st.subscribers = append(st.subscribers[:i], st.subscribers[i+1:]...)
					break
				}
			}
			st.mu.Unlock()
		})
	}, nil
}

// GetState returns a debugging-only snapshot view keyed by atom id
// (§4.2 "getState").
func (s *Store) GetState() map[string]any {
	s.mu.Lock()
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	out := make(map[string]any, len(ids))
	for _, id := range ids {
		st, ok := s.existingState(id)
		if !ok {
			continue
		}
		st.mu.Lock()
		out[id] = st.value
		st.mu.Unlock()
	}
	return out
}

// SerializeState returns a JSON-encodable snapshot of every materialised
// atom, keyed by stable atom-key (the atom's id rendered as a string, per
// §6.3 "A mapping from stable atom-key to value" and §4.2's own
// definition of stable-key used by GetState), delegating to package
// serialize with default limits (§4.2 "serializeState delegates to the
// serialiser of §4.6"). Unmaterialised atoms are omitted rather than
// forced, since serialising state must not have the side effect of
// evaluating lazy computations.
//
// Keying by name would collide whenever two atoms share a display name —
// spec.md §3 places no uniqueness constraint on the optional,
// debugging-only name — silently dropping one atom's state from the
// snapshot and from any IMPORT_STATE round-trip built on top of it.
func (s *Store) SerializeState() (map[string]any, error) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	byID := make(map[string]any, len(ids))
	for _, id := range ids {
		a, ok := s.reg.Get(id)
		if !ok {
			continue
		}
		val, ok := s.peekValue(a)
		if !ok {
			continue
		}
		byID[id] = val
	}
	return serialize.Serialize(byID, serialize.Options{})
}

// ApplyPlugin stores the plugin reference and lets it attach (§4.2
// "applyPlugin").
func (s *Store) ApplyPlugin(p Plugin) {
	s.mu.Lock()
	s.plugins = append(s.plugins, p)
	s.mu.Unlock()
	p.Attach(s)
}

// GetPlugins returns every plugin attached so far.
func (s *Store) GetPlugins() []Plugin {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Plugin, len(s.plugins))
	copy(out, s.plugins)
	return out
}

// RegisterMutationObserver attaches observer to every future accepted
// write (§9 "Debug-bridge set monkey-patch" design note). This is how
// the debug bridge instruments the store without overriding Set.
func (s *Store) RegisterMutationObserver(observer MutationObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// GetIntercepted and SetIntercepted are aliases of Get/Set that exist so
// callers can route uniformly through "the interception chain" per
// §4.2 — in this implementation every Get/Set already passes through the
// same evaluation and observer paths, so these simply delegate.
func (s *Store) GetIntercepted(a atom.AnyAtom) (any, error) { return s.Get(a) }
func (s *Store) SetIntercepted(a atom.AnyAtom, value any) error {
	return s.Set(a, value)
}
