// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package nexusstate is the public operation surface (§6.1): the atom
// factory re-exported for a single import path, plus the two store
// constructors, createStore and createEnhancedStore.
package nexusstate

import (
	"github.com/nexus-state/nexus-state/atom"
	"github.com/nexus-state/nexus-state/bridge"
	"github.com/nexus-state/nexus-state/naming"
	"github.com/nexus-state/nexus-state/registry"
	"github.com/nexus-state/nexus-state/store"
	"github.com/nexus-state/nexus-state/timetravel"
)

type (
	Getter  = atom.Getter
	Setter  = atom.Setter
	AnyAtom = atom.AnyAtom
)

// Primitive, Computed, and Writable re-export the atom factory under this
// package's import path (§4.1, §6.1). They forward directly to package
// atom; Go has no way to alias a generic function as a package-level
// value, so these are thin instantiating wrappers rather than `var`
// aliases.
func Primitive[T any](initialValue T, name ...string) atom.PrimitiveAtom[T] {
	return atom.Primitive(initialValue, name...)
}

func Computed[T any](read func(get Getter) T, name ...string) atom.ComputedAtom[T] {
	return atom.Computed(read, name...)
}

func Writable[T any](read func(get Getter) T, write func(get Getter, set Setter, val T) error, name ...string) atom.WritableAtom[T] {
	return atom.Writable(read, write, name...)
}

// RegistryMode selects global or isolated atom ownership for an enhanced
// store (§6.1 options.registryMode).
type RegistryMode string

const (
	RegistryModeGlobal   RegistryMode = "global"
	RegistryModeIsolated RegistryMode = "isolated"
)

// EnhancedOptions configures CreateEnhancedStore (§6.1 "options =
// {registryMode, debugEnabled?, debugName?}").
type EnhancedOptions struct {
	RegistryMode  RegistryMode
	DebugEnabled  bool
	DebugName     string
	NamingStrategy naming.Strategy
}

// CreateStore builds a plain store and applies any plugins (§6.1
// "createStore(plugins?) -> Store").
func CreateStore(plugins ...store.Plugin) *store.Store {
	s := store.New()
	for _, p := range plugins {
		s.ApplyPlugin(p)
	}
	return s
}

// EnhancedStore bundles a store with the collaborators the spec surfaces
// on an "enhanced" store: time-travel and, when debugEnabled, the debug
// bridge (§6.1 "Time-travel methods... are surfaced on the enhanced
// store or on a controller reachable through it").
type EnhancedStore struct {
	*store.Store
	TimeTravel *timetravel.Controller
	Bridge     bridge.Bridge
}

// CreateEnhancedStore builds a store in the requested registry mode,
// attaches a time-travel controller, applies plugins, and optionally
// attaches the debug bridge (§6.1 "createEnhancedStore(plugins?,
// options?) -> EnhancedStore").
func CreateEnhancedStore(opts EnhancedOptions, plugins ...store.Plugin) *EnhancedStore {
	mode := registry.ModeGlobal
	if opts.RegistryMode == RegistryModeIsolated {
		mode = registry.ModeIsolated
	}

	// Both modes share the single process-wide registry: atom identity and
	// metadata always live there (every atom self-registers into it at
	// creation, §4.1/§4.3). "isolated" only changes which store claims
	// ownership of an atom for capture scope and getStoreForAtom, tracked
	// as side bookkeeping inside that same registry instance.
	s := store.New(store.WithMode(mode))

	es := &EnhancedStore{
		Store:      s,
		TimeTravel: timetravel.New(s),
	}

	for _, p := range plugins {
		s.ApplyPlugin(p)
	}

	if opts.DebugEnabled {
		var bridgeOpts []bridge.Option
		if opts.NamingStrategy != nil {
			bridgeOpts = append(bridgeOpts, bridge.WithNamingStrategy(opts.NamingStrategy))
		}
		b := bridge.New(bridgeOpts...)
		s.ApplyPlugin(b)
		_ = b.Connect(bridge.ConnectOptions{InstanceName: opts.DebugName})
		es.Bridge = b
	}

	return es
}
