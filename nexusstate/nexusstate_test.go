// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package nexusstate

import (
	"testing"

	"github.com/nexus-state/nexus-state/registry"
	"github.com/nexus-state/nexus-state/store"
)

type recordingPlugin struct{ attached *bool }

func (p recordingPlugin) Attach(s *store.Store) { *p.attached = true }

func TestCreateStoreAppliesPlugins(t *testing.T) {
	var attached bool
	s := CreateStore(recordingPlugin{attached: &attached})
	if s == nil {
		t.Fatalf("CreateStore() returned nil")
	}
	if !attached {
		t.Fatalf("CreateStore() did not apply the given plugin")
	}
}

func TestPrimitiveComputedWritableRoundTrip(t *testing.T) {
	s := CreateStore()
	count := Primitive(1, "count")
	double := Computed(func(get Getter) int {
		return get.Get(count.AnyAtom()).(int) * 2
	}, "double")
	redirecting := Writable(
		func(get Getter) int { return get.Get(count.AnyAtom()).(int) },
		func(get Getter, set Setter, val int) error { return set.Set(count.AnyAtom(), val) },
		"redirecting",
	)

	val, err := s.Get(double.AnyAtom())
	if err != nil || val != 2 {
		t.Fatalf("Get(double) = (%v, %v), want (2, nil)", val, err)
	}

	if err := s.Set(redirecting.AnyAtom(), 5); err != nil {
		t.Fatalf("Set(redirecting) error: %v", err)
	}
	val, _ = s.Get(double.AnyAtom())
	if val != 10 {
		t.Fatalf("Get(double) after redirecting write = %v, want 10", val)
	}
}

func TestCreateEnhancedStoreGlobalMode(t *testing.T) {
	es := CreateEnhancedStore(EnhancedOptions{RegistryMode: RegistryModeGlobal})
	if es.TimeTravel == nil {
		t.Fatalf("EnhancedStore.TimeTravel is nil")
	}
	if es.Store.Mode() != registry.ModeGlobal {
		t.Fatalf("Store.Mode() = %v, want ModeGlobal", es.Store.Mode())
	}
}

func TestCreateEnhancedStoreIsolatedMode(t *testing.T) {
	es := CreateEnhancedStore(EnhancedOptions{RegistryMode: RegistryModeIsolated})
	if es.Store.Mode() != registry.ModeIsolated {
		t.Fatalf("Store.Mode() = %v, want ModeIsolated", es.Store.Mode())
	}

	count := Primitive(1, "isolated-count")
	val, err := es.Get(count.AnyAtom())
	if err != nil || val != 1 {
		t.Fatalf("Get(count) on isolated-mode store = (%v, %v), want (1, nil)", val, err)
	}
}

func TestCreateEnhancedStoreDebugEnabledFallsBackGracefully(t *testing.T) {
	// No devtools listener is running in the test environment, so Connect
	// must absorb the dial failure and leave the bridge in no-op mode
	// rather than fail store construction.
	es := CreateEnhancedStore(EnhancedOptions{DebugEnabled: true, DebugName: "test-instance"})
	if es.Bridge == nil {
		t.Fatalf("EnhancedStore.Bridge is nil when DebugEnabled was requested")
	}

	count := Primitive(1, "debug-count")
	if err := es.Set(count.AnyAtom(), 2); err != nil {
		t.Fatalf("Set() error with a no-op debug bridge attached: %v", err)
	}
}
