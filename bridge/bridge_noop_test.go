// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build nexus_noop

package bridge

import (
	"testing"

	"github.com/nexus-state/nexus-state/atom"
	"github.com/nexus-state/nexus-state/store"
)

// Exercises §8's "Production noop equivalence" property: under the
// nexus_noop build tag, every bridge method must be callable and must
// leave the attached store's behavior completely unchanged.
func TestNoopBridgeHasNoObservableEffect(t *testing.T) {
	b := New(WithEndpoint("ws://unused"), WithLatencyWindow(0), WithNamingStrategy(nil))
	s := store.New()
	b.Attach(s)

	if err := b.Connect(ConnectOptions{InstanceName: "noop"}); err != nil {
		t.Fatalf("Connect() on noop bridge returned an error: %v", err)
	}

	count := atom.Primitive(1, "count")
	var notified int
	s.Subscribe(count.AnyAtom(), func(any) { notified++ })

	if err := s.Set(count.AnyAtom(), 2); err != nil {
		t.Fatalf("Set() with noop bridge attached returned an error: %v", err)
	}
	val, _ := s.Get(count.AnyAtom())
	if val != 2 {
		t.Fatalf("Get(count) = %v, want 2", val)
	}
	if notified != 1 {
		t.Fatalf("subscriber fired %d times, want exactly 1 regardless of the attached noop bridge", notified)
	}

	b.StartBatch("g")
	b.EndBatch("g")
	if err := b.HandleInbound([]byte(`{"type":"DISPATCH","payload":{"type":"START"}}`)); err != nil {
		t.Fatalf("HandleInbound() on noop bridge returned an error: %v", err)
	}
	b.Close()
}
