// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build nexus_noop

// Package bridge, noop build: the zero-cost stub selected by the
// nexus_noop build tag (§4.6(7), §6.4). Every method is a no-op so a
// production build can link the bridge package without paying for
// serialization, batching goroutines, or a transport dependency.
package bridge

import (
	"time"

	"github.com/nexus-state/nexus-state/naming"
	"github.com/nexus-state/nexus-state/store"
)

// DebugBridge presents the identical public surface as the full
// implementation but performs no work (§8 "Production noop equivalence:
// invoking every method of the noop bridge has no observable effect on
// store state").
type DebugBridge struct{}

// Option mirrors the full build's option signatures so call sites compile
// unchanged under either build tag.
type Option func(*DebugBridge)

func WithEndpoint(endpoint string) Option                   { return func(*DebugBridge) {} }
func WithLatencyWindow(d time.Duration) Option               { return func(*DebugBridge) {} }
func WithNamingStrategy(strat naming.Strategy) Option         { return func(*DebugBridge) {} }

func New(_ ...Option) *DebugBridge { return &DebugBridge{} }

func (b *DebugBridge) Attach(s *store.Store)             {}
func (b *DebugBridge) Connect(opts ConnectOptions) error { return nil }
func (b *DebugBridge) Close()                            {}
func (b *DebugBridge) StartBatch(id string)              {}
func (b *DebugBridge) EndBatch(id string)                {}
func (b *DebugBridge) HandleInbound(raw []byte) error    { return nil }

var _ Bridge = (*DebugBridge)(nil)
