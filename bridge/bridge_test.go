// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !nexus_noop

package bridge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-state/nexus-state/atom"
	"github.com/nexus-state/nexus-state/store"
)

func failingDialer(endpoint string) (*websocket.Conn, error) {
	return nil, assert.AnError
}

func TestConnectFallsBackToNoopOnDialFailure(t *testing.T) {
	b := New(WithDialer(failingDialer))
	s := store.New()
	b.Attach(s)

	err := b.Connect(ConnectOptions{InstanceName: "test"})
	require.NoError(t, err, "Connect must absorb a dial failure rather than return an error")
	assert.True(t, b.noop, "bridge should have fallen back to no-op mode")

	// Every method should remain safe to call against a no-op bridge.
	count := atom.Primitive(1, "count")
	require.NoError(t, s.Set(count.AnyAtom(), 2))
	b.StartBatch("g1")
	b.EndBatch("g1")
	assert.NoError(t, b.HandleInbound([]byte(`{"type":"DISPATCH","payload":{"type":"START"}}`)))
	b.Close()
}

func TestBatchingCoalescesMutationsIntoOneActionMessage(t *testing.T) {
	b := New(WithLatencyWindow(20 * time.Millisecond))
	s := store.New()
	b.Attach(s)
	count := atom.Primitive(0, "count")

	for i := 1; i <= 3; i++ {
		s.Set(count.AnyAtom(), i)
	}

	b.batchMu.Lock()
	pending := len(b.pending)
	b.batchMu.Unlock()
	assert.Equal(t, 3, pending, "all three mutations should be queued before the latency window elapses")

	time.Sleep(40 * time.Millisecond)

	b.batchMu.Lock()
	pending = len(b.pending)
	b.batchMu.Unlock()
	assert.Equal(t, 0, pending, "pending queue should have been flushed once the latency window elapsed")
}

func TestStartBatchEndBatchGroupsExplicitly(t *testing.T) {
	b := New(WithLatencyWindow(time.Hour)) // long enough that only the bracket flush matters
	s := store.New()
	b.Attach(s)
	count := atom.Primitive(0, "count")

	b.StartBatch("group-1")
	s.Set(count.AnyAtom(), 1)
	s.Set(count.AnyAtom(), 2)

	b.batchMu.Lock()
	pending := len(b.pending)
	b.batchMu.Unlock()
	assert.Equal(t, 2, pending, "mutations inside an open bracket must not flush early")

	b.EndBatch("group-1")

	b.batchMu.Lock()
	pending = len(b.pending)
	b.batchMu.Unlock()
	assert.Equal(t, 0, pending, "EndBatch on the outermost bracket must flush")
}

func TestHandleInboundJumpToState(t *testing.T) {
	b := New()
	s := store.New()
	b.Attach(s)
	count := atom.Primitive(0, "count")
	s.Set(count.AnyAtom(), 1) // captured as history[0]
	s.Set(count.AnyAtom(), 2) // captured as history[1], current cursor

	idx := 0
	env := dispatchEnvelope(t, CommandPayload{Type: CmdJumpToState, Index: &idx})
	require.NoError(t, b.HandleInbound(env))

	val, _ := s.Get(count.AnyAtom())
	assert.Equal(t, 1, val, "JUMP_TO_STATE to index 0 should restore the first captured snapshot")
}

func TestHandleInboundJumpToAction(t *testing.T) {
	b := New()
	s := store.New()
	b.Attach(s)
	count := atom.Primitive(0, "count")
	s.Set(count.AnyAtom(), 1)
	s.Set(count.AnyAtom(), 2)

	history := b.tt.GetHistory()
	require.True(t, len(history) >= 2)
	target := history[0].ActionLabel
	require.NotEmpty(t, target)

	env := dispatchEnvelope(t, CommandPayload{Type: CmdJumpToAction, ActionName: target})
	require.NoError(t, b.HandleInbound(env))
}

func TestHandleInboundImportStateRejectsBadChecksum(t *testing.T) {
	b := New()
	s := store.New()
	b.Attach(s)
	count := atom.Primitive(0, "count")

	env := dispatchEnvelope(t, CommandPayload{
		Type:     CmdImportState,
		State:    map[string]any{count.AnyAtom().ID(): 42},
		Checksum: "not-the-real-checksum",
	})
	err := b.HandleInbound(env)
	assert.Error(t, err, "IMPORT_STATE with a mismatched checksum must be rejected")
}

func TestHandleInboundImportStateAppliesState(t *testing.T) {
	b := New()
	s := store.New()
	b.Attach(s)
	count := atom.Primitive(0, "count")

	env := dispatchEnvelope(t, CommandPayload{
		Type:  CmdImportState,
		State: map[string]any{count.AnyAtom().ID(): 42},
	})
	require.NoError(t, b.HandleInbound(env))

	val, _ := s.Get(count.AnyAtom())
	assert.Equal(t, 42, val)
}

func TestHandleInboundStartStopToggleLiveDispatch(t *testing.T) {
	b := New()
	s := store.New()
	b.Attach(s)

	require.NoError(t, b.HandleInbound(dispatchEnvelope(t, CommandPayload{Type: CmdStop})))
	assert.False(t, b.liveDispatch.Load())

	require.NoError(t, b.HandleInbound(dispatchEnvelope(t, CommandPayload{Type: CmdStart})))
	assert.True(t, b.liveDispatch.Load())
}

func TestHandleInboundCommitResendsInit(t *testing.T) {
	b := New()
	s := store.New()
	b.Attach(s)
	require.NoError(t, b.HandleInbound(dispatchEnvelope(t, CommandPayload{Type: CmdCommit})))
}

func TestHandleInboundResetIsAbsorbed(t *testing.T) {
	b := New()
	s := store.New()
	b.Attach(s)
	assert.NoError(t, b.HandleInbound(dispatchEnvelope(t, CommandPayload{Type: CmdReset})))
}

func TestHandleInboundMalformedMessageIsAbsorbed(t *testing.T) {
	b := New()
	s := store.New()
	b.Attach(s)
	err := b.HandleInbound([]byte(`not json at all`))
	assert.Error(t, err, "malformed JSON should be rejected, not panic")

	err = b.HandleInbound(dispatchEnvelope(t, CommandPayload{Type: "NOT_A_REAL_COMMAND"}))
	assert.Error(t, err, "unknown command type should be rejected, not panic")
}

func dispatchEnvelope(t *testing.T, cmd CommandPayload) []byte {
	t.Helper()
	payload, err := json.Marshal(cmd)
	require.NoError(t, err)
	env := DispatchEnvelope{Type: MsgTypeDispatch, Payload: payload}
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return raw
}
