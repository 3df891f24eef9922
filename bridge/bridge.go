// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !nexus_noop

// Package bridge connects a store to an external Redux-DevTools-compatible
// debugging protocol (§4.6). This file is the full implementation,
// selected whenever the consumer does not build with the nexus_noop tag
// (§6.4 "Build-time selection, concretely").
//
// Transport is modeled on tsunami/engine/clientimpl.go's SSEChannels map
// and pkg/eventbus's wsMap: a single outbound connection held behind a
// mutex, fed by a background dispatch loop rather than synchronous writes
// from the caller's own goroutine. Batching is grounded on
// tsunami/engine/asyncnotify.go's debounce timer, simplified to the
// spec's single configurable latency window (default 100ms) instead of
// the teacher's three-constant cadence/debounce/max-debounce scheme,
// since the spec calls for one coalescing window, not a render-loop
// cadence guarantee.
package bridge

import (
	"encoding/json"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"golang.org/x/mod/semver"

	"github.com/nexus-state/nexus-state/actionmap"
	"github.com/nexus-state/nexus-state/log"
	"github.com/nexus-state/nexus-state/naming"
	"github.com/nexus-state/nexus-state/nexuserr"
	"github.com/nexus-state/nexus-state/serialize"
	"github.com/nexus-state/nexus-state/stacktrace"
	"github.com/nexus-state/nexus-state/store"
	"github.com/nexus-state/nexus-state/timetravel"
)

const DefaultEndpoint = "ws://127.0.0.1:8787/nexus-state"
const DefaultLatencyWindow = 100 * time.Millisecond

// dialFunc abstracts the websocket dial so tests can inject a fake
// endpoint without a real listener (§4.6(1) "a host-injected handle").
type dialFunc func(endpoint string) (*websocket.Conn, error)

func defaultDial(endpoint string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "dial debug endpoint")
	}
	return conn, nil
}

// DebugBridge is the concrete Bridge implementation (§4.6).
type DebugBridge struct {
	endpoint      string
	dial          dialFunc
	latencyWindow time.Duration
	namingStrat   naming.Strategy

	store *store.Store
	tt    *timetravel.Controller
	am    *actionmap.Mapper

	connMu sync.Mutex
	conn   *websocket.Conn
	noop   bool // set true once feature detection fails; every method degrades silently

	opts         ConnectOptions
	liveDispatch atomic.Bool

	batchMu      sync.Mutex
	bracketStack []string
	pending      []ActionRecord
	notifyOnce   sync.Once
	notifyWakeCh chan struct{}
	batchStartNs atomic.Int64
}

// Option configures a DebugBridge at construction.
type Option func(*DebugBridge)

// WithEndpoint overrides the default local debug endpoint.
func WithEndpoint(endpoint string) Option {
	return func(b *DebugBridge) { b.endpoint = endpoint }
}

// WithDialer overrides the dial function, for tests.
func WithDialer(fn func(endpoint string) (*websocket.Conn, error)) Option {
	return func(b *DebugBridge) { b.dial = fn }
}

// WithLatencyWindow overrides the default 100ms coalescing window
// (§4.6(4)).
func WithLatencyWindow(d time.Duration) Option {
	return func(b *DebugBridge) {
		if d > 0 {
			b.latencyWindow = d
		}
	}
}

// WithNamingStrategy overrides the default auto naming strategy (§4.7).
func WithNamingStrategy(strat naming.Strategy) Option {
	return func(b *DebugBridge) { b.namingStrat = strat }
}

// New constructs a bridge not yet attached to any store.
func New(opts ...Option) *DebugBridge {
	b := &DebugBridge{
		endpoint:      DefaultEndpoint,
		dial:          defaultDial,
		latencyWindow: DefaultLatencyWindow,
		namingStrat:   naming.Auto,
		am:            actionmap.New(),
	}
	b.liveDispatch.Store(true)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach wires the bridge into s as a mutation observer (§4.2
// "registerMutationObserver", §4.6(3)). It satisfies store.Plugin.
func (b *DebugBridge) Attach(s *store.Store) {
	b.store = s
	b.tt = timetravel.New(s)
	s.RegisterMutationObserver(b.onMutation)
}

// Connect performs feature detection (§4.6(1)) and, if an endpoint is
// reachable, opens the transport and sends the initial state snapshot as
// an INIT message (§4.6(2)). The INIT message carries only the state:
// opts.InstanceName and opts.HistoryBound are stored but not sent, and
// HistoryBound does not change the time-travel history bound. A dial
// failure is absorbed into permanent no-op mode rather than returned,
// per "never fail".
func (b *DebugBridge) Connect(opts ConnectOptions) error {
	b.opts = opts
	if isProduction() {
		b.noop = true
		return nil
	}

	conn, err := b.dial(b.endpoint)
	if err != nil {
		log.L().Infow("debug bridge: no endpoint reachable, running no-op", "error", err)
		b.noop = true
		return nil
	}

	b.connMu.Lock()
	b.conn = conn
	b.connMu.Unlock()

	go b.readLoop(conn)

	if b.store != nil {
		state, serr := b.store.SerializeState()
		if serr != nil {
			log.L().Warnw("debug bridge: initial serialize failed", "error", serr)
			state = map[string]any{}
		}
		b.sendJSON(InitMessage{Type: MsgTypeInit, State: state})
	}
	return nil
}

// Close tears down the transport. Safe to call on an already-noop bridge.
func (b *DebugBridge) Close() {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
}

// StartBatch opens an explicit batch bracket (§4.6(4)). Brackets nest:
// only the outermost EndBatch flushes.
func (b *DebugBridge) StartBatch(id string) {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()
	b.bracketStack = append(b.bracketStack, id)
}

// EndBatch closes the innermost open bracket; id is not compared with the
// id given to StartBatch. If it was the outermost bracket, the
// accumulated actions are flushed as one grouped message (§4.6(4)).
func (b *DebugBridge) EndBatch(id string) {
	b.batchMu.Lock()
	if len(b.bracketStack) == 0 {
		b.batchMu.Unlock()
		return
	}
	b.bracketStack = b.bracketStack[:len(b.bracketStack)-1]
	flush := len(b.bracketStack) == 0
	b.batchMu.Unlock()
	if flush {
		b.flush()
	}
}

func isProduction() bool {
	return os.Getenv("NEXUS_ENV") == "production"
}

// onMutation is the MutationObserver registered with the store (§4.6(3)).
// It never blocks the caller's Set: batching and transport happen on a
// background timer/goroutine.
func (b *DebugBridge) onMutation(ev store.MutationEvent) {
	if b.noop || b.store == nil {
		return
	}

	ctx := naming.Context{
		AtomName:  ev.Atom.Name(),
		Operation: "set",
		Timestamp: time.Now(),
		Metadata:  ev.Metadata,
	}
	actionName := naming.Name(b.namingStrat, ctx)

	rec := ActionRecord{
		TypeString: actionName,
		AtomName:   ev.Atom.Name(),
		Timestamp:  ctx.Timestamp.UnixMilli(),
		Custom:     ev.Metadata,
	}
	if b.opts.TraceEnabled {
		rec.StackTrace = stacktrace.Capture(log.IsDevelopment(), stacktrace.Options{})
	}

	if b.tt != nil {
		snap := b.tt.Capture(actionName)
		b.am.MapSnapshotToAction(snap.ID, actionName)
	}

	b.batchMu.Lock()
	b.pending = append(b.pending, rec)
	bracketed := len(b.bracketStack) > 0
	b.batchMu.Unlock()

	if bracketed {
		return // flushed when the outermost EndBatch runs
	}
	b.scheduleFlush()
}

// scheduleFlush implements the debounced coalescing window (§4.6(4)),
// adapted from the teacher's asyncInitiationLoop: a single configurable
// window instead of three cadence constants, since nothing here plays
// the role of a fixed render cadence.
func (b *DebugBridge) scheduleFlush() {
	b.notifyOnce.Do(func() {
		b.notifyWakeCh = make(chan struct{}, 1)
		go b.flushLoop()
	})

	nowNs := time.Now().UnixNano()
	b.batchStartNs.CompareAndSwap(0, nowNs)

	select {
	case b.notifyWakeCh <- struct{}{}:
	default:
	}
}

func (b *DebugBridge) flushLoop() {
	for range b.notifyWakeCh {
		firstNs := b.batchStartNs.Load()
		if firstNs == 0 {
			continue
		}
		deadline := time.Unix(0, firstNs).Add(b.latencyWindow)
		if d := time.Until(deadline); d > 0 {
			time.Sleep(d)
		}
		b.batchStartNs.Store(0)
		b.flush()
	}
}

// flush sends every pending action record as one grouped ACTION message
// carrying the latest state (§4.6(4)).
func (b *DebugBridge) flush() {
	b.batchMu.Lock()
	actions := b.pending
	b.pending = nil
	b.batchMu.Unlock()

	if len(actions) == 0 || b.noop || b.store == nil {
		return
	}
	if !b.liveDispatch.Load() {
		return
	}

	state, err := b.store.SerializeState()
	if err != nil {
		log.L().Warnw("debug bridge: serialize failed", "error", err)
		state = map[string]any{}
	}
	b.sendJSON(ActionMessage{Type: MsgTypeAction, Action: actions, State: state})
}

func (b *DebugBridge) sendJSON(v any) {
	b.connMu.Lock()
	conn := b.conn
	b.connMu.Unlock()
	if conn == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		log.L().Warnw("debug bridge: marshal outbound message failed", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.L().Warnw("debug bridge: outbound write failed", "error", err)
	}
}

func (b *DebugBridge) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := b.HandleInbound(raw); err != nil {
			log.L().Warnw("debug bridge: inbound message rejected", "error", err)
		}
	}
}

// HandleInbound routes one inbound DISPATCH-wrapped command (§4.6(6)).
// Malformed input is logged and absorbed; the store is never corrupted by
// bridge failures (§7).
func (b *DebugBridge) HandleInbound(raw []byte) error {
	var env DispatchEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nexuserr.MalformedDebugMessage("invalid JSON envelope")
	}
	if env.Type != MsgTypeDispatch {
		return nexuserr.MalformedDebugMessage("unexpected top-level type " + env.Type)
	}
	var cmd CommandPayload
	if err := json.Unmarshal(env.Payload, &cmd); err != nil {
		return nexuserr.MalformedDebugMessage("invalid command payload")
	}

	switch cmd.Type {
	case CmdJumpToState:
		return b.handleJumpToState(cmd)
	case CmdJumpToAction:
		return b.handleJumpToAction(cmd)
	case CmdImportState:
		return b.handleImportState(cmd)
	case CmdStart:
		b.liveDispatch.Store(true)
		return nil
	case CmdStop:
		b.liveDispatch.Store(false)
		return nil
	case CmdCommit:
		b.resendInit()
		return nil
	case CmdReset:
		log.L().Warnw("debug bridge: RESET is not supported by the core")
		return nil
	default:
		return nexuserr.MalformedDebugMessage("unknown command " + string(cmd.Type))
	}
}

func (b *DebugBridge) handleJumpToState(cmd CommandPayload) error {
	if cmd.Index == nil {
		return nexuserr.MalformedDebugMessage("JUMP_TO_STATE missing index")
	}
	if b.tt == nil || !b.tt.JumpTo(*cmd.Index) {
		return nexuserr.MalformedDebugMessage("JUMP_TO_STATE: invalid index")
	}
	return nil
}

func (b *DebugBridge) handleJumpToAction(cmd CommandPayload) error {
	if cmd.ActionName == "" {
		return nexuserr.MalformedDebugMessage("JUMP_TO_ACTION missing actionName")
	}
	if b.tt == nil {
		return nexuserr.MalformedDebugMessage("JUMP_TO_ACTION: no time-travel controller")
	}
	history := b.tt.GetHistory()

	if snapID, ok := b.am.GetSnapshotIdByActionId(cmd.ActionName); ok {
		for i, snap := range history {
			if snap.ID == snapID {
				b.tt.JumpTo(i)
				return nil
			}
		}
	}
	// Fallback: linear scan of snapshot metadata for a matching label
	// (§4.6(6) "else linear scan of snapshot metadata").
	for i, snap := range history {
		if snap.ActionLabel == cmd.ActionName {
			b.tt.JumpTo(i)
			return nil
		}
	}
	return nexuserr.MalformedDebugMessage("JUMP_TO_ACTION: no snapshot for action " + cmd.ActionName)
}

func (b *DebugBridge) handleImportState(cmd CommandPayload) error {
	if cmd.State == nil {
		return nexuserr.MalformedDebugMessage("IMPORT_STATE missing state")
	}
	if cmd.Checksum != "" {
		stateJSON, err := json.Marshal(cmd.State)
		if err != nil {
			return nexuserr.MalformedDebugMessage("IMPORT_STATE: state not serialisable")
		}
		if serialize.ChecksumBytes(stateJSON) != cmd.Checksum {
			return nexuserr.MalformedDebugMessage("IMPORT_STATE: checksum mismatch")
		}
	}
	if cmd.Version != "" && !semver.IsValid(cmd.Version) {
		// Non-fatal: an unparseable version string doesn't invalidate the
		// import, it just can't be used to warn about a schema drift.
		log.L().Warnw("debug bridge: IMPORT_STATE carries an unparseable version", "version", cmd.Version)
	}
	if b.tt == nil {
		return nexuserr.MalformedDebugMessage("IMPORT_STATE: no time-travel controller")
	}

	// cmd.State is already keyed by stable atom-key (the atom id, per
	// §6.3/§3), the same convention SerializeState's output uses — no
	// name->id translation, and so no risk of two atoms sharing a
	// display name silently colliding on import. JSON decoding turns
	// every number into a float64, so a number bound for an atom whose
	// initial value has another numeric type is converted to that type.
	state := make(map[string]any, len(cmd.State))
	for id, val := range cmd.State {
		state[id] = val
		f, isNum := val.(float64)
		a, known := b.store.Registry().Get(id)
		if !isNum || !known || a.InitialValue() == nil {
			continue
		}
		if want := reflect.TypeOf(a.InitialValue()); want.Kind() >= reflect.Int && want.Kind() <= reflect.Float64 {
			state[id] = reflect.ValueOf(f).Convert(want).Interface()
		}
	}
	b.tt.ImportState(state)
	return nil
}

func (b *DebugBridge) resendInit() {
	if b.store == nil {
		return
	}
	state, err := b.store.SerializeState()
	if err != nil {
		log.L().Warnw("debug bridge: COMMIT resend serialize failed", "error", err)
		state = map[string]any{}
	}
	b.sendJSON(InitMessage{Type: MsgTypeInit, State: state})
}

var _ Bridge = (*DebugBridge)(nil)
