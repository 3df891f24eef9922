// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package bridge connects a store to an external Redux-DevTools-compatible
// debugging protocol (§4.6, §6.2). This file holds the wire types shared
// by both build-tag variants (the full bridge and its noop counterpart),
// shaped like the teacher's rpctypes package
// (tsunami/rpctypes/protocoltypes.go), which also uses a `Type` string
// discriminator field on every message struct.
package bridge

import (
	"encoding/json"

	"github.com/nexus-state/nexus-state/store"
)

// Bridge is the public surface both build variants implement (§6.4
// "Build-time selection"). It satisfies store.Plugin.
type Bridge interface {
	Attach(s *store.Store)
	Connect(opts ConnectOptions) error
	Close()
	StartBatch(id string)
	EndBatch(id string)
	HandleInbound(raw []byte) error
}

// ConnectOptions is handed to Connect (§4.6(2)). The full build uses
// only TraceEnabled, which turns on stack-trace capture for action
// records; InstanceName and HistoryBound are not sent to the endpoint.
type ConnectOptions struct {
	InstanceName string
	HistoryBound int
	TraceEnabled bool
}

const MsgTypeInit = "INIT"
const MsgTypeAction = "ACTION"
const MsgTypeDispatch = "DISPATCH"

// InitMessage is sent once on connect (§6.2 "INIT { state }").
type InitMessage struct {
	Type  string         `json:"type"`
	State map[string]any `json:"state"`
}

// ActionRecord is the per-mutation action metadata of §3 "Action
// metadata".
type ActionRecord struct {
	TypeString  string         `json:"type"`
	AtomName    string         `json:"atomName"`
	Timestamp   int64          `json:"timestamp"`
	SourceLabel string         `json:"sourceLabel,omitempty"`
	StackTrace  string         `json:"stackTrace,omitempty"`
	GroupID     string         `json:"groupId,omitempty"`
	Custom      map[string]any `json:"customFields,omitempty"`
}

// ActionMessage is sent per dispatched mutation or batched group (§6.2
// "ACTION { action: {...}, state }"). Action is an array so a coalesced
// batch can carry every grouped mutation's metadata (§4.6(4)).
type ActionMessage struct {
	Type   string         `json:"type"`
	Action []ActionRecord `json:"action"`
	State  map[string]any `json:"state"`
}

// DispatchEnvelope is the inbound message wrapper (§6.2 "Inbound
// messages carry { type: \"DISPATCH\", payload: {...} }").
type DispatchEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type CommandType string

const (
	CmdJumpToState  CommandType = "JUMP_TO_STATE"
	CmdJumpToAction CommandType = "JUMP_TO_ACTION"
	CmdImportState  CommandType = "IMPORT_STATE"
	CmdStart        CommandType = "START"
	CmdStop         CommandType = "STOP"
	CmdCommit       CommandType = "COMMIT"
	CmdReset        CommandType = "RESET"
)

// CommandPayload is the union of every inbound command's fields (§4.6(6),
// §6.2 "IMPORT_STATE payload format").
type CommandPayload struct {
	Type       CommandType    `json:"type"`
	Index      *int           `json:"index,omitempty"`
	ActionName string         `json:"actionName,omitempty"`
	State      map[string]any `json:"state,omitempty"`
	Timestamp  int64          `json:"timestamp,omitempty"`
	Checksum   string         `json:"checksum,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Version    string         `json:"version,omitempty"`
}
