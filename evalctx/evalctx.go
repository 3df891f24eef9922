// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package evalctx tracks which atom, if any, is currently being evaluated
// on the calling goroutine. The store consults it on every Get to record
// dependency edges (§3 "Dependency graph") and to detect self-re-entrant
// derivations (§4.2 "Cycle detection").
//
// Per the Design Notes (§9), this replaces the teacher's single ambient
// variable with an explicit per-goroutine evaluation stack: nested
// derivations push/pop cleanly and a second goroutine calling into the
// store never observes a stale marker left by another goroutine's
// in-flight evaluation.
package evalctx

import (
	"sync"

	"github.com/outrigdev/goid"
)

type stackEntry struct {
	goID  uint64
	stack []string // atom ids currently being evaluated, outermost first
}

var (
	mu      sync.Mutex
	entries = map[uint64]*stackEntry{}
)

func current() *stackEntry {
	gid := goid.Get()
	e, ok := entries[gid]
	if !ok {
		e = &stackEntry{goID: gid}
		entries[gid] = e
	}
	return e
}

// Push marks atomID as currently evaluating on this goroutine. It returns
// true if atomID is already on the stack (a cycle), in which case the
// caller must not push and must surface CircularDependency instead.
func Push(atomID string) (isCycle bool) {
	mu.Lock()
	defer mu.Unlock()
	e := current()
	for _, id := range e.stack {
		if id == atomID {
			return true
		}
	}
	e.stack = append(e.stack, atomID)
	return false
}

// Pop removes the most recently pushed atom id for the calling goroutine.
func Pop() {
	mu.Lock()
	defer mu.Unlock()
	e := current()
	if len(e.stack) == 0 {
		return
	}
	e.stack = e.stack[:len(e.stack)-1]
	if len(e.stack) == 0 {
		delete(entries, e.goID)
	}
}

// CurrentEvaluator returns the atom id currently being evaluated on the
// calling goroutine, or "" if none. A derivation's `get(other)` call uses
// this to record the dependency edge other -> CurrentEvaluator().
func CurrentEvaluator() string {
	mu.Lock()
	defer mu.Unlock()
	e, ok := entries[goid.Get()]
	if !ok || len(e.stack) == 0 {
		return ""
	}
	return e.stack[len(e.stack)-1]
}
