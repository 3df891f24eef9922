// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package naming implements the pluggable action-naming strategies of
// §4.7: auto, simple, pattern, custom, and composite, resolved either by
// name through a small registry or passed as an instance.
package naming

import (
	"fmt"
	"strings"
	"time"

	"github.com/nexus-state/nexus-state/log"
)

// Context is the information a strategy sees when asked to name a
// mutation (§4.7).
type Context struct {
	AtomName  string
	Operation string
	Timestamp time.Time
	State     map[string]any
	Metadata  map[string]any
}

// Strategy names a mutation for display in the debug protocol (§4.7).
type Strategy interface {
	GetName(ctx Context) string
}

// StrategyFunc adapts a plain function to Strategy, grounding "custom"
// strategies (§4.7 "custom: wraps an arbitrary function").
type StrategyFunc func(ctx Context) string

func (f StrategyFunc) GetName(ctx Context) string { return f(ctx) }

// Auto is the default strategy: "<atomName> <operation>".
var Auto Strategy = StrategyFunc(func(ctx Context) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", ctx.AtomName, ctx.Operation))
})

// Simple names a mutation by operation alone.
var Simple Strategy = StrategyFunc(func(ctx Context) string {
	return ctx.Operation
})

// PlaceholderFunc computes the value of a caller-supplied custom
// placeholder in a Pattern template (§4.7 "custom placeholders whose
// values are functions of the context").
type PlaceholderFunc func(ctx Context) string

// Pattern applies a template with built-in placeholders {atomName},
// {operation}, {timestamp}, {date} (YYYY-MM-DD), {time} (HH:MM:SS), plus
// any caller-supplied custom placeholders (§4.7 "pattern").
type Pattern struct {
	Template string
	Custom   map[string]PlaceholderFunc
}

func (p Pattern) GetName(ctx Context) string {
	out := p.Template
	out = strings.ReplaceAll(out, "{atomName}", ctx.AtomName)
	out = strings.ReplaceAll(out, "{operation}", ctx.Operation)
	out = strings.ReplaceAll(out, "{timestamp}", fmt.Sprintf("%d", ctx.Timestamp.UnixMilli()))
	out = strings.ReplaceAll(out, "{date}", ctx.Timestamp.Format("2006-01-02"))
	out = strings.ReplaceAll(out, "{time}", ctx.Timestamp.Format("15:04:05"))
	for key, fn := range p.Custom {
		out = strings.ReplaceAll(out, "{"+key+"}", fn(ctx))
	}
	return out
}

// Custom wraps an arbitrary function as a Strategy (§4.7 "custom").
func Custom(fn func(ctx Context) string) Strategy {
	return StrategyFunc(fn)
}

// Composite tries each strategy in order; the first non-empty,
// non-panicking result wins (§4.7 "composite"). On total failure it
// returns the timestamp-based fallback.
type Composite struct {
	Strategies []Strategy
}

func (c Composite) GetName(ctx Context) string {
	for _, strat := range c.Strategies {
		if name, ok := safeName(strat, ctx); ok {
			return name
		}
	}
	return Fallback(ctx)
}

func safeName(strat Strategy, ctx Context) (name string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.L().Warnw("naming strategy panicked, trying next", "error", r)
			ok = false
		}
	}()
	name = strat.GetName(ctx)
	return name, name != ""
}

// Fallback produces the timestamp-based name used when every strategy
// fails (§4.7 "Failure of any strategy is absorbed and replaced with a
// timestamp-based fallback").
func Fallback(ctx Context) string {
	ts := ctx.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("action@%d", ts.UnixMilli())
}

// Registry resolves strategies by name so callers can configure the
// bridge with a string instead of an instance (§4.7 "Strategies may be
// selected by name... or passed as an instance").
type Registry struct {
	byName map[string]Strategy
}

func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Strategy)}
	r.Register("auto", Auto)
	r.Register("simple", Simple)
	return r
}

func (r *Registry) Register(name string, strat Strategy) {
	r.byName[name] = strat
}

func (r *Registry) Resolve(name string) (Strategy, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Name safely invokes strat, absorbing any failure (panic or empty
// result) into the timestamp-based fallback (§4.7, §8 "Naming strategy
// totality").
func Name(strat Strategy, ctx Context) string {
	if strat == nil {
		return Fallback(ctx)
	}
	if name, ok := safeName(strat, ctx); ok {
		return name
	}
	return Fallback(ctx)
}
