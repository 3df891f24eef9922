// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package naming

import (
	"strings"
	"testing"
	"time"
)

func TestAutoStrategy(t *testing.T) {
	ctx := Context{AtomName: "count", Operation: "set"}
	if got := Auto.GetName(ctx); got != "count set" {
		t.Fatalf("Auto.GetName() = %q, want %q", got, "count set")
	}
}

func TestSimpleStrategy(t *testing.T) {
	ctx := Context{AtomName: "count", Operation: "set"}
	if got := Simple.GetName(ctx); got != "set" {
		t.Fatalf("Simple.GetName() = %q, want %q", got, "set")
	}
}

func TestPatternStrategy(t *testing.T) {
	ts := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	p := Pattern{
		Template: "{atomName}/{operation}@{date} {time}",
		Custom: map[string]PlaceholderFunc{
			"env": func(ctx Context) string { return "test" },
		},
	}
	ctx := Context{AtomName: "count", Operation: "set", Timestamp: ts}
	got := p.GetName(ctx)
	want := "count/set@2026-03-05 14:30:00"
	if got != want {
		t.Fatalf("Pattern.GetName() = %q, want %q", got, want)
	}
}

func TestCustomStrategy(t *testing.T) {
	strat := Custom(func(ctx Context) string { return "custom-" + ctx.Operation })
	if got := strat.GetName(Context{Operation: "set"}); got != "custom-set" {
		t.Fatalf("Custom strategy result = %q, want %q", got, "custom-set")
	}
}

func TestCompositeTriesInOrderAndFallsBackOnFailure(t *testing.T) {
	failing := StrategyFunc(func(ctx Context) string { panic("boom") })
	empty := StrategyFunc(func(ctx Context) string { return "" })
	ok := StrategyFunc(func(ctx Context) string { return "ok" })

	comp := Composite{Strategies: []Strategy{failing, empty, ok}}
	if got := comp.GetName(Context{}); got != "ok" {
		t.Fatalf("Composite.GetName() = %q, want %q", got, "ok")
	}

	allFail := Composite{Strategies: []Strategy{failing, empty}}
	got := allFail.GetName(Context{Timestamp: time.Unix(0, 0)})
	if !strings.HasPrefix(got, "action@") {
		t.Fatalf("Composite.GetName() fallback = %q, want action@ prefix", got)
	}
}

func TestNameAbsorbsPanicIntoFallback(t *testing.T) {
	strat := StrategyFunc(func(ctx Context) string { panic("boom") })
	got := Name(strat, Context{})
	if !strings.HasPrefix(got, "action@") {
		t.Fatalf("Name() = %q, want fallback action@ prefix after panic", got)
	}
}

func TestNameNilStrategyFallsBack(t *testing.T) {
	got := Name(nil, Context{})
	if !strings.HasPrefix(got, "action@") {
		t.Fatalf("Name(nil, ...) = %q, want fallback action@ prefix", got)
	}
}

func TestRegistryResolvesBuiltins(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Resolve("auto"); !ok {
		t.Fatalf("Resolve(\"auto\") not found")
	}
	if _, ok := r.Resolve("simple"); !ok {
		t.Fatalf("Resolve(\"simple\") not found")
	}
	if _, ok := r.Resolve("nope"); ok {
		t.Fatalf("Resolve(\"nope\") unexpectedly found")
	}
}
