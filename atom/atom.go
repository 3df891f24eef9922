// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package atom defines atom identity, the three atom variants (primitive,
// computed, writable), and the factory that creates and registers them.
//
// Per the Design Notes (§9) the dynamic, arity-sniffing constructor from
// the distilled spec is re-architected as three named constructors
// (Primitive, Computed, Writable) plus a thin Make sugar that keeps a
// single call site for source parity with the spec's overloaded factory.
package atom

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nexus-state/nexus-state/nexuserr"
)

// Variant tags the three atom shapes described in §3 "Atom variants".
type Variant int

const (
	VariantPrimitive Variant = iota
	VariantComputed
	VariantWritable
)

func (v Variant) String() string {
	switch v {
	case VariantPrimitive:
		return "primitive"
	case VariantComputed:
		return "computed"
	case VariantWritable:
		return "writable"
	default:
		return "unknown"
	}
}

// Getter is supplied to a computed/writable atom's read function. Calling
// Get(other) records a dependency edge from other to the atom currently
// being evaluated (§3 "Dependency graph").
type Getter interface {
	Get(a AnyAtom) any
}

// Setter is supplied to a writable atom's write function, allowing it to
// redirect writes to other (typically primitive) atoms.
type Setter interface {
	Set(a AnyAtom, val any) error
}

// AnyAtom is the type-erased view of an atom used by the store and
// registry, which must hold heterogeneous atoms in the same maps. Read,
// Write, and InitialValue give the engine (package store) what it needs
// to materialise and recompute state without the store importing the
// concrete Primitive/Computed/WritableAtom[T] wrapper types.
type AnyAtom interface {
	ID() string
	Name() string
	Variant() Variant
	CreatedAt() time.Time
	InitialValue() any
	Read(get Getter) any
	Write(get Getter, set Setter, val any) error
}

type readFunc func(get Getter) any
type writeFunc func(get Getter, set Setter, val any) error

// base is the shared, type-erased representation behind every
// Primitive/Computed/WritableAtom[T]. Identity is reference-style: two
// factory calls for the same initial value produce two distinct bases.
type base struct {
	id        string
	name      string
	variant   Variant
	createdAt time.Time
	initial   any
	read      readFunc
	write     writeFunc
}

func (b *base) ID() string          { return b.id }
func (b *base) Name() string        { return b.name }
func (b *base) Variant() Variant    { return b.variant }
func (b *base) CreatedAt() time.Time { return b.createdAt }

// InitialValue returns the value a primitive atom's state should be
// materialised with on first interaction (§3 "Per-atom state").
func (b *base) InitialValue() any { return b.initial }

// Read invokes a computed/writable atom's derivation.
func (b *base) Read(get Getter) any {
	if b.read == nil {
		return nil
	}
	return b.read(get)
}

// Write invokes a writable atom's write function. Computed atoms have no
// write function; callers must reject those before calling Write.
func (b *base) Write(get Getter, set Setter, val any) error {
	if b.write == nil {
		return nexuserr.WriteToComputed(b.name)
	}
	return b.write(get, set, val)
}

// RegisterHook is installed by the registry package at init time (see
// the init function in package registry) so that every atom created anywhere is registered
// without the atom package importing registry (which would be a cycle:
// registry attaches stores, stores hold atoms).
var RegisterHook func(a AnyAtom)

func register(b *base) {
	if RegisterHook != nil {
		RegisterHook(b)
	}
}

func newBase(variant Variant, name string) *base {
	return &base{
		id:        uuid.NewString(),
		name:      name,
		variant:   variant,
		createdAt: time.Now(),
	}
}

// PrimitiveAtom[T] carries an initial value of type T (§3 "Primitive").
type PrimitiveAtom[T any] struct {
	b *base
}

func (a PrimitiveAtom[T]) ID() string           { return a.b.ID() }
func (a PrimitiveAtom[T]) Name() string         { return a.b.Name() }
func (a PrimitiveAtom[T]) Variant() Variant     { return a.b.Variant() }
func (a PrimitiveAtom[T]) CreatedAt() time.Time { return a.b.CreatedAt() }
func (a PrimitiveAtom[T]) AnyAtom() AnyAtom      { return a.b }
func (a PrimitiveAtom[T]) Initial() T {
	return typedValue[T](a.b.InitialValue(), a.b.name)
}

// ComputedAtom[T] carries a pure derivation read(get) -> T (§3 "Computed").
type ComputedAtom[T any] struct {
	b *base
}

func (a ComputedAtom[T]) ID() string           { return a.b.ID() }
func (a ComputedAtom[T]) Name() string         { return a.b.Name() }
func (a ComputedAtom[T]) Variant() Variant     { return a.b.Variant() }
func (a ComputedAtom[T]) CreatedAt() time.Time { return a.b.CreatedAt() }
func (a ComputedAtom[T]) AnyAtom() AnyAtom      { return a.b }

// WritableAtom[T] carries read(get) -> T and write(get, set, value)
// (§3 "Writable").
type WritableAtom[T any] struct {
	b *base
}

func (a WritableAtom[T]) ID() string           { return a.b.ID() }
func (a WritableAtom[T]) Name() string         { return a.b.Name() }
func (a WritableAtom[T]) Variant() Variant     { return a.b.Variant() }
func (a WritableAtom[T]) CreatedAt() time.Time { return a.b.CreatedAt() }
func (a WritableAtom[T]) AnyAtom() AnyAtom      { return a.b }

// typedValue mirrors the teacher's util.GetTypedAtomValue: it recovers a
// concrete T from the type-erased `any` the store holds, panicking only on
// a genuine programmer error (a mismatched type assertion), not on nil.
func typedValue[T any](rawVal any, atomName string) T {
	if rawVal == nil {
		var zero T
		return zero
	}
	typed, ok := rawVal.(T)
	if !ok {
		panic(fmt.Sprintf("atom %q value type mismatch (expected %T, got %T)", atomName, *new(T), rawVal))
	}
	return typed
}

// Primitive creates a PrimitiveAtom[T] with the given initial value and
// optional display name (§4.1).
func Primitive[T any](initialValue T, name ...string) PrimitiveAtom[T] {
	b := newBase(VariantPrimitive, firstName(name))
	b.initial = initialValue
	register(b)
	return PrimitiveAtom[T]{b: b}
}

// Computed creates a ComputedAtom[T] from a pure derivation (§4.1).
func Computed[T any](read func(get Getter) T, name ...string) ComputedAtom[T] {
	b := newBase(VariantComputed, firstName(name))
	b.read = func(get Getter) any { return read(get) }
	register(b)
	return ComputedAtom[T]{b: b}
}

// Writable creates a WritableAtom[T] from a read and a write function
// (§4.1).
func Writable[T any](
	read func(get Getter) T,
	write func(get Getter, set Setter, val T) error,
	name ...string,
) WritableAtom[T] {
	b := newBase(VariantWritable, firstName(name))
	b.read = func(get Getter) any { return read(get) }
	b.write = func(get Getter, set Setter, val any) error {
		return write(get, set, typedValue[T](val, b.name))
	}
	register(b)
	return WritableAtom[T]{b: b}
}

func firstName(name []string) string {
	if len(name) > 0 {
		return name[0]
	}
	return ""
}
