// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package aggregate implements sharded, per-thread, version-chained numeric
// aggregates. Each logical aggregate keeps exactly max_concurrency chains,
// one per writer thread; a chain is a singly linked list of immutable
// (value, version) nodes whose head is mutated with a single atomic store.
// Because older nodes are never mutated, any number of readers can walk a
// chain concurrently with its owning thread prepending new heads.
package aggregate

import (
	"sync/atomic"
)

// Number is the set of numeric types an Aggregate can hold. The source
// models this as a tagged union over a fixed set of numeric types; Go
// generics let us express the same constraint without a tag.
type Number interface {
	~int64 | ~uint64 | ~float64
}

// Aggregator is the polymorphism point for an Aggregate: the identity value
// and the two binary operators that define the aggregate's monoid. SeqOp
// folds one new sample into a running value; CombOp combines two partial
// aggregates, both when folding versions within a chain and when combining
// shards across chains. Both operators must be associative over committed
// data; CombOp must additionally be commutative, since chains are folded in
// unspecified order, and Zero must be CombOp's identity.
type Aggregator[T Number] struct {
	Zero   T
	SeqOp  func(acc, v T) T
	CombOp func(a, b T) T
}

// Sum returns an Aggregator that adds samples together.
func Sum[T Number]() Aggregator[T] {
	add := func(a, b T) T { return a + b }
	return Aggregator[T]{Zero: 0, SeqOp: add, CombOp: add}
}

type node[T Number] struct {
	value   T
	version uint64
	next    *node[T]
}

// chain is a single per-thread version-chained list. Its head pointer is
// the only atomic field; every other field on every node is immutable
// after construction, which is what lets readers walk the chain without
// any lock or retry.
type chain[T Number] struct {
	head atomic.Pointer[node[T]]
	agg  Aggregator[T]
}

func (c *chain[T]) get(version uint64) T {
	n := findVersion(c.head.Load(), version)
	if n == nil {
		return c.agg.Zero
	}
	return n.value
}

// update prepends a new head computed by folding value into the prior
// value at or before version, using combine. Used for both SeqUpdate (with
// combine = agg.SeqOp) and CombUpdate (with combine = agg.CombOp).
func (c *chain[T]) update(value T, version uint64, combine func(acc, v T) T) {
	head := c.head.Load()
	prior := findVersion(head, version)
	old := c.agg.Zero
	if prior != nil {
		old = prior.value
	}
	n := &node[T]{value: combine(old, value), version: version, next: head}
	c.head.Store(n)
}

// reclaim drops every node strictly older than the node that would answer a
// query at minVersion, keeping exactly the nodes needed to answer any query
// at minVersion or later. It is not safe to call concurrently with updates
// or reads of this chain — callers must only invoke it at a quiesce point,
// e.g. once all writer threads have been joined or paused. The source never
// reclaims memory at all; this is the minimal bulk-reclaim hook the design
// notes call for.
func (c *chain[T]) reclaim(minVersion uint64) {
	head := c.head.Load()
	keep := findVersion(head, minVersion)
	if keep == nil {
		return
	}
	keep.next = nil
}

// findVersion returns the node in the chain starting at head with the
// greatest version <= version, or nil if every node is newer than version.
func findVersion[T Number](head *node[T], version uint64) *node[T] {
	var best *node[T]
	var bestVersion uint64
	for n := head; n != nil; n = n.next {
		if n.version == version {
			return n
		}
		if n.version < version && (best == nil || n.version > bestVersion) {
			best = n
			bestVersion = n.version
		}
	}
	return best
}

// Aggregate is a single logical aggregate sharded across max_concurrency
// per-thread chains. Thread identity is supplied by the caller (typically
// an external thread manager assigning stable tids in [0, max_concurrency)
// to writers); Aggregate does not allocate or track thread identity itself.
type Aggregate[T Number] struct {
	agg    Aggregator[T]
	chains []chain[T]
}

// New constructs an Aggregate with the given aggregator and exactly
// maxConcurrency chains.
func New[T Number](agg Aggregator[T], maxConcurrency int) *Aggregate[T] {
	a := &Aggregate[T]{
		agg:    agg,
		chains: make([]chain[T], maxConcurrency),
	}
	for i := range a.chains {
		a.chains[i].agg = agg
	}
	return a
}

// SeqUpdate applies value to thread tid's chain at version, using the
// aggregator's sequential operator to fold it into the running value.
func (a *Aggregate[T]) SeqUpdate(tid int, value T, version uint64) {
	a.chains[tid].update(value, version, a.agg.SeqOp)
}

// CombUpdate applies value to thread tid's chain at version, using the
// aggregator's combine operator instead of the sequential one. Used when
// value is itself already a partial aggregate (e.g. merging in a
// precomputed shard) rather than a single new sample.
func (a *Aggregate[T]) CombUpdate(tid int, value T, version uint64) {
	a.chains[tid].update(value, version, a.agg.CombOp)
}

// Get returns a lock-free snapshot of the aggregate at the given version:
// the combine of every chain's greatest-version-<=-version node (or Zero
// for chains with nothing that old).
func (a *Aggregate[T]) Get(version uint64) T {
	val := a.agg.Zero
	for i := range a.chains {
		val = a.agg.CombOp(val, a.chains[i].get(version))
	}
	return val
}

// Reclaim bulk-reclaims obsolete version nodes across every chain, down to
// the minimum version any future Get is expected to ask for. Only safe to
// call at a quiesce point — see chain.reclaim.
func (a *Aggregate[T]) Reclaim(minVersion uint64) {
	for i := range a.chains {
		a.chains[i].reclaim(minVersion)
	}
}

// MaxConcurrency returns the number of per-thread chains this aggregate
// was constructed with.
func (a *Aggregate[T]) MaxConcurrency() int { return len(a.chains) }
