// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package tailword implements the packed dual-counter tail word that
// coordinates claim/commit access to an append-only log. A tail word packs
// a 32-bit key counter into its high bits and a 32-bit byte-offset counter
// into its low bits, so that a single atomic fetch-and-add grants a writer
// both a unique internal key and a unique byte range in one instruction.
package tailword

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// KeyIncr is the tail increment for an append: one new key, plus the length
// of the value being appended (ORed into the low 32 bits).
const KeyIncr uint64 = 1 << 32

// DelIncr is the tail increment for a delete: no new key, one tombstone byte
// conceptually consumed from the offset counter.
const DelIncr uint64 = 1

// Pack builds a tail increment for an append of a value of the given length.
// The caller ORs in the length rather than adding it, since a newly claimed
// append always starts its key counter at a clean boundary.
func Pack(valueLen uint32) uint64 {
	return KeyIncr | uint64(valueLen)
}

// Key returns the high 32 bits (key counter) of a tail word.
func Key(tail uint64) uint32 { return uint32(tail >> 32) }

// Offset returns the low 32 bits (byte-offset counter) of a tail word.
func Offset(tail uint64) uint32 { return uint32(tail) }

// ErrStoreFull is returned when a claim would push the key counter or the
// byte-offset counter past the configured bound.
var ErrStoreFull = errors.New("confluo: store is full")

// Tail is a pair of packed 64-bit counters: Write (the claim tail) and Read
// (the commit tail). Writers advance Write to claim an (id, range) pair,
// then advance Read in the same order to publish it.
//
// The zero value is a valid, empty Tail.
type Tail struct {
	write atomic.Uint64
	read  atomic.Uint64
}

// Claim performs the atomic fetch-and-add on the write tail, and returns the
// tail value as it stood immediately before the add. The caller now owns
// the internal key and byte range implied by that pre-increment value and
// the increment just applied.
//
// maxKeys and maxBytes bound the key counter and the offset counter
// (exclusive); Claim returns ErrStoreFull, without allocating anything, if
// this claim's own key or byte range does not fit. The underlying write
// tail has still been bumped in that case — callers that detect a
// store-full claim never commit it, so the read tail permanently trails
// the write tail by the failed claim's increment. This mirrors the source
// protocol, where a failed bounds check is fatal for the operation but
// leaves no user-visible inconsistency, since nothing was ever committed
// into the prior claim's range.
//
// The bounds are checked against this claim's own range — Key(old) for the
// key, [Offset(old), Offset(old)+Offset(increment)) for the bytes — not
// against the tail as it stands after this claim: a claim that exactly
// reaches maxKeys/maxBytes, rather than exceeding it, must still succeed.
func (t *Tail) Claim(increment uint64, maxKeys, maxBytes uint32) (old uint64, err error) {
	old = t.write.Add(increment) - increment
	if Key(old) >= maxKeys {
		return old, ErrStoreFull
	}
	offsetEnd := uint64(Offset(old)) + uint64(Offset(increment))
	if offsetEnd > uint64(maxBytes) {
		return old, ErrStoreFull
	}
	return old, nil
}

// Commit spins a CAS loop advancing the read tail from expected to
// expected+increment. Because claims are granted in increasing order by the
// write-tail fetch-and-add, this forces commits to complete in claim order:
// a later claim's Commit cannot succeed until every earlier claim has
// committed. This is the sole suspension point in the protocol — a
// committing writer waits, at most, for all strictly earlier claims to also
// commit.
//
// The CAS spins on the same fixed (expected, want) pair throughout: it must
// keep retrying exactly until the read tail equals this claim's own
// pre-claim value, never against whatever the read tail happens to be on a
// given iteration. Recomputing want from a freshly loaded read tail would
// let a later claim's commit race ahead of an earlier one whenever the read
// tail transiently matches neither value, breaking claim-order commit.
func (t *Tail) Commit(expected, increment uint64) {
	want := expected + increment
	for !t.read.CompareAndSwap(expected, want) {
	}
}

// ReadSnapshot returns the current read tail, the linearization point for
// all readers: a key or byte is visible iff the commit that published it
// has already bumped the read tail to or past the corresponding boundary.
func (t *Tail) ReadSnapshot() uint64 { return t.read.Load() }

// WriteSnapshot returns the current write (claim) tail. It is only useful
// for approximate diagnostics (see Gap); it races with in-flight claims.
func (t *Tail) WriteSnapshot() uint64 { return t.write.Load() }

// Gap returns the approximate difference between the write and read tails —
// how much claimed work has not yet committed. It is not atomic with
// respect to either counter and is intended for diagnostics only.
func (t *Tail) Gap() uint64 { return t.write.Load() - t.read.Load() }
