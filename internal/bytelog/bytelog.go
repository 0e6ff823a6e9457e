// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package bytelog implements the three passive data structures that back
// the log store: the flat byte log itself, the dense per-key offset table,
// and the dense per-key delete (tombstone) table. None of these types
// synchronize writes internally — the tail-word protocol in package
// tailword is what grants a writer exclusive access to a key index or byte
// range before any of these are touched, and the lack of internal locking
// is what keeps reads lock-free.
package bytelog

import (
	"sync/atomic"
	"unsafe"
)

// Log is a contiguous byte buffer of fixed capacity into which writers copy
// value payloads at exclusively-owned offsets. A write to B[o:o+n] is safe
// without synchronization once the caller holds exclusive ownership of that
// range from the tail-word protocol; it becomes safe for readers exactly
// when the commit tail advances past o+n.
type Log struct {
	buf []byte
}

// NewLog allocates a Log with the given byte capacity. The backing buffer
// is allocated as a []uint64 and reinterpreted as bytes so that its address
// is word aligned — plain make([]byte, n) is not guaranteed to be, and
// aligned stores reduce the chance of torn reads/writes on platforms that
// care about it.
func NewLog(capacity uint32) *Log {
	words := make([]uint64, (uint64(capacity)+7)/8)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*8)
	return &Log{buf: b[:capacity]}
}

// Capacity returns the fixed byte capacity of the log.
func (l *Log) Capacity() uint32 { return uint32(len(l.buf)) }

// WriteAt copies value into the log starting at offset. The caller must own
// the range [offset, offset+len(value)) exclusively.
func (l *Log) WriteAt(offset uint32, value []byte) {
	copy(l.buf[offset:], value)
}

// Slice returns the byte range [start, end) of the log. The caller must
// only request a range that a tail snapshot has already certified as
// committed.
func (l *Log) Slice(start, end uint32) []byte {
	return l.buf[start:end]
}

// ByteAt returns the single byte at offset, without any bounds-visibility
// checking beyond the slice bounds. Used by the search path's substring
// comparison.
func (l *Log) ByteAt(offset uint32) byte { return l.buf[offset] }

// OffsetTable is a dense array, indexed by internal key, of the byte offset
// at which that key's value begins in the Log. Entry i is written exactly
// once, by the writer that claimed key i, strictly before that key becomes
// visible to readers (i.e. before the commit tail advances past i).
// Because every writer owns a distinct index exclusively, Set needs no
// synchronization of its own; Get uses an atomic load purely to give the
// Go race detector and memory model a defined happens-before edge with
// Set, not because of any expected contention.
type OffsetTable struct {
	entries []atomic.Uint32
}

// NewOffsetTable allocates a table sized for maxKeys internal keys.
func NewOffsetTable(maxKeys uint32) *OffsetTable {
	return &OffsetTable{entries: make([]atomic.Uint32, maxKeys)}
}

// Set records the starting offset for internal key i. Must be called
// exactly once per key, by the key's exclusive owner.
func (t *OffsetTable) Set(i uint32, offset uint32) {
	t.entries[i].Store(offset)
}

// Get returns the starting offset for internal key i. The caller is
// responsible for only requesting keys a tail snapshot has certified live.
func (t *OffsetTable) Get(i uint32) uint32 {
	return t.entries[i].Load()
}

// MaxKeys returns the table's key capacity.
func (t *OffsetTable) MaxKeys() uint32 { return uint32(len(t.entries)) }

// DeleteTable is a dense array, indexed by internal key, of tombstone
// tokens: 0 means live, and a nonzero token is the byte offset (plus one)
// at which the delete that tombstoned the key committed. A token is set at
// most once per key — concurrent deletes or updates of the same key race to
// win a single compare-and-swap from 0.
type DeleteTable struct {
	entries []atomic.Uint32
}

// NewDeleteTable allocates a table sized for maxKeys internal keys, with
// every entry initialized live (0).
func NewDeleteTable(maxKeys uint32) *DeleteTable {
	return &DeleteTable{entries: make([]atomic.Uint32, maxKeys)}
}

// Get returns the tombstone token for internal key i (0 if live).
func (t *DeleteTable) Get(i uint32) uint32 {
	return t.entries[i].Load()
}

// TrySet attempts to tombstone internal key i with the given nonzero
// token, succeeding only if the key was still live (token 0). Returns
// whether this call won the race.
func (t *DeleteTable) TrySet(i uint32, token uint32) bool {
	return t.entries[i].CompareAndSwap(0, token)
}

// MaxKeys returns the table's key capacity.
func (t *DeleteTable) MaxKeys() uint32 { return uint32(len(t.entries)) }

// IsDeletedBefore reports whether internal key i's tombstone, if any, was
// already committed by the time a reader's commit-tail snapshot had
// advanced to maxOffset. A delete token t means "this key died when the
// commit tail reached t"; a reader whose snapshot is at least t therefore
// must treat the key as gone.
func (t *DeleteTable) IsDeletedBefore(i uint32, maxOffset uint32) bool {
	token := t.Get(i)
	return token != 0 && maxOffset >= token
}
