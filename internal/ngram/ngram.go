// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package ngram implements the append-only, reader-snapshot n-gram posting
// index: a mapping from fixed-width byte grams to the list of byte offsets
// in the log at which that gram begins. The index never removes entries —
// deletions and partially-committed writes are filtered out at query time
// by the caller, against a tail snapshot.
package ngram

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"
)

// MaxWidth is the largest gram width this package can pack into a uint32
// map key. The source packs grams into an integer whenever the configured
// width allows it; four bytes is the natural ceiling for a 32-bit key.
const MaxWidth = 4

// numShards controls how many independent gram->list maps the Index keeps.
// Sharding follows the same reasoning as a sharded block cache: every map
// access (finding a gram's list, or inserting a never-before-seen gram)
// holds its shard's lock, while the append to the posting list itself is
// lock-free, so spreading grams across shards keeps that short locked path
// cheap under concurrent writers touching distinct grams.
const numShards = 64

// segmentSize is the number of offsets held per allocated chunk of a
// posting list.
const segmentSize = 1024

// PackGram packs a byte gram of length <= MaxWidth into a uint32 map key.
func PackGram(gram []byte) (uint32, error) {
	if len(gram) == 0 || len(gram) > MaxWidth {
		return 0, errors.Newf("ngram: width %d exceeds max packable width %d", len(gram), MaxWidth)
	}
	var v uint32
	for _, b := range gram {
		v = v<<8 | uint32(b)
	}
	// Disambiguate grams of different lengths that would otherwise collide
	// (e.g. a single 0x41 byte vs. two bytes 0x00 0x41): fold the length in.
	return v ^ (uint32(len(gram)) << 28), nil
}

// PostingList is an append-only, lock-free-for-readers list of byte offsets
// at which a single gram occurs. Appends reserve a slot with an atomic
// counter and publish it with an ordered commit, exactly like the log's
// tail-word protocol, so a reader snapshotting Size never observes a
// reserved-but-unwritten slot.
type PostingList struct {
	claimed   atomic.Uint32
	committed atomic.Uint32

	segMu sync.Mutex
	// segs is replaced (copy-on-grow) under segMu whenever a new segment is
	// needed; existing segment pointers inside it never move once
	// published, so a reader can load the slice pointer without segMu and
	// safely index into any segment it already contains.
	segs atomic.Pointer[[]*[segmentSize]uint32]
}

// Append reserves the next slot in the list and publishes offset into it.
// Safe for arbitrarily many concurrent callers, including calls appending
// to the same list for the same or different offsets.
func (l *PostingList) Append(offset uint32) {
	idx := l.claimed.Add(1) - 1
	seg := l.segmentFor(idx)
	seg[idx%segmentSize] = offset

	// Commit in claim order, mirroring tailword.Tail.Commit: a later
	// claimant's commit cannot complete until every earlier claimant has
	// also committed, so Size() never advances past an unwritten slot.
	for {
		cur := l.committed.Load()
		if cur != idx {
			continue
		}
		if l.committed.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}

// Size returns a snapshot of the number of committed (safely readable)
// entries in the list.
func (l *PostingList) Size() uint32 { return l.committed.Load() }

// At returns the offset stored at index i. The caller must have already
// snapshotted Size and only read indices strictly less than that snapshot.
func (l *PostingList) At(i uint32) uint32 {
	segs := l.loadSegs()
	return segs[i/segmentSize][i%segmentSize]
}

func (l *PostingList) loadSegs() []*[segmentSize]uint32 {
	p := l.segs.Load()
	if p == nil {
		return nil
	}
	return *p
}

func (l *PostingList) segmentFor(idx uint32) *[segmentSize]uint32 {
	segIdx := int(idx / segmentSize)
	segs := l.loadSegs()
	if segIdx < len(segs) {
		return segs[segIdx]
	}

	l.segMu.Lock()
	defer l.segMu.Unlock()
	segs = l.loadSegs()
	if segIdx < len(segs) {
		return segs[segIdx]
	}
	grown := make([]*[segmentSize]uint32, segIdx+1)
	copy(grown, segs)
	for i := len(segs); i <= segIdx; i++ {
		grown[i] = new([segmentSize]uint32)
	}
	l.segs.Store(&grown)
	return grown[segIdx]
}

// Index is the full n-gram posting index: a sharded map from packed gram to
// PostingList. AddOffset and Lookup take the shard's mutex for the map
// access on every call; the append to a list and reads of a list's entries
// run without it.
type Index struct {
	shards [numShards]shard
}

type shard struct {
	mu sync.Mutex
	m  swiss.Map[uint32, *PostingList]
}

// New constructs an empty n-gram index.
func New() *Index {
	idx := &Index{}
	for i := range idx.shards {
		idx.shards[i].m.Init(8)
	}
	return idx
}

func (idx *Index) shardFor(gram uint32) *shard {
	return &idx.shards[xxhash.Sum64(encodeKey(gram))%numShards]
}

func encodeKey(gram uint32) []byte {
	return []byte{byte(gram >> 24), byte(gram >> 16), byte(gram >> 8), byte(gram)}
}

// AddOffset records that gram occurs at offset. Publication of this entry
// (the point at which Lookup can observe it) happens as soon as Append
// returns; callers in the log's append path call this before advancing the
// commit tail, so a reader that later snapshots the commit tail past this
// offset is guaranteed to find it here.
func (idx *Index) AddOffset(gram uint32, offset uint32) {
	sh := idx.shardFor(gram)
	sh.mu.Lock()
	list, ok := sh.m.Get(gram)
	if !ok {
		list = &PostingList{}
		sh.m.Put(gram, list)
	}
	sh.mu.Unlock()
	list.Append(offset)
}

// Lookup returns the posting list for gram, or nil if the gram has never
// been observed.
func (idx *Index) Lookup(gram uint32) *PostingList {
	sh := idx.shardFor(gram)
	sh.mu.Lock()
	list, _ := sh.m.Get(gram)
	sh.mu.Unlock()
	return list
}
