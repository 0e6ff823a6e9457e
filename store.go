// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package confluo implements the core of an in-memory, append-only
// log-structured key/value store with built-in substring search. The store
// ingests arbitrarily many short values, assigns each a dense monotonically
// increasing internal key, and supports point lookup by key, tombstone-
// style delete, in-place update (delete + append), and substring search
// over all live values via an n-gram index. Append, Get, Search, Delete,
// and Update are safe under arbitrary numbers of concurrent writers and
// readers. Get and Delete take no lock; Append, Update, and Search hold a
// per-shard mutex of the n-gram index around each gram-map access.
//
// User-key <-> internal-key mapping, on-disk persistence, and network
// framing are explicitly out of scope here; they are external collaborators
// layered on top of this core.
package confluo

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lusong1986/confluo/internal/bytelog"
	"github.com/lusong1986/confluo/internal/ngram"
	"github.com/lusong1986/confluo/internal/tailword"
)

const (
	// DefaultMaxKeys is the default upper bound on the number of keys a
	// Store will accept.
	DefaultMaxKeys = 1 << 27
	// DefaultLogSize is the default upper bound, in bytes, on the size of
	// a Store's byte log.
	DefaultLogSize = 1<<32 - 1
	// DefaultNGramN is the default, and only well-tested, n-gram width.
	DefaultNGramN = 3
)

// Options configures a Store. The zero value is not directly usable; call
// Options.EnsureDefaults or just pass an Options literal through Open,
// which applies the same defaults.
type Options struct {
	// MaxKeys bounds the number of internal keys the store will ever
	// allocate. Defaults to DefaultMaxKeys.
	MaxKeys uint32
	// LogSize bounds the total number of bytes the store's byte log can
	// hold. Defaults to DefaultLogSize.
	LogSize uint32
	// NGramN is the fixed width, in bytes, of n-grams indexed for
	// substring search. Must be in [1, ngram.MaxWidth]. Defaults to
	// DefaultNGramN.
	NGramN int
	// Logger receives diagnostic output. Defaults to DefaultLogger.
	Logger Logger
	// Metrics, if non-nil, is updated after every mutating call. Callers
	// that want Prometheus export should construct one with NewMetrics
	// and register its Collectors().
	Metrics *Metrics
}

// EnsureDefaults returns a copy of o with every unset field replaced by its
// default.
func (o Options) EnsureDefaults() Options {
	if o.MaxKeys == 0 {
		o.MaxKeys = DefaultMaxKeys
	}
	if o.LogSize == 0 {
		o.LogSize = DefaultLogSize
	}
	if o.NGramN == 0 {
		o.NGramN = DefaultNGramN
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger{}
	}
	return o
}

// Store is the log-store façade: a single long-lived, process-global
// instance combining the byte log, offset and delete tables, n-gram index,
// and the tail-word claim/commit protocol that ties them together. There
// is no on-disk format and no persistence across restarts; Store is valid
// only for the lifetime of the process that creates it.
type Store struct {
	opts Options

	tail    tailword.Tail
	log     *bytelog.Log
	offsets *bytelog.OffsetTable
	deletes *bytelog.DeleteTable
	index   *ngram.Index
}

// Open constructs a new, empty Store with the given options.
func Open(opts Options) (*Store, error) {
	opts = opts.EnsureDefaults()
	if opts.NGramN < 1 || opts.NGramN > ngram.MaxWidth {
		return nil, errors.Newf("confluo: NGramN %d out of range [1, %d]", opts.NGramN, ngram.MaxWidth)
	}
	return &Store{
		opts:    opts,
		log:     bytelog.NewLog(opts.LogSize),
		offsets: bytelog.NewOffsetTable(opts.MaxKeys),
		deletes: bytelog.NewDeleteTable(opts.MaxKeys),
		index:   ngram.New(),
	}, nil
}

// Append adds value to the store, returning its newly assigned internal
// key. Append is the only path that creates a key; it claims an exclusive
// (key, byte range) pair with a single fetch-and-add, writes the value and
// its n-gram postings into that exclusive range without any further
// synchronization, and finally commits in claim order so that readers
// never observe a partially-published key.
func (s *Store) Append(value []byte) (key uint32, err error) {
	start := time.Now()
	defer func() { s.observeAppend(start) }()

	old, key, _, err := s.internalAppend(value)
	if err != nil {
		s.observeStoreFull()
		return 0, err
	}
	s.tail.Commit(old, tailword.Pack(uint32(len(value))))
	s.refreshGauges()
	return key, nil
}

// internalAppend claims a key and byte range for value, writes the value
// and its n-gram postings, and returns the pre-claim tail (needed by the
// caller to commit) along with the assigned key and offset. It never
// commits; Append commits immediately, while Update defers the commit
// until after it has also tombstoned the old key, so both the new key's
// publication and the old key's deletion become visible atomically from a
// reader's point of view.
func (s *Store) internalAppend(value []byte) (old uint64, key, offset uint32, err error) {
	increment := tailword.Pack(uint32(len(value)))
	old, err = s.tail.Claim(increment, s.opts.MaxKeys, s.opts.LogSize)
	if err != nil {
		return 0, 0, 0, err
	}

	key = tailword.Key(old)
	offset = tailword.Offset(old)

	s.offsets.Set(key, offset)
	s.log.WriteAt(offset, value)
	s.publishGrams(value, offset)

	return old, key, offset, nil
}

// publishGrams indexes every N-byte gram of value, recording that each
// begins at its absolute offset in the byte log. Publication happens
// before the caller commits the claim, so that by the time a reader's tail
// snapshot includes this value, every gram it contributed is already
// queryable — never the reverse.
func (s *Store) publishGrams(value []byte, offset uint32) {
	n := s.opts.NGramN
	if len(value) < n {
		return
	}
	for k := 0; k+n <= len(value); k++ {
		gram, err := ngram.PackGram(value[k : k+n])
		if err != nil {
			// NGramN was already validated in Open; this can't happen.
			panic(err)
		}
		s.index.AddOffset(gram, offset+uint32(k))
	}
}

// Get returns the value stored under internal key i, or ok=false if i has
// never been assigned, has not yet been committed as of this call, or was
// deleted before this call's tail snapshot was taken.
func (s *Store) Get(i uint32) (value []byte, ok bool) {
	current := s.tail.ReadSnapshot()
	maxKey := tailword.Key(current)
	maxOff := tailword.Offset(current)

	if i >= maxKey {
		return nil, false
	}
	if s.deletes.IsDeletedBefore(i, maxOff) {
		return nil, false
	}

	start := s.offsets.Get(i)
	end := maxOff
	if i+1 < maxKey {
		end = s.offsets.Get(i + 1)
	}

	value = make([]byte, end-start)
	copy(value, s.log.Slice(start, end))
	return value, true
}

// Delete tombstones internal key i, returning whether this call is the one
// that won the race to do so. Delete returns false, without error, both
// when i has not yet been assigned by any append (i is at or past the key
// counter of the claim tail) and when i was already deleted by another
// caller.
//
// The tombstone token recorded is commit_offset+1: the source only commits
// this operation's own claimed tail-byte on the winning path, which
// otherwise permanently strands read_tail one byte behind write_tail on
// every losing delete. This implementation always commits the claimed
// byte, win or lose, so Gap never accumulates drift from contended
// deletes; see DESIGN.md for the full discussion of this deviation.
func (s *Store) Delete(i uint32) (deleted bool, err error) {
	old, err := s.tail.Claim(tailword.DelIncr, s.opts.MaxKeys, s.opts.LogSize)
	if err != nil {
		s.observeStoreFull()
		return false, err
	}
	defer func() {
		s.tail.Commit(old, tailword.DelIncr)
		s.refreshGauges()
	}()

	if i >= tailword.Key(old) {
		return false, nil
	}

	token := tailword.Offset(old) + 1
	return s.deletes.TrySet(i, token), nil
}

// Update atomically replaces the value at internal key i with newValue,
// returning the new internal key. It is observationally equivalent to
// Delete(i) followed by Append(newValue), except that both the append of
// the new value and the tombstone of the old key become visible to readers
// in the same commit, rather than as two separate linearization points.
func (s *Store) Update(i uint32, newValue []byte) (newKey uint32, err error) {
	old, newKey, offset, err := s.internalAppend(newValue)
	if err != nil {
		s.observeStoreFull()
		return 0, err
	}

	// The result of tombstoning the old key is intentionally ignored, as
	// in the source: if i was already deleted or never existed, Update
	// still succeeds and simply contributes only its Append half.
	if i < newKey {
		_ = s.deletes.TrySet(i, offset+1)
	}

	s.tail.Commit(old, tailword.Pack(uint32(len(newValue))))
	s.refreshGauges()
	return newKey, nil
}

// NumKeys returns the number of committed (visible) keys.
func (s *Store) NumKeys() uint32 {
	return tailword.Key(s.tail.ReadSnapshot())
}

// Size returns the number of committed bytes in the byte log.
func (s *Store) Size() uint32 {
	return tailword.Offset(s.tail.ReadSnapshot())
}

// Gap returns the approximate distance between the claim tail and the
// commit tail. This is a diagnostic value only — it is not read
// atomically with respect to both counters.
func (s *Store) Gap() uint64 {
	return s.tail.Gap()
}

func (s *Store) observeAppend(start time.Time) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.AppendLatency.Observe(time.Since(start).Seconds())
	}
}

func (s *Store) observeStoreFull() {
	if s.opts.Metrics != nil {
		s.opts.Metrics.StoreFull.Inc()
	}
	s.opts.Logger.Infof("confluo: store full at num_keys=%d size=%d (max_keys=%d log_size=%d)",
		s.NumKeys(), s.Size(), s.opts.MaxKeys, s.opts.LogSize)
}

func (s *Store) refreshGauges() {
	if s.opts.Metrics != nil {
		s.opts.Metrics.refresh(s.NumKeys(), s.Size(), s.Gap())
	}
}
