// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package confluo

import (
	"bytes"
	"time"

	"github.com/lusong1986/confluo/internal/ngram"
	"github.com/lusong1986/confluo/internal/tailword"
)

// Search returns the set of internal keys whose live, committed value (as
// of the instant Search snapshots the commit tail) contains query as a
// substring. Results are deduplicated: a value with more than one matching
// occurrence still contributes its key once.
//
// Search requires len(query) >= NGramN; queries shorter than the gram width
// are an acknowledged gap in the n-gram index (see ErrQueryTooShort) and return
// ErrQueryTooShort rather than a best-effort or incorrect result. A query
// exactly NGramN bytes long degenerates to a single gram serving as both
// prefix and suffix, which the shared search procedure handles directly.
func (s *Store) Search(query []byte) (map[uint32]struct{}, error) {
	start := time.Now()
	defer func() {
		if s.opts.Metrics != nil {
			s.opts.Metrics.SearchLatency.Observe(time.Since(start).Seconds())
		}
	}()

	results := make(map[uint32]struct{})
	err := s.search(query, func(key uint32) { results[key] = struct{}{} })
	return results, err
}

// ColSearch returns every internal key whose live, committed value contains
// columnValue as a substring, in unspecified order. Unlike Search it
// returns a slice rather than a set: a key is appended once per matching
// occurrence, so callers that know a value matches at most once (e.g. a
// column store issuing exact-value lookups) can skip the dedup bookkeeping.
func (s *Store) ColSearch(columnValue []byte) ([]uint32, error) {
	start := time.Now()
	defer func() {
		if s.opts.Metrics != nil {
			s.opts.Metrics.SearchLatency.Observe(time.Since(start).Seconds())
		}
	}()

	var results []uint32
	err := s.search(columnValue, func(key uint32) { results = append(results, key) })
	return results, err
}

// search implements the shared substring-search procedure described in the
// design: snapshot the commit tail, pick whichever of the query's prefix or
// suffix gram has the shorter posting list, scan that list comparing the
// remaining bytes against the log, and resolve each surviving offset to its
// owning (non-deleted, committed) key via resolveKey.
func (s *Store) search(query []byte, emit func(key uint32)) error {
	n := s.opts.NGramN
	if len(query) < n {
		return ErrQueryTooShort
	}

	current := s.tail.ReadSnapshot()
	maxKey := tailword.Key(current)
	maxOff := tailword.Offset(current)

	prefixGram, err := ngram.PackGram(query[:n])
	if err != nil {
		return err
	}
	suffixGram, err := ngram.PackGram(query[len(query)-n:])
	if err != nil {
		return err
	}

	prefixList := s.index.Lookup(prefixGram)
	suffixList := s.index.Lookup(suffixGram)

	prefixSize := listSize(prefixList)
	suffixSize := listSize(suffixList)

	if prefixSize <= suffixSize {
		s.scanPrefixList(prefixList, prefixSize, query, n, maxKey, maxOff, emit)
	} else {
		s.scanSuffixList(suffixList, suffixSize, query, n, maxKey, maxOff, emit)
	}
	return nil
}

func listSize(l *ngram.PostingList) uint32 {
	if l == nil {
		return 0
	}
	return l.Size()
}

// scanPrefixList walks the query's prefix-gram posting list, comparing
// each candidate offset's remaining suffix bytes against the log.
func (s *Store) scanPrefixList(
	list *ngram.PostingList, size uint32, query []byte, n int, maxKey, maxOff uint32, emit func(uint32),
) {
	if size == 0 {
		return
	}
	suffix := query[n:]
	for i := uint32(0); i < size; i++ {
		off := list.At(i)
		// The offset must itself be committed, and there must be room for
		// the rest of the query before the log's committed boundary.
		if off >= maxOff || uint64(off)+uint64(n)+uint64(len(suffix)) > uint64(maxOff) {
			continue
		}
		if !bytes.Equal(s.log.Slice(off+uint32(n), off+uint32(n)+uint32(len(suffix))), suffix) {
			continue
		}
		s.resolveKey(off, maxKey, maxOff, emit)
	}
}

// scanSuffixList walks the query's suffix-gram posting list, comparing each
// candidate offset's preceding prefix bytes against the log. A candidate
// offset o is the position of the suffix gram itself, so the value's match
// begins at o-(len(query)-n); offsets less than that distance are rejected
// to avoid underflowing into negative log positions.
func (s *Store) scanSuffixList(
	list *ngram.PostingList, size uint32, query []byte, n int, maxKey, maxOff uint32, emit func(uint32),
) {
	if size == 0 {
		return
	}
	prefix := query[:len(query)-n]
	prefixLen := uint32(len(prefix))
	for i := uint32(0); i < size; i++ {
		off := list.At(i)
		if off >= maxOff || off < prefixLen {
			continue
		}
		if !bytes.Equal(s.log.Slice(off-prefixLen, off), prefix) {
			continue
		}
		s.resolveKey(off-prefixLen, maxKey, maxOff, emit)
	}
}

// resolveKey binary-searches the offset table for the greatest key with
// OffsetTable[key] <= offset — the key owning the byte at offset — then
// filters it out if it was deleted before the maxOff snapshot. Keys are
// dense and their offsets monotone non-decreasing (a direct consequence of
// the packed fetch-and-add granting offsets in claim order), which is what
// makes this binary search well-defined.
func (s *Store) resolveKey(offset, maxKey, maxOff uint32, emit func(uint32)) {
	lo, hi := uint32(0), maxKey
	for lo < hi {
		mid := lo + (hi-lo)/2
		if s.offsets.Get(mid) <= offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return
	}
	key := lo - 1

	if s.deletes.IsDeletedBefore(key, maxOff) {
		return
	}
	emit(key)
}
