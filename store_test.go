// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package confluo

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func keysOf(m map[uint32]struct{}) []uint32 {
	out := make([]uint32, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestAppendGet(t *testing.T) {
	s, err := Open(Options{})
	require.NoError(t, err)

	key, err := s.Append([]byte("hello"))
	require.NoError(t, err)
	require.EqualValues(t, 0, key)

	value, ok := s.Get(0)
	require.True(t, ok)
	require.Equal(t, "hello", string(value))

	require.EqualValues(t, 1, s.NumKeys())
	require.EqualValues(t, 5, s.Size())
}

func TestSearchHitMiss(t *testing.T) {
	s, err := Open(Options{NGramN: 3})
	require.NoError(t, err)

	_, err = s.Append([]byte("banana"))
	require.NoError(t, err)
	_, err = s.Append([]byte("bandana"))
	require.NoError(t, err)

	results, err := s.Search([]byte("ana"))
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1}, keysOf(results))

	results, err = s.Search([]byte("zzz"))
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestDeleteThenSearch(t *testing.T) {
	s, err := Open(Options{NGramN: 3})
	require.NoError(t, err)

	_, err = s.Append([]byte("banana"))
	require.NoError(t, err)
	_, err = s.Append([]byte("bandana"))
	require.NoError(t, err)

	deleted, err := s.Delete(0)
	require.NoError(t, err)
	require.True(t, deleted)

	results, err := s.Search([]byte("ana"))
	require.NoError(t, err)
	require.Equal(t, []uint32{1}, keysOf(results))

	_, ok := s.Get(0)
	require.False(t, ok)

	deleted, err = s.Delete(0)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestUpdate(t *testing.T) {
	s, err := Open(Options{NGramN: 3})
	require.NoError(t, err)

	_, err = s.Append([]byte("banana"))
	require.NoError(t, err)
	_, err = s.Append([]byte("bandana"))
	require.NoError(t, err)

	newKey, err := s.Update(1, []byte("orange"))
	require.NoError(t, err)
	require.EqualValues(t, 2, newKey)

	results, err := s.Search([]byte("ana"))
	require.NoError(t, err)
	require.Equal(t, []uint32{0}, keysOf(results))

	results, err = s.Search([]byte("ran"))
	require.NoError(t, err)
	require.Equal(t, []uint32{2}, keysOf(results))

	_, ok := s.Get(1)
	require.False(t, ok)
}

func TestBoundaryStoreFull(t *testing.T) {
	s, err := Open(Options{NGramN: 3, LogSize: 16})
	require.NoError(t, err)

	key, err := s.Append([]byte("abcdefghij"))
	require.NoError(t, err)
	require.EqualValues(t, 0, key)

	key, err = s.Append([]byte("klmnop"))
	require.NoError(t, err)
	require.EqualValues(t, 1, key)

	_, err = s.Append([]byte("q"))
	require.ErrorIs(t, err, ErrStoreFull)
}

func TestSearchQueryTooShort(t *testing.T) {
	s, err := Open(Options{NGramN: 3})
	require.NoError(t, err)
	_, err = s.Append([]byte("banana"))
	require.NoError(t, err)

	_, err = s.Search([]byte("an"))
	require.ErrorIs(t, err, ErrQueryTooShort)
}

func TestColSearch(t *testing.T) {
	s, err := Open(Options{NGramN: 3})
	require.NoError(t, err)
	_, err = s.Append([]byte("red"))
	require.NoError(t, err)
	_, err = s.Append([]byte("blue"))
	require.NoError(t, err)
	_, err = s.Append([]byte("bluegreen"))
	require.NoError(t, err)

	results, err := s.ColSearch([]byte("blue"))
	require.NoError(t, err)
	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	require.Equal(t, []uint32{1, 2}, results)
}

func TestConcurrentAppendersDistinctKeys(t *testing.T) {
	s, err := Open(Options{NGramN: 3})
	require.NoError(t, err)

	const c = 100
	var wg sync.WaitGroup
	keys := make([]uint32, c)
	for i := 0; i < c; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k, err := s.Append([]byte(fmt.Sprintf("value-%04d", i)))
			require.NoError(t, err)
			keys[i] = k
		}(i)
	}
	wg.Wait()

	seen := make(map[uint32]bool, c)
	for _, k := range keys {
		require.False(t, seen[k])
		seen[k] = true
	}
	require.EqualValues(t, c, s.NumKeys())

	for i := 0; i < c; i++ {
		value, ok := s.Get(keys[i])
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("value-%04d", i), string(value))
	}
}

func TestReaderSnapshotIsStable(t *testing.T) {
	s, err := Open(Options{NGramN: 3})
	require.NoError(t, err)

	_, err = s.Append([]byte("alpha"))
	require.NoError(t, err)

	before := s.NumKeys()
	results, err := s.Search([]byte("alp"))
	require.NoError(t, err)
	require.Len(t, results, 1)

	_, err = s.Append([]byte("alphabet"))
	require.NoError(t, err)

	require.EqualValues(t, before, len(results))
}
