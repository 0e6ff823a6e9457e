// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tailword

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpack(t *testing.T) {
	tail := Pack(5)
	require.EqualValues(t, 1, Key(tail))
	require.EqualValues(t, 5, Offset(tail))
}

func TestClaimCommitOrder(t *testing.T) {
	var tl Tail

	old0, err := tl.Claim(Pack(3), 1<<20, 1<<20)
	require.NoError(t, err)
	require.EqualValues(t, 0, old0)

	old1, err := tl.Claim(Pack(4), 1<<20, 1<<20)
	require.NoError(t, err)
	require.EqualValues(t, Pack(3), old1)

	require.EqualValues(t, 0, tl.ReadSnapshot())

	tl.Commit(old0, Pack(3))
	require.EqualValues(t, Pack(3), tl.ReadSnapshot())

	tl.Commit(old1, Pack(4))
	require.EqualValues(t, Pack(3)+Pack(4), tl.ReadSnapshot())
}

func TestCommitBlocksUntilEarlierClaimCommits(t *testing.T) {
	var tl Tail

	old0, err := tl.Claim(Pack(2), 1<<20, 1<<20)
	require.NoError(t, err)
	old1, err := tl.Claim(Pack(2), 1<<20, 1<<20)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	committed := make(chan struct{})
	go func() {
		defer wg.Done()
		tl.Commit(old1, Pack(2))
		close(committed)
	}()

	select {
	case <-committed:
		t.Fatal("second commit completed before the first")
	default:
	}

	tl.Commit(old0, Pack(2))
	wg.Wait()

	require.EqualValues(t, Pack(2)+Pack(2), tl.ReadSnapshot())
}

func TestClaimStoreFull(t *testing.T) {
	var tl Tail

	_, err := tl.Claim(Pack(10), 1, 1<<20)
	require.NoError(t, err)

	_, err = tl.Claim(Pack(10), 1, 1<<20)
	require.ErrorIs(t, err, ErrStoreFull)
}

func TestClaimConcurrentUnique(t *testing.T) {
	var tl Tail
	const n = 200
	var wg sync.WaitGroup
	olds := make([]uint64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			old, err := tl.Claim(Pack(1), 1<<20, 1<<20)
			require.NoError(t, err)
			olds[i] = old
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, n)
	for _, o := range olds {
		require.False(t, seen[o], "duplicate claim offset %d", o)
		seen[o] = true
	}
}
