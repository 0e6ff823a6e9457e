// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package bytelog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogWriteAtSlice(t *testing.T) {
	l := NewLog(64)
	l.WriteAt(0, []byte("hello"))
	l.WriteAt(5, []byte("world"))
	require.Equal(t, "helloworld", string(l.Slice(0, 10)))
	require.Equal(t, byte('w'), l.ByteAt(5))
}

func TestOffsetTable(t *testing.T) {
	ot := NewOffsetTable(8)
	ot.Set(0, 0)
	ot.Set(1, 5)
	ot.Set(2, 11)
	require.EqualValues(t, 0, ot.Get(0))
	require.EqualValues(t, 5, ot.Get(1))
	require.EqualValues(t, 11, ot.Get(2))
	require.EqualValues(t, 8, ot.MaxKeys())
}

func TestDeleteTableTrySetOnce(t *testing.T) {
	dt := NewDeleteTable(4)
	require.EqualValues(t, 0, dt.Get(0))
	require.False(t, dt.IsDeletedBefore(0, 100))

	require.True(t, dt.TrySet(0, 42))
	require.False(t, dt.TrySet(0, 43))
	require.EqualValues(t, 42, dt.Get(0))

	require.False(t, dt.IsDeletedBefore(0, 41))
	require.True(t, dt.IsDeletedBefore(0, 42))
	require.True(t, dt.IsDeletedBefore(0, 100))
}
