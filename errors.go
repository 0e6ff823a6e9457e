// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package confluo

import (
	"github.com/cockroachdb/errors"
	"github.com/lusong1986/confluo/internal/tailword"
)

// ErrStoreFull is returned by Append, Delete, and Update when satisfying
// the operation would push the key counter past MaxKeys or the byte
// counter past LogSize. It is the sole user-visible hard error the store
// produces; misses and already-deleted keys are reported through a bool,
// never an error, and a too-short search query through ErrQueryTooShort.
var ErrStoreFull = tailword.ErrStoreFull

// ErrQueryTooShort is returned by Search and ColSearch when the query is
// shorter than the index's gram width. Exact search for substrings below
// that width is an acknowledged limitation of the n-gram index, not a bug:
// a query shorter than one gram has no prefix/suffix gram to anchor the
// scan on.
var ErrQueryTooShort = errors.New("confluo: query must be at least as long as the n-gram width")
