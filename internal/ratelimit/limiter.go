// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package ratelimit throttles synthetic load generators to a target rate of
// operations per second, so a benchmark can model a bounded-throughput
// producer instead of an open, unthrottled firehose.
package ratelimit

import (
	"sync"
	"time"

	"github.com/cockroachdb/tokenbucket"
)

// Limiter is a token bucket sized in operations (not bytes): initially full
// at burst tokens, refilled at rate operations per second. Limiter is safe
// for concurrent use by multiple goroutines.
type Limiter struct {
	mu struct {
		sync.Mutex
		tb tokenbucket.TokenBucket
	}
}

// NewLimiter returns a Limiter permitting up to rate operations/second with
// bursts of up to burst operations.
func NewLimiter(rate, burst float64) *Limiter {
	l := &Limiter{}
	l.mu.tb.Init(tokenbucket.TokensPerSecond(rate), tokenbucket.Tokens(burst))
	return l
}

// Wait blocks until one operation's worth of quota is available.
func (l *Limiter) Wait() {
	for {
		l.mu.Lock()
		ok, d := l.mu.tb.TryToFulfill(1)
		l.mu.Unlock()
		if ok {
			return
		}
		time.Sleep(d)
	}
}
