// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/lusong1986/confluo"
	"github.com/lusong1986/confluo/internal/ratelimit"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	benchWriters   int
	benchReaders   int
	benchDuration  time.Duration
	benchValueSize int
	benchWriteRate float64
	benchLogSize   uint32
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "load a confluo store with concurrent writers and readers",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchWriters, "writers", 4, "number of concurrent appenders")
	benchCmd.Flags().IntVar(&benchReaders, "readers", 4, "number of concurrent searchers")
	benchCmd.Flags().DurationVarP(&benchDuration, "duration", "d", 10*time.Second, "how long to run")
	benchCmd.Flags().IntVar(&benchValueSize, "value-size", 32, "size in bytes of each appended value")
	benchCmd.Flags().Float64Var(&benchWriteRate, "rate", 0, "max appends/sec across all writers (0 = unlimited)")
	benchCmd.Flags().Uint32Var(&benchLogSize, "log-size", confluo.DefaultLogSize, "byte log capacity")
}

func runBench(cmd *cobra.Command, args []string) error {
	store, err := confluo.Open(confluo.Options{LogSize: benchLogSize})
	if err != nil {
		return err
	}
	logger.Infof("confluoctl bench: starting with %d writers, %d readers, duration=%s",
		benchWriters, benchReaders, benchDuration)

	var limiter *ratelimit.Limiter
	if benchWriteRate > 0 {
		limiter = ratelimit.NewLimiter(benchWriteRate, benchWriteRate)
	}

	appendHist := hdrhistogram.New(1, 10_000_000, 3)
	searchHist := hdrhistogram.New(1, 10_000_000, 3)
	var appendHistMu, searchHistMu sync.Mutex

	var appended int64

	ctx, cancel := context.WithTimeout(context.Background(), benchDuration)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	for w := 0; w < benchWriters; w++ {
		w := w
		g.Go(func() error {
			rnd := rand.New(rand.NewSource(int64(w) + 1))
			value := make([]byte, benchValueSize)
			for ctx.Err() == nil {
				if limiter != nil {
					limiter.Wait()
				}
				rnd.Read(value)
				start := time.Now()
				if _, err := store.Append(value); err != nil {
					if err == confluo.ErrStoreFull {
						return nil
					}
					return err
				}
				appendHistMu.Lock()
				_ = appendHist.RecordValue(time.Since(start).Microseconds())
				appendHistMu.Unlock()
				atomic.AddInt64(&appended, 1)
			}
			return nil
		})
	}

	for r := 0; r < benchReaders; r++ {
		g.Go(func() error {
			query := make([]byte, 4)
			rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
			for ctx.Err() == nil {
				if store.NumKeys() == 0 {
					time.Sleep(time.Millisecond)
					continue
				}
				rnd.Read(query)
				start := time.Now()
				if _, err := store.Search(query); err != nil && err != confluo.ErrQueryTooShort {
					return err
				}
				searchHistMu.Lock()
				_ = searchHist.RecordValue(time.Since(start).Microseconds())
				searchHistMu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Infof("confluoctl bench: finished, appended=%d num_keys=%d", atomic.LoadInt64(&appended), store.NumKeys())

	fmt.Printf("appended %d values (num_keys=%d size=%d gap=%d)\n",
		atomic.LoadInt64(&appended), store.NumKeys(), store.Size(), store.Gap())
	fmt.Printf("append latency (us): p50=%d p99=%d p999=%d\n",
		appendHist.ValueAtQuantile(50), appendHist.ValueAtQuantile(99), appendHist.ValueAtQuantile(99.9))
	fmt.Printf("search latency (us): p50=%d p99=%d p999=%d\n",
		searchHist.ValueAtQuantile(50), searchHist.ValueAtQuantile(99), searchHist.ValueAtQuantile(99.9))
	return nil
}
