// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/lusong1986/confluo"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
)

var dumpOut string
var dumpSampleKeys int

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "write a compressed diagnostic snapshot of a confluo store",
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpOut, "out", "o", "confluo-dump.json.zst", "output path")
	dumpCmd.Flags().IntVar(&dumpSampleKeys, "sample-keys", 100, "number of live values to sample into the dump")
}

// snapshot is the diagnostic payload dump writes. It carries no on-disk
// format guarantee across versions; it exists purely for offline human
// inspection of a store's state.
type snapshot struct {
	NumKeys uint32            `json:"num_keys"`
	Size    uint32            `json:"size"`
	Gap     uint64            `json:"gap"`
	Sample  map[uint32]string `json:"sample"`
}

func runDump(cmd *cobra.Command, args []string) error {
	store, err := confluo.Open(confluo.Options{})
	if err != nil {
		return err
	}

	snap := snapshot{
		NumKeys: store.NumKeys(),
		Size:    store.Size(),
		Gap:     store.Gap(),
		Sample:  make(map[uint32]string),
	}
	for key := uint32(0); key < snap.NumKeys && len(snap.Sample) < dumpSampleKeys; key++ {
		if value, ok := store.Get(key); ok {
			snap.Sample[key] = string(value)
		}
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	f, err := os.Create(dumpOut)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if _, err := enc.Write(payload); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	sampledKeys := maps.Keys(snap.Sample)
	sort.Slice(sampledKeys, func(i, j int) bool { return sampledKeys[i] < sampledKeys[j] })

	logger.Infof("confluoctl dump: wrote %s (%d sampled keys)", dumpOut, len(snap.Sample))
	fmt.Printf("wrote %s (%d sampled keys, first=%v)\n", dumpOut, len(snap.Sample), firstN(sampledKeys, 5))
	return nil
}

func firstN(keys []uint32, n int) []uint32 {
	if len(keys) < n {
		n = len(keys)
	}
	return keys[:n]
}
