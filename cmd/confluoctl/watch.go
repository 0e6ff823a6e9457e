// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/lusong1986/confluo"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	watchInterval time.Duration
	watchSamples  int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "poll a confluo store's counters and plot them in-terminal",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Second, "poll interval")
	watchCmd.Flags().IntVar(&watchSamples, "samples", 60, "number of samples to keep in the rolling plot")
}

// runWatch demonstrates the counters a driver process would poll; it opens
// its own empty store since confluoctl has no attach-to-running-process
// mechanism (the core is in-process only, per design).
func runWatch(cmd *cobra.Command, args []string) error {
	store, err := confluo.Open(confluo.Options{})
	if err != nil {
		return err
	}
	logger.Infof("confluoctl watch: polling every %s for %d samples", watchInterval, watchSamples)

	var sizeSamples []float64
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for i := 0; i < watchSamples; i++ {
		<-ticker.C

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"num_keys", "size", "gap"})
		table.Append([]string{
			fmt.Sprint(store.NumKeys()),
			fmt.Sprint(store.Size()),
			fmt.Sprint(store.Gap()),
		})
		table.Render()

		sizeSamples = append(sizeSamples, float64(store.Size()))
		if len(sizeSamples) > 1 {
			fmt.Println(asciigraph.Plot(sizeSamples, asciigraph.Height(10), asciigraph.Caption("size(t)")))
		}
	}
	return nil
}
