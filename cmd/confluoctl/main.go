// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Command confluoctl is a benchmarking and introspection tool for an
// in-process confluo store.
package main

import (
	"log"
	"os"

	"github.com/lusong1986/confluo"
	"github.com/spf13/cobra"
)

// logger is shared by every subcommand for lifecycle logging (run start
// and finish), matching how the store itself reports
// through the same Logger interface.
var logger confluo.Logger = confluo.DefaultLogger{}

var rootCmd = &cobra.Command{
	Use:   "confluoctl [command] (flags)",
	Short: "confluo benchmarking/introspection tool",
	Long:  ``,
}

func main() {
	log.SetFlags(0)

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		benchCmd,
		watchCmd,
		dumpCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		// Cobra has already printed the error message.
		os.Exit(1)
	}
}
