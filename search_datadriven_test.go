// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package confluo

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
)

// TestSearchDataDriven drives append/search/delete/update/get sequences from
// testdata/search, in the style of the rest of the corpus's datadriven
// suites: each test case is a short script rather than a hand-written
// sequence of Go assertions, which makes new search scenarios cheap to add.
func TestSearchDataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/search", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "init":
			s, err := Open(Options{NGramN: 3})
			if err != nil {
				return fmt.Sprintf("error: %s", err)
			}
			currentStore = s
			return ""

		case "append":
			key, err := currentStore.Append([]byte(strings.TrimSpace(td.Input)))
			if err != nil {
				return fmt.Sprintf("error: %s", err)
			}
			return fmt.Sprintf("key=%d", key)

		case "search":
			results, err := currentStore.Search([]byte(strings.TrimSpace(td.Input)))
			if err != nil {
				return fmt.Sprintf("error: %s", err)
			}
			return formatKeySet(results)

		case "delete":
			var key uint32
			if _, err := fmt.Sscanf(td.CmdArgs[0].String(), "%d", &key); err != nil {
				return fmt.Sprintf("error: %s", err)
			}
			deleted, err := currentStore.Delete(key)
			if err != nil {
				return fmt.Sprintf("error: %s", err)
			}
			return fmt.Sprintf("deleted=%t", deleted)

		case "update":
			var key uint32
			if _, err := fmt.Sscanf(td.CmdArgs[0].String(), "%d", &key); err != nil {
				return fmt.Sprintf("error: %s", err)
			}
			newKey, err := currentStore.Update(key, []byte(strings.TrimSpace(td.Input)))
			if err != nil {
				return fmt.Sprintf("error: %s", err)
			}
			return fmt.Sprintf("key=%d", newKey)

		case "get":
			var key uint32
			if _, err := fmt.Sscanf(td.CmdArgs[0].String(), "%d", &key); err != nil {
				return fmt.Sprintf("error: %s", err)
			}
			value, ok := currentStore.Get(key)
			if !ok {
				return "miss"
			}
			return string(value)

		default:
			return fmt.Sprintf("unknown command: %s", td.Cmd)
		}
	})
}

var currentStore *Store

func formatKeySet(m map[uint32]struct{}) string {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return fmt.Sprint(keys)
}
