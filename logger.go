// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package confluo

import (
	"log"
	"os"

	"github.com/cockroachdb/redact"
)

// Logger defines the interface the store uses for diagnostic output.
// Callers that embed a Store in a larger service typically supply their
// own implementation backed by their service's structured logger.
type Logger interface {
	Infof(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// DefaultLogger logs to the Go stdlib logger. Arguments are passed through
// redact.Sprintf first, so any RedactedValue argument never reproduces raw
// user payload bytes in the log line — only its redacted marker does.
type DefaultLogger struct{}

// Infof implements Logger.
func (DefaultLogger) Infof(format string, args ...interface{}) {
	_ = log.Output(2, redact.Sprintf(format, args...).StripMarkers())
}

// Fatalf implements Logger.
func (DefaultLogger) Fatalf(format string, args ...interface{}) {
	_ = log.Output(2, redact.Sprintf(format, args...).StripMarkers())
	os.Exit(1)
}

// RedactedValue wraps a value payload so that logging code can pass it to
// Infof/Fatalf without ever leaking the payload's content: %v/%s formatting
// of a RedactedValue prints only its length.
type RedactedValue []byte

// String implements fmt.Stringer.
func (v RedactedValue) String() string {
	return redact.Sprintf("<%d bytes>", len(v)).StripMarkers()
}
