// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package confluo

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the store's Prometheus instrumentation. A Store created
// with no Metrics option records no metrics at all; callers that want them
// should pass Options.Metrics constructed with NewMetrics and register it
// themselves.
type Metrics struct {
	AppendLatency prometheus.Histogram
	SearchLatency prometheus.Histogram
	NumKeys       prometheus.Gauge
	Size          prometheus.Gauge
	Gap           prometheus.Gauge
	StoreFull     prometheus.Counter
}

// NewMetrics constructs a Metrics with the given label values, suitable for
// registering with a prometheus.Registerer.
func NewMetrics(constLabels prometheus.Labels) *Metrics {
	return &Metrics{
		AppendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "confluo",
			Subsystem:   "logstore",
			Name:        "append_latency_seconds",
			Help:        "Latency of Append calls.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		SearchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "confluo",
			Subsystem:   "logstore",
			Name:        "search_latency_seconds",
			Help:        "Latency of Search and ColSearch calls.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		NumKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "confluo",
			Subsystem:   "logstore",
			Name:        "num_keys",
			Help:        "Number of committed keys in the store.",
			ConstLabels: constLabels,
		}),
		Size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "confluo",
			Subsystem:   "logstore",
			Name:        "size_bytes",
			Help:        "Number of committed bytes in the store's byte log.",
			ConstLabels: constLabels,
		}),
		Gap: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "confluo",
			Subsystem:   "logstore",
			Name:        "tail_gap",
			Help:        "Approximate distance between the claim tail and the commit tail.",
			ConstLabels: constLabels,
		}),
		StoreFull: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "confluo",
			Subsystem:   "logstore",
			Name:        "store_full_total",
			Help:        "Number of operations rejected because the store is full.",
			ConstLabels: constLabels,
		}),
	}
}

// Collectors returns every metric as a prometheus.Collector, for bulk
// registration: registry.MustRegister(m.Collectors()...).
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.AppendLatency, m.SearchLatency, m.NumKeys, m.Size, m.Gap, m.StoreFull,
	}
}

// refresh updates the gauges from a tail snapshot. Called after every
// mutating operation; gauge updates are themselves just atomic stores, so
// this doesn't reintroduce any lock.
func (m *Metrics) refresh(numKeys, size uint32, gap uint64) {
	m.NumKeys.Set(float64(numKeys))
	m.Size.Set(float64(size))
	m.Gap.Set(float64(gap))
}
