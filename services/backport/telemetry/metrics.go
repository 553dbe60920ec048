// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pair outcomes used as the "outcome" label.
const (
	OutcomeWritten   = "written"
	OutcomeUnchanged = "unchanged"
	OutcomeDiffed    = "diffed"
	OutcomeFailed    = "failed"
)

// Metrics holds the per-run Prometheus collectors.
//
// All methods are nil-safe so callers can run without metrics.
//
// Thread Safety: safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	// pairs counts processed (file, target) pairs.
	// Labels: target, outcome (written, unchanged, diffed, failed)
	pairs *prometheus.CounterVec

	// rewrites counts marker annotations converted.
	// Labels: target, kind (sealed, non-sealed)
	rewrites *prometheus.CounterVec

	// pairDuration measures read-parse-rewrite-write per pair.
	// Labels: target
	pairDuration *prometheus.HistogramVec

	// indexedTypes is the size of the last classpath index.
	indexedTypes prometheus.Gauge
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		pairs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "javagen",
			Subsystem: "backport",
			Name:      "pairs_total",
			Help:      "Processed (file, target) pairs by outcome",
		}, []string{"target", "outcome"}),
		rewrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "javagen",
			Subsystem: "backport",
			Name:      "rewrites_total",
			Help:      "Marker annotations rewritten to native modifiers",
		}, []string{"target", "kind"}),
		pairDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "javagen",
			Subsystem: "backport",
			Name:      "pair_duration_seconds",
			Help:      "Time to process one (file, target) pair",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"target"}),
		indexedTypes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "javagen",
			Subsystem: "classpath",
			Name:      "indexed_types",
			Help:      "Type declarations in the classpath index",
		}),
	}
}

// Registry returns the registry, e.g. for Config.Registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObservePair records one finished pair.
func (m *Metrics) ObservePair(target, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.pairs.WithLabelValues(target, outcome).Inc()
	m.pairDuration.WithLabelValues(target).Observe(d.Seconds())
}

// AddRewrites counts n rewrites of kind for target.
func (m *Metrics) AddRewrites(target, kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rewrites.WithLabelValues(target, kind).Add(float64(n))
}

// SetIndexedTypes records the classpath index size.
func (m *Metrics) SetIndexedTypes(n int) {
	if m == nil {
		return
	}
	m.indexedTypes.Set(float64(n))
}

// WriteTextfile writes every registered metric to path in the node
// exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
