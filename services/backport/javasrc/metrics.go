// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package javasrc

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("javagen.javasrc")
	meter  = otel.Meter("javagen.javasrc")
)

var (
	parseLatency   metric.Float64Histogram
	parseTotal     metric.Int64Counter
	declsExtracted metric.Int64Histogram
	unresolved     metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the instruments once. Safe to call repeatedly.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		parseLatency, err = meter.Float64Histogram(
			"javasrc_parse_duration_seconds",
			metric.WithDescription("Duration of Java parse and resolve operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseTotal, err = meter.Int64Counter(
			"javasrc_parse_total",
			metric.WithDescription("Total number of Java parse operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		declsExtracted, err = meter.Int64Histogram(
			"javasrc_type_declarations",
			metric.WithDescription("Type declarations found per compilation unit"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		unresolved, err = meter.Int64Counter(
			"javasrc_unresolved_annotations_total",
			metric.WithDescription("Annotations whose type name did not resolve"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordParseMetrics records one parse. Metric failures are ignored.
func recordParseMetrics(ctx context.Context, duration time.Duration, declCount int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	parseLatency.Record(ctx, duration.Seconds(), attrs)
	parseTotal.Add(ctx, 1, attrs)
	if success {
		declsExtracted.Record(ctx, int64(declCount))
	}
}

func recordUnresolved(ctx context.Context, count int) {
	if count == 0 {
		return
	}
	if err := initMetrics(); err != nil {
		return
	}
	unresolved.Add(ctx, int64(count))
}

// startParseSpan creates a span for a parse. The caller must End it.
func startParseSpan(ctx context.Context, filePath string, contentSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Parser.Parse",
		trace.WithAttributes(
			attribute.String("javasrc.file", filePath),
			attribute.Int("javasrc.content_size", contentSize),
		),
	)
}

func setParseSpanResult(span trace.Span, declCount, diagnosticCount int) {
	span.SetAttributes(
		attribute.Int("javasrc.decl_count", declCount),
		attribute.Int("javasrc.diagnostic_count", diagnosticCount),
	)
}
