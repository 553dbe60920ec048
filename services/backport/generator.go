// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package backport generates one source tree per output target from a Java
// source tree that uses marker annotations for sealed hierarchies.
//
// For every (file, target) pair the file is parsed with name resolution,
// the markers are rewritten to native syntax when the target's feature set
// allows it, and the file is written to the target's output root only when
// its text changed. Pairs are independent: each one re-reads and re-parses
// its file, and a failing pair never stops the others.
package backport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/QuiltMC/quilt-multi-java-gen/pkg/logging"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/config"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/edit"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/javasrc"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/sealed"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/telemetry"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/walk"
)

var tracer = otel.Tracer("javagen.backport")

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the run logger. Without it the Generator logs nothing.
func WithLogger(l *logging.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// WithMetrics records pair outcomes and rewrite counts.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(g *Generator) {
		g.metrics = m
	}
}

// WithMaxFileSize overrides javasrc.DefaultMaxFileSize.
func WithMaxFileSize(bytes int64) Option {
	return func(g *Generator) {
		g.maxFileSize = bytes
	}
}

// Generator runs generation passes.
//
// Thread Safety: a Generator holds no per-run state; concurrent Generate
// calls are safe as long as their output roots differ.
type Generator struct {
	logger      *logging.Logger
	metrics     *telemetry.Metrics
	writer      edit.Writer
	maxFileSize int64
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{maxFileSize: javasrc.DefaultMaxFileSize}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logging.New(logging.Config{Quiet: true})
	}
	return g
}

// pass is the read-only state shared by the pairs of one run.
type pass struct {
	run      config.Run
	rewriter *sealed.Rewriter
	parser   *javasrc.Parser
	log      *slog.Logger
}

// Generate processes every (file, target) pair of run.
//
// Description:
//
//	Validates run, enumerates the input files once, builds the classpath
//	index once and then schedules every pair on a worker pool bounded by
//	run.EffectiveJobs(). Before a pair is processed any output left for it
//	by an earlier run is removed, so an unchanged pair leaves no file.
//	In dry-run mode nothing is removed or written; dirty pairs get a
//	unified diff instead.
//
// Inputs:
//   - ctx: Context for cancellation. Pairs not yet started are skipped.
//   - run: The run configuration.
//
// Outputs:
//   - *Report: Every pair's result. Pair failures are in Report.Failures
//     and do not make err non-nil.
//   - error: Invalid configuration (config.ErrMissingMarkerConfiguration,
//     config.ErrInvalidConfig), an unreadable input root,
//     ErrDuplicateOutputPath, or cancellation.
func (g *Generator) Generate(ctx context.Context, run config.Run) (*Report, error) {
	if err := run.Validate(); err != nil {
		return nil, err
	}
	rewriter, err := sealed.New(run.Markers)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "Generator.Generate", trace.WithAttributes(
		attribute.String("javagen.run_id", runID),
		attribute.Int("javagen.targets", len(run.Targets)),
		attribute.Bool("javagen.dry_run", run.DryRun),
	))
	defer span.End()

	log := g.logger.With("run_id", runID)
	jobs := run.EffectiveJobs()

	files, err := walk.JavaFiles(run.Input)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("scanning input root: %w", err)
	}
	if err := checkUnique(files); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	classpath := run.Classpath
	if len(classpath) == 0 {
		classpath = []string{run.Input}
	}
	run.Classpath = classpath

	index, err := javasrc.BuildIndex(ctx, javasrc.NewParser(javasrc.WithMaxFileSize(g.maxFileSize)), classpath, jobs)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	g.metrics.SetIndexedTypes(index.Len())

	log.Info("generation started",
		"input", run.Input,
		"files", len(files),
		"targets", len(run.Targets),
		"indexed_types", index.Len(),
		"jobs", jobs,
		"dry_run", run.DryRun)

	p := &pass{
		run:      run,
		rewriter: rewriter,
		parser: javasrc.NewParser(
			javasrc.WithIndex(index),
			javasrc.WithCompliance(run.Compliance),
			javasrc.WithMaxFileSize(g.maxFileSize),
		),
		log: log.Slog(),
	}

	results := make([]PairResult, len(files)*len(run.Targets))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(jobs)
	for i, file := range files {
		for j, target := range run.Targets {
			slot := i*len(run.Targets) + j
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				results[slot] = g.pair(egCtx, p, file, target)
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("generation canceled: %w", err)
	}

	report := &Report{
		RunID:        runID,
		Files:        len(files),
		IndexedTypes: index.Len(),
		Results:      results,
		DryRun:       run.DryRun,
	}
	for _, res := range results {
		if res.Outcome == OutcomeFailed {
			report.Failures = append(report.Failures, &PairError{File: res.File, Target: res.Target, Err: res.Err})
		}
	}
	report.Duration = time.Since(start)

	span.SetAttributes(attribute.Int("javagen.failures", len(report.Failures)))
	log.Info("generation finished",
		"written", report.Count(OutcomeWritten),
		"diffed", report.Count(OutcomeDiffed),
		"unchanged", report.Count(OutcomeUnchanged),
		"failed", len(report.Failures),
		"duration", report.Duration)
	return report, nil
}

// pair processes one file for one target. Every error becomes a failed
// result.
func (g *Generator) pair(ctx context.Context, p *pass, file walk.File, target config.Target) PairResult {
	start := time.Now()
	res := PairResult{File: file.Rel, Target: target.Name}

	ctx, span := tracer.Start(ctx, "Generator.pair", trace.WithAttributes(
		attribute.String("javagen.file", file.Rel),
		attribute.String("javagen.target", target.Name),
	))
	defer span.End()
	log := telemetry.LoggerWithTrace(ctx, p.log).With("file", file.Rel, "target", target.Name)

	fail := func(err error) PairResult {
		telemetry.RecordError(span, err)
		log.Warn("pair failed", "error", err)
		res.Outcome = OutcomeFailed
		res.Err = err
		res.Duration = time.Since(start)
		g.metrics.ObservePair(target.Name, res.Outcome.String(), res.Duration)
		return res
	}

	if !p.run.DryRun {
		removed, err := g.writer.Remove(target.OutputRoot, file.Rel)
		if err != nil {
			return fail(err)
		}
		res.StaleRemoved = removed
	}

	content, err := os.ReadFile(file.Path)
	if err != nil {
		return fail(fmt.Errorf("reading input: %w", err))
	}
	unit, err := p.parser.Parse(ctx, content, javasrc.UnitName(p.run.Classpath, file.Path))
	if err != nil {
		return fail(err)
	}
	res.Diagnostics = unit.Diagnostics
	for _, d := range unit.Diagnostics {
		level := slog.LevelDebug
		if d.Severity == javasrc.SeverityWarning {
			level = slog.LevelWarn
		}
		log.Log(ctx, level, d.Message, "line", d.Line)
	}

	result, err := p.rewriter.Rewrite(unit, target.Features)
	if err != nil {
		return fail(err)
	}
	for _, c := range result.Changes {
		if c.Kind == sealed.ChangeNonSealed {
			res.NonSealed++
		} else {
			res.Sealed++
		}
	}
	res.PrunedImports = len(result.PrunedImports)

	if !result.Dirty() {
		res.Outcome = OutcomeUnchanged
		res.Duration = time.Since(start)
		g.metrics.ObservePair(target.Name, res.Outcome.String(), res.Duration)
		log.Debug("pair unchanged", "stale_removed", res.StaleRemoved)
		return res
	}

	set := edit.Compute(unit)
	if p.run.DryRun {
		diff, err := edit.Unified(file.Rel, content, set)
		if err != nil {
			return fail(err)
		}
		res.Outcome = OutcomeDiffed
		res.Diff = diff
	} else {
		text, err := set.Apply(content)
		if err != nil {
			return fail(err)
		}
		out, err := g.writer.Write(target.OutputRoot, file.Rel, text)
		if err != nil {
			return fail(err)
		}
		res.Outcome = OutcomeWritten
		res.OutputPath = out
	}

	res.Duration = time.Since(start)
	g.metrics.AddRewrites(target.Name, sealed.KeywordSealed, res.Sealed)
	g.metrics.AddRewrites(target.Name, sealed.KeywordNonSealed, res.NonSealed)
	g.metrics.ObservePair(target.Name, res.Outcome.String(), res.Duration)
	log.Info("pair rewritten",
		"outcome", res.Outcome.String(),
		"sealed", res.Sealed,
		"non_sealed", res.NonSealed,
		"edits", len(set))
	return res
}

// checkUnique asserts that no two input files share a relative path, so
// every output path has exactly one source per target.
func checkUnique(files []walk.File) error {
	seen := make(map[string]string, len(files))
	for _, f := range files {
		if other, ok := seen[f.Rel]; ok {
			return fmt.Errorf("%w: %s and %s both map to %s", ErrDuplicateOutputPath, other, f.Path, f.Rel)
		}
		seen[f.Rel] = f.Path
	}
	return nil
}
