// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/QuiltMC/quilt-multi-java-gen/pkg/ux"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/config"
)

func runGenerateCommand(cmd *cobra.Command, _ []string) error {
	return generate(cmd.Context(), runFlags, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func runDiffCommand(cmd *cobra.Command, _ []string) error {
	opts := runFlags
	opts.DryRun = true
	return generate(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// generate runs one pass. In dry-run mode the diffs go to stdout and the
// summary to stderr, so the output can be piped into patch.
func generate(ctx context.Context, opts runOptions, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, logs, err := resolveRun(configPath, opts, logOptions{Level: logLevel, JSON: logJSON, Dir: logDir})
	if err != nil {
		return err
	}
	s, err := openSession(ctx, logs, stderr)
	if err != nil {
		return err
	}
	defer s.Close()
	s.metricsFile = metricsFile
	s.maxFileSize = opts.MaxFileSize

	report, err := s.generate(ctx, run)
	if err != nil {
		return err
	}

	summary := stdout
	if run.DryRun {
		summary = stderr
		for _, res := range report.Results {
			if res.Outcome == backport.OutcomeDiffed {
				newPrinter(stdout).Raw(res.Diff)
			}
		}
	}
	printReport(newPrinter(summary), run, report)
	return reportError(report)
}

// reportError converts pair failures into errPairFailures.
func reportError(report *backport.Report) error {
	if len(report.Failures) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d pairs failed", errPairFailures, len(report.Failures), len(report.Results))
}

// printReport prints failures, written files and one summary per target.
func printReport(p *ux.Printer, run config.Run, report *backport.Report) {
	mode := "generate"
	if report.DryRun {
		mode = "dry run"
	}
	p.Title(fmt.Sprintf("javagen %s (%d files, %d indexed types, %s)",
		mode, report.Files, report.IndexedTypes, report.Duration.Round(time.Millisecond)))

	for _, res := range report.Results {
		subject := pairSubject(res)
		switch res.Outcome {
		case backport.OutcomeFailed:
			p.Status(ux.IconError, subject, res.Err.Error())
		case backport.OutcomeWritten, backport.OutcomeDiffed:
			p.Status(ux.IconSuccess, subject, rewriteSummary(res))
		}
	}

	var total ux.Counts
	for _, t := range run.Targets {
		c := targetCounts(report, t.Name)
		p.Summary(t.Name, c)
		total.Written += c.Written
		total.Diffed += c.Diffed
		total.Unchanged += c.Unchanged
		total.Failed += c.Failed
	}
	if len(run.Targets) > 1 {
		p.Summary("total", total)
	}
}

func pairSubject(res backport.PairResult) string {
	return fmt.Sprintf("%s [%s]", filepath.ToSlash(res.File), res.Target)
}

func rewriteSummary(res backport.PairResult) string {
	var parts []string
	if res.Sealed > 0 {
		parts = append(parts, fmt.Sprintf("%d sealed", res.Sealed))
	}
	if res.NonSealed > 0 {
		parts = append(parts, fmt.Sprintf("%d non-sealed", res.NonSealed))
	}
	if res.PrunedImports > 0 {
		parts = append(parts, fmt.Sprintf("%d import pruned", res.PrunedImports))
	}
	return strings.Join(parts, ", ")
}

func targetCounts(report *backport.Report, target string) ux.Counts {
	var c ux.Counts
	for _, res := range report.Target(target) {
		switch res.Outcome {
		case backport.OutcomeWritten:
			c.Written++
		case backport.OutcomeDiffed:
			c.Diffed++
		case backport.OutcomeFailed:
			c.Failed++
		default:
			c.Unchanged++
		}
	}
	return c
}
