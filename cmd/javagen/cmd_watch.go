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
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/QuiltMC/quilt-multi-java-gen/pkg/ux"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/config"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/watch"
)

func runWatchCommand(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchAndGenerate(ctx, runFlags, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// watchAndGenerate generates once, then again after every batch of source
// changes, until ctx is done. Pair failures are reported but do not stop
// watching.
func watchAndGenerate(ctx context.Context, opts runOptions, stdout, stderr io.Writer) error {
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

	printer := newPrinter(stdout)
	var mu sync.Mutex
	regenerate := func() {
		mu.Lock()
		defer mu.Unlock()
		report, err := s.generate(ctx, run)
		if err != nil {
			if ctx.Err() == nil {
				printer.ErrorBox("generation failed", err.Error())
			}
			return
		}
		printReport(printer, run, report)
	}

	regenerate()

	outputs := make([]string, len(run.Targets))
	for i, t := range run.Targets {
		outputs[i] = absPath(t.OutputRoot)
	}
	handler := func(changes []watch.Change) {
		changes = withoutOutputs(changes, outputs)
		if len(changes) == 0 {
			return
		}
		s.logger.Info("sources changed", "changes", len(changes), "first", changes[0].Path)
		regenerate()
	}

	roots := watchRoots(run)
	for i, root := range roots {
		w, err := watch.New(root, handler, nil)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			if i == 0 {
				return err
			}
			s.logger.Warn("not watching classpath root", "root", root, "error", err)
			continue
		}
		defer w.Stop()
	}

	printer.Status(ux.IconArrow, "watching "+strings.Join(roots, ", "), "")
	<-ctx.Done()
	return nil
}

// watchRoots returns the input root followed by the other classpath roots,
// without duplicates.
func watchRoots(run config.Run) []string {
	seen := map[string]bool{}
	var roots []string
	for _, root := range append([]string{run.Input}, run.Classpath...) {
		abs := absPath(root)
		if seen[abs] {
			continue
		}
		seen[abs] = true
		roots = append(roots, abs)
	}
	return roots
}

// withoutOutputs drops changes under an output root so that writing the
// outputs does not trigger another pass.
func withoutOutputs(changes []watch.Change, outputs []string) []watch.Change {
	kept := changes[:0:0]
	for _, c := range changes {
		if !underAny(c.Path, outputs) {
			kept = append(kept, c)
		}
	}
	return kept
}

func underAny(path string, roots []string) bool {
	for _, root := range roots {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
