// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package backport

import (
	"errors"
	"fmt"
	"time"

	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/javasrc"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/telemetry"
)

// ErrDuplicateOutputPath means two input files map to the same relative
// output path.
var ErrDuplicateOutputPath = errors.New("duplicate output path")

// Outcome is what happened to one (file, target) pair.
type Outcome int

const (
	// OutcomeUnchanged: the file needed no rewrite, so no output exists.
	OutcomeUnchanged Outcome = iota

	// OutcomeWritten: the rewritten file was written to the output root.
	OutcomeWritten

	// OutcomeDiffed: dry run; the file would change and a diff was made.
	OutcomeDiffed

	// OutcomeFailed: see PairResult.Err.
	OutcomeFailed
)

// String returns the metrics label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeWritten:
		return telemetry.OutcomeWritten
	case OutcomeDiffed:
		return telemetry.OutcomeDiffed
	case OutcomeFailed:
		return telemetry.OutcomeFailed
	default:
		return telemetry.OutcomeUnchanged
	}
}

// PairError is a failure of one (file, target) pair. It never stops the
// other pairs of a run.
type PairError struct {
	// File is the input path relative to the input root.
	File string

	// Target is the target name.
	Target string

	Err error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.File, e.Target, e.Err)
}

func (e *PairError) Unwrap() error {
	return e.Err
}

// PairResult describes one processed (file, target) pair.
type PairResult struct {
	File    string
	Target  string
	Outcome Outcome

	// OutputPath is the written file, for OutcomeWritten.
	OutputPath string

	// Sealed and NonSealed count the declarations rewritten.
	Sealed    int
	NonSealed int

	// PrunedImports counts removed sealed-marker imports.
	PrunedImports int

	// StaleRemoved is set when an output file from an earlier run was
	// deleted before processing.
	StaleRemoved bool

	// Diff is the unified diff, for OutcomeDiffed.
	Diff []byte

	Diagnostics []javasrc.Diagnostic

	Duration time.Duration

	// Err is set for OutcomeFailed.
	Err error
}

// Report summarizes a run. Results are ordered by file, then by target in
// configuration order.
type Report struct {
	RunID string

	// Files is the number of input files found.
	Files int

	// IndexedTypes is the size of the classpath index.
	IndexedTypes int

	Results  []PairResult
	Failures []*PairError

	DryRun   bool
	Duration time.Duration
}

// Count returns the number of pairs with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Err joins every pair failure, or returns nil.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Target returns the results for one target in file order.
func (r *Report) Target(name string) []PairResult {
	var out []PairResult
	for _, res := range r.Results {
		if res.Target == name {
			out = append(out, res)
		}
	}
	return out
}
