// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the immutable run configuration: marker bindings,
// input and classpath roots, and output targets.
//
// A Run is built once, validated, and passed by value to every generation
// call. Nothing in this package is global.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/feature"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/javasrc"
)

var (
	// ErrMissingMarkerConfiguration indicates the sealed marker identity was
	// not configured. Runs fail with it before any file is read.
	ErrMissingMarkerConfiguration = errors.New("missing marker configuration")

	// ErrInvalidConfig wraps every other configuration problem.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Markers binds the marker roles to annotation binary names, e.g.
// "org.example.api.Sealed" or "org.example.Markers$NonSealed".
type Markers struct {
	Sealed string

	// NonSealed is optional. When empty no annotation has the role.
	NonSealed string
}

// Validate checks that the sealed role is bound and that the roles differ.
func (m Markers) Validate() error {
	if strings.TrimSpace(m.Sealed) == "" {
		return ErrMissingMarkerConfiguration
	}
	for _, name := range []string{m.Sealed, m.NonSealed} {
		if strings.ContainsAny(name, " \t\r\n/") {
			return fmt.Errorf("%w: marker %q is not a binary name", ErrInvalidConfig, name)
		}
	}
	if m.NonSealed != "" && m.NonSealed == m.Sealed {
		return fmt.Errorf("%w: sealed and non-sealed markers are both %q", ErrInvalidConfig, m.Sealed)
	}
	return nil
}

// Target is one output profile.
type Target struct {
	// Name labels the target in logs, metrics and reports.
	Name string

	Features feature.Set

	// OutputRoot receives the rewritten files, mirroring the input layout.
	OutputRoot string
}

// Run is the complete configuration of a generation run.
type Run struct {
	Markers Markers

	// Input is the source root to rewrite.
	Input string

	// Classpath lists the source roots used for name resolution. The input
	// root is usually one of them.
	Classpath []string

	Targets []Target

	// Jobs bounds the worker pool. 0 means runtime.NumCPU().
	Jobs int

	// DryRun computes edits and diffs without touching output roots.
	DryRun bool

	// Compliance only affects parser diagnostics.
	Compliance javasrc.Compliance
}

// Validate reports the first configuration problem.
//
// Marker configuration is checked first so that ErrMissingMarkerConfiguration
// is returned even when other fields are also unset.
func (r Run) Validate() error {
	if err := r.Markers.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Input) == "" {
		return fmt.Errorf("%w: input root is required", ErrInvalidConfig)
	}
	if len(r.Targets) == 0 {
		return fmt.Errorf("%w: at least one target is required", ErrInvalidConfig)
	}
	if r.Jobs < 0 {
		return fmt.Errorf("%w: jobs must not be negative, got %d", ErrInvalidConfig, r.Jobs)
	}

	input := cleanAbs(r.Input)
	names := make(map[string]bool, len(r.Targets))
	roots := make(map[string]string, len(r.Targets))
	for i, t := range r.Targets {
		if t.Name == "" {
			return fmt.Errorf("%w: target %d has no name", ErrInvalidConfig, i)
		}
		if names[t.Name] {
			return fmt.Errorf("%w: duplicate target name %q", ErrInvalidConfig, t.Name)
		}
		names[t.Name] = true
		if t.Features == nil {
			return fmt.Errorf("%w: target %q has no feature set", ErrInvalidConfig, t.Name)
		}
		if strings.TrimSpace(t.OutputRoot) == "" {
			return fmt.Errorf("%w: target %q has no output root", ErrInvalidConfig, t.Name)
		}
		root := cleanAbs(t.OutputRoot)
		if root == input {
			return fmt.Errorf("%w: target %q writes into the input root", ErrInvalidConfig, t.Name)
		}
		if other, ok := roots[root]; ok {
			return fmt.Errorf("%w: targets %q and %q share output root %s", ErrInvalidConfig, other, t.Name, t.OutputRoot)
		}
		roots[root] = t.Name
	}
	return nil
}

// EffectiveJobs returns Jobs, or the CPU count when Jobs is 0.
func (r Run) EffectiveJobs() int {
	if r.Jobs > 0 {
		return r.Jobs
	}
	return runtime.NumCPU()
}

func cleanAbs(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
