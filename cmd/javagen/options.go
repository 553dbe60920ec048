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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/config"
)

// ErrInvalidTargetFlag is returned for a --target value that is not
// name=features:output.
var ErrInvalidTargetFlag = errors.New("invalid --target")

// runOptions holds the run flags. Zero values leave the configuration file
// (or environment) value in place.
type runOptions struct {
	Input       string
	Classpath   []string
	Targets     []string
	Sealed      string
	NonSealed   string
	Jobs        int
	DryRun      bool
	Compliance  string
	MaxFileSize int64
}

// logOptions holds the global log flags.
type logOptions struct {
	Level string
	JSON  bool
	Dir   string
}

// parseTargetFlag splits "name=features:output". Features never contain a
// colon, so everything after the first colon is the output path.
func parseTargetFlag(value string) (config.TargetFile, error) {
	name, rest, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return config.TargetFile{}, fmt.Errorf("%w %q: want name=features:output", ErrInvalidTargetFlag, value)
	}
	features, output, ok := strings.Cut(rest, ":")
	if !ok || strings.TrimSpace(features) == "" || strings.TrimSpace(output) == "" {
		return config.TargetFile{}, fmt.Errorf("%w %q: want name=features:output", ErrInvalidTargetFlag, value)
	}
	return config.TargetFile{
		Name:     strings.TrimSpace(name),
		Features: strings.TrimSpace(features),
		Output:   absPath(strings.TrimSpace(output)),
	}, nil
}

// loadFile reads the configuration file and returns it with the directory
// its relative paths are resolved against. An explicit path must exist; the
// default file is optional.
func loadFile(path string) (*config.File, string, error) {
	if path == "" {
		if _, err := os.Stat(config.FileName); err != nil {
			return &config.File{}, "", nil
		}
		path = config.FileName
	}
	f, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return f, filepath.Dir(absPath(path)), nil
}

// apply overlays the set flags onto f. Flag paths are relative to the
// working directory, so they are made absolute here.
func (o runOptions) apply(f *config.File) error {
	if o.Input != "" {
		f.Input = absPath(o.Input)
	}
	if len(o.Classpath) > 0 {
		f.Classpath = make([]string, len(o.Classpath))
		for i, cp := range o.Classpath {
			f.Classpath[i] = absPath(cp)
		}
	}
	if len(o.Targets) > 0 {
		f.Targets = f.Targets[:0]
		for _, value := range o.Targets {
			t, err := parseTargetFlag(value)
			if err != nil {
				return err
			}
			f.Targets = append(f.Targets, t)
		}
	}
	if o.Sealed != "" {
		f.Markers.Sealed = o.Sealed
	}
	if o.NonSealed != "" {
		f.Markers.NonSealed = o.NonSealed
	}
	if o.Jobs != 0 {
		f.Jobs = o.Jobs
	}
	if o.DryRun {
		f.DryRun = true
	}
	if o.Compliance != "" {
		f.Compliance = o.Compliance
	}
	return nil
}

func (o logOptions) apply(f *config.File) {
	if o.Level != "" {
		f.Log.Level = o.Level
	}
	if o.JSON {
		f.Log.JSON = true
	}
	if o.Dir != "" {
		f.Log.Dir = absPath(o.Dir)
	}
}

// resolveRun builds the run from the configuration file, then JAVAGEN_*
// variables, then flags.
func resolveRun(path string, run runOptions, logs logOptions) (config.Run, config.LogFile, error) {
	f, baseDir, err := loadFile(path)
	if err != nil {
		return config.Run{}, config.LogFile{}, err
	}
	if err := f.ApplyEnv(); err != nil {
		return config.Run{}, config.LogFile{}, err
	}
	if err := run.apply(f); err != nil {
		return config.Run{}, config.LogFile{}, err
	}
	logs.apply(f)

	r, err := f.Run(baseDir)
	if err != nil {
		return config.Run{}, f.Log, err
	}
	return r, f.Log, nil
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
