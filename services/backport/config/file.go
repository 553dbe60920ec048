// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/feature"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/javasrc"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "javagen.yaml"

// File is the on-disk form of a Run.
//
// Paths are relative to the directory holding the file. Environment
// variables override file values, and command-line flags override both.
type File struct {
	Markers    MarkersFile  `yaml:"markers"`
	Input      string       `yaml:"input" validate:"required"`
	Classpath  []string     `yaml:"classpath,omitempty"`
	Targets    []TargetFile `yaml:"targets" validate:"required,min=1,dive"`
	Jobs       int          `yaml:"jobs,omitempty" validate:"gte=0,lte=1024"`
	DryRun     bool         `yaml:"dry_run,omitempty"`
	Compliance string       `yaml:"compliance,omitempty" validate:"omitempty,compliance"`
	Log        LogFile      `yaml:"log,omitempty"`
}

// MarkersFile names the marker annotations by binary name.
type MarkersFile struct {
	Sealed    string `yaml:"sealed"`
	NonSealed string `yaml:"non_sealed,omitempty"`
}

// TargetFile is one output target. Features is a version ("java17"), a
// comma separated feature list, or "none".
type TargetFile struct {
	Name     string `yaml:"name" validate:"required"`
	Features string `yaml:"features" validate:"required,featureset"`
	Output   string `yaml:"output" validate:"required"`
}

// LogFile configures pkg/logging.
type LogFile struct {
	Level string `yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	JSON  bool   `yaml:"json,omitempty"`
	Dir   string `yaml:"dir,omitempty"`
}

// envOverrides lists the settings that JAVAGEN_* variables may override.
// Fields start at the file's values; env.Parse replaces only those whose
// variable is set.
type envOverrides struct {
	Jobs       int    `env:"JAVAGEN_JOBS"`
	DryRun     bool   `env:"JAVAGEN_DRY_RUN"`
	Compliance string `env:"JAVAGEN_COMPLIANCE"`
	LogLevel   string `env:"JAVAGEN_LOG_LEVEL"`
	LogJSON    bool   `env:"JAVAGEN_LOG_JSON"`
	LogDir     string `env:"JAVAGEN_LOG_DIR"`
}

// fileValidate is shared; validator.Validate caches struct metadata and is
// safe for concurrent use.
var fileValidate *validator.Validate

func init() {
	fileValidate = validator.New()
	_ = fileValidate.RegisterValidation("featureset", func(fl validator.FieldLevel) bool {
		_, err := feature.ParseSet(fl.Field().String())
		return err == nil
	})
	_ = fileValidate.RegisterValidation("compliance", func(fl validator.FieldLevel) bool {
		_, err := javasrc.ParseCompliance(fl.Field().String())
		return err == nil
	})
}

// Load reads and decodes a configuration file. Unknown keys are rejected.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}
	return Decode(bytes.NewReader(data))
}

// Decode reads a configuration document from r. An empty document yields a
// zero File.
func Decode(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to decode the config: %v", ErrInvalidConfig, err)
	}
	return &f, nil
}

// ApplyEnv overrides fields from JAVAGEN_* environment variables.
func (f *File) ApplyEnv() error {
	o := envOverrides{
		Jobs:       f.Jobs,
		DryRun:     f.DryRun,
		Compliance: f.Compliance,
		LogLevel:   f.Log.Level,
		LogJSON:    f.Log.JSON,
		LogDir:     f.Log.Dir,
	}
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("%w: parse env: %v", ErrInvalidConfig, err)
	}
	f.Jobs = o.Jobs
	f.DryRun = o.DryRun
	f.Compliance = o.Compliance
	f.Log = LogFile{Level: o.LogLevel, JSON: o.LogJSON, Dir: o.LogDir}
	return nil
}

// Validate checks field-level constraints. Marker presence is left to
// Run.Validate so a missing marker surfaces as ErrMissingMarkerConfiguration.
func (f *File) Validate() error {
	if err := fileValidate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Run converts the file into a validated Run. Relative paths are resolved
// against baseDir.
func (f *File) Run(baseDir string) (Run, error) {
	if err := f.Validate(); err != nil {
		return Run{}, err
	}
	compliance, err := javasrc.ParseCompliance(f.Compliance)
	if err != nil {
		return Run{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	run := Run{
		Markers: Markers{
			Sealed:    strings.TrimSpace(f.Markers.Sealed),
			NonSealed: strings.TrimSpace(f.Markers.NonSealed),
		},
		Input:      resolvePath(baseDir, f.Input),
		Jobs:       f.Jobs,
		DryRun:     f.DryRun,
		Compliance: compliance,
	}
	for _, cp := range f.Classpath {
		run.Classpath = append(run.Classpath, resolvePath(baseDir, cp))
	}
	if len(run.Classpath) == 0 {
		run.Classpath = []string{run.Input}
	}
	for _, t := range f.Targets {
		set, err := feature.ParseSet(t.Features)
		if err != nil {
			return Run{}, fmt.Errorf("%w: target %q: %v", ErrInvalidConfig, t.Name, err)
		}
		run.Targets = append(run.Targets, Target{
			Name:       t.Name,
			Features:   set,
			OutputRoot: resolvePath(baseDir, t.Output),
		})
	}

	if err := run.Validate(); err != nil {
		return Run{}, err
	}
	return run, nil
}

func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}
