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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/QuiltMC/quilt-multi-java-gen/pkg/logging"
	"github.com/QuiltMC/quilt-multi-java-gen/pkg/ux"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/config"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/telemetry"
)

// Exit codes.
const (
	ExitSuccess  = 0
	ExitFailures = 1
	ExitError    = 2
)

// errPairFailures marks a run that finished with failed pairs.
var errPairFailures = errors.New("generation finished with failures")

const shutdownTimeout = 5 * time.Second

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errPairFailures):
		return ExitFailures
	default:
		return ExitError
	}
}

// session holds the process-wide services of one command.
type session struct {
	logger      *logging.Logger
	metrics     *telemetry.Metrics
	shutdown    func(context.Context) error
	metricsFile string
	maxFileSize int64
}

// openSession sets up logging and telemetry. Logs and stdout spans go to
// stderr so that stdout carries only the command's output.
func openSession(ctx context.Context, logs config.LogFile, stderr io.Writer) (*session, error) {
	level, err := logging.ParseLevel(logs.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  logs.Dir,
		Service: "javagen",
		JSON:    logs.JSON,
		Output:  stderr,
	})
	slog.SetDefault(logger.Slog())

	metrics := telemetry.NewMetrics()
	cfg, err := telemetry.DefaultConfig()
	if err != nil {
		logger.Close()
		return nil, err
	}
	cfg.TraceOutput = stderr
	cfg.Registry = metrics.Registry()
	shutdown, err := telemetry.Init(ctx, cfg)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	return &session{
		logger:   logger,
		metrics:  metrics,
		shutdown: shutdown,
	}, nil
}

// generate runs one generation pass and writes the metrics file if set.
func (s *session) generate(ctx context.Context, run config.Run) (*backport.Report, error) {
	opts := []backport.Option{
		backport.WithLogger(s.logger),
		backport.WithMetrics(s.metrics),
	}
	if s.maxFileSize > 0 {
		opts = append(opts, backport.WithMaxFileSize(s.maxFileSize))
	}
	report, err := backport.NewGenerator(opts...).Generate(ctx, run)
	if err != nil {
		return nil, err
	}
	if s.metricsFile != "" {
		if err := s.metrics.WriteTextfile(s.metricsFile); err != nil {
			s.logger.Warn("writing metrics file failed", "path", s.metricsFile, "error", err)
		}
	}
	return report, nil
}

// Close flushes telemetry and the logger.
func (s *session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(s.shutdown(ctx), s.logger.Close())
}

// newPrinter returns a printer for w in the --output style, or the style
// detected for stdout.
func newPrinter(w io.Writer) *ux.Printer {
	level := ux.DetectPersonality(os.Stdout)
	if outputMode != "" {
		level = ux.ParsePersonalityLevel(outputMode)
	}
	return ux.NewPrinter(w, level)
}
