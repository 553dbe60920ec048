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
	"github.com/spf13/cobra"

	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/config"
)

var (
	rootCmd = &cobra.Command{
		Use:   "javagen",
		Short: "Generates per-version Java source trees from sealed-class markers",
		Long: `javagen reads a Java source root and writes one output tree per target.
Classes marked @Sealed({...}) or @NonSealed become sealed or non-sealed
declarations in targets whose feature set enables sealed classes. Files
that need no change are not written.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Rewrites the input root into every target's output root",
		Args:  cobra.NoArgs,
		RunE:  runGenerateCommand,
	}
	diffCmd = &cobra.Command{
		Use:   "diff",
		Short: "Prints the unified diff each target would receive, writing nothing",
		Args:  cobra.NoArgs,
		RunE:  runDiffCommand,
	}
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Generates once, then regenerates whenever a source changes",
		Args:  cobra.NoArgs,
		RunE:  runWatchCommand,
	}
	versionsCmd = &cobra.Command{
		Use:   "versions",
		Short: "Lists the known Java versions and the features each enables",
		Args:  cobra.NoArgs,
		Run:   runVersionsCommand,
	}

	// Global flags.
	configPath string
	logLevel   string
	logJSON    bool
	logDir     string
	outputMode string

	// Run flags, shared by generate, diff and watch.
	runFlags runOptions

	metricsFile string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Configuration file (default: ./"+config.FileName+" when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs to stderr as JSON")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Also write JSON logs to a dated file in this directory")
	rootCmd.PersistentFlags().StringVar(&outputMode, "output", "",
		"Output style: standard, minimal or machine (default: detect)")

	for _, cmd := range []*cobra.Command{generateCmd, diffCmd, watchCmd} {
		rootCmd.AddCommand(cmd)
		flags := cmd.Flags()
		flags.StringVar(&runFlags.Input, "input", "", "Input source root")
		flags.StringArrayVar(&runFlags.Classpath, "classpath", nil,
			"Source root used for name resolution (repeatable; default: the input root)")
		flags.StringArrayVar(&runFlags.Targets, "target", nil,
			"Output target as name=features:output, e.g. java16=java16:build/java16 (repeatable)")
		flags.StringVar(&runFlags.Sealed, "sealed", "", "Binary name of the sealed marker annotation")
		flags.StringVar(&runFlags.NonSealed, "non-sealed", "", "Binary name of the non-sealed marker annotation")
		flags.IntVarP(&runFlags.Jobs, "jobs", "j", 0, "Parallel workers (0 = number of CPUs)")
		flags.StringVar(&runFlags.Compliance, "compliance", "", "Source level for parser diagnostics, e.g. 17")
		flags.Int64Var(&runFlags.MaxFileSize, "max-file-size", 0, "Fail files larger than this many bytes (0 = default)")
		flags.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file after each run")
	}
	generateCmd.Flags().BoolVar(&runFlags.DryRun, "dry-run", false, "Compute changes without writing output")

	rootCmd.AddCommand(versionsCmd)
}
