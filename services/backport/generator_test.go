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
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuiltMC/quilt-multi-java-gen/pkg/logging"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/config"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/feature"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/sealed"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/telemetry"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/walk"
)

const pkgDir = "org/quiltmc/javagen/test_input"

const testSealedSource = `package org.quiltmc.javagen.test_input;

import org.quiltmc.javagen.test_input.api.Sealed;

@Sealed({ org.quiltmc.javagen.test_input.TestSealed.InnerClass.class, AltInnerClass.class })
public abstract class TestSealed {

    public static final class InnerClass extends TestSealed {

    }
}

final class AltInnerClass extends TestSealed {

}
`

const testSealedJava17 = `package org.quiltmc.javagen.test_input;

public abstract sealed class TestSealed permits org.quiltmc.javagen.test_input.TestSealed.InnerClass, AltInnerClass {

    public static final class InnerClass extends TestSealed {

    }
}

final class AltInnerClass extends TestSealed {

}
`

const sealedMarkerSource = `package org.quiltmc.javagen.test_input.api;

public @interface Sealed {
    Class<?>[] value() default {};
}
`

const nonSealedMarkerSource = `package org.quiltmc.javagen.test_input.api;

public @interface NonSealed {
}
`

const plainSource = `package org.quiltmc.javagen.test_input;

public class Plain {
}
`

var testMarkers = config.Markers{
	Sealed:    "org.quiltmc.javagen.test_input.api.Sealed",
	NonSealed: "org.quiltmc.javagen.test_input.api.NonSealed",
}

type fixture struct {
	input string
	out   map[string]string
}

// newFixture writes the standard input tree plus extra files (relative to
// the package directory) and returns it with one output root per version.
func newFixture(t *testing.T, extra map[string]string) *fixture {
	t.Helper()
	base := t.TempDir()
	f := &fixture{
		input: filepath.Join(base, "src"),
		out: map[string]string{
			"java9":  filepath.Join(base, "out", "java9"),
			"java16": filepath.Join(base, "out", "java16"),
			"java17": filepath.Join(base, "out", "java17"),
		},
	}
	files := map[string]string{
		"TestSealed.java":    testSealedSource,
		"Plain.java":         plainSource,
		"api/Sealed.java":    sealedMarkerSource,
		"api/NonSealed.java": nonSealedMarkerSource,
	}
	for name, src := range extra {
		files[name] = src
	}
	for name, src := range files {
		writeFile(t, filepath.Join(f.input, pkgDir, name), src)
	}
	return f
}

func (f *fixture) run() config.Run {
	return config.Run{
		Markers: testMarkers,
		Input:   f.input,
		Targets: []config.Target{
			{Name: "java9", Features: feature.Java9, OutputRoot: f.out["java9"]},
			{Name: "java16", Features: feature.Java16, OutputRoot: f.out["java16"]},
			{Name: "java17", Features: feature.Java17, OutputRoot: f.out["java17"]},
		},
		Jobs: 2,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// outputs lists the files under root relative to it.
func outputs(t *testing.T, root string) []string {
	t.Helper()
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	files, err := walk.JavaFiles(root)
	require.NoError(t, err)
	var rels []string
	for _, f := range files {
		rels = append(rels, f.Rel)
	}
	return rels
}

func find(t *testing.T, report *Report, file, target string) PairResult {
	t.Helper()
	for _, res := range report.Results {
		if res.File == file && res.Target == target {
			return res
		}
	}
	t.Fatalf("no result for %s [%s]", file, target)
	return PairResult{}
}

func TestGenerate_EndToEndFixture(t *testing.T) {
	f := newFixture(t, nil)

	report, err := NewGenerator().Generate(context.Background(), f.run())
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 4, report.Files)
	assert.Len(t, report.Results, 12)
	assert.Equal(t, 1, report.Count(OutcomeWritten))
	assert.Equal(t, 11, report.Count(OutcomeUnchanged))

	got, err := os.ReadFile(filepath.Join(f.out["java17"], pkgDir, "TestSealed.java"))
	require.NoError(t, err)
	assert.Equal(t, testSealedJava17, string(got))

	res := find(t, report, pkgDir+"/TestSealed.java", "java17")
	assert.Equal(t, OutcomeWritten, res.Outcome)
	assert.Equal(t, 1, res.Sealed)
	assert.Equal(t, 1, res.PrunedImports)
}

func TestGenerate_MultiTargetDivergence(t *testing.T) {
	f := newFixture(t, nil)

	_, err := NewGenerator().Generate(context.Background(), f.run())
	require.NoError(t, err)

	assert.Empty(t, outputs(t, f.out["java9"]))
	assert.Empty(t, outputs(t, f.out["java16"]))
	assert.Equal(t, []string{pkgDir + "/TestSealed.java"}, outputs(t, f.out["java17"]))
}

func TestGenerate_CustomFeatureSet(t *testing.T) {
	f := newFixture(t, nil)
	run := f.run()
	run.Targets = []config.Target{
		{Name: "sealed-only", Features: feature.Only(feature.SealedClasses), OutputRoot: f.out["java9"]},
	}

	report, err := NewGenerator().Generate(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(OutcomeWritten))
	assert.Equal(t, []string{pkgDir + "/TestSealed.java"}, outputs(t, f.out["java9"]))
}

func TestGenerate_RemovesStaleOutput(t *testing.T) {
	f := newFixture(t, nil)
	stale9 := filepath.Join(f.out["java9"], pkgDir, "TestSealed.java")
	stale17 := filepath.Join(f.out["java17"], pkgDir, "Plain.java")
	writeFile(t, stale9, "stale")
	writeFile(t, stale17, "stale")

	report, err := NewGenerator().Generate(context.Background(), f.run())
	require.NoError(t, err)

	assert.NoFileExists(t, stale9)
	assert.NoFileExists(t, stale17)
	assert.True(t, find(t, report, pkgDir+"/TestSealed.java", "java9").StaleRemoved)
	assert.False(t, find(t, report, pkgDir+"/TestSealed.java", "java17").StaleRemoved)
}

func TestGenerate_FailureIsolation(t *testing.T) {
	f := newFixture(t, map[string]string{
		"Broken.java": "package org.quiltmc.javagen.test_input;\n\npublic class Broken { void m( }\n",
		"Bad.java":    "package org.quiltmc.javagen.test_input;\n\nimport org.quiltmc.javagen.test_input.api.Sealed;\n\n@Sealed(\"nope\")\nclass Bad {}\n",
	})

	report, err := NewGenerator().Generate(context.Background(), f.run())
	require.NoError(t, err)

	// Broken fails for every target; Bad only where sealed classes are on.
	assert.Len(t, report.Failures, 4)
	assert.Error(t, report.Err())

	bad := find(t, report, pkgDir+"/Bad.java", "java17")
	assert.Equal(t, OutcomeFailed, bad.Outcome)
	assert.ErrorIs(t, bad.Err, sealed.ErrInvalidAnnotationShape)
	assert.Equal(t, OutcomeUnchanged, find(t, report, pkgDir+"/Bad.java", "java9").Outcome)

	for _, pe := range report.Failures {
		assert.NotEmpty(t, pe.File)
		assert.NotEmpty(t, pe.Target)
		assert.Contains(t, pe.Error(), pe.Target)
	}

	// The siblings still completed.
	assert.Equal(t, []string{pkgDir + "/TestSealed.java"}, outputs(t, f.out["java17"]))
	assert.NoFileExists(t, filepath.Join(f.out["java17"], pkgDir, "Bad.java"))
}

func TestGenerate_DryRun(t *testing.T) {
	f := newFixture(t, nil)
	stale := filepath.Join(f.out["java9"], pkgDir, "Plain.java")
	writeFile(t, stale, "stale")

	run := f.run()
	run.DryRun = true
	report, err := NewGenerator().Generate(context.Background(), run)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Count(OutcomeDiffed))
	assert.Zero(t, report.Count(OutcomeWritten))
	assert.Empty(t, outputs(t, f.out["java17"]))
	assert.FileExists(t, stale)

	res := find(t, report, pkgDir+"/TestSealed.java", "java17")
	assert.Contains(t, string(res.Diff), "-import org.quiltmc.javagen.test_input.api.Sealed;")
	assert.Contains(t, string(res.Diff), "+public abstract sealed class TestSealed permits")
}

func TestGenerate_IdempotentOnOutput(t *testing.T) {
	f := newFixture(t, nil)
	_, err := NewGenerator().Generate(context.Background(), f.run())
	require.NoError(t, err)

	again := config.Run{
		Markers: testMarkers,
		Input:   f.out["java17"],
		Targets: []config.Target{
			{Name: "java17", Features: feature.Java17, OutputRoot: filepath.Join(t.TempDir(), "again")},
		},
	}
	report, err := NewGenerator().Generate(context.Background(), again)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(OutcomeUnchanged))
	assert.Zero(t, report.Count(OutcomeWritten))
}

func TestGenerate_MissingMarker(t *testing.T) {
	f := newFixture(t, nil)
	run := f.run()
	run.Markers.Sealed = ""

	report, err := NewGenerator().Generate(context.Background(), run)
	assert.ErrorIs(t, err, config.ErrMissingMarkerConfiguration)
	assert.Nil(t, report)
	assert.NoDirExists(t, f.out["java17"])
}

func TestGenerate_MissingInput(t *testing.T) {
	run := config.Run{
		Markers: testMarkers,
		Input:   filepath.Join(t.TempDir(), "absent"),
		Targets: []config.Target{{Name: "java17", Features: feature.Java17, OutputRoot: t.TempDir()}},
	}
	_, err := NewGenerator().Generate(context.Background(), run)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGenerate_Canceled(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGenerator().Generate(ctx, f.run())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerate_MetricsAndLogs(t *testing.T) {
	f := newFixture(t, nil)
	metrics := telemetry.NewMetrics()
	exporter := logging.NewBufferedExporter()
	logger := logging.New(logging.Config{Quiet: true, Exporter: exporter})

	_, err := NewGenerator(WithMetrics(metrics), WithLogger(logger)).Generate(context.Background(), f.run())
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	path := filepath.Join(t.TempDir(), "javagen.prom")
	require.NoError(t, metrics.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `javagen_backport_rewrites_total{kind="sealed",target="java17"} 1`)
	assert.Contains(t, string(data), `javagen_backport_pairs_total{outcome="written",target="java17"} 1`)
	assert.Contains(t, string(data), `javagen_classpath_indexed_types 6`)

	var messages []string
	for _, e := range exporter.Entries() {
		messages = append(messages, e.Message)
		assert.NotEmpty(t, e.Attrs["run_id"])
	}
	assert.Contains(t, messages, "generation started")
	assert.Contains(t, messages, "generation finished")
}

func TestGenerate_MaxFileSize(t *testing.T) {
	f := newFixture(t, nil)
	report, err := NewGenerator(WithMaxFileSize(16)).Generate(context.Background(), f.run())
	require.NoError(t, err)
	assert.Len(t, report.Failures, 12)
}

func TestCheckUnique(t *testing.T) {
	ok := []walk.File{{Path: "/a/X.java", Rel: "X.java"}, {Path: "/a/p/X.java", Rel: "p/X.java"}}
	assert.NoError(t, checkUnique(ok))

	dup := append(ok, walk.File{Path: "/b/X.java", Rel: "X.java"})
	assert.ErrorIs(t, checkUnique(dup), ErrDuplicateOutputPath)
}

func TestReport_Target(t *testing.T) {
	r := &Report{Results: []PairResult{
		{File: "A.java", Target: "java9"},
		{File: "A.java", Target: "java17"},
		{File: "B.java", Target: "java17"},
	}}
	got := r.Target("java17")
	require.Len(t, got, 2)
	assert.Equal(t, "B.java", got[1].File)
	assert.Nil(t, r.Err())
}
