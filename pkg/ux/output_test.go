// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Icon Tests
// =============================================================================

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconArrow} {
		assert.Contains(t, icon.Render(), string(icon))
	}
}

func TestIcon_machineTag(t *testing.T) {
	assert.Equal(t, "OK", IconSuccess.machineTag())
	assert.Equal(t, "ERROR", IconError.machineTag())
	assert.Equal(t, "SKIP", IconPending.machineTag())
	assert.Equal(t, "INFO", IconArrow.machineTag())
}

// =============================================================================
// Printer Tests
// =============================================================================

func TestPrinter_Status(t *testing.T) {
	tests := []struct {
		level PersonalityLevel
		want  string
	}{
		{PersonalityMachine, "ERROR\tp/A.java [java17]\tsyntax error\n"},
		{PersonalityMinimal, "✗ p/A.java [java17] syntax error\n"},
		{PersonalityStandard, "p/A.java [java17]"},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			var buf bytes.Buffer
			NewPrinter(&buf, tt.level).Status(IconError, "p/A.java [java17]", "syntax error")
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestPrinter_TitleMachineSilent(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PersonalityMachine).Title("javagen")
	assert.Empty(t, buf.String())

	NewPrinter(&buf, PersonalityStandard).Title("javagen")
	assert.Contains(t, buf.String(), "javagen")
}

func TestPrinter_Box(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PersonalityMachine).Box("run", "abc")
	assert.Equal(t, "run: abc\n", buf.String())

	buf.Reset()
	NewPrinter(&buf, PersonalityStandard).Box("run", "abc")
	assert.Contains(t, buf.String(), "run")
	assert.Contains(t, buf.String(), "abc")

	buf.Reset()
	NewPrinter(&buf, PersonalityMinimal).ErrorBox("config", "missing marker")
	assert.Equal(t, "ERROR config: missing marker\n", buf.String())
}

func TestPrinter_Raw(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PersonalityStandard).Raw([]byte("--- a/X.java\n"))
	assert.Equal(t, "--- a/X.java\n", buf.String())
}

func TestPrinter_Summary(t *testing.T) {
	c := Counts{Written: 2, Unchanged: 5, Failed: 1}
	assert.Equal(t, 8, c.Total())

	var buf bytes.Buffer
	NewPrinter(&buf, PersonalityMachine).Summary("java17", c)
	assert.Equal(t, "SUMMARY\tjava17\twritten=2 diffed=0 unchanged=5 failed=1 total=8\n", buf.String())

	buf.Reset()
	NewPrinter(&buf, PersonalityStandard).Summary("java17", c)
	out := buf.String()
	assert.Contains(t, out, "java17")
	assert.Contains(t, out, "written")
	assert.NotContains(t, out, "diffed")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

// =============================================================================
// Personality Tests
// =============================================================================

func TestParsePersonalityLevel(t *testing.T) {
	assert.Equal(t, PersonalityMachine, ParsePersonalityLevel("plain"))
	assert.Equal(t, PersonalityMachine, ParsePersonalityLevel("Machine"))
	assert.Equal(t, PersonalityMinimal, ParsePersonalityLevel("min"))
	assert.Equal(t, PersonalityStandard, ParsePersonalityLevel("fancy"))
}

func TestDetectPersonality(t *testing.T) {
	t.Setenv(EnvPersonality, "minimal")
	assert.Equal(t, PersonalityMinimal, DetectPersonality(os.Stdout))

	t.Setenv(EnvPersonality, "")
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, PersonalityMachine, DetectPersonality(f))
	assert.Equal(t, PersonalityMachine, DetectPersonality(nil))
}
