// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package edit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/config"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/feature"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/javasrc"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/sealed"
)

const fixtureInput = `package org.quiltmc.javagen.test_input;

import org.quiltmc.javagen.test_input.api.Sealed;

@Sealed({ org.quiltmc.javagen.test_input.TestSealed.InnerClass.class, AltInnerClass.class })
public abstract class TestSealed {

    public static final class InnerClass extends TestSealed {

    }
}

final class AltInnerClass extends TestSealed {

}
`

const fixtureJava17 = `package org.quiltmc.javagen.test_input;

public abstract sealed class TestSealed permits org.quiltmc.javagen.test_input.TestSealed.InnerClass, AltInnerClass {

    public static final class InnerClass extends TestSealed {

    }
}

final class AltInnerClass extends TestSealed {

}
`

var fixtureMarkers = config.Markers{
	Sealed:    "org.quiltmc.javagen.test_input.api.Sealed",
	NonSealed: "org.quiltmc.javagen.test_input.api.NonSealed",
}

// rewrite parses src, rewrites it for Java 17 and returns the new text and
// whether anything changed.
func rewrite(t *testing.T, src string) (string, bool) {
	t.Helper()
	unit, err := javasrc.NewParser().Parse(context.Background(), []byte(src), "T.java")
	require.NoError(t, err)

	rw, err := sealed.New(fixtureMarkers)
	require.NoError(t, err)
	res, err := rw.Rewrite(unit, feature.Java17)
	require.NoError(t, err)

	set := Compute(unit)
	if !res.Dirty() {
		assert.Empty(t, set)
		return src, false
	}
	out, err := set.Apply(unit.Source)
	require.NoError(t, err)
	return string(out), true
}

func TestCompute_EndToEndFixture(t *testing.T) {
	out, dirty := rewrite(t, fixtureInput)
	require.True(t, dirty)
	assert.Equal(t, fixtureJava17, out)
}

func TestCompute_Idempotent(t *testing.T) {
	out, dirty := rewrite(t, fixtureInput)
	require.True(t, dirty)

	again, dirty := rewrite(t, out)
	assert.False(t, dirty)
	assert.Equal(t, out, again)
}

func TestCompute_Layouts(t *testing.T) {
	const imp = "package p;\n\nimport org.quiltmc.javagen.test_input.api.Sealed;\nimport org.quiltmc.javagen.test_input.api.NonSealed;\n\n"
	const kept = "package p;\n\nimport org.quiltmc.javagen.test_input.api.NonSealed;\n\n"

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "annotation on the declaration line",
			in:   imp + "@Sealed(A.class) public class T {}\n",
			want: kept + "public sealed class T permits A {}\n",
		},
		{
			name: "annotation between keywords",
			in:   imp + "public @Sealed({A.class, B.class}) abstract class T {}\n",
			want: kept + "public abstract sealed class T permits A, B {}\n",
		},
		{
			name: "no keywords",
			in:   imp + "@Sealed(A.class)\nclass T {}\n",
			want: kept + "sealed class T permits A {}\n",
		},
		{
			name: "no keywords same line",
			in:   imp + "@Sealed(A.class) class T {}\n",
			want: kept + "sealed class T permits A {}\n",
		},
		{
			name: "annotation trailing the last keyword",
			in:   imp + "public @Sealed(A.class)\nclass T {}\n",
			want: kept + "public sealed\nclass T permits A {}\n",
		},
		{
			name: "generic header with extends and implements",
			in:   imp + "@Sealed(Impl.class)\npublic abstract class Base<T extends Number> extends Object implements Runnable {\n}\n",
			want: kept + "public abstract sealed class Base<T extends Number> extends Object implements Runnable permits Impl {\n}\n",
		},
		{
			name: "interface with javadoc and other annotations",
			in: imp + "/** Doc. */\n@Deprecated\n@Sealed({A.class})\n@SuppressWarnings(\"x\")\npublic interface T extends Runnable {}\n",
			want: kept + "/** Doc. */\n@Deprecated\n@SuppressWarnings(\"x\")\npublic sealed interface T extends Runnable permits A {}\n",
		},
		{
			name: "non-sealed import survives pruning",
			in:   imp + "@NonSealed\npublic class T extends S {}\n",
			want: kept + "public non-sealed class T extends S {}\n",
		},
		{
			name: "nested declaration keeps indentation",
			in:   imp + "class O {\n    @Sealed(O.A.class)\n    static abstract class I {}\n\n    static final class A extends I {}\n}\n",
			want: kept + "class O {\n    static abstract sealed class I permits O.A {}\n\n    static final class A extends I {}\n}\n",
		},
		{
			name: "crlf line endings",
			in:   "package p;\r\n\r\nimport org.quiltmc.javagen.test_input.api.Sealed;\r\n\r\n@Sealed(A.class)\r\nclass T {}\r\n",
			want: "package p;\r\n\r\nsealed class T permits A {}\r\n",
		},
		{
			name: "blank lines around a removed import collapse",
			in:   "package p;\n\nimport org.quiltmc.javagen.test_input.api.Sealed;\n\n\nimport java.util.List;\n\n@Sealed(A.class) class T {}\n",
			want: "package p;\n\nimport java.util.List;\n\nsealed class T permits A {}\n",
		},
		{
			name: "comments are preserved",
			in:   imp + "// keep me\n@Sealed(A.class) // and me\npublic class T /* header */ {}\n",
			want: kept + "// keep me\n// and me\npublic sealed class T permits A /* header */ {}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, dirty := rewrite(t, tt.in)
			require.True(t, dirty)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCompute_UnchangedUnitHasNoEdits(t *testing.T) {
	unit, err := javasrc.NewParser().Parse(context.Background(), []byte(fixtureInput), "T.java")
	require.NoError(t, err)
	assert.Empty(t, Compute(unit))
}

func TestCompute_PermitsReplacedAndRemoved(t *testing.T) {
	src := "sealed interface S permits A, B {}\n"

	unit, err := javasrc.NewParser().Parse(context.Background(), []byte(src), "S.java")
	require.NoError(t, err)
	d := unit.Types[0]
	d.Permits = d.Permits[:1]
	out, err := Compute(unit).Apply(unit.Source)
	require.NoError(t, err)
	assert.Equal(t, "sealed interface S permits A {}\n", string(out))

	unit, err = javasrc.NewParser().Parse(context.Background(), []byte(src), "S.java")
	require.NoError(t, err)
	unit.Types[0].Permits = nil
	out, err = Compute(unit).Apply(unit.Source)
	require.NoError(t, err)
	assert.Equal(t, "sealed interface S {}\n", string(out))
}
