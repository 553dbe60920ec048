// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package javasrc

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sealedFixture = `package org.quiltmc.javagen.test_input;

import org.quiltmc.javagen.test_input.api.Sealed;

@Sealed({ org.quiltmc.javagen.test_input.TestSealed.InnerClass.class, AltInnerClass.class })
public abstract class TestSealed {

    public static final class InnerClass extends TestSealed {

    }
}

final class AltInnerClass extends TestSealed {

}
`

func mustParse(t *testing.T, p *Parser, src, name string) *CompilationUnit {
	t.Helper()
	unit, err := p.Parse(context.Background(), []byte(src), name)
	require.NoError(t, err)
	require.NotNil(t, unit)
	return unit
}

func TestParse_Fixture(t *testing.T) {
	unit := mustParse(t, NewParser(), sealedFixture, "org/quiltmc/javagen/test_input/TestSealed.java")

	assert.Equal(t, "org.quiltmc.javagen.test_input", unit.Package)
	require.Len(t, unit.Imports, 1)
	assert.Equal(t, "org.quiltmc.javagen.test_input.api.Sealed", unit.Imports[0].Name)
	assert.False(t, unit.Imports[0].Static)
	assert.False(t, unit.Imports[0].OnDemand)
	assert.Equal(t, "import org.quiltmc.javagen.test_input.api.Sealed;",
		string(unit.Source[unit.Imports[0].Span.Start:unit.Imports[0].Span.End]))

	require.Len(t, unit.Types, 2)
	outer := unit.Types[0]
	assert.Equal(t, KindClass, outer.Kind)
	assert.Equal(t, "TestSealed", outer.Name)
	assert.Equal(t, "org.quiltmc.javagen.test_input.TestSealed", outer.BinaryName)
	assert.Equal(t, 6, outer.Line)
	assert.Equal(t, "class TestSealed", string(unit.Source[outer.KeywordStart:outer.HeaderEnd]))
	assert.True(t, outer.HasKeyword("public"))
	assert.True(t, outer.HasKeyword("abstract"))
	assert.Empty(t, outer.Permits)
	assert.True(t, outer.PermitsSpan.IsZero())

	require.Len(t, outer.Members, 1)
	inner := outer.Members[0]
	assert.Equal(t, "org.quiltmc.javagen.test_input.TestSealed$InnerClass", inner.BinaryName)
	assert.Same(t, outer, inner.Parent)
	assert.Equal(t, "class InnerClass extends TestSealed", string(unit.Source[inner.KeywordStart:inner.HeaderEnd]))

	assert.Equal(t, "org.quiltmc.javagen.test_input.AltInnerClass", unit.Types[1].BinaryName)

	anns := outer.Annotations()
	require.Len(t, anns, 1)
	a := anns[0]
	assert.Equal(t, "Sealed", a.Name)
	assert.Equal(t, "org.quiltmc.javagen.test_input.api.Sealed", a.Identity)
	assert.Equal(t, 5, a.Line)
	assert.True(t, a.HasArguments)
	assert.Empty(t, a.Pairs)

	arr, ok := a.Value.(*ArrayValue)
	require.True(t, ok, "value is %T", a.Value)
	require.Len(t, arr.Elements, 2)
	var got []string
	for _, el := range arr.Elements {
		lit, ok := el.(*ClassLiteral)
		require.True(t, ok, "element is %T", el)
		assert.True(t, lit.Type.Owned())
		got = append(got, lit.Type.String())
	}
	assert.Equal(t, []string{"org.quiltmc.javagen.test_input.TestSealed.InnerClass", "AltInnerClass"}, got)
}

func TestParse_AnnotationForms(t *testing.T) {
	src := `package p;

@A(X.class)
@B(value = {Y.class})
@C
@D()
@E("text")
class T {}
`
	unit := mustParse(t, NewParser(), src, "p/T.java")
	anns := unit.Types[0].Annotations()
	require.Len(t, anns, 5)

	lit, ok := anns[0].Value.(*ClassLiteral)
	require.True(t, ok)
	assert.Equal(t, "X", lit.Type.String())

	require.Len(t, anns[1].Pairs, 1)
	assert.Equal(t, "value", anns[1].Pairs[0].Key)
	assert.IsType(t, &ArrayValue{}, anns[1].Pairs[0].Value)

	assert.False(t, anns[2].HasArguments)
	assert.Nil(t, anns[2].Value)

	assert.True(t, anns[3].HasArguments)
	assert.Nil(t, anns[3].Value)

	other, ok := anns[4].Value.(*OtherValue)
	require.True(t, ok)
	assert.Equal(t, `"text"`, other.Text)
}

func TestParse_TypeRefShapes(t *testing.T) {
	src := `@S({java.util.List.class, int[].class, Outer.Inner.class})
class T {}
`
	unit := mustParse(t, NewParser(), src, "T.java")
	arr := unit.Types[0].Annotations()[0].Value.(*ArrayValue)
	var got []string
	for _, el := range arr.Elements {
		got = append(got, el.(*ClassLiteral).Type.String())
	}
	assert.Equal(t, []string{"java.util.List", "int[]", "Outer.Inner"}, got)
}

func TestParse_ExistingSealedSyntax(t *testing.T) {
	src := `package p;

public sealed interface Shape permits Circle, Square {}

non-sealed class Circle implements Shape {}
`
	unit := mustParse(t, NewParser(), src, "p/Shape.java")
	shape := unit.Types[0]
	assert.Equal(t, KindInterface, shape.Kind)
	assert.True(t, shape.HasKeyword("sealed"))
	require.Len(t, shape.Permits, 2)
	assert.Equal(t, "Circle", shape.Permits[0].String())
	assert.Equal(t, "Square", shape.Permits[1].String())
	assert.Equal(t, "permits Circle, Square", string(unit.Source[shape.PermitsSpan.Start:shape.PermitsSpan.End]))
	assert.Equal(t, shape.PermitsSpan.End, shape.HeaderEnd)
	assert.Len(t, shape.OriginalPermits(), 2)

	assert.True(t, unit.Types[1].HasKeyword("non-sealed"))
}

func TestParse_LocalAndNestedDeclarations(t *testing.T) {
	src := `class Outer {
    interface Api {}
    enum Mode { A, B }
    record Point(int x, int y) {}
    void m() {
        class Local {}
    }
}
`
	unit := mustParse(t, NewParser(), src, "Outer.java")
	var names []string
	unit.Walk(func(d *TypeDecl) bool {
		names = append(names, d.Kind.String()+" "+d.BinaryName)
		return true
	})
	assert.Equal(t, []string{
		"class Outer",
		"interface Outer$Api",
		"enum Outer$Mode",
		"record Outer$Point",
		"class Outer$Local",
	}, names)
}

func TestParse_SyntaxError(t *testing.T) {
	src := "package p;\n\nclass T {\n    void m( {\n}\n"
	_, err := NewParser().Parse(context.Background(), []byte(src), "p/T.java")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrParseFailed)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "p/T.java", perr.FilePath)
	assert.Positive(t, perr.Line)
	assert.True(t, strings.HasPrefix(perr.Error(), "p/T.java:"))
}

func TestParse_InvalidUTF8(t *testing.T) {
	_, err := NewParser().Parse(context.Background(), []byte{0xff, 0xfe, 'c'}, "Bad.java")
	require.ErrorIs(t, err, ErrInvalidContent)
	assert.True(t, IsParseError(err))
}

func TestParse_TooLarge(t *testing.T) {
	p := NewParser(WithMaxFileSize(8))
	_, err := p.Parse(context.Background(), []byte("class Large {}"), "Large.java")
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestParse_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewParser().Parse(ctx, []byte("class T {}"), "T.java")
	require.ErrorIs(t, err, context.Canceled)
}

func TestParse_ConcurrentUse(t *testing.T) {
	p := NewParser()
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := p.Parse(context.Background(), []byte(sealedFixture), "TestSealed.java")
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
}
