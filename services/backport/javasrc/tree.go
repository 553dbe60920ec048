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
	"errors"
	"slices"
	"strings"
)

// ErrAlreadyOwned is returned when a node that already has a parent is
// attached to a second position. Move content with Clone instead.
var ErrAlreadyOwned = errors.New("node already owned")

// Span is a half-open byte range [Start, End) into the original source.
//
// Nodes created by a rewrite have a zero Span. Parsed nodes always have a
// non-empty one.
type Span struct {
	Start int
	End   int
}

// IsZero reports whether the span belongs to a synthesized node.
func (s Span) IsZero() bool {
	return s.Start == 0 && s.End == 0
}

// DeclKind is the kind of a type declaration.
type DeclKind int

const (
	KindClass DeclKind = iota
	KindInterface
	KindEnum
	KindRecord
	KindAnnotationType
)

func (k DeclKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindRecord:
		return "record"
	case KindAnnotationType:
		return "@interface"
	default:
		return "unknown"
	}
}

// CompilationUnit is one parsed, binding-resolved Java source file.
//
// The unit records its original imports, modifiers and permits lists when it
// is built. Rewrites mutate the live lists; the edit package diffs them
// against the originals to produce a minimal text edit.
type CompilationUnit struct {
	// Path is the unit name used in diagnostics, relative to its classpath
	// root when one contains the file.
	Path string

	// Source is the original text. It is never modified.
	Source []byte

	// Package is the declared package, "" for the default package.
	Package string

	// Imports is the live import list.
	Imports []*ImportDecl

	// Types holds the top-level declarations in source order.
	Types []*TypeDecl

	// Diagnostics are non-fatal findings (compliance, unit name).
	Diagnostics []Diagnostic

	origImports []*ImportDecl
}

// OriginalImports returns the imports as parsed.
func (u *CompilationUnit) OriginalImports() []*ImportDecl {
	return u.origImports
}

// RemoveImports drops every import for which match returns true and returns
// the removed declarations.
func (u *CompilationUnit) RemoveImports(match func(*ImportDecl) bool) []*ImportDecl {
	var removed []*ImportDecl
	kept := u.Imports[:0:0]
	for _, imp := range u.Imports {
		if match(imp) {
			removed = append(removed, imp)
			continue
		}
		kept = append(kept, imp)
	}
	u.Imports = kept
	return removed
}

// Walk visits every type declaration, nested ones included, in source order.
// Returning false from fn skips the declaration's members.
func (u *CompilationUnit) Walk(fn func(*TypeDecl) bool) {
	var visit func(decls []*TypeDecl)
	visit = func(decls []*TypeDecl) {
		for _, d := range decls {
			if fn(d) {
				visit(d.Members)
			}
		}
	}
	visit(u.Types)
}

// ImportDecl is a single import statement.
type ImportDecl struct {
	// Name is the dotted name without the trailing ".*".
	Name     string
	Static   bool
	OnDemand bool
	Span     Span
}

// TypeDecl is a class, interface, enum, record or annotation type
// declaration.
type TypeDecl struct {
	Kind DeclKind
	Name string

	// BinaryName is the JVM binary name, e.g. "a.b.Outer$Inner".
	BinaryName string

	Parent  *TypeDecl
	Members []*TypeDecl

	// Modifiers is the live modifier list: keywords and annotations in
	// source order, followed by modifiers added by a rewrite.
	Modifiers []Modifier

	// Permits is the live permitted-subtype list.
	Permits []*TypeRef

	// Span covers the whole declaration.
	Span Span

	// Line is the 1-indexed line of the declaration keyword.
	Line int

	// KeywordStart is the offset of the class/interface/... keyword.
	KeywordStart int

	// HeaderEnd is the offset just past the last header element
	// (name, type parameters, extends, implements, permits).
	HeaderEnd int

	// PermitsSpan covers an existing "permits ..." clause, zero if absent.
	PermitsSpan Span

	origModifiers []Modifier
	origPermits   []*TypeRef
}

// OriginalModifiers returns the modifiers as parsed.
func (d *TypeDecl) OriginalModifiers() []Modifier {
	return d.origModifiers
}

// OriginalPermits returns the permits clause as parsed.
func (d *TypeDecl) OriginalPermits() []*TypeRef {
	return d.origPermits
}

// Annotations returns the annotations among the live modifiers.
func (d *TypeDecl) Annotations() []*Annotation {
	var out []*Annotation
	for _, m := range d.Modifiers {
		if a, ok := m.(*Annotation); ok {
			out = append(out, a)
		}
	}
	return out
}

// HasKeyword reports whether the live modifiers contain the keyword.
func (d *TypeDecl) HasKeyword(text string) bool {
	for _, m := range d.Modifiers {
		if k, ok := m.(*Keyword); ok && k.Text == text {
			return true
		}
	}
	return false
}

// RemoveModifier deletes m from the live modifier list. It reports whether m
// was present.
func (d *TypeDecl) RemoveModifier(m Modifier) bool {
	i := slices.Index(d.Modifiers, m)
	if i < 0 {
		return false
	}
	d.Modifiers = slices.Delete(slices.Clone(d.Modifiers), i, i+1)
	return true
}

// AddKeyword appends a synthesized keyword modifier.
func (d *TypeDecl) AddKeyword(text string) *Keyword {
	k := &Keyword{Text: text}
	d.Modifiers = append(d.Modifiers, k)
	return k
}

// AddPermitted appends ref to the permits list and takes ownership of it.
// A ref that already belongs to another node must be cloned first.
func (d *TypeDecl) AddPermitted(ref *TypeRef) error {
	if ref.owner != nil {
		return ErrAlreadyOwned
	}
	ref.owner = d
	d.Permits = append(d.Permits, ref)
	return nil
}

// Modifier is an element of a declaration's modifier list: a *Keyword or an
// *Annotation.
type Modifier interface {
	NodeSpan() Span
	modifier()
}

// Keyword is a modifier keyword such as "public" or "sealed".
type Keyword struct {
	Text string
	Span Span
}

func (k *Keyword) NodeSpan() Span { return k.Span }
func (*Keyword) modifier()        {}

// Annotation is an annotation in a modifier list.
type Annotation struct {
	// Name is the type name as written, whitespace removed.
	Name string

	// Identity is the resolved binary name of the annotation type, "" when
	// the name could not be resolved.
	Identity string

	// Value is the single unnamed element value, nil when absent.
	Value ElementValue

	// Pairs are the name=value elements.
	Pairs []ElementPair

	// HasArguments is true when the annotation carries a parenthesized
	// argument list, even an empty one.
	HasArguments bool

	Span Span
	Line int
}

func (a *Annotation) NodeSpan() Span { return a.Span }
func (*Annotation) modifier()        {}

// ElementPair is a key = value annotation element.
type ElementPair struct {
	Key   string
	Value ElementValue
}

// ElementValue is an annotation element value: *ClassLiteral, *ArrayValue or
// *OtherValue.
type ElementValue interface {
	elementValue()
}

// ClassLiteral is a "Type.class" expression.
type ClassLiteral struct {
	Type *TypeRef
	Span Span
}

// ArrayValue is a "{a, b, c}" element value initializer.
type ArrayValue struct {
	Elements []ElementValue
	Span     Span
}

// OtherValue is any element value this package does not model further.
type OtherValue struct {
	// Kind is the grammar node type, e.g. "string_literal".
	Kind string
	Text string
	Span Span
}

func (*ClassLiteral) elementValue() {}
func (*ArrayValue) elementValue()   {}
func (*OtherValue) elementValue()   {}

// TypeRef is a reference to a type: a dotted name whose segments may carry
// type arguments, optionally followed by array dimensions.
//
// A TypeRef has exactly one owner. Placing a reference somewhere new
// requires Clone.
type TypeRef struct {
	Segments []TypeSegment
	Dims     int
	Span     Span

	owner any
}

// TypeSegment is one dotted component of a type name.
type TypeSegment struct {
	Name string
	Args []*TypeRef
}

// Owned reports whether the reference is attached to a node.
func (t *TypeRef) Owned() bool {
	return t.owner != nil
}

// Clone returns an unowned deep copy with a zero span.
func (t *TypeRef) Clone() *TypeRef {
	if t == nil {
		return nil
	}
	out := &TypeRef{
		Segments: make([]TypeSegment, len(t.Segments)),
		Dims:     t.Dims,
	}
	for i, seg := range t.Segments {
		out.Segments[i] = TypeSegment{Name: seg.Name}
		if len(seg.Args) > 0 {
			out.Segments[i].Args = make([]*TypeRef, len(seg.Args))
			for j, arg := range seg.Args {
				c := arg.Clone()
				c.owner = out
				out.Segments[i].Args[j] = c
			}
		}
	}
	return out
}

// String renders the reference in canonical Java syntax.
func (t *TypeRef) String() string {
	var b strings.Builder
	for i, seg := range t.Segments {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Name)
		if len(seg.Args) > 0 {
			b.WriteByte('<')
			for j, arg := range seg.Args {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString(arg.String())
			}
			b.WriteByte('>')
		}
	}
	for i := 0; i < t.Dims; i++ {
		b.WriteString("[]")
	}
	return b.String()
}

// DiagnosticSeverity ranks diagnostics.
type DiagnosticSeverity int

const (
	SeverityInfo DiagnosticSeverity = iota
	SeverityWarning
)

func (s DiagnosticSeverity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "info"
}

// Diagnostic is a non-fatal finding reported while parsing a unit.
type Diagnostic struct {
	Severity DiagnosticSeverity
	Line     int
	Message  string
}
