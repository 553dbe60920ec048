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
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

const (
	// DefaultMaxFileSize is the default content limit (10 MiB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the size above which a warning is logged (1 MiB).
	WarnFileSize = 1024 * 1024
)

// Option configures a Parser.
type Option func(*Parser)

// WithIndex sets the classpath index used to resolve names declared in other
// files. Without an index only names declared in the unit itself, and
// fully qualified names, resolve to known types.
func WithIndex(ix *Index) Option {
	return func(p *Parser) {
		p.index = ix
	}
}

// WithCompliance sets the language level used for validity diagnostics.
func WithCompliance(c Compliance) Option {
	return func(p *Parser) {
		p.compliance = c
	}
}

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(bytes int64) Option {
	return func(p *Parser) {
		p.maxFileSize = bytes
	}
}

// Parser turns Java source into binding-resolved CompilationUnits.
//
// Description:
//
//	Parser wraps tree-sitter's Java grammar, converts the concrete syntax
//	tree into the javasrc model and resolves every annotation's type name
//	to a binary name.
//
// Thread Safety:
//
//	Parser is safe for concurrent use. Each Parse call creates its own
//	tree-sitter parser, and the Index is read-only once built.
type Parser struct {
	index       *Index
	compliance  Compliance
	maxFileSize int64
}

// NewParser creates a Parser.
//
// Inputs:
//   - opts: Optional configuration (WithIndex, WithCompliance, WithMaxFileSize).
//
// Outputs:
//   - *Parser: Ready to use.
func NewParser(opts ...Option) *Parser {
	p := &Parser{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses one compilation unit and resolves its annotations.
//
// Description:
//
//	Parses content, fails on any syntax error, builds the declaration model
//	and resolves annotation identities against the unit and the index. The
//	configured compliance level only adds diagnostics.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//   - content: UTF-8 Java source. Kept by reference as unit.Source.
//   - unitName: Name reported in errors and diagnostics.
//
// Outputs:
//   - *CompilationUnit: The resolved unit. Never nil on success.
//   - error: *ParseError for syntax errors, ErrFileTooLarge,
//     ErrInvalidContent or a context error.
func (p *Parser) Parse(ctx context.Context, content []byte, unitName string) (*CompilationUnit, error) {
	ctx, span := startParseSpan(ctx, unitName, len(content))
	defer span.End()

	start := time.Now()
	unit, err := p.parse(ctx, content, unitName, true)
	if err != nil {
		recordParseMetrics(ctx, time.Since(start), 0, false)
		return nil, err
	}

	r := newResolver(unit, p.index)
	r.resolveAll()
	recordUnresolved(ctx, r.unresolved)

	unit.Diagnostics = append(unit.Diagnostics, p.compliance.check(unit)...)
	unit.Diagnostics = append(unit.Diagnostics, checkUnitName(unit)...)

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, time.Since(start), 0, false)
		return nil, fmt.Errorf("parse canceled after resolution: %w", err)
	}

	decls := countDecls(unit)
	setParseSpanResult(span, decls, len(unit.Diagnostics))
	recordParseMetrics(ctx, time.Since(start), decls, true)
	return unit, nil
}

// parse builds the unresolved model. When strict is false, syntax errors
// are tolerated and whatever tree-sitter recovered is converted.
func (p *Parser) parse(ctx context.Context, content []byte, unitName string, strict bool) (*CompilationUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}
	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%s: %w: size %d exceeds limit %d", unitName, ErrFileTooLarge, len(content), p.maxFileSize)
	}
	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", unitName),
			slog.Int("size_bytes", len(content)))
	}
	if !utf8.Valid(content) {
		return nil, newParseError(unitName, 0, 0, "content is not valid UTF-8", ErrInvalidContent)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, newParseError(unitName, 0, 0, "tree-sitter parse failed", fmt.Errorf("%w: %v", ErrParseFailed, err))
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	root := tree.RootNode()
	if root == nil {
		return nil, newParseError(unitName, 0, 0, "tree-sitter returned no root node", nil)
	}
	if strict && root.HasError() {
		return nil, syntaxError(unitName, root)
	}

	return newBuilder(content, unitName).build(root), nil
}

// syntaxError locates the first ERROR or MISSING node below root.
func syntaxError(unitName string, root *sitter.Node) *ParseError {
	bad := firstErrorNode(root)
	if bad == nil {
		return newParseError(unitName, 0, 0, "source contains syntax errors", nil)
	}
	pt := bad.StartPoint()
	msg := "syntax error"
	if bad.IsMissing() {
		msg = fmt.Sprintf("missing %q", bad.Type())
	}
	return newParseError(unitName, int(pt.Row)+1, int(pt.Column)+1, msg, nil)
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.IsMissing() || child.HasError() {
			if found := firstErrorNode(child); found != nil {
				return found
			}
		}
	}
	return nil
}

func countDecls(unit *CompilationUnit) int {
	n := 0
	unit.Walk(func(*TypeDecl) bool {
		n++
		return true
	})
	return n
}
