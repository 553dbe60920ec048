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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/walk"
)

// Index maps canonical type names (a.b.Outer.Inner) to binary names
// (a.b.Outer$Inner) for every type declared under the classpath.
//
// Thread Safety: build with Add from one goroutine, then share read-only.
type Index struct {
	types map[string]string
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{types: make(map[string]string)}
}

// Add records every declaration of unit, nested and local ones included.
func (ix *Index) Add(unit *CompilationUnit) {
	var visit func(prefix string, decls []*TypeDecl)
	visit = func(prefix string, decls []*TypeDecl) {
		for _, d := range decls {
			canonical := d.Name
			if prefix != "" {
				canonical = prefix + "." + d.Name
			}
			if _, exists := ix.types[canonical]; !exists {
				ix.types[canonical] = d.BinaryName
			}
			visit(canonical, d.Members)
		}
	}
	visit(unit.Package, unit.Types)
}

// Lookup returns the binary name for a canonical name.
func (ix *Index) Lookup(canonical string) (string, bool) {
	if ix == nil {
		return "", false
	}
	b, ok := ix.types[canonical]
	return b, ok
}

// Len returns the number of indexed types.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.types)
}

// BuildIndex scans every Java file under the classpath roots.
//
// Description:
//
//	Files are read and parsed in parallel, at most jobs at a time. Parsing
//	is lenient: a file with syntax errors contributes whatever declarations
//	tree-sitter recovered, and an unreadable file is skipped with a warning.
//	Only a failure to enumerate a root, or cancellation, is an error.
//
// Inputs:
//   - ctx: Context for cancellation.
//   - p: Parser whose size limit applies. Its own index is not consulted.
//   - roots: Classpath source roots. Missing roots are skipped.
//   - jobs: Maximum concurrent parses; values below 1 mean 1.
//
// Outputs:
//   - *Index: The populated index.
//   - error: Non-nil on walk failure or cancellation.
func BuildIndex(ctx context.Context, p *Parser, roots []string, jobs int) (*Index, error) {
	var files []string
	for _, root := range roots {
		found, err := walk.JavaFiles(root)
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("classpath root does not exist", slog.String("root", root))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scanning classpath root %s: %w", root, err)
		}
		for _, f := range found {
			files = append(files, f.Path)
		}
	}

	if jobs < 1 {
		jobs = 1
	}
	units := make([]*CompilationUnit, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("skipping unreadable classpath file",
					slog.String("file", path),
					slog.String("error", err.Error()))
				return nil
			}
			unit, err := p.parse(gctx, content, filepath.ToSlash(path), false)
			if err != nil {
				slog.Debug("skipping unparseable classpath file",
					slog.String("file", path),
					slog.String("error", err.Error()))
				return nil
			}
			units[i] = unit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building classpath index: %w", err)
	}

	ix := NewIndex()
	for _, unit := range units {
		if unit != nil {
			ix.Add(unit)
		}
	}
	return ix, nil
}

// resolver assigns Annotation.Identity for one unit.
type resolver struct {
	unit       *CompilationUnit
	index      *Index
	unresolved int
}

func newResolver(unit *CompilationUnit, ix *Index) *resolver {
	return &resolver{unit: unit, index: ix}
}

func (r *resolver) resolveAll() {
	r.unit.Walk(func(d *TypeDecl) bool {
		for _, a := range d.Annotations() {
			a.Identity = r.resolve(a.Name, d.Parent)
			if a.Identity == "" {
				r.unresolved++
			}
		}
		return true
	})
}

// resolve returns the binary name for a type name written inside scope
// (nil for the top level), or "" if it cannot be resolved.
//
// A qualified name resolves its first segment as a type if possible and
// appends the rest as nested types. Otherwise it is read as a package
// qualified name, matched against the longest indexed prefix.
func (r *resolver) resolve(name string, scope *TypeDecl) string {
	segments := strings.Split(name, ".")
	if head := r.resolveSimple(segments[0], scope); head != "" {
		if len(segments) == 1 {
			return head
		}
		return head + "$" + strings.Join(segments[1:], "$")
	}
	if len(segments) == 1 {
		return ""
	}
	return r.qualified(segments)
}

// resolveSimple applies Java's shadowing order for a simple type name:
// enclosing declarations and their members, the unit's top-level types,
// single-type imports, the unit's package, on-demand imports, java.lang.
func (r *resolver) resolveSimple(simple string, scope *TypeDecl) string {
	for d := scope; d != nil; d = d.Parent {
		for _, m := range d.Members {
			if m.Name == simple {
				return m.BinaryName
			}
		}
		if d.Name == simple {
			return d.BinaryName
		}
	}
	for _, d := range r.unit.Types {
		if d.Name == simple {
			return d.BinaryName
		}
	}

	for _, imp := range r.unit.Imports {
		if imp.OnDemand {
			continue
		}
		if lastSegment(imp.Name) == simple {
			return r.canonicalToBinary(imp.Name)
		}
	}

	if r.unit.Package != "" {
		if b, ok := r.index.Lookup(r.unit.Package + "." + simple); ok {
			return b
		}
	} else if b, ok := r.index.Lookup(simple); ok {
		return b
	}

	for _, imp := range r.unit.Imports {
		if !imp.OnDemand {
			continue
		}
		if b, ok := r.index.Lookup(imp.Name + "." + simple); ok {
			return b
		}
	}

	if b, ok := r.index.Lookup("java.lang." + simple); ok {
		return b
	}
	return ""
}

// qualified resolves a package-qualified name.
func (r *resolver) qualified(segments []string) string {
	for k := len(segments); k > 0; k-- {
		prefix := strings.Join(segments[:k], ".")
		if b, ok := r.index.Lookup(prefix); ok {
			if k == len(segments) {
				return b
			}
			return b + "$" + strings.Join(segments[k:], "$")
		}
	}
	return strings.Join(segments, ".")
}

// canonicalToBinary converts an imported canonical name. Names missing from
// the index are assumed to be top-level types.
func (r *resolver) canonicalToBinary(canonical string) string {
	if b, ok := r.index.Lookup(canonical); ok {
		return b
	}
	return r.qualified(strings.Split(canonical, "."))
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// CanonicalName converts a binary name to the dotted spelling used in
// source, e.g. "a.b.Outer$Inner" -> "a.b.Outer.Inner".
func CanonicalName(binary string) string {
	return strings.ReplaceAll(binary, "$", ".")
}
