// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sealed rewrites sealed-class marker annotations into native
// sealed, non-sealed and permits syntax.
package sealed

import (
	"fmt"

	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/config"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/feature"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/javasrc"
)

// Native modifier keywords produced by a rewrite.
const (
	KeywordSealed    = "sealed"
	KeywordNonSealed = "non-sealed"
)

// ChangeKind says which marker role a change rewrote.
type ChangeKind int

const (
	ChangeSealed ChangeKind = iota
	ChangeNonSealed
)

func (k ChangeKind) String() string {
	if k == ChangeNonSealed {
		return KeywordNonSealed
	}
	return KeywordSealed
}

// Change records one rewritten declaration.
type Change struct {
	Kind ChangeKind
	Decl *javasrc.TypeDecl

	// Permits is the number of permitted subtypes added.
	Permits int
}

// Result is the outcome of rewriting one unit for one target.
type Result struct {
	Changes []Change

	// PrunedImports are the sealed-marker imports removed from the unit.
	PrunedImports []*javasrc.ImportDecl
}

// Dirty reports whether any declaration changed. A clean result means the
// unit's text is identical to its input.
func (r Result) Dirty() bool {
	return len(r.Changes) > 0
}

// Rewriter applies one marker configuration. It holds no per-unit state
// and is safe for concurrent use on distinct units.
type Rewriter struct {
	markers config.Markers
	sealed  string
}

// New binds a rewriter to the marker configuration.
//
// Inputs:
//   - markers: Binary names of the marker annotations. Sealed is required.
//
// Outputs:
//   - *Rewriter: The configured rewriter.
//   - error: config.ErrMissingMarkerConfiguration, or config.ErrInvalidConfig.
func New(markers config.Markers) (*Rewriter, error) {
	if err := markers.Validate(); err != nil {
		return nil, err
	}
	return &Rewriter{
		markers: markers,
		sealed:  javasrc.CanonicalName(markers.Sealed),
	}, nil
}

// plan is a validated rewrite of one declaration.
type plan struct {
	kind    ChangeKind
	decl    *javasrc.TypeDecl
	marker  *javasrc.Annotation
	permits []*javasrc.TypeRef
}

// Rewrite replaces marker annotations in unit with native syntax.
//
// Description:
//
//	When set disables feature.SealedClasses the unit is not inspected at
//	all and the result is clean. Otherwise every class and interface
//	declaration, nested ones included, is checked for annotations whose
//	resolved identity is a configured marker. All declarations are
//	validated before any is mutated, so a failing unit is left untouched.
//
//	A sealed marker is removed, "sealed" is appended to the modifiers and
//	a copy of each class literal in the marker's value is appended to the
//	permits list in source order. A non-sealed marker is removed and
//	"non-sealed" appended; its arguments are ignored.
//
//	If anything changed, imports naming the sealed marker are removed. The
//	non-sealed marker's import is kept.
//
// Inputs:
//   - unit: A resolved unit. Mutated in place when the result is dirty.
//   - set: The target's feature set.
//
// Outputs:
//   - Result: The changes made.
//   - error: A *ShapeError wrapping ErrInvalidAnnotationShape.
func (rw *Rewriter) Rewrite(unit *javasrc.CompilationUnit, set feature.Set) (Result, error) {
	if !set.Enabled(feature.SealedClasses) {
		return Result{}, nil
	}

	var plans []plan
	var firstErr error
	unit.Walk(func(d *javasrc.TypeDecl) bool {
		if firstErr != nil {
			return false
		}
		if d.Kind != javasrc.KindClass && d.Kind != javasrc.KindInterface {
			return true
		}
		p, ok, err := rw.planDecl(unit, d)
		if err != nil {
			firstErr = err
			return false
		}
		if ok {
			plans = append(plans, p)
		}
		return true
	})
	if firstErr != nil {
		return Result{}, firstErr
	}

	var res Result
	for _, p := range plans {
		p.decl.RemoveModifier(p.marker)
		if p.kind == ChangeSealed {
			p.decl.AddKeyword(KeywordSealed)
			for _, ref := range p.permits {
				if err := p.decl.AddPermitted(ref); err != nil {
					// permits holds fresh clones, so this is a programming error.
					panic(fmt.Sprintf("sealed: attaching permitted subtype: %v", err))
				}
			}
		} else {
			p.decl.AddKeyword(KeywordNonSealed)
		}
		res.Changes = append(res.Changes, Change{Kind: p.kind, Decl: p.decl, Permits: len(p.permits)})
	}

	if res.Dirty() {
		res.PrunedImports = unit.RemoveImports(func(imp *javasrc.ImportDecl) bool {
			return !imp.OnDemand && imp.Name == rw.sealed
		})
	}
	return res, nil
}

// planDecl finds and validates the marker on d. ok is false when d carries
// no marker.
func (rw *Rewriter) planDecl(unit *javasrc.CompilationUnit, d *javasrc.TypeDecl) (plan, bool, error) {
	shapeErr := func(a *javasrc.Annotation, format string, args ...any) error {
		line := d.Line
		if a != nil {
			line = a.Line
		}
		return &ShapeError{File: unit.Path, Decl: d.BinaryName, Line: line, Reason: fmt.Sprintf(format, args...)}
	}

	var found *javasrc.Annotation
	var kind ChangeKind
	for _, a := range d.Annotations() {
		var k ChangeKind
		switch {
		case a.Identity == "":
			continue
		case a.Identity == rw.markers.Sealed:
			k = ChangeSealed
		case rw.markers.NonSealed != "" && a.Identity == rw.markers.NonSealed:
			k = ChangeNonSealed
		default:
			continue
		}
		if found != nil {
			return plan{}, false, shapeErr(a, "@%s conflicts with @%s on the same declaration", a.Name, found.Name)
		}
		found, kind = a, k
	}
	if found == nil {
		return plan{}, false, nil
	}

	if d.HasKeyword(KeywordSealed) || d.HasKeyword(KeywordNonSealed) {
		return plan{}, false, shapeErr(found, "@%s on a declaration that is already sealed or non-sealed", found.Name)
	}
	p := plan{kind: kind, decl: d, marker: found}
	if kind == ChangeNonSealed {
		return p, true, nil
	}

	if len(d.Permits) > 0 {
		return plan{}, false, shapeErr(found, "@%s on a declaration that already has a permits clause", found.Name)
	}
	value, err := markerValue(found)
	if err != nil {
		return plan{}, false, shapeErr(found, "%v", err)
	}
	lits, err := classLiterals(value)
	if err != nil {
		return plan{}, false, shapeErr(found, "%v", err)
	}
	for _, lit := range lits {
		p.permits = append(p.permits, lit.Type.Clone())
	}
	return p, true, nil
}

// markerValue returns the single value of a sealed marker, nil when the
// marker has none.
func markerValue(a *javasrc.Annotation) (javasrc.ElementValue, error) {
	if len(a.Pairs) == 0 {
		return a.Value, nil
	}
	if a.Value != nil || len(a.Pairs) > 1 {
		return nil, fmt.Errorf("@%s takes a single value", a.Name)
	}
	if a.Pairs[0].Key != "value" {
		return nil, fmt.Errorf("@%s has no element %q", a.Name, a.Pairs[0].Key)
	}
	return a.Pairs[0].Value, nil
}

// classLiterals accepts one class literal or an array of them.
func classLiterals(v javasrc.ElementValue) ([]*javasrc.ClassLiteral, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case *javasrc.ClassLiteral:
		if v.Type == nil {
			return nil, fmt.Errorf("class literal without a type")
		}
		return []*javasrc.ClassLiteral{v}, nil
	case *javasrc.ArrayValue:
		out := make([]*javasrc.ClassLiteral, 0, len(v.Elements))
		for i, el := range v.Elements {
			lit, ok := el.(*javasrc.ClassLiteral)
			if !ok || lit.Type == nil {
				return nil, fmt.Errorf("element %d is %s, want a class literal", i, describe(el))
			}
			out = append(out, lit)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value is %s, want a class literal or an array of class literals", describe(v))
	}
}

func describe(v javasrc.ElementValue) string {
	switch v := v.(type) {
	case *javasrc.ClassLiteral:
		return "a class literal"
	case *javasrc.ArrayValue:
		return "an array"
	case *javasrc.OtherValue:
		return fmt.Sprintf("%s %s", v.Kind, v.Text)
	default:
		return fmt.Sprintf("%T", v)
	}
}
