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
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrInvalidCompliance is returned by ParseCompliance.
var ErrInvalidCompliance = errors.New("invalid compliance level")

// Compliance is a Java language level. The zero value means "latest" and
// produces no level diagnostics.
type Compliance int

// ParseCompliance accepts "1.8", "8", "17" and "" (latest).
func ParseCompliance(s string) (Compliance, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.TrimPrefix(s, "1.")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCompliance, s)
	}
	return Compliance(n), nil
}

func (c Compliance) String() string {
	switch {
	case c == 0:
		return "latest"
	case c < 9:
		return "1." + strconv.Itoa(int(c))
	default:
		return strconv.Itoa(int(c))
	}
}

// check warns about native syntax the level does not accept.
func (c Compliance) check(unit *CompilationUnit) []Diagnostic {
	if c == 0 {
		return nil
	}
	var diags []Diagnostic
	unit.Walk(func(d *TypeDecl) bool {
		if c < 17 {
			for _, kw := range []string{"sealed", "non-sealed"} {
				if d.HasKeyword(kw) {
					diags = append(diags, Diagnostic{
						Severity: SeverityWarning,
						Line:     d.Line,
						Message:  fmt.Sprintf("'%s' on %s requires language level 17, compliance is %s", kw, d.Name, c),
					})
				}
			}
			if len(d.Permits) > 0 {
				diags = append(diags, Diagnostic{
					Severity: SeverityWarning,
					Line:     d.Line,
					Message:  fmt.Sprintf("permits clause on %s requires language level 17, compliance is %s", d.Name, c),
				})
			}
		}
		if c < 16 && d.Kind == KindRecord {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Line:     d.Line,
				Message:  fmt.Sprintf("record %s requires language level 16, compliance is %s", d.Name, c),
			})
		}
		return true
	})
	return diags
}

// UnitName names file relative to the classpath root containing it, using
// forward slashes. When several roots contain the file the last one wins.
// A file outside every root keeps its own path.
func UnitName(classpath []string, file string) string {
	abs, err := filepath.Abs(file)
	if err != nil {
		abs = file
	}
	name := filepath.ToSlash(file)
	for _, root := range classpath {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(rootAbs, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		name = filepath.ToSlash(rel)
	}
	return name
}

// checkUnitName reports a package declaration that disagrees with the
// directory of a relative unit name.
func checkUnitName(unit *CompilationUnit) []Diagnostic {
	if unit.Path == "" || path.IsAbs(unit.Path) || strings.HasPrefix(unit.Path, "..") {
		return nil
	}
	dir := path.Dir(unit.Path)
	if dir == "." {
		dir = ""
	}
	want := strings.ReplaceAll(dir, "/", ".")
	if want == unit.Package {
		return nil
	}
	return []Diagnostic{{
		Severity: SeverityInfo,
		Line:     1,
		Message:  fmt.Sprintf("package %q does not match unit directory %q", unit.Package, dir),
	}}
}
