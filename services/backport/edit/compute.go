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
	"slices"
	"strings"

	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/javasrc"
)

// Compute derives the edit set that turns unit.Source into the text of the
// rewritten unit.
//
// Description:
//
//	The unit's live import, modifier and permits lists are compared with
//	the lists recorded at parse time:
//	  - a removed import or annotation deletes its span. When it was alone
//	    on its line the whole line goes, together with a following run of
//	    blank lines if a blank line also precedes it.
//	  - added keywords are inserted after the last surviving original
//	    keyword, or before the declaration keyword when none survives.
//	  - a new permits list is inserted after the declaration header; a
//	    changed one replaces the existing clause.
//	Everything else is left byte-identical.
//
// Inputs:
//   - unit: A unit whose lists may have been mutated by a rewrite.
//
// Outputs:
//   - Set: Unsorted edits. Empty when the unit is unchanged.
func Compute(unit *javasrc.CompilationUnit) Set {
	c := &computer{src: unit.Source}

	for _, imp := range unit.OriginalImports() {
		if !slices.Contains(unit.Imports, imp) {
			c.deleteNode(imp.Span)
		}
	}
	unit.Walk(func(d *javasrc.TypeDecl) bool {
		c.modifiers(d)
		c.permits(d)
		return true
	})
	return c.edits
}

type computer struct {
	src   []byte
	edits Set
}

func (c *computer) add(start, end int, text string) {
	c.edits = append(c.edits, Edit{Start: start, End: end, NewText: text})
}

func (c *computer) modifiers(d *javasrc.TypeDecl) {
	orig := d.OriginalModifiers()
	var anchor *javasrc.Keyword
	for _, m := range orig {
		if !slices.Contains(d.Modifiers, m) {
			c.deleteNode(m.NodeSpan())
			continue
		}
		if k, ok := m.(*javasrc.Keyword); ok {
			anchor = k
		}
	}

	var added []string
	for _, m := range d.Modifiers {
		if slices.Contains(orig, m) {
			continue
		}
		if k, ok := m.(*javasrc.Keyword); ok {
			added = append(added, k.Text)
		}
	}
	if len(added) == 0 {
		return
	}
	text := strings.Join(added, " ")
	if anchor != nil {
		c.add(anchor.Span.End, anchor.Span.End, " "+text)
		return
	}
	c.add(d.KeywordStart, d.KeywordStart, text+" ")
}

func (c *computer) permits(d *javasrc.TypeDecl) {
	orig := d.OriginalPermits()
	if slices.Equal(orig, d.Permits) {
		return
	}
	if len(d.Permits) == 0 {
		start := d.PermitsSpan.Start
		for start > 0 && isHorizontalSpace(c.src[start-1]) {
			start--
		}
		c.add(start, d.PermitsSpan.End, "")
		return
	}

	names := make([]string, len(d.Permits))
	for i, ref := range d.Permits {
		names[i] = ref.String()
	}
	clause := "permits " + strings.Join(names, ", ")
	if len(orig) == 0 {
		c.add(d.HeaderEnd, d.HeaderEnd, " "+clause)
		return
	}
	c.add(d.PermitsSpan.Start, d.PermitsSpan.End, clause)
}

// deleteNode removes span and the whitespace it leaves behind.
func (c *computer) deleteNode(span javasrc.Span) {
	lineStart := span.Start
	for lineStart > 0 && isHorizontalSpace(c.src[lineStart-1]) {
		lineStart--
	}
	lineEnd := span.End
	for lineEnd < len(c.src) && isHorizontalSpace(c.src[lineEnd]) {
		lineEnd++
	}
	aloneBefore := lineStart == 0 || c.src[lineStart-1] == '\n'
	aloneAfter := lineEnd == len(c.src) || c.src[lineEnd] == '\n'

	if aloneBefore && aloneAfter {
		end := skipNewline(c.src, lineEnd)
		if lineStart > 0 && c.blankLineBefore(lineStart) {
			for {
				next, ok := c.blankLineAt(end)
				if !ok {
					break
				}
				end = next
			}
		}
		c.add(lineStart, end, "")
		return
	}

	if lineEnd > span.End && lineEnd < len(c.src) && c.src[lineEnd] != '\n' && c.src[lineEnd] != '\r' {
		c.add(span.Start, lineEnd, "")
		return
	}
	c.add(lineStart, lineEnd, "")
}

// blankLineBefore reports whether the line ending just before lineStart is
// empty or whitespace only.
func (c *computer) blankLineBefore(lineStart int) bool {
	i := lineStart - 1 // the '\n' ending the previous line
	if i > 0 && c.src[i-1] == '\r' {
		i--
	}
	for i > 0 && isHorizontalSpace(c.src[i-1]) {
		i--
	}
	return i == 0 || c.src[i-1] == '\n'
}

// blankLineAt reports whether a blank line starts at pos and returns the
// offset just past it.
func (c *computer) blankLineAt(pos int) (int, bool) {
	if pos >= len(c.src) {
		return pos, false
	}
	i := pos
	for i < len(c.src) && isHorizontalSpace(c.src[i]) {
		i++
	}
	if i < len(c.src) && c.src[i] == '\n' {
		return i + 1, true
	}
	return pos, false
}

func skipNewline(src []byte, pos int) int {
	if pos < len(src) && src[pos] == '\n' {
		return pos + 1
	}
	return pos
}

func isHorizontalSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r'
}
