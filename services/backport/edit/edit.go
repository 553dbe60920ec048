// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package edit turns a rewritten compilation unit into a minimal text edit
// against its original source, applies it, and writes or diffs the result.
package edit

import (
	"bytes"
	"fmt"
	"sort"
)

// Edit replaces the half-open byte range [Start, End) of the original
// source with NewText. Start == End is an insertion.
type Edit struct {
	Start   int
	End     int
	NewText string
}

// IsInsert reports whether the edit only inserts text.
func (e Edit) IsInsert() bool {
	return e.Start == e.End
}

func (e Edit) String() string {
	return fmt.Sprintf("[%d,%d)=%q", e.Start, e.End, e.NewText)
}

// Set is the edit script for one file.
type Set []Edit

// MalformedEditError reports two edits that touch the same bytes. Compute
// never produces one, so it always indicates a defect.
type MalformedEditError struct {
	First  Edit
	Second Edit
	Reason string
}

func (e *MalformedEditError) Error() string {
	return fmt.Sprintf("malformed edit set: %s: %s and %s", e.Reason, e.First, e.Second)
}

// conflicts reports whether a and b overlap. An insertion conflicts only
// with a range strictly containing its position; two insertions never
// conflict and apply in the order they were added.
func conflicts(a, b Edit) bool {
	switch {
	case a.IsInsert() && b.IsInsert():
		return false
	case a.IsInsert():
		return b.Start < a.Start && a.Start < b.End
	case b.IsInsert():
		return a.Start < b.Start && b.Start < a.End
	default:
		return a.Start < b.End && b.Start < a.End
	}
}

// Normalize returns a sorted copy of s, or a *MalformedEditError when two
// edits overlap or one is out of range for a source of length size.
// Insertions sort before a range starting at the same offset.
func (s Set) Normalize(size int) (Set, error) {
	out := make(Set, len(s))
	copy(out, s)
	for _, e := range out {
		if e.Start < 0 || e.End < e.Start || e.End > size {
			return nil, &MalformedEditError{First: e, Second: e, Reason: fmt.Sprintf("range outside source of %d bytes", size)}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start == out[j].Start {
			return out[i].End < out[j].End
		}
		return out[i].Start < out[j].Start
	})
	for i := 1; i < len(out); i++ {
		// Only the previous non-insert edit can overlap out[i].
		for j := i - 1; j >= 0; j-- {
			if conflicts(out[j], out[i]) {
				return nil, &MalformedEditError{First: out[j], Second: out[i], Reason: "overlapping edits"}
			}
			if !out[j].IsInsert() {
				break
			}
		}
	}
	return out, nil
}

// Apply applies every edit to src in a single pass and returns the new
// text. src is not modified.
func (s Set) Apply(src []byte) ([]byte, error) {
	sorted, err := s.Normalize(len(src))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(src) + s.delta())
	cursor := 0
	for _, e := range sorted {
		buf.Write(src[cursor:e.Start])
		buf.WriteString(e.NewText)
		cursor = e.End
	}
	buf.Write(src[cursor:])
	return buf.Bytes(), nil
}

// delta is the net change in length.
func (s Set) delta() int {
	d := 0
	for _, e := range s {
		d += len(e.NewText) - (e.End - e.Start)
	}
	if d < 0 {
		return 0
	}
	return d
}
