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
	"bytes"
	"fmt"

	"github.com/sourcegraph/go-diff/diff"
)

// ContextLines is the number of unchanged lines around each hunk.
const ContextLines = 3

// Unified renders the edit set as a unified diff of src.
//
// Description:
//
//	Edits are mapped to the original lines they touch. Edits whose line
//	ranges, widened by ContextLines, overlap are merged into one hunk.
//	Each hunk is rendered by applying its edits to its own lines, so the
//	diff agrees exactly with Apply.
//
// Inputs:
//   - name: Path printed in the ---/+++ headers, prefixed with a/ and b/.
//   - src: The original text.
//   - set: Edits against src.
//
// Outputs:
//   - []byte: The diff. Empty when set is empty.
//   - error: *MalformedEditError for an invalid set.
func Unified(name string, src []byte, set Set) ([]byte, error) {
	sorted, err := set.Normalize(len(src))
	if err != nil {
		return nil, err
	}
	if len(sorted) == 0 {
		return nil, nil
	}

	lines := splitLines(src)
	starts := make([]int, len(lines)+1)
	for i, l := range lines {
		starts[i+1] = starts[i] + len(l)
	}
	lineOf := func(off int) int {
		// index of the line containing off; off == len(src) maps to the last line
		lo, hi := 0, len(lines)-1
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if starts[mid] <= off {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		return lo
	}

	type group struct {
		first, last int // original line range, inclusive
		edits       Set
	}
	var groups []group
	for _, e := range sorted {
		first := lineOf(e.Start)
		last := first
		if e.End > e.Start {
			last = lineOf(e.End - 1)
		}
		if n := len(groups); n > 0 && first-groups[n-1].last <= 2*ContextLines {
			g := &groups[n-1]
			g.last = max(g.last, last)
			g.edits = append(g.edits, e)
			continue
		}
		groups = append(groups, group{first: first, last: last, edits: Set{e}})
	}

	fd := &diff.FileDiff{
		OrigName: "a/" + name,
		NewName:  "b/" + name,
	}
	shift := 0
	for _, g := range groups {
		from := max(0, g.first-ContextLines)
		to := min(len(lines)-1, g.last+ContextLines)
		base := starts[from]
		region := src[base:starts[to+1]]

		local := make(Set, len(g.edits))
		for i, e := range g.edits {
			local[i] = Edit{Start: e.Start - base, End: e.End - base, NewText: e.NewText}
		}
		replaced, err := local.Apply(region)
		if err != nil {
			return nil, err
		}

		origLines := splitLines(region)
		newLines := splitLines(replaced)
		h := hunk(origLines, newLines)
		h.OrigStartLine = int32(from + 1)
		h.NewStartLine = int32(from + 1 + shift)
		if h.OrigLines == 0 {
			h.OrigStartLine--
		}
		if h.NewLines == 0 {
			h.NewStartLine--
		}
		shift += len(newLines) - len(origLines)
		fd.Hunks = append(fd.Hunks, h)
	}

	out, err := diff.PrintFileDiff(fd)
	if err != nil {
		return nil, fmt.Errorf("printing diff for %s: %w", name, err)
	}
	return out, nil
}

// hunk builds a hunk body: common leading and trailing lines are context,
// the rest is removed then added.
func hunk(orig, updated [][]byte) *diff.Hunk {
	prefix := 0
	for prefix < len(orig) && prefix < len(updated) && bytes.Equal(orig[prefix], updated[prefix]) {
		prefix++
	}
	suffix := 0
	for suffix < len(orig)-prefix && suffix < len(updated)-prefix &&
		bytes.Equal(orig[len(orig)-1-suffix], updated[len(updated)-1-suffix]) {
		suffix++
	}

	var body bytes.Buffer
	writeLines := func(mark byte, ls [][]byte) {
		for _, l := range ls {
			body.WriteByte(mark)
			body.Write(l)
			if len(l) == 0 || l[len(l)-1] != '\n' {
				body.WriteByte('\n')
			}
		}
	}
	writeLines(' ', orig[:prefix])
	writeLines('-', orig[prefix:len(orig)-suffix])
	writeLines('+', updated[prefix:len(updated)-suffix])
	writeLines(' ', orig[len(orig)-suffix:])

	return &diff.Hunk{
		OrigLines: int32(len(orig)),
		NewLines:  int32(len(updated)),
		Body:      body.Bytes(),
	}
}

// splitLines splits after each '\n', keeping the terminators. A final line
// without one is kept. An empty input yields no lines.
func splitLines(b []byte) [][]byte {
	var out [][]byte
	for len(b) > 0 {
		i := bytes.IndexByte(b, '\n')
		if i < 0 {
			out = append(out, b)
			break
		}
		out = append(out, b[:i+1])
		b = b[i+1:]
	}
	return out
}
