// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Counts tallies pair outcomes for one target or a whole run.
type Counts struct {
	Written   int
	Diffed    int
	Unchanged int
	Failed    int
}

// Total returns the number of pairs counted.
func (c Counts) Total() int {
	return c.Written + c.Diffed + c.Unchanged + c.Failed
}

// Summary prints one counts line, labelled.
func (p *Printer) Summary(label string, c Counts) {
	if p.level == PersonalityMachine {
		fmt.Fprintf(p.out, "SUMMARY\t%s\twritten=%d diffed=%d unchanged=%d failed=%d total=%d\n",
			label, c.Written, c.Diffed, c.Unchanged, c.Failed, c.Total())
		return
	}
	parts := []string{
		Styles.Success.Render(fmt.Sprint(c.Written)) + " " + Styles.Muted.Render("written"),
	}
	if c.Diffed > 0 {
		parts = append(parts, Styles.Highlight.Render(fmt.Sprint(c.Diffed))+" "+Styles.Muted.Render("diffed"))
	}
	parts = append(parts,
		Styles.Bold.Render(fmt.Sprint(c.Unchanged))+" "+Styles.Muted.Render("unchanged"),
		Styles.Error.Render(fmt.Sprint(c.Failed))+" "+Styles.Muted.Render("failed"),
	)
	name := lipgloss.NewStyle().Width(12).Render(label)
	fmt.Fprintf(p.out, "%s %s\n", Styles.Bold.Render(name), strings.Join(parts, "  "))
}
