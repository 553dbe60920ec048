// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/QuiltMC/quilt-multi-java-gen/pkg/ux"
	"github.com/QuiltMC/quilt-multi-java-gen/services/backport/feature"
)

func runVersionsCommand(cmd *cobra.Command, _ []string) {
	printVersions(newPrinter(cmd.OutOrStdout()))
}

func printVersions(p *ux.Printer) {
	p.Title("Java versions")
	for _, v := range feature.Versions() {
		p.Status(ux.IconArrow, fmt.Sprintf("%s (release %d)", v, v.Release()), featureList(v))
	}
	p.Title("Features")
	for _, f := range feature.All() {
		p.Status(ux.IconArrow, f.String(), "")
	}
}

func featureList(s feature.Set) string {
	enabled := feature.EnabledIn(s)
	names := make([]string, len(enabled))
	for i, f := range enabled {
		names[i] = f.String()
	}
	return strings.Join(names, ", ")
}
