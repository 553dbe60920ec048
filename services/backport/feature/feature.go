// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package feature models the closed catalog of Java language capabilities
// the generator knows how to emit, and the predicates deciding which of them
// apply to an output target.
//
// Two abstractions are kept apart on purpose:
//
//   - Feature is the ordered catalog. Its ordinal is the release order.
//   - Set is an open predicate over the catalog. Version implements it as a
//     prefix test; Only, Without and SetFunc build arbitrary sets whose
//     consistency is the caller's concern.
package feature

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFeature is returned when a feature name is not in the catalog.
var ErrUnknownFeature = errors.New("unknown feature")

// Feature is a language capability. Values are ordered by the Java release
// that introduced them.
type Feature int

const (
	// EnhancedDeprecation is @Deprecated(since, forRemoval) (Java 9).
	EnhancedDeprecation Feature = iota

	// Records is the record class declaration (Java 16).
	Records

	// SealedClasses covers the sealed and non-sealed modifiers and the
	// permits clause (Java 17).
	SealedClasses
)

// catalog lists every Feature in ordinal order.
var catalog = []Feature{EnhancedDeprecation, Records, SealedClasses}

var featureNames = map[Feature]string{
	EnhancedDeprecation: "enhanced-deprecation",
	Records:             "records",
	SealedClasses:       "sealed-classes",
}

// All returns the catalog in ordinal order. The returned slice is a copy.
func All() []Feature {
	out := make([]Feature, len(catalog))
	copy(out, catalog)
	return out
}

// String returns the configuration name of the feature.
func (f Feature) String() string {
	if name, ok := featureNames[f]; ok {
		return name
	}
	return fmt.Sprintf("feature(%d)", int(f))
}

// Valid reports whether f is part of the catalog.
func (f Feature) Valid() bool {
	_, ok := featureNames[f]
	return ok
}

// Parse returns the feature with the given configuration name.
//
// Matching ignores case and accepts underscores in place of dashes, so
// "SEALED_CLASSES" and "sealed-classes" are the same feature.
func Parse(name string) (Feature, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	for _, f := range catalog {
		if featureNames[f] == norm {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
}

// Set decides whether a feature is generated for a target.
//
// Implementations must be safe for concurrent use; the orchestrator shares
// one Set between every file of a target.
type Set interface {
	Enabled(f Feature) bool
}

// SetFunc adapts a plain predicate to Set.
type SetFunc func(Feature) bool

// Enabled calls the predicate.
func (fn SetFunc) Enabled(f Feature) bool { return fn(f) }

// Only returns a Set enabling exactly the listed features.
func Only(features ...Feature) Set {
	enabled := make(map[Feature]bool, len(features))
	for _, f := range features {
		enabled[f] = true
	}
	return SetFunc(func(f Feature) bool { return enabled[f] })
}

// Without returns a Set enabling everything base enables except the listed
// features.
func Without(base Set, features ...Feature) Set {
	disabled := make(map[Feature]bool, len(features))
	for _, f := range features {
		disabled[f] = true
	}
	return SetFunc(func(f Feature) bool { return !disabled[f] && base.Enabled(f) })
}

// None enables nothing. Files processed under it are never changed.
var None Set = SetFunc(func(Feature) bool { return false })

// EnabledIn lists the catalog features enabled by s, in ordinal order.
func EnabledIn(s Set) []Feature {
	out := make([]Feature, 0, len(catalog))
	for _, f := range catalog {
		if s.Enabled(f) {
			out = append(out, f)
		}
	}
	return out
}

// Describe renders the enabled features of s for logs, e.g.
// "enhanced-deprecation,records".
func Describe(s Set) string {
	if v, ok := s.(Version); ok {
		return v.String()
	}
	enabled := EnabledIn(s)
	if len(enabled) == 0 {
		return "none"
	}
	names := make([]string, len(enabled))
	for i, f := range enabled {
		names[i] = f.String()
	}
	return strings.Join(names, ",")
}
