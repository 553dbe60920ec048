// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package feature

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownVersion is returned when a version name has no profile.
var ErrUnknownVersion = errors.New("unknown java version")

// Version is a named release profile. A version enables every feature up to
// and including its last feature, so later versions are strict supersets of
// earlier ones.
type Version int

const (
	// Java9 enables EnhancedDeprecation.
	Java9 Version = iota

	// Java16 adds Records.
	Java16

	// Java17 adds SealedClasses.
	Java17
)

type versionInfo struct {
	release int
	last    Feature
}

// Versions without new language features (10-15) have no profile.
var versions = map[Version]versionInfo{
	Java9:  {release: 9, last: EnhancedDeprecation},
	Java16: {release: 16, last: Records},
	Java17: {release: 17, last: SealedClasses},
}

// Versions returns every known profile, oldest first.
func Versions() []Version {
	return []Version{Java9, Java16, Java17}
}

// Last returns the newest feature the version enables.
func (v Version) Last() Feature {
	return versions[v].last
}

// Release returns the Java release number, e.g. 17.
func (v Version) Release() int {
	return versions[v].release
}

// Enabled reports whether f belongs to the version's prefix of the catalog.
func (v Version) Enabled(f Feature) bool {
	info, ok := versions[v]
	if !ok || !f.Valid() {
		return false
	}
	return f <= info.last
}

// String returns the profile name, e.g. "java17".
func (v Version) String() string {
	if info, ok := versions[v]; ok {
		return "java" + strconv.Itoa(info.release)
	}
	return fmt.Sprintf("version(%d)", int(v))
}

// ParseVersion accepts "java17", "JAVA_17", "17" and, for pre-9 style
// numbering, "1.9".
func ParseVersion(name string) (Version, error) {
	norm := strings.ToLower(strings.TrimSpace(name))
	norm = strings.TrimPrefix(norm, "java")
	norm = strings.TrimLeft(norm, "_- ")
	norm = strings.TrimPrefix(norm, "1.")

	release, err := strconv.Atoi(norm)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownVersion, name)
	}
	for _, v := range Versions() {
		if versions[v].release == release {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVersion, name)
}

// ParseSet parses a target feature specification. A single version name
// yields that Version; otherwise the spec is a comma separated feature list
// and yields an Only set. "none" yields None.
func ParseSet(spec string) (Set, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("%w: empty feature set", ErrUnknownFeature)
	}
	if strings.EqualFold(spec, "none") {
		return None, nil
	}
	if v, err := ParseVersion(spec); err == nil {
		return v, nil
	}

	parts := strings.Split(spec, ",")
	features := make([]Feature, 0, len(parts))
	for _, p := range parts {
		f, err := Parse(p)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return Only(features...), nil
}
