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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File permission constants.
const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// ErrUnsafePath is returned for relative paths that escape the output root.
var ErrUnsafePath = errors.New("relative path escapes output root")

// Writer persists rewritten files under an output root.
//
// The zero value is ready to use. Writer keeps no state and is safe for
// concurrent use on distinct paths.
type Writer struct{}

// Target returns outputRoot/relativePath after checking that the relative
// path stays inside the root.
func (Writer) Target(outputRoot, relativePath string) (string, error) {
	rel := filepath.FromSlash(relativePath)
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, relativePath)
	}
	rel = filepath.Clean(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, relativePath)
	}
	return filepath.Join(outputRoot, rel), nil
}

// Write stores text at outputRoot/relativePath, creating parent
// directories and overwriting an existing file.
//
// Outputs:
//   - string: The written path.
//   - error: Non-nil if the path is unsafe or the write fails.
func (w Writer) Write(outputRoot, relativePath string, text []byte) (string, error) {
	path, err := w.Target(outputRoot, relativePath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, text, filePerm); err != nil {
		return "", fmt.Errorf("writing file %s: %w", relativePath, err)
	}
	return path, nil
}

// Remove deletes a stale output file. A missing file is not an error.
// It reports whether a file was removed.
func (w Writer) Remove(outputRoot, relativePath string) (bool, error) {
	path, err := w.Target(outputRoot, relativePath)
	if err != nil {
		return false, err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("removing stale output %s: %w", relativePath, err)
	}
	return true, nil
}
