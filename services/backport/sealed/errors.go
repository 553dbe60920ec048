// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sealed

import (
	"errors"
	"fmt"
)

// ErrInvalidAnnotationShape is the only error Rewrite returns. It is always
// wrapped in a *ShapeError.
var ErrInvalidAnnotationShape = errors.New("invalid annotation shape")

// ShapeError locates a marker annotation that cannot be rewritten.
type ShapeError struct {
	// File is the unit name.
	File string

	// Decl is the binary name of the annotated declaration.
	Decl string

	// Line is the 1-indexed line of the annotation.
	Line int

	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %v: %s", e.File, e.Line, e.Decl, ErrInvalidAnnotationShape, e.Reason)
}

func (e *ShapeError) Unwrap() error {
	return ErrInvalidAnnotationShape
}
