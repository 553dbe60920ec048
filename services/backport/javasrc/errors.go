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
)

// Sentinel errors for parse failures.
//
// These can be checked with errors.Is() to categorize a failure without
// inspecting messages.
var (
	// ErrParseFailed indicates the file could not be turned into a usable
	// tree: syntax errors, invalid encoding or a tree-sitter failure.
	ErrParseFailed = errors.New("parse failed")

	// ErrInvalidContent indicates the content is not UTF-8 text.
	ErrInvalidContent = errors.New("invalid content")

	// ErrFileTooLarge indicates the content exceeds the parser's size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size limit")
)

// ParseError locates a parse failure in a source file.
//
// ParseError is fatal for the file it describes only; callers processing
// many files record it and continue.
//
// Example:
//
//	unit, err := parser.Parse(ctx, content, "a/B.java")
//	var perr *ParseError
//	if errors.As(err, &perr) {
//	    fmt.Printf("%s:%d:%d: %s\n", perr.FilePath, perr.Line, perr.Column, perr.Message)
//	}
type ParseError struct {
	// FilePath is the unit name of the failing file.
	FilePath string

	// Line is 1-indexed, 0 when unknown.
	Line int

	// Column is 1-indexed, 0 when unknown.
	Column int

	Message string

	// Cause is the underlying error. Defaults to ErrParseFailed.
	Cause error
}

// Error formats the failure as "file:line:col: message", dropping the
// location parts that are unknown.
func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// Unwrap returns the cause so errors.Is(err, ErrParseFailed) holds.
func (e *ParseError) Unwrap() error {
	if e.Cause == nil {
		return ErrParseFailed
	}
	return e.Cause
}

// newParseError builds a ParseError at the given location.
func newParseError(filePath string, line, column int, message string, cause error) *ParseError {
	return &ParseError{
		FilePath: filePath,
		Line:     line,
		Column:   column,
		Message:  message,
		Cause:    cause,
	}
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var perr *ParseError
	return errors.As(err, &perr)
}
