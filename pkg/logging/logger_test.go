// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.level.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"", LevelInfo, false},
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{" Warning ", LevelWarn, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"trace", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelDebug.toSlogLevel())
	assert.Equal(t, slog.LevelInfo, LevelInfo.toSlogLevel())
	assert.Equal(t, slog.LevelWarn, LevelWarn.toSlogLevel())
	assert.Equal(t, slog.LevelError, LevelError.toSlogLevel())
	assert.Equal(t, slog.LevelInfo, Level(99).toSlogLevel())
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestNew_WritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Service: "javagen"})
	defer logger.Close()

	logger.Info("pair written", "target", "java17")

	out := buf.String()
	assert.Contains(t, out, "pair written")
	assert.Contains(t, out, "target=java17")
	assert.Contains(t, out, "service=javagen")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, JSON: true})
	defer logger.Close()

	logger.Warn("stale output", "file", "a/B.java")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "stale output", record["msg"])
	assert.Equal(t, "a/B.java", record["file"])
}

func TestNew_QuietDiscards(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Quiet: true})
	defer logger.Close()

	logger.Error("nobody hears this")
	assert.Empty(t, buf.String())
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Level: LevelWarn})
	defer logger.Close()

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	out := buf.String()
	assert.NotContains(t, out, "msg=debug")
	assert.NotContains(t, out, "msg=info")
	assert.Contains(t, out, "msg=warn")
	assert.Contains(t, out, "msg=error")
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})
	defer logger.Close()

	child := logger.With("run_id", "r-1")
	child.Info("started")
	logger.Info("parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "run_id=r-1")
	assert.NotContains(t, lines[1], "run_id")
}

func TestLogger_Slog(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})
	defer logger.Close()

	logger.Slog().Info("through slog")
	assert.Contains(t, buf.String(), "through slog")
}

func TestNew_WithLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger := New(Config{LogDir: dir, Service: "javagen", Quiet: true})

	logger.Info("to file", "n", 3)
	require.NoError(t, logger.Close())

	name := "javagen_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	assert.Equal(t, "to file", record["msg"])
	assert.Equal(t, "javagen", record["service"])
}

func TestNew_WithLogDir_InvalidPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	var buf bytes.Buffer
	logger := New(Config{LogDir: filepath.Join(blocker, "logs"), Output: &buf})
	defer logger.Close()

	logger.Info("still logs")
	assert.Nil(t, logger.file)
	assert.Contains(t, buf.String(), "still logs")
}

func TestNew_MultipleHandlers(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, LogDir: t.TempDir()})
	defer logger.Close()

	_, ok := logger.slog.Handler().(*multiHandler)
	assert.True(t, ok)
}

func TestLogger_Exporter(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Quiet: true, Service: "javagen", Level: LevelInfo, Exporter: exporter})

	logger.Debug("filtered")
	logger.Info("kept", "target", "java9")
	require.NoError(t, logger.Close())

	entries := exporter.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, LevelInfo, entries[0].Level)
	assert.Equal(t, "javagen", entries[0].Service)
	assert.Equal(t, "java9", entries[0].Attrs["target"])
}

type failingExporter struct {
	flushErr error
	closeErr error
}

func (e failingExporter) Export(context.Context, LogEntry) error { return errors.New("export") }
func (e failingExporter) Flush(context.Context) error            { return e.flushErr }
func (e failingExporter) Close() error                           { return e.closeErr }

func TestLogger_Close_JoinsErrors(t *testing.T) {
	flushErr := errors.New("flush failed")
	closeErr := errors.New("close failed")
	logger := New(Config{Quiet: true, Exporter: failingExporter{flushErr: flushErr, closeErr: closeErr}})

	logger.Info("dropped silently")
	err := logger.Close()
	assert.ErrorIs(t, err, flushErr)
	assert.ErrorIs(t, err, closeErr)
}

func TestLogger_Close_Twice(t *testing.T) {
	logger := New(Config{Quiet: true, LogDir: t.TempDir(), Exporter: NopExporter{}})
	require.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
}

func TestLogger_ConcurrentUse(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Quiet: true, Exporter: exporter})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.With("worker", n).Info("tick")
		}(i)
	}
	wg.Wait()
	require.NoError(t, logger.Close())
	assert.Len(t, exporter.Entries(), 20)
}

// =============================================================================
// multiHandler Tests
// =============================================================================

func TestMultiHandler_Enabled(t *testing.T) {
	debug := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})
	errOnly := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError})

	h := &multiHandler{handlers: []slog.Handler{errOnly, debug}}
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))

	h = &multiHandler{handlers: []slog.Handler{errOnly}}
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
}

func TestMultiHandler_Handle_LevelFiltering(t *testing.T) {
	var all, errs bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&all, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	}}

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "info record", 0)
	require.NoError(t, h.Handle(context.Background(), r))

	assert.Contains(t, all.String(), "info record")
	assert.Empty(t, errs.String())
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	var a, b bytes.Buffer
	var h slog.Handler = &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
	}}
	h = h.WithAttrs([]slog.Attr{slog.String("target", "java16")}).WithGroup("pair")

	slog.New(h).Info("grouped", "file", "A.java")
	for _, out := range []string{a.String(), b.String()} {
		assert.Contains(t, out, "target=java16")
		assert.Contains(t, out, "pair.file=A.java")
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/logs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "logs"), got)

	got, err = expandPath("/var/log/javagen")
	require.NoError(t, err)
	assert.Equal(t, "/var/log/javagen", got)
}

func TestArgsToMap(t *testing.T) {
	m := argsToMap([]any{"a", 1, slog.Int("b", 2), "dangling"})
	assert.Equal(t, 1, m["a"])
	assert.Equal(t, int64(2), m["b"])
	assert.Equal(t, "dangling", m["!BADKEY"])
}

func TestBufferedExporter_EntriesReturnsCopy(t *testing.T) {
	e := NewBufferedExporter()
	require.NoError(t, e.Export(context.Background(), LogEntry{Message: "one"}))

	entries := e.Entries()
	entries[0].Message = "changed"
	assert.Equal(t, "one", e.Entries()[0].Message)
}

func TestLogger_With_ExportsAttrs(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Quiet: true, Exporter: exporter})

	logger.With("run_id", "r-9").With("target", "java17").Info("pair rewritten", "file", "A.java")
	require.NoError(t, logger.Close())

	entries := exporter.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "r-9", entries[0].Attrs["run_id"])
	assert.Equal(t, "java17", entries[0].Attrs["target"])
	assert.Equal(t, "A.java", entries[0].Attrs["file"])
}
