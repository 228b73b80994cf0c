// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report builds the structured reporting sink shared by the
// coordinator's components.
package report

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// KindKey is the attribute naming the condition a record reports.
const KindKey = "kind"

// Record kinds.
const (
	KindMissingSource  = "missing_source"
	KindTargetNotFound = "target_not_found"
	KindInvalidConfig  = "invalid_configuration"
	KindCompileFailed  = "compilation_failed"
	KindRecordFailed   = "record_failed"
)

// New returns a logger writing to w. level is one of debug, info, warn or
// error; format is text or json. Unknown values fall back to info and text.
func New(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Or returns l, or slog.Default() when l is nil.
func Or(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// Entry is a captured record.
type Entry struct {
	Level   slog.Level
	Message string
	Kind    string
	Attrs   map[string]string
}

// Recorder is a slog.Handler that keeps every record in memory.
type Recorder struct {
	store *store
	attrs []slog.Attr
}

type store struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder returns an empty Recorder and a logger writing to it.
func NewRecorder() (*Recorder, *slog.Logger) {
	r := &Recorder{store: &store{}}
	return r, slog.New(r)
}

func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	e := Entry{Level: rec.Level, Message: rec.Message, Attrs: map[string]string{}}
	add := func(a slog.Attr) bool {
		if a.Key == KindKey {
			e.Kind = a.Value.String()
		}
		e.Attrs[a.Key] = a.Value.String()
		return true
	}
	for _, a := range r.attrs {
		add(a)
	}
	rec.Attrs(add)

	r.store.mu.Lock()
	r.store.entries = append(r.store.entries, e)
	r.store.mu.Unlock()
	return nil
}

func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Recorder{store: r.store, attrs: append(slices.Clone(r.attrs), attrs...)}
}

func (r *Recorder) WithGroup(string) slog.Handler { return r }

// Entries returns a copy of the captured records.
func (r *Recorder) Entries() []Entry {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return slices.Clone(r.store.entries)
}

// Count returns how many records of kind were captured at level.
func (r *Recorder) Count(level slog.Level, kind string) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level && e.Kind == kind {
			n++
		}
	}
	return n
}
