// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compile runs the external compilation step of a build variant.
package compile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"
	"github.com/goplus/vbuild/internal/report"
	"github.com/goplus/vbuild/pkgs/buildsys"
	"github.com/goplus/vbuild/variant"
)

// FeatureFlag enables the incubating vector API the variant is written against.
const FeatureFlag = "--add-modules=jdk.incubator.vector"

const lockRetryDelay = 100 * time.Millisecond

var (
	// ErrCompilationFailed reports a failed external compilation step.
	ErrCompilationFailed = errors.New("compilation failed")

	// ErrMissingSource is the notice raised when the variant source directory is absent.
	ErrMissingSource = errors.New("variant source directory does not exist")
)

// Error carries the diagnostic of a failed compilation.
type Error struct {
	Variant    string
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("%v: %s: %s", ErrCompilationFailed, e.Variant, strings.TrimSpace(e.Diagnostic))
	}
	return fmt.Sprintf("%v: %s: %v", ErrCompilationFailed, e.Variant, e.Err)
}

func (e *Error) Is(target error) bool { return target == ErrCompilationFailed }

func (e *Error) Unwrap() error { return e.Err }

// MainClasspath is what the main build contributes to the variant's classpath.
type MainClasspath struct {
	Entries []string // compile classpath of the main build
	Output  []string // class directories produced by the main build
}

// Union returns Entries followed by Output, without duplicates.
func (m MainClasspath) Union() []string {
	seen := make(map[string]struct{}, len(m.Entries)+len(m.Output))
	out := make([]string, 0, len(m.Entries)+len(m.Output))
	for _, list := range [][]string{m.Entries, m.Output} {
		for _, p := range list {
			if _, ok := seen[p]; ok || p == "" {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// Artifact references the compiled output of a variant.
type Artifact struct {
	Variant string
	Task    string // ordering edge downstream targets depend on
	Dir     string
	Exists  bool
}

// TaskName returns the compile task name of a variant: "simd" compiles as "compileSimd".
func TaskName(variantName string) string {
	r := []rune(variantName)
	if len(r) > 0 {
		r[0] = unicode.ToUpper(r[0])
	}
	return "compile" + string(r)
}

// Compiler drives a buildsys.Compiler for one variant.
type Compiler struct {
	Tool   buildsys.Compiler
	Logger *slog.Logger

	// Notify, if set, receives non-fatal conditions.
	Notify func(error)
}

// New returns a Compiler running tool.
func New(tool buildsys.Compiler, logger *slog.Logger) *Compiler {
	return &Compiler{Tool: tool, Logger: logger}
}

// Compile compiles the variant described by cfg against the main build's
// classpath. A missing source directory is reported and compiled as empty.
// The artifact points at cfg.OutputLocation() even when nothing was produced.
func (c *Compiler) Compile(ctx context.Context, cfg *variant.Config, main MainClasspath) (*Artifact, error) {
	logger := report.Or(c.Logger).With("variant", cfg.VariantName())
	name := cfg.VariantName()
	src, out := cfg.SourceLocation(), cfg.OutputLocation()

	if _, err := os.Stat(src); os.IsNotExist(err) {
		logger.Warn("variant source directory does not exist", report.KindKey, report.KindMissingSource, "dir", src)
		c.notify(fmt.Errorf("%w: %s", ErrMissingSource, src))
	}

	inv := &buildsys.Invocation{
		SourceDir: src,
		Classpath: main.Union(),
		Release:   cfg.MinimumPlatformVersion(),
		Flags:     []string{FeatureFlag},
		OutputDir: out,
	}

	unlock, err := lockOutput(ctx, out)
	if err != nil {
		return nil, c.fail(logger, name, err)
	}
	defer unlock()

	logger.Info("compiling variant", "src", src, "out", out, "release", inv.Release)
	if err := ctx.Err(); err != nil {
		return nil, c.fail(logger, name, err)
	}
	if err := c.Tool.Compile(ctx, inv); err != nil {
		return nil, c.fail(logger, name, err)
	}

	if err := writeRecord(cfg, inv); err != nil {
		logger.Warn("failed to write build record", report.KindKey, report.KindRecordFailed, "error", err)
	}

	art := &Artifact{Variant: name, Task: TaskName(name), Dir: out}
	if fi, err := os.Stat(out); err == nil && fi.IsDir() {
		art.Exists = true
	}
	return art, nil
}

func (c *Compiler) fail(logger *slog.Logger, name string, err error) error {
	cerr := &Error{Variant: name, Err: err}
	var terr *buildsys.ToolError
	if errors.As(err, &terr) {
		cerr.Diagnostic = terr.Output
	}
	logger.Error("variant compilation failed", report.KindKey, report.KindCompileFailed, "error", err)
	return cerr
}

func (c *Compiler) notify(err error) {
	if c.Notify != nil {
		c.Notify(err)
	}
}

// lockOutput takes an exclusive lock guarding outputDir across processes.
func lockOutput(ctx context.Context, outputDir string) (unlock func(), err error) {
	parent := filepath.Dir(filepath.Clean(outputDir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, err
	}
	fl := flock.New(sidecar(outputDir, ".lock"))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, fmt.Errorf("lock %s: not acquired", fl.Path())
	}
	return func() { _ = fl.Unlock() }, nil
}

// sidecar returns <parent>/.<base><ext> for outputDir.
func sidecar(outputDir, ext string) string {
	clean := filepath.Clean(outputDir)
	return filepath.Join(filepath.Dir(clean), "."+filepath.Base(clean)+ext)
}
