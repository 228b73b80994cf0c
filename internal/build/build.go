// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package build coordinates one variant build: resolve the configuration,
// compile the variant, then aggregate its output into bundle targets.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goplus/vbuild/internal/aggregate"
	"github.com/goplus/vbuild/internal/compile"
	"github.com/goplus/vbuild/internal/registry"
	"github.com/goplus/vbuild/internal/report"
	"github.com/goplus/vbuild/pkgs/buildsys"
	"github.com/goplus/vbuild/variant"
)

// ErrOutOfOrder reports a step requested before its predecessor completed,
// or a step repeated after it completed.
var ErrOutOfOrder = errors.New("build step out of order")

// State is the progress of a run. It only moves forward.
type State int

const (
	Unresolved State = iota
	Resolved
	Compiled
	Aggregated
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolved:
		return "resolved"
	case Compiled:
		return "compiled"
	case Aggregated:
		return "aggregated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configures a Coordinator.
type Options struct {
	ProjectDir string
	BuildDir   string // defaults to <ProjectDir>/build

	Compiler buildsys.Compiler
	Registry registry.Registry
	Logger   *slog.Logger
}

// Coordinator runs a single variant build. It is not reusable: construct one
// per run.
type Coordinator struct {
	opts  Options
	state State

	config   *variant.Config
	artifact *compile.Artifact
	targets  []*registry.Target
	notices  []error
}

// Result is the outcome of a completed run.
type Result struct {
	Config   *variant.Config
	Artifact *compile.Artifact
	Targets  []*registry.Target
	Notices  []error // non-fatal conditions, in the order they occurred
}

// NewCoordinator returns a Coordinator in the Unresolved state.
func NewCoordinator(opts Options) (*Coordinator, error) {
	if opts.Compiler == nil {
		return nil, errors.New("build: no compiler")
	}
	if opts.Registry == nil {
		return nil, errors.New("build: no target registry")
	}
	opts.Logger = report.Or(opts.Logger)
	return &Coordinator{opts: opts}, nil
}

// State returns the current state.
func (c *Coordinator) State() State { return c.state }

// Config returns the resolved config, or nil before Resolve.
func (c *Coordinator) Config() *variant.Config { return c.config }

// Artifact returns the compiled artifact, or nil before Compile.
func (c *Coordinator) Artifact() *compile.Artifact { return c.artifact }

// Notices returns the non-fatal conditions recorded so far.
func (c *Coordinator) Notices() []error { return c.notices }

// Resolve moves Unresolved → Resolved.
func (c *Coordinator) Resolve(overrides variant.Overrides) (*variant.Config, error) {
	if err := c.expect(Unresolved, "resolve"); err != nil {
		return nil, err
	}
	r := variant.Resolver{ProjectDir: c.opts.ProjectDir, BuildDir: c.opts.BuildDir}
	cfg, err := r.Resolve(overrides)
	if err != nil {
		c.opts.Logger.Error("invalid variant configuration", report.KindKey, report.KindInvalidConfig, "error", err)
		return nil, fmt.Errorf("resolve: %w", err)
	}
	c.config = cfg
	c.state = Resolved
	return cfg, nil
}

// Compile moves Resolved → Compiled.
func (c *Coordinator) Compile(ctx context.Context, main compile.MainClasspath) (*compile.Artifact, error) {
	if err := c.expect(Resolved, "compile"); err != nil {
		return nil, err
	}
	comp := compile.New(c.opts.Compiler, c.opts.Logger)
	comp.Notify = c.notice
	art, err := comp.Compile(ctx, c.config, main)
	if err != nil {
		return nil, err
	}
	c.artifact = art
	c.state = Compiled
	return art, nil
}

// Aggregate moves Compiled → Aggregated.
func (c *Coordinator) Aggregate(refs []aggregate.TargetRef) ([]*registry.Target, error) {
	if err := c.expect(Compiled, "aggregate"); err != nil {
		return nil, err
	}
	agg := aggregate.New(c.opts.Registry, c.opts.Logger)
	agg.Notify = c.notice
	targets, err := agg.Aggregate(c.artifact, c.config, refs)
	if err != nil {
		return nil, err
	}
	c.targets = targets
	c.state = Aggregated
	return targets, nil
}

// Run performs all three steps in order and stops at the first failure,
// leaving the coordinator in the state it had reached.
func (c *Coordinator) Run(ctx context.Context, overrides variant.Overrides, main compile.MainClasspath, refs []aggregate.TargetRef) (*Result, error) {
	if _, err := c.Resolve(overrides); err != nil {
		return nil, err
	}
	if _, err := c.Compile(ctx, main); err != nil {
		return nil, err
	}
	if _, err := c.Aggregate(refs); err != nil {
		return nil, err
	}
	return &Result{
		Config:   c.config,
		Artifact: c.artifact,
		Targets:  c.targets,
		Notices:  c.notices,
	}, nil
}

func (c *Coordinator) expect(want State, step string) error {
	if c.state != want {
		return fmt.Errorf("%s in state %s: %w", step, c.state, ErrOutOfOrder)
	}
	return nil
}

func (c *Coordinator) notice(err error) {
	c.notices = append(c.notices, err)
}
