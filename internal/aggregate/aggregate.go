// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package aggregate merges a compiled variant into downstream bundle targets.
package aggregate

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goplus/vbuild/internal/compile"
	"github.com/goplus/vbuild/internal/registry"
	"github.com/goplus/vbuild/internal/report"
	"github.com/goplus/vbuild/variant"
)

// ClassPattern selects the class files of a compiled variant.
const ClassPattern = "**/*.class"

// ErrTargetNotFound is the notice raised for a target the registry lacks.
var ErrTargetNotFound = errors.New("bundle target not found")

// Inclusion tells when a target receives the variant output.
type Inclusion int

const (
	// Always targets receive the output unconditionally.
	Always Inclusion = iota
	// Conditional targets receive it only when the config includes the
	// variant in aggregates.
	Conditional
)

func (i Inclusion) String() string {
	switch i {
	case Always:
		return "always"
	case Conditional:
		return "conditional"
	}
	return fmt.Sprintf("Inclusion(%d)", int(i))
}

// ParseInclusion parses "always" or "conditional".
func ParseInclusion(s string) (Inclusion, error) {
	switch s {
	case "", "always":
		return Always, nil
	case "conditional":
		return Conditional, nil
	}
	return 0, fmt.Errorf("unknown inclusion %q", s)
}

// TargetRef tags a registry target for aggregation.
type TargetRef struct {
	Name      string
	Inclusion Inclusion
	// Runtime targets execute variant code and need the feature flag at run time.
	Runtime bool
}

// DefaultTargets are the bundle targets a JVM host provides: the primary jar,
// documentation, test execution and an optional shaded jar.
var DefaultTargets = []TargetRef{
	{Name: "jar", Inclusion: Always},
	{Name: "javadoc", Inclusion: Always},
	{Name: "test", Inclusion: Always, Runtime: true},
	{Name: "shadowJar", Inclusion: Conditional},
}

// Aggregator attaches compiled variants to registry targets.
type Aggregator struct {
	Registry registry.Registry
	Logger   *slog.Logger

	// Notify, if set, receives non-fatal conditions.
	Notify func(error)
}

// New returns an Aggregator over reg.
func New(reg registry.Registry, logger *slog.Logger) *Aggregator {
	return &Aggregator{Registry: reg, Logger: logger}
}

// Aggregate wires art into the targets named by refs and returns the targets
// it found, in refs order. Always targets gain an ordering edge on the
// variant's compile task and its class files as input; conditional targets get
// the same only when cfg includes the variant in aggregates. Targets missing
// from the registry are skipped. Repeated calls do not duplicate anything.
func (a *Aggregator) Aggregate(art *compile.Artifact, cfg *variant.Config, refs []TargetRef) ([]*registry.Target, error) {
	if art == nil {
		return nil, errors.New("aggregate: nil artifact")
	}
	logger := report.Or(a.Logger).With("variant", art.Variant)

	var out []*registry.Target
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if seen[ref.Name] {
			continue
		}
		seen[ref.Name] = true

		t, ok := a.Registry.Lookup(ref.Name)
		if !ok {
			logger.Info("bundle target not found, skipping", report.KindKey, report.KindTargetNotFound, "target", ref.Name)
			if a.Notify != nil {
				a.Notify(fmt.Errorf("%w: %s", ErrTargetNotFound, ref.Name))
			}
			continue
		}
		if ref.Inclusion == Conditional && !cfg.IncludeInAggregate() {
			logger.Debug("variant excluded from conditional target", "target", ref.Name)
			out = append(out, t)
			continue
		}
		attach(t, art, ref.Runtime)
		logger.Debug("attached variant output", "target", ref.Name, "inclusion", ref.Inclusion)
		out = append(out, t)
	}
	return out, nil
}

func attach(t *registry.Target, art *compile.Artifact, runtime bool) {
	t.DependOn(art.Task)
	t.Attach(registry.Content{Root: art.Dir, Include: ClassPattern})
	if runtime {
		t.AddArg(compile.FeatureFlag)
	}
}
