// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package project loads the host description of a variant build from a
// vbuild.hcl file.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/vbuild/internal/aggregate"
	"github.com/goplus/vbuild/internal/compile"
	"github.com/goplus/vbuild/internal/registry"
	"github.com/goplus/vbuild/variant"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// FileName is the conventional project file name.
const FileName = "vbuild.hcl"

// Project is a loaded host description.
type Project struct {
	Dir       string
	Overrides variant.Overrides
	Main      compile.MainClasspath
	Registry  *registry.Map
	Targets   []aggregate.TargetRef
}

type fileRoot struct {
	Variant   *variantBlock     `hcl:"variant,block"`
	Main      *mainBlock        `hcl:"main,block"`
	Targets   []*targetBlock    `hcl:"target,block"`
	Aggregate []*aggregateBlock `hcl:"aggregate,block"`
}

type variantBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type mainBlock struct {
	Classpath []string `hcl:"classpath,optional"`
	Output    []string `hcl:"output,optional"`
}

type targetBlock struct {
	Name      string   `hcl:"name,label"`
	DependsOn []string `hcl:"dependsOn,optional"`
	Args      []string `hcl:"args,optional"`
}

type aggregateBlock struct {
	Name      string  `hcl:"name,label"`
	Inclusion *string `hcl:"inclusion,optional"`
	Runtime   *bool   `hcl:"runtime,optional"`
}

// Load reads and parses the project file at path.
func Load(path string) (*Project, error) {
	return Parse(path, nil)
}

// Parse parses a project file. If data is nil, file is read from disk.
// Relative paths in the file are anchored at the file's directory.
func Parse(file string, data []byte) (*Project, error) {
	if data == nil {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		data = b
	}
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(data, file)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", file, diags)
	}
	var root fileRoot
	if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", file, diags)
	}

	dir := filepath.Dir(file)
	p := &Project{
		Dir:       dir,
		Overrides: variant.Overrides{},
		Registry:  registry.NewMap(),
		Targets:   aggregate.DefaultTargets,
	}
	if root.Variant != nil {
		overrides, err := decodeOverrides(file, root.Variant.Body)
		if err != nil {
			return nil, err
		}
		p.Overrides = overrides
	}
	if root.Main != nil {
		p.Main = compile.MainClasspath{
			Entries: anchor(dir, root.Main.Classpath),
			Output:  anchor(dir, root.Main.Output),
		}
	}
	for _, tb := range root.Targets {
		if _, dup := p.Registry.Lookup(tb.Name); dup {
			return nil, fmt.Errorf("%s: target %q declared twice", file, tb.Name)
		}
		p.Registry.Register(&registry.Target{Name: tb.Name, DependsOn: tb.DependsOn, Args: tb.Args})
	}
	if len(root.Aggregate) > 0 {
		refs, err := decodeRefs(file, root.Aggregate)
		if err != nil {
			return nil, err
		}
		p.Targets = refs
	}
	return p, nil
}

// decodeOverrides turns the attributes of a variant block into overrides.
// Unknown attribute names are kept so the resolver can reject them.
func decodeOverrides(file string, body hcl.Body) (variant.Overrides, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode variant block in %s: %w", file, diags)
	}
	out := make(variant.Overrides, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate %s in %s: %w", name, file, diags)
		}
		v, err := toGo(val)
		if err != nil {
			return nil, &variant.ConfigError{Key: name, Value: val.GoString(), Reason: err.Error()}
		}
		out[name] = v
	}
	return out, nil
}

func toGo(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, fmt.Errorf("must be a known, non-null value")
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Bool:
		return v.True(), nil
	case cty.Number:
		var n int
		if err := gocty.FromCtyValue(v, &n); err != nil {
			return nil, err
		}
		return n, nil
	}
	return nil, fmt.Errorf("unsupported type %s", v.Type().FriendlyName())
}

func decodeRefs(file string, blocks []*aggregateBlock) ([]aggregate.TargetRef, error) {
	refs := make([]aggregate.TargetRef, 0, len(blocks))
	seen := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		if seen[b.Name] {
			return nil, fmt.Errorf("%s: aggregate %q declared twice", file, b.Name)
		}
		seen[b.Name] = true
		ref := aggregate.TargetRef{Name: b.Name}
		if b.Inclusion != nil {
			inc, err := aggregate.ParseInclusion(*b.Inclusion)
			if err != nil {
				return nil, fmt.Errorf("%s: aggregate %q: %w", file, b.Name, err)
			}
			ref.Inclusion = inc
		}
		if b.Runtime != nil {
			ref.Runtime = *b.Runtime
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func anchor(dir string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = p
		} else {
			out[i] = filepath.Join(dir, p)
		}
	}
	return out
}
