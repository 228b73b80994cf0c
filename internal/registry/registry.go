// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package registry models the host's bundle targets: packaging, documentation
// and test steps that may receive a variant's compiled output.
package registry

import (
	"slices"
	"sort"
	"sync"
)

// Content is a file tree attached to a target as additional input.
type Content struct {
	Root    string `yaml:"root"`
	Include string `yaml:"include,omitempty"` // doublestar pattern relative to Root; empty means everything
}

// Target is a host build step.
type Target struct {
	Name      string    `yaml:"name"`
	DependsOn []string  `yaml:"dependsOn,omitempty"`
	Content   []Content `yaml:"content,omitempty"`
	Args      []string  `yaml:"args,omitempty"` // runtime arguments, e.g. JVM flags for test execution
}

// DependOn adds an ordering edge on task. It reports whether the edge is new.
func (t *Target) DependOn(task string) bool {
	if slices.Contains(t.DependsOn, task) {
		return false
	}
	t.DependsOn = append(t.DependsOn, task)
	return true
}

// Attach adds c to the target's inputs. It reports whether c is new.
func (t *Target) Attach(c Content) bool {
	if slices.Contains(t.Content, c) {
		return false
	}
	t.Content = append(t.Content, c)
	return true
}

// AddArg appends a runtime argument. It reports whether arg is new.
func (t *Target) AddArg(arg string) bool {
	if slices.Contains(t.Args, arg) {
		return false
	}
	t.Args = append(t.Args, arg)
	return true
}

// Clone returns a deep copy of t.
func (t *Target) Clone() *Target {
	return &Target{
		Name:      t.Name,
		DependsOn: slices.Clone(t.DependsOn),
		Content:   slices.Clone(t.Content),
		Args:      slices.Clone(t.Args),
	}
}

// Registry resolves target names to targets. Lookups may miss: hosts do not
// have to provide every optional target.
type Registry interface {
	Lookup(name string) (*Target, bool)
}

// Map is an in-memory Registry.
type Map struct {
	mu      sync.Mutex
	targets map[string]*Target
}

// NewMap returns a Map holding targets.
func NewMap(targets ...*Target) *Map {
	m := &Map{targets: make(map[string]*Target, len(targets))}
	for _, t := range targets {
		m.targets[t.Name] = t
	}
	return m
}

// Register adds or replaces a target.
func (m *Map) Register(t *Target) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.targets == nil {
		m.targets = map[string]*Target{}
	}
	m.targets[t.Name] = t
}

func (m *Map) Lookup(name string) (*Target, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.targets[name]
	return t, ok
}

// Names returns the registered target names in sorted order.
func (m *Map) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.targets))
	for name := range m.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
