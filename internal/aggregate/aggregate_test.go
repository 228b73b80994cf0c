package aggregate

import (
	"errors"
	"log/slog"
	"reflect"
	"testing"

	"github.com/goplus/vbuild/internal/compile"
	"github.com/goplus/vbuild/internal/registry"
	"github.com/goplus/vbuild/internal/report"
	"github.com/goplus/vbuild/variant"
)

func artifact() *compile.Artifact {
	return &compile.Artifact{Variant: "simd", Task: "compileSimd", Dir: "/p/build/classes/java/simd", Exists: true}
}

func config(t *testing.T, include bool) *variant.Config {
	t.Helper()
	cfg, err := variant.Resolver{ProjectDir: "/p"}.Resolve(variant.Overrides{variant.KeyIncludeInAggregate: include})
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func snapshot(m *registry.Map) map[string]*registry.Target {
	out := map[string]*registry.Target{}
	for _, name := range m.Names() {
		t, _ := m.Lookup(name)
		out[name] = t.Clone()
	}
	return out
}

var classes = registry.Content{Root: "/p/build/classes/java/simd", Include: ClassPattern}

func TestAggregatePrimaryAndSecondary(t *testing.T) {
	reg := registry.NewMap(&registry.Target{Name: "primary"}, &registry.Target{Name: "secondary"})
	refs := []TargetRef{
		{Name: "primary", Inclusion: Always},
		{Name: "secondary", Inclusion: Conditional},
	}
	got, err := New(reg, nil).Aggregate(artifact(), config(t, true), refs)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("updated targets = %d, want 2", len(got))
	}
	for _, tgt := range got {
		if !reflect.DeepEqual(tgt.DependsOn, []string{"compileSimd"}) {
			t.Errorf("%s DependsOn = %v", tgt.Name, tgt.DependsOn)
		}
		if !reflect.DeepEqual(tgt.Content, []registry.Content{classes}) {
			t.Errorf("%s Content = %v", tgt.Name, tgt.Content)
		}
	}
}

func TestAggregateExcludesConditional(t *testing.T) {
	reg := registry.NewMap(&registry.Target{Name: "jar"}, &registry.Target{Name: "shadowJar", DependsOn: []string{"classes"}})
	before, _ := reg.Lookup("shadowJar")
	before = before.Clone()

	_, err := New(reg, nil).Aggregate(artifact(), config(t, false), DefaultTargets)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	after, _ := reg.Lookup("shadowJar")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("conditional target changed: %+v -> %+v", before, after)
	}
	jar, _ := reg.Lookup("jar")
	if len(jar.Content) != 1 {
		t.Fatalf("always target not attached: %+v", jar)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	reg := registry.NewMap(
		&registry.Target{Name: "jar"},
		&registry.Target{Name: "javadoc"},
		&registry.Target{Name: "test"},
		&registry.Target{Name: "shadowJar"},
	)
	a := New(reg, nil)
	art, cfg := artifact(), config(t, true)

	if _, err := a.Aggregate(art, cfg, DefaultTargets); err != nil {
		t.Fatal(err)
	}
	first := snapshot(reg)
	if _, err := a.Aggregate(art, cfg, DefaultTargets); err != nil {
		t.Fatal(err)
	}
	if second := snapshot(reg); !reflect.DeepEqual(first, second) {
		t.Fatalf("second Aggregate changed targets:\n%v\n%v", first, second)
	}

	test := first["test"]
	if !reflect.DeepEqual(test.Args, []string{compile.FeatureFlag}) {
		t.Errorf("test Args = %v, want feature flag", test.Args)
	}
	if len(first["jar"].Args) != 0 {
		t.Errorf("jar Args = %v, want none", first["jar"].Args)
	}
}

func TestAggregateMissingTargetSkipped(t *testing.T) {
	reg := registry.NewMap(&registry.Target{Name: "jar"})
	rec, logger := report.NewRecorder()
	a := New(reg, logger)
	var notices []error
	a.Notify = func(err error) { notices = append(notices, err) }

	got, err := a.Aggregate(artifact(), config(t, true), []TargetRef{
		{Name: "jar", Inclusion: Always},
		{Name: "shadowJar", Inclusion: Conditional},
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(got) != 1 || got[0].Name != "jar" {
		t.Fatalf("updated = %v, want only jar", got)
	}
	if _, ok := reg.Lookup("shadowJar"); ok {
		t.Fatal("missing target was created")
	}
	if len(notices) != 1 || !errors.Is(notices[0], ErrTargetNotFound) {
		t.Fatalf("notices = %v", notices)
	}
	for _, e := range rec.Entries() {
		if e.Kind == report.KindTargetNotFound && e.Level > slog.LevelInfo {
			t.Fatalf("target skip logged at %v, want at most INFO", e.Level)
		}
	}
	if rec.Count(slog.LevelInfo, report.KindTargetNotFound) != 1 {
		t.Fatal("target skip not reported")
	}
}

func TestAggregateNilArtifact(t *testing.T) {
	if _, err := New(registry.NewMap(), nil).Aggregate(nil, config(t, true), DefaultTargets); err == nil {
		t.Fatal("Aggregate(nil) succeeded")
	}
}

func TestParseInclusion(t *testing.T) {
	for in, want := range map[string]Inclusion{"": Always, "always": Always, "conditional": Conditional} {
		got, err := ParseInclusion(in)
		if err != nil || got != want {
			t.Errorf("ParseInclusion(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseInclusion("sometimes"); err == nil {
		t.Error("ParseInclusion accepted unknown value")
	}
}
