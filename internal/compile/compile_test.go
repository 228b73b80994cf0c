package compile

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/goplus/vbuild/internal/report"
	"github.com/goplus/vbuild/pkgs/buildsys"
	"github.com/goplus/vbuild/variant"
)

// recorder is a buildsys.Compiler that remembers its invocations.
type recorder struct {
	calls []buildsys.Invocation
	err   error
	write bool
}

func (r *recorder) Compile(ctx context.Context, inv *buildsys.Invocation) error {
	r.calls = append(r.calls, *inv)
	if r.err != nil {
		return r.err
	}
	if err := os.MkdirAll(inv.OutputDir, 0o755); err != nil {
		return err
	}
	if r.write {
		return os.WriteFile(filepath.Join(inv.OutputDir, "V.class"), []byte{0xca, 0xfe}, 0o644)
	}
	return nil
}

func resolve(t *testing.T, dir string, o variant.Overrides) *variant.Config {
	t.Helper()
	cfg, err := variant.Resolver{ProjectDir: dir}.Resolve(o)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return cfg
}

func TestCompileMissingSourceWarnsOnce(t *testing.T) {
	dir := t.TempDir()
	cfg := resolve(t, dir, nil)
	rec, logger := report.NewRecorder()
	tool := &recorder{}

	var notices []error
	c := New(tool, logger)
	c.Notify = func(err error) { notices = append(notices, err) }

	art, err := c.Compile(context.Background(), cfg, MainClasspath{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := rec.Count(slog.LevelWarn, report.KindMissingSource); got != 1 {
		t.Fatalf("missing source warnings = %d, want 1", got)
	}
	if len(notices) != 1 || !errors.Is(notices[0], ErrMissingSource) {
		t.Fatalf("notices = %v, want one ErrMissingSource", notices)
	}
	want := filepath.Join(dir, "build", "classes", "java", "simd")
	if art.Dir != want {
		t.Fatalf("artifact dir = %q, want %q", art.Dir, want)
	}
	if art.Task != "compileSimd" {
		t.Errorf("artifact task = %q", art.Task)
	}
	if len(tool.calls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(tool.calls))
	}
}

func TestCompileInvocation(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "simd", "java")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := resolve(t, dir, variant.Overrides{variant.KeyMinimumPlatformVersion: 21})
	rec, logger := report.NewRecorder()
	tool := &recorder{write: true}

	main := MainClasspath{
		Entries: []string{"libs/a.jar", "libs/b.jar"},
		Output:  []string{"build/classes/java/main", "libs/a.jar"},
	}
	art, err := New(tool, logger).Compile(context.Background(), cfg, main)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if n := rec.Count(slog.LevelWarn, report.KindMissingSource); n != 0 {
		t.Fatalf("unexpected missing source warnings: %d", n)
	}
	inv := tool.calls[0]
	if inv.SourceDir != src || inv.OutputDir != cfg.OutputLocation() {
		t.Errorf("invocation dirs = %q -> %q", inv.SourceDir, inv.OutputDir)
	}
	if inv.Release != 21 {
		t.Errorf("release = %d, want 21", inv.Release)
	}
	if !reflect.DeepEqual(inv.Flags, []string{FeatureFlag}) {
		t.Errorf("flags = %v", inv.Flags)
	}
	wantCP := []string{"libs/a.jar", "libs/b.jar", "build/classes/java/main"}
	if !reflect.DeepEqual(inv.Classpath, wantCP) {
		t.Errorf("classpath = %v, want %v", inv.Classpath, wantCP)
	}
	if !art.Exists {
		t.Error("artifact does not exist")
	}

	record, err := LoadRecord(cfg.OutputLocation())
	if err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	if record.Release != 21 || !strings.HasPrefix(record.SourceHash, "h1:") {
		t.Errorf("record = %+v", record)
	}
}

func TestCompileFailure(t *testing.T) {
	dir := t.TempDir()
	cfg := resolve(t, dir, nil)
	rec, logger := report.NewRecorder()
	tool := &recorder{err: &buildsys.ToolError{
		Tool:   "javac",
		Output: "V.java:3: error: cannot find symbol",
		Err:    errors.New("exit status 1"),
	}}

	art, err := New(tool, logger).Compile(context.Background(), cfg, MainClasspath{})
	if art != nil {
		t.Fatalf("artifact = %+v, want nil", art)
	}
	if !errors.Is(err, ErrCompilationFailed) {
		t.Fatalf("error = %v, want ErrCompilationFailed", err)
	}
	var cerr *Error
	if !errors.As(err, &cerr) || !strings.Contains(cerr.Diagnostic, "cannot find symbol") {
		t.Fatalf("error = %#v, want diagnostic", err)
	}
	if rec.Count(slog.LevelError, report.KindCompileFailed) != 1 {
		t.Fatal("compile failure not reported at ERROR")
	}
}

func TestCompileCancelled(t *testing.T) {
	cfg := resolve(t, t.TempDir(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(&recorder{}, slog.New(slog.DiscardHandler)).Compile(ctx, cfg, MainClasspath{})
	if !errors.Is(err, ErrCompilationFailed) || !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want CompilationFailed wrapping context.Canceled", err)
	}
}

func TestTaskName(t *testing.T) {
	for in, want := range map[string]string{"simd": "compileSimd", "vector": "compileVector", "": "compile"} {
		if got := TaskName(in); got != want {
			t.Errorf("TaskName(%q) = %q, want %q", in, got, want)
		}
	}
}
