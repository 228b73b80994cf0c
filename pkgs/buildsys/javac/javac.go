// Package javac drives the JDK compiler as a buildsys.Compiler.
package javac

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goplus/vbuild/internal/env"
	"github.com/goplus/vbuild/pkgs/buildsys"
	"github.com/hashicorp/go-version"
)

// SourcePattern selects compilable files under a source directory.
const SourcePattern = "**/*.java"

// argFileThreshold is the source count above which sources go through an @argfile.
const argFileThreshold = 100

// Javac runs javac with chainable configuration.
type Javac struct {
	bin    string
	env    map[string]string
	stdout io.Writer

	checkRelease bool
}

var _ buildsys.Compiler = (*Javac)(nil)

// New returns a Javac that locates the compiler through $JAVA_HOME or PATH.
func New() *Javac {
	return &Javac{
		env:          map[string]string{},
		stdout:       os.Stdout,
		checkRelease: true,
	}
}

// Path pins the javac executable.
func (j *Javac) Path(bin string) *Javac {
	j.bin = bin
	return j
}

// Env sets an environment variable for the compiler process.
func (j *Javac) Env(key, value string) *Javac {
	if j.env == nil {
		j.env = map[string]string{}
	}
	j.env[key] = value
	return j
}

// Stdout redirects the compiler's standard output.
func (j *Javac) Stdout(w io.Writer) *Javac {
	j.stdout = w
	return j
}

// CheckRelease toggles probing the toolchain version before compiling.
func (j *Javac) CheckRelease(on bool) *Javac {
	j.checkRelease = on
	return j
}

// Compile compiles every SourcePattern file under inv.SourceDir into
// inv.OutputDir. A missing or empty source directory produces an empty
// output directory.
func (j *Javac) Compile(ctx context.Context, inv *buildsys.Invocation) error {
	if err := os.MkdirAll(inv.OutputDir, 0o755); err != nil {
		return err
	}
	sources, err := Sources(inv.SourceDir)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return nil
	}

	bin, err := j.path()
	if err != nil {
		return &buildsys.ToolError{Tool: "javac", Err: err}
	}
	if j.checkRelease && inv.Release > 0 {
		if err := j.supports(ctx, bin, inv.Release); err != nil {
			return err
		}
	}

	args := Args(inv)
	if len(sources) > argFileThreshold {
		argFile, err := writeArgFile(sources)
		if err != nil {
			return err
		}
		defer os.Remove(argFile)
		args = append(args, "@"+argFile)
	} else {
		args = append(args, sources...)
	}
	return j.run(ctx, bin, args)
}

// Args returns the javac options for inv, without source files.
func Args(inv *buildsys.Invocation) []string {
	args := []string{"-d", inv.OutputDir}
	if len(inv.Classpath) > 0 {
		args = append(args, "-classpath", strings.Join(inv.Classpath, string(os.PathListSeparator)))
	}
	if inv.Release > 0 {
		args = append(args, "--release", strconv.Itoa(inv.Release))
	}
	return append(args, inv.Flags...)
}

// Sources lists the SourcePattern files under dir, joined to dir and sorted.
// A missing dir yields no sources.
func Sources(dir string) ([]string, error) {
	fi, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("javac: source %s is not a directory", dir)
	}
	matches, err := doublestar.Glob(os.DirFS(dir), SourcePattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = filepath.Join(dir, filepath.FromSlash(m))
	}
	return out, nil
}

// Version reports the toolchain version of the javac at bin.
func (j *Javac) Version(ctx context.Context) (*version.Version, error) {
	bin, err := j.path()
	if err != nil {
		return nil, &buildsys.ToolError{Tool: "javac", Err: err}
	}
	return j.version(ctx, bin)
}

func (j *Javac) version(ctx context.Context, bin string) (*version.Version, error) {
	cmd := exec.CommandContext(ctx, bin, "-version")
	cmd.Env = mergeEnv(os.Environ(), j.env)
	// JDK 8 prints the version on stderr.
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &buildsys.ToolError{Tool: "javac -version", Output: string(out), Err: err}
	}
	return ParseVersion(string(out))
}

func (j *Javac) supports(ctx context.Context, bin string, release int) error {
	v, err := j.version(ctx, bin)
	if err != nil {
		return err
	}
	if got := Release(v); got < release {
		return &buildsys.ToolError{
			Tool:   "javac",
			Output: fmt.Sprintf("javac %s does not support --release %d", v, release),
			Err:    fmt.Errorf("toolchain release %d < %d", got, release),
		}
	}
	return nil
}

// ParseVersion extracts the version from `javac -version` output such as
// "javac 21.0.2" or "javac 1.8.0_392".
func ParseVersion(out string) (*version.Version, error) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "javac" {
			continue
		}
		raw := fields[1]
		if i := strings.IndexByte(raw, '_'); i >= 0 {
			raw = raw[:i]
		}
		return version.NewVersion(raw)
	}
	return nil, fmt.Errorf("javac: unrecognized version output %q", strings.TrimSpace(out))
}

// Release maps a toolchain version to its platform release: 1.8 is 8, 21.0.2 is 21.
func Release(v *version.Version) int {
	seg := v.Segments()
	if len(seg) == 0 {
		return 0
	}
	if seg[0] == 1 && len(seg) > 1 {
		return seg[1]
	}
	return seg[0]
}

func (j *Javac) path() (string, error) {
	if j.bin != "" {
		return j.bin, nil
	}
	return env.JDKTool("javac")
}

func (j *Javac) run(ctx context.Context, bin string, args []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stdout = j.stdout
	cmd.Stderr = &stderr
	if len(j.env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), j.env)
	}
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &buildsys.ToolError{Tool: "javac", Output: stderr.String(), Err: err}
	}
	return nil
}

func writeArgFile(sources []string) (string, error) {
	f, err := os.CreateTemp("", "javac-sources-*.txt")
	if err != nil {
		return "", err
	}
	defer f.Close()
	for _, s := range sources {
		if _, err := fmt.Fprintf(f, "%q\n", filepath.ToSlash(s)); err != nil {
			return "", err
		}
	}
	return f.Name(), nil
}

func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
