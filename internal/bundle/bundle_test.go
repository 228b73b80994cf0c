package bundle

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/goplus/vbuild/internal/registry"
	"github.com/mholt/archives"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "main")
	simd := filepath.Join(dir, "simd")
	writeFiles(t, main, map[string]string{
		"a/A.class":      "main-a",
		"META-INF/x.txt": "meta",
	})
	writeFiles(t, simd, map[string]string{
		"a/A.class":       "simd-a",
		"a/vec/Vec.class": "vec",
		"a/vec/notes.txt": "ignored",
	})
	target := &registry.Target{
		Name: "jar",
		Content: []registry.Content{
			{Root: main},
			{Root: simd, Include: "**/*.class"},
			{Root: filepath.Join(dir, "missing")},
		},
	}

	got, err := Files(target)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := map[string]string{
		"a/A.class":       filepath.Join(main, "a", "A.class"),
		"META-INF/x.txt":  filepath.Join(main, "META-INF", "x.txt"),
		"a/vec/Vec.class": filepath.Join(simd, "a", "vec", "Vec.class"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Files = %v, want %v", got, want)
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	simd := filepath.Join(dir, "classes", "simd")
	writeFiles(t, simd, map[string]string{
		"p/B.class": "b",
		"p/A.class": "a",
		"p/A.java":  "source",
	})
	target := &registry.Target{
		Name:    "jar",
		Content: []registry.Content{{Root: simd, Include: "**/*.class"}},
	}
	dest := filepath.Join(dir, "libs", "out.jar")
	if err := Write(context.Background(), target, dest); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := os.Open(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var names []string
	contents := map[string]string{}
	err = archives.Zip{}.Extract(context.Background(), f, func(_ context.Context, fi archives.FileInfo) error {
		if fi.IsDir() {
			return nil
		}
		rc, err := fi.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		names = append(names, fi.NameInArchive)
		contents[fi.NameInArchive] = string(b)
		return nil
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if want := []string{"p/A.class", "p/B.class"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("entries = %v, want %v", names, want)
	}
	if contents["p/A.class"] != "a" || contents["p/B.class"] != "b" {
		t.Fatalf("contents = %v", contents)
	}
}

func TestWriteEmptyTarget(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "empty.jar")
	if err := Write(context.Background(), &registry.Target{Name: "javadoc"}, dest); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("archive not written: %v", err)
	}
}
