// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bundle writes the content attached to a bundle target into a
// zip archive, the container format of jar files.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goplus/vbuild/internal/registry"
	"github.com/mholt/archives"
)

// Files returns the archive plan of target, mapping names in the archive
// (slash separated) to paths on disk. When two content roots provide the
// same name, the first one wins.
func Files(target *registry.Target) (map[string]string, error) {
	files := make(map[string]string)
	for _, c := range target.Content {
		pattern := c.Include
		if pattern == "" {
			pattern = "**"
		}
		matches, err := doublestar.Glob(os.DirFS(c.Root), pattern, doublestar.WithFilesOnly())
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("glob %s in %s: %w", pattern, c.Root, err)
		}
		for _, name := range matches {
			if _, ok := files[name]; ok {
				continue
			}
			files[name] = filepath.Join(c.Root, filepath.FromSlash(name))
		}
	}
	return files, nil
}

// Write archives the content of target into a zip file at dest, creating
// parent directories as needed. Entries are stored in name order.
func Write(ctx context.Context, target *registry.Target, dest string) (err error) {
	plan, err := Files(target)
	if err != nil {
		return err
	}
	onDisk := make(map[string]string, len(plan))
	for name, path := range plan {
		onDisk[path] = name
	}
	files, err := archives.FilesFromDisk(ctx, nil, onDisk)
	if err != nil {
		return fmt.Errorf("collect %s content: %w", target.Name, err)
	}
	slices.SortFunc(files, func(a, b archives.FileInfo) int {
		return strings.Compare(a.NameInArchive, b.NameInArchive)
	})

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dest)
		}
	}()
	if err := (archives.Zip{}).Archive(ctx, out, files); err != nil {
		return fmt.Errorf("write %s bundle: %w", target.Name, err)
	}
	return nil
}
