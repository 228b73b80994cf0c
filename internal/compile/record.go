// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compile

import (
	"encoding/json"
	"os"
	"time"

	"github.com/goplus/vbuild/pkgs/buildsys"
	"github.com/goplus/vbuild/variant"
	"golang.org/x/mod/sumdb/dirhash"
)

// Output directory layout:
//
//	build/classes/java/
//	  simd/              # compiled variant classes (outputLocation)
//	  .simd.lock         # held while compiling
//	  .simd.json         # build record of the last successful compile
const recordExt = ".json"

// Record describes the last successful compile of a variant. It is
// informational; compilation never consults it.
type Record struct {
	Variant    string    `json:"variant"`
	Release    int       `json:"release"`
	Flags      []string  `json:"flags"`
	Classpath  []string  `json:"classpath,omitempty"`
	SourceDir  string    `json:"source_dir"`
	SourceHash string    `json:"source_hash,omitempty"`
	BuildTime  time.Time `json:"build_time"`
}

// RecordPath returns where the build record for outputDir is kept.
func RecordPath(outputDir string) string {
	return sidecar(outputDir, recordExt)
}

// LoadRecord reads the build record kept next to outputDir.
func LoadRecord(outputDir string) (*Record, error) {
	data, err := os.ReadFile(RecordPath(outputDir))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func writeRecord(cfg *variant.Config, inv *buildsys.Invocation) error {
	rec := Record{
		Variant:   cfg.VariantName(),
		Release:   inv.Release,
		Flags:     inv.Flags,
		Classpath: inv.Classpath,
		SourceDir: inv.SourceDir,
		BuildTime: time.Now(),
	}
	if fi, err := os.Stat(inv.SourceDir); err == nil && fi.IsDir() {
		h, err := dirhash.HashDir(inv.SourceDir, cfg.VariantName(), dirhash.Hash1)
		if err != nil {
			return err
		}
		rec.SourceHash = h
	}
	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(RecordPath(inv.OutputDir), data, 0o644)
}
