package variant

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Override keys accepted by Resolve.
const (
	KeyVariantName            = "variantName"
	KeyMinimumPlatformVersion = "minimumPlatformVersion"
	KeySourceLocation         = "sourceLocation"
	KeyOutputLocation         = "outputLocation"
	KeyIncludeInAggregate     = "includeInAggregate"
)

// Keys lists every recognized override key.
var Keys = []string{
	KeyVariantName,
	KeyMinimumPlatformVersion,
	KeySourceLocation,
	KeyOutputLocation,
	KeyIncludeInAggregate,
}

// Overrides is a set of named configuration values. Values may be typed or
// strings; strings are coerced to the field type.
type Overrides map[string]any

// Resolver turns overrides into a frozen Config.
type Resolver struct {
	// ProjectDir anchors the default source location and relative overrides.
	ProjectDir string
	// BuildDir anchors the default output location. Defaults to <ProjectDir>/build.
	BuildDir string
}

// Resolve applies overrides on top of the defaults, validates the result and
// freezes it. Path existence is not checked.
func (r Resolver) Resolve(overrides Overrides) (*Config, error) {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !isKnownKey(k) {
			return nil, &ConfigError{Key: k, Reason: "unrecognized override"}
		}
	}

	buildDir := r.BuildDir
	if buildDir == "" {
		buildDir = filepath.Join(r.ProjectDir, "build")
	}

	name := DefaultName
	if v, ok := overrides[KeyVariantName]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, &ConfigError{Key: KeyVariantName, Value: v, Reason: "must be a string"}
		}
		name = s
	}

	cfg := NewConfig(r.ProjectDir, buildDir)
	if err := cfg.SetVariantName(name); err != nil {
		return nil, err
	}
	// Path defaults follow the variant name.
	cfg.sourceDir = DefaultSourceDir(r.ProjectDir, name)
	cfg.outputDir = DefaultOutputDir(buildDir, name)

	for _, k := range keys {
		if err := r.apply(cfg, k, overrides[k]); err != nil {
			return nil, err
		}
	}
	if err := cfg.Freeze(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r Resolver) apply(cfg *Config, key string, v any) error {
	switch key {
	case KeyVariantName:
		return nil // applied first
	case KeyMinimumPlatformVersion:
		n, err := toInt(v)
		if err != nil {
			return &ConfigError{Key: key, Value: v, Reason: "must be an integer"}
		}
		return cfg.SetMinimumPlatformVersion(n)
	case KeySourceLocation:
		dir, err := r.path(key, v)
		if err != nil {
			return err
		}
		return cfg.SetSourceLocation(dir)
	case KeyOutputLocation:
		dir, err := r.path(key, v)
		if err != nil {
			return err
		}
		return cfg.SetOutputLocation(dir)
	case KeyIncludeInAggregate:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return &ConfigError{Key: key, Value: v, Reason: "must be a boolean"}
		}
		return cfg.SetIncludeInAggregate(b)
	}
	return fmt.Errorf("variant: unhandled key %q", key)
}

func (r Resolver) path(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", &ConfigError{Key: key, Value: v, Reason: "must be a non-empty path"}
	}
	if !filepath.IsAbs(s) {
		s = filepath.Join(r.ProjectDir, s)
	}
	return s, nil
}

// toInt accepts integers, whole floats and canonical base-10 strings.
func toInt(v any) (int, error) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, err
		}
		if strconv.Itoa(n) != s {
			return 0, fmt.Errorf("%q is not a canonical decimal", x)
		}
		return n, nil
	case float32:
		return wholeFloat(float64(x))
	case float64:
		return wholeFloat(x)
	case bool:
		return 0, fmt.Errorf("bool is not an integer")
	}
	return cast.ToIntE(v)
}

func wholeFloat(f float64) (int, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a whole number", f)
	}
	return int(f), nil
}

func isKnownKey(k string) bool {
	for _, known := range Keys {
		if k == known {
			return true
		}
	}
	return false
}
