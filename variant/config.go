// Package variant defines the configuration record of a build variant: an
// alternate source subset compiled with special flags and merged into
// downstream bundles.
package variant

import (
	"fmt"
	"path/filepath"
)

const (
	// DefaultName is the conventional variant name.
	DefaultName = "simd"

	// MinPlatformVersion is the lowest platform release a variant may target.
	MinPlatformVersion = 17
)

// Config is the configuration record of a build variant. It is mutable until
// Freeze succeeds and read-only afterwards.
type Config struct {
	name            string
	platformVersion int
	sourceDir       string
	outputDir       string
	includeInAgg    bool

	frozen bool
}

// NewConfig returns an unfrozen config populated with the conventional
// defaults laid out under projectDir and buildDir.
func NewConfig(projectDir, buildDir string) *Config {
	return &Config{
		name:            DefaultName,
		platformVersion: MinPlatformVersion,
		sourceDir:       DefaultSourceDir(projectDir, DefaultName),
		outputDir:       DefaultOutputDir(buildDir, DefaultName),
		includeInAgg:    true,
	}
}

// DefaultSourceDir returns <projectDir>/src/<name>/java.
func DefaultSourceDir(projectDir, name string) string {
	return filepath.Join(projectDir, "src", name, "java")
}

// DefaultOutputDir returns <buildDir>/classes/java/<name>.
func DefaultOutputDir(buildDir, name string) string {
	return filepath.Join(buildDir, "classes", "java", name)
}

func (c *Config) VariantName() string         { return c.name }
func (c *Config) MinimumPlatformVersion() int { return c.platformVersion }
func (c *Config) SourceLocation() string      { return c.sourceDir }
func (c *Config) OutputLocation() string      { return c.outputDir }
func (c *Config) IncludeInAggregate() bool    { return c.includeInAgg }

// Frozen reports whether Freeze has succeeded.
func (c *Config) Frozen() bool { return c.frozen }

// SetVariantName sets the variant name.
func (c *Config) SetVariantName(name string) error {
	if c.frozen {
		return frozenErr(KeyVariantName)
	}
	if name == "" {
		return &ConfigError{Key: KeyVariantName, Value: name, Reason: "must not be empty"}
	}
	c.name = name
	return nil
}

// SetMinimumPlatformVersion sets the platform release floor. The value is
// validated by Freeze, not here.
func (c *Config) SetMinimumPlatformVersion(v int) error {
	if c.frozen {
		return frozenErr(KeyMinimumPlatformVersion)
	}
	c.platformVersion = v
	return nil
}

// SetSourceLocation sets where the variant source lives. The directory does
// not need to exist.
func (c *Config) SetSourceLocation(dir string) error {
	if c.frozen {
		return frozenErr(KeySourceLocation)
	}
	c.sourceDir = dir
	return nil
}

// SetOutputLocation sets where compiled classes are written.
func (c *Config) SetOutputLocation(dir string) error {
	if c.frozen {
		return frozenErr(KeyOutputLocation)
	}
	c.outputDir = dir
	return nil
}

// SetIncludeInAggregate controls whether conditional bundles receive the
// compiled output.
func (c *Config) SetIncludeInAggregate(include bool) error {
	if c.frozen {
		return frozenErr(KeyIncludeInAggregate)
	}
	c.includeInAgg = include
	return nil
}

// Freeze validates the config and makes it immutable. It succeeds at most once.
func (c *Config) Freeze() error {
	if c.frozen {
		return fmt.Errorf("freeze %s: %w", c.name, ErrFrozen)
	}
	if c.platformVersion < MinPlatformVersion {
		return &ConfigError{
			Key:    KeyMinimumPlatformVersion,
			Value:  c.platformVersion,
			Reason: fmt.Sprintf("must be %d or higher", MinPlatformVersion),
		}
	}
	c.frozen = true
	return nil
}

// String implements fmt.Stringer.
func (c *Config) String() string {
	return fmt.Sprintf("%s(release=%d src=%s out=%s aggregate=%t)",
		c.name, c.platformVersion, c.sourceDir, c.outputDir, c.includeInAgg)
}

func frozenErr(key string) error {
	return fmt.Errorf("set %s: %w", key, ErrFrozen)
}
