package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/goplus/vbuild/internal/project"
	"github.com/goplus/vbuild/internal/report"
	"github.com/goplus/vbuild/variant"
	"github.com/spf13/cobra"
)

var (
	projectFile string
	setFlags    map[string]string
	verbose     bool
	logFormat   string
)

var rootCmd = &cobra.Command{
	Use:   "vbuild",
	Short: "vbuild compiles and bundles a platform-specific source variant",
	Long: `vbuild resolves the configuration of a JVM source variant, compiles it
against the main classpath with the vector feature module enabled and attaches
the output to the project's bundle targets.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&projectFile, "file", "f", project.FileName, "Project file")
	flags.StringToStringVar(&setFlags, "set", nil, "Override a variant setting (key=value)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging and compiler output")
	flags.StringVar(&logFormat, "log-format", "text", "Log format: text or json")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "FAILED:", err)
		stop()
		os.Exit(1)
	}
}

func newLogger(w io.Writer) *slog.Logger {
	level := "info"
	if verbose {
		level = "debug"
	}
	return report.New(w, level, logFormat)
}

// loadProject reads the project file and merges --set flags over its
// variant block.
func loadProject() (*project.Project, error) {
	path, err := filepath.Abs(projectFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project file: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s not found, pass --file to select a project", projectFile)
	}
	p, err := project.Load(path)
	if err != nil {
		return nil, err
	}
	p.Overrides = mergeOverrides(p.Overrides, setFlags)
	return p, nil
}

// mergeOverrides returns base with set applied on top. Values from set stay
// strings; the resolver coerces them.
func mergeOverrides(base variant.Overrides, set map[string]string) variant.Overrides {
	out := make(variant.Overrides, len(base)+len(set))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range set {
		out[k] = v
	}
	return out
}

// configView is the printable form of a resolved config.
type configView struct {
	VariantName            string `yaml:"variantName"`
	MinimumPlatformVersion int    `yaml:"minimumPlatformVersion"`
	SourceLocation         string `yaml:"sourceLocation"`
	OutputLocation         string `yaml:"outputLocation"`
	IncludeInAggregate     bool   `yaml:"includeInAggregate"`
}

func viewOf(cfg *variant.Config) configView {
	return configView{
		VariantName:            cfg.VariantName(),
		MinimumPlatformVersion: cfg.MinimumPlatformVersion(),
		SourceLocation:         cfg.SourceLocation(),
		OutputLocation:         cfg.OutputLocation(),
		IncludeInAggregate:     cfg.IncludeInAggregate(),
	}
}
