package internal

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/goplus/vbuild/internal/bundle"
	"github.com/spf13/cobra"
)

var packageOutput string

var packageCmd = &cobra.Command{
	Use:   "package [target]",
	Short: "Build and write a bundle target as a jar",
	Long:  `Package runs the build and archives everything attached to the named target.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPackage,
}

func init() {
	packageCmd.Flags().StringVarP(&packageOutput, "output", "o", "", "Output archive (default build/libs/<target>.jar)")
	rootCmd.AddCommand(packageCmd)
}

func runPackage(cmd *cobra.Command, args []string) error {
	name := args[0]

	// Resolve output path before the build so it is relative to the caller.
	out := packageOutput
	if out != "" {
		abs, err := filepath.Abs(out)
		if err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
		out = abs
	}

	p, res, err := buildProject(cmd)
	if err != nil {
		return err
	}
	target, ok := p.Registry.Lookup(name)
	if !ok {
		return fmt.Errorf("target %q is not declared in %s", name, projectFile)
	}
	if out == "" {
		out = filepath.Join(p.Dir, "build", "libs", name+".jar")
	}
	if err := bundle.Write(cmd.Context(), target, out); err != nil {
		return err
	}
	printStatus(cmd.ErrOrStderr(), res)
	color.New(color.FgCyan).Fprintln(cmd.ErrOrStderr(), "wrote", out)
	return nil
}
